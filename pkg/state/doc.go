// Package state is the cross-phase channel between embedmongo phases.
//
// Phases that run in separate OS processes exchange string values through a
// Store keyed by well-known names (the published port of a project, the
// record of the running instance). Three implementations exist:
//
//   - FileStore keeps a JSON document on disk, guarded by an advisory file
//     lock so concurrent phases never lose each other's writes.
//   - MemoryStore lives in one process and backs tests and `embedmongo run`.
//   - EnvStore reads values from the environment and rejects writes; forked
//     test processes use it to find the port their parent published.
//
// Phases that run in the same process additionally share live objects (the
// running *mongod.Instance) through a Registry.
package state
