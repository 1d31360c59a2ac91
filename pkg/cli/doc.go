// Package cli provides the command-line interface for embedmongo.
//
// Every phase of a build's MongoDB lifecycle is a command:
//   - start: Resolve, fetch and launch mongod, publish its port
//   - import: Load JSON array files with mongoimport
//   - scripts: Evaluate the JavaScript files of a directory
//   - stop: Stop the server started by start
//   - run: start, import and scripts in one process, optionally around a command
//
// Helper commands:
//   - status: Show the published instance record
//   - port: Print the published port of a project
//   - env: Print the connection variables of a project for shells
//   - resolve: Show how a version string resolves and where it downloads from
//   - ps: List the instances of every project in the state file
//   - logs: Show the output of a detached supervisor
//   - config: Show the effective configuration
//   - doctor: Check the environment for problems
//   - version: Show embedmongo version
//
// start returns once the server accepts connections. Unless --wait is
// given, the server stays under a detached supervisor process, and later
// phases in other processes find it through the state file
// ($XDG_RUNTIME_DIR/embedmongo/session.json by default). run shares the
// instance between phases in memory.
//
// Configuration comes from flags, EMBEDMONGO_* environment variables, a
// local .embedmongo.yaml, the global config file, and defaults, in that
// order of precedence.
//
// Usage:
//
//	embedmongo start --version 4.0.2 --random-port
//	embedmongo import --import app.users=testdata/users.json
//	embedmongo scripts --scripts-directory db/init --database-name app
//	embedmongo stop
//	embedmongo run --random-port --import users.json -- go test ./...
package cli
