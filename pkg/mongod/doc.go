// Package mongod supervises one short-lived mongod server: it builds the
// command line from a resolved version, launches the server through a
// Launcher (a local executable or a container), waits until the server
// answers, publishes where it runs, and guarantees it is stopped.
//
// A Supervisor moves through the states
//
//	Idle → Configuring → Starting → Running ⇄ Waiting → Stopping → Stopped
//
// with Failed reachable from Configuring and Starting. A Failsafe armed by
// Start stops the server on SIGINT/SIGTERM and when a watched parent
// process disappears; callers defer Stop for normal and error exits.
package mongod
