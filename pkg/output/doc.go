// Package output routes the three output channels of the server (stdout,
// stderr and the command lines embedmongo issues) to the console, to a
// single log file, or nowhere.
//
// Every channel is line oriented: writers buffer partial lines and emit
// whole lines only, so the channels never interleave mid-line.
package output
