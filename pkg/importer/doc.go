// Package importer loads JSON array files into a running server with
// mongoimport.
//
// A Spec names a file, or a directory whose *.json files each become one
// Job with the collection taken from the file name. Pipeline validates
// every spec before launching anything, then runs the jobs either one at a
// time or all at once with a single wait sweep in launch order.
package importer
