// Package scripts evaluates a directory of JavaScript files against a
// running server, one file at a time in name order.
//
// Each file is decoded with the configured charset, wrapped in an
// anonymous function and handed to an Evaluator. The driver evaluator
// sends the eval command, which servers before 4.2 support; the shell
// evaluator runs the mongo or mongosh executable instead.
package scripts
