// Package logs reads the pixelmint log file for the CLI.
//
// Last returns the final lines with bounded memory and the byte offset where
// reading stopped; Follow polls from such an offset and hands each new line to
// a callback until the context ends. A file that shrinks is assumed rotated
// and is reread from the start.
package logs
