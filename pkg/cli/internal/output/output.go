// Package output provides common output formatting utilities.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
)

// JSON writes indented JSON to stdout.
func JSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table creates an aligned table writer for stdout.
// Remember to call Flush() when done writing.
func Table() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

// Warn prints a warning message to stderr.
func Warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

// Field is one labelled value of a Fields listing.
type Field struct {
	Label string
	Value any
}

// Fields prints label/value pairs as an aligned two-column listing.
// Empty string values are skipped.
func Fields(fields ...Field) error {
	w := Table()
	for _, f := range fields {
		if s, ok := f.Value.(string); ok && s == "" {
			continue
		}
		fmt.Fprintf(w, "%s:\t%v\n", f.Label, f.Value)
	}
	return w.Flush()
}
