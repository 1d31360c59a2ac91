package output

import (
	"fmt"
	"strings"
)

// CommandLine renders a command for the commands channel, quoting
// arguments that are empty or contain blanks or quotes.
func CommandLine(bin string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{bin}, args...) {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
