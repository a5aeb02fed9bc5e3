// Package lines splits text into lines the same way everywhere gentest
// compares or classifies output.
package lines

import (
	"os"
	"strings"
)

// Split breaks s into lines without their terminators. A trailing newline
// does not produce a final empty line, and CRLF endings are accepted.
func Split(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

// Read returns the lines of the file at path.
func Read(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Split(string(data)), nil
}
