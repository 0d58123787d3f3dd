package stacktrace

import "strings"

// InternalPaths extracts "internal/<pkg>/<file>.go:<line>" frames from a raw
// debug.Stack output, dropping runtime and third-party frames.
func InternalPaths(stack []byte) []string {
	var paths []string

	for line := range strings.Lines(string(stack)) {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, ".go:") {
			continue
		}

		_, rest, found := strings.Cut(line, "/internal/")
		if !found {
			continue
		}

		frame, _, _ := strings.Cut(rest, " ")
		paths = append(paths, "internal/"+frame)
	}

	return paths
}
