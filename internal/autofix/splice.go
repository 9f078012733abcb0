package autofix

import "strings"

// spliceRegion replaces lines [start, end] (1-based, inclusive) of content
// with replacement, preserving every line outside the region at its
// original number.
func spliceRegion(content string, start, end int, replacement string) string {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end || start > len(lines) {
		return content
	}

	replLines := strings.Split(replacement, "\n")
	out := make([]string, 0, len(lines)-(end-start+1)+len(replLines))
	out = append(out, lines[:start-1]...)
	out = append(out, replLines...)
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n")
}

// extractRegion returns lines [start, end] (1-based, inclusive) of content.
func extractRegion(content string, start, end int) string {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end || start > len(lines) {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
