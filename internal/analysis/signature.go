package analysis

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/vigilscan/vigil/internal/types"
)

// HashContent computes the content hash used for change detection and
// cache validation.
func HashContent(content string) uint64 {
	return xxhash.Sum64String(content)
}

// ExtractSignature returns the declaration header of a unit: the first
// non-comment line up to (and excluding) its opening brace or trailing
// colon, with whitespace normalized. Units without a recognizable
// header hash to their full stripped content.
func ExtractSignature(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isCommentLine(trimmed) {
			continue
		}
		if i := strings.IndexByte(trimmed, '{'); i >= 0 {
			trimmed = trimmed[:i]
		}
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), ":")
		return normalizeSpace(trimmed)
	}
	return ""
}

// ClassifyChange compares two revisions of a unit and names the kind
// of edit. Signature changes force transitive re-analysis; body
// changes only invalidate direct dependents; comment changes touch
// nothing but the unit itself.
func ClassifyChange(oldContent, newContent string) types.ChangeType {
	if oldContent == newContent {
		return types.ChangeNone
	}
	if stripComments(oldContent) == stripComments(newContent) {
		return types.ChangeComment
	}
	if ExtractSignature(oldContent) == ExtractSignature(newContent) {
		return types.ChangeBody
	}
	return types.ChangeSignature
}

// ChangedLines returns the 1-based line numbers that differ between
// two revisions, including lines present in only one of them.
func ChangedLines(oldContent, newContent string) []uint32 {
	oldLines := strings.Split(oldContent, "\n")
	newLines := strings.Split(newContent, "\n")
	n := len(oldLines)
	if len(newLines) > n {
		n = len(newLines)
	}
	var changed []uint32
	for i := 0; i < n; i++ {
		var o, w string
		if i < len(oldLines) {
			o = oldLines[i]
		}
		if i < len(newLines) {
			w = newLines[i]
		}
		if o != w {
			changed = append(changed, uint32(i+1))
		}
	}
	return changed
}

func isCommentLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*") ||
		strings.HasPrefix(trimmed, "--")
}

// stripComments removes comment-only lines and trailing line comments,
// then collapses whitespace so formatting churn does not register as a
// code change.
func stripComments(content string) string {
	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isCommentLine(trimmed) {
			continue
		}
		trimmed = trimTrailingComment(trimmed)
		if trimmed == "" {
			continue
		}
		b.WriteString(normalizeSpace(trimmed))
		b.WriteByte('\n')
	}
	return b.String()
}

// trimTrailingComment cuts a // comment off the end of a line, leaving
// string literals alone.
func trimTrailingComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return line
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
