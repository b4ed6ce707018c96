package analysis

import "strings"

// builtins are global identifiers that never resolve to project units
// and are excluded from dependency scanning.
var builtins = map[string]bool{
	"append": true, "cap": true, "copy": true, "delete": true,
	"len": true, "make": true, "new": true, "panic": true,
	"print": true, "println": true, "recover": true,
	"if": true, "for": true, "switch": true, "return": true,
	"while": true, "catch": true, "typeof": true,
	"require": true, "import": true,
	"console": true, "Math": true, "JSON": true,
	"Object": true, "String": true, "Array": true, "Promise": true,
}

// ExtractReferences scans source text for call expressions and
// import/require-like references and returns the referenced names,
// deduplicated in order of first appearance.
func ExtractReferences(content string) []string {
	seen := make(map[string]bool)
	var refs []string
	add := func(name string) {
		if name == "" || builtins[name] || seen[name] {
			return
		}
		seen[name] = true
		refs = append(refs, name)
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isCommentLine(trimmed) {
			continue
		}
		if target, ok := importTarget(trimmed); ok {
			add(target)
			continue
		}
		for _, name := range callNames(trimmed) {
			add(name)
		}
	}
	return refs
}

// importTarget extracts the module named by an import, require, or use
// line.
func importTarget(line string) (string, bool) {
	if i := strings.Index(line, "require("); i >= 0 {
		return quotedIn(line[i:])
	}
	if strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "from ") ||
		strings.HasPrefix(line, "use ") {
		if name, ok := quotedIn(line); ok {
			return name, true
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			return strings.Trim(fields[1], `"';`), true
		}
	}
	return "", false
}

// quotedIn returns the first single- or double-quoted string in s.
func quotedIn(s string) (string, bool) {
	for _, q := range []byte{'"', '\''} {
		if i := strings.IndexByte(s, q); i >= 0 {
			if j := strings.IndexByte(s[i+1:], q); j >= 0 {
				return s[i+1 : i+1+j], true
			}
		}
	}
	return "", false
}

// callNames returns identifiers immediately followed by an opening
// paren, skipping declaration headers.
func callNames(line string) []string {
	var names []string
	start := -1
	for i := 0; i <= len(line); i++ {
		var c byte
		if i < len(line) {
			c = line[i]
		}
		if isIdentByte(c) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if c == '(' && !isDeclarationName(line, start) {
				names = append(names, line[start:i])
			}
			start = -1
		}
	}
	return names
}

// isDeclarationName reports whether the identifier at start is preceded
// by a declaration keyword, meaning it names the unit itself rather
// than a callee.
func isDeclarationName(line string, start int) bool {
	end := start
	for end > 0 && line[end-1] == ' ' {
		end--
	}
	begin := end
	for begin > 0 && isIdentByte(line[begin-1]) {
		begin--
	}
	switch line[begin:end] {
	case "func", "function", "def", "fn", "sub":
		return true
	}
	return false
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
