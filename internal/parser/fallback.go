package parser

import (
	"sort"
	"strings"

	"github.com/t14raptor/go-fast/ast"
	gofast "github.com/t14raptor/go-fast/parser"

	"github.com/vigilscan/vigil/internal/debug"
	"github.com/vigilscan/vigil/internal/types"
)

// FallbackParser is the error-recovering tier. For JavaScript and
// TypeScript it runs the pure-Go go-fAST parser; for everything else,
// or when go-fAST rejects the input, it degrades to a tolerant generic
// scan that always produces a tree.
type FallbackParser struct{}

// NewFallbackParser creates the fallback tier.
func NewFallbackParser() *FallbackParser {
	return &FallbackParser{}
}

// Parse recovers a best-effort tree from content. The returned bool is
// true when parts of the input could not be structurally recovered.
// Parse never fails: the generic scan is the terminal recovery path.
func (f *FallbackParser) Parse(content []byte, language string) (*types.Tree, bool) {
	lang := NormalizeLanguage(language)

	if lang == "javascript" || lang == "typescript" {
		if tree, ok := f.parseJavaScript(content); ok {
			return tree, false
		}
		debug.LogParse("go-fast rejected %s input, using generic scan\n", lang)
		tree, _ := ParseGeneric(content)
		return tree, true
	}

	tree, degraded := ParseGeneric(content)
	return tree, degraded
}

// parseJavaScript maps the top-level go-fAST statements onto an arena
// tree. Statement spans run from each declaration's start offset to the
// next declaration's start; structural recovery below the top level is
// intentionally shallow.
func (f *FallbackParser) parseJavaScript(content []byte) (*types.Tree, bool) {
	program, err := gofast.ParseFile(string(content))
	if err != nil {
		return nil, false
	}

	type topLevel struct {
		start int
		kind  string
	}
	var items []topLevel
	for _, stmt := range program.Body {
		switch s := stmt.Stmt.(type) {
		case *ast.FunctionDeclaration:
			if s.Function != nil {
				items = append(items, topLevel{start: clampIdx(int(s.Function.Function), len(content)), kind: "function_declaration"})
			}
		case *ast.ClassDeclaration:
			if s.Class != nil {
				items = append(items, topLevel{start: clampIdx(int(s.Class.Class), len(content)), kind: "class_declaration"})
			}
		case *ast.VariableDeclaration:
			items = append(items, topLevel{start: clampIdx(int(s.Idx), len(content)), kind: "variable_declaration"})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].start < items[j].start })

	lines := newLineIndex(content)
	tree := types.NewTree("program")
	src := string(content)
	for i, item := range items {
		end := len(content)
		if i+1 < len(items) {
			end = items[i+1].start
		}
		id := tree.AddNode(types.Node{
			Kind:  item.kind,
			Text:  strings.TrimRight(src[item.start:end], "\n"),
			Start: lines.position(item.start),
			End:   lines.position(end),
			Named: true,
		})
		tree.Link(tree.Root(), id)
	}
	tree.SetRootSpan(types.Position{}, lines.position(len(content)))
	return tree, true
}

// clampIdx converts a go-fAST 1-based index to a byte offset within
// content bounds.
func clampIdx(idx, size int) int {
	idx--
	if idx < 0 {
		return 0
	}
	if idx > size {
		return size
	}
	return idx
}

// lineIndex maps byte offsets to row/column positions.
type lineIndex struct {
	starts []int // byte offset of each line start
}

func newLineIndex(content []byte) *lineIndex {
	idx := &lineIndex{starts: []int{0}}
	for i, b := range content {
		if b == '\n' {
			idx.starts = append(idx.starts, i+1)
		}
	}
	return idx
}

func (l *lineIndex) position(offset int) types.Position {
	row := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1
	if row < 0 {
		row = 0
	}
	return types.Position{Row: uint32(row), Column: uint32(offset - l.starts[row])}
}

// ParseGeneric performs a grammar-free structural scan: the input is
// split into brace-balanced statements classified by leading keyword.
// It accepts arbitrarily malformed input; an unterminated construct at
// EOF yields an ERROR node and a true degraded flag.
func ParseGeneric(content []byte) (*types.Tree, bool) {
	tree := types.NewTree("source_file")
	lines := splitLines(content)

	depth := 0
	stmtStartLine := -1
	var stmtLines []string
	degraded := false

	flush := func(endLine int) {
		if stmtStartLine < 0 || len(stmtLines) == 0 {
			return
		}
		text := strings.Join(stmtLines, "\n")
		if strings.TrimSpace(text) == "" {
			stmtStartLine = -1
			stmtLines = nil
			return
		}
		lastLine := stmtLines[len(stmtLines)-1]
		id := tree.AddNode(types.Node{
			Kind:  classifyStatement(stmtLines[0]),
			Text:  text,
			Start: types.Position{Row: uint32(stmtStartLine)},
			End:   types.Position{Row: uint32(endLine), Column: uint32(len(lastLine))},
			Named: true,
		})
		tree.Link(tree.Root(), id)
		stmtStartLine = -1
		stmtLines = nil
	}

	for i, line := range lines {
		if stmtStartLine < 0 {
			stmtStartLine = i
		}
		stmtLines = append(stmtLines, line)
		depth += braceDelta(line)
		if depth < 0 {
			// Stray closers are tolerated, not fatal
			depth = 0
		}
		if depth == 0 {
			flush(i)
		}
	}
	if stmtStartLine >= 0 && len(stmtLines) > 0 && strings.TrimSpace(strings.Join(stmtLines, "\n")) != "" {
		// Unterminated construct at EOF
		text := strings.Join(stmtLines, "\n")
		lastLine := stmtLines[len(stmtLines)-1]
		id := tree.AddNode(types.Node{
			Kind:  "ERROR",
			Text:  text,
			Start: types.Position{Row: uint32(stmtStartLine)},
			End:   types.Position{Row: uint32(len(lines) - 1), Column: uint32(len(lastLine))},
			Named: true,
		})
		tree.Link(tree.Root(), id)
		degraded = true
	}

	endRow := 0
	endCol := 0
	if len(lines) > 0 {
		endRow = len(lines) - 1
		endCol = len(lines[endRow])
	}
	tree.SetRootSpan(types.Position{}, types.Position{Row: uint32(endRow), Column: uint32(endCol)})
	return tree, degraded
}

func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

// braceDelta counts the net curly-brace depth change of a line,
// skipping braces inside quoted strings and after line comments.
func braceDelta(line string) int {
	delta := 0
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
				return delta
			}
		case '#':
			return delta
		case '{':
			delta++
		case '}':
			delta--
		}
	}
	return delta
}

var functionKeywords = []string{"func ", "function ", "function(", "def ", "fn ", "async function", "pub fn "}
var classKeywords = []string{"class ", "struct ", "interface ", "trait ", "impl ", "enum "}
var importKeywords = []string{"import ", "import(", "from ", "require(", "use ", "#include", "using "}

// classifyStatement inspects the first line of a statement and names
// its kind the way the grammars would.
func classifyStatement(firstLine string) string {
	trimmed := strings.TrimSpace(firstLine)
	lower := strings.ToLower(trimmed)

	if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "#include") || strings.HasPrefix(trimmed, "/*") {
		return "comment"
	}
	for _, kw := range importKeywords {
		if strings.HasPrefix(lower, kw) {
			return "import_statement"
		}
	}
	for _, kw := range functionKeywords {
		if strings.Contains(lower, kw) {
			return "function_declaration"
		}
	}
	for _, kw := range classKeywords {
		if strings.HasPrefix(lower, kw) || strings.Contains(lower, " "+kw) {
			return "class_declaration"
		}
	}
	return "statement"
}
