package parser

import (
	"errors"
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/vigilscan/vigil/internal/debug"
	"github.com/vigilscan/vigil/internal/types"
)

// ErrInputTooLarge is returned when input exceeds the structural
// parser's buffer ceiling. The hybrid parser reacts by chunking.
var ErrInputTooLarge = errors.New("input exceeds structural parser ceiling")

// ErrUnsupportedLanguage is returned when no grammar is registered for
// a language hint. The hybrid parser degrades to a generic pass.
var ErrUnsupportedLanguage = errors.New("no grammar registered for language")

// StructuralParser wraps the grammar-based tree-sitter engine with a
// hard input-size ceiling. Grammars are registered lazily so that a
// parser instance only pays for the languages it actually sees.
type StructuralParser struct {
	maxBytes int

	mu          sync.Mutex
	parsers     map[string]*tree_sitter.Parser
	lazyInit    map[string]func(*StructuralParser)
	initialized map[string]bool
}

// NewStructuralParser creates a parser with all supported grammars
// registered for lazy initialization.
func NewStructuralParser(maxBytes int) *StructuralParser {
	p := &StructuralParser{
		maxBytes:    maxBytes,
		parsers:     make(map[string]*tree_sitter.Parser),
		lazyInit:    make(map[string]func(*StructuralParser)),
		initialized: make(map[string]bool),
	}
	registerLanguages(p)
	return p
}

// MaxBytes returns the input-size ceiling in bytes.
func (p *StructuralParser) MaxBytes() int { return p.maxBytes }

// Supports reports whether a grammar is registered for the language.
func (p *StructuralParser) Supports(language string) bool {
	lang := NormalizeLanguage(language)
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.lazyInit[lang]
	return ok
}

// Languages returns the registered language names.
func (p *StructuralParser) Languages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.lazyInit))
	for lang := range p.lazyInit {
		out = append(out, lang)
	}
	return out
}

func (p *StructuralParser) ensureLanguage(lang string) *tree_sitter.Parser {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized[lang] {
		if init, ok := p.lazyInit[lang]; ok {
			init(p)
			p.initialized[lang] = true
		}
	}
	return p.parsers[lang]
}

// Parse runs the grammar for the given language over content and
// converts the result into an arena tree. Inputs at or above the size
// ceiling are rejected with ErrInputTooLarge; the caller decides
// whether to chunk or truncate.
func (p *StructuralParser) Parse(content []byte, language string) (*types.Tree, error) {
	if len(content) >= p.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (ceiling %d)", ErrInputTooLarge, len(content), p.maxBytes)
	}

	lang := NormalizeLanguage(language)
	parser := p.ensureLanguage(lang)
	if parser == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("grammar produced no tree for %q", language)
	}
	defer tree.Close()

	debug.LogParse("structural parse %s: %d bytes\n", lang, len(content))
	return convertTree(tree.RootNode(), content), nil
}

// convertTree copies a tree-sitter tree into an arena tree. Node text
// slices share the converted source string, so the copy is one string
// allocation plus the arena.
func convertTree(root *tree_sitter.Node, content []byte) *types.Tree {
	src := string(content)
	out := types.NewTree(root.Kind())
	out.SetRootSpan(toPosition(root.StartPosition()), toPosition(root.EndPosition()))
	out.Node(out.Root()).Text = sliceText(src, root.StartByte(), root.EndByte())

	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		id := copyNode(out, child, src)
		out.Link(out.Root(), id)
	}
	return out
}

func copyNode(out *types.Tree, node *tree_sitter.Node, src string) types.NodeID {
	id := out.AddNode(types.Node{
		Kind:  node.Kind(),
		Text:  sliceText(src, node.StartByte(), node.EndByte()),
		Start: toPosition(node.StartPosition()),
		End:   toPosition(node.EndPosition()),
		Named: node.IsNamed(),
	})
	for i := uint(0); i < node.ChildCount(); i++ {
		childID := copyNode(out, node.Child(i), src)
		out.Link(id, childID)
	}
	return id
}

func toPosition(p tree_sitter.Point) types.Position {
	return types.Position{Row: uint32(p.Row), Column: uint32(p.Column)}
}

func sliceText(src string, start, end uint) string {
	if int(end) > len(src) {
		end = uint(len(src))
	}
	if start > end {
		start = end
	}
	return src[start:end]
}
