package parser

import (
	"path/filepath"
	"strings"

	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// registerLanguages wires every supported grammar for lazy
// initialization. A grammar is only loaded the first time its language
// is actually parsed.
func registerLanguages(p *StructuralParser) {
	p.lazyInit["go"] = setupGo
	p.lazyInit["javascript"] = setupJavaScript
	p.lazyInit["typescript"] = setupTypeScript
	p.lazyInit["python"] = setupPython
	p.lazyInit["rust"] = setupRust
	p.lazyInit["java"] = setupJava
	p.lazyInit["cpp"] = setupCpp
	p.lazyInit["csharp"] = setupCSharp
	p.lazyInit["php"] = setupPHP
	p.lazyInit["zig"] = setupZig
}

func registerParser(p *StructuralParser, name string, language *tree_sitter.Language) {
	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	p.parsers[name] = parser
}

func setupGo(p *StructuralParser) {
	registerParser(p, "go", tree_sitter.NewLanguage(tree_sitter_go.Language()))
}

func setupJavaScript(p *StructuralParser) {
	registerParser(p, "javascript", tree_sitter.NewLanguage(tree_sitter_javascript.Language()))
}

func setupTypeScript(p *StructuralParser) {
	registerParser(p, "typescript", tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()))
}

func setupPython(p *StructuralParser) {
	registerParser(p, "python", tree_sitter.NewLanguage(tree_sitter_python.Language()))
}

func setupRust(p *StructuralParser) {
	registerParser(p, "rust", tree_sitter.NewLanguage(tree_sitter_rust.Language()))
}

func setupJava(p *StructuralParser) {
	registerParser(p, "java", tree_sitter.NewLanguage(tree_sitter_java.Language()))
}

func setupCpp(p *StructuralParser) {
	registerParser(p, "cpp", tree_sitter.NewLanguage(tree_sitter_cpp.Language()))
}

func setupCSharp(p *StructuralParser) {
	registerParser(p, "csharp", tree_sitter.NewLanguage(tree_sitter_csharp.Language()))
}

func setupPHP(p *StructuralParser) {
	registerParser(p, "php", tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP()))
}

func setupZig(p *StructuralParser) {
	registerParser(p, "zig", tree_sitter.NewLanguage(tree_sitter_zig.Language()))
}

// NormalizeLanguage maps hint aliases and file extensions onto
// canonical language names.
func NormalizeLanguage(hint string) string {
	h := strings.ToLower(strings.TrimSpace(hint))
	switch h {
	case "js", "jsx", ".js", ".jsx", "javascript":
		return "javascript"
	case "ts", "tsx", ".ts", ".tsx", "typescript":
		return "typescript"
	case "golang", ".go", "go":
		return "go"
	case "py", ".py", "python":
		return "python"
	case "rs", ".rs", "rust":
		return "rust"
	case ".java", "java":
		return "java"
	case "c", "c++", ".c", ".cc", ".cpp", ".cxx", ".h", ".hpp", "cpp":
		return "cpp"
	case "c#", "cs", ".cs", "csharp":
		return "csharp"
	case ".php", ".phtml", "php":
		return "php"
	case ".zig", "zig":
		return "zig"
	default:
		return h
	}
}

// LanguageFromPath guesses the language name from a file extension,
// returning "" for unknown extensions.
func LanguageFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".cpp", ".cc", ".cxx", ".c", ".h", ".hpp":
		return "cpp"
	case ".cs":
		return "csharp"
	case ".php", ".phtml":
		return "php"
	case ".zig":
		return "zig"
	default:
		return ""
	}
}
