package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReferencesCallsAndImports(t *testing.T) {
	content := "const db = require('database');\n" +
		"function handler(req) {\n" +
		"\tconst rows = query(req.id);\n" +
		"\treturn render(rows);\n" +
		"}\n"

	refs := ExtractReferences(content)
	assert.Equal(t, []string{"database", "query", "render"}, refs)
}

func TestExtractReferencesExcludesBuiltins(t *testing.T) {
	content := "func sum(xs []int) int {\n" +
		"\tout := make([]int, 0, len(xs))\n" +
		"\tout = append(out, helper(xs))\n" +
		"\treturn total(out)\n" +
		"}\n"

	refs := ExtractReferences(content)
	assert.Equal(t, []string{"helper", "total"}, refs)
}

func TestExtractReferencesSkipsDeclarationNames(t *testing.T) {
	refs := ExtractReferences("function compute(x) { return x; }\n")
	assert.NotContains(t, refs, "compute")
}

func TestExtractReferencesSkipsComments(t *testing.T) {
	content := "// calls legacy(), kept for reference\n" +
		"real()\n"
	assert.Equal(t, []string{"real"}, ExtractReferences(content))
}

func TestExtractReferencesDeduplicates(t *testing.T) {
	content := "ping()\nping()\npong()\nping()\n"
	assert.Equal(t, []string{"ping", "pong"}, ExtractReferences(content))
}

func TestExtractReferencesImportStatement(t *testing.T) {
	refs := ExtractReferences("import \"net/http\"\n")
	assert.Equal(t, []string{"net/http"}, refs)

	refs = ExtractReferences("from helpers import slugify\n")
	assert.Contains(t, refs, "helpers")
}

func TestExtractReferencesEmpty(t *testing.T) {
	assert.Empty(t, ExtractReferences(""))
	assert.Empty(t, ExtractReferences("// nothing here\n"))
}
