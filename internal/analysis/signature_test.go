package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vigilscan/vigil/internal/types"
)

func TestExtractSignature(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "go function",
			content: "// Add sums two ints.\nfunc Add(a, b int) int {\n\treturn a + b\n}\n",
			want:    "func Add(a, b int) int",
		},
		{
			name:    "python def",
			content: "def run(self, count):\n    pass\n",
			want:    "def run(self, count)",
		},
		{
			name:    "whitespace normalized",
			content: "func   Add(a,   b int)   int {\n}",
			want:    "func Add(a, b int) int",
		},
		{
			name:    "comment only",
			content: "// nothing here\n",
			want:    "",
		},
		{
			name:    "empty",
			content: "",
			want:    "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractSignature(tc.content))
		})
	}
}

func TestClassifyChange(t *testing.T) {
	base := "// Add sums two ints.\nfunc Add(a, b int) int {\n\treturn a + b\n}\n"

	t.Run("identical", func(t *testing.T) {
		assert.Equal(t, types.ChangeNone, ClassifyChange(base, base))
	})

	t.Run("comment only", func(t *testing.T) {
		edited := "// Add returns the sum.\nfunc Add(a, b int) int {\n\treturn a + b\n}\n"
		assert.Equal(t, types.ChangeComment, ClassifyChange(base, edited))
	})

	t.Run("trailing comment only", func(t *testing.T) {
		edited := "// Add sums two ints.\nfunc Add(a, b int) int {\n\treturn a + b // fast path\n}\n"
		assert.Equal(t, types.ChangeComment, ClassifyChange(base, edited))
	})

	t.Run("body", func(t *testing.T) {
		edited := "// Add sums two ints.\nfunc Add(a, b int) int {\n\treturn b + a\n}\n"
		assert.Equal(t, types.ChangeBody, ClassifyChange(base, edited))
	})

	t.Run("signature", func(t *testing.T) {
		edited := "// Add sums two ints.\nfunc Add(a, b, c int) int {\n\treturn a + b + c\n}\n"
		assert.Equal(t, types.ChangeSignature, ClassifyChange(base, edited))
	})
}

func TestHashContent(t *testing.T) {
	assert.Equal(t, HashContent("abc"), HashContent("abc"))
	assert.NotEqual(t, HashContent("abc"), HashContent("abd"))
}

func TestStripCommentsKeepsStringLiterals(t *testing.T) {
	a := `x := "https://example.com" // endpoint`
	b := `x := "https://example.com"`
	assert.Equal(t, stripComments(a), stripComments(b))
}

func TestChangedLines(t *testing.T) {
	oldContent := "func f() {\n\tx := 1\n\treturn x\n}\n"
	newContent := "func f() {\n\tx := 2\n\treturn x\n}\n"
	assert.Equal(t, []uint32{2}, ChangedLines(oldContent, newContent))
}

func TestChangedLinesAddedLines(t *testing.T) {
	oldContent := "a\nb\n"
	newContent := "a\nb\nc\nd\n"
	assert.Equal(t, []uint32{3, 4}, ChangedLines(oldContent, newContent))
}

func TestChangedLinesIdentical(t *testing.T) {
	assert.Empty(t, ChangedLines("same\n", "same\n"))
}
