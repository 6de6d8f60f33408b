package plan

import (
	"os"
	"path/filepath"
	"testing"

	"gihan9a/docrepair/internal/patch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const examplePlan = `
operations:
  - path: poems.json
    message: Remove poem 048
    remove_record:
      field: id
      value: "048"
  - path: /site/page.html
    remove_text:
      patterns:
        - '(?s)<article[^>]*\bid="poem-48"[^>]*>.*?</article>\n?'
        - '(?s)<div[^>]*\bdata-id="48"[^>]*>.*?</div>\n?'
  - path: drafts/048.md
    delete: true
`

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "patches.yml")
	require.NoError(t, os.WriteFile(file, []byte(examplePlan), 0644))

	ops, err := Load(file)
	require.NoError(t, err)
	require.Len(t, ops, 3)

	assert.Equal(t, "poems.json", ops[0].Path)
	assert.Equal(t, "Remove poem 048", ops[0].Message)
	assert.Equal(t, &patch.RecordRemoval{Field: "id", Value: "048"}, ops[0].Transform)

	assert.Equal(t, "site/page.html", ops[1].Path)
	text, ok := ops[1].Transform.(*patch.TextRemoval)
	require.True(t, ok)
	assert.Len(t, text.Patterns, 2)
	assert.Equal(t, "Apply text-removal to site/page.html", ops[1].Message)

	assert.Equal(t, patch.KindDeletion, ops[2].Transform.Kind())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestParseRejectsInvalidPlans(t *testing.T) {
	tests := map[string]string{
		"empty":          `operations: []`,
		"not yaml":       `operations: [`,
		"no transform":   "operations:\n  - path: a.json\n",
		"two transforms": "operations:\n  - path: a.json\n    delete: true\n    remove_record: {field: id, value: x}\n",
		"bad pattern":    "operations:\n  - path: a.html\n    remove_text: {patterns: ['(']}\n",
		"no patterns":    "operations:\n  - path: a.html\n    remove_text: {patterns: []}\n",
		"no field":       "operations:\n  - path: a.json\n    remove_record: {value: x}\n",
		"escaping path":  "operations:\n  - path: ../a.json\n    delete: true\n",
		"missing path":   "operations:\n  - delete: true\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			ops, err := Parse([]byte(doc))
			assert.Error(t, err)
			assert.Nil(t, ops)
		})
	}
}
