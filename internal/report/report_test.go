package report

import (
	"bytes"
	"testing"

	"gihan9a/docrepair/internal/patch"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

func TestWrite(t *testing.T) {
	results := []patch.Result{
		{Path: "poems.json", Kind: patch.KindRecordRemoval, Status: patch.StatusApplied, Detail: "removed 1 of 50 records with id = 048"},
		{Path: "page.html", Kind: patch.KindTextRemoval, Status: patch.StatusSkippedNoChange, Detail: "no pattern matched"},
		{Path: "gone.md", Kind: patch.KindDeletion, Status: patch.StatusSkippedNotFound},
		{Path: "b.json", Kind: patch.KindRecordRemoval, Status: patch.StatusFailed, Detail: "version conflict"},
	}

	var buf bytes.Buffer
	summary := Write(&buf, results)

	out := buf.String()
	assert.Equal(t, patch.Summary{Applied: 1, Skipped: 2, Failed: 1}, summary)
	assert.Contains(t, out, "applied            poems.json (record-removal): removed 1 of 50 records with id = 048\n")
	assert.Contains(t, out, "skipped-no-change  page.html (text-removal): no pattern matched\n")
	assert.Contains(t, out, "skipped-not-found  gone.md (deletion)\n")
	assert.Contains(t, out, "failed             b.json (record-removal): version conflict\n")
	assert.Contains(t, out, "1 applied, 2 skipped, 1 failed\n")
}

func TestWriteAlignsColouredStatus(t *testing.T) {
	color.NoColor = false
	defer func() { color.NoColor = true }()

	var buf bytes.Buffer
	Write(&buf, []patch.Result{
		{Path: "poems.json", Status: patch.StatusApplied},
		{Path: "page.html", Status: patch.StatusSkippedNoChange},
	})

	out := buf.String()
	assert.Contains(t, out, appliedColor.Sprint("applied           ")+" poems.json\n")
	assert.Contains(t, out, skippedColor.Sprint("skipped-no-change ")+" page.html\n")
}

func TestWriteDryRunDiff(t *testing.T) {
	results := []patch.Result{{
		Path:   "page.html",
		Status: patch.StatusApplied,
		Before: []byte("a\nb\nc\n"),
		After:  []byte("a\nc\n"),
	}}

	var buf bytes.Buffer
	Write(&buf, results)

	assert.Contains(t, buf.String(), "    - b\n")
	assert.NotContains(t, buf.String(), "- a")
	assert.NotContains(t, buf.String(), "- c")
}
