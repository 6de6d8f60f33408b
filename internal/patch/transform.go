package patch

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/wI2L/jsondiff"
)

// TransformKind tags the variant of a Transform
type TransformKind string

const (
	KindTextRemoval   TransformKind = "text-removal"
	KindRecordRemoval TransformKind = "record-removal"
	KindDeletion      TransformKind = "deletion"
)

// Change is what a Transform computed for a document
type Change struct {
	Changed     bool
	Absent      bool   // The document should be removed
	Content     []byte // New body when Changed and not Absent
	Description string
	Patch       jsondiff.Patch
}

// Transform is a pure function over the content of an existing document.
// It must not have side effects and is never called for a missing document.
type Transform interface {
	Kind() TransformKind
	Apply(content []byte) (Change, error)
}

// TextRemoval deletes the text matched by the first pattern that matches.
// Patterns are tried in order, so a primary pattern can be followed by fallbacks
// for markup that is not always wrapped the same way.
type TextRemoval struct {
	Patterns []*regexp.Regexp
}

// NewTextRemoval compiles the patterns, primary first
func NewTextRemoval(patterns ...string) (*TextRemoval, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("text removal needs at least one pattern")
	}
	t := &TextRemoval{}
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		t.Patterns = append(t.Patterns, re)
	}
	return t, nil
}

func (t *TextRemoval) Kind() TransformKind { return KindTextRemoval }

func (t *TextRemoval) Apply(content []byte) (Change, error) {
	for i, re := range t.Patterns {
		var out bytes.Buffer
		last, removed := 0, 0
		for _, loc := range re.FindAllIndex(content, -1) {
			if loc[1] == loc[0] {
				continue
			}
			out.Write(content[last:loc[0]])
			last = loc[1]
			removed++
		}
		if removed == 0 {
			continue
		}
		out.Write(content[last:])

		which := "primary pattern"
		if i > 0 {
			which = fmt.Sprintf("fallback pattern %d", i)
		}
		return Change{
			Changed:     true,
			Content:     out.Bytes(),
			Description: fmt.Sprintf("removed %d match(es) of %s", removed, which),
		}, nil
	}
	return Change{Description: "no pattern matched"}, nil
}

// Deletion removes the whole document
type Deletion struct{}

func (Deletion) Kind() TransformKind { return KindDeletion }

func (Deletion) Apply([]byte) (Change, error) {
	return Change{Changed: true, Absent: true, Description: "document deleted"}, nil
}
