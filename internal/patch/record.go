package patch

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/wI2L/jsondiff"
)

// RecordRemoval removes every record of a JSON array whose Field equals Value.
// Field uses gjson path syntax, so nested fields such as "meta.id" work.
// Values are compared in their string form: the number 48 matches "48", not "048".
type RecordRemoval struct {
	Field string
	Value string
}

func (t *RecordRemoval) Kind() TransformKind { return KindRecordRemoval }

func (t *RecordRemoval) Apply(content []byte) (Change, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(content, &records); err != nil {
		return Change{}, fmt.Errorf("%w: expected a JSON array of records: %v", ErrMalformedContent, err)
	}
	// null decodes without error but is not a list of records
	if records == nil {
		return Change{}, fmt.Errorf("%w: expected a JSON array of records, got null", ErrMalformedContent)
	}

	kept := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		field := gjson.GetBytes(r, t.Field)
		if field.Exists() && field.String() == t.Value {
			continue
		}
		kept = append(kept, r)
	}

	// Equal lengths mean no record matched, and nothing is written
	if len(kept) == len(records) {
		return Change{Description: fmt.Sprintf("no record with %s = %s", t.Field, t.Value)}, nil
	}

	out, err := encodeRecords(kept, detectIndent(content), bytes.HasSuffix(content, []byte("\n")))
	if err != nil {
		return Change{}, err
	}
	if bytes.Contains(content, []byte("\r\n")) {
		out = bytes.ReplaceAll(out, []byte("\n"), []byte("\r\n"))
	}

	diff, err := jsondiff.CompareJSON(content, out)
	if err != nil {
		return Change{}, fmt.Errorf("failed to diff records: %w", err)
	}

	return Change{
		Changed:     true,
		Content:     out,
		Patch:       diff,
		Description: fmt.Sprintf("removed %d of %d records with %s = %s", len(records)-len(kept), len(records), t.Field, t.Value),
	}, nil
}

// encodeRecords writes the records back keeping their key order and without HTML escaping
func encodeRecords(records []json.RawMessage, indent string, trailingNewline bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}

	out := buf.Bytes()
	if !trailingNewline {
		out = bytes.TrimSuffix(out, []byte("\n"))
	}
	return out, nil
}

// detectIndent returns the leading whitespace of the first indented line, or "" for compact JSON
func detectIndent(content []byte) string {
	for _, line := range bytes.Split(content, []byte("\n"))[1:] {
		trimmed := bytes.TrimLeft(bytes.TrimSuffix(line, []byte("\r")), " \t")
		if len(trimmed) == 0 {
			continue
		}
		return string(line[:len(line)-len(trimmed)])
	}
	return ""
}
