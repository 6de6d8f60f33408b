// Package patch applies idempotent edits to documents held in a remote store.
//
// Each Operation reads a document together with its version token, runs a pure
// Transform over the content and writes the result back conditioned on that token.
// A missing document and a transform that finds nothing to change are both
// reported as skips, so a sequence of operations can be re-run safely.
package patch

import (
	"context"

	"github.com/wI2L/jsondiff"
)

// Status is the terminal state of one operation
type Status string

const (
	StatusApplied         Status = "applied"
	StatusSkippedNotFound Status = "skipped-not-found"
	StatusSkippedNoChange Status = "skipped-no-change"
	StatusFailed          Status = "failed"
)

// Document is a remote document as read from a Store
type Document struct {
	Path    string
	Content []byte
	Version string // Opaque token required for a conditional write
}

// Store is the remote document store the applier reads from and writes to.
//
// Get returns ErrNotFound for a missing document. Put and Delete return
// ErrConflict when version no longer identifies the current revision.
type Store interface {
	Get(ctx context.Context, path string) (*Document, error)
	Put(ctx context.Context, path string, content []byte, version, message string) (string, error)
	Delete(ctx context.Context, path, version, message string) error
}

// Operation describes one idempotent edit
type Operation struct {
	Path      string
	Transform Transform
	Message   string // Commit message attached to the write
}

// Result is the outcome of one operation
type Result struct {
	Path   string
	Kind   TransformKind
	Status Status
	Detail string

	// Before and After hold the document bodies of a change computed in dry-run mode
	Before []byte
	After  []byte
	// Patch is the JSON diff of a structured change, when one was computed
	Patch jsondiff.Patch
}

// Summary counts results by outcome
type Summary struct {
	Applied int
	Skipped int
	Failed  int
}

// OK reports whether no operation failed
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Summarize counts the results by outcome
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case StatusApplied:
			s.Applied++
		case StatusSkippedNotFound, StatusSkippedNoChange:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}
