package patch

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Applier runs operations against a Store, one after another
type Applier struct {
	store  Store
	logger *zap.Logger
	dryRun bool
}

// Option configures an Applier
type Option func(*Applier)

// WithLogger sets the logger used for per-operation progress
func WithLogger(logger *zap.Logger) Option {
	return func(a *Applier) {
		a.logger = logger
	}
}

// WithDryRun computes changes without writing them
func WithDryRun(dryRun bool) Option {
	return func(a *Applier) {
		a.dryRun = dryRun
	}
}

// NewApplier creates an Applier writing to store
func NewApplier(store Store, opts ...Option) *Applier {
	a := &Applier{
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply executes the operations in order and returns one result per operation,
// in input order. A failed operation does not stop the ones after it, and
// operations already applied are never rolled back.
func (a *Applier) Apply(ctx context.Context, ops []Operation) []Result {
	results := make([]Result, 0, len(ops))
	for _, op := range ops {
		res := a.applyOne(ctx, op)

		fields := []zap.Field{
			zap.String("path", res.Path),
			zap.String("kind", string(res.Kind)),
			zap.String("status", string(res.Status)),
			zap.String("detail", res.Detail),
		}
		if len(res.Patch) > 0 {
			fields = append(fields, zap.Int("patch_ops", len(res.Patch)))
		}
		if res.Status == StatusFailed {
			a.logger.Warn("Operation failed", fields...)
		} else {
			a.logger.Info("Operation finished", fields...)
		}

		results = append(results, res)
	}
	return results
}

func (a *Applier) applyOne(ctx context.Context, op Operation) Result {
	res := Result{Path: op.Path}
	if op.Transform == nil {
		res.Status = StatusFailed
		res.Detail = "operation has no transform"
		return res
	}
	res.Kind = op.Transform.Kind()

	// Read the document and the version the write will be conditioned on
	doc, err := a.store.Get(ctx, op.Path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			res.Status = StatusSkippedNotFound
			res.Detail = "document not found"
			return res
		}
		return failed(res, err)
	}
	a.logger.Debug("Fetched document",
		zap.String("path", op.Path),
		zap.String("version", doc.Version),
		zap.Int("bytes", len(doc.Content)))

	change, err := op.Transform.Apply(doc.Content)
	if err != nil {
		return failed(res, err)
	}
	res.Patch = change.Patch
	res.Detail = change.Description

	if !change.Changed {
		res.Status = StatusSkippedNoChange
		return res
	}

	if a.dryRun {
		res.Status = StatusApplied
		res.Detail = "dry run: " + change.Description
		res.Before = doc.Content
		res.After = change.Content
		return res
	}

	// Conditional write using the version read above
	if change.Absent {
		err = a.store.Delete(ctx, op.Path, doc.Version, op.Message)
	} else {
		_, err = a.store.Put(ctx, op.Path, change.Content, doc.Version, op.Message)
	}
	if err != nil {
		return failed(res, err)
	}

	res.Status = StatusApplied
	return res
}

func failed(res Result, err error) Result {
	res.Status = StatusFailed
	switch {
	case errors.Is(err, ErrConflict):
		res.Detail = "version conflict"
	default:
		res.Detail = err.Error()
	}
	return res
}
