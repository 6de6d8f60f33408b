// Command repair applies the operations of a patch plan to a remote document
// store and reports one status line per operation.
//
// It takes no flags; configuration is read from REPAIR_* environment variables.
// The exit code is 0 when no operation failed, 1 when at least one did and 2
// when the configuration or the plan is invalid.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"gihan9a/docrepair/internal/config"
	"gihan9a/docrepair/internal/logging"
	"gihan9a/docrepair/internal/patch"
	"gihan9a/docrepair/internal/plan"
	"gihan9a/docrepair/internal/report"
	"gihan9a/docrepair/internal/store/githubstore"
	"gihan9a/docrepair/internal/store/httpstore"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run(context.Background(), os.Getenv, os.Stdout, os.Stderr))
}

func run(ctx context.Context, getenv func(string) string, stdout, stderr io.Writer) int {
	cfg, err := config.LoadRepairConfig(getenv)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer logger.Sync()

	ops, err := plan.Load(cfg.PlanFile)
	if err != nil {
		logger.Error("Invalid patch plan", zap.String("plan", cfg.PlanFile), zap.Error(err))
		return 2
	}

	store, err := newStore(cfg)
	if err != nil {
		logger.Error("Failed to create store client", zap.Error(err))
		return 2
	}

	if checker, ok := store.(accessChecker); ok {
		if err := checker.CheckAccess(ctx); err != nil {
			logger.Error("Store is not accessible", zap.Error(err))
			return 2
		}
	}

	logger.Info("Applying patch plan",
		zap.String("plan", cfg.PlanFile),
		zap.String("backend", cfg.Backend),
		zap.String("branch", cfg.Branch),
		zap.Int("operations", len(ops)),
		zap.Bool("dry_run", cfg.DryRun))

	applier := patch.NewApplier(store, patch.WithLogger(logger), patch.WithDryRun(cfg.DryRun))
	summary := report.Write(stdout, applier.Apply(ctx, ops))
	if !summary.OK() {
		return 1
	}
	return 0
}

// accessChecker is implemented by stores that can verify credentials up front
type accessChecker interface {
	CheckAccess(ctx context.Context) error
}

func newStore(cfg *config.RepairConfig) (patch.Store, error) {
	switch cfg.Backend {
	case config.BackendHTTP:
		store, err := httpstore.New(cfg.StoreURL, httpstore.WithToken(cfg.Token))
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		client, err := githubstore.NewClient(cfg.Token, cfg.StoreURL)
		if err != nil {
			return nil, err
		}
		return githubstore.New(client, cfg.Owner, cfg.Repo, cfg.Branch), nil
	}
}
