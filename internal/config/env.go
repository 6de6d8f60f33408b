package config

import (
	"fmt"
	"strconv"
	"strings"

	"gihan9a/docrepair/internal/logging"
)

// Environment variables read by the repair tool
const (
	EnvOwner     = "REPAIR_OWNER"
	EnvRepo      = "REPAIR_REPO"
	EnvBranch    = "REPAIR_BRANCH"
	EnvToken     = "REPAIR_TOKEN"
	EnvPlan      = "REPAIR_PLAN"
	EnvBackend   = "REPAIR_BACKEND"
	EnvStoreURL  = "REPAIR_STORE_URL"
	EnvDryRun    = "REPAIR_DRY_RUN"
	EnvLogLevel  = "REPAIR_LOG_LEVEL"
	EnvLogFormat = "REPAIR_LOG_FORMAT"
)

// LoadRepairConfig reads the repair configuration from the environment.
// getenv is usually os.Getenv.
func LoadRepairConfig(getenv func(string) string) (*RepairConfig, error) {
	config := &RepairConfig{
		Backend:  BackendGitHub,
		Branch:   "main",
		PlanFile: "patches.yml",
		Log:      logging.DefaultConfig,
	}

	if v := getenv(EnvBackend); v != "" {
		config.Backend = strings.ToLower(v)
	}
	config.Owner = getenv(EnvOwner)
	config.Repo = getenv(EnvRepo)
	if v := getenv(EnvBranch); v != "" {
		config.Branch = v
	}
	config.Token = getenv(EnvToken)
	config.StoreURL = getenv(EnvStoreURL)
	if v := getenv(EnvPlan); v != "" {
		config.PlanFile = v
	}

	if v := getenv(EnvDryRun); v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvDryRun, err)
		}
		config.DryRun = dryRun
	}

	if v := getenv(EnvLogLevel); v != "" {
		config.Log.Level = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		config.Log.Format = v
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
