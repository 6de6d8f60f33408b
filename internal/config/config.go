package config

import (
	"fmt"
	"net/url"

	"gihan9a/docrepair/internal/logging"

	"github.com/go-playground/validator/v10"
)

// TLSConfig holds TLS configuration options
type TLSConfig struct {
	Enabled      bool
	CertFile     string `validate:"required_if=Enabled true"`
	KeyFile      string `validate:"required_if=Enabled true"`
	GenerateCert bool
}

// CORSConfig holds CORS configuration options
type CORSConfig struct {
	Enabled          bool
	AllowOrigins     string
	AllowMethods     string
	AllowHeaders     string
	AllowCredentials bool
	MaxAge           int `validate:"gte=0"`
}

// Config holds the document store server configuration
type Config struct {
	RootDir       string `validate:"required"`
	Port          int    `validate:"gt=0,lte=65535"`
	ProxyURL      *url.URL
	InsecureProxy bool
	TLS           TLSConfig
	CORS          CORSConfig
	Log           logging.Config
}

// Store backends the repair tool can talk to
const (
	BackendGitHub = "github"
	BackendHTTP   = "http"
)

// RepairConfig holds the repair tool configuration. It is read once at startup
// and not changed afterwards.
type RepairConfig struct {
	Backend  string `validate:"oneof=github http"`
	Owner    string `validate:"required_if=Backend github"`
	Repo     string `validate:"required_if=Backend github"`
	Branch   string `validate:"required"`
	Token    string `validate:"required_if=Backend github"`
	StoreURL string `validate:"required_if=Backend http"`
	PlanFile string `validate:"required"`
	DryRun   bool
	Log      logging.Config
}

var validate = validator.New()

// Validate checks the server configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Validate checks the repair configuration
func (c *RepairConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.StoreURL != "" {
		u, err := url.Parse(c.StoreURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid configuration: store URL %q is not an absolute URL", c.StoreURL)
		}
	}
	return nil
}
