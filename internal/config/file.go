package config

import (
	"fmt"
	"net/url"
	"os"

	"gihan9a/docrepair/internal/logging"

	"gopkg.in/yaml.v3"
)

// FileConfig represents the structure of the server configuration file
type FileConfig struct {
	Server struct {
		Port    int    `yaml:"port"`
		RootDir string `yaml:"root_dir"`
	} `yaml:"server"`

	Proxy struct {
		URL            string `yaml:"url"`
		InsecureVerify bool   `yaml:"insecure_verify"`
	} `yaml:"proxy"`

	TLS struct {
		Enabled      bool   `yaml:"enabled"`
		CertFile     string `yaml:"cert_file"`
		KeyFile      string `yaml:"key_file"`
		GenerateCert bool   `yaml:"generate_cert"`
	} `yaml:"tls"`

	CORS struct {
		Enabled          bool   `yaml:"enabled"`
		AllowOrigins     string `yaml:"allow_origins"`
		AllowMethods     string `yaml:"allow_methods"`
		AllowHeaders     string `yaml:"allow_headers"`
		AllowCredentials bool   `yaml:"allow_credentials"`
		MaxAge           int    `yaml:"max_age"`
	} `yaml:"cors"`

	Log logging.Config `yaml:"log"`
}

// DefaultConfig returns the server configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		RootDir: ".",
		Port:    3000,
		TLS: TLSConfig{
			CertFile: "cert/cert.pem",
			KeyFile:  "cert/key.pem",
		},
		CORS: CORSConfig{
			AllowOrigins: "*",
			AllowMethods: "GET, PUT, PATCH, DELETE, OPTIONS",
			AllowHeaders: "Content-Type, Authorization, Subscribe, Version, Parents, X-Commit-Message",
			MaxAge:       86400,
		},
		Log: logging.DefaultConfig,
	}
}

// LoadConfig loads the server configuration from a YAML file over the defaults.
// An empty path returns the defaults.
func LoadConfig(filePath string) (*Config, error) {
	config := DefaultConfig()

	// Without a file the defaults apply as they are
	if filePath == "" {
		return config, nil
	}

	// Read config file
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	var fileConfig FileConfig
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Values set in the file override the defaults
	if fileConfig.Server.Port != 0 {
		config.Port = fileConfig.Server.Port
	}
	if fileConfig.Server.RootDir != "" {
		config.RootDir = fileConfig.Server.RootDir
	}

	// Proxy settings
	if fileConfig.Proxy.URL != "" {
		proxyURL, err := url.Parse(fileConfig.Proxy.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		config.ProxyURL = proxyURL
		config.InsecureProxy = fileConfig.Proxy.InsecureVerify
	}

	// TLS settings
	config.TLS.Enabled = fileConfig.TLS.Enabled
	if fileConfig.TLS.CertFile != "" {
		config.TLS.CertFile = fileConfig.TLS.CertFile
	}
	if fileConfig.TLS.KeyFile != "" {
		config.TLS.KeyFile = fileConfig.TLS.KeyFile
	}
	config.TLS.GenerateCert = fileConfig.TLS.GenerateCert

	// CORS settings
	config.CORS.Enabled = fileConfig.CORS.Enabled
	if fileConfig.CORS.AllowOrigins != "" {
		config.CORS.AllowOrigins = fileConfig.CORS.AllowOrigins
	}
	if fileConfig.CORS.AllowMethods != "" {
		config.CORS.AllowMethods = fileConfig.CORS.AllowMethods
	}
	if fileConfig.CORS.AllowHeaders != "" {
		config.CORS.AllowHeaders = fileConfig.CORS.AllowHeaders
	}
	config.CORS.AllowCredentials = fileConfig.CORS.AllowCredentials
	if fileConfig.CORS.MaxAge != 0 {
		config.CORS.MaxAge = fileConfig.CORS.MaxAge
	}

	// Logging
	if fileConfig.Log.Level != "" {
		config.Log.Level = fileConfig.Log.Level
	}
	if fileConfig.Log.Format != "" {
		config.Log.Format = fileConfig.Log.Format
	}

	return config, nil
}

// SaveDefaultConfig writes a commented default configuration file
func SaveDefaultConfig(filePath string) error {
	defaults := DefaultConfig()

	// Copy the defaults into the file layout
	var fileConfig FileConfig
	fileConfig.Server.Port = defaults.Port
	fileConfig.Server.RootDir = defaults.RootDir
	fileConfig.TLS.CertFile = defaults.TLS.CertFile
	fileConfig.TLS.KeyFile = defaults.TLS.KeyFile
	fileConfig.CORS.AllowOrigins = defaults.CORS.AllowOrigins
	fileConfig.CORS.AllowMethods = defaults.CORS.AllowMethods
	fileConfig.CORS.AllowHeaders = defaults.CORS.AllowHeaders
	fileConfig.CORS.MaxAge = defaults.CORS.MaxAge
	fileConfig.Log = defaults.Log

	// Marshal to YAML
	data, err := yaml.Marshal(fileConfig)
	if err != nil {
		return fmt.Errorf("error creating default config: %w", err)
	}

	// Add a short header
	yamlWithComments := "# Document store server configuration\n" +
		"# Documents are served from root_dir under /documents/<path>\n\n" +
		string(data)

	// Write to file
	if err := os.WriteFile(filePath, []byte(yamlWithComments), 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
