package main

import (
	"fmt"
	"net/http"
	"os"

	"gihan9a/docrepair/internal/config"
	"gihan9a/docrepair/internal/logging"
	"gihan9a/docrepair/internal/server"
	"gihan9a/docrepair/internal/tls"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "docstore",
		Short:         "Versioned document store serving a directory over HTTP",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newInitConfigCmd())
	return root
}

type serveOptions struct {
	configFile string
	rootDir    string
	port       int
	hosts      []string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve documents with version tokens, conditional writes and subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(opts)
			if err != nil {
				return err
			}
			return serve(cfg, opts.hosts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&opts.rootDir, "dir", "d", "", "Directory containing the documents (overrides config)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (overrides config)")
	cmd.Flags().StringSliceVar(&opts.hosts, "cert-host", nil, "Host names for a generated TLS certificate")
	return cmd
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.SaveDefaultConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file written to %s\n", path)
			return nil
		},
	}
}

// loadServeConfig merges the config file with command line overrides
func loadServeConfig(opts *serveOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configFile)
	if err != nil {
		return nil, err
	}
	if opts.rootDir != "" {
		cfg.RootDir = opts.rootDir
	}
	if opts.port != 0 {
		cfg.Port = opts.port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(cfg *config.Config, hosts []string) error {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.TLS.Enabled && cfg.TLS.GenerateCert {
		if err := tls.EnsureCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile, hosts, logger); err != nil {
			return fmt.Errorf("failed to set up TLS certificate: %w", err)
		}
	}

	docServer, err := server.NewDocumentServer(cfg, logger)
	if err != nil {
		return err
	}
	defer docServer.Close()

	if err := docServer.SetupWatchers(); err != nil {
		return fmt.Errorf("failed to set up file watchers: %w", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	scheme := "http"
	if cfg.TLS.Enabled {
		scheme = "https"
	}
	logger.Info("Document store running",
		zap.String("url", fmt.Sprintf("%s://localhost%s", scheme, addr)),
		zap.String("root", cfg.RootDir))

	if cfg.TLS.Enabled {
		return http.ListenAndServeTLS(addr, cfg.TLS.CertFile, cfg.TLS.KeyFile, docServer.SetupRoutes())
	}
	return http.ListenAndServe(addr, docServer.SetupRoutes())
}
