package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pageaudit/internal/config"
	"pageaudit/internal/log"
)

type rootOptions struct {
	envFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pageaudit",
		Short: "Audit web pages for SEO, technologies, fonts, images and structured data",
		Long: `pageaudit inspects a web page and reports its SEO metadata, detected
technologies, font usage, image formats, JSON-LD validity, links and
security headers.

Run it once from the terminal with "analyze" or as an HTTP API with "serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "Optional .env file with configuration")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newAnalyzeCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// loadConfig reads configuration and sets up logging. quiet lowers the
// default level to warn for one-shot commands.
func (o *rootOptions) loadConfig(quiet bool) (*config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if quiet {
		level = "warn"
	}
	if o.verbose {
		level = "debug"
	}
	if err := log.Configure(cfg.IsDev, level); err != nil {
		return nil, err
	}

	config.AppConfig = cfg
	return cfg, nil
}
