package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pageaudit/internal/model"
	"pageaudit/internal/report"
	"pageaudit/internal/service"
)

type analyzeOptions struct {
	mode     string
	file     string
	format   string
	color    string
	output   string
	noEnrich bool
	timeout  time.Duration
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	o := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [url]",
		Short: "Audit one page and print the report",
		Long: `Audit a page by URL, or a saved HTML document with --file. When both are
given the URL is used to resolve relative references in the document.`,
		Example: `  pageaudit analyze https://example.com
  pageaudit analyze https://example.com --mode fetch --format markdown -o report.md
  curl -s https://example.com | pageaudit analyze --file - --no-enrich`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, root, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.mode, "mode", "auto", "Acquisition mode: auto, live, fetch")
	f.StringVarP(&o.file, "file", "f", "", `Analyze an HTML file instead of fetching ("-" reads stdin)`)
	f.StringVar(&o.format, "format", "text", "Output format: text, json, yaml, markdown")
	f.StringVar(&o.color, "color", "auto", "Color output: auto, always, never")
	f.StringVarP(&o.output, "output", "o", "", "Write the report to a file")
	f.BoolVar(&o.noEnrich, "no-enrich", false, "Skip link, image and security header probes")
	f.DurationVar(&o.timeout, "timeout", 2*time.Minute, "Overall time limit")
	return cmd
}

func (o *analyzeOptions) run(cmd *cobra.Command, root *rootOptions, args []string) error {
	var target string
	if len(args) == 1 {
		target = args[0]
	}
	if target == "" && o.file == "" {
		return errors.New("a URL argument or --file is required")
	}

	format, err := report.ParseFormat(o.format)
	if err != nil {
		return err
	}
	mode, err := service.ParseMode(o.mode)
	if err != nil {
		return err
	}
	colored, err := useColor(o.color)
	if err != nil {
		return err
	}

	cfg, err := root.loadConfig(true)
	if err != nil {
		return err
	}
	analyzer, err := service.New(cfg)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	audit, err := o.audit(ctx, cmd.InOrStdin(), analyzer, target, mode)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.output != "" {
		f, err := os.Create(o.output)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
		colored = false
	}
	return report.Write(out, format, audit, colored)
}

func (o *analyzeOptions) audit(ctx context.Context, stdin io.Reader, analyzer *service.Analyzer, target string, mode service.Mode) (*model.Audit, error) {
	enrich := !o.noEnrich
	if o.file == "" {
		return analyzer.Analyze(ctx, target, mode, enrich)
	}
	markup, err := readInput(stdin, o.file)
	if err != nil {
		return nil, err
	}
	return analyzer.AnalyzeHTML(ctx, target, markup, enrich)
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

// useColor resolves --color. auto follows fatih/color's own terminal and
// NO_COLOR detection.
func useColor(mode string) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		return !color.NoColor, nil
	}
	return false, fmt.Errorf("invalid --color %q (want auto, always or never)", mode)
}
