package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alvmarrod/ref-weaver/internal/config"
	"github.com/alvmarrod/ref-weaver/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// options holds the command line overrides of the config file
type options struct {
	configPath   string
	logLevel     string
	model        string
	projectRoot  string
	repoRoot     string
	useGit       bool
	format       string
	excludeTypes []string
	indexDBPath  string
	metricsPath  string
	gitTimeoutMs int
}

func main() {
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:          "refweaver",
		Short:        "Map everything an asset references, with the last commit behind each",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			*cfg = *loaded
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default refweaver.json if present)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVarP(&opts.model, "model", "m", "", "object model: unity or html")
	flags.StringVarP(&opts.projectRoot, "project", "p", "", "project root to index and watch")
	flags.StringVar(&opts.repoRoot, "repo", "", "git repository root (default project root)")
	flags.BoolVar(&opts.useGit, "git", true, "annotate every object with its last commit")
	flags.StringVarP(&opts.format, "format", "f", "", "report format: text, tsv or json")
	flags.StringSliceVarP(&opts.excludeTypes, "exclude", "x", nil, "type patterns to leave out of the crawl")
	flags.StringVar(&opts.indexDBPath, "index-db", "", "GUID index database (default in memory)")
	flags.StringVar(&opts.metricsPath, "metrics", "", "write run metrics as JSON to this file on exit")
	flags.IntVar(&opts.gitTimeoutMs, "git-timeout", 0, "timeout of one git lookup in milliseconds")

	rootCmd.AddCommand(crawlCmd(cfg))
	rootCmd.AddCommand(watchCmd(cfg))
	rootCmd.AddCommand(indexCmd(cfg))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// loadConfig reads the config file, applies flags set on the command line
// and validates the result
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("model") {
		cfg.Model = opts.model
	}
	if flags.Changed("project") {
		if cfg.RepoRoot == cfg.ProjectRoot {
			// repo root was defaulted from the project root; keep following it
			cfg.RepoRoot = opts.projectRoot
		}
		cfg.ProjectRoot = opts.projectRoot
	}
	if flags.Changed("repo") {
		cfg.RepoRoot = opts.repoRoot
	}
	if flags.Changed("git") {
		cfg.UseGit = opts.useGit
	}
	if flags.Changed("format") {
		cfg.Format = opts.format
	}
	if flags.Changed("exclude") {
		cfg.ExcludeTypes = opts.excludeTypes
	}
	if flags.Changed("index-db") {
		cfg.IndexDBPath = opts.indexDBPath
	}
	if flags.Changed("metrics") {
		cfg.MetricsPath = opts.metricsPath
	}
	if flags.Changed("git-timeout") {
		cfg.GitTimeoutMs = opts.gitTimeoutMs
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logrus.SetLevel(level)
	logrus.Debugf("Configuration: model=%s, project=%s, repo=%s, git=%v", cfg.Model, cfg.ProjectRoot, cfg.RepoRoot, cfg.UseGit)

	return cfg, nil
}

// openOutput returns stdout for "" or "-", else a created file
func openOutput(stdout io.Writer, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// terminationReason names why a run ended for the metrics file
func terminationReason(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.Canceled) {
		return "signal"
	}
	return "completed"
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "refweaver v%s\n", version.Version)
		},
	}
}
