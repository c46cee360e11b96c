package main

import (
	"fmt"
	"time"

	"github.com/alvmarrod/ref-weaver/internal/config"
	"github.com/alvmarrod/ref-weaver/internal/metrics"
	"github.com/alvmarrod/ref-weaver/internal/vcs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// gitRunner replaces the git invocation in tests
var gitRunner vcs.Runner

func crawlCmd(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "crawl <root-asset>",
		Short: "Crawl every object reachable from a root and report it by type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tracker := metrics.NewTracker()

			p, err := newPipeline(cfg, tracker, gitRunner)
			if err != nil {
				return fmt.Errorf("failed to set up %s model: %w", cfg.Model, err)
			}
			defer p.close()

			s, err := p.crawl(args[0])
			if err != nil {
				return err
			}

			stop := p.logProgress(time.Duration(cfg.ProgressIntervalMs) * time.Millisecond)
			err = p.annotate(ctx)
			stop()
			if err != nil {
				logrus.Warnf("History lookup interrupted at %s", p.progress())
			}

			w, err := openOutput(cmd.OutOrStdout(), output)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := p.render(w, s); err != nil {
				return fmt.Errorf("failed to render report: %w", err)
			}

			logrus.Infof("Final stats: %s", tracker.LogProgress())
			if cfg.MetricsPath != "" {
				if err := tracker.WriteToFile(cfg.MetricsPath, terminationReason(ctx)); err != nil {
					logrus.Errorf("Failed to write metrics: %v", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "report file (default stdout)")
	return cmd
}
