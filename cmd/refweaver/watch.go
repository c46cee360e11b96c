package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alvmarrod/ref-weaver/internal/annotate"
	"github.com/alvmarrod/ref-weaver/internal/config"
	"github.com/alvmarrod/ref-weaver/internal/memory"
	"github.com/alvmarrod/ref-weaver/internal/metrics"
	"github.com/alvmarrod/ref-weaver/internal/storage"
	"github.com/alvmarrod/ref-weaver/internal/watcher"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func watchCmd(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "watch <root-asset>",
		Short: "Crawl a root again whenever the project changes",
		Long: `Crawl a root, then watch the project tree. Every batch of changes
rebuilds the index and starts a new crawl; a history lookup pass still
running for the previous crawl is abandoned. The report is written each
time a pass completes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tracker := metrics.NewTracker()

			p, err := newPipeline(cfg, tracker, gitRunner)
			if err != nil {
				return fmt.Errorf("failed to set up %s model: %w", cfg.Model, err)
			}
			defer p.close()

			w, err := watcher.New(
				cfg.ProjectRoot,
				watcher.WithDebounceDelay(time.Duration(cfg.WatchDebounceMs)*time.Millisecond),
				watcher.WithSkipDir(skipWatchDir),
				watcher.WithIgnorePaths(ownFiles(cfg, output)...),
			)
			if err != nil {
				return err
			}
			w.Start()
			defer w.Stop()

			logrus.Infof("Watching %s (debounce %dms), Ctrl+C to stop", cfg.ProjectRoot, cfg.WatchDebounceMs)

			stop := p.logProgress(time.Duration(cfg.ProgressIntervalMs) * time.Millisecond)
			defer stop()

			err = runWatch(ctx, p, args[0], w.Changes(), func(s *memory.Session) {
				out, err := openOutput(cmd.OutOrStdout(), output)
				if err != nil {
					logrus.Errorf("Failed to open report output: %v", err)
					return
				}
				defer out.Close()
				if err := p.render(out, s); err != nil {
					logrus.Errorf("Failed to render report: %v", err)
				}
			})

			logrus.Infof("Final stats: %s", tracker.LogProgress())
			if cfg.MetricsPath != "" {
				if err := tracker.WriteToFile(cfg.MetricsPath, "signal"); err != nil {
					logrus.Errorf("Failed to write metrics: %v", err)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "report file, rewritten after each pass (default stdout)")
	return cmd
}

// skipWatchDir leaves out hidden and generated directories
func skipWatchDir(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return true
	}
	switch name {
	case "Library", "Temp", "Logs", "obj", "Build", "Builds", "UserSettings", "node_modules":
		return true
	}
	return false
}

// ownFiles lists the files a watch run writes, so writing them does not
// count as a project change
func ownFiles(cfg *config.Config, output string) []string {
	var files []string
	if output != "" && output != "-" {
		files = append(files, output)
	}
	if cfg.IndexDBPath != storage.MemoryPath {
		files = append(files, cfg.IndexDBPath, cfg.IndexDBPath+"-wal", cfg.IndexDBPath+"-shm", cfg.IndexDBPath+"-journal")
	}
	if cfg.MetricsPath != "" {
		files = append(files, cfg.MetricsPath)
	}
	return files
}

// runWatch drives crawls and history lookups from one goroutine. A lookup
// step runs only when no change batch is waiting, so a change always wins
// over the rest of a stale pass. done is called with each session whose pass
// completed. It returns when ctx is done.
func runWatch(ctx context.Context, p *pipeline, rootPath string, changes <-chan []string, done func(*memory.Session)) error {
	s := rerun(p, rootPath, false)
	if s != nil && p.progress().State != annotate.Running {
		done(s)
	}

	for {
		running := s != nil && p.progress().State == annotate.Running

		if running {
			select {
			case <-ctx.Done():
				return nil
			case batch := <-changes:
				logrus.Infof("%d paths changed, crawling again", len(batch))
				s = rerun(p, rootPath, true)
			default:
				if !p.scheduler.Step(ctx) && ctx.Err() == nil {
					logrus.Infof("%s", p.progress())
					done(s)
				}
				continue
			}
		} else {
			select {
			case <-ctx.Done():
				return nil
			case batch := <-changes:
				logrus.Infof("%d paths changed, crawling again", len(batch))
				s = rerun(p, rootPath, true)
			}
		}

		if s != nil && p.progress().State != annotate.Running {
			done(s)
		}
	}
}

// rerun reloads the model when asked and crawls again. Failures are logged,
// drop any pass in progress and yield a nil session; the next change retries.
func rerun(p *pipeline, rootPath string, reload bool) *memory.Session {
	s, err := crawlAgain(p, rootPath, reload)
	if err != nil {
		logrus.Errorf("Crawl failed: %v", err)
		if p.scheduler != nil {
			p.scheduler.Reset()
		}
		return nil
	}
	return s
}

func crawlAgain(p *pipeline, rootPath string, reload bool) (*memory.Session, error) {
	if reload {
		if err := p.load(); err != nil {
			return nil, fmt.Errorf("failed to reload project: %w", err)
		}
	}
	return p.crawl(rootPath)
}
