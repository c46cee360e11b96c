package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/alvmarrod/ref-weaver/internal/annotate"
	"github.com/alvmarrod/ref-weaver/internal/config"
	"github.com/alvmarrod/ref-weaver/internal/crawler"
	"github.com/alvmarrod/ref-weaver/internal/htmlsite"
	"github.com/alvmarrod/ref-weaver/internal/memory"
	"github.com/alvmarrod/ref-weaver/internal/metrics"
	"github.com/alvmarrod/ref-weaver/internal/objmodel"
	"github.com/alvmarrod/ref-weaver/internal/report"
	"github.com/alvmarrod/ref-weaver/internal/storage"
	"github.com/alvmarrod/ref-weaver/internal/unity"
	"github.com/alvmarrod/ref-weaver/internal/vcs"
	"github.com/sirupsen/logrus"
)

// pipeline wires an object model, the crawler and the history annotator
type pipeline struct {
	cfg     *config.Config
	tracker *metrics.Tracker
	filter  *crawler.TypeFilter
	store   *storage.Storage // unity only

	model   objmodel.Model
	locator vcs.Locator
	open    func(path string) (any, error)
	crawler *crawler.Crawler

	scheduler *annotate.Scheduler // nil when history is off
}

// newPipeline builds a pipeline for cfg. runner may be nil to use git.
func newPipeline(cfg *config.Config, tracker *metrics.Tracker, runner vcs.Runner) (*pipeline, error) {
	filter, err := crawler.NewTypeFilter(cfg.ExcludeTypes)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		cfg:     cfg,
		tracker: tracker,
		filter:  filter,
	}

	if cfg.Model == config.ModelUnity {
		p.store, err = storage.NewStorage(cfg.IndexDBPath)
		if err != nil {
			return nil, err
		}
	}

	if cfg.UseGit {
		git := vcs.NewGitLog(cfg.RepoRoot, vcs.LocatorFunc(func(obj any) (string, error) {
			return p.locator.Locate(obj)
		}))
		git.Binary = cfg.GitBinary
		git.Timeout = time.Duration(cfg.GitTimeoutMs) * time.Millisecond
		if runner != nil {
			git.Runner = runner
		}

		p.scheduler = annotate.NewScheduler(git)
		p.scheduler.OnStep(p.recordStep)
	}

	if err := p.load(); err != nil {
		p.close()
		return nil, err
	}
	return p, nil
}

// load (re)creates the object model. The unity index is rebuilt from disk.
func (p *pipeline) load() error {
	switch p.cfg.Model {
	case config.ModelUnity:
		if err := p.store.Clear(); err != nil {
			return err
		}
		if _, err := unity.BuildIndex(p.cfg.ProjectRoot, p.store); err != nil {
			return err
		}
		m := unity.NewModel(p.store)
		p.model, p.locator = m, m
		p.open = func(path string) (any, error) {
			a, err := m.Open(path)
			if err != nil {
				return nil, err
			}
			return a, nil
		}

	case config.ModelHTML:
		m, err := htmlsite.NewModel(p.cfg.ProjectRoot)
		if err != nil {
			return err
		}
		p.model, p.locator = m, m
		p.open = func(path string) (any, error) {
			pg, err := m.Open(path)
			if err != nil {
				return nil, err
			}
			return pg, nil
		}

	default:
		return fmt.Errorf("unknown model %q", p.cfg.Model)
	}

	p.crawler = crawler.NewCrawler(p.model, p.filter)
	p.crawler.OnDiscover(func(node *memory.Node) {
		p.tracker.IncrementNodesDiscovered()
	})
	return nil
}

// crawl discovers everything reachable from the object at rootPath and, when
// history is on, starts an annotation pass over it
func (p *pipeline) crawl(rootPath string) (*memory.Session, error) {
	root, err := p.open(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open root: %w", err)
	}

	start := time.Now()
	s := p.crawler.Crawl(root)
	elapsed := time.Since(start)
	p.tracker.RecordCrawl(elapsed)

	st := s.GetStats()
	logrus.Infof("Crawled %s: %d objects in %d types (%v)", objmodel.NameOf(p.model, root), st.Nodes, st.Types, elapsed)

	if p.scheduler != nil {
		p.scheduler.Begin(s)
	}
	return s, nil
}

// annotate runs the current pass to completion
func (p *pipeline) annotate(ctx context.Context) error {
	if p.scheduler == nil {
		return nil
	}
	return annotate.Run(ctx, p.scheduler, nil)
}

func (p *pipeline) recordStep(node *memory.Node, ann memory.Annotation, elapsed time.Duration) {
	p.tracker.RecordFetchTime(elapsed)
	switch ann.State {
	case memory.Succeeded:
		p.tracker.IncrementAnnotated()
	case memory.Failed:
		p.tracker.IncrementFailed()
	}
}

// progress returns the annotation progress, idle when history is off
func (p *pipeline) progress() annotate.Progress {
	if p.scheduler == nil {
		return annotate.Progress{}
	}
	return p.scheduler.Progress()
}

// render writes s in the configured format
func (p *pipeline) render(w io.Writer, s *memory.Session) error {
	return report.Render(w, s, report.Options{
		Format:   p.cfg.Format,
		Model:    p.model,
		UseGit:   p.cfg.UseGit,
		Progress: p.progress(),
	})
}

// logProgress logs the progress line every interval until the returned stop
// func is called
func (p *pipeline) logProgress(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logrus.Infof("%s | %s", p.progress(), p.tracker.LogProgress())
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

func (p *pipeline) close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}
