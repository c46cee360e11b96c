// Package annotate attaches last-commit history to the nodes of a crawl, one
// node per step, so a caller can interleave its own work between fetches.
package annotate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alvmarrod/ref-weaver/internal/memory"
	"github.com/alvmarrod/ref-weaver/internal/vcs"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves the history record of one object
type Fetcher interface {
	Fetch(ctx context.Context, obj any) (vcs.Record, error)
}

// FetcherFunc adapts a plain function to Fetcher
type FetcherFunc func(ctx context.Context, obj any) (vcs.Record, error)

// Fetch calls f(ctx, obj)
func (f FetcherFunc) Fetch(ctx context.Context, obj any) (vcs.Record, error) {
	return f(ctx, obj)
}

// State of an annotation pass
type State int

const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "idle"
	}
}

// Progress is a snapshot of the current pass
type Progress struct {
	State     State
	Processed int
	Total     int
}

// String renders the progress label shown next to the report
func (p Progress) String() string {
	switch p.State {
	case Running:
		return fmt.Sprintf("Git Search %d/%d", p.Processed, p.Total)
	case Finished:
		return fmt.Sprintf("Git Finish %d", p.Processed)
	default:
		return "Git -"
	}
}

// StepFunc observes the outcome of each processed node
type StepFunc func(node *memory.Node, ann memory.Annotation, elapsed time.Duration)

// pass is the frozen work list of one Begin call
type pass struct {
	nodes []*memory.Node
	next  int
}

// Scheduler drives a Fetcher across a session's nodes one Step at a time
type Scheduler struct {
	fetcher Fetcher
	onStep  StepFunc

	mu       sync.Mutex
	current  *pass
	progress Progress
}

// NewScheduler creates an idle scheduler
func NewScheduler(fetcher Fetcher) *Scheduler {
	return &Scheduler{fetcher: fetcher}
}

// OnStep registers a callback invoked after every processed node
func (s *Scheduler) OnStep(fn StepFunc) {
	s.onStep = fn
}

// Begin starts a pass over the nodes the session holds right now. A pass
// still running is abandoned; annotations it already wrote stay in place.
func (s *Scheduler) Begin(session *memory.Session) {
	nodes := session.Nodes()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.progress.State == Running {
		logrus.Debugf("Abandoning annotation pass at %d/%d", s.progress.Processed, s.progress.Total)
	}

	s.current = &pass{nodes: nodes}
	s.progress = Progress{State: Running, Total: len(nodes)}
	if len(nodes) == 0 {
		s.progress.State = Finished
	}
}

// Reset abandons any pass and returns to Idle
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.progress = Progress{}
}

// Progress returns the current progress. Safe to call from any goroutine.
func (s *Scheduler) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Step annotates the next node and reports whether work remains. It does
// nothing and returns false when no pass is running. A cancelled context
// leaves the node untouched and reports that work remains.
func (s *Scheduler) Step(ctx context.Context) bool {
	s.mu.Lock()
	p := s.current
	if p == nil || s.progress.State != Running {
		s.mu.Unlock()
		return false
	}
	node := p.nodes[p.next]
	s.mu.Unlock()

	if ctx.Err() != nil {
		return true
	}

	ann, elapsed := s.annotate(ctx, node)

	s.mu.Lock()
	if s.current != p {
		// Begin ran while we were fetching; the new pass owns the progress
		more := s.progress.State == Running
		s.mu.Unlock()
		return more
	}
	p.next++
	s.progress.Processed = p.next
	if p.next == len(p.nodes) {
		s.progress.State = Finished
	}
	more := s.progress.State == Running
	s.mu.Unlock()

	if s.onStep != nil {
		s.onStep(node, ann, elapsed)
	}
	return more
}

// annotate fetches one node unless an earlier pass over the same session
// already did
func (s *Scheduler) annotate(ctx context.Context, node *memory.Node) (memory.Annotation, time.Duration) {
	if ann := node.Annotation(); ann.State != memory.Unfetched {
		return ann, 0
	}

	start := time.Now()
	rec, err := s.fetcher.Fetch(ctx, node.Object)
	elapsed := time.Since(start)

	ann := memory.Annotation{State: memory.Succeeded, Record: &rec}
	if err != nil {
		ann = memory.Annotation{State: memory.Failed}
	}
	node.Annotate(ann)
	return node.Annotation(), elapsed
}

// Run steps the scheduler until the pass finishes or ctx is done, calling
// yield with the progress between steps
func Run(ctx context.Context, s *Scheduler, yield func(Progress)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		more := s.Step(ctx)
		if yield != nil {
			yield(s.Progress())
		}
		if !more {
			return nil
		}
	}
}
