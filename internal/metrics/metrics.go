package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/ref-weaver/internal/storage"
)

// Tracker accumulates crawl and annotation metrics across passes
type Tracker struct {
	mu         sync.Mutex
	data       storage.Metrics
	fetchCount int
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
		},
	}
}

// RecordCrawl records one finished crawl
func (t *Tracker) RecordCrawl(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Crawls++
	t.data.TotalCrawlTimeMs += duration.Milliseconds()
}

// IncrementNodesDiscovered increments the discovered nodes counter
func (t *Tracker) IncrementNodesDiscovered() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.NodesDiscovered++
}

// IncrementAnnotated increments the successful annotation counter
func (t *Tracker) IncrementAnnotated() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.NodesAnnotated++
}

// IncrementFailed increments the failed annotation counter
func (t *Tracker) IncrementFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.AnnotationsFailed++
}

// RecordFetchTime records a history lookup duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.TotalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

func (t *Tracker) snapshot() storage.Metrics {
	s := t.data
	if t.fetchCount > 0 {
		s.AvgFetchTimeMs = s.TotalFetchTimeMs / int64(t.fetchCount)
	}
	return s
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	final := t.snapshot()
	t.mu.Unlock()

	jsonData, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for periodic log lines
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Crawls: %d | Nodes: %d discovered | Git: %d annotated, %d failed",
		t.data.Crawls,
		t.data.NodesDiscovered,
		t.data.NodesAnnotated,
		t.data.AnnotationsFailed,
	)
}
