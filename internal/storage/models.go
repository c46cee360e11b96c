package storage

import "time"

// Asset is one entry of the GUID index: a file known to the asset database
type Asset struct {
	GUID      string
	Path      string // absolute path of the asset file
	Type      string
	IndexedAt time.Time
}

// Metrics tracks crawl and annotation statistics for export on exit
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Crawls            int       `json:"crawls"`
	NodesDiscovered   int       `json:"nodes_discovered"`
	NodesAnnotated    int       `json:"nodes_annotated"`
	AnnotationsFailed int       `json:"annotations_failed"`
	TotalCrawlTimeMs  int64     `json:"total_crawl_time_ms"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}
