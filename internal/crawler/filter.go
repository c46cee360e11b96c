package crawler

import (
	"fmt"
	"regexp"
)

// TypeFilter excludes objects whose type tag matches one of its patterns
type TypeFilter struct {
	patterns []*regexp.Regexp
}

// NewTypeFilter compiles the exclusion patterns. No patterns means nothing is excluded.
func NewTypeFilter(patterns []string) (*TypeFilter, error) {
	f := &TypeFilter{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid type pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Excluded reports whether typ matches any pattern. A nil filter excludes nothing.
func (f *TypeFilter) Excluded(typ string) bool {
	if f == nil {
		return false
	}
	for _, pattern := range f.patterns {
		if pattern.MatchString(typ) {
			return true
		}
	}
	return false
}
