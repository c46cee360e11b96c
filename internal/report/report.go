// Package report renders a crawl session, grouped by type, with the history
// annotation of each node when one is requested.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/alvmarrod/ref-weaver/internal/annotate"
	"github.com/alvmarrod/ref-weaver/internal/memory"
	"github.com/alvmarrod/ref-weaver/internal/objmodel"
	"github.com/alvmarrod/ref-weaver/internal/vcs"
)

// Formats understood by Render
const (
	FormatText = "text"
	FormatTSV  = "tsv"
	FormatJSON = "json"
)

// Cell values for nodes without a usable record
const (
	markerUnfetched = "-"
	markerFailed    = "GitError"
)

// Options configures rendering
type Options struct {
	Format   string
	Model    objmodel.Model // names nodes
	UseGit   bool
	Progress annotate.Progress
}

// Render writes session to w in the requested format
func Render(w io.Writer, s *memory.Session, opts Options) error {
	switch opts.Format {
	case FormatTSV:
		return renderTSV(w, s, opts)
	case FormatJSON:
		return renderJSON(w, s, opts)
	case FormatText, "":
		return renderText(w, s, opts)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

// historyCells returns the per-node history columns: the committer date,
// committer name, subject and commit, or a single marker
func historyCells(a memory.Annotation) []string {
	switch a.State {
	case memory.Succeeded:
		r := a.Record
		return []string{r.Committer.Date, r.Committer.Name, r.Subject, r.Commit}
	case memory.Failed:
		return []string{markerFailed}
	default:
		return []string{markerUnfetched}
	}
}

// cell flattens a value onto one line of one column
func cell(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
}

// renderTSV writes the clipboard layout: a line per type followed by one
// tab-indented row per node
func renderTSV(w io.Writer, s *memory.Session, opts Options) error {
	groups := s.Groups()
	for _, typ := range groups.Types() {
		if _, err := fmt.Fprintln(w, cell(typ)); err != nil {
			return err
		}
		for _, n := range groups.Nodes(typ) {
			row := []string{"", cell(objmodel.NameOf(opts.Model, n.Object))}
			if opts.UseGit {
				for _, c := range historyCells(n.Annotation()) {
					row = append(row, cell(c))
				}
			}
			if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderText writes the human view with "Type (n)" headers
func renderText(w io.Writer, s *memory.Session, opts Options) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	st := s.GetStats()
	fmt.Fprintf(tw, "%d objects in %d types\n", st.Nodes, st.Types)
	if opts.UseGit {
		fmt.Fprintf(tw, "%s (%d annotated, %d failed)\n", opts.Progress, st.Annotated, st.Failed)
	}

	groups := s.Groups()
	for _, typ := range groups.Types() {
		nodes := groups.Nodes(typ)
		fmt.Fprintf(tw, "\n%s (%d)\n", typ, len(nodes))
		for _, n := range nodes {
			fmt.Fprintf(tw, "  %s", cell(objmodel.NameOf(opts.Model, n.Object)))
			if opts.UseGit {
				a := n.Annotation()
				if a.State == memory.Succeeded {
					r := a.Record
					fmt.Fprintf(tw, "\t%s\t%s\t%s\t%s", r.AbbreviatedCommit, r.Committer.Date, cell(r.Committer.Name), cell(r.Subject))
				} else {
					fmt.Fprintf(tw, "\t%s", historyCells(a)[0])
				}
			}
			fmt.Fprintln(tw)
		}
	}
	return tw.Flush()
}

type jsonReport struct {
	Progress string      `json:"progress,omitempty"`
	Objects  int         `json:"objects"`
	Types    []jsonGroup `json:"types"`
}

type jsonGroup struct {
	Type  string     `json:"type"`
	Count int        `json:"count"`
	Nodes []jsonNode `json:"nodes"`
}

type jsonNode struct {
	Name    string      `json:"name"`
	Index   int         `json:"index"`
	History string      `json:"history,omitempty"`
	Record  *vcs.Record `json:"record,omitempty"`
}

func renderJSON(w io.Writer, s *memory.Session, opts Options) error {
	out := jsonReport{Objects: s.Discovered(), Types: []jsonGroup{}}
	if opts.UseGit {
		out.Progress = opts.Progress.String()
	}

	groups := s.Groups()
	for _, typ := range groups.Types() {
		nodes := groups.Nodes(typ)
		g := jsonGroup{Type: typ, Count: len(nodes), Nodes: make([]jsonNode, 0, len(nodes))}
		for _, n := range nodes {
			jn := jsonNode{Name: objmodel.NameOf(opts.Model, n.Object), Index: n.Index}
			if opts.UseGit {
				a := n.Annotation()
				jn.History = a.State.String()
				jn.Record = a.Record
			}
			g.Nodes = append(g.Nodes, jn)
		}
		out.Types = append(out.Types, g)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
