package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrFetch is the only failure Fetch reports. The cause is logged, not returned.
var ErrFetch = errors.New("vcs log fetch failed")

// Locator resolves an object to the file path git knows it by
type Locator interface {
	Locate(obj any) (string, error)
}

// LocatorFunc adapts a plain function to Locator
type LocatorFunc func(obj any) (string, error)

// Locate calls f(obj)
func (f LocatorFunc) Locate(obj any) (string, error) {
	return f(obj)
}

// Runner executes an external command and returns its complete standard output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command as a child process. Run collects stdout and waits
// for the process on every path, so no handle outlives the call.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), msg)
	}
	return stdout.Bytes(), nil
}

// GitLog fetches the most recent commit touching an object's file
type GitLog struct {
	Binary   string
	RepoRoot string
	Timeout  time.Duration
	Locator  Locator
	Runner   Runner
}

// NewGitLog creates a fetcher running git against repoRoot
func NewGitLog(repoRoot string, locator Locator) *GitLog {
	return &GitLog{
		Binary:   "git",
		RepoRoot: repoRoot,
		Timeout:  10 * time.Second,
		Locator:  locator,
		Runner:   ExecRunner,
	}
}

// Args returns the git arguments requesting one log entry for path
func (g *GitLog) Args(path string) []string {
	return []string{"-C", g.RepoRoot, "log", "-n", "1", "--date=iso", PrettyFormat, "--", path}
}

// Fetch returns the last commit for obj, or ErrFetch
func (g *GitLog) Fetch(ctx context.Context, obj any) (Record, error) {
	path, err := g.resolve(obj)
	if err != nil {
		logrus.Warnf("Git log skipped for %T: %v", obj, err)
		return Record{}, ErrFetch
	}

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	binary := g.Binary
	if binary == "" {
		binary = "git"
	}
	run := g.Runner
	if run == nil {
		run = ExecRunner
	}

	out, err := run(ctx, binary, g.Args(path)...)
	if err != nil {
		logrus.WithField("path", path).Warnf("Git log failed: %v", err)
		return Record{}, ErrFetch
	}

	rec, err := ParseRecord(out)
	if err != nil {
		logrus.WithField("path", path).Warnf("Git log unusable: %v", err)
		return Record{}, ErrFetch
	}

	logrus.WithField("path", path).Debugf("Git log %s %q", rec.AbbreviatedCommit, rec.Subject)
	return rec, nil
}

// resolve asks the locator for a path and makes it relative to the repo root
func (g *GitLog) resolve(obj any) (string, error) {
	if g.Locator == nil {
		return "", errors.New("no locator configured")
	}
	path, err := g.Locator.Locate(obj)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", errors.New("locator returned an empty path")
	}
	if !filepath.IsAbs(path) || g.RepoRoot == "" {
		return filepath.ToSlash(path), nil
	}

	root, err := filepath.Abs(g.RepoRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve repo root: %w", err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside repository %s", path, root)
	}
	return filepath.ToSlash(rel), nil
}
