// Package cloner sequentially clones selected repositories to local disk.
package cloner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/harvest-sh/gh-harvest/internal/github"
	"github.com/harvest-sh/gh-harvest/internal/selection"
)

// DefaultTimeout bounds a single clone invocation.
const DefaultTimeout = 300 * time.Second

// Runner abstracts the external VCS clone operation.
type Runner interface {
	// Clone clones the repository at url into dest. A nil return means the
	// tool exited successfully; any diagnostic text is carried in the error.
	Clone(ctx context.Context, url, dest string) error
}

// Notifier receives progress and warning messages during a clone batch.
type Notifier interface {
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
}

// Outcome records a failed clone attempt.
type Outcome struct {
	FullName string // owner/name
	Err      error
}

// Options configures a Cloner.
type Options struct {
	Dir      string        // base clone directory (default: current directory)
	Timeout  time.Duration // per-clone timeout (default: DefaultTimeout)
	Runner   Runner        // clone implementation (default: GitRunner)
	Notifier Notifier      // progress sink (default: discard)
}

// Cloner clones repositories one at a time into a base directory.
type Cloner struct {
	dir      string
	timeout  time.Duration
	runner   Runner
	notifier Notifier
}

// New creates a Cloner, creating the base clone directory if needed.
func New(opts Options) (*Cloner, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create clone directory %s: %w", dir, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runner := opts.Runner
	if runner == nil {
		runner = GitRunner{}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = discard{}
	}

	return &Cloner{
		dir:      dir,
		timeout:  timeout,
		runner:   runner,
		notifier: notifier,
	}, nil
}

// CloneAll clones the repositories selected by sel, in their original order,
// one at a time. A repository whose destination directory already exists is
// counted as a success without invoking the clone tool. Failures are recorded
// and do not stop the batch.
//
// Returned names are qualified (owner/name), ordered as processed.
func (c *Cloner) CloneAll(ctx context.Context, repos []github.Repository, sel selection.Selection) (cloned []string, failed []Outcome) {
	if sel.IsEmpty() {
		return nil, nil
	}

	var candidates []github.Repository
	for i, repo := range repos {
		if sel.Includes(i + 1) {
			candidates = append(candidates, repo)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	c.notifier.Infof("Cloning %d repositories into %s...", len(candidates), c.dir)

	for i, repo := range candidates {
		// Stop the batch once the run is interrupted rather than marching
		// the remaining candidates through a dead context.
		if ctx.Err() != nil {
			c.notifier.Warningf("clone batch interrupted, %d repositories not attempted", len(candidates)-i)
			break
		}

		c.notifier.Infof("[%d/%d] %s", i+1, len(candidates), repo.FullName)

		if err := c.cloneOne(ctx, repo); err != nil {
			c.notifier.Warningf("%s: %v", repo.FullName, err)
			failed = append(failed, Outcome{FullName: repo.FullName, Err: err})
			continue
		}
		cloned = append(cloned, repo.FullName)
	}

	return cloned, failed
}

func (c *Cloner) cloneOne(ctx context.Context, repo github.Repository) error {
	dest := filepath.Join(c.dir, repo.Name)

	// Idempotent skip: an existing destination counts as already cloned.
	if _, err := os.Stat(dest); err == nil {
		c.notifier.Infof("%s already exists, skipping", dest)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.runner.Clone(ctx, repo.HTMLURL, dest); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("timed out after %s", c.timeout)
		}
		return err
	}
	return nil
}

// GitRunner clones repositories by invoking the git executable.
type GitRunner struct{}

// Clone runs `git clone url dest`, honoring ctx for cancellation. On a
// non-zero exit the captured stderr text is returned as the error.
func (GitRunner) Clone(ctx context.Context, url, dest string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", url, dest)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("git clone failed: %s", msg)
		}
		return fmt.Errorf("git clone failed: %w", err)
	}
	return nil
}

type discard struct{}

func (discard) Infof(string, ...any)    {}
func (discard) Warningf(string, ...any) {}
