// Package harvest orchestrates the search, selection, and clone flow.
package harvest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/harvest-sh/gh-harvest/internal/cloner"
	"github.com/harvest-sh/gh-harvest/internal/github"
	"github.com/harvest-sh/gh-harvest/internal/selection"
)

// Options contains all harvest parameters.
type Options struct {
	Query      string   // search query; prompted for interactively when empty
	Selection  *string  // selection expression; nil means prompt interactively
	Excludes   []string // owner/name glob patterns to drop from results
	Limit      int      // result cap (clamped by the client's maximum)
	CloneDir   string   // base clone directory
	ClientOpts github.ClientOptions
	Runner     cloner.Runner // clone implementation override (tests)
	Input      io.Reader     // interactive input source (default: no prompts)
}

// Harvester drives the search-select-clone flow.
type Harvester struct {
	output *Output
	input  *bufio.Reader
}

// New creates a new Harvester.
func New(stdout, stderr io.Writer, colorize bool) *Harvester {
	return &Harvester{
		output: NewOutput(stdout, stderr, colorize),
	}
}

// Run executes a harvest based on the provided options.
func (h *Harvester) Run(ctx context.Context, opts *Options) error {
	if opts.Input != nil {
		h.input = bufio.NewReader(opts.Input)
	}

	client, err := github.NewClient(opts.ClientOpts)
	if err != nil {
		return err
	}

	query := opts.Query
	if query == "" {
		query, err = h.promptQuery(ctx)
		if err != nil || query == "" {
			return err
		}
	}

	h.output.Infof("Searching for repositories matching %q...", query)

	result, err := client.SearchRepositories(ctx, query, opts.Limit)
	if err != nil {
		if result == nil {
			return err
		}
		// Pagination stopped early; the partial result is still usable.
		h.output.Warningf("search truncated: %v", err)
		var rateErr *github.RateLimitError
		if errors.As(err, &rateErr) {
			h.output.Infof("Re-run after the rate limit resets to fetch the remaining results.")
		}
	}

	repos, err := filterExcluded(result.Repositories, opts.Excludes)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		h.output.Infof("No repositories found.")
		return nil
	}
	shown := &github.SearchResult{
		TotalCount:   result.TotalCount,
		Repositories: repos,
		Incomplete:   result.Incomplete,
	}
	h.output.Repositories(shown)

	sel, err := h.resolveSelection(ctx, opts, len(repos))
	if err != nil {
		return err
	}
	if sel.IsEmpty() {
		h.output.Infof("No repositories selected for cloning.")
		return nil
	}

	c, err := cloner.New(cloner.Options{
		Dir:      opts.CloneDir,
		Runner:   opts.Runner,
		Notifier: h.output,
	})
	if err != nil {
		return err
	}

	cloned, failed := c.CloneAll(ctx, repos, sel)
	h.output.Summary(cloned, failed)
	return nil
}

func (h *Harvester) resolveSelection(ctx context.Context, opts *Options, count int) (selection.Selection, error) {
	var input string
	if opts.Selection != nil {
		input = *opts.Selection
	} else {
		var err error
		input, err = h.promptSelection(ctx)
		if err != nil {
			return selection.Selection{}, err
		}
	}

	sel, warnings := selection.ParseSelection(input, count)
	for _, w := range warnings {
		h.output.Warningf("%s", w)
	}
	return sel, nil
}

func (h *Harvester) promptQuery(ctx context.Context) (string, error) {
	query, err := h.readLine(ctx, "Enter your search query (or 'quit' to exit): ")
	if err != nil {
		return "", err
	}
	if strings.EqualFold(query, "quit") {
		return "", nil
	}
	return query, nil
}

func (h *Harvester) promptSelection(ctx context.Context) (string, error) {
	h.output.Infof("\nEnter the repositories to clone:")
	h.output.Infof("  - Single numbers: 1, 5, 10")
	h.output.Infof("  - Ranges: 1-5, 10-15")
	h.output.Infof("  - Combined: 1-5,10,15-20")
	h.output.Infof("  - Press Enter to clone all")
	h.output.Infof("  - Type 'none' to exit without cloning")

	return h.readLine(ctx, "\nYour selection: ")
}

type readResult struct {
	line string
	err  error
}

// readLine reads a line of interactive input, returning early when ctx is
// canceled (e.g. by an interrupt) so a run never stays blocked at a prompt.
// The abandoned read goroutine exits on the next write or close of the input.
func (h *Harvester) readLine(ctx context.Context, prompt string) (string, error) {
	if h.input == nil {
		return "", fmt.Errorf("no interactive input available")
	}
	h.output.Promptf("%s", prompt)

	ch := make(chan readResult, 1)
	go func() {
		line, err := h.input.ReadString('\n')
		if err != nil && err != io.EOF {
			ch <- readResult{err: err}
			return
		}
		ch <- readResult{line: strings.TrimSpace(line)}
	}()

	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// filterExcluded drops repositories whose qualified name matches any of the
// exclude glob patterns, preserving result order.
func filterExcluded(repos []github.Repository, excludes []string) ([]github.Repository, error) {
	if len(excludes) == 0 {
		return repos, nil
	}

	filtered := make([]github.Repository, 0, len(repos))
	for _, repo := range repos {
		excluded := false
		for _, pattern := range excludes {
			matched, err := doublestar.Match(pattern, repo.FullName)
			if err != nil {
				return nil, fmt.Errorf("exclude pattern %q failed to match %q: %w",
					pattern, repo.FullName, err)
			}
			if matched {
				excluded = true
				break
			}
		}
		if !excluded {
			filtered = append(filtered, repo)
		}
	}

	return filtered, nil
}
