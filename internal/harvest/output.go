package harvest

import (
	"fmt"
	"io"
	"sync"

	"github.com/harvest-sh/gh-harvest/internal/cloner"
	"github.com/harvest-sh/gh-harvest/internal/github"
	"github.com/mgutz/ansi"
)

const maxDescriptionLen = 70

// Output handles all output formatting with optional color support.
type Output struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer

	cyan   func(string) string
	green  func(string) string
	yellow func(string) string
	red    func(string) string
	dim    func(string) string
}

// NewOutput creates a new Output with optional color support.
func NewOutput(stdout, stderr io.Writer, colorize bool) *Output {
	color := func(name string) func(string) string {
		if colorize {
			return ansi.ColorFunc(name)
		}
		return ansi.ColorFunc("")
	}

	return &Output{
		stdout: stdout,
		stderr: stderr,
		cyan:   color("cyan"),
		green:  color("green+b"),
		yellow: color("yellow"),
		red:    color("red+b"),
		dim:    color("black+h"),
	}
}

// Repositories writes the numbered result list: one line per repository with
// its URL, language, and star count, and the truncated description beneath.
func (o *Output) Repositories(result *github.SearchResult) {
	o.mu.Lock()
	defer o.mu.Unlock()

	fmt.Fprintf(o.stderr, "Found %d repositories (out of %d total)\n\n",
		len(result.Repositories), result.TotalCount)

	for i, repo := range result.Repositories {
		line := fmt.Sprintf("%3d. %s", i+1, o.cyan(repo.HTMLURL))
		if repo.Language != "" {
			line += " " + o.yellow("["+repo.Language+"]")
		}
		if repo.Stars > 0 {
			line += fmt.Sprintf(" %d stars", repo.Stars)
		}
		fmt.Fprintln(o.stdout, line)

		if repo.Description != "" {
			desc := repo.Description
			// Truncate by rune so multi-byte descriptions never split
			// mid-sequence.
			if runes := []rune(desc); len(runes) > maxDescriptionLen {
				desc = string(runes[:maxDescriptionLen]) + "..."
			}
			fmt.Fprintf(o.stdout, "     %s\n", o.dim(desc))
		}
	}
}

// Summary writes the clone results: the cloned and failed repositories with
// per-list counts.
func (o *Output) Summary(cloned []string, failed []cloner.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(cloned) > 0 {
		fmt.Fprintf(o.stdout, "%s cloned %d repositories:\n",
			o.green("Successfully"), len(cloned))
		for _, name := range cloned {
			fmt.Fprintf(o.stdout, "  - %s\n", name)
		}
	}

	if len(failed) > 0 {
		fmt.Fprintf(o.stdout, "%s to clone %d repositories:\n",
			o.red("Failed"), len(failed))
		for _, outcome := range failed {
			fmt.Fprintf(o.stdout, "  - %s: %v\n", outcome.FullName, outcome.Err)
		}
	}

	fmt.Fprintf(o.stdout, "Total: %d successful, %d failed\n", len(cloned), len(failed))
}

// Warningf writes a formatted warning message to stderr.
func (o *Output) Warningf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.stderr, o.yellow("Warning: ")+format+"\n", args...)
}

// Infof writes a formatted informational message to stderr.
func (o *Output) Infof(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.stderr, format+"\n", args...)
}

// Promptf writes a prompt to stdout without a trailing newline.
func (o *Output) Promptf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.stdout, format, args...)
}
