package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cli/go-gh/v2/pkg/auth"
	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/harvest-sh/gh-harvest/internal/github"
	"github.com/harvest-sh/gh-harvest/internal/harvest"
	"github.com/spf13/cobra"
)

// colorMode represents when to use colored output.
type colorMode string

const (
	colorAuto   colorMode = "auto"
	colorAlways colorMode = "always"
	colorNever  colorMode = "never"
)

// String is used both by fmt.Print and by Cobra in help text.
func (c *colorMode) String() string {
	return string(*c)
}

// Set must have pointer receiver to validate and set the value.
func (c *colorMode) Set(v string) error {
	switch v {
	case "auto", "always", "never":
		*c = colorMode(v)
		return nil
	default:
		return fmt.Errorf("must be one of \"auto\", \"always\", or \"never\"")
	}
}

// Type is only used in help text.
func (c *colorMode) Type() string {
	return "colorMode"
}

var (
	version = "dev"

	// Flags.
	color     = colorAuto
	limit     int
	cloneDir  string
	selectExp string
	excludes  []string
	delay     time.Duration
	pageSize  int
	host      string
)

var rootCmd = &cobra.Command{
	Use:   "gh-harvest [<query>...]",
	Short: "Search GitHub repositories and batch-clone a selection",
	Long: `gh-harvest searches GitHub for repositories matching a query, lists the
results as a numbered table, and clones the repositories you select.

<query> uses GitHub's repository search syntax. Multiple arguments are
joined with spaces. When no query is given, you are prompted for one.

The selection accepts single numbers (1, 5, 10), ranges (1-5), or a
combination (1-5,10,15-20). A blank selection clones every result and the
word "none" clones nothing. Repositories whose destination directory
already exists are skipped and counted as successes.

Examples:
  gh harvest "language:go stars:>1000"
  gh harvest -d ./mirrors -L 50 topic:kubernetes
  gh harvest -s 1-10 "org:cli language:go"
  gh harvest -E "*/archive-*" -E "legacy/**" awesome lists
  gh harvest --delay 2s --page-size 50 machine learning`,
	Version: version,
	Args:    cobra.ArbitraryArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if limit < 1 {
			return fmt.Errorf("--limit must be at least 1, got %d", limit)
		}
		if pageSize < 1 || pageSize > 100 {
			return fmt.Errorf("--page-size must be between 1 and 100, got %d", pageSize)
		}
		if delay < 0 {
			return fmt.Errorf("--delay cannot be negative")
		}
		for _, pattern := range excludes {
			if !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("invalid exclude pattern %q", pattern)
			}
		}
		return nil
	},
	RunE: run,
}

func init() {
	rootCmd.Flags().IntVarP(&limit, "limit", "L", github.DefaultMaxResults,
		"maximum number of search results to fetch")
	rootCmd.Flags().StringVarP(&cloneDir, "clone-dir", "d", ".",
		"base directory to clone repositories into")
	rootCmd.Flags().StringVarP(&selectExp, "select", "s", "",
		"selection expression (e.g. \"1-5,8\"; \"none\" selects nothing; blank selects all)")
	rootCmd.Flags().StringSliceVarP(&excludes, "exclude", "E", []string{},
		"exclude owner/name glob patterns (can be specified multiple times)")
	rootCmd.Flags().DurationVar(&delay, "delay", github.DefaultRequestDelay,
		"pause between search page requests")
	rootCmd.Flags().IntVar(&pageSize, "page-size", github.DefaultPageSize,
		"search results per page request")
	rootCmd.Flags().StringVar(&host, "host", "",
		"GitHub host (default: resolved from the environment)")
	rootCmd.Flags().Var(&color, "color",
		"colorize output: auto, always, never")
}

func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var colorize bool
	switch color {
	case colorAlways:
		colorize = true
	case colorNever:
		colorize = false
	case colorAuto:
		terminal := term.FromEnv()
		colorize = terminal.IsColorEnabled()
	}

	apiHost := host
	if apiHost == "" {
		apiHost, _ = auth.DefaultHost()
	}
	token, _ := auth.TokenForHost(apiHost)
	if token == "" {
		return fmt.Errorf("no GitHub token found for %s: set GITHUB_TOKEN or run `gh auth login`", apiHost)
	}

	// --select distinguishes "not given" (prompt) from an explicit value,
	// including the empty string (clone all).
	var selected *string
	if cmd.Flags().Changed("select") {
		selected = &selectExp
	}

	opts := &harvest.Options{
		Query:     strings.Join(args, " "),
		Selection: selected,
		Excludes:  excludes,
		Limit:     limit,
		CloneDir:  cloneDir,
		ClientOpts: github.ClientOptions{
			AuthToken:    token,
			Host:         host,
			PageSize:     pageSize,
			RequestDelay: delay,
		},
		Input: cmd.InOrStdin(),
	}

	h := harvest.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), colorize)
	return h.Run(ctx, opts)
}
