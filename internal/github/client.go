// Package github provides GitHub API client functionality for gh-harvest.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
)

const (
	// DefaultPageSize is the number of results requested per search page.
	DefaultPageSize = 100
	// DefaultMaxResults is the hard ceiling on aggregated search results.
	DefaultMaxResults = 1000
	// DefaultRequestDelay is the fixed pause between successive page fetches.
	DefaultRequestDelay = time.Second

	requestTimeout = 30 * time.Second
)

// ErrEmptyQuery is returned by SearchRepositories for an empty query string.
var ErrEmptyQuery = errors.New("search query cannot be empty")

// RateLimitError indicates that GitHub reported an exhausted rate-limit
// quota. Wait is the duration until the quota resets.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, try again in %s", e.Wait.Round(time.Second))
}

// ClientOptions configures the GitHub API client.
type ClientOptions struct {
	AuthToken    string
	Host         string        // empty means the go-gh default host
	PageSize     int           // results per page (max 100)
	MaxResults   int           // hard ceiling on aggregated results
	RequestDelay time.Duration // fixed pause between page fetches
}

// Client wraps the go-gh REST client.
type Client struct {
	rest         *api.RESTClient
	pageSize     int
	maxResults   int
	requestDelay time.Duration
}

// NewClient creates a new GitHub API client with the given options.
// Zero-valued page size and maximum fall back to the package defaults;
// a zero RequestDelay disables the inter-page throttle.
func NewClient(opts ClientOptions) (*Client, error) {
	rest, err := api.NewRESTClient(api.ClientOptions{
		AuthToken: opts.AuthToken,
		Host:      opts.Host,
		Timeout:   requestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	delay := opts.RequestDelay
	if delay < 0 {
		delay = 0
	}

	return &Client{
		rest:         rest,
		pageSize:     pageSize,
		maxResults:   maxResults,
		requestDelay: delay,
	}, nil
}

// SearchRepositories runs a paginated repository search and aggregates the
// results, fetching pages in order until limit records have accumulated, the
// remote result set is exhausted, or a request fails.
//
// A request failure partway through does not discard what was already
// fetched: the accumulated records come back as a valid partial result
// (Incomplete set) alongside the error that stopped pagination. The result is
// nil only for an empty query. Rate-limit exhaustion is reported as a
// *RateLimitError so callers can distinguish it from a transport failure.
func (c *Client) SearchRepositories(ctx context.Context, query string, limit int) (*SearchResult, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if limit <= 0 || limit > c.maxResults {
		limit = c.maxResults
	}

	var (
		repos      []Repository
		totalCount = -1 // taken from the first successful response only
		stopErr    error
	)

	for page := 1; len(repos) < limit; page++ {
		endpoint := fmt.Sprintf("search/repositories?q=%s&per_page=%d&page=%d",
			url.QueryEscape(query), c.pageSize, page)

		var resp searchResponse
		if err := c.rest.DoWithContext(ctx, "GET", endpoint, nil, &resp); err != nil {
			stopErr = classifyRequestError(err, page)
			break
		}

		if totalCount < 0 {
			totalCount = resp.TotalCount
		}
		if len(resp.Items) == 0 {
			break
		}

		items := resp.Items
		if remaining := limit - len(repos); len(items) > remaining {
			items = items[:remaining]
		}
		repos = append(repos, items...)

		if len(repos) >= limit {
			break
		}

		// Fixed client-side throttle between page fetches, independent of
		// server response timing.
		if err := sleep(ctx, c.requestDelay); err != nil {
			stopErr = err
			break
		}
	}

	if totalCount < 0 {
		totalCount = 0
	}

	result := &SearchResult{
		TotalCount:   totalCount,
		Repositories: repos,
		Incomplete:   len(repos) < min(totalCount, limit),
	}
	return result, stopErr
}

// classifyRequestError distinguishes rate-limit exhaustion from a generic
// request failure. GitHub signals the former with a 403 whose headers carry a
// zero remaining quota and a reset epoch.
func classifyRequestError(err error, page int) error {
	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == 403 {
		if httpErr.Headers.Get("X-Ratelimit-Remaining") == "0" {
			reset, perr := strconv.ParseInt(httpErr.Headers.Get("X-Ratelimit-Reset"), 10, 64)
			if perr == nil {
				wait := time.Until(time.Unix(reset, 0))
				if wait < 0 {
					wait = 0
				}
				return &RateLimitError{Wait: wait}
			}
		}
	}
	return fmt.Errorf("failed to fetch page %d: %w", page, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
