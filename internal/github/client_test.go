package github

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"gopkg.in/h2non/gock.v1"
)

func TestMain(m *testing.M) {
	// Disable real HTTP requests during tests
	gock.DisableNetworking()
	os.Exit(m.Run())
}

// searchPage builds a JSON search response with count items starting at
// startNum, reporting totalCount.
func searchPage(totalCount, startNum, count int) string {
	items := ""
	for i := 0; i < count; i++ {
		if i > 0 {
			items += ","
		}
		n := startNum + i
		items += fmt.Sprintf(`{"id": %d, "name": "repo%d", "full_name": "octo/repo%d", "html_url": "https://github.com/octo/repo%d", "description": "repo %d", "language": "Go", "stargazers_count": %d}`,
			n, n, n, n, n, n*10)
	}
	return fmt.Sprintf(`{"total_count": %d, "items": [%s]}`, totalCount, items)
}

func newTestClient(t *testing.T, opts ClientOptions) *Client {
	t.Helper()
	if opts.AuthToken == "" {
		opts.AuthToken = "fake-token"
	}
	client, err := NewClient(opts)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestSearchRepositoriesEmptyQuery(t *testing.T) {
	t.Cleanup(gock.Off)

	// No mocks are registered: any network activity would fail the test
	// via gock's disabled networking.
	client := newTestClient(t, ClientOptions{})

	result, err := client.SearchRepositories(context.Background(), "", 100)
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("SearchRepositories(\"\") error = %v, want ErrEmptyQuery", err)
	}
	if result != nil {
		t.Errorf("SearchRepositories(\"\") result = %v, want nil", result)
	}
}

func TestSearchRepositoriesAggregatesPages(t *testing.T) {
	t.Cleanup(gock.Off)

	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("q", "test").
		MatchParam("page", "1").
		Reply(200).
		JSON(searchPage(2, 1, 2))
	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "2").
		Reply(200).
		JSON(searchPage(2, 0, 0))

	client := newTestClient(t, ClientOptions{})

	result, err := client.SearchRepositories(context.Background(), "test", 100)
	if err != nil {
		t.Fatalf("SearchRepositories() unexpected error: %v", err)
	}

	if result.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", result.TotalCount)
	}
	if len(result.Repositories) != 2 {
		t.Fatalf("len(Repositories) = %d, want 2", len(result.Repositories))
	}
	if result.Incomplete {
		t.Error("Incomplete = true, want false")
	}

	first := result.Repositories[0]
	if first.FullName != "octo/repo1" {
		t.Errorf("Repositories[0].FullName = %q, want %q", first.FullName, "octo/repo1")
	}
	if first.HTMLURL != "https://github.com/octo/repo1" {
		t.Errorf("Repositories[0].HTMLURL = %q, want %q", first.HTMLURL, "https://github.com/octo/repo1")
	}
	if first.Stars != 10 {
		t.Errorf("Repositories[0].Stars = %d, want 10", first.Stars)
	}

	if !gock.IsDone() {
		t.Errorf("not all mocks were called: %v", gock.Pending())
	}
}

func TestSearchRepositoriesTruncatesToLimit(t *testing.T) {
	t.Cleanup(gock.Off)

	// One page of 2 items but a limit of 1: the page is truncated rather
	// than discarded, and no second page is requested.
	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "1").
		Reply(200).
		JSON(searchPage(2, 1, 2))

	client := newTestClient(t, ClientOptions{})

	result, err := client.SearchRepositories(context.Background(), "test", 1)
	if err != nil {
		t.Fatalf("SearchRepositories() unexpected error: %v", err)
	}

	if len(result.Repositories) != 1 {
		t.Fatalf("len(Repositories) = %d, want 1", len(result.Repositories))
	}
	if !result.Incomplete {
		t.Error("Incomplete = false, want true")
	}
	if !gock.IsDone() {
		t.Errorf("not all mocks were called: %v", gock.Pending())
	}
}

func TestSearchRepositoriesClampsLimitToMaximum(t *testing.T) {
	t.Cleanup(gock.Off)

	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "1").
		Reply(200).
		JSON(searchPage(10, 1, 2))
	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "2").
		Reply(200).
		JSON(searchPage(10, 3, 2))

	client := newTestClient(t, ClientOptions{PageSize: 2, MaxResults: 3})

	// The requested limit of 10 exceeds the configured maximum of 3.
	result, err := client.SearchRepositories(context.Background(), "test", 10)
	if err != nil {
		t.Fatalf("SearchRepositories() unexpected error: %v", err)
	}

	if len(result.Repositories) != 3 {
		t.Fatalf("len(Repositories) = %d, want 3", len(result.Repositories))
	}
	if !result.Incomplete {
		t.Error("Incomplete = false, want true (3 of 10 fetched)")
	}
	if !gock.IsDone() {
		t.Errorf("not all mocks were called: %v", gock.Pending())
	}
}

func TestSearchRepositoriesTotalCountFromFirstPage(t *testing.T) {
	t.Cleanup(gock.Off)

	// A later page reports a different total; the first page's value wins.
	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "1").
		Reply(200).
		JSON(searchPage(50, 1, 2))
	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "2").
		Reply(200).
		JSON(searchPage(99, 0, 0))

	client := newTestClient(t, ClientOptions{PageSize: 2})

	result, err := client.SearchRepositories(context.Background(), "test", 100)
	if err != nil {
		t.Fatalf("SearchRepositories() unexpected error: %v", err)
	}

	if result.TotalCount != 50 {
		t.Errorf("TotalCount = %d, want 50 (from the first page)", result.TotalCount)
	}
}

func TestSearchRepositoriesPartialOnFailure(t *testing.T) {
	t.Cleanup(gock.Off)

	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "1").
		Reply(200).
		JSON(searchPage(10, 1, 2))
	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "2").
		Reply(500).
		JSON(`{"message": "Internal Server Error"}`)

	client := newTestClient(t, ClientOptions{PageSize: 2})

	result, err := client.SearchRepositories(context.Background(), "test", 100)
	if err == nil {
		t.Fatal("SearchRepositories() expected a pagination error")
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		t.Errorf("error = %v, should not classify as a rate limit", err)
	}

	if result == nil {
		t.Fatal("SearchRepositories() result = nil, want partial result")
	}
	if len(result.Repositories) != 2 {
		t.Errorf("len(Repositories) = %d, want 2 (accumulated before the failure)", len(result.Repositories))
	}
	if !result.Incomplete {
		t.Error("Incomplete = false, want true")
	}
}

func TestSearchRepositoriesRateLimit(t *testing.T) {
	t.Cleanup(gock.Off)

	reset := time.Now().Add(30 * time.Minute).Unix()
	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "1").
		Reply(403).
		SetHeader("X-Ratelimit-Remaining", "0").
		SetHeader("X-Ratelimit-Reset", fmt.Sprintf("%d", reset)).
		JSON(`{"message": "API rate limit exceeded"}`)

	client := newTestClient(t, ClientOptions{})

	result, err := client.SearchRepositories(context.Background(), "test", 100)
	if err == nil {
		t.Fatal("SearchRepositories() expected a rate limit error")
	}

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("error = %v, want *RateLimitError", err)
	}
	if rateErr.Wait <= 0 || rateErr.Wait > 30*time.Minute {
		t.Errorf("Wait = %s, want a duration up to the reset time", rateErr.Wait)
	}

	if result == nil {
		t.Fatal("SearchRepositories() result = nil, want empty partial result")
	}
	if len(result.Repositories) != 0 {
		t.Errorf("len(Repositories) = %d, want 0", len(result.Repositories))
	}
}

func TestSearchRepositoriesForbiddenWithoutRateLimit(t *testing.T) {
	t.Cleanup(gock.Off)

	// A 403 with remaining quota is a generic request failure.
	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "1").
		Reply(403).
		SetHeader("X-Ratelimit-Remaining", "42").
		JSON(`{"message": "Forbidden"}`)

	client := newTestClient(t, ClientOptions{})

	_, err := client.SearchRepositories(context.Background(), "test", 100)
	if err == nil {
		t.Fatal("SearchRepositories() expected an error")
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		t.Errorf("error = %v, should not classify as a rate limit", err)
	}
}

func TestSearchRepositoriesThrottlesBetweenPages(t *testing.T) {
	t.Cleanup(gock.Off)

	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "1").
		Reply(200).
		JSON(searchPage(5, 1, 1))
	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "2").
		Reply(200).
		JSON(searchPage(5, 0, 0))

	const delay = 50 * time.Millisecond
	client := newTestClient(t, ClientOptions{PageSize: 1, RequestDelay: delay})

	start := time.Now()
	result, err := client.SearchRepositories(context.Background(), "test", 100)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("SearchRepositories() unexpected error: %v", err)
	}
	if len(result.Repositories) != 1 {
		t.Fatalf("len(Repositories) = %d, want 1", len(result.Repositories))
	}
	if elapsed < delay {
		t.Errorf("elapsed = %s, want at least %s between the two page fetches", elapsed, delay)
	}
	if !gock.IsDone() {
		t.Errorf("not all mocks were called: %v", gock.Pending())
	}
}

func TestSleepReturnsEarlyOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleep(ctx, time.Hour)
	elapsed := time.Since(start)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("sleep() error = %v, want context.Canceled", err)
	}
	if elapsed > time.Second {
		t.Errorf("sleep() took %s, should return immediately on a canceled context", elapsed)
	}
}

func TestSearchRepositoriesEmptyResultSet(t *testing.T) {
	t.Cleanup(gock.Off)

	gock.New("https://api.github.com").
		Get("/search/repositories").
		MatchParam("page", "1").
		Reply(200).
		JSON(searchPage(0, 0, 0))

	client := newTestClient(t, ClientOptions{})

	result, err := client.SearchRepositories(context.Background(), "nomatches", 100)
	if err != nil {
		t.Fatalf("SearchRepositories() unexpected error: %v", err)
	}

	if result.TotalCount != 0 {
		t.Errorf("TotalCount = %d, want 0", result.TotalCount)
	}
	if len(result.Repositories) != 0 {
		t.Errorf("len(Repositories) = %d, want 0", len(result.Repositories))
	}
	if result.Incomplete {
		t.Error("Incomplete = true, want false")
	}
}
