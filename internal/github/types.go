package github

// Repository represents a GitHub repository returned by the search API.
// Instances are built once from a deserialized search item and never mutated.
type Repository struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"` // owner/name
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Stars       int    `json:"stargazers_count"`
}

// SearchResult is the aggregated outcome of a paginated repository search.
type SearchResult struct {
	// TotalCount is the total reported by GitHub for the query. It can be
	// far larger than the number of repositories actually fetched.
	TotalCount int

	// Repositories holds the fetched records in API relevance order.
	Repositories []Repository

	// Incomplete is true when fewer repositories were fetched than the
	// lesser of TotalCount and the requested limit.
	Incomplete bool
}

// searchResponse mirrors the GitHub search API response body.
type searchResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []Repository `json:"items"`
}
