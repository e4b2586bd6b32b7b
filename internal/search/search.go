// Package search finds public lists and users. Meilisearch is the primary
// backend when configured; a scan over the in-memory document is the fallback.
package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultList ResultType = "list"
	ResultUser ResultType = "user"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet,omitempty"`
	CreatorID string     `json:"creatorId,omitempty"`
	Category  string     `json:"category,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text           string
	FilterType     ResultType // empty = all types
	FilterCategory string
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexList(l ListRecord) error
	IndexUser(u UserRecord) error
	DeleteList(id string) error
	DeleteUser(id string) error
}

// ListRecord is the data we index for a public list.
type ListRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	CreatorID   string `json:"creatorId"`
}

// UserRecord is the data we index for a user profile.
type UserRecord struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
}
