package search

import (
	"sort"
	"strings"
)

// Snapshot returns the searchable records for the current document. The
// caller is responsible for taking it under whatever lock guards the
// document.
type Snapshot func() ([]ListRecord, []UserRecord)

// DocScan implements Searcher by substring-matching over a document
// snapshot. It is the fallback when Meilisearch is not configured or down.
type DocScan struct {
	snapshot Snapshot
}

// NewDocScan creates a document-scan searcher.
func NewDocScan(snapshot Snapshot) *DocScan {
	return &DocScan{snapshot: snapshot}
}

// Healthy always returns true. If the document is gone, the whole app is
// gone.
func (d *DocScan) Healthy() bool {
	return true
}

// Search performs a case-insensitive substring match across list names,
// descriptions, user handles and display names. Name/handle matches rank
// above description/bio matches.
func (d *DocScan) Search(q Query) ([]Result, int, error) {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	if text == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	lists, users := d.snapshot()

	type ranked struct {
		result Result
		rank   int
	}
	var hits []ranked

	if q.FilterType == "" || q.FilterType == ResultList {
		for _, l := range lists {
			if q.FilterCategory != "" && l.Category != q.FilterCategory {
				continue
			}
			rank := 0
			if strings.Contains(strings.ToLower(l.Name), text) {
				rank = 2
			} else if strings.Contains(strings.ToLower(l.Description), text) {
				rank = 1
			}
			if rank == 0 {
				continue
			}
			hits = append(hits, ranked{rank: rank, result: Result{
				Type:      ResultList,
				ID:        l.ID,
				Title:     l.Name,
				Snippet:   l.Description,
				Category:  l.Category,
				CreatorID: l.CreatorID,
			}})
		}
	}

	if q.FilterType == "" || q.FilterType == ResultUser {
		for _, u := range users {
			rank := 0
			if strings.Contains(strings.ToLower(u.Handle), text) ||
				strings.Contains(strings.ToLower(u.DisplayName), text) {
				rank = 2
			} else if strings.Contains(strings.ToLower(u.Bio), text) {
				rank = 1
			}
			if rank == 0 {
				continue
			}
			hits = append(hits, ranked{rank: rank, result: Result{
				Type:    ResultUser,
				ID:      u.ID,
				Title:   firstNonBlank(u.DisplayName, u.Handle),
				Snippet: u.Bio,
			}})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].rank > hits[j].rank
	})

	total := len(hits)
	if offset >= total {
		return nil, total, nil
	}
	hits = hits[offset:]
	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = h.result
	}
	return results, total, nil
}
