package search

import "log"

// Service is the facade that tries Meilisearch first and falls back to a
// document scan.
type Service struct {
	meili   *Meili
	docscan *DocScan
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, docscan *DocScan) *Service {
	return &Service{meili: meili, docscan: docscan}
}

// Search tries Meilisearch if healthy, otherwise falls back to scanning
// the document.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to document scan: %v", err)
	}

	results, total, err := s.docscan.Search(q)
	if err != nil {
		log.Printf("search: document scan error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexList indexes a list (fire-and-forget to Meilisearch).
func (s *Service) IndexList(l ListRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexList(l); err != nil {
			log.Printf("search: index list %s: %v", l.ID, err)
		}
	}()
}

// IndexUser indexes a user (fire-and-forget to Meilisearch).
func (s *Service) IndexUser(u UserRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexUser(u); err != nil {
			log.Printf("search: index user %s: %v", u.ID, err)
		}
	}()
}

// DeleteList removes a list from the search index (fire-and-forget).
func (s *Service) DeleteList(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteList(id); err != nil {
			log.Printf("search: delete list %s: %v", id, err)
		}
	}()
}

// DeleteUser removes a user from the search index (fire-and-forget).
func (s *Service) DeleteUser(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteUser(id); err != nil {
			log.Printf("search: delete user %s: %v", id, err)
		}
	}()
}

// ReindexAll pushes the full document into Meilisearch. Called at startup
// and after a data reset.
func (s *Service) ReindexAll(lists []ListRecord, users []UserRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexLists(lists); err != nil {
		log.Printf("search: reindex lists: %v", err)
	}
	if err := s.meili.IndexUsers(users); err != nil {
		log.Printf("search: reindex users: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
