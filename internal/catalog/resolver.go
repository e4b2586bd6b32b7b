// Package catalog resolves free-text queries to normalized media records,
// merging the local seed catalog with an external metadata provider.
package catalog

import (
	"context"
	"log"
	"strings"

	"watchquest/api/internal/store"
)

// Provider is the external metadata lookup. May be absent (nil) when no API
// key is configured.
type Provider interface {
	Search(ctx context.Context, query string) ([]store.Media, error)
	SeasonEpisodes(ctx context.Context, mediaID string, season int) ([]store.Episode, error)
}

type Resolver struct {
	local    []store.Media
	provider Provider
}

// NewResolver creates a resolver over the local catalog. provider may be nil.
func NewResolver(local []store.Media, provider Provider) *Resolver {
	return &Resolver{local: local, provider: provider}
}

// Search returns the union of local matches (case-insensitive substring) and
// provider results, deduplicated by id. A provider failure degrades to
// local-only results with degraded=true instead of an error.
func (r *Resolver) Search(ctx context.Context, query string) (results []store.Media, degraded bool) {
	needle := strings.ToLower(strings.TrimSpace(query))
	results = []store.Media{}
	for _, media := range r.local {
		if strings.Contains(strings.ToLower(media.Title), needle) {
			results = append(results, media)
		}
	}

	if r.provider == nil {
		return results, true
	}
	remote, err := r.provider.Search(ctx, query)
	if err != nil {
		log.Printf("catalog: provider search failed, serving local results only: %v", err)
		return results, true
	}

	seen := make(map[string]struct{}, len(results))
	for _, media := range results {
		seen[media.ID] = struct{}{}
	}
	for _, media := range remote {
		if _, dup := seen[media.ID]; dup {
			continue
		}
		seen[media.ID] = struct{}{}
		results = append(results, media)
	}
	return results, false
}

// ResolveSeasonEpisodes lazily fills in the episode list for one season of a
// series, caching the result on the media record. Already-resolved seasons
// return without a provider call; provider failures leave the season
// unresolved (the progress engine estimates it) rather than failing.
func (r *Resolver) ResolveSeasonEpisodes(ctx context.Context, media *store.Media, seasonNumber int) {
	if !media.Type.IsSeries() {
		return
	}
	var season *store.Season
	for i := range media.SeasonsData {
		if media.SeasonsData[i].SeasonNumber == seasonNumber {
			season = &media.SeasonsData[i]
			break
		}
	}
	if season == nil {
		return
	}
	if season.EpisodesCount > 0 && len(season.Episodes) > 0 {
		return
	}
	if r.provider == nil {
		return
	}

	episodes, err := r.provider.SeasonEpisodes(ctx, media.ID, seasonNumber)
	if err != nil {
		log.Printf("catalog: resolve season %d of %s failed: %v", seasonNumber, media.ID, err)
		return
	}
	if len(episodes) == 0 {
		return
	}
	season.Episodes = episodes
	season.EpisodesCount = len(episodes)
}
