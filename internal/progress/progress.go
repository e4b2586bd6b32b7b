// Package progress implements the watch-state machine: minute tracking for
// movies, episode-marker tracking for series, and the derived completion
// percentages. All transitions funnel through these setters so that status
// and progress can never disagree.
package progress

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"watchquest/api/internal/store"
)

const (
	// DefaultMovieMinutes is assumed when a duration string cannot be parsed.
	DefaultMovieMinutes = 120
	// FallbackEpisodes is assumed for a season whose episode count has not
	// been resolved against the catalog yet.
	FallbackEpisodes = 10
)

// MovieDuration parses the leading minute count from a duration string such
// as "132 min". Unparseable strings ("?? min", "N/A") fall back to a default.
func MovieDuration(m store.Media) int {
	fields := strings.Fields(m.Duration)
	if len(fields) > 0 {
		if minutes, err := strconv.Atoi(fields[0]); err == nil && minutes > 0 {
			return minutes
		}
	}
	return DefaultMovieMinutes
}

// EstimatedEpisodes is the best-known total episode count for a series:
// resolved counts where available, the fallback for unresolved seasons.
func EstimatedEpisodes(m store.Media) int {
	if len(m.SeasonsData) == 0 {
		seasons := m.TotalSeasons
		if seasons < 1 {
			seasons = 1
		}
		return seasons * FallbackEpisodes
	}
	total := 0
	for _, season := range m.SeasonsData {
		count := season.EpisodesCount
		if count == 0 {
			count = FallbackEpisodes
		}
		total += count
	}
	if total < 1 {
		total = 1
	}
	return total
}

// Marker formats the watched-history token for one episode.
func Marker(season, episode int) string {
	return fmt.Sprintf("S%dE%d", season, episode)
}

// ParseMarker decodes a watched-history token.
func ParseMarker(marker string) (season, episode int, ok bool) {
	n, err := fmt.Sscanf(marker, "S%dE%d", &season, &episode)
	return season, episode, err == nil && n == 2
}

// SetStatus applies a direct status set. Any transition is allowed; Watched
// and Unwatched rewrite the underlying progress so derived state stays
// consistent, Watching leaves existing progress alone.
func SetStatus(m store.Media, state *store.TrackState, status store.WatchStatus) {
	state.Status = status
	switch status {
	case store.StatusWatched:
		if !m.Type.IsSeries() {
			state.ProgressMinutes = MovieDuration(m)
			return
		}
		history := make([]string, 0, EstimatedEpisodes(m))
		lastCount := FallbackEpisodes
		lastSeason := 1
		for _, season := range m.SeasonsData {
			count := season.EpisodesCount
			if count == 0 {
				count = FallbackEpisodes
			}
			for e := 1; e <= count; e++ {
				history = append(history, Marker(season.SeasonNumber, e))
			}
			lastSeason = season.SeasonNumber
			lastCount = count
		}
		if len(m.SeasonsData) == 0 {
			seasons := m.TotalSeasons
			if seasons < 1 {
				seasons = 1
			}
			for s := 1; s <= seasons; s++ {
				for e := 1; e <= FallbackEpisodes; e++ {
					history = append(history, Marker(s, e))
				}
			}
			lastSeason = seasons
		}
		state.WatchedHistory = history
		state.CurrentSeason = lastSeason
		state.CurrentEpisode = lastCount
	case store.StatusUnwatched:
		if !m.Type.IsSeries() {
			state.ProgressMinutes = 0
			return
		}
		state.CurrentSeason = 1
		state.CurrentEpisode = 0
		state.WatchedHistory = []string{}
	}
}

// SetMinutes records movie progress. Minutes clamp to [0, duration] and the
// status is a pure function of the clamped value: full duration means
// Watched, anything above zero means Watching.
func SetMinutes(m store.Media, state *store.TrackState, minutes int) {
	duration := MovieDuration(m)
	if minutes < 0 {
		minutes = 0
	}
	if minutes > duration {
		minutes = duration
	}
	state.ProgressMinutes = minutes
	switch {
	case minutes == duration:
		state.Status = store.StatusWatched
	case minutes > 0:
		state.Status = store.StatusWatching
	default:
		state.Status = store.StatusUnwatched
	}
}

// ToggleEpisode flips one episode marker in the watched history (supporting
// un-checking a past episode), moves the cursor to it, and recomputes status
// from the history size.
func ToggleEpisode(m store.Media, state *store.TrackState, season, episode int) {
	state.CurrentSeason = season
	state.CurrentEpisode = episode

	marker := Marker(season, episode)
	removed := false
	history := state.WatchedHistory[:0]
	for _, existing := range state.WatchedHistory {
		if existing == marker {
			removed = true
			continue
		}
		history = append(history, existing)
	}
	if !removed {
		history = append(history, marker)
	}
	state.WatchedHistory = history
	refreshSeriesStatus(m, state)
}

// MarkThroughEpisode marks episodes 1..episode of a season as watched in one
// step, dropping any markers beyond it in that season. Markers for other
// seasons are untouched.
func MarkThroughEpisode(m store.Media, state *store.TrackState, season, episode int) {
	state.CurrentSeason = season
	state.CurrentEpisode = episode

	history := state.WatchedHistory[:0]
	for _, existing := range state.WatchedHistory {
		if s, e, ok := ParseMarker(existing); ok && s == season && e > episode {
			continue
		}
		history = append(history, existing)
	}
	for e := 1; e <= episode; e++ {
		marker := Marker(season, e)
		if !contains(history, marker) {
			history = append(history, marker)
		}
	}
	state.WatchedHistory = history
	refreshSeriesStatus(m, state)
}

// SetSeasonCursor moves the season cursor. The current episode resumes at
// the highest watched episode recorded for that season, not at zero.
func SetSeasonCursor(state *store.TrackState, season int) {
	state.CurrentSeason = season
	state.CurrentEpisode = HighestWatched(state, season)
}

// HighestWatched returns the maximum episode number in the watched history
// for the given season, or 0.
func HighestWatched(state *store.TrackState, season int) int {
	highest := 0
	for _, marker := range state.WatchedHistory {
		if s, e, ok := ParseMarker(marker); ok && s == season && e > highest {
			highest = e
		}
	}
	return highest
}

// ItemPercent is one tracker's completion contribution for one item. A movie
// in progress caps at 99 until its status is Watched; a series is the ratio
// of watched markers to the estimated total.
func ItemPercent(item store.ListItem, userID string) float64 {
	state, ok := item.Tracking[userID]
	if !ok || state == nil {
		return 0
	}
	if state.Status == store.StatusWatched {
		return 100
	}
	if !item.Media.Type.IsSeries() {
		duration := MovieDuration(item.Media)
		percent := float64(state.ProgressMinutes) / float64(duration) * 100
		return math.Min(99, percent)
	}
	total := EstimatedEpisodes(item.Media)
	percent := float64(len(state.WatchedHistory)) / float64(total) * 100
	return math.Min(100, percent)
}

// ListPercent is a tracker's overall list completion: the rounded mean of the
// per-item contributions. An empty list is 0.
func ListPercent(list *store.MediaList, userID string) int {
	if len(list.Items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range list.Items {
		total += ItemPercent(item, userID)
	}
	return int(math.Round(total / float64(len(list.Items))))
}

func refreshSeriesStatus(m store.Media, state *store.TrackState) {
	watched := len(state.WatchedHistory)
	switch {
	case watched >= EstimatedEpisodes(m):
		state.Status = store.StatusWatched
	case watched > 0:
		state.Status = store.StatusWatching
	default:
		state.Status = store.StatusUnwatched
	}
}

func contains(markers []string, marker string) bool {
	for _, existing := range markers {
		if existing == marker {
			return true
		}
	}
	return false
}
