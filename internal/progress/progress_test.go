package progress

import (
	"reflect"
	"testing"

	"watchquest/api/internal/store"
)

func movie(duration string) store.Media {
	return store.Media{ID: "m1", Title: "Movie", Duration: duration, Type: store.MediaMovie}
}

func series(seasons ...int) store.Media {
	m := store.Media{ID: "tt1", Title: "Series", Type: store.MediaSeries, TotalSeasons: len(seasons)}
	for i, count := range seasons {
		m.SeasonsData = append(m.SeasonsData, store.Season{SeasonNumber: i + 1, EpisodesCount: count})
	}
	return m
}

func TestMovieDuration(t *testing.T) {
	cases := []struct {
		duration string
		want     int
	}{
		{"132 min", 132},
		{"97 min", 97},
		{"?? min", DefaultMovieMinutes},
		{"", DefaultMovieMinutes},
		{"N/A", DefaultMovieMinutes},
	}
	for _, tc := range cases {
		if got := MovieDuration(movie(tc.duration)); got != tc.want {
			t.Errorf("MovieDuration(%q) = %d, want %d", tc.duration, got, tc.want)
		}
	}
}

func TestEstimatedEpisodesUsesFallbackForUnresolvedSeasons(t *testing.T) {
	if got := EstimatedEpisodes(series(10, 0)); got != 20 {
		t.Errorf("estimated = %d, want 20 (resolved 10 + fallback 10)", got)
	}
	noSkeleton := store.Media{Type: store.MediaSeries, TotalSeasons: 3}
	if got := EstimatedEpisodes(noSkeleton); got != 30 {
		t.Errorf("estimated without seasonsData = %d, want 30", got)
	}
}

func TestSetMinutesClamps(t *testing.T) {
	m := movie("100 min")
	state := &store.TrackState{Status: store.StatusUnwatched}

	SetMinutes(m, state, -5)
	if state.ProgressMinutes != 0 || state.Status != store.StatusUnwatched {
		t.Errorf("after -5: minutes=%d status=%s", state.ProgressMinutes, state.Status)
	}

	SetMinutes(m, state, 40)
	if state.ProgressMinutes != 40 || state.Status != store.StatusWatching {
		t.Errorf("after 40: minutes=%d status=%s", state.ProgressMinutes, state.Status)
	}

	SetMinutes(m, state, 200)
	if state.ProgressMinutes != 100 || state.Status != store.StatusWatched {
		t.Errorf("after 200: minutes=%d status=%s, want clamp to 100/Watched", state.ProgressMinutes, state.Status)
	}
}

func TestSetStatusWatchedSynthesizesFullHistory(t *testing.T) {
	m := series(8, 0)
	state := &store.TrackState{Status: store.StatusUnwatched, CurrentSeason: 1}

	SetStatus(m, state, store.StatusWatched)
	if len(state.WatchedHistory) != 18 {
		t.Errorf("history size = %d, want 18 (8 resolved + 10 fallback)", len(state.WatchedHistory))
	}
	if state.CurrentSeason != 2 {
		t.Errorf("cursor season = %d, want 2", state.CurrentSeason)
	}

	item := store.ListItem{Media: m, Tracking: map[string]*store.TrackState{"u1": state}}
	if got := ItemPercent(item, "u1"); got != 100 {
		t.Errorf("percent after direct Watched = %v, want 100", got)
	}
}

func TestSetStatusUnwatchedResets(t *testing.T) {
	m := series(5)
	state := &store.TrackState{
		Status:         store.StatusWatching,
		CurrentSeason:  1,
		CurrentEpisode: 3,
		WatchedHistory: []string{"S1E1", "S1E2", "S1E3"},
	}

	SetStatus(m, state, store.StatusUnwatched)
	if state.CurrentSeason != 1 || state.CurrentEpisode != 0 || len(state.WatchedHistory) != 0 {
		t.Errorf("after unwatch: %+v", state)
	}
}

func TestToggleEpisodeSymmetry(t *testing.T) {
	m := series(10, 10)
	state := &store.TrackState{Status: store.StatusUnwatched, CurrentSeason: 1, WatchedHistory: []string{"S1E1"}}
	before := append([]string(nil), state.WatchedHistory...)

	ToggleEpisode(m, state, 2, 4)
	if !contains(state.WatchedHistory, "S2E4") {
		t.Fatal("marker not added")
	}
	ToggleEpisode(m, state, 2, 4)
	if !reflect.DeepEqual(state.WatchedHistory, before) {
		t.Errorf("history after double toggle = %v, want %v", state.WatchedHistory, before)
	}
}

func TestSeriesStatusFollowsHistorySize(t *testing.T) {
	m := series(10, 10)
	state := &store.TrackState{Status: store.StatusUnwatched, CurrentSeason: 1, WatchedHistory: []string{}}

	for e := 1; e <= 10; e++ {
		ToggleEpisode(m, state, 1, e)
	}
	for e := 1; e <= 5; e++ {
		ToggleEpisode(m, state, 2, e)
	}
	item := store.ListItem{Media: m, Tracking: map[string]*store.TrackState{"u1": state}}
	if state.Status != store.StatusWatching {
		t.Errorf("status at 15/20 = %s, want Watching", state.Status)
	}
	if got := ItemPercent(item, "u1"); got != 75 {
		t.Errorf("percent at 15/20 = %v, want 75", got)
	}

	for e := 6; e <= 10; e++ {
		ToggleEpisode(m, state, 2, e)
	}
	if state.Status != store.StatusWatched {
		t.Errorf("status at 20/20 = %s, want Watched", state.Status)
	}
	if got := ItemPercent(item, "u1"); got != 100 {
		t.Errorf("percent at 20/20 = %v, want 100", got)
	}
}

func TestMarkThroughEpisode(t *testing.T) {
	m := series(10)
	state := &store.TrackState{Status: store.StatusUnwatched, CurrentSeason: 1, WatchedHistory: []string{"S1E7"}}

	MarkThroughEpisode(m, state, 1, 3)
	want := []string{"S1E1", "S1E2", "S1E3"}
	if !reflect.DeepEqual(state.WatchedHistory, want) {
		t.Errorf("history = %v, want %v (markers past the target dropped)", state.WatchedHistory, want)
	}
}

func TestSetSeasonCursorResumesFromHistory(t *testing.T) {
	state := &store.TrackState{
		Status:         store.StatusWatching,
		CurrentSeason:  1,
		WatchedHistory: []string{"S1E1", "S2E5", "S2E3"},
	}

	SetSeasonCursor(state, 2)
	if state.CurrentEpisode != 5 {
		t.Errorf("cursor episode = %d, want 5 (highest watched in season 2)", state.CurrentEpisode)
	}
	SetSeasonCursor(state, 3)
	if state.CurrentEpisode != 0 {
		t.Errorf("cursor episode = %d, want 0 for a season with no history", state.CurrentEpisode)
	}
}

func TestListPercent(t *testing.T) {
	a := store.ListItem{
		Media:    movie("100 min"),
		Tracking: map[string]*store.TrackState{"u1": {Status: store.StatusWatched, ProgressMinutes: 100}},
	}
	b := store.ListItem{
		Media:    store.Media{ID: "m2", Duration: "200 min", Type: store.MediaMovie},
		Tracking: map[string]*store.TrackState{"u1": {Status: store.StatusWatching, ProgressMinutes: 100}},
	}
	list := &store.MediaList{Items: []store.ListItem{a, b}}

	if got := ListPercent(list, "u1"); got != 75 {
		t.Errorf("list percent = %d, want 75", got)
	}
	if got := ListPercent(&store.MediaList{}, "u1"); got != 0 {
		t.Errorf("empty list percent = %d, want 0", got)
	}
	if got := ListPercent(list, "u2"); got != 0 {
		t.Errorf("untracked user percent = %d, want 0", got)
	}
}

func TestMoviePercentCapsAt99UntilWatched(t *testing.T) {
	item := store.ListItem{
		Media: movie("100 min"),
		// Inconsistent on purpose: full minutes but status still Watching.
		// The cap keeps a list from reading 100 before the status flip.
		Tracking: map[string]*store.TrackState{"u1": {Status: store.StatusWatching, ProgressMinutes: 100}},
	}
	if got := ItemPercent(item, "u1"); got != 99 {
		t.Errorf("percent = %v, want cap at 99", got)
	}
}
