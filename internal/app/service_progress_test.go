package app

import (
	"context"
	"testing"

	"watchquest/api/internal/store"
)

func createListWith(t *testing.T, svc *Service, ctx context.Context, media ...store.Media) *store.MediaList {
	t.Helper()
	list, err := svc.CreateList(ctx, CreateListInput{
		Title: "Test Watchlist", Category: store.CategoryGeneral, Privacy: store.PrivacyPublic,
	})
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	if len(media) > 0 {
		if _, err := svc.AddItems(ctx, list.ID, media); err != nil {
			t.Fatalf("AddItems: %v", err)
		}
	}
	return list
}

func TestMovieListSeventyFivePercent(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "u2")
	list := createListWith(t, svc, ctx,
		store.Media{ID: "x1", Title: "Short One", Duration: "100 min", Type: store.MediaMovie},
		store.Media{ID: "x2", Title: "Long One", Duration: "200 min", Type: store.MediaMovie},
	)

	result, err := svc.SetItemStatus(ctx, list.ID, "x1", store.StatusWatched)
	if err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	if result.Progress != 50 {
		t.Errorf("after one watched of two: progress = %d, want 50", result.Progress)
	}

	result, err = svc.SetItemMinutes(ctx, list.ID, "x2", 100)
	if err != nil {
		t.Fatalf("SetItemMinutes: %v", err)
	}
	if result.Progress != 75 {
		t.Errorf("progress = %d, want 75", result.Progress)
	}
	if result.JustCompleted {
		t.Error("list is not complete yet")
	}
}

func TestMovieNinetyNineCapUntilWatched(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "u2")
	list := createListWith(t, svc, ctx,
		store.Media{ID: "x1", Title: "Almost", Duration: "100 min", Type: store.MediaMovie},
	)

	result, err := svc.SetItemMinutes(ctx, list.ID, "x1", 99)
	if err != nil {
		t.Fatalf("SetItemMinutes: %v", err)
	}
	if result.Progress != 99 {
		t.Errorf("progress = %d, want 99", result.Progress)
	}

	result, err = svc.SetItemStatus(ctx, list.ID, "x1", store.StatusWatched)
	if err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	if result.Progress != 100 || !result.JustCompleted {
		t.Errorf("result = %+v, want progress 100 and justCompleted", result)
	}
}

func TestMinutesClampAndFlipStatus(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "u2")
	list := createListWith(t, svc, ctx,
		store.Media{ID: "x1", Title: "Clamp", Duration: "100 min", Type: store.MediaMovie},
	)

	if _, err := svc.SetItemMinutes(ctx, list.ID, "x1", -5); err != nil {
		t.Fatalf("SetItemMinutes: %v", err)
	}
	state := svc.store.Doc().ListByID(list.ID).ItemByMediaID("x1").Tracking["u2"]
	if state.ProgressMinutes != 0 || state.Status != store.StatusUnwatched {
		t.Errorf("negative minutes: state = %+v", state)
	}

	result, err := svc.SetItemMinutes(ctx, list.ID, "x1", 500)
	if err != nil {
		t.Fatalf("SetItemMinutes: %v", err)
	}
	state = svc.store.Doc().ListByID(list.ID).ItemByMediaID("x1").Tracking["u2"]
	if state.ProgressMinutes != 100 || state.Status != store.StatusWatched {
		t.Errorf("over-duration minutes: state = %+v", state)
	}
	if !result.JustCompleted {
		t.Error("clamp to full duration should complete a one-item list")
	}
}

func twoSeasonSeries() store.Media {
	return store.Media{
		ID: "tt_series", Title: "The Series", Type: store.MediaSeries, TotalSeasons: 2,
		Duration: "2 Seasons",
		SeasonsData: []store.Season{
			{SeasonNumber: 1, EpisodesCount: 10},
			{SeasonNumber: 2, EpisodesCount: 10},
		},
	}
}

func TestSeriesCompletionScenario(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "u2")
	list := createListWith(t, svc, ctx, twoSeasonSeries())

	result, err := svc.MarkItemThroughEpisode(ctx, list.ID, "tt_series", 1, 10)
	if err != nil {
		t.Fatalf("MarkItemThroughEpisode: %v", err)
	}
	if result.Progress != 50 {
		t.Errorf("after season 1: progress = %d, want 50", result.Progress)
	}

	result, err = svc.MarkItemThroughEpisode(ctx, list.ID, "tt_series", 2, 5)
	if err != nil {
		t.Fatalf("MarkItemThroughEpisode: %v", err)
	}
	if result.Progress != 75 || result.JustCompleted {
		t.Errorf("at 15/20: result = %+v, want 75 and not completed", result)
	}
	state := svc.store.Doc().ListByID(list.ID).ItemByMediaID("tt_series").Tracking["u2"]
	if state.Status != store.StatusWatching {
		t.Errorf("status = %s, want Watching", state.Status)
	}

	result, err = svc.MarkItemThroughEpisode(ctx, list.ID, "tt_series", 2, 10)
	if err != nil {
		t.Fatalf("MarkItemThroughEpisode: %v", err)
	}
	if result.Progress != 100 || !result.JustCompleted {
		t.Errorf("at 20/20: result = %+v, want completion", result)
	}
	state = svc.store.Doc().ListByID(list.ID).ItemByMediaID("tt_series").Tracking["u2"]
	if state.Status != store.StatusWatched {
		t.Errorf("status = %s, want Watched", state.Status)
	}
}

func TestToggleEpisodeSymmetry(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "u2")
	list := createListWith(t, svc, ctx, twoSeasonSeries())

	before, err := svc.ListProgress(ctx, list.ID)
	if err != nil {
		t.Fatalf("ListProgress: %v", err)
	}
	if _, err := svc.ToggleItemEpisode(ctx, list.ID, "tt_series", 1, 3); err != nil {
		t.Fatalf("ToggleItemEpisode: %v", err)
	}
	result, err := svc.ToggleItemEpisode(ctx, list.ID, "tt_series", 1, 3)
	if err != nil {
		t.Fatalf("ToggleItemEpisode: %v", err)
	}
	if result.Progress != before {
		t.Errorf("toggle twice: progress = %d, want %d", result.Progress, before)
	}
	state := svc.store.Doc().ListByID(list.ID).ItemByMediaID("tt_series").Tracking["u2"]
	if len(state.WatchedHistory) != 0 {
		t.Errorf("history = %v, want empty after symmetric toggle", state.WatchedHistory)
	}
}

func TestCompletionGrantsRewardOnce(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "u2")

	// Complete both items of l1 as a non-creator tracker; l1 rewards b_scarn.
	if _, err := svc.SetItemStatus(ctx, "l1", "m1", store.StatusWatched); err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	result, err := svc.SetItemStatus(ctx, "l1", "m2", store.StatusWatched)
	if err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	if !result.JustCompleted {
		t.Fatal("completing the last item should fire the completion signal")
	}

	u2 := svc.store.Doc().UserByID("u2")
	if !holdsBadgeID(u2.Badges, "b_scarn") {
		t.Fatal("completion should grant the list's badge reward")
	}

	// Un-complete and re-complete; the badge must not duplicate.
	if _, err := svc.SetItemStatus(ctx, "l1", "m2", store.StatusUnwatched); err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	if _, err := svc.SetItemStatus(ctx, "l1", "m2", store.StatusWatched); err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	count := 0
	for _, badge := range svc.store.Doc().UserByID("u2").Badges {
		if badge.ID == "b_scarn" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("badge granted %d times, want once", count)
	}
	notices := 0
	for _, n := range notificationsFor(svc, "u2") {
		if n.TargetPreview == "Achievement unlocked: Agent Scarn" {
			notices++
		}
	}
	if notices != 1 {
		t.Errorf("reward notices = %d, want exactly one", notices)
	}

	// The creator's own tracking is untouched by u2's activity.
	creatorState := svc.store.Doc().ListByID("l1").ItemByMediaID("m2").Tracking["u1"]
	if creatorState.Status != store.StatusWatching || creatorState.ProgressMinutes != 45 {
		t.Errorf("creator state mutated: %+v", creatorState)
	}
}

func TestSetItemSeasonResumesAtHighestWatched(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "u2")
	list := createListWith(t, svc, ctx, twoSeasonSeries())

	if _, err := svc.ToggleItemEpisode(ctx, list.ID, "tt_series", 2, 7); err != nil {
		t.Fatalf("ToggleItemEpisode: %v", err)
	}
	if _, err := svc.SetItemSeason(ctx, list.ID, "tt_series", 1); err != nil {
		t.Fatalf("SetItemSeason: %v", err)
	}
	if _, err := svc.SetItemSeason(ctx, list.ID, "tt_series", 2); err != nil {
		t.Fatalf("SetItemSeason: %v", err)
	}
	state := svc.store.Doc().ListByID(list.ID).ItemByMediaID("tt_series").Tracking["u2"]
	if state.CurrentSeason != 2 || state.CurrentEpisode != 7 {
		t.Errorf("cursor = S%dE%d, want S2E7", state.CurrentSeason, state.CurrentEpisode)
	}
}

func TestProgressRequiresViewAccess(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "u2")
	list := createListWith(t, svc, ctx,
		store.Media{ID: "x1", Title: "Mine", Duration: "90 min", Type: store.MediaMovie},
	)
	if _, err := svc.UpdateList(ctx, list.ID, UpdateListInput{
		Title: list.Title, Category: list.Category, Privacy: store.PrivacyPrivate,
	}); err != nil {
		t.Fatalf("UpdateList: %v", err)
	}

	loginAs(t, svc, ctx, "u3")
	_, err := svc.SetItemMinutes(ctx, list.ID, "x1", 10)
	assertCode(t, err, "FORBIDDEN")
}

func holdsBadgeID(badges []store.Badge, id string) bool {
	for _, badge := range badges {
		if badge.ID == id {
			return true
		}
	}
	return false
}
