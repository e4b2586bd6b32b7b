package achievements

import (
	"testing"
	"time"

	"watchquest/api/internal/store"
)

func testDocument(now time.Time) *store.Document {
	doc := &store.Document{
		Users: []*store.User{
			{ID: "u1", Name: "Creator", Followers: 12, JoinedAt: now.AddDate(-2, 0, 0).UnixMilli()},
			{ID: "u2", Name: "Newcomer", JoinedAt: now.UnixMilli()},
		},
		GlobalBadges: store.SystemBadges(),
	}
	for i := 0; i < 5; i++ {
		doc.Lists = append(doc.Lists, &store.MediaList{
			ID:        "l" + string(rune('1'+i)),
			CreatorID: "u1",
			Items:     []store.ListItem{{Media: store.Media{ID: "m1"}}, {Media: store.Media{ID: "m2"}}},
			Reactions: []store.Reaction{{UserID: "u2", Emoji: "🔥"}, {UserID: "u2", Emoji: "😂"}},
		})
	}
	return doc
}

func TestCollect(t *testing.T) {
	now := time.Now()
	doc := testDocument(now)

	stats := Collect(doc, "u1", now)
	if stats.ListsCreated != 5 || stats.ItemsAdded != 10 || stats.Followers != 12 {
		t.Errorf("creator stats = %+v", stats)
	}
	if stats.DaysJoined < 365 {
		t.Errorf("DaysJoined = %d, want over a year", stats.DaysJoined)
	}

	// Two reactions on the same list count once.
	stats = Collect(doc, "u2", now)
	if stats.ReactionsGiven != 5 {
		t.Errorf("ReactionsGiven = %d, want 5 distinct lists", stats.ReactionsGiven)
	}
}

func TestEvaluateGrantsMetRules(t *testing.T) {
	now := time.Now()
	doc := testDocument(now)

	granted := Evaluate(doc, "u1", now)
	wantIDs := map[string]bool{
		"ach_creator_1": true, "ach_creator_5": true, "ach_lib_10": true,
		"ach_inf_10": true, "ach_vet_1y": true,
	}
	if len(granted) != len(wantIDs) {
		t.Fatalf("granted %d badges, want %d: %+v", len(granted), len(wantIDs), granted)
	}
	for _, badge := range granted {
		if !wantIDs[badge.ID] {
			t.Errorf("unexpected grant %q", badge.ID)
		}
		if badge.EarnedDate == "" {
			t.Errorf("badge %q granted without earned date", badge.ID)
		}
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	now := time.Now()
	doc := testDocument(now)

	first := Evaluate(doc, "u1", now)
	if len(first) == 0 {
		t.Fatal("first evaluation granted nothing")
	}
	held := len(doc.UserByID("u1").Badges)

	second := Evaluate(doc, "u1", now)
	if len(second) != 0 {
		t.Errorf("second evaluation granted %d more badges", len(second))
	}
	if got := len(doc.UserByID("u1").Badges); got != held {
		t.Errorf("badge count changed from %d to %d on re-evaluation", held, got)
	}
}

func TestEvaluateCopiesDefinitions(t *testing.T) {
	now := time.Now()
	doc := testDocument(now)
	Evaluate(doc, "u1", now)

	// Editing the registry afterwards must not change granted badges.
	doc.GlobalBadges[0].Name = "Renamed"
	for _, badge := range doc.UserByID("u1").Badges {
		if badge.ID == "ach_creator_1" && badge.Name == "Renamed" {
			t.Error("granted badge references the registry instead of copying it")
		}
	}
}

func TestEvaluateUnknownUser(t *testing.T) {
	now := time.Now()
	if granted := Evaluate(testDocument(now), "missing", now); granted != nil {
		t.Errorf("granted badges for unknown user: %+v", granted)
	}
}
