package store

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
)

func legacyDocument() map[string]any {
	blob := []byte(`{
		"users": [
			{"id": "u1", "name": "Michael", "handle": "@boss", "email": "m@x.com",
			 "watchedMovieIds": ["m1"], "watchingMovieIds": [], "watchProgress": {}}
		],
		"lists": [
			{"id": "l1", "creatorId": "u1", "title": "Favorites",
			 "items": [
				{"media": {"id": "m1", "title": "Die Hard", "type": "Movie", "duration": "132 min"},
				 "status": "Watching", "progressMinutes": 45}
			 ],
			 "comments": [
				{"id": "c1", "userId": "u1", "text": "great",
				 "replies": [{"id": "c2", "userId": "u1", "text": "thanks"}]}
			 ]}
		]
	}`)
	var doc map[string]any
	if err := json.Unmarshal(blob, &doc); err != nil {
		panic(err)
	}
	return doc
}

func TestMigrateBackfillsLegacyDocument(t *testing.T) {
	doc := Migrate(legacyDocument())

	if got := intField(doc, "schemaVersion"); got != SchemaVersion {
		t.Fatalf("schemaVersion = %d, want %d", got, SchemaVersion)
	}
	for _, key := range []string{"reports", "notifications", "adminLogs", "blacklist"} {
		if _, ok := doc[key].([]any); !ok {
			t.Errorf("collection %q not backfilled", key)
		}
	}
	if badges := asArray(doc["globalBadges"]); len(badges) != len(SystemBadges()) {
		t.Errorf("globalBadges = %d entries, want %d", len(badges), len(SystemBadges()))
	}

	user := asArray(doc["users"])[0].(map[string]any)
	for _, key := range []string{"strikes", "followingIds", "followedListIds", "badges", "hiddenPatchIds", "hiddenBadgeIds"} {
		if _, ok := user[key].([]any); !ok {
			t.Errorf("user field %q not backfilled", key)
		}
	}
	if banned, ok := user["isPermanentlyBanned"].(bool); !ok || banned {
		t.Errorf("isPermanentlyBanned = %v, want false", user["isPermanentlyBanned"])
	}
	for _, key := range []string{"watchedMovieIds", "watchingMovieIds", "watchProgress"} {
		if _, ok := user[key]; ok {
			t.Errorf("legacy mirror %q not removed", key)
		}
	}

	list := asArray(doc["lists"])[0].(map[string]any)
	item := asArray(list["items"])[0].(map[string]any)
	tracking, ok := item["tracking"].(map[string]any)
	if !ok {
		t.Fatalf("item tracking not created: %v", item)
	}
	state, ok := tracking["u1"].(map[string]any)
	if !ok {
		t.Fatalf("legacy progress not keyed by creator: %v", tracking)
	}
	if state["status"] != "Watching" {
		t.Errorf("lifted status = %v, want Watching", state["status"])
	}
	if intField(state, "progressMinutes") != 45 {
		t.Errorf("lifted progressMinutes = %v, want 45", state["progressMinutes"])
	}
	if _, ok := item["status"]; ok {
		t.Error("flat item status not removed after lift")
	}

	reply := asArray(asArray(list["comments"])[0].(map[string]any)["replies"])[0].(map[string]any)
	if _, ok := reply["replies"].([]any); !ok {
		t.Error("nested reply missing replies array")
	}
}

func TestMigrateIdempotent(t *testing.T) {
	first := Migrate(legacyDocument())
	firstBlob, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}

	var reloaded map[string]any
	if err := json.Unmarshal(firstBlob, &reloaded); err != nil {
		t.Fatal(err)
	}
	secondBlob, err := json.Marshal(Migrate(reloaded))
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(firstBlob, secondBlob) {
		t.Errorf("second migration pass changed the document:\nfirst:  %s\nsecond: %s", firstBlob, secondBlob)
	}
}

func TestMigrateKeepsExistingTracking(t *testing.T) {
	doc := legacyDocument()
	list := asArray(doc["lists"])[0].(map[string]any)
	item := asArray(list["items"])[0].(map[string]any)
	item["tracking"] = map[string]any{
		"u2": map[string]any{"status": "Watched"},
	}

	Migrate(doc)

	tracking := item["tracking"].(map[string]any)
	if _, ok := tracking["u1"]; ok {
		t.Error("lift overwrote an already-migrated tracking map")
	}
	if _, ok := tracking["u2"]; !ok {
		t.Error("existing tracking entry lost")
	}
}
