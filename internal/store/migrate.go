package store

// SchemaVersion is the version new and migrated documents carry.
const SchemaVersion = 2

// A migration upgrades the generic JSON form of the document by one step.
// Migrations run in order at load time, from the stored version to
// SchemaVersion, and each must be safe to skip when already applied.
type migration struct {
	version int
	apply   func(doc map[string]any)
}

var migrations = []migration{
	{version: 1, apply: migrateBackfillDefaults},
	{version: 2, apply: migrateLiftItemTracking},
}

// Migrate upgrades a decoded document in place to the current schema version.
// Running it on an already-current document changes nothing.
func Migrate(doc map[string]any) map[string]any {
	from := intField(doc, "schemaVersion")
	for _, m := range migrations {
		if m.version <= from {
			continue
		}
		m.apply(doc)
	}
	doc["schemaVersion"] = SchemaVersion
	return doc
}

// migrateBackfillDefaults covers every pre-versioning document shape: missing
// fields are backfilled with safe defaults, never removed.
func migrateBackfillDefaults(doc map[string]any) {
	ensureArray(doc, "users")
	ensureArray(doc, "lists")
	ensureArray(doc, "reports")
	ensureArray(doc, "notifications")
	ensureArray(doc, "adminLogs")
	ensureArray(doc, "blacklist")
	if _, ok := doc["globalBadges"].([]any); !ok {
		registry := SystemBadges()
		badges := make([]any, 0, len(registry))
		for _, b := range registry {
			badges = append(badges, map[string]any{
				"id":          b.ID,
				"name":        b.Name,
				"description": b.Description,
				"icon":        b.Icon,
				"type":        string(b.Type),
			})
		}
		doc["globalBadges"] = badges
	}

	for _, v := range asArray(doc["users"]) {
		user, ok := v.(map[string]any)
		if !ok {
			continue
		}
		ensureArray(user, "strikes")
		ensureArray(user, "followingIds")
		ensureArray(user, "followedListIds")
		ensureArray(user, "hiddenPatchIds")
		ensureArray(user, "hiddenBadgeIds")
		ensureArray(user, "badges")
		if _, ok := user["isPermanentlyBanned"]; !ok {
			user["isPermanentlyBanned"] = false
		}
		if _, ok := user["notificationSettings"].(map[string]any); !ok {
			user["notificationSettings"] = map[string]any{
				"likes": true, "comments": true, "follows": true, "mentions": true,
			}
		}
	}

	for _, v := range asArray(doc["lists"]) {
		list, ok := v.(map[string]any)
		if !ok {
			continue
		}
		ensureArray(list, "items")
		ensureArray(list, "reactions")
		ensureArray(list, "comments")
		for _, c := range asArray(list["comments"]) {
			ensureReplies(c)
		}
	}
}

// ensureReplies walks a comment subtree; the canonical depth is two but
// documents written by older versions may nest deeper.
func ensureReplies(v any) {
	comment, ok := v.(map[string]any)
	if !ok {
		return
	}
	ensureArray(comment, "replies")
	for _, r := range asArray(comment["replies"]) {
		ensureReplies(r)
	}
}

// legacy per-item fields lifted into the per-user tracking map by v2
var legacyTrackFields = []string{
	"status", "progressMinutes", "currentSeason", "currentEpisode", "watchedHistory",
}

// migrateLiftItemTracking moves flat per-item watch state (the original
// creator-only schema) into the tracking map keyed by the list creator, and
// drops the user-level progress mirrors that duplicated it.
func migrateLiftItemTracking(doc map[string]any) {
	for _, v := range asArray(doc["lists"]) {
		list, ok := v.(map[string]any)
		if !ok {
			continue
		}
		creatorID, _ := list["creatorId"].(string)
		for _, iv := range asArray(list["items"]) {
			item, ok := iv.(map[string]any)
			if !ok {
				continue
			}
			if _, ok := item["tracking"].(map[string]any); !ok {
				tracking := map[string]any{}
				if status, ok := item["status"].(string); ok && creatorID != "" {
					state := map[string]any{"status": status}
					for _, field := range legacyTrackFields[1:] {
						if val, ok := item[field]; ok {
							state[field] = val
						}
					}
					tracking[creatorID] = state
				}
				item["tracking"] = tracking
			}
			for _, field := range legacyTrackFields {
				delete(item, field)
			}
		}
	}
	for _, v := range asArray(doc["users"]) {
		user, ok := v.(map[string]any)
		if !ok {
			continue
		}
		delete(user, "watchedMovieIds")
		delete(user, "watchingMovieIds")
		delete(user, "watchProgress")
	}
}

func asArray(v any) []any {
	arr, _ := v.([]any)
	return arr
}

func ensureArray(m map[string]any, key string) {
	if _, ok := m[key].([]any); !ok {
		m[key] = []any{}
	}
}

func intField(m map[string]any, key string) int {
	switch n := m[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
