// Package achievements evaluates the official achievement rules against a
// user's rolling statistics and grants missing badges. Grants are monotonic:
// a rule that was once met never revokes its badge.
package achievements

import (
	"time"

	"watchquest/api/internal/store"
)

// Stats are the rolling per-user statistics the rule table evaluates.
type Stats struct {
	ListsCreated   int
	ItemsAdded     int
	ReactionsGiven int
	Followers      int
	DaysJoined     int
}

// Collect computes the statistics for one user from the live document.
// ReactionsGiven counts distinct lists the user reacted to.
func Collect(doc *store.Document, userID string, now time.Time) Stats {
	stats := Stats{}
	for _, list := range doc.Lists {
		if list.CreatorID == userID {
			stats.ListsCreated++
			stats.ItemsAdded += len(list.Items)
		}
		for _, reaction := range list.Reactions {
			if reaction.UserID == userID {
				stats.ReactionsGiven++
				break
			}
		}
	}
	if user := doc.UserByID(userID); user != nil {
		stats.Followers = user.Followers
		days := (now.UnixMilli() - user.JoinedAt) / (24 * time.Hour.Milliseconds())
		stats.DaysJoined = int(days)
	}
	return stats
}

// Each rule maps a threshold to exactly one badge in the official registry.
var rules = []struct {
	badgeID string
	met     func(Stats) bool
}{
	{"ach_creator_1", func(s Stats) bool { return s.ListsCreated >= 1 }},
	{"ach_creator_5", func(s Stats) bool { return s.ListsCreated >= 5 }},
	{"ach_lib_10", func(s Stats) bool { return s.ItemsAdded >= 10 }},
	{"ach_social_5", func(s Stats) bool { return s.ReactionsGiven >= 5 }},
	{"ach_inf_10", func(s Stats) bool { return s.Followers >= 10 }},
	{"ach_vet_1y", func(s Stats) bool { return s.DaysJoined >= 365 }},
}

// Evaluate grants every badge whose rule is met and not already held, and
// returns the newly granted badges. Held badges are looked up by id, never
// recomputed, so repeated calls with unchanged statistics are no-ops.
func Evaluate(doc *store.Document, userID string, now time.Time) []store.Badge {
	user := doc.UserByID(userID)
	if user == nil {
		return nil
	}
	stats := Collect(doc, userID, now)

	var granted []store.Badge
	for _, rule := range rules {
		if !rule.met(stats) || holdsBadge(user, rule.badgeID) {
			continue
		}
		definition := registryBadge(doc, rule.badgeID)
		if definition == nil {
			continue
		}
		badge := *definition
		badge.EarnedDate = now.Format("2006-01-02")
		user.Badges = append(user.Badges, badge)
		granted = append(granted, badge)
	}
	return granted
}

func holdsBadge(user *store.User, badgeID string) bool {
	for _, badge := range user.Badges {
		if badge.ID == badgeID {
			return true
		}
	}
	return false
}

func registryBadge(doc *store.Document, badgeID string) *store.Badge {
	for i := range doc.GlobalBadges {
		if doc.GlobalBadges[i].ID == badgeID {
			return &doc.GlobalBadges[i]
		}
	}
	return nil
}
