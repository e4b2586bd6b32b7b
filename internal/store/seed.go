package store

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// StrikeTTL is the disciplinary retention window: strikes expire six months
// after issuance.
const StrikeTTL = 6 * 30 * 24 * time.Hour

// SystemBadges is the official achievement registry. Grants copy these
// definitions; they are never referenced in place.
func SystemBadges() []Badge {
	return []Badge{
		{ID: "ach_creator_1", Name: "Novice Creator", Description: "Created your first list. Welcome to the club!", Icon: "fa-plus-circle", Type: BadgeOfficial},
		{ID: "ach_creator_5", Name: "Master Curator", Description: "Created 5 lists. You have an eye for quality.", Icon: "fa-layer-group", Type: BadgeOfficial},
		{ID: "ach_lib_10", Name: "Library Builder", Description: "Added 10 movies to your lists.", Icon: "fa-film", Type: BadgeOfficial},
		{ID: "ach_social_5", Name: "Social Fan", Description: "Reacted to 5 different lists. Spread the love!", Icon: "fa-heart", Type: BadgeOfficial},
		{ID: "ach_inf_10", Name: "Influencer", Description: "Reached 10 followers. People are watching!", Icon: "fa-star", Type: BadgeOfficial},
		{ID: "ach_vet_1y", Name: "Veteran", Description: "Member for over 1 year. Thank you for staying.", Icon: "fa-medal", Type: BadgeOfficial},
	}
}

// LocalCatalog is the seed catalog merged with provider results on search.
func LocalCatalog() []Media {
	return []Media{
		{ID: "m1", Title: "Threat Level Midnight", Year: 2011, Duration: "120 min", Rating: 10.0, Poster: "https://placehold.co/300x450/000000/FFFFFF/png?text=Threat+Level+Midnight", Synopsis: "After secret agent Michael Scarn is forced into retirement, he is brought back to prevent Goldenface from blowing up the NHL All-Star Game.", AvailableOn: []string{"YouTube"}, Type: MediaMovie},
		{ID: "m2", Title: "Die Hard", Year: 1988, Duration: "132 min", Rating: 8.2, Poster: "https://placehold.co/300x450/7f1d1d/FFFFFF/png?text=Die+Hard", Synopsis: "An NYPD officer tries to save his wife and several others taken hostage by German terrorists during a Christmas party.", AvailableOn: []string{"HBO Max"}, Type: MediaMovie},
		{ID: "m3", Title: "The Devil Wears Prada", Year: 2006, Duration: "109 min", Rating: 6.9, Poster: "https://placehold.co/300x450/be185d/FFFFFF/png?text=Devil+Wears+Prada", Synopsis: "A new graduate lands a job as an assistant to the demanding editor-in-chief of a high fashion magazine.", AvailableOn: []string{"Disney+", "Hulu"}, Type: MediaMovie},
		{ID: "m4", Title: "Million Dollar Baby", Year: 2004, Duration: "132 min", Rating: 8.1, Poster: "https://placehold.co/300x450/1e293b/FFFFFF/png?text=Million+Dollar+Baby", Synopsis: "A determined woman works with a hardened boxing trainer to become a professional.", AvailableOn: []string{"Netflix"}, Type: MediaMovie},
		{ID: "m5", Title: "Varsity Blues", Year: 1999, Duration: "106 min", Rating: 6.5, Poster: "https://placehold.co/300x450/1d4ed8/FFFFFF/png?text=Varsity+Blues", Synopsis: "A backup quarterback is chosen to lead a Texas football team to victory.", AvailableOn: []string{"Prime Video"}, Type: MediaMovie},
		{ID: "m6", Title: "Weekend at Bernie's", Year: 1989, Duration: "97 min", Rating: 6.4, Poster: "https://placehold.co/300x450/f59e0b/FFFFFF/png?text=Weekend+at+Bernies", Synopsis: "Two losers try to pretend that their murdered employer is really alive.", AvailableOn: []string{"HBO Max"}, Type: MediaMovie},
	}
}

// SeedDocument builds the first-run document: demo users and lists with
// consistent denormalized counters, empty moderation collections, and the
// official badge registry.
func SeedDocument(now time.Time) *Document {
	nowMillis := now.UnixMilli()
	catalog := LocalCatalog()

	users := []*User{
		{
			ID: "u1", Name: "Michael Scott", Handle: "@worlds_best_boss",
			Email: "michael.scott@dundermifflin.com", PasswordHash: demoHash("123"),
			Role: "user", Avatar: "https://ui-avatars.com/api/?name=Michael+Scott&background=000&color=fff",
			Bio:     "Regional Manager. Philanthropist. Screenwriter. Improv student.",
			Country: "USA", Privacy: PrivacyPublic,
			Followers: 1, Following: 3,
			FollowingIDs: []string{"u2", "u3", "u4"}, FollowedListIDs: []string{"l2"},
			JoinedAt: now.AddDate(-10, 0, 0).UnixMilli(),
		},
		{
			ID: "admin1", Name: "Dwight Schrute", Handle: "@beet_king",
			Email: "dwight@watchquest.dev", PasswordHash: demoHash("admin"),
			Role: "admin", Avatar: "https://ui-avatars.com/api/?name=Dwight+Schrute&background=d97706&color=fff",
			Bio:     "Assistant Regional Manager. Owner of Schrute Farms.",
			Country: "USA", Privacy: PrivacyPublic,
			JoinedAt: now.AddDate(0, 0, -400).UnixMilli(),
		},
		{
			ID: "u2", Name: "Jim Halpert", Handle: "@big_tuna",
			Email: "jim@dundermifflin.com", PasswordHash: demoHash("123"),
			Role: "user", Avatar: "https://ui-avatars.com/api/?name=Jim+Halpert&background=2563eb&color=fff",
			Bio: "Sales. Occasional prankster.", Country: "USA", Privacy: PrivacyPublic,
			Followers: 2, Following: 2,
			FollowingIDs: []string{"u1", "u3"},
			JoinedAt:     now.AddDate(-2, 0, 0).UnixMilli(),
		},
		{
			ID: "u3", Name: "Pam Beesly", Handle: "@pamcasso",
			Email: "pam@dundermifflin.com", PasswordHash: demoHash("123"),
			Role: "user", Avatar: "https://ui-avatars.com/api/?name=Pam+Beesly&background=db2777&color=fff",
			Bio: "Receptionist turned saleswoman. Artist.", Country: "USA", Privacy: PrivacyPublic,
			Followers: 2, Following: 1,
			FollowingIDs: []string{"u2"},
			JoinedAt:     now.AddDate(-2, 0, 0).UnixMilli(),
		},
		{
			ID: "u4", Name: "Stanley Hudson", Handle: "@pretzel_day",
			Email: "stanley@dundermifflin.com", PasswordHash: demoHash("123"),
			Role: "user", Avatar: "https://ui-avatars.com/api/?name=Stanley+Hudson&background=334155&color=fff",
			Bio: "Did I stutter?", Country: "USA", Privacy: PrivacyFollowers,
			Followers: 1,
			JoinedAt:  now.AddDate(-1, -2, 0).UnixMilli(),
		},
	}
	for _, u := range users {
		if u.FollowingIDs == nil {
			u.FollowingIDs = []string{}
		}
		if u.FollowedListIDs == nil {
			u.FollowedListIDs = []string{}
		}
		u.Badges = []Badge{}
		u.Strikes = []Strike{}
		u.HiddenPatchIDs = []string{}
		u.HiddenBadgeIDs = []string{}
		u.NotificationSettings = NotificationSettings{Likes: true, Comments: true, Follows: true, Mentions: true}
	}

	lists := []*MediaList{
		{
			ID: "l1", CreatorID: "u1", CreatorName: "Michael Scott",
			CreatorAvatar: users[0].Avatar,
			Title:         "Michael's Screenplays",
			Description:   "The greatest stories ever told. Better than Shakespeare.",
			Category:      CategoryArtDirector, Privacy: PrivacyPublic,
			Items: []ListItem{
				{Media: catalog[0], Tracking: map[string]*TrackState{
					"u1": {Status: StatusWatched, ProgressMinutes: 120},
				}},
				{Media: catalog[1], Tracking: map[string]*TrackState{
					"u1": {Status: StatusWatching, ProgressMinutes: 45},
				}},
			},
			Reactions: []Reaction{
				{ID: "r1", UserID: "admin1", Emoji: "🔥", Timestamp: nowMillis},
				{ID: "r2", UserID: "u2", Emoji: "😂", Timestamp: nowMillis - 100000},
			},
			Comments: []Comment{},
			BadgeReward: &Badge{
				ID: "b_scarn", Name: "Agent Scarn",
				Description: "Completed Michael's masterpiece.",
				Icon:        "fa-gun", Type: BadgeCommunity, RelatedListID: "l1",
			},
			CreatedAt: nowMillis - 2*24*time.Hour.Milliseconds(),
		},
		{
			ID: "l2", CreatorID: "admin1", CreatorName: "Dwight Schrute",
			CreatorAvatar: users[1].Avatar,
			Title:         "Schrute Approved Films",
			Description:   "Movies that teach survival, authority, and bear safety.",
			Category:      CategoryGeneral, Privacy: PrivacyPublic,
			Items: []ListItem{
				{Media: catalog[5], Tracking: map[string]*TrackState{
					"admin1": {Status: StatusWatched, ProgressMinutes: 97},
				}},
			},
			Reactions: []Reaction{
				{ID: "r3", UserID: "u3", Emoji: "❤️", Timestamp: nowMillis},
			},
			Comments: []Comment{},
			BadgeReward: &Badge{
				ID: "b_beets", Name: "Beet Master",
				Description: "You have learned the way of the Schrute.",
				Icon:        "fa-leaf", Type: BadgeCommunity, RelatedListID: "l2",
			},
			CreatedAt: nowMillis - 24*time.Hour.Milliseconds(),
		},
	}

	return &Document{
		SchemaVersion: SchemaVersion,
		Users:         users,
		Lists:         lists,
		Reports:       []*Report{},
		Notifications: []*Notification{},
		AdminLogs:     []*AdminLog{},
		Blacklist:     []BannedEmail{},
		GlobalBadges:  SystemBadges(),
	}
}

// demoHash hashes seed credentials at minimum cost; these are demo accounts.
func demoHash(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return ""
	}
	return string(hash)
}
