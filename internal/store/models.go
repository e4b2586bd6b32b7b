package store

// MediaType classifies a catalog title.
type MediaType string

const (
	MediaMovie   MediaType = "Movie"
	MediaSeries  MediaType = "Series"
	MediaAnime   MediaType = "Anime"
	MediaCartoon MediaType = "Cartoon"
)

// IsSeries reports whether the type tracks progress per episode.
func (t MediaType) IsSeries() bool { return t != MediaMovie }

// WatchStatus is the per-tracker state of a list item.
type WatchStatus string

const (
	StatusUnwatched WatchStatus = "Unwatched"
	StatusWatching  WatchStatus = "Watching"
	StatusWatched   WatchStatus = "Watched"
)

// PrivacyLevel controls who can see a profile or list.
type PrivacyLevel string

const (
	PrivacyPublic    PrivacyLevel = "Public"
	PrivacyFollowers PrivacyLevel = "Followers Only"
	PrivacyPrivate   PrivacyLevel = "Private"
)

type BadgeType string

const (
	BadgeOfficial  BadgeType = "official"
	BadgeCommunity BadgeType = "community"
)

type ListCategory string

const (
	CategoryGeneral     ListCategory = "General"
	CategoryGenre       ListCategory = "Genre Based"
	CategoryArtDirector ListCategory = "Art Director Focus"
	CategoryActorFocus  ListCategory = "Actor Focus"
	CategoryChallenge   ListCategory = "Challenge"
)

type ReportReason string

const (
	ReasonInappropriate ReportReason = "INAPPROPRIATE_CONTENT"
	ReasonIncorrectInfo ReportReason = "INCORRECT_INFO"
	ReasonSpam          ReportReason = "SPAM"
	ReasonOther         ReportReason = "OTHER"
)

type NotificationType string

const (
	NotifyLike          NotificationType = "like"
	NotifyComment       NotificationType = "comment"
	NotifyFollow        NotificationType = "follow"
	NotifyMention       NotificationType = "mention"
	NotifyAdminResponse NotificationType = "admin_response"
	NotifyStrikeAlert   NotificationType = "strike_alert"
)

// Episode is one resolved episode of a season.
type Episode struct {
	EpisodeNumber int      `json:"episodeNumber"`
	Rating        *float64 `json:"rating,omitempty"`
}

// Season is a season entry. EpisodesCount == 0 means the season has not been
// resolved against the catalog provider yet.
type Season struct {
	SeasonNumber  int       `json:"seasonNumber"`
	EpisodesCount int       `json:"episodesCount"`
	Episodes      []Episode `json:"episodes,omitempty"`
}

// Media is a catalog title. IDs are either local ("m…") or provider IDs
// ("tt…"); the two spaces never collide.
type Media struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Year         int       `json:"year"`
	Duration     string    `json:"duration"`
	Rating       float64   `json:"rating"`
	Poster       string    `json:"poster"`
	Synopsis     string    `json:"synopsis"`
	AvailableOn  []string  `json:"availableOn"`
	Type         MediaType `json:"type"`
	TotalSeasons int       `json:"totalSeasons,omitempty"`
	SeasonsData  []Season  `json:"seasonsData,omitempty"`
}

// TrackState is one user's watch state for one list item. Movies use
// ProgressMinutes; series use the cursor plus WatchedHistory, whose "SxEy"
// markers are the source of truth for episode completion.
type TrackState struct {
	Status          WatchStatus `json:"status"`
	ProgressMinutes int         `json:"progressMinutes,omitempty"`
	CurrentSeason   int         `json:"currentSeason,omitempty"`
	CurrentEpisode  int         `json:"currentEpisode,omitempty"`
	WatchedHistory  []string    `json:"watchedHistory,omitempty"`
}

// ListItem is one title inside a list. Tracking is keyed by user ID so that
// followers of a list track their own progress independently of the creator.
type ListItem struct {
	Media    Media                  `json:"media"`
	Tracking map[string]*TrackState `json:"tracking"`
}

type Reaction struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Emoji     string `json:"emoji"`
	Timestamp int64  `json:"timestamp"`
}

// Comment is a list comment. The stored shape is recursive but the contract is
// two levels: replies never receive replies of their own.
type Comment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar string    `json:"userAvatar"`
	Text       string    `json:"text"`
	Timestamp  int64     `json:"timestamp"`
	Replies    []Comment `json:"replies"`
}

// Badge is an achievement definition or a per-user grant. Grants are copies:
// later edits to a registry definition never change already-granted badges.
type Badge struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	Type          BadgeType `json:"type"`
	EarnedDate    string    `json:"earnedDate,omitempty"`
	RelatedListID string    `json:"relatedListId,omitempty"`
}

type MediaList struct {
	ID            string       `json:"id"`
	CreatorID     string       `json:"creatorId"`
	CreatorName   string       `json:"creatorName"`
	CreatorAvatar string       `json:"creatorAvatar"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Category      ListCategory `json:"category"`
	Privacy       PrivacyLevel `json:"privacy"`
	Items         []ListItem   `json:"items"`
	Reactions     []Reaction   `json:"reactions"`
	Comments      []Comment    `json:"comments"`
	BadgeReward   *Badge       `json:"badgeReward,omitempty"`
	CreatedAt     int64        `json:"createdAt"`
}

type NotificationSettings struct {
	Likes    bool `json:"likes"`
	Comments bool `json:"comments"`
	Follows  bool `json:"follows"`
	Mentions bool `json:"mentions"`
}

type Strike struct {
	ID              string `json:"id"`
	Reason          string `json:"reason"`
	Timestamp       int64  `json:"timestamp"`
	ExpiresAt       int64  `json:"expiresAt"`
	IssuedByAdminID string `json:"issuedByAdminId"`
}

type User struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	Handle               string               `json:"handle"`
	Email                string               `json:"email"`
	PasswordHash         string               `json:"passwordHash"`
	Role                 string               `json:"role"`
	Avatar               string               `json:"avatar"`
	CoverImage           string               `json:"coverImage,omitempty"`
	Bio                  string               `json:"bio"`
	Country              string               `json:"country"`
	Privacy              PrivacyLevel         `json:"privacy"`
	Followers            int                  `json:"followers"`
	Following            int                  `json:"following"`
	FollowingIDs         []string             `json:"followingIds"`
	FollowedListIDs      []string             `json:"followedListIds"`
	JoinedAt             int64                `json:"joinedAt"`
	Badges               []Badge              `json:"badges"`
	NotificationSettings NotificationSettings `json:"notificationSettings"`
	Strikes              []Strike             `json:"strikes"`
	IsPermanentlyBanned  bool                 `json:"isPermanentlyBanned"`
	BanReason            string               `json:"banReason,omitempty"`
	HiddenPatchIDs       []string             `json:"hiddenPatchIds"`
	HiddenBadgeIDs       []string             `json:"hiddenBadgeIds"`
}

type AdminLog struct {
	ID           string `json:"id"`
	ActionType   string `json:"actionType"`
	AdminName    string `json:"adminName"`
	TargetUserID string `json:"targetUserId"`
	Timestamp    int64  `json:"timestamp"`
}

type BannedEmail struct {
	Email    string `json:"email"`
	BannedAt int64  `json:"bannedAt"`
	Reason   string `json:"reason"`
}

type Report struct {
	ID            string       `json:"id"`
	ReporterID    string       `json:"reporterId"`
	ReporterName  string       `json:"reporterName"`
	TargetID      string       `json:"targetId"`
	TargetType    string       `json:"targetType"`
	Reason        ReportReason `json:"reason"`
	Details       string       `json:"details"`
	Timestamp     int64        `json:"timestamp"`
	Status        string       `json:"status"`
	AdminResponse string       `json:"adminResponse,omitempty"`
	RespondedAt   int64        `json:"respondedAt,omitempty"`
}

type Notification struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	Type          NotificationType `json:"type"`
	ActorID       string           `json:"actorId"`
	ActorName     string           `json:"actorName"`
	ActorAvatar   string           `json:"actorAvatar"`
	TargetID      string           `json:"targetId,omitempty"`
	TargetPreview string           `json:"targetPreview,omitempty"`
	IsRead        bool             `json:"isRead"`
	Timestamp     int64            `json:"timestamp"`
}

// Document is the entire persisted state. Every mutation re-serializes the
// whole document; there is no partial persistence.
type Document struct {
	SchemaVersion int             `json:"schemaVersion"`
	Users         []*User         `json:"users"`
	Lists         []*MediaList    `json:"lists"`
	Reports       []*Report       `json:"reports"`
	Notifications []*Notification `json:"notifications"`
	AdminLogs     []*AdminLog     `json:"adminLogs"`
	Blacklist     []BannedEmail   `json:"blacklist"`
	GlobalBadges  []Badge         `json:"globalBadges"`
}

// UserByID returns the user with the given id, or nil.
func (d *Document) UserByID(id string) *User {
	for _, u := range d.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// ListByID returns the list with the given id, or nil.
func (d *Document) ListByID(id string) *MediaList {
	for _, l := range d.Lists {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// ItemByMediaID returns the item holding the given media, or nil.
func (l *MediaList) ItemByMediaID(mediaID string) *ListItem {
	for i := range l.Items {
		if l.Items[i].Media.ID == mediaID {
			return &l.Items[i]
		}
	}
	return nil
}

// Track returns the tracking state for userID, creating an empty one the first
// time a user touches this item.
func (it *ListItem) Track(userID string) *TrackState {
	if it.Tracking == nil {
		it.Tracking = make(map[string]*TrackState)
	}
	state, ok := it.Tracking[userID]
	if !ok {
		state = &TrackState{Status: StatusUnwatched}
		if it.Media.Type.IsSeries() {
			state.CurrentSeason = 1
			state.WatchedHistory = []string{}
		}
		it.Tracking[userID] = state
	}
	return state
}
