package app

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"watchquest/api/internal/achievements"
	"watchquest/api/internal/authpw"
	"watchquest/api/internal/rbac"
	"watchquest/api/internal/store"
	"watchquest/api/internal/util"
)

// FollowUser makes the caller follow target. Idempotent; counters move on
// both sides only when the edge is new.
func (s *Service) FollowUser(ctx context.Context, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return err
	}
	if targetID == user.ID {
		return errValidation("You cannot follow yourself")
	}
	target := s.doc().UserByID(targetID)
	if target == nil {
		return errNotFound("User not found")
	}
	if containsString(user.FollowingIDs, targetID) {
		return nil
	}

	user.FollowingIDs = append(user.FollowingIDs, targetID)
	user.Following++
	target.Followers++

	s.notify(target, store.Notification{
		Type:    store.NotifyFollow,
		ActorID: user.ID, ActorName: user.Name, ActorAvatar: user.Avatar,
	})
	s.notifyBadgeGrants(target, achievements.Evaluate(s.doc(), targetID, s.now()))

	return s.persist()
}

// UnfollowUser removes the edge if present. Counters floor at zero.
func (s *Service) UnfollowUser(ctx context.Context, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return err
	}
	if !containsString(user.FollowingIDs, targetID) {
		return nil
	}
	user.FollowingIDs = removeString(user.FollowingIDs, targetID)
	if user.Following > 0 {
		user.Following--
	}
	if target := s.doc().UserByID(targetID); target != nil && target.Followers > 0 {
		target.Followers--
	}
	return s.persist()
}

// Followers scans the graph for users following the given user.
func (s *Service) Followers(ctx context.Context, userID string) ([]*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc().UserByID(userID) == nil {
		return nil, errNotFound("User not found")
	}
	var followers []*store.User
	for _, user := range s.doc().Users {
		if containsString(user.FollowingIDs, userID) {
			followers = append(followers, user)
		}
	}
	return followers, nil
}

// Following resolves the users the given user follows.
func (s *Service) Following(ctx context.Context, userID string) ([]*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.doc().UserByID(userID)
	if user == nil {
		return nil, errNotFound("User not found")
	}
	var following []*store.User
	for _, id := range user.FollowingIDs {
		if followed := s.doc().UserByID(id); followed != nil {
			following = append(following, followed)
		}
	}
	return following, nil
}

// FollowList subscribes the caller to someone else's list.
func (s *Service) FollowList(ctx context.Context, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return err
	}
	list := s.doc().ListByID(listID)
	if list == nil {
		return errNotFound("List not found")
	}
	if list.CreatorID == user.ID {
		return errValidation("You cannot follow your own list")
	}
	if !s.canViewList(user.ID, list) {
		return errForbidden("This list is private")
	}
	if containsString(user.FollowedListIDs, listID) {
		return nil
	}
	user.FollowedListIDs = append(user.FollowedListIDs, listID)

	if creator := s.doc().UserByID(list.CreatorID); creator != nil {
		s.notify(creator, store.Notification{
			Type:    store.NotifyFollow,
			ActorID: user.ID, ActorName: user.Name, ActorAvatar: user.Avatar,
			TargetID: list.ID, TargetPreview: list.Title,
		})
	}
	return s.persist()
}

func (s *Service) UnfollowList(ctx context.Context, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return err
	}
	if !containsString(user.FollowedListIDs, listID) {
		return nil
	}
	user.FollowedListIDs = removeString(user.FollowedListIDs, listID)
	return s.persist()
}

// ToggleReaction sets the caller's reaction on a list. One reaction per
// user per list: the same emoji clears it, a different emoji replaces it.
// Only a brand-new reaction notifies the creator.
func (s *Service) ToggleReaction(ctx context.Context, listID, emoji string) (*store.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, errValidation("Emoji is required")
	}
	list := s.doc().ListByID(listID)
	if list == nil {
		return nil, errNotFound("List not found")
	}
	if !s.canViewList(user.ID, list) {
		return nil, errForbidden("This list is private")
	}

	now := s.now().UnixMilli()
	for i := range list.Reactions {
		if list.Reactions[i].UserID != user.ID {
			continue
		}
		if list.Reactions[i].Emoji == emoji {
			list.Reactions = append(list.Reactions[:i], list.Reactions[i+1:]...)
			return nil, s.persist()
		}
		list.Reactions[i].Emoji = emoji
		list.Reactions[i].Timestamp = now
		reaction := list.Reactions[i]
		return &reaction, s.persist()
	}

	reaction := store.Reaction{
		ID:        util.NewID("r"),
		UserID:    user.ID,
		Emoji:     emoji,
		Timestamp: now,
	}
	list.Reactions = append(list.Reactions, reaction)

	if creator := s.doc().UserByID(list.CreatorID); creator != nil {
		s.notify(creator, store.Notification{
			Type:    store.NotifyLike,
			ActorID: user.ID, ActorName: user.Name, ActorAvatar: user.Avatar,
			TargetID: list.ID, TargetPreview: list.Title,
		})
	}
	s.notifyBadgeGrants(user, achievements.Evaluate(s.doc(), user.ID, s.now()))

	if err := s.persist(); err != nil {
		return nil, err
	}
	return &reaction, nil
}

var mentionRe = regexp.MustCompile(`@([A-Za-z0-9_]{3,24})`)

// AddComment posts a comment or a reply. Replies are one level deep: the
// parent must be a top-level comment. Fan-out goes to the list creator, the
// parent author and every mentioned user, each at most once, self excluded,
// gated by their settings.
func (s *Service) AddComment(ctx context.Context, listID, parentID, text string) (*store.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errValidation("Comment text is required")
	}
	if len(text) > 2000 {
		return nil, errValidation("Comment is too long")
	}
	list := s.doc().ListByID(listID)
	if list == nil {
		return nil, errNotFound("List not found")
	}
	if !s.canViewList(user.ID, list) {
		return nil, errForbidden("This list is private")
	}

	comment := store.Comment{
		ID:         util.NewID("c"),
		UserID:     user.ID,
		UserName:   user.Name,
		UserAvatar: user.Avatar,
		Text:       text,
		Timestamp:  s.now().UnixMilli(),
		Replies:    []store.Comment{},
	}

	var parentAuthorID string
	if parentID == "" {
		list.Comments = append(list.Comments, comment)
	} else {
		parent := topLevelComment(list, parentID)
		if parent == nil {
			if replyExists(list, parentID) {
				return nil, errValidation("Replies cannot be nested")
			}
			return nil, errNotFound("Comment not found")
		}
		parent.Replies = append(parent.Replies, comment)
		parentAuthorID = parent.UserID
	}

	notified := map[string]bool{user.ID: true}
	for _, handle := range mentionedHandles(text) {
		mentioned := s.userByHandleLocked(handle)
		if mentioned == nil || notified[mentioned.ID] {
			continue
		}
		notified[mentioned.ID] = true
		s.notify(mentioned, store.Notification{
			Type:    store.NotifyMention,
			ActorID: user.ID, ActorName: user.Name, ActorAvatar: user.Avatar,
			TargetID: list.ID, TargetPreview: preview(text),
		})
	}
	for _, recipientID := range []string{parentAuthorID, list.CreatorID} {
		recipient := s.doc().UserByID(recipientID)
		if recipient == nil || notified[recipient.ID] {
			continue
		}
		notified[recipient.ID] = true
		s.notify(recipient, store.Notification{
			Type:    store.NotifyComment,
			ActorID: user.ID, ActorName: user.Name, ActorAvatar: user.Avatar,
			TargetID: list.ID, TargetPreview: preview(text),
		})
	}

	if err := s.persist(); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment or a reply. Allowed for the comment
// author, the list creator, and admins; everyone else is rejected.
func (s *Service) DeleteComment(ctx context.Context, listID, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return err
	}
	list := s.doc().ListByID(listID)
	if list == nil {
		return errNotFound("List not found")
	}

	authorID, ok := commentAuthor(list.Comments, commentID)
	if !ok {
		return errNotFound("Comment not found")
	}
	isAdmin := rbac.Can(rbac.Normalize(user.Role), rbac.ActionModerate)
	if user.ID != authorID && user.ID != list.CreatorID && !isAdmin {
		return errForbidden("You cannot delete this comment")
	}

	list.Comments = removeComment(list.Comments, commentID)
	return s.persist()
}

// ActivityItem is one event in the followed-users feed.
type ActivityItem struct {
	Type      string `json:"type"`
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName"`
	ListID    string `json:"listId"`
	ListTitle string `json:"listTitle"`
	Timestamp int64  `json:"timestamp"`
}

// ActivityFeed returns recent list creations and reactions by users the
// caller follows, newest first.
func (s *Service) ActivityFeed(ctx context.Context) ([]ActivityItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	followed := make(map[string]*store.User, len(user.FollowingIDs))
	for _, id := range user.FollowingIDs {
		if u := s.doc().UserByID(id); u != nil {
			followed[id] = u
		}
	}

	var feed []ActivityItem
	for _, list := range s.doc().Lists {
		if !s.canViewList(user.ID, list) {
			continue
		}
		if creator, ok := followed[list.CreatorID]; ok {
			feed = append(feed, ActivityItem{
				Type:    "list_created",
				ActorID: creator.ID, ActorName: creator.Name,
				ListID: list.ID, ListTitle: list.Title,
				Timestamp: list.CreatedAt,
			})
		}
		for _, reaction := range list.Reactions {
			if actor, ok := followed[reaction.UserID]; ok {
				feed = append(feed, ActivityItem{
					Type:    "reacted",
					ActorID: actor.ID, ActorName: actor.Name,
					ListID: list.ID, ListTitle: list.Title,
					Timestamp: reaction.Timestamp,
				})
			}
		}
	}
	sort.Slice(feed, func(i, j int) bool { return feed[i].Timestamp > feed[j].Timestamp })
	if len(feed) > 30 {
		feed = feed[:30]
	}
	return feed, nil
}

// Notifications returns the caller's notifications, newest first.
func (s *Service) Notifications(ctx context.Context) ([]*store.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	var mine []*store.Notification
	for _, n := range s.doc().Notifications {
		if n.UserID == user.ID {
			mine = append(mine, n)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].Timestamp > mine[j].Timestamp })
	return mine, nil
}

func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range s.doc().Notifications {
		if n.UserID == user.ID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *Service) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return err
	}
	changed := false
	for _, n := range s.doc().Notifications {
		if n.UserID == user.ID && !n.IsRead {
			n.IsRead = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.persist()
}

// notify appends a notification for recipient, honoring their settings.
// Moderation notices (admin responses, strike alerts) are never gated;
// notifications about your own actions are never delivered.
func (s *Service) notify(recipient *store.User, n store.Notification) {
	if recipient == nil || n.ActorID == recipient.ID {
		return
	}
	settings := recipient.NotificationSettings
	switch n.Type {
	case store.NotifyLike:
		if !settings.Likes {
			return
		}
	case store.NotifyComment:
		if !settings.Comments {
			return
		}
	case store.NotifyFollow:
		if !settings.Follows {
			return
		}
	case store.NotifyMention:
		if !settings.Mentions {
			return
		}
	case store.NotifyAdminResponse, store.NotifyStrikeAlert:
		// always delivered
	}

	n.ID = util.NewID("n")
	n.UserID = recipient.ID
	n.Timestamp = s.now().UnixMilli()
	s.doc().Notifications = append(s.doc().Notifications, &n)
}

// notifyBadgeGrant records an "Achievement unlocked" notice. Grants travel
// on the mention wire type but skip the preference gates: there is no
// settings flag for badges, and the grant is a system or admin action. A
// nil actor means the system granted it.
func (s *Service) notifyBadgeGrant(recipient *store.User, actor *store.User, badge store.Badge) {
	n := &store.Notification{
		ID:            util.NewID("n"),
		UserID:        recipient.ID,
		Type:          store.NotifyMention,
		TargetPreview: "Achievement unlocked: " + badge.Name,
		Timestamp:     s.now().UnixMilli(),
	}
	if actor != nil {
		n.ActorID = actor.ID
		n.ActorName = actor.Name
		n.ActorAvatar = actor.Avatar
	}
	s.doc().Notifications = append(s.doc().Notifications, n)
}

func (s *Service) notifyBadgeGrants(recipient *store.User, granted []store.Badge) {
	for _, badge := range granted {
		s.notifyBadgeGrant(recipient, nil, badge)
	}
}

func (s *Service) userByHandleLocked(handle string) *store.User {
	for _, user := range s.doc().Users {
		if authpw.NormalizeHandle(user.Handle) == handle {
			return user
		}
	}
	return nil
}

func mentionedHandles(text string) []string {
	var handles []string
	seen := map[string]bool{}
	for _, match := range mentionRe.FindAllStringSubmatch(text, -1) {
		handle := strings.ToLower(match[1])
		if !seen[handle] {
			seen[handle] = true
			handles = append(handles, handle)
		}
	}
	return handles
}

// preview truncates on rune boundaries so multi-byte text stays valid.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= 80 {
		return text
	}
	return string(runes[:77]) + "..."
}

func topLevelComment(list *store.MediaList, commentID string) *store.Comment {
	for i := range list.Comments {
		if list.Comments[i].ID == commentID {
			return &list.Comments[i]
		}
	}
	return nil
}

func replyExists(list *store.MediaList, commentID string) bool {
	for _, comment := range list.Comments {
		for _, reply := range comment.Replies {
			if reply.ID == commentID {
				return true
			}
		}
	}
	return false
}

func commentAuthor(comments []store.Comment, commentID string) (string, bool) {
	for _, comment := range comments {
		if comment.ID == commentID {
			return comment.UserID, true
		}
		if author, ok := commentAuthor(comment.Replies, commentID); ok {
			return author, ok
		}
	}
	return "", false
}

func removeComment(comments []store.Comment, commentID string) []store.Comment {
	out := comments[:0]
	for _, comment := range comments {
		if comment.ID == commentID {
			continue
		}
		comment.Replies = removeComment(comment.Replies, commentID)
		out = append(out, comment)
	}
	return out
}
