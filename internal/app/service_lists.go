package app

import (
	"context"
	"sort"
	"strings"

	"watchquest/api/internal/achievements"
	"watchquest/api/internal/rbac"
	"watchquest/api/internal/store"
	"watchquest/api/internal/util"
)

type BadgeRewardInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type CreateListInput struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    store.ListCategory `json:"category"`
	Privacy     store.PrivacyLevel `json:"privacy"`
	BadgeReward *BadgeRewardInput  `json:"badgeReward,omitempty"`
}

// CreateList creates a list, optionally with a community badge reward that
// completers earn. The reward's relatedListId points back at the list.
func (s *Service) CreateList(ctx context.Context, input CreateListInput) (*store.MediaList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errValidation("List title is required")
	}
	if err := validateCategory(input.Category); err != nil {
		return nil, err
	}
	if err := validatePrivacy(input.Privacy); err != nil {
		return nil, err
	}

	now := s.now()
	list := &store.MediaList{
		ID:            util.NewID("l"),
		CreatorID:     user.ID,
		CreatorName:   user.Name,
		CreatorAvatar: user.Avatar,
		Title:         title,
		Description:   input.Description,
		Category:      input.Category,
		Privacy:       input.Privacy,
		Items:         []store.ListItem{},
		Reactions:     []store.Reaction{},
		Comments:      []store.Comment{},
		CreatedAt:     now.UnixMilli(),
	}
	if input.BadgeReward != nil {
		if strings.TrimSpace(input.BadgeReward.Name) == "" {
			return nil, errValidation("Badge reward needs a name")
		}
		list.BadgeReward = &store.Badge{
			ID:            util.NewID("b"),
			Name:          input.BadgeReward.Name,
			Description:   input.BadgeReward.Description,
			Icon:          input.BadgeReward.Icon,
			Type:          store.BadgeCommunity,
			RelatedListID: list.ID,
		}
	}

	doc := s.doc()
	doc.Lists = append(doc.Lists, list)
	s.notifyBadgeGrants(user, achievements.Evaluate(doc, user.ID, now))

	if err := s.persist(); err != nil {
		return nil, err
	}
	s.indexList(list)
	return list, nil
}

type UpdateListInput struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    store.ListCategory `json:"category"`
	Privacy     store.PrivacyLevel `json:"privacy"`
}

func (s *Service) UpdateList(ctx context.Context, listID string, input UpdateListInput) (*store.MediaList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	list := s.doc().ListByID(listID)
	if list == nil {
		return nil, errNotFound("List not found")
	}
	if list.CreatorID != user.ID {
		return nil, errForbidden("Only the creator can edit a list")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errValidation("List title is required")
	}
	if err := validateCategory(input.Category); err != nil {
		return nil, err
	}
	if err := validatePrivacy(input.Privacy); err != nil {
		return nil, err
	}

	list.Title = title
	list.Description = input.Description
	list.Category = input.Category
	list.Privacy = input.Privacy

	if err := s.persist(); err != nil {
		return nil, err
	}
	s.indexList(list)
	return list, nil
}

// GetList returns a list the viewer is allowed to see.
func (s *Service) GetList(ctx context.Context, listID string) (*store.MediaList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.doc().ListByID(listID)
	if list == nil {
		return nil, errNotFound("List not found")
	}
	if !s.canViewList(s.viewerID(ctx), list) {
		return nil, errForbidden("This list is private")
	}
	return list, nil
}

func (s *Service) canViewList(viewerID string, list *store.MediaList) bool {
	if viewerID == list.CreatorID {
		return true
	}
	if viewer := s.doc().UserByID(viewerID); viewer != nil && rbac.Can(rbac.Normalize(viewer.Role), rbac.ActionModerate) {
		return true
	}
	switch list.Privacy {
	case store.PrivacyPublic:
		return true
	case store.PrivacyFollowers:
		viewer := s.doc().UserByID(viewerID)
		return viewer != nil && containsString(viewer.FollowingIDs, list.CreatorID)
	default:
		return false
	}
}

// Feed returns public lists, newest first.
func (s *Service) Feed(ctx context.Context) []*store.MediaList {
	s.mu.Lock()
	defer s.mu.Unlock()

	var feed []*store.MediaList
	for _, list := range s.doc().Lists {
		if list.Privacy == store.PrivacyPublic {
			feed = append(feed, list)
		}
	}
	sort.Slice(feed, func(i, j int) bool { return feed[i].CreatedAt > feed[j].CreatedAt })
	return feed
}

func (s *Service) MyLists(ctx context.Context) ([]*store.MediaList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.listsOfLocked(user.ID), nil
}

// UserLists returns another user's lists, filtered to what the viewer may
// see.
func (s *Service) UserLists(ctx context.Context, userID string) ([]*store.MediaList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc().UserByID(userID) == nil {
		return nil, errNotFound("User not found")
	}
	viewer := s.viewerID(ctx)
	var lists []*store.MediaList
	for _, list := range s.listsOfLocked(userID) {
		if s.canViewList(viewer, list) {
			lists = append(lists, list)
		}
	}
	return lists, nil
}

func (s *Service) listsOfLocked(userID string) []*store.MediaList {
	var lists []*store.MediaList
	for _, list := range s.doc().Lists {
		if list.CreatorID == userID {
			lists = append(lists, list)
		}
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].CreatedAt > lists[j].CreatedAt })
	return lists
}

func (s *Service) FollowedLists(ctx context.Context) ([]*store.MediaList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	var lists []*store.MediaList
	for _, listID := range user.FollowedListIDs {
		if list := s.doc().ListByID(listID); list != nil {
			lists = append(lists, list)
		}
	}
	return lists, nil
}

// SimilarLists returns public lists in the same category ranked by how many
// titles they share with the given list.
func (s *Service) SimilarLists(ctx context.Context, listID string) ([]*store.MediaList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.doc().ListByID(listID)
	if list == nil {
		return nil, errNotFound("List not found")
	}
	if !s.canViewList(s.viewerID(ctx), list) {
		return nil, errForbidden("This list is private")
	}

	mediaIDs := make(map[string]struct{}, len(list.Items))
	for _, item := range list.Items {
		mediaIDs[item.Media.ID] = struct{}{}
	}

	type scored struct {
		list    *store.MediaList
		overlap int
	}
	var candidates []scored
	for _, other := range s.doc().Lists {
		if other.ID == list.ID || other.Privacy != store.PrivacyPublic || other.Category != list.Category {
			continue
		}
		overlap := 0
		for _, item := range other.Items {
			if _, ok := mediaIDs[item.Media.ID]; ok {
				overlap++
			}
		}
		candidates = append(candidates, scored{list: other, overlap: overlap})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].overlap != candidates[j].overlap {
			return candidates[i].overlap > candidates[j].overlap
		}
		return candidates[i].list.CreatedAt > candidates[j].list.CreatedAt
	})

	similar := make([]*store.MediaList, 0, len(candidates))
	for _, c := range candidates {
		similar = append(similar, c.list)
	}
	return similar, nil
}

// ListStats is the social summary of one list.
type ListStats struct {
	Items     int `json:"items"`
	Followers int `json:"followers"`
	Reactions int `json:"reactions"`
	Comments  int `json:"comments"`
}

func (s *Service) ListStats(ctx context.Context, listID string) (ListStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.doc().ListByID(listID)
	if list == nil {
		return ListStats{}, errNotFound("List not found")
	}
	if !s.canViewList(s.viewerID(ctx), list) {
		return ListStats{}, errForbidden("This list is private")
	}

	stats := ListStats{
		Items:     len(list.Items),
		Reactions: len(list.Reactions),
	}
	for _, comment := range list.Comments {
		stats.Comments += 1 + len(comment.Replies)
	}
	for _, user := range s.doc().Users {
		if containsString(user.FollowedListIDs, list.ID) {
			stats.Followers++
		}
	}
	return stats, nil
}

// AddItems appends titles to an owned list, skipping ones already present.
func (s *Service) AddItems(ctx context.Context, listID string, media []store.Media) (*store.MediaList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	list := s.doc().ListByID(listID)
	if list == nil {
		return nil, errNotFound("List not found")
	}
	if list.CreatorID != user.ID {
		return nil, errForbidden("Only the creator can add titles")
	}
	if len(media) == 0 {
		return nil, errValidation("No titles to add")
	}

	for _, m := range media {
		if m.ID == "" || strings.TrimSpace(m.Title) == "" {
			return nil, errValidation("Titles need an id and a name")
		}
		if list.ItemByMediaID(m.ID) != nil {
			continue
		}
		list.Items = append(list.Items, store.ListItem{
			Media:    m,
			Tracking: map[string]*store.TrackState{},
		})
	}
	s.notifyBadgeGrants(user, achievements.Evaluate(s.doc(), user.ID, s.now()))

	if err := s.persist(); err != nil {
		return nil, err
	}
	return list, nil
}

// RemoveItem drops a title from an owned list, along with everyone's
// tracking state for it.
func (s *Service) RemoveItem(ctx context.Context, listID, mediaID string) error {
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
	if list.CreatorID != user.ID {
		return errForbidden("Only the creator can remove titles")
	}
	items := list.Items[:0]
	found := false
	for _, item := range list.Items {
		if item.Media.ID == mediaID {
			found = true
			continue
		}
		items = append(items, item)
	}
	if !found {
		return errNotFound("Title is not in this list")
	}
	list.Items = items
	return s.persist()
}

// DeleteList removes a list. Admins may remove any list; that leaves an
// audit entry.
func (s *Service) DeleteList(ctx context.Context, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return err
	}
	doc := s.doc()
	list := doc.ListByID(listID)
	if list == nil {
		return errNotFound("List not found")
	}
	isAdmin := rbac.Can(rbac.Normalize(user.Role), rbac.ActionModerate)
	if list.CreatorID != user.ID && !isAdmin {
		return errForbidden("Only the creator can delete a list")
	}

	lists := doc.Lists[:0]
	for _, other := range doc.Lists {
		if other.ID != listID {
			lists = append(lists, other)
		}
	}
	doc.Lists = lists
	for _, other := range doc.Users {
		other.FollowedListIDs = removeString(other.FollowedListIDs, listID)
	}
	if isAdmin && list.CreatorID != user.ID {
		s.appendAdminLog(user, "delete_list", list.CreatorID)
	}

	if err := s.persist(); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteList(listID)
	}
	return nil
}

func validateCategory(category store.ListCategory) error {
	switch category {
	case store.CategoryGeneral, store.CategoryGenre, store.CategoryArtDirector,
		store.CategoryActorFocus, store.CategoryChallenge:
		return nil
	default:
		return errValidation("Unknown list category")
	}
}

func validatePrivacy(privacy store.PrivacyLevel) error {
	switch privacy {
	case store.PrivacyPublic, store.PrivacyFollowers, store.PrivacyPrivate:
		return nil
	default:
		return errValidation("Unknown privacy level")
	}
}
