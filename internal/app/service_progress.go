package app

import (
	"context"

	"watchquest/api/internal/achievements"
	"watchquest/api/internal/progress"
	"watchquest/api/internal/store"
)

// ProgressResult is returned by every progress mutation: the caller's new
// list completion percentage and whether this mutation crossed 100 for the
// first time.
type ProgressResult struct {
	Progress      int  `json:"progress"`
	JustCompleted bool `json:"justCompleted"`
}

// SetItemStatus applies a direct status set on one item for the caller.
func (s *Service) SetItemStatus(ctx context.Context, listID, mediaID string, status store.WatchStatus) (ProgressResult, error) {
	switch status {
	case store.StatusUnwatched, store.StatusWatching, store.StatusWatched:
	default:
		return ProgressResult{}, errValidation("Unknown watch status")
	}
	return s.mutateTracking(ctx, listID, mediaID, func(m store.Media, state *store.TrackState) {
		progress.SetStatus(m, state, status)
	})
}

// SetItemMinutes records movie progress in minutes.
func (s *Service) SetItemMinutes(ctx context.Context, listID, mediaID string, minutes int) (ProgressResult, error) {
	return s.mutateTracking(ctx, listID, mediaID, func(m store.Media, state *store.TrackState) {
		progress.SetMinutes(m, state, minutes)
	})
}

// ToggleItemEpisode flips one episode marker for the caller.
func (s *Service) ToggleItemEpisode(ctx context.Context, listID, mediaID string, season, episode int) (ProgressResult, error) {
	if season < 1 || episode < 1 {
		return ProgressResult{}, errValidation("Season and episode start at 1")
	}
	return s.mutateTracking(ctx, listID, mediaID, func(m store.Media, state *store.TrackState) {
		progress.ToggleEpisode(m, state, season, episode)
	})
}

// MarkItemThroughEpisode marks a season as watched up to and including the
// given episode.
func (s *Service) MarkItemThroughEpisode(ctx context.Context, listID, mediaID string, season, episode int) (ProgressResult, error) {
	if season < 1 || episode < 1 {
		return ProgressResult{}, errValidation("Season and episode start at 1")
	}
	return s.mutateTracking(ctx, listID, mediaID, func(m store.Media, state *store.TrackState) {
		progress.MarkThroughEpisode(m, state, season, episode)
	})
}

// SetItemSeason moves the caller's season cursor, resolving the season's
// episode list from the catalog first when it is still a skeleton.
func (s *Service) SetItemSeason(ctx context.Context, listID, mediaID string, season int) (ProgressResult, error) {
	if season < 1 {
		return ProgressResult{}, errValidation("Season starts at 1")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return ProgressResult{}, err
	}
	list, item, err := s.trackableItem(ctx, listID, mediaID)
	if err != nil {
		return ProgressResult{}, err
	}
	if s.catalog != nil {
		s.catalog.ResolveSeasonEpisodes(ctx, &item.Media, season)
	}
	state := item.Track(user.ID)
	progress.SetSeasonCursor(state, season)

	result := ProgressResult{Progress: progress.ListPercent(list, user.ID)}
	if err := s.persist(); err != nil {
		return ProgressResult{}, err
	}
	return result, nil
}

// ListProgress is the caller's completion percentage for one list.
func (s *Service) ListProgress(ctx context.Context, listID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return 0, err
	}
	list := s.doc().ListByID(listID)
	if list == nil {
		return 0, errNotFound("List not found")
	}
	if !s.canViewList(user.ID, list) {
		return 0, errForbidden("This list is private")
	}
	return progress.ListPercent(list, user.ID), nil
}

// mutateTracking runs one progress mutation for the caller and computes the
// completion signal: it fires exactly when the mutation moves the caller's
// list percentage from below 100 to 100. Completion grants the list's badge
// reward once and re-evaluates achievements.
func (s *Service) mutateTracking(ctx context.Context, listID, mediaID string, fn func(store.Media, *store.TrackState)) (ProgressResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return ProgressResult{}, err
	}
	list, item, err := s.trackableItem(ctx, listID, mediaID)
	if err != nil {
		return ProgressResult{}, err
	}

	state := item.Track(user.ID)
	before := progress.ListPercent(list, user.ID)
	fn(item.Media, state)
	after := progress.ListPercent(list, user.ID)

	result := ProgressResult{
		Progress:      after,
		JustCompleted: before < 100 && after == 100,
	}
	if result.JustCompleted {
		s.grantListReward(user, list)
		s.notifyBadgeGrants(user, achievements.Evaluate(s.doc(), user.ID, s.now()))
	}

	if err := s.persist(); err != nil {
		return ProgressResult{}, err
	}
	return result, nil
}

func (s *Service) trackableItem(ctx context.Context, listID, mediaID string) (*store.MediaList, *store.ListItem, error) {
	list := s.doc().ListByID(listID)
	if list == nil {
		return nil, nil, errNotFound("List not found")
	}
	if !s.canViewList(s.viewerID(ctx), list) {
		return nil, nil, errForbidden("This list is private")
	}
	item := list.ItemByMediaID(mediaID)
	if item == nil {
		return nil, nil, errNotFound("Title is not in this list")
	}
	return list, item, nil
}

// grantListReward grants the list's community badge once per user. Re-runs
// after un-completing and re-completing are no-ops.
func (s *Service) grantListReward(user *store.User, list *store.MediaList) {
	if list.BadgeReward == nil {
		return
	}
	for _, badge := range user.Badges {
		if badge.ID == list.BadgeReward.ID {
			return
		}
	}
	badge := *list.BadgeReward
	badge.EarnedDate = s.now().Format("2006-01-02")
	user.Badges = append(user.Badges, badge)
	s.notifyBadgeGrant(user, nil, badge)
}
