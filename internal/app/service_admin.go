package app

import (
	"context"
	"sort"
	"strings"

	"watchquest/api/internal/authpw"
	"watchquest/api/internal/store"
	"watchquest/api/internal/util"
)

type ReportInput struct {
	TargetID   string             `json:"targetId"`
	TargetType string             `json:"targetType"`
	Reason     store.ReportReason `json:"reason"`
	Details    string             `json:"details"`
	Anonymous  bool               `json:"anonymous"`
}

// SubmitReport files a report against a user or a list. Anonymous reports
// carry no reporter identity and never get a response notification.
func (s *Service) SubmitReport(ctx context.Context, input ReportInput) (*store.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	switch input.Reason {
	case store.ReasonInappropriate, store.ReasonIncorrectInfo, store.ReasonSpam, store.ReasonOther:
	default:
		return nil, errValidation("Unknown report reason")
	}
	switch input.TargetType {
	case "user":
		if s.doc().UserByID(input.TargetID) == nil {
			return nil, errNotFound("Reported user not found")
		}
	case "list":
		if s.doc().ListByID(input.TargetID) == nil {
			return nil, errNotFound("Reported list not found")
		}
	default:
		return nil, errValidation("Target type must be user or list")
	}

	report := &store.Report{
		ID:         util.NewID("rep"),
		TargetID:   input.TargetID,
		TargetType: input.TargetType,
		Reason:     input.Reason,
		Details:    input.Details,
		Timestamp:  s.now().UnixMilli(),
		Status:     "pending",
	}
	if !input.Anonymous {
		report.ReporterID = user.ID
		report.ReporterName = user.Name
	}
	s.doc().Reports = append(s.doc().Reports, report)

	if err := s.persist(); err != nil {
		return nil, err
	}
	return report, nil
}

// Reports lists all reports for the moderation queue, newest first.
func (s *Service) Reports(ctx context.Context) ([]*store.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	reports := make([]*store.Report, len(s.doc().Reports))
	copy(reports, s.doc().Reports)
	sort.Slice(reports, func(i, j int) bool { return reports[i].Timestamp > reports[j].Timestamp })
	return reports, nil
}

// RespondToReport resolves a pending report and notifies the reporter.
// Admin responses are always delivered, regardless of settings.
func (s *Service) RespondToReport(ctx context.Context, reportID, response string) (*store.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, errValidation("Response text is required")
	}

	var report *store.Report
	for _, r := range s.doc().Reports {
		if r.ID == reportID {
			report = r
			break
		}
	}
	if report == nil {
		return nil, errNotFound("Report not found")
	}
	if report.Status != "pending" {
		return nil, errValidation("Report is already resolved")
	}

	report.Status = "resolved"
	report.AdminResponse = response
	report.RespondedAt = s.now().UnixMilli()

	if report.ReporterID != "" {
		s.notify(s.doc().UserByID(report.ReporterID), store.Notification{
			Type:    store.NotifyAdminResponse,
			ActorID: admin.ID, ActorName: admin.Name, ActorAvatar: admin.Avatar,
			TargetID: report.ID, TargetPreview: preview(response),
		})
	}
	s.appendAdminLog(admin, "respond_report", report.TargetID)

	if err := s.persist(); err != nil {
		return nil, err
	}
	return report, nil
}

// IssueStrike adds a disciplinary strike with a six month expiry. The third
// active strike escalates to a permanent ban.
func (s *Service) IssueStrike(ctx context.Context, targetID, reason string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errValidation("Strike reason is required")
	}
	target := s.doc().UserByID(targetID)
	if target == nil {
		return nil, errNotFound("User not found")
	}
	if target.ID == admin.ID {
		return nil, errValidation("You cannot strike yourself")
	}

	now := s.now()
	target.Strikes = append(target.Strikes, store.Strike{
		ID:              util.NewID("st"),
		Reason:          reason,
		Timestamp:       now.UnixMilli(),
		ExpiresAt:       now.Add(store.StrikeTTL).UnixMilli(),
		IssuedByAdminID: admin.ID,
	})
	s.notify(target, store.Notification{
		Type:    store.NotifyStrikeAlert,
		ActorID: admin.ID, ActorName: admin.Name, ActorAvatar: admin.Avatar,
		TargetPreview: reason,
	})
	s.appendAdminLog(admin, "issue_strike", target.ID)

	active := 0
	nowMillis := now.UnixMilli()
	for _, strike := range target.Strikes {
		if strike.ExpiresAt > nowMillis {
			active++
		}
	}
	if active >= 3 && !target.IsPermanentlyBanned {
		s.banLocked(admin, target, "Three active strikes")
	}

	if err := s.persist(); err != nil {
		return nil, err
	}
	return target, nil
}

// BanUser permanently bans a user and blacklists their email so the address
// cannot register again.
func (s *Service) BanUser(ctx context.Context, targetID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}
	target := s.doc().UserByID(targetID)
	if target == nil {
		return errNotFound("User not found")
	}
	if target.ID == admin.ID {
		return errValidation("You cannot ban yourself")
	}
	s.banLocked(admin, target, reason)
	if err := s.persist(); err != nil {
		return err
	}
	s.indexUser(target)
	return nil
}

func (s *Service) banLocked(admin, target *store.User, reason string) {
	target.IsPermanentlyBanned = true
	target.BanReason = reason

	email := authpw.NormalizeEmail(target.Email)
	for _, banned := range s.doc().Blacklist {
		if banned.Email == email {
			s.appendAdminLog(admin, "ban_user", target.ID)
			return
		}
	}
	s.doc().Blacklist = append(s.doc().Blacklist, store.BannedEmail{
		Email:    email,
		BannedAt: s.now().UnixMilli(),
		Reason:   reason,
	})
	s.appendAdminLog(admin, "ban_user", target.ID)
}

// DeleteUser removes an account and everything it touched: lists, follows
// in both directions, reactions, comments, notifications and filed reports.
func (s *Service) DeleteUser(ctx context.Context, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}
	doc := s.doc()
	target := doc.UserByID(targetID)
	if target == nil {
		return errNotFound("User not found")
	}
	if target.ID == admin.ID {
		return errValidation("You cannot delete yourself")
	}

	// Followers of the target and the target's own follows, counters on
	// both sides.
	for _, user := range doc.Users {
		if user.ID == targetID {
			continue
		}
		if containsString(user.FollowingIDs, targetID) {
			user.FollowingIDs = removeString(user.FollowingIDs, targetID)
			if user.Following > 0 {
				user.Following--
			}
		}
	}
	for _, followedID := range target.FollowingIDs {
		if followed := doc.UserByID(followedID); followed != nil && followed.Followers > 0 {
			followed.Followers--
		}
	}

	// Their lists, and their traces on everyone else's lists.
	var deletedListIDs []string
	lists := doc.Lists[:0]
	for _, list := range doc.Lists {
		if list.CreatorID == targetID {
			deletedListIDs = append(deletedListIDs, list.ID)
			continue
		}
		reactions := list.Reactions[:0]
		for _, reaction := range list.Reactions {
			if reaction.UserID != targetID {
				reactions = append(reactions, reaction)
			}
		}
		list.Reactions = reactions
		list.Comments = removeCommentsBy(list.Comments, targetID)
		for i := range list.Items {
			delete(list.Items[i].Tracking, targetID)
		}
		lists = append(lists, list)
	}
	doc.Lists = lists
	for _, user := range doc.Users {
		for _, listID := range deletedListIDs {
			user.FollowedListIDs = removeString(user.FollowedListIDs, listID)
		}
	}

	notifications := doc.Notifications[:0]
	for _, n := range doc.Notifications {
		if n.UserID == targetID || n.ActorID == targetID {
			continue
		}
		notifications = append(notifications, n)
	}
	doc.Notifications = notifications

	reports := doc.Reports[:0]
	for _, report := range doc.Reports {
		if report.ReporterID == targetID {
			continue
		}
		if report.TargetType == "user" && report.TargetID == targetID {
			continue
		}
		if report.TargetType == "list" && containsString(deletedListIDs, report.TargetID) {
			continue
		}
		reports = append(reports, report)
	}
	doc.Reports = reports

	users := doc.Users[:0]
	for _, user := range doc.Users {
		if user.ID != targetID {
			users = append(users, user)
		}
	}
	doc.Users = users

	s.appendAdminLog(admin, "delete_user", targetID)

	if err := s.persist(); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteUser(targetID)
		for _, listID := range deletedListIDs {
			s.search.DeleteList(listID)
		}
	}
	return nil
}

// GrantBadge hands a user a badge from the global registry.
func (s *Service) GrantBadge(ctx context.Context, targetID, badgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}
	target := s.doc().UserByID(targetID)
	if target == nil {
		return errNotFound("User not found")
	}
	var definition *store.Badge
	for i := range s.doc().GlobalBadges {
		if s.doc().GlobalBadges[i].ID == badgeID {
			definition = &s.doc().GlobalBadges[i]
			break
		}
	}
	if definition == nil {
		return errNotFound("Badge not found")
	}
	for _, badge := range target.Badges {
		if badge.ID == badgeID {
			return errValidation("User already holds this badge")
		}
	}
	badge := *definition
	badge.EarnedDate = s.now().Format("2006-01-02")
	target.Badges = append(target.Badges, badge)
	s.notifyBadgeGrant(target, admin, badge)
	s.appendAdminLog(admin, "grant_badge", target.ID)

	return s.persist()
}

type GlobalBadgeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CreateGlobalBadge adds an official badge definition to the registry.
func (s *Service) CreateGlobalBadge(ctx context.Context, input GlobalBadgeInput) (*store.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, errValidation("Badge name is required")
	}
	badge := store.Badge{
		ID:          util.NewID("gb"),
		Name:        input.Name,
		Description: input.Description,
		Icon:        input.Icon,
		Type:        store.BadgeOfficial,
	}
	s.doc().GlobalBadges = append(s.doc().GlobalBadges, badge)
	s.appendAdminLog(admin, "create_badge", "")

	if err := s.persist(); err != nil {
		return nil, err
	}
	return &badge, nil
}

// DashboardStats is the moderation overview.
type DashboardStats struct {
	Users          int `json:"users"`
	BannedUsers    int `json:"bannedUsers"`
	Lists          int `json:"lists"`
	PendingReports int `json:"pendingReports"`
	ActiveStrikes  int `json:"activeStrikes"`
}

func (s *Service) Dashboard(ctx context.Context) (DashboardStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireAdmin(ctx); err != nil {
		return DashboardStats{}, err
	}
	doc := s.doc()
	stats := DashboardStats{
		Users: len(doc.Users),
		Lists: len(doc.Lists),
	}
	nowMillis := s.now().UnixMilli()
	for _, user := range doc.Users {
		if user.IsPermanentlyBanned {
			stats.BannedUsers++
		}
		for _, strike := range user.Strikes {
			if strike.ExpiresAt > nowMillis {
				stats.ActiveStrikes++
			}
		}
	}
	for _, report := range doc.Reports {
		if report.Status == "pending" {
			stats.PendingReports++
		}
	}
	return stats, nil
}

// AdminLogs is the moderation audit trail, newest first.
func (s *Service) AdminLogs(ctx context.Context) ([]*store.AdminLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	logs := make([]*store.AdminLog, len(s.doc().AdminLogs))
	copy(logs, s.doc().AdminLogs)
	sort.Slice(logs, func(i, j int) bool { return logs[i].Timestamp > logs[j].Timestamp })
	return logs, nil
}

func (s *Service) appendAdminLog(admin *store.User, actionType, targetUserID string) {
	s.doc().AdminLogs = append(s.doc().AdminLogs, &store.AdminLog{
		ID:           util.NewID("al"),
		ActionType:   actionType,
		AdminName:    admin.Name,
		TargetUserID: targetUserID,
		Timestamp:    s.now().UnixMilli(),
	})
}

func removeCommentsBy(comments []store.Comment, userID string) []store.Comment {
	out := comments[:0]
	for _, comment := range comments {
		if comment.UserID == userID {
			continue
		}
		comment.Replies = removeCommentsBy(comment.Replies, userID)
		out = append(out, comment)
	}
	return out
}
