package app

import (
	"strings"
	"testing"

	"watchquest/api/internal/store"
)

func TestModerationRequiresAdmin(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "u2")

	if _, err := svc.Reports(ctx); err == nil {
		t.Error("Reports should be admin only")
	}
	if _, err := svc.Dashboard(ctx); err == nil {
		t.Error("Dashboard should be admin only")
	}
	assertCode(t, svc.BanUser(ctx, "u3", "nope"), "FORBIDDEN")
	assertCode(t, svc.DeleteUser(ctx, "u3"), "FORBIDDEN")
}

func TestReportLifecycle(t *testing.T) {
	svc, ctx := newTestService(t)

	loginAs(t, svc, ctx, "u3")
	// Disable every notification type: admin responses still arrive.
	if err := svc.UpdateNotificationSettings(ctx, store.NotificationSettings{}); err != nil {
		t.Fatalf("UpdateNotificationSettings: %v", err)
	}
	report, err := svc.SubmitReport(ctx, ReportInput{
		TargetID: "l1", TargetType: "list", Reason: store.ReasonSpam, Details: "suspicious",
	})
	if err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}
	if report.Status != "pending" || report.ReporterID != "u3" {
		t.Errorf("report = %+v", report)
	}

	loginAs(t, svc, ctx, "admin1")
	resolved, err := svc.RespondToReport(ctx, report.ID, "Reviewed, no action needed.")
	if err != nil {
		t.Fatalf("RespondToReport: %v", err)
	}
	if resolved.Status != "resolved" || resolved.AdminResponse == "" {
		t.Errorf("resolved report = %+v", resolved)
	}

	got := notificationsFor(svc, "u3")
	if len(got) != 1 || got[0].Type != store.NotifyAdminResponse {
		t.Errorf("reporter notifications = %+v, want one ungated admin response", got)
	}

	// Responding twice is rejected.
	_, err = svc.RespondToReport(ctx, report.ID, "again")
	assertCode(t, err, "VALIDATION_ERROR")
}

func TestAnonymousReportGetsNoResponse(t *testing.T) {
	svc, ctx := newTestService(t)

	loginAs(t, svc, ctx, "u3")
	report, err := svc.SubmitReport(ctx, ReportInput{
		TargetID: "u2", TargetType: "user", Reason: store.ReasonOther, Anonymous: true,
	})
	if err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}
	if report.ReporterID != "" || report.ReporterName != "" {
		t.Errorf("anonymous report leaks identity: %+v", report)
	}

	loginAs(t, svc, ctx, "admin1")
	if _, err := svc.RespondToReport(ctx, report.ID, "done"); err != nil {
		t.Fatalf("RespondToReport: %v", err)
	}
	if got := notificationsFor(svc, "u3"); len(got) != 0 {
		t.Errorf("anonymous reporter was notified: %+v", got)
	}
}

func TestThreeStrikesAutoBan(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "admin1")

	for i := 0; i < 2; i++ {
		if _, err := svc.IssueStrike(ctx, "u2", "prank gone too far"); err != nil {
			t.Fatalf("IssueStrike %d: %v", i+1, err)
		}
	}
	u2 := svc.store.Doc().UserByID("u2")
	if u2.IsPermanentlyBanned {
		t.Fatal("banned after two strikes")
	}

	target, err := svc.IssueStrike(ctx, "u2", "third strike")
	if err != nil {
		t.Fatalf("IssueStrike 3: %v", err)
	}
	if !target.IsPermanentlyBanned {
		t.Fatal("third active strike should auto-ban")
	}

	blacklisted := false
	for _, banned := range svc.store.Doc().Blacklist {
		if banned.Email == "jim@dundermifflin.com" {
			blacklisted = true
		}
	}
	if !blacklisted {
		t.Error("auto-ban did not blacklist the email")
	}

	// Strike alerts always arrive, and the ban blocks login.
	alerts := 0
	for _, n := range notificationsFor(svc, "u2") {
		if n.Type == store.NotifyStrikeAlert {
			alerts++
		}
	}
	if alerts != 3 {
		t.Errorf("strike alerts = %d, want 3", alerts)
	}
	_, err = svc.Login(ctx, "@big_tuna", "123")
	assertCode(t, err, "BANNED")
}

func TestBanUserBlocksReRegistration(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "admin1")

	if err := svc.BanUser(ctx, "u4", "repeated spam"); err != nil {
		t.Fatalf("BanUser: %v", err)
	}

	_, err := svc.Register(ctx, RegisterInput{
		Handle: "stanley_two", Email: "STANLEY@dundermifflin.com", Password: "password123",
	})
	assertCode(t, err, "BANNED")
}

func TestDeleteUserCascade(t *testing.T) {
	svc, ctx := newTestService(t)

	// Leave traces as u1: a reaction and a comment on l2, and a follower of l1.
	loginAs(t, svc, ctx, "u1")
	if _, err := svc.ToggleReaction(ctx, "l2", "🔥"); err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	if _, err := svc.AddComment(ctx, "l2", "", "I DECLARE a great list"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	loginAs(t, svc, ctx, "u3")
	if err := svc.FollowList(ctx, "l1"); err != nil {
		t.Fatalf("FollowList: %v", err)
	}
	if _, err := svc.SubmitReport(ctx, ReportInput{
		TargetID: "l1", TargetType: "list", Reason: store.ReasonSpam,
	}); err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}

	u2FollowingBefore := svc.store.Doc().UserByID("u2").Following // follows u1
	u2FollowersBefore := svc.store.Doc().UserByID("u2").Followers // followed by u1

	loginAs(t, svc, ctx, "admin1")
	if err := svc.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	doc := svc.store.Doc()
	if doc.UserByID("u1") != nil {
		t.Fatal("user still present")
	}
	if doc.ListByID("l1") != nil {
		t.Error("created list still present")
	}
	for _, user := range doc.Users {
		if containsString(user.FollowingIDs, "u1") {
			t.Errorf("%s still follows the deleted user", user.ID)
		}
		if containsString(user.FollowedListIDs, "l1") {
			t.Errorf("%s still follows the deleted list", user.ID)
		}
	}
	u2 := doc.UserByID("u2")
	if u2.Following != u2FollowingBefore-1 {
		t.Errorf("u2.Following = %d, want %d", u2.Following, u2FollowingBefore-1)
	}
	if u2.Followers != u2FollowersBefore-1 {
		t.Errorf("u2.Followers = %d, want %d", u2.Followers, u2FollowersBefore-1)
	}

	l2 := doc.ListByID("l2")
	for _, reaction := range l2.Reactions {
		if reaction.UserID == "u1" {
			t.Error("reaction by deleted user survives")
		}
	}
	if len(l2.Comments) != 0 {
		t.Errorf("comments by deleted user survive: %+v", l2.Comments)
	}
	for _, item := range l2.Items {
		if _, ok := item.Tracking["u1"]; ok {
			t.Error("tracking state of deleted user survives")
		}
	}
	for _, n := range doc.Notifications {
		if n.UserID == "u1" || n.ActorID == "u1" {
			t.Errorf("notification involving deleted user survives: %+v", n)
		}
	}
	for _, report := range doc.Reports {
		if report.TargetType == "list" && report.TargetID == "l1" {
			t.Errorf("report against a deleted list survives: %+v", report)
		}
	}
}

func TestBadgeGrantsNotify(t *testing.T) {
	svc, ctx := newTestService(t)

	// Earning an achievement leaves an "Achievement unlocked" notice with
	// no actor.
	loginAs(t, svc, ctx, "u3")
	createListWith(t, svc, ctx)
	unlocked := 0
	for _, n := range notificationsFor(svc, "u3") {
		if strings.HasPrefix(n.TargetPreview, "Achievement unlocked:") {
			unlocked++
			if n.ActorID != "" {
				t.Errorf("system grant carries an actor: %+v", n)
			}
		}
	}
	if unlocked == 0 {
		t.Fatal("earned achievement produced no notification")
	}

	// An admin grant notifies too, with the admin as the actor.
	loginAs(t, svc, ctx, "admin1")
	if err := svc.GrantBadge(ctx, "u4", "ach_inf_10"); err != nil {
		t.Fatalf("GrantBadge: %v", err)
	}
	got := notificationsFor(svc, "u4")
	if len(got) != 1 {
		t.Fatalf("notifications = %+v, want exactly one grant notice", got)
	}
	if got[0].ActorID != "admin1" || got[0].TargetPreview != "Achievement unlocked: Influencer" {
		t.Errorf("grant notice = %+v", got[0])
	}
}

func TestGrantAndCreateBadges(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "admin1")

	if err := svc.GrantBadge(ctx, "u3", "ach_vet_1y"); err != nil {
		t.Fatalf("GrantBadge: %v", err)
	}
	u3 := svc.store.Doc().UserByID("u3")
	if !holdsBadgeID(u3.Badges, "ach_vet_1y") {
		t.Fatal("badge not granted")
	}
	if u3.Badges[0].EarnedDate == "" {
		t.Error("granted badge has no earned date")
	}
	assertCode(t, svc.GrantBadge(ctx, "u3", "ach_vet_1y"), "VALIDATION_ERROR")
	assertCode(t, svc.GrantBadge(ctx, "u3", "nope"), "NOT_FOUND")

	badge, err := svc.CreateGlobalBadge(ctx, GlobalBadgeInput{Name: "Founding Member", Icon: "fa-seedling"})
	if err != nil {
		t.Fatalf("CreateGlobalBadge: %v", err)
	}
	if badge.Type != store.BadgeOfficial {
		t.Errorf("badge type = %s, want official", badge.Type)
	}
	if err := svc.GrantBadge(ctx, "u3", badge.ID); err != nil {
		t.Fatalf("granting the new badge: %v", err)
	}
}

func TestDashboardAndAuditTrail(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "admin1")

	if _, err := svc.IssueStrike(ctx, "u4", "testing"); err != nil {
		t.Fatalf("IssueStrike: %v", err)
	}
	if err := svc.BanUser(ctx, "u2", "spam"); err != nil {
		t.Fatalf("BanUser: %v", err)
	}

	stats, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if stats.Users != 5 || stats.Lists != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.BannedUsers != 1 || stats.ActiveStrikes != 1 {
		t.Errorf("stats = %+v, want 1 banned and 1 active strike", stats)
	}

	logs, err := svc.AdminLogs(ctx)
	if err != nil {
		t.Fatalf("AdminLogs: %v", err)
	}
	seen := map[string]bool{}
	for _, entry := range logs {
		seen[entry.ActionType] = true
	}
	if !seen["issue_strike"] || !seen["ban_user"] {
		t.Errorf("audit trail missing entries: %+v", logs)
	}
}

func TestAchievementMonotonicity(t *testing.T) {
	svc, ctx := newTestService(t)
	loginAs(t, svc, ctx, "u3")

	list := createListWith(t, svc, ctx)
	u3 := svc.store.Doc().UserByID("u3")
	if !holdsBadgeID(u3.Badges, "ach_creator_1") {
		t.Fatal("first list should grant the creator badge")
	}

	// Deleting the list does not revoke the badge.
	if err := svc.DeleteList(ctx, list.ID); err != nil {
		t.Fatalf("DeleteList: %v", err)
	}
	if !holdsBadgeID(svc.store.Doc().UserByID("u3").Badges, "ach_creator_1") {
		t.Error("achievement was revoked")
	}
}
