package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "user browse", role: RoleUser, action: ActionBrowse, allow: true},
		{name: "user interact", role: RoleUser, action: ActionInteract, allow: true},
		{name: "user moderate", role: RoleUser, action: ActionModerate, allow: false},
		{name: "user manage badges", role: RoleUser, action: ActionManageBadges, allow: false},
		{name: "admin moderate", role: RoleAdmin, action: ActionModerate, allow: true},
		{name: "admin manage badges", role: RoleAdmin, action: ActionManageBadges, allow: true},
		{name: "unknown role", role: Role("ghost"), action: ActionBrowse, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("admin") != RoleAdmin {
		t.Error("admin not preserved")
	}
	if Normalize("superuser") != RoleUser {
		t.Error("unknown role should normalize to user")
	}
}
