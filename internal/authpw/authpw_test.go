package authpw

import "testing"

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("password stored in the clear")
	}
	if !VerifyPassword(hash, "correct horse battery") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestValidateRegistration(t *testing.T) {
	cases := []struct {
		name     string
		handle   string
		email    string
		password string
		wantErr  bool
	}{
		{name: "valid", handle: "movie_fan_99", email: "fan@example.com", password: "password123"},
		{name: "missing fields", wantErr: true},
		{name: "short handle", handle: "ab", email: "a@b.co", password: "password123", wantErr: true},
		{name: "uppercase handle", handle: "MovieFan", email: "a@b.co", password: "password123", wantErr: true},
		{name: "bad email", handle: "movie_fan", email: "not-an-email", password: "password123", wantErr: true},
		{name: "short password", handle: "movie_fan", email: "a@b.co", password: "short", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRegistration(tc.handle, tc.email, tc.password)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateRegistration = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := NormalizeEmail("  Fan@Example.COM "); got != "fan@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
	if got := NormalizeHandle(" @Beet_King "); got != "beet_king" {
		t.Errorf("NormalizeHandle = %q", got)
	}
}
