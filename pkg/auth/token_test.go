package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenManager_IssueAndVerify(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	p := &Principal{UserID: "u-1", RoleID: "r-1", RoleName: RoleStaff}
	token, err := m.Issue(p)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	got, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got.UserID != "u-1" || got.RoleID != "r-1" || got.RoleName != RoleStaff {
		t.Errorf("Principal mismatch: %+v", got)
	}
}

func TestTokenManager_WrongSecret(t *testing.T) {
	m := NewTokenManager("secret-a", time.Hour)
	other := NewTokenManager("secret-b", time.Hour)

	token, err := m.Issue(&Principal{UserID: "u-1"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)

	token, err := m.Issue(&Principal{UserID: "u-1"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := m.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestTokenManager_LegacyRolesClaim(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	claims := Claims{
		UserID: "u-legacy",
		RoleID: "r-1",
		Roles:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign legacy token: %v", err)
	}

	p, err := m.Verify(raw)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if p.RoleName != RoleAdmin {
		t.Errorf("Expected roles claim normalized to roleName, got %q", p.RoleName)
	}
}

func TestTokenManager_MissingUserID(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := m.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for missing userId, got %v", err)
	}
}

func TestTokenManager_ExpiresAt(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.Issue(&Principal{UserID: "u-1"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	exp := m.ExpiresAt(token)
	if d := time.Until(exp); d < 55*time.Minute || d > 65*time.Minute {
		t.Errorf("Expected expiry about an hour out, got %v", d)
	}
}

func TestFormatPermission(t *testing.T) {
	cases := map[string]string{
		"CREATE-BRANCHES":     "Create Branches",
		"read-payrolls":       "Read Payrolls",
		"UPDATE-STAFF-PROFILES": "Update Staff Profiles",
		"DELETE":              "Delete",
	}
	for in, want := range cases {
		if got := FormatPermission(in); got != want {
			t.Errorf("FormatPermission(%q) = %q, want %q", in, got, want)
		}
	}
}
