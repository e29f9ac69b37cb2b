package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupBlacklistDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE blacklisted_tokens (
			token_hash TEXT PRIMARY KEY,
			expires_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return db
}

func TestBlacklist_AddAndCheck(t *testing.T) {
	bl := NewBlacklist(setupBlacklistDB(t))
	ctx := context.Background()

	if err := bl.Add(ctx, "token-abc", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	revoked, err := bl.IsBlacklisted(ctx, "token-abc")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if !revoked {
		t.Error("Expected token to be blacklisted")
	}

	revoked, err = bl.IsBlacklisted(ctx, "token-other")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if revoked {
		t.Error("Expected unknown token to not be blacklisted")
	}
}

func TestBlacklist_AddIdempotent(t *testing.T) {
	bl := NewBlacklist(setupBlacklistDB(t))
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	if err := bl.Add(ctx, "token-abc", exp); err != nil {
		t.Fatalf("First add failed: %v", err)
	}
	if err := bl.Add(ctx, "token-abc", exp); err != nil {
		t.Fatalf("Second add failed: %v", err)
	}
}

func TestBlacklist_ExpiredTokenNotBlacklisted(t *testing.T) {
	bl := NewBlacklist(setupBlacklistDB(t))
	ctx := context.Background()

	if err := bl.Add(ctx, "stale", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	revoked, err := bl.IsBlacklisted(ctx, "stale")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if revoked {
		t.Error("Expected expired blacklist row to be ignored")
	}
}

func TestBlacklist_PurgeExpired(t *testing.T) {
	bl := NewBlacklist(setupBlacklistDB(t))
	ctx := context.Background()

	bl.Add(ctx, "stale", time.Now().Add(-time.Minute))
	bl.Add(ctx, "live", time.Now().Add(time.Hour))

	n, err := bl.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 purged row, got %d", n)
	}

	count, err := bl.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 remaining row, got %d", count)
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !CheckPassword(hash, "s3cret") {
		t.Error("Expected password to match its hash")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("Expected wrong password to fail")
	}
}
