package usage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/youssef3092004/Spacefy/pkg/observability"
)

type fakeSource struct {
	usage map[string]int64
	fail  map[string]bool
}

func (f *fakeSource) UsageForBusiness(ctx context.Context, businessID string) (int64, int, error) {
	if f.fail[businessID] {
		return 0, 0, errors.New("listing failed")
	}
	return f.usage[businessID], int(f.usage[businessID] / 100), nil
}

func setupUsageDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE businesses (id TEXT PRIMARY KEY, name TEXT)`,
		`CREATE TABLE storage_usage (
			business_id TEXT PRIMARY KEY,
			bytes_used BIGINT NOT NULL DEFAULT 0,
			object_count INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}
	return db
}

func TestReporter_Run(t *testing.T) {
	db := setupUsageDB(t)
	ctx := context.Background()

	for _, id := range []string{"biz-1", "biz-2"} {
		if _, err := db.Exec(`INSERT INTO businesses (id, name) VALUES ($1, $2)`, id, id); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	source := &fakeSource{usage: map[string]int64{"biz-1": 1000, "biz-2": 500}}
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	reporter := NewReporter(db, source, logger, nil, 2)

	updated, err := reporter.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if updated != 2 {
		t.Errorf("Expected 2 updated, got %d", updated)
	}

	rec, err := Get(ctx, db, "biz-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.BytesUsed != 1000 || rec.ObjectCount != 10 {
		t.Errorf("Unexpected record: %+v", rec)
	}
}

func TestReporter_RunSkipsFailingBusinesses(t *testing.T) {
	db := setupUsageDB(t)
	ctx := context.Background()

	for _, id := range []string{"biz-ok", "biz-bad"} {
		db.Exec(`INSERT INTO businesses (id, name) VALUES ($1, $2)`, id, id)
	}

	source := &fakeSource{
		usage: map[string]int64{"biz-ok": 200},
		fail:  map[string]bool{"biz-bad": true},
	}
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	reporter := NewReporter(db, source, logger, nil, 2)

	updated, err := reporter.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("Expected 1 updated with one failure, got %d", updated)
	}
}

func TestReporter_RunUpdatesExistingRow(t *testing.T) {
	db := setupUsageDB(t)
	ctx := context.Background()
	db.Exec(`INSERT INTO businesses (id, name) VALUES ('biz-1', 'x')`)

	source := &fakeSource{usage: map[string]int64{"biz-1": 100}}
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	reporter := NewReporter(db, source, logger, nil, 1)

	if _, err := reporter.Run(ctx); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	source.usage["biz-1"] = 300
	if _, err := reporter.Run(ctx); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	rec, err := Get(ctx, db, "biz-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.BytesUsed != 300 {
		t.Errorf("Expected updated bytes 300, got %d", rec.BytesUsed)
	}
}

func TestGet_MissingBusinessReturnsZero(t *testing.T) {
	db := setupUsageDB(t)

	rec, err := Get(context.Background(), db, "nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.BytesUsed != 0 || rec.ObjectCount != 0 {
		t.Errorf("Expected zero usage, got %+v", rec)
	}
}
