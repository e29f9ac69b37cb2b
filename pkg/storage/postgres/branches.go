package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/storage"
)

// BranchStore persists branches
type BranchStore struct {
	db *sql.DB
}

// NewBranchStore creates the store
func NewBranchStore(db *sql.DB) *BranchStore {
	return &BranchStore{db: db}
}

var branchSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
}

const branchColumns = `id, business_id, name, address, phone, image_url, created_at, updated_at`

func scanBranch(row interface{ Scan(...interface{}) error }) (*storage.Branch, error) {
	var b storage.Branch
	err := row.Scan(&b.ID, &b.BusinessID, &b.Name, &b.Address, &b.Phone, &b.ImageURL, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a branch, generating its id
func (s *BranchStore) Create(ctx context.Context, b *storage.Branch) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branches (`+branchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.BusinessID, b.Name, b.Address, b.Phone, b.ImageURL, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}
	return nil
}

// Get returns a branch by id
func (s *BranchStore) Get(ctx context.Context, id string) (*storage.Branch, error) {
	b, err := scanBranch(s.db.QueryRowContext(ctx, `
		SELECT `+branchColumns+` FROM branches WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: branch %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	return b, nil
}

// List returns a page of branches and the total count
func (s *BranchStore) List(ctx context.Context, p httputil.Pagination) ([]storage.Branch, int, error) {
	total, err := countRows(ctx, s.db, `SELECT COUNT(*) FROM branches`)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+branchColumns+` FROM branches`+listClause(branchSortColumns, p))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list branches: %w", err)
	}
	defer rows.Close()

	var out []storage.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan branch: %w", err)
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}

// ListByBusiness returns all branches of a business
func (s *BranchStore) ListByBusiness(ctx context.Context, businessID string) ([]storage.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+branchColumns+` FROM branches WHERE business_id = $1 ORDER BY created_at DESC`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches by business: %w", err)
	}
	defer rows.Close()

	var out []storage.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Update updates mutable branch fields
func (s *BranchStore) Update(ctx context.Context, b *storage.Branch) error {
	b.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE branches SET name = $1, address = $2, phone = $3, image_url = $4, updated_at = $5
		WHERE id = $6`,
		b.Name, b.Address, b.Phone, b.ImageURL, b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("failed to update branch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: branch %s", storage.ErrNotFound, b.ID)
	}
	return nil
}

// Delete removes a branch
func (s *BranchStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: branch %s", storage.ErrNotFound, id)
	}
	return nil
}

// DeleteAll removes every branch and returns the count
func (s *BranchStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM branches`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete branches: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Count returns the total number of branches, exported as a gauge
func (s *BranchStore) Count(ctx context.Context) (int, error) {
	return countRows(ctx, s.db, `SELECT COUNT(*) FROM branches`)
}
