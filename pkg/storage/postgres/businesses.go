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

// BusinessStore persists businesses and their settings
type BusinessStore struct {
	db *sql.DB
}

// NewBusinessStore creates the store
func NewBusinessStore(db *sql.DB) *BusinessStore {
	return &BusinessStore{db: db}
}

var businessSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
}

// Create inserts a business, generating its id
func (s *BusinessStore) Create(ctx context.Context, b *storage.Business) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO businesses (id, owner_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.OwnerID, b.Name, b.Description, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create business: %w", err)
	}
	return nil
}

// Get returns a business by id
func (s *BusinessStore) Get(ctx context.Context, id string) (*storage.Business, error) {
	var b storage.Business
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, description, created_at, updated_at
		FROM businesses WHERE id = $1`, id).
		Scan(&b.ID, &b.OwnerID, &b.Name, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: business %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return &b, nil
}

// List returns a page of businesses and the total count
func (s *BusinessStore) List(ctx context.Context, p httputil.Pagination) ([]storage.Business, int, error) {
	total, err := countRows(ctx, s.db, `SELECT COUNT(*) FROM businesses`)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, description, created_at, updated_at
		FROM businesses`+listClause(businessSortColumns, p))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	var out []storage.Business
	for rows.Next() {
		var b storage.Business
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Description, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan business: %w", err)
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

// Update updates mutable business fields
func (s *BusinessStore) Update(ctx context.Context, b *storage.Business) error {
	b.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE businesses SET name = $1, description = $2, updated_at = $3
		WHERE id = $4`,
		b.Name, b.Description, b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("failed to update business: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: business %s", storage.ErrNotFound, b.ID)
	}
	return nil
}

// Delete removes a business and its settings
func (s *BusinessStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM business_settings WHERE business_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete business settings: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM businesses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete business: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: business %s", storage.ErrNotFound, id)
	}
	return tx.Commit()
}

// GetOwnerID returns the owner of a business, for ownership checks
func (s *BusinessStore) GetOwnerID(ctx context.Context, id string) (string, error) {
	var ownerID string
	err := s.db.QueryRowContext(ctx, `SELECT owner_id FROM businesses WHERE id = $1`, id).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: business %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get business owner: %w", err)
	}
	return ownerID, nil
}

// CreateSettings inserts settings for a business
func (s *BusinessStore) CreateSettings(ctx context.Context, bs *storage.BusinessSettings) error {
	if bs.ID == "" {
		bs.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	bs.CreatedAt, bs.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO business_settings (id, business_id, currency, timezone, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		bs.ID, bs.BusinessID, bs.Currency, bs.Timezone, bs.Language, bs.CreatedAt, bs.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: settings for business %s", storage.ErrConflict, bs.BusinessID)
		}
		return fmt.Errorf("failed to create business settings: %w", err)
	}
	return nil
}

// GetSettings returns the settings for a business
func (s *BusinessStore) GetSettings(ctx context.Context, businessID string) (*storage.BusinessSettings, error) {
	var bs storage.BusinessSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT id, business_id, currency, timezone, language, created_at, updated_at
		FROM business_settings WHERE business_id = $1`, businessID).
		Scan(&bs.ID, &bs.BusinessID, &bs.Currency, &bs.Timezone, &bs.Language, &bs.CreatedAt, &bs.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: settings for business %s", storage.ErrNotFound, businessID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business settings: %w", err)
	}
	return &bs, nil
}

// UpdateSettings updates the settings for a business
func (s *BusinessStore) UpdateSettings(ctx context.Context, bs *storage.BusinessSettings) error {
	bs.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE business_settings SET currency = $1, timezone = $2, language = $3, updated_at = $4
		WHERE business_id = $5`,
		bs.Currency, bs.Timezone, bs.Language, bs.UpdatedAt, bs.BusinessID)
	if err != nil {
		return fmt.Errorf("failed to update business settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: settings for business %s", storage.ErrNotFound, bs.BusinessID)
	}
	return nil
}

// DeleteSettings removes the settings for a business
func (s *BusinessStore) DeleteSettings(ctx context.Context, businessID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM business_settings WHERE business_id = $1`, businessID)
	if err != nil {
		return fmt.Errorf("failed to delete business settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: settings for business %s", storage.ErrNotFound, businessID)
	}
	return nil
}
