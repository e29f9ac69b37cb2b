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

// SpaceStore persists spaces and devices
type SpaceStore struct {
	db *sql.DB
}

// NewSpaceStore creates the store
func NewSpaceStore(db *sql.DB) *SpaceStore {
	return &SpaceStore{db: db}
}

var spaceSortColumns = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"name":       "name",
	"capacity":   "capacity",
	"hourlyRate": "hourly_rate",
}

var deviceSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"type":      "type",
}

// CreateSpace inserts a space
func (s *SpaceStore) CreateSpace(ctx context.Context, sp *storage.Space) error {
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sp.CreatedAt, sp.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spaces (id, branch_id, name, capacity, hourly_rate, status, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sp.ID, sp.BranchID, sp.Name, sp.Capacity, sp.HourlyRate, sp.Status, sp.ImageURL, sp.CreatedAt, sp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create space: %w", err)
	}
	return nil
}

// GetSpace returns a space by id
func (s *SpaceStore) GetSpace(ctx context.Context, id string) (*storage.Space, error) {
	var sp storage.Space
	err := s.db.QueryRowContext(ctx, `
		SELECT id, branch_id, name, capacity, hourly_rate, status, image_url, created_at, updated_at
		FROM spaces WHERE id = $1`, id).
		Scan(&sp.ID, &sp.BranchID, &sp.Name, &sp.Capacity, &sp.HourlyRate, &sp.Status, &sp.ImageURL, &sp.CreatedAt, &sp.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: space %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get space: %w", err)
	}
	return &sp, nil
}

// ListSpaces returns a page of spaces at a branch and the total count.
// An empty branchID lists across all branches.
func (s *SpaceStore) ListSpaces(ctx context.Context, branchID string, p httputil.Pagination) ([]storage.Space, int, error) {
	where, args := "", []interface{}{}
	if branchID != "" {
		where = " WHERE branch_id = $1"
		args = append(args, branchID)
	}

	total, err := countRows(ctx, s.db, `SELECT COUNT(*) FROM spaces`+where, args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch_id, name, capacity, hourly_rate, status, image_url, created_at, updated_at
		FROM spaces`+where+listClause(spaceSortColumns, p), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list spaces: %w", err)
	}
	defer rows.Close()

	var out []storage.Space
	for rows.Next() {
		var sp storage.Space
		if err := rows.Scan(&sp.ID, &sp.BranchID, &sp.Name, &sp.Capacity, &sp.HourlyRate, &sp.Status, &sp.ImageURL, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan space: %w", err)
		}
		out = append(out, sp)
	}
	return out, total, rows.Err()
}

// UpdateSpace updates mutable space fields
func (s *SpaceStore) UpdateSpace(ctx context.Context, sp *storage.Space) error {
	sp.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE spaces SET name = $1, capacity = $2, hourly_rate = $3, status = $4, image_url = $5, updated_at = $6
		WHERE id = $7`,
		sp.Name, sp.Capacity, sp.HourlyRate, sp.Status, sp.ImageURL, sp.UpdatedAt, sp.ID)
	if err != nil {
		return fmt.Errorf("failed to update space: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: space %s", storage.ErrNotFound, sp.ID)
	}
	return nil
}

// DeleteSpace removes a space
func (s *SpaceStore) DeleteSpace(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM spaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete space: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: space %s", storage.ErrNotFound, id)
	}
	return nil
}

// GetSpaceBranchID returns the branch a space belongs to, for
// branch-scoped ownership checks.
func (s *SpaceStore) GetSpaceBranchID(ctx context.Context, id string) (string, error) {
	var branchID string
	err := s.db.QueryRowContext(ctx, `SELECT branch_id FROM spaces WHERE id = $1`, id).Scan(&branchID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: space %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get space branch: %w", err)
	}
	return branchID, nil
}

// CreateDevice inserts a device
func (s *SpaceStore) CreateDevice(ctx context.Context, d *storage.Device) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (id, branch_id, name, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.BranchID, d.Name, d.Type, d.Status, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

// GetDevice returns a device by id
func (s *SpaceStore) GetDevice(ctx context.Context, id string) (*storage.Device, error) {
	var d storage.Device
	err := s.db.QueryRowContext(ctx, `
		SELECT id, branch_id, name, type, status, created_at, updated_at
		FROM devices WHERE id = $1`, id).
		Scan(&d.ID, &d.BranchID, &d.Name, &d.Type, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: device %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return &d, nil
}

// ListDevices returns a page of devices at a branch and the total count
func (s *SpaceStore) ListDevices(ctx context.Context, branchID string, p httputil.Pagination) ([]storage.Device, int, error) {
	where, args := "", []interface{}{}
	if branchID != "" {
		where = " WHERE branch_id = $1"
		args = append(args, branchID)
	}

	total, err := countRows(ctx, s.db, `SELECT COUNT(*) FROM devices`+where, args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch_id, name, type, status, created_at, updated_at
		FROM devices`+where+listClause(deviceSortColumns, p), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var out []storage.Device
	for rows.Next() {
		var d storage.Device
		if err := rows.Scan(&d.ID, &d.BranchID, &d.Name, &d.Type, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan device: %w", err)
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// UpdateDevice updates mutable device fields
func (s *SpaceStore) UpdateDevice(ctx context.Context, d *storage.Device) error {
	d.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE devices SET name = $1, type = $2, status = $3, updated_at = $4
		WHERE id = $5`,
		d.Name, d.Type, d.Status, d.UpdatedAt, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: device %s", storage.ErrNotFound, d.ID)
	}
	return nil
}

// DeleteDevice removes a device
func (s *SpaceStore) DeleteDevice(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: device %s", storage.ErrNotFound, id)
	}
	return nil
}

// GetDeviceBranchID returns the branch a device belongs to
func (s *SpaceStore) GetDeviceBranchID(ctx context.Context, id string) (string, error) {
	var branchID string
	err := s.db.QueryRowContext(ctx, `SELECT branch_id FROM devices WHERE id = $1`, id).Scan(&branchID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: device %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get device branch: %w", err)
	}
	return branchID, nil
}
