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

// StaffStore persists staff profiles, payrolls, and pricing rules
type StaffStore struct {
	db *sql.DB
}

// NewStaffStore creates the store
func NewStaffStore(db *sql.DB) *StaffStore {
	return &StaffStore{db: db}
}

var staffSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"position":  "position",
	"salary":    "salary",
	"hireDate":  "hire_date",
}

var payrollSortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"amount":      "amount",
	"periodStart": "period_start",
	"status":      "status",
}

var pricingSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"rate":      "rate",
	"startsAt":  "starts_at",
}

// CreateProfile inserts a staff profile
func (s *StaffStore) CreateProfile(ctx context.Context, sp *storage.StaffProfile) error {
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sp.CreatedAt, sp.UpdatedAt = now, now
	if sp.HireDate.IsZero() {
		sp.HireDate = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff_profiles (id, user_id, branch_id, position, salary, hire_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sp.ID, sp.UserID, sp.BranchID, sp.Position, sp.Salary, sp.HireDate, sp.CreatedAt, sp.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: staff profile for user %s at branch %s", storage.ErrConflict, sp.UserID, sp.BranchID)
		}
		return fmt.Errorf("failed to create staff profile: %w", err)
	}
	return nil
}

// GetProfile returns a staff profile by id
func (s *StaffStore) GetProfile(ctx context.Context, id string) (*storage.StaffProfile, error) {
	var sp storage.StaffProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, branch_id, position, salary, hire_date, created_at, updated_at
		FROM staff_profiles WHERE id = $1`, id).
		Scan(&sp.ID, &sp.UserID, &sp.BranchID, &sp.Position, &sp.Salary, &sp.HireDate, &sp.CreatedAt, &sp.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: staff profile %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff profile: %w", err)
	}
	return &sp, nil
}

// ListProfiles returns a page of staff profiles at a branch
func (s *StaffStore) ListProfiles(ctx context.Context, branchID string, p httputil.Pagination) ([]storage.StaffProfile, int, error) {
	where, args := "", []interface{}{}
	if branchID != "" {
		where = " WHERE branch_id = $1"
		args = append(args, branchID)
	}

	total, err := countRows(ctx, s.db, `SELECT COUNT(*) FROM staff_profiles`+where, args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, branch_id, position, salary, hire_date, created_at, updated_at
		FROM staff_profiles`+where+listClause(staffSortColumns, p), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list staff profiles: %w", err)
	}
	defer rows.Close()

	var out []storage.StaffProfile
	for rows.Next() {
		var sp storage.StaffProfile
		if err := rows.Scan(&sp.ID, &sp.UserID, &sp.BranchID, &sp.Position, &sp.Salary, &sp.HireDate, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan staff profile: %w", err)
		}
		out = append(out, sp)
	}
	return out, total, rows.Err()
}

// UpdateProfile updates mutable staff profile fields
func (s *StaffStore) UpdateProfile(ctx context.Context, sp *storage.StaffProfile) error {
	sp.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE staff_profiles SET position = $1, salary = $2, updated_at = $3
		WHERE id = $4`,
		sp.Position, sp.Salary, sp.UpdatedAt, sp.ID)
	if err != nil {
		return fmt.Errorf("failed to update staff profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: staff profile %s", storage.ErrNotFound, sp.ID)
	}
	return nil
}

// DeleteProfile removes a staff profile and its payrolls
func (s *StaffStore) DeleteProfile(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM payrolls WHERE staff_profile_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete payrolls: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM staff_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete staff profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: staff profile %s", storage.ErrNotFound, id)
	}
	return tx.Commit()
}

// GetProfileBranchID returns the branch a staff profile belongs to
func (s *StaffStore) GetProfileBranchID(ctx context.Context, id string) (string, error) {
	var branchID string
	err := s.db.QueryRowContext(ctx, `SELECT branch_id FROM staff_profiles WHERE id = $1`, id).Scan(&branchID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: staff profile %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get staff profile branch: %w", err)
	}
	return branchID, nil
}

// CreatePayroll inserts a payroll row
func (s *StaffStore) CreatePayroll(ctx context.Context, pr *storage.Payroll) error {
	if pr.ID == "" {
		pr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	pr.CreatedAt, pr.UpdatedAt = now, now
	if pr.Status == "" {
		pr.Status = "pending"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payrolls (id, staff_profile_id, branch_id, amount, period_start, period_end, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		pr.ID, pr.StaffProfileID, pr.BranchID, pr.Amount, pr.PeriodStart, pr.PeriodEnd, pr.Status, pr.CreatedAt, pr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payroll: %w", err)
	}
	return nil
}

// GetPayroll returns a payroll by id
func (s *StaffStore) GetPayroll(ctx context.Context, id string) (*storage.Payroll, error) {
	var pr storage.Payroll
	err := s.db.QueryRowContext(ctx, `
		SELECT id, staff_profile_id, branch_id, amount, period_start, period_end, status, created_at, updated_at
		FROM payrolls WHERE id = $1`, id).
		Scan(&pr.ID, &pr.StaffProfileID, &pr.BranchID, &pr.Amount, &pr.PeriodStart, &pr.PeriodEnd, &pr.Status, &pr.CreatedAt, &pr.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: payroll %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payroll: %w", err)
	}
	return &pr, nil
}

// ListPayrolls returns a page of payrolls at a branch
func (s *StaffStore) ListPayrolls(ctx context.Context, branchID string, p httputil.Pagination) ([]storage.Payroll, int, error) {
	where, args := "", []interface{}{}
	if branchID != "" {
		where = " WHERE branch_id = $1"
		args = append(args, branchID)
	}

	total, err := countRows(ctx, s.db, `SELECT COUNT(*) FROM payrolls`+where, args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, staff_profile_id, branch_id, amount, period_start, period_end, status, created_at, updated_at
		FROM payrolls`+where+listClause(payrollSortColumns, p), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payrolls: %w", err)
	}
	defer rows.Close()

	var out []storage.Payroll
	for rows.Next() {
		var pr storage.Payroll
		if err := rows.Scan(&pr.ID, &pr.StaffProfileID, &pr.BranchID, &pr.Amount, &pr.PeriodStart, &pr.PeriodEnd, &pr.Status, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll: %w", err)
		}
		out = append(out, pr)
	}
	return out, total, rows.Err()
}

// UpdatePayroll updates mutable payroll fields
func (s *StaffStore) UpdatePayroll(ctx context.Context, pr *storage.Payroll) error {
	pr.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE payrolls SET amount = $1, status = $2, updated_at = $3
		WHERE id = $4`,
		pr.Amount, pr.Status, pr.UpdatedAt, pr.ID)
	if err != nil {
		return fmt.Errorf("failed to update payroll: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: payroll %s", storage.ErrNotFound, pr.ID)
	}
	return nil
}

// DeletePayroll removes a payroll
func (s *StaffStore) DeletePayroll(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM payrolls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payroll: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: payroll %s", storage.ErrNotFound, id)
	}
	return nil
}

// GetPayrollBranchID returns the branch a payroll belongs to
func (s *StaffStore) GetPayrollBranchID(ctx context.Context, id string) (string, error) {
	var branchID string
	err := s.db.QueryRowContext(ctx, `SELECT branch_id FROM payrolls WHERE id = $1`, id).Scan(&branchID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: payroll %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get payroll branch: %w", err)
	}
	return branchID, nil
}

// CreatePricingRule inserts a pricing rule
func (s *StaffStore) CreatePricingRule(ctx context.Context, r *storage.PricingRule) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	if r.RateType == "" {
		r.RateType = "hourly"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pricing_rules (id, branch_id, space_id, name, rate_type, rate, starts_at, ends_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.BranchID, r.SpaceID, r.Name, r.RateType, r.Rate, r.StartsAt, r.EndsAt, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pricing rule: %w", err)
	}
	return nil
}

// GetPricingRule returns a pricing rule by id
func (s *StaffStore) GetPricingRule(ctx context.Context, id string) (*storage.PricingRule, error) {
	var r storage.PricingRule
	err := s.db.QueryRowContext(ctx, `
		SELECT id, branch_id, space_id, name, rate_type, rate, starts_at, ends_at, created_at, updated_at
		FROM pricing_rules WHERE id = $1`, id).
		Scan(&r.ID, &r.BranchID, &r.SpaceID, &r.Name, &r.RateType, &r.Rate, &r.StartsAt, &r.EndsAt, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: pricing rule %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pricing rule: %w", err)
	}
	return &r, nil
}

// ListPricingRules returns a page of pricing rules at a branch
func (s *StaffStore) ListPricingRules(ctx context.Context, branchID string, p httputil.Pagination) ([]storage.PricingRule, int, error) {
	where, args := "", []interface{}{}
	if branchID != "" {
		where = " WHERE branch_id = $1"
		args = append(args, branchID)
	}

	total, err := countRows(ctx, s.db, `SELECT COUNT(*) FROM pricing_rules`+where, args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch_id, space_id, name, rate_type, rate, starts_at, ends_at, created_at, updated_at
		FROM pricing_rules`+where+listClause(pricingSortColumns, p), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pricing rules: %w", err)
	}
	defer rows.Close()

	var out []storage.PricingRule
	for rows.Next() {
		var r storage.PricingRule
		if err := rows.Scan(&r.ID, &r.BranchID, &r.SpaceID, &r.Name, &r.RateType, &r.Rate, &r.StartsAt, &r.EndsAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan pricing rule: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// UpdatePricingRule updates mutable pricing rule fields
func (s *StaffStore) UpdatePricingRule(ctx context.Context, r *storage.PricingRule) error {
	r.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE pricing_rules SET name = $1, rate_type = $2, rate = $3, starts_at = $4, ends_at = $5, updated_at = $6
		WHERE id = $7`,
		r.Name, r.RateType, r.Rate, r.StartsAt, r.EndsAt, r.UpdatedAt, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update pricing rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: pricing rule %s", storage.ErrNotFound, r.ID)
	}
	return nil
}

// DeletePricingRule removes a pricing rule
func (s *StaffStore) DeletePricingRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pricing_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pricing rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: pricing rule %s", storage.ErrNotFound, id)
	}
	return nil
}

// GetPricingRuleBranchID returns the branch a pricing rule belongs to
func (s *StaffStore) GetPricingRuleBranchID(ctx context.Context, id string) (string, error) {
	var branchID string
	err := s.db.QueryRowContext(ctx, `SELECT branch_id FROM pricing_rules WHERE id = $1`, id).Scan(&branchID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: pricing rule %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get pricing rule branch: %w", err)
	}
	return branchID, nil
}
