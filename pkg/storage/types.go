// Package storage defines the persisted entity types and the errors
// shared by their stores.
package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique constraint violations
	ErrConflict = errors.New("already exists")
)

// User is an account that can authenticate
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	RoleID       string    `json:"roleId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Role groups users for permission grants
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Business is the top-level tenant, owned by a user
type Business struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BusinessSettings holds per-business preferences
type BusinessSettings struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"businessId"`
	Currency   string    `json:"currency"`
	Timezone   string    `json:"timezone"`
	Language   string    `json:"language"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Branch is a physical location of a business
type Branch struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"businessId"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	Phone      string    `json:"phone"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Device is equipment installed at a branch
type Device struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branchId"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Space is a bookable area within a branch
type Space struct {
	ID         string    `json:"id"`
	BranchID   string    `json:"branchId"`
	Name       string    `json:"name"`
	Capacity   int       `json:"capacity"`
	HourlyRate float64   `json:"hourlyRate"`
	Status     string    `json:"status"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StaffProfile ties a user to a branch as an employee
type StaffProfile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	BranchID  string    `json:"branchId"`
	Position  string    `json:"position"`
	Salary    float64   `json:"salary"`
	HireDate  time.Time `json:"hireDate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Payroll is one pay period for a staff profile
type Payroll struct {
	ID             string    `json:"id"`
	StaffProfileID string    `json:"staffProfileId"`
	BranchID       string    `json:"branchId"`
	Amount         float64   `json:"amount"`
	PeriodStart    time.Time `json:"periodStart"`
	PeriodEnd      time.Time `json:"periodEnd"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// PricingRule adjusts space rates for a time window
type PricingRule struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branchId"`
	SpaceID   string    `json:"spaceId"`
	Name      string    `json:"name"`
	RateType  string    `json:"rateType"`
	Rate      float64   `json:"rate"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
