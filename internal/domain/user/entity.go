package user

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is one of exactly two variants. Values outside the set are rejected by ParseRole.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSubAdmin Role = "subadmin"
)

// ParseRole converts a raw string (token claim, db column) into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleSubAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) String() string { return string(r) }

// DisplayName is the label shown next to a user's name.
func (r Role) DisplayName() string {
	if r == RoleAdmin {
		return "Administrator"
	}
	return "Sub-Administrator"
}

// Status represents user status. Inactive replaces deletion.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// User represents a user account
type User struct {
	ID           uuid.UUID      `db:"id"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	Name         string         `db:"name"`
	Phone        string         `db:"phone"`
	Role         Role           `db:"role"`
	AdminID      uuid.NullUUID  `db:"admin_id"`
	Status       Status         `db:"status"`
	PasscodeHash sql.NullString `db:"passcode_hash"`
	LastLoginAt  sql.NullTime   `db:"last_login_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// HasPasscode reports whether the user has set a quick-unlock passcode
func (u *User) HasPasscode() bool {
	return u.PasscodeHash.Valid && u.PasscodeHash.String != ""
}

// IsAdmin returns true if user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsSubAdmin returns true if user is a sub-admin
func (u *User) IsSubAdmin() bool {
	return u.Role == RoleSubAdmin
}

// IsActive returns true if the account has not been deactivated
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// OwnedBy reports whether u is a sub-admin managed by adminID.
func (u *User) OwnedBy(adminID uuid.UUID) bool {
	return u.IsSubAdmin() && u.AdminID.Valid && u.AdminID.UUID == adminID
}

// OwningAdmin returns the admin responsible for u. Admins own themselves.
func (u *User) OwningAdmin() uuid.UUID {
	if u.IsAdmin() || !u.AdminID.Valid {
		return u.ID
	}
	return u.AdminID.UUID
}

// AdminRef returns the owning admin id as a pointer, nil for admins.
func (u *User) AdminRef() *uuid.UUID {
	if !u.AdminID.Valid {
		return nil
	}
	id := u.AdminID.UUID
	return &id
}

// Actor is an authenticated user performing an operation.
// AdminID is the owning admin for sub-admins and the user itself for admins.
type Actor struct {
	UserID  uuid.UUID
	Role    Role
	AdminID uuid.UUID
}

func (a Actor) IsAdmin() bool    { return a.Role == RoleAdmin }
func (a Actor) IsSubAdmin() bool { return a.Role == RoleSubAdmin }

// ActorOf builds the Actor for u
func ActorOf(u *User) Actor {
	return Actor{UserID: u.ID, Role: u.Role, AdminID: u.OwningAdmin()}
}
