package user

import (
	"time"

	"github.com/google/uuid"
)

// Response is the public view of a user. The password hash never leaves the package.
type Response struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Role        Role       `json:"role"`
	RoleName    string     `json:"role_name"`
	AdminID     *uuid.UUID `json:"admin_id"`
	Status      Status     `json:"status"`
	HasPasscode bool       `json:"has_passcode"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewResponse converts a user for output
func NewResponse(u *User) *Response {
	r := &Response{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		Role:        u.Role,
		RoleName:    u.Role.DisplayName(),
		AdminID:     u.AdminRef(),
		Status:      u.Status,
		HasPasscode: u.HasPasscode(),
		CreatedAt:   u.CreatedAt,
	}
	if u.LastLoginAt.Valid {
		t := u.LastLoginAt.Time
		r.LastLoginAt = &t
	}
	return r
}

// NewResponseList converts a slice of users
func NewResponseList(users []*User) []*Response {
	out := make([]*Response, len(users))
	for i, u := range users {
		out[i] = NewResponse(u)
	}
	return out
}
