package team

import (
	"github.com/shopspring/decimal"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
)

// CreateSubAdminRequest is the body of POST /users/subadmins
type CreateSubAdminRequest struct {
	Email         string           `json:"email" validate:"required,email,max=255"`
	Name          string           `json:"name" validate:"required,min=1,max=100"`
	Phone         string           `json:"phone" validate:"omitempty,max=30"`
	InitialBudget *decimal.Decimal `json:"initial_budget,omitempty" validate:"omitempty,gt=0,money"`
}

// UpdateStatusRequest is the body of PATCH /users/subadmins/{id}/status
type UpdateStatusRequest struct {
	Status user.Status `json:"status" validate:"required,user_status"`
}

// UpdateProfileRequest is the body of PATCH /users/me
type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Phone string `json:"phone" validate:"omitempty,max=30"`
}

// ChangePasswordRequest is the body of POST /users/me/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// CreatedSubAdmin is returned once, right after provisioning.
// TemporaryPassword is not stored anywhere in clear text.
type CreatedSubAdmin struct {
	User              *user.Response      `json:"user"`
	TemporaryPassword string              `json:"temporary_password"`
	InitialBudget     *ledger.Transaction `json:"initial_budget_transaction,omitempty"`
	InitialBudgetErr  string              `json:"initial_budget_error,omitempty"`
}

// PasscodeRequest is the body of PUT /users/me/passcode and POST /users/me/passcode/verify
type PasscodeRequest struct {
	Passcode string `json:"passcode" validate:"required,passcode"`
}

// ChangePasscodeRequest is the body of POST /users/me/passcode/change
type ChangePasscodeRequest struct {
	CurrentPasscode string `json:"current_passcode" validate:"required,passcode"`
	NewPasscode     string `json:"new_passcode" validate:"required,passcode"`
}

// DeletePasscodeRequest is the body of DELETE /users/me/passcode
type DeletePasscodeRequest struct {
	CurrentPasscode string `json:"current_passcode" validate:"required,passcode"`
}

// PasscodeStatus reports whether a passcode gate is configured
type PasscodeStatus struct {
	HasPasscode bool `json:"has_passcode"`
}
