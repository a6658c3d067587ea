package user

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownRole        = errors.New("unknown role")
	ErrNotSubAdmin        = errors.New("user is not a sub-admin")
	ErrNotOwner           = errors.New("sub-admin belongs to another admin")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSignupDisabled     = errors.New("admin sign-up is disabled")
	ErrAdminOnly          = errors.New("only admins can manage sub-admins")
	ErrInvalidStatus      = errors.New("status must be active or inactive")

	ErrInvalidPasscode    = errors.New("passcode must be exactly 4 digits")
	ErrPasscodeNotSet     = errors.New("no passcode is set")
	ErrPasscodeAlreadySet = errors.New("passcode is already set")
	ErrWrongPasscode      = errors.New("passcode is incorrect")
	ErrPasscodeSubAdmin   = errors.New("passcodes are available to sub-admins only")
)
