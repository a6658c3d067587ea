package auth

import "errors"

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidRefreshToken  = errors.New("invalid or expired refresh token")
	ErrRefreshTokenRequired = errors.New("refresh token is required")
	ErrUserInactive         = errors.New("account is deactivated")
	ErrTokenStore           = errors.New("token store unavailable")
)
