package team

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/password"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/validator"
)

// SetPasscode stores a first passcode for a sub-admin. Replacing one goes through ChangePasscode.
func (s *Service) SetPasscode(ctx context.Context, userID uuid.UUID, passcode string) error {
	u, err := s.passcodeOwner(ctx, userID)
	if err != nil {
		return err
	}
	if u.HasPasscode() {
		return user.ErrPasscodeAlreadySet
	}
	return s.storePasscode(ctx, userID, passcode)
}

// VerifyPasscode checks passcode against the stored hash
func (s *Service) VerifyPasscode(ctx context.Context, userID uuid.UUID, passcode string) error {
	u, err := s.passcodeOwner(ctx, userID)
	if err != nil {
		return err
	}
	return checkPasscode(u, passcode)
}

// ChangePasscode replaces the passcode after checking the current one
func (s *Service) ChangePasscode(ctx context.Context, userID uuid.UUID, current, next string) error {
	u, err := s.passcodeOwner(ctx, userID)
	if err != nil {
		return err
	}
	if err := checkPasscode(u, current); err != nil {
		return err
	}
	return s.storePasscode(ctx, userID, next)
}

// DeletePasscode removes the passcode after checking the current one
func (s *Service) DeletePasscode(ctx context.Context, userID uuid.UUID, current string) error {
	u, err := s.passcodeOwner(ctx, userID)
	if err != nil {
		return err
	}
	if err := checkPasscode(u, current); err != nil {
		return err
	}
	if err := s.repo.UpdatePasscode(ctx, userID, sql.NullString{}); err != nil {
		return err
	}
	log.Info().Str("user_id", userID.String()).Msg("passcode removed")
	return nil
}

func (s *Service) passcodeOwner(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsSubAdmin() {
		return nil, user.ErrPasscodeSubAdmin
	}
	return u, nil
}

func (s *Service) storePasscode(ctx context.Context, userID uuid.UUID, passcode string) error {
	if !validator.IsPasscode(passcode) {
		return user.ErrInvalidPasscode
	}
	hash, err := password.Hash(passcode)
	if err != nil {
		return fmt.Errorf("store passcode: %w", err)
	}
	if err := s.repo.UpdatePasscode(ctx, userID, sql.NullString{String: hash, Valid: true}); err != nil {
		return err
	}
	log.Info().Str("user_id", userID.String()).Msg("passcode set")
	return nil
}

func checkPasscode(u *user.User, passcode string) error {
	if !u.HasPasscode() {
		return user.ErrPasscodeNotSet
	}
	if !validator.IsPasscode(passcode) || !password.Verify(passcode, u.PasscodeHash.String) {
		return user.ErrWrongPasscode
	}
	return nil
}
