package team

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/password"
)

// InitialFunder moves the initial budget from an admin to a freshly created sub-admin
type InitialFunder interface {
	AllocateInitialBudget(ctx context.Context, adminID, subAdminID uuid.UUID, amount decimal.Decimal) (*ledger.Transaction, error)
}

// Service handles user provisioning and profile management
type Service struct {
	repo           user.Repository
	funder         InitialFunder
	passwordLength int
}

// NewService creates team service. funder may be nil, in which case initial budgets are ignored.
func NewService(repo user.Repository, funder InitialFunder, passwordLength int) *Service {
	return &Service{repo: repo, funder: funder, passwordLength: passwordLength}
}

// Get returns a user by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

// CreateSubAdmin provisions a sub-admin owned by admin with a generated password.
// A failed initial allocation does not undo the account; the failure is reported in the result.
func (s *Service) CreateSubAdmin(ctx context.Context, admin user.Actor, req *CreateSubAdminRequest) (*CreatedSubAdmin, error) {
	if !admin.IsAdmin() {
		return nil, user.ErrAdminOnly
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("create sub-admin: %w", err)
	}
	if existing != nil {
		return nil, user.ErrEmailAlreadyExists
	}

	temp, err := password.Generate(s.passwordLength)
	if err != nil {
		return nil, fmt.Errorf("create sub-admin: %w", err)
	}
	hash, err := password.Hash(temp)
	if err != nil {
		return nil, fmt.Errorf("create sub-admin: %w", err)
	}

	u := &user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         user.RoleSubAdmin,
		AdminID:      uuid.NullUUID{UUID: admin.UserID, Valid: true},
		Status:       user.StatusActive,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	log.Info().
		Str("admin_id", admin.UserID.String()).
		Str("sub_admin_id", u.ID.String()).
		Msg("Sub-admin created")

	out := &CreatedSubAdmin{User: user.NewResponse(u), TemporaryPassword: temp}
	if req.InitialBudget == nil || s.funder == nil {
		return out, nil
	}

	entry, err := s.funder.AllocateInitialBudget(ctx, admin.UserID, u.ID, *req.InitialBudget)
	if err != nil {
		log.Warn().Err(err).
			Str("sub_admin_id", u.ID.String()).
			Str("amount", req.InitialBudget.String()).
			Msg("Initial budget allocation failed")
		out.InitialBudgetErr = err.Error()
		return out, nil
	}
	out.InitialBudget = entry
	return out, nil
}

// ListSubAdmins returns the sub-admins owned by admin
func (s *Service) ListSubAdmins(ctx context.Context, admin user.Actor) ([]*user.User, error) {
	if !admin.IsAdmin() {
		return nil, user.ErrAdminOnly
	}
	users, err := s.repo.ListSubAdmins(ctx, admin.UserID)
	if err != nil {
		return nil, fmt.Errorf("list sub-admins: %w", err)
	}
	return users, nil
}

// SetSubAdminStatus activates or deactivates one of the admin's sub-admins
func (s *Service) SetSubAdminStatus(ctx context.Context, admin user.Actor, subAdminID uuid.UUID, status user.Status) (*user.User, error) {
	if !admin.IsAdmin() {
		return nil, user.ErrAdminOnly
	}
	if status != user.StatusActive && status != user.StatusInactive {
		return nil, user.ErrInvalidStatus
	}

	u, err := s.Get(ctx, subAdminID)
	if err != nil {
		return nil, err
	}
	if !u.IsSubAdmin() {
		return nil, user.ErrNotSubAdmin
	}
	if !u.OwnedBy(admin.UserID) {
		return nil, user.ErrNotOwner
	}

	if err := s.repo.UpdateStatus(ctx, u.ID, status); err != nil {
		return nil, err
	}
	u.Status = status

	log.Info().
		Str("admin_id", admin.UserID.String()).
		Str("sub_admin_id", u.ID.String()).
		Str("status", string(status)).
		Msg("Sub-admin status changed")
	return u, nil
}

// UpdateProfile changes the caller's name and phone
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*user.User, error) {
	name, phone := strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone)
	if err := s.repo.UpdateProfile(ctx, userID, name, phone); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// ChangePassword replaces the caller's password after checking the current one
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !password.Verify(current, u.PasswordHash) {
		return user.ErrWrongPassword
	}
	hash, err := password.Hash(next)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}
