package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/account"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
)

// Source supplies ledger snapshots and balances
type Source interface {
	Snapshot(ctx context.Context, actor user.Actor) ([]*ledger.Transaction, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error)
}

// Directory lists an admin's sub-admins
type Directory interface {
	ListSubAdmins(ctx context.Context, adminID uuid.UUID) ([]*user.User, error)
}

// SubAdminSummary is one row of the admin overview
type SubAdminSummary struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	Status           user.Status     `json:"status"`
	Balance          decimal.Decimal `json:"balance"`
	TotalReceived    decimal.Decimal `json:"total_received"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	TotalTransferred decimal.Decimal `json:"total_transferred"`
	TransactionCount int             `json:"transaction_count"`
	LastActivityAt   *time.Time      `json:"last_activity_at,omitempty"`
}

type Service struct {
	source   Source
	users    Directory
	currency string
}

func NewService(source Source, users Directory, currency string) *Service {
	return &Service{source: source, users: users, currency: currency}
}

// Get computes the dashboard for actor
func (s *Service) Get(ctx context.Context, actor user.Actor) (*Metrics, error) {
	snap, err := s.snapshot(ctx, actor)
	if err != nil {
		return nil, err
	}
	m := Compute(snap, actor, s.currency)
	return &m, nil
}

// LoadView builds the reactive view a realtime session starts from
func (s *Service) LoadView(ctx context.Context, actor user.Actor) (*View, error) {
	snap, err := s.snapshot(ctx, actor)
	if err != nil {
		return nil, err
	}
	return NewView(actor, s.currency, snap), nil
}

// SubAdminOverview lists each of the admin's sub-admins with balance and activity
func (s *Service) SubAdminOverview(ctx context.Context, admin user.Actor) ([]*SubAdminSummary, error) {
	subs, err := s.users.ListSubAdmins(ctx, admin.UserID)
	if err != nil {
		return nil, err
	}
	entries, err := s.source.Snapshot(ctx, admin)
	if err != nil {
		return nil, err
	}

	out := make([]*SubAdminSummary, 0, len(subs))
	for _, sub := range subs {
		acct, err := s.source.GetAccount(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		row := &SubAdminSummary{
			ID:               sub.ID,
			Name:             sub.Name,
			Email:            sub.Email,
			Status:           sub.Status,
			Balance:          acct.Balance,
			TotalReceived:    acct.TotalReceived,
			TotalSpent:       acct.TotalSpent,
			TotalTransferred: acct.TotalTransferred,
		}
		for _, e := range entries {
			if !e.Involves(sub.ID) {
				continue
			}
			row.TransactionCount++
			if row.LastActivityAt == nil || e.Timestamp.After(*row.LastActivityAt) {
				ts := e.Timestamp
				row.LastActivityAt = &ts
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Service) snapshot(ctx context.Context, actor user.Actor) (Snapshot, error) {
	entries, err := s.source.Snapshot(ctx, actor)
	if err != nil {
		return Snapshot{}, err
	}
	acct, err := s.source.GetAccount(ctx, actor.UserID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Entries: entries, Balance: acct.Balance}, nil
}
