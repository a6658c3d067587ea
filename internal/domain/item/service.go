package item

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/account"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/logger"
)

// EventItemUpdated is pushed to subscribers whenever an item changes
const EventItemUpdated = "item.updated"

var ErrInactiveAssignee = errors.New("cannot assign items to an inactive sub-admin")

// UserDirectory resolves users; nil, nil means not found
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Notifier pushes change events to connected users
type Notifier interface {
	Notify(ctx context.Context, userIDs []uuid.UUID, event string, payload interface{})
}

// Service handles item lifecycle outside of purchases
type Service struct {
	repo     Repository
	users    UserDirectory
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, users UserDirectory, notifier Notifier) *Service {
	return &Service{repo: repo, users: users, notifier: notifier, now: func() time.Time { return time.Now().UTC() }}
}

// Create adds a catalog item (admin) or an own item (sub-admin, price required)
func (s *Service) Create(ctx context.Context, actor user.Actor, req *CreateRequest) (*Item, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if req.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = DefaultCategory
	}

	now := s.now()
	it := &Item{
		ID:             uuid.New(),
		Name:           name,
		Category:       category,
		SerialNumber:   strings.TrimSpace(req.SerialNumber),
		Notes:          strings.TrimSpace(req.Notes),
		Quantity:       req.Quantity,
		Available:      true,
		CreatedBy:      actor.UserID,
		IsSubAdminItem: actor.IsSubAdmin(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if actor.IsSubAdmin() && req.Price == nil {
		return nil, ErrPriceRequired
	}
	if req.Price != nil {
		if req.Price.IsNegative() || !account.FitsScale(*req.Price) {
			return nil, ErrInvalidPrice
		}
		it.SetPrice(*req.Price, actor.UserID, now)
	}

	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}

	logger.LogInfo(ctx, "Item created",
		"item_id", it.ID.String(),
		"created_by", actor.UserID.String(),
		"own_item", it.IsSubAdminItem,
	)
	s.notify(ctx, it, actor.AdminID, actor.UserID)
	return it, nil
}

// Get returns an item visible to the actor
func (s *Service) Get(ctx context.Context, actor user.Actor, id uuid.UUID) (*Item, error) {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, actor, it); err != nil {
		return nil, err
	}
	return it, nil
}

// List returns the admin catalog or the sub-admin's purchasable items
func (s *Service) List(ctx context.Context, actor user.Actor) ([]*Item, error) {
	if actor.IsAdmin() {
		return s.repo.ListForAdmin(ctx, actor.UserID)
	}
	return s.repo.ListAvailableFor(ctx, actor.UserID)
}

// UpdatePrice sets the item price. Sub-admins price items assigned to them or their own.
func (s *Service) UpdatePrice(ctx context.Context, actor user.Actor, id uuid.UUID, price decimal.Decimal) (*Item, error) {
	if price.IsNegative() || !account.FitsScale(price) {
		return nil, ErrInvalidPrice
	}

	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, actor, it); err != nil {
		return nil, err
	}

	it, err = s.repo.UpdatePrice(ctx, id, price, actor.UserID, s.now())
	if err != nil {
		return nil, err
	}

	s.notify(ctx, it, actor.AdminID, assignee(it))
	return it, nil
}

// Assign hands a catalog item to one of the admin's sub-admins
func (s *Service) Assign(ctx context.Context, actor user.Actor, id, subAdminID uuid.UUID) (*Item, error) {
	it, err := s.ownedCatalogItem(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	sub, err := s.users.GetByID(ctx, subAdminID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, user.ErrUserNotFound
	}
	if !sub.OwnedBy(actor.UserID) {
		return nil, user.ErrNotOwner
	}
	if !sub.IsActive() {
		return nil, ErrInactiveAssignee
	}

	previous := assignee(it)
	it, err = s.repo.Assign(ctx, id, subAdminID, s.now())
	if err != nil {
		return nil, err
	}

	logger.LogInfo(ctx, "Item assigned", "item_id", id.String(), "sub_admin_id", subAdminID.String())
	s.notify(ctx, it, actor.UserID, subAdminID, previous)
	return it, nil
}

// Unassign returns a catalog item to the admin's pool
func (s *Service) Unassign(ctx context.Context, actor user.Actor, id uuid.UUID) (*Item, error) {
	it, err := s.ownedCatalogItem(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	previous := assignee(it)
	it, err = s.repo.Unassign(ctx, id, s.now())
	if err != nil {
		return nil, err
	}

	logger.LogInfo(ctx, "Item unassigned", "item_id", id.String())
	s.notify(ctx, it, actor.UserID, previous)
	return it, nil
}

func (s *Service) ownedCatalogItem(ctx context.Context, actor user.Actor, id uuid.UUID) (*Item, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.IsSubAdminItem {
		return nil, ErrNotAssignable
	}
	if it.CreatedBy != actor.UserID {
		return nil, ErrForbidden
	}
	return it, nil
}

func (s *Service) checkVisible(ctx context.Context, actor user.Actor, it *Item) error {
	if actor.IsSubAdmin() {
		if it.PurchasableBy(actor.UserID) {
			return nil
		}
		return ErrForbidden
	}

	if it.CreatedBy == actor.UserID {
		return nil
	}
	creator, err := s.users.GetByID(ctx, it.CreatedBy)
	if err != nil {
		return err
	}
	if creator != nil && creator.OwnedBy(actor.UserID) {
		return nil
	}
	return ErrForbidden
}

func (s *Service) notify(ctx context.Context, it *Item, userIDs ...uuid.UUID) {
	if s.notifier == nil {
		return
	}
	seen := make(map[uuid.UUID]bool, len(userIDs))
	audience := make([]uuid.UUID, 0, len(userIDs))
	for _, id := range userIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		audience = append(audience, id)
	}
	s.notifier.Notify(ctx, audience, EventItemUpdated, NewResponse(it))
}

func assignee(it *Item) uuid.UUID {
	if !it.AssignedTo.Valid {
		return uuid.Nil
	}
	return it.AssignedTo.UUID
}
