package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/budget"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/item"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
)

// Catalog reads current item state
type Catalog interface {
	GetItem(ctx context.Context, id uuid.UUID) (*item.Item, error)
}

// Purchaser settles a cart against the sub-admin's balance
type Purchaser interface {
	Purchase(ctx context.Context, subAdminID uuid.UUID, lines []budget.PurchaseLine) ([]*ledger.Transaction, error)
}

// Service manages sub-admin carts. Nothing here touches balances until Checkout.
type Service struct {
	store     Store
	catalog   Catalog
	purchaser Purchaser
	now       func() time.Time
}

func NewService(store Store, catalog Catalog, purchaser Purchaser) *Service {
	return &Service{store: store, catalog: catalog, purchaser: purchaser, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the current cart, empty if none
func (s *Service) Get(ctx context.Context, subAdminID uuid.UUID) (*Cart, error) {
	return s.store.Get(ctx, subAdminID)
}

// Add puts qty units of an item in the cart, on top of any already there.
func (s *Service) Add(ctx context.Context, subAdminID, itemID uuid.UUID, qty int) (*Cart, error) {
	if qty <= 0 {
		return nil, budget.ErrInvalidAmount
	}
	c, err := s.store.Get(ctx, subAdminID)
	if err != nil {
		return nil, err
	}

	current := 0
	if i := c.Find(itemID); i >= 0 {
		current = c.Lines[i].Quantity
	}
	line, err := s.checkedLine(ctx, subAdminID, itemID, current+qty)
	if err != nil {
		return nil, err
	}

	c.Upsert(line)
	return c, s.save(ctx, c)
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, subAdminID, itemID uuid.UUID, qty int) (*Cart, error) {
	c, err := s.store.Get(ctx, subAdminID)
	if err != nil {
		return nil, err
	}
	if c.Find(itemID) < 0 {
		return nil, ErrLineNotFound
	}

	if qty <= 0 {
		c.Remove(itemID)
		return c, s.save(ctx, c)
	}

	line, err := s.checkedLine(ctx, subAdminID, itemID, qty)
	if err != nil {
		return nil, err
	}
	c.Upsert(line)
	return c, s.save(ctx, c)
}

// Remove drops one line
func (s *Service) Remove(ctx context.Context, subAdminID, itemID uuid.UUID) (*Cart, error) {
	c, err := s.store.Get(ctx, subAdminID)
	if err != nil {
		return nil, err
	}
	if !c.Remove(itemID) {
		return nil, ErrLineNotFound
	}
	return c, s.save(ctx, c)
}

// Clear empties the cart
func (s *Service) Clear(ctx context.Context, subAdminID uuid.UUID) error {
	return s.store.Delete(ctx, subAdminID)
}

// Checkout purchases every line at the current item price and clears the cart on success.
// Lines whose price moved since they were added are listed in the receipt.
// A failed purchase leaves the cart as it was.
func (s *Service) Checkout(ctx context.Context, subAdminID uuid.UUID) (*Receipt, error) {
	c, err := s.store.Get(ctx, subAdminID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, budget.ErrEmptyCart
	}

	lines := make([]budget.PurchaseLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, budget.PurchaseLine{ItemID: l.ItemID, Quantity: l.Quantity})
	}

	entries, err := s.purchaser.Purchase(ctx, subAdminID, lines)
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, subAdminID); err != nil {
		// Purchase already committed.
		log.Warn().Err(err).Str("sub_admin_id", subAdminID.String()).Msg("failed to clear cart after checkout")
	}

	receipt := newReceipt(c, entries)
	if len(receipt.PriceChanges) > 0 {
		log.Info().Str("sub_admin_id", subAdminID.String()).Int("price_changes", len(receipt.PriceChanges)).Msg("checkout charged updated prices")
	}
	return receipt, nil
}

// checkedLine builds a line for qty units after checking the item can be bought.
func (s *Service) checkedLine(ctx context.Context, subAdminID, itemID uuid.UUID, qty int) (Line, error) {
	it, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return Line{}, err
	}
	if !it.PurchasableBy(subAdminID) {
		return Line{}, ErrNotPurchasable
	}
	if !it.HasPrice() {
		return Line{}, budget.ErrMissingPrice
	}
	if qty > it.Quantity {
		return Line{}, budget.ErrInsufficientStock
	}
	return Line{
		ItemID:      it.ID,
		Name:        it.Name,
		Price:       it.Price.Decimal,
		Quantity:    qty,
		MaxQuantity: it.Quantity,
	}, nil
}

func (s *Service) save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = s.now()
	return s.store.Save(ctx, c)
}
