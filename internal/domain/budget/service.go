package budget

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/account"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/item"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
)

// Events pushed after a mutation commits
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventAccountUpdated     = "account.updated"
)

// Directory resolves users; nil, nil means not found
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	ListSubAdmins(ctx context.Context, adminID uuid.UUID) ([]*user.User, error)
}

// Notifier pushes change events to connected users
type Notifier interface {
	Notify(ctx context.Context, userIDs []uuid.UUID, event string, payload interface{})
}

// Limiter throttles money requests per sub-admin
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// PurchaseLine is one cart line handed to Purchase
type PurchaseLine struct {
	ItemID   uuid.UUID
	Quantity int
}

// Service is the only path through which balances change.
type Service struct {
	store        Store
	users        Directory
	notifier     Notifier
	limiter      Limiter
	defaultLimit int
}

func NewService(store Store, users Directory, notifier Notifier, limiter Limiter, defaultLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &Service{store: store, users: users, notifier: notifier, limiter: limiter, defaultLimit: defaultLimit}
}

// FundMainAccount credits an admin's own balance from an external source.
func (s *Service) FundMainAccount(ctx context.Context, adminID uuid.UUID, amount decimal.Decimal, source string) (*ledger.Transaction, error) {
	if !account.ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	admin, err := s.activeUser(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	source = strings.TrimSpace(source)
	if source == "" {
		source = "Manual"
	}

	res, err := ApplyLedgeredMutation(ctx, s.store, &Mutation{
		Deltas: []BalanceDelta{{UserID: adminID, Amount: amount, Counter: account.CounterReceived}},
		Entries: []*ledger.Transaction{{
			Type:        ledger.TypeMoneyAdded,
			ToUserID:    adminID,
			Amount:      amount,
			Description: source + ": Main account funding",
		}},
	})
	if err != nil {
		return nil, s.failed(err, "fund main account", adminID)
	}

	log.Info().Str("admin_id", adminID.String()).Str("amount", amount.String()).Str("source", source).Msg("main account funded")
	s.publish(ctx, res, adminID)
	return res.Entry(), nil
}

// Transfer moves money between an admin and one of its sub-admins.
// money_given flows admin to sub-admin, transfer flows sub-admin back to its admin.
func (s *Service) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, description string, kind ledger.Type) (*ledger.Transaction, error) {
	if kind != ledger.TypeMoneyGiven && kind != ledger.TypeTransfer {
		return nil, ErrInvalidKind
	}
	if !account.ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	if fromID == toID {
		return nil, ErrSelfTransfer
	}

	from, err := s.activeUser(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.activeUser(ctx, toID)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ledger.TypeMoneyGiven:
		if !from.IsAdmin() || !to.OwnedBy(from.ID) {
			return nil, ErrPermissionDenied
		}
	case ledger.TypeTransfer:
		if !from.IsSubAdmin() || !from.OwnedBy(to.ID) {
			return nil, ErrPermissionDenied
		}
	}

	description = strings.TrimSpace(description)
	if description == "" {
		description = "Balance transfer"
	}

	entry := &ledger.Transaction{
		Type:        kind,
		FromUserID:  uuid.NullUUID{UUID: fromID, Valid: true},
		ToUserID:    toID,
		Amount:      amount,
		Description: description,
	}
	res, err := s.store.Execute(ctx, Scope{Accounts: []uuid.UUID{fromID, toID}}, func(state *LockedState) (*Mutation, error) {
		if !state.Accounts[fromID].CanCover(amount) {
			return nil, ErrInsufficientBalance
		}
		return transferMutation(fromID, toID, amount, entry), nil
	})
	if err != nil {
		return nil, s.failed(err, "transfer", fromID)
	}

	log.Info().
		Str("from_user_id", fromID.String()).
		Str("to_user_id", toID.String()).
		Str("amount", amount.String()).
		Str("kind", string(kind)).
		Msg("transfer applied")
	s.publish(ctx, res, from.OwningAdmin())
	return res.Entry(), nil
}

// AllocateInitialBudget gives a freshly created sub-admin its starting balance.
func (s *Service) AllocateInitialBudget(ctx context.Context, adminID, subAdminID uuid.UUID, amount decimal.Decimal) (*ledger.Transaction, error) {
	return s.Transfer(ctx, adminID, subAdminID, amount, "Initial budget allocation", ledger.TypeMoneyGiven)
}

// RequestMoney records a pending request from a sub-admin to its admin. Balances are untouched.
func (s *Service) RequestMoney(ctx context.Context, subAdminID, adminID uuid.UUID, amount decimal.Decimal, reason string) (*ledger.Transaction, error) {
	if !account.ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	sub, err := s.activeUser(ctx, subAdminID)
	if err != nil {
		return nil, err
	}
	if !sub.OwnedBy(adminID) {
		return nil, ErrPermissionDenied
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "money_request:"+subAdminID.String())
		if err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", ErrStoreUnavailable, err)
		}
		if !allowed {
			return nil, ErrRateLimited
		}
	}

	res, err := ApplyLedgeredMutation(ctx, s.store, &Mutation{
		Entries: []*ledger.Transaction{{
			Type:        ledger.TypeMoneyRequest,
			FromUserID:  uuid.NullUUID{UUID: subAdminID, Valid: true},
			ToUserID:    adminID,
			Amount:      amount,
			Description: "Money request: " + strings.TrimSpace(reason),
			Status:      ledger.StatusPending,
		}},
	})
	if err != nil {
		return nil, s.failed(err, "request money", subAdminID)
	}

	log.Info().Str("sub_admin_id", subAdminID.String()).Str("amount", amount.String()).Msg("money request created")
	s.publish(ctx, res, adminID)
	return res.Entry(), nil
}

// ApproveMoneyRequest pays a pending request and settles it in the same unit.
func (s *Service) ApproveMoneyRequest(ctx context.Context, adminID, requestID uuid.UUID) (*ledger.Transaction, error) {
	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		return nil, storeErr(err)
	}
	if req.Type != ledger.TypeMoneyRequest || req.ToUserID != adminID {
		return nil, ErrPermissionDenied
	}
	if !req.IsPending() {
		return nil, ErrRequestNotPending
	}

	subID := req.From()
	sub, err := s.activeUser(ctx, subID)
	if err != nil {
		return nil, err
	}
	if !sub.OwnedBy(adminID) {
		return nil, ErrPermissionDenied
	}

	scope := Scope{Accounts: []uuid.UUID{adminID, subID}, Requests: []uuid.UUID{requestID}}
	res, err := s.store.Execute(ctx, scope, func(state *LockedState) (*Mutation, error) {
		locked := state.Requests[requestID]
		if !locked.IsPending() {
			return nil, ErrRequestNotPending
		}
		if !state.Accounts[adminID].CanCover(locked.Amount) {
			return nil, ErrInsufficientBalance
		}
		entry := &ledger.Transaction{
			Type:        ledger.TypeMoneyGiven,
			FromUserID:  uuid.NullUUID{UUID: adminID, Valid: true},
			ToUserID:    subID,
			Amount:      locked.Amount,
			Description: "Approved: " + locked.Description,
			Reference:   uuid.NullUUID{UUID: requestID, Valid: true},
		}
		m := transferMutation(adminID, subID, locked.Amount, entry)
		m.Settle = []uuid.UUID{requestID}
		return m, nil
	})
	if err != nil {
		return nil, s.failed(err, "approve money request", adminID)
	}

	log.Info().
		Str("admin_id", adminID.String()).
		Str("request_id", requestID.String()).
		Str("amount", req.Amount.String()).
		Msg("money request approved")
	s.publish(ctx, res, adminID)
	return res.Entry(), nil
}

// Purchase checks out a cart: one balance decrement, stock decrements and at
// most two purchase entries commit together.
func (s *Service) Purchase(ctx context.Context, subAdminID uuid.UUID, lines []PurchaseLine) ([]*ledger.Transaction, error) {
	merged, order, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	sub, err := s.activeUser(ctx, subAdminID)
	if err != nil {
		return nil, err
	}
	if !sub.IsSubAdmin() || !sub.AdminID.Valid {
		return nil, ErrPermissionDenied
	}
	adminID := sub.AdminID.UUID

	scope := Scope{Accounts: []uuid.UUID{subAdminID}, Items: order}
	res, err := s.store.Execute(ctx, scope, func(state *LockedState) (*Mutation, error) {
		var assigned, own ledger.Lines
		m := &Mutation{}
		for _, id := range order {
			it := state.Items[id]
			qty := merged[id]
			if !it.PurchasableBy(subAdminID) {
				return nil, fmt.Errorf("%w: item %s", ErrPermissionDenied, id)
			}
			if !it.HasPrice() {
				return nil, fmt.Errorf("%w: %s", ErrMissingPrice, it.Name)
			}
			if qty > it.Quantity {
				return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, it.Name)
			}
			line := ledger.Line{ItemID: id, Name: it.Name, Price: it.Price.Decimal, Quantity: qty}
			if it.IsOwnItemOf(subAdminID) {
				own = append(own, line)
			} else {
				assigned = append(assigned, line)
			}
			m.Stock = append(m.Stock, StockDelta{ItemID: id, Quantity: qty})
		}

		total := assigned.Total().Add(own.Total())
		if !state.Accounts[subAdminID].CanCover(total) {
			return nil, ErrInsufficientBalance
		}
		if total.IsPositive() {
			m.Deltas = []BalanceDelta{{UserID: subAdminID, Amount: total.Neg(), Counter: account.CounterSpent}}
		}

		from := uuid.NullUUID{UUID: subAdminID, Valid: true}
		if len(assigned) > 0 {
			m.Entries = append(m.Entries, &ledger.Transaction{
				Type:        ledger.TypePurchase,
				FromUserID:  from,
				ToUserID:    adminID,
				Amount:      assigned.Total(),
				Description: fmt.Sprintf("Purchase of %d admin-assigned item(s)", len(assigned)),
				Items:       assigned,
			})
		}
		if len(own) > 0 {
			m.Entries = append(m.Entries, &ledger.Transaction{
				Type:              ledger.TypePurchase,
				FromUserID:        from,
				ToUserID:          subAdminID,
				Amount:            own.Total(),
				Description:       fmt.Sprintf("Purchase of %d own item(s)", len(own)),
				Items:             own,
				IsOwnItemPurchase: true,
			})
		}
		return m, nil
	})
	if err != nil {
		return nil, s.failed(err, "purchase", subAdminID)
	}

	total := decimal.Zero
	for _, e := range res.Entries {
		total = total.Add(e.Amount)
	}
	log.Info().
		Str("sub_admin_id", subAdminID.String()).
		Str("total", total.String()).
		Int("entries", len(res.Entries)).
		Msg("purchase completed")
	s.publish(ctx, res, adminID)
	return res.Entries, nil
}

// GetAccount returns the balance record of userID
func (s *Service) GetAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	a, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return a, nil
}

// GetItem reads an item through the store
func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	it, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return it, nil
}

// ListTransactions returns entries visible to actor, newest first.
// Admins see their own entries and their sub-admins'; sub-admins only their own.
func (s *Service) ListTransactions(ctx context.Context, actor user.Actor, filter ledger.Filter) ([]*ledger.Transaction, error) {
	scope, err := s.visibleUsers(ctx, actor)
	if err != nil {
		return nil, err
	}
	if len(filter.UserIDs) > 0 {
		narrowed := make([]uuid.UUID, 0, len(filter.UserIDs))
		for _, id := range filter.UserIDs {
			if slices.Contains(scope, id) {
				narrowed = append(narrowed, id)
			}
		}
		if len(narrowed) == 0 {
			return nil, ErrPermissionDenied
		}
		scope = narrowed
	}
	filter.UserIDs = scope
	if filter.Limit <= 0 {
		filter.Limit = s.defaultLimit
	}

	entries, err := ledger.Collect(s.store.Query(ctx, filter))
	if err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}

// Snapshot returns every entry visible to actor, used for metric aggregation.
func (s *Service) Snapshot(ctx context.Context, actor user.Actor) ([]*ledger.Transaction, error) {
	scope, err := s.visibleUsers(ctx, actor)
	if err != nil {
		return nil, err
	}
	entries, err := ledger.Collect(s.store.Query(ctx, ledger.Filter{UserIDs: scope}))
	if err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}

// GetTransaction returns one entry if actor may see it
func (s *Service) GetTransaction(ctx context.Context, actor user.Actor, id uuid.UUID) (*ledger.Transaction, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	scope, err := s.visibleUsers(ctx, actor)
	if err != nil {
		return nil, err
	}
	if slices.ContainsFunc(scope, t.Involves) {
		return t, nil
	}
	return nil, ErrPermissionDenied
}

func (s *Service) visibleUsers(ctx context.Context, actor user.Actor) ([]uuid.UUID, error) {
	if actor.UserID == uuid.Nil {
		return nil, ErrAuthenticationRequired
	}
	if !actor.IsAdmin() {
		return []uuid.UUID{actor.UserID}, nil
	}
	subs, err := s.users.ListSubAdmins(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: list sub-admins: %v", ErrStoreUnavailable, err)
	}
	ids := make([]uuid.UUID, 0, len(subs)+1)
	ids = append(ids, actor.UserID)
	for _, sub := range subs {
		ids = append(ids, sub.ID)
	}
	return ids, nil
}

func (s *Service) activeUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %v", ErrStoreUnavailable, err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	if !u.IsActive() {
		return nil, ErrInactiveUser
	}
	return u, nil
}

func (s *Service) failed(err error, op string, userID uuid.UUID) error {
	err = storeErr(err)
	if isInfra(err) {
		log.Error().Err(err).Str("op", op).Str("user_id", userID.String()).Msg("budget mutation failed")
	}
	return err
}

// publish fans committed changes out to every involved user and the owning admin.
func (s *Service) publish(ctx context.Context, res *Result, adminID uuid.UUID) {
	if s.notifier == nil || res == nil {
		return
	}
	for _, e := range res.Entries {
		s.notifier.Notify(ctx, audience(adminID, e.Parties()...), EventTransactionCreated, e)
	}
	for _, e := range res.Settled {
		s.notifier.Notify(ctx, audience(adminID, e.Parties()...), EventTransactionUpdated, e)
	}
	for id, a := range res.Accounts {
		s.notifier.Notify(ctx, audience(adminID, id), EventAccountUpdated, a)
	}
	for _, it := range res.Items {
		ids := []uuid.UUID{it.CreatedBy}
		if it.AssignedTo.Valid {
			ids = append(ids, it.AssignedTo.UUID)
		}
		s.notifier.Notify(ctx, audience(adminID, ids...), item.EventItemUpdated, item.NewResponse(it))
	}
}

func transferMutation(fromID, toID uuid.UUID, amount decimal.Decimal, entry *ledger.Transaction) *Mutation {
	return &Mutation{
		Deltas: []BalanceDelta{
			{UserID: fromID, Amount: amount.Neg(), Counter: account.CounterTransferred},
			{UserID: toID, Amount: amount, Counter: account.CounterReceived},
		},
		Entries: []*ledger.Transaction{entry},
	}
}

// mergeLines folds duplicate items together, keeping first-seen order.
func mergeLines(lines []PurchaseLine) (map[uuid.UUID]int, []uuid.UUID, error) {
	if len(lines) == 0 {
		return nil, nil, ErrEmptyCart
	}
	merged := make(map[uuid.UUID]int, len(lines))
	order := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: quantity", ErrInvalidAmount)
		}
		if _, seen := merged[l.ItemID]; !seen {
			order = append(order, l.ItemID)
		}
		merged[l.ItemID] += l.Quantity
	}
	return merged, order, nil
}

func audience(adminID uuid.UUID, ids ...uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids)+1)
	seen := make(map[uuid.UUID]bool, len(ids)+1)
	for _, id := range append(ids, adminID) {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func isInfra(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
