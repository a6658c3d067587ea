package budget

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
)

// FundRequest is the body of POST /budget/fund
type FundRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0,money"`
	Source string          `json:"source" validate:"max=100"`
}

// TransferRequest is the body of POST /budget/transfers.
// Sub-admins may omit to_user_id; the transfer goes to their admin.
type TransferRequest struct {
	ToUserID    *uuid.UUID      `json:"to_user_id,omitempty"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0,money"`
	Description string          `json:"description" validate:"max=500"`
}

// MoneyRequestRequest is the body of POST /budget/requests
type MoneyRequestRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0,money"`
	Reason string          `json:"reason" validate:"required,max=500"`
}

// PurchaseResponse is returned by checkout
type PurchaseResponse struct {
	Transactions []*ledger.Transaction `json:"transactions"`
	Total        decimal.Decimal       `json:"total"`
}

func NewPurchaseResponse(entries []*ledger.Transaction) *PurchaseResponse {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return &PurchaseResponse{Transactions: entries, Total: total}
}

// ParseFilter reads transaction list filters from a query string
func ParseFilter(q url.Values) (ledger.Filter, map[string]string) {
	var f ledger.Filter
	errs := make(map[string]string)

	if raw := q.Get("type"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			t := ledger.Type(strings.TrimSpace(part))
			if !t.Valid() {
				errs["type"] = "Invalid transaction type"
				break
			}
			f.Types = append(f.Types, t)
		}
	}

	switch status := ledger.Status(q.Get("status")); status {
	case "", ledger.StatusPending, ledger.StatusCompleted:
		f.Status = status
	default:
		errs["status"] = "Invalid status. Must be: pending or completed"
	}

	if raw := q.Get("date_from"); raw != "" {
		if t, ok := parseDate(raw, false); ok {
			f.DateFrom = &t
		} else {
			errs["date_from"] = "Invalid date"
		}
	}
	if raw := q.Get("date_to"); raw != "" {
		if t, ok := parseDate(raw, true); ok {
			f.DateTo = &t
		} else {
			errs["date_to"] = "Invalid date"
		}
	}

	if raw := q.Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			errs["user_id"] = "Invalid user ID"
		} else {
			f.UserIDs = []uuid.UUID{id}
		}
	}

	f.Search = strings.TrimSpace(q.Get("search"))

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			errs["limit"] = "Value must be between 1 and 500"
		} else {
			f.Limit = limit
		}
	}

	if len(errs) > 0 {
		return f, errs
	}
	return f, nil
}

// parseDate accepts RFC3339 or a plain date; a plain end date covers the whole day.
func parseDate(raw string, endOfDay bool) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true
}
