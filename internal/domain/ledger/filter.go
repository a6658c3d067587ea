package ledger

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Filter selects ledger entries. Zero values mean "any".
type Filter struct {
	Types      []Type
	Status     Status
	UserIDs    []uuid.UUID // entry involves any of these users
	FromUserID *uuid.UUID
	ToUserID   *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
	Limit      int
}

// Match evaluates the filter in memory
func (f Filter) Match(t *Transaction) bool {
	if len(f.Types) > 0 {
		found := false
		for _, typ := range f.Types {
			if t.Type == typ {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if len(f.UserIDs) > 0 {
		found := false
		for _, id := range f.UserIDs {
			if t.Involves(id) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.FromUserID != nil && t.From() != *f.FromUserID {
		return false
	}
	if f.ToUserID != nil && t.ToUserID != *f.ToUserID {
		return false
	}
	if f.DateFrom != nil && t.Timestamp.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && t.Timestamp.After(*f.DateTo) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Reader is the query side of the ledger store
type Reader interface {
	// Query yields matching entries newest first. Each range re-runs the query.
	Query(ctx context.Context, filter Filter) iter.Seq2[*Transaction, error]
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
}

// Collect drains a query into a slice, stopping at the first error
func Collect(seq iter.Seq2[*Transaction, error]) ([]*Transaction, error) {
	var out []*Transaction
	for t, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
