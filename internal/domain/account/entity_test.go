package account

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestApplyTracksCounters(t *testing.T) {
	a := New(uuid.New())
	now := time.Now()

	a.Apply(decimal.NewFromInt(200), CounterReceived, now)
	a.Apply(decimal.NewFromInt(-130), CounterSpent, now)
	a.Apply(decimal.NewFromInt(-20), CounterTransferred, now)
	a.Apply(decimal.NewFromInt(5), CounterNone, now)

	assert.True(t, a.Balance.Equal(decimal.NewFromInt(55)))
	assert.True(t, a.TotalReceived.Equal(decimal.NewFromInt(200)))
	assert.True(t, a.TotalSpent.Equal(decimal.NewFromInt(130)))
	assert.True(t, a.TotalTransferred.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, now, a.UpdatedAt)
}

func TestCanCover(t *testing.T) {
	a := New(uuid.New())
	a.Apply(decimal.NewFromInt(10), CounterReceived, time.Now())

	assert.True(t, a.CanCover(decimal.NewFromInt(10)))
	assert.False(t, a.CanCover(decimal.RequireFromString("10.01")))
}

func TestValidAmount(t *testing.T) {
	cases := map[string]bool{
		"10":     true,
		"0.01":   true,
		"12.50":  true,
		"12.500": true,
		"0.005":  false,
		"0.004":  false,
		"1.999":  false,
		"0":      false,
		"-1":     false,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ValidAmount(decimal.RequireFromString(raw)), raw)
	}
	assert.True(t, FitsScale(decimal.Zero))
}
