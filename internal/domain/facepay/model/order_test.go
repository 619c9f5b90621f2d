package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestNewOrder(t *testing.T) {
	o := NewOrder("T1", 100, "coffee")

	assert.Equal(t, "T1", o.OutTradeNo)
	assert.Equal(t, int64(100), o.TotalFee)
	assert.Equal(t, DefaultCurrency, o.Currency)
	assert.Equal(t, TradeStateNotPay, o.TradeState)
	assert.False(t, o.CreatedAt.IsZero())
	assert.Equal(t, o.CreatedAt, o.UpdatedAt)
	assert.True(t, o.IsUnpaid())
	assert.False(t, o.IsTradeStateFinal())
	assert.NoError(t, o.Validate())
}

func TestOrderSetters(t *testing.T) {
	t.Run("negative total fee", func(t *testing.T) {
		o := NewOrder("T1", 100, "coffee")
		assert.ErrorIs(t, o.SetTotalFee(-1), ErrInvalidArgument)
		assert.Equal(t, int64(100), o.TotalFee)
		assert.NoError(t, o.SetTotalFee(0))
	})

	t.Run("out trade no immutable", func(t *testing.T) {
		o := &Order{}
		require.NoError(t, o.SetOutTradeNo("T1"))
		assert.NoError(t, o.SetOutTradeNo("T1"))
		assert.ErrorIs(t, o.SetOutTradeNo("T2"), ErrInvalidArgument)
		assert.Equal(t, "T1", o.OutTradeNo)
	})

	t.Run("expire time and time end", func(t *testing.T) {
		o := NewOrder("T1", 100, "coffee")
		assert.ErrorIs(t, o.SetExpireTime(int64Ptr(-5)), ErrInvalidArgument)
		assert.NoError(t, o.SetExpireTime(int64Ptr(0)))
		assert.NoError(t, o.SetExpireTime(nil))
		assert.ErrorIs(t, o.SetTimeEnd(int64Ptr(-1)), ErrInvalidArgument)
		assert.NoError(t, o.SetTimeEnd(int64Ptr(1700000000)))
	})

	t.Run("user id must be positive", func(t *testing.T) {
		o := NewOrder("T1", 100, "coffee")
		assert.ErrorIs(t, o.SetUserID(int64Ptr(0)), ErrInvalidArgument)
		assert.NoError(t, o.SetUserID(int64Ptr(7)))
		assert.True(t, o.BelongsTo(7))
		assert.False(t, o.BelongsTo(8))
	})
}

func TestOrderValidate(t *testing.T) {
	o := NewOrder(strings.Repeat("a", 65), 1, "coffee")
	assert.ErrorIs(t, o.Validate(), ErrInvalidArgument)

	o = NewOrder("T1", 1, strings.Repeat("茶", 129))
	assert.ErrorIs(t, o.Validate(), ErrInvalidArgument)

	o = NewOrder("T1", 1, strings.Repeat("茶", 128))
	assert.NoError(t, o.Validate())

	o.Currency = "YUAN"
	assert.ErrorIs(t, o.Validate(), ErrInvalidArgument)
}

func TestOrderIsExpired(t *testing.T) {
	now := time.Unix(1700000000, 0)
	o := NewOrder("T1", 1, "coffee")
	assert.False(t, o.IsExpired(now))

	o.ExpireTime = int64Ptr(now.Unix())
	assert.True(t, o.IsExpired(now))

	o.ExpireTime = int64Ptr(now.Unix() + 1)
	assert.False(t, o.IsExpired(now))
}

func TestOrderTradeStateHelpers(t *testing.T) {
	o := NewOrder("T1", 1, "coffee")
	o.TradeState = TradeStateSuccess
	assert.True(t, o.IsTradeStateFinal())
	assert.True(t, o.IsTradeStateSuccess())
	assert.False(t, o.IsTradeStateFailed())

	o.TradeState = TradeStateUserPaying
	assert.True(t, o.IsUserPaying())

	o.TradeState = "BOGUS"
	_, ok := o.TradeStateEnum()
	assert.False(t, ok)
	assert.False(t, o.IsTradeStateFinal())
}
