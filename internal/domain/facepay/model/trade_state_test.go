package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTradeStateClassification(t *testing.T) {
	testCases := []struct {
		state   TradeState
		final   bool
		success bool
		failed  bool
	}{
		{state: TradeStateSuccess, final: true, success: true, failed: false},
		{state: TradeStateRefund, final: true, success: false, failed: false},
		{state: TradeStateClosed, final: true, success: false, failed: true},
		{state: TradeStatePayError, final: true, success: false, failed: true},
		{state: TradeStateNotPay, final: false, success: false, failed: false},
		{state: TradeStateNotPayNot, final: false, success: false, failed: false},
		{state: TradeStateUserPaying, final: false, success: false, failed: false},
	}
	assert.Len(t, testCases, len(AllTradeStates()))

	for _, tc := range testCases {
		t.Run(tc.state.String(), func(t *testing.T) {
			assert.Equal(t, tc.final, tc.state.IsFinal())
			assert.Equal(t, tc.success, tc.state.IsSuccess())
			assert.Equal(t, tc.failed, tc.state.IsFailed())
			assert.NotEmpty(t, tc.state.Label())
			assert.NotEmpty(t, tc.state.Badge())
		})
	}
}

func TestParseTradeState(t *testing.T) {
	for _, s := range AllTradeStates() {
		got, ok := ParseTradeState(string(s))
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}

	_, ok := ParseTradeState("REVOKED")
	assert.False(t, ok)
	_, ok = ParseTradeState("")
	assert.False(t, ok)

	unknown := TradeState("REVOKED")
	assert.False(t, unknown.IsFinal())
	assert.Empty(t, unknown.Label())
}
