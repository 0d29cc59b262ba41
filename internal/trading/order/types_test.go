package order

import (
	"testing"

	"dex_trader/internal/core"
	apperrors "dex_trader/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToProtocolOrderType(t *testing.T) {
	tests := []struct {
		in   OrderType
		want ProtocolOrderType
	}{
		{TypeUnspecified, ProtocolUnspecified},
		{TypeBuy, ProtocolBuy},
		{TypeSell, ProtocolSell},
		{TypeStopBuy, ProtocolStopBuy},
		{TypeStopSell, ProtocolBuy},
		{TypeTakeBuy, ProtocolTakeBuy},
		{TypeTakeSell, ProtocolTakeSell},
		{TypeBuyPO, ProtocolBuy},
		{TypeSellPO, ProtocolBuy},
		{OrderType("market"), ProtocolBuy},
		{OrderType(""), ProtocolBuy},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, ToProtocolOrderType(tt.in))
		})
	}
}

func TestToProtocolOrderTypeStrict(t *testing.T) {
	tests := []struct {
		in   OrderType
		want ProtocolOrderType
	}{
		{TypeUnspecified, ProtocolUnspecified},
		{TypeBuy, ProtocolBuy},
		{TypeSell, ProtocolSell},
		{TypeStopBuy, ProtocolStopBuy},
		{TypeStopSell, ProtocolStopSell},
		{TypeTakeBuy, ProtocolTakeBuy},
		{TypeTakeSell, ProtocolTakeSell},
		{TypeBuyPO, ProtocolBuyPO},
		{TypeSellPO, ProtocolSellPO},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, err := ToProtocolOrderTypeStrict(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ToProtocolOrderTypeStrict("market")
	assert.ErrorIs(t, err, apperrors.ErrUnknownOrderType)
}

func TestParseOrderType(t *testing.T) {
	got, err := ParseOrderType(" STOP_SELL ")
	require.NoError(t, err)
	assert.Equal(t, TypeStopSell, got)

	_, err = ParseOrderType("limit")
	assert.ErrorIs(t, err, apperrors.ErrUnknownOrderType)
}

func TestSideAndFlags(t *testing.T) {
	assert.Equal(t, core.SideBuy, Side(TypeBuy))
	assert.Equal(t, core.SideBuy, Side(TypeTakeBuy))
	assert.Equal(t, core.SideBuy, Side(TypeUnspecified))
	assert.Equal(t, core.SideSell, Side(TypeSellPO))
	assert.Equal(t, core.SideSell, Side(TypeStopSell))

	assert.True(t, IsPostOnly(TypeBuyPO))
	assert.False(t, IsPostOnly(TypeBuy))
	assert.True(t, IsConditional(TypeTakeSell))
	assert.False(t, IsConditional(TypeSellPO))
}
