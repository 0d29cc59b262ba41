package account

import (
	"context"

	"dex_trader/internal/core"

	"github.com/shopspring/decimal"
)

// Withdrawal is one denom amount that can be moved out of a subaccount
type Withdrawal struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// WithdrawableBalances returns the balances whose available amount is at least
// one minor unit, amounts truncated to integers
func WithdrawableBalances(balances []core.Balance) []Withdrawal {
	var out []Withdrawal
	for _, b := range balances {
		amount := b.AvailableBalance.Truncate(0)
		if !amount.IsPositive() {
			continue
		}
		out = append(out, Withdrawal{Denom: b.Denom, Amount: amount.String()})
	}
	return out
}

// AvailableBalance returns the available amount of denom, zero when absent
func AvailableBalance(balances []core.Balance, denom string) decimal.Decimal {
	for _, b := range balances {
		if b.Denom == denom {
			return b.AvailableBalance
		}
	}
	return decimal.Zero
}

// FetchWithdrawable loads the subaccount balances and keeps the withdrawable ones
func FetchWithdrawable(ctx context.Context, consumer core.IAccountConsumer, subaccountID string) ([]Withdrawal, error) {
	balances, err := consumer.FetchSubaccountBalances(ctx, subaccountID)
	if err != nil {
		return nil, err
	}
	return WithdrawableBalances(balances), nil
}
