package ledger

import (
	"errors"
	"sort"

	"printshop-backend/internal/models"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("amount must be greater than zero")

// SignedAmount returns the change a party transaction makes to the balance.
// Positive balance means the party owes the shop.
func SignedAmount(t models.PartyTransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	switch t {
	case models.PartyTxPayment:
		if !amount.IsPositive() {
			return decimal.Zero, ErrInvalidAmount
		}
		return amount.Neg(), nil
	case models.PartyTxOrder, models.PartyTxJobSheet:
		if !amount.IsPositive() {
			return decimal.Zero, ErrInvalidAmount
		}
		return amount, nil
	case models.PartyTxAdjustment:
		if amount.IsZero() {
			return decimal.Zero, ErrZeroAdjustment
		}
		return amount, nil
	default:
		return decimal.Zero, ErrUnknownType
	}
}

func ApplyParty(balance decimal.Decimal, t models.PartyTransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	delta, err := SignedAmount(t, amount)
	if err != nil {
		return balance, err
	}
	return balance.Add(delta), nil
}

// ReplayParty is ReplayStock for party ledgers.
func ReplayParty(txs []models.PartyTransaction) ([]models.PartyTransaction, decimal.Decimal, error) {
	out := make([]models.PartyTransaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	balance := decimal.Zero
	for i := range out {
		if out[i].IsDeleted {
			continue
		}
		delta, err := SignedAmount(out[i].Type, out[i].Amount)
		if err != nil {
			return nil, decimal.Zero, err
		}
		balance = balance.Add(delta)
		out[i].BalanceAfter = balance
	}
	return out, balance, nil
}
