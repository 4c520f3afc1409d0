package ledger

import (
	"errors"
	"testing"
	"time"

	"printshop-backend/internal/models"

	"github.com/shopspring/decimal"
)

func TestApplyParty(t *testing.T) {
	d := decimal.RequireFromString
	cases := []struct {
		typ     models.PartyTransactionType
		balance string
		amount  string
		want    string
		err     error
	}{
		{models.PartyTxOrder, "0", "500", "500", nil},
		{models.PartyTxJobSheet, "500", "250.75", "750.75", nil},
		{models.PartyTxPayment, "750.75", "800", "-49.25", nil},
		{models.PartyTxAdjustment, "100", "-30", "70", nil},
		{models.PartyTxPayment, "100", "0", "100", ErrInvalidAmount},
		{models.PartyTxOrder, "100", "-5", "100", ErrInvalidAmount},
		{models.PartyTxAdjustment, "100", "0", "100", ErrZeroAdjustment},
		{"refund", "100", "5", "100", ErrUnknownType},
	}
	for _, tc := range cases {
		got, err := ApplyParty(d(tc.balance), tc.typ, d(tc.amount))
		if !errors.Is(err, tc.err) {
			t.Fatalf("%s %s: err = %v, want %v", tc.typ, tc.amount, err, tc.err)
		}
		if !got.Equal(d(tc.want)) {
			t.Fatalf("%s %s: balance = %s, want %s", tc.typ, tc.amount, got, tc.want)
		}
	}
}

func TestReplayParty(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	txs := []models.PartyTransaction{
		{ID: 1, Type: models.PartyTxJobSheet, Amount: decimal.NewFromInt(1000), CreatedAt: base},
		{ID: 2, Type: models.PartyTxPayment, Amount: decimal.NewFromInt(400), CreatedAt: base.Add(time.Hour)},
		{ID: 3, Type: models.PartyTxOrder, Amount: decimal.NewFromInt(50), CreatedAt: base.Add(2 * time.Hour)},
	}
	txs[1].MarkDeleted("bounced cheque", 2, base)

	out, balance, err := ReplayParty(txs)
	if err != nil {
		t.Fatal(err)
	}
	if !balance.Equal(decimal.NewFromInt(1050)) {
		t.Fatalf("balance = %s, want 1050", balance)
	}
	if !out[2].BalanceAfter.Equal(decimal.NewFromInt(1050)) {
		t.Fatalf("last balance_after = %s", out[2].BalanceAfter)
	}

	out[1].Restore()
	_, balance, err = ReplayParty(out)
	if err != nil {
		t.Fatal(err)
	}
	if !balance.Equal(decimal.NewFromInt(650)) {
		t.Fatalf("balance after restore = %s, want 650", balance)
	}
}
