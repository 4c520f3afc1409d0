// Package ledger holds the arithmetic behind paper stock and party balances:
// applying transactions, replaying history after soft deletes, filtering and
// dashboard aggregation. Nothing here touches the database.
package ledger

import (
	"errors"
	"sort"

	"printshop-backend/internal/models"
)

var (
	ErrInvalidQuantity        = errors.New("quantity must be a positive number")
	ErrZeroAdjustment         = errors.New("adjustment quantity cannot be zero")
	ErrInvalidUnitSize        = errors.New("unit size must be a positive number")
	ErrUnknownType            = errors.New("unknown transaction type")
	ErrInsufficientAvailable  = errors.New("not enough available sheets to reserve")
	ErrReleaseExceedsReserved = errors.New("cannot release more sheets than are reserved")
)

// StockState is the mutable part of a stock item.
type StockState struct {
	Current  int64
	Reserved int64
}

func StateOf(item models.StockItem) StockState {
	return StockState{Current: item.CurrentQuantity, Reserved: item.ReservedQuantity}
}

// Available is what may still be allocated: current minus reserved.
func Available(current, reserved int64) int64 {
	return current - reserved
}

func (s StockState) Available() int64 {
	return Available(s.Current, s.Reserved)
}

// TotalSheets converts a unit quantity into sheets. The quantity sign is kept
// so that adjustments can be negative.
func TotalSheets(quantity, unitSize int64) (int64, error) {
	if unitSize <= 0 {
		return 0, ErrInvalidUnitSize
	}
	if quantity == 0 {
		return 0, ErrInvalidQuantity
	}
	total := quantity * unitSize
	if total/unitSize != quantity {
		return 0, ErrInvalidQuantity
	}
	return total, nil
}

// SignedSheets returns the delta a transaction applies to current quantity.
// in adds, out subtracts, adjustment is already a signed delta.
func SignedSheets(t models.InventoryTransactionType, totalSheets int64) (int64, error) {
	switch t {
	case models.InventoryTxIn:
		if totalSheets <= 0 {
			return 0, ErrInvalidQuantity
		}
		return totalSheets, nil
	case models.InventoryTxOut:
		if totalSheets <= 0 {
			return 0, ErrInvalidQuantity
		}
		return -totalSheets, nil
	case models.InventoryTxAdjustment:
		if totalSheets == 0 {
			return 0, ErrZeroAdjustment
		}
		return totalSheets, nil
	default:
		return 0, ErrUnknownType
	}
}

// ApplyStock applies one transaction. out has no floor: a negative result is
// a paper debt towards the party.
func ApplyStock(s StockState, t models.InventoryTransactionType, totalSheets int64) (StockState, error) {
	delta, err := SignedSheets(t, totalSheets)
	if err != nil {
		return s, err
	}
	s.Current += delta
	return s, nil
}

func Reserve(s StockState, sheets int64) (StockState, error) {
	if sheets <= 0 {
		return s, ErrInvalidQuantity
	}
	if sheets > s.Available() {
		return s, ErrInsufficientAvailable
	}
	s.Reserved += sheets
	return s, nil
}

func Release(s StockState, sheets int64) (StockState, error) {
	if sheets <= 0 {
		return s, ErrInvalidQuantity
	}
	if sheets > s.Reserved {
		return s, ErrReleaseExceedsReserved
	}
	s.Reserved -= sheets
	return s, nil
}

// ReplayStock recomputes current quantity from scratch over the non-deleted
// transactions in creation order and stamps BalanceAfter on each of them.
// Deleted rows are returned untouched. The input slice is not modified.
func ReplayStock(txs []models.InventoryTransaction) ([]models.InventoryTransaction, int64, error) {
	out := make([]models.InventoryTransaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	var current int64
	for i := range out {
		if out[i].IsDeleted {
			continue
		}
		delta, err := SignedSheets(out[i].Type, out[i].TotalSheets)
		if err != nil {
			return nil, 0, err
		}
		current += delta
		out[i].BalanceAfter = current
	}
	return out, current, nil
}
