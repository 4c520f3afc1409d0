package ledger

import (
	"fmt"
	"strings"
	"time"

	"printshop-backend/internal/models"
)

// DateRange is a window ending now. The zero value matches everything.
type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
	RangeYear  DateRange = "year"
)

func ParseDateRange(s string) (DateRange, error) {
	switch DateRange(s) {
	case "", RangeAll:
		return RangeAll, nil
	case RangeToday, RangeWeek, RangeMonth, RangeYear:
		return DateRange(s), nil
	}
	return "", fmt.Errorf("range must be one of all, today, week, month, year")
}

// Start returns the first instant inside the window, in now's location.
// week covers today and the six days before it.
func (r DateRange) Start(now time.Time) time.Time {
	y, m, d := now.Date()
	loc := now.Location()
	switch r {
	case RangeToday:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case RangeWeek:
		return time.Date(y, m, d-6, 0, 0, 0, 0, loc)
	case RangeMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case RangeYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Time{}
	}
}

func (r DateRange) Contains(t, now time.Time) bool {
	if r == "" || r == RangeAll {
		return true
	}
	return !t.Before(r.Start(now))
}

// DeletedState selects rows by their soft-delete flag. The zero value means
// active rows only.
type DeletedState string

const (
	ShowActive  DeletedState = "active"
	ShowDeleted DeletedState = "deleted"
	ShowAll     DeletedState = "all"
)

func ParseDeletedState(s string) (DeletedState, error) {
	switch DeletedState(s) {
	case "", ShowActive:
		return ShowActive, nil
	case ShowDeleted, ShowAll:
		return DeletedState(s), nil
	}
	return "", fmt.Errorf("deleted must be one of active, deleted, all")
}

func (d DeletedState) Matches(isDeleted bool) bool {
	switch d {
	case ShowAll:
		return true
	case ShowDeleted:
		return isDeleted
	default:
		return !isDeleted
	}
}

// Filter keeps the rows for which match returns true, preserving order.
func Filter[T any](rows []T, match func(T) bool) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func normalizeSearch(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// StockFilter selects stock items. Zero fields do not filter. Party and
// PaperType must be preloaded on the items for Search to see names.
type StockFilter struct {
	Search      string
	PartyID     uint
	PaperTypeID uint
	GSM         int
	Level       StockLevel
}

func (f StockFilter) Match(item models.StockItem) bool {
	if q := normalizeSearch(f.Search); q != "" {
		if !containsFold(item.Party.Name, q) && !containsFold(item.PaperType.Name, q) {
			return false
		}
	}
	if f.PartyID != 0 && item.PartyID != f.PartyID {
		return false
	}
	if f.PaperTypeID != 0 && item.PaperTypeID != f.PaperTypeID {
		return false
	}
	if f.GSM != 0 && item.GSM != f.GSM {
		return false
	}
	if f.Level != "" && ClassifyStock(item.CurrentQuantity) != f.Level {
		return false
	}
	return true
}

func FilterStock(items []models.StockItem, f StockFilter) []models.StockItem {
	return Filter(items, f.Match)
}

// TransactionView is a stock transaction joined with its stock item.
type TransactionView struct {
	Transaction models.InventoryTransaction
	Item        models.StockItem
}

type TransactionFilter struct {
	Search      string
	PartyID     uint
	PaperTypeID uint
	StockItemID uint
	Type        models.InventoryTransactionType
	Range       DateRange
	Deleted     DeletedState
	Now         time.Time
}

func (f TransactionFilter) Match(v TransactionView) bool {
	item := StockFilter{Search: f.Search, PartyID: f.PartyID, PaperTypeID: f.PaperTypeID}
	if !item.Match(v.Item) {
		return false
	}
	if f.StockItemID != 0 && v.Transaction.StockItemID != f.StockItemID {
		return false
	}
	if f.Type != "" && v.Transaction.Type != f.Type {
		return false
	}
	if !f.Range.Contains(v.Transaction.CreatedAt, f.Now) {
		return false
	}
	return f.Deleted.Matches(v.Transaction.IsDeleted)
}

func FilterTransactions(rows []TransactionView, f TransactionFilter) []TransactionView {
	return Filter(rows, f.Match)
}

// PartyTransactionFilter matches Search against the description.
type PartyTransactionFilter struct {
	Search  string
	PartyID uint
	Type    models.PartyTransactionType
	Range   DateRange
	Deleted DeletedState
	Now     time.Time
}

func (f PartyTransactionFilter) Match(tx models.PartyTransaction) bool {
	if q := normalizeSearch(f.Search); q != "" && !containsFold(tx.Description, q) {
		return false
	}
	if f.PartyID != 0 && tx.PartyID != f.PartyID {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if !f.Range.Contains(tx.Date, f.Now) {
		return false
	}
	return f.Deleted.Matches(tx.IsDeleted)
}

// JobSheetFilter matches Search against the description and, when
// preloaded, the party name.
type JobSheetFilter struct {
	Search  string
	PartyID uint
	Range   DateRange
	Deleted DeletedState
	Now     time.Time
}

func (f JobSheetFilter) Match(js models.JobSheet) bool {
	if q := normalizeSearch(f.Search); q != "" {
		if !containsFold(js.Description, q) && !containsFold(js.Party.Name, q) {
			return false
		}
	}
	if f.PartyID != 0 && js.PartyID != f.PartyID {
		return false
	}
	if !f.Range.Contains(js.Date, f.Now) {
		return false
	}
	return f.Deleted.Matches(js.IsDeleted)
}
