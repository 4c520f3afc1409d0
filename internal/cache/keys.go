package cache

import "time"

// Cache keys shared by the handlers that fill and invalidate them.
const (
	KeyDashboard    = "dashboard:realtime"
	KeyRevenueChart = "dashboard:revenue-chart"
	KeyPaperTypes   = "paper-types"
	KeyPlateCodes   = "plate-codes"
	KeyParties      = "parties"
)

// LedgerKeys are dropped after any stock, party or job sheet write.
var LedgerKeys = []string{KeyDashboard, KeyRevenueChart, KeyParties}

// Lock kinds.
const (
	LockStockItem = "stock_item"
	LockParty     = "party"
)

// LockWait is how long a writer waits for a busy record.
const LockWait = 3 * time.Second
