package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// --- Order Structures (Matching the dashboard JSON) ---

// OrderPayload is the envelope the order feed wraps list responses in.
type OrderPayload struct {
	Success bool `json:"success"`
	Data    struct {
		Orders []Order `json:"orders"`
	} `json:"data"`
}

// Order is owned by the dashboard backend. This agent reads every field and
// writes exactly one: Printed, set true after a confirmed print.
type Order struct {
	ID              int64            `json:"id"`
	CustomerName    string           `json:"customerName"`
	Address         string           `json:"address"`
	ItemDescription string           `json:"itemDescription"`
	Notes           string           `json:"notes"`
	Amount          *decimal.Decimal `json:"amount"` // nil means price not yet set
	PaymentType     string           `json:"paymentType"`
	CreatedAt       time.Time        `json:"createdAt"`
	Printed         bool             `json:"printed"`
}

// Complete reports whether the order is eligible for automatic printing:
// customer name and item description present, and amount either absent or
// strictly positive.
func (o Order) Complete() bool {
	if o.CustomerName == "" || o.ItemDescription == "" {
		return false
	}
	if o.Amount != nil && !o.Amount.IsPositive() {
		return false
	}
	return true
}
