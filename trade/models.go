// Package trade defines receipts for share purchases and sales
// executed against the pool.
package trade

import (
	"github.com/xraph/propshare/id"
	"github.com/xraph/propshare/types"
)

// Kind distinguishes the two directions a trade can take.
type Kind string

const (
	// KindPurchase moves shares from the pool to a holder.
	KindPurchase Kind = "purchase"
	// KindSale moves shares from a holder back to the pool.
	KindSale Kind = "sale"
)

// Trade is the persistent receipt written for every executed purchase
// or sale. Amount is the money that actually changed hands — for a
// purchase this is the amount charged, not the amount tendered.
type Trade struct {
	types.Entity
	ID         id.TradeID  `json:"id"`
	PropertyID int64       `json:"property_id"`
	Holder     string      `json:"holder"`
	Kind       Kind        `json:"kind"`
	Shares     int64       `json:"shares"`
	UnitPrice  types.Money `json:"unit_price"`
	Amount     types.Money `json:"amount"`
}

// ListOpts controls trade listings.
type ListOpts struct {
	Holder string
	Kind   Kind
	Limit  int
	Offset int
}
