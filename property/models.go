// Package property defines the registered asset records and their
// per-holder share ledger.
package property

import (
	"github.com/xraph/propshare/types"
)

// Property is one registered real-estate-backed asset. Share supply is
// fixed at registration; AvailableShares tracks the pool-held remainder.
//
// Conservation invariant: AvailableShares plus the sum of all holder
// balances always equals TotalShares.
type Property struct {
	types.Entity
	ID              int64             `json:"id"`               // Sequential, assigned at registration, never reused
	Owner           string            `json:"owner"`            // Administrator identity that registered it (immutable)
	TotalShares     int64             `json:"total_shares"`     // Fixed supply, > 0 (immutable)
	AvailableShares int64             `json:"available_shares"` // Shares still held by the pool
	RentalPayment   types.Money       `json:"rental_payment"`   // Per-share rent rate
	PropertyValue   types.Money       `json:"property_value"`   // Valuation driving the share price
	PoolBalance     types.Money       `json:"pool_balance"`     // Distributable rental income collected so far
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// ShareValue derives the per-share price from the stored valuation using
// integer (floor) division. It is a pure function of PropertyValue and
// TotalShares; the aggregate rounding loss across all shares is strictly
// less than one PropertyValue unit per share sold.
func (p *Property) ShareValue() types.Money {
	return p.PropertyValue.Divide(p.TotalShares)
}

// SoldShares returns the number of shares currently held outside the pool.
func (p *Property) SoldShares() int64 {
	return p.TotalShares - p.AvailableShares
}

// Holding is one holder's positive share balance in a property.
// The store maintains holdings as an explicit set so that dividend
// distribution has an honest, bounded iteration domain.
type Holding struct {
	PropertyID int64  `json:"property_id"`
	Holder     string `json:"holder"`
	Shares     int64  `json:"shares"`
}

// ListOpts controls property listings.
type ListOpts struct {
	Owner  string
	Limit  int
	Offset int
}
