// Package rent defines the records written by the rent and dividend
// distribution engine: rental income receipts, and distribution records
// with their per-holder payout lines.
package rent

import (
	"github.com/xraph/propshare/id"
	"github.com/xraph/propshare/types"
)

// Receipt records one accepted rental payment. The accepted amount is
// always exactly the property's per-share rent rate multiplied by the
// pool-held share count at the time of the deposit.
type Receipt struct {
	types.Entity
	ID         id.RentReceiptID `json:"id"`
	PropertyID int64            `json:"property_id"`
	Amount     types.Money      `json:"amount"`
}

// Distribution records one completed dividend run for a property.
// PoolBalance is the distributable balance at the time of the call;
// PerShare is that balance floor-divided by the total share supply;
// TotalPaid is the sum of all payout lines and is what was actually
// debited from the pool (the floor remainder stays behind).
type Distribution struct {
	types.Entity
	ID          id.DistributionID `json:"id"`
	PropertyID  int64             `json:"property_id"`
	PoolBalance types.Money       `json:"pool_balance"`
	PerShare    types.Money       `json:"per_share"`
	TotalPaid   types.Money       `json:"total_paid"`
	Payouts     []Payout          `json:"payouts"`
}

// Payout is one holder's line in a distribution: PerShare multiplied by
// the holder's share balance at distribution time. Every holder with a
// strictly positive balance gets exactly one line; pool-held shares get
// none.
type Payout struct {
	ID             id.PayoutID       `json:"id"`
	DistributionID id.DistributionID `json:"distribution_id"`
	Holder         string            `json:"holder"`
	Shares         int64             `json:"shares"`
	Amount         types.Money       `json:"amount"`
}

// ListOpts controls distribution and receipt listings.
type ListOpts struct {
	Limit  int
	Offset int
}
