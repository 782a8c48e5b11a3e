// Package store defines the unified storage interface for the Propshare
// ledger and is implemented by the memory, sqlite, postgres and mongo
// backends.
package store

import (
	"context"
	"time"

	"github.com/xraph/propshare/id"
	"github.com/xraph/propshare/lifecycle"
	"github.com/xraph/propshare/property"
	"github.com/xraph/propshare/rent"
	"github.com/xraph/propshare/trade"
	"github.com/xraph/propshare/types"
)

// Store is the unified storage interface for all Propshare state.
// Instead of embedding the per-entity sub-interfaces, we explicitly
// declare all methods to avoid naming conflicts.
//
// The engine serializes mutating calls, so implementations may assume
// that no two mutating methods run concurrently; each method must still
// be individually atomic (it either applies fully or returns an error
// with no state change).
type Store interface {
	// Property methods. CreateProperty assigns the next sequential id
	// (starting at zero) and returns it; ids are never reused.
	CreateProperty(ctx context.Context, p *property.Property) (int64, error)
	GetProperty(ctx context.Context, propertyID int64) (*property.Property, error)
	ListProperties(ctx context.Context, opts property.ListOpts) ([]*property.Property, error)
	UpdateRentalPayment(ctx context.Context, propertyID int64, rate types.Money) error

	// Share ledger methods. TransferFromPool moves shares from the pool
	// to a holder (purchase direction) and fails with
	// propshare.ErrInsufficientSupply when the pool is short;
	// TransferToPool moves them back (sale direction) and fails with
	// propshare.ErrInsufficientBalance when the holder is short.
	// Neither may ever drive a balance negative or let it wrap.
	Balance(ctx context.Context, propertyID int64, holder string) (int64, error)
	Holders(ctx context.Context, propertyID int64) ([]property.Holding, error)
	TransferFromPool(ctx context.Context, propertyID int64, holder string, shares int64) error
	TransferToPool(ctx context.Context, propertyID int64, holder string, shares int64) error

	// Pool fund methods. The pool balance is per property and holds the
	// distributable rental income.
	CreditPool(ctx context.Context, propertyID int64, amount types.Money) error
	DebitPool(ctx context.Context, propertyID int64, amount types.Money) error

	// Trade receipt methods. DeleteTrade exists so a failed external
	// transfer can unwind the receipt along with the share mutation.
	RecordTrade(ctx context.Context, t *trade.Trade) error
	DeleteTrade(ctx context.Context, tradeID id.TradeID) error
	ListTrades(ctx context.Context, propertyID int64, opts trade.ListOpts) ([]*trade.Trade, error)

	// Rent and distribution methods.
	RecordRentReceipt(ctx context.Context, r *rent.Receipt) error
	ListRentReceipts(ctx context.Context, propertyID int64, opts rent.ListOpts) ([]*rent.Receipt, error)
	RecordDistribution(ctx context.Context, d *rent.Distribution) error
	DeleteDistribution(ctx context.Context, distID id.DistributionID) error
	ListDistributions(ctx context.Context, propertyID int64, opts rent.ListOpts) ([]*rent.Distribution, error)

	// Lifecycle methods. The lifecycle record is a singleton; stores
	// return a zero-value State until the first mutation.
	Lifecycle(ctx context.Context) (*lifecycle.State, error)
	MarkObsolete(ctx context.Context, at time.Time) error
	RecordRentUpdate(ctx context.Context, at time.Time, amount types.Money) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
