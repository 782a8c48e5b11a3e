// Package plugin provides an extensible plugin system for Propshare.
// Plugins hook into ledger lifecycle events; the engine fans every
// event out to all registered plugins. Delivery is best-effort and
// never fails or blocks the triggering operation.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/propshare/property"
	"github.com/xraph/propshare/rent"
	"github.com/xraph/propshare/trade"
	"github.com/xraph/propshare/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized. The engine passes
// itself as an opaque value to avoid an import cycle with the root
// package.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnPropertyRegistered is called when a new property is registered.
type OnPropertyRegistered interface {
	Plugin
	OnPropertyRegistered(ctx context.Context, p *property.Property) error
}

// ──────────────────────────────────────────────────
// Trading hooks
// ──────────────────────────────────────────────────

// OnSharesPurchased is called when shares move from the pool to a holder.
// The trade carries the amount actually charged, not the amount tendered.
type OnSharesPurchased interface {
	Plugin
	OnSharesPurchased(ctx context.Context, t *trade.Trade) error
}

// OnSharesSold is called when shares move from a holder back to the pool.
type OnSharesSold interface {
	Plugin
	OnSharesSold(ctx context.Context, t *trade.Trade) error
}

// ──────────────────────────────────────────────────
// Rent and distribution hooks
// ──────────────────────────────────────────────────

// OnRentReceived is called when a rental payment is accepted into the pool.
type OnRentReceived interface {
	Plugin
	OnRentReceived(ctx context.Context, r *rent.Receipt) error
}

// OnDividendsDistributed is called when a dividend run completes.
// The distribution carries the pool balance at the time of the call.
type OnDividendsDistributed interface {
	Plugin
	OnDividendsDistributed(ctx context.Context, d *rent.Distribution) error
}

// ──────────────────────────────────────────────────
// Lifecycle gate hooks
// ──────────────────────────────────────────────────

// OnLedgerObsoleted is called when the one-way obsolete transition fires.
type OnLedgerObsoleted interface {
	Plugin
	OnLedgerObsoleted(ctx context.Context, at time.Time) error
}

// OnRentRateUpdated is called when a property's rent rate changes.
type OnRentRateUpdated interface {
	Plugin
	OnRentRateUpdated(ctx context.Context, propertyID int64, rate types.Money) error
}
