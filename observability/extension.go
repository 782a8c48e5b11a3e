// Package observability provides a metrics extension for Propshare that
// records lifecycle event counts via an injected MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/propshare/plugin"
	"github.com/xraph/propshare/property"
	"github.com/xraph/propshare/rent"
	"github.com/xraph/propshare/trade"
	"github.com/xraph/propshare/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnPropertyRegistered   = (*MetricsExtension)(nil)
	_ plugin.OnSharesPurchased      = (*MetricsExtension)(nil)
	_ plugin.OnSharesSold           = (*MetricsExtension)(nil)
	_ plugin.OnRentReceived         = (*MetricsExtension)(nil)
	_ plugin.OnDividendsDistributed = (*MetricsExtension)(nil)
	_ plugin.OnLedgerObsoleted      = (*MetricsExtension)(nil)
	_ plugin.OnRentRateUpdated      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Ledger plugin to automatically track trading and
// distribution metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Registry metrics
	PropertiesRegistered Counter
	RentRateUpdates      Counter

	// Trading metrics
	SharesPurchased Counter
	SharesSold      Counter
	TradeVolume     Histogram

	// Rent metrics
	RentPaymentsReceived Counter
	RentAmount           Histogram
	Distributions        Counter
	DistributionTotal    Histogram
	PayoutCount          Histogram

	// Lifecycle metrics
	LedgerObsoleted Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Registry metrics
		PropertiesRegistered: factory.Counter("propshare.property.registered"),
		RentRateUpdates:      factory.Counter("propshare.property.rent_rate_updated"),

		// Trading metrics
		SharesPurchased: factory.Counter("propshare.shares.purchased"),
		SharesSold:      factory.Counter("propshare.shares.sold"),
		TradeVolume:     factory.Histogram("propshare.trade.volume_cents"),

		// Rent metrics
		RentPaymentsReceived: factory.Counter("propshare.rent.received"),
		RentAmount:           factory.Histogram("propshare.rent.amount_cents"),
		Distributions:        factory.Counter("propshare.dividends.distributed"),
		DistributionTotal:    factory.Histogram("propshare.dividends.total_cents"),
		PayoutCount:          factory.Histogram("propshare.dividends.payouts"),

		// Lifecycle metrics
		LedgerObsoleted: factory.Counter("propshare.ledger.obsoleted"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnPropertyRegistered implements plugin.OnPropertyRegistered.
func (m *MetricsExtension) OnPropertyRegistered(_ context.Context, _ *property.Property) error {
	m.PropertiesRegistered.Inc()
	return nil
}

// OnRentRateUpdated implements plugin.OnRentRateUpdated.
func (m *MetricsExtension) OnRentRateUpdated(_ context.Context, _ int64, _ types.Money) error {
	m.RentRateUpdates.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Trading hooks
// ──────────────────────────────────────────────────

// OnSharesPurchased implements plugin.OnSharesPurchased.
func (m *MetricsExtension) OnSharesPurchased(_ context.Context, t *trade.Trade) error {
	m.SharesPurchased.Inc()
	m.TradeVolume.Observe(float64(t.Amount.Amount))
	return nil
}

// OnSharesSold implements plugin.OnSharesSold.
func (m *MetricsExtension) OnSharesSold(_ context.Context, t *trade.Trade) error {
	m.SharesSold.Inc()
	m.TradeVolume.Observe(float64(t.Amount.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Rent hooks
// ──────────────────────────────────────────────────

// OnRentReceived implements plugin.OnRentReceived.
func (m *MetricsExtension) OnRentReceived(_ context.Context, r *rent.Receipt) error {
	m.RentPaymentsReceived.Inc()
	m.RentAmount.Observe(float64(r.Amount.Amount))
	return nil
}

// OnDividendsDistributed implements plugin.OnDividendsDistributed.
func (m *MetricsExtension) OnDividendsDistributed(_ context.Context, d *rent.Distribution) error {
	m.Distributions.Inc()
	m.DistributionTotal.Observe(float64(d.TotalPaid.Amount))
	m.PayoutCount.Observe(float64(len(d.Payouts)))
	return nil
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnLedgerObsoleted implements plugin.OnLedgerObsoleted.
func (m *MetricsExtension) OnLedgerObsoleted(_ context.Context, _ time.Time) error {
	m.LedgerObsoleted.Inc()
	return nil
}
