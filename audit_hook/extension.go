// Package audithook bridges Ledger lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/propshare/plugin"
	"github.com/xraph/propshare/property"
	"github.com/xraph/propshare/rent"
	"github.com/xraph/propshare/trade"
	"github.com/xraph/propshare/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnPropertyRegistered   = (*Extension)(nil)
	_ plugin.OnSharesPurchased      = (*Extension)(nil)
	_ plugin.OnSharesSold           = (*Extension)(nil)
	_ plugin.OnRentReceived         = (*Extension)(nil)
	_ plugin.OnDividendsDistributed = (*Extension)(nil)
	_ plugin.OnLedgerObsoleted      = (*Extension)(nil)
	_ plugin.OnRentRateUpdated      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that the audithook package does not import
// any audit system directly — callers inject the concrete backend at
// wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Property lifecycle hooks
// ──────────────────────────────────────────────────

// OnPropertyRegistered implements plugin.OnPropertyRegistered.
func (e *Extension) OnPropertyRegistered(ctx context.Context, p *property.Property) error {
	return e.record(ctx, ActionPropertyRegistered, SeverityInfo, OutcomeSuccess,
		ResourceProperty, fmt.Sprintf("%d", p.ID), CategoryRegistry, nil,
		"owner", p.Owner,
		"total_shares", p.TotalShares,
		"property_value", p.PropertyValue.String(),
	)
}

// OnRentRateUpdated implements plugin.OnRentRateUpdated.
func (e *Extension) OnRentRateUpdated(ctx context.Context, propertyID int64, rate types.Money) error {
	return e.record(ctx, ActionRentRateUpdated, SeverityInfo, OutcomeSuccess,
		ResourceProperty, fmt.Sprintf("%d", propertyID), CategoryRegistry, nil,
		"new_rate", rate.String(),
	)
}

// ──────────────────────────────────────────────────
// Trading hooks
// ──────────────────────────────────────────────────

// OnSharesPurchased implements plugin.OnSharesPurchased.
func (e *Extension) OnSharesPurchased(ctx context.Context, t *trade.Trade) error {
	return e.record(ctx, ActionSharesPurchased, SeverityInfo, OutcomeSuccess,
		ResourceTrade, t.ID.String(), CategoryTrading, nil,
		"property_id", t.PropertyID,
		"holder", t.Holder,
		"shares", t.Shares,
		"amount", t.Amount.String(),
	)
}

// OnSharesSold implements plugin.OnSharesSold.
func (e *Extension) OnSharesSold(ctx context.Context, t *trade.Trade) error {
	return e.record(ctx, ActionSharesSold, SeverityInfo, OutcomeSuccess,
		ResourceTrade, t.ID.String(), CategoryTrading, nil,
		"property_id", t.PropertyID,
		"holder", t.Holder,
		"shares", t.Shares,
		"amount", t.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Rent hooks
// ──────────────────────────────────────────────────

// OnRentReceived implements plugin.OnRentReceived.
func (e *Extension) OnRentReceived(ctx context.Context, r *rent.Receipt) error {
	return e.record(ctx, ActionRentReceived, SeverityInfo, OutcomeSuccess,
		ResourceRentReceipt, r.ID.String(), CategoryRent, nil,
		"property_id", r.PropertyID,
		"amount", r.Amount.String(),
	)
}

// OnDividendsDistributed implements plugin.OnDividendsDistributed.
func (e *Extension) OnDividendsDistributed(ctx context.Context, d *rent.Distribution) error {
	return e.record(ctx, ActionDividendsDistributed, SeverityInfo, OutcomeSuccess,
		ResourceDistribution, d.ID.String(), CategoryRent, nil,
		"property_id", d.PropertyID,
		"per_share", d.PerShare.String(),
		"total_paid", d.TotalPaid.String(),
		"holders", len(d.Payouts),
	)
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnLedgerObsoleted implements plugin.OnLedgerObsoleted.
func (e *Extension) OnLedgerObsoleted(ctx context.Context, at time.Time) error {
	return e.record(ctx, ActionLedgerObsoleted, SeverityWarning, OutcomeSuccess,
		ResourceLedger, "", CategoryLifecycle, nil,
		"at", at,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audithook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
