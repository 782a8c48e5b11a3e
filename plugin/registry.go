package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/propshare/property"
	"github.com/xraph/propshare/rent"
	"github.com/xraph/propshare/trade"
	"github.com/xraph/propshare/types"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onPropertyRegistered   []OnPropertyRegistered
	onSharesPurchased      []OnSharesPurchased
	onSharesSold           []OnSharesSold
	onRentReceived         []OnRentReceived
	onDividendsDistributed []OnDividendsDistributed
	onLedgerObsoleted      []OnLedgerObsoleted
	onRentRateUpdated      []OnRentRateUpdated
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPropertyRegistered); ok {
		r.onPropertyRegistered = append(r.onPropertyRegistered, v)
	}
	if v, ok := p.(OnSharesPurchased); ok {
		r.onSharesPurchased = append(r.onSharesPurchased, v)
	}
	if v, ok := p.(OnSharesSold); ok {
		r.onSharesSold = append(r.onSharesSold, v)
	}
	if v, ok := p.(OnRentReceived); ok {
		r.onRentReceived = append(r.onRentReceived, v)
	}
	if v, ok := p.(OnDividendsDistributed); ok {
		r.onDividendsDistributed = append(r.onDividendsDistributed, v)
	}
	if v, ok := p.(OnLedgerObsoleted); ok {
		r.onLedgerObsoleted = append(r.onLedgerObsoleted, v)
	}
	if v, ok := p.(OnRentRateUpdated); ok {
		r.onRentRateUpdated = append(r.onRentRateUpdated, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnPropertyRegistered)(nil)).Elem(), "OnPropertyRegistered")
	checkInterface(reflect.TypeOf((*OnSharesPurchased)(nil)).Elem(), "OnSharesPurchased")
	checkInterface(reflect.TypeOf((*OnSharesSold)(nil)).Elem(), "OnSharesSold")
	checkInterface(reflect.TypeOf((*OnRentReceived)(nil)).Elem(), "OnRentReceived")
	checkInterface(reflect.TypeOf((*OnDividendsDistributed)(nil)).Elem(), "OnDividendsDistributed")
	checkInterface(reflect.TypeOf((*OnLedgerObsoleted)(nil)).Elem(), "OnLedgerObsoleted")
	checkInterface(reflect.TypeOf((*OnRentRateUpdated)(nil)).Elem(), "OnRentRateUpdated")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPropertyRegistered calls OnPropertyRegistered for all plugins that implement it.
func (r *Registry) EmitPropertyRegistered(ctx context.Context, prop *property.Property) {
	r.mu.RLock()
	plugins := r.onPropertyRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPropertyRegistered(ctx, prop)
		}); err != nil {
			r.logger.Warn("plugin OnPropertyRegistered failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSharesPurchased calls OnSharesPurchased for all plugins that implement it.
func (r *Registry) EmitSharesPurchased(ctx context.Context, t *trade.Trade) {
	r.mu.RLock()
	plugins := r.onSharesPurchased
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSharesPurchased(ctx, t)
		}); err != nil {
			r.logger.Warn("plugin OnSharesPurchased failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSharesSold calls OnSharesSold for all plugins that implement it.
func (r *Registry) EmitSharesSold(ctx context.Context, t *trade.Trade) {
	r.mu.RLock()
	plugins := r.onSharesSold
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSharesSold(ctx, t)
		}); err != nil {
			r.logger.Warn("plugin OnSharesSold failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRentReceived calls OnRentReceived for all plugins that implement it.
func (r *Registry) EmitRentReceived(ctx context.Context, rcpt *rent.Receipt) {
	r.mu.RLock()
	plugins := r.onRentReceived
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRentReceived(ctx, rcpt)
		}); err != nil {
			r.logger.Warn("plugin OnRentReceived failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDividendsDistributed calls OnDividendsDistributed for all plugins that implement it.
func (r *Registry) EmitDividendsDistributed(ctx context.Context, d *rent.Distribution) {
	r.mu.RLock()
	plugins := r.onDividendsDistributed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDividendsDistributed(ctx, d)
		}); err != nil {
			r.logger.Warn("plugin OnDividendsDistributed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLedgerObsoleted calls OnLedgerObsoleted for all plugins that implement it.
func (r *Registry) EmitLedgerObsoleted(ctx context.Context, at time.Time) {
	r.mu.RLock()
	plugins := r.onLedgerObsoleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLedgerObsoleted(ctx, at)
		}); err != nil {
			r.logger.Warn("plugin OnLedgerObsoleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRentRateUpdated calls OnRentRateUpdated for all plugins that implement it.
func (r *Registry) EmitRentRateUpdated(ctx context.Context, propertyID int64, rate types.Money) {
	r.mu.RLock()
	plugins := r.onRentRateUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRentRateUpdated(ctx, propertyID, rate)
		}); err != nil {
			r.logger.Warn("plugin OnRentRateUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
