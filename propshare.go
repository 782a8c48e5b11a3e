package propshare

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/xraph/propshare/id"
	"github.com/xraph/propshare/lifecycle"
	"github.com/xraph/propshare/plugin"
	"github.com/xraph/propshare/property"
	"github.com/xraph/propshare/rent"
	"github.com/xraph/propshare/store"
	"github.com/xraph/propshare/trade"
	"github.com/xraph/propshare/types"
)

// DefaultRentCooldown is the minimum elapsed time between rent-rate
// updates across the whole ledger.
const DefaultRentCooldown = 365 * 24 * time.Hour

// Ledger is the fractional-ownership engine. It registers properties,
// trades shares against the pool at the valuation-derived unit price,
// collects rental income and distributes it pro-rata to holders.
//
// A single mutex serializes all mutating entry points: one call commits
// fully before the next begins, so the conservation invariant
// (availableShares + Σ balances == totalShares) holds between any two
// operations.
type Ledger struct {
	mu sync.Mutex

	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// Injected collaborators
	auth     Authorizer
	treasury Treasury
	clock    Clock

	// Configuration
	rentCooldown time.Duration
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:        s,
		plugins:      plugin.NewRegistry(),
		logger:       slog.Default(),
		auth:         denyAll{},
		treasury:     NopTreasury{},
		clock:        systemClock{},
		rentCooldown: DefaultRentCooldown,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithAuthorizer sets the admin capability. Without one, every
// administrator-gated operation fails with ErrUnauthorized.
func WithAuthorizer(a Authorizer) Option {
	return func(l *Ledger) {
		l.auth = a
	}
}

// WithTreasury sets the value-transfer capability.
func WithTreasury(t Treasury) Option {
	return func(l *Ledger) {
		l.treasury = t
	}
}

// WithClock sets the clock consulted by the rent-update cooldown.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithRentCooldown overrides the rent-rate update cooldown window.
func WithRentCooldown(d time.Duration) Option {
	return func(l *Ledger) {
		l.rentCooldown = d
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("propshare ledger started",
		"rent_cooldown", l.rentCooldown,
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())

	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Property Registry
// ──────────────────────────────────────────────────

// RegisterProperty registers a new asset and issues its full share
// supply to the pool. Administrator-only; allowed only while active.
// The returned property carries the next sequential id.
func (l *Ledger) RegisterProperty(ctx context.Context, totalShares int64, rentalPayment, propertyValue types.Money) (*property.Property, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	caller, err := l.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.requireActive(ctx); err != nil {
		return nil, err
	}

	if totalShares <= 0 {
		return nil, ValidationError{Field: "total_shares", Message: "must be positive"}
	}
	if !rentalPayment.IsPositive() {
		return nil, ValidationError{Field: "rental_payment", Message: "must be positive"}
	}
	if !propertyValue.IsPositive() {
		return nil, ValidationError{Field: "property_value", Message: "must be positive"}
	}
	if !rentalPayment.SameCurrency(propertyValue) {
		return nil, ValidationError{Field: "rental_payment", Message: "currency must match property value"}
	}

	p := &property.Property{
		Entity:          types.NewEntity(),
		Owner:           caller,
		TotalShares:     totalShares,
		AvailableShares: totalShares,
		RentalPayment:   rentalPayment,
		PropertyValue:   propertyValue,
		PoolBalance:     types.Zero(propertyValue.Currency),
	}

	propertyID, err := l.store.CreateProperty(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = propertyID

	l.plugins.EmitPropertyRegistered(ctx, p)
	l.logger.Info("property registered",
		"property_id", p.ID,
		"owner", p.Owner,
		"total_shares", p.TotalShares,
		"property_value", p.PropertyValue.String(),
	)

	return p, nil
}

// GetProperty retrieves a property by id. Available even after the
// ledger goes obsolete.
func (l *Ledger) GetProperty(ctx context.Context, propertyID int64) (*property.Property, error) {
	return l.store.GetProperty(ctx, propertyID)
}

// ListProperties lists registered properties.
func (l *Ledger) ListProperties(ctx context.Context, opts property.ListOpts) ([]*property.Property, error) {
	return l.store.ListProperties(ctx, opts)
}

// ──────────────────────────────────────────────────
// Pricing
// ──────────────────────────────────────────────────

// ShareValue returns the per-share price for a property: its recorded
// valuation floor-divided by the total share supply. Deterministic for
// a given registration.
func (l *Ledger) ShareValue(ctx context.Context, propertyID int64) (types.Money, error) {
	p, err := l.store.GetProperty(ctx, propertyID)
	if err != nil {
		return types.Money{}, err
	}
	return p.ShareValue(), nil
}

// ──────────────────────────────────────────────────
// Trading Engine
// ──────────────────────────────────────────────────

// PurchaseShares buys count shares from the pool at the current share
// value. payment must cover the amount charged; any excess is refunded
// to the caller through the treasury. Returns the amount charged.
//
// The balance and supply mutation commits before the refund transfer is
// attempted; a failed transfer unwinds the whole operation.
func (l *Ledger) PurchaseShares(ctx context.Context, propertyID int64, count int64, payment types.Money) (types.Money, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	caller, err := l.requireCaller(ctx)
	if err != nil {
		return types.Money{}, err
	}
	if err := l.requireActive(ctx); err != nil {
		return types.Money{}, err
	}

	p, err := l.store.GetProperty(ctx, propertyID)
	if err != nil {
		return types.Money{}, err
	}

	if count <= 0 {
		return types.Money{}, ValidationError{Field: "count", Message: "must be positive"}
	}
	if count > p.AvailableShares {
		return types.Money{}, ErrInsufficientSupply
	}

	unit := p.ShareValue()
	charged, err := unit.MultiplyChecked(count)
	if err != nil {
		return types.Money{}, fmt.Errorf("propshare: compute charge: %w", err)
	}
	if !payment.SameCurrency(charged) {
		return types.Money{}, ValidationError{Field: "payment", Message: "currency must match property value"}
	}
	if payment.LessThan(charged) {
		return types.Money{}, ErrInsufficientPayment
	}

	if err := l.store.TransferFromPool(ctx, propertyID, caller, count); err != nil {
		return types.Money{}, err
	}

	t := &trade.Trade{
		Entity:     types.NewEntity(),
		ID:         id.NewTradeID(),
		PropertyID: propertyID,
		Holder:     caller,
		Kind:       trade.KindPurchase,
		Shares:     count,
		UnitPrice:  unit,
		Amount:     charged,
	}
	if err := l.store.RecordTrade(ctx, t); err != nil {
		l.unwindShares(ctx, propertyID, caller, count, trade.KindPurchase)
		return types.Money{}, err
	}

	if excess := payment.Subtract(charged); excess.IsPositive() {
		if err := l.treasury.Transfer(ctx, caller, excess); err != nil {
			l.unwindTrade(ctx, t)
			return types.Money{}, fmt.Errorf("%w: refund excess to %s: %v", ErrTransferFailed, caller, err)
		}
	}

	l.plugins.EmitSharesPurchased(ctx, t)
	l.logger.Debug("shares purchased",
		"property_id", propertyID,
		"holder", caller,
		"shares", count,
		"charged", charged.String(),
	)

	return charged, nil
}

// SellShares sells count of the caller's shares back to the pool at the
// current share value and pays the proceeds through the treasury.
// Returns the amount received.
func (l *Ledger) SellShares(ctx context.Context, propertyID int64, count int64) (types.Money, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	caller, err := l.requireCaller(ctx)
	if err != nil {
		return types.Money{}, err
	}
	if err := l.requireActive(ctx); err != nil {
		return types.Money{}, err
	}

	p, err := l.store.GetProperty(ctx, propertyID)
	if err != nil {
		return types.Money{}, err
	}

	if count <= 0 {
		return types.Money{}, ValidationError{Field: "count", Message: "must be positive"}
	}

	unit := p.ShareValue()
	received, err := unit.MultiplyChecked(count)
	if err != nil {
		return types.Money{}, fmt.Errorf("propshare: compute proceeds: %w", err)
	}

	if err := l.store.TransferToPool(ctx, propertyID, caller, count); err != nil {
		return types.Money{}, err
	}

	t := &trade.Trade{
		Entity:     types.NewEntity(),
		ID:         id.NewTradeID(),
		PropertyID: propertyID,
		Holder:     caller,
		Kind:       trade.KindSale,
		Shares:     count,
		UnitPrice:  unit,
		Amount:     received,
	}
	if err := l.store.RecordTrade(ctx, t); err != nil {
		l.unwindShares(ctx, propertyID, caller, count, trade.KindSale)
		return types.Money{}, err
	}

	if received.IsPositive() {
		if err := l.treasury.Transfer(ctx, caller, received); err != nil {
			l.unwindTrade(ctx, t)
			return types.Money{}, fmt.Errorf("%w: pay proceeds to %s: %v", ErrTransferFailed, caller, err)
		}
	}

	l.plugins.EmitSharesSold(ctx, t)
	l.logger.Debug("shares sold",
		"property_id", propertyID,
		"holder", caller,
		"shares", count,
		"received", received.String(),
	)

	return received, nil
}

// Balance returns a holder's share count for a property. Absent entries
// are zero.
func (l *Ledger) Balance(ctx context.Context, propertyID int64, holder string) (int64, error) {
	return l.store.Balance(ctx, propertyID, holder)
}

// Holders returns all identities with a strictly positive balance for a
// property, sorted by identity.
func (l *Ledger) Holders(ctx context.Context, propertyID int64) ([]property.Holding, error) {
	holdings, err := l.store.Holders(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Holder < holdings[j].Holder })
	return holdings, nil
}

// ListTrades lists trade receipts for a property.
func (l *Ledger) ListTrades(ctx context.Context, propertyID int64, opts trade.ListOpts) ([]*trade.Trade, error) {
	return l.store.ListTrades(ctx, propertyID, opts)
}

// ──────────────────────────────────────────────────
// Rent & Distribution Engine
// ──────────────────────────────────────────────────

// ReceiveRentalPayment accepts rental income for a property into its
// distributable pool. Administrator-only; allowed only while active.
// The tendered amount must equal the per-share rent rate multiplied by
// the pool-held share count exactly — not "at least".
func (l *Ledger) ReceiveRentalPayment(ctx context.Context, propertyID int64, amount types.Money) (*rent.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := l.requireActive(ctx); err != nil {
		return nil, err
	}

	p, err := l.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	required, err := p.RentalPayment.MultiplyChecked(p.AvailableShares)
	if err != nil {
		return nil, fmt.Errorf("propshare: compute rent due: %w", err)
	}
	if !amount.Equal(required) {
		return nil, fmt.Errorf("%w: got %s, rent due is %s", ErrInvalidPayment, amount.String(), required.String())
	}

	if err := l.store.CreditPool(ctx, propertyID, amount); err != nil {
		return nil, err
	}

	rcpt := &rent.Receipt{
		Entity:     types.NewEntity(),
		ID:         id.NewRentReceiptID(),
		PropertyID: propertyID,
		Amount:     amount,
	}
	if err := l.store.RecordRentReceipt(ctx, rcpt); err != nil {
		if uerr := l.store.DebitPool(ctx, propertyID, amount); uerr != nil {
			l.logger.Error("failed to unwind pool credit",
				"property_id", propertyID,
				"error", uerr,
			)
		}
		return nil, err
	}

	l.plugins.EmitRentReceived(ctx, rcpt)
	l.logger.Info("rental payment received",
		"property_id", propertyID,
		"amount", amount.String(),
	)

	return rcpt, nil
}

// DistributeDividends pays the property's pooled rental income to every
// current holder, pro-rata to holdings. Administrator-only; allowed
// only while active.
//
// The per-share dividend is the pool balance floor-divided by the total
// share supply. Every identity with a strictly positive balance is paid
// exactly once; pool-held shares receive nothing, and the floor
// remainder stays in the pool for the next run.
func (l *Ledger) DistributeDividends(ctx context.Context, propertyID int64) (*rent.Distribution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := l.requireActive(ctx); err != nil {
		return nil, err
	}

	p, err := l.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if p.AvailableShares == 0 {
		return nil, ErrNoAvailableShares
	}

	pool := p.PoolBalance
	perShare := pool.Divide(p.TotalShares)

	holdings, err := l.store.Holders(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	// Deterministic payout order regardless of backend iteration order.
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Holder < holdings[j].Holder })

	d := &rent.Distribution{
		Entity:      types.NewEntity(),
		ID:          id.NewDistributionID(),
		PropertyID:  propertyID,
		PoolBalance: pool,
		PerShare:    perShare,
		TotalPaid:   types.Zero(pool.Currency),
		Payouts:     make([]rent.Payout, 0, len(holdings)),
	}

	for _, h := range holdings {
		amount, err := perShare.MultiplyChecked(h.Shares)
		if err != nil {
			return nil, fmt.Errorf("propshare: compute payout for %s: %w", h.Holder, err)
		}
		d.Payouts = append(d.Payouts, rent.Payout{
			ID:             id.NewPayoutID(),
			DistributionID: d.ID,
			Holder:         h.Holder,
			Shares:         h.Shares,
			Amount:         amount,
		})
		d.TotalPaid = d.TotalPaid.Add(amount)
	}

	// Ledger state commits before any external transfer.
	if d.TotalPaid.IsPositive() {
		if err := l.store.DebitPool(ctx, propertyID, d.TotalPaid); err != nil {
			return nil, err
		}
	}
	if err := l.store.RecordDistribution(ctx, d); err != nil {
		l.unwindDistribution(ctx, d, false)
		return nil, err
	}

	for _, payout := range d.Payouts {
		if payout.Amount.IsZero() {
			continue
		}
		if err := l.treasury.Transfer(ctx, payout.Holder, payout.Amount); err != nil {
			l.unwindDistribution(ctx, d, true)
			return nil, fmt.Errorf("%w: pay dividend to %s: %v", ErrTransferFailed, payout.Holder, err)
		}
	}

	l.plugins.EmitDividendsDistributed(ctx, d)
	l.logger.Info("dividends distributed",
		"property_id", propertyID,
		"pool_balance", pool.String(),
		"per_share", perShare.String(),
		"holders", len(d.Payouts),
		"total_paid", d.TotalPaid.String(),
	)

	return d, nil
}

// PoolBalance returns a property's distributable rental income.
func (l *Ledger) PoolBalance(ctx context.Context, propertyID int64) (types.Money, error) {
	p, err := l.store.GetProperty(ctx, propertyID)
	if err != nil {
		return types.Money{}, err
	}
	return p.PoolBalance, nil
}

// ListRentReceipts lists accepted rental payments for a property.
func (l *Ledger) ListRentReceipts(ctx context.Context, propertyID int64, opts rent.ListOpts) ([]*rent.Receipt, error) {
	return l.store.ListRentReceipts(ctx, propertyID, opts)
}

// ListDistributions lists completed dividend runs for a property.
func (l *Ledger) ListDistributions(ctx context.Context, propertyID int64, opts rent.ListOpts) ([]*rent.Distribution, error) {
	return l.store.ListDistributions(ctx, propertyID, opts)
}

// ──────────────────────────────────────────────────
// Lifecycle Gate
// ──────────────────────────────────────────────────

// SetObsolete retires the whole ledger. Administrator-only, one-way:
// once set, every mutating entry point fails with ErrObsolete while
// reads keep working. A second call also fails with ErrObsolete.
func (l *Ledger) SetObsolete(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.requireAdmin(ctx); err != nil {
		return err
	}
	if err := l.requireActive(ctx); err != nil {
		return err
	}

	at := l.clock.Now()
	if err := l.store.MarkObsolete(ctx, at); err != nil {
		return err
	}

	l.plugins.EmitLedgerObsoleted(ctx, at)
	l.logger.Warn("ledger marked obsolete", "at", at)

	return nil
}

// UpdateAnnualRent changes a property's per-share rent rate.
// Administrator-only; allowed only while active and at most once per
// cooldown window across the entire ledger, whichever property is
// referenced.
func (l *Ledger) UpdateAnnualRent(ctx context.Context, propertyID int64, newRate types.Money) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.requireAdmin(ctx); err != nil {
		return err
	}
	if err := l.requireActive(ctx); err != nil {
		return err
	}

	if !newRate.IsPositive() {
		return ValidationError{Field: "new_rate", Message: "must be positive"}
	}

	p, err := l.store.GetProperty(ctx, propertyID)
	if err != nil {
		return err
	}
	if !newRate.SameCurrency(p.RentalPayment) {
		return ValidationError{Field: "new_rate", Message: "currency must match property"}
	}

	state, err := l.store.Lifecycle(ctx)
	if err != nil {
		return err
	}
	now := l.clock.Now()
	if !state.CanUpdateRent(now, l.rentCooldown) {
		return ErrRentUpdateTooSoon
	}

	if err := l.store.UpdateRentalPayment(ctx, propertyID, newRate); err != nil {
		return err
	}
	if err := l.store.RecordRentUpdate(ctx, now, newRate); err != nil {
		if uerr := l.store.UpdateRentalPayment(ctx, propertyID, p.RentalPayment); uerr != nil {
			l.logger.Error("failed to unwind rent rate update",
				"property_id", propertyID,
				"error", uerr,
			)
		}
		return err
	}

	l.plugins.EmitRentRateUpdated(ctx, propertyID, newRate)
	l.logger.Info("rent rate updated",
		"property_id", propertyID,
		"new_rate", newRate.String(),
	)

	return nil
}

// Lifecycle returns the current ledger-wide lifecycle state.
func (l *Ledger) Lifecycle(ctx context.Context) (*lifecycle.State, error) {
	return l.store.Lifecycle(ctx)
}

// ──────────────────────────────────────────────────
// Guards and unwind helpers
// ──────────────────────────────────────────────────

// requireCaller resolves the caller identity from the context.
func (l *Ledger) requireCaller(ctx context.Context) (string, error) {
	caller := CallerFrom(ctx)
	if caller == "" {
		return "", ValidationError{Field: "caller", Message: "missing caller identity in context"}
	}
	return caller, nil
}

// requireAdmin resolves the caller and checks the admin capability.
func (l *Ledger) requireAdmin(ctx context.Context) (string, error) {
	caller, err := l.requireCaller(ctx)
	if err != nil {
		return "", err
	}
	if !l.auth.IsAdministrator(ctx, caller) {
		return "", ErrUnauthorized
	}
	return caller, nil
}

// requireActive rejects mutating calls once the ledger is obsolete.
func (l *Ledger) requireActive(ctx context.Context) error {
	state, err := l.store.Lifecycle(ctx)
	if err != nil {
		return err
	}
	if state.Obsolete {
		return ErrObsolete
	}
	return nil
}

// unwindShares reverses a share mutation after a later step failed.
func (l *Ledger) unwindShares(ctx context.Context, propertyID int64, holder string, count int64, kind trade.Kind) {
	var err error
	switch kind {
	case trade.KindPurchase:
		err = l.store.TransferToPool(ctx, propertyID, holder, count)
	case trade.KindSale:
		err = l.store.TransferFromPool(ctx, propertyID, holder, count)
	}
	if err != nil {
		l.logger.Error("failed to unwind share transfer",
			"property_id", propertyID,
			"holder", holder,
			"shares", count,
			"kind", string(kind),
			"error", err,
		)
	}
}

// unwindTrade reverses a recorded trade and its share mutation.
func (l *Ledger) unwindTrade(ctx context.Context, t *trade.Trade) {
	if err := l.store.DeleteTrade(ctx, t.ID); err != nil {
		l.logger.Error("failed to unwind trade receipt",
			"trade_id", t.ID.String(),
			"error", err,
		)
	}
	l.unwindShares(ctx, t.PropertyID, t.Holder, t.Shares, t.Kind)
}

// unwindDistribution restores the pool debit and, when recorded, removes
// the distribution record.
func (l *Ledger) unwindDistribution(ctx context.Context, d *rent.Distribution, recorded bool) {
	if recorded {
		if err := l.store.DeleteDistribution(ctx, d.ID); err != nil {
			l.logger.Error("failed to unwind distribution record",
				"distribution_id", d.ID.String(),
				"error", err,
			)
		}
	}
	if d.TotalPaid.IsPositive() {
		if err := l.store.CreditPool(ctx, d.PropertyID, d.TotalPaid); err != nil {
			l.logger.Error("failed to restore pool balance",
				"property_id", d.PropertyID,
				"error", err,
			)
		}
	}
}
