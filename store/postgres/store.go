// Package postgres provides a PostgreSQL-backed store via Grove ORM,
// the recommended backend for production deployments.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/propshare"
	"github.com/xraph/propshare/id"
	"github.com/xraph/propshare/lifecycle"
	"github.com/xraph/propshare/property"
	"github.com/xraph/propshare/rent"
	propsharestore "github.com/xraph/propshare/store"
	"github.com/xraph/propshare/trade"
	"github.com/xraph/propshare/types"
)

// compile-time interface check
var _ propsharestore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("propshare/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("propshare/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Property Store ====================

func (s *Store) CreateProperty(ctx context.Context, p *property.Property) (int64, error) {
	// The engine serializes registrations, so MAX(id)+1 is race-free
	// within a process. Ids start at zero and are never reused because
	// properties are never deleted.
	var nextID int64
	err := s.pg.NewRaw(`SELECT COALESCE(MAX(id) + 1, 0) FROM propshare_properties`).Scan(ctx, &nextID)
	if err != nil {
		return 0, err
	}

	m := toPropertyModel(p)
	m.ID = nextID
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		return 0, err
	}
	return nextID, nil
}

func (s *Store) GetProperty(ctx context.Context, propertyID int64) (*property.Property, error) {
	m, err := s.getPropertyModel(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return fromPropertyModel(m), nil
}

func (s *Store) ListProperties(ctx context.Context, opts property.ListOpts) ([]*property.Property, error) {
	var models []propertyModel
	q := s.pg.NewSelect(&models)

	if opts.Owner != "" {
		q = q.Where("owner = ?", opts.Owner)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*property.Property, len(models))
	for i := range models {
		result[i] = fromPropertyModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdateRentalPayment(ctx context.Context, propertyID int64, rate types.Money) error {
	res, err := s.pg.NewUpdate((*propertyModel)(nil)).
		Set("rent_rate_cents = ?", rate.Amount).
		Set("rent_rate_currency = ?", rate.Currency).
		Set("updated_at = ?", now()).
		Where("id = ?", propertyID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return propshare.ErrPropertyNotFound
	}
	return nil
}

// ==================== Share Ledger ====================

func (s *Store) Balance(ctx context.Context, propertyID int64, holder string) (int64, error) {
	if _, err := s.getPropertyModel(ctx, propertyID); err != nil {
		return 0, err
	}
	return s.balance(ctx, propertyID, holder)
}

func (s *Store) Holders(ctx context.Context, propertyID int64) ([]property.Holding, error) {
	if _, err := s.getPropertyModel(ctx, propertyID); err != nil {
		return nil, err
	}

	var models []balanceModel
	err := s.pg.NewSelect(&models).
		Where("property_id = ?", propertyID).
		Where("shares > 0").
		OrderExpr("holder ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	holdings := make([]property.Holding, len(models))
	for i, m := range models {
		holdings[i] = property.Holding{
			PropertyID: m.PropertyID,
			Holder:     m.Holder,
			Shares:     m.Shares,
		}
	}
	return holdings, nil
}

func (s *Store) TransferFromPool(ctx context.Context, propertyID int64, holder string, shares int64) error {
	p, err := s.getPropertyModel(ctx, propertyID)
	if err != nil {
		return err
	}
	if shares <= 0 {
		return fmt.Errorf("%w: transfer of %d shares", propshare.ErrInvalidArgument, shares)
	}
	if shares > p.AvailableShares {
		return propshare.ErrInsufficientSupply
	}

	balance, err := s.balance(ctx, propertyID, holder)
	if err != nil {
		return err
	}
	if balance > math.MaxInt64-shares {
		return propshare.ErrBalanceOverflow
	}

	// Two statements with no enclosing transaction: the balance write
	// commits first, and a failed supply write restores it so the method
	// never leaves the conservation invariant broken.
	if err := s.setBalance(ctx, propertyID, holder, balance+shares); err != nil {
		return err
	}
	if err := s.setAvailableShares(ctx, propertyID, p.AvailableShares-shares); err != nil {
		if uerr := s.setBalance(ctx, propertyID, holder, balance); uerr != nil {
			return fmt.Errorf("propshare/postgres: debit pool supply: %v; restore balance: %w", err, uerr)
		}
		return err
	}
	return nil
}

func (s *Store) TransferToPool(ctx context.Context, propertyID int64, holder string, shares int64) error {
	p, err := s.getPropertyModel(ctx, propertyID)
	if err != nil {
		return err
	}
	if shares <= 0 {
		return fmt.Errorf("%w: transfer of %d shares", propshare.ErrInvalidArgument, shares)
	}

	balance, err := s.balance(ctx, propertyID, holder)
	if err != nil {
		return err
	}
	if shares > balance {
		return propshare.ErrInsufficientBalance
	}

	if err := s.setBalance(ctx, propertyID, holder, balance-shares); err != nil {
		return err
	}
	if err := s.setAvailableShares(ctx, propertyID, p.AvailableShares+shares); err != nil {
		if uerr := s.setBalance(ctx, propertyID, holder, balance); uerr != nil {
			return fmt.Errorf("propshare/postgres: credit pool supply: %v; restore balance: %w", err, uerr)
		}
		return err
	}
	return nil
}

// ==================== Pool Funds ====================

func (s *Store) CreditPool(ctx context.Context, propertyID int64, amount types.Money) error {
	p, err := s.getPropertyModel(ctx, propertyID)
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative pool credit", propshare.ErrInvalidArgument)
	}

	pool := types.Money{Amount: p.PoolBalanceCents, Currency: p.PoolBalanceCurrency}
	credited, err := pool.AddChecked(amount)
	if err != nil {
		return propshare.ErrBalanceOverflow
	}
	return s.setPoolBalance(ctx, propertyID, credited)
}

func (s *Store) DebitPool(ctx context.Context, propertyID int64, amount types.Money) error {
	p, err := s.getPropertyModel(ctx, propertyID)
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative pool debit", propshare.ErrInvalidArgument)
	}

	pool := types.Money{Amount: p.PoolBalanceCents, Currency: p.PoolBalanceCurrency}
	if pool.LessThan(amount) {
		return fmt.Errorf("%w: pool balance %s below debit %s",
			propshare.ErrInvalidArgument, pool.String(), amount.String())
	}
	return s.setPoolBalance(ctx, propertyID, pool.Subtract(amount))
}

// ==================== Trade Receipts ====================

func (s *Store) RecordTrade(ctx context.Context, t *trade.Trade) error {
	m := toTradeModel(t)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) DeleteTrade(ctx context.Context, tradeID id.TradeID) error {
	res, err := s.pg.NewDelete((*tradeModel)(nil)).
		Where("id = ?", tradeID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return propshare.ErrNotFound
	}
	return nil
}

func (s *Store) ListTrades(ctx context.Context, propertyID int64, opts trade.ListOpts) ([]*trade.Trade, error) {
	var models []tradeModel
	q := s.pg.NewSelect(&models).Where("property_id = ?", propertyID)

	if opts.Holder != "" {
		q = q.Where("holder = ?", opts.Holder)
	}
	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*trade.Trade, len(models))
	for i := range models {
		t, err := fromTradeModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// ==================== Rent Receipts & Distributions ====================

func (s *Store) RecordRentReceipt(ctx context.Context, r *rent.Receipt) error {
	m := toRentReceiptModel(r)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListRentReceipts(ctx context.Context, propertyID int64, opts rent.ListOpts) ([]*rent.Receipt, error) {
	var models []rentReceiptModel
	q := s.pg.NewSelect(&models).Where("property_id = ?", propertyID)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*rent.Receipt, len(models))
	for i := range models {
		r, err := fromRentReceiptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) RecordDistribution(ctx context.Context, d *rent.Distribution) error {
	m := toDistributionModel(d)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) DeleteDistribution(ctx context.Context, distID id.DistributionID) error {
	res, err := s.pg.NewDelete((*distributionModel)(nil)).
		Where("id = ?", distID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return propshare.ErrNotFound
	}
	return nil
}

func (s *Store) ListDistributions(ctx context.Context, propertyID int64, opts rent.ListOpts) ([]*rent.Distribution, error) {
	var models []distributionModel
	q := s.pg.NewSelect(&models).Where("property_id = ?", propertyID)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*rent.Distribution, len(models))
	for i := range models {
		d, err := fromDistributionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = d
	}
	return result, nil
}

// ==================== Lifecycle ====================

func (s *Store) Lifecycle(ctx context.Context) (*lifecycle.State, error) {
	m := new(lifecycleModel)
	err := s.pg.NewSelect(m).
		Where("id = ?", lifecycleRowID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return &lifecycle.State{}, nil
		}
		return nil, err
	}

	return &lifecycle.State{
		Obsolete:             m.Obsolete,
		ObsoleteAt:           m.ObsoleteAt,
		LastRentUpdateAt:     m.LastRentUpdateAt,
		LastRentUpdateAmount: types.Money{Amount: m.LastRentCents, Currency: m.LastRentCurrency},
	}, nil
}

func (s *Store) MarkObsolete(ctx context.Context, at time.Time) error {
	state, err := s.Lifecycle(ctx)
	if err != nil {
		return err
	}
	if state.Obsolete {
		return propshare.ErrObsolete
	}

	state.Obsolete = true
	state.ObsoleteAt = &at
	return s.saveLifecycle(ctx, state)
}

func (s *Store) RecordRentUpdate(ctx context.Context, at time.Time, amount types.Money) error {
	state, err := s.Lifecycle(ctx)
	if err != nil {
		return err
	}

	state.LastRentUpdateAt = &at
	state.LastRentUpdateAmount = amount
	return s.saveLifecycle(ctx, state)
}

// ==================== Helpers ====================

func (s *Store) getPropertyModel(ctx context.Context, propertyID int64) (*propertyModel, error) {
	m := new(propertyModel)
	err := s.pg.NewSelect(m).
		Where("id = ?", propertyID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, propshare.ErrPropertyNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *Store) balance(ctx context.Context, propertyID int64, holder string) (int64, error) {
	m := new(balanceModel)
	err := s.pg.NewSelect(m).
		Where("property_id = ?", propertyID).
		Where("holder = ?", holder).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return m.Shares, nil
}

// setBalance writes an absolute balance value, inserting the row on
// first contact. Rows are kept at zero rather than deleted.
func (s *Store) setBalance(ctx context.Context, propertyID int64, holder string, shares int64) error {
	m := &balanceModel{
		PropertyID: propertyID,
		Holder:     holder,
		Shares:     shares,
	}
	_, err := s.pg.NewInsert(m).
		OnConflict("(property_id, holder) DO UPDATE").
		Set("shares = EXCLUDED.shares").
		Exec(ctx)
	return err
}

func (s *Store) setAvailableShares(ctx context.Context, propertyID int64, shares int64) error {
	_, err := s.pg.NewUpdate((*propertyModel)(nil)).
		Set("available_shares = ?", shares).
		Set("updated_at = ?", now()).
		Where("id = ?", propertyID).
		Exec(ctx)
	return err
}

func (s *Store) setPoolBalance(ctx context.Context, propertyID int64, pool types.Money) error {
	_, err := s.pg.NewUpdate((*propertyModel)(nil)).
		Set("pool_balance_cents = ?", pool.Amount).
		Set("pool_balance_currency = ?", pool.Currency).
		Set("updated_at = ?", now()).
		Where("id = ?", propertyID).
		Exec(ctx)
	return err
}

func (s *Store) saveLifecycle(ctx context.Context, state *lifecycle.State) error {
	m := &lifecycleModel{
		ID:               lifecycleRowID,
		Obsolete:         state.Obsolete,
		ObsoleteAt:       state.ObsoleteAt,
		LastRentUpdateAt: state.LastRentUpdateAt,
		LastRentCents:    state.LastRentUpdateAmount.Amount,
		LastRentCurrency: state.LastRentUpdateAmount.Currency,
	}
	_, err := s.pg.NewInsert(m).
		OnConflict("(id) DO UPDATE").
		Set("obsolete = EXCLUDED.obsolete").
		Set("obsolete_at = EXCLUDED.obsolete_at").
		Set("last_rent_update_at = EXCLUDED.last_rent_update_at").
		Set("last_rent_cents = EXCLUDED.last_rent_cents").
		Set("last_rent_currency = EXCLUDED.last_rent_currency").
		Exec(ctx)
	return err
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
