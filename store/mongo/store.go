// Package mongo provides a MongoDB-backed store via Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/propshare"
	"github.com/xraph/propshare/id"
	"github.com/xraph/propshare/lifecycle"
	"github.com/xraph/propshare/property"
	"github.com/xraph/propshare/rent"
	propsharestore "github.com/xraph/propshare/store"
	"github.com/xraph/propshare/trade"
	"github.com/xraph/propshare/types"
)

// Collection name constants.
const (
	colProperties    = "propshare_properties"
	colBalances      = "propshare_balances"
	colTrades        = "propshare_trades"
	colRentReceipts  = "propshare_rent_receipts"
	colDistributions = "propshare_distributions"
	colLifecycle     = "propshare_lifecycle"
)

// compile-time interface check
var _ propsharestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all propshare collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("propshare/mongo: migrate %s indexes: %w", col, err)
		}
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
	// The engine serializes registrations, so reading the current max id
	// is race-free within a process. Ids start at zero and are never
	// reused because properties are never deleted.
	var last propertyModel
	nextID := int64(0)
	err := s.mdb.NewFind(&last).
		Sort(bson.D{{Key: "_id", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err == nil {
		nextID = last.ID + 1
	} else if !isNoDocuments(err) {
		return 0, fmt.Errorf("propshare/mongo: next property id: %w", err)
	}

	m := toPropertyModel(p)
	m.ID = nextID
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return 0, fmt.Errorf("propshare/mongo: create property: %w", err)
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

	filter := bson.M{}
	if opts.Owner != "" {
		filter["owner"] = opts.Owner
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("propshare/mongo: list properties: %w", err)
	}

	result := make([]*property.Property, len(models))
	for i := range models {
		result[i] = fromPropertyModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdateRentalPayment(ctx context.Context, propertyID int64, rate types.Money) error {
	res, err := s.mdb.NewUpdate((*propertyModel)(nil)).
		Filter(bson.M{"_id": propertyID}).
		Set("rent_rate_cents", rate.Amount).
		Set("rent_rate_currency", rate.Currency).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("propshare/mongo: update rental payment: %w", err)
	}
	if res.MatchedCount() == 0 {
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"property_id": propertyID, "shares": bson.M{"$gt": 0}}).
		Sort(bson.D{{Key: "holder", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("propshare/mongo: list holders: %w", err)
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

	// Two writes with no multi-document transaction: the balance write
	// commits first, and a failed supply write restores it so the method
	// never leaves the conservation invariant broken.
	if err := s.setBalance(ctx, propertyID, holder, balance+shares); err != nil {
		return err
	}
	if err := s.setAvailableShares(ctx, propertyID, p.AvailableShares-shares); err != nil {
		if uerr := s.setBalance(ctx, propertyID, holder, balance); uerr != nil {
			return fmt.Errorf("propshare/mongo: debit pool supply: %v; restore balance: %w", err, uerr)
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
			return fmt.Errorf("propshare/mongo: credit pool supply: %v; restore balance: %w", err, uerr)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("propshare/mongo: record trade: %w", err)
	}
	return nil
}

func (s *Store) DeleteTrade(ctx context.Context, tradeID id.TradeID) error {
	res, err := s.mdb.NewDelete((*tradeModel)(nil)).
		Filter(bson.M{"_id": tradeID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("propshare/mongo: delete trade: %w", err)
	}
	if res.DeletedCount() == 0 {
		return propshare.ErrNotFound
	}
	return nil
}

func (s *Store) ListTrades(ctx context.Context, propertyID int64, opts trade.ListOpts) ([]*trade.Trade, error) {
	var models []tradeModel

	filter := bson.M{"property_id": propertyID}
	if opts.Holder != "" {
		filter["holder"] = opts.Holder
	}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("propshare/mongo: list trades: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("propshare/mongo: record rent receipt: %w", err)
	}
	return nil
}

func (s *Store) ListRentReceipts(ctx context.Context, propertyID int64, opts rent.ListOpts) ([]*rent.Receipt, error) {
	var models []rentReceiptModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"property_id": propertyID}).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("propshare/mongo: list rent receipts: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("propshare/mongo: record distribution: %w", err)
	}
	return nil
}

func (s *Store) DeleteDistribution(ctx context.Context, distID id.DistributionID) error {
	res, err := s.mdb.NewDelete((*distributionModel)(nil)).
		Filter(bson.M{"_id": distID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("propshare/mongo: delete distribution: %w", err)
	}
	if res.DeletedCount() == 0 {
		return propshare.ErrNotFound
	}
	return nil
}

func (s *Store) ListDistributions(ctx context.Context, propertyID int64, opts rent.ListOpts) ([]*rent.Distribution, error) {
	var models []distributionModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"property_id": propertyID}).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("propshare/mongo: list distributions: %w", err)
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
	var m lifecycleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": lifecycleDocID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return &lifecycle.State{}, nil
		}
		return nil, fmt.Errorf("propshare/mongo: get lifecycle: %w", err)
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

	_, err = s.mdb.NewUpdate((*lifecycleModel)(nil)).
		Filter(bson.M{"_id": lifecycleDocID}).
		SetUpdate(bson.M{"$set": bson.M{
			"obsolete":    true,
			"obsolete_at": at,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("propshare/mongo: mark obsolete: %w", err)
	}
	return nil
}

func (s *Store) RecordRentUpdate(ctx context.Context, at time.Time, amount types.Money) error {
	_, err := s.mdb.NewUpdate((*lifecycleModel)(nil)).
		Filter(bson.M{"_id": lifecycleDocID}).
		SetUpdate(bson.M{"$set": bson.M{
			"last_rent_update_at": at,
			"last_rent_cents":     amount.Amount,
			"last_rent_currency":  amount.Currency,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("propshare/mongo: record rent update: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

func (s *Store) getPropertyModel(ctx context.Context, propertyID int64) (*propertyModel, error) {
	var m propertyModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": propertyID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, propshare.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("propshare/mongo: get property: %w", err)
	}
	return &m, nil
}

func (s *Store) balance(ctx context.Context, propertyID int64, holder string) (int64, error) {
	var m balanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": balanceKey(propertyID, holder)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("propshare/mongo: get balance: %w", err)
	}
	return m.Shares, nil
}

// setBalance writes an absolute balance value, inserting the document on
// first contact. Documents are kept at zero rather than deleted.
func (s *Store) setBalance(ctx context.Context, propertyID int64, holder string, shares int64) error {
	_, err := s.mdb.NewUpdate((*balanceModel)(nil)).
		Filter(bson.M{"_id": balanceKey(propertyID, holder)}).
		SetUpdate(bson.M{"$set": bson.M{
			"property_id": propertyID,
			"holder":      holder,
			"shares":      shares,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("propshare/mongo: set balance: %w", err)
	}
	return nil
}

func (s *Store) setAvailableShares(ctx context.Context, propertyID int64, shares int64) error {
	res, err := s.mdb.NewUpdate((*propertyModel)(nil)).
		Filter(bson.M{"_id": propertyID}).
		Set("available_shares", shares).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("propshare/mongo: set available shares: %w", err)
	}
	if res.MatchedCount() == 0 {
		return propshare.ErrPropertyNotFound
	}
	return nil
}

func (s *Store) setPoolBalance(ctx context.Context, propertyID int64, pool types.Money) error {
	res, err := s.mdb.NewUpdate((*propertyModel)(nil)).
		Filter(bson.M{"_id": propertyID}).
		Set("pool_balance_cents", pool.Amount).
		Set("pool_balance_currency", pool.Currency).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("propshare/mongo: set pool balance: %w", err)
	}
	if res.MatchedCount() == 0 {
		return propshare.ErrPropertyNotFound
	}
	return nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all propshare collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProperties: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
		},
		colBalances: {
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "shares", Value: 1}}},
			{
				Keys:    bson.D{{Key: "property_id", Value: 1}, {Key: "holder", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colTrades: {
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "holder", Value: 1}}},
		},
		colRentReceipts: {
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colDistributions: {
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colLifecycle: {},
	}
}
