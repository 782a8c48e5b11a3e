// Package memory provides an in-memory store, useful for tests and
// single-process deployments that don't need durability.
package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/xraph/propshare"
	"github.com/xraph/propshare/id"
	"github.com/xraph/propshare/lifecycle"
	"github.com/xraph/propshare/property"
	"github.com/xraph/propshare/rent"
	"github.com/xraph/propshare/trade"
	"github.com/xraph/propshare/types"
)

// Store keeps all ledger state in process memory. It is safe for
// concurrent use; every method takes the store lock. State is lost when
// the process exits.
type Store struct {
	mu sync.RWMutex

	// Property storage. Ids are sequential from zero.
	nextPropertyID int64
	properties     map[int64]*property.Property

	// Share ledger: propertyID -> holder -> balance. Entries are kept
	// even at zero; Holders filters them out.
	balances map[int64]map[string]int64

	// Receipt storage, in insertion order.
	trades        []*trade.Trade
	receipts      []*rent.Receipt
	distributions []*rent.Distribution

	// Singleton lifecycle record.
	state lifecycle.State

	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		properties: make(map[int64]*property.Property),
		balances:   make(map[int64]map[string]int64),
	}
}

// ──────────────────────────────────────────────────
// Property storage
// ──────────────────────────────────────────────────

func (s *Store) CreateProperty(_ context.Context, p *property.Property) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, propshare.ErrStoreClosed
	}

	propertyID := s.nextPropertyID
	s.nextPropertyID++

	stored := cloneProperty(p)
	stored.ID = propertyID
	s.properties[propertyID] = stored
	s.balances[propertyID] = make(map[string]int64)

	return propertyID, nil
}

func (s *Store) GetProperty(_ context.Context, propertyID int64) (*property.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return nil, propshare.ErrPropertyNotFound
	}
	return cloneProperty(p), nil
}

func (s *Store) ListProperties(_ context.Context, opts property.ListOpts) ([]*property.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*property.Property, 0, len(s.properties))
	for propertyID := int64(0); propertyID < s.nextPropertyID; propertyID++ {
		p, ok := s.properties[propertyID]
		if !ok {
			continue
		}
		if opts.Owner != "" && p.Owner != opts.Owner {
			continue
		}
		out = append(out, cloneProperty(p))
	}
	return paginate(out, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateRentalPayment(_ context.Context, propertyID int64, rate types.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return propshare.ErrPropertyNotFound
	}
	p.RentalPayment = rate
	p.Touch()
	return nil
}

// ──────────────────────────────────────────────────
// Share ledger
// ──────────────────────────────────────────────────

func (s *Store) Balance(_ context.Context, propertyID int64, holder string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.properties[propertyID]; !ok {
		return 0, propshare.ErrPropertyNotFound
	}
	return s.balances[propertyID][holder], nil
}

func (s *Store) Holders(_ context.Context, propertyID int64) ([]property.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.properties[propertyID]; !ok {
		return nil, propshare.ErrPropertyNotFound
	}

	holdings := make([]property.Holding, 0, len(s.balances[propertyID]))
	for holder, shares := range s.balances[propertyID] {
		if shares <= 0 {
			continue
		}
		holdings = append(holdings, property.Holding{
			PropertyID: propertyID,
			Holder:     holder,
			Shares:     shares,
		})
	}
	return holdings, nil
}

func (s *Store) TransferFromPool(_ context.Context, propertyID int64, holder string, shares int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return propshare.ErrPropertyNotFound
	}
	if shares <= 0 {
		return fmt.Errorf("%w: transfer of %d shares", propshare.ErrInvalidArgument, shares)
	}
	if shares > p.AvailableShares {
		return propshare.ErrInsufficientSupply
	}

	balance := s.balances[propertyID][holder]
	if balance > math.MaxInt64-shares {
		return propshare.ErrBalanceOverflow
	}

	p.AvailableShares -= shares
	p.Touch()
	s.balances[propertyID][holder] = balance + shares
	return nil
}

func (s *Store) TransferToPool(_ context.Context, propertyID int64, holder string, shares int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return propshare.ErrPropertyNotFound
	}
	if shares <= 0 {
		return fmt.Errorf("%w: transfer of %d shares", propshare.ErrInvalidArgument, shares)
	}

	balance := s.balances[propertyID][holder]
	if shares > balance {
		return propshare.ErrInsufficientBalance
	}

	// TotalShares bounds the pool side, no overflow possible here.
	p.AvailableShares += shares
	p.Touch()
	s.balances[propertyID][holder] = balance - shares
	return nil
}

// ──────────────────────────────────────────────────
// Pool funds
// ──────────────────────────────────────────────────

func (s *Store) CreditPool(_ context.Context, propertyID int64, amount types.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return propshare.ErrPropertyNotFound
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative pool credit", propshare.ErrInvalidArgument)
	}

	credited, err := p.PoolBalance.AddChecked(amount)
	if err != nil {
		return propshare.ErrBalanceOverflow
	}
	p.PoolBalance = credited
	p.Touch()
	return nil
}

func (s *Store) DebitPool(_ context.Context, propertyID int64, amount types.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return propshare.ErrPropertyNotFound
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative pool debit", propshare.ErrInvalidArgument)
	}
	if p.PoolBalance.LessThan(amount) {
		return fmt.Errorf("%w: pool balance %s below debit %s",
			propshare.ErrInvalidArgument, p.PoolBalance.String(), amount.String())
	}

	p.PoolBalance = p.PoolBalance.Subtract(amount)
	p.Touch()
	return nil
}

// ──────────────────────────────────────────────────
// Trade receipts
// ──────────────────────────────────────────────────

func (s *Store) RecordTrade(_ context.Context, t *trade.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.trades {
		if existing.ID == t.ID {
			return propshare.ErrAlreadyExists
		}
	}
	cloned := *t
	s.trades = append(s.trades, &cloned)
	return nil
}

func (s *Store) DeleteTrade(_ context.Context, tradeID id.TradeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.trades {
		if t.ID == tradeID {
			s.trades = append(s.trades[:i], s.trades[i+1:]...)
			return nil
		}
	}
	return propshare.ErrNotFound
}

func (s *Store) ListTrades(_ context.Context, propertyID int64, opts trade.ListOpts) ([]*trade.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*trade.Trade, 0)
	for _, t := range s.trades {
		if t.PropertyID != propertyID {
			continue
		}
		if opts.Holder != "" && t.Holder != opts.Holder {
			continue
		}
		if opts.Kind != "" && t.Kind != opts.Kind {
			continue
		}
		cloned := *t
		out = append(out, &cloned)
	}
	return paginate(out, opts.Limit, opts.Offset), nil
}

// ──────────────────────────────────────────────────
// Rent receipts and distributions
// ──────────────────────────────────────────────────

func (s *Store) RecordRentReceipt(_ context.Context, r *rent.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.receipts {
		if existing.ID == r.ID {
			return propshare.ErrAlreadyExists
		}
	}
	cloned := *r
	s.receipts = append(s.receipts, &cloned)
	return nil
}

func (s *Store) ListRentReceipts(_ context.Context, propertyID int64, opts rent.ListOpts) ([]*rent.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*rent.Receipt, 0)
	for _, r := range s.receipts {
		if r.PropertyID != propertyID {
			continue
		}
		cloned := *r
		out = append(out, &cloned)
	}
	return paginate(out, opts.Limit, opts.Offset), nil
}

func (s *Store) RecordDistribution(_ context.Context, d *rent.Distribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.distributions {
		if existing.ID == d.ID {
			return propshare.ErrAlreadyExists
		}
	}
	s.distributions = append(s.distributions, cloneDistribution(d))
	return nil
}

func (s *Store) DeleteDistribution(_ context.Context, distID id.DistributionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.distributions {
		if d.ID == distID {
			s.distributions = append(s.distributions[:i], s.distributions[i+1:]...)
			return nil
		}
	}
	return propshare.ErrNotFound
}

func (s *Store) ListDistributions(_ context.Context, propertyID int64, opts rent.ListOpts) ([]*rent.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*rent.Distribution, 0)
	for _, d := range s.distributions {
		if d.PropertyID != propertyID {
			continue
		}
		out = append(out, cloneDistribution(d))
	}
	return paginate(out, opts.Limit, opts.Offset), nil
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func (s *Store) Lifecycle(_ context.Context) (*lifecycle.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.state
	return &state, nil
}

func (s *Store) MarkObsolete(_ context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Obsolete {
		return propshare.ErrObsolete
	}
	s.state.Obsolete = true
	s.state.ObsoleteAt = &at
	return nil
}

func (s *Store) RecordRentUpdate(_ context.Context, at time.Time, amount types.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.LastRentUpdateAt = &at
	s.state.LastRentUpdateAmount = amount
	return nil
}

// ──────────────────────────────────────────────────
// Core
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return propshare.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func cloneProperty(p *property.Property) *property.Property {
	cloned := *p
	if p.Metadata != nil {
		cloned.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			cloned.Metadata[k] = v
		}
	}
	return &cloned
}

func cloneDistribution(d *rent.Distribution) *rent.Distribution {
	cloned := *d
	cloned.Payouts = append([]rent.Payout(nil), d.Payouts...)
	return &cloned
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
