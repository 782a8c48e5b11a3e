package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/propshare"
	"github.com/xraph/propshare/id"
	"github.com/xraph/propshare/property"
	"github.com/xraph/propshare/rent"
	"github.com/xraph/propshare/store/memory"
	"github.com/xraph/propshare/trade"
	"github.com/xraph/propshare/types"
)

func newProperty(totalShares int64) *property.Property {
	return &property.Property{
		Owner:           "admin@example.com",
		TotalShares:     totalShares,
		AvailableShares: totalShares,
		RentalPayment:   types.USD(10),
		PropertyValue:   types.USD(1000),
		PoolBalance:     types.Zero("usd"),
	}
}

func mustCreate(t *testing.T, s *memory.Store, p *property.Property) int64 {
	t.Helper()
	pid, err := s.CreateProperty(context.Background(), p)
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	return pid
}

func TestCreateProperty(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	first := mustCreate(t, s, newProperty(100))
	second := mustCreate(t, s, newProperty(50))
	if first != 0 || second != 1 {
		t.Errorf("ids = %d, %d; want 0, 1", first, second)
	}

	got, err := s.GetProperty(ctx, first)
	if err != nil {
		t.Fatalf("get property: %v", err)
	}
	if got.TotalShares != 100 || got.AvailableShares != 100 {
		t.Errorf("property = %+v, want 100 total and available", got)
	}

	if _, err := s.GetProperty(ctx, 42); !errors.Is(err, propshare.ErrPropertyNotFound) {
		t.Errorf("err = %v, want ErrPropertyNotFound", err)
	}

	// Stored records are isolated from the caller's struct.
	in := newProperty(10)
	pid := mustCreate(t, s, in)
	in.AvailableShares = 0
	stored, _ := s.GetProperty(ctx, pid)
	if stored.AvailableShares != 10 {
		t.Errorf("stored record mutated through caller pointer: available = %d", stored.AvailableShares)
	}
}

func TestShareTransfers(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	pid := mustCreate(t, s, newProperty(100))

	if err := s.TransferFromPool(ctx, pid, "alice", 30); err != nil {
		t.Fatalf("transfer from pool: %v", err)
	}
	balance, _ := s.Balance(ctx, pid, "alice")
	if balance != 30 {
		t.Errorf("balance = %d, want 30", balance)
	}
	p, _ := s.GetProperty(ctx, pid)
	if p.AvailableShares != 70 {
		t.Errorf("available = %d, want 70", p.AvailableShares)
	}

	if err := s.TransferFromPool(ctx, pid, "alice", 71); !errors.Is(err, propshare.ErrInsufficientSupply) {
		t.Errorf("oversized purchase: err = %v, want ErrInsufficientSupply", err)
	}

	if err := s.TransferToPool(ctx, pid, "alice", 31); !errors.Is(err, propshare.ErrInsufficientBalance) {
		t.Errorf("oversized sale: err = %v, want ErrInsufficientBalance", err)
	}
	if err := s.TransferToPool(ctx, pid, "bob", 1); !errors.Is(err, propshare.ErrInsufficientBalance) {
		t.Errorf("sale with no balance: err = %v, want ErrInsufficientBalance", err)
	}

	if err := s.TransferToPool(ctx, pid, "alice", 30); err != nil {
		t.Fatalf("transfer to pool: %v", err)
	}
	p, _ = s.GetProperty(ctx, pid)
	if p.AvailableShares != 100 {
		t.Errorf("available = %d, want 100", p.AvailableShares)
	}

	// Non-positive counts are rejected at the store boundary too.
	if err := s.TransferFromPool(ctx, pid, "alice", 0); !errors.Is(err, propshare.ErrInvalidArgument) {
		t.Errorf("zero purchase: err = %v, want ErrInvalidArgument", err)
	}
	if err := s.TransferToPool(ctx, pid, "alice", -1); !errors.Is(err, propshare.ErrInvalidArgument) {
		t.Errorf("negative sale: err = %v, want ErrInvalidArgument", err)
	}
}

func TestHolders(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	pid := mustCreate(t, s, newProperty(100))

	for holder, shares := range map[string]int64{"carol": 10, "alice": 20, "bob": 5} {
		if err := s.TransferFromPool(ctx, pid, holder, shares); err != nil {
			t.Fatalf("transfer to %s: %v", holder, err)
		}
	}
	// Drain bob to zero: the row stays but Holders must exclude it.
	if err := s.TransferToPool(ctx, pid, "bob", 5); err != nil {
		t.Fatalf("sell bob out: %v", err)
	}

	holdings, err := s.Holders(ctx, pid)
	if err != nil {
		t.Fatalf("holders: %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("holders = %+v, want alice and carol only", holdings)
	}
	for _, h := range holdings {
		if h.Holder == "bob" {
			t.Errorf("zero-balance holder listed: %+v", h)
		}
	}

	// Zero-balance holders still resolve through Balance.
	balance, err := s.Balance(ctx, pid, "bob")
	if err != nil || balance != 0 {
		t.Errorf("bob balance = %d, %v; want 0, nil", balance, err)
	}
}

func TestPoolFunds(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	pid := mustCreate(t, s, newProperty(100))

	if err := s.CreditPool(ctx, pid, types.USD(800)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := s.DebitPool(ctx, pid, types.USD(300)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	p, _ := s.GetProperty(ctx, pid)
	if p.PoolBalance.Amount != 500 {
		t.Errorf("pool = %d, want 500", p.PoolBalance.Amount)
	}

	if err := s.DebitPool(ctx, pid, types.USD(501)); !errors.Is(err, propshare.ErrInvalidArgument) {
		t.Errorf("overdraft: err = %v, want ErrInvalidArgument", err)
	}
	p, _ = s.GetProperty(ctx, pid)
	if p.PoolBalance.Amount != 500 {
		t.Errorf("pool after rejected debit = %d, want 500", p.PoolBalance.Amount)
	}
}

func TestTradeReceipts(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	pid := mustCreate(t, s, newProperty(100))

	record := func(holder string, kind trade.Kind, shares int64) id.TradeID {
		t.Helper()
		tr := &trade.Trade{
			ID:         id.NewTradeID(),
			PropertyID: pid,
			Holder:     holder,
			Kind:       kind,
			Shares:     shares,
			UnitPrice:  types.USD(10),
			Amount:     types.USD(10 * shares),
		}
		if err := s.RecordTrade(ctx, tr); err != nil {
			t.Fatalf("record trade: %v", err)
		}
		return tr.ID
	}

	buyID := record("alice", trade.KindPurchase, 20)
	record("alice", trade.KindSale, 5)
	record("bob", trade.KindPurchase, 10)

	all, err := s.ListTrades(ctx, pid, trade.ListOpts{})
	if err != nil {
		t.Fatalf("list trades: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("trades = %d, want 3", len(all))
	}

	aliceSales, err := s.ListTrades(ctx, pid, trade.ListOpts{Holder: "alice", Kind: trade.KindSale})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(aliceSales) != 1 || aliceSales[0].Shares != 5 {
		t.Errorf("filtered trades = %+v, want one 5-share sale", aliceSales)
	}

	if err := s.DeleteTrade(ctx, buyID); err != nil {
		t.Fatalf("delete trade: %v", err)
	}
	all, _ = s.ListTrades(ctx, pid, trade.ListOpts{})
	if len(all) != 2 {
		t.Errorf("trades after delete = %d, want 2", len(all))
	}

	if err := s.DeleteTrade(ctx, buyID); !errors.Is(err, propshare.ErrNotFound) {
		t.Errorf("double delete: err = %v, want ErrNotFound", err)
	}
}

func TestDistributionRecords(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	pid := mustCreate(t, s, newProperty(100))

	d := &rent.Distribution{
		ID:          id.NewDistributionID(),
		PropertyID:  pid,
		PoolBalance: types.USD(800),
		PerShare:    types.USD(8),
		TotalPaid:   types.USD(160),
		Payouts: []rent.Payout{{
			ID:     id.NewPayoutID(),
			Holder: "alice",
			Shares: 20,
			Amount: types.USD(160),
		}},
	}
	d.Payouts[0].DistributionID = d.ID
	if err := s.RecordDistribution(ctx, d); err != nil {
		t.Fatalf("record distribution: %v", err)
	}

	// Mutating the caller's payout slice must not reach the stored record.
	d.Payouts[0].Amount = types.USD(0)
	dists, err := s.ListDistributions(ctx, pid, rent.ListOpts{})
	if err != nil {
		t.Fatalf("list distributions: %v", err)
	}
	if len(dists) != 1 || dists[0].Payouts[0].Amount.Amount != 160 {
		t.Errorf("distributions = %+v, want stored payout of 160", dists)
	}

	if err := s.DeleteDistribution(ctx, d.ID); err != nil {
		t.Fatalf("delete distribution: %v", err)
	}
	dists, _ = s.ListDistributions(ctx, pid, rent.ListOpts{})
	if len(dists) != 0 {
		t.Errorf("distributions after delete = %d, want 0", len(dists))
	}
}

func TestLifecycle(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	state, err := s.Lifecycle(ctx)
	if err != nil {
		t.Fatalf("lifecycle: %v", err)
	}
	if state.Obsolete || state.LastRentUpdateAt != nil {
		t.Errorf("fresh state = %+v, want zero value", state)
	}

	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := s.RecordRentUpdate(ctx, at, types.USD(12)); err != nil {
		t.Fatalf("record rent update: %v", err)
	}
	state, _ = s.Lifecycle(ctx)
	if state.LastRentUpdateAt == nil || !state.LastRentUpdateAt.Equal(at) {
		t.Errorf("last rent update = %v, want %v", state.LastRentUpdateAt, at)
	}
	if state.LastRentUpdateAmount.Amount != 12 {
		t.Errorf("last rent amount = %d, want 12", state.LastRentUpdateAmount.Amount)
	}

	if err := s.MarkObsolete(ctx, at); err != nil {
		t.Fatalf("mark obsolete: %v", err)
	}
	state, _ = s.Lifecycle(ctx)
	if !state.Obsolete || state.ObsoleteAt == nil || !state.ObsoleteAt.Equal(at) {
		t.Errorf("state after obsolete = %+v", state)
	}

	if err := s.MarkObsolete(ctx, at.Add(time.Hour)); !errors.Is(err, propshare.ErrObsolete) {
		t.Errorf("second obsolete: err = %v, want ErrObsolete", err)
	}
}

func TestPagination(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for range 5 {
		mustCreate(t, s, newProperty(10))
	}

	page, err := s.ListProperties(ctx, property.ListOpts{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list properties: %v", err)
	}
	if len(page) != 2 || page[0].ID != 2 || page[1].ID != 3 {
		t.Errorf("page = %+v, want properties 2 and 3", page)
	}

	tail, err := s.ListProperties(ctx, property.ListOpts{Offset: 4})
	if err != nil {
		t.Fatalf("list tail: %v", err)
	}
	if len(tail) != 1 || tail[0].ID != 4 {
		t.Errorf("tail = %+v, want property 4 only", tail)
	}

	empty, err := s.ListProperties(ctx, property.ListOpts{Offset: 99})
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("past-end page = %+v, want empty", empty)
	}
}

func TestClose(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	mustCreate(t, s, newProperty(10))

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.CreateProperty(ctx, newProperty(10)); !errors.Is(err, propshare.ErrStoreClosed) {
		t.Errorf("create after close: err = %v, want ErrStoreClosed", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, propshare.ErrStoreClosed) {
		t.Errorf("ping after close: err = %v, want ErrStoreClosed", err)
	}
}
