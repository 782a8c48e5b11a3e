package propshare_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/xraph/propshare"
	"github.com/xraph/propshare/property"
	"github.com/xraph/propshare/rent"
	"github.com/xraph/propshare/store/memory"
	"github.com/xraph/propshare/trade"
	"github.com/xraph/propshare/types"
)

const admin = "admin@example.com"

// fakeClock drives the rent-update cooldown in tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// recordingTreasury captures outgoing transfers and can be made to fail
// for a specific recipient.
type recordingTreasury struct {
	transfers map[string]types.Money
	failFor   string
}

func newRecordingTreasury() *recordingTreasury {
	return &recordingTreasury{transfers: make(map[string]types.Money)}
}

func (r *recordingTreasury) Transfer(_ context.Context, recipient string, amount types.Money) error {
	if r.failFor != "" && recipient == r.failFor {
		return errors.New("recipient account frozen")
	}
	if prev, ok := r.transfers[recipient]; ok {
		r.transfers[recipient] = prev.Add(amount)
	} else {
		r.transfers[recipient] = amount
	}
	return nil
}

type fixture struct {
	ledger   *propshare.Ledger
	treasury *recordingTreasury
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	treasury := newRecordingTreasury()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}

	l := propshare.New(memory.New(),
		propshare.WithAuthorizer(propshare.StaticAdmins(admin)),
		propshare.WithTreasury(treasury),
		propshare.WithClock(clock),
	)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })

	return &fixture{ledger: l, treasury: treasury, clock: clock}
}

func adminCtx() context.Context {
	return propshare.WithCaller(context.Background(), admin)
}

func callerCtx(caller string) context.Context {
	return propshare.WithCaller(context.Background(), caller)
}

// register creates a property as the admin and fails the test on error.
func (f *fixture) register(t *testing.T, totalShares int64, rentRate, value types.Money) *property.Property {
	t.Helper()
	p, err := f.ledger.RegisterProperty(adminCtx(), totalShares, rentRate, value)
	if err != nil {
		t.Fatalf("register property: %v", err)
	}
	return p
}

func TestRegisterProperty(t *testing.T) {
	t.Run("assigns sequential ids from zero", func(t *testing.T) {
		f := newFixture(t)

		first := f.register(t, 100, types.USD(10), types.USD(1000))
		if first.ID != 0 {
			t.Errorf("first property id = %d, want 0", first.ID)
		}

		second := f.register(t, 50, types.USD(5), types.USD(500))
		if second.ID != 1 {
			t.Errorf("second property id = %d, want 1", second.ID)
		}
	})

	t.Run("issues full supply to the pool", func(t *testing.T) {
		f := newFixture(t)

		p := f.register(t, 100, types.USD(10), types.USD(1000))
		if p.AvailableShares != 100 {
			t.Errorf("available shares = %d, want 100", p.AvailableShares)
		}
		if !p.PoolBalance.IsZero() {
			t.Errorf("pool balance = %s, want zero", p.PoolBalance)
		}
	})

	t.Run("rejects non-admin caller", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.ledger.RegisterProperty(callerCtx("alice"), 100, types.USD(10), types.USD(1000))
		if !errors.Is(err, propshare.ErrUnauthorized) {
			t.Errorf("err = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("rejects invalid parameters", func(t *testing.T) {
		f := newFixture(t)

		cases := []struct {
			name        string
			totalShares int64
			rentRate    types.Money
			value       types.Money
		}{
			{"zero shares", 0, types.USD(10), types.USD(1000)},
			{"negative shares", -5, types.USD(10), types.USD(1000)},
			{"zero rent", 100, types.USD(0), types.USD(1000)},
			{"zero value", 100, types.USD(10), types.USD(0)},
			{"currency mismatch", 100, types.EUR(10), types.USD(1000)},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := f.ledger.RegisterProperty(adminCtx(), tc.totalShares, tc.rentRate, tc.value)
				if !errors.Is(err, propshare.ErrInvalidArgument) {
					t.Errorf("err = %v, want ErrInvalidArgument", err)
				}
			})
		}
	})
}

func TestShareValue(t *testing.T) {
	f := newFixture(t)

	p := f.register(t, 100, types.USD(10), types.USD(1000))

	sv, err := f.ledger.ShareValue(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("share value: %v", err)
	}
	if sv.Amount != 10 {
		t.Errorf("share value = %d, want 10", sv.Amount)
	}

	// Floor division: 1000 / 300 = 3.
	p2 := f.register(t, 300, types.USD(1), types.USD(1000))
	sv2, err := f.ledger.ShareValue(context.Background(), p2.ID)
	if err != nil {
		t.Fatalf("share value: %v", err)
	}
	if sv2.Amount != 3 {
		t.Errorf("share value = %d, want 3 (floor)", sv2.Amount)
	}

	// Deterministic: same inputs, same price, every call.
	again, _ := f.ledger.ShareValue(context.Background(), p.ID)
	if !again.Equal(sv) {
		t.Errorf("share value changed between calls: %s then %s", sv, again)
	}

	if _, err := f.ledger.ShareValue(context.Background(), 99); !errors.Is(err, propshare.ErrPropertyNotFound) {
		t.Errorf("err = %v, want ErrPropertyNotFound", err)
	}
}

func TestPurchaseShares(t *testing.T) {
	t.Run("moves shares and charges exact amount", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		charged, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 20, types.USD(200))
		if err != nil {
			t.Fatalf("purchase: %v", err)
		}
		if charged.Amount != 200 {
			t.Errorf("charged = %d, want 200", charged.Amount)
		}

		balance, _ := f.ledger.Balance(context.Background(), p.ID, "alice")
		if balance != 20 {
			t.Errorf("balance = %d, want 20", balance)
		}

		got, _ := f.ledger.GetProperty(context.Background(), p.ID)
		if got.AvailableShares != 80 {
			t.Errorf("available shares = %d, want 80", got.AvailableShares)
		}
	})

	t.Run("refunds excess payment through treasury", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		charged, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 5, types.USD(75))
		if err != nil {
			t.Fatalf("purchase: %v", err)
		}
		if charged.Amount != 50 {
			t.Errorf("charged = %d, want 50", charged.Amount)
		}
		if refund := f.treasury.transfers["alice"]; refund.Amount != 25 {
			t.Errorf("refund = %d, want 25", refund.Amount)
		}
	})

	t.Run("rejects insufficient payment", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		_, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 20, types.USD(199))
		if !errors.Is(err, propshare.ErrInsufficientPayment) {
			t.Errorf("err = %v, want ErrInsufficientPayment", err)
		}

		// Nothing moved.
		balance, _ := f.ledger.Balance(context.Background(), p.ID, "alice")
		if balance != 0 {
			t.Errorf("balance = %d, want 0", balance)
		}
	})

	t.Run("rejects purchase beyond pool supply", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		_, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 101, types.USD(1010))
		if !errors.Is(err, propshare.ErrInsufficientSupply) {
			t.Errorf("err = %v, want ErrInsufficientSupply", err)
		}
	})

	t.Run("rejects non-positive count", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		for _, count := range []int64{0, -3} {
			_, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, count, types.USD(100))
			if !errors.Is(err, propshare.ErrInvalidArgument) {
				t.Errorf("count %d: err = %v, want ErrInvalidArgument", count, err)
			}
		}
	})

	t.Run("rejects unknown property", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.ledger.PurchaseShares(callerCtx("alice"), 7, 1, types.USD(10))
		if !errors.Is(err, propshare.ErrPropertyNotFound) {
			t.Errorf("err = %v, want ErrPropertyNotFound", err)
		}
	})

	t.Run("unwinds when the refund transfer fails", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))
		f.treasury.failFor = "alice"

		_, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 5, types.USD(75))
		if !errors.Is(err, propshare.ErrTransferFailed) {
			t.Fatalf("err = %v, want ErrTransferFailed", err)
		}

		balance, _ := f.ledger.Balance(context.Background(), p.ID, "alice")
		if balance != 0 {
			t.Errorf("balance after unwind = %d, want 0", balance)
		}
		got, _ := f.ledger.GetProperty(context.Background(), p.ID)
		if got.AvailableShares != 100 {
			t.Errorf("available shares after unwind = %d, want 100", got.AvailableShares)
		}
		trades, _ := f.ledger.ListTrades(context.Background(), p.ID, trade.ListOpts{})
		if len(trades) != 0 {
			t.Errorf("trade receipts after unwind = %d, want 0", len(trades))
		}
	})
}

func TestSellShares(t *testing.T) {
	t.Run("returns shares to pool and pays proceeds", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 20, types.USD(200)); err != nil {
			t.Fatalf("purchase: %v", err)
		}

		received, err := f.ledger.SellShares(callerCtx("alice"), p.ID, 15)
		if err != nil {
			t.Fatalf("sell: %v", err)
		}
		if received.Amount != 150 {
			t.Errorf("received = %d, want 150", received.Amount)
		}
		if paid := f.treasury.transfers["alice"]; paid.Amount != 150 {
			t.Errorf("treasury paid = %d, want 150", paid.Amount)
		}

		balance, _ := f.ledger.Balance(context.Background(), p.ID, "alice")
		if balance != 5 {
			t.Errorf("balance = %d, want 5", balance)
		}
		got, _ := f.ledger.GetProperty(context.Background(), p.ID)
		if got.AvailableShares != 95 {
			t.Errorf("available shares = %d, want 95", got.AvailableShares)
		}
	})

	t.Run("round-trips a purchase", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		charged, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 7, types.USD(70))
		if err != nil {
			t.Fatalf("purchase: %v", err)
		}
		received, err := f.ledger.SellShares(callerCtx("alice"), p.ID, 7)
		if err != nil {
			t.Fatalf("sell: %v", err)
		}
		if !received.Equal(charged) {
			t.Errorf("received %s, charged %s; want equal at unchanged valuation", received, charged)
		}

		balance, _ := f.ledger.Balance(context.Background(), p.ID, "alice")
		if balance != 0 {
			t.Errorf("balance = %d, want 0", balance)
		}
		got, _ := f.ledger.GetProperty(context.Background(), p.ID)
		if got.AvailableShares != 100 {
			t.Errorf("available = %d, want 100", got.AvailableShares)
		}
	})

	t.Run("rejects sale beyond holder balance", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 10, types.USD(100)); err != nil {
			t.Fatalf("purchase: %v", err)
		}

		_, err := f.ledger.SellShares(callerCtx("alice"), p.ID, 11)
		if !errors.Is(err, propshare.ErrInsufficientBalance) {
			t.Errorf("err = %v, want ErrInsufficientBalance", err)
		}

		// Holders with no balance at all get the same rejection.
		_, err = f.ledger.SellShares(callerCtx("bob"), p.ID, 1)
		if !errors.Is(err, propshare.ErrInsufficientBalance) {
			t.Errorf("err = %v, want ErrInsufficientBalance", err)
		}
	})

	t.Run("unwinds when the proceeds transfer fails", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 20, types.USD(200)); err != nil {
			t.Fatalf("purchase: %v", err)
		}
		f.treasury.failFor = "alice"

		_, err := f.ledger.SellShares(callerCtx("alice"), p.ID, 20)
		if !errors.Is(err, propshare.ErrTransferFailed) {
			t.Fatalf("err = %v, want ErrTransferFailed", err)
		}

		balance, _ := f.ledger.Balance(context.Background(), p.ID, "alice")
		if balance != 20 {
			t.Errorf("balance after unwind = %d, want 20", balance)
		}
		got, _ := f.ledger.GetProperty(context.Background(), p.ID)
		if got.AvailableShares != 80 {
			t.Errorf("available shares after unwind = %d, want 80", got.AvailableShares)
		}
	})
}

func TestConservationInvariant(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, 100, types.USD(10), types.USD(1000))

	check := func(step string) {
		t.Helper()
		got, err := f.ledger.GetProperty(context.Background(), p.ID)
		if err != nil {
			t.Fatalf("%s: get property: %v", step, err)
		}
		holdings, err := f.ledger.Holders(context.Background(), p.ID)
		if err != nil {
			t.Fatalf("%s: holders: %v", step, err)
		}
		var held int64
		for _, h := range holdings {
			held += h.Shares
			if h.Shares <= 0 {
				t.Errorf("%s: holder %s listed with non-positive balance %d", step, h.Holder, h.Shares)
			}
		}
		if got.AvailableShares+held != got.TotalShares {
			t.Errorf("%s: pool %d + held %d != total %d", step, got.AvailableShares, held, got.TotalShares)
		}
	}

	check("after register")

	if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 30, types.USD(300)); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	check("after alice buys 30")

	if _, err := f.ledger.PurchaseShares(callerCtx("bob"), p.ID, 25, types.USD(250)); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	check("after bob buys 25")

	if _, err := f.ledger.SellShares(callerCtx("alice"), p.ID, 30); err != nil {
		t.Fatalf("sell: %v", err)
	}
	check("after alice sells everything")

	// A failed purchase must not disturb the invariant.
	if _, err := f.ledger.PurchaseShares(callerCtx("carol"), p.ID, 1000, types.USD(10000)); err == nil {
		t.Fatal("oversized purchase unexpectedly succeeded")
	}
	check("after rejected purchase")
}

func TestRandomizedTrading(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, 100, types.USD(10), types.USD(1000))

	holders := []string{"alice", "bob", "carol"}
	rng := rand.New(rand.NewSource(42))

	check := func(step int) {
		t.Helper()
		got, err := f.ledger.GetProperty(context.Background(), p.ID)
		if err != nil {
			t.Fatalf("step %d: get property: %v", step, err)
		}
		if got.AvailableShares < 0 {
			t.Fatalf("step %d: available shares went negative: %d", step, got.AvailableShares)
		}
		var held int64
		for _, holder := range holders {
			balance, err := f.ledger.Balance(context.Background(), p.ID, holder)
			if err != nil {
				t.Fatalf("step %d: balance of %s: %v", step, holder, err)
			}
			if balance < 0 {
				t.Fatalf("step %d: balance of %s went negative: %d", step, holder, balance)
			}
			held += balance
		}
		if got.AvailableShares+held != got.TotalShares {
			t.Fatalf("step %d: pool %d + held %d != total %d",
				step, got.AvailableShares, held, got.TotalShares)
		}
	}

	for step := range 500 {
		holder := holders[rng.Intn(len(holders))]
		count := rng.Int63n(60) + 1

		if rng.Intn(2) == 0 {
			_, err := f.ledger.PurchaseShares(callerCtx(holder), p.ID, count, types.USD(10*count))
			if err != nil && !errors.Is(err, propshare.ErrInsufficientSupply) {
				t.Fatalf("step %d: purchase %d shares: %v", step, count, err)
			}
		} else {
			_, err := f.ledger.SellShares(callerCtx(holder), p.ID, count)
			if err != nil && !errors.Is(err, propshare.ErrInsufficientBalance) {
				t.Fatalf("step %d: sell %d shares: %v", step, count, err)
			}
		}

		check(step)
	}
}

func TestReceiveRentalPayment(t *testing.T) {
	t.Run("accepts exact rent due and credits pool", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 20, types.USD(200)); err != nil {
			t.Fatalf("purchase: %v", err)
		}

		// 10 per share x 80 pool shares.
		rcpt, err := f.ledger.ReceiveRentalPayment(adminCtx(), p.ID, types.USD(800))
		if err != nil {
			t.Fatalf("receive rent: %v", err)
		}
		if rcpt.Amount.Amount != 800 {
			t.Errorf("receipt amount = %d, want 800", rcpt.Amount.Amount)
		}

		pool, _ := f.ledger.PoolBalance(context.Background(), p.ID)
		if pool.Amount != 800 {
			t.Errorf("pool balance = %d, want 800", pool.Amount)
		}
	})

	t.Run("rejects any amount other than rent due", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 20, types.USD(200)); err != nil {
			t.Fatalf("purchase: %v", err)
		}

		// Exact-match contract: one under and one over both fail.
		for _, amount := range []int64{799, 801} {
			_, err := f.ledger.ReceiveRentalPayment(adminCtx(), p.ID, types.USD(amount))
			if !errors.Is(err, propshare.ErrInvalidPayment) {
				t.Errorf("amount %d: err = %v, want ErrInvalidPayment", amount, err)
			}
		}

		pool, _ := f.ledger.PoolBalance(context.Background(), p.ID)
		if pool.Amount != 0 {
			t.Errorf("pool balance = %d, want 0 after rejected payments", pool.Amount)
		}
	})

	t.Run("rejects non-admin caller", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		_, err := f.ledger.ReceiveRentalPayment(callerCtx("alice"), p.ID, types.USD(1000))
		if !errors.Is(err, propshare.ErrUnauthorized) {
			t.Errorf("err = %v, want ErrUnauthorized", err)
		}
	})
}

func TestDistributeDividends(t *testing.T) {
	t.Run("pays each holder pro-rata exactly once", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 20, types.USD(200)); err != nil {
			t.Fatalf("purchase: %v", err)
		}
		if _, err := f.ledger.PurchaseShares(callerCtx("bob"), p.ID, 30, types.USD(300)); err != nil {
			t.Fatalf("purchase: %v", err)
		}
		// Rent due: 10 x 50 pool shares.
		if _, err := f.ledger.ReceiveRentalPayment(adminCtx(), p.ID, types.USD(500)); err != nil {
			t.Fatalf("receive rent: %v", err)
		}

		d, err := f.ledger.DistributeDividends(adminCtx(), p.ID)
		if err != nil {
			t.Fatalf("distribute: %v", err)
		}

		// 500 / 100 total shares = 5 per share.
		if d.PerShare.Amount != 5 {
			t.Errorf("per share = %d, want 5", d.PerShare.Amount)
		}
		if len(d.Payouts) != 2 {
			t.Fatalf("payouts = %d, want 2", len(d.Payouts))
		}
		// The purchases paid exactly, so the only treasury transfers
		// are the dividend payouts.
		if got := f.treasury.transfers["alice"].Amount; got != 100 {
			t.Errorf("alice received %d, want 100", got)
		}
		if got := f.treasury.transfers["bob"].Amount; got != 150 {
			t.Errorf("bob received %d, want 150", got)
		}
		if d.TotalPaid.Amount != 250 {
			t.Errorf("total paid = %d, want 250", d.TotalPaid.Amount)
		}

		// The undistributed remainder (pool shares' portion) stays behind.
		pool, _ := f.ledger.PoolBalance(context.Background(), p.ID)
		if pool.Amount != 250 {
			t.Errorf("pool balance = %d, want 250", pool.Amount)
		}
	})

	t.Run("matches the worked example end to end", func(t *testing.T) {
		f := newFixture(t)

		p := f.register(t, 100, types.USD(10), types.USD(1000))
		if p.ID != 0 {
			t.Fatalf("property id = %d, want 0", p.ID)
		}

		sv, _ := f.ledger.ShareValue(context.Background(), p.ID)
		if sv.Amount != 10 {
			t.Fatalf("share value = %d, want 10", sv.Amount)
		}

		charged, err := f.ledger.PurchaseShares(callerCtx("buyer"), p.ID, 20, types.USD(200))
		if err != nil || charged.Amount != 200 {
			t.Fatalf("purchase: charged=%v err=%v", charged, err)
		}

		balance, _ := f.ledger.Balance(context.Background(), p.ID, "buyer")
		if balance != 20 {
			t.Fatalf("balance = %d, want 20", balance)
		}
		got, _ := f.ledger.GetProperty(context.Background(), p.ID)
		if got.AvailableShares != 80 {
			t.Fatalf("available = %d, want 80", got.AvailableShares)
		}

		if _, err := f.ledger.ReceiveRentalPayment(adminCtx(), p.ID, types.USD(799)); !errors.Is(err, propshare.ErrInvalidPayment) {
			t.Fatalf("short rent: err = %v, want ErrInvalidPayment", err)
		}
		if _, err := f.ledger.ReceiveRentalPayment(adminCtx(), p.ID, types.USD(800)); err != nil {
			t.Fatalf("exact rent: %v", err)
		}

		d, err := f.ledger.DistributeDividends(adminCtx(), p.ID)
		if err != nil {
			t.Fatalf("distribute: %v", err)
		}
		if d.PerShare.Amount != 8 {
			t.Errorf("per share = %d, want 8", d.PerShare.Amount)
		}
		if got := f.treasury.transfers["buyer"].Amount; got != 160 {
			t.Errorf("buyer received %d, want 160 (8 x 20)", got)
		}
	})

	t.Run("fails when the pool holds no shares", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 10, types.USD(10), types.USD(100))

		if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 10, types.USD(100)); err != nil {
			t.Fatalf("purchase: %v", err)
		}

		_, err := f.ledger.DistributeDividends(adminCtx(), p.ID)
		if !errors.Is(err, propshare.ErrNoAvailableShares) {
			t.Errorf("err = %v, want ErrNoAvailableShares", err)
		}
	})

	t.Run("distributes nothing gracefully when pool is empty", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 20, types.USD(200)); err != nil {
			t.Fatalf("purchase: %v", err)
		}

		d, err := f.ledger.DistributeDividends(adminCtx(), p.ID)
		if err != nil {
			t.Fatalf("distribute: %v", err)
		}
		if !d.TotalPaid.IsZero() {
			t.Errorf("total paid = %s, want zero", d.TotalPaid)
		}
	})

	t.Run("unwinds fully when a payout transfer fails", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 20, types.USD(200)); err != nil {
			t.Fatalf("purchase: %v", err)
		}
		if _, err := f.ledger.ReceiveRentalPayment(adminCtx(), p.ID, types.USD(800)); err != nil {
			t.Fatalf("receive rent: %v", err)
		}
		f.treasury.failFor = "alice"

		_, err := f.ledger.DistributeDividends(adminCtx(), p.ID)
		if !errors.Is(err, propshare.ErrTransferFailed) {
			t.Fatalf("err = %v, want ErrTransferFailed", err)
		}

		pool, _ := f.ledger.PoolBalance(context.Background(), p.ID)
		if pool.Amount != 800 {
			t.Errorf("pool balance after unwind = %d, want 800", pool.Amount)
		}
		dists, _ := f.ledger.ListDistributions(context.Background(), p.ID, rent.ListOpts{})
		if len(dists) != 0 {
			t.Errorf("distribution records after unwind = %d, want 0", len(dists))
		}
	})
}

func TestUpdateAnnualRent(t *testing.T) {
	t.Run("updates rate and enforces the cooldown globally", func(t *testing.T) {
		f := newFixture(t)
		first := f.register(t, 100, types.USD(10), types.USD(1000))
		second := f.register(t, 100, types.USD(20), types.USD(2000))

		if err := f.ledger.UpdateAnnualRent(adminCtx(), first.ID, types.USD(12)); err != nil {
			t.Fatalf("first update: %v", err)
		}

		got, _ := f.ledger.GetProperty(context.Background(), first.ID)
		if got.RentalPayment.Amount != 12 {
			t.Errorf("rent rate = %d, want 12", got.RentalPayment.Amount)
		}

		// The cooldown spans the whole ledger: updating a different
		// property is still too soon.
		err := f.ledger.UpdateAnnualRent(adminCtx(), second.ID, types.USD(25))
		if !errors.Is(err, propshare.ErrRentUpdateTooSoon) {
			t.Errorf("err = %v, want ErrRentUpdateTooSoon", err)
		}

		// Exactly one cooldown later is still too soon; the window must
		// be strictly exceeded.
		f.clock.now = f.clock.now.Add(propshare.DefaultRentCooldown)
		err = f.ledger.UpdateAnnualRent(adminCtx(), second.ID, types.USD(25))
		if !errors.Is(err, propshare.ErrRentUpdateTooSoon) {
			t.Errorf("at window boundary: err = %v, want ErrRentUpdateTooSoon", err)
		}

		f.clock.now = f.clock.now.Add(time.Second)
		if err := f.ledger.UpdateAnnualRent(adminCtx(), second.ID, types.USD(25)); err != nil {
			t.Fatalf("update after cooldown: %v", err)
		}
	})

	t.Run("rejects non-positive rate", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		err := f.ledger.UpdateAnnualRent(adminCtx(), p.ID, types.USD(0))
		if !errors.Is(err, propshare.ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("rejects non-admin caller", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		err := f.ledger.UpdateAnnualRent(callerCtx("alice"), p.ID, types.USD(12))
		if !errors.Is(err, propshare.ErrUnauthorized) {
			t.Errorf("err = %v, want ErrUnauthorized", err)
		}
	})
}

func TestSetObsolete(t *testing.T) {
	t.Run("freezes all mutation while reads keep working", func(t *testing.T) {
		f := newFixture(t)
		p := f.register(t, 100, types.USD(10), types.USD(1000))

		if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 20, types.USD(200)); err != nil {
			t.Fatalf("purchase: %v", err)
		}

		if err := f.ledger.SetObsolete(adminCtx()); err != nil {
			t.Fatalf("set obsolete: %v", err)
		}

		// Every mutating entry point is rejected.
		if _, err := f.ledger.RegisterProperty(adminCtx(), 10, types.USD(1), types.USD(10)); !errors.Is(err, propshare.ErrObsolete) {
			t.Errorf("register: err = %v, want ErrObsolete", err)
		}
		if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 1, types.USD(10)); !errors.Is(err, propshare.ErrObsolete) {
			t.Errorf("purchase: err = %v, want ErrObsolete", err)
		}
		if _, err := f.ledger.SellShares(callerCtx("alice"), p.ID, 1); !errors.Is(err, propshare.ErrObsolete) {
			t.Errorf("sell: err = %v, want ErrObsolete", err)
		}
		if _, err := f.ledger.ReceiveRentalPayment(adminCtx(), p.ID, types.USD(800)); !errors.Is(err, propshare.ErrObsolete) {
			t.Errorf("rent: err = %v, want ErrObsolete", err)
		}
		if _, err := f.ledger.DistributeDividends(adminCtx(), p.ID); !errors.Is(err, propshare.ErrObsolete) {
			t.Errorf("distribute: err = %v, want ErrObsolete", err)
		}
		if err := f.ledger.UpdateAnnualRent(adminCtx(), p.ID, types.USD(12)); !errors.Is(err, propshare.ErrObsolete) {
			t.Errorf("rent update: err = %v, want ErrObsolete", err)
		}

		// One-way: a second obsoletion attempt is itself rejected.
		if err := f.ledger.SetObsolete(adminCtx()); !errors.Is(err, propshare.ErrObsolete) {
			t.Errorf("second obsolete: err = %v, want ErrObsolete", err)
		}

		// Reads survive.
		if _, err := f.ledger.GetProperty(context.Background(), p.ID); err != nil {
			t.Errorf("get property after obsolete: %v", err)
		}
		balance, err := f.ledger.Balance(context.Background(), p.ID, "alice")
		if err != nil || balance != 20 {
			t.Errorf("balance after obsolete = %d, %v; want 20, nil", balance, err)
		}
		sv, err := f.ledger.ShareValue(context.Background(), p.ID)
		if err != nil || sv.Amount != 10 {
			t.Errorf("share value after obsolete = %v, %v; want 10, nil", sv, err)
		}
	})

	t.Run("rejects non-admin caller", func(t *testing.T) {
		f := newFixture(t)

		if err := f.ledger.SetObsolete(callerCtx("alice")); !errors.Is(err, propshare.ErrUnauthorized) {
			t.Errorf("err = %v, want ErrUnauthorized", err)
		}
	})
}

func TestReadSurface(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, 100, types.USD(10), types.USD(1000))

	if _, err := f.ledger.PurchaseShares(callerCtx("alice"), p.ID, 20, types.USD(200)); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := f.ledger.SellShares(callerCtx("alice"), p.ID, 5); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if _, err := f.ledger.ReceiveRentalPayment(adminCtx(), p.ID, types.USD(850)); err != nil {
		t.Fatalf("receive rent: %v", err)
	}
	if _, err := f.ledger.DistributeDividends(adminCtx(), p.ID); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	trades, err := f.ledger.ListTrades(context.Background(), p.ID, trade.ListOpts{})
	if err != nil {
		t.Fatalf("list trades: %v", err)
	}
	if len(trades) != 2 {
		t.Errorf("trades = %d, want 2", len(trades))
	}

	purchases, err := f.ledger.ListTrades(context.Background(), p.ID, trade.ListOpts{Kind: trade.KindPurchase})
	if err != nil {
		t.Fatalf("list purchases: %v", err)
	}
	if len(purchases) != 1 || purchases[0].Shares != 20 {
		t.Errorf("purchases = %+v, want one 20-share purchase", purchases)
	}

	receipts, err := f.ledger.ListRentReceipts(context.Background(), p.ID, rent.ListOpts{})
	if err != nil {
		t.Fatalf("list receipts: %v", err)
	}
	if len(receipts) != 1 || receipts[0].Amount.Amount != 850 {
		t.Errorf("receipts = %+v, want one for 850", receipts)
	}

	dists, err := f.ledger.ListDistributions(context.Background(), p.ID, rent.ListOpts{})
	if err != nil {
		t.Fatalf("list distributions: %v", err)
	}
	if len(dists) != 1 {
		t.Fatalf("distributions = %d, want 1", len(dists))
	}
	if len(dists[0].Payouts) != 1 || dists[0].Payouts[0].Holder != "alice" {
		t.Errorf("payouts = %+v, want a single payout to alice", dists[0].Payouts)
	}

	holdings, err := f.ledger.Holders(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("holders: %v", err)
	}
	if len(holdings) != 1 || holdings[0].Shares != 15 {
		t.Errorf("holdings = %+v, want alice with 15", holdings)
	}
}

func TestCallerIdentityRequired(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, 100, types.USD(10), types.USD(1000))

	// No caller in context.
	if _, err := f.ledger.PurchaseShares(context.Background(), p.ID, 1, types.USD(10)); !errors.Is(err, propshare.ErrInvalidArgument) {
		t.Errorf("purchase without caller: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := f.ledger.RegisterProperty(context.Background(), 10, types.USD(1), types.USD(10)); err == nil {
		t.Error("register without caller unexpectedly succeeded")
	}
}
