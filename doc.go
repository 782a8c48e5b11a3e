// Package propshare provides a fractional-ownership ledger for
// income-producing assets such as real estate.
//
// Propshare is designed as a library, not a service. Import it directly
// into your Go application. It provides:
//
//   - A property registry with sequential ids and immutable share supply
//   - Share trading against a per-property pool at a valuation-derived price
//   - Rental income collection into a per-property distributable pool
//   - Pro-rata dividend distribution to current holders
//   - A one-way obsolescence gate that freezes all mutation while reads keep working
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/propshare"
//	    "github.com/xraph/propshare/store/memory"
//	)
//
//	l := propshare.New(memory.New(),
//	    propshare.WithAuthorizer(propshare.StaticAdmins("ops@example.com")),
//	)
//
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// Properties carry a fixed share supply, a per-share annual rent rate and
// a valuation. Registering one issues the entire supply to the pool:
//
//	ctx = propshare.WithCaller(ctx, "ops@example.com")
//	p, err := l.RegisterProperty(ctx, 100, propshare.USD(10), propshare.USD(1000))
//
// The per-share price is the valuation divided by the supply, so anyone
// can buy in at a deterministic price:
//
//	charged, err := l.PurchaseShares(ctx, p.ID, 20, propshare.USD(200))
//
// Rental income is accepted against pool-held shares and distributed
// pro-rata to holders:
//
//	_, err = l.ReceiveRentalPayment(ctx, p.ID, propshare.USD(800))
//	dist, err := l.DistributeDividends(ctx, p.ID)
//
// All monetary calculations use integer arithmetic to avoid
// floating-point precision issues. The Money type represents amounts in
// the smallest currency unit (cents for USD, pence for GBP, etc).
//
// # Invariants
//
// For every property, pool shares plus the sum of all holder balances
// always equals the total supply. No operation can make a balance
// negative, and every mutating call commits fully before the next
// begins.
//
// # TypeID
//
// Receipts use TypeID for globally unique, type-safe identifiers:
//
//	trade_01h2xcejqtf2nbrexx3vqjhp41 // Trade receipt
//	rent_01h2xcejqtf2nbrexx3vqjhp41  // Rent receipt
//	dist_01h455vb4pex5vsknk084sn02q  // Distribution
//
// Property ids are plain sequential integers starting at zero, in
// registration order.
package propshare
