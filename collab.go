package propshare

import (
	"context"
	"time"

	"github.com/xraph/propshare/types"
)

// Authorizer is the injected admin capability. Registration, rent
// receipt, rent-rate updates, dividend distribution and obsoletion are
// all gated on it.
type Authorizer interface {
	IsAdministrator(ctx context.Context, caller string) bool
}

// AuthorizerFunc is an adapter to use a plain function as an Authorizer.
type AuthorizerFunc func(ctx context.Context, caller string) bool

// IsAdministrator implements Authorizer.
func (f AuthorizerFunc) IsAdministrator(ctx context.Context, caller string) bool {
	return f(ctx, caller)
}

// StaticAdmins returns an Authorizer that recognizes a fixed set of
// administrator identities.
func StaticAdmins(admins ...string) Authorizer {
	set := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		set[a] = struct{}{}
	}
	return AuthorizerFunc(func(_ context.Context, caller string) bool {
		_, ok := set[caller]
		return ok
	})
}

// denyAll is the default Authorizer: admin operations are rejected until
// an Authorizer is wired in explicitly.
type denyAll struct{}

func (denyAll) IsAdministrator(context.Context, string) bool { return false }

// Treasury is the injected value-transfer capability. Transfer moves
// funds to a recipient synchronously and returns an error if the
// recipient cannot accept them; the engine treats any failure as fatal
// to the enclosing operation and unwinds the ledger mutation.
type Treasury interface {
	Transfer(ctx context.Context, recipient string, amount types.Money) error
}

// TreasuryFunc is an adapter to use a plain function as a Treasury.
type TreasuryFunc func(ctx context.Context, recipient string, amount types.Money) error

// Transfer implements Treasury.
func (f TreasuryFunc) Transfer(ctx context.Context, recipient string, amount types.Money) error {
	return f(ctx, recipient, amount)
}

// NopTreasury accepts every transfer without moving value. Useful when
// payouts are settled out-of-band and the ledger is the system of record.
type NopTreasury struct{}

// Transfer implements Treasury.
func (NopTreasury) Transfer(context.Context, string, types.Money) error { return nil }

// Clock supplies wall-clock time. Only the rent-update cooldown consults
// it; inject a fake in tests to drive the cooldown window.
type Clock interface {
	Now() time.Time
}

// ClockFunc is an adapter to use a plain function as a Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// systemClock is the default Clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// callerKey is the context key carrying the caller identity.
type callerKey struct{}

// WithCaller returns a context carrying the caller identity. Every
// engine operation resolves its caller from the context.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom extracts the caller identity from the context, or "" if none.
func CallerFrom(ctx context.Context) string {
	if v, ok := ctx.Value(callerKey{}).(string); ok {
		return v
	}
	return ""
}
