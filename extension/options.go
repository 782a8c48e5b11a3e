package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/propshare"
	"github.com/xraph/propshare/plugin"
	"github.com/xraph/propshare/store"
	"github.com/xraph/propshare/store/mongo"
	"github.com/xraph/propshare/store/postgres"
	"github.com/xraph/propshare/store/sqlite"
)

// Option configures the Propshare Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithPostgres backs the ledger with a PostgreSQL store over the given
// grove database.
func WithPostgres(db *grove.DB) Option {
	return func(e *Extension) {
		e.store = postgres.New(db)
	}
}

// WithSQLite backs the ledger with a SQLite store over the given grove
// database.
func WithSQLite(db *grove.DB) Option {
	return func(e *Extension) {
		e.store = sqlite.New(db)
	}
}

// WithMongo backs the ledger with a MongoDB store over the given grove
// database.
func WithMongo(db *grove.DB) Option {
	return func(e *Extension) {
		e.store = mongo.New(db)
	}
}

// WithLedgerOption passes a propshare.Option through to the underlying engine.
func WithLedgerOption(opt propshare.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, propshare.WithPlugin(p))
	}
}

// WithAuthorizer sets the admin capability for the engine.
func WithAuthorizer(a propshare.Authorizer) Option {
	return func(e *Extension) {
		e.authorizer = a
	}
}

// WithTreasury sets the value-transfer capability for the engine.
func WithTreasury(t propshare.Treasury) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, propshare.WithTreasury(t))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithRentCooldown sets the ledger-wide rent-rate update cooldown.
func WithRentCooldown(d time.Duration) Option {
	return func(e *Extension) { e.config.RentCooldown = d }
}
