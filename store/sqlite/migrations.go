package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Propshare store (SQLite).
var Migrations = migrate.NewGroup("propshare")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_propshare_properties",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS propshare_properties (
    id                      INTEGER PRIMARY KEY,
    owner                   TEXT NOT NULL DEFAULT '',
    total_shares            INTEGER NOT NULL DEFAULT 0,
    available_shares        INTEGER NOT NULL DEFAULT 0,
    rent_rate_cents         INTEGER NOT NULL DEFAULT 0,
    rent_rate_currency      TEXT NOT NULL DEFAULT '',
    property_value_cents    INTEGER NOT NULL DEFAULT 0,
    property_value_currency TEXT NOT NULL DEFAULT '',
    pool_balance_cents      INTEGER NOT NULL DEFAULT 0,
    pool_balance_currency   TEXT NOT NULL DEFAULT '',
    metadata                TEXT NOT NULL DEFAULT '{}',
    created_at              TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at              TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_propshare_properties_owner ON propshare_properties (owner);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS propshare_properties`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_propshare_balances",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS propshare_balances (
    property_id INTEGER NOT NULL,
    holder      TEXT NOT NULL,
    shares      INTEGER NOT NULL DEFAULT 0 CHECK (shares >= 0),
    PRIMARY KEY (property_id, holder)
);

CREATE INDEX IF NOT EXISTS idx_propshare_balances_property ON propshare_balances (property_id, shares);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS propshare_balances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_propshare_trades",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS propshare_trades (
    id                  TEXT PRIMARY KEY,
    property_id         INTEGER NOT NULL,
    holder              TEXT NOT NULL DEFAULT '',
    kind                TEXT NOT NULL DEFAULT '',
    shares              INTEGER NOT NULL DEFAULT 0,
    unit_price_cents    INTEGER NOT NULL DEFAULT 0,
    unit_price_currency TEXT NOT NULL DEFAULT '',
    amount_cents        INTEGER NOT NULL DEFAULT 0,
    amount_currency     TEXT NOT NULL DEFAULT '',
    created_at          TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at          TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_propshare_trades_property ON propshare_trades (property_id, created_at);
CREATE INDEX IF NOT EXISTS idx_propshare_trades_holder ON propshare_trades (property_id, holder);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS propshare_trades`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_propshare_rent_receipts",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS propshare_rent_receipts (
    id              TEXT PRIMARY KEY,
    property_id     INTEGER NOT NULL,
    amount_cents    INTEGER NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_propshare_rent_receipts_property ON propshare_rent_receipts (property_id, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS propshare_rent_receipts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_propshare_distributions",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS propshare_distributions (
    id                    TEXT PRIMARY KEY,
    property_id           INTEGER NOT NULL,
    pool_balance_cents    INTEGER NOT NULL DEFAULT 0,
    pool_balance_currency TEXT NOT NULL DEFAULT '',
    per_share_cents       INTEGER NOT NULL DEFAULT 0,
    per_share_currency    TEXT NOT NULL DEFAULT '',
    total_paid_cents      INTEGER NOT NULL DEFAULT 0,
    total_paid_currency   TEXT NOT NULL DEFAULT '',
    payouts               TEXT NOT NULL DEFAULT '[]',
    created_at            TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at            TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_propshare_distributions_property ON propshare_distributions (property_id, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS propshare_distributions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_propshare_lifecycle",
			Version: "20250101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS propshare_lifecycle (
    id                  INTEGER PRIMARY KEY CHECK (id = 1),
    obsolete            INTEGER NOT NULL DEFAULT 0,
    obsolete_at         TEXT,
    last_rent_update_at TEXT,
    last_rent_cents     INTEGER NOT NULL DEFAULT 0,
    last_rent_currency  TEXT NOT NULL DEFAULT ''
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS propshare_lifecycle`)
				return err
			},
		},
	)
}
