package postgres

import (
	"context"
	"fmt"
)

// schema is applied in order by Migrate. Every table is keyed by tenant.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		tenant      TEXT NOT NULL,
		code        TEXT NOT NULL,
		name        TEXT NOT NULL,
		type        TEXT NOT NULL,
		active      BOOLEAN NOT NULL DEFAULT TRUE,
		description TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tenant, code)
	)`,
	`CREATE TABLE IF NOT EXISTS journal_entries (
		tenant    TEXT NOT NULL,
		id        TEXT NOT NULL,
		seq       BIGINT NOT NULL,
		date      DATE NOT NULL,
		concept   TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		status    TEXT NOT NULL,
		posted_at TIMESTAMPTZ NOT NULL,
		voided_at TIMESTAMPTZ,
		PRIMARY KEY (tenant, id),
		UNIQUE (tenant, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS journal_lines (
		tenant       TEXT NOT NULL,
		entry_id     TEXT NOT NULL,
		line_no      INTEGER NOT NULL,
		account_code TEXT NOT NULL,
		debit        NUMERIC(18, 2) NOT NULL DEFAULT 0,
		credit       NUMERIC(18, 2) NOT NULL DEFAULT 0,
		PRIMARY KEY (tenant, entry_id, line_no),
		FOREIGN KEY (tenant, entry_id) REFERENCES journal_entries (tenant, id)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		tenant            TEXT NOT NULL,
		id                TEXT NOT NULL,
		code              TEXT NOT NULL,
		name              TEXT NOT NULL,
		quantity_on_hand  NUMERIC NOT NULL DEFAULT 0,
		average_unit_cost NUMERIC NOT NULL DEFAULT 0,
		PRIMARY KEY (tenant, id),
		UNIQUE (tenant, code)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_movements (
		tenant                 TEXT NOT NULL,
		id                     TEXT NOT NULL,
		seq                    BIGINT NOT NULL,
		item_id                TEXT NOT NULL,
		date                   DATE NOT NULL,
		type                   TEXT NOT NULL,
		quantity               NUMERIC NOT NULL,
		unit_cost              NUMERIC NOT NULL,
		quantity_before        NUMERIC NOT NULL,
		quantity_after         NUMERIC NOT NULL,
		resulting_average_cost NUMERIC NOT NULL,
		reason                 TEXT NOT NULL DEFAULT '',
		reference              TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tenant, id),
		UNIQUE (tenant, seq),
		FOREIGN KEY (tenant, item_id) REFERENCES inventory_items (tenant, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_movements_item ON inventory_movements (tenant, item_id, seq)`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, txm *TxManager) error {
	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		q := txm.Querier(ctx)
		for i, stmt := range schema {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate step %d: %w", i+1, err)
			}
		}
		return nil
	})
}
