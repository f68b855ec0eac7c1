// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsqlite

// ensureSchema creates the cache tables if absent. Idempotent; called
// on every client construction and cheap enough to re-run before writes.
func (c *Client) ensureSchema() error {
	migrations := []string{
		// Read-only mirrors, fully replaced by each mirror refresh.
		`CREATE TABLE IF NOT EXISTS local_users (
			user_id       INTEGER PRIMARY KEY,
			username      TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			full_name     TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'staff'
		)`,
		`CREATE TABLE IF NOT EXISTS local_members (
			member_id          INTEGER PRIMARY KEY,
			membership_card_no TEXT NOT NULL DEFAULT '',
			first_name         TEXT NOT NULL,
			last_name          TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS local_paid_periods (
			member_id     INTEGER NOT NULL,
			payment_year  INTEGER NOT NULL,
			payment_month INTEGER NOT NULL,
			PRIMARY KEY (member_id, payment_year, payment_month)
		)`,

		// Durable queue of payments taken while offline. months is a
		// comma-separated list of English month names, ordered.
		`CREATE TABLE IF NOT EXISTS pending_membership_payments (
			local_id         INTEGER PRIMARY KEY AUTOINCREMENT,
			member_id        INTEGER NOT NULL,
			user_id          INTEGER NOT NULL,
			year             INTEGER NOT NULL,
			months           TEXT    NOT NULL,
			total_amount     REAL    NOT NULL,
			amount_per_month REAL    NOT NULL,
			created_at       TEXT    NOT NULL,
			transaction_uuid TEXT    NOT NULL UNIQUE,
			synced           INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, migration := range migrations {
		if _, err := c.DB.Exec(migration); err != nil {
			return localErr("ensure schema", err)
		}
	}
	return nil
}
