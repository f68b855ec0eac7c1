// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsync

import (
	"context"
	"fmt"
)

// EnsureSchema creates the ledger tables if they don't exist. Safe to
// call on every startup.
//
// transactions keys on the client-generated transaction_id, which is
// what makes drain replays idempotent: a retried month-expansion hits
// the primary key and becomes a no-op instead of a duplicate row.
func (s *Store) EnsureSchema(ctx context.Context) error {
	migrations := []string{
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS users (
			user_id       BIGSERIAL PRIMARY KEY,
			username      TEXT      NOT NULL UNIQUE,
			password_hash TEXT      NOT NULL,
			full_name     TEXT      NOT NULL DEFAULT '',
			role          TEXT      NOT NULL DEFAULT 'staff'
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS members (
			member_id          BIGSERIAL PRIMARY KEY,
			first_name         TEXT      NOT NULL,
			last_name          TEXT      NOT NULL,
			email              TEXT,
			phone              TEXT,
			membership_card_no TEXT,
			nic_no             TEXT,
			date_of_birth      DATE,
			join_date          DATE,
			status             TEXT      NOT NULL DEFAULT 'active'
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS transactions (
			transaction_id   UUID          PRIMARY KEY,
			member_id        BIGINT        REFERENCES members(member_id),
			user_id          BIGINT        NOT NULL REFERENCES users(user_id),
			transaction_type TEXT          NOT NULL CHECK (transaction_type IN
				('membership','tithe','donation','parking','thanksgiving','expense','bag_offering')),
			amount           NUMERIC(12,2) NOT NULL,
			transaction_date DATE          NOT NULL,
			created_at       TIMESTAMPTZ   NOT NULL DEFAULT now()
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS membership (
			membership_id  BIGSERIAL PRIMARY KEY,
			transaction_id UUID      NOT NULL UNIQUE REFERENCES transactions(transaction_id),
			member_id      BIGINT    NOT NULL REFERENCES members(member_id),
			payment_month  DATE      NOT NULL,
			payment_year   INT       NOT NULL
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS expenses (
			expense_id     BIGSERIAL PRIMARY KEY,
			transaction_id UUID      NOT NULL UNIQUE REFERENCES transactions(transaction_id),
			expense_type   TEXT      NOT NULL,
			comments       TEXT      NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS membership_member_year_idx
			ON membership(member_id, payment_year)`,
		`CREATE INDEX IF NOT EXISTS transactions_date_idx
			ON transactions(transaction_date)`,
	}

	for i, migration := range migrations {
		if _, err := s.conn.Exec(ctx, migration); err != nil {
			return fmt.Errorf("ledger schema migration %d failed: %w", i, classifyQuery(err))
		}
	}
	return nil
}
