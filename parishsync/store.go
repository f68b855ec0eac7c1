// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package parishsync implements the primary-store side of the church
// ledger offline-sync subsystem: session management against PostgreSQL,
// the error taxonomy that gates every offline-fallback branch, ledger
// writes with replay-stable transaction ids, and the reference-data
// reads that feed the local mirrors.
package parishsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by AuthenticateUser when the user
// does not exist or the password does not match. Deliberately the same
// error for both so callers can't probe for usernames.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrDuplicatePeriod is returned when a payment group would create a
// second membership-period row for the same (member, year, month).
var ErrDuplicatePeriod = errors.New("membership period already paid")

// Store is one primary-store session. Each logical operation (an
// interactive write, a mirror refresh, a whole drain pass) runs on
// exactly one Store and releases it when done.
type Store struct {
	conn   *pgxpool.Conn
	logger *slog.Logger
}

// Close releases the session's connection back to the pool.
func (s *Store) Close() {
	s.conn.Release()
}

// ApplyPaymentGroup writes one logical membership payment: one ledger
// transaction plus one membership-period detail row per month, all in a
// single database transaction.
//
// Transaction ids derive deterministically from (GroupID, month index)
// and both inserts are ON CONFLICT DO NOTHING on that id, so replaying
// a group that partially committed before — e.g. a drain pass that
// crashed between the remote commit and the local queue delete — is a
// safe no-op rather than a duplicate.
func (s *Store) ApplyPaymentGroup(ctx context.Context, g PaymentGroup) ([]string, error) {
	if len(g.Months) == 0 {
		return nil, fmt.Errorf("%w: payment group %s has no months", ErrRemoteQuery, g.GroupID)
	}
	perMonth := g.PerMonth()
	now := time.Now()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, classifyQuery(err)
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(g.Months))
	for i, name := range g.Months {
		month, err := MonthNumber(name)
		if err != nil {
			return nil, fmt.Errorf("%w: bad month name %q in group %s", ErrRemoteQuery, name, g.GroupID)
		}
		txID := TransactionIDForMonth(g.GroupID, i)
		paymentDate := time.Date(g.Year, month, 1, 0, 0, 0, 0, time.UTC)

		// Application-level duplicate-period guard. Our own replayed
		// row (same transaction id) does not count as a duplicate.
		var taken bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM membership
				WHERE member_id = $1 AND payment_year = $2 AND payment_month = $3
				  AND transaction_id <> $4
			)
		`, g.MemberID, g.Year, paymentDate, txID).Scan(&taken)
		if err != nil {
			return nil, classifyQuery(err)
		}
		if taken {
			return nil, fmt.Errorf("%w: member %d, %s %d", ErrDuplicatePeriod, g.MemberID, name, g.Year)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO transactions (transaction_id, member_id, user_id, transaction_type, amount, transaction_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (transaction_id) DO NOTHING
		`, txID, g.MemberID, g.UserID, string(TypeMembership), perMonth, now)
		if err != nil {
			return nil, classifyQuery(err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO membership (transaction_id, member_id, payment_month, payment_year)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (transaction_id) DO NOTHING
		`, txID, g.MemberID, paymentDate, g.Year)
		if err != nil {
			return nil, classifyQuery(err)
		}

		ids = append(ids, txID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyQuery(err)
	}
	s.logger.Debug("payment group applied",
		"group_id", g.GroupID, "member_id", g.MemberID, "months", len(g.Months), "per_month", perMonth)
	return ids, nil
}

// RecordTransaction writes a single-row ledger entry (tithe, donation,
// parking, thanksgiving, bag offering). memberID is nil for non-member
// donors. Returns the new transaction id.
func (s *Store) RecordTransaction(ctx context.Context, sess Session, memberID *int64, tt TransactionType, amount float64) (string, error) {
	txID := NewGroupID()
	_, err := s.conn.Exec(ctx, `
		INSERT INTO transactions (transaction_id, member_id, user_id, transaction_type, amount, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, txID, memberID, sess.UserID, string(tt), round2(amount), time.Now())
	if err != nil {
		return "", classifyQuery(err)
	}
	return txID, nil
}

// RecordExpense writes an expense: a negative-amount ledger row plus
// its expenses detail row, in one transaction.
func (s *Store) RecordExpense(ctx context.Context, sess Session, amount float64, expenseType, comments string) (string, error) {
	txID := NewGroupID()
	err := pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO transactions (transaction_id, member_id, user_id, transaction_type, amount, transaction_date)
			VALUES ($1, NULL, $2, $3, $4, $5)
		`, txID, sess.UserID, string(TypeExpense), -math.Abs(round2(amount)), time.Now())
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO expenses (transaction_id, expense_type, comments)
			VALUES ($1, $2, $3)
		`, txID, expenseType, comments)
		return err
	})
	if err != nil {
		return "", classifyQuery(err)
	}
	return txID, nil
}

// AuthenticateUser verifies a credential pair against the users table.
func (s *Store) AuthenticateUser(ctx context.Context, username, password string) (User, error) {
	var u User
	err := s.conn.QueryRow(ctx, `
		SELECT user_id, username, password_hash, full_name, role
		FROM users WHERE username = $1
	`, username).Scan(&u.UserID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, classifyQuery(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// CreateUser provisions an operator account with a bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, username, password, fullName, role string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	var id int64
	err = s.conn.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id
	`, username, string(hash), fullName, role).Scan(&id)
	if err != nil {
		return 0, classifyQuery(err)
	}
	return id, nil
}

// PaidMonths returns the 1-12 month numbers already paid by a member in
// a given year. An empty slice is a valid result, not an error.
func (s *Store) PaidMonths(ctx context.Context, memberID int64, year int) ([]int, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT EXTRACT(MONTH FROM payment_month)::int
		FROM membership
		WHERE member_id = $1 AND payment_year = $2
		ORDER BY payment_month
	`, memberID, year)
	if err != nil {
		return nil, classifyQuery(err)
	}
	defer rows.Close()

	var months []int
	for rows.Next() {
		var m int
		if err := rows.Scan(&m); err != nil {
			return nil, classifyQuery(err)
		}
		months = append(months, m)
	}
	return months, classifyQuery(rows.Err())
}

// SearchMemberByCard finds members whose membership card number matches
// the given fragment.
func (s *Store) SearchMemberByCard(ctx context.Context, cardNo string) ([]Member, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT member_id, COALESCE(membership_card_no, ''), first_name, last_name
		FROM members
		WHERE membership_card_no LIKE '%' || $1 || '%'
		ORDER BY member_id
	`, cardNo)
	if err != nil {
		return nil, classifyQuery(err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

// SearchMemberByName finds members whose first or last name contains
// the given fragment, case-insensitively.
func (s *Store) SearchMemberByName(ctx context.Context, name string) ([]Member, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT member_id, COALESCE(membership_card_no, ''), first_name, last_name
		FROM members
		WHERE first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%'
		ORDER BY member_id
	`, name)
	if err != nil {
		return nil, classifyQuery(err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

// MemberByID fetches a single member; found=false (not an error) when
// the id does not exist.
func (s *Store) MemberByID(ctx context.Context, memberID int64) (Member, bool, error) {
	var m Member
	err := s.conn.QueryRow(ctx, `
		SELECT member_id, COALESCE(membership_card_no, ''), first_name, last_name
		FROM members WHERE member_id = $1
	`, memberID).Scan(&m.MemberID, &m.MembershipCardNo, &m.FirstName, &m.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, false, nil
	}
	if err != nil {
		return Member{}, false, classifyQuery(err)
	}
	return m, true, nil
}

// FetchUsers returns all operator accounts for the user mirror.
func (s *Store) FetchUsers(ctx context.Context) ([]User, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT user_id, username, password_hash, full_name, role
		FROM users ORDER BY user_id
	`)
	if err != nil {
		return nil, classifyQuery(err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role); err != nil {
			return nil, classifyQuery(err)
		}
		users = append(users, u)
	}
	return users, classifyQuery(rows.Err())
}

// FetchActiveMembers returns active members for the member mirror.
func (s *Store) FetchActiveMembers(ctx context.Context) ([]Member, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT member_id, COALESCE(membership_card_no, ''), first_name, last_name
		FROM members WHERE status = 'active' ORDER BY member_id
	`)
	if err != nil {
		return nil, classifyQuery(err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

// FetchPaidPeriods returns every membership period for the paid-period
// mirror, flattened to (member, year, month number).
func (s *Store) FetchPaidPeriods(ctx context.Context) ([]PaidPeriod, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT member_id, payment_year, EXTRACT(MONTH FROM payment_month)::int
		FROM membership ORDER BY member_id, payment_year, payment_month
	`)
	if err != nil {
		return nil, classifyQuery(err)
	}
	defer rows.Close()

	var periods []PaidPeriod
	for rows.Next() {
		var p PaidPeriod
		if err := rows.Scan(&p.MemberID, &p.PaymentYear, &p.Month); err != nil {
			return nil, classifyQuery(err)
		}
		periods = append(periods, p)
	}
	return periods, classifyQuery(rows.Err())
}

func scanMembers(rows pgx.Rows) ([]Member, error) {
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.MemberID, &m.MembershipCardNo, &m.FirstName, &m.LastName); err != nil {
			return nil, classifyQuery(err)
		}
		members = append(members, m)
	}
	return members, classifyQuery(rows.Err())
}
