// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mobiletoly/go-parishsync/parishsync"
)

// fakeRemote stands in for the connection provider. Flipping
// unavailable simulates an outage; sessionCount proves whether drain
// touched the primary store at all.
type fakeRemote struct {
	unavailable  bool
	session      *fakeSession
	sessionCount int
}

func (f *fakeRemote) Session(ctx context.Context) (RemoteSession, error) {
	if f.unavailable {
		return nil, fmt.Errorf("%w: dial tcp: connection refused", parishsync.ErrUnavailable)
	}
	f.sessionCount++
	return f.session, nil
}

// fakeSession mimics the primary store. The ledger map keys on
// transaction id and keeps the first write per id, which reproduces the
// ON CONFLICT (transaction_id) DO NOTHING semantics of the real ledger
// inserts that the drain's idempotence relies on.
type fakeSession struct {
	users   []parishsync.User
	members []parishsync.Member
	periods []parishsync.PaidPeriod

	ledger        map[string]parishsync.PaymentGroup // transaction id -> owning group
	appliedGroups []string                           // group ids in apply order
	failGroups    map[string]error                   // group id -> forced failure
	failAll       error                              // forced failure for every group
	closeCount    int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		ledger:     map[string]parishsync.PaymentGroup{},
		failGroups: map[string]error{},
	}
}

func (s *fakeSession) ApplyPaymentGroup(ctx context.Context, g parishsync.PaymentGroup) ([]string, error) {
	if s.failAll != nil {
		return nil, s.failAll
	}
	if err := s.failGroups[g.GroupID]; err != nil {
		return nil, err
	}
	s.appliedGroups = append(s.appliedGroups, g.GroupID)

	ids := make([]string, 0, len(g.Months))
	for i := range g.Months {
		id := parishsync.TransactionIDForMonth(g.GroupID, i)
		if _, exists := s.ledger[id]; !exists {
			s.ledger[id] = g
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeSession) RecordTransaction(ctx context.Context, sess parishsync.Session, memberID *int64, tt parishsync.TransactionType, amount float64) (string, error) {
	id := parishsync.NewGroupID()
	s.ledger[id] = parishsync.PaymentGroup{GroupID: id, UserID: sess.UserID, Total: amount}
	return id, nil
}

func (s *fakeSession) RecordExpense(ctx context.Context, sess parishsync.Session, amount float64, expenseType, comments string) (string, error) {
	return s.RecordTransaction(ctx, sess, nil, parishsync.TypeExpense, -amount)
}

func (s *fakeSession) AuthenticateUser(ctx context.Context, username, password string) (parishsync.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
				return parishsync.User{}, parishsync.ErrInvalidCredentials
			}
			return u, nil
		}
	}
	return parishsync.User{}, parishsync.ErrInvalidCredentials
}

func (s *fakeSession) PaidMonths(ctx context.Context, memberID int64, year int) ([]int, error) {
	var months []int
	for _, p := range s.periods {
		if p.MemberID == memberID && p.PaymentYear == year {
			months = append(months, p.Month)
		}
	}
	return months, nil
}

func (s *fakeSession) SearchMemberByCard(ctx context.Context, cardNo string) ([]parishsync.Member, error) {
	var found []parishsync.Member
	for _, m := range s.members {
		if m.MembershipCardNo == cardNo {
			found = append(found, m)
		}
	}
	return found, nil
}

func (s *fakeSession) SearchMemberByName(ctx context.Context, name string) ([]parishsync.Member, error) {
	needle := strings.ToLower(name)
	var found []parishsync.Member
	for _, m := range s.members {
		if strings.Contains(strings.ToLower(m.FirstName), needle) ||
			strings.Contains(strings.ToLower(m.LastName), needle) {
			found = append(found, m)
		}
	}
	return found, nil
}

func (s *fakeSession) FetchUsers(ctx context.Context) ([]parishsync.User, error) {
	return s.users, nil
}

func (s *fakeSession) FetchActiveMembers(ctx context.Context) ([]parishsync.Member, error) {
	return s.members, nil
}

func (s *fakeSession) FetchPaidPeriods(ctx context.Context) ([]parishsync.PaidPeriod, error) {
	return s.periods, nil
}

func (s *fakeSession) Close() { s.closeCount++ }

func newTestClient(t *testing.T, remote Remote) *Client {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every pooled connection to ":memory:" gets its own empty database;
	// pin the pool to one connection so the background drain goroutine
	// sees the schema created here.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	cfg := DefaultConfig()
	cfg.Probe = func() bool { return true }

	client, err := NewClient(db, remote, parishsync.NewSessionAuth("test-secret"), cfg, nil)
	require.NoError(t, err)
	return client
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func queueCount(t *testing.T, c *Client) int {
	t.Helper()
	var n int
	require.NoError(t, c.DB.QueryRow(`SELECT COUNT(*) FROM pending_membership_payments WHERE synced = 0`).Scan(&n))
	return n
}

var testSession = parishsync.Session{UserID: 3, Username: "clerk", Role: "staff"}
