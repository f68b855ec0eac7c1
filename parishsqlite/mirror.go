// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsqlite

import (
	"context"

	"github.com/mobiletoly/go-parishsync/parishsync"
)

// MirrorOutcome reports one mirror refresh.
type MirrorOutcome struct {
	Skipped     bool // primary store unreachable, mirrors left as-is
	Users       int
	Members     int
	PaidPeriods int
}

// RefreshMirrors pulls the reference data needed for offline operation
// (operators, active members, paid periods) and replaces the local
// mirror tables with it. Each run is a full pull-and-replace, so
// refreshing twice with no remote changes is a no-op.
//
// Best effort: a primary-store failure leaves the mirrors stale and
// reports Skipped rather than failing the caller — stale mirrors are an
// acceptable degradation. Only a local-store failure returns an error.
func (c *Client) RefreshMirrors(ctx context.Context) (MirrorOutcome, error) {
	if err := c.ensureSchema(); err != nil {
		return MirrorOutcome{}, err
	}

	c.setStatus("Refreshing offline mirrors...")
	remote, err := c.remote.Session(ctx)
	if err != nil {
		return c.skipMirrors(err), nil
	}
	defer remote.Close()

	users, err := remote.FetchUsers(ctx)
	if err != nil {
		return c.skipMirrors(err), nil
	}
	members, err := remote.FetchActiveMembers(ctx)
	if err != nil {
		return c.skipMirrors(err), nil
	}
	periods, err := remote.FetchPaidPeriods(ctx)
	if err != nil {
		return c.skipMirrors(err), nil
	}

	if err := c.replaceMirrors(users, members, periods); err != nil {
		return MirrorOutcome{}, err
	}

	outcome := MirrorOutcome{Users: len(users), Members: len(members), PaidPeriods: len(periods)}
	c.setStatus("Mirrors refreshed: %d user(s), %d member(s), %d paid period(s).",
		outcome.Users, outcome.Members, outcome.PaidPeriods)
	return outcome, nil
}

func (c *Client) skipMirrors(err error) MirrorOutcome {
	c.logger.Warn("mirror refresh skipped", "error", err)
	c.setStatus("Offline: mirror refresh skipped.")
	return MirrorOutcome{Skipped: true}
}

// replaceMirrors swaps all three mirror tables in one short local
// transaction so offline readers never observe a half-refreshed state.
func (c *Client) replaceMirrors(users []parishsync.User, members []parishsync.Member, periods []parishsync.PaidPeriod) error {
	tx, err := c.DB.Begin()
	if err != nil {
		return localErr("begin mirror replace", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM local_users`,
		`DELETE FROM local_members`,
		`DELETE FROM local_paid_periods`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return localErr("clear mirror", err)
		}
	}

	for _, u := range users {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO local_users (user_id, username, password_hash, full_name, role)
			VALUES (?, ?, ?, ?, ?)
		`, u.UserID, u.Username, u.PasswordHash, u.FullName, u.Role)
		if err != nil {
			return localErr("mirror user", err)
		}
	}
	for _, m := range members {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO local_members (member_id, membership_card_no, first_name, last_name)
			VALUES (?, ?, ?, ?)
		`, m.MemberID, m.MembershipCardNo, m.FirstName, m.LastName)
		if err != nil {
			return localErr("mirror member", err)
		}
	}
	for _, p := range periods {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO local_paid_periods (member_id, payment_year, payment_month)
			VALUES (?, ?, ?)
		`, p.MemberID, p.PaymentYear, p.Month)
		if err != nil {
			return localErr("mirror paid period", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return localErr("commit mirror replace", err)
	}
	return nil
}
