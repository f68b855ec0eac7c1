// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsqlite

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/mobiletoly/go-parishsync/parishsync"
)

// LoginResult carries the outcome of an authentication attempt.
type LoginResult struct {
	Session parishsync.Session
	Token   string // signed session token for the rest of the app
	Cached  bool   // true when verified against the local mirror
}

// Login authenticates an operator. Online it checks the users table and
// then refreshes the offline mirrors while the connection is known
// good; when the primary store is unreachable it falls back to the
// point-in-time local_users mirror. Either way a signed session token
// is issued for the write paths.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var user parishsync.User
	var cached bool

	err := c.tryPrimary(ctx,
		func(remote RemoteSession) error {
			u, err := remote.AuthenticateUser(ctx, username, password)
			if err != nil {
				return err
			}
			user = u
			return nil
		},
		func() error {
			c.setStatus("Offline: checking cached credentials.")
			u, err := c.cachedUser(username)
			if err != nil {
				return err
			}
			if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
				return parishsync.ErrInvalidCredentials
			}
			user = *u
			cached = true
			return nil
		})
	if err != nil {
		return LoginResult{}, err
	}

	if !cached {
		// Freshly verified connection: best moment to refresh mirrors.
		if _, err := c.RefreshMirrors(ctx); err != nil {
			c.logger.Warn("mirror refresh after login failed", "error", err)
		}
	}

	sess := parishsync.Session{UserID: user.UserID, Username: user.Username, Role: user.Role}
	token, err := c.auth.IssueToken(user, c.config.SessionExpiry)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Session: sess, Token: token, Cached: cached}, nil
}

// PaidMonths returns the 1-12 month numbers already paid by a member in
// a year. Online it asks the primary store; offline it reads the
// local_paid_periods mirror only. Queued payments are deliberately
// excluded — the queue is not the mirror; use PendingMonths for the
// duplicate-month guard.
func (c *Client) PaidMonths(ctx context.Context, memberID int64, year int) ([]int, error) {
	var months []int
	err := c.tryPrimary(ctx,
		func(remote RemoteSession) error {
			m, err := remote.PaidMonths(ctx, memberID, year)
			if err != nil {
				return err
			}
			months = m
			return nil
		},
		func() error {
			m, err := c.mirrorPaidMonths(memberID, year)
			if err != nil {
				return err
			}
			months = m
			return nil
		})
	if err != nil {
		return nil, err
	}
	return months, nil
}

// FindMemberByCard looks a member up by card number, falling back to
// the local_members mirror when offline. An empty result is valid.
func (c *Client) FindMemberByCard(ctx context.Context, cardNo string) ([]parishsync.Member, error) {
	var members []parishsync.Member
	err := c.tryPrimary(ctx,
		func(remote RemoteSession) error {
			m, err := remote.SearchMemberByCard(ctx, cardNo)
			if err != nil {
				return err
			}
			members = m
			return nil
		},
		func() error {
			c.setStatus("Offline: searching cached members.")
			m, err := c.mirrorMembersByCard(cardNo)
			if err != nil {
				return err
			}
			members = m
			return nil
		})
	if err != nil {
		return nil, err
	}
	return members, nil
}

// FindMemberByName looks members up by first or last name, falling back
// to the local_members mirror when offline.
func (c *Client) FindMemberByName(ctx context.Context, name string) ([]parishsync.Member, error) {
	var members []parishsync.Member
	err := c.tryPrimary(ctx,
		func(remote RemoteSession) error {
			m, err := remote.SearchMemberByName(ctx, name)
			if err != nil {
				return err
			}
			members = m
			return nil
		},
		func() error {
			c.setStatus("Offline: searching cached members.")
			m, err := c.mirrorMembersByName(name)
			if err != nil {
				return err
			}
			members = m
			return nil
		})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (c *Client) cachedUser(username string) (*parishsync.User, error) {
	var u parishsync.User
	err := c.DB.QueryRow(`
		SELECT user_id, username, password_hash, full_name, role
		FROM local_users WHERE username = ?
	`, username).Scan(&u.UserID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, localErr("cached user lookup", err)
	}
	return &u, nil
}

func (c *Client) mirrorPaidMonths(memberID int64, year int) ([]int, error) {
	rows, err := c.DB.Query(`
		SELECT payment_month FROM local_paid_periods
		WHERE member_id = ? AND payment_year = ?
		ORDER BY payment_month
	`, memberID, year)
	if err != nil {
		return nil, localErr("mirror paid months", err)
	}
	defer rows.Close()

	var months []int
	for rows.Next() {
		var m int
		if err := rows.Scan(&m); err != nil {
			return nil, localErr("scan mirror paid month", err)
		}
		months = append(months, m)
	}
	if err := rows.Err(); err != nil {
		return nil, localErr("mirror paid months", err)
	}
	return months, nil
}

func (c *Client) mirrorMembersByCard(cardNo string) ([]parishsync.Member, error) {
	return c.mirrorMemberQuery(`
		SELECT member_id, membership_card_no, first_name, last_name
		FROM local_members
		WHERE membership_card_no LIKE '%' || ? || '%'
		ORDER BY member_id
	`, cardNo)
}

func (c *Client) mirrorMembersByName(name string) ([]parishsync.Member, error) {
	// SQLite LIKE is case-insensitive for ASCII, matching ILIKE on the
	// primary store closely enough for office name lookups.
	return c.mirrorMemberQuery(`
		SELECT member_id, membership_card_no, first_name, last_name
		FROM local_members
		WHERE first_name LIKE '%' || ?1 || '%' OR last_name LIKE '%' || ?1 || '%'
		ORDER BY member_id
	`, name)
}

func (c *Client) mirrorMemberQuery(query string, arg any) ([]parishsync.Member, error) {
	rows, err := c.DB.Query(query, arg)
	if err != nil {
		return nil, localErr("mirror member search", err)
	}
	defer rows.Close()

	var members []parishsync.Member
	for rows.Next() {
		var m parishsync.Member
		if err := rows.Scan(&m.MemberID, &m.MembershipCardNo, &m.FirstName, &m.LastName); err != nil {
			return nil, localErr("scan mirror member", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, localErr("mirror member search", err)
	}
	return members, nil
}
