// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/mobiletoly/go-parishsync/parishsync"
)

// PendingPayment is one queued membership payment awaiting drain.
type PendingPayment struct {
	LocalID        int64
	MemberID       int64
	UserID         int64
	Year           int
	Months         []string
	TotalAmount    float64
	AmountPerMonth float64
	CreatedAt      time.Time
	GroupID        string // transaction_uuid, the idempotence token
}

// Group converts a queued row into the payment group replayed remotely.
// The per-month amount is recomputed from the total at apply time; the
// stored amount_per_month only documents what the offline receipt
// promised.
func (p PendingPayment) Group() parishsync.PaymentGroup {
	return parishsync.PaymentGroup{
		GroupID:  p.GroupID,
		MemberID: p.MemberID,
		UserID:   p.UserID,
		Year:     p.Year,
		Months:   p.Months,
		Total:    p.TotalAmount,
	}
}

// SyntheticRef returns the display reference shown on offline receipts
// in place of a real transaction id, e.g. "OFFLINE-ab12cd34". Callers
// treat it as an opaque string.
func SyntheticRef(groupID string) string {
	short := strings.ReplaceAll(groupID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return "OFFLINE-" + short
}

// enqueuePayment persists one payment group in the local queue and
// returns its synthetic reference. Never attempts a remote connection —
// this is the fallback path, entered only after the caller observed
// ErrUnavailable. Precondition (validated by the caller): months is
// non-empty and the total divides evenly across them.
func (c *Client) enqueuePayment(g parishsync.PaymentGroup) (string, error) {
	if err := c.ensureSchema(); err != nil {
		return "", err
	}

	_, err := c.DB.Exec(`
		INSERT INTO pending_membership_payments
			(member_id, user_id, year, months, total_amount, amount_per_month, created_at, transaction_uuid, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, g.MemberID, g.UserID, g.Year, strings.Join(g.Months, ","),
		g.Total, g.PerMonth(), time.Now().Format(time.DateTime), g.GroupID)
	if err != nil {
		return "", localErr("enqueue pending payment", err)
	}

	ref := SyntheticRef(g.GroupID)
	c.setStatus("Offline: saved %d month(s) locally as %s. Awaiting sync.", len(g.Months), ref)
	return ref, nil
}

// PendingPayments returns the queue oldest-first. FIFO matters: later
// payments may assume earlier ones already landed (duplicate-month
// checks). An empty queue is an empty slice, not an error.
func (c *Client) PendingPayments() ([]PendingPayment, error) {
	rows, err := c.DB.Query(`
		SELECT local_id, member_id, user_id, year, months, total_amount, amount_per_month, created_at, transaction_uuid
		FROM pending_membership_payments
		WHERE synced = 0
		ORDER BY local_id ASC
	`)
	if err != nil {
		return nil, localErr("list pending payments", err)
	}
	defer rows.Close()

	var pending []PendingPayment
	for rows.Next() {
		var p PendingPayment
		var months, createdAt string
		if err := rows.Scan(&p.LocalID, &p.MemberID, &p.UserID, &p.Year, &months,
			&p.TotalAmount, &p.AmountPerMonth, &createdAt, &p.GroupID); err != nil {
			return nil, localErr("scan pending payment", err)
		}
		p.Months = splitMonths(months)
		p.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, localErr("list pending payments", err)
	}
	return pending, nil
}

// resolvePending removes a drained row, or flags it synced when the
// client is configured to keep the queue for audit.
func (c *Client) resolvePending(localID int64) error {
	var err error
	if c.config.KeepSyncedRows {
		_, err = c.DB.Exec(`UPDATE pending_membership_payments SET synced = 1 WHERE local_id = ?`, localID)
	} else {
		_, err = c.DB.Exec(`DELETE FROM pending_membership_payments WHERE local_id = ?`, localID)
	}
	if err != nil {
		return localErr(fmt.Sprintf("resolve pending payment %d", localID), err)
	}
	return nil
}

// PendingMonths returns the 1-12 month numbers sitting in the queue for
// a member and year. Exposed separately from the mirror's PaidMonths so
// the UI's duplicate-month guard can consider both; the queue is not
// the mirror.
func (c *Client) PendingMonths(memberID int64, year int) ([]int, error) {
	rows, err := c.DB.Query(`
		SELECT months FROM pending_membership_payments
		WHERE member_id = ? AND year = ? AND synced = 0
	`, memberID, year)
	if err != nil {
		return nil, localErr("list pending months", err)
	}
	defer rows.Close()

	seen := map[int]bool{}
	var months []int
	for rows.Next() {
		var csv string
		if err := rows.Scan(&csv); err != nil {
			return nil, localErr("scan pending months", err)
		}
		for _, name := range splitMonths(csv) {
			m, err := parishsync.MonthNumber(name)
			if err != nil {
				continue
			}
			if !seen[int(m)] {
				seen[int(m)] = true
				months = append(months, int(m))
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, localErr("list pending months", err)
	}
	return months, nil
}

func splitMonths(csv string) []string {
	var months []string
	for _, part := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			months = append(months, trimmed)
		}
	}
	return months
}
