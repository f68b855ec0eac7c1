// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsqlite

import (
	"context"
	"fmt"

	"github.com/mobiletoly/go-parishsync/internal/auth"
	"github.com/mobiletoly/go-parishsync/parishsync"
)

// PaymentResult is what a GUI caller gets back from a payment entry
// point: real transaction ids when the write went straight to the
// primary store, or a synthetic offline reference when it was queued.
// Both are opaque display strings for the receipt.
type PaymentResult struct {
	Queued         bool
	Reference      string   // synthetic "OFFLINE-…" ref, set when queued
	TransactionIDs []string // real ledger ids, set when online
}

// DisplayRef returns the string to print on the receipt.
func (r PaymentResult) DisplayRef() string {
	if r.Queued {
		return r.Reference
	}
	if len(r.TransactionIDs) > 0 {
		return r.TransactionIDs[0]
	}
	return ""
}

// tryPrimary is the one place the try-online/fallback contract lives:
// attempt the primary store; ErrUnavailable is caught exactly once and
// converted into the supplied fallback; every other error propagates to
// the caller unmodified.
func (c *Client) tryPrimary(ctx context.Context, attempt func(RemoteSession) error, fallback func() error) error {
	remote, err := c.remote.Session(ctx)
	if err != nil {
		if parishsync.IsUnavailable(err) {
			return fallback()
		}
		return err
	}
	defer remote.Close()

	if err := attempt(remote); err != nil {
		if parishsync.IsUnavailable(err) {
			return fallback()
		}
		return err
	}
	return nil
}

// AddMembershipPayment records a membership payment covering the given
// months. Online it commits directly to the primary store and returns
// the ledger transaction ids; when the primary store is unreachable it
// queues the payment locally and returns a synthetic reference so the
// caller can still print a receipt.
//
// The caller has already validated that months is non-empty and that
// total divides evenly across them.
func (c *Client) AddMembershipPayment(ctx context.Context, sess parishsync.Session, memberID int64, months []string, year int, total float64) (PaymentResult, error) {
	if len(months) == 0 {
		return PaymentResult{}, fmt.Errorf("%w: no months given", parishsync.ErrRemoteQuery)
	}

	group := parishsync.PaymentGroup{
		GroupID:  parishsync.NewGroupID(),
		MemberID: memberID,
		UserID:   sess.UserID,
		Year:     year,
		Months:   months,
		Total:    total,
	}

	var result PaymentResult
	err := c.tryPrimary(ctx,
		func(remote RemoteSession) error {
			ids, err := remote.ApplyPaymentGroup(ctx, group)
			if err != nil {
				return err
			}
			result = PaymentResult{TransactionIDs: ids}
			c.setStatus("Recorded %d month(s) online for member %d.", len(months), memberID)
			return nil
		},
		func() error {
			// Same group id goes into the queue, so the eventual drain
			// derives the same transaction ids this write would have.
			ref, err := c.enqueuePayment(group)
			if err != nil {
				return err
			}
			result = PaymentResult{Queued: true, Reference: ref}
			return nil
		})
	if err != nil {
		return PaymentResult{}, err
	}

	if !result.Queued {
		// Keep mirrors fresh before the next possible outage.
		if _, err := c.RefreshMirrors(ctx); err != nil {
			c.logger.Warn("mirror refresh after payment failed", "error", err)
		}
	}
	return result, nil
}

// AddMembershipPaymentFromContext is a convenience for callers that
// carry the operator session in the request context instead of passing
// it explicitly.
func (c *Client) AddMembershipPaymentFromContext(ctx context.Context, memberID int64, months []string, year int, total float64) (PaymentResult, error) {
	sess, ok := auth.GetSession(ctx)
	if !ok {
		return PaymentResult{}, fmt.Errorf("no operator session in context")
	}
	return c.AddMembershipPayment(ctx, sess, memberID, months, year, total)
}

// RecordSimplePayment records a single-row ledger entry (tithe,
// donation, parking, thanksgiving, bag offering). These are online-only
// in the office workflow: any failure, including an outage, propagates
// to the caller.
func (c *Client) RecordSimplePayment(ctx context.Context, sess parishsync.Session, memberID *int64, tt parishsync.TransactionType, amount float64) (string, error) {
	remote, err := c.remote.Session(ctx)
	if err != nil {
		return "", err
	}
	defer remote.Close()
	return remote.RecordTransaction(ctx, sess, memberID, tt, amount)
}

// RecordExpense records an expense (negative ledger amount plus detail
// row). Online-only, like the other non-membership writes.
func (c *Client) RecordExpense(ctx context.Context, sess parishsync.Session, amount float64, expenseType, comments string) (string, error) {
	remote, err := c.remote.Session(ctx)
	if err != nil {
		return "", err
	}
	defer remote.Close()
	return remote.RecordExpense(ctx, sess, amount, expenseType, comments)
}
