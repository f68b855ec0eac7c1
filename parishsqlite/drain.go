// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsqlite

import (
	"context"
	"fmt"

	"github.com/mobiletoly/go-parishsync/parishsync"
)

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Postponed bool // probe said the network is down; nothing attempted
	Synced    int
	Failed    int
	Message   string
}

// DrainPending replays every queued payment against the primary store,
// oldest first, on a single remote session for the whole pass.
//
// Each item is handled independently: its remote inserts commit in one
// database transaction, then its queue row is resolved locally, then
// the next item is attempted. A failed item stays queued and does not
// abort the pass; the caller (timer or Sync Now button) retries later.
// Replay is idempotent — transaction ids derive from the queued group
// id, so an item that committed remotely but crashed before the local
// delete re-applies as a no-op on the next pass instead of duplicating.
func (c *Client) DrainPending(ctx context.Context) (DrainResult, error) {
	if !c.probe() {
		c.setStatus("Offline: sync postponed.")
		return DrainResult{Postponed: true, Message: "Offline: sync postponed."}, nil
	}

	if err := c.ensureSchema(); err != nil {
		return DrainResult{}, err
	}
	pending, err := c.PendingPayments()
	if err != nil {
		return DrainResult{}, err
	}
	if len(pending) == 0 {
		c.setStatus("No pending offline records.")
		return DrainResult{Message: "No pending offline records."}, nil
	}

	c.setStatus("Connecting to server...")
	remote, err := c.remote.Session(ctx)
	if err != nil {
		if parishsync.IsUnavailable(err) {
			// The prober is advisory; the provider has the final word.
			c.setStatus("Offline: sync postponed.")
			return DrainResult{Postponed: true, Message: "Offline: sync postponed."}, nil
		}
		return DrainResult{}, err
	}
	defer remote.Close()

	c.setStatus("Uploading %d pending record(s)...", len(pending))

	var result DrainResult
	for _, item := range pending {
		if _, err := remote.ApplyPaymentGroup(ctx, item.Group()); err != nil {
			if parishsync.IsUnavailable(err) {
				// Connection died mid-pass. The rest of the queue cannot
				// succeed on this session; stop and let the next pass
				// pick up where this one left off.
				c.logger.Warn("connection lost mid-drain, postponing remainder",
					"local_id", item.LocalID, "group_id", item.GroupID, "error", err)
				result.Postponed = true
				result.Message = fmt.Sprintf(
					"Sync interrupted: %d uploaded, %d failed, remainder postponed.",
					result.Synced, result.Failed)
				c.setStatus("%s", result.Message)
				return result, nil
			}
			c.logger.Warn("drain failed for queued payment",
				"local_id", item.LocalID, "group_id", item.GroupID, "error", err)
			result.Failed++
			continue
		}
		if err := c.resolvePending(item.LocalID); err != nil {
			// Remote commit landed but the queue row survived. The next
			// pass re-applies the same group id and no-ops remotely.
			c.logger.Warn("drained payment left queued",
				"local_id", item.LocalID, "group_id", item.GroupID, "error", err)
			result.Failed++
			continue
		}
		result.Synced++
	}

	result.Message = fmt.Sprintf("Sync complete: %d uploaded, %d failed.", result.Synced, result.Failed)
	c.setStatus("%s", result.Message)
	return result, nil
}
