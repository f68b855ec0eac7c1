// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsqlite

import (
	"context"
	"time"
)

// StartAutoSync runs DrainPending on a timer in a background goroutine
// until ctx is cancelled. A pass that has started runs to completion;
// cancellation is only observed between passes. Drain errors (local
// store failures) back off exponentially up to BackoffMax instead of
// hammering a broken disk.
func (c *Client) StartAutoSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.config.SyncInterval
	}

	go func() {
		c.setStatus("Auto-sync active. Monitoring...")
		wait := interval
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			if _, err := c.DrainPending(ctx); err != nil {
				c.logger.Error("auto-sync drain failed", "error", err)
				wait *= 2
				if wait > c.config.BackoffMax {
					wait = c.config.BackoffMax
				}
				continue
			}
			wait = interval
		}
	}()
}
