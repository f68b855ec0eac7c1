// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsqlite

import (
	"net"
	"time"
)

// Prober answers "is the network up at all" with one cheap TCP dial to
// a well-known endpoint, independent of primary-store credentials and
// schema. Advisory only: it gates whether a drain attempt is worth the
// cost, but the connection provider's own classification stays
// authoritative for whether a given write succeeds.
type Prober struct {
	Addr    string        // e.g. "8.8.8.8:53"
	Timeout time.Duration // short and fixed; may run on the UI thread
}

// Reachable reports whether the probe endpoint accepted a connection.
func (p *Prober) Reachable() bool {
	conn, err := net.DialTimeout("tcp", p.Addr, p.Timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
