// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error taxonomy for the offline-fallback subsystem. Every fallback
// branch is gated on ErrUnavailable and nothing else; a query bug must
// never be reclassified as an outage, and an outage must never surface
// as a query bug.
var (
	// ErrUnavailable marks a network/transport failure reaching the
	// primary store. Writes that observe it are queued locally; reads
	// fall back to the mirror tables.
	ErrUnavailable = errors.New("primary store unreachable")

	// ErrRemoteQuery marks a statement that failed after the primary
	// store was reached (constraint violation, bad SQL, etc.). Never
	// queued — replaying a malformed write would just fail again.
	ErrRemoteQuery = errors.New("primary store query failed")

	// ErrConfig marks missing or unparseable primary-store
	// configuration. Fatal for the operation, never queued.
	ErrConfig = errors.New("primary store configuration invalid")
)

// IsUnavailable reports whether err should route the caller onto the
// offline fallback path.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// classifyConnect wraps an error from the dial/ping phase. Anything
// that goes wrong while establishing a session is an outage from the
// caller's point of view, except config parse failures which are
// wrapped by the provider before reaching here.
func classifyConnect(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// classifyQuery wraps an error from an executed statement. The session
// was established at this point, so only connection-loss SQLSTATEs and
// transport-level failures count as an outage.
func classifyQuery(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRemoteQuery) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if isConnectionSQLState(pgErr.SQLState()) {
			return fmt.Errorf("%w: %s", ErrUnavailable, pgErr.Message)
		}
		return fmt.Errorf("%w: %s (SQLSTATE %s)", ErrRemoteQuery, pgErr.Message, pgErr.SQLState())
	}
	if isTransportError(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrRemoteQuery, err)
}

func isConnectionSQLState(state string) bool {
	// Class 08 = connection exceptions, 57P01..57P03 = server
	// shutdown/crash/cannot-connect-now.
	if strings.HasPrefix(state, "08") {
		return true
	}
	switch state {
	case "57P01", "57P02", "57P03":
		return true
	}
	return false
}

func isTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, net.ErrClosed)
}
