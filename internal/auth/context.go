// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"

	"github.com/mobiletoly/go-parishsync/parishsync"
)

type contextKey string

const sessionKey contextKey = "operator_session"

// SetSession stores the operator session in the context.
func SetSession(ctx context.Context, sess parishsync.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// GetSession retrieves the operator session from the context.
func GetSession(ctx context.Context) (parishsync.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(parishsync.Session)
	return sess, ok
}
