// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsync

import (
	"fmt"

	"github.com/google/uuid"
)

// Namespace for deriving replay-stable transaction ids. Randomly
// generated once; must never change, or retried drains would mint new
// ids for already-committed rows.
var transactionIDNamespace = uuid.MustParse("b6a7f2e4-3c1d-4f8a-9e5b-2d7c0a914f66")

// TransactionIDForMonth derives the ledger transaction id for one month
// of a payment group. The id is a pure function of (group id, month
// index), so replaying the same group after a partial failure produces
// the same ids and the primary key on transactions turns the retry into
// an insert-or-ignore no-op.
func TransactionIDForMonth(groupID string, monthIndex int) string {
	name := fmt.Sprintf("%s:%d", groupID, monthIndex)
	return uuid.NewSHA1(transactionIDNamespace, []byte(name)).String()
}

// NewGroupID generates the client-side idempotence token for a payment
// group.
func NewGroupID() string {
	return uuid.New().String()
}
