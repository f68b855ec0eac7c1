// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTransactionIDForMonthIsDeterministic(t *testing.T) {
	groupID := NewGroupID()

	first := TransactionIDForMonth(groupID, 0)
	again := TransactionIDForMonth(groupID, 0)
	require.Equal(t, first, again, "same group and index must derive the same id across retries")

	_, err := uuid.Parse(first)
	require.NoError(t, err)
}

func TestTransactionIDForMonthVariesByIndexAndGroup(t *testing.T) {
	groupID := NewGroupID()

	require.NotEqual(t, TransactionIDForMonth(groupID, 0), TransactionIDForMonth(groupID, 1))
	require.NotEqual(t, TransactionIDForMonth(groupID, 0), TransactionIDForMonth(NewGroupID(), 0))
}
