// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarizeTransactions(t *testing.T) {
	rows := []ReportRow{
		{Type: TypeMembership, Amount: 500},
		{Type: TypeTithe, Amount: 250.50},
		{Type: TypeExpense, Amount: -120.25},
		{Type: TypeExpense, Amount: -30},
	}

	sum := SummarizeTransactions(rows)
	require.InDelta(t, 750.50, sum.Income, 0.0001)
	require.InDelta(t, 150.25, sum.Expense, 0.0001, "expenses report as absolute values")
	require.InDelta(t, 600.25, sum.Net, 0.0001)
}

func TestSummarizeTransactionsEmpty(t *testing.T) {
	sum := SummarizeTransactions(nil)
	require.Zero(t, sum.Income)
	require.Zero(t, sum.Expense)
	require.Zero(t, sum.Net)
}
