// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPerMonthRecomputesWithRemoteRounding(t *testing.T) {
	g := PaymentGroup{Total: 1000, Months: []string{"January", "February", "March"}}
	require.InDelta(t, 333.33, g.PerMonth(), 0.0001)

	g = PaymentGroup{Total: 500, Months: []string{"March"}}
	require.InDelta(t, 500.0, g.PerMonth(), 0.0001)

	require.Zero(t, PaymentGroup{Total: 500}.PerMonth())
}

func TestMonthNumber(t *testing.T) {
	m, err := MonthNumber("January")
	require.NoError(t, err)
	require.Equal(t, time.January, m)

	m, err = MonthNumber("December")
	require.NoError(t, err)
	require.Equal(t, time.December, m)

	_, err = MonthNumber("Janvier")
	require.Error(t, err)
}
