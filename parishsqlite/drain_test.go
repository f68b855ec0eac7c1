// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mobiletoly/go-parishsync/parishsync"
)

func enqueueOffline(t *testing.T, client *Client, remote *fakeRemote, memberID int64, months []string, total float64) PendingPayment {
	t.Helper()

	wasUnavailable := remote.unavailable
	remote.unavailable = true
	result, err := client.AddMembershipPayment(context.Background(), testSession, memberID, months, 2025, total)
	require.NoError(t, err)
	require.True(t, result.Queued)
	remote.unavailable = wasUnavailable

	pending, err := client.PendingPayments()
	require.NoError(t, err)
	return pending[len(pending)-1]
}

func TestDrainShortCircuitsWhenUnreachable(t *testing.T) {
	remote := &fakeRemote{session: newFakeSession()}
	client := newTestClient(t, remote)
	client.probe = func() bool { return false }

	enqueueOffline(t, client, remote, 1, []string{"January"}, 100)
	remote.sessionCount = 0

	result, err := client.DrainPending(context.Background())
	require.NoError(t, err)
	require.True(t, result.Postponed)
	require.Zero(t, remote.sessionCount, "no remote-store calls when the probe says offline")
	require.Equal(t, 1, queueCount(t, client), "queue left untouched")
	require.Contains(t, client.Status().Current(), "postponed")
}

func TestDrainEmptiesQueueOnSuccess(t *testing.T) {
	remote := &fakeRemote{session: newFakeSession()}
	client := newTestClient(t, remote)

	enqueueOffline(t, client, remote, 1, []string{"January", "February"}, 1000)
	enqueueOffline(t, client, remote, 2, []string{"March"}, 500)
	enqueueOffline(t, client, remote, 3, []string{"April", "May", "June"}, 900)

	result, err := client.DrainPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, result.Synced)
	require.Zero(t, result.Failed)
	require.Zero(t, queueCount(t, client))

	// One ledger row per queued month, across all groups.
	require.Len(t, remote.session.ledger, 6)
	require.Equal(t, "Sync complete: 3 uploaded, 0 failed.", result.Message)
	require.Equal(t, 1, remote.sessionCount, "one remote session for the whole pass")
}

func TestDrainReplaysOldestFirst(t *testing.T) {
	remote := &fakeRemote{session: newFakeSession()}
	client := newTestClient(t, remote)

	first := enqueueOffline(t, client, remote, 1, []string{"January"}, 100)
	second := enqueueOffline(t, client, remote, 2, []string{"February"}, 100)

	_, err := client.DrainPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{first.GroupID, second.GroupID}, remote.session.appliedGroups)
}

func TestDrainPartialFailureKeepsFailedItemQueued(t *testing.T) {
	remote := &fakeRemote{session: newFakeSession()}
	client := newTestClient(t, remote)

	ok := enqueueOffline(t, client, remote, 1, []string{"January"}, 100)
	bad := enqueueOffline(t, client, remote, 2, []string{"February"}, 100)
	remote.session.failGroups[bad.GroupID] = fmt.Errorf("%w: duplicate key value", parishsync.ErrRemoteQuery)

	result, err := client.DrainPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Synced)
	require.Equal(t, 1, result.Failed)

	pending, err := client.PendingPayments()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, bad.GroupID, pending[0].GroupID)
	require.NotContains(t, remote.session.appliedGroups, bad.GroupID)
	_ = ok

	// Failure cleared, the leftover item drains on the next pass.
	delete(remote.session.failGroups, bad.GroupID)
	result, err = client.DrainPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Synced)
	require.Zero(t, queueCount(t, client))
}

func TestDrainRetryAfterCrashDoesNotDuplicate(t *testing.T) {
	remote := &fakeRemote{session: newFakeSession()}
	client := newTestClient(t, remote)

	item := enqueueOffline(t, client, remote, 1, []string{"January", "February"}, 1000)

	// Simulate the crash window: the remote commit landed but the
	// process died before the local queue row was deleted.
	_, err := remote.session.ApplyPaymentGroup(context.Background(), item.Group())
	require.NoError(t, err)
	require.Len(t, remote.session.ledger, 2)
	require.Equal(t, 1, queueCount(t, client))

	// The next pass replays the same group; derived ids collide with
	// the committed rows and the replay is a no-op.
	result, err := client.DrainPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Synced)
	require.Len(t, remote.session.ledger, 2, "exactly one ledger row per month, ever")
	require.Zero(t, queueCount(t, client))
}

func TestDrainConnectionLossMidPassPostponesRemainder(t *testing.T) {
	remote := &fakeRemote{session: newFakeSession()}
	client := newTestClient(t, remote)

	enqueueOffline(t, client, remote, 1, []string{"January"}, 100)
	dead := enqueueOffline(t, client, remote, 2, []string{"February"}, 100)
	last := enqueueOffline(t, client, remote, 3, []string{"March"}, 100)
	remote.session.failGroups[dead.GroupID] = fmt.Errorf("%w: unexpected EOF", parishsync.ErrUnavailable)

	result, err := client.DrainPending(context.Background())
	require.NoError(t, err)
	require.True(t, result.Postponed)
	require.Equal(t, 1, result.Synced)
	require.Zero(t, result.Failed, "an outage is not an item failure")

	// Items at and after the connection loss stay queued untouched.
	require.Equal(t, 2, queueCount(t, client))
	require.NotContains(t, remote.session.appliedGroups, dead.GroupID)
	require.NotContains(t, remote.session.appliedGroups, last.GroupID)

	// Connection back: the next pass drains the remainder.
	delete(remote.session.failGroups, dead.GroupID)
	result, err = client.DrainPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Synced)
	require.Zero(t, queueCount(t, client))
}

func TestDrainPostponesWhenSessionOpenFails(t *testing.T) {
	remote := &fakeRemote{session: newFakeSession()}
	client := newTestClient(t, remote)

	enqueueOffline(t, client, remote, 1, []string{"January"}, 100)
	remote.unavailable = true

	// Probe says yes, provider says no: provider wins, pass postponed.
	result, err := client.DrainPending(context.Background())
	require.NoError(t, err)
	require.True(t, result.Postponed)
	require.Equal(t, 1, queueCount(t, client))
}

func TestDrainEmptyQueueReportsNothingPending(t *testing.T) {
	remote := &fakeRemote{session: newFakeSession()}
	client := newTestClient(t, remote)

	result, err := client.DrainPending(context.Background())
	require.NoError(t, err)
	require.False(t, result.Postponed)
	require.Zero(t, result.Synced)
	require.Zero(t, remote.sessionCount, "no session opened for an empty queue")
	require.Contains(t, result.Message, "No pending offline records")
}

func TestDrainKeepSyncedRowsForAudit(t *testing.T) {
	remote := &fakeRemote{session: newFakeSession()}
	client := newTestClient(t, remote)
	client.config.KeepSyncedRows = true

	enqueueOffline(t, client, remote, 1, []string{"January"}, 100)

	result, err := client.DrainPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Synced)
	require.Zero(t, queueCount(t, client), "synced rows leave the active queue")

	var kept int
	require.NoError(t, client.DB.QueryRow(
		`SELECT COUNT(*) FROM pending_membership_payments WHERE synced = 1`).Scan(&kept))
	require.Equal(t, 1, kept)

	// A second pass has nothing to replay.
	result, err = client.DrainPending(context.Background())
	require.NoError(t, err)
	require.Zero(t, result.Synced)
}
