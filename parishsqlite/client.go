// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package parishsqlite implements the local side of the church ledger
// offline-sync subsystem: an embedded SQLite cache holding read-only
// mirrors of reference data (operators, members, paid periods) and a
// durable queue of membership payments taken while the primary store
// was unreachable, plus the drain that replays them.
package parishsqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mobiletoly/go-parishsync/parishsync"
)

// ErrLocalStore marks an embedded cache file that is unreadable or
// unwritable. This is the bottom of the fallback chain; there is
// nowhere further to fall back to.
var ErrLocalStore = errors.New("local cache store failure")

// Remote produces primary-store sessions. *parishsync.Provider is the
// production implementation; tests substitute fakes.
type Remote interface {
	Session(ctx context.Context) (RemoteSession, error)
}

// RemoteSession is one primary-store session as consumed by the local
// side: payment replay, credential checks, lookups, and mirror pulls.
// *parishsync.Store satisfies it.
type RemoteSession interface {
	ApplyPaymentGroup(ctx context.Context, g parishsync.PaymentGroup) ([]string, error)
	RecordTransaction(ctx context.Context, sess parishsync.Session, memberID *int64, tt parishsync.TransactionType, amount float64) (string, error)
	RecordExpense(ctx context.Context, sess parishsync.Session, amount float64, expenseType, comments string) (string, error)
	AuthenticateUser(ctx context.Context, username, password string) (parishsync.User, error)
	PaidMonths(ctx context.Context, memberID int64, year int) ([]int, error)
	SearchMemberByCard(ctx context.Context, cardNo string) ([]parishsync.Member, error)
	SearchMemberByName(ctx context.Context, name string) ([]parishsync.Member, error)
	FetchUsers(ctx context.Context) ([]parishsync.User, error)
	FetchActiveMembers(ctx context.Context) ([]parishsync.Member, error)
	FetchPaidPeriods(ctx context.Context) ([]parishsync.PaidPeriod, error)
	Close()
}

// NewProviderRemote adapts a *parishsync.Provider to the Remote
// interface consumed by the client.
func NewProviderRemote(p *parishsync.Provider) Remote {
	return providerRemote{p: p}
}

type providerRemote struct {
	p *parishsync.Provider
}

func (r providerRemote) Session(ctx context.Context) (RemoteSession, error) {
	store, err := r.p.Session(ctx)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Config holds local-cache and sync-loop settings.
type Config struct {
	ProbeAddr    string        // reachability probe endpoint
	ProbeTimeout time.Duration // probe dial timeout

	// KeepSyncedRows keeps drained queue rows flagged synced=1 instead
	// of deleting them, for audit.
	KeepSyncedRows bool

	SessionExpiry time.Duration // lifetime of issued session tokens

	SyncInterval time.Duration // auto-sync cadence
	BackoffMax   time.Duration // cap for auto-sync error backoff

	// Probe overrides the reachability check; nil uses a TCP dial to
	// ProbeAddr. Tests stub this.
	Probe func() bool
}

// DefaultConfig returns settings matching the desktop deployment.
func DefaultConfig() *Config {
	return &Config{
		ProbeAddr:     "8.8.8.8:53",
		ProbeTimeout:  3 * time.Second,
		SessionExpiry: 12 * time.Hour,
		SyncInterval:  60 * time.Second,
		BackoffMax:    5 * time.Minute,
	}
}

// Client manages the SQLite cache and the queue-and-drain protocol
// against the primary store.
type Client struct {
	DB     *sql.DB
	remote Remote
	auth   *parishsync.SessionAuth
	status *parishsync.StatusReporter
	config *Config
	logger *slog.Logger
	probe  func() bool
}

// NewClient creates a client over an open SQLite handle and ensures the
// cache schema exists. Safe to call on every startup.
func NewClient(db *sql.DB, remote Remote, auth *parishsync.SessionAuth, config *Config, logger *slog.Logger) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		DB:     db,
		remote: remote,
		auth:   auth,
		status: parishsync.NewStatusReporter(),
		config: config,
		logger: logger,
	}
	c.probe = config.Probe
	if c.probe == nil {
		prober := &Prober{Addr: config.ProbeAddr, Timeout: config.ProbeTimeout}
		c.probe = prober.Reachable
	}

	if err := c.ensureSchema(); err != nil {
		return nil, err
	}
	return c, nil
}

// OpenLocal opens (creating if absent) the cache file with the busy
// timeout that lets the interactive thread and the background sync
// thread overlap without deadlocking.
func OpenLocal(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocalStore, err)
	}
	return db, nil
}

// Status returns the shared status reporter polled by the UI timer.
func (c *Client) Status() *parishsync.StatusReporter {
	return c.status
}

func (c *Client) setStatus(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c.status.Set(text)
	c.logger.Debug("sync status", "status", text)
}

func localErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrLocalStore, op, err)
}
