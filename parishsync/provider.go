// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Provider produces primary-store sessions and owns the load-bearing
// classification between "unreachable" and every other failure. A false
// positive here silently routes good data into the offline queue and
// masks a bug; a false negative defeats the fallback entirely.
type Provider struct {
	cfg    *Config
	logger *slog.Logger

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// NewProvider creates a provider. The pool is created lazily on the
// first session so constructing a provider never touches the network.
func NewProvider(cfg *Config, logger *slog.Logger) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", ErrConfig)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: database URL is empty", ErrConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{cfg: cfg, logger: logger}, nil
}

// Session acquires one primary-store connection and verifies it with a
// bounded ping. Exactly one session backs each logical operation (an
// interactive write, a mirror refresh, a whole drain pass).
//
// Failure modes: ErrConfig when the DSN does not parse, ErrUnavailable
// when the network-level connect or ping fails. Statement failures on
// the returned Store classify separately (see classifyQuery).
func (p *Provider) Session(ctx context.Context) (*Store, error) {
	pool, err := p.ensurePool(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, classifyConnect(err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Release()
		return nil, classifyConnect(err)
	}
	return &Store{conn: conn, logger: p.logger}, nil
}

// Close releases the underlying pool.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
}

func (p *Provider) ensurePool(ctx context.Context) (*pgxpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		return p.pool, nil
	}

	poolCfg, err := pgxpool.ParseConfig(p.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	poolCfg.ConnConfig.ConnectTimeout = p.cfg.ConnectTimeout

	// pgxpool.NewWithConfig does not dial; connections are established
	// on first acquire, which is where outages are classified.
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	p.pool = pool
	return pool, nil
}
