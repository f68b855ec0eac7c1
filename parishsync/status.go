// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsync

import (
	"sync"
)

// StatusReporter holds the single current human-readable sync status.
// Every component sets it at each meaningful transition; a UI timer
// polls Current to refresh a status label. No history, no blocking.
type StatusReporter struct {
	mu      sync.RWMutex
	current string
}

// NewStatusReporter creates a reporter with an initial message.
func NewStatusReporter() *StatusReporter {
	return &StatusReporter{current: "Sync status: initializing..."}
}

// Set replaces the current status text.
func (r *StatusReporter) Set(text string) {
	r.mu.Lock()
	r.current = text
	r.mu.Unlock()
}

// Current returns the latest status text.
func (r *StatusReporter) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}
