/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package session is the in-process session table: a mutex-guarded map
// keyed by a generated id, swept periodically for expired entries.
package session

import (
	"sync"
	"time"

	"github.com/hashicorp/go-uuid"
)

const defaultTTL = time.Hour

// Session is one tracked session.
type Session struct {
	ID        string
	CreatedAt time.Time
	expiresAt time.Time
	Values    map[string]string
}

// Table is a mutex-guarded session store.
type Table struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]*Session
}

// New returns an empty Table using the default one-hour session TTL.
func New() *Table {
	return &Table{
		ttl: defaultTTL,
		m:   make(map[string]*Session),
	}
}

// Create generates a new session id and stores an entry expiring one TTL
// from now. The id is a hex UUID with no dashes, matching the
// "sessionid=<hex>" cookie format.
func (t *Table) Create() (string, error) {
	raw, err := uuid.GenerateUUID()
	if err != nil {
		return "", ErrorSessionIDGeneration.Error(err)
	}

	id := stripDashes(raw)
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.m[id] = &Session{
		ID:        id,
		CreatedAt: now,
		expiresAt: now.Add(t.ttl),
		Values:    make(map[string]string),
	}

	return id, nil
}

// Get returns the session for id. An expired-but-not-yet-swept entry is
// reported as a miss.
func (t *Table) Get(id string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.m[id]
	if !ok {
		return nil, false
	}
	if time.Now().After(s.expiresAt) {
		return nil, false
	}

	return s, true
}

// Destroy removes the session for id, if present.
func (t *Table) Destroy(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.m, id)
}

// Sweep removes every entry whose expiry has passed. Invoked hourly by the
// event loop rather than once per iteration.
func (t *Table) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, s := range t.m {
		if now.After(s.expiresAt) {
			delete(t.m, id)
			removed++
		}
	}

	return removed
}

// Len reports the current number of tracked sessions, expired or not.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.m)
}

func stripDashes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
