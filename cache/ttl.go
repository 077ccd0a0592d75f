// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"sync"
	"time"
)

// TTLMap is a map whose entries expire a fixed duration after they are
// set. A TTL of zero disables expiry entirely and TTLMap degenerates
// to a plain mutex-guarded map, which keeps the zero-TTL path cheap:
// Get never touches the clock.
type TTLMap struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]ttlEntry
}

type ttlEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewTTLMap returns a TTLMap whose entries expire ttl after being Set.
// ttl <= 0 means entries never expire.
func NewTTLMap(ttl time.Duration) *TTLMap {
	return &TTLMap{
		ttl:     ttl,
		entries: make(map[string]ttlEntry),
	}
}

// Set stores value under key, resetting its expiry.
func (m *TTLMap) Set(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := ttlEntry{value: value}
	if m.ttl > 0 {
		e.expiresAt = time.Now().Add(m.ttl)
	}
	m.entries[key] = e
}

// Get returns the value for key and whether it was present and not
// expired. An expired entry is evicted in place on read, satisfying
// the "reads check the clock and evict in place" contract.
func (m *TTLMap) Get(key string) (interface{}, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.ttl > 0 && !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Has reports whether key is present and unexpired, without returning
// the value.
func (m *TTLMap) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key unconditionally.
func (m *TTLMap) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Keys returns a snapshot of the currently-unexpired keys.
func (m *TTLMap) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	keys := make([]string, 0, len(m.entries))
	for k, e := range m.entries {
		if m.ttl > 0 && !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries, including any not yet evicted
// expired ones (a lazy TTL map does not proactively sweep).
func (m *TTLMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Range calls f for every unexpired entry. If f returns false, Range
// stops early.
func (m *TTLMap) Range(f func(key string, value interface{}) bool) {
	for _, k := range m.Keys() {
		v, ok := m.Get(k)
		if !ok {
			continue
		}
		if !f(k, v) {
			return
		}
	}
}
