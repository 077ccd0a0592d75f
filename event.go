// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package docspace

import "strings"

// On registers listener for every occurrence of event ("cache", "set",
// "save", "drop", "change", "fallback"). Listeners run synchronously,
// in registration order, within the emitting call.
func (db *DB) On(event string, listener Listener) {
	db.listenersMu.Lock()
	defer db.listenersMu.Unlock()
	db.listeners[event] = append(db.listeners[event], listener)
}

func (db *DB) emit(event string, payload EventPayload) {
	db.listenersMu.Lock()
	listeners := append([]Listener(nil), db.listeners[event]...)
	watchers := append([]watchEntry(nil), db.watchers...)
	db.listenersMu.Unlock()
	for _, l := range listeners {
		l(payload)
	}
	for _, w := range watchers {
		if hasURISegmentPrefix(payload.URI, w.prefix) {
			w.listener(payload)
		}
	}
}

// Emit fires event with payload as if the engine itself had raised it.
func (db *DB) Emit(event string, payload EventPayload) {
	payload.Type = event
	db.emit(event, payload)
}

// Watch invokes listener whenever an emitted event's URI has prefix as
// a URI-segment prefix (a whole path component, not merely a string
// prefix). It returns an unsubscribe function.
func (db *DB) Watch(prefix string, listener Listener) func() {
	db.listenersMu.Lock()
	db.watchers = append(db.watchers, watchEntry{prefix: prefix, listener: listener})
	idx := len(db.watchers) - 1
	db.listenersMu.Unlock()
	return func() { db.unwatchAt(idx) }
}

// Unwatch removes every watcher registered for prefix.
func (db *DB) Unwatch(prefix string) {
	db.listenersMu.Lock()
	defer db.listenersMu.Unlock()
	kept := db.watchers[:0]
	for _, w := range db.watchers {
		if w.prefix != prefix {
			kept = append(kept, w)
		}
	}
	db.watchers = kept
}

func (db *DB) unwatchAt(idx int) {
	db.listenersMu.Lock()
	defer db.listenersMu.Unlock()
	if idx < 0 || idx >= len(db.watchers) {
		return
	}
	db.watchers = append(db.watchers[:idx], db.watchers[idx+1:]...)
}

func hasURISegmentPrefix(uri, prefix string) bool {
	if prefix == "" || prefix == "/" {
		return true
	}
	trimmedPrefix := strings.TrimSuffix(prefix, "/")
	if uri == trimmedPrefix {
		return true
	}
	return strings.HasPrefix(uri, trimmedPrefix+"/")
}
