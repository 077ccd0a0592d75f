// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package docspace

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"docspace.io/access"
	"docspace.io/cache"
	"docspace.io/config"
	"docspace.io/driver"
	"docspace.io/errors"
	"docspace.io/index"
	"docspace.io/log"
	"docspace.io/path"
	"docspace.io/stat"
)

// DB is the document database engine: a cached, access-gated view over
// a Driver, generalized from upspin.io/dir/inprocess's in-memory
// directory server the same way a DirServer generalizes over a
// StoreServer. Unlike upspin's server, which is dialed per user, a DB
// is constructed directly with New and is safe for concurrent use.
type DB struct {
	opts config.Options

	mu        sync.RWMutex
	cwd, root string
	connected bool

	drv  driver.Driver
	gate *access.Gate
	actx *access.Context

	data *cache.TTLMap
	meta *cache.TTLMap

	predefined map[string]Value

	dbs    []Attachable
	mounts map[string]*DB
	models map[string]ModelSpec

	inheritance *cache.LRU // dir (trailing "/") -> merged Value

	listenersMu sync.Mutex
	listeners   map[string][]Listener
	watchers    []watchEntry
}

type watchEntry struct {
	prefix   string
	listener Listener
}

// driverDecider adapts Driver.Access (which can fail) to
// access.Decider (which cannot): a driver error is logged as a
// warning and treated as "no opinion", per the engine's DriverError
// propagation policy (any driver call that throws degrades to a
// logged warning plus the operation's default behavior).
type driverDecider struct {
	db *DB
}

func (d driverDecider) Access(ctx context.Context, uri string, level access.Level, actx *access.Context) (bool, bool) {
	if d.db.drv == nil {
		return false, false
	}
	decided, allow, err := d.db.drv.Access(ctx, uri, level, actx)
	if err != nil {
		log.Error.Printf("docspace: driver access check failed for %s: %v", uri, err)
		return false, false
	}
	return decided, allow
}

// New constructs a DB from o. The DB is not usable until Connect (or
// any operation, which calls requireConnected internally) succeeds.
func New(o Options) *DB {
	ttl := time.Duration(o.TTL) * time.Millisecond
	db := &DB{
		opts:        o.Options,
		cwd:         o.Cwd,
		root:        o.Root,
		drv:         o.Driver,
		actx:        o.Context,
		data:        cache.NewTTLMap(ttl),
		meta:        cache.NewTTLMap(ttl),
		predefined:  o.Predefined,
		mounts:      map[string]*DB{},
		models:      map[string]ModelSpec{},
		inheritance: cache.NewLRU(maxInheritanceEntries),
		listeners:   map[string][]Listener{},
	}
	db.gate = &access.Gate{Decider: driverDecider{db}}
	for prefix, v := range o.Mounts {
		if sub, ok := v.(*DB); ok {
			db.mounts[prefix] = sub
		}
	}
	for prefix, spec := range o.Models {
		db.models[prefix] = spec
	}
	return db
}

// Connect seeds data/meta from the predefined map, infers directory
// stats for every ancestor by scanning the seeded keys, and marks the
// DB connected. It is idempotent.
func (db *DB) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.connected {
		return nil
	}
	now := time.Now().UnixMilli()
	for uri, v := range db.predefined {
		isDir := strings.HasSuffix(uri, "/")
		db.data.Set(uri, Cached{State: Present, Value: v})
		db.meta.Set(uri, stat.New(map[string]interface{}{
			"mtimeMs":     now,
			"isFile":      !isDir,
			"isDirectory": isDir,
		}))
	}
	for uri := range db.predefined {
		for _, parent := range ancestorDirs(uri) {
			if _, ok := db.meta.Get(parent); !ok {
				db.meta.Set(parent, stat.New(map[string]interface{}{
					"mtimeMs":     now,
					"isDirectory": true,
				}))
			}
		}
	}
	if _, ok := db.meta.Get(db.root); !ok {
		db.meta.Set(db.root, stat.New(map[string]interface{}{
			"mtimeMs":     now,
			"isDirectory": true,
		}))
	}
	db.connected = true
	return nil
}

func ancestorDirs(uri string) []string {
	dir := path.Dirname(uri)
	var out []string
	seen := map[string]bool{}
	for {
		if seen[dir] {
			break
		}
		seen[dir] = true
		out = append(out, dir)
		if dir == "/" {
			break
		}
		parent := path.Dirname(strings.TrimSuffix(dir, "/"))
		if parent == dir {
			break
		}
		dir = parent
	}
	return out
}

// RequireConnected connects if needed and fails NotConnected if the
// DB is still disconnected afterward (Connect never fails today, but
// the check mirrors the contract's defensive re-check).
func (db *DB) RequireConnected(ctx context.Context) error {
	const op errors.Op = "docspace.RequireConnected"
	if err := db.Connect(ctx); err != nil {
		return err
	}
	db.mu.RLock()
	connected := db.connected
	db.mu.RUnlock()
	if !connected {
		return errors.E(op, errors.NotConnected)
	}
	return nil
}

func (db *DB) resolve(uri string) string {
	db.mu.RLock()
	cwd, root := db.cwd, db.root
	db.mu.RUnlock()
	return path.ResolveSync(cwd, root, uri)
}

// Absolute normalizes uri against the DB's cwd and root without
// requiring a connection.
func (db *DB) Absolute(uri string) string {
	db.mu.RLock()
	cwd, root := db.cwd, db.root
	db.mu.RUnlock()
	return path.Absolute(cwd, root, uri)
}

func (db *DB) ensureAccess(ctx context.Context, uri string, level access.Level, actx *access.Context) error {
	if actx == nil {
		actx = db.actx
	}
	return db.gate.Ensure(ctx, uri, level, actx)
}

func (db *DB) findMount(uri string) (*DB, string) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var bestPrefix string
	var bestDB *DB
	for prefix, sub := range db.mounts {
		if (uri == prefix || strings.HasPrefix(uri, prefix)) && len(prefix) > len(bestPrefix) {
			bestPrefix, bestDB = prefix, sub
		}
	}
	if bestDB == nil {
		return nil, ""
	}
	subURI := strings.TrimPrefix(uri, bestPrefix)
	if !strings.HasPrefix(subURI, "/") {
		subURI = "/" + subURI
	}
	return bestDB, subURI
}

// Get normalizes uri, checks a cache hit, and otherwise loads the
// document through the driver, caching the result (including a
// confirmed miss, so the driver is not asked again). A "cache" event
// is always emitted, {uri, hit}.
func (db *DB) Get(ctx context.Context, uri string, defaultValue Value, actx *access.Context) (Value, error) {
	if err := db.RequireConnected(ctx); err != nil {
		return defaultValue, err
	}
	norm := db.resolve(uri)
	if sub, subURI := db.findMount(norm); sub != nil {
		return sub.Get(ctx, subURI, defaultValue, actx)
	}
	if err := db.ensureAccess(ctx, norm, access.Read, actx); err != nil {
		return defaultValue, err
	}
	if raw, ok := db.data.Get(norm); ok {
		if c, ok2 := raw.(Cached); ok2 && c.State != Absent {
			db.emit("cache", EventPayload{Type: "cache", URI: norm, Hit: c.State == Present})
			if c.State == Present {
				return c.Value, nil
			}
			return defaultValue, nil
		}
	}
	type notFound struct{}
	v, err := db.loadDocument(ctx, norm, notFound{}, actx)
	state := Present
	if err != nil {
		log.Error.Printf("docspace: get %s: %v", norm, err)
		state = Missing
	} else if _, miss := v.(notFound); miss {
		state = Missing
	}
	if state == Missing {
		v = defaultValue
	}
	db.data.Set(norm, Cached{State: state, Value: v})
	db.emit("cache", EventPayload{Type: "cache", URI: norm, Hit: false})
	return v, nil
}

// Set writes value into the cache at uri and bumps its mtime, without
// touching the driver (SaveDocument is the driver-writing variant).
func (db *DB) Set(ctx context.Context, uri string, value Value, actx *access.Context) error {
	if err := db.RequireConnected(ctx); err != nil {
		return err
	}
	norm := db.resolve(uri)
	if sub, subURI := db.findMount(norm); sub != nil {
		return sub.Set(ctx, subURI, value, actx)
	}
	if err := db.ensureAccess(ctx, norm, access.Write, actx); err != nil {
		return err
	}
	db.data.Set(norm, Cached{State: Present, Value: value})
	db.touchMeta(norm)
	db.emit("set", EventPayload{Type: "set", URI: norm, Value: value})
	db.emit("change", EventPayload{Type: "set", URI: norm, Value: value})
	return nil
}

func (db *DB) touchMeta(uri string) *stat.Stat {
	now := time.Now().UnixMilli()
	var s *stat.Stat
	if raw, ok := db.meta.Get(uri); ok {
		if existing, ok2 := raw.(*stat.Stat); ok2 {
			s = existing
		}
	}
	if s == nil {
		s = &stat.Stat{}
	}
	s.MtimeMs = now
	isDir := strings.HasSuffix(uri, "/")
	s.IsFile, s.IsDirectory = !isDir, isDir
	db.meta.Set(uri, s)
	return s
}

// Stat returns a cached Stat for uri, loading it from the driver if
// necessary.
func (db *DB) Stat(ctx context.Context, uri string, actx *access.Context) (*stat.Stat, error) {
	if err := db.RequireConnected(ctx); err != nil {
		return nil, err
	}
	norm := db.resolve(uri)
	if sub, subURI := db.findMount(norm); sub != nil {
		return sub.Stat(ctx, subURI, actx)
	}
	if err := db.ensureAccess(ctx, norm, access.Read, actx); err != nil {
		return nil, err
	}
	if raw, ok := db.meta.Get(norm); ok {
		if s, ok2 := raw.(*stat.Stat); ok2 {
			return s, nil
		}
	}
	s, err := db.statDocument(ctx, norm)
	if err != nil {
		log.Error.Printf("docspace: stat %s: %v", norm, err)
		return nil, nil
	}
	if s != nil {
		db.meta.Set(norm, s)
	}
	return s, nil
}

func (db *DB) statDocument(ctx context.Context, uri string) (*stat.Stat, error) {
	const op errors.Op = "docspace.statDocument"
	if db.drv == nil {
		return nil, nil
	}
	s, ok, err := db.drv.Stat(ctx, uri)
	if err != nil {
		return nil, errors.E(op, uri, errors.DriverError, err)
	}
	if !ok {
		return nil, nil
	}
	return s, nil
}

// loadDocument asks the driver for uri, and when uri has no extension
// and nothing was found, probes uri+ext for every configured data
// extension.
func (db *DB) loadDocument(ctx context.Context, uri string, defaultValue Value, actx *access.Context) (Value, error) {
	const op errors.Op = "docspace.loadDocument"
	if err := db.ensureAccess(ctx, uri, access.Read, actx); err != nil {
		return defaultValue, err
	}
	if db.drv == nil {
		return defaultValue, nil
	}
	v, ok, err := db.drv.Read(ctx, uri, nil)
	if err != nil {
		return defaultValue, errors.E(op, uri, errors.DriverError, err)
	}
	if ok {
		return v, nil
	}
	if path.Extname(uri) == "" {
		for _, ext := range db.opts.DataExtensions {
			v, ok, err := db.drv.Read(ctx, uri+ext, nil)
			if err != nil {
				log.Error.Printf("docspace: probe %s: %v", uri+ext, err)
				continue
			}
			if ok {
				return v, nil
			}
		}
	}
	return defaultValue, nil
}

// SaveDocument writes value through the driver and refreshes the
// cache, meta, and every index.txt the write affects.
func (db *DB) SaveDocument(ctx context.Context, uri string, value Value, actx *access.Context) error {
	const op errors.Op = "docspace.SaveDocument"
	if err := db.RequireConnected(ctx); err != nil {
		return err
	}
	norm := db.resolve(uri)
	if sub, subURI := db.findMount(norm); sub != nil {
		return sub.SaveDocument(ctx, subURI, value, actx)
	}
	if err := db.ensureAccess(ctx, norm, access.Write, actx); err != nil {
		return err
	}
	if db.drv != nil {
		ok, err := db.drv.Write(ctx, norm, value)
		if err != nil {
			return errors.E(op, norm, errors.DriverError, err)
		}
		if !ok {
			return errors.E(op, norm, errors.DriverError, errors.Str("driver declined write"))
		}
	}
	db.data.Set(norm, Cached{State: Present, Value: value})
	db.touchMeta(norm)
	db.updateIndex(ctx, norm)
	db.emit("save", EventPayload{Type: "save", URI: norm, Value: value})
	db.emit("change", EventPayload{Type: "save", URI: norm, Value: value})
	return nil
}

// updateIndex regenerates every index.txt affected by a write or
// delete at uri (the directory's own index plus every ancestor's, up
// to root), and alongside each one rebuilds that directory's
// index.txtl: a whole-subtree index ReadDir can consult in one read
// instead of recursing, per the contract's unlimited-depth fast path.
func (db *DB) updateIndex(ctx context.Context, uri string) {
	if db.drv == nil {
		return
	}
	dir := path.Dirname(uri)
	for _, idxPath := range index.GetIndexesToUpdate(dir, db.root) {
		dirOf := path.Dirname(idxPath)
		rows, ok := db.listDirRows(ctx, dirOf)
		if !ok {
			continue
		}
		index.Sort(rows)
		if _, err := db.drv.Write(ctx, idxPath, index.Encode(rows, nil)); err != nil {
			log.Error.Printf("docspace: updateIndex %s: %v", idxPath, err)
		}

		fullRows := db.buildFullIndex(ctx, dirOf)
		fullPath := dirOf + index.FullIndexName
		full := index.Encode(fullRows, &index.EncodeOptions{Long: true})
		if _, err := db.drv.Write(ctx, fullPath, full); err != nil {
			log.Error.Printf("docspace: updateIndex %s: %v", fullPath, err)
		}
	}
}

// listDirRows lists dirOf's immediate children through the driver as
// index.Rows, skipping the reserved index files themselves.
func (db *DB) listDirRows(ctx context.Context, dirOf string) ([]index.Row, bool) {
	names, ok, err := db.drv.ListDir(ctx, dirOf)
	if err != nil || !ok {
		return nil, false
	}
	rows := make([]index.Row, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		if name == index.ImmediateIndexName || name == index.FullIndexName || seen[name] {
			continue
		}
		seen[name] = true
		childURI := dirOf + name
		var mtimeMs, size int64
		if s, ok2, _ := db.drv.Stat(ctx, childURI); ok2 && s != nil {
			mtimeMs, size = s.MtimeMs, s.Size
		}
		rows = append(rows, index.Row{Name: name, MtimeMs: mtimeMs, Size: size})
	}
	return rows, true
}

// buildFullIndex walks dirOf's entire subtree through the driver,
// naming each row with its path relative to dirOf (subdirectory
// segments included), for index.txtl.
func (db *DB) buildFullIndex(ctx context.Context, dirOf string) []index.Row {
	var rows []index.Row
	var walk func(d, prefix string)
	walk = func(d, prefix string) {
		children, ok := db.listDirRows(ctx, d)
		if !ok {
			return
		}
		for _, r := range children {
			rel := prefix + r.Name
			rows = append(rows, index.Row{Name: rel, MtimeMs: r.MtimeMs, Size: r.Size})
			if r.IsDirectory() {
				walk(d+r.Name, rel)
			}
		}
	}
	walk(dirOf, "")
	index.Sort(rows)
	return rows
}

// DropDocument deletes uri through the driver and erases it from the
// cache and meta.
func (db *DB) DropDocument(ctx context.Context, uri string, actx *access.Context) error {
	const op errors.Op = "docspace.DropDocument"
	if err := db.RequireConnected(ctx); err != nil {
		return err
	}
	norm := db.resolve(uri)
	if sub, subURI := db.findMount(norm); sub != nil {
		return sub.DropDocument(ctx, subURI, actx)
	}
	if err := db.ensureAccess(ctx, norm, access.Delete, actx); err != nil {
		return err
	}
	if db.drv != nil {
		ok, err := db.drv.Delete(ctx, norm)
		if err != nil {
			return errors.E(op, norm, errors.DriverError, err)
		}
		if !ok {
			return errors.E(op, norm, errors.NotExist)
		}
	}
	db.data.Delete(norm)
	db.meta.Delete(norm)
	db.updateIndex(ctx, norm)
	db.emit("drop", EventPayload{Type: "drop", URI: norm})
	db.emit("change", EventPayload{Type: "drop", URI: norm})
	return nil
}

// MoveDocument moves a document from one URI to another, using the
// driver's Move when it has an opinion, otherwise falling back to a
// load-save-drop sequence.
func (db *DB) MoveDocument(ctx context.Context, from, to string, actx *access.Context) error {
	const op errors.Op = "docspace.MoveDocument"
	if err := db.RequireConnected(ctx); err != nil {
		return err
	}
	nf, nt := db.resolve(from), db.resolve(to)
	if err := db.ensureAccess(ctx, nf, access.Write, actx); err != nil {
		return err
	}
	if err := db.ensureAccess(ctx, nt, access.Write, actx); err != nil {
		return err
	}
	moved := false
	if db.drv != nil {
		ok, err := db.drv.Move(ctx, nf, nt)
		if err != nil {
			return errors.E(op, nf, errors.DriverError, err)
		}
		moved = ok
	}
	if !moved {
		v, err := db.loadDocument(ctx, nf, nil, actx)
		if err != nil {
			return errors.E(op, nf, err)
		}
		if err := db.SaveDocument(ctx, nt, v, actx); err != nil {
			return err
		}
		return db.DropDocument(ctx, nf, actx)
	}
	if raw, ok := db.data.Get(nf); ok {
		db.data.Set(nt, raw)
		db.data.Delete(nf)
	}
	if raw, ok := db.meta.Get(nf); ok {
		db.meta.Set(nt, raw)
		db.meta.Delete(nf)
	}
	db.updateIndex(ctx, nf)
	db.updateIndex(ctx, nt)
	db.emit("change", EventPayload{Type: "drop", URI: nf})
	return nil
}

// WriteDocument appends chunk to uri, through the driver's Append
// when available, otherwise accumulating the chunk against the
// cached string value.
func (db *DB) WriteDocument(ctx context.Context, uri string, chunk []byte, actx *access.Context) error {
	const op errors.Op = "docspace.WriteDocument"
	if err := db.RequireConnected(ctx); err != nil {
		return err
	}
	norm := db.resolve(uri)
	if err := db.ensureAccess(ctx, norm, access.Write, actx); err != nil {
		return err
	}
	if db.drv != nil {
		ok, err := db.drv.Append(ctx, norm, chunk)
		if err != nil {
			return errors.E(op, norm, errors.DriverError, err)
		}
		if ok {
			db.data.Delete(norm)
			db.touchMeta(norm)
			db.emit("set", EventPayload{Type: "set", URI: norm})
			db.emit("change", EventPayload{Type: "set", URI: norm})
			return nil
		}
	}
	var cur string
	if raw, ok := db.data.Get(norm); ok {
		if c, ok2 := raw.(Cached); ok2 {
			if s, ok3 := c.Value.(string); ok3 {
				cur = s
			}
		}
	}
	cur += string(chunk)
	db.data.Set(norm, Cached{State: Present, Value: cur})
	db.touchMeta(norm)
	db.emit("set", EventPayload{Type: "set", URI: norm, Value: cur})
	db.emit("change", EventPayload{Type: "set", URI: norm, Value: cur})
	return nil
}

// Push synchronizes every cached entry whose mtime is newer than the
// driver's own stat mtime, returning the URIs it saved.
func (db *DB) Push(ctx context.Context, actx *access.Context) ([]string, error) {
	var saved []string
	for _, uri := range db.data.Keys() {
		raw, ok := db.data.Get(uri)
		if !ok {
			continue
		}
		c, ok := raw.(Cached)
		if !ok || c.State != Present {
			continue
		}
		sRaw, ok := db.meta.Get(uri)
		if !ok {
			continue
		}
		s, ok := sRaw.(*stat.Stat)
		if !ok {
			continue
		}
		var driverMtime int64
		if db.drv != nil {
			if ds, ok2, _ := db.drv.Stat(ctx, uri); ok2 && ds != nil {
				driverMtime = ds.MtimeMs
			}
		}
		if s.MtimeMs > driverMtime {
			if err := db.SaveDocument(ctx, uri, c.Value, actx); err == nil {
				saved = append(saved, uri)
			}
		}
	}
	return saved, nil
}

func uriDepth(p string) int {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/") + 1
}

// ListDir returns the immediate children of uri: every meta key one
// depth deeper, merged with whatever the driver additionally reports.
// The reserved index.txt/index.txtl bookkeeping files are never
// surfaced as children.
func (db *DB) ListDir(ctx context.Context, uri string, actx *access.Context) ([]*stat.Entry, error) {
	if err := db.RequireConnected(ctx); err != nil {
		return nil, err
	}
	norm := db.resolve(uri)
	if sub, subURI := db.findMount(norm); sub != nil {
		return sub.ListDir(ctx, subURI, actx)
	}
	if err := db.ensureAccess(ctx, norm, access.Read, actx); err != nil {
		return nil, err
	}
	dir := norm
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	depth := uriDepth(dir)

	seen := map[string]bool{}
	var entries []*stat.Entry
	for _, key := range db.meta.Keys() {
		if key == "?loaded" || !strings.HasPrefix(key, dir) || key == dir {
			continue
		}
		if uriDepth(key) != depth+1 {
			continue
		}
		if index.IsIndex(key) || index.IsFullIndex(key) {
			continue
		}
		seen[key] = true
		entries = append(entries, db.entryFor(key))
	}
	if db.drv != nil {
		if names, ok, err := db.drv.ListDir(ctx, dir); err == nil && ok {
			for _, name := range names {
				if name == index.ImmediateIndexName || name == index.FullIndexName {
					continue
				}
				childURI := dir + name
				if seen[childURI] {
					continue
				}
				seen[childURI] = true
				if _, known := db.meta.Get(childURI); !known {
					if s, serr := db.statDocument(ctx, childURI); serr == nil && s != nil {
						db.meta.Set(childURI, s)
					} else {
						isDir := strings.HasSuffix(childURI, "/")
						db.meta.Set(childURI, stat.New(map[string]interface{}{"isFile": !isDir, "isDirectory": isDir}))
					}
				}
				entries = append(entries, db.entryFor(childURI))
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (db *DB) entryFor(uri string) *stat.Entry {
	var s *stat.Stat
	if raw, ok := db.meta.Get(uri); ok {
		if existing, ok2 := raw.(*stat.Stat); ok2 {
			s = existing
		}
	}
	if s == nil {
		s = &stat.Stat{}
	}
	isDir := strings.HasSuffix(uri, "/")
	p := strings.TrimSuffix(uri, "/")
	e := stat.NewEntry(p, map[string]interface{}{"stat": s, "fulfilled": s.Exists()})
	if isDir {
		e.Stat.IsDirectory = true
		e.Stat.IsFile = false
	}
	return e
}

// IsData reports whether uri's extension is among the configured data
// extensions, or empty (extensionless URIs are always data).
func (db *DB) IsData(uri string) bool {
	return isDataExt(path.Extname(uri), db.opts.DataExtensions)
}

// Extract returns a new, independent DB rooted at uri: it copies every
// meta/data entry whose key falls under the normalized uri, stripping
// that prefix, but inherits neither the driver nor attached dbs.
func (db *DB) Extract(uri string) *DB {
	norm := db.resolve(uri)
	if !strings.HasSuffix(norm, "/") {
		norm += "/"
	}
	sub := New(Options{Options: db.opts})
	sub.cwd = "/"
	sub.root = norm
	sub.connected = true
	for _, key := range db.meta.Keys() {
		if key == "?loaded" || !strings.HasPrefix(key, norm) {
			continue
		}
		rel := strings.TrimPrefix(key, norm)
		rel = "/" + rel
		if raw, ok := db.meta.Get(key); ok {
			sub.meta.Set(rel, raw)
		}
		if raw, ok := db.data.Get(key); ok {
			sub.data.Set(rel, raw)
		}
	}
	return sub
}

// Attach adds other to the fallback chain Fetch consults after a
// local miss.
func (db *DB) Attach(other Attachable) error {
	const op errors.Op = "docspace.Attach"
	if other == nil {
		return errors.E(op, errors.AttachTypeError)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.dbs = append(db.dbs, other)
	return nil
}

// Detach removes other from the fallback chain.
func (db *DB) Detach(other Attachable) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i, d := range db.dbs {
		if d == other {
			db.dbs = append(db.dbs[:i], db.dbs[i+1:]...)
			return
		}
	}
}

// Mount routes Get, Set, Stat, Fetch, SaveDocument and DropDocument
// under prefix to sub instead of this DB's own cache and driver; the
// other operations, MoveDocument and WriteDocument among them, do not
// consult mounts.
func (db *DB) Mount(prefix string, sub *DB) error {
	const op errors.Op = "docspace.Mount"
	if sub == nil {
		return errors.E(op, prefix, errors.MountTypeError)
	}
	norm := db.resolve(prefix)
	if !strings.HasSuffix(norm, "/") {
		norm += "/"
	}
	db.mu.Lock()
	db.mounts[norm] = sub
	db.mu.Unlock()
	return nil
}

// Unmount removes a previously mounted prefix.
func (db *DB) Unmount(prefix string) {
	norm := db.resolve(prefix)
	if !strings.HasSuffix(norm, "/") {
		norm += "/"
	}
	db.mu.Lock()
	delete(db.mounts, norm)
	db.mu.Unlock()
}
