// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memdriver is the reference in-memory driver: a single
// mutex-guarded map of URI to document, grounded on
// upspin.io/dir/inprocess's server/database split (a thin per-call
// wrapper around one locked struct holding the actual storage).
package memdriver // import "docspace.io/driver/memdriver"

import (
	"context"
	"strings"
	"sync"
	"time"

	"docspace.io/access"
	"docspace.io/driver"
	"docspace.io/stat"
)

// Driver is an in-memory reference implementation of driver.Driver.
// It has no opinion on access (every Access call returns decided=false)
// so the engine's own access context decides.
type Driver struct {
	driver.Base

	mu   sync.Mutex
	docs map[string]interface{}
	mtime map[string]int64
}

// New returns a connected, empty in-memory Driver.
func New() *Driver {
	return &Driver{
		docs:  map[string]interface{}{},
		mtime: map[string]int64{},
	}
}

func init() {
	driver.Register("mem", func(opts map[string]interface{}) (driver.Driver, error) {
		return New(), nil
	})
}

func (d *Driver) Connect(ctx context.Context, opts map[string]interface{}) error { return nil }
func (d *Driver) Disconnect(ctx context.Context) error                          { return nil }

func (d *Driver) Read(ctx context.Context, uri string, defaultValue interface{}) (interface{}, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.docs[uri]
	if !ok {
		return defaultValue, false, nil
	}
	return v, true, nil
}

func (d *Driver) Write(ctx context.Context, uri string, value interface{}) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs[uri] = value
	d.mtime[uri] = time.Now().UnixMilli()
	return true, nil
}

func (d *Driver) Append(ctx context.Context, uri string, chunk []byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	existing, _ := d.docs[uri].(string)
	d.docs[uri] = existing + string(chunk)
	d.mtime[uri] = time.Now().UnixMilli()
	return true, nil
}

func (d *Driver) Stat(ctx context.Context, uri string) (*stat.Stat, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.docs[uri]
	if !ok {
		return nil, false, nil
	}
	isDir := strings.HasSuffix(uri, "/")
	s := stat.New(map[string]interface{}{
		"mtimeMs":     d.mtime[uri],
		"size":        approxSize(v),
		"isFile":      !isDir,
		"isDirectory": isDir,
	})
	return s, true, nil
}

func (d *Driver) Move(ctx context.Context, from, to string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.docs[from]
	if !ok {
		return false, nil
	}
	d.docs[to] = v
	d.mtime[to] = d.mtime[from]
	delete(d.docs, from)
	delete(d.mtime, from)
	return true, nil
}

func (d *Driver) Delete(ctx context.Context, uri string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.docs[uri]; !ok {
		return false, nil
	}
	delete(d.docs, uri)
	delete(d.mtime, uri)
	return true, nil
}

func (d *Driver) ListDir(ctx context.Context, uri string) ([]string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prefix := uri
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var names []string
	for k := range d.docs {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if rest == "" {
			continue
		}
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			names = append(names, rest[:slash+1])
		} else {
			names = append(names, rest)
		}
	}
	return names, true, nil
}

// Access always defers: memdriver has no access policy of its own.
func (d *Driver) Access(ctx context.Context, uri string, level access.Level, actx *access.Context) (bool, bool, error) {
	return false, false, nil
}

func approxSize(v interface{}) int64 {
	if s, ok := v.(string); ok {
		return int64(len(s))
	}
	return 0
}
