// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package driver defines the abstract storage backend the DB engine
// is built on, plus a registry of named driver constructors. It plays
// the role upspin.io/bind plays for dialing a transport: a Driver is
// the capability surface (read/write/stat/...), and a chain of
// drivers is built through composition (Base.Inner) rather than the
// prototype-based duck typing the contract describes in its source
// language.
package driver // import "docspace.io/driver"

import (
	"context"
	"sync"

	"docspace.io/access"
	"docspace.io/errors"
	"docspace.io/stat"
)

// Driver is the abstract I/O surface a DB instance is built over. A
// driver may hold an inner driver (see Base) and forward calls it
// does not itself implement; any capability it does not support
// returns ok=false so the DB engine can fall back to its own
// in-memory behavior, mirroring the contract's "undefined means no
// opinion" rule.
type Driver interface {
	Connect(ctx context.Context, opts map[string]interface{}) error
	Disconnect(ctx context.Context) error

	// Access reports whether the operation is allowed. decided=false
	// means the driver has no opinion and the caller should keep
	// going; decided=true with allow=false means deny.
	Access(ctx context.Context, absoluteURI string, level access.Level, actx *access.Context) (decided, allow bool, err error)

	// Read returns ok=false when the driver has nothing at uri.
	Read(ctx context.Context, absoluteURI string, defaultValue interface{}) (value interface{}, ok bool, err error)
	Write(ctx context.Context, absoluteURI string, value interface{}) (ok bool, err error)
	Append(ctx context.Context, absoluteURI string, chunk []byte) (ok bool, err error)
	Stat(ctx context.Context, absoluteURI string) (s *stat.Stat, ok bool, err error)
	Move(ctx context.Context, absoluteFrom, absoluteTo string) (ok bool, err error)
	Delete(ctx context.Context, absoluteURI string) (ok bool, err error)
	ListDir(ctx context.Context, absoluteURI string) (names []string, ok bool, err error)
}

// Base is an embeddable default Driver implementation that forwards
// every call to Inner when set, and otherwise reports "no opinion"
// (ok=false, decided=false, nil error) for every capability. Concrete
// drivers embed Base and override only the methods they implement,
// the same shape as a decorator wrapping the next link in a chain.
type Base struct {
	Inner Driver
}

func (b Base) Connect(ctx context.Context, opts map[string]interface{}) error {
	if b.Inner != nil {
		return b.Inner.Connect(ctx, opts)
	}
	return nil
}

func (b Base) Disconnect(ctx context.Context) error {
	if b.Inner != nil {
		return b.Inner.Disconnect(ctx)
	}
	return nil
}

func (b Base) Access(ctx context.Context, uri string, level access.Level, actx *access.Context) (bool, bool, error) {
	if b.Inner != nil {
		return b.Inner.Access(ctx, uri, level, actx)
	}
	return false, false, nil
}

func (b Base) Read(ctx context.Context, uri string, defaultValue interface{}) (interface{}, bool, error) {
	if b.Inner != nil {
		return b.Inner.Read(ctx, uri, defaultValue)
	}
	return nil, false, nil
}

func (b Base) Write(ctx context.Context, uri string, value interface{}) (bool, error) {
	if b.Inner != nil {
		return b.Inner.Write(ctx, uri, value)
	}
	return false, nil
}

func (b Base) Append(ctx context.Context, uri string, chunk []byte) (bool, error) {
	if b.Inner != nil {
		return b.Inner.Append(ctx, uri, chunk)
	}
	return false, nil
}

func (b Base) Stat(ctx context.Context, uri string) (*stat.Stat, bool, error) {
	if b.Inner != nil {
		return b.Inner.Stat(ctx, uri)
	}
	return nil, false, nil
}

func (b Base) Move(ctx context.Context, from, to string) (bool, error) {
	if b.Inner != nil {
		return b.Inner.Move(ctx, from, to)
	}
	return false, nil
}

func (b Base) Delete(ctx context.Context, uri string) (bool, error) {
	if b.Inner != nil {
		return b.Inner.Delete(ctx, uri)
	}
	return false, nil
}

func (b Base) ListDir(ctx context.Context, uri string) ([]string, bool, error) {
	if b.Inner != nil {
		return b.Inner.ListDir(ctx, uri)
	}
	return nil, false, nil
}

// Factory constructs a Driver from a set of options, e.g. a base
// directory for a filesystem driver or a base URL for an HTTP one.
type Factory func(opts map[string]interface{}) (Driver, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Factory{}
)

// Register adds a named driver constructor to the registry, the same
// role upspin.io/bind.RegisterStoreServer plays for transports.
// Registering the same name twice panics, matching the teacher's
// fail-fast init-time registration discipline.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic("driver: Register called twice for " + name)
	}
	registry[name] = factory
}

// New constructs a Driver by name using its registered Factory.
func New(name string, opts map[string]interface{}) (Driver, error) {
	const op errors.Op = "driver.New"
	registryMu.Lock()
	factory, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, errors.E(op, name, errors.NotExist)
	}
	return factory(opts)
}
