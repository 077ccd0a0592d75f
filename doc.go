// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package docspace is the engine's root package: it holds the core
// vocabulary (URI, Value, Cached) and the DB itself (the engine, C7)
// together with its fetch pipeline (C8), exactly as upspin.io/upspin
// holds upspin.PathName/upspin.DirEntry and upspin.io/dir/inprocess
// holds the reference DirServer — except here the engine is generic
// over drivers, so both live at the root.
package docspace // import "docspace.io"

import (
	"context"

	"docspace.io/access"
	"docspace.io/config"
	"docspace.io/driver"
	"docspace.io/stat"
)

// URI is a forward-slash-delimited document or directory key,
// possibly remote (see docspace.io/path for the algebra over it).
type URI = string

// Value is any JSON-shaped document value: nil, bool, float64, string,
// []interface{}, or map[string]interface{}. Go's interface{} is the
// idiomatic stand-in for the tagged union a statically-typed systems
// language would otherwise need to hand-roll; a type switch plays the
// role of matching on the variant.
type Value = interface{}

// CacheState distinguishes "never looked up" from "looked up and
// confirmed absent", replacing the false-as-missing sentinel the
// cache's source representation uses: Absent means no entry has ever
// been cached, Missing means a load was already attempted and found
// nothing (so the engine should not call the driver again), and
// Present means Value holds real cached content.
type CacheState int

// The three cache states a URI's cache entry can be in.
const (
	Absent CacheState = iota
	Missing
	Present
)

// Cached is the cache's answer to "what do we know about this URI".
type Cached struct {
	State CacheState
	Value Value
}

// ModelFactory builds a Model from a hydrated document value, the
// Go analogue of the contract's "Model.from(data) or new Model(data)"
// constructor-registry hydration step.
type ModelFactory func(Value) Value

// SchemaField declares one field a Model expects, for Validate to
// check an untyped document against.
type SchemaField struct {
	Name string
	Type string // "string", "number", "bool", "object", "array"
}

// ModelSpec pairs a hydration factory with the schema Validate checks
// documents at its prefix against.
type ModelSpec struct {
	Factory ModelFactory
	Schema  []SchemaField
}

// Listener receives an emitted event's payload.
type Listener func(payload EventPayload)

// EventPayload is the shape every emitted event carries; only the
// fields relevant to Type are populated.
type EventPayload struct {
	Type  string // "cache", "set", "save", "drop", "change", "fallback"
	URI   string
	Hit   bool
	Value Value
	From  *DB
	To    *DB
}

// Options configures a DB at construction time. It embeds the
// ambient config.Options knobs (cwd, root, ttl, data extensions, ...)
// alongside the engine-specific fields the contract's constructor
// accepts: driver, context, predefined seed data, and declared mounts
// and models.
type Options struct {
	config.Options

	Driver     driver.Driver
	Context    *access.Context
	Predefined map[string]Value
	Mounts     map[string]Value // prefix -> *DB, typed loosely to avoid an import cycle at construction time
	Models     map[string]ModelSpec
}

// NewOptions returns Options seeded with config.New()'s defaults and
// no driver, predefined data, mounts or models.
func NewOptions() Options {
	return Options{Options: config.New()}
}

// Attachable is the duck-typed fallback surface attach() accepts in
// the contract's source language ("exposing fetch/set/stat"); any *DB
// already satisfies it, but a caller's own implementation can too.
type Attachable interface {
	Fetch(ctx context.Context, uri string, opts *FetchOptions) (Value, error)
	Set(ctx context.Context, uri string, value Value, actx *access.Context) error
	Stat(ctx context.Context, uri string, actx *access.Context) (*stat.Stat, error)
}

func isDataExt(ext string, extensions []string) bool {
	if ext == "" {
		return true
	}
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}
