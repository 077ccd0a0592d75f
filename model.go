// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package docspace

import (
	"context"
	"strings"

	"docspace.io/access"
)

// Model registers a hydration factory and its schema for every URI
// under prefix. Fetch results (including ones satisfied by a fallback
// db) are passed through the longest matching prefix's factory.
func (db *DB) Model(prefix string, spec ModelSpec) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.models[prefix] = spec
}

func (db *DB) findModel(uri string) (ModelSpec, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var best string
	var spec ModelSpec
	found := false
	for prefix, s := range db.models {
		if strings.HasPrefix(uri, prefix) && len(prefix) >= len(best) {
			best, spec, found = prefix, s, true
		}
	}
	return spec, found
}

// hydrate applies a model's Factory to data, but only when data is a
// non-array object: scalars and arrays pass through unchanged.
func (db *DB) hydrate(uri string, data Value) Value {
	m, ok := data.(map[string]interface{})
	if !ok {
		return data
	}
	spec, found := db.findModel(uri)
	if !found || spec.Factory == nil {
		return data
	}
	return spec.Factory(m)
}

// ValidationIssue is one field-level mismatch Validate reports.
type ValidationIssue struct {
	Field   string
	Message string
}

// Validate checks data (or, if nil, the freshly fetched document at
// uri) against the schema of the model registered for uri. Data that
// is not an object yields a single {Field:"*"} issue; a URI with no
// registered model always validates clean; a field missing from data
// is not an error, only a present field with the wrong JSON-ish kind
// is.
func (db *DB) Validate(ctx context.Context, uri string, data Value, actx *access.Context) ([]ValidationIssue, error) {
	if data == nil {
		opts := DefaultFetchOptions()
		opts.Context = actx
		loaded, err := db.Fetch(ctx, uri, &opts)
		if err != nil {
			return nil, err
		}
		data = loaded
	}
	spec, found := db.findModel(db.resolve(uri))
	if !found {
		return nil, nil
	}
	obj, ok := data.(map[string]interface{})
	if !ok {
		return []ValidationIssue{{Field: "*"}}, nil
	}
	var issues []ValidationIssue
	for _, f := range spec.Schema {
		v, present := obj[f.Name]
		if !present {
			continue
		}
		if !matchesKind(v, f.Type) {
			issues = append(issues, ValidationIssue{
				Field:   f.Name,
				Message: "expected " + f.Type,
			})
		}
	}
	return issues, nil
}

func matchesKind(v Value, kind string) bool {
	switch kind {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "bool", "boolean":
		_, ok := v.(bool)
		return ok
	case "object":
		_, ok := v.(map[string]interface{})
		return ok
	case "array":
		_, ok := v.([]interface{})
		return ok
	default:
		return true
	}
}
