// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package shape converts between nested JSON-like values and their
// flat, path-keyed representation, and implements the deep-merge used
// throughout the fetch pipeline. There is no single upspin.io file
// that does this (DirEntry metadata is already flat), so the package
// follows the teacher's idiom instead of a specific file: small,
// single-purpose pure functions with a terse doc comment only where
// an invariant is non-obvious.
//
// A document is one of: nil, bool, float64/int/string (scalar),
// []interface{} (array) or map[string]interface{} (object) — the same
// shape encoding/json produces, which keeps the package interoperable
// with every driver and codec in the rest of the module.
package shape // import "docspace.io/shape"

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Constants mirrored from the engine's own naming.
const (
	ObjectDivider    = "/"
	ArrayWrapper     = "[]"
	ReferenceKey     = "$ref"
	MaxDeepUnflatten = 99
)

// KV is one key/value pair in a flat, ordered document representation,
// used by MergeFlat where map iteration order would lose the
// alphabetical contract the spec calls for.
type KV struct {
	Key   string
	Value interface{}
}

func joinKey(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + ObjectDivider + child
}

func arrayKey(parent string, i int) string {
	return joinKey(parent, "["+strconv.Itoa(i)+"]")
}

func parseArrayIndex(seg string) (int, bool) {
	if len(seg) < 3 || seg[0] != '[' || seg[len(seg)-1] != ']' {
		return 0, false
	}
	n, err := strconv.Atoi(seg[1 : len(seg)-1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Flatten reduces v to a flat map of "/"-joined keys to scalars or
// empty containers. Empty arrays and objects are kept as leaves so
// Unflatten can reconstruct their (empty) shape.
func Flatten(v interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	flattenInto("", v, out)
	return out
}

func flattenInto(prefix string, v interface{}, out map[string]interface{}) {
	switch t := v.(type) {
	case map[string]interface{}:
		if len(t) == 0 {
			out[prefix] = map[string]interface{}{}
			return
		}
		for k, val := range t {
			flattenInto(joinKey(prefix, k), val, out)
		}
	case []interface{}:
		if len(t) == 0 {
			out[prefix] = []interface{}{}
			return
		}
		for i, val := range t {
			flattenInto(arrayKey(prefix, i), val, out)
		}
	default:
		out[prefix] = v
	}
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Unflatten reconstructs a nested value from a flat map produced by
// Flatten (or hand-built the same way). When the map holds both a
// scalar at "a/b" and a container under "a/b/c", the object wins: the
// scalar is discarded in favor of descending further, regardless of
// which key is processed first.
func Unflatten(flat map[string]interface{}) interface{} {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var root interface{}
	for _, k := range keys {
		segments := splitPath(k)
		if len(segments) == 0 {
			root = flat[k]
			continue
		}
		if len(segments) > MaxDeepUnflatten {
			segments = segments[:MaxDeepUnflatten]
		}
		root = setPath(root, segments, flat[k])
	}
	if root == nil {
		root = map[string]interface{}{}
	}
	return root
}

func setPath(container interface{}, segments []string, value interface{}) interface{} {
	seg := segments[0]
	rest := segments[1:]

	if idx, ok := parseArrayIndex(seg); ok {
		arr, _ := container.([]interface{})
		for len(arr) <= idx {
			arr = append(arr, nil)
		}
		if len(rest) == 0 {
			arr[idx] = value
		} else {
			arr[idx] = setPath(arr[idx], rest, value)
		}
		return arr
	}

	obj, ok := container.(map[string]interface{})
	if !ok {
		obj = map[string]interface{}{}
	}
	if len(rest) == 0 {
		obj[seg] = value
		return obj
	}
	child := obj[seg]
	switch child.(type) {
	case map[string]interface{}, []interface{}:
		// A container already lives here; descend into it.
	default:
		child = nil
	}
	obj[seg] = setPath(child, rest, value)
	return obj
}

// Find descends obj following path, which may be a "/"-joined string,
// a []string, or a []interface{} of segments (each stringified). Both
// "[i]"-wrapped and bare numeric segments address array elements.
// Find returns ok=false the moment it meets a nil or non-container
// value it still needs to descend through.
func Find(path interface{}, obj interface{}) (interface{}, bool) {
	var segments []string
	switch p := path.(type) {
	case string:
		segments = splitPath(p)
	case []string:
		segments = p
	case []interface{}:
		for _, e := range p {
			segments = append(segments, fmt.Sprint(e))
		}
	default:
		return nil, false
	}

	cur := obj
	for _, seg := range segments {
		if cur == nil {
			return nil, false
		}
		if idx, ok := parseArrayIndex(seg); ok {
			arr, isArr := cur.([]interface{})
			if !isArr || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
			continue
		}
		if n, err := strconv.Atoi(seg); err == nil {
			if arr, isArr := cur.([]interface{}); isArr {
				if n < 0 || n >= len(arr) {
					return nil, false
				}
				cur = arr[n]
				continue
			}
		}
		m, isMap := cur.(map[string]interface{})
		if !isMap {
			return nil, false
		}
		v, exists := m[seg]
		if !exists {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Merge deep-merges source over target: objects recurse key by key,
// arrays in source replace arrays in target wholesale, and scalars
// override. Neither target nor source is mutated; Merge always
// returns a fresh value.
func Merge(target, source interface{}) interface{} {
	tm, tIsMap := target.(map[string]interface{})
	sm, sIsMap := source.(map[string]interface{})
	if tIsMap && sIsMap {
		out := make(map[string]interface{}, len(tm)+len(sm))
		for k, v := range tm {
			out[k] = cloneValue(v)
		}
		for k, v := range sm {
			if existing, ok := out[k]; ok {
				out[k] = Merge(existing, v)
			} else {
				out[k] = cloneValue(v)
			}
		}
		return out
	}
	return cloneValue(source)
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// MergeFlat merges two ordered lists of flat [key,value] pairs,
// override winning over base, and returns the result sorted
// alphabetically by key. A key ending in "/"+referenceKey (default
// ReferenceKey) whose value is an object splices that object's
// properties in at the parent path instead of keeping the $ref key
// itself. A plain object value at any other key is flattened one
// level, its properties merged under that key.
func MergeFlat(base, override []KV, referenceKey string) []KV {
	if referenceKey == "" {
		referenceKey = ReferenceKey
	}
	merged := map[string]interface{}{}
	apply := func(pairs []KV) {
		for _, kv := range pairs {
			k, v := kv.Key, kv.Value
			if strings.HasSuffix(k, "/"+referenceKey) {
				if obj, ok := v.(map[string]interface{}); ok {
					parent := strings.TrimSuffix(k, "/"+referenceKey)
					for pk, pv := range obj {
						merged[joinKey(parent, pk)] = pv
					}
					continue
				}
			}
			if obj, ok := v.(map[string]interface{}); ok {
				for pk, pv := range obj {
					merged[joinKey(k, pk)] = pv
				}
				continue
			}
			merged[k] = v
		}
	}
	apply(base)
	apply(override)

	out := make([]KV, 0, len(merged))
	for k, v := range merged {
		out = append(out, KV{k, v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// FlatSiblings returns the keys of flat that share key's parent (the
// portion of key up to its last "/", or parentKey when given
// explicitly), excluding key itself, restricted to entries at the
// same depth or deeper.
func FlatSiblings(flat map[string]interface{}, key, parentKey string) []string {
	if parentKey == "" {
		if idx := strings.LastIndex(key, ObjectDivider); idx >= 0 {
			parentKey = key[:idx]
		}
	}
	keyDepth := strings.Count(key, ObjectDivider)

	var out []string
	for k := range flat {
		if k == key {
			continue
		}
		if parentKey != "" && !strings.HasPrefix(k, parentKey+ObjectDivider) {
			continue
		}
		if strings.Count(k, ObjectDivider) < keyDepth {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PathParents returns the ordered ancestor paths of path (root first,
// path's own parent last), each with suffix appended if non-empty.
// When avoidRoot is true the empty root entry is omitted.
func PathParents(path, suffix string, avoidRoot bool) []string {
	segments := splitPath(path)
	var out []string
	withSuffix := func(p string) string {
		if suffix == "" {
			return p
		}
		return joinKey(p, suffix)
	}
	if !avoidRoot {
		out = append(out, withSuffix(""))
	}
	cur := ""
	for i := 0; i < len(segments)-1; i++ {
		cur = joinKey(cur, segments[i])
		out = append(out, withSuffix(cur))
	}
	return out
}
