// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	doc := map[string]interface{}{
		"name": "ada",
		"tags": []interface{}{"a", "b"},
		"nested": map[string]interface{}{
			"empty":     map[string]interface{}{},
			"emptyList": []interface{}{},
		},
	}
	flat := Flatten(doc)
	require.Equal(t, "ada", flat["name"])
	require.Equal(t, "a", flat["tags/[0]"])
	require.Equal(t, "b", flat["tags/[1]"])

	got := Unflatten(flat)
	require.Equal(t, doc, got)
}

func TestUnflattenObjectWinsOverScalar(t *testing.T) {
	flat := map[string]interface{}{
		"a/b":   "scalar",
		"a/b/c": "nested",
	}
	got := Unflatten(flat).(map[string]interface{})
	inner := got["a"].(map[string]interface{})["b"].(map[string]interface{})
	require.Equal(t, "nested", inner["c"])
}

func TestFind(t *testing.T) {
	obj := map[string]interface{}{
		"a": map[string]interface{}{
			"b": []interface{}{"x", "y"},
		},
	}
	v, ok := Find("a/b/[1]", obj)
	require.True(t, ok)
	require.Equal(t, "y", v)

	v, ok = Find("a/b/1", obj)
	require.True(t, ok)
	require.Equal(t, "y", v)

	_, ok = Find("a/missing/x", obj)
	require.False(t, ok)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	a := map[string]interface{}{"x": 1, "arr": []interface{}{1, 2}}
	b := map[string]interface{}{"y": 2, "arr": []interface{}{3}}
	m := Merge(a, b).(map[string]interface{})

	require.Equal(t, map[string]interface{}{"x": 1, "arr": []interface{}{1, 2}}, a)
	require.Equal(t, map[string]interface{}{"y": 2, "arr": []interface{}{3}}, b)
	require.Equal(t, 1, m["x"])
	require.Equal(t, 2, m["y"])
	require.Equal(t, []interface{}{3}, m["arr"])
}

func TestMergeObjectsRecurse(t *testing.T) {
	a := map[string]interface{}{"nested": map[string]interface{}{"x": 1, "y": 1}}
	b := map[string]interface{}{"nested": map[string]interface{}{"y": 2}}
	m := Merge(a, b).(map[string]interface{})
	require.Equal(t, map[string]interface{}{"x": 1, "y": 2}, m["nested"])
}

func TestMergeFlatWithReferenceKeyAndNestedObject(t *testing.T) {
	base := []KV{{Key: "a/$ref", Value: map[string]interface{}{"x": 1}}}
	override := []KV{{Key: "b", Value: map[string]interface{}{"y": 2}}}
	merged := MergeFlat(base, override, "")
	require.Equal(t, []KV{{Key: "a/x", Value: 1}, {Key: "b/y", Value: 2}}, merged)
}

func TestFlatSiblings(t *testing.T) {
	flat := map[string]interface{}{
		"a/x": 1,
		"a/y": 2,
		"a/z/w": 3,
		"b":   4,
	}
	got := FlatSiblings(flat, "a/x", "")
	require.Equal(t, []string{"a/y", "a/z/w"}, got)
}

func TestPathParents(t *testing.T) {
	got := PathParents("a/b/c", "", false)
	require.Equal(t, []string{"", "a", "a/b"}, got)

	got = PathParents("a/b/c", "", true)
	require.Equal(t, []string{"a", "a/b"}, got)

	got = PathParents("a/b", "_", false)
	require.Equal(t, []string{"_", "a/_"}, got)
}
