// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLMapZeroTTLNeverExpires(t *testing.T) {
	m := NewTTLMap(0)
	m.Set("a", 1)
	time.Sleep(5 * time.Millisecond)
	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestTTLMapExpires(t *testing.T) {
	m := NewTTLMap(5 * time.Millisecond)
	m.Set("a", 1)
	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	time.Sleep(15 * time.Millisecond)
	_, ok = m.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, m.Len())
}

func TestTTLMapDeleteAndKeys(t *testing.T) {
	m := NewTTLMap(time.Hour)
	m.Set("a", 1)
	m.Set("b", 2)
	require.ElementsMatch(t, []string{"a", "b"}, m.Keys())

	m.Delete("a")
	require.False(t, m.Has("a"))
	require.True(t, m.Has("b"))
}

func TestTTLMapRange(t *testing.T) {
	m := NewTTLMap(0)
	m.Set("a", 1)
	m.Set("b", 2)

	seen := map[string]interface{}{}
	m.Range(func(k string, v interface{}) bool {
		seen[k] = v
		return true
	})
	require.Equal(t, map[string]interface{}{"a": 1, "b": 2}, seen)
}
