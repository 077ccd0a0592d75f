// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFromThunksAndValues(t *testing.T) {
	s := New(map[string]interface{}{
		"size":    func() interface{} { return 42 },
		"mtimeMs": int64(1000),
		"type":    "F",
	})
	require.Equal(t, int64(42), s.Size)
	require.True(t, s.IsFile)
	require.False(t, s.IsDirectory)
	require.True(t, s.Exists())
	require.Equal(t, byte('F'), s.Type())
}

func TestFromIdempotent(t *testing.T) {
	s := New(map[string]interface{}{"size": int64(1)})
	require.Same(t, s, From(s))
}

func TestExistsFalseOnZeroValue(t *testing.T) {
	s := &Stat{}
	require.False(t, s.Exists())
	require.Equal(t, byte('?'), s.Type())
}

func TestNewEntryDerivesFromPath(t *testing.T) {
	e := NewEntry("/a/b/c.json", nil)
	require.Equal(t, "c.json", e.Name)
	require.Equal(t, "/a/b/", e.Parent)
	require.Equal(t, 3, e.Depth)
}

func TestEntryFromIdempotent(t *testing.T) {
	e := NewEntry("/a", nil)
	require.Same(t, e, EntryFrom(e))
}
