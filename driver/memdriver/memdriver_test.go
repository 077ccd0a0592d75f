// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memdriver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadStatDelete(t *testing.T) {
	d := New()
	ctx := context.Background()

	ok, err := d.Write(ctx, "/a.json", "hello")
	require.NoError(t, err)
	require.True(t, ok)

	v, ok, err := d.Read(ctx, "/a.json", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", v)

	s, ok, err := d.Stat(ctx, "/a.json")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, s.IsFile)

	ok, err = d.Delete(ctx, "/a.json")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = d.Read(ctx, "/a.json", nil)
	require.False(t, ok)
}

func TestListDir(t *testing.T) {
	d := New()
	ctx := context.Background()
	d.Write(ctx, "/dir/a.json", "a")
	d.Write(ctx, "/dir/sub/b.json", "b")

	names, ok, err := d.ListDir(ctx, "/dir")
	require.NoError(t, err)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"a.json", "sub/"}, names)
}

func TestMove(t *testing.T) {
	d := New()
	ctx := context.Background()
	d.Write(ctx, "/a.json", "v")
	ok, err := d.Move(ctx, "/a.json", "/b.json")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = d.Read(ctx, "/a.json", nil)
	require.False(t, ok)
	v, ok, _ := d.Read(ctx, "/b.json", nil)
	require.True(t, ok)
	require.Equal(t, "v", v)
}
