// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsdriver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadDeleteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	d := New(dir)
	ctx := context.Background()
	require.NoError(t, d.Connect(ctx, nil))

	ok, err := d.Write(ctx, "/a/b.json", map[string]interface{}{"x": float64(1)})
	require.NoError(t, err)
	require.True(t, ok)

	v, ok, err := d.Read(ctx, "/a/b.json", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, map[string]interface{}{"x": float64(1)}, v)

	names, ok, err := d.ListDir(ctx, "/a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, names, "b.json")

	ok, err = d.Delete(ctx, "/a/b.json")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = d.Read(ctx, "/a/b.json", nil)
	require.NoError(t, err)
	require.False(t, ok)
}
