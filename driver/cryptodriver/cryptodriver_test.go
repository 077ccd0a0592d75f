// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cryptodriver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"docspace.io/driver/memdriver"
)

func TestRoundTripThroughInnerDriver(t *testing.T) {
	inner := memdriver.New()
	var key [KeySize]byte
	for i := range key {
		key[i] = byte(i)
	}
	d := New(inner, key)
	ctx := context.Background()

	ok, err := d.Write(ctx, "/secret.json", map[string]interface{}{"v": float64(7)})
	require.NoError(t, err)
	require.True(t, ok)

	rawInner, ok, err := inner.Read(ctx, "/secret.json", nil)
	require.NoError(t, err)
	require.True(t, ok)
	if s, isStr := rawInner.(string); isStr {
		require.NotContains(t, s, "7")
	}

	v, ok, err := d.Read(ctx, "/secret.json", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, map[string]interface{}{"v": float64(7)}, v)
}
