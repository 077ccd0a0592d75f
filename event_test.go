// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package docspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOnReceivesMatchingEventsInOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	var order []string
	db.On("set", func(p EventPayload) { order = append(order, "first:"+p.URI) })
	db.On("set", func(p EventPayload) { order = append(order, "second:"+p.URI) })

	require.NoError(t, db.Set(ctx, "/a.json", "v", nil))
	require.Equal(t, []string{"first:/a.json", "second:/a.json"}, order)
}

func TestSaveEmitsSaveAndChange(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	var types []string
	db.On("save", func(p EventPayload) { types = append(types, "save") })
	db.On("change", func(p EventPayload) { types = append(types, "change") })

	require.NoError(t, db.SaveDocument(ctx, "/a.json", "v", nil))
	require.Equal(t, []string{"save", "change"}, types)
}

func TestWatchMatchesURISegmentPrefix(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	// Set fires both a "set" and a "change" event per call, so a
	// matching watcher sees two notifications per write.
	var seen []string
	unwatch := db.Watch("/a", func(p EventPayload) { seen = append(seen, p.URI) })

	require.NoError(t, db.Set(ctx, "/a/b.json", "v1", nil))
	require.NoError(t, db.Set(ctx, "/ab/c.json", "v2", nil))
	require.NoError(t, db.Set(ctx, "/other.json", "v3", nil))

	require.Equal(t, []string{"/a/b.json", "/a/b.json"}, seen)

	unwatch()
	require.NoError(t, db.Set(ctx, "/a/d.json", "v4", nil))
	require.Equal(t, []string{"/a/b.json", "/a/b.json"}, seen)
}

func TestUnwatchRemovesAllMatchingPrefix(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	var count int
	db.Watch("/a", func(p EventPayload) { count++ })
	db.Watch("/a", func(p EventPayload) { count++ })

	db.Unwatch("/a")
	require.NoError(t, db.Set(ctx, "/a/x.json", "v", nil))
	require.Equal(t, 0, count)
}

func TestEmitFiresAsIfEngineRaisedIt(t *testing.T) {
	db := newTestDB(t)
	var got EventPayload
	db.On("custom", func(p EventPayload) { got = p })

	db.Emit("custom", EventPayload{URI: "/x", Hit: true})
	require.Equal(t, "custom", got.Type)
	require.Equal(t, "/x", got.URI)
}

func TestHasURISegmentPrefix(t *testing.T) {
	require.True(t, hasURISegmentPrefix("/a/b.json", "/a"))
	require.True(t, hasURISegmentPrefix("/a/b.json", "/a/"))
	require.True(t, hasURISegmentPrefix("/a", "/a"))
	require.False(t, hasURISegmentPrefix("/ab/b.json", "/a"))
	require.True(t, hasURISegmentPrefix("/anything", ""))
	require.True(t, hasURISegmentPrefix("/anything", "/"))
}
