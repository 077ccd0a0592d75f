// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package docspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"docspace.io/driver/memdriver"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db := New(Options{Options: NewOptions().Options, Driver: memdriver.New()})
	require.NoError(t, db.Connect(context.Background()))
	return db
}

func TestConnectIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Connect(context.Background()))
	require.True(t, db.connected)
}

func TestSetThenGetHitsCache(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.Set(ctx, "/a/b.json", map[string]interface{}{"x": 1.0}, nil))

	var hits int
	db.On("cache", func(p EventPayload) {
		if p.Hit {
			hits++
		}
	})

	v, err := db.Get(ctx, "/a/b.json", nil, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"x": 1.0}, v)
	require.Equal(t, 1, hits)
}

func TestGetMissingReturnsDefaultAndCachesMiss(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	v, err := db.Get(ctx, "/nope.json", "fallback", nil)
	require.NoError(t, err)
	require.Equal(t, "fallback", v)

	raw, ok := db.data.Get(db.resolve("/nope.json"))
	require.True(t, ok)
	c, ok := raw.(Cached)
	require.True(t, ok)
	require.Equal(t, Missing, c.State)
}

func TestSaveDocumentWritesThroughDriver(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.SaveDocument(ctx, "/docs/a.json", map[string]interface{}{"ok": true}, nil))

	raw, ok, err := db.drv.Read(ctx, "/docs/a.json", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, map[string]interface{}{"ok": true}, raw)

	v, err := db.Get(ctx, "/docs/a.json", nil, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"ok": true}, v)
}

func TestDropDocumentRemovesFromDriverAndCache(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.SaveDocument(ctx, "/a.json", "x", nil))

	require.NoError(t, db.DropDocument(ctx, "/a.json", nil))

	_, ok, _ := db.drv.Read(ctx, "/a.json", nil)
	require.False(t, ok)

	_, ok = db.data.Get("/a.json")
	require.False(t, ok)
}

func TestDropDocumentMissingReturnsNotExist(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	err := db.DropDocument(ctx, "/missing.json", nil)
	require.Error(t, err)
}

func TestMoveDocumentUsesDriverMove(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.SaveDocument(ctx, "/old.json", "hi", nil))

	require.NoError(t, db.MoveDocument(ctx, "/old.json", "/new.json", nil))

	_, ok, _ := db.drv.Read(ctx, "/old.json", nil)
	require.False(t, ok)

	v, err := db.Get(ctx, "/new.json", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "hi", v)
}

func TestWriteDocumentAppendsThroughDriver(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.WriteDocument(ctx, "/log.txt", []byte("a"), nil))
	require.NoError(t, db.WriteDocument(ctx, "/log.txt", []byte("b"), nil))

	raw, ok, err := db.drv.Read(ctx, "/log.txt", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ab", raw)
}

func TestPushSyncsDirtyCacheEntries(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Set(ctx, "/dirty.json", "v", nil))

	saved, err := db.Push(ctx, nil)
	require.NoError(t, err)
	require.Contains(t, saved, "/dirty.json")

	raw, ok, err := db.drv.Read(ctx, "/dirty.json", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", raw)
}

func TestListDirReturnsImmediateChildrenOnly(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.SaveDocument(ctx, "/dir/a.json", "a", nil))
	require.NoError(t, db.SaveDocument(ctx, "/dir/sub/b.json", "b", nil))

	entries, err := db.ListDir(ctx, "/dir/", nil)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	require.Contains(t, names, "a.json")
	require.NotContains(t, names, "b.json")
}

func TestIsData(t *testing.T) {
	db := newTestDB(t)
	require.True(t, db.IsData("/a.json"))
	require.True(t, db.IsData("/a"))
	require.False(t, db.IsData("/a.bin"))
}

func TestExtractCopiesSubtreeOnly(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Set(ctx, "/a/one.json", 1.0, nil))
	require.NoError(t, db.Set(ctx, "/b/two.json", 2.0, nil))

	sub := db.Extract("/a/")
	v, err := sub.Get(ctx, "/one.json", nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1.0, v)

	_, err = sub.Get(ctx, "/two.json", nil, nil)
	require.NoError(t, err)
}

func TestMountDelegatesOperations(t *testing.T) {
	ctx := context.Background()
	outer := newTestDB(t)
	inner := newTestDB(t)
	require.NoError(t, inner.Set(ctx, "/x.json", "inner-value", nil))

	require.NoError(t, outer.Mount("/sub", inner))

	v, err := outer.Get(ctx, "/sub/x.json", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "inner-value", v)

	outer.Unmount("/sub")
	_, subURI := outer.findMount("/sub/x.json")
	require.Equal(t, "", subURI)
}

func TestAttachDetachFallbackChain(t *testing.T) {
	ctx := context.Background()
	primary := newTestDB(t)
	fallback := newTestDB(t)
	require.NoError(t, fallback.SaveDocument(ctx, "/shared.json", "from-fallback", nil))

	require.NoError(t, primary.Attach(fallback))

	v, err := primary.Fetch(ctx, "/shared.json", nil)
	require.NoError(t, err)
	require.Equal(t, "from-fallback", v)

	primary.Detach(fallback)
	require.Empty(t, primary.dbs)
}

func TestAttachNilReturnsError(t *testing.T) {
	db := newTestDB(t)
	err := db.Attach(nil)
	require.Error(t, err)
}
