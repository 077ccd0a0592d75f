// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rows := []Row{
		{Name: "dir/", MtimeMs: 1234567, Size: 0},
		{Name: "file1.txt", MtimeMs: 999999, Size: 2048},
	}
	Sort(rows)
	text := Encode(rows, nil)

	decoded, err := Decode(text)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for i := range rows {
		require.Equal(t, rows[i].Name, decoded[i].Name)
		require.Equal(t, rows[i].MtimeMs, decoded[i].MtimeMs)
		require.Equal(t, rows[i].Size, decoded[i].Size)
	}
}

func TestDecodeTextWithHeader(t *testing.T) {
	text := "long\ninc\ncolumns: name, mtimeMs.36, size.36\n---\nfile.txt qvjhc0 2s\n"
	rows, err := Decode(text)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "file.txt", rows[0].Name)
}

func TestIsIndexAndIsFullIndex(t *testing.T) {
	require.True(t, IsIndex("/a/index.txt"))
	require.False(t, IsIndex("/a/index.txtl"))
	require.True(t, IsFullIndex("/a/index.txtl"))
}

func TestGetIndexesToUpdate(t *testing.T) {
	got := GetIndexesToUpdate("/a/b/", "/")
	require.Equal(t, []string{"/a/b/index.txt", "/a/index.txt", "/index.txt"}, got)
}

func TestDecodeSkipsMalformedRows(t *testing.T) {
	rows, err := Decode([]string{"good.txt qvjhc0 2s", "bad-row-missing-fields"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "good.txt", rows[0].Name)
}
