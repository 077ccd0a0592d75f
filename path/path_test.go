// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package path

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		segments []string
		want     string
	}{
		{[]string{"a", "b"}, "a/b"},
		{[]string{"a/", "b/"}, "a/b/"},
		{[]string{"/a", "b"}, "/a/b"},
		{[]string{"a", "/b"}, "/b"},
		{[]string{"/a/b", ".."}, "/a"},
		{[]string{"/", ".."}, "/"},
		{[]string{"/a", "..", ".."}, "/"},
		{[]string{"a//b"}, "a/b"},
		{[]string{"./a", "./b"}, "a/b"},
		{[]string{"https://example.com", "a", "b"}, "https://example.com/a/b"},
		{[]string{"https://example.com/a", ".."}, "https://example.com/"},
	}
	for _, tc := range tests {
		if got := Normalize(tc.segments...); got != tc.want {
			t.Errorf("Normalize(%v) = %q, want %q", tc.segments, got, tc.want)
		}
	}
}

func TestResolveSync(t *testing.T) {
	if got, want := ResolveSync(".", ".", "/root", "dir/"), "/root/dir/"; got != want {
		t.Errorf("ResolveSync = %q, want %q", got, want)
	}
	if got := ResolveSync("/cwd/", "/root/", "dir"); got == "" {
		t.Errorf("ResolveSync returned empty string")
	}
}

func TestDirname(t *testing.T) {
	tests := []struct{ uri, want string }{
		{"/", "/"},
		{"a", "/"},
		{"a/b", "a/"},
		{"/a/b", "/a/"},
		{"/a/b/", "/a/"},
	}
	for _, tc := range tests {
		if got := Dirname(tc.uri); got != tc.want {
			t.Errorf("Dirname(%q) = %q, want %q", tc.uri, got, tc.want)
		}
	}
}

func TestBasename(t *testing.T) {
	if got, want := Basename("/a/b.json", nil), "b.json"; got != want {
		t.Errorf("Basename = %q, want %q", got, want)
	}
	if got, want := Basename("/a/b.json", true), "b"; got != want {
		t.Errorf("Basename(removeSuffix=true) = %q, want %q", got, want)
	}
	if got, want := Basename("/a/.gitignore", true), ".gitignore"; got != want {
		t.Errorf("Basename(dotfile) = %q, want %q", got, want)
	}
	if got, want := Basename("/a/dir/", nil), "dir/"; got != want {
		t.Errorf("Basename(dir) = %q, want %q", got, want)
	}
	if got, want := Basename("/a/b.txt", ".txt"), "b"; got != want {
		t.Errorf("Basename(suffix string) = %q, want %q", got, want)
	}
}

func TestExtname(t *testing.T) {
	tests := []struct{ uri, want string }{
		{"/dir/", ""},
		{"/a/b.JSON", ".json"},
		{"/a/b", ""},
		{"/a/.gitignore", ""},
		{"/a/archive.tar.gz", ".gz"},
	}
	for _, tc := range tests {
		if got := Extname(tc.uri); got != tc.want {
			t.Errorf("Extname(%q) = %q, want %q", tc.uri, got, tc.want)
		}
	}
}

func TestRelative(t *testing.T) {
	if got, want := Relative("/a/", "/a/b"), "b"; got != want {
		t.Errorf("Relative = %q, want %q", got, want)
	}
	if got, want := Relative("/a", "/b/c"), "/b/c"; got != want {
		t.Errorf("Relative (not under) = %q, want %q", got, want)
	}
	if got, want := Relative("a", "/b"), "/b"; got != want {
		t.Errorf("Relative (from not absolute) = %q, want %q", got, want)
	}
}

func TestIsRemoteAndAbsolute(t *testing.T) {
	if !IsRemote("https://example.com/a") {
		t.Error("expected remote URI to be detected")
	}
	if IsRemote("/a/b") {
		t.Error("did not expect a local path to be remote")
	}
	if !IsAbsolute("/a") || !IsAbsolute("https://x/y") {
		t.Error("expected both rooted and remote URIs to be absolute")
	}
	if IsAbsolute("a/b") {
		t.Error("did not expect a relative path to be absolute")
	}
}
