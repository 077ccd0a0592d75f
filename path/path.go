// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package path implements the engine's URI algebra: normalizing,
// resolving, and splitting the forward-slash paths documents live at.
// A URI is either a local path ("/a/b", "a/b") or a remote one, whose
// leading "scheme://authority" token is carried through every
// operation as an indivisible unit, the way a user name is carried
// through an Upspin path.
package path // import "docspace.io/path"

import (
	"regexp"
	"strings"
)

var remotePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// IsRemote reports whether uri begins with a scheme://authority token.
func IsRemote(uri string) bool {
	return remotePrefix.MatchString(uri)
}

// IsAbsolute reports whether uri is remote or rooted at "/".
func IsAbsolute(uri string) bool {
	return IsRemote(uri) || strings.HasPrefix(uri, "/")
}

// splitRemote splits a remote URI into its scheme://authority token and
// the local path that follows it (always starting with "/", or empty).
func splitRemote(uri string) (prefix, rest string, ok bool) {
	loc := remotePrefix.FindStringIndex(uri)
	if loc == nil {
		return "", uri, false
	}
	afterScheme := loc[1]
	rest = uri[afterScheme:]
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return uri, "", true
	}
	return uri[:afterScheme+slash], rest[slash:], true
}

// Normalize concatenates segments, folds "." and ".." elements, and
// collapses duplicate or empty segments, preserving any trailing
// slash. If a later segment is itself absolute (begins with "/" or is
// remote), every segment before it is discarded: Normalize always
// takes the last absolute anchor it sees.
func Normalize(segments ...string) string {
	start := 0
	for i, s := range segments {
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, "/") || IsRemote(s) {
			start = i
		}
	}
	segments = segments[start:]
	joined := strings.Join(nonEmpty(segments), "/")
	if joined == "" {
		return ""
	}

	prefix, rest, remote := splitRemote(joined)
	if !remote {
		rest = joined
	}
	leadingSlash := remote || strings.HasPrefix(rest, "/")
	trailingSlash := strings.HasSuffix(joined, "/")

	stack := make([]string, 0, strings.Count(rest, "/")+1)
	for _, elem := range strings.Split(rest, "/") {
		switch elem {
		case "", ".":
			// dropped
		case "..":
			// Tie-break: ".." at root yields the current
			// location, it never climbs past the anchor.
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, elem)
		}
	}

	result := strings.Join(stack, "/")
	switch {
	case remote:
		if result != "" {
			result = prefix + "/" + result
		} else {
			result = prefix + "/"
		}
	case leadingSlash:
		result = "/" + result
	}
	if trailingSlash && result != "" && !strings.HasSuffix(result, "/") {
		result += "/"
	}
	if remote && trailingSlash && !strings.HasSuffix(result, "/") {
		result += "/"
	}
	return result
}

func nonEmpty(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Absolute normalizes cwd, root and args together and guarantees the
// result is rooted: if the normalized form has no leading slash and
// cwd is itself local (not remote), a leading "/" is prepended.
func Absolute(cwd, root string, args ...string) string {
	segments := append([]string{cwd, root}, args...)
	result := Normalize(segments...)
	if !IsRemote(cwd) && !strings.HasPrefix(result, "/") {
		result = "/" + result
	}
	return result
}

// ResolveSync returns Normalize(cwd, root, args...), except that when
// the first argument is itself rooted at "/" the cwd and root are
// dropped: the
// argument already names an absolute location and wins outright. For
// example ResolveSync(".", ".", "/root", "dir/") returns "/root/dir/".
func ResolveSync(cwd, root string, args ...string) string {
	if len(args) > 0 && strings.HasPrefix(args[0], "/") {
		return Normalize(args...)
	}
	return Normalize(append([]string{cwd, root}, args...)...)
}

// Dirname returns the parent directory of uri, with a trailing slash.
func Dirname(uri string) string {
	prefix, rest, remote := splitRemote(uri)
	if !remote {
		rest = uri
	}
	trimmed := strings.TrimSuffix(rest, "/")
	slash := strings.LastIndexByte(trimmed, '/')
	var dir string
	switch {
	case rest == "" || rest == "/":
		dir = "/"
	case slash < 0:
		dir = "/"
	case slash == 0:
		dir = "/"
	default:
		dir = trimmed[:slash+1]
	}
	if remote {
		return prefix + dir
	}
	return dir
}

// Basename returns the last segment of uri, preserving a trailing
// slash for directories. If removeSuffix is true, the extension (per
// Extname) is stripped unless the whole segment is a dotfile such as
// ".gitignore". If removeSuffix is a string, that exact suffix is
// stripped when present.
func Basename(uri string, removeSuffix interface{}) string {
	_, rest, remote := splitRemote(uri)
	if !remote {
		rest = uri
	}
	if rest == "" || rest == "/" {
		return rest
	}
	isDir := strings.HasSuffix(rest, "/")
	trimmed := strings.TrimSuffix(rest, "/")
	slash := strings.LastIndexByte(trimmed, '/')
	name := trimmed
	if slash >= 0 {
		name = trimmed[slash+1:]
	}

	switch v := removeSuffix.(type) {
	case bool:
		if v {
			if ext := Extname(name); ext != "" && !isDotfile(name) {
				name = name[:len(name)-len(ext)]
			}
		}
	case string:
		if v != "" && strings.HasSuffix(name, v) {
			name = name[:len(name)-len(v)]
		}
	}
	if isDir {
		name += "/"
	}
	return name
}

func isDotfile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Count(name, ".") == 1
}

// Extname returns the lowercased extension (including the leading
// dot) of uri's final segment, provided that segment has more than
// one dot-separated token. A directory URI (trailing slash) has no
// extension.
func Extname(uri string) string {
	if uri == "" || strings.HasSuffix(uri, "/") {
		return ""
	}
	base := Basename(uri, nil)
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		// No dot, or a leading-dot dotfile with no further dot.
		return ""
	}
	return strings.ToLower(base[dot:])
}

// Relative returns the suffix of to relative to from, when both are
// absolute and to lies under from; otherwise it returns to unchanged.
func Relative(from, to string) string {
	if !IsAbsolute(from) || !IsAbsolute(to) {
		return to
	}
	if !strings.HasPrefix(to, from) {
		return to
	}
	if len(to) == len(from) {
		return ""
	}
	if from == "" || strings.HasSuffix(from, "/") || to[len(from)] == '/' {
		return strings.TrimPrefix(to[len(from):], "/")
	}
	return to
}
