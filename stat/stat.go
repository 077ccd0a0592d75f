// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stat defines the metadata record (Stat) and directory-entry
// descriptor (Entry) the engine attaches to every URI. It follows the
// plain-struct-with-derived-accessors style of upspin.io/upspin.go's
// DirEntry, generalized from Upspin's packing metadata to a POSIX-ish
// stat record.
package stat // import "docspace.io/stat"

import (
	"reflect"
	"strings"
	"time"

	"docspace.io/path"
)

// Stat is a metadata record for a document or directory. Its boolean
// flags are mutually exclusive in canonical form: IsFile and
// IsDirectory are never both set once Normalize has run.
type Stat struct {
	AtimeMs, BtimeMs, CtimeMs, MtimeMs int64
	Size                               int64
	Mode                               uint32
	Uid, Gid                           uint32
	Ino                                uint64
	Dev, Rdev                          uint64
	Nlink                              uint32
	Blksize                            int64
	Blocks                             int64

	IsFile         bool
	IsDirectory    bool
	IsBlockDevice  bool
	IsFIFO         bool
	IsSocket       bool
	IsSymbolicLink bool

	Err error
}

// Exists reports whether this record describes a real entry, as
// opposed to a zero-value placeholder: true iff any of Size, MtimeMs
// or Blksize is positive.
func (s *Stat) Exists() bool {
	if s == nil {
		return false
	}
	return s.Size > 0 || s.MtimeMs > 0 || s.Blksize > 0
}

// Type returns the short-form type code: 'F' for a file, 'D' for a
// directory, '?' otherwise.
func (s *Stat) Type() byte {
	switch {
	case s == nil:
		return '?'
	case s.IsFile:
		return 'F'
	case s.IsDirectory:
		return 'D'
	default:
		return '?'
	}
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Atime, Btime, Ctime and Mtime return Date-like views over the
// corresponding millisecond fields.
func (s *Stat) Atime() time.Time { return msToTime(s.AtimeMs) }
func (s *Stat) Btime() time.Time { return msToTime(s.BtimeMs) }
func (s *Stat) Ctime() time.Time { return msToTime(s.CtimeMs) }
func (s *Stat) Mtime() time.Time { return msToTime(s.MtimeMs) }

// Normalize keeps IsFile and IsDirectory from both being set by
// clearing IsDirectory when both are; a Stat with neither set is left
// as it is. The short-form "type" field is expanded by New, not here.
func (s *Stat) Normalize() {
	if s.IsFile && s.IsDirectory {
		s.IsDirectory = false
	}
}

// resolveThunk evaluates v if it is a zero-argument function (a
// "thunk" bound to a stat-like source), otherwise returns v unchanged.
// This is how New accepts "booleans or thunks" for any field.
func resolveThunk(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Func && rv.Type().NumIn() == 0 && rv.Type().NumOut() == 1 {
		return rv.Call(nil)[0].Interface()
	}
	return v
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	}
	return 0
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

// New builds a Stat from a field map whose values may be the concrete
// field value or a thunk (func() T) resolved eagerly. An entry named
// "type" of "F" or "D" expands to IsFile/IsDirectory.
func New(fields map[string]interface{}) *Stat {
	s := &Stat{}
	for k, raw := range fields {
		v := resolveThunk(raw)
		switch strings.ToLower(k) {
		case "atimems":
			s.AtimeMs = asInt64(v)
		case "btimems":
			s.BtimeMs = asInt64(v)
		case "ctimems":
			s.CtimeMs = asInt64(v)
		case "mtimems":
			s.MtimeMs = asInt64(v)
		case "size":
			s.Size = asInt64(v)
		case "mode":
			s.Mode = uint32(asInt64(v))
		case "uid":
			s.Uid = uint32(asInt64(v))
		case "gid":
			s.Gid = uint32(asInt64(v))
		case "ino":
			s.Ino = uint64(asInt64(v))
		case "dev":
			s.Dev = uint64(asInt64(v))
		case "rdev":
			s.Rdev = uint64(asInt64(v))
		case "nlink":
			s.Nlink = uint32(asInt64(v))
		case "blksize":
			s.Blksize = asInt64(v)
		case "blocks":
			s.Blocks = asInt64(v)
		case "isfile":
			s.IsFile = asBool(v)
		case "isdirectory":
			s.IsDirectory = asBool(v)
		case "isblockdevice":
			s.IsBlockDevice = asBool(v)
		case "isfifo":
			s.IsFIFO = asBool(v)
		case "issocket":
			s.IsSocket = asBool(v)
		case "issymboliclink":
			s.IsSymbolicLink = asBool(v)
		case "error":
			if err, ok := v.(error); ok {
				s.Err = err
			}
		case "type":
			switch v {
			case "F":
				s.IsFile = true
			case "D":
				s.IsDirectory = true
			}
		}
	}
	s.Normalize()
	return s
}

// From is idempotent: a *Stat argument is returned unchanged, a
// map[string]interface{} is passed to New, and anything else yields a
// zero Stat.
func From(input interface{}) *Stat {
	switch v := input.(type) {
	case *Stat:
		return v
	case map[string]interface{}:
		return New(v)
	default:
		return &Stat{}
	}
}

// Entry describes a directory entry: its name, full path, parent
// directory and depth, plus the Stat describing it (which may still
// be unfulfilled, i.e. incomplete).
type Entry struct {
	Name      string
	Path      string
	Parent    string
	Depth     int
	Stat      *Stat
	Fulfilled bool
}

// NewEntry builds an Entry for path. Name, Parent and Depth are
// derived from path via the path package unless explicitly overridden
// by a non-empty/non-zero value in fields.
func NewEntry(p string, fields map[string]interface{}) *Entry {
	e := &Entry{
		Path:   p,
		Name:   path.Basename(p, nil),
		Parent: path.Dirname(p),
		Depth:  depthOf(p),
	}
	for k, v := range fields {
		switch strings.ToLower(k) {
		case "name":
			if s, ok := v.(string); ok && s != "" {
				e.Name = s
			}
		case "parent":
			if s, ok := v.(string); ok && s != "" {
				e.Parent = s
			}
		case "depth":
			if d, ok := v.(int); ok {
				e.Depth = d
			}
		case "stat":
			e.Stat = From(v)
		case "fulfilled":
			e.Fulfilled = asBool(v)
		}
	}
	return e
}

func depthOf(p string) int {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/") + 1
}

// EntryFrom is idempotent: an *Entry argument is returned unchanged.
func EntryFrom(input interface{}) *Entry {
	switch v := input.(type) {
	case *Entry:
		return v
	case string:
		return NewEntry(v, nil)
	default:
		return &Entry{}
	}
}
