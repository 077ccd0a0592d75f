// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config builds the immutable Options a DB is constructed
// from. It follows upspin.io/config's decorator pattern: Options is
// unexported-field-free and copied by value, and each WithXxx returns a
// new Options rather than mutating the receiver, so a config handed to
// one DB can't be silently changed out from under it by another.
package config // import "docspace.io/config"

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"docspace.io/errors"
)

// DefaultDataExtensions is the authoritative set of extensions the
// engine treats as structured or renderable documents, resolving the
// spec's historical divergence between isData and DATA_EXTNAMES in
// favor of a single list used everywhere.
var DefaultDataExtensions = []string{".json", ".yaml", ".yml", ".nano", ".html", ".xml", ".md"}

// Options is the full set of knobs a DB can be constructed from. Its
// zero value is not useful; call New to obtain one with every default
// populated.
type Options struct {
	Cwd            string
	Root           string
	TTL            int64 // milliseconds; 0 disables TTL eviction
	DataExtensions []string
	DirectoryFile  string // reserved inheritance file basename per directory, default "_"
	GlobalsDir     string // reserved globals directory name per directory, default "_"
	IndexBaseName  string // reserved base name for compact directory indexes, default "index"
}

// New returns an Options populated with the engine's defaults: cwd and
// root at "/", no TTL, the default data extensions, "_" as both the
// inheritance directory file and the globals directory name, and
// "index" as the compact index base name.
func New() Options {
	return Options{
		Cwd:            "/",
		Root:           "/",
		TTL:            0,
		DataExtensions: append([]string(nil), DefaultDataExtensions...),
		DirectoryFile:  "_",
		GlobalsDir:     "_",
		IndexBaseName:  "index",
	}
}

// WithCwd returns a copy of o with Cwd set to cwd.
func (o Options) WithCwd(cwd string) Options { o.Cwd = cwd; return o }

// WithRoot returns a copy of o with Root set to root.
func (o Options) WithRoot(root string) Options { o.Root = root; return o }

// WithTTL returns a copy of o with TTL set to ttlMillis.
func (o Options) WithTTL(ttlMillis int64) Options { o.TTL = ttlMillis; return o }

// WithDataExtensions returns a copy of o with DataExtensions replaced.
func (o Options) WithDataExtensions(exts []string) Options {
	o.DataExtensions = append([]string(nil), exts...)
	return o
}

// yamlOptions mirrors Options' visible fields under lowercase YAML
// keys, the way upspin.io/config's parser names its own keys.
type yamlOptions struct {
	Cwd            string   `yaml:"cwd"`
	Root           string   `yaml:"root"`
	TTL            int64    `yaml:"ttl"`
	DataExtensions []string `yaml:"dataExtensions"`
	DirectoryFile  string   `yaml:"directoryFile"`
	GlobalsDir     string   `yaml:"globalsDir"`
	IndexBaseName  string   `yaml:"indexBaseName"`
}

// Parse decodes a YAML config document, starting from New()'s
// defaults and overriding only the keys present in data. An unknown
// top-level key is a Syntax error, matching the teacher's
// known-keys-only discipline.
func Parse(data []byte) (Options, error) {
	const op errors.Op = "config.Parse"
	opts := New()
	var y yamlOptions
	if err := yaml.UnmarshalStrict(data, &y); err != nil {
		return Options{}, errors.E(op, errors.Syntax, err)
	}
	if y.Cwd != "" {
		opts.Cwd = y.Cwd
	}
	if y.Root != "" {
		opts.Root = y.Root
	}
	if y.TTL != 0 {
		opts.TTL = y.TTL
	}
	if len(y.DataExtensions) > 0 {
		opts.DataExtensions = y.DataExtensions
	}
	if y.DirectoryFile != "" {
		opts.DirectoryFile = y.DirectoryFile
	}
	if y.GlobalsDir != "" {
		opts.GlobalsDir = y.GlobalsDir
	}
	if y.IndexBaseName != "" {
		opts.IndexBaseName = y.IndexBaseName
	}
	return opts, nil
}

// FromFile reads and parses a YAML config document at path.
func FromFile(path string) (Options, error) {
	const op errors.Op = "config.FromFile"
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, errors.E(op, path, errors.IO, err)
	}
	opts, err := Parse(data)
	if err != nil {
		return Options{}, errors.E(op, path, err)
	}
	return opts, nil
}

// Homedir returns the user's home directory, used to locate a default
// config path when none is given explicitly.
func Homedir() (string, error) {
	const op errors.Op = "config.Homedir"
	h, err := os.UserHomeDir()
	if err != nil {
		return "", errors.E(op, errors.IO, err)
	}
	return h, nil
}

// DefaultConfigPath returns "<home>/.config/docspace/config.yaml".
func DefaultConfigPath() (string, error) {
	home, err := Homedir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docspace", "config.yaml"), nil
}
