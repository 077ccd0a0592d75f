// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package docspace

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/russross/blackfriday"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"

	"docspace.io/access"
	"docspace.io/index"
	"docspace.io/log"
	"docspace.io/path"
	"docspace.io/shape"
)

// FetchOptions controls Fetch's merge pipeline. The zero value is not
// the default: use DefaultFetchOptions for the contract's
// globals=true, inherit=true, refs=true, allowDirs=true baseline.
type FetchOptions struct {
	Globals      bool
	Inherit      bool
	Refs         bool
	AllowDirs    bool
	DefaultValue Value
	Context      *access.Context
}

// DefaultFetchOptions returns the contract's default FetchOptions.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{Globals: true, Inherit: true, Refs: true, AllowDirs: true}
}

// Fetch loads uri through the full merge pipeline: extension probing
// for extensionless URIs, non-data raw loading, and otherwise inherit
// + globals + reference resolution via fetchMerged. The caller
// identity travels as opts.Context, defaulting to the DB's own, so
// Fetch's signature matches Attachable for fallback chaining.
func (db *DB) Fetch(ctx context.Context, uri string, opts *FetchOptions) (Value, error) {
	if err := db.RequireConnected(ctx); err != nil {
		return nil, err
	}
	if opts == nil {
		d := DefaultFetchOptions()
		opts = &d
	}
	if opts.Context == nil {
		opts.Context = db.actx
	}
	norm := db.resolve(uri)
	if sub, subURI := db.findMount(norm); sub != nil {
		return sub.Fetch(ctx, subURI, opts)
	}

	v, err := db.fetchLocal(ctx, norm, opts)
	if err == nil && v != nil {
		return db.hydrate(norm, v), nil
	}

	db.mu.RLock()
	fallbacks := append([]Attachable(nil), db.dbs...)
	db.mu.RUnlock()
	for _, fb := range fallbacks {
		fv, ferr := fb.Fetch(ctx, norm, opts)
		if ferr == nil && fv != nil {
			if sub, ok := fb.(*DB); ok {
				db.emit("fallback", EventPayload{Type: "fallback", URI: norm, From: db, To: sub})
			}
			return db.hydrate(norm, fv), nil
		}
	}
	return opts.DefaultValue, err
}

func (db *DB) fetchLocal(ctx context.Context, norm string, opts *FetchOptions) (Value, error) {
	ext := path.Extname(norm)
	if ext == "" {
		return db.fetchExtensionless(ctx, norm, opts)
	}
	if !db.IsData(norm) {
		return db.loadDocumentAs(ctx, ".txt", norm, opts.DefaultValue, opts.Context)
	}
	return db.fetchMerged(ctx, norm, opts, map[string]bool{})
}

func (db *DB) fetchExtensionless(ctx context.Context, norm string, opts *FetchOptions) (Value, error) {
	if opts.AllowDirs && strings.HasSuffix(norm, "/") {
		for _, ext := range db.opts.DataExtensions {
			candidate := norm + db.opts.IndexBaseName + ext
			if db.driverHas(ctx, candidate) {
				return db.fetchMerged(ctx, candidate, opts, map[string]bool{})
			}
		}
	} else {
		for _, ext := range db.opts.DataExtensions {
			candidate := norm + ext
			if db.driverHas(ctx, candidate) {
				return db.fetchMerged(ctx, candidate, opts, map[string]bool{})
			}
		}
	}
	if opts.AllowDirs {
		for _, ext := range db.opts.DataExtensions {
			candidate := norm
			if !strings.HasSuffix(candidate, "/") {
				candidate += "/"
			}
			candidate += db.opts.IndexBaseName + ext
			if db.driverHas(ctx, candidate) {
				return db.fetchMerged(ctx, candidate, opts, map[string]bool{})
			}
		}
		entries, err := db.ListDir(ctx, norm, opts.Context)
		if err == nil {
			names := make([]string, len(entries))
			for i, e := range entries {
				names[i] = e.Name
			}
			return names, nil
		}
	}
	return opts.DefaultValue, nil
}

func (db *DB) driverHas(ctx context.Context, uri string) bool {
	if db.drv == nil {
		return false
	}
	_, ok, err := db.drv.Read(ctx, uri, nil)
	return err == nil && ok
}

func (db *DB) loadDocumentAs(ctx context.Context, ext, uri string, defaultValue Value, actx *access.Context) (Value, error) {
	raw, err := db.loadDocument(ctx, uri, defaultValue, actx)
	if err != nil {
		return defaultValue, err
	}
	s, isString := raw.(string)
	if !isString {
		return raw, nil
	}
	switch ext {
	case ".yaml", ".yml":
		var v interface{}
		if err := yaml.Unmarshal([]byte(s), &v); err == nil {
			return v, nil
		}
	case ".json":
		var v interface{}
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v, nil
		}
	case ".md":
		return string(blackfriday.MarkdownCommon([]byte(s))), nil
	}
	return raw, nil
}

func (db *DB) extOf(uri string) string {
	ext := path.Extname(uri)
	if ext == "" {
		ext = ".txt"
	}
	return ext
}

// fetchMerged loads uri's raw document and, when it is a non-array
// object, layers inheritance, globals, and reference resolution over
// it (document wins over both, inheritance wins under globals).
func (db *DB) fetchMerged(ctx context.Context, uri string, opts *FetchOptions, visited map[string]bool) (Value, error) {
	if visited[uri] {
		return opts.DefaultValue, nil
	}
	nextVisited := make(map[string]bool, len(visited)+1)
	for k := range visited {
		nextVisited[k] = true
	}
	nextVisited[uri] = true

	raw, err := db.loadDocumentAs(ctx, db.extOf(uri), uri, opts.DefaultValue, opts.Context)
	if err != nil {
		log.Error.Printf("docspace: fetchMerged load %s: %v", uri, err)
		return opts.DefaultValue, nil
	}

	data := raw
	if isNonArrayObject(data) {
		if opts.Inherit {
			data = shape.Merge(db.getInheritance(ctx, path.Dirname(uri), opts), data)
		}
		if opts.Globals {
			data = shape.Merge(db.getGlobals(ctx, uri, opts), data)
		}
		if opts.Refs {
			data = db.resolveReferences(ctx, data, uri, opts, nextVisited)
		}
	}
	if data == nil {
		data = opts.DefaultValue
	}
	return data, nil
}

func isNonArrayObject(v Value) bool {
	_, ok := v.(map[string]interface{})
	return ok
}

// dirAncestors returns the root-first chain of directories leading
// down to dir (inclusive), each carrying a trailing slash: for
// "/a/b/" that is ["/", "/a/", "/a/b/"].
func dirAncestors(dir string) []string {
	trimmed := strings.Trim(dir, "/")
	if trimmed == "" {
		return []string{"/"}
	}
	segments := strings.Split(trimmed, "/")
	out := make([]string, 0, len(segments)+1)
	out = append(out, "/")
	cur := ""
	for _, s := range segments {
		cur += "/" + s
		out = append(out, cur+"/")
	}
	return out
}

// maxInheritanceEntries bounds db.inheritance, the per-directory merged
// inheritance cache: unlike data/meta (bounded by the document set
// itself), the inheritance cache has one entry per distinct directory
// ever fetched from, which on a deep or churning tree can outgrow the
// document set it was built to speed up.
const maxInheritanceEntries = 4096

// getInheritance merges the root directory file down through every
// ancestor of dir, deeper directories winning, memoized per directory
// in an LRU bounded to maxInheritanceEntries.
func (db *DB) getInheritance(ctx context.Context, dir string, opts *FetchOptions) Value {
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	if cached, ok := db.inheritance.Get(dir); ok {
		return cached.(Value)
	}

	var merged Value = map[string]interface{}{}
	for _, d := range dirAncestors(dir) {
		for _, ext := range db.opts.DataExtensions {
			candidate := d + db.opts.DirectoryFile + ext
			v, ok := db.tryReadRaw(ctx, candidate)
			if !ok {
				continue
			}
			if isNonArrayObject(v) {
				merged = shape.Merge(merged, v)
			}
			break
		}
	}

	db.inheritance.Add(dir, merged)
	return merged
}

func (db *DB) tryReadRaw(ctx context.Context, uri string) (Value, bool) {
	if db.drv == nil {
		return nil, false
	}
	v, ok, err := db.drv.Read(ctx, uri, nil)
	if err != nil || !ok {
		return nil, false
	}
	if s, isString := v.(string); isString {
		if decoded, derr := db.loadDocumentAs(ctx, path.Extname(uri), uri, nil, nil); derr == nil && decoded != nil {
			return decoded, true
		}
		return s, true
	}
	return v, true
}

// getGlobals enumerates each ancestor's reserved globals directory and
// loads every file there, keyed by basename with extension stripped.
// Deeper ancestors' globals win.
func (db *DB) getGlobals(ctx context.Context, uri string, opts *FetchOptions) Value {
	dir := path.Dirname(uri)
	merged := map[string]interface{}{}
	for _, d := range dirAncestors(dir) {
		globalsDir := d + db.opts.GlobalsDir + "/"
		if db.drv == nil {
			continue
		}
		names, ok, err := db.drv.ListDir(ctx, globalsDir)
		if err != nil || !ok {
			continue
		}
		for _, name := range names {
			if strings.HasSuffix(name, "/") || name == index.ImmediateIndexName || name == index.FullIndexName {
				continue
			}
			v, ok2 := db.tryReadRaw(ctx, globalsDir+name)
			if !ok2 {
				continue
			}
			key := strings.TrimSuffix(name, path.Extname(name))
			merged[key] = v
		}
	}
	return merged
}

type refSite struct {
	key       string
	parentKey string
	target    string
	fragment  string
	isTopRef  bool
}

func splitFragment(s string) (target, fragment string) {
	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}

func joinFlatKey(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "/" + child
}

func collectRefs(flat map[string]interface{}) []refSite {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var refs []refSite
	for _, k := range keys {
		v := flat[k]
		switch {
		case k == shape.ReferenceKey || strings.HasSuffix(k, "/"+shape.ReferenceKey):
			parentKey := strings.TrimSuffix(strings.TrimSuffix(k, shape.ReferenceKey), "/")
			switch t := v.(type) {
			case string:
				target, fragment := splitFragment(t)
				refs = append(refs, refSite{key: k, parentKey: parentKey, target: target, fragment: fragment, isTopRef: k == shape.ReferenceKey})
			case map[string]interface{}:
				if refPath, ok := t["$ref"].(string); ok {
					target, fragment := splitFragment(refPath)
					refs = append(refs, refSite{key: k, parentKey: parentKey, target: target, fragment: fragment, isTopRef: k == shape.ReferenceKey})
				}
			}
		default:
			if s, ok := v.(string); ok && strings.HasPrefix(s, shape.ReferenceKey+":") {
				target, fragment := splitFragment(strings.TrimPrefix(s, shape.ReferenceKey+":"))
				refs = append(refs, refSite{key: k, parentKey: k, target: target, fragment: fragment})
			}
		}
	}
	return refs
}

// resolveReferences flattens data, resolves every $ref site it finds
// (skipping self-references and anything already in visited), and
// unflattens the result. A reference that fails to resolve for any
// reason is left in place, with a logged warning (ResolveFailed).
func (db *DB) resolveReferences(ctx context.Context, data Value, basePath string, opts *FetchOptions, visited map[string]bool) Value {
	flat := shape.Flatten(data)
	refs := collectRefs(flat)

	for _, r := range refs {
		if _, stillThere := flat[r.key]; !stillThere {
			continue
		}
		absPath := r.target
		if !strings.HasPrefix(absPath, "/") && !path.IsRemote(absPath) {
			absPath = path.Normalize(path.Dirname(basePath), absPath)
		}
		if absPath == basePath || visited[absPath] {
			log.Debugf("docspace.resolveReferences", "cycle skipped", absPath)
			continue
		}

		resolved, ok := db.resolveOne(ctx, absPath, r.fragment, opts, visited)
		if !ok {
			log.Error.Printf("docspace: reference %s -> %s could not be resolved", r.key, r.target)
			continue
		}

		switch {
		case r.isTopRef:
			obj, isObj := resolved.(map[string]interface{})
			if !isObj {
				continue
			}
			delete(flat, r.key)
			for pk, pv := range shape.Flatten(obj) {
				flat[pk] = pv
			}
		default:
			siblings := shape.FlatSiblings(flat, r.key, r.parentKey)
			if len(siblings) > 0 {
				siblingObj := map[string]interface{}{}
				for _, s := range siblings {
					rel := strings.TrimPrefix(s, r.parentKey+"/")
					siblingObj[rel] = flat[s]
					delete(flat, s)
				}
				resolvedObj, isObj := resolved.(map[string]interface{})
				if !isObj {
					resolvedObj = map[string]interface{}{"value": resolved}
				}
				merged := shape.Merge(siblingObj, resolvedObj)
				delete(flat, r.key)
				for pk, pv := range shape.Flatten(merged) {
					flat[joinFlatKey(r.parentKey, pk)] = pv
				}
			} else {
				delete(flat, r.key)
				target := r.parentKey
				if target == "" {
					target = r.key
				}
				flat[target] = resolved
			}
		}
	}
	return shape.Unflatten(flat)
}

func (db *DB) resolveOne(ctx context.Context, absPath, fragment string, opts *FetchOptions, visited map[string]bool) (Value, bool) {
	if fragment != "" {
		doc, err := db.loadDocumentAs(ctx, db.extOf(absPath), absPath, nil, opts.Context)
		if err != nil || doc == nil {
			return nil, false
		}
		return shape.Find(fragment, doc)
	}
	v, err := db.fetchMerged(ctx, absPath, opts, visited)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// GetAll fetches every uri in uris concurrently via errgroup, matching
// the contract's "parallel batch variant returning a mapping".
func (db *DB) GetAll(ctx context.Context, uris []string, actx *access.Context) (map[string]Value, error) {
	results := make([]Value, len(uris))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range uris {
		i, u := i, u
		g.Go(func() error {
			v, err := db.Get(gctx, u, nil, actx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]Value, len(uris))
	for i, u := range uris {
		out[u] = results[i]
	}
	return out, nil
}

// SetAll writes every uri/value pair concurrently via errgroup.
func (db *DB) SetAll(ctx context.Context, pairs map[string]Value, actx *access.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for uri, value := range pairs {
		uri, value := uri, value
		g.Go(func() error {
			return db.Set(gctx, uri, value, actx)
		})
	}
	return g.Wait()
}

// FetchStream wraps Fetch's result into a JSON-encoded byte stream for
// objects and arrays, the raw bytes for a string, or an empty stream
// for a missing document.
func (db *DB) FetchStream(ctx context.Context, uri string, actx *access.Context) (<-chan []byte, <-chan error) {
	out := make(chan []byte, 1)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		opts := DefaultFetchOptions()
		opts.Context = actx
		v, err := db.Fetch(ctx, uri, &opts)
		if err != nil {
			errc <- err
			return
		}
		if v == nil {
			return
		}
		if s, ok := v.(string); ok {
			out <- []byte(s)
			return
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			errc <- err
			return
		}
		out <- encoded
	}()
	return out, errc
}
