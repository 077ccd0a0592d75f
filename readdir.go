// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package docspace

import (
	"context"
	"sort"
	"strings"

	"docspace.io/access"
	"docspace.io/index"
	"docspace.io/log"
	"docspace.io/stat"
)

// ReadDirOptions controls ReadDir's traversal.
type ReadDirOptions struct {
	Depth            int // -1 = unlimited
	SkipStat         bool
	SkipSymbolicLink bool
	// SkipIndex forces the ListDir+recurse walk even when an index.txt
	// or index.txtl fast path is available. Reserved index files are
	// never surfaced as entries either way.
	SkipIndex   bool
	IncludeDirs bool
	Filter      func(*stat.Entry) bool
	Context     *access.Context
}

// ReadDir streams every entry under uri, recursing into subdirectories
// while depth allows. A Filter, if given, excludes an entry from both
// the yielded stream and from recursion into it.
func (db *DB) ReadDir(ctx context.Context, uri string, opts *ReadDirOptions) <-chan *stat.Entry {
	if opts == nil {
		opts = &ReadDirOptions{Depth: -1, IncludeDirs: true}
	}
	out := make(chan *stat.Entry)
	go func() {
		defer close(out)
		dir := db.resolve(uri)
		if !strings.HasSuffix(dir, "/") {
			dir += "/"
		}
		db.readDirRecurse(ctx, dir, opts, 0, out)
	}()
	return out
}

// readDirRecurse prefers an index-file fast path over asking the
// driver to list dir: an unlimited-depth request consults dir's
// whole-subtree index.txtl first (one read instead of a recursive
// walk), otherwise dir's own index.txt stands in for ListDir at this
// level. Either is skipped if missing or undecodable, if ensureAccess
// refuses dir, or if opts.SkipIndex is set, and the walk then falls
// back to ListDir plus recursion. An index file is not checked for
// staleness against the cache.
func (db *DB) readDirRecurse(ctx context.Context, dir string, opts *ReadDirOptions, depth int, out chan<- *stat.Entry) {
	if !opts.SkipIndex && db.drv != nil && db.ensureAccess(ctx, dir, access.Read, opts.Context) == nil {
		if opts.Depth < 0 {
			if rows, ok := db.tryReadIndex(ctx, dir+index.FullIndexName); ok {
				db.emitIndexRows(ctx, dir, rows, opts, out)
				return
			}
		}
		if rows, ok := db.tryReadIndex(ctx, dir+index.ImmediateIndexName); ok {
			entries := make([]*stat.Entry, len(rows))
			for i, r := range rows {
				entries[i] = entryFromRow(dir, r)
			}
			db.emitEntries(ctx, entries, opts, depth, out)
			return
		}
	}

	entries, err := db.ListDir(ctx, dir, opts.Context)
	if err != nil {
		log.Error.Printf("docspace: readDir %s: %v", dir, err)
		return
	}
	db.emitEntries(ctx, entries, opts, depth, out)
}

// emitEntries drops reserved index files, applies
// Filter/SkipSymbolicLink, yields each surviving entry, and recurses
// into directories depth still allows. Shared by both the ListDir
// fallback and the index.txt fast path.
func (db *DB) emitEntries(ctx context.Context, entries []*stat.Entry, opts *ReadDirOptions, depth int, out chan<- *stat.Entry) {
	for _, e := range entries {
		if index.IsIndex(e.Path) || index.IsFullIndex(e.Path) {
			continue
		}
		if opts.SkipSymbolicLink && e.Stat != nil && e.Stat.IsSymbolicLink {
			continue
		}
		if opts.Filter != nil && !opts.Filter(e) {
			continue
		}
		if e.Stat != nil && e.Stat.IsDirectory {
			if opts.IncludeDirs {
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
			if opts.Depth < 0 || depth < opts.Depth {
				db.readDirRecurse(ctx, e.Path+"/", opts, depth+1, out)
			}
			continue
		}
		select {
		case out <- e:
		case <-ctx.Done():
			return
		}
	}
}

// emitIndexRows yields every row of a whole-subtree index.txtl as an
// entry; the file already names descendants with their subtree-relative
// paths, so unlike emitEntries this never recurses further.
func (db *DB) emitIndexRows(ctx context.Context, dir string, rows []index.Row, opts *ReadDirOptions, out chan<- *stat.Entry) {
	var excluded []string
rows:
	for _, r := range rows {
		for _, p := range excluded {
			if strings.HasPrefix(r.Name, p) {
				continue rows
			}
		}
		e := entryFromRow(dir, r)
		if opts.Filter != nil && !opts.Filter(e) {
			if r.IsDirectory() {
				excluded = append(excluded, r.Name)
			}
			continue
		}
		if e.Stat.IsDirectory && !opts.IncludeDirs {
			continue
		}
		select {
		case out <- e:
		case <-ctx.Done():
			return
		}
	}
}

// tryReadIndex reads and decodes idxPath as an index document,
// reporting false if the driver has nothing there or it doesn't parse.
func (db *DB) tryReadIndex(ctx context.Context, idxPath string) ([]index.Row, bool) {
	raw, ok, err := db.drv.Read(ctx, idxPath, nil)
	if err != nil || !ok {
		return nil, false
	}
	s, isString := raw.(string)
	if !isString {
		return nil, false
	}
	rows, err := index.Decode(s)
	if err != nil || rows == nil {
		return nil, false
	}
	return rows, true
}

// entryFromRow builds a stat.Entry for a row found under dir, using
// the row's relative Name (which may itself contain "/" segments for a
// whole-subtree index.txtl row) to derive the child's full path.
func entryFromRow(dir string, r index.Row) *stat.Entry {
	childURI := dir + strings.TrimSuffix(r.Name, "/")
	isDir := r.IsDirectory()
	s := stat.New(map[string]interface{}{
		"mtimeMs":     r.MtimeMs,
		"size":        r.Size,
		"isFile":      !isDir,
		"isDirectory": isDir,
	})
	return stat.NewEntry(childURI, map[string]interface{}{"stat": s, "fulfilled": true})
}

// ReadBranch is a convenience wrapper over ReadDir with unlimited
// depth by default.
func (db *DB) ReadBranch(ctx context.Context, uri string, depth int) <-chan *stat.Entry {
	if depth == 0 {
		depth = -1
	}
	return db.ReadDir(ctx, uri, &ReadDirOptions{Depth: depth, IncludeDirs: true})
}

func (db *DB) walkRootOnce(ctx context.Context, actx *access.Context) {
	if _, ok := db.meta.Get("?loaded"); ok {
		return
	}
	for e := range db.ReadDir(ctx, db.root, &ReadDirOptions{Depth: -1, IncludeDirs: true, Context: actx}) {
		if e.Stat == nil {
			continue
		}
		key := e.Path
		if e.Stat.IsDirectory {
			key += "/"
		}
		if _, known := db.meta.Get(key); !known {
			db.meta.Set(key, e.Stat)
		}
	}
	db.meta.Set("?loaded", true)
}

// Find walks the tree under root once (memoized), then resolves
// target: a string is normalized and matched exactly; a predicate
// func(string) bool is tested against every known URI.
func (db *DB) Find(ctx context.Context, target interface{}, actx *access.Context) ([]string, error) {
	if err := db.RequireConnected(ctx); err != nil {
		return nil, err
	}
	db.walkRootOnce(ctx, actx)
	switch t := target.(type) {
	case string:
		// A hit here depends entirely on norm being in meta, which
		// walkRootOnce fills for every entry it reaches; a URI the walk
		// never reached (outside
		// db.root, or added after the memoized walk ran) reports as
		// not found even if the driver would serve it.
		norm := db.resolve(t)
		if _, ok := db.meta.Get(norm); ok {
			return []string{norm}, nil
		}
		return nil, nil
	case func(string) bool:
		var out []string
		for _, k := range db.meta.Keys() {
			if k == "?loaded" {
				continue
			}
			if t(k) {
				out = append(out, k)
			}
		}
		sort.Strings(out)
		return out, nil
	default:
		return nil, nil
	}
}

// StreamEntry is one snapshot FindStream yields as the traversal
// progresses.
type StreamEntry struct {
	File      *stat.Entry
	Files     []*stat.Entry
	Dirs      map[string]*stat.Entry
	Top       map[string]*stat.Entry
	Errors    map[string]error
	Progress  float64
	TotalSize int64
}

// FindStreamOptions controls FindStream's traversal.
type FindStreamOptions struct {
	Sort             string // "name", "mtime", "size"
	Order            string // "asc", "desc"
	Limit            int
	SkipSymbolicLink bool
	Load             bool
	Filter           func(*stat.Entry) bool
	Context          *access.Context
}

func sortEntries(entries []*stat.Entry, sortBy, order string) {
	less := func(i, j int) bool {
		switch sortBy {
		case "mtime":
			return entries[i].Stat.MtimeMs < entries[j].Stat.MtimeMs
		case "size":
			return entries[i].Stat.Size < entries[j].Stat.Size
		default:
			return entries[i].Name < entries[j].Name
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if order == "desc" {
			return less(j, i)
		}
		return less(i, j)
	})
}

// FindStream walks the tree under uri breadth-first per directory,
// yielding a growing snapshot after each directory is visited. top
// holds only uri's immediate children; progress is a best-effort
// ratio of directories visited to directories discovered so far.
func (db *DB) FindStream(ctx context.Context, uri string, opts *FindStreamOptions) <-chan StreamEntry {
	if opts == nil {
		opts = &FindStreamOptions{}
	}
	out := make(chan StreamEntry)
	go func() {
		defer close(out)
		norm := db.resolve(uri)
		if !strings.HasSuffix(norm, "/") {
			norm += "/"
		}
		topEntries, err := db.ListDir(ctx, norm, opts.Context)
		if err != nil {
			log.Error.Printf("docspace: findStream %s: %v", norm, err)
			return
		}
		top := map[string]*stat.Entry{}
		for _, e := range topEntries {
			top[e.Path] = e
		}

		dirs := map[string]*stat.Entry{}
		errorsMap := map[string]error{}
		var files []*stat.Entry
		var totalSize int64
		knownDirs, visitedDirs := 1, 0
		limitReached := false

		var walk func(dir string)
		walk = func(dir string) {
			if limitReached {
				return
			}
			entries, err := db.ListDir(ctx, dir, opts.Context)
			if err != nil {
				errorsMap[dir] = err
				return
			}
			var pending []string
			for _, e := range entries {
				if opts.SkipSymbolicLink && e.Stat != nil && e.Stat.IsSymbolicLink {
					continue
				}
				if opts.Filter != nil && !opts.Filter(e) {
					continue
				}
				if e.Stat != nil && e.Stat.IsDirectory {
					dirs[e.Path] = e
					knownDirs++
					pending = append(pending, e.Path+"/")
					continue
				}
				files = append(files, e)
				if e.Stat != nil {
					totalSize += e.Stat.Size
				}
				if opts.Load {
					if _, gerr := db.Get(ctx, e.Path, nil, opts.Context); gerr != nil {
						errorsMap[e.Path] = gerr
					}
				}
				if opts.Limit > 0 && len(files) >= opts.Limit {
					limitReached = true
					break
				}
			}
			visitedDirs++
			sortEntries(files, opts.Sort, opts.Order)
			progress := float64(visitedDirs) / float64(maxInt(1, knownDirs))
			if progress > 1 {
				progress = 1
			}
			snapshot := StreamEntry{
				Files:     append([]*stat.Entry(nil), files...),
				Dirs:      dirs,
				Top:       top,
				Errors:    errorsMap,
				Progress:  progress,
				TotalSize: totalSize,
			}
			select {
			case out <- snapshot:
			case <-ctx.Done():
				limitReached = true
				return
			}
			for _, p := range pending {
				if limitReached {
					return
				}
				walk(p)
			}
		}
		walk(norm)
	}()
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
