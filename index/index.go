// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package index encodes and decodes the engine's compact directory
// indexes (index.txt, index.txtl) and computes which index files a
// change must update. It follows upspin.io/dir/inprocess's
// directory-as-a-sequence-of-entries technique, adapted from
// Upspin's binary DirEntry.Marshal to this engine's two-file text
// encoding, and uses golang.org/x/text/collate for the
// locale-independent lexicographic ordering the contract calls for.
package index // import "docspace.io/index"

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"docspace.io/errors"
	"docspace.io/path"
)

// ImmediateIndexName and FullIndexName are the reserved per-directory
// index file names.
const (
	ImmediateIndexName = "index.txt"
	FullIndexName      = "index.txtl"
)

// IsIndex reports whether p names a per-directory immediate index.
func IsIndex(p string) bool { return strings.HasSuffix(p, ImmediateIndexName) }

// IsFullIndex reports whether p names a whole-tree index.
func IsFullIndex(p string) bool { return strings.HasSuffix(p, FullIndexName) }

// Row is one directory entry as it appears in an index file.
type Row struct {
	Name    string // trailing "/" marks a directory
	MtimeMs int64
	Size    int64
}

// IsDirectory reports whether the row describes a directory.
func (r Row) IsDirectory() bool { return strings.HasSuffix(r.Name, "/") }

// Column names one field of a row and the integer radix (2..36) used
// to render its numeric columns; Radix 0 means base 10.
type Column struct {
	Name  string
	Radix int
}

func defaultColumns() []Column {
	return []Column{{"name", 0}, {"mtimeMs", 36}, {"size", 36}}
}

// EncodeOptions controls the optional header lines written before the
// rows: Long and Inc set the matching bare mode flags, Columns
// overrides the default column set (and is always declared explicitly
// when non-default).
type EncodeOptions struct {
	Long    bool
	Inc     bool
	Columns []Column
}

func radixSuffix(c Column) string {
	if c.Radix == 0 || c.Radix == 10 {
		return c.Name
	}
	return fmt.Sprintf("%s.%d", c.Name, c.Radix)
}

func formatField(r Row, c Column) string {
	switch c.Name {
	case "name":
		return encodeName(r.Name)
	case "type":
		if r.IsDirectory() {
			return "D"
		}
		return "F"
	case "mtimeMs":
		return formatInt(r.MtimeMs, c.Radix)
	case "size":
		return formatInt(r.Size, c.Radix)
	default:
		return ""
	}
}

func formatInt(v int64, radix int) string {
	if radix < 2 || radix > 36 {
		radix = 10
	}
	return strconv.FormatInt(v, radix)
}

func encodeName(name string) string {
	if strings.ContainsAny(name, " \t\n") {
		return url.QueryEscape(name)
	}
	return name
}

// Encode renders rows as an index.txt-style text document. Entries
// are emitted in the order given; callers needing alphabetical order
// should sort with Sort first.
func Encode(rows []Row, opts *EncodeOptions) string {
	columns := defaultColumns()
	var b strings.Builder
	if opts != nil {
		if opts.Long {
			b.WriteString("long\n")
		}
		if opts.Inc {
			b.WriteString("inc\n")
		}
		if len(opts.Columns) > 0 {
			columns = opts.Columns
			names := make([]string, len(columns))
			for i, c := range columns {
				names[i] = radixSuffix(c)
			}
			b.WriteString("columns: " + strings.Join(names, ", ") + "\n")
		}
		if b.Len() > 0 {
			b.WriteString("---\n")
		}
	}
	for _, r := range rows {
		fields := make([]string, len(columns))
		for i, c := range columns {
			fields[i] = formatField(r, c)
		}
		b.WriteString(strings.Join(fields, " "))
		b.WriteString("\n")
	}
	return b.String()
}

// Sort orders rows by Name using root-locale (language-independent)
// collation, the ordering the contract calls "locale-independent
// lexicographic".
func Sort(rows []Row) {
	col := collate.New(language.Und)
	sort.SliceStable(rows, func(i, j int) bool {
		return col.CompareString(rows[i].Name, rows[j].Name) < 0
	})
}

// parseColumns parses a "columns: name, mtimeMs.36, size.36" header
// value into Columns.
func parseColumns(value string) []Column {
	parts := strings.Split(value, ",")
	cols := make([]Column, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, radix := p, 0
		if dot := strings.LastIndexByte(p, '.'); dot > 0 {
			if r, err := strconv.Atoi(p[dot+1:]); err == nil && r >= 2 && r <= 36 {
				name, radix = p[:dot], r
			}
		}
		cols = append(cols, Column{Name: name, Radix: radix})
	}
	return cols
}

func parseField(raw string, c Column) (string, int64) {
	switch c.Name {
	case "name", "type":
		if decoded, err := url.QueryUnescape(raw); err == nil {
			return decoded, 0
		}
		return raw, 0
	default:
		radix := c.Radix
		if radix == 0 {
			radix = 10
		}
		if n, err := strconv.ParseInt(raw, radix, 64); err == nil {
			return "", n
		}
		if decoded, err := url.QueryUnescape(raw); err == nil {
			if n, err := strconv.ParseInt(decoded, radix, 64); err == nil {
				return "", n
			}
		}
		return "", 0
	}
}

// parseLine decodes one row line using columns, ignoring a trailing
// "type" column when the row's name already carries its own trailing
// slash, per the encoding's default (type-by-slash) convention.
func parseLine(line string, columns []Column) (Row, error) {
	const op errors.Op = "index.parseLine"
	fields := strings.Fields(line)
	if len(fields) < len(columns) {
		return Row{}, errors.E(op, errors.IndexDecodeError, errors.Str(line))
	}
	var row Row
	for i, c := range columns {
		name, n := parseField(fields[i], c)
		switch c.Name {
		case "name":
			row.Name = name
		case "type":
			if name == "D" && !strings.HasSuffix(row.Name, "/") {
				row.Name += "/"
			}
		case "mtimeMs":
			row.MtimeMs = n
		case "size":
			row.Size = n
		}
	}
	return row, nil
}

// Decode parses an index document. input may be:
//   - string: a multi-line "text" document, optionally preceded by
//     header lines ("long", "inc", "columns: ...") and a "---"
//     separator;
//   - []string: "rows" shape, one already-split row per element;
//   - [][]string: "array" shape, one pre-tokenized row per element.
//
// Malformed rows are skipped (IndexDecodeError), the rest still
// decode.
func Decode(input interface{}) ([]Row, error) {
	switch v := input.(type) {
	case string:
		return decodeText(v)
	case []string:
		columns := defaultColumns()
		return decodeLines(v, columns), nil
	case [][]string:
		columns := defaultColumns()
		var rows []Row
		for _, fields := range v {
			row, err := parseLine(strings.Join(fields, " "), columns)
			if err == nil {
				rows = append(rows, row)
			}
		}
		return rows, nil
	default:
		const op errors.Op = "index.Decode"
		return nil, errors.E(op, errors.IndexDecodeError)
	}
}

func decodeLines(lines []string, columns []Column) []Row {
	var rows []Row
	for _, line := range lines {
		row, err := parseLine(line, columns)
		if err == nil {
			rows = append(rows, row)
		}
	}
	return rows
}

func decodeText(text string) ([]Row, error) {
	lines := strings.Split(text, "\n")
	columns := defaultColumns()
	start := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "long", trimmed == "inc", trimmed == "":
			start = i + 1
			continue
		case strings.HasPrefix(trimmed, "columns:"):
			columns = parseColumns(strings.TrimPrefix(trimmed, "columns:"))
			start = i + 1
			continue
		case trimmed == "---":
			start = i + 1
		}
		break
	}
	var rows []Row
	for _, line := range lines[start:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, err := parseLine(line, columns)
		if err == nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// GetIndexesToUpdate lists every ImmediateIndexName from changedDir up
// to and including root, with duplicates removed (first occurrence
// kept). changedDir and root are both directory URIs (trailing "/").
func GetIndexesToUpdate(changedDir, root string) []string {
	seen := map[string]bool{}
	var out []string
	dir := changedDir
	for {
		idx := dir + ImmediateIndexName
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
		if dir == root || dir == "/" {
			break
		}
		parent := path.Dirname(strings.TrimSuffix(dir, "/"))
		if parent == dir {
			break
		}
		dir = parent
	}
	rootIdx := root + ImmediateIndexName
	if !seen[rootIdx] {
		out = append(out, rootIdx)
	}
	return out
}
