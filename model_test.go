// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package docspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModelHydratesFetchedData(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.SaveDocument(ctx, "/users/alice.json", map[string]interface{}{
		"name": "alice",
	}, nil))

	db.Model("/users/", ModelSpec{
		Factory: func(v Value) Value {
			m := v.(map[string]interface{})
			m["hydrated"] = true
			return m
		},
	})

	v, err := db.Fetch(ctx, "/users/alice.json", nil)
	require.NoError(t, err)
	m, ok := v.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, true, m["hydrated"])
	require.Equal(t, "alice", m["name"])
}

func TestModelDoesNotHydrateScalarsOrArrays(t *testing.T) {
	db := newTestDB(t)
	called := false
	db.Model("/x/", ModelSpec{Factory: func(v Value) Value {
		called = true
		return v
	}})

	out := db.hydrate("/x/scalar.json", "just-a-string")
	require.Equal(t, "just-a-string", out)
	require.False(t, called)

	out = db.hydrate("/x/arr.json", []interface{}{1.0, 2.0})
	require.Equal(t, []interface{}{1.0, 2.0}, out)
	require.False(t, called)
}

func TestFindModelPrefersLongestPrefix(t *testing.T) {
	db := newTestDB(t)
	outer := ModelSpec{Factory: func(v Value) Value { return v }}
	inner := ModelSpec{Factory: func(v Value) Value { return v }}
	db.Model("/a/", outer)
	db.Model("/a/b/", inner)

	spec, ok := db.findModel("/a/b/doc.json")
	require.True(t, ok)
	require.NotNil(t, spec.Factory)

	_, ok = db.findModel("/other/doc.json")
	require.False(t, ok)
}

func TestValidateReportsSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	db.Model("/people/", ModelSpec{
		Schema: []SchemaField{
			{Name: "age", Type: "number"},
			{Name: "name", Type: "string"},
		},
	})

	issues, err := db.Validate(ctx, "/people/bob.json", map[string]interface{}{
		"age":  "not-a-number",
		"name": "bob",
	}, nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "age", issues[0].Field)
}

func TestValidateWithNoModelIsClean(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	issues, err := db.Validate(ctx, "/unmodeled.json", map[string]interface{}{"any": "thing"}, nil)
	require.NoError(t, err)
	require.Nil(t, issues)
}

func TestValidateMissingFieldIsNotAnIssue(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	db.Model("/p/", ModelSpec{Schema: []SchemaField{{Name: "age", Type: "number"}}})

	issues, err := db.Validate(ctx, "/p/x.json", map[string]interface{}{}, nil)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestValidateNonObjectYieldsWildcardIssue(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	db.Model("/p/", ModelSpec{Schema: []SchemaField{{Name: "age", Type: "number"}}})

	issues, err := db.Validate(ctx, "/p/x.json", "not-an-object", nil)
	require.NoError(t, err)
	require.Equal(t, []ValidationIssue{{Field: "*"}}, issues)
}

func TestValidateFetchesWhenDataIsNil(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.SaveDocument(ctx, "/p/y.json", map[string]interface{}{"age": 10.0}, nil))
	db.Model("/p/", ModelSpec{Schema: []SchemaField{{Name: "age", Type: "string"}}})

	issues, err := db.Validate(ctx, "/p/y.json", nil, nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "age", issues[0].Field)
}
