// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package access

import (
	"context"
	"testing"

	"docspace.io/errors"
)

type fakeDecider struct {
	decided bool
	allow   bool
}

func (f fakeDecider) Access(ctx context.Context, uri string, level Level, actx *Context) (bool, bool) {
	return f.decided, f.allow
}

func TestGateInvalidLevel(t *testing.T) {
	g := &Gate{}
	err := g.Ensure(context.Background(), "/a", Level("x"), nil)
	if !errors.Is(errors.InvalidLevel, err) {
		t.Fatalf("expected InvalidLevel, got %v", err)
	}
}

func TestGateNoOpinionAllows(t *testing.T) {
	g := &Gate{Decider: fakeDecider{decided: false}}
	if err := g.Ensure(context.Background(), "/a", Read, nil); err != nil {
		t.Fatalf("expected no error when driver has no opinion, got %v", err)
	}
}

func TestGateDeniesExplicitly(t *testing.T) {
	g := &Gate{Decider: fakeDecider{decided: true, allow: false}}
	err := g.Ensure(context.Background(), "/a", Write, nil)
	if !errors.Is(errors.AccessDenied, err) {
		t.Fatalf("expected AccessDenied, got %v", err)
	}
}

func TestGateAllowsExplicitly(t *testing.T) {
	g := &Gate{Decider: fakeDecider{decided: true, allow: true}}
	if err := g.Ensure(context.Background(), "/a", Delete, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestContextHasRole(t *testing.T) {
	c := &Context{Role: "editor", Roles: []string{"viewer"}}
	if !c.HasRole("editor") || !c.HasRole("viewer") {
		t.Fatal("expected both primary role and member of Roles to match")
	}
	if c.HasRole("admin") {
		t.Fatal("did not expect unrelated role to match")
	}
}

func TestFromIdempotent(t *testing.T) {
	c := &Context{Username: "ada"}
	if From(c) != c {
		t.Fatal("expected From to return the same pointer when already a Context")
	}
	if From(nil) == nil {
		t.Fatal("expected From(nil) to return a usable zero Context")
	}
}
