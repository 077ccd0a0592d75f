// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package access carries the calling context through the engine and
// gates operations against a driver's access decision. It plays the
// role upspin.io/access plays for DirEntry rights, simplified to this
// engine's three-level read/write/delete model: the actual decision
// is always deferred to the driver, this package only shapes the
// context and enforces the driver's verdict.
package access // import "docspace.io/access"

import (
	"context"

	"docspace.io/errors"
)

// Level names the kind of operation being gated.
type Level string

// The three levels a driver can be asked to decide on.
const (
	Read   Level = "r"
	Write  Level = "w"
	Delete Level = "d"
)

// Valid reports whether l is one of Read, Write or Delete.
func (l Level) Valid() bool {
	switch l {
	case Read, Write, Delete:
		return true
	}
	return false
}

// Context carries the identity of the caller through an operation.
// Unknown constructor fields have no Go analogue; callers that need
// extra data should embed Context in their own struct instead.
type Context struct {
	Username string
	Role     string
	Roles    []string
	User     interface{}
	Fails    []string
}

// HasRole reports whether role matches the context's primary Role or
// appears in its Roles slice.
func (c *Context) HasRole(role string) bool {
	if c == nil {
		return false
	}
	if c.Role == role {
		return true
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// From returns ctx unchanged if it is already a *Context (idempotent
// construction, mirroring the rest of the engine's "from" helpers).
// A nil input returns a zero-value Context.
func From(ctx *Context) *Context {
	if ctx == nil {
		return &Context{}
	}
	return ctx
}

// Decider is implemented by anything that can render an access
// decision for a URI at a given level: with decided true, allow true
// allows and allow false denies; decided false means "no opinion, keep
// going" — the driver contract's undefined return translated to Go.
type Decider interface {
	Access(ctx context.Context, uri string, level Level, actx *Context) (decided bool, allow bool)
}

// Gate enforces a Decider's verdict, turning "denied" into an
// AccessDenied error and an invalid level into InvalidLevel. It holds
// no state of its own: the decision always comes from the driver.
type Gate struct {
	Decider Decider
}

// Ensure asks the gate's Decider for a verdict on uri at level and
// returns AccessDenied if the driver explicitly denies it, or
// InvalidLevel if level is not one of Read, Write or Delete. A
// Decider with no opinion (decided=false) is treated as an allow.
func (g *Gate) Ensure(ctx context.Context, uri string, level Level, actx *Context) error {
	const op errors.Op = "access.Ensure"
	if !level.Valid() {
		return errors.E(op, uri, errors.InvalidLevel)
	}
	if g == nil || g.Decider == nil {
		return nil
	}
	if decided, allow := g.Decider.Access(ctx, uri, level, actx); decided && !allow {
		return errors.E(op, uri, errors.AccessDenied)
	}
	return nil
}
