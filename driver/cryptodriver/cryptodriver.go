// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cryptodriver is an at-rest encryption decorator around an
// inner driver, wrapping every value's encoded bytes in a
// golang.org/x/crypto/nacl/secretbox sealed box before delegating the
// write, and opening it back up on read. It transplants the teacher's
// pack/ee "a Packer wraps a DirEntry's bytes" idiom onto "a Driver
// wraps an inner Driver's bytes" instead.
package cryptodriver // import "docspace.io/driver/cryptodriver"

import (
	"context"
	"crypto/rand"
	"encoding/json"

	"golang.org/x/crypto/nacl/secretbox"

	"docspace.io/driver"
	"docspace.io/errors"
)

// KeySize is the secretbox key size in bytes.
const KeySize = 32

// Driver encrypts every value written through it and decrypts every
// value read back, using a single shared key. It forwards every other
// capability to Inner via driver.Base.
type Driver struct {
	driver.Base
	key [KeySize]byte
}

// New wraps inner with encryption using key, which must be KeySize
// bytes long.
func New(inner driver.Driver, key [KeySize]byte) *Driver {
	return &Driver{Base: driver.Base{Inner: inner}, key: key}
}

func (d *Driver) Read(ctx context.Context, uri string, defaultValue interface{}) (interface{}, bool, error) {
	const op errors.Op = "cryptodriver.Read"
	raw, ok, err := d.Base.Read(ctx, uri, nil)
	if err != nil || !ok {
		return defaultValue, ok, err
	}
	sealed, ok := raw.(string)
	if !ok {
		return defaultValue, false, errors.E(op, uri, errors.DriverError, errors.Str("sealed value is not a string"))
	}
	plain, err := d.open([]byte(sealed))
	if err != nil {
		return defaultValue, false, errors.E(op, uri, errors.DriverError, err)
	}
	var v interface{}
	if err := json.Unmarshal(plain, &v); err != nil {
		return string(plain), true, nil
	}
	return v, true, nil
}

func (d *Driver) Write(ctx context.Context, uri string, value interface{}) (bool, error) {
	const op errors.Op = "cryptodriver.Write"
	plain, err := encode(value)
	if err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	sealed, err := d.seal(plain)
	if err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	return d.Base.Write(ctx, uri, string(sealed))
}

func encode(value interface{}) ([]byte, error) {
	if s, ok := value.(string); ok {
		return []byte(s), nil
	}
	return json.Marshal(value)
}

func (d *Driver) seal(plain []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &d.key), nil
}

func (d *Driver) open(sealed []byte) ([]byte, error) {
	if len(sealed) < 24 {
		return nil, errors.Str("cryptodriver: sealed value too short")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &d.key)
	if !ok {
		return nil, errors.Str("cryptodriver: decryption failed")
	}
	return plain, nil
}
