// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package httpdriver is the reference remote-HTTP driver: a document
// URI is requested as "BaseURL + uri" over net/http, the same
// thin-client-over-net/http shape upspin.io's RPC clients use before
// their auth handshake layer. Only the contract matters; the
// accompanying test fixture server uses the teacher's own
// github.com/NYTimes/gziphandler dependency to compress responses,
// exercising the same middleware the teacher wires into its own HTTP
// surfaces.
package httpdriver // import "docspace.io/driver/httpdriver"

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"docspace.io/access"
	"docspace.io/driver"
	"docspace.io/errors"
	"docspace.io/stat"
)

// Driver issues GET/PUT/DELETE requests against BaseURL + uri.
type Driver struct {
	driver.Base
	BaseURL string
	Client  *http.Client
}

// New returns a Driver that resolves URIs against baseURL using the
// given client, or http.DefaultClient if client is nil.
func New(baseURL string, client *http.Client) *Driver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Driver{BaseURL: strings.TrimSuffix(baseURL, "/"), Client: client}
}

func init() {
	driver.Register("http", func(opts map[string]interface{}) (driver.Driver, error) {
		base, _ := opts["baseURL"].(string)
		return New(base, nil), nil
	})
}

func (d *Driver) url(uri string) string {
	return d.BaseURL + uri
}

func (d *Driver) Connect(ctx context.Context, opts map[string]interface{}) error { return nil }
func (d *Driver) Disconnect(ctx context.Context) error                          { return nil }

func (d *Driver) Read(ctx context.Context, uri string, defaultValue interface{}) (interface{}, bool, error) {
	const op errors.Op = "httpdriver.Read"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url(uri), nil)
	if err != nil {
		return defaultValue, false, errors.E(op, uri, errors.DriverError, err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return defaultValue, false, errors.E(op, uri, errors.DriverError, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return defaultValue, false, nil
	}
	if resp.StatusCode >= 300 {
		return defaultValue, false, errors.E(op, uri, errors.DriverError, errors.Errorf("status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return defaultValue, false, errors.E(op, uri, errors.DriverError, err)
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body), true, nil
	}
	return v, true, nil
}

func (d *Driver) Write(ctx context.Context, uri string, value interface{}) (bool, error) {
	const op errors.Op = "httpdriver.Write"
	body, err := json.Marshal(value)
	if err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, d.url(uri), bytes.NewReader(body))
	if err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.Client.Do(req)
	if err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return false, errors.E(op, uri, errors.DriverError, errors.Errorf("status %d", resp.StatusCode))
	}
	return true, nil
}

func (d *Driver) Delete(ctx context.Context, uri string) (bool, error) {
	const op errors.Op = "httpdriver.Delete"
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, d.url(uri), nil)
	if err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return false, errors.E(op, uri, errors.DriverError, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return false, errors.E(op, uri, errors.DriverError, errors.Errorf("status %d", resp.StatusCode))
	}
	return true, nil
}

func (d *Driver) Stat(ctx context.Context, uri string) (*stat.Stat, bool, error) {
	const op errors.Op = "httpdriver.Stat"
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, d.url(uri), nil)
	if err != nil {
		return nil, false, errors.E(op, uri, errors.DriverError, err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, false, errors.E(op, uri, errors.DriverError, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	isDir := strings.HasSuffix(uri, "/")
	s := stat.New(map[string]interface{}{
		"size":        resp.ContentLength,
		"isFile":      !isDir,
		"isDirectory": isDir,
	})
	return s, true, nil
}

// Access always defers: httpdriver carries no access policy of its
// own, the remote endpoint is expected to enforce its own.
func (d *Driver) Access(ctx context.Context, uri string, level access.Level, actx *access.Context) (bool, bool, error) {
	return false, false, nil
}
