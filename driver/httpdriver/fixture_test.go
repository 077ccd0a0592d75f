// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package httpdriver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/NYTimes/gziphandler"
)

// newFixtureServer spins up an in-memory HTTP document store, the
// same way the teacher compresses its own HTTP responses with
// gziphandler, so the reference driver can be exercised end to end
// without a real backend.
func newFixtureServer() *httptest.Server {
	var mu sync.Mutex
	docs := map[string]interface{}{}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		uri := r.URL.Path
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			v, ok := docs[uri]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			if r.Method == http.MethodHead {
				return
			}
			json.NewEncoder(w).Encode(v)
		case http.MethodPut:
			var v interface{}
			if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			docs[uri] = v
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			delete(docs, uri)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return httptest.NewServer(gziphandler.GzipHandler(mux))
}
