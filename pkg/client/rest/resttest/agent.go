/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resttest provides an in-process agent admin API for tests.
package resttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/scoir/canis-exchange/pkg/client/rest"
)

// Handler answers the nth call (zero based) of a route.
type Handler func(w http.ResponseWriter, req *http.Request, n int)

// Agent answers admin API calls from a route table keyed by "METHOD /path".
// Unknown routes get a 404.
type Agent struct {
	t      *testing.T
	srv    *httptest.Server
	lock   sync.Mutex
	routes map[string]Handler
	calls  map[string]int
	bodies map[string][]map[string]interface{}
	query  map[string][]string
}

func NewAgent(t *testing.T) *Agent {
	a := &Agent{
		t:      t,
		routes: map[string]Handler{},
		calls:  map[string]int{},
		bodies: map[string][]map[string]interface{}{},
		query:  map[string][]string{},
	}

	a.srv = httptest.NewServer(http.HandlerFunc(a.serve))
	t.Cleanup(a.srv.Close)
	return a
}

func (r *Agent) URL() string {
	return r.srv.URL
}

// Client is a rest client for the agent with logging disabled.
func (r *Agent) Client(opts ...rest.Option) *rest.Client {
	return rest.New(r.srv.URL, append([]rest.Option{rest.WithLogger(zerolog.Nop())}, opts...)...)
}

func (r *Agent) On(route string, h Handler) {
	r.lock.Lock()
	r.routes[route] = h
	r.lock.Unlock()
}

// Reply always answers route with v.
func (r *Agent) Reply(route string, v interface{}) {
	r.On(route, func(w http.ResponseWriter, _ *http.Request, _ int) {
		WriteJSON(w, v)
	})
}

// Sequence answers the nth call with the nth value, repeating the last one.
func (r *Agent) Sequence(route string, vs ...interface{}) {
	r.On(route, func(w http.ResponseWriter, _ *http.Request, n int) {
		if n >= len(vs) {
			n = len(vs) - 1
		}
		WriteJSON(w, vs[n])
	})
}

func (r *Agent) serve(w http.ResponseWriter, req *http.Request) {
	key := req.Method + " " + req.URL.Path

	var body map[string]interface{}
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&body)
	}

	r.lock.Lock()
	h, ok := r.routes[key]
	n := r.calls[key]
	r.calls[key]++
	if body != nil {
		r.bodies[key] = append(r.bodies[key], body)
	}
	r.query[key] = append(r.query[key], req.URL.RawQuery)
	r.lock.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	h(w, req, n)
}

func (r *Agent) Count(route string) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.calls[route]
}

// Body is the decoded JSON body of the ith call to route.
func (r *Agent) Body(route string, i int) map[string]interface{} {
	r.lock.Lock()
	defer r.lock.Unlock()
	require.Greater(r.t, len(r.bodies[route]), i, "no body %d for %s", i, route)
	return r.bodies[route][i]
}

// Query is the raw query string of the ith call to route.
func (r *Agent) Query(route string, i int) string {
	r.lock.Lock()
	defer r.lock.Unlock()
	require.Greater(r.t, len(r.query[route]), i, "no call %d for %s", i, route)
	return r.query[route][i]
}

func WriteJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
