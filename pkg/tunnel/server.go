/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tunnel

import (
	"context"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	goji "goji.io"
	"goji.io/pat"

	"github.com/scoir/canis-exchange/pkg/outcome"
	"github.com/scoir/canis-exchange/pkg/util"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Server keeps published documents and serves them to whoever fetches the public link.
type Server struct {
	addr       string
	dir        string
	discoverer *Discoverer
	log        zerolog.Logger

	lock sync.RWMutex
	docs map[string][]byte
}

type Option func(s *Server)

// WithDir persists every published document under dir as well.
func WithDir(dir string) Option {
	return func(s *Server) {
		s.dir = dir
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func NewServer(addr string, d *Discoverer, opts ...Option) *Server {
	s := &Server{
		addr:       addr,
		discoverer: d,
		log:        log.Logger,
		docs:       map[string][]byte{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Publish stores doc under name and returns the public link to it.
func (r *Server) Publish(ctx context.Context, name string, doc []byte) (string, error) {
	if !validName.MatchString(name) {
		return "", errors.Errorf("invalid document name %q", name)
	}

	if r.discoverer == nil {
		return "", errors.Wrap(outcome.ErrRedirectUnavailable, "no tunnel configured")
	}

	base, err := r.discoverer.Discover(ctx)
	if err != nil {
		return "", errors.Wrapf(outcome.ErrRedirectUnavailable, "discovering tunnel: %v", err)
	}

	if r.dir != "" {
		if err := os.MkdirAll(r.dir, 0755); err != nil {
			return "", errors.Wrap(err, "unable to create document directory")
		}

		if err := ioutil.WriteFile(filepath.Join(r.dir, name), doc, 0644); err != nil {
			return "", errors.Wrapf(err, "unable to persist %s", name)
		}
	}

	r.lock.Lock()
	r.docs[name] = append([]byte(nil), doc...)
	r.lock.Unlock()

	link := base + "/" + name
	r.log.Debug().Str("name", name).Str("url", link).Msg("published document")

	return link, nil
}

func (r *Server) lookup(name string) ([]byte, bool) {
	r.lock.RLock()
	doc, ok := r.docs[name]
	r.lock.RUnlock()
	if ok {
		return doc, true
	}

	if r.dir == "" || !validName.MatchString(name) {
		return nil, false
	}

	doc, err := ioutil.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return nil, false
	}

	return doc, true
}

func (r *Server) serve(w http.ResponseWriter, req *http.Request) {
	name := pat.Param(req, "name")

	doc, ok := r.lookup(name)
	if !ok {
		util.WriteErrorf(w, http.StatusNotFound, "document %s not found", name)
		return
	}

	util.WriteSuccess(w, doc)
}

// Handler routes GET /:name with CORS enabled.
func (r *Server) Handler() http.Handler {
	mux := goji.NewMux()
	mux.Handle(pat.Get("/:name"), http.HandlerFunc(r.serve))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type"},
	})

	return c.Handler(mux)
}

// ListenAndServe runs until ctx ends.
func (r *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    r.addr,
		Handler: r.Handler(),
	}

	errs := make(chan error, 1)
	go func() {
		r.log.Info().Str("addr", r.addr).Msg("document server listening")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return errors.Wrap(err, "document server failed")
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}
