/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package context builds the clients, holders and infrastructure a command needs from
// configuration, once each.
package context

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scoir/canis-exchange/pkg/client/rest"
	"github.com/scoir/canis-exchange/pkg/config"
	"github.com/scoir/canis-exchange/pkg/datastore"
	"github.com/scoir/canis-exchange/pkg/exchange"
	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/poll"
	"github.com/scoir/canis-exchange/pkg/tunnel"
)

type Provider struct {
	conf     config.Config
	log      zerolog.Logger
	recorder *rest.Recorder

	lock     sync.Mutex
	waiter   *poll.Waiter
	codec    *invitation.Codec
	issuer   *exchange.Client
	verifier *exchange.Client
	tunnel   *tunnel.Server
	dp       datastore.Provider
	store    datastore.Store
	closers  []io.Closer
}

type Option func(p *Provider)

func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) {
		p.log = l
	}
}

// WithRecorder captures every agent request made through the provider's clients.
func WithRecorder(rec *rest.Recorder) Option {
	return func(p *Provider) {
		p.recorder = rec
	}
}

func NewProvider(conf config.Config, opts ...Option) *Provider {
	p := &Provider{conf: conf, log: log.Logger}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (r *Provider) Config() config.Config {
	return r.conf
}

func (r *Provider) restOptions() []rest.Option {
	opts := []rest.Option{rest.WithLogger(r.log)}
	if r.recorder != nil {
		opts = append(opts, rest.WithRecorder(r.recorder))
	}

	return opts
}

// Waiter is the poll.Waiter shared by every client.
func (r *Provider) Waiter() (*poll.Waiter, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.getWaiter()
}

func (r *Provider) getWaiter() (*poll.Waiter, error) {
	if r.waiter != nil {
		return r.waiter, nil
	}

	pc, err := r.conf.Polling()
	if err != nil {
		return nil, err
	}

	r.waiter = pc.Waiter(r.log)
	return r.waiter, nil
}

func (r *Provider) Codec() (*invitation.Codec, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.getCodec()
}

func (r *Provider) getCodec() (*invitation.Codec, error) {
	if r.codec != nil {
		return r.codec, nil
	}

	ic, err := r.conf.Invitation()
	if err != nil {
		return nil, err
	}

	r.codec = invitation.NewCodec(invitation.WithScheme(ic.Scheme))
	return r.codec, nil
}

// DeepLinkPage is the configured landing page, if any.
func (r *Provider) DeepLinkPage() string {
	ic, err := r.conf.Invitation()
	if err != nil {
		return ""
	}

	return ic.DeepLinkPage
}

// Close releases every broker connection and datastore the provider opened.
func (r *Provider) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil

	if r.dp != nil {
		if err := r.dp.Close(); err != nil && first == nil {
			first = errors.Wrap(err, "unable to close datastore")
		}
		r.dp, r.store = nil, nil
	}

	return first
}
