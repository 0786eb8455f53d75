/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package exchange drives an issuer/verifier agent through its admin API: invitations,
// credential offers, proof requests and the waits that follow them.
package exchange

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scoir/canis-exchange/pkg/client/rest"
	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/poll"
)

const (
	DefaultLabel          = "Faber"
	ConnectionlessLabel   = "vc-authn-oidc"
	didcommV1Type         = "did:sov:BzCbsNYhMrjHiqZDTUASHg;spec/present-proof/1.0/request-presentation"
	requestPresentationV2 = "https://didcomm.org/present-proof/2.0/request-presentation"
	endorserAliasSuffix   = "-endorser"
)

// Client is one agent tenant. It is safe for concurrent use by independent sessions.
type Client struct {
	agent           *rest.Client
	codec           *invitation.Codec
	waiter          *poll.Waiter
	log             zerolog.Logger
	label           string
	imageURL        string
	serviceEndpoint string
	now             func() time.Time
}

type Option func(c *Client)

func WithCodec(codec *invitation.Codec) Option {
	return func(c *Client) {
		c.codec = codec
	}
}

func WithWaiter(w *poll.Waiter) Option {
	return func(c *Client) {
		c.waiter = w
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func WithLabel(label string) Option {
	return func(c *Client) {
		if label != "" {
			c.label = label
		}
	}
}

func WithImageURL(u string) Option {
	return func(c *Client) {
		c.imageURL = u
	}
}

// WithServiceEndpoint is the endpoint embedded in connectionless proof requests.
func WithServiceEndpoint(u string) Option {
	return func(c *Client) {
		c.serviceEndpoint = u
	}
}

func New(agent *rest.Client, opts ...Option) *Client {
	c := &Client{
		agent: agent,
		codec: invitation.NewCodec(),
		log:   log.Logger,
		label: DefaultLabel,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.waiter == nil {
		c.waiter = poll.New(poll.WithLogger(c.log))
	}

	return c
}

func (r *Client) Codec() *invitation.Codec {
	return r.codec
}

// uniqueLabel tags the label with a millisecond timestamp so concurrent invitations are distinguishable.
func (r *Client) uniqueLabel() string {
	return fmt.Sprintf("%s - %d", r.label, r.now().UnixNano()/int64(time.Millisecond))
}
