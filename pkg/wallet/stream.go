/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"github.com/scoir/canis-exchange/pkg/amqp"
	"github.com/scoir/canis-exchange/pkg/outcome"
)

const readLimit = 1 << 20

// Stream produces wallet events until the context ends or the source goes away,
// then closes the channel.
type Stream interface {
	Events(ctx context.Context) (<-chan Event, error)
}

type StreamOption func(o *streamOpts)

type streamOpts struct {
	log        zerolog.Logger
	httpClient *http.Client
}

func WithStreamLogger(l zerolog.Logger) StreamOption {
	return func(o *streamOpts) {
		o.log = l
	}
}

func WithStreamHTTPClient(hc *http.Client) StreamOption {
	return func(o *streamOpts) {
		o.httpClient = hc
	}
}

func newStreamOpts(opts []StreamOption) streamOpts {
	o := streamOpts{log: log.Logger}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WebsocketStream reads event frames from the wallet's websocket endpoint.
type WebsocketStream struct {
	url  string
	opts streamOpts
}

func NewWebsocketStream(url string, opts ...StreamOption) *WebsocketStream {
	return &WebsocketStream{url: url, opts: newStreamOpts(opts)}
}

func (r *WebsocketStream) Events(ctx context.Context) (<-chan Event, error) {
	conn, _, err := websocket.Dial(ctx, r.url, &websocket.DialOptions{
		HTTPClient: r.opts.httpClient,
	})
	if err != nil {
		return nil, &outcome.TransportError{Op: "DIAL " + r.url, Err: err}
	}
	conn.SetReadLimit(readLimit)

	out := make(chan Event)
	go func() {
		defer close(out)
		defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

		for {
			_, b, err := conn.Read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					r.opts.log.Warn().Err(err).Str("url", r.url).Msg("wallet event stream closed")
				}
				return
			}

			ev, err := ParseEvent(b)
			if err != nil {
				r.opts.log.Debug().Err(err).Msg("skipping wallet event frame")
				continue
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// AMQPStream reads event frames from a broker queue.
type AMQPStream struct {
	listener amqp.Listener
	opts     streamOpts
}

func NewAMQPStream(listener amqp.Listener, opts ...StreamOption) *AMQPStream {
	return &AMQPStream{listener: listener, opts: newStreamOpts(opts)}
}

func (r *AMQPStream) Events(ctx context.Context) (<-chan Event, error) {
	deliveries, err := r.listener.Listen()
	if err != nil {
		return nil, err
	}

	out := make(chan Event)
	go func() {
		defer close(out)

		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					r.opts.log.Warn().Msg("wallet event queue closed")
					return
				}

				ev, err := ParseEvent(d.Body)
				if err != nil {
					r.opts.log.Debug().Err(err).Msg("skipping wallet event delivery")
					continue
				}

				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
