/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package notifier publishes session outcomes and relays them to registered webhooks.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scoir/canis-exchange/pkg/amqp"
	"github.com/scoir/canis-exchange/pkg/datastore"
)

const hookTimeout = 10 * time.Second

type Server struct {
	hooks    datastore.WebhookRegistry
	listener amqp.Listener
	client   *http.Client
	log      zerolog.Logger
	now      func() time.Time
	errors   chan error
}

type provider interface {
	GetWebhooks() datastore.WebhookRegistry
	GetAMQPListener(queue string) (amqp.Listener, error)
}

type Option func(s *Server)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Server) {
		s.client = client
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func New(prov provider, opts ...Option) (*Server, error) {
	listener, err := prov.GetAMQPListener(QueueName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to listen on %s", QueueName)
	}

	srv := &Server{
		hooks:    prov.GetWebhooks(),
		listener: listener,
		client:   &http.Client{Timeout: hookTimeout},
		log:      log.Logger,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv, nil
}

// Start relays notifications until the queue closes or ctx ends.
func (r *Server) Start(ctx context.Context) error {
	msgs, err := r.listener.Listen()
	if err != nil {
		return errors.Wrap(err, "unable to consume")
	}

	r.log.Info().Str("queue", QueueName).Msg("relaying notifications")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("notification messages closed")
			}

			r.relay(ctx, d.Body)
		}
	}
}

func (r *Server) relay(ctx context.Context, body []byte) {
	note := &Notification{}
	err := json.Unmarshal(body, note)
	if err != nil {
		r.Error(errors.Wrap(err, "bad notification message"))
		return
	}

	hooks, err := r.hooks.ListWebhooks(ctx, note.Topic)
	if err != nil {
		r.Error(errors.Wrapf(err, "no webhooks for topic %s", note.Topic))
		return
	}

	event := &EventMessage{
		Event:     note.Event,
		Timestamp: r.now().Unix(),
		EventData: note.EventData,
	}
	data, _ := json.Marshal(event)

	for _, hook := range hooks {
		if err := r.post(ctx, hook.URL, data); err != nil {
			r.Error(err)
			continue
		}

		r.log.Debug().Str("topic", note.Topic).Str("event", note.Event).Str("url", hook.URL).Msg("event delivered")
	}
}

func (r *Server) post(ctx context.Context, url string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return errors.Wrapf(err, "unable to build request for hook %s", url)
	}
	req.Header.Set("Content-Type", amqp.ContentTypeJSON)

	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "unable to post event to hook %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		b, _ := ioutil.ReadAll(resp.Body)
		return errors.Errorf("error response from hook. code: (%d): %s", resp.StatusCode, string(b))
	}

	return nil
}

// Error logs err and hands it to the registered error listener, if it has room.
func (r *Server) Error(err error) {
	r.log.Error().Err(err).Msg("notification failed")

	if r.errors == nil {
		return
	}

	select {
	case r.errors <- err:
	default:
	}
}

func (r *Server) Errors() (chan error, error) {
	if r.errors != nil {
		return nil, errors.New("error listener already registered")
	}

	r.errors = make(chan error, 1)
	return r.errors, nil
}
