/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const subscriptionBuffer = 64

type eventFilter struct {
	eventType  string
	recordType string
	preds      []func(Event) bool
}

// Filter narrows a subscription.
type Filter func(*eventFilter)

// RecordSaved keeps record-saved events for one record type.
func RecordSaved(recordType string) Filter {
	return func(f *eventFilter) {
		f.eventType = RecordSavedEvent
		f.recordType = recordType
	}
}

// Where keeps events fn accepts.
func Where(fn func(Event) bool) Filter {
	return func(f *eventFilter) {
		f.preds = append(f.preds, fn)
	}
}

func (r *eventFilter) match(ev Event) bool {
	if r.eventType != "" && ev.Type != r.eventType {
		return false
	}

	if r.recordType != "" && ev.RecordType != r.recordType {
		return false
	}

	for _, p := range r.preds {
		if !p(ev) {
			return false
		}
	}

	return true
}

type Subscription struct {
	hub    *Hub
	filter eventFilter
	ch     chan Event
	done   chan struct{}
	once   sync.Once
}

// Events is closed when the hub's stream ends.
func (r *Subscription) Events() <-chan Event {
	return r.ch
}

func (r *Subscription) Close() {
	r.once.Do(func() {
		close(r.done)
		r.hub.remove(r)
	})
}

// Hub fans a single wallet stream out to any number of filtered subscriptions.
type Hub struct {
	stream Stream
	log    zerolog.Logger

	lock    sync.Mutex
	subs    map[*Subscription]struct{}
	started bool
	closed  bool
}

type HubOption func(h *Hub)

func WithHubLogger(l zerolog.Logger) HubOption {
	return func(h *Hub) {
		h.log = l
	}
}

func NewHub(stream Stream, opts ...HubOption) *Hub {
	h := &Hub{
		stream: stream,
		log:    log.Logger,
		subs:   map[*Subscription]struct{}{},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Start opens the stream and dispatches until ctx ends or the stream closes.
func (r *Hub) Start(ctx context.Context) error {
	r.lock.Lock()
	if r.started {
		r.lock.Unlock()
		return errors.New("wallet event hub already started")
	}
	r.started = true
	r.lock.Unlock()

	events, err := r.stream.Events(ctx)
	if err != nil {
		r.shutdown()
		return errors.Wrap(err, "unable to open wallet event stream")
	}

	go r.dispatch(ctx, events)
	return nil
}

// Subscribe registers interest in events matching every filter. Matching events are
// delivered in order and never dropped while the subscription is open.
func (r *Hub) Subscribe(filters ...Filter) *Subscription {
	sub := &Subscription{
		hub:  r,
		ch:   make(chan Event, subscriptionBuffer),
		done: make(chan struct{}),
	}

	for _, f := range filters {
		f(&sub.filter)
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		close(sub.ch)
		return sub
	}

	r.subs[sub] = struct{}{}
	return sub
}

func (r *Hub) remove(sub *Subscription) {
	r.lock.Lock()
	delete(r.subs, sub)
	r.lock.Unlock()
}

func (r *Hub) snapshot() []*Subscription {
	r.lock.Lock()
	defer r.lock.Unlock()

	out := make([]*Subscription, 0, len(r.subs))
	for s := range r.subs {
		out = append(out, s)
	}

	return out
}

func (r *Hub) dispatch(ctx context.Context, events <-chan Event) {
	defer r.shutdown()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}

			r.log.Debug().
				Str("event", ev.Type).
				Str("record_type", ev.RecordType).
				Str("record_id", ev.ID()).
				Str("state", ev.State()).
				Msg("wallet event")

			for _, sub := range r.snapshot() {
				if !sub.filter.match(ev) {
					continue
				}

				select {
				case sub.ch <- ev:
				case <-sub.done:
				case <-ctx.Done():
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *Hub) shutdown() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.closed = true
	for sub := range r.subs {
		close(sub.ch)
		delete(r.subs, sub)
	}
}
