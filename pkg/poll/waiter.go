/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package poll drives a status fetch until it settles, with a fixed interval and a bounded deadline.
package poll

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scoir/canis-exchange/pkg/outcome"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 2 * time.Minute
)

// Status classifies one observation of a target.
type Status int

const (
	Pending Status = iota
	Success
	Failure
)

func (r Status) String() string {
	switch r {
	case Success:
		return "success"
	case Failure:
		return "failure"
	}

	return "pending"
}

// Check fetches the target once and classifies what it saw. The returned state is the
// peer-reported value and is carried into logs and errors.
type Check func(ctx context.Context) (Status, string, error)

var errPending = errors.New("still pending")

// Waiter is the single retry primitive behind every "wait for" operation.
type Waiter struct {
	Interval time.Duration
	// Timeout bounds the whole wait. Zero means DefaultTimeout unless Forever is set.
	Timeout     time.Duration
	MaxAttempts uint64
	// Forever removes the Timeout and MaxAttempts bounds. The caller's context still applies.
	Forever bool
	// TransportRetries is how many consecutive fetch errors are tolerated before failing.
	TransportRetries uint64
	Logger           zerolog.Logger
}

type Option func(w *Waiter)

func WithInterval(d time.Duration) Option {
	return func(w *Waiter) {
		w.Interval = d
	}
}

func WithTimeout(d time.Duration) Option {
	return func(w *Waiter) {
		w.Timeout = d
	}
}

func WithMaxAttempts(n uint64) Option {
	return func(w *Waiter) {
		w.MaxAttempts = n
	}
}

// WaitForever is meant for interactive sessions where a human completes the other side.
func WaitForever() Option {
	return func(w *Waiter) {
		w.Forever = true
	}
}

func WithTransportRetries(n uint64) Option {
	return func(w *Waiter) {
		w.TransportRetries = n
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(w *Waiter) {
		w.Logger = l
	}
}

func New(opts ...Option) *Waiter {
	w := &Waiter{
		Interval: DefaultInterval,
		Timeout:  DefaultTimeout,
		Logger:   log.Logger,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Default is a Waiter with the default interval and timeout.
func Default() *Waiter {
	return New()
}

// Bound applies the waiter's deadline to ctx. Forever leaves ctx unbounded.
func (r *Waiter) Bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Forever {
		return context.WithCancel(ctx)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return context.WithTimeout(ctx, timeout)
}

// Wait runs check until it reports Success or Failure, the deadline passes, or attempts run out.
// The first check runs immediately and every later one waits Interval.
func (r *Waiter) Wait(ctx context.Context, target string, check Check) error {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	waitCtx, cancel := r.Bound(ctx)
	defer cancel()

	var b backoff.BackOff = backoff.NewConstantBackOff(interval)
	if !r.Forever && r.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, r.MaxAttempts-1)
	}
	b = backoff.WithContext(b, waitCtx)

	var (
		attempts  int
		transport uint64
		lastState string
	)

	op := func() error {
		attempts++

		status, state, err := check(waitCtx)
		if err != nil {
			if waitCtx.Err() != nil {
				return backoff.Permanent(errPending)
			}

			transport++
			if transport > r.TransportRetries {
				return backoff.Permanent(transportError(target, err))
			}

			return errors.Wrapf(err, "fetching %s", target)
		}

		transport = 0
		lastState = state

		switch status {
		case Success:
			return nil
		case Failure:
			return backoff.Permanent(&outcome.ProtocolFailure{Target: target, State: state})
		}

		return errPending
	}

	notify := func(err error, next time.Duration) {
		if err == errPending {
			r.Logger.Debug().
				Str("target", target).
				Str("state", lastState).
				Int("attempt", attempts).
				Dur("next", next).
				Msg("still waiting")
			return
		}

		r.Logger.Warn().
			Err(err).
			Str("target", target).
			Int("attempt", attempts).
			Msg("transient fetch failure, retrying")
	}

	err := backoff.RetryNotify(op, b, notify)
	if err == nil {
		r.Logger.Debug().Str("target", target).Str("state", lastState).Int("attempts", attempts).Msg("settled")
		return nil
	}

	if outcome.IsTransport(err) || outcome.IsProtocolFailure(err) {
		return err
	}

	if ctx.Err() == context.Canceled {
		return errors.Wrapf(ctx.Err(), "waiting for %s", target)
	}

	if err != errPending {
		// the last tolerated fetch error ran into the deadline or the attempt limit
		return transportError(target, errors.Cause(err))
	}

	return &outcome.TimeoutError{Target: target, State: lastState, Attempts: attempts}
}

func transportError(target string, err error) error {
	var te *outcome.TransportError
	if errors.As(err, &te) {
		return err
	}

	return &outcome.TransportError{Op: "fetch " + target, Err: err}
}
