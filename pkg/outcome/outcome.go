/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package outcome holds the failure kinds every wait and exchange operation reports.
package outcome

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	KindTransport = "transport"
	KindProtocol  = "protocol"
	KindTimeout   = "timeout"
	KindRedirect  = "redirect"
	KindUnknown   = "unknown"
)

// ErrRedirectUnavailable is returned when an invitation document could not be published
// to its public location. The un-redirected invitation remains usable.
var ErrRedirectUnavailable = errors.New("redirect unavailable")

// TransportError is a network or HTTP failure reaching a peer.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (r *TransportError) Error() string {
	switch {
	case r.StatusCode != 0 && r.Body != "":
		return fmt.Sprintf("%s: unexpected status %d: %s", r.Op, r.StatusCode, r.Body)
	case r.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d", r.Op, r.StatusCode)
	case r.Err != nil:
		return fmt.Sprintf("%s: %v", r.Op, r.Err)
	}

	return r.Op + ": transport failure"
}

func (r *TransportError) Unwrap() error {
	return r.Err
}

// ProtocolFailure means the peer reported a terminal failure state.
type ProtocolFailure struct {
	Target string
	State  string
}

func (r *ProtocolFailure) Error() string {
	return fmt.Sprintf("%s reached terminal state %q", r.Target, r.State)
}

// TimeoutError means the deadline passed while the target was still pending.
// The outcome of the exchange is unknown.
type TimeoutError struct {
	Target   string
	State    string
	Attempts int
}

func (r *TimeoutError) Error() string {
	if r.State == "" {
		return fmt.Sprintf("timed out waiting for %s after %d attempts", r.Target, r.Attempts)
	}

	return fmt.Sprintf("timed out waiting for %s after %d attempts, last state %q", r.Target, r.Attempts, r.State)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsProtocolFailure(err error) bool {
	var pf *ProtocolFailure
	return errors.As(err, &pf)
}

func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

func IsRedirectUnavailable(err error) bool {
	return errors.Is(err, ErrRedirectUnavailable)
}

// Kind names the taxonomy bucket of err for logs and notifications.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsProtocolFailure(err):
		return KindProtocol
	case IsTimeout(err):
		return KindTimeout
	case IsRedirectUnavailable(err):
		return KindRedirect
	case IsTransport(err):
		return KindTransport
	}

	return KindUnknown
}
