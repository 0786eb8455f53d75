/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package holder drives the holder side of an exchange: it receives invitations and accepts
// the offers and requests that follow them.
package holder

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/poll"
)

// Client is implemented by every kind of holder. Callers must tolerate implementations
// for which receiving and accepting are no-ops.
//go:generate mockery -name=Client
type Client interface {
	ReceiveInvitation(ctx context.Context, inv *invitation.Invitation) (*Receipt, error)
	WaitForConnectionReady(ctx context.Context, connectionID string) error
	SendBasicMessage(ctx context.Context, connectionID, content string) error
	FindCredentialOffer(ctx context.Context, connectionID string) (*OfferRef, error)
	AcceptCredentialOffer(ctx context.Context, ref OfferRef) error
	AcceptProof(ctx context.Context, ref ProofRef) error
}

// Receipt is the holder's view of a received invitation.
type Receipt struct {
	ConnectionID string
	OutOfBandID  string
	// PendingRequestThreadIDs are the thread ids of requests attached to the invitation.
	PendingRequestThreadIDs []string
}

// OfferRef points at a credential offer in the holder's own records. V2 marks an
// issue-credential 2.0 exchange.
type OfferRef struct {
	ID           string
	ConnectionID string
	ThreadID     string
	V2           bool
}

// ProofRef selects a proof request either by thread id or by the connection it arrived on.
type ProofRef struct {
	ID           string
	ConnectionID string
}

func ByThread(threadID string) ProofRef {
	return ProofRef{ID: threadID}
}

func ByConnection(connectionID string) ProofRef {
	return ProofRef{ConnectionID: connectionID}
}

func (r ProofRef) validate() error {
	if (r.ID == "") == (r.ConnectionID == "") {
		return errors.New("proof reference needs exactly one of a thread id or a connection id")
	}

	return nil
}

func (r ProofRef) String() string {
	if r.ID != "" {
		return "proof request thread " + r.ID
	}

	return "proof request on connection " + r.ConnectionID
}

type options struct {
	codec  *invitation.Codec
	waiter *poll.Waiter
	log    zerolog.Logger

	dir    string
	qrFile string
	qrSize int
}

type Option func(o *options)

func WithCodec(codec *invitation.Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

func WithWaiter(w *poll.Waiter) Option {
	return func(o *options) {
		o.waiter = w
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithOutputDir is where the manual holder writes the invitation for a human.
func WithOutputDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.dir = dir
		}
	}
}

// WithQRCode sets the manual holder's QR file name and pixel size.
func WithQRCode(file string, size int) Option {
	return func(o *options) {
		if file != "" {
			o.qrFile = file
		}
		if size > 0 {
			o.qrSize = size
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		log:    log.Logger,
		dir:    ".",
		qrFile: DefaultQRFile,
		qrSize: DefaultQRSize,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.codec == nil {
		o.codec = invitation.NewCodec()
	}

	if o.waiter == nil {
		o.waiter = poll.New(poll.WithLogger(o.log))
	}

	return o
}

// document returns the invitation as the holder would see it: decoded from its transport URL
// when there is one.
func document(ctx context.Context, codec *invitation.Codec, inv *invitation.Invitation) (invitation.Document, error) {
	if inv == nil {
		return nil, errors.New("no invitation")
	}

	if inv.Payload.URL == "" {
		if inv.Payload.Invitation == nil {
			return nil, errors.New("invitation has neither a URL nor a document")
		}
		return inv.Payload.Invitation.Clone(), nil
	}

	doc, err := codec.Decode(ctx, inv.Payload.URL)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode invitation")
	}

	return doc, nil
}
