/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package session drives an inviter and a holder through a complete exchange, one stage at a
// time, and reports how far each session got.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scoir/canis-exchange/pkg/exchange"
	"github.com/scoir/canis-exchange/pkg/holder"
	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/outcome"
	"github.com/scoir/canis-exchange/pkg/schema"
)

// Inviter mints invitations and watches the connections they produce.
type Inviter interface {
	CreateInvitation(ctx context.Context, variant invitation.Variant) (*invitation.Invitation, error)
	WaitForConnectionReady(ctx context.Context, connectionID string) error
	WaitForOOBConnectionReady(ctx context.Context, inviMsgID string) (string, error)
}

type Issuer interface {
	Inviter
	SendCredentialOffer(ctx context.Context, connectionID, credDefID string, preview *schema.CredentialPreview) (*exchange.CredentialExchange, error)
	SendCredentialOfferV2(ctx context.Context, connectionID, credDefID string, preview *schema.CredentialPreview) (*exchange.CredentialExchange, error)
	SendOOBCredentialOffer(ctx context.Context, credDefID string, preview *schema.CredentialPreview, connectionless bool) (*invitation.Invitation, error)
	WaitForCredentialAccepted(ctx context.Context, credExID string) (*exchange.CredentialExchange, error)
	WaitForCredentialAcceptedV2(ctx context.Context, credExID string) (*exchange.CredentialExchange, error)
	RevokeCredential(ctx context.Context, cred *exchange.CredentialExchange, comment string) error
	WaitForCredentialRevoked(ctx context.Context, revRegID, credRevID string) error
}

// Messenger exchanges basic messages over a connection it set up.
type Messenger interface {
	Inviter
	SendBasicMessage(ctx context.Context, connectionID, content string) (*exchange.BasicMessage, error)
	WaitForBasicMessage(ctx context.Context, connectionID string, after time.Time, contents ...string) (*exchange.BasicMessage, error)
}

type Verifier interface {
	Inviter
	SendProofRequest(ctx context.Context, connectionID string, req *schema.ProofRequest) (string, error)
	WaitForPresentation(ctx context.Context, presExID string) (*exchange.Presentation, error)
	WaitForPresentationV2(ctx context.Context, presExID string) (*exchange.Presentation, error)
	SendConnectionlessProofRequest(ctx context.Context, req *schema.ProofRequest) (*invitation.Invitation, error)
	SendConnectionlessProofRequestV2(ctx context.Context, req *schema.ProofRequest) (*invitation.Invitation, error)
	SendOOBConnectionlessProofRequest(ctx context.Context, req *schema.ProofRequest) (*invitation.Invitation, error)
	SendOOBConnectionlessProofRequestV2(ctx context.Context, req *schema.ProofRequest) (*invitation.Invitation, error)
}

var (
	_ Issuer    = (*exchange.Client)(nil)
	_ Verifier  = (*exchange.Client)(nil)
	_ Messenger = (*exchange.Client)(nil)
)

type Orchestrator struct {
	holder    holder.Client
	publisher invitation.Publisher
	redirect  bool
	fallback  bool
	deepLink  string
	reporter  Reporter
	log       zerolog.Logger
	now       func() time.Time
}

type Option func(o *Orchestrator)

// WithRedirect publishes every invitation through pub and hands the holder the public link.
func WithRedirect(pub invitation.Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = pub
		o.redirect = pub != nil
	}
}

// WithPublisher makes pub available to sessions that ask for a redirect without turning it
// on for every session.
func WithPublisher(pub invitation.Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = pub
	}
}

// WithRedirectFallback continues with the original invitation when publishing fails.
func WithRedirectFallback() Option {
	return func(o *Orchestrator) {
		o.fallback = true
	}
}

// WithDeepLink wraps every invitation URL in the given landing page.
func WithDeepLink(page string) Option {
	return func(o *Orchestrator) {
		o.deepLink = page
	}
}

func WithReporter(rep Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = rep
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

func New(h holder.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		holder: h,
		log:    log.Logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// run tracks a single session through its stages.
type run struct {
	o   *Orchestrator
	s   *Session
	log zerolog.Logger
}

func (r *Orchestrator) start(scenario Scenario, variant invitation.Variant) *run {
	s := &Session{
		ID:       uuid.New().String(),
		Scenario: scenario,
		Variant:  variant,
		State:    StateRunning,
		Started:  r.now(),
	}

	l := r.log.With().Str("session_id", s.ID).Str("scenario", string(scenario)).Logger()
	l.Info().Str("variant", string(variant)).Msg("session started")

	return &run{o: r, s: s, log: l}
}

// stage runs fn as the named stage. A failure becomes the session's StageError.
func (r *run) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	st := &Stage{Name: name, Started: r.o.now()}
	r.s.Stages = append(r.s.Stages, st)

	r.log.Debug().Str("stage", name).Msg("stage started")

	err := fn(ctx)
	st.Duration = r.o.now().Sub(st.Started)
	if err == nil {
		r.log.Debug().Str("stage", name).Dur("elapsed", st.Duration).Msg("stage done")
		return nil
	}

	st.Error = err.Error()
	r.log.Error().
		Err(err).
		Str("stage", name).
		Str("kind", outcome.Kind(err)).
		Str("correlation_id", r.s.CorrelationID).
		Msg("stage failed")

	return &StageError{Stage: name, SessionID: r.s.ID, CorrelationID: r.s.CorrelationID, Err: err}
}

func (r *run) finish(ctx context.Context, err error) (*Session, error) {
	r.s.Finished = r.o.now()

	if err != nil {
		r.s.State = StateFailed
		r.s.Err = err
		r.s.Error = err.Error()
		r.s.ErrorKind = outcome.Kind(err)
	} else {
		r.s.State = StateCompleted
		r.log.Info().
			Str("correlation_id", r.s.CorrelationID).
			Str("exchange_id", r.s.ExchangeID).
			Dur("elapsed", r.s.Finished.Sub(r.s.Started)).
			Msg("session completed")
	}

	if r.o.reporter != nil {
		if rerr := r.o.reporter.Report(ctx, r.s); rerr != nil {
			r.log.Warn().Err(rerr).Msg("unable to report session")
		}
	}

	return r.s, err
}

// deliver applies the redirect and deep link wrappers the session asked for.
func (r *run) deliver(ctx context.Context, inv *invitation.Invitation, redirect bool, deepLink string) (*invitation.Invitation, error) {
	out := inv

	if redirect {
		err := r.stage(ctx, StageRedirect, func(ctx context.Context) error {
			redirected, err := invitation.WithRedirect(ctx, inv, r.o.publisher)
			if err != nil {
				if r.o.fallback && outcome.IsRedirectUnavailable(err) {
					r.log.Warn().Err(err).Msg("redirect unavailable, using the encoded invitation")
					return nil
				}
				return err
			}

			out = redirected
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if deepLink != "" {
		_ = r.stage(ctx, StageDeepLink, func(ctx context.Context) error {
			out = invitation.WithDeepLink(out, deepLink)
			return nil
		})
	}

	r.s.InvitationURL = out.Payload.URL
	return out, nil
}

// connect creates an invitation and establishes the connection it offers.
func (r *run) connect(ctx context.Context, inviter Inviter, variant invitation.Variant) error {
	var inv *invitation.Invitation

	err := r.stage(ctx, StageInvite, func(ctx context.Context) error {
		var err error
		inv, err = inviter.CreateInvitation(ctx, variant)
		if err != nil {
			return err
		}

		r.s.CorrelationID = inv.CorrelationID()
		r.s.InviterConnectionID = inv.Payload.ConnectionID
		return nil
	})
	if err != nil {
		return err
	}

	return r.establish(ctx, inviter, inv)
}

// establish hands inv to the holder and waits until both peers report the connection ready.
// A holder that reports no connection id is not waited on.
func (r *run) establish(ctx context.Context, inviter Inviter, inv *invitation.Invitation) error {
	delivered, err := r.deliver(ctx, inv, r.o.redirect, r.o.deepLink)
	if err != nil {
		return err
	}

	err = r.stage(ctx, StageReceive, func(ctx context.Context) error {
		receipt, err := r.o.holder.ReceiveInvitation(ctx, delivered)
		if err != nil {
			return err
		}

		r.s.InviteeConnectionID = receipt.ConnectionID
		return nil
	})
	if err != nil {
		return err
	}

	return r.stage(ctx, StageConnection, func(ctx context.Context) error {
		if inv.Variant.OutOfBand() {
			connectionID, err := inviter.WaitForOOBConnectionReady(ctx, inv.Payload.InvitationMessageID)
			if connectionID != "" {
				r.s.InviterConnectionID = connectionID
			}
			if err != nil {
				return err
			}
		} else if err := inviter.WaitForConnectionReady(ctx, r.s.InviterConnectionID); err != nil {
			return err
		}

		if r.s.InviteeConnectionID == "" {
			r.log.Debug().Msg("holder reported no connection, not waiting on its side")
			return nil
		}

		return r.o.holder.WaitForConnectionReady(ctx, r.s.InviteeConnectionID)
	})
}
