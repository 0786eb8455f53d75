/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package holder

import (
	"context"

	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/outcome"
	"github.com/scoir/canis-exchange/pkg/poll"
	"github.com/scoir/canis-exchange/pkg/wallet"
)

var (
	walletConnectionStates = poll.States(
		[]string{wallet.ConnectionCompleted},
		[]string{wallet.ConnectionAbandoned},
	)
	walletOfferStates = poll.States(
		[]string{wallet.CredentialOfferReceived},
		[]string{wallet.CredentialDeclined, wallet.CredentialAbandoned},
	)
	walletCredentialStates = poll.States(
		[]string{wallet.CredentialReceived, wallet.CredentialDone},
		[]string{wallet.CredentialDeclined, wallet.CredentialAbandoned},
	)
	walletRequestStates = poll.States(
		[]string{wallet.ProofRequestReceived, wallet.ProofPresentationSent, wallet.ProofDone},
		[]string{wallet.ProofDeclined, wallet.ProofAbandoned},
	)
	walletPresentedStates = poll.States(
		[]string{wallet.ProofPresentationSent, wallet.ProofDone},
		[]string{wallet.ProofDeclined, wallet.ProofAbandoned},
	)
)

// Wallet is a holder backed by an event-driven wallet runtime. Every wait subscribes to
// the runtime's record events before it looks at existing records, so nothing saved in
// between is missed.
type Wallet struct {
	runtime wallet.Runtime
	hub     *wallet.Hub
	*options
}

var _ Client = (*Wallet)(nil)

// NewWallet expects hub to be started by the caller.
func NewWallet(runtime wallet.Runtime, hub *wallet.Hub, opts ...Option) *Wallet {
	return &Wallet{runtime: runtime, hub: hub, options: newOptions(opts)}
}

func (r *Wallet) ReceiveInvitation(ctx context.Context, inv *invitation.Invitation) (*Receipt, error) {
	doc, err := document(ctx, r.codec, inv)
	if err != nil {
		return nil, err
	}

	// the runtime resolves launch and document URLs itself but not landing pages
	link := invitation.Unwrap(inv.Payload.URL)
	if link == "" {
		encoded, err := r.codec.Encode(inv.Variant, doc)
		if err != nil {
			return nil, err
		}
		link = encoded.Payload.URL
	}

	resp, err := r.runtime.ReceiveInvitationURL(ctx, link)
	if err != nil {
		return nil, errors.Wrap(err, "wallet rejected invitation")
	}

	receipt := &Receipt{
		ConnectionID:            resp.ConnectionID(),
		OutOfBandID:             resp.OutOfBandID(),
		PendingRequestThreadIDs: invitation.RequestThreadIDs(doc),
	}

	r.log.Info().
		Str("connection_id", receipt.ConnectionID).
		Str("oob_id", receipt.OutOfBandID).
		Strs("thread_ids", receipt.PendingRequestThreadIDs).
		Msg("invitation received by wallet")

	return receipt, nil
}

// WaitForConnectionReady waits for the wallet's connection record to complete.
func (r *Wallet) WaitForConnectionReady(ctx context.Context, connectionID string) error {
	if connectionID == "" {
		return errors.New("no holder connection to wait on")
	}

	target := "wallet connection " + connectionID
	sub := r.hub.Subscribe(wallet.RecordSaved(wallet.ConnectionRecordType), wallet.Where(func(ev wallet.Event) bool {
		return ev.ID() == connectionID
	}))
	defer sub.Close()

	conns, err := r.runtime.Connections(ctx)
	if err != nil {
		return err
	}

	for _, c := range conns {
		if c.ID != connectionID {
			continue
		}

		switch walletConnectionStates(c.State) {
		case poll.Success:
			return nil
		case poll.Failure:
			return &outcome.ProtocolFailure{Target: target, State: c.State}
		}
	}

	_, err = r.await(ctx, target, sub, walletConnectionStates)
	return err
}

func (r *Wallet) SendBasicMessage(ctx context.Context, connectionID, content string) error {
	if err := r.runtime.SendBasicMessage(ctx, connectionID, content); err != nil {
		return errors.Wrap(err, "wallet could not send basic message")
	}

	return nil
}

func (r *Wallet) FindCredentialOffer(ctx context.Context, connectionID string) (*OfferRef, error) {
	onConnection := func(ev wallet.Event) bool {
		return ev.ConnectionID() == connectionID && ev.State() == wallet.CredentialOfferReceived
	}

	sub := r.hub.Subscribe(wallet.RecordSaved(wallet.CredentialRecordType), wallet.Where(onConnection))
	defer sub.Close()

	creds, err := r.runtime.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	for _, c := range creds {
		if c.ConnectionID == connectionID && c.State == wallet.CredentialOfferReceived {
			return &OfferRef{ID: c.ID, ConnectionID: c.ConnectionID, ThreadID: c.ThreadID}, nil
		}
	}

	ev, err := r.await(ctx, "credential offer on connection "+connectionID, sub, walletOfferStates)
	if err != nil {
		return nil, err
	}

	return &OfferRef{ID: ev.ID(), ConnectionID: ev.ConnectionID(), ThreadID: ev.ThreadID()}, nil
}

// AcceptCredentialOffer accepts the offer and waits for the credential to arrive.
func (r *Wallet) AcceptCredentialOffer(ctx context.Context, ref OfferRef) error {
	if ref.ID == "" {
		if ref.ConnectionID == "" {
			return errors.New("offer reference needs an id or a connection id")
		}

		found, err := r.FindCredentialOffer(ctx, ref.ConnectionID)
		if err != nil {
			return err
		}
		ref = *found
	}

	target := "credential " + ref.ID
	sub := r.hub.Subscribe(wallet.RecordSaved(wallet.CredentialRecordType), wallet.Where(func(ev wallet.Event) bool {
		return ev.ID() == ref.ID
	}))
	defer sub.Close()

	state, err := r.credentialState(ctx, ref.ID)
	if err != nil {
		return err
	}

	if state == wallet.CredentialOfferReceived {
		rec, err := r.runtime.AcceptCredentialOffer(ctx, ref.ID)
		if err != nil {
			return errors.Wrapf(err, "unable to accept credential offer %s", ref.ID)
		}
		state = rec.State
		r.log.Info().Str("exchange_id", ref.ID).Str("state", state).Msg("credential offer accepted")
	}

	switch walletCredentialStates(state) {
	case poll.Success:
		return nil
	case poll.Failure:
		return &outcome.ProtocolFailure{Target: target, State: state}
	}

	_, err = r.await(ctx, target, sub, walletCredentialStates)
	return err
}

func (r *Wallet) credentialState(ctx context.Context, id string) (string, error) {
	creds, err := r.runtime.Credentials(ctx)
	if err != nil {
		return "", err
	}

	for _, c := range creds {
		if c.ID == id {
			return c.State, nil
		}
	}

	return "", errors.Errorf("wallet has no credential record %s", id)
}

// AcceptProof waits for the referenced request, accepts it and waits for the presentation
// to go out.
func (r *Wallet) AcceptProof(ctx context.Context, ref ProofRef) error {
	if err := ref.validate(); err != nil {
		return err
	}

	matches := func(threadID, connectionID, state string) bool {
		if ref.ID != "" {
			return threadID == ref.ID
		}
		return connectionID == ref.ConnectionID && state == wallet.ProofRequestReceived
	}

	sub := r.hub.Subscribe(wallet.RecordSaved(wallet.ProofRecordType), wallet.Where(func(ev wallet.Event) bool {
		return matches(ev.ThreadID(), ev.ConnectionID(), ev.State())
	}))
	defer sub.Close()

	proofs, err := r.runtime.Proofs(ctx)
	if err != nil {
		return err
	}

	var id, state string
	for _, p := range proofs {
		if matches(p.ThreadID, p.ConnectionID, p.State) {
			id, state = p.ID, p.State
			break
		}
	}

	if id == "" && ref.ID == "" {
		// a request answered earlier no longer shows as received
		if latest := latestProof(proofs, ref.ConnectionID); latest != nil && walletPresentedStates(latest.State) == poll.Success {
			r.log.Debug().Str("exchange_id", latest.ID).Str("state", latest.State).Msg("proof request already answered")
			return nil
		}
	}

	if id == "" {
		ev, err := r.await(ctx, ref.String(), sub, walletRequestStates)
		if err != nil {
			return err
		}
		id, state = ev.ID(), ev.State()
	}

	switch walletRequestStates(state) {
	case poll.Failure:
		return &outcome.ProtocolFailure{Target: ref.String(), State: state}
	case poll.Pending:
		// seen in scan but not yet actionable
		ev, err := r.await(ctx, ref.String(), sub, walletRequestStates)
		if err != nil {
			return err
		}
		id, state = ev.ID(), ev.State()
	}

	if state != wallet.ProofRequestReceived {
		r.log.Debug().Str("exchange_id", id).Str("state", state).Msg("proof request already answered")
		return nil
	}

	target := "presentation " + id
	sent := r.hub.Subscribe(wallet.RecordSaved(wallet.ProofRecordType), wallet.Where(func(ev wallet.Event) bool {
		return ev.ID() == id
	}))
	defer sent.Close()

	rec, err := r.runtime.AcceptProofRequest(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "unable to accept proof request %s", id)
	}

	r.log.Info().Str("exchange_id", id).Str("state", rec.State).Msg("proof request accepted")

	switch walletPresentedStates(rec.State) {
	case poll.Success:
		return nil
	case poll.Failure:
		return &outcome.ProtocolFailure{Target: target, State: rec.State}
	}

	_, err = r.await(ctx, target, sent, walletPresentedStates)
	return err
}

func latestProof(proofs []*wallet.ProofRecord, connectionID string) *wallet.ProofRecord {
	var latest *wallet.ProofRecord
	for _, p := range proofs {
		if p.ConnectionID != connectionID {
			continue
		}
		if latest == nil || p.CreatedAt > latest.CreatedAt {
			latest = p
		}
	}

	return latest
}

// await consumes sub until classify settles, bounded by the waiter's deadline.
func (r *Wallet) await(ctx context.Context, target string, sub *wallet.Subscription, classify poll.Classifier) (wallet.Event, error) {
	waitCtx, cancel := r.waiter.Bound(ctx)
	defer cancel()

	var (
		seen int
		last string
	)

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return wallet.Event{}, &outcome.TransportError{Op: "wallet events for " + target, Err: errors.New("event stream closed")}
			}

			seen++
			last = ev.State()

			switch classify(last) {
			case poll.Success:
				return ev, nil
			case poll.Failure:
				return ev, &outcome.ProtocolFailure{Target: target, State: last}
			}

			r.log.Debug().Str("target", target).Str("state", last).Int("attempt", seen).Msg("still waiting")
		case <-waitCtx.Done():
			if ctx.Err() == context.Canceled {
				return wallet.Event{}, errors.Wrapf(ctx.Err(), "waiting for %s", target)
			}

			return wallet.Event{}, &outcome.TimeoutError{Target: target, State: last, Attempts: seen}
		}
	}
}
