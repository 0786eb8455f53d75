/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/exchange"
	"github.com/scoir/canis-exchange/pkg/holder"
	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/schema"
)

// Connect establishes a connection between the inviter and the holder.
func (r *Orchestrator) Connect(ctx context.Context, inviter Inviter, variant invitation.Variant) (*Session, error) {
	run := r.start(ScenarioConnect, variant)
	return run.finish(ctx, run.connect(ctx, inviter, variant))
}

// IssueOption changes how IssueCredential offers the credential.
type IssueOption func(o *issueOpts)

type issueOpts struct {
	v2        bool
	outOfBand bool
	revoke    bool
	comment   string
}

// OfferV2 uses issue-credential 2.0 over the connection.
func OfferV2() IssueOption {
	return func(o *issueOpts) {
		o.v2 = true
	}
}

// OfferOutOfBand attaches the offer to the out-of-band invitation that sets up the connection.
func OfferOutOfBand() IssueOption {
	return func(o *issueOpts) {
		o.outOfBand = true
	}
}

// RevokeAfterIssue revokes the credential once it is acknowledged and waits for the registry to
// report it revoked.
func RevokeAfterIssue(comment string) IssueOption {
	return func(o *issueOpts) {
		o.revoke = true
		o.comment = comment
	}
}

// IssueCredential connects, offers a credential, has the holder accept it and waits for the
// issuer to see it acknowledged. An out-of-band offer always uses oob-connection-v1.
func (r *Orchestrator) IssueCredential(ctx context.Context, issuer Issuer, variant invitation.Variant, credDefID string, preview *schema.CredentialPreview, opts ...IssueOption) (*Session, error) {
	o := &issueOpts{}
	for _, opt := range opts {
		opt(o)
	}

	if o.outOfBand {
		variant = invitation.OOBConnectionV1
	}

	run := r.start(ScenarioIssue, variant)
	if o.outOfBand && o.v2 {
		return run.finish(ctx, errors.New("out-of-band credential offers use issue-credential 1.0"))
	}

	return run.finish(ctx, run.issue(ctx, issuer, variant, credDefID, preview, o))
}

func (r *run) issue(ctx context.Context, issuer Issuer, variant invitation.Variant, credDefID string, preview *schema.CredentialPreview, o *issueOpts) error {
	var err error
	if o.outOfBand {
		err = r.offerOutOfBand(ctx, issuer, credDefID, preview)
	} else {
		err = r.offerOverConnection(ctx, issuer, variant, credDefID, preview, o.v2)
	}
	if err != nil {
		return err
	}

	var ref *holder.OfferRef
	err = r.stage(ctx, StageFindOffer, func(ctx context.Context) error {
		var err error
		ref, err = r.o.holder.FindCredentialOffer(ctx, r.s.InviteeConnectionID)
		return err
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, StageAcceptOffer, func(ctx context.Context) error {
		return r.o.holder.AcceptCredentialOffer(ctx, *ref)
	})
	if err != nil {
		return err
	}

	var cx *exchange.CredentialExchange
	err = r.stage(ctx, StageCredential, func(ctx context.Context) error {
		var err error
		if o.v2 {
			cx, err = issuer.WaitForCredentialAcceptedV2(ctx, r.s.ExchangeID)
		} else {
			cx, err = issuer.WaitForCredentialAccepted(ctx, r.s.ExchangeID)
		}
		return err
	})
	if err != nil || !o.revoke {
		return err
	}

	err = r.stage(ctx, StageRevoke, func(ctx context.Context) error {
		return issuer.RevokeCredential(ctx, cx, o.comment)
	})
	if err != nil {
		return err
	}

	return r.stage(ctx, StageRevoked, func(ctx context.Context) error {
		return issuer.WaitForCredentialRevoked(ctx, cx.RevocRegID, cx.RevocationID)
	})
}

func (r *run) offerOverConnection(ctx context.Context, issuer Issuer, variant invitation.Variant, credDefID string, preview *schema.CredentialPreview, v2 bool) error {
	if err := r.connect(ctx, issuer, variant); err != nil {
		return err
	}

	return r.stage(ctx, StageSendOffer, func(ctx context.Context) error {
		var (
			cx  *exchange.CredentialExchange
			err error
		)
		if v2 {
			cx, err = issuer.SendCredentialOfferV2(ctx, r.s.InviterConnectionID, credDefID, preview)
		} else {
			cx, err = issuer.SendCredentialOffer(ctx, r.s.InviterConnectionID, credDefID, preview)
		}
		if err != nil {
			return err
		}

		r.s.ExchangeID = cx.CredentialExchangeID
		return nil
	})
}

// offerOutOfBand sends the offer first; the connection comes out of the invitation carrying it.
func (r *run) offerOutOfBand(ctx context.Context, issuer Issuer, credDefID string, preview *schema.CredentialPreview) error {
	var inv *invitation.Invitation

	err := r.stage(ctx, StageSendOffer, func(ctx context.Context) error {
		var err error
		inv, err = issuer.SendOOBCredentialOffer(ctx, credDefID, preview, false)
		if err != nil {
			return err
		}

		r.s.CorrelationID = inv.CorrelationID()
		r.s.ExchangeID = inv.Payload.ExchangeID
		return nil
	})
	if err != nil {
		return err
	}

	return r.establish(ctx, issuer, inv)
}

// Message connects, sends content from the inviter and waits for the holder's reply to reach it.
func (r *Orchestrator) Message(ctx context.Context, messenger Messenger, variant invitation.Variant, content, reply string) (*Session, error) {
	run := r.start(ScenarioMessage, variant)
	return run.finish(ctx, run.message(ctx, messenger, variant, content, reply))
}

func (r *run) message(ctx context.Context, messenger Messenger, variant invitation.Variant, content, reply string) error {
	if err := r.connect(ctx, messenger, variant); err != nil {
		return err
	}

	var sent *exchange.BasicMessage
	err := r.stage(ctx, StageSendMessage, func(ctx context.Context) error {
		var err error
		sent, err = messenger.SendBasicMessage(ctx, r.s.InviterConnectionID, content)
		return err
	})
	if err != nil {
		return err
	}

	// an unreadable stamp matches any reply
	after := sent.Created()

	err = r.stage(ctx, StageReplyMessage, func(ctx context.Context) error {
		if r.s.InviteeConnectionID == "" {
			r.log.Info().Str("reply", reply).Msg("holder reported no connection, waiting for the reply from the wallet")
			return nil
		}
		return r.o.holder.SendBasicMessage(ctx, r.s.InviteeConnectionID, reply)
	})
	if err != nil {
		return err
	}

	return r.stage(ctx, StageMessage, func(ctx context.Context) error {
		m, err := messenger.WaitForBasicMessage(ctx, r.s.InviterConnectionID, after, strings.ToLower(reply))
		if m != nil {
			r.s.ExchangeID = m.MessageID
		}
		return err
	})
}

// RequestProof connects, requests a proof over the connection, has the holder answer it and
// waits for the verifier to finish the exchange.
func (r *Orchestrator) RequestProof(ctx context.Context, verifier Verifier, variant invitation.Variant, req *schema.ProofRequest) (*Session, error) {
	run := r.start(ScenarioRequestProof, variant)
	return run.finish(ctx, run.requestProof(ctx, verifier, variant, req))
}

func (r *run) requestProof(ctx context.Context, verifier Verifier, variant invitation.Variant, req *schema.ProofRequest) error {
	if err := r.connect(ctx, verifier, variant); err != nil {
		return err
	}

	err := r.stage(ctx, StageSendRequest, func(ctx context.Context) error {
		id, err := verifier.SendProofRequest(ctx, r.s.InviterConnectionID, req)
		if err != nil {
			return err
		}

		r.s.ExchangeID = id
		return nil
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, StageAcceptProof, func(ctx context.Context) error {
		return r.o.holder.AcceptProof(ctx, holder.ByConnection(r.s.InviteeConnectionID))
	})
	if err != nil {
		return err
	}

	return r.stage(ctx, StagePresentation, func(ctx context.Context) error {
		p, err := verifier.WaitForPresentation(ctx, r.s.ExchangeID)
		if p != nil {
			r.s.Verified = p.IsVerified()
		}
		return err
	})
}

// Mode selects how a connectionless proof request reaches the holder.
type Mode struct {
	// OutOfBand attaches the request to an out-of-band invitation instead of sending
	// the bare request with a service decorator.
	OutOfBand bool
	Redirect  bool
	DeepLink  bool
	// V2 uses present-proof 2.0.
	V2 bool
}

// VerifyConnectionless sends a proof request the holder can answer without a connection and
// waits for the presentation.
func (r *Orchestrator) VerifyConnectionless(ctx context.Context, verifier Verifier, req *schema.ProofRequest, mode Mode) (*Session, error) {
	variant := invitation.ConnectionV1
	if mode.OutOfBand {
		variant = invitation.OOBDIDExchangeV11
	}

	run := r.start(ScenarioConnectionless, variant)
	return run.finish(ctx, run.verifyConnectionless(ctx, verifier, req, mode))
}

func (r *run) verifyConnectionless(ctx context.Context, verifier Verifier, req *schema.ProofRequest, mode Mode) error {
	var inv *invitation.Invitation

	err := r.stage(ctx, StageCreateRequest, func(ctx context.Context) error {
		var err error
		switch {
		case mode.OutOfBand && mode.V2:
			inv, err = verifier.SendOOBConnectionlessProofRequestV2(ctx, req)
		case mode.OutOfBand:
			inv, err = verifier.SendOOBConnectionlessProofRequest(ctx, req)
		case mode.V2:
			inv, err = verifier.SendConnectionlessProofRequestV2(ctx, req)
		default:
			inv, err = verifier.SendConnectionlessProofRequest(ctx, req)
		}
		if err != nil {
			return err
		}

		if inv.Payload.ExchangeID == "" {
			return errors.New("proof request invitation carries no exchange id")
		}

		r.s.ExchangeID = inv.Payload.ExchangeID
		r.s.CorrelationID = inv.CorrelationID()
		if r.s.CorrelationID == "" {
			r.s.CorrelationID = inv.Payload.ExchangeID
		}
		return nil
	})
	if err != nil {
		return err
	}

	page := ""
	if mode.DeepLink {
		page = r.o.deepLink
		if page == "" {
			return r.stage(ctx, StageDeepLink, func(context.Context) error {
				return errors.New("deep link requested but no landing page is configured")
			})
		}
	}

	delivered, err := r.deliver(ctx, inv, mode.Redirect, page)
	if err != nil {
		return err
	}

	var threads []string
	err = r.stage(ctx, StageReceive, func(ctx context.Context) error {
		receipt, err := r.o.holder.ReceiveInvitation(ctx, delivered)
		if err != nil {
			return err
		}

		r.s.InviteeConnectionID = receipt.ConnectionID
		threads = receipt.PendingRequestThreadIDs
		return nil
	})
	if err != nil {
		return err
	}

	if len(threads) == 0 {
		threads = invitation.RequestThreadIDs(inv.Payload.Invitation)
	}

	// a bare request is its own thread
	if len(threads) == 0 && !mode.OutOfBand {
		if id := inv.Payload.Invitation.ID(); id != "" {
			threads = []string{id}
		}
	}

	err = r.stage(ctx, StageAcceptProof, func(ctx context.Context) error {
		if len(threads) == 0 {
			return errors.New("invitation carries no proof request thread")
		}

		for _, thid := range threads {
			if err := r.o.holder.AcceptProof(ctx, holder.ByThread(thid)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return r.stage(ctx, StagePresentation, func(ctx context.Context) error {
		var (
			p   *exchange.Presentation
			err error
		)
		if mode.V2 {
			p, err = verifier.WaitForPresentationV2(ctx, r.s.ExchangeID)
		} else {
			p, err = verifier.WaitForPresentation(ctx, r.s.ExchangeID)
		}
		if p != nil {
			r.s.Verified = p.IsVerified()
		}
		return err
	})
}
