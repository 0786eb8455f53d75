/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"

	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/poll"
	"github.com/scoir/canis-exchange/pkg/schema"
)

var (
	credentialStates = poll.States(
		[]string{CredentialAcked},
		[]string{RecordAbandoned, RecordDeleted, CredentialRevoked},
	)

	credentialV2States = poll.States(
		[]string{CredentialDone},
		[]string{RecordAbandoned, CredentialDeclined, RecordDeleted},
	)
)

// SendCredentialOffer offers a credential over an established connection using issue-credential 1.0.
func (r *Client) SendCredentialOffer(ctx context.Context, connectionID, credDefID string, preview *schema.CredentialPreview) (*CredentialExchange, error) {
	p := *preview
	p.Type = schema.PreviewV1Type

	body := map[string]interface{}{
		"auto_issue":         true,
		"auto_remove":        false,
		"connection_id":      connectionID,
		"cred_def_id":        credDefID,
		"credential_preview": &p,
		"trace":              true,
	}

	rec := &CredentialExchange{}
	if err := r.agent.Post(ctx, "/issue-credential/send-offer", nil, body, rec); err != nil {
		return nil, errors.Wrap(err, "unable to send credential offer")
	}

	if rec.ConnectionID == "" {
		rec.ConnectionID = connectionID
	}

	r.log.Info().
		Str("credential_exchange_id", rec.CredentialExchangeID).
		Str("connection_id", connectionID).
		Msg("credential offer sent")

	return rec, nil
}

// WaitForCredentialAccepted waits for the holder to acknowledge the issued credential. The returned
// record carries the latest revocation ids seen.
func (r *Client) WaitForCredentialAccepted(ctx context.Context, credExID string) (*CredentialExchange, error) {
	latest := &CredentialExchange{CredentialExchangeID: credExID}

	err := r.waiter.Wait(ctx, "credential exchange "+credExID, func(ctx context.Context) (poll.Status, string, error) {
		rec := &CredentialExchange{}
		if err := r.agent.Get(ctx, "/issue-credential/records/"+credExID, nil, rec); err != nil {
			return poll.Pending, "", err
		}

		mergeCredentialExchange(latest, rec)
		return credentialStates(rec.State), rec.State, nil
	})
	if err != nil {
		return latest, err
	}

	return latest, nil
}

func mergeCredentialExchange(dst, src *CredentialExchange) {
	dst.State = src.State
	if src.ConnectionID != "" {
		dst.ConnectionID = src.ConnectionID
	}
	if src.RevocationID != "" {
		dst.RevocationID = src.RevocationID
	}
	if src.RevocRegID != "" {
		dst.RevocRegID = src.RevocRegID
	}
	if src.CredDefID != "" {
		dst.CredDefID = src.CredDefID
	}
	if src.ThreadID != "" {
		dst.ThreadID = src.ThreadID
	}
}

// SendCredentialOfferV2 offers a credential using issue-credential 2.0 with an indy filter.
func (r *Client) SendCredentialOfferV2(ctx context.Context, connectionID, credDefID string, preview *schema.CredentialPreview) (*CredentialExchange, error) {
	body := map[string]interface{}{
		"auto_issue":         true,
		"auto_remove":        false,
		"connection_id":      connectionID,
		"credential_preview": preview.V2(),
		"filter": map[string]interface{}{
			"indy": map[string]string{"cred_def_id": credDefID},
		},
		"trace": true,
	}

	rec := &CredentialExchangeV2{}
	if err := r.agent.Post(ctx, "/issue-credential-2.0/send-offer", nil, body, rec); err != nil {
		return nil, errors.Wrap(err, "unable to send credential offer")
	}

	r.log.Info().Str("cred_ex_id", rec.CredExID).Str("connection_id", connectionID).Msg("credential offer sent")

	return &CredentialExchange{
		CredentialExchangeID: rec.CredExID,
		ConnectionID:         connectionID,
		CredDefID:            credDefID,
		State:                rec.State,
		ThreadID:             rec.ThreadID,
	}, nil
}

// WaitForCredentialAcceptedV2 waits for an issue-credential 2.0 exchange to finish.
func (r *Client) WaitForCredentialAcceptedV2(ctx context.Context, credExID string) (*CredentialExchange, error) {
	latest := &CredentialExchange{CredentialExchangeID: credExID}

	err := r.waiter.Wait(ctx, "credential exchange "+credExID, func(ctx context.Context) (poll.Status, string, error) {
		detail := &credentialExchangeV2Detail{}
		if err := r.agent.Get(ctx, "/issue-credential-2.0/records/"+credExID, nil, detail); err != nil {
			return poll.Pending, "", err
		}

		if detail.Record == nil {
			return poll.Pending, "", nil
		}

		rec := &CredentialExchange{State: detail.Record.State, ConnectionID: detail.Record.ConnectionID, ThreadID: detail.Record.ThreadID}
		if detail.Indy != nil {
			rec.RevocRegID = detail.Indy.RevRegID
			rec.RevocationID = detail.Indy.CredRevID
		}

		mergeCredentialExchange(latest, rec)
		return credentialV2States(rec.State), rec.State, nil
	})
	if err != nil {
		return latest, err
	}

	return latest, nil
}

// SendOOBCredentialOffer creates a credential offer not bound to a connection and wraps it in an
// out-of-band invitation. A connected offer negotiates connections/1.0 as well.
func (r *Client) SendOOBCredentialOffer(ctx context.Context, credDefID string, preview *schema.CredentialPreview, connectionless bool) (*invitation.Invitation, error) {
	p := *preview
	p.Type = schema.PreviewV1Type

	body := map[string]interface{}{
		"auto_remove":         false,
		"comment":             "credential offer",
		"credential_proposal": &p,
		"cred_def_id":         credDefID,
		"trace":               true,
	}

	rec := &CredentialExchange{}
	if err := r.agent.Post(ctx, "/issue-credential/create", nil, body, rec); err != nil {
		return nil, errors.Wrap(err, "unable to create credential offer")
	}

	oob := map[string]interface{}{
		"attachments": []interface{}{
			map[string]interface{}{"id": rec.CredentialExchangeID, "type": "credential-offer"},
		},
		"label":          ConnectionlessLabel,
		"use_public_did": false,
	}
	if !connectionless {
		oob["handshake_protocols"] = []string{invitation.ConnectionsProtocol}
	}

	resp := &createInvitationResponse{}
	if err := r.agent.Post(ctx, "/out-of-band/create-invitation", nil, oob, resp); err != nil {
		return nil, errors.Wrap(err, "unable to create credential offer invitation")
	}

	if resp.Invitation == nil {
		return nil, errors.New("agent returned no invitation document")
	}

	var opts []invitation.EncodeOption
	if connectionless {
		opts = append(opts, invitation.Connectionless())
	}

	inv, err := r.codec.Encode(invitation.OOBConnectionV1, resp.Invitation, opts...)
	if err != nil {
		return nil, err
	}

	inv.Payload.InvitationMessageID = resp.InviMsgID
	inv.Payload.ExchangeID = rec.CredentialExchangeID

	r.log.Info().
		Str("credential_exchange_id", rec.CredentialExchangeID).
		Str("invi_msg_id", resp.InviMsgID).
		Bool("connectionless", connectionless).
		Msg("out-of-band credential offer created")

	return inv, nil
}
