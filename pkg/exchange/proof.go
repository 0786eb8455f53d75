/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/poll"
	"github.com/scoir/canis-exchange/pkg/schema"
)

const verkeyLength = 32

var (
	presentationStates   = poll.States([]string{PresentationVerified}, []string{RecordAbandoned})
	presentationV2States = poll.States([]string{PresentationDone}, []string{RecordAbandoned})
)

func proofRequestBody(req *schema.ProofRequest) map[string]interface{} {
	return map[string]interface{}{
		"auto_remove":   false,
		"auto_verify":   true,
		"comment":       "proof request",
		"trace":         false,
		"proof_request": req.Indy(),
	}
}

// SendProofRequest requests a proof over an established connection and returns the presentation exchange id.
func (r *Client) SendProofRequest(ctx context.Context, connectionID string, req *schema.ProofRequest) (string, error) {
	body := proofRequestBody(req)
	body["connection_id"] = connectionID

	rec := &Presentation{}
	if err := r.agent.Post(ctx, "/present-proof/send-request", nil, body, rec); err != nil {
		return "", errors.Wrap(err, "unable to send proof request")
	}

	r.log.Info().
		Str("presentation_exchange_id", rec.ID()).
		Str("connection_id", connectionID).
		Msg("proof request sent")

	return rec.ID(), nil
}

// WaitForPresentation waits for a present-proof 1.0 exchange to be verified. A verified state only
// means the exchange finished; the agent's verdict is on the returned record.
func (r *Client) WaitForPresentation(ctx context.Context, presExID string) (*Presentation, error) {
	return r.waitForPresentation(ctx, "/present-proof/records/", presExID, presentationStates)
}

// WaitForPresentationV2 waits for a present-proof 2.0 exchange to be done.
func (r *Client) WaitForPresentationV2(ctx context.Context, presExID string) (*Presentation, error) {
	return r.waitForPresentation(ctx, "/present-proof-2.0/records/", presExID, presentationV2States)
}

func (r *Client) waitForPresentation(ctx context.Context, path, presExID string, classify poll.Classifier) (*Presentation, error) {
	r.log.Info().Str("presentation_exchange_id", presExID).Msg("waiting for presentation")

	var latest *Presentation
	err := r.waiter.Wait(ctx, "presentation exchange "+presExID, func(ctx context.Context) (poll.Status, string, error) {
		rec := &Presentation{}
		if err := r.agent.Get(ctx, path+presExID, nil, rec); err != nil {
			return poll.Pending, "", err
		}

		latest = rec
		return classify(rec.State), rec.State, nil
	})
	if err != nil {
		return latest, err
	}

	r.log.Info().
		Str("presentation_exchange_id", presExID).
		Bool("verified", latest.IsVerified()).
		Msg("presentation received")

	return latest, nil
}

func (r *Client) createProofRequest(ctx context.Context, req *schema.ProofRequest) (invitation.Document, error) {
	rec := invitation.Document{}
	if err := r.agent.Post(ctx, "/present-proof/create-request", nil, proofRequestBody(req), &rec); err != nil {
		return nil, errors.Wrap(err, "unable to create proof request")
	}

	return rec, nil
}

func (r *Client) createProofRequestV2(ctx context.Context, req *schema.ProofRequest) (invitation.Document, error) {
	body := map[string]interface{}{
		"auto_remove":          false,
		"auto_verify":          true,
		"comment":              "proof request",
		"trace":                false,
		"presentation_request": req.V2(),
	}

	rec := invitation.Document{}
	if err := r.agent.Post(ctx, "/present-proof-2.0/create-request", nil, body, &rec); err != nil {
		return nil, errors.Wrap(err, "unable to create proof request")
	}

	return rec, nil
}

// PublicVerkey returns the verkey of the agent's public DID.
func (r *Client) PublicVerkey(ctx context.Context) (string, error) {
	resp := struct {
		Result *struct {
			DID    string `json:"did"`
			Verkey string `json:"verkey"`
		} `json:"result"`
	}{}

	if err := r.agent.Get(ctx, "/wallet/did/public", nil, &resp); err != nil {
		return "", errors.Wrap(err, "unable to read public did")
	}

	if resp.Result == nil || resp.Result.Verkey == "" {
		return "", errors.New("agent has no public did")
	}

	key, err := base58.Decode(resp.Result.Verkey)
	if err != nil {
		return "", errors.Wrapf(err, "public verkey %s is not base58", resp.Result.Verkey)
	}

	if len(key) != verkeyLength {
		return "", errors.Errorf("public verkey decodes to %d bytes, want %d", len(key), verkeyLength)
	}

	return resp.Result.Verkey, nil
}

func (r *Client) serviceDecorator(verkey string) map[string]interface{} {
	return map[string]interface{}{
		"recipientKeys":   []interface{}{verkey},
		"routingKeys":     nil,
		"serviceEndpoint": r.serviceEndpoint,
	}
}

// SendConnectionlessProofRequest builds a present-proof 1.0 request carrying a ~service decorator
// so a wallet can answer it without a connection.
func (r *Client) SendConnectionlessProofRequest(ctx context.Context, req *schema.ProofRequest) (*invitation.Invitation, error) {
	verkey, err := r.PublicVerkey(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := r.createProofRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	dict, _ := rec["presentation_request_dict"].(map[string]interface{})
	if dict == nil {
		return nil, errors.New("agent returned no presentation request")
	}

	doc := invitation.Document(dict).Clone()
	doc["comment"] = nil
	doc["~service"] = r.serviceDecorator(verkey)
	doc["@type"] = didcommV1Type

	inv, err := r.codec.Encode(invitation.ConnectionV1, doc)
	if err != nil {
		return nil, err
	}

	exID, _ := rec["presentation_exchange_id"].(string)
	inv.Payload.ExchangeID = exID

	r.log.Info().Str("presentation_exchange_id", exID).Msg("connectionless proof request created")
	return inv, nil
}

// SendConnectionlessProofRequestV2 is the present-proof 2.0 form, carried in a c_i URL.
func (r *Client) SendConnectionlessProofRequestV2(ctx context.Context, req *schema.ProofRequest) (*invitation.Invitation, error) {
	verkey, err := r.PublicVerkey(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := r.createProofRequestV2(ctx, req)
	if err != nil {
		return nil, err
	}

	pres, _ := rec["pres_request"].(map[string]interface{})
	if pres == nil {
		return nil, errors.New("agent returned no presentation request")
	}

	doc := invitation.Document(pres).Clone()
	doc["comment"] = nil
	doc["~service"] = r.serviceDecorator(verkey)
	doc["@type"] = requestPresentationV2

	inv, err := r.codec.EncodeLegacy(doc)
	if err != nil {
		return nil, err
	}

	exID, _ := rec["pres_ex_id"].(string)
	inv.Payload.ExchangeID = exID

	r.log.Info().Str("pres_ex_id", exID).Msg("connectionless proof request created")
	return inv, nil
}

// SendOOBConnectionlessProofRequest attaches a present-proof 1.0 request to an out-of-band
// invitation with no handshake.
func (r *Client) SendOOBConnectionlessProofRequest(ctx context.Context, req *schema.ProofRequest) (*invitation.Invitation, error) {
	rec, err := r.createProofRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	exID, _ := rec["presentation_exchange_id"].(string)
	return r.attachProofRequest(ctx, exID, rec)
}

// SendOOBConnectionlessProofRequestV2 is the present-proof 2.0 form.
func (r *Client) SendOOBConnectionlessProofRequestV2(ctx context.Context, req *schema.ProofRequest) (*invitation.Invitation, error) {
	rec, err := r.createProofRequestV2(ctx, req)
	if err != nil {
		return nil, err
	}

	exID, _ := rec["pres_ex_id"].(string)
	return r.attachProofRequest(ctx, exID, rec)
}

func (r *Client) attachProofRequest(ctx context.Context, exID string, rec invitation.Document) (*invitation.Invitation, error) {
	if exID == "" {
		return nil, errors.New("agent returned no presentation exchange id")
	}

	body := map[string]interface{}{
		"attachments": []interface{}{
			map[string]interface{}{
				"id":   exID,
				"type": "present-proof",
				"data": map[string]interface{}{"json": rec},
			},
		},
		"label":          ConnectionlessLabel,
		"use_public_did": false,
	}

	resp := &createInvitationResponse{}
	if err := r.agent.Post(ctx, "/out-of-band/create-invitation", nil, body, resp); err != nil {
		return nil, errors.Wrap(err, "unable to create proof request invitation")
	}

	if resp.Invitation == nil {
		return nil, errors.New("agent returned no invitation document")
	}

	inv, err := r.codec.Encode(invitation.OOBDIDExchangeV11, resp.Invitation, invitation.Connectionless())
	if err != nil {
		return nil, err
	}

	inv.Payload.ExchangeID = exID
	inv.Payload.InvitationMessageID = resp.InviMsgID

	r.log.Info().
		Str("presentation_exchange_id", exID).
		Str("invi_msg_id", resp.InviMsgID).
		Msg("out-of-band proof request created")

	return inv, nil
}
