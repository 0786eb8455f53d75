/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package holder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/client/rest"
	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/outcome"
	"github.com/scoir/canis-exchange/pkg/poll"
	"github.com/scoir/canis-exchange/pkg/schema"
)

// holder-side exchange states
const (
	OfferReceived      = "offer_received"
	RequestSent        = "request_sent"
	CredentialReceived = "credential_received"
	CredentialAcked    = "credential_acked"
	RequestReceived    = "request_received"
	PresentationSent   = "presentation_sent"
	PresentationAcked  = "presentation_acked"
	Done               = "done"
	Abandoned          = "abandoned"
)

// issue-credential 2.0 holder states
const (
	OfferReceivedV2      = "offer-received"
	RequestSentV2        = "request-sent"
	CredentialReceivedV2 = "credential-received"
	DeclinedV2           = "declined"
)

// holder-side connection states
const (
	ConnectionActive    = "active"
	ConnectionCompleted = "completed"
	ConnectionError     = "error"
	ConnectionRejected  = "rejected"
)

var (
	connectionStates = poll.States(
		[]string{ConnectionActive, ConnectionCompleted},
		[]string{Abandoned, ConnectionError, ConnectionRejected},
	)
	offerStates = poll.States(
		[]string{OfferReceived, RequestSent, CredentialReceived, CredentialAcked, Done},
		[]string{Abandoned},
	)
	offerV2States = poll.States(
		[]string{OfferReceivedV2, RequestSentV2, CredentialReceivedV2, Done},
		[]string{Abandoned, DeclinedV2},
	)
	proofStates = poll.States(
		[]string{RequestReceived, PresentationSent, PresentationAcked, Done},
		[]string{Abandoned},
	)
	answeredStates = poll.States(
		[]string{PresentationSent, PresentationAcked, Done},
		nil,
	)
)

type connectionRecord struct {
	ConnectionID string `json:"connection_id"`
	State        string `json:"state"`
}

type credentialRecord struct {
	CredentialExchangeID string `json:"credential_exchange_id"`
	ConnectionID         string `json:"connection_id"`
	ThreadID             string `json:"thread_id"`
	State                string `json:"state"`
}

type credentialDetailV2 struct {
	Record *struct {
		CredExID     string `json:"cred_ex_id"`
		ConnectionID string `json:"connection_id"`
		ThreadID     string `json:"thread_id"`
		State        string `json:"state"`
	} `json:"cred_ex_record"`
}

type presentationRecord struct {
	PresentationExchangeID string                   `json:"presentation_exchange_id"`
	ConnectionID           string                   `json:"connection_id"`
	ThreadID               string                   `json:"thread_id"`
	State                  string                   `json:"state"`
	PresentationRequest    *schema.IndyProofRequest `json:"presentation_request"`
	CreatedAt              string                   `json:"created_at,omitempty"`
	UpdatedAt              string                   `json:"updated_at,omitempty"`
}

type receiveResponse struct {
	ConnectionID string `json:"connection_id"`
	OobID        string `json:"oob_id"`
	State        string `json:"state"`
}

// REST is a holder backed by an agent admin API that is polled for progress.
type REST struct {
	agent *rest.Client
	*options
}

var _ Client = (*REST)(nil)

func NewREST(agent *rest.Client, opts ...Option) *REST {
	return &REST{agent: agent, options: newOptions(opts)}
}

func (r *REST) ReceiveInvitation(ctx context.Context, inv *invitation.Invitation) (*Receipt, error) {
	doc, err := document(ctx, r.codec, inv)
	if err != nil {
		return nil, err
	}

	if _, ok := doc["~service"]; ok {
		return nil, errors.Errorf("connectionless %s requests cannot be received by an admin API holder", doc.Type())
	}

	params := url.Values{"auto_accept": {"true"}}
	resp := &receiveResponse{}

	if strings.Contains(doc.Type(), "out-of-band") {
		params.Set("use_existing_connection", "false")
		err = r.agent.Post(ctx, "/out-of-band/receive-invitation", params, doc, resp)
	} else {
		err = r.agent.Post(ctx, "/connections/receive-invitation", params, doc, resp)
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to receive invitation")
	}

	receipt := &Receipt{
		ConnectionID:            resp.ConnectionID,
		OutOfBandID:             resp.OobID,
		PendingRequestThreadIDs: invitation.RequestThreadIDs(doc),
	}

	r.log.Info().
		Str("connection_id", receipt.ConnectionID).
		Str("oob_id", receipt.OutOfBandID).
		Strs("thread_ids", receipt.PendingRequestThreadIDs).
		Msg("invitation received")

	return receipt, nil
}

// WaitForConnectionReady polls the holder's own connection record until it is active.
func (r *REST) WaitForConnectionReady(ctx context.Context, connectionID string) error {
	if connectionID == "" {
		return errors.New("no holder connection to wait on")
	}

	return r.waiter.Wait(ctx, "holder connection "+connectionID, func(ctx context.Context) (poll.Status, string, error) {
		rec := &connectionRecord{}
		if err := r.agent.Get(ctx, "/connections/"+connectionID, nil, rec); err != nil {
			return poll.Pending, "", err
		}

		return connectionStates(rec.State), rec.State, nil
	})
}

func (r *REST) SendBasicMessage(ctx context.Context, connectionID, content string) error {
	body := map[string]string{"content": content}
	if err := r.agent.Post(ctx, "/connections/"+connectionID+"/send-message", nil, body, nil); err != nil {
		return errors.Wrap(err, "unable to send basic message")
	}

	r.log.Debug().Str("connection_id", connectionID).Msg("basic message sent")
	return nil
}

// FindCredentialOffer waits for an offer to arrive on the connection over either
// issue-credential protocol.
func (r *REST) FindCredentialOffer(ctx context.Context, connectionID string) (*OfferRef, error) {
	var found *OfferRef

	err := r.waiter.Wait(ctx, "credential offer on connection "+connectionID, func(ctx context.Context) (poll.Status, string, error) {
		ref, err := r.findOffer(ctx, connectionID)
		if err != nil {
			return poll.Pending, "", err
		}

		if ref == nil {
			return poll.Pending, "", nil
		}

		found = ref
		return poll.Success, OfferReceived, nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

func (r *REST) findOffer(ctx context.Context, connectionID string) (*OfferRef, error) {
	list := struct {
		Results []*credentialRecord `json:"results"`
	}{}

	q := url.Values{"connection_id": {connectionID}, "state": {OfferReceived}}
	if err := r.agent.Get(ctx, "/issue-credential/records", q, &list); err != nil {
		return nil, err
	}

	if len(list.Results) > 0 {
		found := list.Results[0]
		return &OfferRef{ID: found.CredentialExchangeID, ConnectionID: found.ConnectionID, ThreadID: found.ThreadID}, nil
	}

	v2 := struct {
		Results []*credentialDetailV2 `json:"results"`
	}{}

	q = url.Values{"connection_id": {connectionID}, "state": {OfferReceivedV2}}
	if err := r.agent.Get(ctx, "/issue-credential-2.0/records", q, &v2); err != nil {
		if notServed(err) {
			return nil, nil
		}
		return nil, err
	}

	for _, d := range v2.Results {
		if d.Record != nil {
			return &OfferRef{ID: d.Record.CredExID, ConnectionID: d.Record.ConnectionID, ThreadID: d.Record.ThreadID, V2: true}, nil
		}
	}

	return nil, nil
}

// notServed is an agent answering 404 for a protocol it does not run.
func notServed(err error) bool {
	var te *outcome.TransportError
	return errors.As(err, &te) && te.StatusCode == http.StatusNotFound
}

// AcceptCredentialOffer sends a credential request for the offer. An offer already
// answered is left alone.
func (r *REST) AcceptCredentialOffer(ctx context.Context, ref OfferRef) error {
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

	if ref.V2 {
		return r.acceptOfferV2(ctx, ref)
	}

	rec := &credentialRecord{}
	if err := r.agent.Get(ctx, "/issue-credential/records/"+ref.ID, nil, rec); err != nil {
		return errors.Wrapf(err, "unable to read credential offer %s", ref.ID)
	}

	switch offerStates(rec.State) {
	case poll.Failure:
		return &outcome.ProtocolFailure{Target: "credential offer " + ref.ID, State: rec.State}
	case poll.Pending:
		return errors.Errorf("credential offer %s is in state %s", ref.ID, rec.State)
	}

	if rec.State != OfferReceived {
		r.log.Debug().Str("exchange_id", ref.ID).Str("state", rec.State).Msg("credential offer already accepted")
		return nil
	}

	path := fmt.Sprintf("/issue-credential/records/%s/send-request", ref.ID)
	if err := r.agent.Post(ctx, path, nil, struct{}{}, nil); err != nil {
		return errors.Wrapf(err, "unable to accept credential offer %s", ref.ID)
	}

	r.log.Info().Str("exchange_id", ref.ID).Str("connection_id", rec.ConnectionID).Msg("credential offer accepted")
	return nil
}

func (r *REST) acceptOfferV2(ctx context.Context, ref OfferRef) error {
	detail := &credentialDetailV2{}
	if err := r.agent.Get(ctx, "/issue-credential-2.0/records/"+ref.ID, nil, detail); err != nil {
		return errors.Wrapf(err, "unable to read credential offer %s", ref.ID)
	}

	if detail.Record == nil {
		return errors.Errorf("agent returned no record for credential offer %s", ref.ID)
	}

	state := detail.Record.State
	switch offerV2States(state) {
	case poll.Failure:
		return &outcome.ProtocolFailure{Target: "credential offer " + ref.ID, State: state}
	case poll.Pending:
		return errors.Errorf("credential offer %s is in state %s", ref.ID, state)
	}

	if state != OfferReceivedV2 {
		r.log.Debug().Str("cred_ex_id", ref.ID).Str("state", state).Msg("credential offer already accepted")
		return nil
	}

	path := fmt.Sprintf("/issue-credential-2.0/records/%s/send-request", ref.ID)
	if err := r.agent.Post(ctx, path, nil, struct{}{}, nil); err != nil {
		return errors.Wrapf(err, "unable to accept credential offer %s", ref.ID)
	}

	r.log.Info().Str("cred_ex_id", ref.ID).Str("connection_id", detail.Record.ConnectionID).Msg("credential offer accepted")
	return nil
}

// AcceptProof waits for the referenced request to arrive and answers it with the first
// matching credential for every referent. A request already answered is left alone.
func (r *REST) AcceptProof(ctx context.Context, ref ProofRef) error {
	if err := ref.validate(); err != nil {
		return err
	}

	q := url.Values{"thread_id": {ref.ID}}
	if ref.ID == "" {
		q = url.Values{"connection_id": {ref.ConnectionID}, "state": {RequestReceived}}
	}

	var found *presentationRecord
	err := r.waiter.Wait(ctx, ref.String(), func(ctx context.Context) (poll.Status, string, error) {
		results, err := r.listPresentations(ctx, q)
		if err != nil {
			return poll.Pending, "", err
		}

		if len(results) == 0 && ref.ID == "" {
			// a request answered earlier no longer shows as received
			results, err = r.listPresentations(ctx, url.Values{"connection_id": {ref.ConnectionID}})
			if err != nil {
				return poll.Pending, "", err
			}

			latest := latestPresentation(results)
			if latest == nil || answeredStates(latest.State) != poll.Success {
				return poll.Pending, "", nil
			}

			found = latest
			return poll.Success, found.State, nil
		}

		if len(results) == 0 {
			return poll.Pending, "", nil
		}

		found = results[0]
		return proofStates(found.State), found.State, nil
	})
	if err != nil {
		return err
	}

	if found.State != RequestReceived {
		r.log.Debug().Str("exchange_id", found.PresentationExchangeID).Str("state", found.State).Msg("proof request already answered")
		return nil
	}

	id := found.PresentationExchangeID

	var matches []*schema.IndyCredentialMatch
	if err := r.agent.Get(ctx, fmt.Sprintf("/present-proof/records/%s/credentials", id), nil, &matches); err != nil {
		return errors.Wrapf(err, "unable to list credentials for proof request %s", id)
	}

	body := schema.SelectCredentials(found.PresentationRequest, matches)
	if err := r.agent.Post(ctx, fmt.Sprintf("/present-proof/records/%s/send-presentation", id), nil, body, nil); err != nil {
		return errors.Wrapf(err, "unable to send presentation for %s", id)
	}

	r.log.Info().
		Str("exchange_id", id).
		Str("thread_id", found.ThreadID).
		Str("connection_id", found.ConnectionID).
		Int("credentials", len(matches)).
		Msg("presentation sent")

	return nil
}

func (r *REST) listPresentations(ctx context.Context, q url.Values) ([]*presentationRecord, error) {
	list := struct {
		Results []*presentationRecord `json:"results"`
	}{}
	if err := r.agent.Get(ctx, "/present-proof/records", q, &list); err != nil {
		return nil, err
	}

	return list.Results, nil
}

// latestPresentation picks the most recently updated record. Agent timestamps sort as strings.
func latestPresentation(records []*presentationRecord) *presentationRecord {
	var latest *presentationRecord
	for _, rec := range records {
		if latest == nil || rec.stamp() > latest.stamp() {
			latest = rec
		}
	}

	return latest
}

func (r *presentationRecord) stamp() string {
	if r.UpdatedAt != "" {
		return r.UpdatedAt
	}

	return r.CreatedAt
}
