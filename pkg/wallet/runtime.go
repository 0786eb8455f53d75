/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wallet talks to an event-driven wallet runtime: a REST surface for actions and
// a stream of record-saved events for progress.
package wallet

import (
	"context"
	"fmt"

	"github.com/scoir/canis-exchange/pkg/client/rest"
)

// Runtime is the action surface of the wallet.
//go:generate mockery -name=Runtime
type Runtime interface {
	ReceiveInvitationURL(ctx context.Context, invitationURL string) (*Receipt, error)
	Connections(ctx context.Context) ([]*ConnectionRecord, error)
	SendBasicMessage(ctx context.Context, connectionID, content string) error
	Credentials(ctx context.Context) ([]*CredentialRecord, error)
	AcceptCredentialOffer(ctx context.Context, id string) (*CredentialRecord, error)
	Proofs(ctx context.Context) ([]*ProofRecord, error)
	AcceptProofRequest(ctx context.Context, id string) (*ProofRecord, error)
}

// Receipt is what the wallet reports after accepting an invitation.
type Receipt struct {
	OutOfBandRecord struct {
		ID    string `json:"id"`
		State string `json:"state"`
	} `json:"outOfBandRecord"`
	ConnectionRecord *ConnectionRecord `json:"connectionRecord,omitempty"`
}

func (r *Receipt) OutOfBandID() string {
	return r.OutOfBandRecord.ID
}

func (r *Receipt) ConnectionID() string {
	if r.ConnectionRecord == nil {
		return ""
	}

	return r.ConnectionRecord.ID
}

type Client struct {
	api *rest.Client
}

var _ Runtime = (*Client)(nil)

func NewClient(api *rest.Client) *Client {
	return &Client{api: api}
}

type receiveInvitationRequest struct {
	InvitationURL        string `json:"invitationUrl"`
	AutoAcceptConnection bool   `json:"autoAcceptConnection"`
	AutoAcceptInvitation bool   `json:"autoAcceptInvitation"`
}

func (r *Client) ReceiveInvitationURL(ctx context.Context, invitationURL string) (*Receipt, error) {
	req := &receiveInvitationRequest{
		InvitationURL:        invitationURL,
		AutoAcceptConnection: true,
		AutoAcceptInvitation: true,
	}

	out := &Receipt{}
	if err := r.api.Post(ctx, "/oob/receive-invitation-url", nil, req, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Client) Connections(ctx context.Context) ([]*ConnectionRecord, error) {
	var out []*ConnectionRecord
	if err := r.api.Get(ctx, "/connections", nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Client) SendBasicMessage(ctx context.Context, connectionID, content string) error {
	body := map[string]string{"content": content}
	return r.api.Post(ctx, "/basic-messages/"+connectionID, nil, body, nil)
}

func (r *Client) Credentials(ctx context.Context) ([]*CredentialRecord, error) {
	var out []*CredentialRecord
	if err := r.api.Get(ctx, "/credentials", nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Client) AcceptCredentialOffer(ctx context.Context, id string) (*CredentialRecord, error) {
	out := &CredentialRecord{}
	if err := r.api.Post(ctx, fmt.Sprintf("/credentials/%s/accept-offer", id), nil, struct{}{}, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Client) Proofs(ctx context.Context) ([]*ProofRecord, error) {
	var out []*ProofRecord
	if err := r.api.Get(ctx, "/proofs", nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Client) AcceptProofRequest(ctx context.Context, id string) (*ProofRecord, error) {
	out := &ProofRecord{}
	if err := r.api.Post(ctx, fmt.Sprintf("/proofs/%s/accept-request", id), nil, struct{}{}, out); err != nil {
		return nil, err
	}

	return out, nil
}
