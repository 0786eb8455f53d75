/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/poll"
)

var connectionStates = poll.States(
	[]string{ConnectionActive, ConnectionCompleted},
	[]string{ConnectionAbandoned, ConnectionError, ConnectionRejected},
)

// CreateInvitation asks the agent for a connection invitation of the given variant.
// The agent-rendered URL is replaced with the codec encoding of the returned document.
func (r *Client) CreateInvitation(ctx context.Context, variant invitation.Variant) (*invitation.Invitation, error) {
	resp := &createInvitationResponse{}

	switch variant {
	case invitation.ConnectionV1:
		body := map[string]interface{}{"my_label": r.uniqueLabel()}
		if r.imageURL != "" {
			body["image_url"] = r.imageURL
		}

		if err := r.agent.Post(ctx, "/connections/create-invitation", nil, body, resp); err != nil {
			return nil, errors.Wrap(err, "unable to create connection invitation")
		}
	case invitation.OOBConnectionV1, invitation.OOBDIDExchangeV11:
		label := r.uniqueLabel()
		body := map[string]interface{}{
			"alias":               label,
			"my_label":            label,
			"handshake_protocols": []string{variant.HandshakeProtocol()},
		}
		if variant == invitation.OOBDIDExchangeV11 {
			body["protocol_version"] = "1.1"
			body["use_did_method"] = "did:peer:4"
		}

		params := url.Values{
			"auto_accept":       {"true"},
			"multi_use":         {"false"},
			"create_unique_did": {"false"},
		}

		if err := r.agent.Post(ctx, "/out-of-band/create-invitation", params, body, resp); err != nil {
			return nil, errors.Wrap(err, "unable to create out-of-band invitation")
		}
	default:
		return nil, errors.Errorf("unsupported invitation variant %q", variant)
	}

	if resp.Invitation == nil {
		return nil, errors.New("agent returned no invitation document")
	}

	inv, err := r.codec.Encode(variant, resp.Invitation)
	if err != nil {
		return nil, err
	}

	inv.Payload.ConnectionID = resp.ConnectionID
	inv.Payload.InvitationMessageID = resp.InviMsgID

	r.log.Info().
		Str("variant", string(variant)).
		Str("connection_id", resp.ConnectionID).
		Str("invi_msg_id", resp.InviMsgID).
		Msg("invitation created")

	return inv, nil
}

// GetConnection fetches a single connection record.
func (r *Client) GetConnection(ctx context.Context, connectionID string) (*ConnectionRecord, error) {
	rec := &ConnectionRecord{}
	if err := r.agent.Get(ctx, "/connections/"+connectionID, nil, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// WaitForConnectionReady waits for the connection to become active.
func (r *Client) WaitForConnectionReady(ctx context.Context, connectionID string) error {
	r.log.Info().Str("connection_id", connectionID).Msg("waiting for connection")

	return r.waiter.Wait(ctx, "connection "+connectionID, func(ctx context.Context) (poll.Status, string, error) {
		rec, err := r.GetConnection(ctx, connectionID)
		if err != nil {
			return poll.Pending, "", err
		}

		return connectionStates(rec.State), rec.State, nil
	})
}

// WaitForOOBConnectionReady finds the connection created from an OOB invitation and waits for it
// to become active. Both phases share one deadline.
func (r *Client) WaitForOOBConnectionReady(ctx context.Context, inviMsgID string) (string, error) {
	var connectionID string

	err := r.waiter.Wait(ctx, "connection for invitation "+inviMsgID, func(ctx context.Context) (poll.Status, string, error) {
		if connectionID == "" {
			list := struct {
				Results []*ConnectionRecord `json:"results"`
			}{}

			q := url.Values{"invitation_msg_id": {inviMsgID}}
			if err := r.agent.Get(ctx, "/connections", q, &list); err != nil {
				return poll.Pending, "", err
			}

			if len(list.Results) == 0 {
				return poll.Pending, "", nil
			}

			connectionID = list.Results[0].ConnectionID
			r.log.Info().Str("invi_msg_id", inviMsgID).Str("connection_id", connectionID).Msg("connection record found")
		}

		rec, err := r.GetConnection(ctx, connectionID)
		if err != nil {
			return poll.Pending, "", err
		}

		return connectionStates(rec.State), rec.State, nil
	})
	if err != nil {
		return connectionID, err
	}

	return connectionID, nil
}
