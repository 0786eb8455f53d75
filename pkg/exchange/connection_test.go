/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/outcome"
)

func agentInvitation(id string) obj {
	return obj{
		"@type":           "https://didcomm.org/connections/1.0/invitation",
		"@id":             id,
		"label":           "Faber",
		"recipientKeys":   []interface{}{"key"},
		"serviceEndpoint": "https://agent.example.com",
	}
}

func TestClient_CreateInvitation(t *testing.T) {
	t.Run("connection v1", func(t *testing.T) {
		agent := newFakeAgent(t)
		agent.reply("POST /connections/create-invitation", obj{
			"connection_id":  "conn-1",
			"invitation":     agentInvitation("inv-1"),
			"invitation_url": "https://agent.example.com?c_i=abc",
		})

		c := agent.client(WithImageURL("https://example.com/logo.png"))
		c.now = func() time.Time { return time.Unix(1700000000, 0) }

		inv, err := c.CreateInvitation(context.Background(), invitation.ConnectionV1)
		require.NoError(t, err)
		require.Equal(t, invitation.ConnectionV1, inv.Variant)
		require.Equal(t, "conn-1", inv.CorrelationID())
		require.True(t, strings.HasPrefix(inv.Payload.URL, "bcwallet://launch?oob="))

		doc, err := c.Codec().Decode(context.Background(), inv.Payload.URL)
		require.NoError(t, err)
		require.Equal(t, "inv-1", doc.ID())

		body := agent.body("POST /connections/create-invitation", 0)
		require.Equal(t, "Faber - 1700000000000", body["my_label"])
		require.Equal(t, "https://example.com/logo.png", body["image_url"])
	})

	t.Run("oob didexchange 1.1", func(t *testing.T) {
		agent := newFakeAgent(t)
		agent.on("POST /out-of-band/create-invitation", func(w http.ResponseWriter, r *http.Request, _ int) {
			q := r.URL.Query()
			require.Equal(t, "true", q.Get("auto_accept"))
			require.Equal(t, "false", q.Get("multi_use"))
			require.Equal(t, "false", q.Get("create_unique_did"))

			writeJSON(w, obj{
				"invi_msg_id": "msg-1",
				"invitation": obj{
					"@type":               "https://didcomm.org/out-of-band/1.1/invitation",
					"@id":                 "msg-1",
					"handshake_protocols": []interface{}{invitation.DIDExchangeProtocol},
				},
			})
		})

		inv, err := agent.client().CreateInvitation(context.Background(), invitation.OOBDIDExchangeV11)
		require.NoError(t, err)
		require.Equal(t, "msg-1", inv.CorrelationID())
		require.Contains(t, inv.Payload.Invitation, "handshake_protocols")

		body := agent.body("POST /out-of-band/create-invitation", 0)
		require.Equal(t, []interface{}{invitation.DIDExchangeProtocol}, body["handshake_protocols"])
		require.Equal(t, "1.1", body["protocol_version"])
		require.Equal(t, "did:peer:4", body["use_did_method"])
		require.Equal(t, body["alias"], body["my_label"])
	})

	t.Run("oob connections 1.0", func(t *testing.T) {
		agent := newFakeAgent(t)
		agent.reply("POST /out-of-band/create-invitation", obj{"invi_msg_id": "msg-2", "invitation": obj{"@id": "msg-2"}})

		_, err := agent.client().CreateInvitation(context.Background(), invitation.OOBConnectionV1)
		require.NoError(t, err)

		body := agent.body("POST /out-of-band/create-invitation", 0)
		require.Equal(t, []interface{}{invitation.ConnectionsProtocol}, body["handshake_protocols"])
		require.NotContains(t, body, "protocol_version")
	})

	t.Run("agent failure", func(t *testing.T) {
		agent := newFakeAgent(t)
		_, err := agent.client().CreateInvitation(context.Background(), invitation.ConnectionV1)
		require.True(t, outcome.IsTransport(err))
	})
}

func TestClient_WaitForConnectionReady(t *testing.T) {
	t.Run("becomes active", func(t *testing.T) {
		agent := newFakeAgent(t)
		agent.sequence("GET /connections/conn-1", obj{"state": "invitation"}, obj{"state": "request"}, obj{"state": "active"})

		require.NoError(t, agent.client().WaitForConnectionReady(context.Background(), "conn-1"))
		require.Equal(t, 3, agent.count("GET /connections/conn-1"))
	})

	t.Run("completed counts as ready", func(t *testing.T) {
		agent := newFakeAgent(t)
		agent.reply("GET /connections/conn-1", obj{"state": "completed"})
		require.NoError(t, agent.client().WaitForConnectionReady(context.Background(), "conn-1"))
	})

	t.Run("abandoned", func(t *testing.T) {
		agent := newFakeAgent(t)
		agent.sequence("GET /connections/conn-1", obj{"state": "request"}, obj{"state": "abandoned"})

		err := agent.client().WaitForConnectionReady(context.Background(), "conn-1")
		require.True(t, outcome.IsProtocolFailure(err))
	})

	t.Run("never ready", func(t *testing.T) {
		agent := newFakeAgent(t)
		agent.reply("GET /connections/conn-1", obj{"state": "invitation"})

		err := agent.client().WaitForConnectionReady(context.Background(), "conn-1")
		require.True(t, outcome.IsTimeout(err))
		require.Contains(t, err.Error(), "invitation")
	})
}

func TestClient_WaitForOOBConnectionReady(t *testing.T) {
	t.Run("discovers then waits", func(t *testing.T) {
		agent := newFakeAgent(t)
		agent.on("GET /connections", func(w http.ResponseWriter, r *http.Request, n int) {
			require.Equal(t, "msg-1", r.URL.Query().Get("invitation_msg_id"))
			if n < 2 {
				writeJSON(w, obj{"results": []interface{}{}})
				return
			}
			writeJSON(w, obj{"results": []interface{}{obj{"connection_id": "conn-9", "state": "request"}}})
		})
		agent.sequence("GET /connections/conn-9", obj{"state": "response"}, obj{"state": "active"})

		id, err := agent.client().WaitForOOBConnectionReady(context.Background(), "msg-1")
		require.NoError(t, err)
		require.Equal(t, "conn-9", id)
		require.Equal(t, 3, agent.count("GET /connections"))
	})

	t.Run("no record appears", func(t *testing.T) {
		agent := newFakeAgent(t)
		agent.reply("GET /connections", obj{"results": []interface{}{}})

		id, err := agent.client().WaitForOOBConnectionReady(context.Background(), "msg-1")
		require.True(t, outcome.IsTimeout(err))
		require.Empty(t, id)
	})
}
