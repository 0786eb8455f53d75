/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scoir/canis-exchange/pkg/client/rest/resttest"
	"github.com/scoir/canis-exchange/pkg/exchange"
	"github.com/scoir/canis-exchange/pkg/holder"
	holdermocks "github.com/scoir/canis-exchange/pkg/holder/mocks"
	"github.com/scoir/canis-exchange/pkg/invitation"
	invitationmocks "github.com/scoir/canis-exchange/pkg/invitation/mocks"
	"github.com/scoir/canis-exchange/pkg/outcome"
	"github.com/scoir/canis-exchange/pkg/poll"
	"github.com/scoir/canis-exchange/pkg/schema"
	"github.com/scoir/canis-exchange/pkg/session"
	"github.com/scoir/canis-exchange/pkg/session/mocks"
	"github.com/scoir/canis-exchange/pkg/tunnel"
)

type obj = map[string]interface{}

func fastWaiter() *poll.Waiter {
	return poll.New(poll.WithInterval(5*time.Millisecond), poll.WithTimeout(500*time.Millisecond), poll.WithLogger(zerolog.Nop()))
}

func exchangeClient(agent *resttest.Agent) *exchange.Client {
	return exchange.New(agent.Client(), exchange.WithWaiter(fastWaiter()), exchange.WithLogger(zerolog.Nop()))
}

func restHolder(agent *resttest.Agent) *holder.REST {
	return holder.NewREST(agent.Client(), holder.WithWaiter(fastWaiter()), holder.WithLogger(zerolog.Nop()))
}

func orchestrator(h holder.Client, opts ...session.Option) *session.Orchestrator {
	return session.New(h, append([]session.Option{session.WithLogger(zerolog.Nop())}, opts...)...)
}

func stageNames(s *session.Session) []string {
	var out []string
	for _, st := range s.Stages {
		out = append(out, st.Name)
	}
	return out
}

// peers wires an inviter agent whose connection turns active once the holder agent
// has received the invitation. The holder's own connection record is already active.
type peers struct {
	inviter *resttest.Agent
	holder  *resttest.Agent
}

func newPeers(t *testing.T) *peers {
	p := &peers{inviter: resttest.NewAgent(t), holder: resttest.NewAgent(t)}

	p.inviter.Reply("POST /connections/create-invitation", obj{
		"connection_id": "issuer-conn-1",
		"invitation": obj{
			"@type":           "https://didcomm.org/connections/1.0/invitation",
			"@id":             "inv-1",
			"label":           "Faber",
			"recipientKeys":   []interface{}{"8HH5gYEeNc3z7PYXmd54d4x6qAfCNrqQqEB3nS7Zfu7K"},
			"serviceEndpoint": "https://issuer.example.com",
		},
		"invitation_url": "https://issuer.example.com?c_i=abc",
	})
	p.inviter.On("GET /connections/issuer-conn-1", func(w http.ResponseWriter, _ *http.Request, _ int) {
		state := "invitation"
		if p.holder.Count("POST /connections/receive-invitation") > 0 {
			state = "active"
		}
		resttest.WriteJSON(w, obj{"connection_id": "issuer-conn-1", "state": state})
	})

	p.holder.Reply("POST /connections/receive-invitation", obj{"connection_id": "holder-conn-1", "state": "request"})
	p.holder.Reply("GET /connections/holder-conn-1", obj{"connection_id": "holder-conn-1", "state": "active"})
	return p
}

func TestOrchestrator_Connect(t *testing.T) {
	t.Run("connection invitation", func(t *testing.T) {
		p := newPeers(t)

		s, err := orchestrator(restHolder(p.holder)).Connect(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1)
		require.NoError(t, err)
		require.Equal(t, session.StateCompleted, s.State)
		require.Equal(t, "issuer-conn-1", s.CorrelationID)
		require.Equal(t, "issuer-conn-1", s.InviterConnectionID)
		require.Equal(t, "holder-conn-1", s.InviteeConnectionID)
		require.NotEqual(t, s.InviterConnectionID, s.InviteeConnectionID)
		require.Equal(t, []string{session.StageInvite, session.StageReceive, session.StageConnection}, stageNames(s))
		require.True(t, strings.HasPrefix(s.InvitationURL, "bcwallet://launch?oob="))
		require.NotEmpty(t, s.ID)
	})

	t.Run("out-of-band identifier pivot", func(t *testing.T) {
		inviter := resttest.NewAgent(t)
		holderAgent := resttest.NewAgent(t)

		inviter.Reply("POST /out-of-band/create-invitation", obj{
			"invi_msg_id": "oob-msg-1",
			"invitation": obj{
				"@type":               "https://didcomm.org/out-of-band/1.1/invitation",
				"@id":                 "oob-msg-1",
				"label":               "Faber",
				"handshake_protocols": []interface{}{invitation.DIDExchangeProtocol},
				"services":            []interface{}{"did:peer:4abc"},
			},
		})
		inviter.On("GET /connections", func(w http.ResponseWriter, r *http.Request, _ int) {
			if r.URL.Query().Get("invitation_msg_id") != "oob-msg-1" || holderAgent.Count("POST /out-of-band/receive-invitation") == 0 {
				resttest.WriteJSON(w, obj{"results": []interface{}{}})
				return
			}
			resttest.WriteJSON(w, obj{"results": []interface{}{obj{"connection_id": "issuer-conn-7", "state": "request"}}})
		})
		inviter.Sequence("GET /connections/issuer-conn-7",
			obj{"connection_id": "issuer-conn-7", "state": "response"},
			obj{"connection_id": "issuer-conn-7", "state": "completed"},
		)
		holderAgent.Reply("POST /out-of-band/receive-invitation", obj{"oob_id": "h-oob-1", "connection_id": "holder-conn-7"})
		holderAgent.Reply("GET /connections/holder-conn-7", obj{"connection_id": "holder-conn-7", "state": "completed"})

		s, err := orchestrator(restHolder(holderAgent)).Connect(context.Background(), exchangeClient(inviter), invitation.OOBDIDExchangeV11)
		require.NoError(t, err)
		require.Equal(t, "oob-msg-1", s.CorrelationID)
		require.Equal(t, "issuer-conn-7", s.InviterConnectionID)
		require.Equal(t, "holder-conn-7", s.InviteeConnectionID)
		require.Equal(t, 2, inviter.Count("GET /connections/issuer-conn-7"))
		require.Equal(t, 1, holderAgent.Count("GET /connections/holder-conn-7"))
	})

	t.Run("holder failure aborts the session", func(t *testing.T) {
		p := newPeers(t)

		h := &holdermocks.Client{}
		h.On("ReceiveInvitation", mock.Anything, mock.Anything).
			Return(nil, &outcome.TransportError{Op: "POST /connections/receive-invitation", StatusCode: http.StatusBadGateway})

		rep := &mocks.Reporter{}
		rep.On("Report", mock.Anything, mock.Anything).Return(nil)

		s, err := orchestrator(h, session.WithReporter(rep)).Connect(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1)
		require.Error(t, err)

		var se *session.StageError
		require.True(t, errors.As(err, &se))
		require.Equal(t, session.StageReceive, se.Stage)
		require.Equal(t, "issuer-conn-1", se.CorrelationID)
		require.Equal(t, s.ID, se.SessionID)
		require.True(t, outcome.IsTransport(err))

		require.Equal(t, session.StateFailed, s.State)
		require.Equal(t, outcome.KindTransport, s.ErrorKind)
		require.Equal(t, []string{session.StageInvite, session.StageReceive}, stageNames(s))
		require.NotEmpty(t, s.LastStage().Error)
		require.Zero(t, p.inviter.Count("GET /connections/issuer-conn-1"))

		rep.AssertNumberOfCalls(t, "Report", 1)
	})

	t.Run("connection never completes", func(t *testing.T) {
		p := newPeers(t)
		p.holder.Reply("POST /connections/receive-invitation", obj{"connection_id": "holder-conn-1"})
		p.inviter.Reply("GET /connections/issuer-conn-1", obj{"connection_id": "issuer-conn-1", "state": "request"})

		s, err := orchestrator(restHolder(p.holder)).Connect(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1)
		require.True(t, outcome.IsTimeout(err))
		require.Equal(t, session.StageConnection, s.LastStage().Name)
	})
}

func TestOrchestrator_ConnectWaitsForBothPeers(t *testing.T) {
	t.Run("holder connection never turns active", func(t *testing.T) {
		p := newPeers(t)
		p.holder.Reply("GET /connections/holder-conn-1", obj{"connection_id": "holder-conn-1", "state": "response"})

		s, err := orchestrator(restHolder(p.holder)).Connect(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1)
		require.True(t, outcome.IsTimeout(err))
		require.Contains(t, err.Error(), "holder connection holder-conn-1")
		require.Equal(t, session.StageConnection, s.LastStage().Name)
		require.Equal(t, session.StateFailed, s.State)
		require.Greater(t, p.inviter.Count("GET /connections/issuer-conn-1"), 0)
		require.Greater(t, p.holder.Count("GET /connections/holder-conn-1"), 1)
	})

	t.Run("holder connection abandoned", func(t *testing.T) {
		p := newPeers(t)
		p.holder.Reply("GET /connections/holder-conn-1", obj{"connection_id": "holder-conn-1", "state": "abandoned"})

		_, err := orchestrator(restHolder(p.holder)).Connect(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1)
		require.True(t, outcome.IsProtocolFailure(err))
	})

	t.Run("holder checked after the inviter", func(t *testing.T) {
		p := newPeers(t)

		h := &holdermocks.Client{}
		h.On("ReceiveInvitation", mock.Anything, mock.Anything).Return(&holder.Receipt{ConnectionID: "holder-conn-1"}, nil)
		h.On("WaitForConnectionReady", mock.Anything, "holder-conn-1").Return(nil).Run(func(mock.Arguments) {
			require.Greater(t, p.inviter.Count("GET /connections/issuer-conn-1"), 0)
		})

		// the inviter's record only turns active after the holder agent saw the invitation
		_, _ = http.Post(p.holder.URL()+"/connections/receive-invitation", "application/json", strings.NewReader("{}"))

		_, err := orchestrator(h).Connect(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1)
		require.NoError(t, err)
		h.AssertExpectations(t)
	})

	t.Run("holder without a connection id is not waited on", func(t *testing.T) {
		p := newPeers(t)
		_, _ = http.Post(p.holder.URL()+"/connections/receive-invitation", "application/json", strings.NewReader("{}"))

		h := &holdermocks.Client{}
		h.On("ReceiveInvitation", mock.Anything, mock.Anything).Return(&holder.Receipt{}, nil)

		s, err := orchestrator(h).Connect(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1)
		require.NoError(t, err)
		require.Empty(t, s.InviteeConnectionID)
		h.AssertNotCalled(t, "WaitForConnectionReady", mock.Anything, mock.Anything)
	})
}

func TestOrchestrator_ConnectDeepLink(t *testing.T) {
	p := newPeers(t)

	o := orchestrator(restHolder(p.holder), session.WithDeepLink("https://wallet.invalid/link"))
	s, err := o.Connect(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1)
	require.NoError(t, err)
	require.Equal(t, session.StateCompleted, s.State)
	require.True(t, strings.HasPrefix(s.InvitationURL, "https://wallet.invalid/link?url="))
	require.Equal(t, []string{
		session.StageInvite, session.StageDeepLink, session.StageReceive, session.StageConnection,
	}, stageNames(s))
	require.Equal(t, "inv-1", p.holder.Body("POST /connections/receive-invitation", 0)["@id"])
	require.Equal(t, "holder-conn-1", s.InviteeConnectionID)
}

func TestOrchestrator_IssueCredential(t *testing.T) {
	p := newPeers(t)

	p.inviter.Reply("POST /issue-credential/send-offer", obj{"credential_exchange_id": "cx-1", "connection_id": "issuer-conn-1", "state": "offer_sent"})
	p.inviter.On("GET /issue-credential/records/cx-1", func(w http.ResponseWriter, _ *http.Request, _ int) {
		state := "offer_sent"
		if p.holder.Count("POST /issue-credential/records/h-cx-1/send-request") > 0 {
			state = "credential_acked"
		}
		resttest.WriteJSON(w, obj{"credential_exchange_id": "cx-1", "state": state, "revocation_id": "1", "revoc_reg_id": "rr-1"})
	})

	offer := obj{"credential_exchange_id": "h-cx-1", "connection_id": "holder-conn-1", "state": "offer_received"}
	p.holder.Reply("GET /issue-credential/records", obj{"results": []interface{}{offer}})
	p.holder.Reply("GET /issue-credential/records/h-cx-1", offer)
	p.holder.Reply("POST /issue-credential/records/h-cx-1/send-request", obj{})

	preview := schema.NewCredentialPreview().Add("name", "Alice").Add("age", "23")

	s, err := orchestrator(restHolder(p.holder)).IssueCredential(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1, "Th7:3:CL:1:default", preview)
	require.NoError(t, err)
	require.Equal(t, "cx-1", s.ExchangeID)
	require.Equal(t, []string{
		session.StageInvite, session.StageReceive, session.StageConnection,
		session.StageSendOffer, session.StageFindOffer, session.StageAcceptOffer, session.StageCredential,
	}, stageNames(s))

	require.Equal(t, "issuer-conn-1", p.inviter.Body("POST /issue-credential/send-offer", 0)["connection_id"])
	require.Equal(t, "connection_id=holder-conn-1&state=offer_received", p.holder.Query("GET /issue-credential/records", 0))
}

func TestOrchestrator_IssueCredentialOptions(t *testing.T) {
	preview := schema.NewCredentialPreview().Add("name", "Alice")

	t.Run("issue-credential 2.0", func(t *testing.T) {
		p := newPeers(t)
		p.inviter.Reply("POST /issue-credential-2.0/send-offer", obj{"cred_ex_id": "cx2-1", "connection_id": "issuer-conn-1", "state": "offer-sent"})
		p.inviter.On("GET /issue-credential-2.0/records/cx2-1", func(w http.ResponseWriter, _ *http.Request, _ int) {
			state := "offer-sent"
			if p.holder.Count("POST /issue-credential-2.0/records/h-cx2-1/send-request") > 0 {
				state = "done"
			}
			resttest.WriteJSON(w, obj{
				"cred_ex_record": obj{"cred_ex_id": "cx2-1", "connection_id": "issuer-conn-1", "state": state},
				"indy":           obj{"rev_reg_id": "rr-2", "cred_rev_id": "7"},
			})
		})

		offer := obj{"cred_ex_record": obj{"cred_ex_id": "h-cx2-1", "connection_id": "holder-conn-1", "state": "offer-received"}}
		p.holder.Reply("GET /issue-credential/records", obj{"results": []interface{}{}})
		p.holder.Reply("GET /issue-credential-2.0/records", obj{"results": []interface{}{offer}})
		p.holder.Reply("GET /issue-credential-2.0/records/h-cx2-1", offer)
		p.holder.Reply("POST /issue-credential-2.0/records/h-cx2-1/send-request", obj{})

		s, err := orchestrator(restHolder(p.holder)).IssueCredential(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1, "Th7:3:CL:1:default", preview, session.OfferV2())
		require.NoError(t, err)
		require.Equal(t, "cx2-1", s.ExchangeID)
		require.Equal(t, "issuer-conn-1", p.inviter.Body("POST /issue-credential-2.0/send-offer", 0)["connection_id"])
		require.Zero(t, p.inviter.Count("POST /issue-credential/send-offer"))
	})

	t.Run("offer attached to the invitation", func(t *testing.T) {
		inviter := resttest.NewAgent(t)
		holderAgent := resttest.NewAgent(t)

		inviter.Reply("POST /issue-credential/create", obj{"credential_exchange_id": "cx-3", "state": "offer_sent"})
		inviter.Reply("POST /out-of-band/create-invitation", obj{
			"invi_msg_id": "oob-msg-3",
			"invitation": obj{
				"@type":               "https://didcomm.org/out-of-band/1.1/invitation",
				"@id":                 "oob-msg-3",
				"label":               exchange.ConnectionlessLabel,
				"handshake_protocols": []interface{}{invitation.ConnectionsProtocol},
				"services":            []interface{}{"did:peer:4abc"},
				"requests~attach":     []interface{}{obj{"@id": "offer-0", "data": obj{"json": obj{"@id": "offer-msg-3"}}}},
			},
		})
		inviter.On("GET /connections", func(w http.ResponseWriter, r *http.Request, _ int) {
			if r.URL.Query().Get("invitation_msg_id") != "oob-msg-3" || holderAgent.Count("POST /out-of-band/receive-invitation") == 0 {
				resttest.WriteJSON(w, obj{"results": []interface{}{}})
				return
			}
			resttest.WriteJSON(w, obj{"results": []interface{}{obj{"connection_id": "issuer-conn-3", "state": "request"}}})
		})
		inviter.Reply("GET /connections/issuer-conn-3", obj{"connection_id": "issuer-conn-3", "state": "active"})
		inviter.On("GET /issue-credential/records/cx-3", func(w http.ResponseWriter, _ *http.Request, _ int) {
			state := "offer_sent"
			if holderAgent.Count("POST /issue-credential/records/h-cx-3/send-request") > 0 {
				state = "credential_acked"
			}
			resttest.WriteJSON(w, obj{"credential_exchange_id": "cx-3", "state": state})
		})

		holderOffer := obj{"credential_exchange_id": "h-cx-3", "connection_id": "holder-conn-3", "state": "offer_received"}
		holderAgent.Reply("POST /out-of-band/receive-invitation", obj{"oob_id": "h-oob-3", "connection_id": "holder-conn-3"})
		holderAgent.Reply("GET /connections/holder-conn-3", obj{"connection_id": "holder-conn-3", "state": "active"})
		holderAgent.Reply("GET /issue-credential/records", obj{"results": []interface{}{holderOffer}})
		holderAgent.Reply("GET /issue-credential/records/h-cx-3", holderOffer)
		holderAgent.Reply("POST /issue-credential/records/h-cx-3/send-request", obj{})

		s, err := orchestrator(restHolder(holderAgent)).IssueCredential(context.Background(), exchangeClient(inviter), invitation.ConnectionV1, "Th7:3:CL:1:default", preview, session.OfferOutOfBand())
		require.NoError(t, err)
		require.Equal(t, invitation.OOBConnectionV1, s.Variant)
		require.Equal(t, "oob-msg-3", s.CorrelationID)
		require.Equal(t, "cx-3", s.ExchangeID)
		require.Equal(t, "issuer-conn-3", s.InviterConnectionID)
		require.Equal(t, "holder-conn-3", s.InviteeConnectionID)
		require.Equal(t, []string{
			session.StageSendOffer, session.StageReceive, session.StageConnection,
			session.StageFindOffer, session.StageAcceptOffer, session.StageCredential,
		}, stageNames(s))
		require.Equal(t, "oob-msg-3", holderAgent.Body("POST /out-of-band/receive-invitation", 0)["@id"])
		require.Zero(t, inviter.Count("POST /connections/create-invitation"))
	})

	t.Run("out-of-band offers are issue-credential 1.0 only", func(t *testing.T) {
		inviter := resttest.NewAgent(t)
		h := &holdermocks.Client{}

		s, err := orchestrator(h).IssueCredential(context.Background(), exchangeClient(inviter), invitation.ConnectionV1, "cd", preview, session.OfferOutOfBand(), session.OfferV2())
		require.Error(t, err)
		require.Equal(t, session.StateFailed, s.State)
		require.Empty(t, s.Stages)
		require.Zero(t, inviter.Count("POST /issue-credential/create"))
	})

	t.Run("revoked after issue", func(t *testing.T) {
		p := newPeers(t)
		p.inviter.Reply("POST /issue-credential/send-offer", obj{"credential_exchange_id": "cx-1", "connection_id": "issuer-conn-1", "state": "offer_sent"})
		p.inviter.On("GET /issue-credential/records/cx-1", func(w http.ResponseWriter, _ *http.Request, _ int) {
			state := "offer_sent"
			if p.holder.Count("POST /issue-credential/records/h-cx-1/send-request") > 0 {
				state = "credential_acked"
			}
			resttest.WriteJSON(w, obj{"credential_exchange_id": "cx-1", "connection_id": "issuer-conn-1", "state": state, "revocation_id": "1", "revoc_reg_id": "rr-1"})
		})
		p.inviter.Reply("POST /revocation/revoke", obj{})
		p.inviter.Sequence("GET /revocation/credential-record",
			obj{"result": obj{"state": "issued"}},
			obj{"result": obj{"state": "revoked"}},
		)

		offer := obj{"credential_exchange_id": "h-cx-1", "connection_id": "holder-conn-1", "state": "offer_received"}
		p.holder.Reply("GET /issue-credential/records", obj{"results": []interface{}{offer}})
		p.holder.Reply("GET /issue-credential/records/h-cx-1", offer)
		p.holder.Reply("POST /issue-credential/records/h-cx-1/send-request", obj{})

		s, err := orchestrator(restHolder(p.holder)).IssueCredential(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1, "Th7:3:CL:1:default", preview, session.RevokeAfterIssue("end of test"))
		require.NoError(t, err)
		require.Equal(t, []string{session.StageCredential, session.StageRevoke, session.StageRevoked}, stageNames(s)[len(s.Stages)-3:])

		revoke := p.inviter.Body("POST /revocation/revoke", 0)
		require.Equal(t, "rr-1", revoke["rev_reg_id"])
		require.Equal(t, "1", revoke["cred_rev_id"])
		require.Equal(t, "end of test", revoke["comment"])
		require.Equal(t, "cred_rev_id=1&rev_reg_id=rr-1", p.inviter.Query("GET /revocation/credential-record", 0))
		require.Equal(t, 2, p.inviter.Count("GET /revocation/credential-record"))
	})
}

func TestOrchestrator_Message(t *testing.T) {
	message := func(id, content, state, created string) obj {
		return obj{"connection_id": "issuer-conn-1", "message_id": id, "content": content, "state": state, "created_at": created}
	}

	t.Run("reply reaches the inviter", func(t *testing.T) {
		p := newPeers(t)
		p.inviter.Reply("POST /connections/issuer-conn-1/send-message", obj{})
		p.inviter.On("GET /basicmessages", func(w http.ResponseWriter, r *http.Request, _ int) {
			if r.URL.Query().Get("state") == "sent" {
				resttest.WriteJSON(w, obj{"results": []interface{}{message("msg-1", "Hello", "sent", "2024-05-01 10:00:00.000000Z")}})
				return
			}

			received := []interface{}{message("msg-0", "ok", "received", "2024-05-01 09:00:00.000000Z")}
			if p.holder.Count("POST /connections/holder-conn-1/send-message") > 0 {
				received = append(received, message("msg-2", "OK", "received", "2024-05-01 10:00:01.000000Z"))
			}
			resttest.WriteJSON(w, obj{"results": received})
		})
		p.holder.Reply("POST /connections/holder-conn-1/send-message", obj{})

		s, err := orchestrator(restHolder(p.holder)).Message(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1, "Hello", "ok")
		require.NoError(t, err)
		require.Equal(t, session.ScenarioMessage, s.Scenario)
		require.Equal(t, "msg-2", s.ExchangeID)
		require.Equal(t, []string{
			session.StageInvite, session.StageReceive, session.StageConnection,
			session.StageSendMessage, session.StageReplyMessage, session.StageMessage,
		}, stageNames(s))
		require.Equal(t, "Hello", p.inviter.Body("POST /connections/issuer-conn-1/send-message", 0)["content"])
		require.Equal(t, "ok", p.holder.Body("POST /connections/holder-conn-1/send-message", 0)["content"])
	})

	t.Run("reply never arrives", func(t *testing.T) {
		p := newPeers(t)
		p.inviter.Reply("POST /connections/issuer-conn-1/send-message", obj{})
		p.inviter.Reply("GET /basicmessages", obj{"results": []interface{}{}})

		h := &holdermocks.Client{}
		h.On("ReceiveInvitation", mock.Anything, mock.Anything).Return(&holder.Receipt{ConnectionID: "holder-conn-1"}, nil)
		h.On("WaitForConnectionReady", mock.Anything, "holder-conn-1").Return(nil)
		h.On("SendBasicMessage", mock.Anything, "holder-conn-1", "ok").Return(nil)
		_, _ = http.Post(p.holder.URL()+"/connections/receive-invitation", "application/json", strings.NewReader("{}"))

		s, err := orchestrator(h).Message(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1, "Hello", "ok")
		require.True(t, outcome.IsTimeout(err))
		require.Equal(t, session.StageMessage, s.LastStage().Name)
		h.AssertExpectations(t)
	})
}

func TestOrchestrator_RequestProof(t *testing.T) {
	request := func(state string) obj {
		return obj{
			"presentation_exchange_id": "h-pres-1",
			"connection_id":            "holder-conn-1",
			"thread_id":                "th-9",
			"state":                    state,
			"presentation_request": obj{
				"name": "proof-request", "version": "1.0", "nonce": "1",
				"requested_attributes": obj{"attr_0": obj{"name": "name", "restrictions": []interface{}{}}},
				"requested_predicates": obj{},
			},
		}
	}

	t.Run("verified", func(t *testing.T) {
		p := newPeers(t)
		p.inviter.Reply("POST /present-proof/send-request", obj{"presentation_exchange_id": "pres-ex-9", "state": "request_sent"})
		p.inviter.On("GET /present-proof/records/pres-ex-9", func(w http.ResponseWriter, _ *http.Request, _ int) {
			if p.holder.Count("POST /present-proof/records/h-pres-1/send-presentation") == 0 {
				resttest.WriteJSON(w, obj{"presentation_exchange_id": "pres-ex-9", "state": "request_sent"})
				return
			}
			resttest.WriteJSON(w, obj{"presentation_exchange_id": "pres-ex-9", "state": "verified", "verified": "true"})
		})

		p.holder.Reply("GET /present-proof/records", obj{"results": []interface{}{request("request_received")}})
		p.holder.Reply("GET /present-proof/records/h-pres-1/credentials", []interface{}{
			obj{"cred_info": obj{"referent": "cred-a", "attrs": obj{"name": "Alice"}}, "presentation_referents": []interface{}{"attr_0"}},
		})
		p.holder.Reply("POST /present-proof/records/h-pres-1/send-presentation", obj{})

		s, err := orchestrator(restHolder(p.holder)).RequestProof(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1, schema.NewProofRequest("").AddAttribute("attr_0", &schema.AttributeRequest{Name: "name"}))
		require.NoError(t, err)
		require.Equal(t, "pres-ex-9", s.ExchangeID)
		require.True(t, s.Verified)
		require.Equal(t, "connection_id=holder-conn-1&state=request_received", p.holder.Query("GET /present-proof/records", 0))
	})

	t.Run("abandoned presentation", func(t *testing.T) {
		p := newPeers(t)
		p.inviter.Reply("POST /present-proof/send-request", obj{"presentation_exchange_id": "pres-ex-9", "state": "request_sent"})
		p.inviter.Reply("GET /present-proof/records/pres-ex-9", obj{"presentation_exchange_id": "pres-ex-9", "state": "abandoned"})

		p.inviter.Reply("GET /connections/issuer-conn-1", obj{"connection_id": "issuer-conn-1", "state": "active"})

		h := &holdermocks.Client{}
		h.On("ReceiveInvitation", mock.Anything, mock.Anything).Return(&holder.Receipt{ConnectionID: "holder-conn-1"}, nil)
		h.On("WaitForConnectionReady", mock.Anything, "holder-conn-1").Return(nil)
		h.On("AcceptProof", mock.Anything, holder.ByConnection("holder-conn-1")).Return(nil)

		s, err := orchestrator(h).RequestProof(context.Background(), exchangeClient(p.inviter), invitation.ConnectionV1, schema.NewProofRequest(""))
		require.True(t, outcome.IsProtocolFailure(err))
		require.False(t, outcome.IsTimeout(err))
		require.Equal(t, session.StagePresentation, s.LastStage().Name)
		require.Equal(t, 1, p.inviter.Count("GET /present-proof/records/pres-ex-9"))
		h.AssertExpectations(t)
	})
}

// connectionlessVerifier answers like an agent that creates an out-of-band proof request and
// verifies once the holder agent has sent its presentation.
func connectionlessVerifier(t *testing.T, holderAgent *resttest.Agent) *resttest.Agent {
	verifier := resttest.NewAgent(t)

	verifier.Reply("POST /present-proof/create-request", obj{
		"presentation_exchange_id":  "pres-ex-1",
		"thread_id":                 "pres-ex-1",
		"state":                     "request_sent",
		"presentation_request_dict": obj{"@type": "https://didcomm.org/present-proof/1.0/request-presentation", "@id": "pres-ex-1"},
	})
	verifier.Reply("POST /out-of-band/create-invitation", obj{
		"invi_msg_id": "oob-msg-2",
		"invitation": obj{
			"@type":               "https://didcomm.org/out-of-band/1.1/invitation",
			"@id":                 "oob-msg-2",
			"label":               exchange.ConnectionlessLabel,
			"handshake_protocols": []interface{}{invitation.DIDExchangeProtocol},
			"services":            []interface{}{"did:peer:4xyz"},
			"requests~attach": []interface{}{obj{
				"@id":  "request-0",
				"data": obj{"json": obj{"@id": "pres-ex-1", "~thread": obj{"thid": "pres-ex-1"}}},
			}},
		},
	})
	verifier.On("GET /present-proof/records/pres-ex-1", func(w http.ResponseWriter, _ *http.Request, _ int) {
		if holderAgent.Count("POST /present-proof/records/h-pres-1/send-presentation") == 0 {
			resttest.WriteJSON(w, obj{"presentation_exchange_id": "pres-ex-1", "state": "request_sent"})
			return
		}
		resttest.WriteJSON(w, obj{"presentation_exchange_id": "pres-ex-1", "state": "verified", "verified": "true"})
	})

	return verifier
}

func connectionlessHolder(t *testing.T) *resttest.Agent {
	h := resttest.NewAgent(t)
	h.Reply("POST /out-of-band/receive-invitation", obj{"oob_id": "h-oob-2", "state": "done"})
	h.Reply("GET /present-proof/records", obj{"results": []interface{}{obj{
		"presentation_exchange_id": "h-pres-1",
		"thread_id":                "pres-ex-1",
		"state":                    "request_received",
		"presentation_request":     obj{"name": "proof-request", "version": "1.0", "nonce": "1", "requested_attributes": obj{}, "requested_predicates": obj{}},
	}}})
	h.Reply("GET /present-proof/records/h-pres-1/credentials", []interface{}{})
	h.Reply("POST /present-proof/records/h-pres-1/send-presentation", obj{})
	return h
}

func TestOrchestrator_VerifyConnectionless(t *testing.T) {
	t.Run("out-of-band request", func(t *testing.T) {
		holderAgent := connectionlessHolder(t)
		verifier := connectionlessVerifier(t, holderAgent)

		s, err := orchestrator(restHolder(holderAgent)).VerifyConnectionless(context.Background(), exchangeClient(verifier), schema.NewProofRequest(""), session.Mode{OutOfBand: true})
		require.NoError(t, err)
		require.Equal(t, "pres-ex-1", s.ExchangeID)
		require.Equal(t, "oob-msg-2", s.CorrelationID)
		require.Equal(t, invitation.OOBDIDExchangeV11, s.Variant)
		require.True(t, s.Verified)
		require.Equal(t, "thread_id=pres-ex-1", holderAgent.Query("GET /present-proof/records", 0))

		received := holderAgent.Body("POST /out-of-band/receive-invitation", 0)
		_, ok := received["handshake_protocols"]
		require.False(t, ok)
	})

	t.Run("redirected through the tunnel server", func(t *testing.T) {
		holderAgent := connectionlessHolder(t)
		verifier := connectionlessVerifier(t, holderAgent)

		d := tunnel.NewDiscoverer("", "")
		docs := tunnel.NewServer("", d, tunnel.WithLogger(zerolog.Nop()))
		srv := httptest.NewServer(docs.Handler())
		defer srv.Close()
		d.PublicURL = srv.URL

		o := orchestrator(restHolder(holderAgent), session.WithPublisher(docs), session.WithDeepLink("https://wallet.example.com/link"))
		s, err := o.VerifyConnectionless(context.Background(), exchangeClient(verifier), schema.NewProofRequest(""), session.Mode{OutOfBand: true, Redirect: true})
		require.NoError(t, err)
		require.Equal(t, srv.URL+"/oob-msg-2.json", s.InvitationURL)
		require.Contains(t, stageNames(s), session.StageRedirect)
		require.NotContains(t, stageNames(s), session.StageDeepLink)
		require.Equal(t, "oob-msg-2", holderAgent.Body("POST /out-of-band/receive-invitation", 0)["@id"])
	})

	t.Run("deep link", func(t *testing.T) {
		h := &holdermocks.Client{}
		h.On("ReceiveInvitation", mock.Anything, mock.MatchedBy(func(inv *invitation.Invitation) bool {
			return strings.HasPrefix(inv.Payload.URL, "https://wallet.example.com/link?url=")
		})).Return(&holder.Receipt{}, nil)
		h.On("AcceptProof", mock.Anything, holder.ByThread("pres-ex-1")).Return(nil)

		verifier := connectionlessVerifier(t, resttest.NewAgent(t))
		verifier.Reply("GET /present-proof/records/pres-ex-1", obj{"presentation_exchange_id": "pres-ex-1", "state": "verified", "verified": "false"})

		o := orchestrator(h, session.WithDeepLink("https://wallet.example.com/link"))
		s, err := o.VerifyConnectionless(context.Background(), exchangeClient(verifier), schema.NewProofRequest(""), session.Mode{OutOfBand: true, DeepLink: true})
		require.NoError(t, err)
		require.Contains(t, stageNames(s), session.StageDeepLink)
		require.False(t, s.Verified)
		h.AssertExpectations(t)
	})

	t.Run("redirect unavailable", func(t *testing.T) {
		holderAgent := connectionlessHolder(t)
		verifier := connectionlessVerifier(t, holderAgent)

		pub := &invitationmocks.Publisher{}
		pub.On("Publish", mock.Anything, "oob-msg-2.json", mock.Anything).Return("", errors.New("no tunnels running"))

		h := &holdermocks.Client{}
		s, err := orchestrator(h, session.WithRedirect(pub)).VerifyConnectionless(context.Background(), exchangeClient(verifier), schema.NewProofRequest(""), session.Mode{OutOfBand: true, Redirect: true})
		require.True(t, outcome.IsRedirectUnavailable(err))
		require.Equal(t, session.StageRedirect, s.LastStage().Name)
		h.AssertNotCalled(t, "ReceiveInvitation", mock.Anything, mock.Anything)
	})

	t.Run("redirect fallback keeps the encoded invitation", func(t *testing.T) {
		holderAgent := connectionlessHolder(t)
		verifier := connectionlessVerifier(t, holderAgent)

		pub := &invitationmocks.Publisher{}
		pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("no tunnels running"))

		o := orchestrator(restHolder(holderAgent), session.WithPublisher(pub), session.WithRedirectFallback())
		s, err := o.VerifyConnectionless(context.Background(), exchangeClient(verifier), schema.NewProofRequest(""), session.Mode{OutOfBand: true, Redirect: true})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(s.InvitationURL, "bcwallet://launch?oob="))
	})

	t.Run("manual holder with no receipt", func(t *testing.T) {
		holderAgent := resttest.NewAgent(t)
		holderAgent.Reply("POST /present-proof/records/h-pres-1/send-presentation", obj{})
		verifier := connectionlessVerifier(t, holderAgent)

		var accepted int32
		h := &holdermocks.Client{}
		h.On("ReceiveInvitation", mock.Anything, mock.Anything).Return(&holder.Receipt{}, nil)
		h.On("AcceptProof", mock.Anything, holder.ByThread("pres-ex-1")).Return(nil).Run(func(mock.Arguments) {
			atomic.AddInt32(&accepted, 1)
			// the person scanning the code answers the request
			resp, err := http.Post(holderAgent.URL()+"/present-proof/records/h-pres-1/send-presentation", "application/json", strings.NewReader("{}"))
			if err == nil {
				resp.Body.Close()
			}
		})

		_, err := orchestrator(h).VerifyConnectionless(context.Background(), exchangeClient(verifier), schema.NewProofRequest(""), session.Mode{OutOfBand: true})
		require.NoError(t, err)
		require.Equal(t, int32(1), atomic.LoadInt32(&accepted))
	})
}

func TestRunConcurrently(t *testing.T) {
	p := newPeers(t)
	client := exchangeClient(p.inviter)
	o := orchestrator(restHolder(p.holder))

	sessions, err := session.RunConcurrently(context.Background(), 4, func(ctx context.Context) (*session.Session, error) {
		return o.Connect(ctx, client, invitation.ConnectionV1)
	})
	require.NoError(t, err)
	require.Len(t, sessions, 4)

	ids := map[string]struct{}{}
	for _, s := range sessions {
		require.Equal(t, session.StateCompleted, s.State)
		ids[s.ID] = struct{}{}
	}
	require.Len(t, ids, 4)

	var n int32
	sessions, err = session.RunConcurrently(context.Background(), 3, func(ctx context.Context) (*session.Session, error) {
		if atomic.AddInt32(&n, 1) == 2 {
			return &session.Session{State: session.StateFailed}, errors.New("boom")
		}
		return o.Connect(ctx, client, invitation.ConnectionV1)
	})
	require.Error(t, err)
	require.Len(t, sessions, 3)
	for _, s := range sessions {
		require.NotNil(t, s)
	}
}

func TestReporters(t *testing.T) {
	a := &mocks.Reporter{}
	a.On("Report", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	b := &mocks.Reporter{}
	b.On("Report", mock.Anything, mock.Anything).Return(nil)

	s := &session.Session{ID: "s-1", State: session.StateCompleted}
	err := session.Reporters{a, &session.LogReporter{Logger: zerolog.Nop()}, b}.Report(context.Background(), s)
	require.EqualError(t, err, "broker down")
	b.AssertCalled(t, "Report", mock.Anything, s)
}
