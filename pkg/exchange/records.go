/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/schema"
)

// Connection states
const (
	ConnectionActive    = "active"
	ConnectionCompleted = "completed"
	ConnectionAbandoned = "abandoned"
	ConnectionError     = "error"
	ConnectionRejected  = "rejected"
)

// Credential exchange states
const (
	CredentialAcked    = "credential_acked"
	CredentialRevoked  = "credential_revoked"
	CredentialDone     = "done"
	CredentialDeclined = "declined"
	RecordAbandoned    = "abandoned"
	RecordDeleted      = "deleted"
)

// Presentation exchange states
const (
	PresentationVerified = "verified"
	PresentationDone     = "done"
)

const (
	TransactionAcked = "transaction_acked"
	Revoked          = "revoked"
)

type ConnectionRecord struct {
	ConnectionID    string `json:"connection_id"`
	State           string `json:"state"`
	RFC23State      string `json:"rfc23_state,omitempty"`
	Alias           string `json:"alias,omitempty"`
	TheirLabel      string `json:"their_label,omitempty"`
	InvitationMsgID string `json:"invitation_msg_id,omitempty"`
}

type createInvitationResponse struct {
	ConnectionID  string              `json:"connection_id"`
	InviMsgID     string              `json:"invi_msg_id"`
	Invitation    invitation.Document `json:"invitation"`
	InvitationURL string              `json:"invitation_url"`
}

type CredentialExchange struct {
	CredentialExchangeID string `json:"credential_exchange_id"`
	ConnectionID         string `json:"connection_id"`
	CredDefID            string `json:"credential_definition_id,omitempty"`
	State                string `json:"state"`
	RevocationID         string `json:"revocation_id,omitempty"`
	RevocRegID           string `json:"revoc_reg_id,omitempty"`
	ThreadID             string `json:"thread_id,omitempty"`
}

type CredentialExchangeV2 struct {
	CredExID     string `json:"cred_ex_id"`
	ConnectionID string `json:"connection_id"`
	State        string `json:"state"`
	ThreadID     string `json:"thread_id,omitempty"`
}

type credentialExchangeV2Detail struct {
	Record *CredentialExchangeV2 `json:"cred_ex_record"`
	Indy   *struct {
		RevRegID  string `json:"rev_reg_id"`
		CredRevID string `json:"cred_rev_id"`
	} `json:"indy,omitempty"`
}

// Presentation is a verifier-side presentation exchange record.
type Presentation struct {
	PresentationExchangeID string                  `json:"presentation_exchange_id,omitempty"`
	PresExID               string                  `json:"pres_ex_id,omitempty"`
	ConnectionID           string                  `json:"connection_id,omitempty"`
	ThreadID               string                  `json:"thread_id,omitempty"`
	State                  string                  `json:"state"`
	Verified               string                  `json:"verified,omitempty"`
	Presentation           *schema.IndyProof       `json:"presentation,omitempty"`
	RequestDict            invitation.Document     `json:"presentation_request_dict,omitempty"`
	PresRequest            invitation.Document     `json:"pres_request,omitempty"`
	ByFormat               *presentationV2ByFormat `json:"by_format,omitempty"`
}

type presentationV2ByFormat struct {
	Pres *struct {
		Indy *schema.IndyProof `json:"indy"`
	} `json:"pres,omitempty"`
}

// ID is the exchange id for either protocol version.
func (r *Presentation) ID() string {
	if r.PresentationExchangeID != "" {
		return r.PresentationExchangeID
	}

	return r.PresExID
}

// IsVerified reports the agent's verification verdict.
func (r *Presentation) IsVerified() bool {
	return r.Verified == "true"
}

// Proof is the presented proof for either protocol version.
func (r *Presentation) Proof() *schema.IndyProof {
	if r.Presentation != nil {
		return r.Presentation
	}

	if r.ByFormat != nil && r.ByFormat.Pres != nil {
		return r.ByFormat.Pres.Indy
	}

	return nil
}

type BasicMessage struct {
	ConnectionID string `json:"connection_id"`
	MessageID    string `json:"message_id"`
	Content      string `json:"content"`
	State        string `json:"state"`
	SentTime     string `json:"sent_time,omitempty"`
	CreatedAt    string `json:"created_at"`
}
