/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"fmt"
	"time"

	"github.com/scoir/canis-exchange/pkg/invitation"
)

type Scenario string

const (
	ScenarioConnect        Scenario = "connect"
	ScenarioIssue          Scenario = "issue-credential"
	ScenarioRequestProof   Scenario = "request-proof"
	ScenarioConnectionless Scenario = "verify-connectionless"
	ScenarioMessage        Scenario = "message"
)

type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Stage names, in the order a session can pass through them.
const (
	StageInvite        = "create-invitation"
	StageCreateRequest = "create-request"
	StageRedirect      = "redirect"
	StageDeepLink      = "deep-link"
	StageReceive       = "receive-invitation"
	StageConnection    = "wait-connection"
	StageSendOffer     = "send-offer"
	StageFindOffer     = "find-offer"
	StageAcceptOffer   = "accept-offer"
	StageCredential    = "wait-credential"
	StageRevoke        = "revoke-credential"
	StageRevoked       = "wait-revocation"
	StageSendMessage   = "send-message"
	StageReplyMessage  = "reply-message"
	StageMessage       = "wait-message"
	StageSendRequest   = "send-request"
	StageAcceptProof   = "accept-proof"
	StagePresentation  = "wait-presentation"
)

type Stage struct {
	Name     string        `json:"name" bson:"name"`
	Started  time.Time     `json:"started" bson:"started"`
	Duration time.Duration `json:"duration" bson:"duration"`
	Error    string        `json:"error,omitempty" bson:"error,omitempty"`
}

// Session correlates one invitation with the records it produces on both peers.
type Session struct {
	ID                  string             `json:"id" bson:"_id"`
	Scenario            Scenario           `json:"scenario" bson:"scenario"`
	Variant             invitation.Variant `json:"variant" bson:"variant"`
	CorrelationID       string             `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	InviterConnectionID string             `json:"inviter_connection_id,omitempty" bson:"inviter_connection_id,omitempty"`
	InviteeConnectionID string             `json:"invitee_connection_id,omitempty" bson:"invitee_connection_id,omitempty"`
	ExchangeID          string             `json:"exchange_id,omitempty" bson:"exchange_id,omitempty"`
	InvitationURL       string             `json:"invitation_url,omitempty" bson:"invitation_url,omitempty"`
	Verified            bool               `json:"verified,omitempty" bson:"verified,omitempty"`
	Stages              []*Stage           `json:"stages" bson:"stages"`
	State               State              `json:"state" bson:"state"`
	Error               string             `json:"error,omitempty" bson:"error,omitempty"`
	ErrorKind           string             `json:"error_kind,omitempty" bson:"error_kind,omitempty"`
	Started             time.Time          `json:"started" bson:"started"`
	Finished            time.Time          `json:"finished,omitempty" bson:"finished,omitempty"`

	Err error `json:"-" bson:"-"`
}

// LastStage is the most recent stage the session entered.
func (r *Session) LastStage() *Stage {
	if len(r.Stages) == 0 {
		return nil
	}

	return r.Stages[len(r.Stages)-1]
}

// StageError is the first failure of a session.
type StageError struct {
	Stage         string
	SessionID     string
	CorrelationID string
	Err           error
}

func (r *StageError) Error() string {
	return fmt.Sprintf("session %s failed at %s (correlation id %q): %v", r.SessionID, r.Stage, r.CorrelationID, r.Err)
}

func (r *StageError) Unwrap() error {
	return r.Err
}

func (r *StageError) Cause() error {
	return r.Err
}
