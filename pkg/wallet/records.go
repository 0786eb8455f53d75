/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	ConnectionRecordType = "ConnectionRecord"
	CredentialRecordType = "CredentialRecord"
	ProofRecordType      = "ProofRecord"
)

// connection states
const (
	ConnectionCompleted = "completed"
	ConnectionAbandoned = "abandoned"
)

// credential states
const (
	CredentialOfferReceived = "offer-received"
	CredentialRequestSent   = "request-sent"
	CredentialReceived      = "credential-received"
	CredentialDone          = "done"
	CredentialDeclined      = "declined"
	CredentialAbandoned     = "abandoned"
)

// proof states
const (
	ProofRequestReceived  = "request-received"
	ProofPresentationSent = "presentation-sent"
	ProofDone             = "done"
	ProofDeclined         = "declined"
	ProofAbandoned        = "abandoned"
)

type ConnectionRecord struct {
	ID          string `json:"id" mapstructure:"id"`
	State       string `json:"state" mapstructure:"state"`
	Role        string `json:"role,omitempty" mapstructure:"role"`
	TheirLabel  string `json:"theirLabel,omitempty" mapstructure:"theirLabel"`
	ThreadID    string `json:"threadId,omitempty" mapstructure:"threadId"`
	OutOfBandID string `json:"outOfBandId,omitempty" mapstructure:"outOfBandId"`
	CreatedAt   string `json:"createdAt,omitempty" mapstructure:"createdAt"`
}

type CredentialRecord struct {
	ID              string `json:"id" mapstructure:"id"`
	State           string `json:"state" mapstructure:"state"`
	ConnectionID    string `json:"connectionId,omitempty" mapstructure:"connectionId"`
	ThreadID        string `json:"threadId,omitempty" mapstructure:"threadId"`
	ProtocolVersion string `json:"protocolVersion,omitempty" mapstructure:"protocolVersion"`
	CreatedAt       string `json:"createdAt,omitempty" mapstructure:"createdAt"`
}

type ProofRecord struct {
	ID              string `json:"id" mapstructure:"id"`
	State           string `json:"state" mapstructure:"state"`
	ConnectionID    string `json:"connectionId,omitempty" mapstructure:"connectionId"`
	ThreadID        string `json:"threadId,omitempty" mapstructure:"threadId"`
	ProtocolVersion string `json:"protocolVersion,omitempty" mapstructure:"protocolVersion"`
	CreatedAt       string `json:"createdAt,omitempty" mapstructure:"createdAt"`
}

// decodeRecord copies a loosely typed record map into one of the record structs.
// Unknown fields are ignored.
func decodeRecord(in map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "unable to build record decoder")
	}

	if err := dec.Decode(in); err != nil {
		return errors.Wrap(err, "unable to decode wallet record")
	}

	return nil
}
