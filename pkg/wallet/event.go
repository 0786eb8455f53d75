/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"encoding/json"

	"github.com/pkg/errors"
)

const RecordSavedEvent = "RecordSaved"

// Event is one notification from the wallet runtime.
type Event struct {
	Type       string
	RecordType string
	Record     map[string]interface{}
}

type wireEvent struct {
	Type    string `json:"type"`
	Payload struct {
		Record map[string]interface{} `json:"record"`
	} `json:"payload"`
}

// ParseEvent decodes a wallet event frame.
func ParseEvent(b []byte) (Event, error) {
	we := wireEvent{}
	if err := json.Unmarshal(b, &we); err != nil {
		return Event{}, errors.Wrap(err, "wallet event is not JSON")
	}

	if we.Type == "" {
		return Event{}, errors.New("wallet event has no type")
	}

	ev := Event{Type: we.Type, Record: we.Payload.Record}
	if ev.Record != nil {
		ev.RecordType, _ = ev.Record["type"].(string)
	}

	return ev, nil
}

func (r Event) str(key string) string {
	s, _ := r.Record[key].(string)
	return s
}

func (r Event) ID() string {
	return r.str("id")
}

func (r Event) State() string {
	return r.str("state")
}

func (r Event) ThreadID() string {
	return r.str("threadId")
}

func (r Event) ConnectionID() string {
	return r.str("connectionId")
}

func (r Event) Connection() (*ConnectionRecord, error) {
	if r.RecordType != ConnectionRecordType {
		return nil, errors.Errorf("event carries a %s, not a connection", r.RecordType)
	}

	out := &ConnectionRecord{}
	return out, decodeRecord(r.Record, out)
}

func (r Event) Credential() (*CredentialRecord, error) {
	if r.RecordType != CredentialRecordType {
		return nil, errors.Errorf("event carries a %s, not a credential", r.RecordType)
	}

	out := &CredentialRecord{}
	return out, decodeRecord(r.Record, out)
}

func (r Event) Proof() (*ProofRecord, error) {
	if r.RecordType != ProofRecordType {
		return nil, errors.Errorf("event carries a %s, not a proof", r.RecordType)
	}

	out := &ProofRecord{}
	return out, decodeRecord(r.Record, out)
}
