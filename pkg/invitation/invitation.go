/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package invitation builds transport-ready invitations and parses them back.
package invitation

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Variant is the protocol family an invitation belongs to.
type Variant string

const (
	ConnectionV1      Variant = "connection-v1"
	OOBConnectionV1   Variant = "oob-connection-v1"
	OOBDIDExchangeV11 Variant = "oob-didexchange-v1.1"
)

const (
	ConnectionsProtocol = "https://didcomm.org/connections/1.0"
	DIDExchangeProtocol = "https://didcomm.org/didexchange/1.1"
)

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case ConnectionV1, OOBConnectionV1, OOBDIDExchangeV11:
		return v, nil
	}

	return "", errors.Errorf("unknown invitation variant %q", s)
}

// OutOfBand reports whether the correlation id is an invitation message id rather than a connection id.
func (r Variant) OutOfBand() bool {
	return r == OOBConnectionV1 || r == OOBDIDExchangeV11
}

// HandshakeProtocol is the protocol an OOB invitation of this variant negotiates.
func (r Variant) HandshakeProtocol() string {
	switch r {
	case OOBDIDExchangeV11:
		return DIDExchangeProtocol
	case OOBConnectionV1, ConnectionV1:
		return ConnectionsProtocol
	}

	return ""
}

// Document is an opaque invitation message as the agents exchange it. Its values are
// JSON-shaped: anything decoded from the wire carries numbers as float64.
type Document map[string]interface{}

func (r Document) ID() string {
	s, _ := r["@id"].(string)
	return s
}

func (r Document) Type() string {
	s, _ := r["@type"].(string)
	return s
}

func (r Document) Label() string {
	s, _ := r["label"].(string)
	return s
}

// Clone deep copies the document's maps and slices. Leaf values keep their Go types.
func (r Document) Clone() Document {
	if r == nil {
		return nil
	}

	return Document(cloneMap(r))
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Document:
		return t.Clone()
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}

	return v
}

// Normalize returns the document as a wallet would read it back: round tripped through its
// canonical JSON form.
func Normalize(doc Document) (Document, error) {
	b, err := Canonical(doc)
	if err != nil {
		return nil, err
	}

	return parseDocument(b)
}

// Canonical renders a document as compact JSON with sorted keys, so identical documents
// always produce identical bytes.
func Canonical(doc Document) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, "unable to marshal invitation document")
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Payload is what travels with an invitation.
type Payload struct {
	Invitation          Document `json:"invitation"`
	URL                 string   `json:"invitation_url"`
	ConnectionID        string   `json:"connection_id,omitempty"`
	InvitationMessageID string   `json:"invi_msg_id,omitempty"`
	ExchangeID          string   `json:"exchange_id,omitempty"`
}

type Invitation struct {
	Variant Variant `json:"type"`
	Payload Payload `json:"payload"`
}

// CorrelationID is the id the inviter can watch before the invitee acts.
func (r *Invitation) CorrelationID() string {
	if r.Variant.OutOfBand() {
		return r.Payload.InvitationMessageID
	}

	return r.Payload.ConnectionID
}

func (r *Invitation) Clone() *Invitation {
	out := *r
	out.Payload.Invitation = r.Payload.Invitation.Clone()
	return &out
}
