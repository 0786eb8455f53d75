/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"crypto/rand"
	"math/big"
	"time"
)

// NonRevoked is an interval in epoch seconds.
type NonRevoked struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

func NonRevokedAt(t time.Time) *NonRevoked {
	return &NonRevoked{From: t.Unix(), To: t.Unix()}
}

type Restriction struct {
	SchemaID      string `json:"schema_id,omitempty"`
	SchemaName    string `json:"schema_name,omitempty"`
	SchemaVersion string `json:"schema_version,omitempty"`
	IssuerDID     string `json:"issuer_did,omitempty"`
	CredDefID     string `json:"cred_def_id,omitempty"`
}

type AttributeRequest struct {
	Name         string         `json:"name,omitempty"`
	Names        []string       `json:"names,omitempty"`
	Restrictions []*Restriction `json:"restrictions"`
	NonRevoked   *NonRevoked    `json:"non_revoked,omitempty"`
}

type PredicateRequest struct {
	Name         string         `json:"name"`
	PType        string         `json:"p_type"`
	PValue       int32          `json:"p_value"`
	Restrictions []*Restriction `json:"restrictions"`
	NonRevoked   *NonRevoked    `json:"non_revoked,omitempty"`
}

type IndyProofRequest struct {
	Name                string                       `json:"name"`
	Version             string                       `json:"version"`
	Nonce               string                       `json:"nonce"`
	NonRevoked          *NonRevoked                  `json:"non_revoked,omitempty"`
	RequestedAttributes map[string]*AttributeRequest `json:"requested_attributes"`
	RequestedPredicates map[string]*PredicateRequest `json:"requested_predicates"`
}

// ProofRequest builds the same request for the v1 and v2 present-proof protocols.
type ProofRequest struct {
	IndyProofRequest
}

func NewProofRequest(name string) *ProofRequest {
	if name == "" {
		name = "proof-request"
	}

	return &ProofRequest{IndyProofRequest{
		Name:                name,
		Version:             "1.0",
		Nonce:               Nonce(),
		RequestedAttributes: map[string]*AttributeRequest{},
		RequestedPredicates: map[string]*PredicateRequest{},
	}}
}

func (r *ProofRequest) AddAttribute(group string, attr *AttributeRequest) *ProofRequest {
	r.RequestedAttributes[group] = attr
	return r
}

func (r *ProofRequest) AddPredicate(referent string, pred *PredicateRequest) *ProofRequest {
	r.RequestedPredicates[referent] = pred
	return r
}

func (r *ProofRequest) NonRevokedAt(t time.Time) *ProofRequest {
	r.NonRevoked = NonRevokedAt(t)
	return r
}

// Indy is the present-proof 1.0 request body.
func (r *ProofRequest) Indy() *IndyProofRequest {
	out := r.IndyProofRequest
	if out.RequestedAttributes == nil {
		out.RequestedAttributes = map[string]*AttributeRequest{}
	}
	if out.RequestedPredicates == nil {
		out.RequestedPredicates = map[string]*PredicateRequest{}
	}
	return &out
}

// V2 is the present-proof 2.0 request body.
func (r *ProofRequest) V2() map[string]*IndyProofRequest {
	return map[string]*IndyProofRequest{"indy": r.Indy()}
}

var nonceMax = new(big.Int).Lsh(big.NewInt(1), 80)

// Nonce is a random decimal string.
func Nonce() string {
	n, err := rand.Int(rand.Reader, nonceMax)
	if err != nil {
		return big.NewInt(time.Now().UnixNano()).String()
	}

	return n.String()
}
