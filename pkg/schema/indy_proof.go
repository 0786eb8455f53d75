/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"encoding/json"
)

// IndyProof is the presentation a verifier receives.
type IndyProof struct {
	Proof          json.RawMessage     `json:"proof"`
	RequestedProof *IndyRequestedProof `json:"requested_proof"`
	Identifiers    []*Identifier       `json:"identifiers"`
}

type IndyRequestedProof struct {
	RevealedAttrs      map[string]*RevealedAttributeInfo      `json:"revealed_attrs"`
	RevealedAttrGroups map[string]*RevealedAttributeGroupInfo `json:"revealed_attr_groups"`
	SelfAttestedAttrs  map[string]string                      `json:"self_attested_attrs"`
	UnrevealedAttrs    map[string]*SubProofReferent           `json:"unrevealed_attrs"`
	Predicates         map[string]*SubProofReferent           `json:"predicates"`
}

type Identifier struct {
	SchemaID  string `json:"schema_id"`
	CredDefID string `json:"cred_def_id"`
	RevRegID  string `json:"rev_reg_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type SubProofReferent struct {
	SubProofIndex int32 `json:"sub_proof_index"`
}

type RevealedAttributeInfo struct {
	SubProofIndex int32  `json:"sub_proof_index"`
	Raw           string `json:"raw"`
	Encoded       string `json:"encoded"`
}

type RevealedAttributeGroupInfo struct {
	SubProofIndex int32                          `json:"sub_proof_index"`
	Values        map[string]*IndyAttributeValue `json:"values"`
}

type IndyAttributeValue struct {
	Raw     string `json:"raw"`
	Encoded string `json:"encoded"`
}

// Revealed flattens revealed attributes and attribute groups into name/value pairs.
// Single attributes are keyed by referent, group members by attribute name.
func (r *IndyProof) Revealed() map[string]string {
	out := map[string]string{}
	if r == nil || r.RequestedProof == nil {
		return out
	}

	for ref, v := range r.RequestedProof.RevealedAttrs {
		out[ref] = v.Raw
	}

	for _, g := range r.RequestedProof.RevealedAttrGroups {
		for name, v := range g.Values {
			out[name] = v.Raw
		}
	}

	return out
}
