/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schema

// IndyCredentialInfo describes a credential held in a wallet.
type IndyCredentialInfo struct {
	Referent  string            `json:"referent"`
	SchemaID  string            `json:"schema_id"`
	CredDefID string            `json:"cred_def_id"`
	RevRegID  string            `json:"rev_reg_id,omitempty"`
	CredRevID string            `json:"cred_rev_id,omitempty"`
	Attrs     map[string]string `json:"attrs"`
}

// IndyCredentialMatch is a wallet credential matching one or more referents of a proof request.
type IndyCredentialMatch struct {
	CredInfo              *IndyCredentialInfo `json:"cred_info"`
	Interval              *NonRevoked         `json:"interval,omitempty"`
	PresentationReferents []string            `json:"presentation_referents"`
}

type IndyRequestedAttribute struct {
	CredID    string `json:"cred_id"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Revealed  bool   `json:"revealed"`
}

type IndyRequestedPredicate struct {
	CredID    string `json:"cred_id"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// IndyRequestedCredentials is the presentation body a holder sends for a request.
type IndyRequestedCredentials struct {
	SelfAttestedAttrs   map[string]string                  `json:"self_attested_attributes"`
	RequestedAttributes map[string]*IndyRequestedAttribute `json:"requested_attributes"`
	RequestedPredicates map[string]*IndyRequestedPredicate `json:"requested_predicates"`
}

// SelectCredentials picks the first matching credential for every referent in req.
// Referents with no match are left out.
func SelectCredentials(req *IndyProofRequest, matches []*IndyCredentialMatch) *IndyRequestedCredentials {
	out := &IndyRequestedCredentials{
		SelfAttestedAttrs:   map[string]string{},
		RequestedAttributes: map[string]*IndyRequestedAttribute{},
		RequestedPredicates: map[string]*IndyRequestedPredicate{},
	}

	first := map[string]*IndyCredentialMatch{}
	for _, m := range matches {
		if m.CredInfo == nil {
			continue
		}
		for _, ref := range m.PresentationReferents {
			if _, ok := first[ref]; !ok {
				first[ref] = m
			}
		}
	}

	timestamp := func(m *IndyCredentialMatch) int64 {
		if m.Interval != nil && m.CredInfo.RevRegID != "" {
			return m.Interval.To
		}
		return 0
	}

	if req == nil {
		return out
	}

	for ref := range req.RequestedAttributes {
		if m, ok := first[ref]; ok {
			out.RequestedAttributes[ref] = &IndyRequestedAttribute{CredID: m.CredInfo.Referent, Revealed: true, Timestamp: timestamp(m)}
		}
	}

	for ref := range req.RequestedPredicates {
		if m, ok := first[ref]; ok {
			out.RequestedPredicates[ref] = &IndyRequestedPredicate{CredID: m.CredInfo.Referent, Timestamp: timestamp(m)}
		}
	}

	return out
}
