/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCredentialDefinition_Request(t *testing.T) {
	cd := &CredentialDefinition{Schema: &Definition{ID: "Th7:2:person:1.0"}, SupportRevocation: true}
	req := cd.Request()
	require.Equal(t, "Th7:2:person:1.0", req.SchemaID)
	require.Equal(t, "revocable", req.Tag)
	require.Equal(t, 100, req.RegistrySize)

	require.Equal(t, "irrevocable", (&CredentialDefinition{}).ResolvedTag())
	require.Equal(t, "custom", (&CredentialDefinition{Tag: "custom"}).ResolvedTag())
}

func TestCredentialPreview(t *testing.T) {
	p := NewCredentialPreview().Add("given_names", "Alice").Add("family_name", "Smith")
	require.Equal(t, PreviewV1Type, p.Type)

	v2 := p.V2()
	require.Equal(t, PreviewV2Type, v2.Type)
	require.Equal(t, PreviewV1Type, p.Type)
	require.Equal(t, map[string]string{"given_names": "Alice", "family_name": "Smith"}, v2.Values())
}

func TestProofRequest(t *testing.T) {
	at := time.Unix(1700000000, 0)
	req := NewProofRequest("").
		AddAttribute("person", &AttributeRequest{
			Names:        []string{"given_names", "family_name"},
			Restrictions: []*Restriction{{SchemaName: "person"}},
			NonRevoked:   NonRevokedAt(at),
		}).
		NonRevokedAt(at)

	require.Equal(t, "proof-request", req.Name)
	require.Regexp(t, `^[0-9]+$`, req.Nonce)
	require.NotEqual(t, req.Nonce, NewProofRequest("x").Nonce)

	b, err := json.Marshal(req.V2())
	require.NoError(t, err)

	out := map[string]map[string]interface{}{}
	require.NoError(t, json.Unmarshal(b, &out))
	indy := out["indy"]
	require.Equal(t, "1.0", indy["version"])
	require.Equal(t, map[string]interface{}{"from": float64(1700000000), "to": float64(1700000000)}, indy["non_revoked"])
	require.Equal(t, map[string]interface{}{}, indy["requested_predicates"])
}

func TestSelectCredentials(t *testing.T) {
	req := NewProofRequest("p").
		AddAttribute("person", &AttributeRequest{Names: []string{"given_names"}}).
		AddAttribute("degree", &AttributeRequest{Name: "degree"}).
		AddPredicate("age", &PredicateRequest{Name: "age", PType: ">=", PValue: 18})

	matches := []*IndyCredentialMatch{
		{CredInfo: &IndyCredentialInfo{Referent: "c1"}, PresentationReferents: []string{"person", "age"}},
		{CredInfo: &IndyCredentialInfo{Referent: "c2", RevRegID: "r"}, Interval: &NonRevoked{From: 1, To: 5}, PresentationReferents: []string{"person"}},
	}

	sel := SelectCredentials(req.Indy(), matches)
	require.Equal(t, "c1", sel.RequestedAttributes["person"].CredID)
	require.True(t, sel.RequestedAttributes["person"].Revealed)
	require.NotContains(t, sel.RequestedAttributes, "degree")
	require.Equal(t, "c1", sel.RequestedPredicates["age"].CredID)
}

func TestIndyProof_Revealed(t *testing.T) {
	proof := &IndyProof{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"requested_proof": {
			"revealed_attrs": {"degree": {"sub_proof_index": 0, "raw": "Maths", "encoded": "1"}},
			"revealed_attr_groups": {"person": {"sub_proof_index": 0, "values": {"given_names": {"raw": "Alice", "encoded": "2"}}}}
		}
	}`), proof))

	require.Equal(t, map[string]string{"degree": "Maths", "given_names": "Alice"}, proof.Revealed())
	require.Empty(t, (*IndyProof)(nil).Revealed())
}
