/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schema

// RevocationRegistrySize is the registry size requested for revocable credential definitions.
const RevocationRegistrySize = 100

type Definition struct {
	ID         string   `json:"schema_id,omitempty"`
	Name       string   `json:"schema_name"`
	Version    string   `json:"schema_version"`
	Attributes []string `json:"attributes"`
}

type CredentialDefinition struct {
	ID                string      `json:"-"`
	SchemaID          string      `json:"schema_id"`
	Schema            *Definition `json:"-"`
	SupportRevocation bool        `json:"support_revocation"`
	RegistrySize      int         `json:"revocation_registry_size"`
	Tag               string      `json:"tag"`
}

// ResolvedTag is the configured tag, or revocable/irrevocable when none is set.
func (r *CredentialDefinition) ResolvedTag() string {
	if r.Tag != "" {
		return r.Tag
	}

	if r.SupportRevocation {
		return "revocable"
	}

	return "irrevocable"
}

// Request is the creation body sent to the agent.
func (r *CredentialDefinition) Request() *CredentialDefinition {
	out := *r
	if out.SchemaID == "" && out.Schema != nil {
		out.SchemaID = out.Schema.ID
	}
	out.RegistrySize = RevocationRegistrySize
	out.Tag = r.ResolvedTag()
	return &out
}
