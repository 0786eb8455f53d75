/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schema

type Attr struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	MimeType string `json:"mime-type,omitempty"`
}

const (
	PreviewV1Type = "issue-credential/1.0/credential-preview"
	PreviewV2Type = "issue-credential/2.0/credential-preview"
)

// CredentialPreview is the attribute list offered to a holder.
type CredentialPreview struct {
	Type       string  `json:"@type"`
	Attributes []*Attr `json:"attributes"`
}

func NewCredentialPreview(attrs ...*Attr) *CredentialPreview {
	return &CredentialPreview{Type: PreviewV1Type, Attributes: attrs}
}

func (r *CredentialPreview) Add(name, value string) *CredentialPreview {
	r.Attributes = append(r.Attributes, &Attr{Name: name, Value: value})
	return r
}

// V2 is the same preview typed for issue-credential 2.0.
func (r *CredentialPreview) V2() *CredentialPreview {
	out := &CredentialPreview{Type: PreviewV2Type, Attributes: make([]*Attr, len(r.Attributes))}
	copy(out.Attributes, r.Attributes)
	return out
}

// Values maps attribute names to values.
func (r *CredentialPreview) Values() map[string]string {
	out := make(map[string]string, len(r.Attributes))
	for _, a := range r.Attributes {
		out[a.Name] = a.Value
	}
	return out
}
