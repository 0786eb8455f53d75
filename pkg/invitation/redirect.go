/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invitation

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/outcome"
)

// Publisher makes a document retrievable at a public URL and returns that URL.
//go:generate mockery -name=Publisher
type Publisher interface {
	Publish(ctx context.Context, name string, doc []byte) (string, error)
}

// WithRedirect publishes the invitation document and returns a copy whose URL points at it.
// The input invitation is left untouched so the caller can fall back to it.
func WithRedirect(ctx context.Context, inv *Invitation, pub Publisher) (*Invitation, error) {
	if pub == nil {
		return nil, errors.Wrap(outcome.ErrRedirectUnavailable, "no publisher configured")
	}

	b, err := Canonical(inv.Payload.Invitation)
	if err != nil {
		return nil, err
	}

	id := inv.Payload.Invitation.ID()
	if id == "" {
		id = uuid.New().String()
	}

	link, err := pub.Publish(ctx, id+".json", b)
	if err != nil {
		if outcome.IsRedirectUnavailable(err) {
			return nil, err
		}
		return nil, errors.Wrapf(outcome.ErrRedirectUnavailable, "publishing %s: %v", id, err)
	}

	out := inv.Clone()
	out.Payload.URL = link
	return out, nil
}

// WithDeepLink wraps the transport URL in an app landing page link. An empty page leaves the URL alone.
func WithDeepLink(inv *Invitation, page string) *Invitation {
	out := inv.Clone()
	if page == "" {
		return out
	}

	u, err := url.Parse(page)
	if err != nil {
		out.Payload.URL = page + "?" + ParamDeepLink + "=" + url.QueryEscape(inv.Payload.URL)
		return out
	}

	q := u.Query()
	q.Set(ParamDeepLink, inv.Payload.URL)
	u.RawQuery = q.Encode()
	out.Payload.URL = u.String()

	return out
}

const maxDeepLinkDepth = 4

// Unwrap returns the URL a deep link landing page carries, peeling nested pages. Anything else,
// including a launch URL, comes back unchanged.
func Unwrap(link string) string {
	for i := 0; i < maxDeepLinkDepth; i++ {
		u, err := url.Parse(strings.TrimSpace(link))
		if err != nil {
			return link
		}

		q := u.Query()
		if q.Get(ParamOOB) != "" || q.Get(ParamLegacy) != "" || q.Get(paramDM) != "" {
			return link
		}

		inner := q.Get(ParamDeepLink)
		if inner == "" {
			return link
		}
		link = inner
	}

	return link
}
