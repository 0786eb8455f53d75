/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package datastore

import (
	"context"
	"sort"

	"github.com/scoir/canis-exchange/pkg/session"
)

const DefaultPageSize = 10

type SessionCriteria struct {
	Start, PageSize int
	Scenario        session.Scenario
	State           session.State
	CorrelationID   string
}

// Limit is the page size, falling back to DefaultPageSize.
func (r *SessionCriteria) Limit() int {
	if r == nil || r.PageSize <= 0 {
		return DefaultPageSize
	}
	return r.PageSize
}

type SessionList struct {
	Count    int
	Sessions []*session.Session
}

type Webhook struct {
	Type string `json:"type" bson:"type"`
	URL  string `json:"url" bson:"url"`
}

// StaticWebhooks is a registry read from configuration, keyed by topic.
type StaticWebhooks map[string][]string

func (r StaticWebhooks) ListWebhooks(_ context.Context, topic string) ([]*Webhook, error) {
	urls := r[topic]

	out := make([]*Webhook, 0, len(urls))
	for _, u := range urls {
		out = append(out, &Webhook{Type: topic, URL: u})
	}

	return out, nil
}

// Topics lists the configured topics in order.
func (r StaticWebhooks) Topics() []string {
	out := make([]string, 0, len(r))
	for topic := range r {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}
