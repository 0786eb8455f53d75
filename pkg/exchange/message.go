/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/poll"
)

type basicMessages struct {
	Results []*BasicMessage `json:"results"`
}

func (r *Client) listBasicMessages(ctx context.Context, connectionID, state string) ([]*BasicMessage, error) {
	q := url.Values{"connection_id": {connectionID}, "state": {state}}

	list := &basicMessages{}
	if err := r.agent.Get(ctx, "/basicmessages", q, list); err != nil {
		return nil, err
	}

	return list.Results, nil
}

// SendBasicMessage sends content over the connection and returns the sent message record.
func (r *Client) SendBasicMessage(ctx context.Context, connectionID, content string) (*BasicMessage, error) {
	body := map[string]string{"content": content}
	if err := r.agent.Post(ctx, "/connections/"+connectionID+"/send-message", nil, body, nil); err != nil {
		return nil, errors.Wrap(err, "unable to send basic message")
	}

	sent, err := r.listBasicMessages(ctx, connectionID, "sent")
	if err != nil {
		return nil, err
	}

	for _, m := range sent {
		if m.Content == content {
			return m, nil
		}
	}

	return &BasicMessage{ConnectionID: connectionID, Content: content, State: "sent"}, nil
}

// WaitForBasicMessage waits for a message received on the connection at or after the given time
// whose lowercased content is one of contents.
func (r *Client) WaitForBasicMessage(ctx context.Context, connectionID string, after time.Time, contents ...string) (*BasicMessage, error) {
	var found *BasicMessage

	err := r.waiter.Wait(ctx, "basic message on "+connectionID, func(ctx context.Context) (poll.Status, string, error) {
		received, err := r.listBasicMessages(ctx, connectionID, "received")
		if err != nil {
			return poll.Pending, "", err
		}

		for _, m := range received {
			if !receivedSince(m, after) {
				continue
			}

			content := strings.ToLower(m.Content)
			for _, c := range contents {
				if content == c {
					found = m
					return poll.Success, m.State, nil
				}
			}
		}

		return poll.Pending, "", nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

var messageTimeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999Z07:00", "2006-01-02 15:04:05.999999Z"}

// Created reads the agent's created_at stamp. A stamp it cannot read is the zero time.
func (m *BasicMessage) Created() time.Time {
	for _, layout := range messageTimeLayouts {
		if t, err := time.Parse(layout, m.CreatedAt); err == nil {
			return t
		}
	}

	return time.Time{}
}

func receivedSince(m *BasicMessage, after time.Time) bool {
	if after.IsZero() {
		return true
	}

	created := m.Created()
	if created.IsZero() {
		return false
	}

	return !created.Before(after)
}
