/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notifier

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/amqp"
	"github.com/scoir/canis-exchange/pkg/session"
)

// Reporter queues a session notification for every finished session. The event is
// the session's final state.
type Reporter struct {
	publisher amqp.Publisher
}

var _ session.Reporter = (*Reporter)(nil)

func NewReporter(pub amqp.Publisher) *Reporter {
	return &Reporter{publisher: pub}
}

func (r *Reporter) Report(_ context.Context, s *session.Session) error {
	note := &Notification{
		Topic:     SessionTopic,
		Event:     string(s.State),
		EventData: s,
	}

	body, err := json.Marshal(note)
	if err != nil {
		return errors.Wrapf(err, "unable to marshal notification for session %s", s.ID)
	}

	if err := r.publisher.Publish(body, amqp.ContentTypeJSON); err != nil {
		return errors.Wrapf(err, "unable to publish notification for session %s", s.ID)
	}

	return nil
}
