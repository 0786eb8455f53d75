/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rabbitmq

import (
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

type Listener struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewListener(addr, queue string) (*Listener, error) {
	conn, ch, err := open(addr, queue)
	if err != nil {
		return nil, err
	}

	return &Listener{conn: conn, ch: ch, queue: queue}, nil
}

func (r *Listener) Listen() (<-chan amqp.Delivery, error) {
	msgs, err := r.ch.Consume(
		r.queue,
		"",    // consumer
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to consume %s", r.queue)
	}

	return msgs, nil
}

func (r *Listener) Close() error {
	return r.conn.Close()
}
