/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rabbitmq

import (
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewPublisher(addr, queue string) (*Publisher, error) {
	conn, ch, err := open(addr, queue)
	if err != nil {
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func (r *Publisher) Publish(body []byte, contentType string) error {
	err := r.ch.Publish(
		"",      // exchange
		r.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType: contentType,
			Body:        body,
		})

	return errors.Wrapf(err, "publish to %s failed", r.queue)
}

func (r *Publisher) Close() error {
	return r.conn.Close()
}
