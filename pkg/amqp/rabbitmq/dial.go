/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package rabbitmq implements the amqp publisher and listener against RabbitMQ.
package rabbitmq

import (
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/scoir/canis-exchange/pkg/util"
)

const dialRetries = 3

// open dials addr and declares queue, returning the connection and a channel bound to it.
func open(addr, queue string) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	dial := func() error {
		var err error
		conn, err = amqp.Dial(addr)
		return err
	}

	err := backoff.RetryNotify(dial, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), dialRetries), util.Logger)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to connect to RabbitMQ at %s", addr)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "unable to create an AMQP channel")
	}

	_, err = ch.QueueDeclare(
		queue, // name
		false, // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrapf(err, "unable to declare AMQP queue %s", queue)
	}

	return conn, ch, nil
}
