/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package amqp carries wallet events and session notifications over a message broker.
package amqp

import (
	"github.com/streadway/amqp"
)

// Listener consumes deliveries from one queue.
//go:generate mockery -name=Listener
type Listener interface {
	Listen() (<-chan amqp.Delivery, error)
	Close() error
}
