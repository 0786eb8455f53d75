/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package amqp

const ContentTypeJSON = "application/json"

// Publisher sends messages to one queue.
//go:generate mockery -name=Publisher
type Publisher interface {
	Publish(body []byte, contentType string) error
	Close() error
}
