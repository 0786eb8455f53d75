/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notifier

const (
	QueueName    = "notification"
	SessionTopic = "session"
)

type Notification struct {
	Topic     string      `json:"topic"`
	Event     string      `json:"event"`
	EventData interface{} `json:"message"`
}

type EventMessage struct {
	Event     string      `json:"event"`
	Timestamp int64       `json:"timestamp"`
	EventData interface{} `json:"message"`
}
