/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package datastore keeps the session journal and the webhook registry.
package datastore

import (
	"context"

	"github.com/scoir/canis-exchange/pkg/session"
)

const (
	SessionC = "Session"
	WebhookC = "Webhook"
)

// Provider storage provider interface
type Provider interface {
	// OpenStore opens a store with given name space and returns the handle
	OpenStore(name string) (Store, error)

	// Close closes all stores created under this store provider
	Close() error
}

//go:generate mockery -name=Store
type Store interface {
	InsertSession(ctx context.Context, s *session.Session) error
	GetSession(ctx context.Context, id string) (*session.Session, error)
	ListSessions(ctx context.Context, c *SessionCriteria) (*SessionList, error)

	InsertWebhook(ctx context.Context, hook *Webhook) error
	ListWebhooks(ctx context.Context, topic string) ([]*Webhook, error)
}

// WebhookRegistry lists the hooks registered for a topic. Store and StaticWebhooks both satisfy it.
type WebhookRegistry interface {
	ListWebhooks(ctx context.Context, topic string) ([]*Webhook, error)
}
