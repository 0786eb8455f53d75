/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package context

import (
	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/amqp"
	"github.com/scoir/canis-exchange/pkg/amqp/rabbitmq"
	"github.com/scoir/canis-exchange/pkg/datastore"
	"github.com/scoir/canis-exchange/pkg/notifier"
	"github.com/scoir/canis-exchange/pkg/session"
	"github.com/scoir/canis-exchange/pkg/tunnel"
)

const amqpKey = "amqp.host"

// Tunnel is the document server that backs redirect invitations.
func (r *Provider) Tunnel() (*tunnel.Server, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.tunnel != nil {
		return r.tunnel, nil
	}

	tc, err := r.conf.Tunnel()
	if err != nil {
		return nil, err
	}

	d := tunnel.NewDiscoverer(tc.APIURL, tc.PublicURL)
	r.tunnel = tunnel.NewServer(tc.ListenAddress(), d, tunnel.WithDir(tc.Dir), tunnel.WithLogger(r.log))
	return r.tunnel, nil
}

func (r *Provider) datastoreEnabled() bool {
	dc, err := r.conf.DataStore()
	return err == nil && dc.Enabled()
}

// Store opens the configured session store.
func (r *Provider) Store() (datastore.Store, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.getStore()
}

func (r *Provider) getStore() (datastore.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	dc, err := r.conf.DataStore()
	if err != nil {
		return nil, err
	}

	dp, err := dc.StorageProvider()
	if err != nil {
		return nil, err
	}

	store, err := dp.OpenStore(dc.StoreName())
	if err != nil {
		_ = dp.Close()
		return nil, errors.Wrapf(err, "unable to open store %s", dc.StoreName())
	}

	r.dp, r.store = dp, store
	return r.store, nil
}

// GetWebhooks is the datastore when one is configured and the static webhooks section otherwise.
func (r *Provider) GetWebhooks() datastore.WebhookRegistry {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.datastoreEnabled() {
		store, err := r.getStore()
		if err == nil {
			return store
		}
		r.log.Error().Err(err).Msg("falling back to configured webhooks")
	}

	hooks, err := r.conf.Webhooks()
	if err != nil {
		r.log.Error().Err(err).Msg("unable to load webhooks")
	}

	return datastore.StaticWebhooks(hooks)
}

func (r *Provider) amqpConfigured() bool {
	return r.conf.GetString(amqpKey) != ""
}

func (r *Provider) listener(queue string) (amqp.Listener, error) {
	if !r.amqpConfigured() {
		return nil, errors.New("amqp is not configured")
	}

	l, err := rabbitmq.NewListener(r.conf.AMQPAddress(), queue)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to listen on %s", queue)
	}

	r.closers = append(r.closers, l)
	return l, nil
}

func (r *Provider) GetAMQPListener(queue string) (amqp.Listener, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.listener(queue)
}

func (r *Provider) GetAMQPPublisher(queue string) (amqp.Publisher, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if !r.amqpConfigured() {
		return nil, errors.New("amqp is not configured")
	}

	p, err := rabbitmq.NewPublisher(r.conf.AMQPAddress(), queue)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to publish to %s", queue)
	}

	r.closers = append(r.closers, p)
	return p, nil
}

// Reporter logs every session, journals it when a datastore is configured and announces it
// on the notification queue when a broker is.
func (r *Provider) Reporter() (session.Reporter, error) {
	reps := session.Reporters{&session.LogReporter{Logger: r.log}}

	if r.datastoreEnabled() {
		store, err := r.Store()
		if err != nil {
			return nil, err
		}
		reps = append(reps, &datastore.Journal{Store: store})
	}

	if r.amqpConfigured() {
		pub, err := r.GetAMQPPublisher(notifier.QueueName)
		if err != nil {
			return nil, err
		}
		reps = append(reps, notifier.NewReporter(pub))
	}

	return reps, nil
}
