/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mongodb

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/scoir/canis-exchange/pkg/datastore"
	"github.com/scoir/canis-exchange/pkg/session"
)

const connectTimeout = 10 * time.Second

type Config struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// Provider represents a Mongo DB implementation of the datastore.Provider interface
type Provider struct {
	client *mongo.Client
	db     *mongo.Database
	stores map[string]*mongoDBStore
	sync.RWMutex
}

type mongoDBStore struct {
	sessions *mongo.Collection
	webhooks *mongo.Collection
}

// NewProvider instantiates Provider
func NewProvider(config *Config) (*Provider, error) {
	if config == nil {
		return nil, errors.New("config missing")
	}

	tM := reflect.TypeOf(bson.M{})
	reg := bson.NewRegistryBuilder().RegisterTypeMapEntry(bsontype.EmbeddedDocument, tM).Build()
	clientOpts := options.Client().SetRegistry(reg).ApplyURI(config.URL)

	mongoClient, err := mongo.NewClient(clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "error creating mongo client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	err = mongoClient.Connect(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to mongo")
	}

	p := &Provider{
		client: mongoClient,
		db:     mongoClient.Database(config.Database),
		stores: map[string]*mongoDBStore{},
	}

	return p, nil
}

// OpenStore opens the session and webhook collections under the name space.
func (p *Provider) OpenStore(name string) (datastore.Store, error) {
	p.Lock()
	defer p.Unlock()

	if name == "" {
		return nil, errors.New("store name is required")
	}

	if store, ok := p.stores[name]; ok {
		return store, nil
	}

	store := &mongoDBStore{
		sessions: p.db.Collection(name + "." + datastore.SessionC),
		webhooks: p.db.Collection(name + "." + datastore.WebhookC),
	}

	p.stores[name] = store

	return store, nil
}

// Close disconnects the provider and forgets every open store.
func (p *Provider) Close() error {
	p.Lock()
	defer p.Unlock()

	p.stores = make(map[string]*mongoDBStore)

	return p.client.Disconnect(context.Background())
}

func (r *mongoDBStore) InsertSession(ctx context.Context, s *session.Session) error {
	_, err := r.sessions.ReplaceOne(ctx, bson.M{"_id": s.ID}, s, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(err, "unable to insert session")
	}

	return nil
}

func (r *mongoDBStore) GetSession(ctx context.Context, id string) (*session.Session, error) {
	out := &session.Session{}

	err := r.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load session")
	}

	return out, nil
}

func sessionFilter(c *datastore.SessionCriteria) bson.M {
	bc := bson.M{}
	if c == nil {
		return bc
	}

	if c.Scenario != "" {
		bc["scenario"] = c.Scenario
	}
	if c.State != "" {
		bc["state"] = c.State
	}
	if c.CorrelationID != "" {
		bc["correlation_id"] = c.CorrelationID
	}

	return bc
}

func (r *mongoDBStore) ListSessions(ctx context.Context, c *datastore.SessionCriteria) (*datastore.SessionList, error) {
	bc := sessionFilter(c)

	start := 0
	if c != nil {
		start = c.Start
	}

	opts := options.Find().
		SetSkip(int64(start)).
		SetLimit(int64(c.Limit())).
		SetSort(bson.D{{Key: "started", Value: -1}})

	count, err := r.sessions.CountDocuments(ctx, bc)
	if err != nil {
		return nil, errors.Wrap(err, "unable to count sessions")
	}

	results, err := r.sessions.Find(ctx, bc, opts)
	if err != nil {
		return nil, errors.Wrap(err, "error trying to find sessions")
	}

	out := datastore.SessionList{
		Count:    int(count),
		Sessions: []*session.Session{},
	}

	err = results.All(ctx, &out.Sessions)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode sessions")
	}

	return &out, nil
}

func (r *mongoDBStore) InsertWebhook(ctx context.Context, hook *datastore.Webhook) error {
	_, err := r.webhooks.UpdateOne(ctx, bson.M{"type": hook.Type, "url": hook.URL}, bson.M{"$set": hook}, options.Update().SetUpsert(true))
	if err != nil {
		return errors.Wrap(err, "unable to insert webhook")
	}

	return nil
}

func (r *mongoDBStore) ListWebhooks(ctx context.Context, topic string) ([]*datastore.Webhook, error) {
	results, err := r.webhooks.Find(ctx, bson.M{"type": topic})
	if err != nil {
		return nil, errors.Wrapf(err, "error trying to find webhooks for %s", topic)
	}

	out := []*datastore.Webhook{}
	err = results.All(ctx, &out)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode webhooks")
	}

	return out, nil
}
