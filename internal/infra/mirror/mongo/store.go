// Package mongo mirrors analyses into MongoDB: one document per owner in
// "users" and one per analysis in "analyses", keyed "<owner>/<report>".
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/bryanwahyu/vc-analyst/internal/domain/mirror"
)

const (
	profilesCollection = "users"
	reportsCollection  = "analyses"
)

type Store struct {
	client   *mongo.Client
	profiles *mongo.Collection
	reports  *mongo.Collection
}

// Open connects and pings. Any failure wraps mirror.ErrUnavailable so the
// caller can run without a mirror.
func Open(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: no uri configured", mirror.ErrUnavailable)
	}
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mirror.ErrUnavailable, err)
	}

	s := New(client, database)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:   client,
		profiles: db.Collection(profilesCollection),
		reports:  db.Collection(reportsCollection),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", mirror.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// UpsertProfile only $sets the fields that carry a value.
func (s *Store) UpsertProfile(ctx context.Context, p mirror.Profile) error {
	set := bson.D{{Key: "last_synced_at", Value: p.LastSyncedAt}}
	if p.Email != "" {
		set = append(set, bson.E{Key: "email", Value: p.Email})
	}
	if p.DisplayName != "" {
		set = append(set, bson.E{Key: "display_name", Value: p.DisplayName})
	}
	_, err := s.profiles.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: p.OwnerID}},
		bson.D{{Key: "$set", Value: set}},
		options.Update().SetUpsert(true),
	)
	return classify(err)
}

func (s *Store) PutReport(ctx context.Context, r mirror.Report) error {
	_, err := s.reports.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: r.Key()}},
		r,
		options.Replace().SetUpsert(true),
	)
	return classify(err)
}

// classify separates an unreachable server from a rejected write. A server
// that went away after startup surfaces as a server selection timeout.
func classify(err error) error {
	var selErr topology.ServerSelectionError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, topology.ErrServerSelectionTimeout),
		errors.As(err, &selErr),
		mongo.IsNetworkError(err),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", mirror.ErrUnavailable, err)
	default:
		return err
	}
}
