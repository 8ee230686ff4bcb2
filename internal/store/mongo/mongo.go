// Package mongo implements store.Store on MongoDB. Posts keep likes and
// comments embedded; users keep friend and saved-post ids embedded.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/questly/questly-api/internal/store"
)

const (
	usersCollection          = "users"
	postsCollection          = "posts"
	challengesCollection     = "challenges"
	userChallengesCollection = "user_challenges"
)

type Store struct {
	client         *mongo.Client
	users          *mongo.Collection
	posts          *mongo.Collection
	challenges     *mongo.Collection
	userChallenges *mongo.Collection
}

// Open connects to uri, verifies the connection and ensures indexes.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(database)
	s := &Store{
		client:         client,
		users:          db.Collection(usersCollection),
		posts:          db.Collection(postsCollection),
		challenges:     db.Collection(challengesCollection),
		userChallenges: db.Collection(userChallengesCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "savedPosts", Value: 1}}}},
		{s.posts, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{s.posts, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{s.challenges, mongo.IndexModel{Keys: bson.D{{Key: "creator", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{s.challenges, mongo.IndexModel{Keys: bson.D{{Key: "public", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{s.userChallenges, mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "challengeId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ store.Store = (*Store)(nil)

func newID() string {
	return uuid.NewString()
}

// now is truncated to the millisecond precision BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}

func after() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
