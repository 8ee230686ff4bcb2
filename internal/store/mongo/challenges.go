package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store"
)

func (s *Store) CreateChallenge(ctx context.Context, c *model.Challenge) error {
	if c.ID == "" {
		c.ID = newID()
	}
	t := now()
	c.CreatedAt, c.UpdatedAt = t, t
	_, err := s.challenges.InsertOne(ctx, c)
	return translate(err)
}

func (s *Store) GetChallenge(ctx context.Context, id string) (model.Challenge, error) {
	var c model.Challenge
	if err := s.challenges.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return model.Challenge{}, translate(err)
	}
	return c, nil
}

func (s *Store) UpdateChallenge(ctx context.Context, c *model.Challenge) error {
	c.UpdatedAt = now()
	res, err := s.challenges.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteChallenge(ctx context.Context, id string) error {
	res, err := s.challenges.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	_, err = s.userChallenges.DeleteMany(ctx, bson.M{"challengeId": id})
	return err
}

func (s *Store) ListChallengesByCreator(ctx context.Context, creator string) ([]model.Challenge, error) {
	return s.findChallenges(ctx, bson.M{"creator": creator}, 0)
}

func (s *Store) ListPublicChallenges(ctx context.Context, limit int) ([]model.Challenge, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	return s.findChallenges(ctx, bson.M{"public": true}, limit)
}

func (s *Store) findChallenges(ctx context.Context, filter bson.M, limit int) ([]model.Challenge, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.challenges.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	challenges := []model.Challenge{}
	if err := cur.All(ctx, &challenges); err != nil {
		return nil, err
	}
	return challenges, nil
}

func (s *Store) GetUserChallenge(ctx context.Context, userID, challengeID string) (model.UserChallenge, error) {
	var uc model.UserChallenge
	err := s.userChallenges.FindOne(ctx, bson.M{"userId": userID, "challengeId": challengeID}).Decode(&uc)
	if err != nil {
		return model.UserChallenge{}, translate(err)
	}
	return uc, nil
}

func (s *Store) SaveUserChallenge(ctx context.Context, uc *model.UserChallenge) error {
	t := now()
	if uc.ID == "" {
		uc.ID = newID()
	}
	if uc.CreatedAt.IsZero() {
		uc.CreatedAt = t
	}
	uc.UpdatedAt = t
	filter := bson.M{"userId": uc.UserID, "challengeId": uc.ChallengeID}
	update := bson.M{
		"$set": bson.M{
			"progress":    uc.Progress,
			"completed":   uc.Completed,
			"completions": uc.Completions,
			"updatedAt":   t,
		},
		"$setOnInsert": bson.M{"_id": uc.ID, "createdAt": uc.CreatedAt},
	}
	_, err := s.userChallenges.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return translate(err)
}

func (s *Store) ListUserChallenges(ctx context.Context, userID string) ([]model.UserChallenge, error) {
	cur, err := s.userChallenges.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	list := []model.UserChallenge{}
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

var _ store.ChallengeStore = (*Store)(nil)
