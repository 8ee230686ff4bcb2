package mongo

import (
	"context"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store"
)

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	t := now()
	user.CreatedAt, user.UpdatedAt = t, t
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	// $addToSet and $pull need arrays, never null.
	if user.Friends == nil {
		user.Friends = []string{}
	}
	if user.SavedPosts == nil {
		user.SavedPosts = []string{}
	}
	_, err := s.users.InsertOne(ctx, user)
	return translate(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.findUser(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (model.User, error) {
	var u model.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return model.User{}, translate(err)
	}
	return normalizeUser(u), nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var found []model.User
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}
	byID := make(map[string]model.User, len(found))
	for _, u := range found {
		byID[u.ID] = normalizeUser(u)
	}
	users := make([]model.User, 0, len(found))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (model.User, error) {
	set := bson.M{"updatedAt": now()}
	put := func(field string, v *string) {
		if v != nil {
			set[field] = *v
		}
	}
	put("firstName", upd.FirstName)
	put("lastName", upd.LastName)
	put("location", upd.Location)
	put("occupation", upd.Occupation)
	put("picturePath", upd.PicturePath)

	var u model.User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, after()).Decode(&u)
	if err != nil {
		return model.User{}, translate(err)
	}
	return normalizeUser(u), nil
}

// ToggleFriend updates the two user documents one after the other. A
// concurrent opposite toggle can leave the relation one-sided.
func (s *Store) ToggleFriend(ctx context.Context, userID, friendID string) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if _, err := s.GetUser(ctx, friendID); err != nil {
		return false, err
	}

	op := "$addToSet"
	added := true
	if contains(user.Friends, friendID) {
		op = "$pull"
		added = false
	}
	t := now()
	if _, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{op: bson.M{"friends": friendID}, "$set": bson.M{"updatedAt": t}}); err != nil {
		return false, err
	}
	if _, err := s.users.UpdateOne(ctx, bson.M{"_id": friendID}, bson.M{op: bson.M{"friends": userID}, "$set": bson.M{"updatedAt": t}}); err != nil {
		return false, err
	}
	return added, nil
}

func (s *Store) ToggleSavedPost(ctx context.Context, userID, postID string) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	op := "$addToSet"
	saved := true
	if contains(user.SavedPosts, postID) {
		op = "$pull"
		saved = false
	}
	_, err = s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{op: bson.M{"savedPosts": postID}, "$set": bson.M{"updatedAt": now()}})
	if err != nil {
		return false, err
	}
	return saved, nil
}

func (s *Store) RemoveSavedPost(ctx context.Context, postID string) (int64, error) {
	res, err := s.users.UpdateMany(ctx, bson.M{"savedPosts": postID}, bson.M{"$pull": bson.M{"savedPosts": postID}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "firstName", Value: 1}, {Key: "lastName", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := s.users.Find(ctx, searchFilter(query), opts)
	if err != nil {
		return nil, err
	}
	users := []model.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = normalizeUser(users[i])
	}
	return users, nil
}

// searchFilter matches query case-insensitively inside the first name, the
// last name or "first last".
func searchFilter(query string) bson.M {
	pattern := regexp.QuoteMeta(strings.TrimSpace(query))
	return bson.M{"$or": bson.A{
		bson.M{"firstName": bson.M{"$regex": pattern, "$options": "i"}},
		bson.M{"lastName": bson.M{"$regex": pattern, "$options": "i"}},
		bson.M{"$expr": bson.M{"$regexMatch": bson.M{
			"input":   bson.M{"$concat": bson.A{"$firstName", " ", "$lastName"}},
			"regex":   pattern,
			"options": "i",
		}}},
	}}
}

func normalizeUser(u model.User) model.User {
	if u.Friends == nil {
		u.Friends = []string{}
	}
	if u.SavedPosts == nil {
		u.SavedPosts = []string{}
	}
	return u
}

var _ store.UserStore = (*Store)(nil)
