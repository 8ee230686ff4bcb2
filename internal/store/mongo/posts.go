package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store"
)

func (s *Store) CreatePost(ctx context.Context, post *model.Post) error {
	if post.ID == "" {
		post.ID = newID()
	}
	t := now()
	post.CreatedAt, post.UpdatedAt = t, t
	post.Likes = map[string]bool{}
	post.Comments = []model.Comment{}
	_, err := s.posts.InsertOne(ctx, post)
	return translate(err)
}

func (s *Store) GetPost(ctx context.Context, id string) (model.Post, error) {
	var p model.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return model.Post{}, translate(err)
	}
	return normalizePost(p), nil
}

func (s *Store) ListPosts(ctx context.Context, opts store.PostListOpts) ([]model.Post, int, error) {
	filter := bson.M{}
	if opts.AuthorID != "" {
		filter["userId"] = opts.AuthorID
	}
	limit := opts.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	total, err := s.posts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	find := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := s.posts.Find(ctx, filter, find)
	if err != nil {
		return nil, 0, err
	}
	posts := []model.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	for i := range posts {
		posts[i] = normalizePost(posts[i])
	}
	return posts, int(total), nil
}

// ToggleLike reads the like map and flips one key with a single-document
// update.
func (s *Store) ToggleLike(ctx context.Context, postID, userID string) (model.Post, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return model.Post{}, err
	}
	field := "likes." + userID
	update := bson.M{"$set": bson.M{field: true, "updatedAt": now()}}
	if post.LikedBy(userID) {
		update = bson.M{"$unset": bson.M{field: ""}, "$set": bson.M{"updatedAt": now()}}
	}
	var updated model.Post
	if err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": postID}, update, after()).Decode(&updated); err != nil {
		return model.Post{}, translate(err)
	}
	return normalizePost(updated), nil
}

func (s *Store) AddComment(ctx context.Context, postID string, comment model.Comment) (model.Post, error) {
	if comment.ID == "" {
		comment.ID = newID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now()
	}
	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": now()},
	}
	var updated model.Post
	if err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": postID}, update, after()).Decode(&updated); err != nil {
		return model.Post{}, translate(err)
	}
	return normalizePost(updated), nil
}

func (s *Store) DeleteComment(ctx context.Context, postID, commentID string) (model.Post, error) {
	filter := bson.M{"_id": postID, "comments._id": commentID}
	update := bson.M{
		"$pull": bson.M{"comments": bson.M{"_id": commentID}},
		"$set":  bson.M{"updatedAt": now()},
	}
	var updated model.Post
	if err := s.posts.FindOneAndUpdate(ctx, filter, update, after()).Decode(&updated); err != nil {
		return model.Post{}, translate(err)
	}
	return normalizePost(updated), nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ReplacePostImages(ctx context.Context, post model.Post) error {
	set := bson.M{
		"picturePath":     post.PicturePath,
		"userPicturePath": post.UserPicturePath,
		"updatedAt":       now(),
	}
	var filters []interface{}
	for i, c := range post.Comments {
		name := fmt.Sprintf("c%d", i)
		set["comments.$["+name+"].userPicturePath"] = c.UserPicturePath
		filters = append(filters, bson.M{name + "._id": c.ID})
	}
	opts := options.Update()
	if len(filters) > 0 {
		opts.SetArrayFilters(options.ArrayFilters{Filters: filters})
	}
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": post.ID}, bson.M{"$set": set}, opts)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) EachPost(ctx context.Context, fn func(model.Post) error) error {
	cur, err := s.posts.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var p model.Post
		if err := cur.Decode(&p); err != nil {
			return err
		}
		if err := fn(normalizePost(p)); err != nil {
			return err
		}
	}
	return cur.Err()
}

func normalizePost(p model.Post) model.Post {
	if p.Likes == nil {
		p.Likes = map[string]bool{}
	}
	if p.Comments == nil {
		p.Comments = []model.Comment{}
	}
	return p
}

var _ store.PostStore = (*Store)(nil)
