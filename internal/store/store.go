package store

import (
	"context"
	"errors"

	"github.com/questly/questly-api/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// PostListOpts selects one page of posts, newest first.
type PostListOpts struct {
	AuthorID string
	Offset   int
	Limit    int
}

type Store interface {
	UserStore
	PostStore
	ChallengeStore
	UserChallengeStore
	Ping(ctx context.Context) error
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	// GetUsers resolves profile fields in the order of ids, skipping unknown
	// ids. Friends and SavedPosts are not loaded.
	GetUsers(ctx context.Context, ids []string) ([]model.User, error)
	UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (model.User, error)
	// ToggleFriend adds or removes the relation on both users and reports
	// whether the two are friends afterwards.
	ToggleFriend(ctx context.Context, userID, friendID string) (bool, error)
	// ToggleSavedPost reports whether postID is saved afterwards.
	ToggleSavedPost(ctx context.Context, userID, postID string) (bool, error)
	// RemoveSavedPost pulls postID from every user's saved list.
	RemoveSavedPost(ctx context.Context, postID string) (int64, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error)
}

type PostStore interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id string) (model.Post, error)
	// ListPosts returns the requested page and the total count matching the
	// author filter.
	ListPosts(ctx context.Context, opts PostListOpts) ([]model.Post, int, error)
	ToggleLike(ctx context.Context, postID, userID string) (model.Post, error)
	AddComment(ctx context.Context, postID string, comment model.Comment) (model.Post, error)
	DeleteComment(ctx context.Context, postID, commentID string) (model.Post, error)
	DeletePost(ctx context.Context, id string) error
	// ReplacePostImages overwrites the image references of a post and its
	// comments, keyed by comment id.
	ReplacePostImages(ctx context.Context, post model.Post) error
	// EachPost calls fn for every post in creation order. Iteration stops at
	// the first error fn returns.
	EachPost(ctx context.Context, fn func(model.Post) error) error
}

type ChallengeStore interface {
	CreateChallenge(ctx context.Context, c *model.Challenge) error
	GetChallenge(ctx context.Context, id string) (model.Challenge, error)
	UpdateChallenge(ctx context.Context, c *model.Challenge) error
	// DeleteChallenge removes the challenge and all progress rows for it.
	DeleteChallenge(ctx context.Context, id string) error
	ListChallengesByCreator(ctx context.Context, creator string) ([]model.Challenge, error)
	ListPublicChallenges(ctx context.Context, limit int) ([]model.Challenge, error)
}

type UserChallengeStore interface {
	GetUserChallenge(ctx context.Context, userID, challengeID string) (model.UserChallenge, error)
	// SaveUserChallenge inserts or replaces the row for (UserID, ChallengeID).
	SaveUserChallenge(ctx context.Context, uc *model.UserChallenge) error
	ListUserChallenges(ctx context.Context, userID string) ([]model.UserChallenge, error)
}
