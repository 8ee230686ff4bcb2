package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/questly/questly-api/internal/apperr"
	"github.com/questly/questly-api/internal/media"
	"github.com/questly/questly-api/internal/metrics"
	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store"
)

const maxCommentLength = 2000

type PostService struct {
	store  store.Store
	images *Images
	log    *logrus.Logger
}

func NewPostService(st store.Store, images *Images, log *logrus.Logger) *PostService {
	return &PostService{store: st, images: images, log: log}
}

type CreatePostInput struct {
	AuthorID    string
	Description string
	Image       *media.Upload
	// Base is the asset URL prefix for the current request.
	Base string
}

// Create publishes a post with a snapshot of the author's profile.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (model.Post, error) {
	base := s.images.Base(in.Base)
	author, err := s.store.GetUser(ctx, in.AuthorID)
	if err != nil {
		return model.Post{}, notFound(err, "User")
	}
	picture, err := s.images.save(ctx, in.Image, base)
	if err != nil {
		return model.Post{}, err
	}
	post := model.Post{
		UserID:          author.ID,
		FirstName:       author.FirstName,
		LastName:        author.LastName,
		Location:        author.Location,
		Description:     strings.TrimSpace(in.Description),
		UserPicturePath: s.images.persisted(base, author.PicturePath),
		PicturePath:     picture,
	}
	if err := s.store.CreatePost(ctx, &post); err != nil {
		s.images.remove(ctx, s.log, picture)
		return model.Post{}, err
	}
	return s.images.post(post, base), nil
}

// Feed returns one page of all posts, newest first.
func (s *PostService) Feed(ctx context.Context, page, size int, base string) (model.PostPage, error) {
	return s.list(ctx, "", Paginate(page, size), base)
}

// UserPosts is Feed restricted to one author.
func (s *PostService) UserPosts(ctx context.Context, authorID string, page, size int, base string) (model.PostPage, error) {
	return s.list(ctx, authorID, Paginate(page, size), base)
}

func (s *PostService) list(ctx context.Context, authorID string, p Page, base string) (model.PostPage, error) {
	posts, total, err := s.store.ListPosts(ctx, store.PostListOpts{
		AuthorID: authorID,
		Offset:   p.Offset(),
		Limit:    p.Size,
	})
	if err != nil {
		return model.PostPage{}, err
	}
	return model.PostPage{
		Posts:       s.images.posts(posts, s.images.Base(base)),
		CurrentPage: p.Number,
		TotalPages:  p.TotalPages(total),
		TotalPosts:  total,
	}, nil
}

func (s *PostService) Get(ctx context.Context, id, base string) (model.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return model.Post{}, notFound(err, "Post")
	}
	return s.images.post(post, s.images.Base(base)), nil
}

// ToggleLike adds userID to the post's likes, or removes it when present.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID, base string) (model.Post, error) {
	post, err := s.store.ToggleLike(ctx, postID, userID)
	if err != nil {
		return model.Post{}, notFound(err, "Post")
	}
	return s.images.post(post, s.images.Base(base)), nil
}

func (s *PostService) AddComment(ctx context.Context, postID, userID, text, base string) (model.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Post{}, apperr.Validationf("Comment text is required")
	}
	if len(text) > maxCommentLength {
		return model.Post{}, apperr.Validationf("Comment must be at most %d characters", maxCommentLength)
	}
	base = s.images.Base(base)
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return model.Post{}, notFound(err, "User")
	}
	post, err := s.store.AddComment(ctx, postID, model.Comment{
		UserID:          user.ID,
		UserFirstName:   user.FirstName,
		UserLastName:    user.LastName,
		UserPicturePath: s.images.persisted(base, user.PicturePath),
		Text:            text,
	})
	if err != nil {
		return model.Post{}, notFound(err, "Post")
	}
	return s.images.post(post, base), nil
}

// DeleteComment lets the comment's author or the post's author remove it.
func (s *PostService) DeleteComment(ctx context.Context, postID, commentID, requester, base string) (model.Post, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return model.Post{}, notFound(err, "Post")
	}
	comment, ok := post.Comment(commentID)
	if !ok {
		return model.Post{}, apperr.NotFoundf("Comment not found")
	}
	if comment.UserID != requester && post.UserID != requester {
		return model.Post{}, apperr.Forbiddenf("Not authorized to delete this comment")
	}
	updated, err := s.store.DeleteComment(ctx, postID, commentID)
	if err != nil {
		return model.Post{}, notFound(err, "Comment")
	}
	return s.images.post(updated, s.images.Base(base)), nil
}

// Delete removes a post owned by requester and then drops it from every
// saved list. A failed cleanup is logged, not returned.
func (s *PostService) Delete(ctx context.Context, postID, requester string) error {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return notFound(err, "Post")
	}
	if post.UserID != requester {
		return apperr.Forbiddenf("Not authorized to delete this post")
	}
	if err := s.store.DeletePost(ctx, postID); err != nil {
		return notFound(err, "Post")
	}
	n, err := s.store.RemoveSavedPost(ctx, postID)
	if err != nil {
		s.log.WithError(err).WithField("post_id", postID).Warn("remove deleted post from saved lists")
	} else if n > 0 {
		s.log.WithFields(logrus.Fields{"post_id": postID, "users": n}).Debug("removed deleted post from saved lists")
	}
	s.images.remove(ctx, s.log, post.PicturePath)
	return nil
}

// ToggleSaved bookmarks or un-bookmarks a post and returns the saved list.
func (s *PostService) ToggleSaved(ctx context.Context, userID, postID string) ([]string, error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, notFound(err, "Post")
	}
	if _, err := s.store.ToggleSavedPost(ctx, userID, postID); err != nil {
		return nil, notFound(err, "User")
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User")
	}
	return user.SavedPosts, nil
}

type RepairResult struct {
	Scanned int `json:"scanned"`
	Fixed   int `json:"fixedCount"`
}

// RepairImageURLs rewrites every relative image reference on posts and
// their comments to an absolute URL under base. Running it twice changes
// nothing the second time.
func (s *PostService) RepairImageURLs(ctx context.Context, base string) (RepairResult, error) {
	base = s.images.Base(base)
	var res RepairResult
	err := s.store.EachPost(ctx, func(post model.Post) error {
		res.Scanned++
		fixed := s.images.post(post, base)
		if !imagesChanged(post, fixed) {
			return nil
		}
		if err := s.store.ReplacePostImages(ctx, fixed); err != nil {
			return notFound(err, "Post")
		}
		res.Fixed++
		return nil
	})
	if err != nil {
		return res, err
	}
	metrics.RecordImagesRepaired(res.Fixed)
	s.log.WithFields(logrus.Fields{"scanned": res.Scanned, "fixed": res.Fixed}).Info("image urls repaired")
	return res, nil
}

func imagesChanged(before, after model.Post) bool {
	if before.PicturePath != after.PicturePath || before.UserPicturePath != after.UserPicturePath {
		return true
	}
	for i := range before.Comments {
		if before.Comments[i].UserPicturePath != after.Comments[i].UserPicturePath {
			return true
		}
	}
	return false
}
