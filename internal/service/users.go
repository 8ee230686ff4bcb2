package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/questly/questly-api/internal/apperr"
	"github.com/questly/questly-api/internal/media"
	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store"
)

const (
	maxSearchResults = 50
	maxNameLength    = 50
)

type UserService struct {
	store  store.Store
	images *Images
	log    *logrus.Logger
}

func NewUserService(st store.Store, images *Images, log *logrus.Logger) *UserService {
	return &UserService{store: st, images: images, log: log}
}

func (s *UserService) Get(ctx context.Context, id, base string) (model.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, notFound(err, "User")
	}
	return s.images.user(user, s.images.Base(base)), nil
}

// Friends resolves the user's friend ids into summaries. Ids that no longer
// resolve are skipped.
func (s *UserService) Friends(ctx context.Context, id, base string) ([]model.UserSummary, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "User")
	}
	return s.friendSummaries(ctx, user.Friends, base)
}

func (s *UserService) friendSummaries(ctx context.Context, ids []string, base string) ([]model.UserSummary, error) {
	friends, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.images.summaries(friends, s.images.Base(base)), nil
}

// ToggleFriend befriends or unfriends two users symmetrically and returns
// userID's friends afterwards.
func (s *UserService) ToggleFriend(ctx context.Context, userID, friendID, base string) ([]model.UserSummary, error) {
	if userID == friendID {
		return nil, apperr.Validationf("You cannot add yourself as a friend")
	}
	if _, err := s.store.ToggleFriend(ctx, userID, friendID); err != nil {
		return nil, notFound(err, "User")
	}
	return s.Friends(ctx, userID, base)
}

type UpdateUserInput struct {
	Fields  model.UserUpdate
	Picture *media.Upload
	Base    string
}

// Update applies a partial profile update. A new picture replaces the old
// one, whose file is removed when this deployment stored it.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (model.User, error) {
	base := s.images.Base(in.Base)
	current, err := s.store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, notFound(err, "User")
	}
	fields, err := cleanUpdate(in.Fields)
	if err != nil {
		return model.User{}, err
	}
	fields.PicturePath = nil
	if in.Picture != nil {
		ref, err := s.images.save(ctx, in.Picture, base)
		if err != nil {
			return model.User{}, err
		}
		fields.PicturePath = &ref
	}
	if fields.Empty() {
		return s.images.user(current, base), nil
	}
	updated, err := s.store.UpdateUser(ctx, id, fields)
	if err != nil {
		if fields.PicturePath != nil {
			s.images.remove(ctx, s.log, *fields.PicturePath)
		}
		return model.User{}, notFound(err, "User")
	}
	if fields.PicturePath != nil && current.PicturePath != "" && current.PicturePath != *fields.PicturePath {
		s.images.remove(ctx, s.log, current.PicturePath)
	}
	return s.images.user(updated, base), nil
}

func cleanUpdate(in model.UserUpdate) (model.UserUpdate, error) {
	out := in
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	out.FirstName = trim(in.FirstName)
	out.LastName = trim(in.LastName)
	out.Location = trim(in.Location)
	out.Occupation = trim(in.Occupation)
	if out.FirstName != nil && (*out.FirstName == "" || len(*out.FirstName) > maxNameLength) {
		return model.UserUpdate{}, apperr.Validationf("firstName must be 1-%d characters", maxNameLength)
	}
	if out.LastName != nil && len(*out.LastName) > maxNameLength {
		return model.UserUpdate{}, apperr.Validationf("lastName must be at most %d characters", maxNameLength)
	}
	return out, nil
}

// Search matches query against first name, last name and "first last",
// ignoring case. A blank query matches nothing.
func (s *UserService) Search(ctx context.Context, query, base string) ([]model.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.UserSummary{}, nil
	}
	users, err := s.store.SearchUsers(ctx, query, maxSearchResults)
	if err != nil {
		return nil, err
	}
	return s.images.summaries(users, s.images.Base(base)), nil
}
