package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/questly/questly-api/internal/apperr"
	"github.com/questly/questly-api/internal/auth"
	"github.com/questly/questly-api/internal/media"
	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store"
)

const minPasswordLength = 6

var errBadCredentials = apperr.Unauthorizedf("Invalid email or password")

// AccountService registers users and exchanges credentials for tokens.
type AccountService struct {
	store  store.Store
	images *Images
	tokens *auth.Service
	log    *logrus.Logger
}

func NewAccountService(st store.Store, images *Images, tokens *auth.Service, log *logrus.Logger) *AccountService {
	return &AccountService{store: st, images: images, tokens: tokens, log: log}
}

type RegisterInput struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Location   string `json:"location"`
	Occupation string `json:"occupation"`
	// PicturePath is accepted for form compatibility and ignored. Only an
	// uploaded file sets the picture, so a user never owns a file they did
	// not upload.
	PicturePath string        `json:"picturePath"`
	Picture     *media.Upload `json:"-"`
	Base        string        `json:"-"`
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	base := s.images.Base(in.Base)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case in.FirstName == "" || len(in.FirstName) > maxNameLength:
		return model.User{}, apperr.Validationf("firstName must be 1-%d characters", maxNameLength)
	case len(in.LastName) > maxNameLength:
		return model.User{}, apperr.Validationf("lastName must be at most %d characters", maxNameLength)
	case !validEmail(in.Email):
		return model.User{}, apperr.Validationf("a valid email is required")
	case len(in.Password) < minPasswordLength:
		return model.User{}, apperr.Validationf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, err
	}
	var picture string
	if in.Picture != nil {
		if picture, err = s.images.save(ctx, in.Picture, base); err != nil {
			return model.User{}, err
		}
	}
	user := model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Location:     strings.TrimSpace(in.Location),
		Occupation:   strings.TrimSpace(in.Occupation),
		PicturePath:  picture,
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		if in.Picture != nil {
			s.images.remove(ctx, s.log, picture)
		}
		if errors.Is(err, store.ErrDuplicate) {
			return model.User{}, apperr.Conflictf("User with this email already exists")
		}
		return model.User{}, err
	}
	return s.images.user(user, base), nil
}

type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      model.User `json:"user"`
}

func (s *AccountService) Login(ctx context.Context, email, password, base string) (LoginResult, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return LoginResult{}, errBadCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return LoginResult{}, errBadCredentials
	}
	token, expires, err := s.tokens.Issue(user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Token:     token,
		ExpiresAt: expires,
		User:      s.images.user(user, s.images.Base(base)),
	}, nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
