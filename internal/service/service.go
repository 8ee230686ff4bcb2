// Package service holds the domain operations behind the HTTP API. Services
// work on store interfaces and return apperr errors.
package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/questly/questly-api/internal/apperr"
	"github.com/questly/questly-api/internal/auth"
	"github.com/questly/questly-api/internal/media"
	"github.com/questly/questly-api/internal/metrics"
	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store"
)

// Services bundles every service built over one store.
type Services struct {
	Posts      *PostService
	Users      *UserService
	Accounts   *AccountService
	Challenges *ChallengeService
}

func New(st store.Store, images *Images, tokens *auth.Service, log *logrus.Logger) *Services {
	return &Services{
		Posts:      NewPostService(st, images, log),
		Users:      NewUserService(st, images, log),
		Accounts:   NewAccountService(st, images, tokens, log),
		Challenges: NewChallengeService(st),
	}
}

// URLMode selects how image references are persisted.
type URLMode string

const (
	// AbsoluteURLs stores full URLs built from the request at write time.
	AbsoluteURLs URLMode = "absolute"
	// RelativeURLs stores bare file names and resolves them when read.
	RelativeURLs URLMode = "relative"
)

// Images applies the deployment's image URL policy. Reads always resolve
// references, so both modes present the same JSON.
type Images struct {
	Store     media.Store
	Mode      URLMode
	PublicURL string
}

// Base returns the URL prefix assets are served under. requestBase is
// derived from the incoming request and loses to a configured PublicURL.
func (im *Images) Base(requestBase string) string {
	if im.PublicURL != "" {
		return strings.TrimRight(im.PublicURL, "/") + media.AssetsPrefix
	}
	return requestBase
}

// persisted is the form of ref written to the store.
func (im *Images) persisted(base, ref string) string {
	if im.Mode == RelativeURLs {
		return ref
	}
	return media.Resolve(base, ref)
}

func (im *Images) save(ctx context.Context, upload *media.Upload, base string) (string, error) {
	if upload == nil {
		return "", nil
	}
	if im.Store == nil {
		return "", apperr.Validationf("image uploads are disabled")
	}
	ref, err := media.Save(ctx, im.Store, *upload)
	metrics.RecordUpload(im.Store.Backend(), err)
	if err != nil {
		return "", apperr.Wrap(err, apperr.Internal, "save image")
	}
	return im.persisted(base, ref), nil
}

func (im *Images) remove(ctx context.Context, log *logrus.Logger, ref string) {
	if ref == "" || im.Store == nil {
		return
	}
	if err := im.Store.Remove(ctx, ref); err != nil {
		log.WithError(err).WithField("ref", ref).Warn("remove image")
	}
}

func (im *Images) post(p model.Post, base string) model.Post {
	p.PicturePath = media.Resolve(base, p.PicturePath)
	p.UserPicturePath = media.Resolve(base, p.UserPicturePath)
	if len(p.Comments) > 0 {
		comments := make([]model.Comment, len(p.Comments))
		for i, c := range p.Comments {
			c.UserPicturePath = media.Resolve(base, c.UserPicturePath)
			comments[i] = c
		}
		p.Comments = comments
	}
	return p
}

func (im *Images) posts(posts []model.Post, base string) []model.Post {
	for i := range posts {
		posts[i] = im.post(posts[i], base)
	}
	return posts
}

func (im *Images) user(u model.User, base string) model.User {
	u.PicturePath = media.Resolve(base, u.PicturePath)
	return u
}

func (im *Images) summaries(users []model.User, base string) []model.UserSummary {
	out := make([]model.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, im.user(u, base).Summary())
	}
	return out
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// maxPageNumber keeps (Number-1)*Size from overflowing.
	maxPageNumber = math.MaxInt / MaxPageSize
)

// Page is a normalized pagination request.
type Page struct {
	Number int
	Size   int
}

// Paginate clamps page to [1, maxPageNumber] and size to [1, MaxPageSize].
// Zero values select the defaults.
func Paginate(page, size int) Page {
	if page < 1 {
		page = 1
	}
	if page > maxPageNumber {
		page = maxPageNumber
	}
	if size == 0 {
		size = DefaultPageSize
	}
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: page, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages is ceil(total/size).
func (p Page) TotalPages(total int) int {
	return (total + p.Size - 1) / p.Size
}

// notFound turns store.ErrNotFound into an apperr not-found error naming
// what was missing.
func notFound(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFoundf("%s not found", what)
	}
	return err
}
