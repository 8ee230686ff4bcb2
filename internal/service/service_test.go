package service

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questly/questly-api/internal/apperr"
	"github.com/questly/questly-api/internal/auth"
	"github.com/questly/questly-api/internal/logging"
	"github.com/questly/questly-api/internal/media"
	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store/sqlite"
)

const testBase = "http://example.test/assets/"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type fixture struct {
	svc    *Services
	store  *sqlite.Store
	images *Images
	dir    string
}

func newFixture(t *testing.T, mode URLMode) *fixture {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	dir := t.TempDir()
	local, err := media.NewLocalStore(dir)
	require.NoError(t, err)

	images := &Images{Store: local, Mode: mode}
	tokens := auth.NewService("test-secret", time.Hour)
	return &fixture{
		svc:    New(st, images, tokens, logging.Discard()),
		store:  st,
		images: images,
		dir:    dir,
	}
}

func (f *fixture) register(t *testing.T, first, last string) model.User {
	t.Helper()
	u, err := f.svc.Accounts.Register(context.Background(), RegisterInput{
		FirstName: first,
		LastName:  last,
		Email:     strings.ToLower(first+"."+last) + "@example.com",
		Password:  "secret123",
		Location:  "Earth",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) post(t *testing.T, author model.User, desc string) model.Post {
	t.Helper()
	p, err := f.svc.Posts.Create(context.Background(), CreatePostInput{AuthorID: author.ID, Description: desc, Base: testBase})
	require.NoError(t, err)
	return p
}

func upload(t *testing.T) *media.Upload {
	t.Helper()
	u, err := media.ReadUpload(bytes.NewReader(pngHeader), "pic.png")
	require.NoError(t, err)
	return &u
}

func kind(err error) apperr.Kind {
	return apperr.KindOf(err)
}

func TestPaginate(t *testing.T) {
	cases := []struct {
		page, size       int
		wantPage, wantSz int
	}{
		{0, 0, 1, 10},
		{-3, 5, 1, 5},
		{2, 1000, 2, 100},
		{4, -1, 4, 1},
	}
	for _, c := range cases {
		p := Paginate(c.page, c.size)
		assert.Equal(t, c.wantPage, p.Number)
		assert.Equal(t, c.wantSz, p.Size)
	}
	assert.Equal(t, 20, Paginate(3, 10).Offset())
	for _, size := range []int{1, 10, MaxPageSize} {
		assert.GreaterOrEqual(t, Paginate(math.MaxInt, size).Offset(), 0)
	}
	assert.Equal(t, 3, Paginate(1, 10).TotalPages(25))
	assert.Equal(t, 0, Paginate(1, 10).TotalPages(0))
}

func TestFeedPagination(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	author := f.register(t, "Ada", "Lovelace")
	for i := 0; i < 25; i++ {
		f.post(t, author, fmt.Sprintf("post %d", i))
	}

	page, err := f.svc.Posts.Feed(ctx, 3, 10, testBase)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 5)
	assert.Equal(t, 3, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 25, page.TotalPosts)

	first, err := f.svc.Posts.Feed(ctx, 0, 0, testBase)
	require.NoError(t, err)
	assert.Equal(t, 1, first.CurrentPage)
	require.Len(t, first.Posts, 10)
	assert.Equal(t, "post 24", first.Posts[0].Description)
	for i := 1; i < len(first.Posts); i++ {
		assert.False(t, first.Posts[i].CreatedAt.After(first.Posts[i-1].CreatedAt))
	}

	all, err := f.svc.Posts.Feed(ctx, 1, 1000, testBase)
	require.NoError(t, err)
	assert.Len(t, all.Posts, 25)
	assert.Equal(t, 1, all.TotalPages)

	beyond, err := f.svc.Posts.Feed(ctx, 9, 10, testBase)
	require.NoError(t, err)
	assert.Empty(t, beyond.Posts)
	assert.Equal(t, 25, beyond.TotalPosts)

	huge, err := f.svc.Posts.Feed(ctx, math.MaxInt64/5, 10, testBase)
	require.NoError(t, err)
	assert.Empty(t, huge.Posts)
	assert.Equal(t, 25, huge.TotalPosts)
}

func TestUserPostsFiltersByAuthor(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	a := f.register(t, "Ada", "Lovelace")
	b := f.register(t, "Alan", "Turing")
	f.post(t, a, "a1")
	f.post(t, b, "b1")
	f.post(t, a, "a2")

	page, err := f.svc.Posts.UserPosts(context.Background(), a.ID, 1, 10, testBase)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPosts)
	for _, p := range page.Posts {
		assert.Equal(t, a.ID, p.UserID)
	}
}

func TestCreatePostSnapshotsAuthor(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	author := f.register(t, "Ada", "Lovelace")

	post, err := f.svc.Posts.Create(ctx, CreatePostInput{
		AuthorID:    author.ID,
		Description: "  hello  ",
		Image:       upload(t),
		Base:        testBase,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", post.FirstName)
	assert.Equal(t, "Lovelace", post.LastName)
	assert.Equal(t, "Earth", post.Location)
	assert.Equal(t, "hello", post.Description)
	assert.Empty(t, post.Likes)
	assert.Empty(t, post.Comments)
	assert.True(t, strings.HasPrefix(post.PicturePath, testBase), post.PicturePath)

	stored, err := f.store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.PicturePath, stored.PicturePath, "absolute mode persists full URLs")

	_, err = os.Stat(filepath.Join(f.dir, strings.TrimPrefix(post.PicturePath, testBase)))
	assert.NoError(t, err)

	_, err = f.svc.Posts.Create(ctx, CreatePostInput{AuthorID: "ghost", Description: "x", Base: testBase})
	assert.Equal(t, apperr.NotFound, kind(err))
}

func TestRelativeModeResolvesOnRead(t *testing.T) {
	f := newFixture(t, RelativeURLs)
	ctx := context.Background()
	author := f.register(t, "Ada", "Lovelace")

	post, err := f.svc.Posts.Create(ctx, CreatePostInput{AuthorID: author.ID, Description: "x", Image: upload(t), Base: testBase})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(post.PicturePath, testBase))

	stored, err := f.store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, media.IsAbsolute(stored.PicturePath), "relative mode persists bare names")

	got, err := f.svc.Posts.Get(ctx, post.ID, "http://other.test/assets/")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.PicturePath, "http://other.test/assets/"))
}

func TestPublicURLOverridesRequestBase(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	f.images.PublicURL = "https://api.questly.app/"
	author := f.register(t, "Ada", "Lovelace")

	post, err := f.svc.Posts.Create(context.Background(), CreatePostInput{AuthorID: author.ID, Image: upload(t), Base: testBase})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(post.PicturePath, "https://api.questly.app/assets/"), post.PicturePath)
}

func TestToggleLikeIsInvolution(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	a := f.register(t, "Ada", "Lovelace")
	b := f.register(t, "Alan", "Turing")
	post := f.post(t, a, "hello")

	liked, err := f.svc.Posts.ToggleLike(ctx, post.ID, b.ID, testBase)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{b.ID: true}, liked.Likes)

	again, err := f.svc.Posts.ToggleLike(ctx, post.ID, b.ID, testBase)
	require.NoError(t, err)
	assert.Empty(t, again.Likes)

	_, err = f.svc.Posts.ToggleLike(ctx, "ghost", b.ID, testBase)
	assert.Equal(t, apperr.NotFound, kind(err))
}

func TestAddComment(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	a := f.register(t, "Ada", "Lovelace")
	b := f.register(t, "Alan", "Turing")
	post := f.post(t, a, "hello")

	_, err := f.svc.Posts.AddComment(ctx, post.ID, b.ID, "   ", testBase)
	assert.Equal(t, apperr.Validation, kind(err))
	assert.Equal(t, "Comment text is required", apperr.Message(err))

	updated, err := f.svc.Posts.AddComment(ctx, post.ID, b.ID, "  nice post ", testBase)
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	c := updated.Comments[0]
	assert.Equal(t, "nice post", c.Text)
	assert.Equal(t, b.ID, c.UserID)
	assert.Equal(t, "Alan", c.UserFirstName)
	assert.Equal(t, "Turing", c.UserLastName)
	assert.NotEmpty(t, c.ID)

	_, err = f.svc.Posts.AddComment(ctx, "ghost", b.ID, "hi", testBase)
	assert.Equal(t, apperr.NotFound, kind(err))
	_, err = f.svc.Posts.AddComment(ctx, post.ID, "ghost", "hi", testBase)
	assert.Equal(t, apperr.NotFound, kind(err))
}

func TestDeleteCommentAuthorization(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	owner := f.register(t, "Ada", "Lovelace")
	commenter := f.register(t, "Alan", "Turing")
	stranger := f.register(t, "Grace", "Hopper")
	post := f.post(t, owner, "hello")

	withTwo, err := f.svc.Posts.AddComment(ctx, post.ID, commenter.ID, "one", testBase)
	require.NoError(t, err)
	withTwo, err = f.svc.Posts.AddComment(ctx, post.ID, commenter.ID, "two", testBase)
	require.NoError(t, err)
	first, second := withTwo.Comments[0].ID, withTwo.Comments[1].ID

	_, err = f.svc.Posts.DeleteComment(ctx, post.ID, first, stranger.ID, testBase)
	assert.Equal(t, apperr.Forbidden, kind(err))

	after, err := f.svc.Posts.DeleteComment(ctx, post.ID, first, commenter.ID, testBase)
	require.NoError(t, err)
	require.Len(t, after.Comments, 1)

	after, err = f.svc.Posts.DeleteComment(ctx, post.ID, second, owner.ID, testBase)
	require.NoError(t, err)
	assert.Empty(t, after.Comments)

	_, err = f.svc.Posts.DeleteComment(ctx, post.ID, second, owner.ID, testBase)
	assert.Equal(t, apperr.NotFound, kind(err))
	_, err = f.svc.Posts.DeleteComment(ctx, "ghost", second, owner.ID, testBase)
	assert.Equal(t, apperr.NotFound, kind(err))
}

func TestDeletePostCleansSavedLists(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	owner := f.register(t, "Ada", "Lovelace")
	reader := f.register(t, "Alan", "Turing")
	post := f.post(t, owner, "hello")
	keep := f.post(t, owner, "keep")

	saved, err := f.svc.Posts.ToggleSaved(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{post.ID}, saved)
	saved, err = f.svc.Posts.ToggleSaved(ctx, reader.ID, keep.ID)
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	assert.Equal(t, apperr.Forbidden, kind(f.svc.Posts.Delete(ctx, post.ID, reader.ID)))
	require.NoError(t, f.svc.Posts.Delete(ctx, post.ID, owner.ID))

	u, err := f.svc.Users.Get(ctx, reader.ID, testBase)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, u.SavedPosts)

	_, err = f.svc.Posts.Get(ctx, post.ID, testBase)
	assert.Equal(t, apperr.NotFound, kind(err))
	assert.Equal(t, apperr.NotFound, kind(f.svc.Posts.Delete(ctx, post.ID, owner.ID)))

	_, err = f.svc.Posts.ToggleSaved(ctx, reader.ID, post.ID)
	assert.Equal(t, apperr.NotFound, kind(err))
}

func TestRepairImageURLsIsIdempotent(t *testing.T) {
	f := newFixture(t, RelativeURLs)
	ctx := context.Background()
	author := f.register(t, "Ada", "Lovelace")
	require.NoError(t, f.store.CreatePost(ctx, &model.Post{UserID: author.ID, PicturePath: "legacy.png", UserPicturePath: "me.png"}))
	_, err := f.store.AddComment(ctx, mustFirstPost(t, f).ID, model.Comment{UserID: author.ID, Text: "hi", UserPicturePath: "me.png"})
	require.NoError(t, err)
	require.NoError(t, f.store.CreatePost(ctx, &model.Post{UserID: author.ID, PicturePath: "https://cdn.example.com/x.png"}))

	res, err := f.svc.Posts.RepairImageURLs(ctx, testBase)
	require.NoError(t, err)
	assert.Equal(t, RepairResult{Scanned: 2, Fixed: 1}, res)

	fixed := mustFirstPost(t, f)
	assert.Equal(t, testBase+"legacy.png", fixed.PicturePath)
	assert.Equal(t, testBase+"me.png", fixed.UserPicturePath)
	assert.Equal(t, testBase+"me.png", fixed.Comments[0].UserPicturePath)

	res, err = f.svc.Posts.RepairImageURLs(ctx, testBase)
	require.NoError(t, err)
	assert.Equal(t, RepairResult{Scanned: 2, Fixed: 0}, res)
}

func mustFirstPost(t *testing.T, f *fixture) model.Post {
	t.Helper()
	var first model.Post
	found := false
	require.NoError(t, f.store.EachPost(context.Background(), func(p model.Post) error {
		if !found {
			first, found = p, true
		}
		return nil
	}))
	require.True(t, found)
	return first
}

func TestToggleFriendIsSymmetric(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	a := f.register(t, "Ada", "Lovelace")
	b := f.register(t, "Alan", "Turing")

	friends, err := f.svc.Users.ToggleFriend(ctx, a.ID, b.ID, testBase)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, b.ID, friends[0].ID)
	assert.Equal(t, "Alan", friends[0].FirstName)

	theirs, err := f.svc.Users.Friends(ctx, b.ID, testBase)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, a.ID, theirs[0].ID)

	friends, err = f.svc.Users.ToggleFriend(ctx, a.ID, b.ID, testBase)
	require.NoError(t, err)
	assert.Empty(t, friends)
	theirs, err = f.svc.Users.Friends(ctx, b.ID, testBase)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	_, err = f.svc.Users.ToggleFriend(ctx, a.ID, a.ID, testBase)
	assert.Equal(t, apperr.Validation, kind(err))
	_, err = f.svc.Users.ToggleFriend(ctx, a.ID, "ghost", testBase)
	assert.Equal(t, apperr.NotFound, kind(err))
	_, err = f.svc.Users.Friends(ctx, "ghost", testBase)
	assert.Equal(t, apperr.NotFound, kind(err))
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	f.register(t, "Ada", "Lovelace")
	f.register(t, "Alan", "Turing")

	found, err := f.svc.Users.Search(ctx, "ada love", testBase)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ada", found[0].FirstName)

	found, err = f.svc.Users.Search(ctx, "A", testBase)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = f.svc.Users.Search(ctx, "   ", testBase)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSearchUsersFoldsNonASCII(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	ivan, err := f.svc.Accounts.Register(ctx, RegisterInput{
		FirstName: "Иван",
		LastName:  "Петров",
		Email:     "ivan@example.com",
		Password:  "secret123",
	})
	require.NoError(t, err)
	f.register(t, "Alan", "Turing")

	for _, q := range []string{"Иван", "иван", "ПЕТР", "иван петров"} {
		found, err := f.svc.Users.Search(ctx, q, testBase)
		require.NoError(t, err)
		require.Len(t, found, 1, q)
		assert.Equal(t, ivan.ID, found[0].ID)
	}

	_, err = f.svc.Users.Update(ctx, ivan.ID, UpdateUserInput{Fields: model.UserUpdate{FirstName: ptr("Ёжик")}})
	require.NoError(t, err)
	found, err := f.svc.Users.Search(ctx, "ёжик", testBase)
	require.NoError(t, err)
	require.Len(t, found, 1)
	found, err = f.svc.Users.Search(ctx, "иван", testBase)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRegisterIgnoresClientPicturePath(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	victim := f.register(t, "Ada", "Lovelace")
	victim, err := f.svc.Users.Update(ctx, victim.ID, UpdateUserInput{Picture: upload(t), Base: testBase})
	require.NoError(t, err)
	victimFile := filepath.Join(f.dir, strings.TrimPrefix(victim.PicturePath, testBase))

	other, err := f.svc.Accounts.Register(ctx, RegisterInput{
		FirstName:   "Mallory",
		Email:       "mallory@example.com",
		Password:    "secret123",
		PicturePath: victim.PicturePath,
		Base:        testBase,
	})
	require.NoError(t, err)
	assert.Empty(t, other.PicturePath)

	_, err = f.svc.Users.Update(ctx, other.ID, UpdateUserInput{Picture: upload(t), Base: testBase})
	require.NoError(t, err)
	_, err = os.Stat(victimFile)
	assert.NoError(t, err, "another user's picture is left alone")
}

func TestUpdateUserReplacesPicture(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	u := f.register(t, "Ada", "Lovelace")

	first, err := f.svc.Users.Update(ctx, u.ID, UpdateUserInput{Picture: upload(t), Base: testBase})
	require.NoError(t, err)
	oldFile := filepath.Join(f.dir, strings.TrimPrefix(first.PicturePath, testBase))
	_, err = os.Stat(oldFile)
	require.NoError(t, err)

	occupation := "  Mathematician "
	second, err := f.svc.Users.Update(ctx, u.ID, UpdateUserInput{
		Fields:  model.UserUpdate{Occupation: &occupation},
		Picture: upload(t),
		Base:    testBase,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mathematician", second.Occupation)
	assert.NotEqual(t, first.PicturePath, second.PicturePath)
	_, err = os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err), "old picture is removed")

	empty := ""
	_, err = f.svc.Users.Update(ctx, u.ID, UpdateUserInput{Fields: model.UserUpdate{FirstName: &empty}})
	assert.Equal(t, apperr.Validation, kind(err))
	_, err = f.svc.Users.Update(ctx, "ghost", UpdateUserInput{Fields: model.UserUpdate{Occupation: &occupation}})
	assert.Equal(t, apperr.NotFound, kind(err))
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	u := f.register(t, "Ada", "Lovelace")
	assert.Equal(t, "ada.lovelace@example.com", u.Email)

	_, err := f.svc.Accounts.Register(ctx, RegisterInput{FirstName: "Ada", Email: "ADA.lovelace@example.com", Password: "secret123"})
	assert.Equal(t, apperr.Conflict, kind(err))
	_, err = f.svc.Accounts.Register(ctx, RegisterInput{FirstName: "Bob", Email: "bob@example.com", Password: "123"})
	assert.Equal(t, apperr.Validation, kind(err))
	_, err = f.svc.Accounts.Register(ctx, RegisterInput{FirstName: "Bob", Email: "not-an-email", Password: "secret123"})
	assert.Equal(t, apperr.Validation, kind(err))

	res, err := f.svc.Accounts.Login(ctx, "Ada.Lovelace@example.com", "secret123", testBase)
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	v, err := f.svc.Accounts.tokens.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, v.UserID)

	_, err = f.svc.Accounts.Login(ctx, "ada.lovelace@example.com", "wrong", testBase)
	assert.Equal(t, apperr.Unauthorized, kind(err))
	_, err = f.svc.Accounts.Login(ctx, "nobody@example.com", "secret123", testBase)
	assert.Equal(t, apperr.Unauthorized, kind(err))
}

func ptr[T any](v T) *T { return &v }

func TestCreateCustomChallenge(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()

	_, err := f.svc.Challenges.CreateCustom(ctx, "u1", ChallengeInput{Title: ptr("Hi")})
	assert.Equal(t, apperr.Validation, kind(err))
	_, err = f.svc.Challenges.CreateCustom(ctx, "u1", ChallengeInput{Title: ptr("   Hi   ")})
	assert.Equal(t, apperr.Validation, kind(err))
	_, err = f.svc.Challenges.CreateCustom(ctx, "u1", ChallengeInput{})
	assert.Equal(t, apperr.Validation, kind(err))
	_, err = f.svc.Challenges.CreateCustom(ctx, "u1", ChallengeInput{Title: ptr("Valid"), Difficulty: ptr("extreme")})
	assert.Equal(t, apperr.Validation, kind(err))
	_, err = f.svc.Challenges.CreateCustom(ctx, "u1", ChallengeInput{Title: ptr("Valid"), Goal: ptr(0)})
	assert.Equal(t, apperr.Validation, kind(err))
	_, err = f.svc.Challenges.CreateCustom(ctx, "u1", ChallengeInput{Title: ptr("Valid"), Reward: ptr(-5)})
	assert.Equal(t, apperr.Validation, kind(err))

	c, err := f.svc.Challenges.CreateCustom(ctx, "u1", ChallengeInput{Title: ptr("  Run 5k  ")})
	require.NoError(t, err)
	assert.Equal(t, "Run 5k", c.Title)
	assert.True(t, c.IsCustom)
	assert.False(t, c.Public)
	assert.Equal(t, "u1", c.Creator)
	assert.Equal(t, model.DifficultyEasy, c.Difficulty)
	assert.Equal(t, model.CategoryCustom, c.Category)
	assert.Equal(t, model.ProgressBoolean, c.ProgressType)
	assert.Equal(t, 1, c.Goal)
	assert.Equal(t, 0, c.Reward)

	mine, err := f.svc.Challenges.CreatedBy(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	others, err := f.svc.Challenges.CreatedBy(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestUpdateAndDeleteChallengeOwnership(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	c, err := f.svc.Challenges.CreateCustom(ctx, "owner", ChallengeInput{Title: ptr("Read a book")})
	require.NoError(t, err)

	_, err = f.svc.Challenges.Update(ctx, c.ID, "intruder", ChallengeInput{Title: ptr("Hacked")})
	assert.Equal(t, apperr.Forbidden, kind(err))

	updated, err := f.svc.Challenges.Update(ctx, c.ID, "owner", ChallengeInput{Public: ptr(true), Category: ptr("Weekly")})
	require.NoError(t, err)
	assert.True(t, updated.Public)
	assert.Equal(t, model.CategoryWeekly, updated.Category)
	assert.Equal(t, "Read a book", updated.Title)

	_, err = f.svc.Challenges.Update(ctx, c.ID, "owner", ChallengeInput{ProgressType: ptr("sometimes")})
	assert.Equal(t, apperr.Validation, kind(err))

	public, err := f.svc.Challenges.Public(ctx)
	require.NoError(t, err)
	assert.Len(t, public, 1)

	assert.Equal(t, apperr.Forbidden, kind(f.svc.Challenges.Delete(ctx, c.ID, "intruder")))
	require.NoError(t, f.svc.Challenges.Delete(ctx, c.ID, "owner"))
	assert.Equal(t, apperr.NotFound, kind(f.svc.Challenges.Delete(ctx, c.ID, "owner")))
	_, err = f.svc.Challenges.Update(ctx, c.ID, "owner", ChallengeInput{})
	assert.Equal(t, apperr.NotFound, kind(err))
}

func TestJoinChallenge(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	private, err := f.svc.Challenges.CreateCustom(ctx, "owner", ChallengeInput{Title: ptr("Private one")})
	require.NoError(t, err)
	public, err := f.svc.Challenges.CreateCustom(ctx, "owner", ChallengeInput{Title: ptr("Public one"), Public: ptr(true)})
	require.NoError(t, err)

	_, err = f.svc.Challenges.Join(ctx, "other", private.ID)
	assert.Equal(t, apperr.Forbidden, kind(err))
	_, err = f.svc.Challenges.Join(ctx, "other", "ghost")
	assert.Equal(t, apperr.NotFound, kind(err))

	first, err := f.svc.Challenges.Join(ctx, "other", public.ID)
	require.NoError(t, err)
	again, err := f.svc.Challenges.Join(ctx, "other", public.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 0, again.Progress)

	own, err := f.svc.Challenges.Join(ctx, "owner", private.ID)
	require.NoError(t, err)
	assert.Equal(t, private.ID, own.ChallengeID)

	list, err := f.svc.Challenges.Progress(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRecordProgressRules(t *testing.T) {
	f := newFixture(t, AbsoluteURLs)
	ctx := context.Background()
	create := func(in ChallengeInput) model.Challenge {
		in.Public = ptr(true)
		c, err := f.svc.Challenges.CreateCustom(ctx, "owner", in)
		require.NoError(t, err)
		return c
	}

	t.Run("boolean completes at once", func(t *testing.T) {
		c := create(ChallengeInput{Title: ptr("Meditate")})
		uc, err := f.svc.Challenges.RecordProgress(ctx, "u1", c.ID, nil)
		require.NoError(t, err)
		assert.True(t, uc.Completed)
		assert.Equal(t, 1, uc.Completions)

		_, err = f.svc.Challenges.RecordProgress(ctx, "u1", c.ID, nil)
		assert.Equal(t, apperr.Conflict, kind(err), "custom challenges do not repeat")
	})

	t.Run("incremental accumulates amount", func(t *testing.T) {
		c := create(ChallengeInput{Title: ptr("Pushups"), ProgressType: ptr("incremental"), Goal: ptr(10)})
		uc, err := f.svc.Challenges.RecordProgress(ctx, "u1", c.ID, ptr(4))
		require.NoError(t, err)
		assert.Equal(t, 4, uc.Progress)
		assert.False(t, uc.Completed)

		uc, err = f.svc.Challenges.RecordProgress(ctx, "u1", c.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, uc.Progress)

		uc, err = f.svc.Challenges.RecordProgress(ctx, "u1", c.ID, ptr(50))
		require.NoError(t, err)
		assert.Equal(t, 10, uc.Progress)
		assert.True(t, uc.Completed)

		_, err = f.svc.Challenges.RecordProgress(ctx, "u2", c.ID, ptr(0))
		assert.Equal(t, apperr.Validation, kind(err))
	})

	t.Run("streak ignores amount", func(t *testing.T) {
		c := create(ChallengeInput{Title: ptr("Daily walk"), ProgressType: ptr("streak"), Goal: ptr(3), Category: ptr("daily")})
		var uc model.UserChallenge
		var err error
		for i := 0; i < 3; i++ {
			uc, err = f.svc.Challenges.RecordProgress(ctx, "u1", c.ID, ptr(7))
			require.NoError(t, err)
		}
		assert.Equal(t, 3, uc.Progress)
		assert.True(t, uc.Completed)
		assert.Equal(t, 1, uc.Completions)

		uc, err = f.svc.Challenges.RecordProgress(ctx, "u1", c.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, uc.Progress, "daily challenge starts a new round")
		assert.False(t, uc.Completed)
		assert.Equal(t, 1, uc.Completions)
	})
}
