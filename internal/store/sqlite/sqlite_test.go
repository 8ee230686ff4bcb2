package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func createUser(t *testing.T, st *Store, first, last, email string) model.User {
	t.Helper()
	u := model.User{FirstName: first, LastName: last, Email: email, PasswordHash: "x"}
	require.NoError(t, st.CreateUser(context.Background(), &u))
	return u
}

func createPost(t *testing.T, st *Store, author model.User, desc string) model.Post {
	t.Helper()
	p := model.Post{
		UserID:      author.ID,
		FirstName:   author.FirstName,
		LastName:    author.LastName,
		Description: desc,
	}
	require.NoError(t, st.CreatePost(context.Background(), &p))
	return p
}

func TestUserLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	u := createUser(t, st, "Ada", "Lovelace", " Ada@Example.com ")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)

	got, err := st.GetUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, []string{}, got.Friends)
	assert.Equal(t, []string{}, got.SavedPosts)

	dup := model.User{FirstName: "Other", Email: "ada@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, st.CreateUser(ctx, &dup), store.ErrDuplicate)

	loc := "London"
	updated, err := st.UpdateUser(ctx, u.ID, model.UserUpdate{Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "London", updated.Location)
	assert.Equal(t, "Ada", updated.FirstName)

	_, err = st.UpdateUser(ctx, "missing", model.UserUpdate{Location: &loc})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetUsersKeepsOrder(t *testing.T) {
	st := newTestStore(t)
	a := createUser(t, st, "A", "One", "a@example.com")
	b := createUser(t, st, "B", "Two", "b@example.com")

	users, err := st.GetUsers(context.Background(), []string{b.ID, "ghost", a.ID})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, b.ID, users[0].ID)
	assert.Equal(t, a.ID, users[1].ID)
}

func TestToggleFriendIsSymmetric(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, st, "A", "One", "a@example.com")
	b := createUser(t, st, "B", "Two", "b@example.com")

	added, err := st.ToggleFriend(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, added)

	ga, _ := st.GetUser(ctx, a.ID)
	gb, _ := st.GetUser(ctx, b.ID)
	assert.Equal(t, []string{b.ID}, ga.Friends)
	assert.Equal(t, []string{a.ID}, gb.Friends)

	added, err = st.ToggleFriend(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, added)

	ga, _ = st.GetUser(ctx, a.ID)
	gb, _ = st.GetUser(ctx, b.ID)
	assert.Empty(t, ga.Friends)
	assert.Empty(t, gb.Friends)

	_, err = st.ToggleFriend(ctx, a.ID, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSearchUsers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	createUser(t, st, "Grace", "Hopper", "g@example.com")
	createUser(t, st, "Alan", "Turing", "a@example.com")
	createUser(t, st, "100%", "Real", "p@example.com")

	users, err := st.SearchUsers(ctx, "grace hop", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Grace", users[0].FirstName)

	users, err = st.SearchUsers(ctx, "TURING", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)

	users, err = st.SearchUsers(ctx, "%", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "100%", users[0].FirstName)
}

func TestSearchUsersFoldsUnicode(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ivan := createUser(t, st, "Иван", "Петров", "ivan@example.com")
	createUser(t, st, "Grace", "Hopper", "g@example.com")

	for _, q := range []string{"Иван", "иван", "ПЕТРОВ", "ван пет"} {
		users, err := st.SearchUsers(ctx, q, 10)
		require.NoError(t, err)
		require.Len(t, users, 1, q)
		assert.Equal(t, ivan.ID, users[0].ID)
	}

	name := "Ёжик"
	_, err := st.UpdateUser(ctx, ivan.ID, model.UserUpdate{LastName: &name})
	require.NoError(t, err)
	users, err := st.SearchUsers(ctx, "иван ёжик", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestBackfillSearchNames(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, st, "Мария", "Кюри", "marie@example.com")
	_, err := st.db.Exec(`UPDATE users SET search_name = ''`)
	require.NoError(t, err)

	users, err := st.SearchUsers(ctx, "мария", 10)
	require.NoError(t, err)
	require.Empty(t, users)

	require.NoError(t, backfillSearchNames(st.db))
	users, err = st.SearchUsers(ctx, "мария", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, u.ID, users[0].ID)
}

func TestPostLikesAndComments(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := createUser(t, st, "A", "One", "a@example.com")
	post := createPost(t, st, author, "hello")

	liked, err := st.ToggleLike(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.True(t, liked.LikedBy("u1"))

	unliked, err := st.ToggleLike(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.False(t, unliked.LikedBy("u1"))
	assert.Empty(t, unliked.Likes)

	withFirst, err := st.AddComment(ctx, post.ID, model.Comment{UserID: "u1", Text: "first"})
	require.NoError(t, err)
	withBoth, err := st.AddComment(ctx, post.ID, model.Comment{UserID: "u2", Text: "second"})
	require.NoError(t, err)
	require.Len(t, withBoth.Comments, 2)
	assert.Equal(t, "first", withBoth.Comments[0].Text)
	assert.Equal(t, "second", withBoth.Comments[1].Text)

	after, err := st.DeleteComment(ctx, post.ID, withFirst.Comments[0].ID)
	require.NoError(t, err)
	require.Len(t, after.Comments, 1)
	assert.Equal(t, "second", after.Comments[0].Text)

	_, err = st.DeleteComment(ctx, post.ID, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.ToggleLike(ctx, "ghost", "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.AddComment(ctx, "ghost", model.Comment{UserID: "u1", Text: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListPostsPagination(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, st, "A", "One", "a@example.com")
	b := createUser(t, st, "B", "Two", "b@example.com")
	for i := 0; i < 5; i++ {
		createPost(t, st, a, fmt.Sprintf("a%d", i))
	}
	createPost(t, st, b, "b0")

	page, total, err := st.ListPosts(ctx, store.PostListOpts{Offset: 0, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, page, 4)
	assert.Equal(t, "b0", page[0].Description)
	assert.Equal(t, "a4", page[1].Description)

	page, total, err = st.ListPosts(ctx, store.PostListOpts{AuthorID: a.ID, Offset: 4, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 1)
	assert.Equal(t, "a0", page[0].Description)

	page, _, err = st.ListPosts(ctx, store.PostListOpts{Offset: 100, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestDeletePostAndSavedPosts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, st, "A", "One", "a@example.com")
	b := createUser(t, st, "B", "Two", "b@example.com")
	post := createPost(t, st, a, "hello")
	_, err := st.AddComment(ctx, post.ID, model.Comment{UserID: b.ID, Text: "hi"})
	require.NoError(t, err)

	for _, u := range []model.User{a, b} {
		saved, err := st.ToggleSavedPost(ctx, u.ID, post.ID)
		require.NoError(t, err)
		assert.True(t, saved)
	}

	require.NoError(t, st.DeletePost(ctx, post.ID))
	removed, err := st.RemoveSavedPost(ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	gb, err := st.GetUser(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, gb.SavedPosts)

	_, err = st.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, st.DeletePost(ctx, post.ID), store.ErrNotFound)
}

func TestReplacePostImagesAndEachPost(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, st, "A", "One", "a@example.com")
	post := createPost(t, st, a, "hello")
	post, err := st.AddComment(ctx, post.ID, model.Comment{UserID: a.ID, Text: "hi", UserPicturePath: "me.png"})
	require.NoError(t, err)

	post.PicturePath = "http://h/assets/p.png"
	post.UserPicturePath = "http://h/assets/me.png"
	post.Comments[0].UserPicturePath = "http://h/assets/me.png"
	require.NoError(t, st.ReplacePostImages(ctx, post))

	var seen []model.Post
	require.NoError(t, st.EachPost(ctx, func(p model.Post) error {
		seen = append(seen, p)
		return nil
	}))
	require.Len(t, seen, 1)
	assert.Equal(t, "http://h/assets/p.png", seen[0].PicturePath)
	assert.Equal(t, "http://h/assets/me.png", seen[0].Comments[0].UserPicturePath)

	stop := errors.New("stop")
	assert.ErrorIs(t, st.EachPost(ctx, func(model.Post) error { return stop }), stop)
}

func TestChallengesAndProgress(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	c := model.Challenge{
		Title:        "Run",
		Creator:      "u1",
		IsCustom:     true,
		Public:       true,
		Difficulty:   model.DifficultyEasy,
		Category:     model.CategoryDaily,
		Goal:         3,
		ProgressType: model.ProgressIncremental,
	}
	require.NoError(t, st.CreateChallenge(ctx, &c))
	private := model.Challenge{Title: "Read", Creator: "u1", Difficulty: model.DifficultyHard, Category: model.CategoryCustom, Goal: 1, ProgressType: model.ProgressBoolean}
	require.NoError(t, st.CreateChallenge(ctx, &private))

	mine, err := st.ListChallengesByCreator(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	public, err := st.ListPublicChallenges(ctx, 10)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, c.ID, public[0].ID)

	c.Title = "Run far"
	require.NoError(t, st.UpdateChallenge(ctx, &c))
	got, err := st.GetChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Run far", got.Title)
	assert.Equal(t, model.ProgressIncremental, got.ProgressType)

	uc := model.UserChallenge{UserID: "u2", ChallengeID: c.ID, Progress: 1}
	require.NoError(t, st.SaveUserChallenge(ctx, &uc))
	uc.Progress, uc.Completed, uc.Completions = 3, true, 1
	require.NoError(t, st.SaveUserChallenge(ctx, &uc))

	row, err := st.GetUserChallenge(ctx, "u2", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, row.Progress)
	assert.True(t, row.Completed)
	assert.Equal(t, 1, row.Completions)

	list, err := st.ListUserChallenges(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	orphan := model.UserChallenge{UserID: "u2", ChallengeID: "ghost"}
	assert.ErrorIs(t, st.SaveUserChallenge(ctx, &orphan), store.ErrNotFound)

	require.NoError(t, st.DeleteChallenge(ctx, c.ID))
	_, err = st.GetUserChallenge(ctx, "u2", c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, st.DeleteChallenge(ctx, c.ID), store.ErrNotFound)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, applySchema(st.db))

	var version int
	require.NoError(t, st.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version))
	assert.Equal(t, len(migrations), version)
}

func TestRemoveSavedPostStatement(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM user_saved_posts WHERE post_id = ?`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := New(db).RemoveSavedPost(context.Background(), "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPingReportsDriverError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, New(db).Ping(context.Background()))
}
