package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store"
)

const postColumns = `id, user_id, first_name, last_name, location, description, user_picture_path, picture_path, created_at, updated_at`

func (s *Store) CreatePost(ctx context.Context, post *model.Post) error {
	if post.ID == "" {
		post.ID = newID()
	}
	now := time.Now().UTC()
	post.CreatedAt, post.UpdatedAt = now, now
	post.Likes = map[string]bool{}
	post.Comments = []model.Comment{}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO posts (`+postColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, post.ID, post.UserID, post.FirstName, post.LastName, post.Location, post.Description, post.UserPicturePath, post.PicturePath,
		toNanos(now), toNanos(now))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (model.Post, error) {
	return getPost(ctx, s.db, id)
}

func getPost(ctx context.Context, q querier, id string) (model.Post, error) {
	row := q.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ? LIMIT 1`, id)
	post, err := scanPost(row)
	if err != nil {
		return model.Post{}, err
	}
	posts := []model.Post{post}
	if err := attachChildren(ctx, q, posts); err != nil {
		return model.Post{}, err
	}
	return posts[0], nil
}

func (s *Store) ListPosts(ctx context.Context, opts store.PostListOpts) ([]model.Post, int, error) {
	limit := clamp(opts.Limit, 1, 100)
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	where := ""
	var args []any
	if opts.AuthorID != "" {
		where = "WHERE user_id = ?"
		args = append(args, opts.AuthorID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT `+postColumns+`
FROM posts
`+where+`
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	posts := []model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := attachChildren(ctx, s.db, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *Store) ToggleLike(ctx context.Context, postID, userID string) (model.Post, error) {
	var post model.Post
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, `SELECT 1 FROM posts WHERE id = ?`, postID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := tx.ExecContext(ctx, `INSERT INTO post_likes (post_id, user_id) VALUES (?, ?)`, postID, userID); err != nil {
				return err
			}
		}
		if err := touchPost(ctx, tx, postID); err != nil {
			return err
		}
		post, err = getPost(ctx, tx, postID)
		return err
	})
	return post, err
}

func (s *Store) AddComment(ctx context.Context, postID string, comment model.Comment) (model.Post, error) {
	if comment.ID == "" {
		comment.ID = newID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	var post model.Post
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, `SELECT 1 FROM posts WHERE id = ?`, postID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO post_comments (id, post_id, user_id, user_first_name, user_last_name, user_picture_path, text, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, comment.ID, postID, comment.UserID, comment.UserFirstName, comment.UserLastName, comment.UserPicturePath, comment.Text,
			toNanos(comment.CreatedAt)); err != nil {
			return err
		}
		if err := touchPost(ctx, tx, postID); err != nil {
			return err
		}
		var err error
		post, err = getPost(ctx, tx, postID)
		return err
	})
	return post, err
}

func (s *Store) DeleteComment(ctx context.Context, postID, commentID string) (model.Post, error) {
	var post model.Post
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, `SELECT 1 FROM posts WHERE id = ?`, postID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM post_comments WHERE id = ? AND post_id = ?`, commentID, postID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		if err := touchPost(ctx, tx, postID); err != nil {
			return err
		}
		post, err = getPost(ctx, tx, postID)
		return err
	})
	return post, err
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = ?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM post_comments WHERE post_id = ?`, id)
		return err
	})
}

func (s *Store) ReplacePostImages(ctx context.Context, post model.Post) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE posts SET picture_path = ?, user_picture_path = ?, updated_at = ? WHERE id = ?
`, post.PicturePath, post.UserPicturePath, toNanos(time.Now()), post.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		for _, c := range post.Comments {
			if _, err := tx.ExecContext(ctx, `
UPDATE post_comments SET user_picture_path = ? WHERE id = ? AND post_id = ?
`, c.UserPicturePath, c.ID, post.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) EachPost(ctx context.Context, fn func(model.Post) error) error {
	// Ids are read up front so fn may write through the store while we
	// iterate.
	ids, err := listIDs(ctx, s.db, `SELECT id FROM posts ORDER BY created_at, id`)
	if err != nil {
		return err
	}
	for _, id := range ids {
		post, err := s.GetPost(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(post); err != nil {
			return err
		}
	}
	return nil
}

func touchPost(ctx context.Context, q querier, postID string) error {
	_, err := q.ExecContext(ctx, `UPDATE posts SET updated_at = ? WHERE id = ?`, toNanos(time.Now()), postID)
	return err
}

// attachChildren loads likes and comments for the given posts in place.
func attachChildren(ctx context.Context, q querier, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	index := make(map[string]int, len(posts))
	ids := make([]string, len(posts))
	for i := range posts {
		index[posts[i].ID] = i
		ids[i] = posts[i].ID
		posts[i].Likes = map[string]bool{}
		posts[i].Comments = []model.Comment{}
	}
	in := placeholders(len(ids))

	rows, err := q.QueryContext(ctx, `SELECT post_id, user_id FROM post_likes WHERE post_id IN (`+in+`)`, stringArgs(ids)...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var postID, userID string
		if err := rows.Scan(&postID, &userID); err != nil {
			rows.Close()
			return err
		}
		posts[index[postID]].Likes[userID] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `
SELECT id, post_id, user_id, user_first_name, user_last_name, user_picture_path, text, created_at
FROM post_comments
WHERE post_id IN (`+in+`)
ORDER BY seq
`, stringArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var c model.Comment
		var postID string
		var created int64
		if err := rows.Scan(&c.ID, &postID, &c.UserID, &c.UserFirstName, &c.UserLastName, &c.UserPicturePath, &c.Text, &created); err != nil {
			return err
		}
		c.CreatedAt = fromNanos(created)
		i := index[postID]
		posts[i].Comments = append(posts[i].Comments, c)
	}
	return rows.Err()
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (model.Post, error) {
	var p model.Post
	var created, updated int64
	if err := scanner.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.Location, &p.Description, &p.UserPicturePath,
		&p.PicturePath, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)
	return p, nil
}
