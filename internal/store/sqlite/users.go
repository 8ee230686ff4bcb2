package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store"
)

const userColumns = `id, first_name, last_name, email, password_hash, location, occupation, picture_path, viewed_profile, impressions, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	now := time.Now().UTC()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Friends == nil {
		user.Friends = []string{}
	}
	if user.SavedPosts == nil {
		user.SavedPosts = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (`+userColumns+`, search_name)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Location, user.Occupation, user.PicturePath,
		user.ViewedProfile, user.Impressions, toNanos(now), toNanos(now), searchName(user.FirstName, user.LastName))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return getUser(ctx, s.db, `WHERE id = ?`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return getUser(ctx, s.db, `WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func getUser(ctx context.Context, q querier, where string, args ...any) (model.User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where+` LIMIT 1`, args...)
	user, err := scanUser(row)
	if err != nil {
		return model.User{}, err
	}
	if user.Friends, err = listIDs(ctx, q, `SELECT friend_id FROM user_friends WHERE user_id = ? ORDER BY created_at, rowid`, user.ID); err != nil {
		return model.User{}, err
	}
	if user.SavedPosts, err = listIDs(ctx, q, `SELECT post_id FROM user_saved_posts WHERE user_id = ? ORDER BY created_at, rowid`, user.ID); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.User, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		byID[user.ID] = user
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(byID))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (model.User, error) {
	var sets []string
	var args []any
	add := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	add("first_name", upd.FirstName)
	add("last_name", upd.LastName)
	add("location", upd.Location)
	add("occupation", upd.Occupation)
	add("picture_path", upd.PicturePath)
	sets = append(sets, "updated_at = ?")
	args = append(args, toNanos(time.Now()), id)

	var user model.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		if user, err = getUser(ctx, tx, `WHERE id = ?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET search_name = ? WHERE id = ?`, searchName(user.FirstName, user.LastName), id)
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (s *Store) ToggleFriend(ctx context.Context, userID, friendID string) (bool, error) {
	var added bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range []string{userID, friendID} {
			if err := requireRow(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, id); err != nil {
				return err
			}
		}
		exists, err := rowExists(ctx, tx, `SELECT 1 FROM user_friends WHERE user_id = ? AND friend_id = ?`, userID, friendID)
		if err != nil {
			return err
		}
		if exists {
			_, err = tx.ExecContext(ctx, `
DELETE FROM user_friends
WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)
`, userID, friendID, friendID, userID)
			return err
		}
		now := toNanos(time.Now())
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO user_friends (user_id, friend_id, created_at) VALUES (?, ?, ?), (?, ?, ?)
`, userID, friendID, now, friendID, userID, now); err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}

func (s *Store) ToggleSavedPost(ctx context.Context, userID, postID string) (bool, error) {
	var saved bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, userID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM user_saved_posts WHERE user_id = ? AND post_id = ?`, userID, postID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_saved_posts (user_id, post_id, created_at) VALUES (?, ?, ?)`, userID, postID, toNanos(time.Now())); err != nil {
			return err
		}
		saved = true
		return nil
	})
	return saved, err
}

func (s *Store) RemoveSavedPost(ctx context.Context, postID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_saved_posts WHERE post_id = ?`, postID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error) {
	limit = clamp(limit, 1, 100)
	pattern := likePattern(strings.TrimSpace(query))
	rows, err := s.db.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE search_name LIKE ? ESCAPE '\'
ORDER BY first_name, last_name
LIMIT ?
`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (model.User, error) {
	var u model.User
	var created, updated int64
	if err := scanner.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Location, &u.Occupation,
		&u.PicturePath, &u.ViewedProfile, &u.Impressions, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	u.CreatedAt = fromNanos(created)
	u.UpdatedAt = fromNanos(updated)
	u.Friends = []string{}
	u.SavedPosts = []string{}
	return u, nil
}

func listIDs(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func rowExists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func requireRow(ctx context.Context, q querier, query string, args ...any) error {
	ok, err := rowExists(ctx, q, query, args...)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}
