package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store"
)

const challengeColumns = `id, title, description, reward, creator, is_custom, public, difficulty, category, goal, progress_type, created_at, updated_at`

func (s *Store) CreateChallenge(ctx context.Context, c *model.Challenge) error {
	if c.ID == "" {
		c.ID = newID()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, `
INSERT INTO challenges (`+challengeColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, c.ID, c.Title, c.Description, c.Reward, c.Creator, boolToInt(c.IsCustom), boolToInt(c.Public), string(c.Difficulty),
		string(c.Category), c.Goal, string(c.ProgressType), toNanos(now), toNanos(now))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetChallenge(ctx context.Context, id string) (model.Challenge, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = ? LIMIT 1`, id)
	return scanChallenge(row)
}

func (s *Store) UpdateChallenge(ctx context.Context, c *model.Challenge) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
UPDATE challenges
SET title = ?, description = ?, reward = ?, is_custom = ?, public = ?, difficulty = ?, category = ?, goal = ?, progress_type = ?, updated_at = ?
WHERE id = ?
`, c.Title, c.Description, c.Reward, boolToInt(c.IsCustom), boolToInt(c.Public), string(c.Difficulty), string(c.Category),
		c.Goal, string(c.ProgressType), toNanos(c.UpdatedAt), c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteChallenge(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM challenges WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM user_challenges WHERE challenge_id = ?`, id)
		return err
	})
}

func (s *Store) ListChallengesByCreator(ctx context.Context, creator string) ([]model.Challenge, error) {
	return s.listChallenges(ctx, `WHERE creator = ? ORDER BY created_at DESC, id DESC`, creator)
}

func (s *Store) ListPublicChallenges(ctx context.Context, limit int) ([]model.Challenge, error) {
	return s.listChallenges(ctx, `WHERE public = 1 ORDER BY created_at DESC, id DESC LIMIT ?`, clamp(limit, 1, 200))
}

func (s *Store) listChallenges(ctx context.Context, tail string, args ...any) ([]model.Challenge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+challengeColumns+` FROM challenges `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	challenges := []model.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func (s *Store) GetUserChallenge(ctx context.Context, userID, challengeID string) (model.UserChallenge, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, user_id, challenge_id, progress, completed, completions, created_at, updated_at
FROM user_challenges
WHERE user_id = ? AND challenge_id = ?
LIMIT 1
`, userID, challengeID)
	return scanUserChallenge(row)
}

func (s *Store) SaveUserChallenge(ctx context.Context, uc *model.UserChallenge) error {
	now := time.Now().UTC()
	if uc.ID == "" {
		uc.ID = newID()
	}
	if uc.CreatedAt.IsZero() {
		uc.CreatedAt = now
	}
	uc.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_challenges (id, user_id, challenge_id, progress, completed, completions, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, challenge_id) DO UPDATE SET
	progress = excluded.progress,
	completed = excluded.completed,
	completions = excluded.completions,
	updated_at = excluded.updated_at
`, uc.ID, uc.UserID, uc.ChallengeID, uc.Progress, boolToInt(uc.Completed), uc.Completions, toNanos(uc.CreatedAt), toNanos(now))
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) ListUserChallenges(ctx context.Context, userID string) ([]model.UserChallenge, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, challenge_id, progress, completed, completions, created_at, updated_at
FROM user_challenges
WHERE user_id = ?
ORDER BY updated_at DESC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.UserChallenge{}
	for rows.Next() {
		uc, err := scanUserChallenge(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, uc)
	}
	return list, rows.Err()
}

func scanChallenge(scanner interface{ Scan(dest ...any) error }) (model.Challenge, error) {
	var c model.Challenge
	var isCustom, public int
	var difficulty, category, progressType string
	var created, updated int64
	if err := scanner.Scan(&c.ID, &c.Title, &c.Description, &c.Reward, &c.Creator, &isCustom, &public, &difficulty, &category,
		&c.Goal, &progressType, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Challenge{}, store.ErrNotFound
		}
		return model.Challenge{}, err
	}
	c.IsCustom = isCustom == 1
	c.Public = public == 1
	c.Difficulty = model.Difficulty(difficulty)
	c.Category = model.Category(category)
	c.ProgressType = model.ProgressType(progressType)
	c.CreatedAt = fromNanos(created)
	c.UpdatedAt = fromNanos(updated)
	return c, nil
}

func scanUserChallenge(scanner interface{ Scan(dest ...any) error }) (model.UserChallenge, error) {
	var uc model.UserChallenge
	var completed int
	var created, updated int64
	if err := scanner.Scan(&uc.ID, &uc.UserID, &uc.ChallengeID, &uc.Progress, &completed, &uc.Completions, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UserChallenge{}, store.ErrNotFound
		}
		return model.UserChallenge{}, err
	}
	uc.Completed = completed == 1
	uc.CreatedAt = fromNanos(created)
	uc.UpdatedAt = fromNanos(updated)
	return uc, nil
}
