package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection also keeps shared
	// in-memory databases alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := backfillSearchNames(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// New wraps an already opened database without applying migrations.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: users, posts and their embedded collections
	`
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	occupation TEXT NOT NULL DEFAULT '',
	picture_path TEXT NOT NULL DEFAULT '',
	viewed_profile INTEGER NOT NULL DEFAULT 0,
	impressions INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);

CREATE TABLE IF NOT EXISTS user_friends (
	user_id TEXT NOT NULL,
	friend_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, friend_id)
);

CREATE TABLE IF NOT EXISTS user_saved_posts (
	user_id TEXT NOT NULL,
	post_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, post_id)
);
CREATE INDEX IF NOT EXISTS idx_user_saved_posts_post ON user_saved_posts(post_id);

CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	user_picture_path TEXT NOT NULL DEFAULT '',
	picture_path TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS post_likes (
	post_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	PRIMARY KEY (post_id, user_id),
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS post_comments (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	post_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	user_first_name TEXT NOT NULL DEFAULT '',
	user_last_name TEXT NOT NULL DEFAULT '',
	user_picture_path TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_post_comments_post ON post_comments(post_id, seq);
`,
	// Migration 2: challenges and per-user progress
	`
CREATE TABLE IF NOT EXISTS challenges (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	reward INTEGER NOT NULL DEFAULT 0,
	creator TEXT NOT NULL DEFAULT '',
	is_custom INTEGER NOT NULL DEFAULT 0,
	public INTEGER NOT NULL DEFAULT 0,
	difficulty TEXT NOT NULL DEFAULT 'easy',
	category TEXT NOT NULL DEFAULT 'custom',
	goal INTEGER NOT NULL DEFAULT 1,
	progress_type TEXT NOT NULL DEFAULT 'boolean',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_challenges_creator ON challenges(creator, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_challenges_public ON challenges(public, created_at DESC);

CREATE TABLE IF NOT EXISTS user_challenges (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	challenge_id TEXT NOT NULL,
	progress INTEGER NOT NULL DEFAULT 0,
	completed INTEGER NOT NULL DEFAULT 0,
	completions INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	FOREIGN KEY(challenge_id) REFERENCES challenges(id) ON DELETE CASCADE
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_user_challenges_unique ON user_challenges(user_id, challenge_id);
`,
	// Migration 2: lowercased "first last" for search, filled in by backfillSearchNames
	`
ALTER TABLE users ADD COLUMN search_name TEXT NOT NULL DEFAULT '';
`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

// searchName is the folded form SearchUsers matches against. SQLite's
// lower() and LIKE only fold ASCII, so folding happens here.
func searchName(first, last string) string {
	return strings.ToLower(first + " " + last)
}

// backfillSearchNames fills search_name for rows written before the column
// existed.
func backfillSearchNames(db *sql.DB) error {
	rows, err := db.Query(`SELECT id, first_name, last_name FROM users WHERE search_name = ''`)
	if err != nil {
		return err
	}
	type pending struct{ id, name string }
	var todo []pending
	for rows.Next() {
		var id, first, last string
		if err := rows.Scan(&id, &first, &last); err != nil {
			rows.Close()
			return err
		}
		todo = append(todo, pending{id, searchName(first, last)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, p := range todo {
		if _, err := db.Exec(`UPDATE users SET search_name = ? WHERE id = ?`, p.name, p.id); err != nil {
			return fmt.Errorf("backfill search name: %w", err)
		}
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func newID() string {
	return uuid.NewString()
}

// Timestamps are stored as unix nanoseconds so that rows created within the
// same second still sort by creation.
func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// likePattern builds a LIKE pattern matching value anywhere, escaping the
// wildcard characters with a backslash.
func likePattern(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(value)) + "%"
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
