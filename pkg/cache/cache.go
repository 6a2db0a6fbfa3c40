// Package cache persists fetched posts in sqlite so the CLI accumulates a
// feed across runs. The aggregation engine itself stays in-memory; this is
// the external persistence collaborator.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lepinkainen/multipass/pkg/filesystem"
	"github.com/lepinkainen/multipass/pkg/social"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	platform_id TEXT NOT NULL,
	post_id     TEXT NOT NULL,
	platform    TEXT NOT NULL,
	content     TEXT NOT NULL,
	timestamp   TEXT NOT NULL,
	metadata    TEXT,
	fetched_at  TEXT NOT NULL,
	PRIMARY KEY (platform_id, post_id)
);

CREATE INDEX IF NOT EXISTS idx_posts_timestamp ON posts(timestamp);
`

// Store is a sqlite-backed post cache keyed by post identity.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("cache path is required")
	}

	if err := filesystem.EnsureDirectoryExists(path); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SavePosts upserts posts by identity and returns how many were new.
// Re-saving a known post updates nothing but is not an error, mirroring
// the engine's dedup semantics.
func (s *Store) SavePosts(ctx context.Context, posts []social.Post) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posts (platform_id, post_id, platform, content, timestamp, metadata, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(platform_id, post_id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	inserted := 0
	for _, p := range posts {
		meta, err := encodeMetadata(p.Metadata)
		if err != nil {
			return inserted, fmt.Errorf("encode metadata for %s/%s: %w", p.PlatformID, p.PostID, err)
		}

		res, err := stmt.ExecContext(ctx,
			p.PlatformID, p.PostID, p.Platform, p.Content,
			p.Timestamp.UTC().Format(time.RFC3339Nano), meta, now)
		if err != nil {
			return inserted, fmt.Errorf("insert post %s/%s: %w", p.PlatformID, p.PostID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// LoadPosts returns every cached post, newest first.
func (s *Store) LoadPosts(ctx context.Context) ([]social.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT platform_id, post_id, platform, content, timestamp, metadata
		FROM posts ORDER BY timestamp DESC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []social.Post
	for rows.Next() {
		var p social.Post
		var ts string
		var meta sql.NullString
		if err := rows.Scan(&p.PlatformID, &p.PostID, &p.Platform, &p.Content, &ts, &meta); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}

		p.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &p.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Sync folds a fresh fetch into the cache: the posts are saved, entries
// older than retain are pruned (retain <= 0 keeps everything), and the full
// accumulated set comes back newest first. This is how one run's feed picks
// up earlier runs' posts.
func (s *Store) Sync(ctx context.Context, posts []social.Post, retain time.Duration) ([]social.Post, error) {
	if _, err := s.SavePosts(ctx, posts); err != nil {
		return nil, err
	}
	if retain > 0 {
		if _, err := s.Prune(ctx, retain); err != nil {
			return nil, err
		}
	}
	return s.LoadPosts(ctx)
}

// Prune deletes posts older than the retention window and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, retain time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retain).UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune posts: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of cached posts.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

func encodeMetadata(m map[string]string) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
