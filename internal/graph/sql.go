package graph

import (
	"context"
	"fmt"

	"github.com/isdelr/microblog-be/internal/database"
)

// SQLSet is an EdgeSet backed by the followers table.
type SQLSet struct {
	db *database.DB
}

// NewSQLSet creates a new SQLSet.
func NewSQLSet(db *database.DB) *SQLSet {
	return &SQLSet{db: db}
}

func (s *SQLSet) Add(ctx context.Context, a, b string) (bool, error) {
	if a == b {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, s.db.InsertIgnore()+" INTO followers (follower_id, followed_id) VALUES (?, ?)", a, b)
	if err != nil {
		return false, fmt.Errorf("failed to insert follow edge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLSet) Remove(ctx context.Context, a, b string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM followers WHERE follower_id = ? AND followed_id = ?", a, b)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow edge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLSet) Has(ctx context.Context, a, b string) (bool, error) {
	n, err := s.count(ctx, "SELECT COUNT(*) FROM followers WHERE follower_id = ? AND followed_id = ?", a, b)
	return n > 0, err
}

func (s *SQLSet) Following(ctx context.Context, a string) ([]string, error) {
	return s.ids(ctx, "SELECT followed_id FROM followers WHERE follower_id = ? ORDER BY followed_id", a)
}

func (s *SQLSet) Followers(ctx context.Context, b string) ([]string, error) {
	return s.ids(ctx, "SELECT follower_id FROM followers WHERE followed_id = ? ORDER BY follower_id", b)
}

func (s *SQLSet) CountFollowing(ctx context.Context, a string) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM followers WHERE follower_id = ?", a)
}

func (s *SQLSet) CountFollowers(ctx context.Context, b string) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM followers WHERE followed_id = ?", b)
}

func (s *SQLSet) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count follow edges: %w", err)
	}
	return n, nil
}

func (s *SQLSet) ids(ctx context.Context, query string, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query follow edges: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var other string
		if err := rows.Scan(&other); err != nil {
			return nil, err
		}
		ids = append(ids, other)
	}
	return ids, rows.Err()
}

var _ EdgeSet = (*SQLSet)(nil)
