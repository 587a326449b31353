package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/isdelr/microblog-be/internal/database"
	"github.com/isdelr/microblog-be/internal/feed"
	"github.com/isdelr/microblog-be/internal/graph"
	"github.com/isdelr/microblog-be/internal/models"
	"github.com/isdelr/microblog-be/internal/websocket"
	"github.com/rs/zerolog/log"
	"go.jetpack.io/typeid"
)

// PostAvatarSize is the avatar size embedded in post authors.
const PostAvatarSize = 36

// ErrPostNotFound is returned when a post id does not exist.
var ErrPostNotFound = errors.New("post not found")

// Publisher pushes a message to the live connections of the given users.
type Publisher interface {
	Publish(userIDs []string, message []byte)
}

// PostServiceProvider defines the interface for post services.
type PostServiceProvider interface {
	feed.PostSource
	CreatePost(ctx context.Context, authorID, body string) (models.Post, error)
	GetPostByID(ctx context.Context, id string) (models.Post, error)
}

// PostService stores posts and serves them in recency order.
type PostService struct {
	db        *database.DB
	edges     graph.EdgeSet
	events    EventServiceProvider
	publisher Publisher
	now       Clock
}

// NewPostService creates a new PostService. publisher may be nil.
func NewPostService(db *database.DB, edges graph.EdgeSet, events EventServiceProvider, publisher Publisher) *PostService {
	return &PostService{db: db, edges: edges, events: events, publisher: publisher, now: systemClock}
}

// WithClock replaces the time source.
func (s *PostService) WithClock(now Clock) *PostService {
	s.now = now
	return s
}

const postSelect = `
	SELECT p.id, p.body, p.created_at, p.user_id, u.username, u.email
	FROM posts p JOIN users u ON u.id = p.user_id`

func scanPost(scanner interface{ Scan(...any) error }) (models.Post, error) {
	var post models.Post
	var author models.User
	if err := scanner.Scan(&post.ID, &post.Body, &post.CreatedAt, &post.UserID, &author.Username, &author.Email); err != nil {
		return models.Post{}, err
	}
	post.Author = models.Author{ID: post.UserID, Username: author.Username, Avatar: author.Avatar(PostAvatarSize)}
	return post, nil
}

// CreatePost writes a new post and pushes it to the author's followers.
func (s *PostService) CreatePost(ctx context.Context, authorID, body string) (models.Post, error) {
	tid, err := typeid.New("post")
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to create typeid: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO posts (id, body, created_at, user_id) VALUES (?, ?, ?, ?)",
		tid.String(), body, stamp(s.now), authorID)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to insert post: %w", err)
	}

	post, err := s.GetPostByID(ctx, tid.String())
	if err != nil {
		return models.Post{}, err
	}

	record(ctx, s.events, authorID, models.EventPostCreate, "Published a post.")
	s.broadcast(ctx, post)
	return post, nil
}

// GetPostByID retrieves a single post with its author.
func (s *PostService) GetPostByID(ctx context.Context, id string) (models.Post, error) {
	post, err := scanPost(s.db.QueryRowContext(ctx, postSelect+" WHERE p.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Post{}, fmt.Errorf("post %s: %w", id, ErrPostNotFound)
		}
		return models.Post{}, err
	}
	return post, nil
}

func (s *PostService) broadcast(ctx context.Context, post models.Post) {
	if s.publisher == nil {
		return
	}
	followers, err := s.edges.Followers(ctx, post.UserID)
	if err != nil {
		log.Warn().Err(err).Str("post_id", post.ID).Msg("Failed to load followers for live update")
		return
	}
	s.publisher.Publish(append(followers, post.UserID), websocket.NewPostCreatedMessage(post))
}

// Recent returns every post, newest first.
func (s *PostService) Recent() feed.OrderedReader {
	return feed.ReaderFunc(func(ctx context.Context, offset, limit int) ([]models.Post, error) {
		return s.list(ctx, postSelect, nil, offset, limit)
	})
}

// ByAuthors returns the posts of the given authors, newest first.
func (s *PostService) ByAuthors(authorIDs []string) feed.OrderedReader {
	return feed.ReaderFunc(func(ctx context.Context, offset, limit int) ([]models.Post, error) {
		if len(authorIDs) == 0 {
			return []models.Post{}, nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(authorIDs)), ", ")
		args := make([]any, len(authorIDs))
		for i, id := range authorIDs {
			args[i] = id
		}
		return s.list(ctx, postSelect+" WHERE p.user_id IN ("+placeholders+")", args, offset, limit)
	})
}

func (s *PostService) list(ctx context.Context, query string, args []any, offset, limit int) ([]models.Post, error) {
	query += " ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}
