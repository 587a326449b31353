package feed

import (
	"context"
	"fmt"

	"github.com/isdelr/microblog-be/internal/graph"
)

// PostSource exposes the ordered post collections feeds are cut from.
type PostSource interface {
	// Recent is every post.
	Recent() OrderedReader
	// ByAuthors is every post written by one of the given users.
	ByAuthors(authorIDs []string) OrderedReader
}

// Composer builds feeds for a viewer.
type Composer struct {
	posts   PostSource
	edges   graph.EdgeSet
	perPage int
}

// NewComposer creates a Composer that cuts pages of perPage posts.
func NewComposer(posts PostSource, edges graph.EdgeSet, perPage int) *Composer {
	return &Composer{posts: posts, edges: edges, perPage: perPage}
}

// PerPage returns the configured page size.
func (c *Composer) PerPage() int {
	return c.perPage
}

// FollowedPosts returns the viewer's own posts together with the posts of
// everyone the viewer follows.
func (c *Composer) FollowedPosts(ctx context.Context, viewerID string) (OrderedReader, error) {
	following, err := c.edges.Following(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load followed users: %w", err)
	}
	return c.posts.ByAuthors(append(following, viewerID)), nil
}

// Home returns a page of the viewer's home feed. Pages past the end are empty.
func (c *Composer) Home(ctx context.Context, viewerID string, page int) (Page, error) {
	reader, err := c.FollowedPosts(ctx, viewerID)
	if err != nil {
		return Page{}, err
	}
	return Paginate(ctx, reader, page, c.perPage)
}

// Explore returns a page of all posts. Pages past the end are empty.
func (c *Composer) Explore(ctx context.Context, page int) (Page, error) {
	return Paginate(ctx, c.posts.Recent(), page, c.perPage)
}

// UserPosts returns a page of one user's posts. Unlike the other feeds it
// fails with ErrPageNotFound for a page below 1 or an empty page after the first.
func (c *Composer) UserPosts(ctx context.Context, userID string, page int) (Page, error) {
	if page < 1 {
		return Page{}, ErrPageNotFound
	}
	p, err := Paginate(ctx, c.posts.ByAuthors([]string{userID}), page, c.perPage)
	if err != nil {
		return Page{}, err
	}
	if page > 1 && len(p.Posts) == 0 {
		return Page{}, ErrPageNotFound
	}
	return p, nil
}
