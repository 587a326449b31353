// Package graph holds the follow relation as an explicit set of directed
// edges. An edge (a, b) means a follows b and sees b's posts in their home feed.
package graph

import "context"

// EdgeSet stores follow edges. Implementations ignore self edges and never
// hold the same edge twice, so Add and Remove are idempotent.
type EdgeSet interface {
	// Add creates a->b and reports whether the edge is new.
	Add(ctx context.Context, a, b string) (bool, error)
	// Remove deletes a->b and reports whether it existed.
	Remove(ctx context.Context, a, b string) (bool, error)
	Has(ctx context.Context, a, b string) (bool, error)
	// Following lists the ids a follows.
	Following(ctx context.Context, a string) ([]string, error)
	// Followers lists the ids following b.
	Followers(ctx context.Context, b string) ([]string, error)
	CountFollowing(ctx context.Context, a string) (int, error)
	CountFollowers(ctx context.Context, b string) (int, error)
}
