package graph_test

import (
	"context"
	"testing"

	"github.com/isdelr/microblog-be/internal/graph"
	"github.com/isdelr/microblog-be/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edgeSets returns every EdgeSet implementation over the users a, b and c.
func edgeSets(t *testing.T) map[string]graph.EdgeSet {
	t.Helper()

	db := testutil.NewSQLite(t)
	for _, id := range []string{"a", "b", "c"} {
		testutil.InsertUser(t, db, id, "user-"+id)
	}
	return map[string]graph.EdgeSet{
		"memory": graph.NewMemorySet(),
		"sql":    graph.NewSQLSet(db),
	}
}

func TestEdgeSet_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, set := range edgeSets(t) {
		t.Run(name, func(t *testing.T) {
			added, err := set.Add(ctx, "a", "b")
			require.NoError(t, err)
			assert.True(t, added)

			added, err = set.Add(ctx, "a", "b")
			require.NoError(t, err)
			assert.False(t, added, "second add must not change the set")

			n, err := set.CountFollowing(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			has, err := set.Has(ctx, "a", "b")
			require.NoError(t, err)
			assert.True(t, has)

			has, err = set.Has(ctx, "b", "a")
			require.NoError(t, err)
			assert.False(t, has, "edges are directed")
		})
	}
}

func TestEdgeSet_SelfEdgeIsNoop(t *testing.T) {
	ctx := context.Background()
	for name, set := range edgeSets(t) {
		t.Run(name, func(t *testing.T) {
			added, err := set.Add(ctx, "a", "a")
			require.NoError(t, err)
			assert.False(t, added)

			has, err := set.Has(ctx, "a", "a")
			require.NoError(t, err)
			assert.False(t, has)

			n, err := set.CountFollowers(ctx, "a")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestEdgeSet_Remove(t *testing.T) {
	ctx := context.Background()
	for name, set := range edgeSets(t) {
		t.Run(name, func(t *testing.T) {
			removed, err := set.Remove(ctx, "a", "b")
			require.NoError(t, err)
			assert.False(t, removed, "removing a missing edge is a no-op")

			_, err = set.Add(ctx, "a", "b")
			require.NoError(t, err)

			removed, err = set.Remove(ctx, "a", "b")
			require.NoError(t, err)
			assert.True(t, removed)

			has, err := set.Has(ctx, "a", "b")
			require.NoError(t, err)
			assert.False(t, has)

			following, err := set.Following(ctx, "a")
			require.NoError(t, err)
			assert.Empty(t, following)
		})
	}
}

func TestEdgeSet_Neighbours(t *testing.T) {
	ctx := context.Background()
	for name, set := range edgeSets(t) {
		t.Run(name, func(t *testing.T) {
			for _, e := range []graph.Edge{{Follower: "a", Followed: "c"}, {Follower: "a", Followed: "b"}, {Follower: "b", Followed: "c"}} {
				_, err := set.Add(ctx, e.Follower, e.Followed)
				require.NoError(t, err)
			}

			following, err := set.Following(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "c"}, following)

			followers, err := set.Followers(ctx, "c")
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, followers)

			followers, err = set.Followers(ctx, "a")
			require.NoError(t, err)
			assert.NotNil(t, followers)
			assert.Empty(t, followers)

			n, err := set.CountFollowers(ctx, "c")
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			n, err = set.CountFollowing(ctx, "c")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestMemorySet_Edges(t *testing.T) {
	ctx := context.Background()
	set := graph.NewMemorySet()
	_, _ = set.Add(ctx, "b", "a")
	_, _ = set.Add(ctx, "a", "c")
	_, _ = set.Add(ctx, "a", "b")

	assert.Equal(t, []graph.Edge{
		{Follower: "a", Followed: "b"},
		{Follower: "a", Followed: "c"},
		{Follower: "b", Followed: "a"},
	}, set.Edges())

	_, _ = set.Remove(ctx, "b", "a")
	assert.Len(t, set.Edges(), 2)
}
