package services

import (
	"context"
	"fmt"

	"github.com/isdelr/microblog-be/internal/graph"
	"github.com/isdelr/microblog-be/internal/models"
)

// FollowServiceProvider defines the interface for follow actions.
type FollowServiceProvider interface {
	Follow(ctx context.Context, viewerID, username string) (models.User, error)
	Unfollow(ctx context.Context, viewerID, username string) (models.User, error)
	IsFollowing(ctx context.Context, viewerID, targetID string) (bool, error)
	Counts(ctx context.Context, userID string) (followers, following int, err error)
}

// FollowService applies the follow rules on top of an EdgeSet.
type FollowService struct {
	edges  graph.EdgeSet
	users  UserServiceProvider
	events EventServiceProvider
}

// NewFollowService creates a new FollowService.
func NewFollowService(edges graph.EdgeSet, users UserServiceProvider, events EventServiceProvider) *FollowService {
	return &FollowService{edges: edges, users: users, events: events}
}

// Follow makes the viewer follow username. Following an already followed
// user succeeds without change.
func (s *FollowService) Follow(ctx context.Context, viewerID, username string) (models.User, error) {
	target, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	if target.ID == viewerID {
		return target, ErrSelfFollow
	}

	added, err := s.edges.Add(ctx, viewerID, target.ID)
	if err != nil {
		return models.User{}, err
	}
	if added {
		record(ctx, s.events, viewerID, models.EventFollow, fmt.Sprintf("Followed %s.", target.Username))
	}
	return target, nil
}

// Unfollow removes the viewer's edge to username, if any.
func (s *FollowService) Unfollow(ctx context.Context, viewerID, username string) (models.User, error) {
	target, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	if target.ID == viewerID {
		return target, ErrSelfUnfollow
	}

	removed, err := s.edges.Remove(ctx, viewerID, target.ID)
	if err != nil {
		return models.User{}, err
	}
	if removed {
		record(ctx, s.events, viewerID, models.EventUnfollow, fmt.Sprintf("Unfollowed %s.", target.Username))
	}
	return target, nil
}

// IsFollowing reports whether viewerID follows targetID.
func (s *FollowService) IsFollowing(ctx context.Context, viewerID, targetID string) (bool, error) {
	return s.edges.Has(ctx, viewerID, targetID)
}

// Counts returns how many users follow userID and how many userID follows.
func (s *FollowService) Counts(ctx context.Context, userID string) (followers, following int, err error) {
	if followers, err = s.edges.CountFollowers(ctx, userID); err != nil {
		return 0, 0, err
	}
	if following, err = s.edges.CountFollowing(ctx, userID); err != nil {
		return 0, 0, err
	}
	return followers, following, nil
}
