package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/microblog-be/internal/database"
	"github.com/isdelr/microblog-be/internal/graph"
	"github.com/isdelr/microblog-be/internal/models"
	"github.com/isdelr/microblog-be/internal/services"
	"github.com/isdelr/microblog-be/internal/testutil"
	"github.com/stretchr/testify/require"
)

// tickingClock advances by one second on every reading.
func tickingClock() services.Clock {
	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type publication struct {
	userIDs []string
	message []byte
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []publication
}

func (p *recordingPublisher) Publish(userIDs []string, message []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, publication{userIDs: userIDs, message: message})
}

func (p *recordingPublisher) publications() []publication {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publication(nil), p.sent...)
}

type fixture struct {
	db        *database.DB
	clock     services.Clock
	edges     graph.EdgeSet
	events    *services.EventService
	users     *services.UserService
	posts     *services.PostService
	follows   *services.FollowService
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewSQLite(t)
	clock := tickingClock()
	edges := graph.NewSQLSet(db)
	publisher := &recordingPublisher{}
	events := services.NewEventService(db).WithClock(clock)
	users := services.NewUserService(db, events).WithClock(clock)

	return &fixture{
		db:        db,
		clock:     clock,
		edges:     edges,
		events:    events,
		users:     users,
		posts:     services.NewPostService(db, edges, events, publisher).WithClock(clock),
		follows:   services.NewFollowService(edges, users, events),
		publisher: publisher,
	}
}

func (f *fixture) register(t *testing.T, username string) models.User {
	t.Helper()
	user, err := f.users.CreateUser(context.Background(), username, username+"@example.com", "secret-"+username)
	require.NoError(t, err)
	return user
}
