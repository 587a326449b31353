package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/microblog-be/internal/database"
	"github.com/isdelr/microblog-be/internal/models"
	"github.com/rs/zerolog/log"
)

// EventServiceProvider defines the interface for the activity log.
type EventServiceProvider interface {
	Record(ctx context.Context, userID, eventType, message string) error
	RecentForUser(ctx context.Context, userID string, limit int) ([]models.Event, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventService stores user activity events.
type EventService struct {
	db  *database.DB
	now Clock
}

// NewEventService creates a new EventService.
func NewEventService(db *database.DB) *EventService {
	return &EventService{db: db, now: systemClock}
}

// WithClock replaces the time source.
func (s *EventService) WithClock(now Clock) *EventService {
	s.now = now
	return s
}

// Record logs a new event for a user.
func (s *EventService) Record(ctx context.Context, userID, eventType, message string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      eventType,
		Message:   message,
		CreatedAt: stamp(s.now),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, user_id, type, message, created_at) VALUES (?, ?, ?, ?, ?)",
		event.ID, event.UserID, event.Type, event.Message, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// RecentForUser retrieves a user's most recent events.
func (s *EventService) RecentForUser(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, type, message, created_at FROM events WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.UserID, &event.Type, &event.Message, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// PruneBefore deletes events created before cutoff and returns how many were removed.
func (s *EventService) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}

// record writes an event and only logs a failure; the activity log never
// fails the action it describes.
func record(ctx context.Context, events EventServiceProvider, userID, eventType, message string) {
	if events == nil {
		return
	}
	if err := events.Record(ctx, userID, eventType, message); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("type", eventType).Msg("Failed to record activity event")
	}
}
