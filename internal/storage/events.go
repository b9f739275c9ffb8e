package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dompet/internal/analytics"
	applog "dompet/internal/log"
)

// EventStore persists analytics events. Saving is idempotent on the event id
// so broker redeliveries are harmless.
type EventStore struct {
	db     *sql.DB
	logger *applog.Logger
}

func NewEventStore(db *sql.DB, logger *applog.Logger) *EventStore {
	if logger == nil {
		logger = applog.Discard()
	}
	return &EventStore{db: db, logger: logger.WithComponent(applog.ComponentStorage)}
}

func (s *EventStore) SaveEvent(ctx context.Context, e analytics.Event) error {
	props := e.Properties
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("marshal properties: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO analytics_events (id, user_id, name, properties, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Name, string(raw), e.OccurredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		s.logger.DebugContext(ctx, "Analytics event already stored", applog.FieldEventID, e.ID)
		return nil
	}
	s.logger.DebugContext(ctx, "Analytics event saved to SQLite",
		applog.FieldEventID, e.ID,
		applog.FieldEventName, e.Name,
		applog.FieldUserID, e.UserID)
	return nil
}

// Track lets the store be used directly as an analytics.Tracker.
func (s *EventStore) Track(ctx context.Context, e analytics.Event) error {
	return s.SaveEvent(ctx, e)
}
