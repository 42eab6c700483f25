package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type Event struct {
	ID        int64           `json:"id" example:"1"`
	EventType string          `json:"event_type" example:"session_created"`
	EventTime time.Time       `json:"event_time"`
	Payload   json.RawMessage `json:"payload" swaggertype:"object"`
}

func (q *Queries) LogEvent(ctx context.Context, userID int64, eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `
		INSERT INTO event_journal (user_id, event_type, payload)
		VALUES ($1, $2, $3)
		RETURNING id, event_type, event_time, payload
	`
	var event Event
	err = q.db.QueryRow(ctx, query, userID, eventType, payloadBytes).Scan(
		&event.ID,
		&event.EventType,
		&event.EventTime,
		&event.Payload,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (q *Queries) GetEventsSince(ctx context.Context, userID int64, sinceID int64) ([]Event, error) {
	query := `
		SELECT id, event_type, event_time, payload
		FROM event_journal
		WHERE user_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT 100
	`
	rows, err := q.db.Query(ctx, query, userID, sinceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.EventTime,
			&event.Payload,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if events == nil {
		return []Event{}, nil
	}

	return events, nil
}

// Publisher delivers events to live subscribers.
type Publisher interface {
	PublishEvent(userID int64, eventType string, payload interface{})
}

// EventJournal records every event in event_journal before handing it to
// the live publisher, so clients that were offline can catch up.
type EventJournal struct {
	q       *Queries
	live    Publisher
	timeout time.Duration
	log     zerolog.Logger
}

func NewEventJournal(q *Queries, live Publisher, log zerolog.Logger) *EventJournal {
	return &EventJournal{
		q:       q,
		live:    live,
		timeout: 2 * time.Second,
		log:     log,
	}
}

func (j *EventJournal) PublishEvent(userID int64, eventType string, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.q.LogEvent(ctx, userID, eventType, payload); err != nil {
		j.log.Error().Err(err).Int64("user_id", userID).Str("event_type", eventType).Msg("failed to journal event")
	}
	if j.live != nil {
		j.live.PublishEvent(userID, eventType, payload)
	}
}
