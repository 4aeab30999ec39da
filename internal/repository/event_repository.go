package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/council-portal-api/internal/models"
)

const eventColumns = "id, title, event_date::text AS event_date, description, image_url, location, reg_link, summary_text, created_at"

// EventRepository provides persistence for events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns every event. Upcoming reads soonest first, past reads most recent
// first, and no partition reads newest-created first.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	var order string
	switch filter.Partition {
	case models.EventPartitionUpcoming:
		order = "event_date ASC, created_at ASC"
	case models.EventPartitionPast:
		order = "event_date DESC, created_at DESC"
	default:
		order = "created_at DESC"
	}
	query := "SELECT " + eventColumns + " FROM events ORDER BY " + order

	events := make([]models.Event, 0)
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetByID returns an event by identifier.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := r.db.GetContext(ctx, &event, "SELECT "+eventColumns+" FROM events WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

// Create inserts an event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO events (id, title, event_date, description, image_url, location, reg_link, summary_text, created_at)
VALUES (:id, :title, :event_date, :description, :image_url, :location, :reg_link, :summary_text, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Delete removes an event. It returns sql.ErrNoRows when nothing matched.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "events", id)
}
