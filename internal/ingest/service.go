// Package ingest writes validated source payloads into cal.events. It is the
// storage-facing half of the fetcher collaborators; everything downstream
// treats the event table as read-only input.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/citycal/internal/db"
	"horse.fit/citycal/internal/event"
	"horse.fit/citycal/internal/globaltime"
	"horse.fit/citycal/internal/sources"
	payloadschema "horse.fit/citycal/schema"
)

type Service struct {
	pool     *db.Pool
	registry *sources.Registry
	logger   zerolog.Logger
}

type Result struct {
	EventID  string
	Inserted bool
}

func NewService(pool *db.Pool, registry *sources.Registry, logger zerolog.Logger) *Service {
	return &Service{
		pool:     pool,
		registry: registry,
		logger:   logger,
	}
}

// IngestOne validates one raw payload and upserts the resulting event record.
// Re-ingesting an existing source event updates the stored row in place.
func (s *Service) IngestOne(ctx context.Context, rawPayload json.RawMessage) (Result, error) {
	if s == nil || s.pool == nil {
		return Result{}, fmt.Errorf("ingest service is not initialized")
	}

	item, err := payloadschema.ValidateEventItemPayload(rawPayload)
	if err != nil {
		return Result{}, fmt.Errorf("validate event payload: %w", err)
	}

	source := strings.ToLower(strings.TrimSpace(item.Source))
	if s.registry != nil {
		if _, ok := s.registry.Lookup(source); !ok {
			return Result{}, fmt.Errorf("source %q is not in the sources registry", source)
		}
	}

	eventID := event.BuildID(source, item.SourceEventID)
	categoriesJSON, err := json.Marshal(normalizeCategories(item.Categories))
	if err != nil {
		return Result{}, fmt.Errorf("marshal categories: %w", err)
	}

	const q = `
INSERT INTO cal.events (
	event_id,
	title,
	date,
	start_time,
	start_date,
	end_date,
	location,
	city,
	latitude,
	longitude,
	url,
	image_url,
	categories,
	source,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb, $14, $15, $15)
ON CONFLICT (event_id) DO UPDATE SET
	title = EXCLUDED.title,
	date = EXCLUDED.date,
	start_time = EXCLUDED.start_time,
	start_date = EXCLUDED.start_date,
	end_date = EXCLUDED.end_date,
	location = EXCLUDED.location,
	city = EXCLUDED.city,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	url = EXCLUDED.url,
	image_url = EXCLUDED.image_url,
	categories = EXCLUDED.categories,
	updated_at = EXCLUDED.updated_at
`

	now := globaltime.UTC()
	tag, err := s.pool.Exec(
		ctx,
		q,
		eventID,
		strings.TrimSpace(item.Title),
		item.Date,
		normalizeOptional(item.StartTime),
		normalizeOptional(item.StartDate),
		normalizeOptional(item.EndDate),
		normalizeOptional(item.Location),
		normalizeOptional(item.City),
		item.Latitude,
		item.Longitude,
		normalizeOptional(item.URL),
		normalizeOptional(item.ImageURL),
		string(categoriesJSON),
		source,
		now,
	)
	if err != nil {
		return Result{}, fmt.Errorf("upsert event %s: %w", eventID, err)
	}

	s.logger.Debug().
		Str("event_id", eventID).
		Str("source", source).
		Str("date", item.Date).
		Msg("event upserted")

	return Result{
		EventID:  eventID,
		Inserted: tag.RowsAffected() == 1,
	}, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeCategories(categories []string) []string {
	cleaned := make([]string, 0, len(categories))
	for _, category := range categories {
		trimmed := strings.TrimSpace(category)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}
