// Package pipeline orchestrates the batch entity-resolution run: match every
// source pair, replace the stored match edges, and rebuild the display set.
// The run is synchronous and assumes a single active writer; it either
// commits or leaves the previous state untouched.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/citycal/internal/db"
	"horse.fit/citycal/internal/display"
	"horse.fit/citycal/internal/event"
	"horse.fit/citycal/internal/globaltime"
	"horse.fit/citycal/internal/match"
	"horse.fit/citycal/internal/sources"
)

// DefaultMinScore is the production match threshold.
const DefaultMinScore = 0.65

type Service struct {
	pool     *db.Pool
	registry *sources.Registry
	logger   zerolog.Logger
}

type MatchOptions struct {
	MinScore float64
	Weights  *match.Weights
}

type MatchRunResult struct {
	SourcePairs int
	Edges       int
	High        int
	Medium      int
	Low         int
}

type MaterializeResult struct {
	Events      int
	DisplayRows int
	Excluded    int
}

func NewService(pool *db.Pool, registry *sources.Registry, logger zerolog.Logger) *Service {
	return &Service{
		pool:     pool,
		registry: registry,
		logger:   logger,
	}
}

// RunMatch scores every source pair and atomically replaces the whole match
// edge set. The registry's priority order decides which source of a pair
// supplies the secondary (first) edge member.
func (s *Service) RunMatch(ctx context.Context, opts MatchOptions) (MatchRunResult, error) {
	if s == nil || s.pool == nil {
		return MatchRunResult{}, fmt.Errorf("pipeline service is not initialized")
	}
	if s.registry == nil {
		return MatchRunResult{}, fmt.Errorf("pipeline service has no sources registry")
	}

	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	eventsBySource := make(map[string][]event.Event, len(s.registry.All()))
	for _, src := range s.registry.All() {
		events, err := s.loadEventsBySource(ctx, src.Domain)
		if err != nil {
			return MatchRunResult{}, err
		}
		eventsBySource[src.Domain] = events
	}

	var result MatchRunResult
	var edges []match.Edge
	for _, pair := range s.registry.Pairs() {
		secondary, primary := pair[0], pair[1]
		results, err := match.FindMatches(
			eventsBySource[secondary.Domain],
			eventsBySource[primary.Domain],
			minScore,
			opts.Weights,
		)
		if err != nil {
			return MatchRunResult{}, fmt.Errorf("match %s against %s: %w", secondary.Domain, primary.Domain, err)
		}

		result.SourcePairs++
		for _, r := range results {
			edges = append(edges, match.EdgeFromResult(r))
			switch r.Confidence {
			case match.ConfidenceHigh:
				result.High++
			case match.ConfidenceMedium:
				result.Medium++
			default:
				result.Low++
			}
		}

		s.logger.Info().
			Str("secondary_source", secondary.Domain).
			Str("primary_source", primary.Domain).
			Int("pairs_kept", len(results)).
			Float64("min_score", minScore).
			Msg("source pair matched")
	}

	if err := s.replaceMatchEdges(ctx, edges); err != nil {
		return MatchRunResult{}, err
	}
	result.Edges = len(edges)
	return result, nil
}

// Materialize rebuilds cal.display_events from the full event set plus the
// stored match edges. The table replacement happens inside one transaction so
// a concurrent reader sees either the old set or the new one, never a partial
// rebuild.
func (s *Service) Materialize(ctx context.Context) (MaterializeResult, error) {
	if s == nil || s.pool == nil {
		return MaterializeResult{}, fmt.Errorf("pipeline service is not initialized")
	}

	events, err := s.loadAllEvents(ctx)
	if err != nil {
		return MaterializeResult{}, err
	}
	edges, err := s.loadMatchEdges(ctx)
	if err != nil {
		return MaterializeResult{}, err
	}

	rows, err := display.Rebuild(events, edges, s.logger)
	if err != nil {
		return MaterializeResult{}, err
	}

	if err := s.replaceDisplayEvents(ctx, rows); err != nil {
		return MaterializeResult{}, err
	}

	return MaterializeResult{
		Events:      len(events),
		DisplayRows: len(rows),
		Excluded:    len(events) - len(rows),
	}, nil
}

// Process runs match then materialize, the full batch pipeline.
func (s *Service) Process(ctx context.Context, opts MatchOptions) (MatchRunResult, MaterializeResult, error) {
	matchResult, err := s.RunMatch(ctx, opts)
	if err != nil {
		return MatchRunResult{}, MaterializeResult{}, err
	}
	materializeResult, err := s.Materialize(ctx)
	if err != nil {
		return matchResult, MaterializeResult{}, err
	}
	return matchResult, materializeResult, nil
}

// LoadDisplayRows reads the materialized display set in stored order.
func (s *Service) LoadDisplayRows(ctx context.Context) ([]display.Row, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}

	const q = `
SELECT
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
	alternate_url,
	alternate_source
FROM cal.display_events
ORDER BY position ASC
`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query display events: %w", err)
	}
	defer rows.Close()

	var out []display.Row
	for rows.Next() {
		var row display.Row
		var categoriesJSON []byte
		if err := rows.Scan(
			&row.ID,
			&row.Title,
			&row.Date,
			&row.StartTime,
			&row.StartDate,
			&row.EndDate,
			&row.Location,
			&row.City,
			&row.Latitude,
			&row.Longitude,
			&row.URL,
			&row.ImageURL,
			&categoriesJSON,
			&row.Source,
			&row.AlternateURL,
			&row.AlternateSource,
		); err != nil {
			return nil, fmt.Errorf("scan display event: %w", err)
		}
		if len(categoriesJSON) > 0 {
			if err := json.Unmarshal(categoriesJSON, &row.Categories); err != nil {
				return nil, fmt.Errorf("unmarshal display categories for %s: %w", row.ID, err)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate display events: %w", err)
	}
	return out, nil
}

const selectEventColumns = `
SELECT
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
FROM cal.events
`

func (s *Service) loadEventsBySource(ctx context.Context, source string) ([]event.Event, error) {
	const q = selectEventColumns + `
WHERE source = $1
ORDER BY date ASC, start_time ASC NULLS LAST, created_at ASC, event_id ASC
`
	rows, err := s.pool.Query(ctx, q, source)
	if err != nil {
		return nil, fmt.Errorf("query events for source %s: %w", source, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Service) loadAllEvents(ctx context.Context) ([]event.Event, error) {
	const q = selectEventColumns + `
ORDER BY date ASC, start_time ASC NULLS LAST, created_at ASC, event_id ASC
`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query all events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *db.Rows) ([]event.Event, error) {
	var events []event.Event
	for rows.Next() {
		var e event.Event
		var categoriesJSON []byte
		if err := rows.Scan(
			&e.ID,
			&e.Title,
			&e.Date,
			&e.StartTime,
			&e.StartDate,
			&e.EndDate,
			&e.Location,
			&e.City,
			&e.Latitude,
			&e.Longitude,
			&e.URL,
			&e.ImageURL,
			&categoriesJSON,
			&e.Source,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if len(categoriesJSON) > 0 {
			if err := json.Unmarshal(categoriesJSON, &e.Categories); err != nil {
				return nil, fmt.Errorf("unmarshal categories for %s: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}

func (s *Service) loadMatchEdges(ctx context.Context) ([]match.Edge, error) {
	const q = `
SELECT
	secondary_event_id,
	primary_event_id,
	score,
	confidence,
	reasons,
	match_type
FROM cal.event_matches
ORDER BY match_id ASC
`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query match edges: %w", err)
	}
	defer rows.Close()

	var edges []match.Edge
	for rows.Next() {
		var edge match.Edge
		var confidence string
		var reasonsJSON []byte
		if err := rows.Scan(
			&edge.SecondaryEventID,
			&edge.PrimaryEventID,
			&edge.Score,
			&confidence,
			&reasonsJSON,
			&edge.MatchType,
		); err != nil {
			return nil, fmt.Errorf("scan match edge: %w", err)
		}
		edge.Confidence = match.Confidence(confidence)
		if len(reasonsJSON) > 0 {
			if err := json.Unmarshal(reasonsJSON, &edge.Reasons); err != nil {
				return nil, fmt.Errorf("unmarshal edge reasons: %w", err)
			}
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match edges: %w", err)
	}
	return edges, nil
}

// replaceMatchEdges clears and repopulates cal.event_matches in one
// transaction. Edges are never merged incrementally; every run recomputes
// the full set.
func (s *Service) replaceMatchEdges(ctx context.Context, edges []match.Edge) error {
	tx, err := s.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin match replace tx: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cal.event_matches`); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("clear match edges: %w", err)
	}

	const insertQ = `
INSERT INTO cal.event_matches (
	secondary_event_id,
	primary_event_id,
	score,
	confidence,
	reasons,
	match_type,
	created_at
)
VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
ON CONFLICT (secondary_event_id, primary_event_id) DO UPDATE SET
	score = EXCLUDED.score,
	confidence = EXCLUDED.confidence,
	reasons = EXCLUDED.reasons,
	match_type = EXCLUDED.match_type,
	created_at = EXCLUDED.created_at
`

	now := globaltime.UTC()
	for _, edge := range edges {
		reasonsJSON, err := json.Marshal(edge.Reasons)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("marshal edge reasons: %w", err)
		}
		if _, err := tx.Exec(
			ctx,
			insertQ,
			edge.SecondaryEventID,
			edge.PrimaryEventID,
			edge.Score,
			string(edge.Confidence),
			string(reasonsJSON),
			edge.MatchType,
			now,
		); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("insert match edge %s/%s: %w", edge.SecondaryEventID, edge.PrimaryEventID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("commit match replace tx: %w", err)
	}
	return nil
}

// replaceDisplayEvents clears and repopulates cal.display_events in one
// transaction (the atomicity the display cache promises its readers).
func (s *Service) replaceDisplayEvents(ctx context.Context, rows []display.Row) error {
	tx, err := s.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin display replace tx: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cal.display_events`); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("clear display events: %w", err)
	}

	const insertQ = `
INSERT INTO cal.display_events (
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
	alternate_url,
	alternate_source,
	position,
	built_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb, $14, $15, $16, $17, $18)
`

	builtAt := globaltime.UTC()
	for i, row := range rows {
		categoriesJSON, err := json.Marshal(normalizedCategories(row.Categories))
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("marshal display categories: %w", err)
		}
		if _, err := tx.Exec(
			ctx,
			insertQ,
			row.ID,
			row.Title,
			row.Date,
			row.StartTime,
			row.StartDate,
			row.EndDate,
			row.Location,
			row.City,
			row.Latitude,
			row.Longitude,
			row.URL,
			row.ImageURL,
			string(categoriesJSON),
			row.Source,
			row.AlternateURL,
			row.AlternateSource,
			i,
			builtAt,
		); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("insert display event %s: %w", row.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("commit display replace tx: %w", err)
	}
	return nil
}

func normalizedCategories(categories []string) []string {
	if categories == nil {
		return []string{}
	}
	return categories
}
