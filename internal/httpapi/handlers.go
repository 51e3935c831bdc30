package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"horse.fit/citycal/internal/db"
	"horse.fit/citycal/internal/display"
	"horse.fit/citycal/internal/globaltime"
	"horse.fit/citycal/internal/ics"
)

type displayEventDTO struct {
	EventID         string    `json:"event_id"`
	Title           string    `json:"title"`
	Date            string    `json:"date"`
	StartTime       *string   `json:"start_time,omitempty"`
	StartDate       *string   `json:"start_date,omitempty"`
	EndDate         *string   `json:"end_date,omitempty"`
	Location        *string   `json:"location,omitempty"`
	City            *string   `json:"city,omitempty"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	URL             *string   `json:"url,omitempty"`
	ImageURL        *string   `json:"image_url,omitempty"`
	Categories      []string  `json:"categories"`
	Source          string    `json:"source"`
	AlternateURL    *string   `json:"alternate_url,omitempty"`
	AlternateSource *string   `json:"alternate_source,omitempty"`
	Position        int       `json:"position"`
	BuiltAt         time.Time `json:"built_at"`
}

type matchEdgeDTO struct {
	MatchID          int64     `json:"match_id"`
	SecondaryEventID string    `json:"secondary_event_id"`
	PrimaryEventID   string    `json:"primary_event_id"`
	Score            float64   `json:"score"`
	Confidence       string    `json:"confidence"`
	Reasons          []string  `json:"reasons"`
	MatchType        string    `json:"match_type"`
	CreatedAt        time.Time `json:"created_at"`
}

type eventFilters struct {
	query  string
	from   string
	to     string
	source string
	city   string
}

const selectDisplayColumns = `
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
	alternate_source,
	position,
	built_at
FROM cal.display_events
`

func (s *Server) handleEvents(c echo.Context) error {
	page, pageSize, fieldErrors := parsePagination(c)
	filters, filterErrors := parseEventFilters(c)
	for field, msg := range filterErrors {
		fieldErrors[field] = msg
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	where, args := buildEventFilterClause(filters)
	ctx := c.Request().Context()

	var total int
	countQ := `SELECT COUNT(*) FROM cal.display_events` + where
	if err := s.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		s.logger.Error().Err(err).Msg("count display events failed")
		return internalError(c, "Failed to list events")
	}

	listQ := selectDisplayColumns + where + fmt.Sprintf(`
ORDER BY position ASC
LIMIT $%d OFFSET $%d
`, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.pool.Query(ctx, listQ, args...)
	if err != nil {
		s.logger.Error().Err(err).Msg("query display events failed")
		return internalError(c, "Failed to list events")
	}
	defer rows.Close()

	events, err := scanDisplayEvents(rows)
	if err != nil {
		s.logger.Error().Err(err).Msg("scan display events failed")
		return internalError(c, "Failed to list events")
	}

	return success(c, map[string]any{
		"events": events,
		"pagination": map[string]any{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": (total + pageSize - 1) / pageSize,
		},
	})
}

func (s *Server) handleEventDetail(c echo.Context) error {
	eventID := strings.TrimSpace(c.Param("event_id"))
	if eventID == "" {
		return failValidation(c, map[string]string{"event_id": "event_id is required"})
	}

	ctx := c.Request().Context()
	q := selectDisplayColumns + `WHERE event_id = $1`

	rows, err := s.pool.Query(ctx, q, eventID)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", eventID).Msg("query display event failed")
		return internalError(c, "Failed to load event")
	}
	defer rows.Close()

	events, err := scanDisplayEvents(rows)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", eventID).Msg("scan display event failed")
		return internalError(c, "Failed to load event")
	}
	if len(events) == 0 {
		return failNotFound(c, "Event not found")
	}

	edges, err := s.loadEdgesForEvent(ctx, eventID)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", eventID).Msg("load event matches failed")
		return internalError(c, "Failed to load event")
	}

	return success(c, map[string]any{
		"event":   events[0],
		"matches": edges,
	})
}

func (s *Server) handleMatches(c echo.Context) error {
	page, pageSize, fieldErrors := parsePagination(c)
	confidence := strings.ToLower(strings.TrimSpace(c.QueryParam("confidence")))
	switch confidence {
	case "", "high", "medium", "low":
	default:
		fieldErrors["confidence"] = "confidence must be one of high, medium, low"
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	where := ""
	args := []any{}
	if confidence != "" {
		where = ` WHERE confidence = $1`
		args = append(args, confidence)
	}

	ctx := c.Request().Context()

	var total int
	countQ := `SELECT COUNT(*) FROM cal.event_matches` + where
	if err := s.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		s.logger.Error().Err(err).Msg("count match edges failed")
		return internalError(c, "Failed to list matches")
	}

	listQ := `
SELECT
	match_id,
	secondary_event_id,
	primary_event_id,
	score,
	confidence,
	reasons,
	match_type,
	created_at
FROM cal.event_matches` + where + fmt.Sprintf(`
ORDER BY score DESC, match_id ASC
LIMIT $%d OFFSET $%d
`, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.pool.Query(ctx, listQ, args...)
	if err != nil {
		s.logger.Error().Err(err).Msg("query match edges failed")
		return internalError(c, "Failed to list matches")
	}
	defer rows.Close()

	edges, err := scanMatchEdges(rows)
	if err != nil {
		s.logger.Error().Err(err).Msg("scan match edges failed")
		return internalError(c, "Failed to list matches")
	}

	return success(c, map[string]any{
		"matches": edges,
		"pagination": map[string]any{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": (total + pageSize - 1) / pageSize,
		},
	})
}

func (s *Server) handleStats(c echo.Context) error {
	ctx := c.Request().Context()

	stats := map[string]any{}

	var totalEvents, displayEvents int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cal.events`).Scan(&totalEvents); err != nil {
		s.logger.Error().Err(err).Msg("count events failed")
		return internalError(c, "Failed to load stats")
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cal.display_events`).Scan(&displayEvents); err != nil {
		s.logger.Error().Err(err).Msg("count display events failed")
		return internalError(c, "Failed to load stats")
	}
	stats["events_total"] = totalEvents
	stats["display_events"] = displayEvents
	stats["events_excluded"] = totalEvents - displayEvents

	bySource, err := s.countGrouped(ctx, `SELECT source, COUNT(*) FROM cal.events GROUP BY source ORDER BY source`)
	if err != nil {
		s.logger.Error().Err(err).Msg("count events by source failed")
		return internalError(c, "Failed to load stats")
	}
	stats["events_by_source"] = bySource

	byConfidence, err := s.countGrouped(ctx, `SELECT confidence, COUNT(*) FROM cal.event_matches GROUP BY confidence ORDER BY confidence`)
	if err != nil {
		s.logger.Error().Err(err).Msg("count matches by confidence failed")
		return internalError(c, "Failed to load stats")
	}
	stats["matches_by_confidence"] = byConfidence

	var lastBuiltAt *time.Time
	if err := s.pool.QueryRow(ctx, `SELECT MAX(built_at) FROM cal.display_events`).Scan(&lastBuiltAt); err != nil {
		s.logger.Error().Err(err).Msg("read last build time failed")
		return internalError(c, "Failed to load stats")
	}
	stats["last_materialized_at"] = lastBuiltAt

	return success(c, stats)
}

func (s *Server) handleCalendarFeed(c echo.Context) error {
	ctx := c.Request().Context()

	rows, err := s.pool.Query(ctx, selectDisplayColumns+`ORDER BY position ASC`)
	if err != nil {
		s.logger.Error().Err(err).Msg("query display events for feed failed")
		return internalError(c, "Failed to build calendar feed")
	}
	defer rows.Close()

	displayRows, err := scanDisplayRows(rows)
	if err != nil {
		s.logger.Error().Err(err).Msg("scan display events for feed failed")
		return internalError(c, "Failed to build calendar feed")
	}

	cal, skipped, err := ics.BuildCalendar(displayRows, globaltime.UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("build calendar feed failed")
		return internalError(c, "Failed to build calendar feed")
	}
	if len(skipped) > 0 {
		s.logger.Warn().Strs("event_ids", skipped).Msg("events skipped in calendar feed")
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/calendar; charset=utf-8")
	c.Response().Header().Set("Content-Disposition", `attachment; filename="citycal.ics"`)
	return c.String(http.StatusOK, cal.Serialize())
}

func (s *Server) loadEdgesForEvent(ctx context.Context, eventID string) ([]matchEdgeDTO, error) {
	const q = `
SELECT
	match_id,
	secondary_event_id,
	primary_event_id,
	score,
	confidence,
	reasons,
	match_type,
	created_at
FROM cal.event_matches
WHERE secondary_event_id = $1 OR primary_event_id = $1
ORDER BY score DESC, match_id ASC
`
	rows, err := s.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("query matches for event %s: %w", eventID, err)
	}
	defer rows.Close()
	return scanMatchEdges(rows)
}

func (s *Server) countGrouped(ctx context.Context, q string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

func parsePagination(c echo.Context) (page, pageSize int, fieldErrors map[string]string) {
	fieldErrors = map[string]string{}

	page = 1
	if raw := strings.TrimSpace(c.QueryParam("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			fieldErrors["page"] = "page must be a positive integer"
		} else {
			page = parsed
		}
	}

	pageSize = defaultPageSize
	if raw := strings.TrimSpace(c.QueryParam("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			fieldErrors["page_size"] = "page_size must be a positive integer"
		} else if parsed > maxPageSize {
			fieldErrors["page_size"] = fmt.Sprintf("page_size must not exceed %d", maxPageSize)
		} else {
			pageSize = parsed
		}
	}

	return page, pageSize, fieldErrors
}

func parseEventFilters(c echo.Context) (eventFilters, map[string]string) {
	fieldErrors := map[string]string{}
	filters := eventFilters{
		query:  strings.TrimSpace(c.QueryParam("q")),
		from:   strings.TrimSpace(c.QueryParam("from")),
		to:     strings.TrimSpace(c.QueryParam("to")),
		source: strings.ToLower(strings.TrimSpace(c.QueryParam("source"))),
		city:   strings.TrimSpace(c.QueryParam("city")),
	}

	if filters.from != "" {
		if _, err := time.Parse("2006-01-02", filters.from); err != nil {
			fieldErrors["from"] = "from must be a YYYY-MM-DD date"
		}
	}
	if filters.to != "" {
		if _, err := time.Parse("2006-01-02", filters.to); err != nil {
			fieldErrors["to"] = "to must be a YYYY-MM-DD date"
		}
	}

	return filters, fieldErrors
}

func buildEventFilterClause(filters eventFilters) (string, []any) {
	var clauses []string
	var args []any

	appendClause := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filters.query != "" {
		appendClause("(title ILIKE '%%' || $%d || '%%' OR location ILIKE '%%' || $%[1]d || '%%')", filters.query)
	}
	if filters.from != "" {
		appendClause("date >= $%d", filters.from)
	}
	if filters.to != "" {
		appendClause("date <= $%d", filters.to)
	}
	if filters.source != "" {
		appendClause("source = $%d", filters.source)
	}
	if filters.city != "" {
		appendClause("city ILIKE $%d", filters.city)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanDisplayEvents(rows *db.Rows) ([]displayEventDTO, error) {
	var events []displayEventDTO
	for rows.Next() {
		var dto displayEventDTO
		var categoriesJSON []byte
		if err := rows.Scan(
			&dto.EventID,
			&dto.Title,
			&dto.Date,
			&dto.StartTime,
			&dto.StartDate,
			&dto.EndDate,
			&dto.Location,
			&dto.City,
			&dto.Latitude,
			&dto.Longitude,
			&dto.URL,
			&dto.ImageURL,
			&categoriesJSON,
			&dto.Source,
			&dto.AlternateURL,
			&dto.AlternateSource,
			&dto.Position,
			&dto.BuiltAt,
		); err != nil {
			return nil, fmt.Errorf("scan display event: %w", err)
		}
		dto.Categories = []string{}
		if len(categoriesJSON) > 0 {
			if err := json.Unmarshal(categoriesJSON, &dto.Categories); err != nil {
				return nil, fmt.Errorf("unmarshal categories for %s: %w", dto.EventID, err)
			}
		}
		events = append(events, dto)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate display events: %w", err)
	}
	if events == nil {
		events = []displayEventDTO{}
	}
	return events, nil
}

func scanDisplayRows(rows *db.Rows) ([]display.Row, error) {
	var out []display.Row
	for rows.Next() {
		var row display.Row
		var categoriesJSON []byte
		var position int
		var builtAt time.Time
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
			&position,
			&builtAt,
		); err != nil {
			return nil, fmt.Errorf("scan display row: %w", err)
		}
		if len(categoriesJSON) > 0 {
			if err := json.Unmarshal(categoriesJSON, &row.Categories); err != nil {
				return nil, fmt.Errorf("unmarshal categories for %s: %w", row.ID, err)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate display rows: %w", err)
	}
	return out, nil
}

func scanMatchEdges(rows *db.Rows) ([]matchEdgeDTO, error) {
	var edges []matchEdgeDTO
	for rows.Next() {
		var dto matchEdgeDTO
		var reasonsJSON []byte
		if err := rows.Scan(
			&dto.MatchID,
			&dto.SecondaryEventID,
			&dto.PrimaryEventID,
			&dto.Score,
			&dto.Confidence,
			&reasonsJSON,
			&dto.MatchType,
			&dto.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match edge: %w", err)
		}
		dto.Reasons = []string{}
		if len(reasonsJSON) > 0 {
			if err := json.Unmarshal(reasonsJSON, &dto.Reasons); err != nil {
				return nil, fmt.Errorf("unmarshal reasons for match %d: %w", dto.MatchID, err)
			}
		}
		edges = append(edges, dto)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match edges: %w", err)
	}
	if edges == nil {
		edges = []matchEdgeDTO{}
	}
	return edges, nil
}
