package db

import (
	"encoding/json"
	"time"
)

// EventRecord maps cal.events. Rows are written by the ingest layer and are
// read-only to the matching and materialization code.
type EventRecord struct {
	EventID    string          `gorm:"column:event_id;type:text;primaryKey"`
	Title      string          `gorm:"column:title;type:text;not null"`
	Date       string          `gorm:"column:date;type:text;not null"`
	StartTime  *string         `gorm:"column:start_time;type:text"`
	StartDate  *string         `gorm:"column:start_date;type:text"`
	EndDate    *string         `gorm:"column:end_date;type:text"`
	Location   *string         `gorm:"column:location;type:text"`
	City       *string         `gorm:"column:city;type:text"`
	Latitude   *float64        `gorm:"column:latitude;type:double precision"`
	Longitude  *float64        `gorm:"column:longitude;type:double precision"`
	URL        *string         `gorm:"column:url;type:text"`
	ImageURL   *string         `gorm:"column:image_url;type:text"`
	Categories json.RawMessage `gorm:"column:categories;type:jsonb;not null;default:'[]'"`
	Source     string          `gorm:"column:source;type:text;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (EventRecord) TableName() string { return "cal.events" }

// EventMatch maps cal.event_matches. The full edge set is recomputed and
// replaced on every pipeline run.
type EventMatch struct {
	MatchID          int64           `gorm:"column:match_id;primaryKey;autoIncrement"`
	SecondaryEventID string          `gorm:"column:secondary_event_id;type:text;not null"`
	PrimaryEventID   string          `gorm:"column:primary_event_id;type:text;not null"`
	Score            float64         `gorm:"column:score;type:double precision;not null"`
	Confidence       string          `gorm:"column:confidence;type:text;not null"`
	Reasons          json.RawMessage `gorm:"column:reasons;type:jsonb;not null;default:'[]'"`
	MatchType        string          `gorm:"column:match_type;type:text;not null;default:auto"`
	CreatedAt        time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (EventMatch) TableName() string { return "cal.event_matches" }

// DisplayEvent maps cal.display_events: the derived, deduplicated cache the
// query API serves. The whole table is deleted and rebuilt in one transaction
// per materialization run and is never hand-edited.
type DisplayEvent struct {
	EventID         string          `gorm:"column:event_id;type:text;primaryKey"`
	Title           string          `gorm:"column:title;type:text;not null"`
	Date            string          `gorm:"column:date;type:text;not null"`
	StartTime       *string         `gorm:"column:start_time;type:text"`
	StartDate       *string         `gorm:"column:start_date;type:text"`
	EndDate         *string         `gorm:"column:end_date;type:text"`
	Location        *string         `gorm:"column:location;type:text"`
	City            *string         `gorm:"column:city;type:text"`
	Latitude        *float64        `gorm:"column:latitude;type:double precision"`
	Longitude       *float64        `gorm:"column:longitude;type:double precision"`
	URL             *string         `gorm:"column:url;type:text"`
	ImageURL        *string         `gorm:"column:image_url;type:text"`
	Categories      json.RawMessage `gorm:"column:categories;type:jsonb;not null;default:'[]'"`
	Source          string          `gorm:"column:source;type:text;not null"`
	AlternateURL    *string         `gorm:"column:alternate_url;type:text"`
	AlternateSource *string         `gorm:"column:alternate_source;type:text"`
	Position        int             `gorm:"column:position;type:integer;not null"`
	BuiltAt         time.Time       `gorm:"column:built_at;type:timestamptz;not null"`
}

func (DisplayEvent) TableName() string { return "cal.display_events" }

func autoMigrateModels() []any {
	return []any{
		&EventRecord{},
		&EventMatch{},
		&DisplayEvent{},
	}
}
