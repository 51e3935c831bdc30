// Package payloadschema validates v1 event payloads handed to the ingest
// layer by the per-source fetchers.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed event_item.schema.json
var eventItemSchemaJSON string

type EventItem struct {
	PayloadVersion string   `json:"payload_version"`
	Source         string   `json:"source"`
	SourceEventID  string   `json:"source_event_id"`
	Title          string   `json:"title"`
	Date           string   `json:"date"`
	StartTime      *string  `json:"start_time,omitempty"`
	StartDate      *string  `json:"start_date,omitempty"`
	EndDate        *string  `json:"end_date,omitempty"`
	Location       *string  `json:"location,omitempty"`
	City           *string  `json:"city,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	URL            *string  `json:"url,omitempty"`
	ImageURL       *string  `json:"image_url,omitempty"`
	Categories     []string `json:"categories,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

func ValidateEventItemPayload(payload json.RawMessage) (*EventItem, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var item EventItem
	if err := json.Unmarshal(normalized, &item); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&item); err != nil {
		return nil, err
	}

	return &item, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("event_item.schema.json", strings.NewReader(eventItemSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("event_item.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(item *EventItem) error {
	if item == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(item.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if strings.TrimSpace(item.SourceEventID) == "" {
		return fmt.Errorf("source_event_id must not be empty")
	}
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if strings.TrimSpace(item.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}

	if _, err := time.Parse("2006-01-02", item.Date); err != nil {
		return fmt.Errorf("date must be a real YYYY-MM-DD date: %w", err)
	}
	for fieldName, value := range map[string]*string{
		"start_date": item.StartDate,
		"end_date":   item.EndDate,
	} {
		if value == nil {
			continue
		}
		if _, err := time.Parse("2006-01-02", *value); err != nil {
			return fmt.Errorf("%s must be a real YYYY-MM-DD date: %w", fieldName, err)
		}
	}
	if item.StartTime != nil {
		if _, err := time.Parse("15:04:05", *item.StartTime); err != nil {
			return fmt.Errorf("start_time must be HH:MM:SS: %w", err)
		}
	}

	if (item.Latitude == nil) != (item.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be provided together")
	}

	if item.URL != nil {
		if err := validateURI("url", *item.URL); err != nil {
			return err
		}
	}
	if item.ImageURL != nil {
		if err := validateURI("image_url", *item.ImageURL); err != nil {
			return err
		}
	}

	for i, category := range item.Categories {
		if strings.TrimSpace(category) == "" {
			return fmt.Errorf("categories[%d] must not be empty", i)
		}
	}

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
