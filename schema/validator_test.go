package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateEventItemPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"metrotix",
		"source_event_id":"900",
		"title":"Fall Art Walk 2025 - Downtown",
		"date":"2025-10-04",
		"start_time":"18:00:00",
		"location":"Downtown Arts District",
		"city":"Springfield",
		"latitude":40.7128,
		"longitude":-74.0060,
		"url":"https://metrotix.example/events/900",
		"categories":["art","festival"]
	}`)

	item, err := ValidateEventItemPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}

	if item.Source != "metrotix" {
		t.Fatalf("expected source=metrotix, got %q", item.Source)
	}
	if item.Date != "2025-10-04" {
		t.Fatalf("expected date preserved, got %q", item.Date)
	}
	if item.StartTime == nil || *item.StartTime != "18:00:00" {
		t.Fatalf("expected start_time preserved, got %v", item.StartTime)
	}
}

func TestValidateEventItemPayload_MissingRequired(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"metrotix",
		"title":"Missing source event id",
		"date":"2025-10-04"
	}`)

	if _, err := ValidateEventItemPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for missing source_event_id")
	}
}

func TestValidateEventItemPayload_BadDate(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"metrotix",
		"source_event_id":"900",
		"title":"Fall Art Walk",
		"date":"2025-02-30"
	}`)

	_, err := ValidateEventItemPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for an impossible calendar date")
	}
	if !strings.Contains(err.Error(), "date") {
		t.Fatalf("expected date error, got: %v", err)
	}
}

func TestValidateEventItemPayload_LoneCoordinate(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"metrotix",
		"source_event_id":"900",
		"title":"Fall Art Walk",
		"date":"2025-10-04",
		"latitude":40.7128
	}`)

	_, err := ValidateEventItemPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for latitude without longitude")
	}
	if !strings.Contains(err.Error(), "together") {
		t.Fatalf("expected paired-coordinate error, got: %v", err)
	}
}

func TestValidateEventItemPayload_WrongVersion(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v2",
		"source":"metrotix",
		"source_event_id":"900",
		"title":"Fall Art Walk",
		"date":"2025-10-04"
	}`)

	if _, err := ValidateEventItemPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for unsupported payload version")
	}
}

func TestValidateEventItemPayload_UnknownField(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"metrotix",
		"source_event_id":"900",
		"title":"Fall Art Walk",
		"date":"2025-10-04",
		"surprise":"field"
	}`)

	if _, err := ValidateEventItemPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for an unknown field")
	}
}

func TestValidateEventItemPayload_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"payload_version":"v1","source":"metrotix","source_event_id":"900","title":"x","date":"2025-10-04"} extra`)

	if _, err := ValidateEventItemPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for trailing content")
	}
}
