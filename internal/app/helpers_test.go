package app

import (
	"os"
	"path/filepath"
	"testing"

	"horse.fit/citycal/internal/config"
)

func TestLoadJSONInputPrefersFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "payload.json")
	if err := os.WriteFile(path, []byte(`  {"k":"v"}  `), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	raw, err := loadJSONInput(`{"inline":true}`, path, "payload")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"k":"v"}` {
		t.Fatalf("expected trimmed file contents, got %q", string(raw))
	}
}

func TestLoadJSONInputRejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := loadJSONInput("  ", "", "payload"); err == nil {
		t.Fatalf("expected error for empty inline JSON")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(path, []byte("  "), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := loadJSONInput("", path, "payload"); err == nil {
		t.Fatalf("expected error for empty payload file")
	}
}

func TestMatchOptionsFlagOverridesConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		MatchMinScore:    0.65,
		MatchTitleWeight: 0.5,
		MatchVenueWeight: 0.25,
		MatchTimeWeight:  0.15,
		MatchGeoWeight:   0.10,
	}

	opts := matchOptions(cfg, 0)
	if opts.MinScore != 0.65 {
		t.Fatalf("expected config threshold, got %f", opts.MinScore)
	}

	opts = matchOptions(cfg, 0.8)
	if opts.MinScore != 0.8 {
		t.Fatalf("expected flag threshold to win, got %f", opts.MinScore)
	}
	if opts.Weights == nil || opts.Weights.Title != 0.5 {
		t.Fatalf("expected weights from config, got %+v", opts.Weights)
	}
}
