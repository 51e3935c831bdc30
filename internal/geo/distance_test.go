package geo

import "testing"

func TestDistanceMetersSamePoint(t *testing.T) {
	t.Parallel()

	if got := DistanceMeters(40.7128, -74.0060, 40.7128, -74.0060); got != 0 {
		t.Fatalf("expected zero distance for identical coordinates, got %f", got)
	}
}

func TestDistanceMetersShortRange(t *testing.T) {
	t.Parallel()

	// 0.00045 degrees of latitude is roughly 50 meters.
	got := DistanceMeters(40.7128, -74.0060, 40.71325, -74.0060)
	if got < 45 || got > 55 {
		t.Fatalf("expected roughly 50 m, got %f", got)
	}
}

func TestDistanceMetersLongRange(t *testing.T) {
	t.Parallel()

	// Paris to London is about 343 km.
	got := DistanceMeters(48.8566, 2.3522, 51.5074, -0.1278)
	if got < 340_000 || got > 348_000 {
		t.Fatalf("expected roughly 343 km, got %f", got)
	}
}
