package protocol

import (
	"math"
	"testing"
)

func TestLongitudeDMS(t *testing.T) {
	tests := []struct {
		decimal float64
		want    Coordinate
	}{
		{11.5752, Coordinate{Degrees: 11, Minutes: 34, Seconds: 30.72, Hemisphere: "E"}},
		{-0.1278, Coordinate{Degrees: 0, Minutes: 7, Seconds: 40.08, Hemisphere: "W"}},
		{0, Coordinate{Degrees: 0, Minutes: 0, Seconds: 0, Hemisphere: "E"}},
	}
	for _, tt := range tests {
		got := LongitudeDMS(tt.decimal)
		if got.Degrees != tt.want.Degrees || got.Minutes != tt.want.Minutes || got.Hemisphere != tt.want.Hemisphere {
			t.Fatalf("LongitudeDMS(%v) = %+v, want %+v", tt.decimal, got, tt.want)
		}
		if math.Abs(got.Seconds-tt.want.Seconds) > 0.001 {
			t.Fatalf("LongitudeDMS(%v) seconds = %v, want %v", tt.decimal, got.Seconds, tt.want.Seconds)
		}
	}
}

func TestLatitudeDMSSouth(t *testing.T) {
	got := LatitudeDMS(-33.925)
	want := Coordinate{Degrees: 33, Minutes: 55, Seconds: 30, Hemisphere: "S"}
	if got.Degrees != want.Degrees || got.Minutes != want.Minutes || got.Hemisphere != want.Hemisphere {
		t.Fatalf("LatitudeDMS(-33.925) = %+v, want %+v", got, want)
	}
	if math.Abs(got.Seconds-want.Seconds) > 0.001 {
		t.Fatalf("seconds = %v, want %v", got.Seconds, want.Seconds)
	}
}

func TestDMSRoundingDoesNotOverflowSeconds(t *testing.T) {
	got := LatitudeDMS(48.99999999)
	if got.Seconds >= 60 || got.Minutes >= 60 {
		t.Fatalf("rounding overflowed: %+v", got)
	}
	if got.Degrees != 49 {
		t.Fatalf("degrees = %d, want 49 after carry", got.Degrees)
	}
}

func TestCoordinateRoundTrip(t *testing.T) {
	for _, decimal := range []float64{11.5752, -33.925, 179.9999, -0.0003} {
		c := LongitudeDMS(decimal)
		if got := c.Decimal(); math.Abs(got-decimal) > 1e-6 {
			t.Fatalf("round trip %v -> %v", decimal, got)
		}
	}
}
