package geom

import (
	"math"
	"testing"
)

// TestRound6 verifies six-decimal rounding with halves going away from zero
func TestRound6(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"already exact", 1.5, 1.5},
		{"truncates low tail", 0.12345649, 0.123456},
		{"rounds high tail up", 0.12345651, 0.123457},
		{"half rounds away from zero", 0.0000005, 0.000001},
		{"negative half rounds away from zero", -0.0000005, -0.000001},
		{"zero", 0, 0},
		{"large value keeps integer part", 12345.6789012, 12345.678901},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round6(tt.in)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Round6(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// TestRectContains verifies inclusive borders
func TestRectContains(t *testing.T) {
	r := Rect{MinX: -0.4, MinY: -0.4, MaxX: 10.4, MaxY: 0.4}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{5, 0}, true},
		{"left border", Point{-0.4, 0}, true},
		{"right border", Point{10.4, 0}, true},
		{"top border", Point{5, -0.4}, true},
		{"bottom border", Point{5, 0.4}, true},
		{"corner", Point{10.4, 0.4}, true},
		{"just outside x", Point{10.41, 0}, false},
		{"just outside y", Point{5, 0.41}, false},
		{"far away", Point{100, 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

// TestRectClamp verifies points get pulled to the nearest border
func TestRectClamp(t *testing.T) {
	r := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}

	tests := []struct {
		name string
		p    Point
		want Point
	}{
		{"inside stays put", Point{5, 5}, Point{5, 5}},
		{"clamps x only", Point{15, 5}, Point{10, 5}},
		{"clamps y only", Point{5, -3}, Point{5, 0}},
		{"clamps both to corner", Point{-1, 12}, Point{0, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Clamp(tt.p); got != tt.want {
				t.Errorf("Clamp(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

// TestRectUnion verifies bounding-box growth
func TestRectUnion(t *testing.T) {
	a := Rect{MinX: 0, MinY: 0, MaxX: 5, MaxY: 5}
	b := Rect{MinX: 3, MinY: -2, MaxX: 8, MaxY: 4}

	got := a.Union(b)
	want := Rect{MinX: 0, MinY: -2, MaxX: 8, MaxY: 5}
	if got != want {
		t.Errorf("Union = %+v, want %+v", got, want)
	}
}

// TestSqDistance verifies the squared metric
func TestSqDistance(t *testing.T) {
	if got := SqDistance(Point{0, 0}, Point{3, 4}); got != 25 {
		t.Errorf("SqDistance = %v, want 25", got)
	}
	if got := SqDistance(Point{1, 1}, Point{1, 1}); got != 0 {
		t.Errorf("SqDistance of equal points = %v, want 0", got)
	}
}

// TestSpeedIsZero verifies exact zero detection
func TestSpeedIsZero(t *testing.T) {
	if !(Speed{}).IsZero() {
		t.Error("zero speed should report IsZero")
	}
	if (Speed{VX: 1e-12}).IsZero() {
		t.Error("tiny but non-zero vx should not report IsZero")
	}
	if (Speed{VY: -2}).IsZero() {
		t.Error("moving speed should not report IsZero")
	}
}
