package models

import (
	"image"
	"testing"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{in: "paper", want: CategoryPaper},
		{in: " Plastic ", want: CategoryPlastic},
		{in: "FOOD", want: CategoryFood},
		{in: "glass", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCategory(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %q", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHSVRangeContains(t *testing.T) {
	blue := HSVRange{Lower: HSV{100, 150, 50}, Upper: HSV{140, 255, 255}}

	tests := []struct {
		name string
		c    HSV
		want bool
	}{
		{name: "pure blue", c: HSV{120, 255, 255}, want: true},
		{name: "lower corner", c: HSV{100, 150, 50}, want: true},
		{name: "upper corner", c: HSV{140, 255, 255}, want: true},
		{name: "hue too low", c: HSV{99, 200, 200}, want: false},
		{name: "washed out", c: HSV{120, 149, 200}, want: false},
		{name: "too dark", c: HSV{120, 200, 49}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := blue.Contains(tc.c); got != tc.want {
				t.Errorf("Contains(%v): got %v, want %v", tc.c, got, tc.want)
			}
		})
	}
}

func TestRegionRect(t *testing.T) {
	r := Region{X: 10, Y: 20, Width: 30, Height: 40}
	if got, want := r.Rect(), image.Rect(10, 20, 40, 60); got != want {
		t.Errorf("Rect: got %v, want %v", got, want)
	}
}
