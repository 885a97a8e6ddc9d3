package core

import (
	"math"
	"testing"
)

func TestInteractionValidate(t *testing.T) {
	ok := 50
	bad := -1
	tests := []struct {
		name    string
		in      Interaction
		wantErr bool
	}{
		{name: "valid neutral", in: Interaction{Liked: 0, WatchedPercent: 50}},
		{name: "valid liked with reaction point", in: Interaction{Liked: 1, WatchedPercent: 100, WhenReacted: &ok}},
		{name: "liked out of range", in: Interaction{Liked: 2}, wantErr: true},
		{name: "watched over range", in: Interaction{WatchedPercent: 101}, wantErr: true},
		{name: "whenReacted negative", in: Interaction{WhenReacted: &bad}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr != (err != nil) {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsInvalidInput(err) {
				t.Errorf("Validate() error must be INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestInteractionWeight(t *testing.T) {
	tests := []struct {
		name    string
		liked   int
		watched int
		want    float64
	}{
		{name: "liked boosts", liked: 1, watched: 100, want: 1.5},
		{name: "disliked dampens", liked: -1, watched: 100, want: 0.3},
		{name: "neutral", liked: 0, watched: 80, want: 0.8},
		{name: "zero watch", liked: 1, watched: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Interaction{Liked: tt.liked, WatchedPercent: tt.watched}
			if got := in.Weight(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Weight() = %v, want %v", got, tt.want)
			}
		})
	}
}
