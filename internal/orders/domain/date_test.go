package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/petstore/internal/orders/domain"
)

func TestParseOrderDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "date only",
			input: "2024-03-01",
			want:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "date with time",
			input: "2024-03-01 10:00:00",
			want:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "us style date",
			input:   "03/01/2024",
			wantErr: true,
		},
		{
			name:    "iso timestamp with T separator",
			input:   "2024-03-01T10:00:00",
			wantErr: true,
		},
		{
			name:    "date with partial time",
			input:   "2024-03-01 10:00",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseOrderDate(tt.input)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseOrderDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
