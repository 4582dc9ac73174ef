package services

import (
	"testing"

	"github.com/bobarin/trendcast/internal/models"
)

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		trend string
		want  models.Category
	}{
		{"", models.CategoryGeneral},
		{"Senate vote tonight", models.CategorySkip},
		{"NBA Finals", models.CategorySports},
		{"World Cup draw", models.CategorySports},
		{"Taylor Swift tour", models.CategoryEntertainment},
		{"Oscars red carpet", models.CategoryEntertainment},
		{"Pumpkin spice", models.CategoryGeneral},
		// risky wins over sports
		{"Football stadium attack", models.CategorySkip},
	}

	for _, tt := range tests {
		if got := ClassifyTrend(tt.trend); got != tt.want {
			t.Errorf("ClassifyTrend(%q) = %q, want %q", tt.trend, got, tt.want)
		}
	}
}
