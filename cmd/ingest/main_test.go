package main

import (
	"testing"

	"github.com/mark-c-hall/swapi-characters/internal/models"
)

func TestSameCast(t *testing.T) {
	luke := models.Character{URL: "https://swapi.dev/api/people/1/", Name: "Luke Skywalker"}
	leia := models.Character{URL: "https://swapi.dev/api/people/5/", Name: "Leia Organa"}
	renamed := models.Character{URL: luke.URL, Name: "Luke"}

	tests := []struct {
		name    string
		stored  []models.Character
		fetched []models.Character
		want    bool
	}{
		{"identical", []models.Character{luke, leia}, []models.Character{luke, leia}, true},
		{"empty film", nil, []models.Character{}, true},
		{"reordered", []models.Character{leia, luke}, []models.Character{luke, leia}, false},
		{"missing character", []models.Character{luke}, []models.Character{luke, leia}, false},
		{"stale name", []models.Character{renamed, leia}, []models.Character{luke, leia}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameCast(tt.stored, tt.fetched); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
