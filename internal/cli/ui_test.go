package cli

import (
	"strings"
	"testing"

	"github.com/matzehuels/papergraph/pkg/paper"
)

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		name    string
		authors []string
		want    string
	}{
		{"none", nil, ""},
		{"one", []string{"Ada"}, "Ada"},
		{"three", []string{"Ada", "Bo", "Cy"}, "Ada, Bo, Cy"},
		{"five", []string{"Ada", "Bo", "Cy", "Di", "Ed"}, "Ada, Bo, Cy +2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAuthors(tt.authors); got != tt.want {
				t.Errorf("formatAuthors() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScoreMarker(t *testing.T) {
	score := func(v float64) *float64 { return &v }
	tests := []struct {
		name  string
		score *float64
		want  string
	}{
		{"missing", nil, " "},
		{"low", score(0.2), " "},
		{"boundary", score(0.5), " "},
		{"high", score(0.9), iconHighScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreMarker(paper.SearchResult{ID: "p", Score: tt.score}); got != tt.want {
				t.Errorf("scoreMarker() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResultsTable(t *testing.T) {
	results := []paper.SearchResult{
		{ID: "p1", Title: "Attention Is All You Need", Authors: []string{"Vaswani"}},
		{ID: "p2"},
	}
	out := resultsTable(results, "p1")
	for _, want := range []string{"Attention Is All You Need", "Vaswani", "p2", "Title"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
