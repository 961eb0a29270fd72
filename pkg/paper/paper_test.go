package paper

import (
	"encoding/json"
	"math"
	"testing"
)

func TestSearchResponseUnmarshal(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantResults int
		wantGraph   bool
	}{
		{
			name:        "object",
			input:       `{"results":[{"id":"a","title":"A","authors":[]}]}`,
			wantResults: 1,
		},
		{
			name:        "object with graph",
			input:       `{"results":[],"graph":{"nodes":[{"id":"a","centrality":0.5}],"edges":[]}}`,
			wantResults: 0,
			wantGraph:   true,
		},
		{
			name:        "bare array",
			input:       `  [{"id":"a"},{"id":"b","score":0.9,"related_ids":["c"]}]`,
			wantResults: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp SearchResponse
			if err := json.Unmarshal([]byte(tt.input), &resp); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if len(resp.Results) != tt.wantResults {
				t.Errorf("results = %d, want %d", len(resp.Results), tt.wantResults)
			}
			if (resp.Graph != nil) != tt.wantGraph {
				t.Errorf("graph present = %v, want %v", resp.Graph != nil, tt.wantGraph)
			}
		})
	}
}

func TestSearchResponseUnmarshalInvalid(t *testing.T) {
	var resp SearchResponse
	if err := json.Unmarshal([]byte(`[{"id":1}]`), &resp); err == nil {
		t.Error("expected error for mistyped id")
	}
}

func TestScoreValue(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name  string
		score *float64
		want  float64
	}{
		{"missing", nil, 0},
		{"positive", f(0.64), 0.64},
		{"negative", f(-1), 0},
		{"nan", f(math.NaN()), 0},
		{"inf", f(math.Inf(1)), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := SearchResult{ID: "x", Score: tt.score}
			if got := r.ScoreValue(); got != tt.want {
				t.Errorf("ScoreValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDisplayTitle(t *testing.T) {
	if got := (SearchResult{ID: "p1"}).DisplayTitle(); got != "p1" {
		t.Errorf("DisplayTitle() = %q, want p1", got)
	}
	if got := (SearchResult{ID: "p1", Title: "Attention"}).DisplayTitle(); got != "Attention" {
		t.Errorf("DisplayTitle() = %q, want Attention", got)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusEmbedded, StatusSeen, StatusError} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("done").Valid() {
		t.Error(`"done" should be invalid`)
	}
}
