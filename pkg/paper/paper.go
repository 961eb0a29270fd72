// Package paper defines the wire types exchanged with the paper search service.
//
// These types mirror the JSON the search backend returns. They are decoded
// leniently: missing scores, titles, and related ids are legal, and graph
// resolution in pkg/graph turns them into a well-formed layout graph.
package paper

import (
	"encoding/json"
	"math"
)

// Status is the processing state of a paper on the search backend.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusEmbedded Status = "embedded"
	StatusSeen     Status = "seen"
	StatusError    Status = "error"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusEmbedded, StatusSeen, StatusError:
		return true
	}
	return false
}

// SearchResult is one ranked hit. Score and RelatedIDs are optional.
type SearchResult struct {
	ID         string   `json:"id" bson:"id"`
	Title      string   `json:"title" bson:"title"`
	Authors    []string `json:"authors" bson:"authors"`
	Score      *float64 `json:"score,omitempty" bson:"score,omitempty"`
	RelatedIDs []string `json:"related_ids,omitempty" bson:"related_ids,omitempty"`
}

// ScoreValue returns the score, treating missing, negative, and non-finite
// values as 0.
func (r SearchResult) ScoreValue() float64 {
	if r.Score == nil {
		return 0
	}
	return NonNegative(*r.Score)
}

// DisplayTitle returns the title, or the id when the title is empty.
func (r SearchResult) DisplayTitle() string {
	if r.Title == "" {
		return r.ID
	}
	return r.Title
}

// GraphNode is a node of an explicit citation or co-authorship graph.
type GraphNode struct {
	ID         string   `json:"id" bson:"id"`
	Title      string   `json:"title" bson:"title"`
	Authors    []string `json:"authors" bson:"authors"`
	Centrality float64  `json:"centrality" bson:"centrality"`
}

// GraphEdge is an edge of an explicit graph. Type is free-form
// ("citation", "coauthor", ...).
type GraphEdge struct {
	Source string  `json:"source" bson:"source"`
	Target string  `json:"target" bson:"target"`
	Weight float64 `json:"weight" bson:"weight"`
	Type   string  `json:"type" bson:"type"`
}

// GraphData is an explicit graph as served by the /graph endpoint.
type GraphData struct {
	Nodes []GraphNode `json:"nodes" bson:"nodes"`
	Edges []GraphEdge `json:"edges" bson:"edges"`
}

// PaperStatus reports where a paper is in the ingestion pipeline.
type PaperStatus struct {
	ID      string `json:"id" bson:"id"`
	Status  Status `json:"status" bson:"status"`
	InGraph bool   `json:"in_graph" bson:"in_graph"`
}

// SearchResponse is the body of the /search endpoint.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Graph   *GraphData     `json:"graph,omitempty"`
}

// UnmarshalJSON accepts both the object form and a bare array of results,
// which older backends return.
func (r *SearchResponse) UnmarshalJSON(data []byte) error {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			var results []SearchResult
			if err := json.Unmarshal(data, &results); err != nil {
				return err
			}
			*r = SearchResponse{Results: results}
			return nil
		}
		break
	}
	type plain SearchResponse
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = SearchResponse(p)
	return nil
}

// NonNegative maps NaN, ±Inf, and negative values to 0.
func NonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Finite maps NaN and ±Inf to 0 and leaves other values unchanged.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
