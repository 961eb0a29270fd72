// Package search holds the interactive state behind every papergraph
// consumer: the current query, its results, the laid-out graph and the
// selection.
//
// A [Session] is what the TUI and the HTTP server drive. Each search gets a
// fresh request id; starting a new search cancels the previous one, and a
// response is applied only if its id is still current. Arrival order never
// matters.
//
//	s := search.NewSession(client, runner, search.Options{})
//	view, err := s.Search(ctx, "low rank adaptation")
//	view, err = s.SelectNode(ctx, view.Results[1].ID)
//
// Selection changes restyle the existing layout; they never rerun it.
package search
