package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/graph"
	"github.com/matzehuels/papergraph/pkg/paper"
	"github.com/matzehuels/papergraph/pkg/pipeline"
	"github.com/matzehuels/papergraph/pkg/render"
	"github.com/matzehuels/papergraph/pkg/search"
)

// viewResponse is the JSON shape of a session view.
type viewResponse struct {
	RequestID string               `json:"request_id,omitempty"`
	Query     string               `json:"query"`
	Phase     search.Phase         `json:"phase"`
	Results   []paper.SearchResult `json:"results"`
	Report    graph.Report         `json:"report"`
	Graph     render.Flow          `json:"graph"`
	FitView   bool                 `json:"fit_view,omitempty"`
	Error     string               `json:"error,omitempty"`
	Stale     bool                 `json:"stale,omitempty"` // The request was superseded; this is the newer state
}

func toResponse(v search.View) viewResponse {
	results := v.Results
	if results == nil {
		results = []paper.SearchResult{}
	}
	return viewResponse{
		RequestID: v.RequestID,
		Query:     v.Query,
		Phase:     v.Phase,
		Results:   results,
		Report:    v.Report,
		Graph:     render.ToFlow(v.Snapshot),
		FitView:   v.FitView,
		Error:     v.Error,
	}
}

type errorResponse struct {
	Error string        `json:"error"`
	Code  pgerrors.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := pgerrors.HTTPStatus(err)
	if status >= 500 {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Error: pgerrors.UserMessage(err), Code: pgerrors.GetCode(err)})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toResponse(s.session.View()))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" && r.Body != nil {
		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			query = body.Query
		}
	}

	v, err := s.session.Search(r.Context(), query)
	switch {
	case errors.Is(err, search.ErrSuperseded):
		resp := toResponse(v)
		resp.Stale = true
		writeJSON(w, http.StatusOK, resp)
	case err != nil:
		s.writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, toResponse(v))
	}
}

func (s *Server) selectNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	if err := pgerrors.ValidatePaperID(id); err != nil {
		s.writeError(w, err)
		return
	}
	v, err := s.session.SelectNode(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(v))
}

func (s *Server) clearSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toResponse(s.session.ClearSelection(r.Context())))
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Source string `json:"source"`
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, pgerrors.Wrap(pgerrors.ErrCodeInvalidInput, err, "invalid connect body"))
		return
	}
	s.session.Connect(r.Context(), body.Source, body.Target)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) renderView(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := render.ValidateFormat(format); err != nil {
		s.writeError(w, err)
		return
	}

	snap := s.session.View().Snapshot
	data, err := s.runner.Render(r.Context(), snap, pipeline.Options{Formats: []string{format}})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", render.ContentType(format))
	_, _ = w.Write(data[format])
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.writeError(w, pgerrors.New(pgerrors.ErrCodeUnsupported, "status lookups are not configured"))
		return
	}

	var ids []string
	for _, v := range r.URL.Query()["paper_id"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if err := pgerrors.ValidatePaperIDs(ids); err != nil {
		s.writeError(w, err)
		return
	}

	statuses, err := s.status.StatusBatched(r.Context(), ids)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}
