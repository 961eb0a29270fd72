package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/paper"
	"github.com/matzehuels/papergraph/pkg/search"
)

type searchFunc func(ctx context.Context, query string, topK int) (*paper.SearchResponse, error)

func (f searchFunc) Search(ctx context.Context, query string, topK int) (*paper.SearchResponse, error) {
	return f(ctx, query, topK)
}

type statusFunc func(ctx context.Context, ids []string) ([]paper.PaperStatus, error)

func (f statusFunc) StatusBatched(ctx context.Context, ids []string) ([]paper.PaperStatus, error) {
	return f(ctx, ids)
}

func score(v float64) *float64 { return &v }

func papers() *paper.SearchResponse {
	return &paper.SearchResponse{Results: []paper.SearchResult{
		{ID: "10.1000/a", Title: "Attention", Score: score(0.9), RelatedIDs: []string{"b"}},
		{ID: "b", Title: "BERT", Score: score(0.5)},
		{ID: "c", Title: "CLIP", Score: score(0.1)},
	}}
}

func newTestServer(t *testing.T, s search.Searcher, status StatusFetcher) *httptest.Server {
	t.Helper()
	srv := New(Config{
		Session:        search.NewSession(s, nil, search.Options{}),
		Status:         status,
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf strings.Builder
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, []byte(buf.String())
}

func decodeView(t *testing.T, data []byte) viewResponse {
	t.Helper()
	var v viewResponse
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode view: %v\n%s", err, data)
	}
	return v
}

func okSearcher() search.Searcher {
	return searchFunc(func(context.Context, string, int) (*paper.SearchResponse, error) {
		return papers(), nil
	})
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, okSearcher(), nil)
	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("status = %d, body = %s", resp.StatusCode, body)
	}
}

func TestViewBeforeSearch(t *testing.T) {
	ts := newTestServer(t, okSearcher(), nil)
	resp, body := do(t, http.MethodGet, ts.URL+"/api/view", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	v := decodeView(t, body)
	if v.Phase != search.PhaseIdle || len(v.Graph.Nodes) != 0 || v.Results == nil {
		t.Errorf("view = %+v", v)
	}
}

func TestSearchAndSelect(t *testing.T) {
	ts := newTestServer(t, okSearcher(), nil)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/search?query=attention", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d: %s", resp.StatusCode, body)
	}
	v := decodeView(t, body)
	if v.Graph.Selected != "10.1000/a" || len(v.Graph.Nodes) != 3 {
		t.Errorf("search view = %+v", v.Graph)
	}

	resp, body = do(t, http.MethodPost, ts.URL+"/api/select/c", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select status = %d: %s", resp.StatusCode, body)
	}
	if v = decodeView(t, body); v.Graph.Selected != "c" {
		t.Errorf("selected = %q", v.Graph.Selected)
	}

	// Ids with slashes route through the wildcard.
	resp, body = do(t, http.MethodPost, ts.URL+"/api/select/10.1000/a", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select doi status = %d: %s", resp.StatusCode, body)
	}
	if v = decodeView(t, body); v.Graph.Selected != "10.1000/a" {
		t.Errorf("selected = %q", v.Graph.Selected)
	}

	resp, body = do(t, http.MethodDelete, ts.URL+"/api/select", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear status = %d", resp.StatusCode)
	}
	if v = decodeView(t, body); v.Graph.Selected != "" || !v.FitView {
		t.Errorf("clear view = %+v", v)
	}
}

func TestSearchJSONBody(t *testing.T) {
	ts := newTestServer(t, okSearcher(), nil)
	resp, body := do(t, http.MethodPost, ts.URL+"/api/search", `{"query":"attention"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if v := decodeView(t, body); v.Query != "attention" {
		t.Errorf("query = %q", v.Query)
	}
}

func TestErrorStatus(t *testing.T) {
	failing := searchFunc(func(context.Context, string, int) (*paper.SearchResponse, error) {
		return nil, pgerrors.New(pgerrors.ErrCodeNetwork, "backend down")
	})

	tests := []struct {
		name     string
		searcher search.Searcher
		method   string
		path     string
		want     int
		wantCode pgerrors.Code
	}{
		{"empty query", okSearcher(), http.MethodPost, "/api/search", 400, pgerrors.ErrCodeInvalidQuery},
		{"upstream failure", failing, http.MethodPost, "/api/search?query=x", 502, pgerrors.ErrCodeNetwork},
		{"unknown node", okSearcher(), http.MethodPost, "/api/select/zzz", 404, pgerrors.ErrCodeNodeNotFound},
		{"bad format", okSearcher(), http.MethodGet, "/api/view.png", 400, pgerrors.ErrCodeInvalidFormat},
		{"status unconfigured", okSearcher(), http.MethodGet, "/api/status?paper_id=a", 501, pgerrors.ErrCodeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.searcher, nil)
			resp, body := do(t, tt.method, ts.URL+tt.path, "")
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
			var e errorResponse
			if err := json.Unmarshal(body, &e); err != nil {
				t.Fatal(err)
			}
			if e.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", e.Code, tt.wantCode)
			}
		})
	}
}

func TestRenderView(t *testing.T) {
	ts := newTestServer(t, okSearcher(), nil)
	do(t, http.MethodPost, ts.URL+"/api/search?query=attention", "")

	resp, body := do(t, http.MethodGet, ts.URL+"/api/view.dot", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/vnd.graphviz") {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), `"10.1000/a" -> "b"`) {
		t.Errorf("dot = %s", body)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/api/view.json", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"type":"paper"`) {
		t.Errorf("json status = %d body = %s", resp.StatusCode, body)
	}
}

func TestStatus(t *testing.T) {
	var got []string
	status := statusFunc(func(_ context.Context, ids []string) ([]paper.PaperStatus, error) {
		got = ids
		out := make([]paper.PaperStatus, len(ids))
		for i, id := range ids {
			out[i] = paper.PaperStatus{ID: id, Status: paper.StatusEmbedded, InGraph: true}
		}
		return out, nil
	})
	ts := newTestServer(t, okSearcher(), status)

	resp, body := do(t, http.MethodGet, ts.URL+"/api/status?paper_id=a,b&paper_id=c", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if strings.Join(got, " ") != "a b c" {
		t.Errorf("ids = %v", got)
	}
	var statuses []paper.PaperStatus
	if err := json.Unmarshal(body, &statuses); err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 3 || !statuses[0].InGraph {
		t.Errorf("statuses = %+v", statuses)
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/status", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing ids status = %d", resp.StatusCode)
	}
}

func TestConnect(t *testing.T) {
	ts := newTestServer(t, okSearcher(), nil)
	resp, _ := do(t, http.MethodPost, ts.URL+"/api/connect", `{"source":"a","target":"b"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodPost, ts.URL+"/api/connect", `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body status = %d", resp.StatusCode)
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, okSearcher(), nil)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/search", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
