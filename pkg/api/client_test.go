package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/papergraph/pkg/cache"
	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/paper"
)

var fastBackoff = cache.Backoff{Attempts: 3, Delay: time.Millisecond}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBackoff(fastBackoff), WithRateLimit(0)}, opts...)
	c, err := NewClient(srv.URL, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, &calls
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantGraph bool
	}{
		{"object", `{"results":[{"id":"a","title":"A","authors":["X"],"score":0.7}]}`, 1, false},
		{"object with graph", `{"results":[],"graph":{"nodes":[],"edges":[]}}`, 0, true},
		{"bare array", `[{"id":"a"},{"id":"b"}]`, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/search" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if r.URL.Query().Get("query") != "graph nets" || r.URL.Query().Get("top_k") != "5" {
					t.Errorf("query = %s", r.URL.RawQuery)
				}
				w.Write([]byte(tt.body))
			})

			resp, err := c.Search(context.Background(), "graph nets", 5)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(resp.Results) != tt.wantCount {
				t.Errorf("results = %d, want %d", len(resp.Results), tt.wantCount)
			}
			if (resp.Graph != nil) != tt.wantGraph {
				t.Errorf("graph = %v, want %v", resp.Graph != nil, tt.wantGraph)
			}
		})
	}
}

func TestSearchDefaultTopK(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("top_k"); got != "7" {
			t.Errorf("top_k = %s, want 7", got)
		}
		w.Write([]byte(`[]`))
	}, WithTopK(7))
	if _, err := c.Search(context.Background(), "q", 0); err != nil {
		t.Fatalf("Search: %v", err)
	}
}

func TestSearchInvalidQuery(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.Search(context.Background(), "   ", 5)
	if !pgerrors.Is(err, pgerrors.ErrCodeInvalidQuery) {
		t.Errorf("err = %v, want INVALID_QUERY", err)
	}
	if calls.Load() != 0 {
		t.Error("invalid query should not reach the server")
	}
}

func TestRequestErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  pgerrors.Code
		wantCalls int32
	}{
		{"no graph", http.StatusNotFound, "", pgerrors.ErrCodeGraphNotFound, 1},
		{"rate limited", http.StatusTooManyRequests, "", pgerrors.ErrCodeRateLimited, 1},
		{"server error retried", http.StatusBadGateway, "", pgerrors.ErrCodeNetwork, 3},
		{"bad request", http.StatusBadRequest, "", pgerrors.ErrCodeNetwork, 1},
		{"invalid json", http.StatusOK, "{not json", pgerrors.ErrCodeInvalidFormat, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.status == http.StatusTooManyRequests {
					w.Header().Set("Retry-After", "12")
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.Graph(context.Background())
			if got := pgerrors.GetCode(err); got != tt.wantCode {
				t.Errorf("code = %v, want %v (err %v)", got, tt.wantCode, err)
			}
			if cache.IsRetryable(err) {
				t.Error("returned errors should not carry the retry marker")
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestStatusNotFoundKeepsCode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.Status(context.Background(), []string{"2401.00001"})
	if got := pgerrors.GetCode(err); got != pgerrors.ErrCodeNotFound {
		t.Errorf("code = %v, want NOT_FOUND", got)
	}
}

func TestRateLimitedRetryAfter(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Graph(context.Background())
	var rl *pgerrors.RateLimitedError
	if !errors.As(err, &rl) || rl.RetryAfter != 12 {
		t.Errorf("err = %v, want RateLimitedError with RetryAfter 12", err)
	}
}

func TestRetryThenSucceed(t *testing.T) {
	var n atomic.Int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"nodes":[{"id":"a","centrality":1}],"edges":[]}`))
	})
	g, err := c.Graph(context.Background())
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(g.Nodes) != 1 || calls.Load() != 2 {
		t.Errorf("nodes=%d calls=%d", len(g.Nodes), calls.Load())
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c, _ := NewClient(srv.URL, WithBackoff(cache.Backoff{Attempts: 1}))
	_, err := c.Graph(context.Background())
	if !pgerrors.Is(err, pgerrors.ErrCodeNetwork) {
		t.Errorf("err = %v, want NETWORK_ERROR", err)
	}
}

func TestCancelledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Search(ctx, "q", 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query()["paper_id"]
		if !reflect.DeepEqual(ids, []string{"a", "b"}) {
			t.Errorf("paper_id = %v", ids)
		}
		w.Write([]byte(`[{"id":"a","status":"embedded","in_graph":true},{"id":"b","status":"queued","in_graph":false}]`))
	})
	st, err := c.Status(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(st) != 2 || st[0].Status != paper.StatusEmbedded || !st[0].InGraph {
		t.Errorf("status = %+v", st)
	}

	if _, err := c.Status(context.Background(), nil); !pgerrors.Is(err, pgerrors.ErrCodeInvalidPaperID) {
		t.Errorf("empty ids: err = %v", err)
	}
}

func TestStatusBatched(t *testing.T) {
	echo := func(w http.ResponseWriter, r *http.Request) {
		var out []paper.PaperStatus
		for _, id := range r.URL.Query()["paper_id"] {
			out = append(out, paper.PaperStatus{ID: id, Status: paper.StatusSeen})
		}
		json.NewEncoder(w).Encode(out)
	}
	c, calls := newTestClient(t, echo, WithBatching(2, 2))

	ids := []string{"p1", "p2", "p3", "p4", "p5"}
	st, err := c.StatusBatched(context.Background(), ids)
	if err != nil {
		t.Fatalf("StatusBatched: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	var got []string
	for _, s := range st {
		got = append(got, s.ID)
	}
	if !reflect.DeepEqual(got, ids) {
		t.Errorf("order = %v, want %v", got, ids)
	}
}

func TestStatusBatchedFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("paper_id") == "p3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[]`))
	}, WithBatching(2, 1))

	_, err := c.StatusBatched(context.Background(), []string{"p1", "p2", "p3", "p4"})
	if !pgerrors.Is(err, pgerrors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestGraphCached(t *testing.T) {
	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"nodes":[{"id":"a"}],"edges":[]}`))
	}, WithCache(store, nil))

	for range 3 {
		g, err := c.Graph(context.Background())
		if err != nil {
			t.Fatalf("Graph: %v", err)
		}
		if len(g.Nodes) != 1 {
			t.Fatalf("nodes = %d", len(g.Nodes))
		}
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestNewClientValidatesURL(t *testing.T) {
	if _, err := NewClient("ftp://example.com"); err == nil {
		t.Error("expected error for ftp scheme")
	}
	c, err := NewClient("")
	if err != nil || c.BaseURL() != DefaultBaseURL {
		t.Errorf("empty base url: %v %v", c, err)
	}
	c, _ = NewClient("http://host/api/")
	if c.BaseURL() != "http://host/api" {
		t.Errorf("trailing slash kept: %s", c.BaseURL())
	}
}

func TestUserAgentHeader(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua == "" || ua[:11] != "papergraph/" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Write([]byte(`{"nodes":[],"edges":[]}`))
	})
	_, _ = c.Graph(context.Background())
}
