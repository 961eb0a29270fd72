package search

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/graph"
	"github.com/matzehuels/papergraph/pkg/observability"
	"github.com/matzehuels/papergraph/pkg/paper"
	"github.com/matzehuels/papergraph/pkg/pipeline"
	"github.com/matzehuels/papergraph/pkg/style"
)

// ErrSuperseded is returned by [Session.Search] when a newer search replaced
// the request before its response was applied. It is not a failure.
var ErrSuperseded = errors.New("search superseded by a newer request")

// Searcher fetches search responses. *api.Client implements it.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) (*paper.SearchResponse, error)
}

// Phase is the lifecycle state of the current request.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhasePending Phase = "pending" // Results in, layout running in the background
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// View is an immutable copy of the session state.
type View struct {
	RequestID string               `json:"request_id,omitempty"`
	Query     string               `json:"query"`
	Phase     Phase                `json:"phase"`
	Results   []paper.SearchResult `json:"results"`
	Report    graph.Report         `json:"report"`
	Snapshot  style.Snapshot       `json:"snapshot"`
	Error     string               `json:"error,omitempty"`

	// FitView asks the consumer to fit every node into the viewport. It is
	// set once per deselection.
	FitView bool `json:"fit_view,omitempty"`
}

// Empty reports whether there is nothing to draw.
func (v View) Empty() bool { return len(v.Snapshot.Nodes) == 0 }

// Options configures a Session.
type Options struct {
	Pipeline pipeline.Options
	TopK     int // Zero uses the searcher's default
	Logger   *log.Logger
}

// Session is safe for concurrent use.
type Session struct {
	searcher Searcher
	runner   *pipeline.Runner
	opts     pipeline.Options
	topK     int
	logger   *log.Logger
	updates  chan struct{}

	mu      sync.Mutex
	current uuid.UUID
	cancel  context.CancelFunc
	query   string
	phase   Phase
	results []paper.SearchResult
	report  graph.Report
	graph   graph.Graph // Laid out once phase is ready
	snap    style.Snapshot
	err     error
	sel     style.Selection
}

// NewSession creates an idle session. A nil runner gets an uncached one.
func NewSession(searcher Searcher, runner *pipeline.Runner, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	opts.Pipeline.SetDefaults()
	return &Session{
		searcher: searcher,
		runner:   runner,
		opts:     opts.Pipeline,
		topK:     opts.TopK,
		logger:   logger,
		updates:  make(chan struct{}, 1),
		phase:    PhaseIdle,
	}
}

// Updates signals every state change. Signals coalesce, so read
// [Session.View] after each one.
func (s *Session) Updates() <-chan struct{} { return s.updates }

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// =============================================================================
// Search
// =============================================================================

// Search runs a query, replacing whatever came before. On success the first
// result is selected. On failure the results and graph are cleared and the
// error is returned. If a newer search starts first, Search returns the
// newer state with ErrSuperseded.
//
// Graphs larger than the pipeline's async threshold are laid out in the
// background: Search returns a pending view and [Session.Updates] fires once
// the layout lands.
func (s *Session) Search(ctx context.Context, query string) (View, error) {
	if err := pgerrors.ValidateQuery(query); err != nil {
		return s.View(), err
	}

	id := uuid.New()
	reqCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.current = id
	s.cancel = cancel
	prevQuery, prevPhase := s.query, s.phase
	s.query = query
	s.phase = PhaseLoading
	s.mu.Unlock()
	s.notify()

	observability.Session().OnSearchStart(ctx, id.String(), query)
	s.logger.Debug("search started", "request", id, "query", query)

	start := time.Now()
	resp, err := s.searcher.Search(reqCtx, query, s.topK)
	nResults := 0
	if resp != nil {
		nResults = len(resp.Results)
	}
	observability.Session().OnSearchComplete(ctx, id.String(), nResults, time.Since(start), err)

	s.mu.Lock()
	if s.current != id {
		s.mu.Unlock()
		return s.stale(ctx, id)
	}

	if err != nil {
		if ctx.Err() != nil {
			s.abandon(prevQuery, prevPhase)
			s.mu.Unlock()
			s.notify()
			return s.View(), ctx.Err()
		}
		s.reset(PhaseError, err)
		s.mu.Unlock()
		s.notify()
		s.logger.Warn("search failed", "query", query, "err", err)
		return s.View(), err
	}

	s.results = resp.Results
	first := ""
	if len(resp.Results) > 0 {
		first = resp.Results[0].ID
	}
	s.sel.Set(first)
	s.sel.TakeFitView()
	s.mu.Unlock()

	g, report := s.runner.Resolve(reqCtx, pipeline.Input{Results: resp.Results, Graph: resp.Graph}, s.opts)

	if s.opts.Async(len(g.Nodes)) {
		return s.layoutInBackground(ctx, id, g, report)
	}

	laid, _, _, err := s.runner.LayoutWithCacheInfo(reqCtx, g, s.opts)

	s.mu.Lock()
	if s.current != id {
		s.mu.Unlock()
		return s.stale(ctx, id)
	}
	if err != nil {
		if ctx.Err() != nil {
			s.reset(PhaseIdle, nil)
			err = ctx.Err()
		} else {
			s.reset(PhaseError, err)
		}
		s.mu.Unlock()
		s.notify()
		return s.View(), err
	}
	s.apply(ctx, laid, report)
	s.mu.Unlock()
	s.notify()
	return s.View(), nil
}

func (s *Session) layoutInBackground(ctx context.Context, id uuid.UUID, g graph.Graph, report graph.Report) (View, error) {
	// The layout outlives the caller's request, so it is cancelled only by
	// a newer search or Close.
	layoutCtx, cancelLayout := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	if s.current != id {
		s.mu.Unlock()
		cancelLayout()
		return s.stale(ctx, id)
	}
	cancelSearch := s.cancel
	s.cancel = func() {
		cancelSearch()
		cancelLayout()
	}
	s.graph = g
	s.report = report
	s.snap = style.Snapshot{}
	s.phase = PhasePending
	s.mu.Unlock()
	s.notify()

	s.logger.Info("laying out in background", "nodes", len(g.Nodes))

	ch := s.runner.LayoutAsync(layoutCtx, g, s.opts)
	go func() {
		defer cancelLayout()
		res := <-ch

		s.mu.Lock()
		defer s.notify()
		defer s.mu.Unlock()
		if s.current != id {
			observability.Session().OnStaleResponse(layoutCtx, id.String())
			return
		}
		if res.Err != nil {
			s.reset(PhaseError, res.Err)
			return
		}
		s.apply(layoutCtx, res.Graph, report)
	}()

	return s.View(), nil
}

func (s *Session) stale(ctx context.Context, id uuid.UUID) (View, error) {
	observability.Session().OnStaleResponse(ctx, id.String())
	s.logger.Debug("dropped stale response", "request", id)
	return s.View(), ErrSuperseded
}

// apply installs a laid-out graph. Callers hold s.mu.
func (s *Session) apply(ctx context.Context, g graph.Graph, report graph.Report) {
	s.graph = g
	s.report = report
	s.snap = s.runner.Style(ctx, g, s.sel.Current())
	s.phase = PhaseReady
	s.err = nil
}

// abandon handles a search whose caller gave up before the response. A
// settled previous state (idle, ready, error) is kept as it was. A previous
// request that was still loading or laying out has been cancelled by this
// search, so nothing will finish it and the session goes idle. Callers hold
// s.mu.
func (s *Session) abandon(prevQuery string, prevPhase Phase) {
	switch prevPhase {
	case PhaseLoading, PhasePending:
		s.reset(PhaseIdle, nil)
		s.query = ""
	default:
		s.query = prevQuery
		s.phase = prevPhase
	}
}

// reset clears results, graph and selection. Callers hold s.mu.
func (s *Session) reset(phase Phase, err error) {
	s.phase = phase
	s.err = err
	s.results = nil
	s.report = graph.Report{}
	s.graph = graph.Graph{}
	s.snap = style.Snapshot{}
	s.sel.Clear()
	s.sel.TakeFitView()
}

// =============================================================================
// Selection
// =============================================================================

// SelectNode selects id, restyling the current layout. An empty id clears
// the selection. Unknown ids are rejected and leave the state unchanged.
func (s *Session) SelectNode(ctx context.Context, id string) (View, error) {
	s.mu.Lock()
	if id != "" {
		if _, ok := s.graph.Node(id); !ok {
			s.mu.Unlock()
			return s.View(), pgerrors.New(pgerrors.ErrCodeNodeNotFound, "no node %q in the current graph", id)
		}
	}
	changed := s.sel.Set(id)
	if changed && s.phase == PhaseReady {
		s.snap = s.runner.Style(ctx, s.graph, id)
	}
	v := s.viewLocked()
	v.FitView = s.sel.TakeFitView()
	s.mu.Unlock()

	if changed {
		observability.Session().OnSelect(ctx, id)
		s.notify()
	}
	return v, nil
}

// ClearSelection is SelectNode(ctx, "").
func (s *Session) ClearSelection(ctx context.Context) View {
	v, _ := s.SelectNode(ctx, "")
	return v
}

// Connect accepts a connect gesture between two nodes. The graph is
// read-only, so the event is only logged.
func (s *Session) Connect(_ context.Context, source, target string) {
	s.logger.Info("connect", "source", source, "target", target)
}

// =============================================================================
// State
// =============================================================================

// View returns a copy of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		Query:    s.query,
		Phase:    s.phase,
		Results:  s.results,
		Report:   s.report,
		Snapshot: s.snap,
	}
	if s.current != uuid.Nil {
		v.RequestID = s.current.String()
	}
	if s.err != nil {
		v.Error = pgerrors.UserMessage(s.err)
	}
	return v
}

// Graph returns the current laid-out graph, or an empty one while a layout
// is pending.
func (s *Session) Graph() graph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseReady {
		return graph.Graph{}
	}
	return s.graph
}

// Close cancels any in-flight search or layout.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.current = uuid.Nil
}
