package api

import (
	"context"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/papergraph/pkg/cache"
	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/paper"
)

// Search runs a ranked search. topK <= 0 uses the client default. The
// response may carry an explicit graph; older services return a bare array
// of results, which is accepted too.
func (c *Client) Search(ctx context.Context, query string, topK int) (*paper.SearchResponse, error) {
	if err := pgerrors.ValidateQuery(query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = c.topK
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("top_k", strconv.Itoa(topK))

	var resp paper.SearchResponse
	key := c.keyer.SearchKey(c.baseURL+"|"+query, topK)
	err := c.cached(ctx, key, "search", cache.TTLSearch, &resp, func() error {
		return c.getJSON(ctx, "/search", q, &resp)
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("search", "query", query, "results", len(resp.Results), "graph", resp.Graph != nil)
	return &resp, nil
}

// Graph fetches the explicit citation graph. A service without one (404)
// yields GRAPH_NOT_FOUND.
func (c *Client) Graph(ctx context.Context) (*paper.GraphData, error) {
	var g paper.GraphData
	key := c.keyer.HTTPKey("graph", c.baseURL)
	err := c.cached(ctx, key, "graph", cache.TTLGraph, &g, func() error {
		return c.getJSON(ctx, "/graph", nil, &g)
	})
	if pgerrors.Is(err, pgerrors.ErrCodeNotFound) {
		return nil, pgerrors.Wrap(pgerrors.ErrCodeGraphNotFound, err, "no citation graph at %s", c.baseURL)
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Status fetches the ingestion state of the given papers in one request.
// Status is never cached.
func (c *Client) Status(ctx context.Context, ids []string) ([]paper.PaperStatus, error) {
	if err := pgerrors.ValidatePaperIDs(ids); err != nil {
		return nil, err
	}
	q := url.Values{}
	for _, id := range ids {
		q.Add("paper_id", id)
	}
	var out []paper.PaperStatus
	if err := c.getJSON(ctx, "/status", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StatusBatched splits ids into batches and fetches them concurrently. The
// result preserves batch order. The first failing batch cancels the rest.
func (c *Client) StatusBatched(ctx context.Context, ids []string) ([]paper.PaperStatus, error) {
	if err := pgerrors.ValidatePaperIDs(ids); err != nil {
		return nil, err
	}
	if len(ids) <= c.batchSize {
		return c.Status(ctx, ids)
	}

	var batches [][]string
	for start := 0; start < len(ids); start += c.batchSize {
		end := min(start+c.batchSize, len(ids))
		batches = append(batches, ids[start:end])
	}

	parts := make([][]paper.PaperStatus, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			res, err := c.Status(gctx, batch)
			if err != nil {
				return err
			}
			parts[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]paper.PaperStatus, 0, len(ids))
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}
