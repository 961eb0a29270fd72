package observability

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnResolveComplete(ctx, "synthesized", 10, 9, time.Millisecond)
	p.OnLayoutStart(ctx, 10)
	p.OnLayoutComplete(ctx, 10, time.Second, nil)
	p.OnStyleComplete(ctx, "a", 3, time.Microsecond)
	p.OnRenderStart(ctx, []string{"svg"})
	p.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)

	s := NoopSessionHooks{}
	s.OnSearchStart(ctx, "id", "query")
	s.OnSearchComplete(ctx, "id", 5, time.Second, nil)
	s.OnStaleResponse(ctx, "id")
	s.OnSelect(ctx, "paper")

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "layout")
	c.OnCacheMiss(ctx, "layout")
	c.OnCacheSet(ctx, "artifact", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "localhost:8000", "/search")
	h.OnResponse(ctx, "GET", "localhost:8000", "/search", 200, time.Second)
	h.OnError(ctx, "GET", "localhost:8000", "/search", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Session().(NoopSessionHooks); !ok {
		t.Error("Session() should return NoopSessionHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customSession := &testSessionHooks{}
	SetSessionHooks(customSession)
	if Session() != customSession {
		t.Error("SetSessionHooks should set custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
	if _, ok := Session().(NoopSessionHooks); !ok {
		t.Error("Reset() should restore NoopSessionHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)
	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should keep the previous hooks")
	}
}

func TestCustomHooksReceiveEvents(t *testing.T) {
	Reset()
	defer Reset()

	h := &testPipelineHooks{}
	SetPipelineHooks(h)
	Pipeline().OnLayoutStart(context.Background(), 42)
	Pipeline().OnLayoutComplete(context.Background(), 42, time.Millisecond, nil)

	if h.layoutStarts != 1 || h.lastNodes != 42 {
		t.Errorf("hooks got starts=%d nodes=%d", h.layoutStarts, h.lastNodes)
	}
}

func TestConcurrentAccess(t *testing.T) {
	Reset()
	defer Reset()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetCacheHooks(&testCacheHooks{})
		}()
		go func() {
			defer wg.Done()
			Cache().OnCacheHit(context.Background(), "layout")
		}()
	}
	wg.Wait()
}

type testPipelineHooks struct {
	NoopPipelineHooks
	mu           sync.Mutex
	layoutStarts int
	lastNodes    int
}

func (h *testPipelineHooks) OnLayoutStart(_ context.Context, nodes int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layoutStarts++
	h.lastNodes = nodes
}

type testSessionHooks struct{ NoopSessionHooks }

type testCacheHooks struct{ NoopCacheHooks }
