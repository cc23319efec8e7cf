package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func ownerIDGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z0-9]{8,32}`)
}

func testRequestsWithinBurstAllowed(t *rapid.T) {
	config := Config{
		StandardRPS:     100.0,
		StandardBurst:   200,
		PipelineRPS:     100.0,
		PipelineBurst:   200,
		CleanupInterval: time.Hour,
	}

	l := NewLimiter(config)
	defer l.Stop()

	ownerID := ownerIDGenerator().Draw(t, "ownerID")
	class := Class(rapid.IntRange(0, 1).Draw(t, "class"))
	numRequests := rapid.IntRange(1, 50).Draw(t, "numRequests")

	for i := 0; i < numRequests; i++ {
		if !l.Allow(ownerID, class) {
			t.Fatalf("request %d of %d should have been allowed", i+1, numRequests)
		}
	}
}

func TestRequestsWithinBurstAllowed(t *testing.T) {
	rapid.Check(t, testRequestsWithinBurstAllowed)
}

func TestExceedingBurstBlocked(t *testing.T) {
	l := NewLimiter(Config{
		StandardRPS:     0.001,
		StandardBurst:   5,
		PipelineRPS:     0.001,
		PipelineBurst:   2,
		CleanupInterval: time.Hour,
	})
	defer l.Stop()

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("owner-a", ClassStandard), "request %d within burst", i+1)
	}
	assert.False(t, l.Allow("owner-a", ClassStandard))

	// Classes draw from separate buckets.
	assert.True(t, l.Allow("owner-a", ClassPipeline))
	assert.True(t, l.Allow("owner-a", ClassPipeline))
	assert.False(t, l.Allow("owner-a", ClassPipeline))

	// Other owners are unaffected.
	assert.True(t, l.Allow("owner-b", ClassStandard))
}

func TestConcurrentAccessSingleEntryPerKey(t *testing.T) {
	l := NewLimiter(DefaultConfig)
	defer l.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Allow("shared-owner", ClassStandard)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, l.Len())
}

func TestCleanupEvictsIdleLimiters(t *testing.T) {
	l := NewLimiter(Config{
		StandardRPS:     10,
		StandardBurst:   20,
		PipelineRPS:     1,
		PipelineBurst:   2,
		CleanupInterval: 10 * time.Millisecond,
	})
	defer l.Stop()

	l.Allow("owner-a", ClassStandard)
	require.Equal(t, 1, l.Len())

	time.Sleep(20 * time.Millisecond)
	l.Cleanup()
	assert.Equal(t, 0, l.Len())
}

func TestMiddlewareRejectsWithRetryAfter(t *testing.T) {
	l := NewLimiter(Config{
		StandardRPS:     0.001,
		StandardBurst:   1,
		PipelineRPS:     0.001,
		PipelineBurst:   1,
		CleanupInterval: time.Hour,
	})
	defer l.Stop()

	handler := Middleware(l, func(r *http.Request) string {
		return r.Header.Get("X-User-ID")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(owner, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if owner != "" {
			req.Header.Set("X-User-ID", owner)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do("user-1", "/api/notes")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do("user-1", "/api/notes")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// Pipeline requests draw from their own bucket.
	rec = do("user-1", "/api/pipelines/summary/doc-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Requests without an owner bypass the limiter.
	rec = do("", "/api/notes")
	assert.Equal(t, http.StatusOK, rec.Code)
}
