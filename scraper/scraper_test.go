package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/pagegrab/config"
	"github.com/use-agent/pagegrab/engine"
	"github.com/use-agent/pagegrab/models"
	"github.com/use-agent/pagegrab/store"
)

// scriptedEngine replays one outcome per call.
type scriptedEngine struct {
	outcomes []func(req *engine.FetchRequest) (*engine.FetchResult, error)
	calls    int
	lastReq  *engine.FetchRequest
}

func (e *scriptedEngine) Name() string { return "scripted" }

func (e *scriptedEngine) Fetch(_ context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	e.lastReq = req
	i := e.calls
	e.calls++
	if i >= len(e.outcomes) {
		i = len(e.outcomes) - 1
	}
	return e.outcomes[i](req)
}

func ok(body string) func(*engine.FetchRequest) (*engine.FetchResult, error) {
	return func(req *engine.FetchRequest) (*engine.FetchResult, error) {
		return &engine.FetchResult{Body: []byte(body), StatusCode: 200, FinalURL: req.URL, EngineName: "scripted"}, nil
	}
}

func status(code int) func(*engine.FetchRequest) (*engine.FetchResult, error) {
	return func(req *engine.FetchRequest) (*engine.FetchResult, error) {
		return nil, &models.HTTPStatusError{URL: req.URL, StatusCode: code}
	}
}

func netFail(req *engine.FetchRequest) (*engine.FetchResult, error) {
	return nil, &models.NetworkError{URL: req.URL, Err: errors.New("connection refused")}
}

// sleepRecorder records requested sleeps without waiting.
type sleepRecorder struct {
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.sleeps = append(r.sleeps, d)
	return ctx.Err()
}

func (r *sleepRecorder) total() time.Duration {
	var sum time.Duration
	for _, d := range r.sleeps {
		sum += d
	}
	return sum
}

// eventRecorder is an Observer that keeps every event.
type eventRecorder struct {
	started   []int
	failed    []time.Duration
	succeeded int
	exhausted int
}

func (r *eventRecorder) AttemptStarted(_ string, attempt, _ int) {
	r.started = append(r.started, attempt)
}

func (r *eventRecorder) AttemptFailed(_ string, _, _ int, _ error, backoff time.Duration) {
	r.failed = append(r.failed, backoff)
}

func (r *eventRecorder) Succeeded(string, *Page) { r.succeeded++ }

func (r *eventRecorder) Exhausted(string, int, error) { r.exhausted++ }

func newScripted(eng *scriptedEngine) (*Scraper, *sleepRecorder, *eventRecorder) {
	sr := &sleepRecorder{}
	er := &eventRecorder{}
	s := New(eng, Options{
		BaseURL:  "https://www.example.com",
		Headers:  map[string]string{"User-Agent": "test-agent"},
		Observer: er,
		Sleep:    sr.sleep,
	})
	return s, sr, er
}

func TestFetch_FirstAttemptSucceeds(t *testing.T) {
	eng := &scriptedEngine{outcomes: []func(*engine.FetchRequest) (*engine.FetchResult, error){ok("<html>OK</html>")}}
	s, sr, er := newScripted(eng)

	page, err := s.Fetch(context.Background(), "/hotel.html", FetchOptions{RetryCount: 3, BaseDelay: 2 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, "<html>OK</html>", string(page.Content))
	assert.Equal(t, 1, page.Attempts)
	assert.Equal(t, 1, eng.calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, sr.sleeps)
	assert.Equal(t, "https://www.example.com/hotel.html", eng.lastReq.URL)
	assert.Equal(t, "test-agent", eng.lastReq.Headers["User-Agent"])
	assert.Equal(t, 1, er.succeeded)
	assert.Empty(t, er.failed)
}

func TestFetch_SucceedsOnThirdAttempt(t *testing.T) {
	eng := &scriptedEngine{outcomes: []func(*engine.FetchRequest) (*engine.FetchResult, error){
		status(500), status(500), ok("ok"),
	}}
	s, sr, er := newScripted(eng)

	page, err := s.Fetch(context.Background(), "https://other.example.org/p", FetchOptions{RetryCount: 3, BaseDelay: time.Second})
	require.NoError(t, err)

	assert.Equal(t, "ok", string(page.Content))
	assert.Equal(t, 3, eng.calls)
	assert.Equal(t, 3, page.Attempts)
	// pacing, backoff 1x, pacing, backoff 2x, pacing
	assert.Equal(t, []time.Duration{
		time.Second, time.Second, time.Second, 2 * time.Second, time.Second,
	}, sr.sleeps)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, er.failed)
	assert.Equal(t, []int{1, 2, 3}, er.started)
	assert.Equal(t, "https://other.example.org/p", eng.lastReq.URL)
}

func TestFetch_NoFurtherAttemptsAfterSuccess(t *testing.T) {
	for k := 1; k <= 4; k++ {
		outcomes := make([]func(*engine.FetchRequest) (*engine.FetchResult, error), 0, 5)
		for i := 1; i < k; i++ {
			outcomes = append(outcomes, netFail)
		}
		outcomes = append(outcomes, ok("body"), status(500))

		eng := &scriptedEngine{outcomes: outcomes}
		s, _, _ := newScripted(eng)

		page, err := s.Fetch(context.Background(), "/x", FetchOptions{RetryCount: 5, BaseDelay: time.Millisecond})
		require.NoError(t, err, "k=%d", k)
		assert.Equal(t, k, eng.calls, "k=%d", k)
		assert.Equal(t, "body", string(page.Content))
	}
}

func TestFetch_AllAttemptsFail(t *testing.T) {
	for n := 1; n <= 5; n++ {
		eng := &scriptedEngine{outcomes: []func(*engine.FetchRequest) (*engine.FetchResult, error){netFail}}
		s, sr, er := newScripted(eng)
		base := 100 * time.Millisecond

		page, err := s.Fetch(context.Background(), "/x", FetchOptions{RetryCount: n, BaseDelay: base})
		require.Error(t, err)
		assert.Nil(t, page)
		assert.Equal(t, n, eng.calls)

		var fetchErr *models.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, n, fetchErr.Attempts)

		var netErr *models.NetworkError
		assert.True(t, errors.As(err, &netErr))

		// N pacing sleeps plus N-1 backoff sleeps: base * (1 + 2 + ... + N).
		want := base * time.Duration(n*(n+1)/2)
		assert.Equal(t, want, sr.total(), "n=%d", n)
		assert.Len(t, sr.sleeps, 2*n-1)
		assert.Equal(t, 1, er.exhausted)
	}
}

func TestFetch_Always404(t *testing.T) {
	eng := &scriptedEngine{outcomes: []func(*engine.FetchRequest) (*engine.FetchResult, error){status(404)}}
	s, _, _ := newScripted(eng)
	dir := t.TempDir()

	page, path, err := s.Grab(context.Background(), "/missing", FetchOptions{RetryCount: 2}, store.NewNamer(dir, "page"))
	require.Error(t, err)
	assert.Nil(t, page)
	assert.Empty(t, path)
	assert.Equal(t, 2, eng.calls)
	assert.Equal(t, models.ErrCodeHTTPStatus, models.Code(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetch_InvalidRetryCount(t *testing.T) {
	for _, n := range []int{0, -1} {
		eng := &scriptedEngine{outcomes: []func(*engine.FetchRequest) (*engine.FetchResult, error){ok("x")}}
		s, sr, _ := newScripted(eng)

		_, err := s.Fetch(context.Background(), "/x", FetchOptions{RetryCount: n})
		require.Error(t, err)
		assert.Equal(t, models.ErrCodeInvalidInput, models.Code(err))
		assert.Zero(t, eng.calls)
		assert.Empty(t, sr.sleeps)
	}
}

func TestFetch_NegativeDelay(t *testing.T) {
	eng := &scriptedEngine{outcomes: []func(*engine.FetchRequest) (*engine.FetchResult, error){ok("x")}}
	s, _, _ := newScripted(eng)

	_, err := s.Fetch(context.Background(), "/x", FetchOptions{RetryCount: 1, BaseDelay: -time.Second})
	assert.Equal(t, models.ErrCodeInvalidInput, models.Code(err))
	assert.Zero(t, eng.calls)
}

func TestFetch_ContextCancelledDuringPacing(t *testing.T) {
	eng := &scriptedEngine{outcomes: []func(*engine.FetchRequest) (*engine.FetchResult, error){ok("x")}}
	s := New(eng, Options{BaseURL: "https://www.example.com", Observer: NopObserver{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Fetch(ctx, "/x", FetchOptions{RetryCount: 3, BaseDelay: time.Hour})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, eng.calls)
}

func TestResolve(t *testing.T) {
	s := New(&scriptedEngine{}, Options{BaseURL: "https://www.tripadvisor.com", Observer: NopObserver{}})

	tests := []struct {
		target  string
		want    string
		wantErr bool
	}{
		{"/Hotels-g186338.html", "https://www.tripadvisor.com/Hotels-g186338.html", false},
		{"https://example.com/a?b=c", "https://example.com/a?b=c", false},
		{"http://example.com", "http://example.com", false},
		{"  /trimmed  ", "https://www.tripadvisor.com/trimmed", false},
		{"", "", true},
		{"ftp://example.com/file", "", true},
	}
	for _, tt := range tests {
		got, err := s.Resolve(tt.target)
		if tt.wantErr {
			assert.Error(t, err, tt.target)
			continue
		}
		require.NoError(t, err, tt.target)
		assert.Equal(t, tt.want, got)
	}
}

func TestNew_CopiesHeaders(t *testing.T) {
	headers := map[string]string{"Accept": "text/html"}
	eng := &scriptedEngine{outcomes: []func(*engine.FetchRequest) (*engine.FetchResult, error){ok("x")}}
	s := New(eng, Options{BaseURL: "https://www.example.com", Headers: headers, Observer: NopObserver{}, Sleep: (&sleepRecorder{}).sleep})

	headers["Accept"] = "changed"

	_, err := s.Fetch(context.Background(), "/x", FetchOptions{RetryCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "text/html", eng.lastReq.Headers["Accept"])
}

// End-to-end through the real HTTP engine and a real wall clock.
func TestGrab_HTTPServer(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	eng, err := engine.NewHTTPEngine(config.EngineConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	s := New(eng, Options{BaseURL: srv.URL, Headers: config.Load().Fetch.Headers, Observer: NopObserver{}})

	dir := filepath.Join(t.TempDir(), "nested", "out")
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	namer := store.Namer{Dir: dir, Prefix: "page", Now: func() time.Time { return fixed }}

	base := 10 * time.Millisecond
	start := time.Now()
	page, path, err := s.Grab(context.Background(), "/index.html", FetchOptions{RetryCount: 3, BaseDelay: base}, namer)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "ok", string(page.Content))
	assert.Equal(t, filepath.Join(dir, "page_2024-01-01T00-00-00-000Z.html"), path)
	// 3 pacing sleeps + backoff 1x + 2x.
	assert.GreaterOrEqual(t, elapsed, base*6)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(saved))
}

func TestGrab_OversizedBodyFailsEveryAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("<html>this page is longer than the cap</html>"))
	}))
	defer srv.Close()

	eng, err := engine.NewHTTPEngine(config.EngineConfig{Timeout: 5 * time.Second, MaxBodyBytes: 16})
	require.NoError(t, err)
	s := New(eng, Options{BaseURL: srv.URL, Observer: NopObserver{}, Sleep: (&sleepRecorder{}).sleep})

	dir := t.TempDir()
	page, path, err := s.Grab(context.Background(), "/big", FetchOptions{RetryCount: 3, BaseDelay: time.Second}, store.NewNamer(dir, "page"))
	require.Error(t, err)
	assert.Nil(t, page)
	assert.Empty(t, path)

	var fetchErr *models.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.ErrorIs(t, err, models.ErrBodyTooLarge)
	assert.Equal(t, models.ErrCodeBodyTooLarge, models.Code(err))
	assert.Equal(t, int32(3), calls.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
