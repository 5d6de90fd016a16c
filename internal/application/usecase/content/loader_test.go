package content

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/profile-portal/internal/application/service"
	"github.com/khoahotran/profile-portal/internal/config"
	"github.com/khoahotran/profile-portal/internal/domain/content"
	"github.com/khoahotran/profile-portal/pkg/apperror"
	"github.com/khoahotran/profile-portal/pkg/logger"
)

type stubSource struct {
	name string

	mu    sync.Mutex
	calls int
	fetch func(ctx context.Context) ([]byte, error)
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	fetch := s.fetch
	s.mu.Unlock()
	return fetch(ctx)
}

func (s *stubSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSource) respond(fetch func(ctx context.Context) ([]byte, error)) {
	s.mu.Lock()
	s.fetch = fetch
	s.mu.Unlock()
}

func returns(body string) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) { return []byte(body), nil }
}

func fails(err error) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) { return nil, err }
}

func blocksUntilCancelled(started chan<- struct{}) func(context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) {
		close(started)
		<-ctx.Done()
		return nil, apperror.NewCancelled(ctx.Err())
	}
}

type stubCache struct {
	mu     sync.Mutex
	saved  []service.CachedContent
	stored *service.CachedContent
}

func (c *stubCache) Save(_ context.Context, cached service.CachedContent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = append(c.saved, cached)
	return nil
}

func (c *stubCache) Load(context.Context) (*service.CachedContent, error) {
	return c.stored, nil
}

type stubTrigger struct {
	mu  sync.Mutex
	fns map[int]func()
	n   int
}

func (t *stubTrigger) Subscribe(fn func()) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fns == nil {
		t.fns = map[int]func(){}
	}
	id := t.n
	t.n++
	t.fns[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.fns, id)
	}
}

func (t *stubTrigger) Fire() {
	t.mu.Lock()
	fns := make([]func(), 0, len(t.fns))
	for _, fn := range t.fns {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

var apiMode = config.Endpoints{APIBase: "http://api.test", HasAPIBase: true}
var snapshotMode = config.Endpoints{IsSnapshotMode: true}

const apiPayload = `{"profile": {"name": "Tilahun Alene Terfie"}, "summary": "from api"}`
const snapshotPayload = `{"profile": {"name": "Tilahun Alene Terfie"}, "summary": "from snapshot"}`

func newFixture(endpoints config.Endpoints) (*Loader, *stubSource, *stubSource) {
	api := &stubSource{name: "api", fetch: returns(apiPayload)}
	snap := &stubSource{name: "snapshot", fetch: returns(snapshotPayload)}
	return NewLoader(endpoints, api, snap, nil, logger.NewNopLogger()), api, snap
}

func recordStatuses(l *Loader) func() []content.LoadStatus {
	var mu sync.Mutex
	var seen []content.LoadStatus
	l.OnChange(func(s State) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	})
	return func() []content.LoadStatus {
		mu.Lock()
		defer mu.Unlock()
		return append([]content.LoadStatus(nil), seen...)
	}
}

func TestLoader_InitialState(t *testing.T) {
	l, _, _ := newFixture(apiMode)
	s := l.State()
	assert.Equal(t, content.StatusLoading, s.Status)
	assert.Equal(t, content.SourceNone, s.Source)
	assert.Equal(t, content.EmptyData(), s.Document)
}

func TestLoader_APISuccess(t *testing.T) {
	l, api, snap := newFixture(apiMode)

	require.NoError(t, l.Load(context.Background(), LoadOptions{}))

	s := l.State()
	assert.Equal(t, content.StatusReady, s.Status)
	assert.Equal(t, content.SourceAPI, s.Source)
	assert.Equal(t, "from api", s.Document.Summary)
	assert.Equal(t, "Tilahun Alene Terfie", s.Document.Profile.Name)
	assert.Empty(t, s.Error)
	assert.False(t, s.LoadedAt.IsZero())
	assert.Equal(t, 1, api.Calls())
	assert.Equal(t, 0, snap.Calls())
}

func TestLoader_SnapshotModeNeverTouchesAPI(t *testing.T) {
	l, api, snap := newFixture(snapshotMode)

	require.NoError(t, l.Load(context.Background(), LoadOptions{}))

	s := l.State()
	assert.Equal(t, content.StatusSnapshot, s.Status)
	assert.Equal(t, content.SourceSnapshot, s.Source)
	assert.Equal(t, "from snapshot", s.Document.Summary)
	assert.Equal(t, 0, api.Calls())
	assert.Equal(t, 1, snap.Calls())
	assert.True(t, l.SnapshotMode())
}

func TestLoader_FallsBackToSnapshotOnAPIFailure(t *testing.T) {
	for name, apiErr := range map[string]error{
		"network": apperror.NewNetwork("http://api.test/api/content", errors.New("connection refused")),
		"status":  apperror.NewHTTPStatus("http://api.test/api/content", 502),
		"format":  apperror.NewFormat("text/html", nil),
	} {
		t.Run(name, func(t *testing.T) {
			l, api, snap := newFixture(apiMode)
			api.respond(fails(apiErr))

			require.NoError(t, l.Load(context.Background(), LoadOptions{}))

			s := l.State()
			assert.Equal(t, content.StatusSnapshot, s.Status)
			assert.Equal(t, content.SourceSnapshot, s.Source)
			assert.Equal(t, "from snapshot", s.Document.Summary)
			assert.Equal(t, 1, api.Calls())
			assert.Equal(t, 1, snap.Calls())
		})
	}
}

func TestLoader_UnparseableAPIPayloadFallsBack(t *testing.T) {
	l, api, _ := newFixture(apiMode)
	api.respond(returns(`[1, 2, 3]`))

	require.NoError(t, l.Load(context.Background(), LoadOptions{}))
	assert.Equal(t, content.SourceSnapshot, l.State().Source)
}

func TestLoader_BothSourcesFail(t *testing.T) {
	l, api, snap := newFixture(apiMode)
	api.respond(fails(apperror.NewHTTPStatus("http://api.test/api/content", 500)))
	snap.respond(fails(apperror.NewUnavailable("Content snapshot not found", "x")))

	err := l.Load(context.Background(), LoadOptions{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrHTTPStatus))
	s := l.State()
	assert.Equal(t, content.StatusError, s.Status)
	assert.Contains(t, s.Error, "Content request failed (500)")
	assert.Contains(t, s.Error, "Content snapshot not found")
	assert.Equal(t, content.EmptyData(), s.Document)
}

func TestLoader_ServerErrorKeepsLastGoodDocument(t *testing.T) {
	l, _, snap := newFixture(snapshotMode)
	require.NoError(t, l.Load(context.Background(), LoadOptions{}))
	before := l.State().Document

	snap.respond(fails(apperror.NewHTTPStatus("https://cdn.test/published-content.json", 500)))
	err := l.Load(context.Background(), LoadOptions{})

	require.Error(t, err)
	s := l.State()
	assert.Equal(t, content.StatusError, s.Status)
	assert.Equal(t, "Content request failed (500)", s.Error)
	assert.Equal(t, before, s.Document)
	assert.Equal(t, content.SourceSnapshot, s.Source)
}

func TestLoader_CancelledLoadChangesNothing(t *testing.T) {
	l, api, _ := newFixture(apiMode)
	require.NoError(t, l.Load(context.Background(), LoadOptions{}))
	before := l.State()

	started := make(chan struct{})
	api.respond(blocksUntilCancelled(started))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Load(ctx, LoadOptions{}) }()
	<-started
	cancel()
	err := <-done

	assert.True(t, apperror.IsCancelled(err))
	after := l.State()
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.Document, after.Document)
	assert.Equal(t, before.Error, after.Error)
	assert.Equal(t, before.LoadedAt, after.LoadedAt)
}

func TestLoader_ResultArrivingAfterCancelIsDiscarded(t *testing.T) {
	l, api, _ := newFixture(apiMode)

	ctx, cancel := context.WithCancel(context.Background())
	api.respond(func(context.Context) ([]byte, error) {
		cancel()
		return []byte(apiPayload), nil
	})

	err := l.Load(ctx, LoadOptions{})

	assert.True(t, apperror.IsCancelled(err))
	s := l.State()
	assert.Equal(t, content.StatusLoading, s.Status)
	assert.Equal(t, content.SourceNone, s.Source)
	assert.Equal(t, content.EmptyData(), s.Document)
}

func TestLoader_MountDisposeCancelsInitialLoad(t *testing.T) {
	l, api, snap := newFixture(apiMode)
	started := make(chan struct{})
	api.respond(blocksUntilCancelled(started))

	dispose := l.Mount(context.Background())
	<-started
	dispose()
	dispose()

	s := l.State()
	assert.Equal(t, content.StatusLoading, s.Status)
	assert.Equal(t, content.EmptyData(), s.Document)
	assert.Equal(t, 0, snap.Calls(), "a cancelled API fetch must not fall back")
}

func TestLoader_MountLoads(t *testing.T) {
	l, _, _ := newFixture(apiMode)
	ready := make(chan struct{})
	var once sync.Once
	l.OnChange(func(s State) {
		if s.Status == content.StatusReady {
			once.Do(func() { close(ready) })
		}
	})

	dispose := l.Mount(context.Background())
	defer dispose()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("initial load did not complete")
	}
	assert.Equal(t, content.SourceAPI, l.State().Source)
}

func TestLoader_SilentLoadNeverShowsLoading(t *testing.T) {
	l, api, _ := newFixture(apiMode)
	require.NoError(t, l.Load(context.Background(), LoadOptions{}))
	statuses := recordStatuses(l)

	require.NoError(t, l.Load(context.Background(), LoadOptions{Silent: true}))
	api.respond(fails(apperror.NewNetwork("x", errors.New("down"))))
	_ = l.Load(context.Background(), LoadOptions{Silent: true})

	seen := statuses()
	assert.NotEmpty(t, seen)
	assert.NotContains(t, seen, content.StatusLoading)
}

func TestLoader_NonSilentLoadShowsLoading(t *testing.T) {
	l, _, _ := newFixture(apiMode)
	statuses := recordStatuses(l)

	require.NoError(t, l.Load(context.Background(), LoadOptions{}))

	assert.Equal(t, []content.LoadStatus{content.StatusLoading, content.StatusReady}, statuses())
}

func TestLoader_SilentFailureWithFallbackKeepsStatus(t *testing.T) {
	l, api, snap := newFixture(apiMode)
	require.NoError(t, l.Load(context.Background(), LoadOptions{}))

	api.respond(fails(apperror.NewHTTPStatus("x", 500)))
	snap.respond(fails(apperror.NewHTTPStatus("y", 404)))
	require.Error(t, l.Load(context.Background(), LoadOptions{Silent: true}))

	s := l.State()
	assert.Equal(t, content.StatusReady, s.Status)
	assert.NotEmpty(t, s.Error)
	assert.Equal(t, "from api", s.Document.Summary)
}

func TestLoader_SilentFailureWithoutFallbackIsError(t *testing.T) {
	l, _, snap := newFixture(snapshotMode)
	snap.respond(fails(apperror.NewHTTPStatus("y", 404)))

	require.Error(t, l.Load(context.Background(), LoadOptions{Silent: true}))
	assert.Equal(t, content.StatusError, l.State().Status)
}

func TestLoader_RefreshRecoversFromError(t *testing.T) {
	l, api, snap := newFixture(apiMode)
	api.respond(fails(apperror.NewNetwork("x", errors.New("down"))))
	snap.respond(fails(apperror.NewNetwork("y", errors.New("down"))))
	l.Refresh(context.Background())
	require.Equal(t, content.StatusError, l.State().Status)

	api.respond(returns(apiPayload))
	l.Refresh(context.Background())

	s := l.State()
	assert.Equal(t, content.StatusReady, s.Status)
	assert.Empty(t, s.Error)
}

func TestLoader_EmptyDataRoundTrip(t *testing.T) {
	payload, err := json.Marshal(content.EmptyData())
	require.NoError(t, err)

	l, api, _ := newFixture(apiMode)
	api.respond(returns(string(payload)))

	require.NoError(t, l.Load(context.Background(), LoadOptions{}))
	assert.Equal(t, content.EmptyData(), l.State().Document)
}

func TestLoader_WatchTriggerReloadsSilently(t *testing.T) {
	l, api, _ := newFixture(apiMode)
	require.NoError(t, l.Load(context.Background(), LoadOptions{}))
	statuses := recordStatuses(l)

	api.respond(returns(`{"summary": "edited"}`))
	trigger := &stubTrigger{}
	dispose := l.WatchTrigger(trigger)

	trigger.Fire()
	assert.Eventually(t, func() bool {
		return l.State().Document.Summary == "edited"
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, statuses(), content.StatusLoading)

	dispose()
	calls := api.Calls()
	trigger.Fire()
	assert.Equal(t, calls, api.Calls(), "no reload after dispose")
}

func TestLoader_WatchTriggerCoalescesBursts(t *testing.T) {
	l, api, _ := newFixture(apiMode)
	require.NoError(t, l.Load(context.Background(), LoadOptions{}))
	base := api.Calls()

	var (
		mu      sync.Mutex
		active  int
		peak    int
		release = make(chan struct{})
	)
	api.respond(func(ctx context.Context) ([]byte, error) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		defer func() {
			mu.Lock()
			active--
			mu.Unlock()
		}()
		select {
		case <-release:
		case <-ctx.Done():
			return nil, apperror.NewCancelled(ctx.Err())
		}
		return []byte(apiPayload), nil
	})

	trigger := &stubTrigger{}
	dispose := l.WatchTrigger(trigger)
	defer dispose()

	for i := 0; i < 200; i++ {
		trigger.Fire()
	}
	close(release)

	assert.Eventually(t, func() bool { return api.Calls()-base == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, api.Calls()-base, "a burst collapses into one running and one follow-up reload")
	mu.Lock()
	assert.Equal(t, 1, peak)
	mu.Unlock()

	trigger.Fire()
	assert.Eventually(t, func() bool { return api.Calls()-base == 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestLoader_OverlappingForegroundLoads(t *testing.T) {
	l, api, _ := newFixture(apiMode)
	require.NoError(t, l.Load(context.Background(), LoadOptions{}))

	firstStarted := make(chan struct{})
	api.respond(blocksUntilCancelled(firstStarted))
	ctxA, cancelA := context.WithCancel(context.Background())
	doneA := make(chan error, 1)
	go func() { doneA <- l.Load(ctxA, LoadOptions{}) }()
	<-firstStarted

	secondStarted := make(chan struct{})
	api.respond(blocksUntilCancelled(secondStarted))
	ctxB, cancelB := context.WithCancel(context.Background())
	doneB := make(chan error, 1)
	go func() { doneB <- l.Load(ctxB, LoadOptions{}) }()
	<-secondStarted

	cancelA()
	require.True(t, apperror.IsCancelled(<-doneA))
	assert.Equal(t, content.StatusLoading, l.State().Status, "another foreground load is still running")

	cancelB()
	require.True(t, apperror.IsCancelled(<-doneB))
	assert.Equal(t, content.StatusReady, l.State().Status)
	assert.Empty(t, l.State().Error)
}

func TestLoader_CancelAfterOverlappingLoadCompletes(t *testing.T) {
	l, api, _ := newFixture(apiMode)

	started := make(chan struct{})
	api.respond(blocksUntilCancelled(started))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Load(ctx, LoadOptions{}) }()
	<-started

	api.respond(returns(apiPayload))
	require.NoError(t, l.Load(context.Background(), LoadOptions{}))

	cancel()
	require.True(t, apperror.IsCancelled(<-done))
	assert.Equal(t, content.StatusReady, l.State().Status)
}

func TestLoader_CachesAndRestores(t *testing.T) {
	cache := &stubCache{}
	api := &stubSource{name: "api", fetch: returns(apiPayload)}
	l := NewLoader(apiMode, api, nil, cache, logger.NewNopLogger())

	require.NoError(t, l.Load(context.Background(), LoadOptions{}))
	require.Len(t, cache.saved, 1)
	assert.Equal(t, content.SourceAPI, cache.saved[0].Source)
	assert.Equal(t, "from api", cache.saved[0].Document.Summary)

	restoredCache := &stubCache{stored: &cache.saved[0]}
	down := &stubSource{name: "api", fetch: fails(apperror.NewNetwork("x", errors.New("down")))}
	restarted := NewLoader(apiMode, down, nil, restoredCache, logger.NewNopLogger())

	require.NoError(t, restarted.Restore(context.Background()))
	s := restarted.State()
	assert.Equal(t, content.StatusLoading, s.Status)
	assert.Equal(t, content.SourceCache, s.Source)

	require.Error(t, restarted.Load(context.Background(), LoadOptions{}))
	s = restarted.State()
	assert.Equal(t, content.StatusError, s.Status)
	assert.Equal(t, "from api", s.Document.Summary, "cached document survives the failed load")
}

func TestLoader_RestoreDoesNotOverwriteLoadedContent(t *testing.T) {
	stale := service.CachedContent{Document: content.EmptyData(), Source: content.SourceAPI}
	stale.Document.Summary = "stale"
	api := &stubSource{name: "api", fetch: returns(apiPayload)}
	l := NewLoader(apiMode, api, nil, &stubCache{stored: &stale}, logger.NewNopLogger())

	require.NoError(t, l.Load(context.Background(), LoadOptions{}))
	require.NoError(t, l.Restore(context.Background()))

	assert.Equal(t, "from api", l.State().Document.Summary)
	assert.Equal(t, content.SourceAPI, l.CurrentSource())
}
