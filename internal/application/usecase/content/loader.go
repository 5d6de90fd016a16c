package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-portal/internal/application/service"
	"github.com/khoahotran/profile-portal/internal/config"
	"github.com/khoahotran/profile-portal/internal/domain/content"
	"github.com/khoahotran/profile-portal/pkg/apperror"
	"github.com/khoahotran/profile-portal/pkg/logger"
	"github.com/khoahotran/profile-portal/pkg/metrics"
)

const cacheWriteTimeout = 2 * time.Second

var tracer = otel.Tracer("content_loader")

type LoadOptions struct {
	// Silent loads never move the status to loading.
	Silent bool
}

// State is a read-only view of the loader. Document is shared with the
// loader and must not be mutated.
type State struct {
	Document content.Document  `json:"content"`
	Status   content.LoadStatus `json:"status"`
	Source   content.Source     `json:"source"`
	Error    string             `json:"error,omitempty"`
	LoadedAt time.Time          `json:"loaded_at"`
}

type listener struct {
	id int
	fn func(State)
}

type Loader struct {
	endpoints config.Endpoints
	api       service.ContentSource
	snapshot  service.ContentSource
	cache     service.ContentCache
	logger    logger.Logger

	mu        sync.RWMutex
	state     State
	listeners []listener
	nextID    int

	// foreground counts running non-silent loads. settled is the status and
	// error from before the first of them started.
	foreground int
	settled    State
}

// NewLoader wires a loader. api may be nil in snapshot mode and cache may be
// nil when no cache is configured.
func NewLoader(
	endpoints config.Endpoints,
	api service.ContentSource,
	snapshot service.ContentSource,
	cache service.ContentCache,
	log logger.Logger,
) *Loader {
	return &Loader{
		endpoints: endpoints,
		api:       api,
		snapshot:  snapshot,
		cache:     cache,
		logger:    log,
		state: State{
			Document: content.EmptyData(),
			Status:   content.StatusLoading,
			Source:   content.SourceNone,
		},
	}
}

func (l *Loader) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Document returns the current document. It must not be mutated.
func (l *Loader) Document() content.Document {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Document
}

func (l *Loader) CurrentSource() content.Source {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Source
}

func (l *Loader) SnapshotMode() bool {
	return !l.usesAPI()
}

// OnChange registers fn to be called with every committed state.
func (l *Loader) OnChange(fn func(State)) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners = append(l.listeners, listener{id: id, fn: fn})
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, ln := range l.listeners {
			if ln.id == id {
				l.listeners = append(l.listeners[:i], l.listeners[i+1:]...)
				return
			}
		}
	}
}

// Load fetches the document once. In snapshot mode only the snapshot is
// read; otherwise the API is tried first and the snapshot is the fallback.
// A cancelled load leaves the state as it found it.
func (l *Loader) Load(ctx context.Context, opts LoadOptions) error {
	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()
	span.SetAttributes(attribute.Bool("silent", opts.Silent))

	log := l.logger.With(zap.Bool("silent", opts.Silent))
	start := time.Now()

	if !opts.Silent {
		l.commit(func(s *State) bool {
			if l.foreground == 0 {
				l.settled = State{Status: s.Status, Error: s.Error}
			}
			l.foreground++
			s.Status = content.StatusLoading
			s.Error = ""
			return true
		})
	}

	doc, source, err := l.fetch(ctx)
	if err == nil && ctx.Err() != nil {
		err = apperror.NewCancelled(ctx.Err())
	}

	if err != nil && (apperror.IsCancelled(err) || ctx.Err() != nil) {
		if !opts.Silent {
			// Only the last foreground load to finish may roll back loading.
			l.commit(func(s *State) bool {
				l.foreground--
				if l.foreground > 0 || s.Status != content.StatusLoading {
					return false
				}
				s.Status = l.settled.Status
				s.Error = l.settled.Error
				return true
			})
		}
		log.Debug("Content load cancelled")
		metrics.ObserveLoad(string(content.SourceNone), metrics.OutcomeCancelled, opts.Silent, time.Since(start))
		if !errors.Is(err, apperror.ErrCancelled) {
			err = apperror.NewCancelled(err)
		}
		return err
	}

	if err != nil {
		msg := apperror.UserMessage(err)
		l.commit(func(s *State) bool {
			if !opts.Silent {
				l.foreground--
			}
			s.Error = msg
			if opts.Silent && s.Source != content.SourceNone {
				return true
			}
			s.Status = content.StatusError
			return true
		})
		log.Error("Failed to load content", err)
		span.RecordError(err)
		metrics.ObserveLoad(string(content.SourceNone), metrics.OutcomeError, opts.Silent, time.Since(start))
		return err
	}

	status := content.StatusReady
	if source == content.SourceSnapshot {
		status = content.StatusSnapshot
	}
	now := time.Now().UTC()
	l.commit(func(s *State) bool {
		if !opts.Silent {
			l.foreground--
		}
		s.Document = doc
		s.Status = status
		s.Source = source
		s.Error = ""
		s.LoadedAt = now
		return true
	})
	log.Info("Content loaded", zap.String("source", string(source)), zap.String("status", string(status)))
	metrics.ObserveLoad(string(source), metrics.OutcomeOK, opts.Silent, time.Since(start))
	span.SetAttributes(attribute.String("source", string(source)))

	l.writeCache(ctx, doc, source, now)
	return nil
}

// Refresh is the user-facing retry: always non-silent, errors are reflected
// in State only.
func (l *Loader) Refresh(ctx context.Context) {
	_ = l.Load(ctx, LoadOptions{})
}

// Mount starts the initial load. dispose cancels it if it is still running,
// waits for it, and its result is discarded.
func (l *Loader) Mount(parent context.Context) (dispose func()) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Load(ctx, LoadOptions{})
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// WatchTrigger issues a silent reload every time trigger fires. At most one
// reload per trigger runs at a time; fires that arrive meanwhile collapse
// into a single follow-up reload. Reloads are not serialized against
// foreground loads.
func (l *Loader) WatchTrigger(trigger service.Trigger) (dispose func()) {
	ctx, cancel := context.WithCancel(context.Background())

	var (
		mu       sync.Mutex
		closed   bool
		running  bool
		pending  bool
		inflight sync.WaitGroup
	)
	reload := func() {
		defer inflight.Done()
		for {
			_ = l.Load(ctx, LoadOptions{Silent: true})

			mu.Lock()
			if !pending || closed {
				running = false
				pending = false
				mu.Unlock()
				return
			}
			pending = false
			mu.Unlock()
		}
	}

	unsubscribe := trigger.Subscribe(func() {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		if running {
			pending = true
			return
		}
		running = true
		inflight.Add(1)
		go reload()
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			mu.Unlock()
			cancel()
			inflight.Wait()
		})
	}
}

// Restore seeds the document from the cache. Status is left untouched; the
// next load decides it. A document already loaded is never overwritten.
func (l *Loader) Restore(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}
	cached, err := l.cache.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore cached content: %w", err)
	}
	if cached == nil {
		return nil
	}

	restored := l.commit(func(s *State) bool {
		if s.Source != content.SourceNone {
			return false
		}
		s.Document = cached.Document
		s.Source = content.SourceCache
		s.LoadedAt = cached.FetchedAt
		return true
	})
	if restored.Source == content.SourceNone {
		l.logger.Info("Restored cached content", zap.String("cached_source", string(cached.Source)), zap.Time("fetched_at", cached.FetchedAt))
	}
	return nil
}

func (l *Loader) usesAPI() bool {
	return l.endpoints.HasAPIBase && l.api != nil
}

func (l *Loader) fetch(ctx context.Context) (content.Document, content.Source, error) {
	if !l.usesAPI() {
		doc, err := l.fetchFrom(ctx, l.snapshot)
		return doc, content.SourceSnapshot, err
	}

	doc, apiErr := l.fetchFrom(ctx, l.api)
	if apiErr == nil {
		return doc, content.SourceAPI, nil
	}
	if apperror.IsCancelled(apiErr) || ctx.Err() != nil {
		return content.Document{}, content.SourceNone, apiErr
	}

	l.logger.Warn("Content API failed, falling back to snapshot", zap.Error(apiErr))
	metrics.ObserveSnapshotFallback()
	doc, snapErr := l.fetchFrom(ctx, l.snapshot)
	if snapErr == nil {
		return doc, content.SourceSnapshot, nil
	}
	if apperror.IsCancelled(snapErr) {
		return content.Document{}, content.SourceNone, snapErr
	}

	msg := fmt.Sprintf("%s; snapshot fallback failed: %s", apperror.UserMessage(apiErr), apperror.UserMessage(snapErr))
	return content.Document{}, content.SourceNone, apperror.NewAppError(apperror.ErrUnavailable, msg, "", errors.Join(apiErr, snapErr))
}

func (l *Loader) fetchFrom(ctx context.Context, src service.ContentSource) (content.Document, error) {
	if src == nil {
		return content.Document{}, apperror.NewUnavailable("No content source configured", "")
	}
	payload, err := src.Fetch(ctx)
	if err != nil {
		return content.Document{}, err
	}
	doc, err := content.Normalize(payload)
	if err != nil {
		return content.Document{}, apperror.NewFormat(src.Name(), err)
	}
	return doc, nil
}

func (l *Loader) writeCache(ctx context.Context, doc content.Document, source content.Source, fetchedAt time.Time) {
	if l.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()

	err := l.cache.Save(ctx, service.CachedContent{Document: doc, Source: source, FetchedAt: fetchedAt})
	if err != nil {
		l.logger.Warn("Failed to cache content", zap.Error(err))
	}
}

// commit applies mutate under the lock and, if it reports a change, notifies
// listeners outside the lock. It returns the state before mutate ran.
func (l *Loader) commit(mutate func(*State) bool) State {
	l.mu.Lock()
	prev := l.state
	if !mutate(&l.state) {
		l.mu.Unlock()
		return prev
	}
	next := l.state
	listeners := make([]listener, len(l.listeners))
	copy(listeners, l.listeners)
	l.mu.Unlock()

	for _, ln := range listeners {
		ln.fn(next)
	}
	return prev
}
