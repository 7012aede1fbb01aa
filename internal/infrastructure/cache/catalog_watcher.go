package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asakaida/riskmap/internal/infrastructure/logging"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// CatalogChannel is the PostgreSQL NOTIFY channel written by the catalogs trigger
const CatalogChannel = "catalog_changed"

const defaultPingInterval = 90 * time.Second

// Invalidator drops cached state derived from stored catalogs
type Invalidator interface {
	Invalidate(ctx context.Context, module string) error
	InvalidateAll(ctx context.Context) error
}

// CatalogWatcher keeps catalog caches consistent across instances.
// It uses PostgreSQL LISTEN/NOTIFY: every catalog write notifies the module name,
// and each instance drops its cached catalogs for that module.
type CatalogWatcher struct {
	mu           sync.Mutex
	invalidator  Invalidator
	connStr      string
	listener     *pq.Listener
	logger       *zap.Logger
	pingInterval time.Duration
	onChange     func(module string)
	stopCh       chan struct{}
	doneCh       chan struct{}
	started      bool
	stopped      bool
}

// CatalogWatcherOptions configures a CatalogWatcher
type CatalogWatcherOptions struct {
	PingInterval time.Duration       // Keep-alive ping interval, 0 uses 90 seconds
	OnChange     func(module string) // Called after a module was invalidated, "" after a reconnect
	Logger       *zap.Logger
}

// NewCatalogWatcher creates a new CatalogWatcher.
// connStr is the PostgreSQL connection string for LISTEN/NOTIFY.
func NewCatalogWatcher(connStr string, invalidator Invalidator, opts CatalogWatcherOptions) *CatalogWatcher {
	logger := logging.OrNop(opts.Logger)
	interval := opts.PingInterval
	if interval <= 0 {
		interval = defaultPingInterval
	}
	return &CatalogWatcher{
		invalidator:  invalidator,
		connStr:      connStr,
		logger:       logger,
		pingInterval: interval,
		onChange:     opts.OnChange,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins listening for catalog changes
func (w *CatalogWatcher) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			// Not fatal: the listener reconnects on its own
			w.logger.Warn("catalog listener error", zap.Error(err))
		}
	}

	listener := pq.NewListener(w.connStr, 10*time.Second, time.Minute, reportProblem)
	if err := listener.Listen(CatalogChannel); err != nil {
		listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", CatalogChannel, err)
	}

	w.mu.Lock()
	w.listener = listener
	w.started = true
	w.mu.Unlock()

	go w.watch(context.WithoutCancel(ctx), listener.Notify, listener.Ping)

	w.logger.Info("catalog watcher started", zap.String("channel", CatalogChannel))
	return nil
}

// Stop stops the watcher and closes the listener
func (w *CatalogWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	started := w.started
	listener := w.listener
	w.mu.Unlock()

	if started {
		<-w.doneCh
	}
	if listener != nil {
		return listener.Close()
	}
	return nil
}

// watch processes notifications until Stop is called
func (w *CatalogWatcher) watch(ctx context.Context, notify <-chan *pq.Notification, ping func() error) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case notification := <-notify:
			w.handle(ctx, notification)
		case <-ticker.C:
			go func() {
				if err := ping(); err != nil {
					w.logger.Warn("catalog listener ping failed", zap.Error(err))
				}
			}()
		}
	}
}

// handle invalidates caches for one notification.
// A nil notification means the connection was re-established and changes may have been missed.
func (w *CatalogWatcher) handle(ctx context.Context, notification *pq.Notification) {
	if notification == nil {
		if err := w.invalidator.InvalidateAll(ctx); err != nil {
			w.logger.Error("failed to invalidate catalog caches after reconnect", zap.Error(err))
			return
		}
		w.logger.Info("catalog listener reconnected, caches cleared")
		w.changed("")
		return
	}

	module := notification.Extra
	if module == "" {
		w.logger.Warn("catalog notification without module", zap.String("channel", notification.Channel))
		return
	}

	if err := w.invalidator.Invalidate(ctx, module); err != nil {
		w.logger.Error("failed to invalidate catalog cache", zap.String("module", module), zap.Error(err))
		return
	}
	w.logger.Debug("catalog changed", zap.String("module", module))
	w.changed(module)
}

func (w *CatalogWatcher) changed(module string) {
	if w.onChange != nil {
		w.onChange(module)
	}
}
