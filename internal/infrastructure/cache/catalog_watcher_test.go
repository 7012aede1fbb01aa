package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingInvalidator struct {
	mu       sync.Mutex
	modules  []string
	clears   int
	failWith error
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, module string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.modules = append(r.modules, module)
	return nil
}

func (r *recordingInvalidator) InvalidateAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.clears++
	return nil
}

func (r *recordingInvalidator) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.modules...), r.clears
}

func TestCatalogWatcher_Handle(t *testing.T) {
	inv := &recordingInvalidator{}
	var changed []string
	w := NewCatalogWatcher("", inv, CatalogWatcherOptions{
		OnChange: func(module string) { changed = append(changed, module) },
	})
	ctx := context.Background()

	w.handle(ctx, &pq.Notification{Channel: CatalogChannel, Extra: "ggrc_risks"})
	w.handle(ctx, &pq.Notification{Channel: CatalogChannel, Extra: ""})
	w.handle(ctx, nil)

	modules, clears := inv.snapshot()
	assert.Equal(t, []string{"ggrc_risks"}, modules)
	assert.Equal(t, 1, clears)
	assert.Equal(t, []string{"ggrc_risks", ""}, changed)
}

func TestCatalogWatcher_HandleError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	inv := &recordingInvalidator{failWith: errors.New("cache unavailable")}
	called := false
	w := NewCatalogWatcher("", inv, CatalogWatcherOptions{
		Logger:   zap.New(core),
		OnChange: func(string) { called = true },
	})

	w.handle(context.Background(), &pq.Notification{Extra: "ggrc_core"})

	assert.False(t, called)
	entries := logs.FilterMessage("failed to invalidate catalog cache").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ggrc_core", entries[0].ContextMap()["module"])
}

func TestCatalogWatcher_Watch(t *testing.T) {
	inv := &recordingInvalidator{}
	w := NewCatalogWatcher("", inv, CatalogWatcherOptions{PingInterval: time.Millisecond})
	w.started = true

	notify := make(chan *pq.Notification)
	pinged := make(chan struct{}, 1)
	ping := func() error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	}

	go w.watch(context.Background(), notify, ping)

	notify <- &pq.Notification{Channel: CatalogChannel, Extra: "ggrc_risks"}
	notify <- &pq.Notification{Channel: CatalogChannel, Extra: "ggrc_core"}

	select {
	case <-pinged:
	case <-time.After(time.Second):
		t.Fatal("listener was not pinged")
	}

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	modules, _ := inv.snapshot()
	assert.Equal(t, []string{"ggrc_risks", "ggrc_core"}, modules)
}

func TestCatalogWatcher_StopWithoutStart(t *testing.T) {
	w := NewCatalogWatcher("", &recordingInvalidator{}, CatalogWatcherOptions{})
	assert.NoError(t, w.Stop())
	assert.Equal(t, defaultPingInterval, w.pingInterval)
}
