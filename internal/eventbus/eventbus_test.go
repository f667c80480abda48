package eventbus

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEnvelope(t *testing.T, typ string, prio int, payload interface{}) *Envelope {
	t.Helper()
	ev, err := NewEnvelope(typ, "test", "s1", prio, payload)
	require.NoError(t, err)
	return ev
}

func TestEnvelope_Decode(t *testing.T) {
	ev := mustEnvelope(t, TypeChunkExported, PriorityProgress, ChunkExported{X: 2, Z: -1, Visible: 10, Cached: true})
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "s1", ev.Session)

	var got ChunkExported
	require.NoError(t, ev.Decode(&got))
	assert.Equal(t, ChunkExported{X: 2, Z: -1, Visible: 10, Cached: true}, got)
}

func TestMemoryBus_FilterAndClose(t *testing.T) {
	bus := NewMemoryBus(16)

	var mu sync.Mutex
	var chunks, all int
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeChunkExported}}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		chunks++
		mu.Unlock()
	})
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		all++
		mu.Unlock()
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, TypeExportStarted, PriorityLifecycle, ExportStarted{Chunks: 2})))
	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, TypeChunkExported, PriorityProgress, ChunkExported{})))
	require.NoError(t, bus.Publish(ctx, mustEnvelope(t, TypeChunkExported, PriorityProgress, ChunkExported{})))

	// Close дожидается доставки
	require.NoError(t, bus.Close())
	mu.Lock()
	assert.Equal(t, 2, chunks)
	assert.Equal(t, 3, all)
	mu.Unlock()

	stats := bus.Metrics()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(5), stats.Consumed)

	assert.ErrorIs(t, bus.Publish(ctx, mustEnvelope(t, TypeChunkExported, PriorityProgress, ChunkExported{})), ErrBusClosed)
	assert.NoError(t, bus.Close(), "повторное закрытие безопасно")
}

// stallDispatch блокирует рассылку, пока не будет вызвана возвращённая функция
func stallDispatch(bus EventBus) func() {
	mb := bus.(*memoryBus)
	mb.mu.Lock()
	return mb.mu.Unlock
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	resume := stallDispatch(bus)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(ctx, mustEnvelope(t, TypeChunkExported, PriorityProgress, ChunkExported{})))
	}
	stats := bus.Metrics()
	assert.GreaterOrEqual(t, stats.Dropped, uint64(8), "при заполненном буфере прогресс отбрасывается")
	assert.Equal(t, uint64(10), stats.Published+stats.Dropped)

	resume()
	require.NoError(t, bus.Close())
}

func TestMemoryBus_HighPriorityRespectsContext(t *testing.T) {
	bus := NewMemoryBus(1)
	resume := stallDispatch(bus)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var lastErr error
	for i := 0; i < 3 && lastErr == nil; i++ {
		lastErr = bus.Publish(ctx, mustEnvelope(t, TypeExportFinished, PriorityLifecycle, ExportFinished{}))
	}
	assert.ErrorIs(t, lastErr, context.DeadlineExceeded)

	resume()
	require.NoError(t, bus.Close())
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	var mu sync.Mutex
	got := 0
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got++
		mu.Unlock()
	})
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, TypeExportStarted, PriorityLifecycle, ExportStarted{})))
	require.NoError(t, bus.Close())
	mu.Lock()
	assert.Zero(t, got)
	mu.Unlock()
}

func TestRegisterMetrics(t *testing.T) {
	bus := NewMemoryBus(4)
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg, bus))

	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, TypeExportStarted, PriorityLifecycle, ExportStarted{})))
	require.NoError(t, bus.Close())

	expected := `
# HELP eventbus_messages_published_total Общее число опубликованных сообщений.
# TYPE eventbus_messages_published_total counter
eventbus_messages_published_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "eventbus_messages_published_total"))
	assert.Error(t, RegisterMetrics(reg, bus), "повторная регистрация отклоняется")
}
