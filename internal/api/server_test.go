package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/annel0/voxel-export/internal/eventbus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, session, typ string, at time.Time, payload interface{}) *eventbus.Envelope {
	t.Helper()
	ev, err := eventbus.NewEnvelope(typ, "test", session, eventbus.PriorityLifecycle, payload)
	require.NoError(t, err)
	ev.Timestamp = at
	return ev
}

func TestProgress_TracksSession(t *testing.T) {
	p := NewProgress()
	assert.Equal(t, StateIdle, p.Snapshot().State)

	t0 := time.Now()
	ctx := context.Background()
	// Чанк пришёл раньше события о старте
	p.Handle(ctx, envelope(t, "a", eventbus.TypeChunkExported, t0.Add(time.Millisecond), eventbus.ChunkExported{Voxels: 3, Visible: 5, Cached: true}))
	p.Handle(ctx, envelope(t, "a", eventbus.TypeExportStarted, t0, eventbus.ExportStarted{Chunks: 4}))
	p.Handle(ctx, envelope(t, "a", eventbus.TypeChunkExported, t0.Add(2*time.Millisecond), eventbus.ChunkExported{Voxels: 1, Visible: 2}))

	s := p.Snapshot()
	assert.Equal(t, StateRunning, s.State)
	assert.Equal(t, "a", s.Session)
	assert.Equal(t, 4, s.ChunksTotal)
	assert.Equal(t, 2, s.ChunksDone)
	assert.Equal(t, 1, s.ChunksCached)
	assert.Equal(t, 7, s.Visible)
	assert.InDelta(t, 50, s.Percent, 1e-9)
	assert.Equal(t, t0, s.StartedAt)

	p.Handle(ctx, envelope(t, "a", eventbus.TypeExportFinished, t0.Add(time.Second), eventbus.ExportFinished{Chunks: 4, DurationMS: 1000}))
	assert.Equal(t, StateDone, p.Snapshot().State)

	// Новая сессия сбрасывает счётчики, хвост старой игнорируется
	p.Handle(ctx, envelope(t, "b", eventbus.TypeExportFinished, t0.Add(2*time.Second), eventbus.ExportFinished{Chunks: 1, Error: "boom"}))
	p.Handle(ctx, envelope(t, "a", eventbus.TypeChunkExported, t0.Add(3*time.Millisecond), eventbus.ChunkExported{}))
	s = p.Snapshot()
	assert.Equal(t, StateFailed, s.State)
	assert.Equal(t, "b", s.Session)
	assert.Equal(t, "boom", s.Error)
	assert.Zero(t, s.ChunksDone)
}

func TestProgress_AttachToBus(t *testing.T) {
	bus := eventbus.NewMemoryBus(8)
	p := NewProgress()
	_, err := p.Attach(bus)
	require.NoError(t, err)

	ev, err := eventbus.NewEnvelope(eventbus.TypeExportStarted, "test", "s", eventbus.PriorityLifecycle, eventbus.ExportStarted{Chunks: 9})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Close())

	assert.Equal(t, 9, p.Snapshot().ChunksTotal)
}

func newTestServer(t *testing.T) (*StatusServer, *Progress) {
	t.Helper()
	p := NewProgress()
	s, err := NewStatusServer(prometheus.NewRegistry(), p)
	require.NoError(t, err)
	return s, p
}

func get(t *testing.T, s *StatusServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatusServer_Health(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestStatusServer_Status(t *testing.T) {
	s, p := newTestServer(t)
	p.Handle(context.Background(), envelope(t, "abc", eventbus.TypeExportStarted, time.Now(), eventbus.ExportStarted{Chunks: 2}))

	rec := get(t, s, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, StateRunning, snap.State)
	assert.Equal(t, "abc", snap.Session)
	assert.Equal(t, 2, snap.ChunksTotal)
}

func TestStatusServer_MetricsAndErrors(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/nope").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/api/process").Code)

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "status_api_http_request_errors_total"), "ошибки HTTP учитываются")
	assert.Contains(t, body, `path="unmatched"`)
}

func TestNewStatusServer_DuplicateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewStatusServer(reg, NewProgress())
	require.NoError(t, err)
	_, err = NewStatusServer(reg, NewProgress())
	assert.Error(t, err, "метрики уже зарегистрированы")
}
