package api

import (
	"context"
	"sync"
	"time"

	"github.com/annel0/voxel-export/internal/eventbus"
)

// State: стадия последнего экспорта
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Snapshot: состояние последнего экспорта для /api/status
type Snapshot struct {
	State        State     `json:"state"`
	Session      string    `json:"session,omitempty"`
	ChunksTotal  int       `json:"chunks_total"`
	ChunksDone   int       `json:"chunks_done"`
	ChunksCached int       `json:"chunks_cached"`
	Voxels       int       `json:"voxels"`
	Visible      int       `json:"visible"`
	Percent      float64   `json:"percent"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	DurationMS   int64     `json:"duration_ms,omitempty"`
}

// Progress собирает прогресс экспорта из шины событий.
// Подписчики in-memory шины вызываются без порядка, поэтому
// сессия определяется по первому пришедшему событию.
type Progress struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewProgress() *Progress {
	return &Progress{snap: Snapshot{State: StateIdle}}
}

// Attach подписывает Progress на все события экспорта
func (p *Progress) Attach(bus eventbus.EventBus) (eventbus.Subscription, error) {
	return bus.Subscribe(context.Background(), eventbus.Filter{
		Types: []string{eventbus.TypeExportStarted, eventbus.TypeChunkExported, eventbus.TypeExportFinished},
	}, p.Handle)
}

// Handle применяет одно событие
func (p *Progress) Handle(_ context.Context, ev *eventbus.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Session != p.snap.Session {
		if ev.Timestamp.Before(p.snap.StartedAt) {
			return // хвост предыдущей сессии
		}
		p.snap = Snapshot{State: StateRunning, Session: ev.Session, StartedAt: ev.Timestamp}
	}
	if ev.Timestamp.Before(p.snap.StartedAt) {
		p.snap.StartedAt = ev.Timestamp
	}

	switch ev.EventType {
	case eventbus.TypeExportStarted:
		var started eventbus.ExportStarted
		if ev.Decode(&started) == nil {
			p.snap.ChunksTotal = started.Chunks
		}
	case eventbus.TypeChunkExported:
		var chunk eventbus.ChunkExported
		if ev.Decode(&chunk) != nil {
			return
		}
		p.snap.ChunksDone++
		if chunk.Cached {
			p.snap.ChunksCached++
		}
		p.snap.Voxels += chunk.Voxels
		p.snap.Visible += chunk.Visible
	case eventbus.TypeExportFinished:
		var fin eventbus.ExportFinished
		if ev.Decode(&fin) != nil {
			return
		}
		p.snap.ChunksTotal = fin.Chunks
		p.snap.DurationMS = fin.DurationMS
		if fin.Error != "" {
			p.snap.State = StateFailed
			p.snap.Error = fin.Error
		} else {
			p.snap.State = StateDone
		}
	}

	if p.snap.ChunksTotal > 0 {
		p.snap.Percent = float64(p.snap.ChunksDone) * 100 / float64(p.snap.ChunksTotal)
	}
}

// Snapshot возвращает копию текущего состояния
func (p *Progress) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}
