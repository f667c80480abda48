package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/annel0/voxel-export/internal/eventbus"
	"github.com/annel0/voxel-export/internal/logging"
	"github.com/annel0/voxel-export/internal/model"
	"github.com/annel0/voxel-export/internal/observability"
	"github.com/annel0/voxel-export/internal/occlusion"
	"github.com/annel0/voxel-export/internal/subdivide"
	"github.com/annel0/voxel-export/internal/vec"
	"github.com/annel0/voxel-export/internal/world"
	"github.com/annel0/voxel-export/internal/world/block"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrChunkNotLoaded возвращается, если в регионе есть незагруженный чанк
var ErrChunkNotLoaded = errors.New("чанк не загружен")

// Options: параметры экспорта
type Options struct {
	Workers             int
	CalculateCornerUVs  bool
	SubdivideForCorners bool
	// CacheTag добавляется к хэшу конфигурации (например, сид мира),
	// чтобы кэш не отдавал меши другого мира
	CacheTag string
}

// Recorder принимает счётчики экспорта
type Recorder interface {
	RecordChunk(voxels, quads, hidden, split int, cached bool)
	RecordExport(d time.Duration, err error)
}

// Cache хранит готовые меши чанков
type Cache interface {
	Save(coords vec.Vec2, configHash string, v interface{}) error
	Load(coords vec.Vec2, configHash string, dst interface{}) (bool, error)
}

// Option настраивает Exporter
type Option func(*Exporter)

// WithRecorder подключает метрики
func WithRecorder(r Recorder) Option {
	return func(e *Exporter) { e.recorder = r }
}

// WithCache подключает кэш мешей чанков
func WithCache(c Cache) Option {
	return func(e *Exporter) { e.cache = c }
}

// WithEvents публикует прогресс экспорта в шину событий
func WithEvents(p eventbus.Publisher) Option {
	return func(e *Exporter) { e.events = p }
}

// Exporter превращает загруженные чанки мира в меш видимых граней
type Exporter struct {
	opts     Options
	reg      *block.Registry
	world    *world.World
	engine   *occlusion.Engine
	recorder Recorder
	cache    Cache
	events   eventbus.Publisher
	hash     string
	logger   *logging.Logger
}

// NewExporter создаёт экспортёр; Workers <= 0 означает один воркер
func NewExporter(w *world.World, reg *block.Registry, opts Options, options ...Option) *Exporter {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	e := &Exporter{
		opts:   opts,
		reg:    reg,
		world:  w,
		engine: occlusion.NewEngine(occlusion.Config{CalculateCornerUVs: opts.CalculateCornerUVs}),
		logger: logging.GetExportLogger(),
	}
	for _, o := range options {
		o(e)
	}
	e.hash = ConfigHash(opts)
	return e
}

// ConfigHash возвращает ключ конфигурации, под которым кэшируются меши
func (e *Exporter) ConfigHash() string {
	return e.hash
}

// ConfigHash хэширует параметры, от которых зависит меш чанка
func ConfigHash(opts Options) string {
	key := fmt.Sprintf("corners=%t;subdivide=%t;tag=%s", opts.CalculateCornerUVs, opts.SubdivideForCorners, opts.CacheTag)
	return strconv.FormatUint(xxhash.Sum64String(key), 16)
}

// worker: буферы одного воркера; между воркерами не разделяются
type worker struct {
	scratch   *occlusion.Scratch
	neighbors world.NeighborScratch
	models    []*model.Model
}

// Export обходит чанки region (все загруженные, если region пуст) на
// Workers горутинах и сливает результат в порядке region.
func (e *Exporter) Export(ctx context.Context, region []vec.Vec2) (mesh *Mesh, err error) {
	start := time.Now()
	session := uuid.New().String()
	if len(region) == 0 {
		region = e.world.ChunkCoords()
	}

	ctx, span := observability.Tracer().Start(ctx, "voxel_export.export", trace.WithAttributes(
		attribute.String("session.id", session),
		attribute.Int("chunks", len(region)),
		attribute.Int("workers", e.opts.Workers),
	))
	defer func() {
		finished := eventbus.ExportFinished{Chunks: len(region), DurationMS: time.Since(start).Milliseconds()}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			finished.Error = err.Error()
		} else {
			finished.Visible = mesh.Stats.Visible
		}
		span.End()
		if e.recorder != nil {
			e.recorder.RecordExport(time.Since(start), err)
		}
		// ctx уже может быть отменён, а событие о завершении терять нельзя
		e.publish(context.WithoutCancel(ctx), session, eventbus.TypeExportFinished, eventbus.PriorityLifecycle, finished)
	}()

	e.logger.Info("🚀 Экспорт %s: %d чанков, воркеров %d", session, len(region), e.opts.Workers)
	e.publish(ctx, session, eventbus.TypeExportStarted, eventbus.PriorityLifecycle,
		eventbus.ExportStarted{Chunks: len(region), Workers: e.opts.Workers})

	results := make([]*Mesh, len(region))
	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range region {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < e.opts.Workers; i++ {
		g.Go(func() error {
			wk := &worker{scratch: occlusion.NewScratch()}
			for idx := range jobs {
				m, err := e.exportChunk(gctx, wk, region[idx])
				if err != nil {
					return err
				}
				results[idx] = m
				e.publish(gctx, session, eventbus.TypeChunkExported, eventbus.PriorityProgress, eventbus.ChunkExported{
					X:       region[idx].X,
					Z:       region[idx].Y,
					Voxels:  m.Stats.Voxels,
					Visible: m.Stats.Visible,
					Cached:  m.Stats.Cached > 0,
				})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.logger.Warn("⚠️ Экспорт %s прерван: %v", session, err)
		return nil, err
	}

	mesh = NewMesh()
	for _, m := range results {
		mesh.Append(m)
	}
	e.logger.Info("✅ Экспорт %s завершён за %v: вокселей %d, граней %d, видимых %d (из кэша %d чанков)",
		session, time.Since(start), mesh.Stats.Voxels, mesh.Stats.Quads, mesh.Stats.Visible, mesh.Stats.Cached)
	return mesh, nil
}

// exportChunk строит меш одного чанка или берёт его из кэша
func (e *Exporter) exportChunk(ctx context.Context, wk *worker, coords vec.Vec2) (*Mesh, error) {
	chunk, ok := e.world.Chunk(coords)
	if !ok {
		return nil, fmt.Errorf("%w: (%d, %d)", ErrChunkNotLoaded, coords.X, coords.Y)
	}

	if e.cache != nil {
		cached := NewMesh()
		found, err := e.cache.Load(coords, e.hash, cached)
		if err != nil {
			e.logger.Warn("Не удалось прочитать кэш чанка (%d, %d): %v", coords.X, coords.Y, err)
		} else if found {
			cached.reindex()
			cached.Stats.Cached = 1
			e.record(cached.Stats, true)
			return cached, nil
		}
	}

	mesh := NewMesh()
	done := ctx.Done()
	baseX := coords.X * world.ChunkSize
	baseZ := coords.Y * world.ChunkSize
	for y := chunk.MinY; y < chunk.MinY+chunk.Height; y++ {
		for z := 0; z < world.ChunkSize; z++ {
			for x := 0; x < world.ChunkSize; x++ {
				select {
				case <-done:
					return nil, ctx.Err()
				default:
				}
				id := chunk.Get(x, y, z)
				if id == block.AirBlockID {
					continue
				}
				e.exportVoxel(wk, mesh, baseX+x, y, baseZ+z, id)
			}
		}
	}
	mesh.Stats.Chunks = 1

	if e.cache != nil {
		if err := e.cache.Save(coords, e.hash, mesh); err != nil {
			e.logger.Warn("Не удалось сохранить чанк (%d, %d) в кэш: %v", coords.X, coords.Y, err)
		}
	}
	e.record(mesh.Stats, false)
	return mesh, nil
}

// exportVoxel добавляет в mesh видимые грани вокселя (x, y, z)
func (e *Exporter) exportVoxel(wk *worker, mesh *Mesh, x, y, z int, id block.BlockID) {
	state, ok := e.reg.Get(id)
	if !ok || state.Air {
		return
	}

	occ, neighbors := world.NeighborSummary(e.world, e.reg, x, y, z, state, &wk.neighbors)
	wk.models = state.Models(x, y, z, wk.models[:0])
	models := wk.models

	split := 0
	if e.opts.SubdivideForCorners {
		before := model.QuadCount(models)
		var changed bool
		if models, changed = subdivide.Subdivide(models, occ); changed {
			split = model.QuadCount(models) - before
		}
	}

	res := e.engine.Evaluate(wk.scratch, models, state.Flags(), occ, neighbors)
	origin := vec.Vec3{X: x, Y: y, Z: z}
	for i, q := range res.Quads {
		if res.IsVisible(i) {
			mesh.AddQuad(q, origin, res.Corner(i))
		}
	}

	visible := res.VisibleCount()
	mesh.Stats.Voxels++
	mesh.Stats.Quads += res.Len()
	mesh.Stats.Hidden += res.Len() - visible
	mesh.Stats.Split += split
	mesh.Stats.Visible += visible
}

// publish отправляет событие; сбой шины не прерывает экспорт
func (e *Exporter) publish(ctx context.Context, session, eventType string, priority int, payload interface{}) {
	if e.events == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(eventType, "voxel-export", session, priority, payload)
	if err == nil {
		err = e.events.Publish(ctx, ev)
	}
	if err != nil {
		e.logger.Debug("Событие %s не опубликовано: %v", eventType, err)
	}
}

func (e *Exporter) record(s Stats, cached bool) {
	if e.recorder != nil {
		e.recorder.RecordChunk(s.Voxels, s.Quads, s.Hidden, s.Split, cached)
	}
}
