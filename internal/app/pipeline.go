package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/voxel-export/internal/api"
	"github.com/annel0/voxel-export/internal/cache"
	"github.com/annel0/voxel-export/internal/config"
	"github.com/annel0/voxel-export/internal/eventbus"
	"github.com/annel0/voxel-export/internal/export"
	"github.com/annel0/voxel-export/internal/logging"
	"github.com/annel0/voxel-export/internal/metrics"
	"github.com/annel0/voxel-export/internal/occlusion"
	"github.com/annel0/voxel-export/internal/storage"
	"github.com/annel0/voxel-export/internal/world"
	"github.com/annel0/voxel-export/internal/world/block"
	"github.com/prometheus/client_golang/prometheus"
)

// Report: итог одного запуска
type Report struct {
	Stats    export.Stats
	Files    []string
	Duration time.Duration
	Process  metrics.ProcessReport
}

// Pipeline связывает конфигурацию, мир, кэш, шину событий и метрики в один запуск экспорта
type Pipeline struct {
	cfg      *config.Config
	registry *prometheus.Registry
	metrics  *metrics.ExportMetrics
	bus      eventbus.EventBus
	progress *api.Progress
	logger   *logging.Logger
}

// NewPipeline создаёт пайплайн; метрики живут в собственном регистре.
// Если NATS недоступен, события идут через in-memory шину.
func NewPipeline(cfg *config.Config) *Pipeline {
	reg := prometheus.NewRegistry()
	p := &Pipeline{
		cfg:      cfg,
		registry: reg,
		metrics:  metrics.NewExportMetrics(reg),
		progress: api.NewProgress(),
		logger:   logging.GetExportLogger(),
	}
	p.bus = p.openBus()

	if err := eventbus.RegisterMetrics(reg, p.bus); err != nil {
		p.logger.Warn("Метрики шины событий не зарегистрированы: %v", err)
	}
	if _, err := eventbus.StartLoggingListener(p.bus); err != nil {
		p.logger.Warn("Не удалось подписать лог на события: %v", err)
	}
	if _, err := p.progress.Attach(p.bus); err != nil {
		p.logger.Warn("Не удалось подписать прогресс на события: %v", err)
	}
	return p
}

func (p *Pipeline) openBus() eventbus.EventBus {
	events := p.cfg.Events
	if url := events.GetNATSURL(); url != "" {
		bus, err := eventbus.NewJetStreamBus(url, events.Stream, events.Retention)
		if err == nil {
			p.logger.Info("📡 События экспорта публикуются в NATS JetStream %s (поток %s)", url, events.Stream)
			return bus
		}
		p.logger.Warn("⚠️ NATS недоступен, события остаются в памяти: %v", err)
	}
	return eventbus.NewMemoryBus(events.Buffer)
}

// Metrics возвращает метрики пайплайна
func (p *Pipeline) Metrics() *metrics.ExportMetrics {
	return p.metrics
}

// Progress возвращает прогресс последнего экспорта
func (p *Pipeline) Progress() *api.Progress {
	return p.progress
}

// Close дожидается доставки событий и закрывает шину
func (p *Pipeline) Close() error {
	return p.bus.Close()
}

// BuildRegistry создаёт реестр блоков из встроенного набора и, если задан, файла block_defs
func (p *Pipeline) BuildRegistry() (*block.Registry, error) {
	reg, err := block.NewDefaultRegistry(p.cfg.World.Seed)
	if err != nil {
		return nil, err
	}
	if path := p.cfg.Export.BlockDefs; path != "" {
		defs, err := block.LoadDefs(path)
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterAll(defs); err != nil {
			return nil, err
		}
		p.logger.Info("📦 Загружено описаний блоков из %s: %d", path, len(defs))
	}
	return reg, nil
}

// Run генерирует демонстрационный мир, экспортирует его и пишет файлы с префиксом out
// (out.obj, out.mtl, при write_corner_uvs ещё out_corners.obj и out_atlas.png)
func (p *Pipeline) Run(ctx context.Context, out string) (*Report, error) {
	start := time.Now()
	cfg := p.cfg

	reg, err := p.BuildRegistry()
	if err != nil {
		return nil, fmt.Errorf("ошибка подготовки блоков: %w", err)
	}

	gen, err := world.NewGenerator(cfg.World.Seed, reg)
	if err != nil {
		return nil, err
	}
	w := gen.GenerateWorld(cfg.World.Size, cfg.World.MinY, cfg.World.Height)
	p.logger.Info("🌍 Сгенерирован мир %d×%d чанков (сид %d)", cfg.World.Size, cfg.World.Size, cfg.World.Seed)

	opts := exportOptions(cfg)
	options := []export.Option{export.WithRecorder(p.metrics), export.WithEvents(p.bus)}
	if cfg.Storage.Enabled {
		meshCache, closeCache, err := p.openCache(export.ConfigHash(opts))
		if err != nil {
			return nil, err
		}
		defer closeCache()
		options = append(options, export.WithCache(meshCache))
	}

	mesh, err := export.NewExporter(w, reg, opts, options...).Export(ctx, nil)
	if err != nil {
		return nil, err
	}

	report := &Report{Stats: mesh.Stats}
	if err := p.writeOutputs(mesh, out, report); err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)
	if proc, err := metrics.SampleProcess(); err == nil {
		report.Process = proc
	} else {
		p.logger.Debug("Не удалось снять метрики процесса: %v", err)
	}
	p.logger.Info("📊 Готово за %s: %s", metrics.FormatDuration(report.Duration), report.Process)
	return report, nil
}

// openCache открывает BadgerDB и, если задан Redis, ставит его быстрым уровнем перед ней
func (p *Pipeline) openCache(configHash string) (cache.MeshCache, func(), error) {
	store, err := storage.NewMeshStore(p.cfg.Storage.GetPath())
	if err != nil {
		return nil, nil, err
	}
	if dropped, err := store.DropStale(configHash); err != nil {
		p.logger.Warn("Не удалось очистить устаревший кэш: %v", err)
	} else if dropped > 0 {
		p.logger.Info("🧹 Удалено устаревших мешей из кэша: %d", dropped)
	}

	url := p.cfg.Storage.GetRedisURL()
	if url == "" {
		return store, func() { store.Close() }, nil
	}
	hot, err := cache.NewRedisMeshCache(cache.CacheConfig{
		RedisURL:      url,
		RedisPassword: p.cfg.Storage.RedisPassword,
		RedisDB:       p.cfg.Storage.RedisDB,
		TTL:           p.cfg.Storage.RedisTTL,
	})
	if err != nil {
		p.logger.Warn("⚠️ Redis недоступен, используется только BadgerDB: %v", err)
		return store, func() { store.Close() }, nil
	}
	closeAll := func() {
		m := hot.GetMetrics()
		p.logger.Debug("Redis кеш: запросов %d, попаданий %d (%.0f%%)", m.TotalRequests, m.CacheHits, m.HitRatio*100)
		hot.Close()
		store.Close()
	}
	return cache.NewTieredCache(hot, store), closeAll, nil
}

func exportOptions(cfg *config.Config) export.Options {
	return export.Options{
		Workers:             cfg.Export.GetWorkers(),
		CalculateCornerUVs:  cfg.Export.CalculateCornerUVs,
		SubdivideForCorners: cfg.Export.SubdivideForCorners,
		CacheTag:            "seed=" + strconv.FormatInt(cfg.World.Seed, 10) + ";size=" + strconv.Itoa(cfg.World.Size),
	}
}

func (p *Pipeline) writeOutputs(mesh *export.Mesh, out string, report *Report) error {
	out = strings.TrimSuffix(out, filepath.Ext(out))
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ошибка создания директории вывода: %w", err)
		}
	}

	mtlPath := out + ".mtl"
	header := fmt.Sprintf("voxel-export: %d граней", mesh.FaceCount())
	if err := writeFile(mtlPath, func(f *os.File) error {
		return export.WriteMTL(f, mesh, func(tex string) string { return "textures/" + tex + ".png" })
	}); err != nil {
		return err
	}
	report.Files = append(report.Files, mtlPath)

	objPath := out + ".obj"
	if err := writeFile(objPath, func(f *os.File) error {
		return export.WriteOBJ(f, mesh, export.OBJOptions{MaterialLib: filepath.Base(mtlPath), Header: header})
	}); err != nil {
		return err
	}
	report.Files = append(report.Files, objPath)

	if p.cfg.Export.CalculateCornerUVs && p.cfg.Export.WriteCornerUVs {
		cornersPath := out + "_corners.obj"
		if err := writeFile(cornersPath, func(f *os.File) error {
			return export.WriteOBJ(f, mesh, export.OBJOptions{UVs: export.CornerUVs, Header: header + ", UV атласа рёбер"})
		}); err != nil {
			return err
		}
		atlasPath := out + "_atlas.png"
		if err := writeFile(atlasPath, func(f *os.File) error {
			return occlusion.WriteAtlasPNG(f, p.cfg.Export.GetAtlasScale())
		}); err != nil {
			return err
		}
		report.Files = append(report.Files, cornersPath, atlasPath)
	}

	for _, f := range report.Files {
		p.logger.Info("💾 Записан %s", f)
	}
	return nil
}

// writeFile создаёт файл и передаёт его в write; ошибка закрытия тоже возвращается
func writeFile(path string, write func(f *os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ошибка создания %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("ошибка закрытия %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("ошибка записи %s: %w", path, err)
	}
	return nil
}
