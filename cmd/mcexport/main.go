package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/annel0/voxel-export/internal/api"
	"github.com/annel0/voxel-export/internal/app"
	"github.com/annel0/voxel-export/internal/config"
	"github.com/annel0/voxel-export/internal/logging"
	"github.com/annel0/voxel-export/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или VOXEL_EXPORT_CONFIG)")
	out := flag.String("out", "out/world.obj", "путь к выходному OBJ")
	seed := flag.Int64("seed", 0, "сид мира (0 — из конфигурации)")
	size := flag.Int("size", 0, "сторона мира в чанках (0 — из конфигурации)")
	tracing := flag.Bool("tracing", false, "отправлять трейсы в OTLP коллектор")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *seed != 0 {
		cfg.World.Seed = *seed
	}
	if *size > 0 {
		cfg.World.Size = *size
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Некорректная конфигурация: %v", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Printf("⚠️ %v, используется INFO", err)
	}
	if err := logging.InitDefaultLogger(cfg.Logging.Dir, level); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *tracing {
		shutdown, err := observability.InitTelemetry(ctx, "voxel-export")
		if err != nil {
			logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	pipeline := app.NewPipeline(cfg)
	defer pipeline.Close()
	if addr := cfg.Metrics.GetAddr(); addr != "" {
		status, err := api.NewStatusServer(pipeline.Metrics().Registry(), pipeline.Progress())
		if err != nil {
			logging.Error("❌ Ошибка создания сервера статуса: %v", err)
		} else {
			shutdown := status.Start(addr)
			defer shutdown(context.Background())
		}
	}

	logging.Info("🧱 Экспорт мира: сид %d, %d×%d чанков, высота %d", cfg.World.Seed, cfg.World.Size, cfg.World.Size, cfg.World.Height)
	report, err := pipeline.Run(ctx, *out)
	if err != nil {
		logging.Error("❌ Экспорт не удался: %v", err)
		pipeline.Close()
		os.Exit(1)
	}
	logging.Info("✅ Вокселей %d, граней %d, видимых %d, разрезано %d",
		report.Stats.Voxels, report.Stats.Quads, report.Stats.Visible, report.Stats.Split)
}
