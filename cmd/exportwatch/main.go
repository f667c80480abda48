package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/voxel-export/internal/eventbus"
)

const timeFormat = "2006-01-02T15:04:05Z"

// exportwatch печатает события экспорта из NATS JetStream (как tail -f)
func main() {
	var (
		natsURL    = flag.String("nats", "nats://127.0.0.1:4222", "адрес NATS")
		stream     = flag.String("stream", "VOXEL_EXPORT", "имя JetStream потока")
		eventTypes = flag.String("types", "", "фильтр типов событий (через запятую)")
		session    = flag.String("session", "", "показывать только одну сессию экспорта")
		untilDone  = flag.Bool("until-done", false, "выйти после ExportFinished")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к NATS: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	finished := make(chan struct{}, 1)
	filter := eventbus.Filter{Types: parseStringList(*eventTypes)}
	_, err = bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		if *session != "" && ev.Session != *session {
			return
		}
		printEvent(ev)
		if ev.EventType == eventbus.TypeExportFinished {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		log.Fatalf("❌ Подписка не удалась: %v", err)
	}

	fmt.Printf("🎬 Ожидание событий экспорта из %s (поток %s)\n", *natsURL, *stream)
	for {
		select {
		case <-ctx.Done():
			return
		case <-finished:
			if *untilDone {
				return
			}
		}
	}
}

func printEvent(ev *eventbus.Envelope) {
	fmt.Printf("[%s] %s session=%s\n", ev.Timestamp.Format(timeFormat), ev.EventType, ev.Session)

	switch ev.EventType {
	case eventbus.TypeExportStarted:
		var e eventbus.ExportStarted
		if ev.Decode(&e) == nil {
			fmt.Printf("  Чанков: %d Воркеров: %d\n", e.Chunks, e.Workers)
		}
	case eventbus.TypeChunkExported:
		var e eventbus.ChunkExported
		if ev.Decode(&e) == nil {
			fmt.Printf("  Чанк: (%d,%d) вокселей %d видимых граней %d кэш %v\n", e.X, e.Z, e.Voxels, e.Visible, e.Cached)
		}
	case eventbus.TypeExportFinished:
		var e eventbus.ExportFinished
		if ev.Decode(&e) == nil {
			if e.Error != "" {
				fmt.Printf("  ❌ Ошибка: %s\n", e.Error)
			} else {
				fmt.Printf("  ✅ Чанков %d, видимых граней %d за %dмс\n", e.Chunks, e.Visible, e.DurationMS)
			}
		}
	}
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
