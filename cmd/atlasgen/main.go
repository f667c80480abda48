package main

import (
	"flag"
	"log"
	"os"

	"github.com/annel0/voxel-export/internal/logging"
	"github.com/annel0/voxel-export/internal/occlusion"
)

func main() {
	out := flag.String("out", "corner_atlas.png", "путь к PNG атласа")
	scale := flag.Int("scale", 1, "масштаб атласа (1 — 1024×1024)")
	flag.Parse()

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("❌ Ошибка создания файла: %v", err)
	}
	if err := occlusion.WriteAtlasPNG(f, *scale); err != nil {
		f.Close()
		log.Fatalf("❌ Ошибка генерации атласа: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("❌ Ошибка записи атласа: %v", err)
	}
	logging.Info("🖼️ Атлас рёбер записан в %s (масштаб %d)", *out, *scale)
}
