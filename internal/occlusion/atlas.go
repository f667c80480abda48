package occlusion

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
)

// flatNormal: цвет нормали (0, 0, 1)
var flatNormal = normalColor(0, 0)

// GenerateAtlas рисует атлас нормалей подсветки швов. Каждый логический пиксель
// атласа занимает 2*scale пикселей изображения. Рёбра записи, для которых бит
// связности не установлен, получают наклонённую наружу нормаль.
func GenerateAtlas(scale int) (*image.RGBA, error) {
	if scale < 1 {
		return nil, fmt.Errorf("масштаб атласа должен быть положительным: %d", scale)
	}
	px := 2 * scale
	size := AtlasSize * px
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, flatNormal)
		}
	}

	band := px + 1
	for conn := uint8(0); conn < atlasPages*atlasPages; conn++ {
		seamTop := conn&0b0100 == 0
		seamBottom := conn&0b0001 == 0
		seamLeft := conn&0b1000 == 0
		seamRight := conn&0b0010 == 0

		for _, w := range SizeBuckets {
			for _, h := range SizeBuckets {
				x0, y0, _, _ := atlasRect(conn, int(w), int(h))
				// Запись рисуется вместе с отступом в один пиксель
				startX := (x0 - 1) * px
				startY := (y0 - 1) * px
				fullW := (int(w) + 2) * px
				fullH := (int(h) + 2) * px

				for y := 0; y < fullH; y++ {
					for x := 0; x < fullW; x++ {
						nx, ny := 0.0, 0.0
						if seamTop && y < band {
							ny = 1
						}
						if seamBottom && y >= fullH-band {
							ny = -1
						}
						if seamLeft && x < band {
							nx = -1
						}
						if seamRight && x >= fullW-band {
							nx = 1
						}
						img.SetRGBA(startX+x, startY+y, normalColor(nx, ny))
					}
				}
			}
		}
	}
	return img, nil
}

// WriteAtlasPNG генерирует атлас и пишет его в w в формате PNG
func WriteAtlasPNG(w io.Writer, scale int) error {
	img, err := GenerateAtlas(scale)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("ошибка кодирования атласа: %w", err)
	}
	return nil
}

func normalColor(nx, ny float64) color.RGBA {
	nz := 1.0
	l := math.Sqrt(nx*nx + ny*ny + nz*nz)
	nx, ny, nz = nx/l, ny/l, nz/l
	return color.RGBA{
		R: uint8((nx+1)/2*255 + 0.5),
		G: uint8((ny+1)/2*255 + 0.5),
		B: uint8((nz+1)/2*255 + 0.5),
		A: 255,
	}
}
