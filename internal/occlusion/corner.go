package occlusion

import (
	"fmt"

	"github.com/annel0/voxel-export/internal/vec"
)

const (
	// AtlasSize: размер атласа подсветки в логических пикселях
	AtlasSize = 512
	// AtlasPageSize: размер страницы одного шаблона связности
	AtlasPageSize = 128
	atlasPages    = AtlasSize / AtlasPageSize
)

// CornerIndex: упакованное описание видимой грани для атласа подсветки:
// сдвиг рёбер (биты 24..25), связность (16..19), ширина (8..15), высота (0..7).
type CornerIndex uint32

// NewCornerIndex упаковывает поля индекса угла
func NewCornerIndex(edgeOffset, connection, width, height uint8) CornerIndex {
	return CornerIndex(edgeOffset&3)<<24 | CornerIndex(connection&0xF)<<16 |
		CornerIndex(width)<<8 | CornerIndex(height)
}

// EdgeOffset возвращает сдвиг нумерации рёбер 0..3
func (c CornerIndex) EdgeOffset() uint8 { return uint8(c>>24) & 3 }

// Connection возвращает полубайт связности в порядке UV:
// бит 0 - низ, 1 - право, 2 - верх, 3 - лево
func (c CornerIndex) Connection() uint8 { return uint8(c>>16) & 0xF }

// Width возвращает корзину ширины
func (c CornerIndex) Width() uint8 { return uint8(c >> 8) }

// Height возвращает корзину высоты
func (c CornerIndex) Height() uint8 { return uint8(c) }

func (c CornerIndex) String() string {
	return fmt.Sprintf("corner{offset=%d conn=%04b w=%d h=%d}",
		c.EdgeOffset(), c.Connection(), c.Width(), c.Height())
}

// SizeBuckets: допустимые квантованные размеры граней
var SizeBuckets = [...]uint8{1, 2, 3, 4, 5, 6, 7, 8, 10, 12, 14, 16}

// SizeBucket квантует длину ребра: шаг 1 до 7, затем шаг 2 до 16
func SizeBucket(size float64) uint8 {
	switch {
	case size < 1.5:
		return 1
	case size < 2.5:
		return 2
	case size < 3.5:
		return 3
	case size < 4.5:
		return 4
	case size < 5.5:
		return 5
	case size < 6.5:
		return 6
	case size < 7.5:
		return 7
	case size < 9:
		return 8
	case size < 11:
		return 10
	case size < 13:
		return 12
	case size < 15:
		return 14
	}
	return 16
}

// sizeToPixelOffset: начало записи каждого размера внутри страницы.
// Между записями один пиксель отступа с каждой стороны. Последняя запись
// (16 + 2 отступа) начинается с 94 и заканчивается на 112, оставляя
// 16 свободных пикселей до конца страницы.
var sizeToPixelOffset = buildSizeOffsets()

func buildSizeOffsets() [17]int {
	var offsets [17]int
	j := 0
	for i := 1; i < len(offsets); {
		offsets[i] = j
		j += i + 2
		if i < 8 {
			i++
		} else {
			i += 2
		}
	}
	return offsets
}

func clampSize(s uint8) int {
	if s == 0 {
		return 1
	}
	if s > 16 {
		return 16
	}
	return int(s)
}

// atlasRect возвращает прямоугольник записи в логических пикселях без отступа
func atlasRect(connection uint8, width, height int) (x0, y0, x1, y1 int) {
	pageX := int(connection) % atlasPages
	pageY := int(connection) / atlasPages
	x0 = sizeToPixelOffset[width] + 1 + pageX*AtlasPageSize
	y0 = sizeToPixelOffset[height] + 1 + pageY*AtlasPageSize
	return x0, y0, x0 + width, y0 + height
}

// CornerUVs переводит индекс угла в четыре UV-координаты атласа в порядке
// вершин грани. Сдвиг рёбер применяется обратно, чтобы низ записи атласа
// совпал с первым UV-ребром грани.
func CornerUVs(c CornerIndex) [4]vec.Vec2Float {
	w, h := clampSize(c.Width()), clampSize(c.Height())
	x0, y0, x1, y1 := atlasRect(c.Connection(), w, h)

	fx0 := float64(x0) / AtlasSize
	fx1 := float64(x1) / AtlasSize
	fy0 := 1 - float64(y0)/AtlasSize
	fy1 := 1 - float64(y1)/AtlasSize

	eo := (4 - int(c.EdgeOffset())) % 4
	var out [4]vec.Vec2Float
	out[eo%4] = vec.Vec2Float{X: fx0, Y: fy1}
	out[(eo+1)%4] = vec.Vec2Float{X: fx1, Y: fy1}
	out[(eo+2)%4] = vec.Vec2Float{X: fx1, Y: fy0}
	out[(eo+3)%4] = vec.Vec2Float{X: fx0, Y: fy0}
	return out
}
