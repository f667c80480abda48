package occlusion

import (
	"fmt"
	"strings"

	"github.com/annel0/voxel-export/internal/model"
)

// NeighborOcclusion: сводка покрытия соседями для одного вокселя.
//
// Биты 0..23: шесть полубайтов квадрантов, по одному на направление
// (порядок бит: низ-лево, низ-право, верх-лево, верх-право).
// Биты 32..37: флаг «сосед — непрозрачная для окклюзии листва» по направлениям.
type NeighborOcclusion uint64

const (
	// FullyOccluded: все шесть сторон полностью закрыты
	FullyOccluded NeighborOcclusion = 0xFFFFFF

	leavesFlagShift = 32
)

// Nibble возвращает полубайт покрытия для стороны dir
func (n NeighborOcclusion) Nibble(dir model.Direction) uint8 {
	return uint8(n>>(uint(dir)*4)) & 0xF
}

// WithNibble возвращает сводку с заменённым полубайтом стороны dir
func (n NeighborOcclusion) WithNibble(dir model.Direction, nibble uint8) NeighborOcclusion {
	shift := uint(dir) * 4
	n &^= 0xF << shift
	return n | NeighborOcclusion(nibble&0xF)<<shift
}

// LeavesFlag сообщает, стоит ли со стороны dir неокклюдирующая листва
func (n NeighborOcclusion) LeavesFlag(dir model.Direction) bool {
	return n>>(leavesFlagShift+uint(dir))&1 == 1
}

// WithLeavesFlag возвращает сводку с установленным флагом листвы для dir
func (n NeighborOcclusion) WithLeavesFlag(dir model.Direction) NeighborOcclusion {
	return n | 1<<(leavesFlagShift+uint(dir))
}

// Coverage возвращает только 24 бита полубайтов
func (n NeighborOcclusion) Coverage() uint64 {
	return uint64(n) & 0xFFFFFF
}

// String выводит сводку в читаемом виде для логов и тестов
func (n NeighborOcclusion) String() string {
	var sb strings.Builder
	for i, dir := range model.Directions {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s:%04b", dir, n.Nibble(dir))
		if n.LeavesFlag(dir) {
			sb.WriteString("L")
		}
	}
	return sb.String()
}
