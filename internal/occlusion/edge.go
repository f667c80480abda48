package occlusion

import (
	"math"

	"github.com/annel0/voxel-export/internal/vec"
)

// EdgeKey: неупорядоченная пара квантованных вершин, общая для граней с одним ребром.
// Каждая вершина упакована в 24 бита (по 8 бит на ось), пара — в 48 бит.
type EdgeKey uint64

// quantize переводит координату из [-16, 48) в сетку 0..255 с шагом 1/4
func quantize(v float64) uint64 {
	v = (v+16)*4 + 0.5
	v = math.Min(math.Max(v, 0), 255)
	return uint64(v)
}

func vertexKey(p vec.Vec3Float) uint64 {
	return quantize(p.X)<<16 | quantize(p.Y)<<8 | quantize(p.Z)
}

// NewEdgeKey строит ключ ребра; порядок вершин не важен
func NewEdgeKey(a, b vec.Vec3Float) EdgeKey {
	ka, kb := vertexKey(a), vertexKey(b)
	if ka > kb {
		ka, kb = kb, ka
	}
	return EdgeKey(ka<<24 | kb)
}

// edgeIndex сопоставляет рёбра спискам граней. Списки переиспользуются между
// вызовами: после reset они обрезаются до нуля, но сохраняют ёмкость.
type edgeIndex struct {
	slots map[EdgeKey]int32
	faces [][]int32
	used  int
}

func newEdgeIndex() edgeIndex {
	return edgeIndex{
		slots: make(map[EdgeKey]int32, 128),
		faces: make([][]int32, 0, 128),
	}
}

func (e *edgeIndex) reset() {
	clear(e.slots)
	for i := 0; i < e.used; i++ {
		e.faces[i] = e.faces[i][:0]
	}
	e.used = 0
}

// add добавляет грань face к списку ребра key
func (e *edgeIndex) add(key EdgeKey, face int32) {
	slot, ok := e.slots[key]
	if !ok {
		slot = int32(e.used)
		e.used++
		if int(slot) == len(e.faces) {
			e.faces = append(e.faces, make([]int32, 0, 4))
		}
		e.slots[key] = slot
	}
	e.faces[slot] = append(e.faces[slot], face)
}

// lookup возвращает грани, делящие ребро key; nil если ребро не найдено
func (e *edgeIndex) lookup(key EdgeKey) []int32 {
	slot, ok := e.slots[key]
	if !ok {
		return nil
	}
	return e.faces[slot]
}
