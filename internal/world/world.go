package world

import (
	"sort"
	"sync"

	"github.com/annel0/voxel-export/internal/vec"
	"github.com/annel0/voxel-export/internal/world/block"
)

// World: набор загруженных чанков с общими границами по высоте
type World struct {
	MinY   int
	Height int

	chunks map[vec.Vec2]*Chunk
	mu     sync.RWMutex
}

// NewWorld создаёт пустой мир
func NewWorld(minY, height int) *World {
	return &World{
		MinY:   minY,
		Height: height,
		chunks: make(map[vec.Vec2]*Chunk),
	}
}

// MaxY возвращает первую высоту над миром
func (w *World) MaxY() int {
	return w.MinY + w.Height
}

// AddChunk добавляет или заменяет чанк
func (w *World) AddChunk(c *Chunk) {
	w.mu.Lock()
	w.chunks[c.Coords] = c
	w.mu.Unlock()
}

// Chunk возвращает чанк по координатам колонны
func (w *World) Chunk(coords vec.Vec2) (*Chunk, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.chunks[coords]
	return c, ok
}

// EnsureChunk возвращает чанк, создавая пустой при отсутствии
func (w *World) EnsureChunk(coords vec.Vec2) *Chunk {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.chunks[coords]
	if !ok {
		c = NewChunk(coords, w.MinY, w.Height)
		w.chunks[coords] = c
	}
	return c
}

// BlockAt возвращает блок по мировым координатам. ok=false означает, что
// чанк не загружен или y ниже дна мира. Выше мира всегда воздух.
func (w *World) BlockAt(x, y, z int) (block.BlockID, bool) {
	if y < w.MinY {
		return block.AirBlockID, false
	}
	pos := vec.Vec2{X: x, Y: z}
	c, ok := w.Chunk(pos.ToChunkCoords())
	if !ok {
		return block.AirBlockID, false
	}
	if y >= w.MaxY() {
		return block.AirBlockID, true
	}
	local := pos.LocalInChunk()
	return c.Get(local.X, y, local.Y), true
}

// SetBlock устанавливает блок по мировым координатам, создавая чанк при необходимости
func (w *World) SetBlock(x, y, z int, id block.BlockID) {
	pos := vec.Vec2{X: x, Y: z}
	c := w.EnsureChunk(pos.ToChunkCoords())
	local := pos.LocalInChunk()
	c.Set(local.X, y, local.Y, id)
}

// ChunkCoords возвращает координаты всех чанков в детерминированном порядке
func (w *World) ChunkCoords() []vec.Vec2 {
	w.mu.RLock()
	coords := make([]vec.Vec2, 0, len(w.chunks))
	for c := range w.chunks {
		coords = append(coords, c)
	}
	w.mu.RUnlock()
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
	return coords
}

// ChunkCount возвращает число загруженных чанков
func (w *World) ChunkCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.chunks)
}
