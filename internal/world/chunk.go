package world

import (
	"sync"

	"github.com/annel0/voxel-export/internal/vec"
	"github.com/annel0/voxel-export/internal/world/block"
)

// ChunkSize: размер чанка по X и Z
const ChunkSize = 16

// Chunk: колонна блоков 16×Height×16. Coords хранит координаты колонны:
// X мира в Coords.X, Z мира в Coords.Y.
type Chunk struct {
	Coords vec.Vec2
	MinY   int
	Height int

	blocks []block.BlockID // индекс: (y-MinY)*256 + z*16 + x
	mu     sync.RWMutex
}

// NewChunk создаёт пустой (заполненный воздухом) чанк
func NewChunk(coords vec.Vec2, minY, height int) *Chunk {
	return &Chunk{
		Coords: coords,
		MinY:   minY,
		Height: height,
		blocks: make([]block.BlockID, height*ChunkSize*ChunkSize),
	}
}

func (c *Chunk) index(x, y, z int) (int, bool) {
	if x < 0 || x >= ChunkSize || z < 0 || z >= ChunkSize {
		return 0, false
	}
	ly := y - c.MinY
	if ly < 0 || ly >= c.Height {
		return 0, false
	}
	return ly*ChunkSize*ChunkSize + z*ChunkSize + x, true
}

// Get возвращает блок по локальным координатам; вне чанка — воздух
func (c *Chunk) Get(x, y, z int) block.BlockID {
	i, ok := c.index(x, y, z)
	if !ok {
		return block.AirBlockID
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[i]
}

// Set устанавливает блок по локальным координатам; вне чанка ничего не делает
func (c *Chunk) Set(x, y, z int, id block.BlockID) {
	i, ok := c.index(x, y, z)
	if !ok {
		return
	}
	c.mu.Lock()
	c.blocks[i] = id
	c.mu.Unlock()
}

// Fill заполняет колонну (x, z) блоком id от fromY до toY включительно
func (c *Chunk) Fill(x, z, fromY, toY int, id block.BlockID) {
	for y := fromY; y <= toY; y++ {
		c.Set(x, y, z, id)
	}
}

// TopY возвращает высоту верхнего не-воздушного блока колонны (x, z),
// или MinY-1, если колонна пуста
func (c *Chunk) TopY(x, z int) int {
	for y := c.MinY + c.Height - 1; y >= c.MinY; y-- {
		if c.Get(x, y, z) != block.AirBlockID {
			return y
		}
	}
	return c.MinY - 1
}

// CountNonAir возвращает число не-воздушных блоков
func (c *Chunk) CountNonAir() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, id := range c.blocks {
		if id != block.AirBlockID {
			n++
		}
	}
	return n
}
