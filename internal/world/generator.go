package world

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/annel0/voxel-export/internal/util"
	"github.com/annel0/voxel-export/internal/vec"
	"github.com/annel0/voxel-export/internal/world/block"
)

// Generator строит детерминированный демонстрационный ландшафт по шуму Перлина
type Generator struct {
	Seed       int64
	NoiseScale float64 // Масштаб шума высоты
	BaseHeight int     // Средняя высота поверхности над дном мира
	Amplitude  int     // Размах высот
	TreeChance float64 // Вероятность дерева на траве
	PostChance float64 // Вероятность столба забора на траве

	noise *util.Noise
	ids   generatorIDs
}

type generatorIDs struct {
	stone, dirt, grass, log, leaves, glass, slab, post block.BlockID
}

// NewGenerator создаёт генератор; все нужные блоки должны быть в реестре
func NewGenerator(seed int64, reg *block.Registry) (*Generator, error) {
	var ids generatorIDs
	for name, dst := range map[string]*block.BlockID{
		"stone":          &ids.stone,
		"dirt":           &ids.dirt,
		"grass_block":    &ids.grass,
		"oak_log":        &ids.log,
		"oak_leaves":     &ids.leaves,
		"glass":          &ids.glass,
		"stone_slab":     &ids.slab,
		"oak_fence_post": &ids.post,
	} {
		id, err := reg.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("генератору нужен блок: %w", err)
		}
		*dst = id
	}
	return &Generator{
		Seed:       seed,
		NoiseScale: 0.04,
		BaseHeight: 12,
		Amplitude:  10,
		TreeChance: 0.02,
		PostChance: 0.01,
		noise:      util.NewNoise(seed),
		ids:        ids,
	}, nil
}

// GenerateChunk генерирует колонну по координатам чанка
func (g *Generator) GenerateChunk(coords vec.Vec2, minY, height int) *Chunk {
	chunk := NewChunk(coords, minY, height)

	// Для каждого чанка свой сид, чтобы результат не зависел от порядка генерации
	chunkSeed := g.Seed + int64(coords.X*31) + int64(coords.Y*17)
	rng := rand.New(rand.NewSource(chunkSeed))

	startX := coords.X << 4
	startZ := coords.Y << 4
	maxY := minY + height - 1

	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			h := g.surfaceHeight(startX+x, startZ+z, minY)
			if h > maxY-8 {
				h = maxY - 8
			}
			chunk.Fill(x, z, minY, h-4, g.ids.stone)
			chunk.Fill(x, z, h-3, h-1, g.ids.dirt)
			chunk.Set(x, h, z, g.ids.grass)

			// Деревья и столбы не ставим у края чанка, чтобы крона помещалась
			inner := x >= 2 && x < ChunkSize-2 && z >= 2 && z < ChunkSize-2
			switch r := rng.Float64(); {
			case inner && r < g.TreeChance:
				g.placeTree(chunk, x, h+1, z, rng)
			case r < g.TreeChance+g.PostChance:
				chunk.Fill(x, z, h+1, h+2, g.ids.post)
			case r < g.TreeChance+g.PostChance+0.01:
				chunk.Set(x, h+1, z, g.ids.slab)
			case r < g.TreeChance+g.PostChance+0.015:
				chunk.Set(x, h+1, z, g.ids.glass)
			}
		}
	}
	return chunk
}

// surfaceHeight возвращает мировую высоту травы в колонне
func (g *Generator) surfaceHeight(wx, wz, minY int) int {
	n := g.noise.Noise2D(float64(wx)*g.NoiseScale, float64(wz)*g.NoiseScale)
	return minY + g.BaseHeight + int(math.Round((n-0.5)*2*float64(g.Amplitude)))
}

// placeTree ставит ствол высотой 3-5 и крону из листвы
func (g *Generator) placeTree(c *Chunk, x, y, z int, rng *rand.Rand) {
	trunk := 3 + rng.Intn(3)
	top := y + trunk - 1
	for dy := -1; dy <= 1; dy++ {
		radius := 2
		if dy == 1 {
			radius = 1
		}
		for dz := -radius; dz <= radius; dz++ {
			for dx := -radius; dx <= radius; dx++ {
				if c.Get(x+dx, top+dy, z+dz) == block.AirBlockID {
					c.Set(x+dx, top+dy, z+dz, g.ids.leaves)
				}
			}
		}
	}
	c.Set(x, top+2, z, g.ids.leaves)
	c.Fill(x, z, y, top, g.ids.log)
}

// GenerateWorld генерирует квадрат size×size чанков с центром в начале координат
func (g *Generator) GenerateWorld(size, minY, height int) *World {
	w := NewWorld(minY, height)
	half := size / 2
	for cz := -half; cz < size-half; cz++ {
		for cx := -half; cx < size-half; cx++ {
			w.AddChunk(g.GenerateChunk(vec.Vec2{X: cx, Y: cz}, minY, height))
		}
	}
	return w
}
