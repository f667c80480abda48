package util

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// Параметры шума по умолчанию
const (
	noiseAlpha   = 2.0 // Сглаживание шума
	noiseBeta    = 2.0 // Частота шума
	noiseOctaves = 3   // Количество октав
)

// Noise: генератор шума Перлина с фиксированным сидом.
// После создания только читает свои таблицы, поэтому безопасен
// для одновременного использования из нескольких воркеров.
type Noise struct {
	seed   int64
	perlin *perlin.Perlin
}

// NewNoise создаёт генератор шума с указанным сидом
func NewNoise(seed int64) *Noise {
	return &Noise{
		seed:   seed,
		perlin: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
	}
}

// Seed возвращает сид генератора
func (n *Noise) Seed() int64 {
	return n.seed
}

// Noise2D возвращает значение шума для указанных координат (от 0 до 1)
func (n *Noise) Noise2D(x, y float64) float64 {
	return clamp01((n.perlin.Noise2D(x, y) + 1.0) / 2.0)
}

// Noise3D возвращает значение трёхмерного шума (от 0 до 1)
func (n *Noise) Noise3D(x, y, z float64) float64 {
	return clamp01((n.perlin.Noise3D(x, y, z) + 1.0) / 2.0)
}

// AtBlock возвращает детерминированное псевдослучайное значение из [0,1)
// для целочисленной позиции блока. Сдвиг на дробные координаты уводит
// выборку с узлов решётки, где шум Перлина равен нулю.
func (n *Noise) AtBlock(x, y, z int) float64 {
	v := n.perlin.Noise3D(float64(x)*0.37+0.13, float64(y)*0.53+0.29, float64(z)*0.71+0.41)
	v = math.Abs(v * 9973)
	return v - math.Floor(v)
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
