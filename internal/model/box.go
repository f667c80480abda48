package model

import (
	"github.com/annel0/voxel-export/internal/vec"
)

// FaceDef описывает одну грань элемента модели, как она приходит от загрузчика ресурсов
type FaceDef struct {
	Texture   string      `yaml:"texture"`
	UV        *[4]float64 `yaml:"uv,omitempty"` // u0, v0, u1, v1 в координатах текстуры (v вниз)
	Rotation  int         `yaml:"rotation,omitempty"`
	TintIndex *int        `yaml:"tintindex,omitempty"`
}

// NewBoxQuad строит грань осевого бокса [min,max] со стороны dir.
// Порядок вершин и UV по умолчанию зависят от направления; если в def задан UV,
// он переворачивается по V (текстура хранится сверху вниз), а Rotation
// поворачивает UV шагами по 90°.
func NewBoxQuad(min, max vec.Vec3Float, dir Direction, def FaceDef, doubleSided bool) *Quad {
	var p [4]vec.Vec3Float
	var minU, minV, maxU, maxV float64

	switch dir {
	case Down:
		p = [4]vec.Vec3Float{
			{X: min.X, Y: min.Y, Z: min.Z},
			{X: max.X, Y: min.Y, Z: min.Z},
			{X: max.X, Y: min.Y, Z: max.Z},
			{X: min.X, Y: min.Y, Z: max.Z},
		}
		minU, minV, maxU, maxV = min.X, min.Z, max.X, max.Z
	case Up:
		p = [4]vec.Vec3Float{
			{X: min.X, Y: max.Y, Z: max.Z},
			{X: max.X, Y: max.Y, Z: max.Z},
			{X: max.X, Y: max.Y, Z: min.Z},
			{X: min.X, Y: max.Y, Z: min.Z},
		}
		minU, minV, maxU, maxV = min.X, min.Z, max.X, max.Z
	case North:
		p = [4]vec.Vec3Float{
			{X: max.X, Y: min.Y, Z: min.Z},
			{X: min.X, Y: min.Y, Z: min.Z},
			{X: min.X, Y: max.Y, Z: min.Z},
			{X: max.X, Y: max.Y, Z: min.Z},
		}
		minU, minV, maxU, maxV = min.X, min.Y, max.X, max.Y
	case South:
		p = [4]vec.Vec3Float{
			{X: min.X, Y: min.Y, Z: max.Z},
			{X: max.X, Y: min.Y, Z: max.Z},
			{X: max.X, Y: max.Y, Z: max.Z},
			{X: min.X, Y: max.Y, Z: max.Z},
		}
		minU, minV, maxU, maxV = min.X, min.Y, max.X, max.Y
	case West:
		p = [4]vec.Vec3Float{
			{X: min.X, Y: min.Y, Z: min.Z},
			{X: min.X, Y: min.Y, Z: max.Z},
			{X: min.X, Y: max.Y, Z: max.Z},
			{X: min.X, Y: max.Y, Z: min.Z},
		}
		minU, minV, maxU, maxV = min.Z, min.Y, max.Z, max.Y
	case East:
		p = [4]vec.Vec3Float{
			{X: max.X, Y: min.Y, Z: max.Z},
			{X: max.X, Y: min.Y, Z: min.Z},
			{X: max.X, Y: max.Y, Z: min.Z},
			{X: max.X, Y: max.Y, Z: max.Z},
		}
		minU, minV, maxU, maxV = min.Z, min.Y, max.Z, max.Y
	}

	if def.UV != nil {
		minU = def.UV[0]
		minV = BlockSize - def.UV[3]
		maxU = def.UV[2]
		maxV = BlockSize - def.UV[1]
	}

	uvs := [4]vec.Vec2Float{
		{X: minU, Y: minV},
		{X: maxU, Y: minV},
		{X: maxU, Y: maxV},
		{X: minU, Y: maxV},
	}

	// Поворот UV: каждый шаг в 90° сдвигает UV на одну вершину
	for rotation := def.Rotation; rotation > 45; rotation -= 90 {
		uvs = [4]vec.Vec2Float{uvs[1], uvs[2], uvs[3], uvs[0]}
	}

	q := NewQuad(p, uvs, dir, def.Texture)
	q.DoubleSided = doubleSided
	if def.TintIndex != nil {
		q.TintIndex = *def.TintIndex
	}
	return q
}

// NewCube строит модель полного блока [0,16]³ с одной текстурой на всех сторонах
func NewCube(name, texture string) *Model {
	return NewBox(name, vec.Vec3Float{}, vec.Vec3Float{X: BlockSize, Y: BlockSize, Z: BlockSize}, texture)
}

// NewBox строит модель одного осевого элемента со всеми шестью гранями
func NewBox(name string, min, max vec.Vec3Float, texture string) *Model {
	m := &Model{Name: name, Weight: 1}
	for _, dir := range Directions {
		m.Quads = append(m.Quads, NewBoxQuad(min, max, dir, FaceDef{Texture: texture}, false))
	}
	return m
}
