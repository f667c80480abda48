package model

import (
	"math"

	"github.com/annel0/voxel-export/internal/vec"
)

const (
	// BlockSize: размер блока в локальных единицах модели
	BlockSize = 16.0
	// BlockCenter: координата средней плоскости блока
	BlockCenter = 8.0

	planeEpsilon = 0.01
)

// Биты квадрантов в полубайте окклюзии
const (
	QuadrantBottomLeft  uint8 = 1 << 0
	QuadrantBottomRight uint8 = 1 << 1
	QuadrantTopLeft     uint8 = 1 << 2
	QuadrantTopRight    uint8 = 1 << 3

	QuadrantAll = QuadrantBottomLeft | QuadrantBottomRight | QuadrantTopLeft | QuadrantTopRight
)

// Quad: плоская четырёхугольная грань в локальном пространстве блока [0,16]³.
//
// Occludes и OccludedBy: полубайты квадрантов для стороны Direction.
// Они ненулевые только если грань лежит на граничной плоскости этой стороны
// и пересчитываются после каждого геометрического преобразования.
type Quad struct {
	Points     [4]vec.Vec3Float
	UVs        [4]vec.Vec2Float
	Direction  Direction
	Occludes   uint8
	OccludedBy uint8

	Texture     string
	TintIndex   int
	DoubleSided bool
}

// NewQuad создаёт грань из готовых вершин и UV и вычисляет маски окклюзии
func NewQuad(points [4]vec.Vec3Float, uvs [4]vec.Vec2Float, dir Direction, texture string) *Quad {
	q := &Quad{
		Points:    points,
		UVs:       uvs,
		Direction: dir,
		Texture:   texture,
		TintIndex: -1,
	}
	q.CalculateOcclusion()
	return q
}

// Clone возвращает независимую копию грани
func (q *Quad) Clone() *Quad {
	c := *q
	return &c
}

// Bounds возвращает минимальную и максимальную точки ограничивающего бокса
func (q *Quad) Bounds() (min, max vec.Vec3Float) {
	min = q.Points[0]
	max = q.Points[0]
	for _, p := range q.Points[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		min.Z = math.Min(min.Z, p.Z)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
		max.Z = math.Max(max.Z, p.Z)
	}
	return min, max
}

// Center возвращает среднее четырёх вершин
func (q *Quad) Center() vec.Vec3Float {
	c := q.Points[0].Add(q.Points[1]).Add(q.Points[2]).Add(q.Points[3])
	return c.Mul(0.25)
}

// Normal возвращает единичную нормаль по рёбрам 0→1 и 0→3
func (q *Quad) Normal() vec.Vec3Float {
	e1 := q.Points[1].Sub(q.Points[0])
	e2 := q.Points[3].Sub(q.Points[0])
	return e1.Cross(e2).Normalized()
}

// Footprint возвращает проекцию ограничивающего бокса на плоскость стороны dir:
// (minU, minV, maxU, maxV) в осях, которые используются для квадрантов.
func (q *Quad) Footprint(dir Direction) (minU, minV, maxU, maxV float64) {
	min, max := q.Bounds()
	return projectBox(dir, min, max)
}

// PlaneCoord возвращает координату грани по оси нормали стороны dir
func (q *Quad) PlaneCoord(dir Direction) float64 {
	return q.Points[0].Axis(dir.Axis())
}

func projectBox(dir Direction, min, max vec.Vec3Float) (minU, minV, maxU, maxV float64) {
	switch dir {
	case Down, Up:
		return min.X, min.Z, max.X, max.Z
	case North, South:
		return min.X, min.Y, max.X, max.Y
	default:
		return min.Z, min.Y, max.Z, max.Y
	}
}

// onBoundary проверяет, касается ли бокс граничной плоскости стороны dir
func onBoundary(dir Direction, min, max vec.Vec3Float) bool {
	switch dir {
	case Down:
		return math.Abs(min.Y) < planeEpsilon
	case Up:
		return math.Abs(max.Y-BlockSize) < planeEpsilon
	case North:
		return math.Abs(min.Z) < planeEpsilon
	case South:
		return math.Abs(max.Z-BlockSize) < planeEpsilon
	case West:
		return math.Abs(min.X) < planeEpsilon
	case East:
		return math.Abs(max.X-BlockSize) < planeEpsilon
	}
	return false
}

// CalculateOcclusion пересчитывает Occludes и OccludedBy по текущей геометрии.
// Грань, не лежащая на граничной плоскости своего направления, получает нулевые маски.
func (q *Quad) CalculateOcclusion() {
	q.Occludes = 0
	q.OccludedBy = 0
	min, max := q.Bounds()
	if !onBoundary(q.Direction, min, max) {
		return
	}
	minU, minV, maxU, maxV := projectBox(q.Direction, min, max)
	q.Occludes = SideOccludes(minU, minV, maxU, maxV)
	q.OccludedBy = SideOccludedBy(minU, minV, maxU, maxV)
}

// SideOccludes возвращает квадранты, которые прямоугольник покрывает полностью
func SideOccludes(minX, minY, maxX, maxY float64) uint8 {
	var res uint8
	if minX <= 0.01 && maxX >= 7.99 && minY <= 0.01 && maxY >= 7.99 {
		res |= QuadrantBottomLeft
	}
	if minX <= 8.01 && maxX >= 15.99 && minY <= 0.01 && maxY >= 7.99 {
		res |= QuadrantBottomRight
	}
	if minX <= 0.01 && maxX >= 7.99 && minY <= 8.01 && maxY >= 15.99 {
		res |= QuadrantTopLeft
	}
	if minX <= 8.01 && maxX >= 15.99 && minY <= 8.01 && maxY >= 15.99 {
		res |= QuadrantTopRight
	}
	return res
}

// SideOccludedBy возвращает квадранты, которые прямоугольник хотя бы частично задевает.
// Прямоугольник нулевой площади не задевает ничего.
func SideOccludedBy(minX, minY, maxX, maxY float64) uint8 {
	if maxX-minX <= 0 || maxY-minY <= 0 {
		return 0
	}
	var res uint8
	if minX < 7.99 && minY < 7.99 {
		res |= QuadrantBottomLeft
	}
	if maxX > 8.01 && minY < 7.99 {
		res |= QuadrantBottomRight
	}
	if minX < 7.99 && maxY > 8.01 {
		res |= QuadrantTopLeft
	}
	if maxX > 8.01 && maxY > 8.01 {
		res |= QuadrantTopRight
	}
	return res
}

// IsOccluded проверяет грань против полубайта покрытия соседа
func (q *Quad) IsOccluded(nibble uint8) bool {
	return q.OccludedBy != 0 && q.OccludedBy&nibble == q.OccludedBy
}

// OccludesShifted возвращает маску Occludes, сдвинутую в позицию своего направления
// в 24-битном упакованном представлении.
func (q *Quad) OccludesShifted() uint64 {
	return uint64(q.Occludes) << (uint(q.Direction) * 4)
}
