// Package subdivide разрезает грани по средним плоскостям блока там, где
// соседи закрывают сторону лишь частично, чтобы скрытую часть можно было отбросить.
package subdivide

import (
	"math"

	"github.com/annel0/voxel-export/internal/model"
	"github.com/annel0/voxel-export/internal/occlusion"
)

// Биты потребности в разрезе
const (
	// NeedHorizontal: верхняя и нижняя половины стороны закрыты по-разному
	NeedHorizontal uint8 = 1 << 0
	// NeedVertical: левая и правая половины закрыты по-разному
	NeedVertical uint8 = 1 << 1
)

// Plane: средняя плоскость блока, перпендикулярная оси X, Y или Z
type Plane int

const (
	PlaneX Plane = iota
	PlaneY
	PlaneZ
)

const splitEpsilon = 0.01

// NibbleNeeds вычисляет потребность в разрезе по полубайту квадрантов
func NibbleNeeds(nibble uint8) uint8 {
	var res uint8
	if nibble&3 != (nibble>>2)&3 {
		res |= NeedHorizontal
	}
	bl, br := nibble&1 != 0, nibble&2 != 0
	tl, tr := nibble&4 != 0, nibble&8 != 0
	if bl != br || tl != tr {
		res |= NeedVertical
	}
	return res
}

// Needs вычисляет потребность в разрезе для всех шести сторон
func Needs(occ occlusion.NeighborOcclusion) [model.DirectionCount]uint8 {
	var needs [model.DirectionCount]uint8
	for _, dir := range model.Directions {
		needs[dir] = NibbleNeeds(occ.Nibble(dir))
	}
	return needs
}

// HorizontalPlane возвращает плоскость горизонтального разреза стороны dir
func HorizontalPlane(dir model.Direction) Plane {
	if dir == model.Up || dir == model.Down {
		return PlaneZ
	}
	return PlaneY
}

// VerticalPlane возвращает плоскость вертикального разреза стороны dir
func VerticalPlane(dir model.Direction) Plane {
	if dir == model.East || dir == model.West {
		return PlaneZ
	}
	return PlaneX
}

// Propagate распространяет разрезы между сторонами: если хоть одна сторона
// режется по плоскости, по ней режутся все стороны, которые её пересекают.
func Propagate(needs *[model.DirectionCount]uint8) {
	var planes [3]bool
	for _, dir := range model.Directions {
		if needs[dir]&NeedHorizontal != 0 {
			planes[HorizontalPlane(dir)] = true
		}
		if needs[dir]&NeedVertical != 0 {
			planes[VerticalPlane(dir)] = true
		}
	}
	for _, dir := range model.Directions {
		needs[dir] = 0
		if planes[HorizontalPlane(dir)] {
			needs[dir] |= NeedHorizontal
		}
		if planes[VerticalPlane(dir)] {
			needs[dir] |= NeedVertical
		}
	}
}

// Subdivide режет грани моделей вокселя по сводке соседей. Если резать нечего,
// возвращается исходный срез без выделений памяти. Иначе срез моделей
// копируется один раз, а изменённые модели заменяются собственными копиями;
// общие запечённые модели не изменяются.
func Subdivide(models []*model.Model, occ occlusion.NeighborOcclusion) ([]*model.Model, bool) {
	needs := Needs(occ)
	Propagate(&needs)
	if needs == [model.DirectionCount]uint8{} {
		return models, false
	}

	out := models
	changed := false
	for i, m := range models {
		quads, ok := subdivideList(m.Quads, &needs)
		if !ok {
			continue
		}
		if !changed {
			out = make([]*model.Model, len(models))
			copy(out, models)
			changed = true
		}
		out[i] = &model.Model{
			Name:        m.Name,
			Quads:       quads,
			Weight:      m.Weight,
			DoubleSided: m.DoubleSided,
		}
	}
	return out, changed
}

// SubdivideQuads: то же, что Subdivide, для плоского списка граней
func SubdivideQuads(quads []*model.Quad, occ occlusion.NeighborOcclusion) ([]*model.Quad, bool) {
	needs := Needs(occ)
	Propagate(&needs)
	if needs == [model.DirectionCount]uint8{} {
		return quads, false
	}
	return subdivideList(quads, &needs)
}

func subdivideList(quads []*model.Quad, needs *[model.DirectionCount]uint8) ([]*model.Quad, bool) {
	var out []*model.Quad
	for i, q := range quads {
		need := applicableNeeds(q, needs[q.Direction])
		if need == 0 {
			continue
		}
		if out == nil {
			out = make([]*model.Quad, len(quads), len(quads)+4)
			copy(out, quads)
		}
		a := q.Clone()
		out[i] = a

		var h *model.Quad
		if need&NeedHorizontal != 0 {
			if h = Split(a, HorizontalPlane(a.Direction)); h != nil {
				out = append(out, h)
			}
		}
		if need&NeedVertical != 0 {
			plane := VerticalPlane(a.Direction)
			if v := Split(a, plane); v != nil {
				out = append(out, v)
			}
			if h != nil {
				if v := Split(h, plane); v != nil {
					out = append(out, v)
				}
			}
		}
	}
	if out == nil {
		return quads, false
	}
	return out, true
}

// applicableNeeds оставляет только те разрезы, которые грань действительно пересекает
func applicableNeeds(q *model.Quad, need uint8) uint8 {
	if need&NeedHorizontal != 0 {
		if _, _, ok := findSplit(q, HorizontalPlane(q.Direction)); !ok {
			need &^= NeedHorizontal
		}
	}
	if need&NeedVertical != 0 {
		if _, _, ok := findSplit(q, VerticalPlane(q.Direction)); !ok {
			need &^= NeedVertical
		}
	}
	return need
}

// Split режет грань q по средней плоскости plane. q изменяется на месте и
// становится одной половиной, вторая половина возвращается. Если грань
// плоскость не пересекает, возвращается nil и q не меняется.
func Split(q *model.Quad, plane Plane) *model.Quad {
	t, edge, ok := findSplit(q, plane)
	if !ok {
		return nil
	}
	b := q.Clone()
	moveFace(q, t, edge)
	moveFace(b, 1-t, edge+2)
	return b
}

// findSplit ищет ребро (0→1 или 1→2), концы которого лежат по разные стороны
// плоскости, и долю t от его начала до точки пересечения
func findSplit(q *model.Quad, plane Plane) (float64, int, bool) {
	for edge := 0; edge < 2; edge++ {
		if t, ok := calcSplit(q, plane, edge); ok {
			return t, edge, true
		}
	}
	return 0, 0, false
}

func calcSplit(q *model.Quad, plane Plane, edge int) (float64, bool) {
	c0 := q.Points[edge].Axis(int(plane))
	c1 := q.Points[edge+1].Axis(int(plane))
	lo, hi := model.BlockCenter-splitEpsilon, model.BlockCenter+splitEpsilon
	straddles := (c0 < lo && c1 > hi) || (c0 > hi && c1 < lo)
	if !straddles {
		return 0, false
	}
	d := math.Abs(c1 - c0)
	if d <= splitEpsilon {
		return 0, false
	}
	return math.Abs(model.BlockCenter-c0) / d, true
}

// moveFace стягивает дальнее ребро грани к точке разреза. Вершины e и e+3
// остаются на месте, e+1 и e+2 сдвигаются на долю t вдоль боковых рёбер.
func moveFace(q *model.Quad, t float64, e int) {
	i00, i01 := e&3, (e+1)&3
	i10, i11 := (e+3)&3, (e+2)&3
	q.Points[i01] = q.Points[i00].Lerp(q.Points[i01], t)
	q.Points[i11] = q.Points[i10].Lerp(q.Points[i11], t)
	q.UVs[i01] = q.UVs[i00].Lerp(q.UVs[i01], t)
	q.UVs[i11] = q.UVs[i10].Lerp(q.UVs[i11], t)
	q.CalculateOcclusion()
}
