package model

import (
	"math"

	"github.com/annel0/voxel-export/internal/vec"
)

// Все преобразования меняют грань на месте. Грани из общего шаблона
// (запечённые модели) перед преобразованием нужно клонировать.

var blockCenter = vec.Vec3Float{X: BlockCenter, Y: BlockCenter, Z: BlockCenter}

// Translate сдвигает грань на (x, y, z)
func (q *Quad) Translate(x, y, z float64) {
	offset := vec.Vec3Float{X: x, Y: y, Z: z}
	for i := range q.Points {
		q.Points[i] = q.Points[i].Add(offset)
	}
	q.CalculateOcclusion()
}

// Scale масштабирует грань относительно центра блока
func (q *Quad) Scale(sx, sy, sz float64) {
	q.ScalePivot(sx, sy, sz, blockCenter)
}

// ScalePivot масштабирует грань относительно произвольной точки.
// Отрицательный масштаб зеркалит грань, направление пересчитывается по нормали.
func (q *Quad) ScalePivot(sx, sy, sz float64, pivot vec.Vec3Float) {
	for i, p := range q.Points {
		q.Points[i] = vec.Vec3Float{
			X: (p.X-pivot.X)*sx + pivot.X,
			Y: (p.Y-pivot.Y)*sy + pivot.Y,
			Z: (p.Z-pivot.Z)*sz + pivot.Z,
		}
	}
	// Нечётное число отражений меняет обход вершин, возвращаем его обратно,
	// чтобы нормаль смотрела наружу.
	mirrors := 0
	for _, s := range [3]float64{sx, sy, sz} {
		if s < 0 {
			mirrors++
		}
	}
	if mirrors%2 == 1 {
		q.Points[1], q.Points[3] = q.Points[3], q.Points[1]
		q.UVs[1], q.UVs[3] = q.UVs[3], q.UVs[1]
	}
	q.finishTransform()
}

// Flip зеркалит грань относительно средних плоскостей блока
func (q *Quad) Flip(x, y, z bool) {
	q.ScalePivot(flipScale(x), flipScale(y), flipScale(z), blockCenter)
}

func flipScale(flip bool) float64 {
	if flip {
		return -1
	}
	return 1
}

// Rotate поворачивает грань вокруг центра блока: сначала на rx градусов вокруг X,
// затем ry вокруг Y, затем rz вокруг Z. Углы, кратные 90°, дают точный результат
// и переводят направление по таблицам поворота.
func (q *Quad) Rotate(rx, ry, rz float64) {
	q.RotatePivot(rx, ry, rz, blockCenter)
}

// RotatePivot: то же, что Rotate, но вокруг произвольной точки
func (q *Quad) RotatePivot(rx, ry, rz float64, pivot vec.Vec3Float) {
	if rx != 0 {
		q.rotateAxis(0, rx, pivot, 1)
		q.Direction = q.Direction.RotateX(quarterTurns(rx))
	}
	if ry != 0 {
		q.rotateAxis(1, ry, pivot, 1)
		q.Direction = q.Direction.RotateY(quarterTurns(ry))
	}
	if rz != 0 {
		q.rotateAxis(2, rz, pivot, 1)
		q.Direction = q.Direction.RotateZ(quarterTurns(rz))
	}
	q.finishTransform()
}

// RotateElement поворачивает грань вокруг одной оси (0 - X, 1 - Y, 2 - Z) на
// произвольный угол относительно origin. При rescale грань растягивается так,
// чтобы сохранить размер блока по поперечным осям.
func (q *Quad) RotateElement(axis int, angle float64, origin vec.Vec3Float, rescale bool) {
	scaling := 1.0
	if rescale {
		sin, cos := sinCos(angle)
		scaling = 1 / math.Max(math.Abs(cos), math.Abs(sin))
	}
	q.rotateAxis(axis, angle, origin, scaling)
	q.finishTransform()
}

// Transform применяет произвольную функцию к вершинам грани
func (q *Quad) Transform(fn func(vec.Vec3Float) vec.Vec3Float) {
	for i := range q.Points {
		q.Points[i] = fn(q.Points[i])
	}
	q.finishTransform()
}

func (q *Quad) rotateAxis(axis int, angle float64, pivot vec.Vec3Float, scaling float64) {
	sin, cos := sinCos(angle)
	for i, p := range q.Points {
		d := p.Sub(pivot)
		switch axis {
		case 0:
			d.Z, d.Y = (d.Z*cos-d.Y*sin)*scaling, (d.Z*sin+d.Y*cos)*scaling
		case 1:
			d.X, d.Z = (d.X*cos-d.Z*sin)*scaling, (d.X*sin+d.Z*cos)*scaling
		case 2:
			d.X, d.Y = (d.X*cos-d.Y*sin)*scaling, (d.X*sin+d.Y*cos)*scaling
		}
		q.Points[i] = d.Add(pivot)
	}
}

// finishTransform восстанавливает направление по нормали и пересчитывает маски
func (q *Quad) finishTransform() {
	if dir, ok := directionFromNormal(q.Normal()); ok {
		q.Direction = dir
	}
	q.CalculateOcclusion()
}

// directionFromNormal выбирает направление по доминирующей компоненте нормали
func directionFromNormal(n vec.Vec3Float) (Direction, bool) {
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	if ax == 0 && ay == 0 && az == 0 {
		return Down, false
	}
	switch {
	case ax >= ay && ax >= az:
		if n.X >= 0 {
			return East, true
		}
		return West, true
	case ay >= az:
		if n.Y >= 0 {
			return Up, true
		}
		return Down, true
	default:
		if n.Z >= 0 {
			return South, true
		}
		return North, true
	}
}

// sinCos возвращает синус и косинус угла в градусах; для углов, кратных 90°,
// значения точные, чтобы вершины оставались на сетке блока.
func sinCos(deg float64) (float64, float64) {
	if math.Mod(deg, 90) == 0 {
		switch quarterTurns(deg) {
		case 0:
			return 0, 1
		case 1:
			return 1, 0
		case 2:
			return 0, -1
		default:
			return -1, 0
		}
	}
	rad := deg * math.Pi / 180
	return math.Sin(rad), math.Cos(rad)
}

// quarterTurns округляет угол до числа четвертей оборота в диапазоне 0..3
func quarterTurns(deg float64) int {
	turns := int(math.Round(deg/90)) % 4
	if turns < 0 {
		turns += 4
	}
	return turns
}
