package occlusion

import (
	"math"

	"github.com/annel0/voxel-export/internal/model"
)

const planeEpsilon = 0.01

// Config: глобальные настройки движка окклюзии
type Config struct {
	// CalculateCornerUVs включает расчёт связности рёбер для атласа подсветки.
	// На видимость и разбиение граней не влияет.
	CalculateCornerUVs bool
}

// StateFlags: флаги запечённого состояния блока, влияющие на окклюзию
type StateFlags struct {
	// Detailed: точная проверка прямоугольников вместо квадрантов
	// (листва, заборы и прочие тонкие материалы)
	Detailed bool
}

// Engine решает видимость граней вокселя. Движок не хранит состояния между
// вызовами: всё изменяемое живёт в Scratch, которым владеет вызывающий.
type Engine struct {
	cfg Config
}

// NewEngine создаёт движок окклюзии
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

type centerKey [3]int64

// Scratch: рабочие буферы одного воркера. Переиспользуется между вокселями
// и не безопасен для одновременного использования из нескольких горутин.
type Scratch struct {
	quads   []*model.Quad
	hidden  []bool
	corners []CornerIndex
	centers []centerKey
	edges   edgeIndex
}

// NewScratch создаёт пустой набор буферов
func NewScratch() *Scratch {
	s := &Scratch{edges: newEdgeIndex()}
	s.Grow(64)
	return s
}

// Reset очищает буферы, сохраняя выделенную память
func (s *Scratch) Reset() {
	for i := range s.quads {
		s.quads[i] = nil
	}
	s.quads = s.quads[:0]
	s.hidden = s.hidden[:0]
	s.corners = s.corners[:0]
	s.centers = s.centers[:0]
	s.edges.reset()
}

// Grow гарантирует ёмкость буферов не меньше n граней
func (s *Scratch) Grow(n int) {
	if cap(s.quads) < n {
		s.quads = append(make([]*model.Quad, 0, n), s.quads...)
		s.hidden = append(make([]bool, 0, n), s.hidden...)
		s.corners = append(make([]CornerIndex, 0, n), s.corners...)
		s.centers = append(make([]centerKey, 0, n), s.centers...)
	}
}

// Result: итог оценки вокселя. Срезы принадлежат Scratch и действительны
// до следующего Reset или Evaluate на том же Scratch.
type Result struct {
	Quads   []*model.Quad
	Hidden  []bool
	Corners []CornerIndex
	// CornersComputed ложно, если расчёт рёбер отключён или видимых граней нет
	CornersComputed bool
	Visible         int
}

// Len возвращает число оценённых граней
func (r Result) Len() int {
	return len(r.Quads)
}

// VisibleCount возвращает число видимых граней
func (r Result) VisibleCount() int {
	return r.Visible
}

// IsVisible сообщает, видна ли грань i
func (r Result) IsVisible(i int) bool {
	return !r.Hidden[i]
}

// Corner возвращает индекс угла грани i; ноль если рёбра не считались
func (r Result) Corner(i int) CornerIndex {
	if !r.CornersComputed {
		return 0
	}
	return r.Corners[i]
}

// Evaluate оценивает все грани моделей вокселя. neighbors используется только
// при flags.Detailed и содержит грани соседей, уже сдвинутые в систему
// координат этого вокселя.
func (e *Engine) Evaluate(s *Scratch, models []*model.Model, flags StateFlags, occ NeighborOcclusion, neighbors []*model.Quad) Result {
	s.Reset()
	s.Grow(model.QuadCount(models))
	for _, m := range models {
		s.quads = append(s.quads, m.Quads...)
	}
	return e.evaluate(s, flags, occ, neighbors)
}

// EvaluateQuads: то же, что Evaluate, для плоского списка граней
func (e *Engine) EvaluateQuads(s *Scratch, quads []*model.Quad, flags StateFlags, occ NeighborOcclusion, neighbors []*model.Quad) Result {
	s.Reset()
	s.Grow(len(quads))
	s.quads = append(s.quads, quads...)
	return e.evaluate(s, flags, occ, neighbors)
}

func (e *Engine) evaluate(s *Scratch, flags StateFlags, occ NeighborOcclusion, neighbors []*model.Quad) Result {
	visible := 0
	for _, q := range s.quads {
		hidden := q.IsOccluded(occ.Nibble(q.Direction))
		if !hidden && flags.Detailed && q.OccludedBy != 0 {
			hidden = hiddenByNeighbors(q, neighbors)
		}
		s.hidden = append(s.hidden, hidden)
		if !hidden {
			visible++
		}
	}

	res := Result{Quads: s.quads, Hidden: s.hidden, Visible: visible}
	if visible == 0 || !e.cfg.CalculateCornerUVs {
		return res
	}

	// Индекс строится по всем граням: скрытые тоже решают, есть ли шов
	for i, q := range s.quads {
		c := q.Center()
		s.centers = append(s.centers, centerKey{
			int64(c.X * 10), int64(c.Y * 10), int64(c.Z * 10),
		})
		for v := 0; v < 4; v++ {
			s.edges.add(NewEdgeKey(q.Points[v], q.Points[(v+1)%4]), int32(i))
		}
	}

	for i, q := range s.quads {
		if s.hidden[i] {
			s.corners = append(s.corners, 0)
			continue
		}
		offset := edgeOffset(q)
		var conn uint8
		for v := 0; v < 4; v++ {
			key := NewEdgeKey(q.Points[v], q.Points[(v+1)%4])
			if s.edgeConnected(i, key, occ) {
				conn |= 1 << ((v + int(offset)) % 4)
			}
		}
		width := q.Points[offset].Sub(q.Points[(1+offset)%4]).Length()
		height := q.Points[offset].Sub(q.Points[(3+offset)%4]).Length()
		s.corners = append(s.corners, NewCornerIndex(offset, conn, SizeBucket(width), SizeBucket(height)))
	}
	res.Corners = s.corners
	res.CornersComputed = true
	return res
}

// edgeConnected решает, продолжается ли поверхность грани i через ребро key
func (s *Scratch) edgeConnected(i int, key EdgeKey, occ NeighborOcclusion) bool {
	dir := s.quads[i].Direction
	connected := false
	for _, j := range s.edges.lookup(key) {
		if int(j) == i {
			continue
		}
		other := s.quads[j]
		if !other.Direction.SameAxis(dir) {
			continue
		}
		// Точная копия (двусторонняя грань) ребро не продолжает
		if s.centers[j] == s.centers[i] {
			continue
		}
		if occ.LeavesFlag(other.Direction) {
			return false
		}
		if !s.hidden[j] {
			connected = true
		}
	}
	return connected
}

// edgeOffset определяет, куда смотрит первое UV-ребро грани: 0 - вправо,
// 1 - вверх, 2 - влево, 3 - вниз
func edgeOffset(q *model.Quad) uint8 {
	du := q.UVs[1].X - q.UVs[0].X
	dv := q.UVs[1].Y - q.UVs[0].Y
	if math.Abs(du) >= math.Abs(dv) {
		if du > 0 {
			return 0
		}
		return 2
	}
	if dv > 0 {
		return 1
	}
	return 3
}

// hiddenByNeighbors: точная проверка: грань скрыта, если прямоугольник
// соседней грани в той же плоскости целиком её накрывает.
// Считается, что прямоугольники выровнены по осям.
func hiddenByNeighbors(q *model.Quad, neighbors []*model.Quad) bool {
	plane := q.PlaneCoord(q.Direction)
	minU, minV, maxU, maxV := q.Footprint(q.Direction)
	for _, n := range neighbors {
		if !n.Direction.SameAxis(q.Direction) {
			continue
		}
		if math.Abs(n.PlaneCoord(q.Direction)-plane) >= planeEpsilon {
			continue
		}
		nMinU, nMinV, nMaxU, nMaxV := n.Footprint(q.Direction)
		if minU >= nMinU-planeEpsilon && minV >= nMinV-planeEpsilon &&
			maxU <= nMaxU+planeEpsilon && maxV <= nMaxV+planeEpsilon {
			return true
		}
	}
	return false
}
