package model

// Model: набор граней одной модели блока.
// Запечённые модели общие для всех вокселей одного состояния и не изменяются;
// любые правки делаются в копии, полученной через Clone.
type Model struct {
	Name        string
	Quads       []*Quad
	Weight      float64
	DoubleSided bool
}

// Clone возвращает глубокую копию модели
func (m *Model) Clone() *Model {
	c := &Model{
		Name:        m.Name,
		Weight:      m.Weight,
		DoubleSided: m.DoubleSided,
		Quads:       make([]*Quad, len(m.Quads), len(m.Quads)+4),
	}
	for i, q := range m.Quads {
		c.Quads[i] = q.Clone()
	}
	return c
}

// Occludes возвращает упакованные 24 бита покрытия всех сторон модели
func (m *Model) Occludes() uint64 {
	var res uint64
	for _, q := range m.Quads {
		res |= q.OccludesShifted()
	}
	return res
}

// QuadCount возвращает общее число граней в списке моделей
func QuadCount(models []*Model) int {
	n := 0
	for _, m := range models {
		n += len(m.Quads)
	}
	return n
}

// Variants: взаимоисключающие варианты одной части состояния блока
type Variants []*Model

// TotalWeight возвращает сумму весов вариантов
func (v Variants) TotalWeight() float64 {
	total := 0.0
	for _, m := range v {
		total += m.Weight
	}
	return total
}

// Pick выбирает вариант по случайному значению r из [0,1)
func (v Variants) Pick(r float64) *Model {
	switch len(v) {
	case 0:
		return nil
	case 1:
		return v[0]
	}
	index := r * v.TotalWeight()
	for _, m := range v {
		index -= m.Weight
		if index < 0 {
			return m
		}
	}
	return v[len(v)-1]
}
