package subdivide

import (
	"testing"

	"github.com/annel0/voxel-export/internal/model"
	"github.com/annel0/voxel-export/internal/occlusion"
	"github.com/annel0/voxel-export/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-5

func assertVecNear(t *testing.T, want, got vec.Vec3Float, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tolerance, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, tolerance, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, tolerance, msgAndArgs...)
}

func assertUVNear(t *testing.T, want, got vec.Vec2Float, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tolerance, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, tolerance, msgAndArgs...)
}

// northQuad: грань на плоскости z=0 с явным порядком вершин
func northQuad(maxX float64) *model.Quad {
	return model.NewQuad(
		[4]vec.Vec3Float{{X: 0}, {X: maxX}, {X: maxX, Y: 16}, {Y: 16}},
		[4]vec.Vec2Float{{X: 0}, {X: maxX}, {X: maxX, Y: 16}, {Y: 16}},
		model.North, "stone")
}

func TestNibbleNeeds(t *testing.T) {
	tests := []struct {
		nibble uint8
		want   uint8
	}{
		{0b0000, 0},
		{0b1111, 0},
		{0b0011, NeedHorizontal},
		{0b1100, NeedHorizontal},
		{0b0101, NeedVertical},
		{0b1010, NeedVertical},
		{0b0001, NeedHorizontal | NeedVertical},
		{0b0110, NeedHorizontal | NeedVertical},
		{0b1001, NeedHorizontal | NeedVertical},
		{0b0111, NeedHorizontal | NeedVertical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NibbleNeeds(tt.nibble), "полубайт %04b", tt.nibble)
	}
}

func TestPropagate_VerticalOnUpReachesXPlane(t *testing.T) {
	occ := occlusion.NeighborOcclusion(0).WithNibble(model.Up, 0b0101)
	needs := Needs(occ)
	require.Equal(t, NeedVertical, needs[model.Up])
	require.Zero(t, needs[model.North])

	Propagate(&needs)
	for _, dir := range []model.Direction{model.Up, model.Down, model.North, model.South} {
		assert.Equal(t, NeedVertical, needs[dir], "сторона %s пересекает плоскость X=8", dir)
	}
	assert.Zero(t, needs[model.East])
	assert.Zero(t, needs[model.West])
}

func TestPropagate_HorizontalOnNorthReachesYPlane(t *testing.T) {
	needs := Needs(occlusion.NeighborOcclusion(0).WithNibble(model.North, 0b0011))
	Propagate(&needs)
	for _, dir := range []model.Direction{model.North, model.South, model.East, model.West} {
		assert.Equal(t, NeedHorizontal, needs[dir], "сторона %s", dir)
	}
	assert.Zero(t, needs[model.Up])
	assert.Zero(t, needs[model.Down])
}

func TestSplit_RoundTrip(t *testing.T) {
	orig := northQuad(12)
	a := orig.Clone()
	b := Split(a, PlaneX)
	require.NotNil(t, b)

	// Половины сходятся на плоскости x=8
	assertVecNear(t, a.Points[1], b.Points[0])
	assertVecNear(t, a.Points[2], b.Points[3])
	assert.InDelta(t, 8, a.Points[1].X, tolerance)

	// Неподвижные вершины обеих половин восстанавливают исходную грань
	joined := [4]vec.Vec3Float{a.Points[0], b.Points[1], b.Points[2], a.Points[3]}
	joinedUV := [4]vec.Vec2Float{a.UVs[0], b.UVs[1], b.UVs[2], a.UVs[3]}
	for i := 0; i < 4; i++ {
		assertVecNear(t, orig.Points[i], joined[i], "вершина %d", i)
		assertUVNear(t, orig.UVs[i], joinedUV[i], "UV %d", i)
	}
	assertUVNear(t, vec.Vec2Float{X: 8}, a.UVs[1])
}

func TestSplit_SecondEdgePair(t *testing.T) {
	q := northQuad(16)
	b := Split(q, PlaneY)
	require.NotNil(t, b)
	_, maxA := q.Bounds()
	minB, _ := b.Bounds()
	assert.InDelta(t, 8, maxA.Y, tolerance)
	assert.InDelta(t, 8, minB.Y, tolerance)
	assert.Equal(t, model.QuadrantBottomLeft|model.QuadrantBottomRight, q.OccludedBy, "маски пересчитаны")
	assert.Equal(t, model.QuadrantTopLeft|model.QuadrantTopRight, b.OccludedBy)
}

func TestSplit_NoStraddleIsNoop(t *testing.T) {
	q := northQuad(8)
	before := *q
	assert.Nil(t, Split(q, PlaneX), "грань заканчивается на x=8 и не пересекает плоскость")
	assert.Equal(t, before, *q)

	flat := model.NewQuad(
		[4]vec.Vec3Float{{X: 8}, {X: 8}, {X: 8, Y: 16}, {X: 8, Y: 16}},
		[4]vec.Vec2Float{}, model.North, "stone")
	assert.Nil(t, Split(flat, PlaneX), "вырожденное ребро не режется")
}

func TestSubdivide_PartialCoverageSplitsFace(t *testing.T) {
	cube := model.NewCube("stone", "stone")
	models := []*model.Model{cube}
	occ := occlusion.FullyOccluded.WithNibble(model.North, 0b0011)

	out, changed := Subdivide(models, occ)
	require.True(t, changed)
	require.Len(t, out, 1)
	assert.Len(t, out[0].Quads, 10, "четыре боковые стороны режутся по Y=8")
	assert.Len(t, cube.Quads, 6, "общая модель не должна меняться")
	assert.Same(t, cube, models[0])

	engine := occlusion.NewEngine(occlusion.Config{})
	res := engine.Evaluate(occlusion.NewScratch(), out, occlusion.StateFlags{}, occ, nil)
	require.Equal(t, 1, res.VisibleCount())
	for i, q := range res.Quads {
		if res.IsVisible(i) {
			assert.Equal(t, model.North, q.Direction)
			min, _ := q.Bounds()
			assert.InDelta(t, 8, min.Y, tolerance, "видна только верхняя половина")
		}
	}
}

func TestSubdivide_CornerCoverageSplitsBothWays(t *testing.T) {
	out, changed := SubdivideQuads([]*model.Quad{northQuad(16)}, occlusion.NeighborOcclusion(0).WithNibble(model.North, 0b0001))
	require.True(t, changed)
	require.Len(t, out, 4)
	seen := map[uint8]bool{}
	for _, q := range out {
		seen[q.OccludedBy] = true
	}
	assert.Len(t, seen, 4, "каждая четверть должна задевать свой квадрант")
}

func TestSubdivide_Idempotent(t *testing.T) {
	occ := occlusion.FullyOccluded.WithNibble(model.Up, 0b0110)
	first, changed := Subdivide([]*model.Model{model.NewCube("stone", "stone")}, occ)
	require.True(t, changed)

	second, changed := Subdivide(first, occ)
	assert.False(t, changed)
	assert.Same(t, first[0], second[0])
	assert.Equal(t, len(first[0].Quads), len(second[0].Quads))
}

func TestSubdivide_NoSplitNoAllocation(t *testing.T) {
	models := []*model.Model{model.NewCube("stone", "stone")}
	allocs := testing.AllocsPerRun(100, func() {
		out, changed := Subdivide(models, occlusion.FullyOccluded)
		if changed || out[0] != models[0] {
			t.Fatal("неожиданное изменение")
		}
	})
	assert.Zero(t, allocs)

	// Резать есть что, но грани плоскость не пересекают
	halves, _ := SubdivideQuads([]*model.Quad{northQuad(16)}, occlusion.NeighborOcclusion(0).WithNibble(model.North, 0b0011))
	allocs = testing.AllocsPerRun(100, func() {
		SubdivideQuads(halves, occlusion.NeighborOcclusion(0).WithNibble(model.North, 0b0011))
	})
	assert.Zero(t, allocs)
}
