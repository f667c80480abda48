package export

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/annel0/voxel-export/internal/eventbus"
	"github.com/annel0/voxel-export/internal/model"
	"github.com/annel0/voxel-export/internal/storage"
	"github.com/annel0/voxel-export/internal/vec"
	"github.com/annel0/voxel-export/internal/world"
	"github.com/annel0/voxel-export/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu      sync.Mutex
	chunks  int
	cached  int
	voxels  int
	exports int
	failed  int
}

func (r *fakeRecorder) RecordChunk(voxels, quads, hidden, split int, cached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks++
	r.voxels += voxels
	if cached {
		r.cached++
	}
}

func (r *fakeRecorder) RecordExport(d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports++
	if err != nil {
		r.failed++
	}
}

// newSingleChunkWorld создаёт один пустой чанк высотой 16
func newSingleChunkWorld(t *testing.T) (*world.World, *block.Registry) {
	t.Helper()
	reg, err := block.NewDefaultRegistry(1)
	require.NoError(t, err)
	w := world.NewWorld(0, 16)
	w.AddChunk(world.NewChunk(vec.Vec2{}, 0, 16))
	return w, reg
}

func setBlock(t *testing.T, w *world.World, reg *block.Registry, x, y, z int, name string) {
	t.Helper()
	id, err := reg.Resolve(name)
	require.NoError(t, err)
	w.SetBlock(x, y, z, id)
}

func TestExport_SingleBlock(t *testing.T) {
	w, reg := newSingleChunkWorld(t)
	setBlock(t, w, reg, 5, 5, 5, "dirt")

	mesh, err := NewExporter(w, reg, Options{}).Export(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, Stats{Chunks: 1, Voxels: 1, Quads: 6, Visible: 6}, mesh.Stats)
	assert.Equal(t, []string{"dirt"}, mesh.Textures())
	require.Equal(t, 6, mesh.FaceCount())
	for _, f := range mesh.Groups[0].Faces {
		for _, p := range f.Points {
			assert.True(t, p.X >= 5 && p.X <= 6 && p.Y >= 5 && p.Y <= 6 && p.Z >= 5 && p.Z <= 6,
				"вершина %v вне блока", p)
		}
		assert.Zero(t, f.Corner, "углы выключены")
	}
}

func TestExport_AdjacentBlocksHideSharedFaces(t *testing.T) {
	w, reg := newSingleChunkWorld(t)
	setBlock(t, w, reg, 5, 5, 5, "dirt")
	setBlock(t, w, reg, 6, 5, 5, "dirt")

	mesh, err := NewExporter(w, reg, Options{}).Export(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 12, mesh.Stats.Quads)
	assert.Equal(t, 2, mesh.Stats.Hidden)
	assert.Equal(t, 10, mesh.FaceCount())
}

func TestExport_CornerIndices(t *testing.T) {
	w, reg := newSingleChunkWorld(t)
	setBlock(t, w, reg, 5, 5, 5, "dirt")

	mesh, err := NewExporter(w, reg, Options{CalculateCornerUVs: true}).Export(context.Background(), nil)
	require.NoError(t, err)
	for _, f := range mesh.Groups[0].Faces {
		assert.NotZero(t, f.Corner)
		for _, uv := range f.CornerUVs() {
			assert.True(t, uv.X >= 0 && uv.X <= 1 && uv.Y >= 0 && uv.Y <= 1)
		}
	}
}

func TestExport_SubdivisionAgainstSlab(t *testing.T) {
	w, reg := newSingleChunkWorld(t)
	setBlock(t, w, reg, 5, 5, 5, "dirt")
	setBlock(t, w, reg, 5, 5, 4, "stone_slab")

	plain, err := NewExporter(w, reg, Options{CalculateCornerUVs: true}).Export(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, plain.Stats.Split)

	split, err := NewExporter(w, reg, Options{CalculateCornerUVs: true, SubdivideForCorners: true}).Export(context.Background(), nil)
	require.NoError(t, err)
	assert.Greater(t, split.Stats.Split, 0)

	// Северная грань земли разрезана: нижняя половина закрыта полублоком
	var north []Face
	for _, g := range split.Groups {
		if g.Texture != "dirt" {
			continue
		}
		for _, f := range g.Faces {
			if f.Normal.Z < -0.5 {
				north = append(north, f)
			}
		}
	}
	require.NotEmpty(t, north)
	for _, f := range north {
		for _, p := range f.Points {
			assert.GreaterOrEqual(t, p.Y, 5.5-1e-9, "видна только верхняя половина")
		}
	}
}

func TestExport_CornerFlagKeepsGeometry(t *testing.T) {
	w, reg := newSingleChunkWorld(t)
	setBlock(t, w, reg, 5, 5, 5, "stone")
	setBlock(t, w, reg, 5, 5, 4, "stone_slab")

	with, err := NewExporter(w, reg, Options{CalculateCornerUVs: true, SubdivideForCorners: true}).Export(context.Background(), nil)
	require.NoError(t, err)
	without, err := NewExporter(w, reg, Options{SubdivideForCorners: true}).Export(context.Background(), nil)
	require.NoError(t, err)

	assert.Greater(t, with.Stats.Split, 0)
	assert.Equal(t, with.Stats, without.Stats, "флаг углов не влияет на разрезание и видимость")
	require.Equal(t, with.FaceCount(), without.FaceCount())
	for gi, g := range with.Groups {
		for fi, f := range g.Faces {
			assert.Equal(t, f.Points, without.Groups[gi].Faces[fi].Points, "грань %s/%d", g.Texture, fi)
		}
	}
}

func TestExport_DeterministicAcrossWorkers(t *testing.T) {
	reg, err := block.NewDefaultRegistry(7)
	require.NoError(t, err)
	gen, err := world.NewGenerator(7, reg)
	require.NoError(t, err)
	w := gen.GenerateWorld(2, 0, 48)

	opts := Options{CalculateCornerUVs: true, SubdivideForCorners: true, Workers: 1}
	one, err := NewExporter(w, reg, opts).Export(context.Background(), nil)
	require.NoError(t, err)

	opts.Workers = 4
	many, err := NewExporter(w, reg, opts).Export(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, one.Stats, many.Stats)
	assert.Equal(t, one.Groups, many.Groups)
	assert.Equal(t, 4, many.Stats.Chunks)
	assert.Less(t, many.Stats.Visible, many.Stats.Quads, "большая часть граней скрыта")
}

func TestExport_Cancelled(t *testing.T) {
	w, reg := newSingleChunkWorld(t)
	setBlock(t, w, reg, 5, 5, 5, "dirt")
	rec := &fakeRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExporter(w, reg, Options{}, WithRecorder(rec)).Export(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rec.failed)
}

func TestExport_MissingChunk(t *testing.T) {
	w, reg := newSingleChunkWorld(t)
	_, err := NewExporter(w, reg, Options{}).Export(context.Background(), []vec.Vec2{{X: 3, Y: 3}})
	assert.ErrorIs(t, err, ErrChunkNotLoaded)
}

func TestExport_UsesCache(t *testing.T) {
	w, reg := newSingleChunkWorld(t)
	setBlock(t, w, reg, 5, 5, 5, "dirt")
	setBlock(t, w, reg, 5, 6, 5, "oak_leaves")

	store, err := storage.NewInMemoryMeshStore()
	require.NoError(t, err)
	defer store.Close()
	rec := &fakeRecorder{}

	e := NewExporter(w, reg, Options{CalculateCornerUVs: true}, WithCache(store), WithRecorder(rec))
	first, err := e.Export(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, first.Stats.Cached)

	second, err := e.Export(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Stats.Cached)
	assert.Equal(t, first.Groups, second.Groups)

	assert.Equal(t, 2, rec.chunks)
	assert.Equal(t, 1, rec.cached)
	assert.Equal(t, 2, rec.exports)

	// Другая конфигурация не видит чужой кэш
	other := NewExporter(w, reg, Options{}, WithCache(store))
	assert.NotEqual(t, e.ConfigHash(), other.ConfigHash())
	third, err := other.Export(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, third.Stats.Cached)
}

func TestExport_PublishesProgress(t *testing.T) {
	w, reg := newSingleChunkWorld(t)
	w.AddChunk(world.NewChunk(vec.Vec2{X: 1}, 0, 16))
	setBlock(t, w, reg, 5, 5, 5, "dirt")

	bus := eventbus.NewMemoryBus(16)
	var mu sync.Mutex
	var events []*eventbus.Envelope
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{}, func(ctx context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	require.NoError(t, err)

	_, err = NewExporter(w, reg, Options{Workers: 2}, WithEvents(bus)).Export(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	counts := map[string]int{}
	session := events[0].Session
	for _, ev := range events {
		counts[ev.EventType]++
		assert.Equal(t, session, ev.Session, "все события одной сессии")
		if ev.EventType == eventbus.TypeExportFinished {
			var fin eventbus.ExportFinished
			require.NoError(t, ev.Decode(&fin))
			assert.Equal(t, 2, fin.Chunks)
			assert.Equal(t, 6, fin.Visible)
			assert.Empty(t, fin.Error)
		}
	}
	assert.Equal(t, map[string]int{
		eventbus.TypeExportStarted:  1,
		eventbus.TypeChunkExported:  2,
		eventbus.TypeExportFinished: 1,
	}, counts)
}

func TestExport_PublishesFailure(t *testing.T) {
	w, reg := newSingleChunkWorld(t)
	bus := eventbus.NewMemoryBus(16)
	var mu sync.Mutex
	var fin *eventbus.ExportFinished
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.TypeExportFinished}},
		func(ctx context.Context, ev *eventbus.Envelope) {
			var f eventbus.ExportFinished
			if ev.Decode(&f) == nil {
				mu.Lock()
				fin = &f
				mu.Unlock()
			}
		})
	require.NoError(t, err)

	_, err = NewExporter(w, reg, Options{}, WithEvents(bus)).Export(context.Background(), []vec.Vec2{{X: 9, Y: 9}})
	require.ErrorIs(t, err, ErrChunkNotLoaded)
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, fin)
	assert.Contains(t, fin.Error, "не загружен")
}

func TestMesh_AppendKeepsGroupOrder(t *testing.T) {
	a := NewMesh()
	a.Add("stone", Face{})
	a.Add("dirt", Face{})
	b := NewMesh()
	b.Add("glass", Face{})
	b.Add("stone", Face{})
	b.Stats.Voxels = 2

	a.Append(b)
	assert.Equal(t, []string{"stone", "dirt", "glass"}, a.Textures())
	assert.Len(t, a.Groups[0].Faces, 2)
	assert.Equal(t, 3+1, a.FaceCount())
	assert.Equal(t, 2, a.Stats.Voxels)
}

func TestMesh_AddQuadScalesToBlocks(t *testing.T) {
	m := NewMesh()
	q := model.NewBoxQuad(vec.Vec3Float{}, vec.Vec3Float{X: 16, Y: 8, Z: 16}, model.Up, model.FaceDef{Texture: "slab"}, false)
	m.AddQuad(q, vec.Vec3{X: 2, Y: -1, Z: 3}, 0)

	f := m.Groups[0].Faces[0]
	for _, p := range f.Points {
		assert.InDelta(t, -0.5, p.Y, 1e-9, "верх полублока на y=-1")
		assert.True(t, p.X == 2 || p.X == 3)
		assert.True(t, p.Z == 3 || p.Z == 4)
	}
	assert.InDelta(t, 1, f.Normal.Y, 1e-9)
}

func TestWriteOBJ(t *testing.T) {
	m := NewMesh()
	face := Face{
		Points: [4]vec.Vec3Float{{X: 0, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 0}},
		UVs:    [4]vec.Vec2Float{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}},
		Normal: vec.Vec3Float{Y: 1},
	}
	m.Add("dirt", face)
	leaf := face
	leaf.DoubleSided = true
	m.Add("oak_leaves", leaf)

	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, m, OBJOptions{MaterialLib: "world.mtl", Header: "test"}))
	out := buf.String()

	assert.Equal(t, 12, strings.Count(out, "\nv "))
	assert.Equal(t, 12, strings.Count(out, "\nvt "))
	assert.Equal(t, 3, strings.Count(out, "\nf "))
	assert.Contains(t, out, "mtllib world.mtl\n")
	assert.Contains(t, out, "usemtl oak_leaves\n")
	assert.Contains(t, out, "f 1/1/1 2/2/2 3/3/3 4/4/4\n")
	assert.Contains(t, out, "f 12/12/12 11/11/11 10/10/10 9/9/9\n", "обратная сторона с обратным обходом")
	assert.Contains(t, out, "vn 0 -1 0\n")

	buf.Reset()
	require.NoError(t, WriteMTL(&buf, m, func(tex string) string { return "textures/" + tex + ".png" }))
	assert.Contains(t, buf.String(), "newmtl oak_leaves\n")
	assert.Contains(t, buf.String(), "map_Kd textures/dirt.png\n")
}

func TestWriteOBJ_CornerUVs(t *testing.T) {
	w, reg := newSingleChunkWorld(t)
	setBlock(t, w, reg, 5, 5, 5, "dirt")
	mesh, err := NewExporter(w, reg, Options{CalculateCornerUVs: true}).Export(context.Background(), nil)
	require.NoError(t, err)

	var main, corners bytes.Buffer
	require.NoError(t, WriteOBJ(&main, mesh, OBJOptions{}))
	require.NoError(t, WriteOBJ(&corners, mesh, OBJOptions{UVs: CornerUVs}))
	assert.NotEqual(t, main.String(), corners.String())
	assert.Equal(t, strings.Count(main.String(), "\nf "), strings.Count(corners.String(), "\nf "))
}
