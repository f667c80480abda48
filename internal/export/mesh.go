package export

import (
	"github.com/annel0/voxel-export/internal/model"
	"github.com/annel0/voxel-export/internal/occlusion"
	"github.com/annel0/voxel-export/internal/vec"
)

// Face: видимая грань в мировых координатах (1 единица = 1 блок)
type Face struct {
	Points      [4]vec.Vec3Float      `json:"p"`
	UVs         [4]vec.Vec2Float      `json:"uv"`
	Normal      vec.Vec3Float         `json:"n"`
	Corner      occlusion.CornerIndex `json:"c,omitempty"`
	TintIndex   int                   `json:"t"`
	DoubleSided bool                  `json:"ds,omitempty"`
}

// CornerUVs возвращает UV атласа углов для четырёх вершин грани
func (f *Face) CornerUVs() [4]vec.Vec2Float {
	return occlusion.CornerUVs(f.Corner)
}

// FaceGroup: грани с одной текстурой
type FaceGroup struct {
	Texture string `json:"texture"`
	Faces   []Face `json:"faces"`
}

// Stats: счётчики экспорта
type Stats struct {
	Chunks  int `json:"chunks"`
	Cached  int `json:"cached"`
	Voxels  int `json:"voxels"`
	Quads   int `json:"quads"`
	Hidden  int `json:"hidden"`
	Split   int `json:"split"`
	Visible int `json:"visible"`
}

func (s *Stats) add(o Stats) {
	s.Chunks += o.Chunks
	s.Cached += o.Cached
	s.Voxels += o.Voxels
	s.Quads += o.Quads
	s.Hidden += o.Hidden
	s.Split += o.Split
	s.Visible += o.Visible
}

// Mesh: грани, сгруппированные по текстуре в порядке первого появления
type Mesh struct {
	Groups []*FaceGroup `json:"groups"`
	Stats  Stats        `json:"stats"`

	index map[string]int
}

// NewMesh создаёт пустой меш
func NewMesh() *Mesh {
	return &Mesh{index: make(map[string]int)}
}

func (m *Mesh) group(texture string) *FaceGroup {
	if m.index == nil {
		m.reindex()
	}
	if i, ok := m.index[texture]; ok {
		return m.Groups[i]
	}
	g := &FaceGroup{Texture: texture}
	m.index[texture] = len(m.Groups)
	m.Groups = append(m.Groups, g)
	return g
}

func (m *Mesh) reindex() {
	m.index = make(map[string]int, len(m.Groups))
	for i, g := range m.Groups {
		m.index[g.Texture] = i
	}
}

// Add добавляет грань в группу texture
func (m *Mesh) Add(texture string, f Face) {
	g := m.group(texture)
	g.Faces = append(g.Faces, f)
}

// AddQuad переводит грань модели в мировые координаты вокселя origin и добавляет её
func (m *Mesh) AddQuad(q *model.Quad, origin vec.Vec3, corner occlusion.CornerIndex) {
	base := origin.ToFloat()
	f := Face{
		Normal:      q.Normal(),
		UVs:         q.UVs,
		Corner:      corner,
		TintIndex:   q.TintIndex,
		DoubleSided: q.DoubleSided,
	}
	for i, p := range q.Points {
		f.Points[i] = base.Add(p.Mul(1 / model.BlockSize))
	}
	m.Add(q.Texture, f)
}

// Append дописывает грани other после своих, сохраняя порядок групп
func (m *Mesh) Append(other *Mesh) {
	for _, g := range other.Groups {
		dst := m.group(g.Texture)
		dst.Faces = append(dst.Faces, g.Faces...)
	}
	m.Stats.add(other.Stats)
}

// FaceCount возвращает общее число граней
func (m *Mesh) FaceCount() int {
	n := 0
	for _, g := range m.Groups {
		n += len(g.Faces)
	}
	return n
}

// Textures возвращает имена текстур в порядке групп
func (m *Mesh) Textures() []string {
	res := make([]string, len(m.Groups))
	for i, g := range m.Groups {
		res[i] = g.Texture
	}
	return res
}
