package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/annel0/voxel-export/internal/vec"
)

// UVSet выбирает, какие UV попадают в vt
type UVSet int

const (
	// TextureUVs: UV текстуры блока
	TextureUVs UVSet = iota
	// CornerUVs: UV атласа подсветки рёбер
	CornerUVs
)

// OBJOptions: параметры вывода OBJ
type OBJOptions struct {
	UVs         UVSet
	MaterialLib string // имя .mtl файла; пустое — без mtllib
	Header      string
}

// WriteOBJ пишет меш в формате Wavefront OBJ. Каждая группа текстуры
// становится usemtl; двусторонние грани выводятся второй раз с обратным обходом.
// Индексы v/vt/vn сквозные по всему файлу.
func WriteOBJ(w io.Writer, m *Mesh, opts OBJOptions) error {
	out := bufio.NewWriterSize(w, 1024*1024)

	if opts.Header != "" {
		fmt.Fprintf(out, "# %s\n", opts.Header)
	}
	if opts.MaterialLib != "" {
		fmt.Fprintln(out, "mtllib", opts.MaterialLib)
	}
	fmt.Fprintln(out, "o voxels")

	base := 1
	for _, g := range m.Groups {
		if len(g.Faces) == 0 {
			continue
		}
		fmt.Fprintf(out, "g %s\n", g.Texture)
		fmt.Fprintf(out, "usemtl %s\n", g.Texture)
		for i := range g.Faces {
			f := &g.Faces[i]
			uvs := f.UVs
			if opts.UVs == CornerUVs {
				uvs = f.CornerUVs()
			}
			writeFace(out, f.Points, uvs, f.Normal, base, false)
			base += 4
			if f.DoubleSided {
				writeFace(out, f.Points, uvs, f.Normal.Mul(-1), base, true)
				base += 4
			}
		}
	}

	return out.Flush()
}

// writeFace пишет четыре вершины, их UV, одну нормаль на вершину и строку f
func writeFace(out *bufio.Writer, points [4]vec.Vec3Float, uvs [4]vec.Vec2Float, n vec.Vec3Float, base int, reverse bool) {
	for _, p := range points {
		fmt.Fprintf(out, "v %.5g %.5g %.5g\n", p.X, p.Y, p.Z)
	}
	for _, uv := range uvs {
		fmt.Fprintf(out, "vt %.5g %.5g\n", uv.X, uv.Y)
	}
	for range points {
		fmt.Fprintf(out, "vn %.4g %.4g %.4g\n", positiveZero(n.X), positiveZero(n.Y), positiveZero(n.Z))
	}

	order := [4]int{0, 1, 2, 3}
	if reverse {
		order = [4]int{3, 2, 1, 0}
	}
	fmt.Fprint(out, "f")
	for _, i := range order {
		idx := base + i
		fmt.Fprintf(out, " %d/%d/%d", idx, idx, idx)
	}
	fmt.Fprintln(out)
}

// positiveZero убирает -0, чтобы нормали не печатались как "-0"
func positiveZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

// WriteMTL пишет библиотеку материалов: по материалу на текстуру группы
func WriteMTL(w io.Writer, m *Mesh, texturePath func(texture string) string) error {
	out := bufio.NewWriter(w)
	for _, g := range m.Groups {
		fmt.Fprintf(out, "newmtl %s\nKd 1 1 1\nd 1\nillum 1\n", g.Texture)
		if texturePath != nil {
			if p := texturePath(g.Texture); p != "" {
				fmt.Fprintf(out, "map_Kd %s\n", p)
			}
		}
		fmt.Fprintln(out)
	}
	return out.Flush()
}
