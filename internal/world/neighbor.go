package world

import (
	"github.com/annel0/voxel-export/internal/model"
	"github.com/annel0/voxel-export/internal/occlusion"
	"github.com/annel0/voxel-export/internal/world/block"
)

// NeighborScratch: буферы сборщика сводки, по одному на воркер
type NeighborScratch struct {
	models []*model.Model
	quads  []*model.Quad
}

// NeighborSummary собирает сводку окклюзии для вокселя (x, y, z) с состоянием cur.
// Для точной окклюзии дополнительно возвращаются грани соседей, сдвинутые
// в систему координат вокселя; срез принадлежит s и живёт до следующего вызова.
func NeighborSummary(w *World, reg *block.Registry, x, y, z int, cur *block.BakedState, s *NeighborScratch) (occlusion.NeighborOcclusion, []*model.Quad) {
	s.quads = s.quads[:0]
	var occ occlusion.NeighborOcclusion
	for _, dir := range model.Directions {
		off := dir.Offset()
		nib, leaves := neighborNibble(w, reg, x+off.X, y+off.Y, z+off.Z, dir, cur, s)
		occ = occ.WithNibble(dir, nib)
		if leaves {
			occ = occ.WithLeavesFlag(dir)
		}
	}
	return occ, s.quads
}

// neighborNibble возвращает покрытие стороны dir соседом в (nx, ny, nz)
// и признак «с этой стороны тоже листва»
func neighborNibble(w *World, reg *block.Registry, nx, ny, nz int, dir model.Direction, cur *block.BakedState, s *NeighborScratch) (uint8, bool) {
	// Край мира и дно считаются закрытыми, чтобы не выводить их стенки
	if ny < w.MinY {
		return model.QuadrantAll, false
	}
	id, ok := w.BlockAt(nx, ny, nz)
	if !ok {
		return model.QuadrantAll, false
	}
	nb, ok := reg.Get(id)
	if !ok || nb.Air {
		return 0, false
	}

	if nb.Transparent && !cur.Transparent {
		return 0, false
	}
	if nb.Leaves && !cur.Leaves && !cur.Transparent {
		return 0, false
	}
	if nb.Leaves && cur.Leaves {
		// Из двух соседних листвяных граней остаётся одна
		if !nb.DoubleSided {
			return 0, true
		}
		if dir == model.Down || dir == model.South || dir == model.West {
			return 0, true
		}
	}

	if nb.Detailed && cur.Detailed {
		collectDetailed(nb, nx, ny, nz, dir, s)
	}

	return uint8(nb.Occludes>>(uint(dir.Opposite())*4)) & 0xF, false
}

// collectDetailed копирует грани соседа, смотрящие вдоль dir, сдвигая их на 16 по dir
func collectDetailed(nb *block.BakedState, nx, ny, nz int, dir model.Direction, s *NeighborScratch) {
	s.models = nb.Models(nx, ny, nz, s.models[:0])
	off := dir.Offset().Scale(16).ToFloat()
	for _, m := range s.models {
		for _, q := range m.Quads {
			if q.OccludedBy == 0 || !q.Direction.SameAxis(dir) {
				continue
			}
			c := q.Clone()
			c.Translate(off.X, off.Y, off.Z)
			s.quads = append(s.quads, c)
		}
	}
}
