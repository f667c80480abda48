package block

import (
	"github.com/annel0/voxel-export/internal/model"
	"github.com/annel0/voxel-export/internal/occlusion"
	"github.com/annel0/voxel-export/internal/util"
)

// BlockID: плотный индекс запечённого состояния в реестре сессии
type BlockID uint16

// AirBlockID всегда занимает нулевой индекс
const AirBlockID BlockID = 0

// BakedState: запечённое состояние блока: модели по частям и флаги окклюзии.
// Состояние общее для всех вокселей с этим ID и после регистрации не меняется.
type BakedState struct {
	ID   BlockID
	Name string

	// Parts: по одному списку вариантов на часть; для каждой части
	// в вокселе выбирается ровно одна модель.
	Parts []model.Variants

	// Occludes: 24 бита покрытия: OR по частям от AND по вариантам части
	Occludes uint64

	Air         bool
	Transparent bool
	Leaves      bool
	Detailed    bool
	DoubleSided bool

	noise *util.Noise
}

// Flags возвращает флаги, влияющие на движок окклюзии
func (s *BakedState) Flags() occlusion.StateFlags {
	return occlusion.StateFlags{Detailed: s.Detailed}
}

// Models добавляет в dst по одной модели на часть. Выбор варианта
// детерминирован и зависит только от позиции.
func (s *BakedState) Models(x, y, z int, dst []*model.Model) []*model.Model {
	random := -1.0
	for _, variants := range s.Parts {
		switch len(variants) {
		case 0:
			continue
		case 1:
			dst = append(dst, variants[0])
		default:
			if random < 0 {
				random = s.random(x, y, z)
			}
			if m := variants.Pick(random); m != nil {
				dst = append(dst, m)
			}
		}
	}
	return dst
}

// DefaultModels добавляет в dst первый вариант каждой части
func (s *BakedState) DefaultModels(dst []*model.Model) []*model.Model {
	for _, variants := range s.Parts {
		if len(variants) > 0 {
			dst = append(dst, variants[0])
		}
	}
	return dst
}

func (s *BakedState) random(x, y, z int) float64 {
	if s.noise == nil {
		return 0
	}
	return s.noise.AtBlock(x, y, z)
}

// computeOccludes считает покрытие: часть закрывает квадрант, только если
// его закрывают все её варианты
func computeOccludes(parts []model.Variants) uint64 {
	var res uint64
	for _, variants := range parts {
		if len(variants) == 0 {
			continue
		}
		part := uint64(occlusion.FullyOccluded)
		for _, m := range variants {
			part &= m.Occludes()
		}
		res |= part
	}
	return res
}
