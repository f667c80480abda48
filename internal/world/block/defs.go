package block

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/annel0/voxel-export/internal/model"
	"github.com/annel0/voxel-export/internal/vec"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultDefs []byte

// StateDef: описание состояния блока в YAML
type StateDef struct {
	Name        string       `yaml:"name"`
	Air         bool         `yaml:"air"`
	Transparent bool         `yaml:"transparent"`
	Leaves      bool         `yaml:"leaves"`
	Detailed    bool         `yaml:"detailed"`
	DoubleSided bool         `yaml:"double_sided"`
	Parts       [][]ModelDef `yaml:"parts"`
}

// ModelDef: один вариант модели части
type ModelDef struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
	// Texture без элементов означает полный куб с одной текстурой
	Texture  string       `yaml:"texture"`
	Elements []ElementDef `yaml:"elements"`
	// Поворот всей модели вокруг центра блока, шаг 90°
	RotateX int `yaml:"x"`
	RotateY int `yaml:"y"`
}

// ElementDef: осевой бокс модели в координатах блока [0,16]
type ElementDef struct {
	From     [3]float64               `yaml:"from"`
	To       [3]float64               `yaml:"to"`
	Faces    map[string]model.FaceDef `yaml:"faces"`
	Rotation *ElementRotation         `yaml:"rotation"`
}

// ElementRotation: поворот элемента на произвольный угол вокруг одной оси
type ElementRotation struct {
	Origin  [3]float64 `yaml:"origin"`
	Axis    string     `yaml:"axis"`
	Angle   float64    `yaml:"angle"`
	Rescale bool       `yaml:"rescale"`
}

type defsFile struct {
	Blocks []StateDef `yaml:"blocks"`
}

// ParseDefs разбирает описания блоков из YAML
func ParseDefs(data []byte) ([]StateDef, error) {
	var f defsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ошибка разбора описаний блоков: %w", err)
	}
	return f.Blocks, nil
}

// LoadDefs читает описания блоков из YAML файла
func LoadDefs(path string) ([]StateDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать %s: %w", path, err)
	}
	return ParseDefs(data)
}

// DefaultDefs возвращает встроенный набор блоков
func DefaultDefs() ([]StateDef, error) {
	return ParseDefs(defaultDefs)
}

// bake строит модели состояния по описанию
func bake(def StateDef) (*BakedState, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("у блока нет имени")
	}
	s := &BakedState{
		Name:        def.Name,
		Air:         def.Air,
		Transparent: def.Transparent || def.Air,
		Leaves:      def.Leaves,
		Detailed:    def.Detailed,
		DoubleSided: def.DoubleSided,
	}
	if def.Air {
		return s, nil
	}
	for pi, part := range def.Parts {
		variants := make(model.Variants, 0, len(part))
		for vi, md := range part {
			m, err := bakeModel(md, def.DoubleSided)
			if err != nil {
				return nil, fmt.Errorf("блок %s, часть %d, вариант %d: %w", def.Name, pi, vi, err)
			}
			if m.Name == "" {
				m.Name = fmt.Sprintf("%s#%d.%d", def.Name, pi, vi)
			}
			variants = append(variants, m)
		}
		s.Parts = append(s.Parts, variants)
	}
	s.Occludes = computeOccludes(s.Parts)
	return s, nil
}

func bakeModel(md ModelDef, doubleSided bool) (*model.Model, error) {
	weight := md.Weight
	if weight <= 0 {
		weight = 1
	}
	var m *model.Model
	switch {
	case len(md.Elements) > 0:
		m = &model.Model{Name: md.Name, DoubleSided: doubleSided}
		for ei, el := range md.Elements {
			quads, err := bakeElement(el, doubleSided)
			if err != nil {
				return nil, fmt.Errorf("элемент %d: %w", ei, err)
			}
			m.Quads = append(m.Quads, quads...)
		}
	case md.Texture != "":
		m = model.NewCube(md.Name, md.Texture)
		m.DoubleSided = doubleSided
		for _, q := range m.Quads {
			q.DoubleSided = doubleSided
		}
	default:
		return nil, fmt.Errorf("модель без элементов и текстуры")
	}
	m.Weight = weight

	if md.RotateX != 0 || md.RotateY != 0 {
		if md.RotateX%90 != 0 || md.RotateY%90 != 0 {
			return nil, fmt.Errorf("поворот модели должен быть кратен 90°: x=%d y=%d", md.RotateX, md.RotateY)
		}
		for _, q := range m.Quads {
			q.Rotate(float64(md.RotateX), float64(md.RotateY), 0)
		}
	}
	return m, nil
}

func bakeElement(el ElementDef, doubleSided bool) ([]*model.Quad, error) {
	from := vec.Vec3Float{X: el.From[0], Y: el.From[1], Z: el.From[2]}
	to := vec.Vec3Float{X: el.To[0], Y: el.To[1], Z: el.To[2]}

	axis := -1
	if el.Rotation != nil {
		switch strings.ToLower(el.Rotation.Axis) {
		case "x":
			axis = 0
		case "y":
			axis = 1
		case "z":
			axis = 2
		default:
			return nil, fmt.Errorf("неизвестная ось поворота: %q", el.Rotation.Axis)
		}
	}

	quads := make([]*model.Quad, 0, len(el.Faces))
	for _, dir := range model.Directions {
		face, ok := faceFor(el.Faces, dir)
		if !ok {
			continue
		}
		q := model.NewBoxQuad(from, to, dir, face, doubleSided)
		if axis >= 0 && el.Rotation.Angle != 0 {
			r := el.Rotation
			origin := vec.Vec3Float{X: r.Origin[0], Y: r.Origin[1], Z: r.Origin[2]}
			q.RotateElement(axis, r.Angle, origin, r.Rescale)
		}
		quads = append(quads, q)
	}
	return quads, nil
}

// faceFor ищет грань по имени направления; "bottom" допускается как синоним "down"
func faceFor(faces map[string]model.FaceDef, dir model.Direction) (model.FaceDef, bool) {
	for name, face := range faces {
		d, err := model.ParseDirection(name)
		if err == nil && d == dir {
			return face, true
		}
	}
	return model.FaceDef{}, false
}
