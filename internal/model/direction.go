package model

import (
	"fmt"
	"strings"

	"github.com/annel0/voxel-export/internal/vec"
)

// Direction определяет одну из шести осевых сторон блока.
// Числовые значения совпадают с номерами полубайтов в NeighborOcclusion.
type Direction uint8

const (
	Down  Direction = iota // -Y
	Up                     // +Y
	North                  // -Z
	South                  // +Z
	West                   // -X
	East                   // +X
)

// DirectionCount: количество направлений
const DirectionCount = 6

// Directions перечисляет все направления в порядке id
var Directions = [DirectionCount]Direction{Down, Up, North, South, West, East}

var directionNames = [DirectionCount]string{"down", "up", "north", "south", "west", "east"}

var oppositeTable = [DirectionCount]Direction{Up, Down, South, North, East, West}

var offsetTable = [DirectionCount]vec.Vec3{
	{X: 0, Y: -1, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: 0, Z: -1},
	{X: 0, Y: 0, Z: 1},
	{X: -1, Y: 0, Z: 0},
	{X: 1, Y: 0, Z: 0},
}

// Таблицы поворота на 90° вокруг осей. Направления, лежащие на оси, не меняются.
var (
	rotateXTable = [DirectionCount]Direction{South, North, Down, Up, West, East}
	rotateYTable = [DirectionCount]Direction{Down, Up, East, West, North, South}
	rotateZTable = [DirectionCount]Direction{East, West, North, South, Down, Up}
)

// ID возвращает числовой идентификатор направления (0..5)
func (d Direction) ID() int {
	return int(d)
}

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction {
	return oppositeTable[d]
}

// Offset возвращает единичный вектор смещения к соседу
func (d Direction) Offset() vec.Vec3 {
	return offsetTable[d]
}

// Axis возвращает индекс оси нормали: 0 - X, 1 - Y, 2 - Z
func (d Direction) Axis() int {
	switch d {
	case West, East:
		return 0
	case Down, Up:
		return 1
	default:
		return 2
	}
}

// Positive сообщает, смотрит ли нормаль в положительную сторону оси
func (d Direction) Positive() bool {
	return d == Up || d == South || d == East
}

// SameAxis проверяет, совпадает ли направление с other или противоположно ему
func (d Direction) SameAxis(other Direction) bool {
	return d == other || d == other.Opposite()
}

// RotateX поворачивает направление на steps шагов по 90° вокруг оси X
func (d Direction) RotateX(steps int) Direction {
	for i := 0; i < normalizeSteps(steps); i++ {
		d = rotateXTable[d]
	}
	return d
}

// RotateY поворачивает направление на steps шагов по 90° вокруг оси Y
func (d Direction) RotateY(steps int) Direction {
	for i := 0; i < normalizeSteps(steps); i++ {
		d = rotateYTable[d]
	}
	return d
}

// RotateZ поворачивает направление на steps шагов по 90° вокруг оси Z
func (d Direction) RotateZ(steps int) Direction {
	for i := 0; i < normalizeSteps(steps); i++ {
		d = rotateZTable[d]
	}
	return d
}

func normalizeSteps(steps int) int {
	steps %= 4
	if steps < 0 {
		steps += 4
	}
	return steps
}

// String возвращает имя направления
func (d Direction) String() string {
	if int(d) < DirectionCount {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// ParseDirection разбирает имя направления; "bottom" считается синонимом "down"
func ParseDirection(name string) (Direction, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "bottom" {
		name = "down"
	}
	for i, n := range directionNames {
		if n == name {
			return Direction(i), nil
		}
	}
	return Down, fmt.Errorf("неизвестное направление: %q", name)
}

// MarshalYAML сериализует направление по имени
func (d Direction) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML разбирает направление из имени
func (d *Direction) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseDirection(name)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
