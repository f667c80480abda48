package vec

// Vec2Float представляет 2D координаты с плавающей точкой (используется для UV)
type Vec2Float struct {
	X, Y float64
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Y: v.Y * scalar}
}

// Lerp линейно интерполирует от v к other с параметром t
func (v Vec2Float) Lerp(other Vec2Float, t float64) Vec2Float {
	return Vec2Float{X: (other.X-v.X)*t + v.X, Y: (other.Y-v.Y)*t + v.Y}
}
