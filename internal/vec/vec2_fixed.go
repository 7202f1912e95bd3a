package vec

// Vec2Fixed представляет позицию в мировых координатах с фиксированной точкой
type Vec2Fixed struct {
	X Fixed `json:"x"`
	Y Fixed `json:"y"`
}

// Add складывает два вектора
func (v Vec2Fixed) Add(other Vec2Fixed) Vec2Fixed {
	return Vec2Fixed{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2Fixed) Sub(other Vec2Fixed) Vec2Fixed {
	return Vec2Fixed{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Fixed) Mul(scalar Fixed) Vec2Fixed {
	return Vec2Fixed{X: v.X.Mul(scalar), Y: v.Y.Mul(scalar)}
}

// SqrMagnitude возвращает квадрат длины вектора
func (v Vec2Fixed) SqrMagnitude() Fixed {
	return v.X.Mul(v.X) + v.Y.Mul(v.Y)
}

// GridMapping переводит мировые позиции в клетки сетки и обратно.
// Min — левый нижний угол карты, CellSize — сторона клетки.
type GridMapping struct {
	Min      Vec2Fixed
	CellSize Fixed
}

// PositionToPoint возвращает клетку, в которой лежит позиция
func (m GridMapping) PositionToPoint(pos Vec2Fixed) Vec2 {
	return Vec2{
		X: int16(pos.X.Sub(m.Min.X).Div(m.CellSize).Floor()),
		Y: int16(pos.Y.Sub(m.Min.Y).Div(m.CellSize).Floor()),
	}
}

// PointToPosition возвращает центр клетки в мировых координатах
func (m GridMapping) PointToPosition(p Vec2) Vec2Fixed {
	half := m.CellSize.Mul(FixedHalf)
	return Vec2Fixed{
		X: FixedFromInt(int(p.X)).Mul(m.CellSize) + m.Min.X + half,
		Y: FixedFromInt(int(p.Y)).Mul(m.CellSize) + m.Min.Y + half,
	}
}
