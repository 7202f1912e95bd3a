package vec

import "fmt"

// Vec2 представляет точку навигационной сетки.
// Координаты хранятся в int16: карта не бывает больше 32767 клеток по стороне.
type Vec2 struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
}

// New создаёт точку из int координат
func New(x, y int) Vec2 {
	return Vec2{X: int16(x), Y: int16(y)}
}

// FromIndex восстанавливает точку по плоскому индексу клетки (y*width + x)
func FromIndex(idx, width int) Vec2 {
	return Vec2{X: int16(idx % width), Y: int16(idx / width)}
}

// Index возвращает плоский индекс клетки для сетки шириной width
func (v Vec2) Index(width int) int {
	return int(v.Y)*width + int(v.X)
}

// Add складывает две точки
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает точку
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Equals проверяет равенство точек
func (v Vec2) Equals(other Vec2) bool {
	return v.X == other.X && v.Y == other.Y
}

// Chebyshev возвращает расстояние Чебышёва (число шагов с диагоналями)
func (v Vec2) Chebyshev(other Vec2) int {
	dx, dy := absDelta(v, other)
	if dx > dy {
		return dx
	}
	return dy
}

// Octile возвращает целочисленную октильную дистанцию:
// прямой шаг стоит 10, диагональный 14.
func (v Vec2) Octile(other Vec2) int {
	dx, dy := absDelta(v, other)
	if dx < dy {
		dx, dy = dy, dx
	}
	return 10*dx + 4*dy
}

// String реализует fmt.Stringer
func (v Vec2) String() string {
	return fmt.Sprintf("(%d,%d)", v.X, v.Y)
}

func absDelta(a, b Vec2) (int, int) {
	dx := int(a.X) - int(b.X)
	dy := int(a.Y) - int(b.Y)
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx, dy
}
