package physics

import (
	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/vec"
)

// BoxCollider представляет простой прямоугольный коллайдер
type BoxCollider struct {
	Width  int // Ширина в клетках
	Height int // Высота в клетках
}

// NewBoxCollider создаёт новый коллайдер с указанными размерами
func NewBoxCollider(width, height int) *BoxCollider {
	return &BoxCollider{
		Width:  width,
		Height: height,
	}
}

// Offsets возвращает прямоугольник относительно якоря. Якорь — центр,
// для чётных размеров смещённый к правому нижнему углу: 2x2 -> [-1..0],
// 3x3 -> [-1..1], 4x4 -> [-2..1].
func (bc *BoxCollider) Offsets() pathfind.Peek {
	minX := -(bc.Width / 2)
	minY := -(bc.Height / 2)
	return pathfind.NewPeek(minX, minY, minX+bc.Width-1, minY+bc.Height-1)
}

// At возвращает занимаемый прямоугольник при якоре в pos
func (bc *BoxCollider) At(pos vec.Vec2) pathfind.Peek {
	return bc.Offsets().Offset(int(pos.X), int(pos.Y))
}

// IsPointInside проверяет, находится ли точка внутри коллайдера
func (bc *BoxCollider) IsPointInside(colliderPos, point vec.Vec2) bool {
	return bc.At(colliderPos).Contains(point)
}

// CheckBoxCollision проверяет пересечение двух коллайдеров
func CheckBoxCollision(pos1 vec.Vec2, collider1 *BoxCollider, pos2 vec.Vec2, collider2 *BoxCollider) bool {
	return collider1.At(pos1).Overlaps(collider2.At(pos2))
}

// GetCollisionPoints возвращает клетки для проверки коллизий: углы и якорь.
// Для коллайдера 1x1 — только якорь.
func GetCollisionPoints(pos vec.Vec2, collider *BoxCollider) []vec.Vec2 {
	if collider.Width <= 1 && collider.Height <= 1 {
		return []vec.Vec2{pos}
	}

	r := collider.At(pos)
	return []vec.Vec2{
		{X: r.Min.X, Y: r.Min.Y}, // Левый верхний
		{X: r.Max.X, Y: r.Min.Y}, // Правый верхний
		{X: r.Min.X, Y: r.Max.Y}, // Левый нижний
		{X: r.Max.X, Y: r.Max.Y}, // Правый нижний
		pos,                      // Якорь
	}
}

// CanMoveToPosition проверяет, может ли коллайдер встать в позицию.
// cellChecker - функция, которая проверяет, проходима ли клетка.
func CanMoveToPosition(newPos vec.Vec2, collider *BoxCollider, cellChecker func(vec.Vec2) bool) bool {
	r := collider.At(newPos)
	for y := int(r.Min.Y); y <= int(r.Max.Y); y++ {
		for x := int(r.Min.X); x <= int(r.Max.X); x++ {
			if !cellChecker(vec.New(x, y)) {
				return false
			}
		}
	}
	return true
}
