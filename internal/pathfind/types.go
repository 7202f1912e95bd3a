// Package pathfind реализует детерминированный поиск пути по сетке для RTS:
// маски местности, профили проходимости с учётом размера юнита, реестр
// юнитов/препятствий/порталов и планировщик JPS+ с порталами.
package pathfind

import (
	"fmt"

	"github.com/annel0/rts-pathfind/internal/vec"
)

// EmptyIndex — значение «нет объекта» в картах занятости и ссылках
const EmptyIndex = -1

// Ground — битовая маска свойств клетки местности
type Ground uint8

// MoveFunc — битовая маска способа передвижения
type MoveFunc uint8

// CollSize — идентификатор размера коллизии (footprint) юнита
type CollSize int8

// CanTraverse сообщает, может ли способ передвижения пройти клетку
func CanTraverse(move MoveFunc, ground Ground) bool {
	return Ground(move)&ground != 0
}

// Peek — прямоугольник клеток с включительными границами
type Peek struct {
	Min vec.Vec2 `json:"min"`
	Max vec.Vec2 `json:"max"`
}

// NewPeek создаёт прямоугольник по координатам углов
func NewPeek(minX, minY, maxX, maxY int) Peek {
	return Peek{Min: vec.New(minX, minY), Max: vec.New(maxX, maxY)}
}

// PeekFromSize возвращает прямоугольник всей сетки размера size
func PeekFromSize(size vec.Vec2) Peek {
	return Peek{Max: vec.Vec2{X: size.X - 1, Y: size.Y - 1}}
}

// Offset сдвигает прямоугольник на (x, y)
func (p Peek) Offset(x, y int) Peek {
	return Peek{
		Min: vec.New(int(p.Min.X)+x, int(p.Min.Y)+y),
		Max: vec.New(int(p.Max.X)+x, int(p.Max.Y)+y),
	}
}

// Empty сообщает, что прямоугольник не содержит клеток
func (p Peek) Empty() bool {
	return p.Max.X < p.Min.X || p.Max.Y < p.Min.Y
}

// IsZero сообщает, что прямоугольник не задан (нулевое значение)
func (p Peek) IsZero() bool {
	return p == Peek{}
}

// Width ширина в клетках
func (p Peek) Width() int { return int(p.Max.X) - int(p.Min.X) + 1 }

// Height высота в клетках
func (p Peek) Height() int { return int(p.Max.Y) - int(p.Min.Y) + 1 }

// Area количество клеток
func (p Peek) Area() int {
	if p.Empty() {
		return 0
	}
	return p.Width() * p.Height()
}

// Contains проверяет, что клетка внутри прямоугольника
func (p Peek) Contains(v vec.Vec2) bool {
	return v.X >= p.Min.X && v.X <= p.Max.X && v.Y >= p.Min.Y && v.Y <= p.Max.Y
}

// ContainsPeek проверяет, что o целиком внутри p
func (p Peek) ContainsPeek(o Peek) bool {
	return !o.Empty() && p.Contains(o.Min) && p.Contains(o.Max)
}

// Intersect возвращает пересечение прямоугольников
func (p Peek) Intersect(o Peek) (Peek, bool) {
	r := Peek{
		Min: vec.Vec2{X: max(p.Min.X, o.Min.X), Y: max(p.Min.Y, o.Min.Y)},
		Max: vec.Vec2{X: min(p.Max.X, o.Max.X), Y: min(p.Max.Y, o.Max.Y)},
	}
	return r, !r.Empty()
}

// Overlaps сообщает, есть ли у прямоугольников общие клетки
func (p Peek) Overlaps(o Peek) bool {
	_, ok := p.Intersect(o)
	return ok
}

func (p Peek) String() string {
	return fmt.Sprintf("[%s..%s]", p.Min, p.Max)
}

// PointPair — пара точек: начало/конец запроса или вход/выход портала
type PointPair struct {
	Start vec.Vec2 `json:"start"`
	End   vec.Vec2 `json:"end"`
}

// Func — идентификатор алгоритма для диагностики
type Func uint8

const (
	FuncJPSPlus Func = iota
	FuncJPS
	FuncArea
)

func (f Func) String() string {
	switch f {
	case FuncJPSPlus:
		return "JPSPlus"
	case FuncJPS:
		return "JPS"
	case FuncArea:
		return "Area"
	default:
		return "Unknown"
	}
}
