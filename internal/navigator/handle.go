package navigator

import (
	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/vec"
)

// PathHandle — маршрут юнита: буфер из пула и курсор следующей точки.
// Значение копируется дёшево; буфер принадлежит владельцу и
// освобождается через Release.
type PathHandle struct {
	out    *pathfind.Output
	cursor int
}

// NewPathHandle оборачивает результат поиска
func NewPathHandle(out *pathfind.Output) PathHandle {
	return PathHandle{out: out}
}

// Valid сообщает, что за ручкой есть маршрут
func (h PathHandle) Valid() bool {
	return h.out != nil && h.out.Found()
}

// Start возвращает ручку к первой точке
func (h PathHandle) Start() PathHandle {
	h.cursor = 0
	return h
}

// Next сдвигает курсор на одну точку
func (h PathHandle) Next() PathHandle {
	h.cursor++
	return h
}

// NextPoint возвращает точку под курсором; false — маршрут пройден
func (h PathHandle) NextPoint() (vec.Vec2, bool) {
	if h.out == nil || h.cursor >= len(h.out.Points) {
		return vec.Vec2{}, false
	}
	return h.out.Points[h.cursor], true
}

// Crossing сообщает, что точка под курсором — выход портала
func (h PathHandle) Crossing() (int, bool) {
	if h.out == nil {
		return pathfind.EmptyIndex, false
	}
	return h.out.IsCrossing(h.cursor)
}

// Remaining копирует непройденные точки
func (h PathHandle) Remaining() []vec.Vec2 {
	if h.out == nil || h.cursor >= len(h.out.Points) {
		return nil
	}
	rest := make([]vec.Vec2, len(h.out.Points)-h.cursor)
	copy(rest, h.out.Points[h.cursor:])
	return rest
}

// End — последняя точка маршрута
func (h PathHandle) End() (vec.Vec2, bool) {
	if !h.Valid() {
		return vec.Vec2{}, false
	}
	return h.out.Points[len(h.out.Points)-1], true
}

// Release возвращает буфер в пул
func (h PathHandle) Release() {
	if h.out != nil {
		h.out.Release()
	}
}
