package pathfind

import "github.com/annel0/rts-pathfind/internal/vec"

// CanStand проверяет, может ли юнит (move, coll) стоять в точке p:
// все клетки прямоугольника проходимы и не заняты юнитами той же группы,
// кроме exclude. Нулевой размер проверяет одну клетку без учёта юнитов.
func (c *Component) CanStand(p vec.Vec2, move MoveFunc, coll CollSize, exclude int) bool {
	group := c.groupIndex(move)
	x, y := int(p.X), int(p.Y)

	if coll == c.nullSize {
		return c.inBounds(x, y) && CanTraverse(move, c.ground(x, y))
	}

	offset := c.peekOf(coll)
	x0, y0 := x+int(offset.Min.X), y+int(offset.Min.Y)
	x1, y1 := x+int(offset.Max.X), y+int(offset.Max.Y)
	if !c.inBounds(x0, y0) || !c.inBounds(x1, y1) {
		return false
	}

	occ := c.occupants[group]
	self := int32(exclude)
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			if !CanTraverse(move, c.ground(cx, cy)) {
				return false
			}
			if o := occ[cy*c.width+cx]; o != EmptyIndex && o != self {
				return false
			}
		}
	}
	return true
}

// CanStandRange проверяет, что прямоугольник внутри сетки и свободен от
// юнитов всех групп. Используется перед установкой препятствия.
func (c *Component) CanStandRange(r Peek) bool {
	if !c.Bounds().ContainsPeek(r) {
		return false
	}
	for _, occ := range c.occupants {
		for y := int(r.Min.Y); y <= int(r.Max.Y); y++ {
			row := y * c.width
			for x := int(r.Min.X); x <= int(r.Max.X); x++ {
				if occ[row+x] != EmptyIndex {
					return false
				}
			}
		}
	}
	return true
}
