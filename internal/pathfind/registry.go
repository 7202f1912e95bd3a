package pathfind

import (
	"fmt"
	"math"
	"sort"

	"github.com/annel0/rts-pathfind/internal/vec"
)

// ObstacleCells — блокируемые биты по клеткам статического препятствия
type ObstacleCells map[vec.Vec2]Ground

func validIndex(index int) bool {
	return index >= 0 && index <= math.MaxInt32
}

// SetMoveable регистрирует юнит и занимает его клетки в карте группы.
// При любой ошибке карта занятости не меняется.
func (c *Component) SetMoveable(index int, move MoveFunc, footprint Peek) error {
	if !validIndex(index) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	group := c.groupIndex(move)
	if _, exists := c.moveables[index]; exists {
		return fmt.Errorf("%w: %d", ErrMoveableExists, index)
	}
	if !c.Bounds().ContainsPeek(footprint) {
		return fmt.Errorf("%w: moveable %d at %s", ErrOutOfBounds, index, footprint)
	}

	occ := c.occupants[group]
	for y := int(footprint.Min.Y); y <= int(footprint.Max.Y); y++ {
		for x := int(footprint.Min.X); x <= int(footprint.Max.X); x++ {
			if other := occ[y*c.width+x]; other != EmptyIndex {
				return fmt.Errorf("%w: moveable %d overlaps %d at (%d,%d)", ErrCellOccupied, index, other, x, y)
			}
		}
	}

	c.fillOccupants(group, footprint, int32(index))
	c.moveables[index] = moveable{move: move, group: group, footprint: footprint}
	return nil
}

// ResetMoveable снимает юнит. Тип и прямоугольник должны совпадать с
// зарегистрированными, иначе ошибка и карта занятости не меняется.
func (c *Component) ResetMoveable(index int, move MoveFunc, footprint Peek) error {
	m, exists := c.moveables[index]
	if !exists {
		return fmt.Errorf("%w: %d", ErrMoveableNotFound, index)
	}
	if m.move != move || m.footprint != footprint {
		return fmt.Errorf("%w: moveable %d registered as move=%d %s, got move=%d %s",
			ErrFootprintMismatch, index, m.move, m.footprint, move, footprint)
	}

	c.fillOccupants(m.group, m.footprint, EmptyIndex)
	delete(c.moveables, index)
	return nil
}

// MoveableInfo описание зарегистрированного юнита
type MoveableInfo struct {
	Index     int
	Move      MoveFunc
	Footprint Peek
}

// Moveable возвращает зарегистрированный юнит
func (c *Component) Moveable(index int) (MoveableInfo, bool) {
	m, ok := c.moveables[index]
	if !ok {
		return MoveableInfo{}, false
	}
	return MoveableInfo{Index: index, Move: m.move, Footprint: m.footprint}, true
}

// MoveableIndexes возвращает отсортированные индексы юнитов
func (c *Component) MoveableIndexes() []int {
	ids := make([]int, 0, len(c.moveables))
	for id := range c.moveables {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Occupant возвращает индекс юнита группы move в клетке или EmptyIndex
func (c *Component) Occupant(move MoveFunc, p vec.Vec2) int {
	group := c.groupIndex(move)
	if !c.inBounds(int(p.X), int(p.Y)) {
		return EmptyIndex
	}
	return int(c.occupants[group][c.cellIndex(int(p.X), int(p.Y))])
}

func (c *Component) fillOccupants(group int8, footprint Peek, value int32) {
	occ := c.occupants[group]
	for y := int(footprint.Min.Y); y <= int(footprint.Max.Y); y++ {
		row := y * c.width
		for x := int(footprint.Min.X); x <= int(footprint.Max.X); x++ {
			occ[row+x] = value
		}
	}
}

// SetObstacle регистрирует статическое препятствие: каждый бит маски
// в клетке снимается с проходимости. Препятствия складываются через
// счётчики ссылок, поэтому порядок добавления и снятия не важен.
func (c *Component) SetObstacle(index int, cells ObstacleCells) error {
	if !validIndex(index) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	if _, exists := c.obstacles[index]; exists {
		return fmt.Errorf("%w: %d", ErrObstacleExists, index)
	}
	list, err := c.obstacleList(cells)
	if err != nil {
		return fmt.Errorf("obstacle %d: %w", index, err)
	}

	for _, oc := range list {
		refs := c.bitRefs[oc.cell]
		if refs == nil {
			refs = new([8]uint16)
			c.bitRefs[oc.cell] = refs
		}
		for b := 0; b < 8; b++ {
			if oc.bits&(1<<b) != 0 {
				refs[b]++
			}
		}
		c.blocked[oc.cell] |= oc.bits
	}

	c.obstacles[index] = obstacle{cells: list}
	c.version++
	return nil
}

// ResetObstacle снимает препятствие; набор клеток должен совпадать
func (c *Component) ResetObstacle(index int, cells ObstacleCells) error {
	o, exists := c.obstacles[index]
	if !exists {
		return fmt.Errorf("%w: %d", ErrObstacleNotFound, index)
	}
	list, err := c.obstacleList(cells)
	if err != nil {
		return fmt.Errorf("obstacle %d: %w", index, err)
	}
	if !sameObstacleCells(o.cells, list) {
		return fmt.Errorf("%w: %d", ErrObstacleMismatch, index)
	}

	for _, oc := range o.cells {
		refs := c.bitRefs[oc.cell]
		empty := true
		for b := 0; b < 8; b++ {
			if oc.bits&(1<<b) != 0 {
				refs[b]--
				if refs[b] == 0 {
					c.blocked[oc.cell] &^= Ground(1 << b)
				}
			}
			if refs[b] != 0 {
				empty = false
			}
		}
		if empty {
			delete(c.bitRefs, oc.cell)
		}
	}

	delete(c.obstacles, index)
	c.version++
	return nil
}

// ObstacleIndexes возвращает отсортированные индексы препятствий
func (c *Component) ObstacleIndexes() []int {
	ids := make([]int, 0, len(c.obstacles))
	for id := range c.obstacles {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Obstacle возвращает копию клеток зарегистрированного препятствия
func (c *Component) Obstacle(index int) (ObstacleCells, bool) {
	o, ok := c.obstacles[index]
	if !ok {
		return nil, false
	}
	cells := make(ObstacleCells, len(o.cells))
	for _, oc := range o.cells {
		cells[c.cellPoint(oc.cell)] = oc.bits
	}
	return cells, true
}

func (c *Component) obstacleList(cells ObstacleCells) ([]obstacleCell, error) {
	list := make([]obstacleCell, 0, len(cells))
	for p, bits := range cells {
		if !c.inBounds(int(p.X), int(p.Y)) {
			return nil, fmt.Errorf("%w: cell %s", ErrOutOfBounds, p)
		}
		list = append(list, obstacleCell{cell: c.cellIndex(int(p.X), int(p.Y)), bits: bits})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].cell < list[j].cell })
	return list, nil
}

func sameObstacleCells(a, b []obstacleCell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AddPortal регистрирует направленный портал: из Points.Start в Points.End
func (c *Component) AddPortal(index int, points PointPair) error {
	if !validIndex(index) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	if _, exists := c.portals[index]; exists {
		return fmt.Errorf("%w: %d", ErrPortalExists, index)
	}
	if !c.inBounds(int(points.Start.X), int(points.Start.Y)) || !c.inBounds(int(points.End.X), int(points.End.Y)) {
		return fmt.Errorf("%w: portal %d %s -> %s", ErrOutOfBounds, index, points.Start, points.End)
	}

	c.portals[index] = Portal{Index: index, Points: points}
	c.portalIDs = insertSorted(c.portalIDs, index)
	return nil
}

// RemovePortal удаляет портал
func (c *Component) RemovePortal(index int) error {
	if _, exists := c.portals[index]; !exists {
		return fmt.Errorf("%w: %d", ErrPortalNotFound, index)
	}
	delete(c.portals, index)
	c.portalIDs = removeSorted(c.portalIDs, index)
	return nil
}

// Portal возвращает портал по индексу
func (c *Component) Portal(index int) (Portal, bool) {
	portal, ok := c.portals[index]
	return portal, ok
}

// Portals возвращает порталы в порядке возрастания индекса
func (c *Component) Portals() []Portal {
	out := make([]Portal, 0, len(c.portalIDs))
	for _, id := range c.portalIDs {
		out = append(out, c.portals[id])
	}
	return out
}
