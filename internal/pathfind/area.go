package pathfind

import "github.com/annel0/rts-pathfind/internal/vec"

// CheckArea проверяет достижимость end из start без построения маршрута:
// та же проходимость, что у поиска, но юниты не учитываются. Области
// соединяются направленными порталами.
func (c *Component) CheckArea(start, end vec.Vec2, move MoveFunc, coll CollSize) bool {
	return c.checkArea(start, end, move, coll, false)
}

// CheckAreaAsync — CheckArea для вызова не из владеющего потока
func (c *Component) CheckAreaAsync(start, end vec.Vec2, move MoveFunc, coll CollSize) bool {
	return c.checkArea(start, end, move, coll, true)
}

// CheckAreaIsSame сообщает, что точки лежат в одной связной области (без порталов)
func (c *Component) CheckAreaIsSame(start, end vec.Vec2, move MoveFunc, coll CollSize) bool {
	p := c.profileFor(move, coll)
	p.ensureLabels()
	ls := p.label(int(start.X), int(start.Y))
	return ls != EmptyIndex && ls == p.label(int(end.X), int(end.Y))
}

// AreaCount возвращает число связных областей профиля
func (c *Component) AreaCount(move MoveFunc, coll CollSize) int {
	p := c.profileFor(move, coll)
	p.ensureLabels()
	return p.regions
}

func (c *Component) checkArea(start, end vec.Vec2, move MoveFunc, coll CollSize, needLock bool) bool {
	p := c.profileFor(move, coll)
	p.ensureLabels()

	from := p.label(int(start.X), int(start.Y))
	to := p.label(int(end.X), int(end.Y))
	if from == EmptyIndex || to == EmptyIndex {
		return false
	}
	if from == to {
		return true
	}
	if len(c.portalIDs) == 0 {
		return false
	}

	visited := c.pools.CellSets().Alloc(needLock)
	queue := c.pools.Cells().Alloc(needLock)
	defer func() {
		c.pools.CellSets().Release(visited, needLock)
		c.pools.Cells().Release(queue, needLock)
	}()

	visited[from] = struct{}{}
	queue = append(queue, from)
	for head := 0; head < len(queue); head++ {
		region := queue[head]
		for _, id := range c.portalIDs {
			pt := c.portals[id].Points
			if p.label(int(pt.Start.X), int(pt.Start.Y)) != region {
				continue
			}
			next := p.label(int(pt.End.X), int(pt.End.Y))
			if next == EmptyIndex {
				continue
			}
			if next == to {
				return true
			}
			if _, seen := visited[next]; !seen {
				visited[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return false
}
