package pathfind

import "github.com/annel0/rts-pathfind/internal/vec"

const (
	costStraight = 10
	costDiagonal = 14
)

// successors[d+1] — направления, рассматриваемые при приходе в узел по d
var successors = [dirCount + 1][]int8{
	{dirN, dirNE, dirE, dirSE, dirS, dirSW, dirW, dirNW},
	{dirN, dirNE, dirNW, dirE, dirW},
	{dirN, dirE, dirNE},
	{dirE, dirNE, dirSE, dirN, dirS},
	{dirS, dirE, dirSE},
	{dirS, dirSE, dirSW, dirE, dirW},
	{dirS, dirW, dirSW},
	{dirW, dirNW, dirSW, dirN, dirS},
	{dirN, dirW, dirNW},
}

// searchState — состояние одного запроса; все коллекции из пулов
type searchState struct {
	c        *Component
	p        *profile
	width    int
	needLock bool

	minX, minY, maxX, maxY int

	table   bool
	dynamic bool
	occ     []int32
	self    int32
	link    int32
	offMinX int
	offMinY int
	offMaxX int
	offMaxY int

	goal      int32
	goalX     int
	goalY     int
	targets   []vec.Vec2
	targetSet map[int32]struct{}
	portals   []int32

	links    map[int32]SearchLink
	open     []SearchNode
	expanded int
}

// GetLongPath ищет маршрут и заполняет out. Отсутствие маршрута — пустой
// out.Points, а не ошибка. Неизвестный тип передвижения или размер — паника.
func (c *Component) GetLongPath(in *Input, extra LongInput, out *Output) {
	out.Reset()
	out.Flag = in.Flag

	group := c.groupIndex(in.Move)
	offset := c.peekOf(in.Coll)

	bounds := c.Bounds()
	window := bounds
	if !in.Range.IsZero() {
		var ok bool
		if window, ok = bounds.Intersect(in.Range); !ok {
			return
		}
	}
	start, end := in.Points.Start, in.Points.End
	if !window.Contains(start) || !window.Contains(end) {
		return
	}

	s := searchState{
		c:        c,
		p:        c.profileFor(in.Move, in.Coll),
		width:    c.width,
		needLock: in.Async,
		minX:     int(window.Min.X),
		minY:     int(window.Min.Y),
		maxX:     int(window.Max.X),
		maxY:     int(window.Max.Y),
		table:    !extra.AvoidMoveables && window == bounds,
		dynamic:  extra.AvoidMoveables && in.Coll != c.nullSize,
		occ:      c.occupants[group],
		self:     int32(in.Index),
		link:     int32(in.Link),
		offMinX:  int(offset.Min.X),
		offMinY:  int(offset.Min.Y),
		offMaxX:  int(offset.Max.X),
		offMaxY:  int(offset.Max.Y),
		goal:     c.cellIndex(int(end.X), int(end.Y)),
		goalX:    int(end.X),
		goalY:    int(end.Y),
	}
	if !s.table {
		out.Func = FuncJPS
	}

	if !s.walkable(int(start.X), int(start.Y)) || !s.walkable(s.goalX, s.goalY) {
		return
	}
	if start == end {
		out.Points = append(out.Points, end)
		return
	}
	if s.table {
		s.p.ensureJumps()
	}

	s.acquire()
	defer s.release()

	if s.run(c.cellIndex(int(start.X), int(start.Y))) {
		s.emit(out)
	}
	out.Expanded = s.expanded
}

func (s *searchState) acquire() {
	pools := s.c.pools
	s.targets = pools.Points().Alloc(s.needLock)
	s.targetSet = pools.CellSets().Alloc(s.needLock)
	s.portals = pools.Cells().Alloc(s.needLock)
	s.links = pools.Links().Alloc(s.needLock)
	s.open = pools.Nodes().Alloc(s.needLock)

	s.targets = append(s.targets, vec.New(s.goalX, s.goalY))
	s.targetSet[s.goal] = struct{}{}

	for _, id := range s.c.portalIDs {
		pt := s.c.portals[id]
		a, b := pt.Points.Start, pt.Points.End
		if a == b || !s.walkable(int(a.X), int(a.Y)) || !s.walkable(int(b.X), int(b.Y)) {
			continue
		}
		s.portals = append(s.portals, int32(id))
		entry := s.c.cellIndex(int(a.X), int(a.Y))
		if _, ok := s.targetSet[entry]; !ok {
			s.targetSet[entry] = struct{}{}
			s.targets = append(s.targets, a)
		}
	}
}

func (s *searchState) release() {
	pools := s.c.pools
	pools.Points().Release(s.targets, s.needLock)
	pools.CellSets().Release(s.targetSet, s.needLock)
	pools.Cells().Release(s.portals, s.needLock)
	pools.Links().Release(s.links, s.needLock)
	pools.Nodes().Release(s.open, s.needLock)
	s.targets, s.targetSet, s.portals, s.links, s.open = nil, nil, nil, nil, nil
}

// walkable — клетка-якорь в окне, профиль проходим и (в динамическом
// режиме) прямоугольник не задевает чужих юнитов группы
func (s *searchState) walkable(x, y int) bool {
	if x < s.minX || y < s.minY || x > s.maxX || y > s.maxY {
		return false
	}
	if !s.p.clear[y*s.width+x] {
		return false
	}
	if s.dynamic {
		for fy := y + s.offMinY; fy <= y+s.offMaxY; fy++ {
			row := fy * s.width
			for fx := x + s.offMinX; fx <= x+s.offMaxX; fx++ {
				if o := s.occ[row+fx]; o != EmptyIndex && o != s.self && o != s.link {
					return false
				}
			}
		}
	}
	return true
}

func (s *searchState) isTarget(x, y int) bool {
	_, ok := s.targetSet[int32(y*s.width+x)]
	return ok
}

func (s *searchState) heuristic(x, y int) int32 {
	h := octile(x-s.goalX, y-s.goalY)
	for _, t := range s.targets[1:] {
		if d := octile(x-int(t.X), y-int(t.Y)); d < h {
			h = d
		}
	}
	return h
}

func octile(dx, dy int) int32 {
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx < dy {
		dx, dy = dy, dx
	}
	return int32(costStraight*dx + (costDiagonal-costStraight)*dy)
}

// run — A* по точкам прыжка. Порталы — рёбра нулевой стоимости из входа.
func (s *searchState) run(start int32) bool {
	sx, sy := int(start)%s.width, int(start)/s.width
	s.links[start] = SearchLink{Parent: EmptyIndex, Portal: EmptyIndex, Dir: dirNone}
	s.push(SearchNode{Cell: start, G: 0, H: s.heuristic(sx, sy), F: s.heuristic(sx, sy)})

	for len(s.open) > 0 {
		node := s.pop()
		link := s.links[node.Cell]
		if link.Closed || node.G != link.G {
			continue
		}
		link.Closed = true
		s.links[node.Cell] = link
		s.expanded++

		if node.Cell == s.goal {
			return true
		}

		x, y := int(node.Cell)%s.width, int(node.Cell)/s.width
		if _, ok := s.targetSet[node.Cell]; ok {
			for _, id := range s.portals {
				pt := s.c.portals[int(id)]
				if pt.Points.Start.X != int16(x) || pt.Points.Start.Y != int16(y) {
					continue
				}
				exit := pt.Points.End
				s.relax(int(exit.X), int(exit.Y), node.G, node.Cell, dirNone, id)
			}
		}

		for _, d := range successors[link.Dir+1] {
			var (
				nx, ny, steps int
				ok            bool
			)
			if s.table {
				nx, ny, steps, ok = s.jumpTable(x, y, d)
			} else {
				nx, ny, steps, ok = s.jumpOnline(x, y, d)
			}
			if !ok {
				continue
			}
			cost := costStraight
			if isDiagonal(d) {
				cost = costDiagonal
			}
			s.relax(nx, ny, node.G+int32(steps*cost), node.Cell, d, EmptyIndex)
		}
	}
	return false
}

func (s *searchState) relax(x, y int, g int32, parent int32, dir int8, portal int32) {
	cell := int32(y*s.width + x)
	if l, seen := s.links[cell]; seen && (l.Closed || l.G <= g) {
		return
	}
	s.links[cell] = SearchLink{Parent: parent, G: g, Portal: portal, Dir: dir}
	h := s.heuristic(x, y)
	s.push(SearchNode{Cell: cell, G: g, H: h, F: g + h})
}

// jumpTable — прыжок по предвычисленной таблице с учётом целей на луче
func (s *searchState) jumpTable(x, y int, d int8) (int, int, int, bool) {
	dist := int(s.p.jumps[d][y*s.width+x])
	free := dist
	if free < 0 {
		free = -free
	}
	dx, dy := dirX[d], dirY[d]

	best := 0
	for _, t := range s.targets {
		tx, ty := (int(t.X)-x)*dx, (int(t.Y)-y)*dy
		var k int
		switch {
		case dx == 0:
			if int(t.X) != x {
				continue
			}
			k = ty
		case dy == 0:
			if int(t.Y) != y {
				continue
			}
			k = tx
		default:
			if tx < 1 || ty < 1 {
				continue
			}
			k = min(tx, ty)
		}
		if k >= 1 && k <= free && (best == 0 || k < best) {
			best = k
		}
	}

	if best > 0 {
		return x + best*dx, y + best*dy, best, true
	}
	if dist > 0 {
		return x + dist*dx, y + dist*dy, dist, true
	}
	return 0, 0, 0, false
}

// jumpOnline — классический прыжок JPS с проверкой проходимости на лету
func (s *searchState) jumpOnline(x, y int, d int8) (int, int, int, bool) {
	dx, dy := dirX[d], dirY[d]
	if dx == 0 || dy == 0 {
		return s.scanStraight(x, y, dx, dy)
	}
	for k := 1; ; k++ {
		if !s.walkable(x+dx, y) || !s.walkable(x, y+dy) {
			return 0, 0, 0, false
		}
		x += dx
		y += dy
		if !s.walkable(x, y) {
			return 0, 0, 0, false
		}
		if s.isTarget(x, y) {
			return x, y, k, true
		}
		if _, _, _, ok := s.scanStraight(x, y, dx, 0); ok {
			return x, y, k, true
		}
		if _, _, _, ok := s.scanStraight(x, y, 0, dy); ok {
			return x, y, k, true
		}
	}
}

func (s *searchState) scanStraight(x, y, dx, dy int) (int, int, int, bool) {
	for k := 1; ; k++ {
		x += dx
		y += dy
		if !s.walkable(x, y) {
			return 0, 0, 0, false
		}
		if s.isTarget(x, y) || forcedBy(s.walkable, x, y, dx, dy) {
			return x, y, k, true
		}
	}
}

// emit восстанавливает маршрут от цели к началу и пишет его в out
func (s *searchState) emit(out *Output) {
	cells := s.c.pools.Cells().Alloc(s.needLock)
	for cell := s.goal; cell != EmptyIndex; cell = s.links[cell].Parent {
		cells = append(cells, cell)
	}
	for i := len(cells) - 2; i >= 0; i-- {
		cell := cells[i]
		out.Points = append(out.Points, s.c.cellPoint(cell))
		if portal := s.links[cell].Portal; portal != EmptyIndex {
			out.Portals = append(out.Portals, PortalCrossing{Index: int(portal), Waypoint: len(out.Points) - 1})
		}
	}
	s.c.pools.Cells().Release(cells, s.needLock)
}

// Открытый список: двоичная куча, порядок — f, затем h, затем индекс клетки

func nodeLess(a, b SearchNode) bool {
	if a.F != b.F {
		return a.F < b.F
	}
	if a.H != b.H {
		return a.H < b.H
	}
	return a.Cell < b.Cell
}

func (s *searchState) push(n SearchNode) {
	s.open = append(s.open, n)
	i := len(s.open) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !nodeLess(s.open[i], s.open[parent]) {
			break
		}
		s.open[i], s.open[parent] = s.open[parent], s.open[i]
		i = parent
	}
}

func (s *searchState) pop() SearchNode {
	top := s.open[0]
	last := len(s.open) - 1
	s.open[0] = s.open[last]
	s.open = s.open[:last]

	i := 0
	for {
		left := 2*i + 1
		if left >= last {
			break
		}
		smallest := left
		if right := left + 1; right < last && nodeLess(s.open[right], s.open[left]) {
			smallest = right
		}
		if !nodeLess(s.open[smallest], s.open[i]) {
			break
		}
		s.open[i], s.open[smallest] = s.open[smallest], s.open[i]
		i = smallest
	}
	return top
}
