package pathfind

import "sync"

// Направления в порядке по часовой стрелке, начиная с севера (y растёт вниз)
const (
	dirN int8 = iota
	dirNE
	dirE
	dirSE
	dirS
	dirSW
	dirW
	dirNW
	dirCount
	dirNone int8 = -1
)

var (
	dirX = [dirCount]int{0, 1, 1, 1, 0, -1, -1, -1}
	dirY = [dirCount]int{-1, -1, 0, 1, 1, 1, 0, -1}
)

func dirOf(dx, dy int) int8 {
	for d := int8(0); d < dirCount; d++ {
		if dirX[d] == dx && dirY[d] == dy {
			return d
		}
	}
	return dirNone
}

func isDiagonal(d int8) bool {
	return d >= 0 && dirX[d] != 0 && dirY[d] != 0
}

type profileKey uint16

func keyOf(move MoveFunc, coll CollSize) profileKey {
	return profileKey(uint16(move)<<8 | uint16(uint8(coll)))
}

// profile — проходимость сетки для пары (способ передвижения, размер).
// После публикации в кэше не меняется; ленивые части защищены sync.Once.
type profile struct {
	move    MoveFunc
	coll    CollSize
	offset  Peek
	version uint64
	width   int
	height  int
	clear   []bool

	labelsOnce sync.Once
	labels     []int32
	regions    int

	jumpsOnce sync.Once
	jumps     [dirCount][]int16
}

// profileFor возвращает актуальный профиль, перестраивая устаревший
func (c *Component) profileFor(move MoveFunc, coll CollSize) *profile {
	c.groupIndex(move)
	offset := c.peekOf(coll)
	key := keyOf(move, coll)

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	if p := c.profiles[key]; p != nil && p.version == c.version {
		return p
	}
	p := c.buildProfile(move, coll, offset)
	c.profiles[key] = p
	rebuilds := c.rebuilds.Add(1)
	c.logger.Debug("Профиль move=%d coll=%d перестроен (версия %d, всего перестроений %d)", move, coll, c.version, rebuilds)
	return p
}

// buildProfile считает для каждой клетки-якоря, помещается ли прямоугольник
// юнита на проходимые клетки. Суммы по прямоугольникам — через префиксные суммы.
func (c *Component) buildProfile(move MoveFunc, coll CollSize, offset Peek) *profile {
	w, h := c.width, c.height
	stride := w + 1
	prefix := make([]int32, stride*(h+1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v int32
			if CanTraverse(move, c.ground(x, y)) {
				v = 1
			}
			prefix[(y+1)*stride+x+1] = v + prefix[y*stride+x+1] + prefix[(y+1)*stride+x] - prefix[y*stride+x]
		}
	}

	offMinX, offMinY := int(offset.Min.X), int(offset.Min.Y)
	offMaxX, offMaxY := int(offset.Max.X), int(offset.Max.Y)
	area := int32((offMaxX - offMinX + 1) * (offMaxY - offMinY + 1))

	clear := make([]bool, w*h)
	for y := 0; y < h; y++ {
		y0, y1 := y+offMinY, y+offMaxY
		if y0 < 0 || y1 >= h {
			continue
		}
		for x := 0; x < w; x++ {
			x0, x1 := x+offMinX, x+offMaxX
			if x0 < 0 || x1 >= w {
				continue
			}
			sum := prefix[(y1+1)*stride+x1+1] - prefix[y0*stride+x1+1] - prefix[(y1+1)*stride+x0] + prefix[y0*stride+x0]
			clear[y*w+x] = sum == area
		}
	}

	return &profile{
		move:    move,
		coll:    coll,
		offset:  offset,
		version: c.version,
		width:   w,
		height:  h,
		clear:   clear,
	}
}

func (p *profile) walkable(x, y int) bool {
	return x >= 0 && y >= 0 && x < p.width && y < p.height && p.clear[y*p.width+x]
}

// canStep проверяет шаг в соседнюю клетку: по диагонали без срезания углов
func (p *profile) canStep(x, y, dx, dy int) bool {
	if !p.walkable(x+dx, y+dy) {
		return false
	}
	if dx != 0 && dy != 0 {
		return p.walkable(x+dx, y) && p.walkable(x, y+dy)
	}
	return true
}

// ensureLabels размечает связные области (8-связность без срезания углов)
func (p *profile) ensureLabels() {
	p.labelsOnce.Do(func() {
		labels := make([]int32, len(p.clear))
		for i := range labels {
			labels[i] = EmptyIndex
		}

		var queue []int32
		region := int32(0)
		for start := range p.clear {
			if !p.clear[start] || labels[start] != EmptyIndex {
				continue
			}
			labels[start] = region
			queue = append(queue[:0], int32(start))
			for head := 0; head < len(queue); head++ {
				cell := int(queue[head])
				x, y := cell%p.width, cell/p.width
				for d := int8(0); d < dirCount; d++ {
					dx, dy := dirX[d], dirY[d]
					if !p.canStep(x, y, dx, dy) {
						continue
					}
					next := (y+dy)*p.width + x + dx
					if labels[next] == EmptyIndex {
						labels[next] = region
						queue = append(queue, int32(next))
					}
				}
			}
			region++
		}

		p.labels = labels
		p.regions = int(region)
	})
}

func (p *profile) label(x, y int) int32 {
	if x < 0 || y < 0 || x >= p.width || y >= p.height {
		return EmptyIndex
	}
	return p.labels[y*p.width+x]
}

// ensureJumps строит таблицы прыжков JPS+. Значение > 0 — число шагов до
// точки прыжка, <= 0 — минус число свободных шагов до стены.
func (p *profile) ensureJumps() {
	p.jumpsOnce.Do(func() {
		for _, d := range [...]int8{dirN, dirE, dirS, dirW, dirNE, dirSE, dirSW, dirNW} {
			p.fillJumps(d)
		}
	})
}

func (p *profile) fillJumps(d int8) {
	w, h := p.width, p.height
	dx, dy := dirX[d], dirY[d]
	table := make([]int16, w*h)

	// Клетка (x+dx, y+dy) должна быть посчитана раньше (x, y)
	y0, y1, ys := 0, h, 1
	if dy > 0 {
		y0, y1, ys = h-1, -1, -1
	}
	x0, x1, xs := 0, w, 1
	if dx > 0 {
		x0, x1, xs = w-1, -1, -1
	}

	diagonal := dx != 0 && dy != 0
	var horiz, vert []int16
	if diagonal {
		horiz, vert = p.jumps[dirOf(dx, 0)], p.jumps[dirOf(0, dy)]
	}

	for y := y0; y != y1; y += ys {
		for x := x0; x != x1; x += xs {
			if !p.canStep(x, y, dx, dy) {
				continue
			}
			nx, ny := x+dx, y+dy
			next := ny*w + nx
			switch {
			case diagonal && (horiz[next] > 0 || vert[next] > 0):
				table[y*w+x] = 1
			case !diagonal && p.forced(nx, ny, dx, dy):
				table[y*w+x] = 1
			case table[next] > 0:
				table[y*w+x] = table[next] + 1
			default:
				table[y*w+x] = table[next] - 1
			}
		}
	}
	p.jumps[d] = table
}

// forced — у клетки при прямом движении есть вынужденный сосед
func (p *profile) forced(x, y, dx, dy int) bool {
	return forcedBy(p.walkable, x, y, dx, dy)
}

func forcedBy(walkable func(x, y int) bool, x, y, dx, dy int) bool {
	if dx != 0 {
		return (walkable(x, y-1) && !walkable(x-dx, y-1)) ||
			(walkable(x, y+1) && !walkable(x-dx, y+1))
	}
	return (walkable(x-1, y) && !walkable(x-1, y-dy)) ||
		(walkable(x+1, y) && !walkable(x+1, y-dy))
}
