package pathfind

import (
	"fmt"
	"testing"

	"github.com/annel0/rts-pathfind/internal/vec"
	"github.com/stretchr/testify/require"
)

const (
	gWalk  Ground = 2
	gFly   Ground = 4
	gWater Ground = 64
	gAmp   Ground = 128

	mFly   = MoveFunc(gFly)
	mMarin = MoveFunc(gAmp)
	mWater = MoveFunc(gWater | gAmp)
	mFoot  = MoveFunc(gWalk | gAmp)

	cNull CollSize = 0
	c1x1  CollSize = 1
	c2x2  CollSize = 2
	c3x3  CollSize = 3
)

var testGroups = [][]MoveFunc{{mFly}, {mMarin, mWater, mFoot}}

type gridTerrain struct {
	w, h  int
	cells []Ground
}

// newGridTerrain строит местность из строк: '.' — суша+воздух, '#' — ничего,
// '~' — вода+воздух
func newGridTerrain(rows ...string) *gridTerrain {
	t := &gridTerrain{w: len(rows[0]), h: len(rows)}
	t.cells = make([]Ground, t.w*t.h)
	for y, row := range rows {
		for x, ch := range row {
			switch ch {
			case '.':
				t.cells[y*t.w+x] = gWalk | gFly
			case '~':
				t.cells[y*t.w+x] = gWater | gFly
			}
		}
	}
	return t
}

func openTerrain(w, h int) *gridTerrain {
	t := &gridTerrain{w: w, h: h, cells: make([]Ground, w*h)}
	for i := range t.cells {
		t.cells[i] = gWalk | gFly
	}
	return t
}

func (t *gridTerrain) Width() int                  { return t.w }
func (t *gridTerrain) Height() int                 { return t.h }
func (t *gridTerrain) Get(x, y int) Ground         { return t.cells[y*t.w+x] }
func (t *gridTerrain) Set(x, y int, ground Ground) { t.cells[y*t.w+x] = ground }

type squareCollision struct{}

func (squareCollision) GetNull() CollSize { return cNull }

func (squareCollision) GetMax(sizes []CollSize) CollSize {
	best := cNull
	for _, s := range sizes {
		if s > best {
			best = s
		}
	}
	return best
}

func (squareCollision) Get(size CollSize) Peek {
	switch size {
	case cNull, c1x1:
		return Peek{}
	case c2x2:
		return NewPeek(-1, -1, 0, 0)
	case c3x3:
		return NewPeek(-1, -1, 1, 1)
	}
	panic(fmt.Sprintf("unknown size %d", size))
}

func (c squareCollision) GetAt(x, y int, size CollSize) Peek {
	return c.Get(size).Offset(x, y)
}

func newTestComponent(t *gridTerrain) *Component {
	return New(testGroups, []CollSize{c1x1, c2x2, c3x3},
		NewGetters(t, squareCollision{}, nil))
}

func pt(x, y int) vec.Vec2 { return vec.New(x, y) }

func longPath(c *Component, start, end vec.Vec2, move MoveFunc, coll CollSize, avoid bool) *Output {
	out := NewOutput(c.pools, false)
	in := NewInput(EmptyIndex, EmptyIndex, 0, move, coll, Peek{}, PointPair{Start: start, End: end})
	c.GetLongPath(&in, LongInput{AvoidMoveables: avoid}, out)
	return out
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// requireValidPath проверяет, что каждый отрезок — прямая или диагональ
// по клеткам, где юнит может стоять, без срезания углов. Возвращает стоимость.
func requireValidPath(t *testing.T, c *Component, start vec.Vec2, out *Output, move MoveFunc, coll CollSize, exclude int) int {
	t.Helper()
	require.True(t, out.Found(), "маршрут должен быть найден")

	cost := 0
	prev := start
	for i, next := range out.Points {
		if _, crossing := out.IsCrossing(i); crossing {
			prev = next
			continue
		}
		dx, dy := int(next.X)-int(prev.X), int(next.Y)-int(prev.Y)
		require.True(t, dx == 0 || dy == 0 || abs(dx) == abs(dy),
			"отрезок %s -> %s не прямой и не диагональный", prev, next)
		sx, sy := sign(dx), sign(dy)
		x, y := int(prev.X), int(prev.Y)
		for x != int(next.X) || y != int(next.Y) {
			if sx != 0 && sy != 0 {
				require.True(t, c.CanStand(pt(x+sx, y), move, coll, exclude), "срезание угла у (%d,%d)", x, y)
				require.True(t, c.CanStand(pt(x, y+sy), move, coll, exclude), "срезание угла у (%d,%d)", x, y)
				cost += costDiagonal
			} else {
				cost += costStraight
			}
			x, y = x+sx, y+sy
			require.True(t, c.CanStand(pt(x, y), move, coll, exclude), "клетка (%d,%d) непроходима", x, y)
		}
		prev = next
	}
	return cost
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// referenceCost — Дейкстра по всем клеткам с тем же правилом соседства.
// -1, если цель недостижима.
func referenceCost(c *Component, start, end vec.Vec2, move MoveFunc, coll CollSize) int {
	w, h := c.width, c.height
	stand := func(x, y int) bool { return c.CanStand(pt(x, y), move, coll, EmptyIndex) }
	if !stand(int(start.X), int(start.Y)) || !stand(int(end.X), int(end.Y)) {
		return -1
	}

	dist := make([]int, w*h)
	done := make([]bool, w*h)
	for i := range dist {
		dist[i] = -1
	}
	dist[start.Index(w)] = 0
	for {
		cur := -1
		for i := range dist {
			if dist[i] >= 0 && !done[i] && (cur < 0 || dist[i] < dist[cur]) {
				cur = i
			}
		}
		if cur < 0 {
			return -1
		}
		if cur == end.Index(w) {
			return dist[cur]
		}
		done[cur] = true
		x, y := cur%w, cur/w
		for d := int8(0); d < dirCount; d++ {
			dx, dy := dirX[d], dirY[d]
			nx, ny := x+dx, y+dy
			if !stand(nx, ny) {
				continue
			}
			cost := costStraight
			if dx != 0 && dy != 0 {
				if !stand(x+dx, y) || !stand(x, y+dy) {
					continue
				}
				cost = costDiagonal
			}
			n := ny*w + nx
			if dist[n] < 0 || dist[cur]+cost < dist[n] {
				dist[n] = dist[cur] + cost
			}
		}
		for _, portal := range c.Portals() {
			a, b := portal.Points.Start, portal.Points.End
			if a.Index(w) != cur || a == b || !stand(int(b.X), int(b.Y)) {
				continue
			}
			if n := b.Index(w); dist[n] < 0 || dist[cur] < dist[n] {
				dist[n] = dist[cur]
			}
		}
	}
}

type recordedPoint struct {
	fn    Func
	index int
	point vec.Vec2
}

type diagnosisRecorder struct {
	set     []recordedPoint
	removed []int
}

func (d *diagnosisRecorder) SetNextPoint(fn Func, index int, p vec.Vec2) {
	d.set = append(d.set, recordedPoint{fn: fn, index: index, point: p})
}

func (d *diagnosisRecorder) RemoveNextPoint(fn Func, index int) {
	d.removed = append(d.removed, index)
}
