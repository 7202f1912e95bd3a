package pathfind

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/annel0/rts-pathfind/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLongPathOpenGrid(t *testing.T) {
	c := newTestComponent(openTerrain(20, 12))
	out := longPath(c, pt(0, 0), pt(19, 7), mFoot, c1x1, false)
	defer out.Release()

	cost := requireValidPath(t, c, pt(0, 0), out, mFoot, c1x1, EmptyIndex)
	assert.Equal(t, 10*19+4*7, cost, "на пустой сетке стоимость равна октильному расстоянию")
	assert.Equal(t, pt(19, 7), out.Points[len(out.Points)-1])
	assert.Equal(t, FuncJPSPlus, out.Func)
	assert.Empty(t, out.Portals)
	assert.Less(t, len(out.Points), 5, "JPS+ выдаёт только точки прыжка")
}

func TestLongPathStartEqualsEnd(t *testing.T) {
	c := newTestComponent(openTerrain(5, 5))
	out := longPath(c, pt(2, 2), pt(2, 2), mFoot, c1x1, false)
	defer out.Release()

	assert.Equal(t, []vec.Vec2{pt(2, 2)}, out.Points)
}

func TestLongPathNoRoute(t *testing.T) {
	c := newTestComponent(newGridTerrain(
		"...#...",
		"...#...",
		"...#...",
	))

	out := longPath(c, pt(0, 0), pt(6, 2), mFoot, c1x1, false)
	assert.False(t, out.Found(), "стена без прохода")
	assert.Positive(t, out.Expanded)
	out.Release()

	out = longPath(c, pt(0, 0), pt(3, 1), mFoot, c1x1, false)
	assert.False(t, out.Found(), "конец непроходим")
	out.Release()

	out = longPath(c, pt(0, 0), pt(1, 1), mFoot, c3x3, false)
	assert.False(t, out.Found(), "большой юнит не помещается у края")
	out.Release()

	assert.Panics(t, func() { longPath(c, pt(0, 0), pt(1, 1), MoveFunc(gWalk), c1x1, false) })
	assert.Panics(t, func() { longPath(c, pt(0, 0), pt(1, 1), mFoot, 11, false) })
}

func TestLongPathFlyIgnoresWater(t *testing.T) {
	c := newTestComponent(newGridTerrain(
		"..~~~..",
		"..~~~..",
		"..~~~..",
	))

	out := longPath(c, pt(0, 1), pt(6, 1), mFoot, c1x1, false)
	assert.False(t, out.Found(), "пехота не переходит воду")
	out.Release()

	out = longPath(c, pt(0, 1), pt(6, 1), mFly, c1x1, false)
	requireValidPath(t, c, pt(0, 1), out, mFly, c1x1, EmptyIndex)
	out.Release()

	out = longPath(c, pt(2, 0), pt(4, 2), mWater, c1x1, false)
	requireValidPath(t, c, pt(2, 0), out, mWater, c1x1, EmptyIndex)
	out.Release()
}

func randomTerrain(rng *rand.Rand, w, h int, density float64) *gridTerrain {
	t := openTerrain(w, h)
	for i := range t.cells {
		if rng.Float64() < density {
			t.cells[i] = 0
		}
	}
	return t
}

func randomStandable(rng *rand.Rand, c *Component, coll CollSize) (vec.Vec2, bool) {
	for attempt := 0; attempt < 100; attempt++ {
		p := pt(rng.Intn(c.width), rng.Intn(c.height))
		if c.CanStand(p, mFoot, coll, EmptyIndex) {
			return p, true
		}
	}
	return vec.Vec2{}, false
}

func TestLongPathMatchesReferenceCost(t *testing.T) {
	rng := rand.New(rand.NewSource(20240611))

	for round := 0; round < 40; round++ {
		c := newTestComponent(randomTerrain(rng, 16, 14, 0.28))
		coll := []CollSize{c1x1, c2x2}[round%2]
		if round%3 == 0 {
			a, okA := randomStandable(rng, c, coll)
			b, okB := randomStandable(rng, c, coll)
			if okA && okB {
				require.NoError(t, c.AddPortal(round, PointPair{Start: a, End: b}))
			}
		}

		start, okS := randomStandable(rng, c, coll)
		end, okE := randomStandable(rng, c, coll)
		if !okS || !okE {
			continue
		}
		want := referenceCost(c, start, end, mFoot, coll)

		for _, avoid := range []bool{false, true} {
			out := longPath(c, start, end, mFoot, coll, avoid)
			if want < 0 {
				assert.False(t, out.Found(), "раунд %d: маршрута быть не должно", round)
			} else {
				got := requireValidPath(t, c, start, out, mFoot, coll, EmptyIndex)
				assert.Equal(t, want, got, "раунд %d (avoid=%v): %s -> %s", round, avoid, start, end)
				assert.Equal(t, end, out.Points[len(out.Points)-1])
			}
			out.Release()
		}
	}
}

func TestLongPathAvoidMoveables(t *testing.T) {
	c := newTestComponent(newGridTerrain(
		"##########",
		"#........#",
		"#........#",
		"#........#",
		"##########",
	))
	require.NoError(t, c.SetMoveable(1, mFoot, c.Footprint(pt(1, 2), c1x1)))
	require.NoError(t, c.SetMoveable(2, mFoot, c.Footprint(pt(5, 2), c1x1)))
	require.NoError(t, c.SetMoveable(3, mFly, c.Footprint(pt(3, 2), c1x1)))

	query := func(index, link int, avoid bool) *Output {
		out := NewOutput(c.pools, false)
		in := NewInput(index, link, 7, mFoot, c1x1, Peek{}, PointPair{Start: pt(1, 2), End: pt(8, 2)})
		c.GetLongPath(&in, LongInput{AvoidMoveables: avoid}, out)
		return out
	}

	out := query(1, EmptyIndex, false)
	assert.Equal(t, []vec.Vec2{pt(8, 2)}, out.Points, "без учёта юнитов — прямо")
	assert.Equal(t, uint8(7), out.Flag)
	out.Release()

	out = query(1, EmptyIndex, true)
	cost := requireValidPath(t, c, pt(1, 2), out, mFoot, c1x1, 1)
	assert.Equal(t, 5*10+2*14, cost, "обход юнита 2 через соседний ряд")
	assert.Equal(t, FuncJPS, out.Func)
	out.Release()

	out = query(1, 2, true)
	assert.Equal(t, []vec.Vec2{pt(8, 2)}, out.Points, "связанный юнит не мешает")
	out.Release()

	require.NoError(t, c.SetMoveable(4, mFoot, c.Footprint(pt(5, 1), c1x1)))
	require.NoError(t, c.SetMoveable(5, mFoot, c.Footprint(pt(5, 3), c1x1)))
	out = query(1, EmptyIndex, true)
	assert.False(t, out.Found(), "проход перекрыт юнитами")
	out.Release()
}

func TestLongPathWindow(t *testing.T) {
	c := newTestComponent(newGridTerrain(
		"..........",
		"########..",
		"..........",
	))
	start, end := pt(0, 0), pt(0, 2)

	search := func(window Peek) *Output {
		out := NewOutput(c.pools, false)
		in := NewInput(EmptyIndex, EmptyIndex, 0, mFoot, c1x1, window, PointPair{Start: start, End: end})
		c.GetLongPath(&in, LongInput{}, out)
		return out
	}

	out := search(NewPeek(0, 0, 6, 2))
	assert.False(t, out.Found(), "обход за пределами окна")
	assert.Equal(t, FuncJPS, out.Func)
	out.Release()

	out = search(NewPeek(0, 0, 9, 2))
	requireValidPath(t, c, start, out, mFoot, c1x1, EmptyIndex)
	out.Release()

	out = search(NewPeek(-5, -5, 20, 20))
	assert.Equal(t, FuncJPSPlus, out.Func, "окно шире сетки обрезается до неё")
	out.Release()

	out = search(NewPeek(20, 20, 30, 30))
	assert.False(t, out.Found())
	out.Release()
}

func TestLongPathZeroWindowMeansWholeGrid(t *testing.T) {
	c := newTestComponent(openTerrain(10, 10))
	assert.True(t, Peek{}.IsZero())
	assert.False(t, NewPeek(0, 0, 0, 0).Empty(), "нулевой Peek — клетка (0,0), а не пустой прямоугольник")

	in := Input{
		Index:  EmptyIndex,
		Link:   EmptyIndex,
		Move:   mFoot,
		Coll:   c1x1,
		Points: PointPair{Start: pt(1, 1), End: pt(8, 8)},
	}
	out := NewOutput(c.pools, false)
	defer out.Release()
	c.GetLongPath(&in, LongInput{}, out)

	cost := requireValidPath(t, c, pt(1, 1), out, mFoot, c1x1, EmptyIndex)
	assert.Equal(t, 14*7, cost)
	assert.Equal(t, FuncJPSPlus, out.Func, "без окна используются таблицы прыжков")

	bounded := NewOutput(c.pools, false)
	defer bounded.Release()
	in.Range = c.Bounds()
	c.GetLongPath(&in, LongInput{}, bounded)
	assert.Equal(t, bounded.Points, out.Points)
}

func TestLongPathThroughPortal(t *testing.T) {
	c := newTestComponent(newGridTerrain(
		".....#......",
		".....#......",
		".....#......",
		".....#......",
		".....#......",
	))
	require.NoError(t, c.AddPortal(7, PointPair{Start: pt(2, 2), End: pt(9, 3)}))

	out := longPath(c, pt(0, 0), pt(11, 4), mFoot, c1x1, false)
	defer out.Release()

	requireValidPath(t, c, pt(0, 0), out, mFoot, c1x1, EmptyIndex)
	assert.Equal(t, []int{7}, PortalIndexes(out))
	w := out.Portals[0].Waypoint
	assert.Equal(t, pt(9, 3), out.Points[w], "точка пересечения — выход портала")
	require.Positive(t, w)
	assert.Equal(t, pt(2, 2), out.Points[w-1], "перед пересечением — вход портала")
}

func TestLongPathPrefersPortalShortcut(t *testing.T) {
	c := newTestComponent(openTerrain(30, 5))
	require.NoError(t, c.AddPortal(1, PointPair{Start: pt(1, 2), End: pt(28, 2)}))

	out := longPath(c, pt(0, 2), pt(29, 2), mFoot, c1x1, false)
	defer out.Release()

	assert.Equal(t, []vec.Vec2{pt(1, 2), pt(28, 2), pt(29, 2)}, out.Points)
	assert.Equal(t, []PortalCrossing{{Index: 1, Waypoint: 1}}, out.Portals)
}

func TestLongPathDeterministicAndConcurrent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := newTestComponent(randomTerrain(rng, 40, 40, 0.2))
	c.Initialize(InitOptions{Clearance: true, Areas: true, JumpTables: true})

	start, ok := randomStandable(rng, c, c1x1)
	require.True(t, ok)
	end, ok := randomStandable(rng, c, c1x1)
	require.True(t, ok)

	first := longPath(c, start, end, mFoot, c1x1, false)
	defer first.Release()
	expected := append([]vec.Vec2(nil), first.Points...)

	var wg sync.WaitGroup
	results := make([][]vec.Vec2, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out := NewOutput(c.pools, true)
			in := NewInput(EmptyIndex, EmptyIndex, 0, mFoot, c1x1, Peek{}, PointPair{Start: start, End: end})
			in.Async = true
			c.GetLongPath(&in, LongInput{}, out)
			results[i] = append([]vec.Vec2(nil), out.Points...)
			out.Release()
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		assert.Equal(t, expected, r, "запрос %d отличается", i)
	}
}
