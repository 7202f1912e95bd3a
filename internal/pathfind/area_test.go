package pathfind

import (
	"math/rand"
	"testing"

	"github.com/annel0/rts-pathfind/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// corridorTerrain — 12x12, стена по x=8 с проходом y=4..6: единственный
// выход для юнита 3x3 из левой части
func corridorTerrain() *gridTerrain {
	rows := make([]string, 12)
	for y := range rows {
		row := []byte("............")
		if y < 4 || y > 6 {
			row[8] = '#'
		}
		rows[y] = string(row)
	}
	return newGridTerrain(rows...)
}

func TestCheckAreaObstacleScenario(t *testing.T) {
	c := newTestComponent(corridorTerrain())
	c.Initialize(InitOptions{Clearance: true, Areas: true, JumpTables: true})

	start, end := pt(5, 5), pt(10, 10)
	require.NoError(t, c.SetMoveable(1, mFoot, c.Footprint(start, c3x3)))
	require.True(t, c.CanStand(start, mFoot, c3x3, 1))
	assert.True(t, c.CheckArea(start, end, mFoot, c3x3), "до препятствия конец достижим")

	block := ObstacleCells{pt(8, 5): gWalk | gAmp}
	require.True(t, c.CanStandRange(NewPeek(8, 5, 8, 5)))
	require.NoError(t, c.SetObstacle(10, block))
	assert.False(t, c.CheckArea(start, end, mFoot, c3x3), "препятствие закрывает проход")
	assert.True(t, c.CheckArea(start, end, mFoot, c1x1), "малому юниту хватает щели")
	assert.True(t, c.CheckArea(start, end, mFly, c3x3), "воздух не блокируется наземным препятствием")

	require.NoError(t, c.ResetObstacle(10, block))
	assert.True(t, c.CheckArea(start, end, mFoot, c3x3), "после снятия проход снова открыт")

	out := longPath(c, start, end, mFoot, c3x3, false)
	defer out.Release()
	requireValidPath(t, c, start, out, mFoot, c3x3, 1)
}

func reachableSet(c *Component, start vec.Vec2, coll CollSize) map[int]bool {
	set := make(map[int]bool)
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			if c.CheckArea(start, pt(x, y), mFoot, coll) {
				set[y*c.width+x] = true
			}
		}
	}
	return set
}

func TestReachabilityMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for round := 0; round < 10; round++ {
		c := newTestComponent(randomTerrain(rng, 14, 14, 0.2))
		start, ok := randomStandable(rng, c, c2x2)
		if !ok {
			continue
		}
		before := reachableSet(c, start, c2x2)

		cells := ObstacleCells{}
		for i := 0; i < 6; i++ {
			cells[pt(rng.Intn(14), rng.Intn(14))] = gWalk
		}
		require.NoError(t, c.SetObstacle(round, cells))
		during := reachableSet(c, start, c2x2)
		for cell := range during {
			assert.True(t, before[cell], "раунд %d: препятствие расширило достижимость (%d)", round, cell)
		}

		require.NoError(t, c.ResetObstacle(round, cells))
		assert.Equal(t, before, reachableSet(c, start, c2x2), "раунд %d: снятие должно восстановить множество", round)
	}
}

func TestCheckAreaThroughPortal(t *testing.T) {
	c := newTestComponent(newGridTerrain(
		".....#......",
		".....#......",
		".....#......",
		".....#......",
		".....#......",
	))
	left, right := pt(1, 1), pt(10, 4)

	assert.False(t, c.CheckArea(left, right, mFoot, c1x1))
	assert.Equal(t, 2, c.AreaCount(mFoot, c1x1))

	require.NoError(t, c.AddPortal(7, PointPair{Start: pt(2, 2), End: pt(9, 3)}))
	assert.True(t, c.CheckArea(left, right, mFoot, c1x1), "портал соединяет области")
	assert.True(t, c.CheckAreaAsync(left, right, mFoot, c1x1))
	assert.False(t, c.CheckArea(right, left, mFoot, c1x1), "портал направленный")
	assert.False(t, c.CheckAreaIsSame(left, right, mFoot, c1x1), "без порталов области разные")
	assert.True(t, c.CheckAreaIsSame(left, pt(4, 4), mFoot, c1x1))

	out := longPath(c, left, right, mFoot, c1x1, false)
	defer out.Release()
	assert.Equal(t, []int{7}, PortalIndexes(out))

	require.NoError(t, c.RemovePortal(7))
	assert.False(t, c.CheckArea(left, right, mFoot, c1x1))
}

func TestCheckAreaPortalChain(t *testing.T) {
	c := newTestComponent(newGridTerrain(
		"...#...#...",
		"...#...#...",
	))
	require.NoError(t, c.AddPortal(1, PointPair{Start: pt(0, 0), End: pt(4, 0)}))
	require.NoError(t, c.AddPortal(2, PointPair{Start: pt(6, 1), End: pt(10, 1)}))
	require.NoError(t, c.AddPortal(3, PointPair{Start: pt(5, 0), End: pt(3, 0)}), "вход в стену — портал неприменим")

	assert.True(t, c.CheckArea(pt(1, 1), pt(9, 0), mFoot, c1x1), "цепочка из двух порталов")
	assert.False(t, c.CheckArea(pt(9, 0), pt(1, 1), mFoot, c1x1))

	out := longPath(c, pt(1, 1), pt(9, 0), mFoot, c1x1, false)
	defer out.Release()
	requireValidPath(t, c, pt(1, 1), out, mFoot, c1x1, EmptyIndex)
	assert.Equal(t, []int{1, 2}, PortalIndexes(out))
}

func TestCheckAreaOutsideGrid(t *testing.T) {
	c := newTestComponent(openTerrain(4, 4))
	assert.False(t, c.CheckArea(pt(-1, 0), pt(1, 1), mFoot, c1x1))
	assert.False(t, c.CheckArea(pt(1, 1), pt(4, 4), mFoot, c1x1))
	assert.False(t, c.CheckArea(pt(0, 0), pt(2, 2), mFoot, c3x3), "3x3 не встаёт у края")
	assert.True(t, c.CheckArea(pt(1, 1), pt(2, 2), mFoot, c3x3))
}
