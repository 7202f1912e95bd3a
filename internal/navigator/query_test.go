package navigator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/rts-pathfind/internal/cache"
	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/physics"
)

func TestQuery(t *testing.T) {
	ctx := context.Background()
	n := newTestNavigator(t, newTestGrid(t,
		"..........",
		"..........",
		"..~~~~....",
		"..~~~~....",
		"..........",
	))

	res, err := n.Query(ctx, PathQuery{
		Index: pathfind.EmptyIndex, Link: pathfind.EmptyIndex,
		Move: physics.MoveFoot, Coll: physics.Coll1x1,
		Start: pt(0, 3), End: pt(9, 3),
	})
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, pathfind.FuncJPSPlus.String(), res.Func)
	assert.Equal(t, pt(9, 3), res.Points[len(res.Points)-1])

	fly, err := n.Query(ctx, PathQuery{
		Index: pathfind.EmptyIndex, Link: pathfind.EmptyIndex,
		Move: physics.MoveFly, Coll: physics.Coll1x1,
		Start: pt(0, 3), End: pt(9, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, 90, fly.Cost, "воздух летит над водой")
	assert.Greater(t, res.Cost, fly.Cost)

	windowed, err := n.Query(ctx, PathQuery{
		Index: pathfind.EmptyIndex, Link: pathfind.EmptyIndex,
		Move: physics.MoveFoot, Coll: physics.Coll1x1,
		Start: pt(0, 3), End: pt(9, 3), Window: pathfind.NewPeek(0, 2, 9, 4),
	})
	require.NoError(t, err)
	assert.True(t, windowed.Found)
	assert.Equal(t, pathfind.FuncJPS.String(), windowed.Func, "окно меньше сетки — онлайн-прыжки")

	_, err = n.Query(ctx, PathQuery{Move: pathfind.MoveFunc(0x01), Coll: physics.Coll1x1})
	assert.ErrorIs(t, err, ErrUnknownMoveType)
	_, err = n.Query(ctx, PathQuery{Move: physics.MoveFoot, Coll: 42})
	assert.ErrorIs(t, err, ErrUnknownCollSize)
}

func TestFindPathAvoidsAgents(t *testing.T) {
	ctx := context.Background()
	n := newTestNavigator(t, openGrid(t, 10, 10))

	unit, err := n.Spawn(ctx, physics.MoveFoot, physics.Coll1x1, pt(0, 0))
	require.NoError(t, err)
	_, err = n.Spawn(ctx, physics.MoveFoot, physics.Coll1x1, pt(2, 0))
	require.NoError(t, err)

	static, err := n.FindPath(ctx, unit, pt(4, 0), false)
	require.NoError(t, err)
	assert.Equal(t, 40, static.Cost)

	avoid, err := n.FindPath(ctx, unit, pt(4, 0), true)
	require.NoError(t, err)
	require.True(t, avoid.Found)
	assert.Greater(t, avoid.Cost, static.Cost)
	assert.NotContains(t, avoid.Points, pt(2, 0))

	v, _ := n.Agent(unit)
	assert.Nil(t, v.Target, "FindPath не меняет приказ юнита")

	_, err = n.FindPath(ctx, 77, pt(1, 1), false)
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestOrderGroup(t *testing.T) {
	ctx := context.Background()
	n := newTestNavigator(t, openGrid(t, 20, 20))

	small, err := n.Spawn(ctx, physics.MoveFoot, physics.Coll1x1, pt(1, 1))
	require.NoError(t, err)
	wide, err := n.Spawn(ctx, physics.MoveFoot, physics.Coll2x2, pt(4, 1))
	require.NoError(t, err)
	edge, err := n.Spawn(ctx, physics.MoveFoot, physics.Coll1x1, pt(0, 5))
	require.NoError(t, err)
	flyer, err := n.Spawn(ctx, physics.MoveFly, physics.Coll1x1, pt(9, 9))
	require.NoError(t, err)

	res, err := n.OrderGroup(ctx, []int{wide, edge, small, wide}, pt(15, 15))
	require.NoError(t, err)
	assert.Equal(t, physics.Coll2x2, res.Coll, "размер группы — наибольший")
	require.Len(t, res.Members, 3, "повторы индексов схлопываются")

	byIndex := make(map[int]MemberRoute)
	for _, m := range res.Members {
		assert.True(t, m.Found)
		byIndex[m.Index] = m
	}
	assert.Equal(t, physics.Coll2x2, byIndex[small].Coll)
	assert.Equal(t, physics.Coll2x2, byIndex[wide].Coll)
	assert.Equal(t, physics.Coll1x1, byIndex[edge].Coll, "у края 2x2 не помещается — свой размер")

	_, err = n.OrderGroup(ctx, []int{small, flyer}, pt(15, 15))
	assert.ErrorIs(t, err, ErrMixedGroup)
	_, err = n.OrderGroup(ctx, nil, pt(15, 15))
	assert.ErrorIs(t, err, ErrEmptyGroup)
	_, err = n.OrderGroup(ctx, []int{small, 99}, pt(15, 15))
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestConcurrentQueriesAreDeterministic(t *testing.T) {
	ctx := context.Background()
	n := newTestNavigator(t, newTestGrid(t,
		"............",
		".####.......",
		"....#..###..",
		"....#....#..",
		"..###....#..",
		".........#..",
		"............",
	))
	q := PathQuery{
		Index: pathfind.EmptyIndex, Link: pathfind.EmptyIndex,
		Move: physics.MoveFoot, Coll: physics.Coll1x1,
		Start: pt(0, 6), End: pt(11, 0),
	}
	want, err := n.Query(ctx, q)
	require.NoError(t, err)
	require.True(t, want.Found)

	var wg sync.WaitGroup
	results := make([]PathResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = n.Query(ctx, q)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestQueryCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache(0)
	n := newTestNavigator(t, openGrid(t, 10, 10), WithQueryCache(c, time.Minute))

	q := PathQuery{
		Index: pathfind.EmptyIndex, Link: pathfind.EmptyIndex,
		Move: physics.MoveFoot, Coll: physics.Coll1x1,
		Start: pt(0, 0), End: pt(9, 9),
	}
	first, err := n.Query(ctx, q)
	require.NoError(t, err)
	second, err := n.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), c.GetMetrics().CacheHits, "повтор берётся из кеша")

	_, err = n.Spawn(ctx, physics.MoveFoot, physics.Coll1x1, pt(5, 2))
	require.NoError(t, err)
	_, err = n.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.GetMetrics().CacheHits, "изменение меняет ключ")
	assert.Equal(t, 2, c.Len())
}
