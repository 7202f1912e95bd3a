package navigator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/physics"
)

func TestTickFollowsPath(t *testing.T) {
	ctx := context.Background()
	n := newTestNavigator(t, openGrid(t, 20, 20))

	unit, err := n.Spawn(ctx, physics.MoveFoot, physics.Coll1x1, pt(1, 1))
	require.NoError(t, err)
	res, err := n.Order(ctx, unit, pt(6, 3), false)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, 58, res.Cost, "два диагональных и три прямых шага")

	reports := runUntilIdle(t, n, unit, 20)
	steps, arrived := 0, 0
	for _, r := range reports {
		steps += r.Steps
		arrived += r.Arrived
	}
	assert.Equal(t, 5, steps, "по клетке за тик, число шагов — расстояние Чебышёва")
	assert.Equal(t, 1, arrived)

	v, _ := n.Agent(unit)
	assert.Equal(t, pt(6, 3), v.Position)
	assert.Empty(t, v.Waypoints)
	assert.Nil(t, v.Target)

	idle := n.Tick(ctx)
	assert.Zero(t, idle.Steps, "без маршрута юнит стоит")
}

func TestTickWaitsAndReplans(t *testing.T) {
	ctx := context.Background()
	n := newTestNavigator(t, openGrid(t, 10, 10), WithReplanAfter(2))

	blocker, err := n.Spawn(ctx, physics.MoveFoot, physics.Coll1x1, pt(2, 0))
	require.NoError(t, err)
	unit, err := n.Spawn(ctx, physics.MoveFoot, physics.Coll1x1, pt(0, 0))
	require.NoError(t, err)

	res, err := n.Order(ctx, unit, pt(4, 0), false)
	require.NoError(t, err)
	require.True(t, res.Found, "статический маршрут не видит юнитов")
	assert.Equal(t, 40, res.Cost)

	reports := runUntilIdle(t, n, unit, 20)
	blocked, replanned := 0, 0
	for _, r := range reports {
		blocked += r.Blocked
		replanned += r.Replanned
	}
	assert.Equal(t, 2, blocked, "два тика ожидания до перепланирования")
	assert.Equal(t, 1, replanned)

	v, _ := n.Agent(unit)
	assert.Equal(t, pt(4, 0), v.Position)
	b, _ := n.Agent(blocker)
	assert.Equal(t, pt(2, 0), b.Position)
}

func TestTickCrossesPortal(t *testing.T) {
	ctx := context.Background()
	n := newTestNavigator(t, newTestGrid(t,
		"......#.....",
		"......#.....",
		"......#.....",
		"......#.....",
		"......#.....",
	))

	unit, err := n.Spawn(ctx, physics.MoveFoot, physics.Coll1x1, pt(1, 2))
	require.NoError(t, err)
	portal, err := n.AddPortal(ctx, pathfind.PointPair{Start: pt(4, 2), End: pt(8, 2)})
	require.NoError(t, err)

	res, err := n.Order(ctx, unit, pt(10, 2), false)
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Len(t, res.Portals, 1)
	assert.Equal(t, portal, res.Portals[0].Index)
	assert.Equal(t, pt(8, 2), res.Points[res.Portals[0].Waypoint])
	assert.Equal(t, 50, res.Cost, "переход через портал бесплатен")

	reports := runUntilIdle(t, n, unit, 20)
	steps, crossings := 0, 0
	for _, r := range reports {
		steps += r.Steps
		crossings += r.Crossings
	}
	assert.Equal(t, 1, crossings)
	assert.Equal(t, 5, steps)

	v, _ := n.Agent(unit)
	assert.Equal(t, pt(10, 2), v.Position)
}

func TestTickJournalsMoves(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{}
	n := newTestNavigator(t, openGrid(t, 8, 8), WithJournal(sink))

	unit, err := n.Spawn(ctx, physics.MoveFoot, physics.Coll1x1, pt(0, 0))
	require.NoError(t, err)
	_, err = n.Order(ctx, unit, pt(3, 0), false)
	require.NoError(t, err)
	runUntilIdle(t, n, unit, 10)

	records := sink.Records()
	require.Len(t, records, 4, "появление и три шага")
	assert.Equal(t, OpAgentSpawn, records[0].Op)
	for i, m := range records[1:] {
		assert.Equal(t, OpAgentRelocate, m.Op)
		assert.Equal(t, pt(i+1, 0), m.Point)
		assert.Equal(t, uint64(i+2), m.Seq)
	}
}
