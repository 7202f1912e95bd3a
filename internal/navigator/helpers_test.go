package navigator

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/annel0/rts-pathfind/internal/logging"
	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/physics"
	"github.com/annel0/rts-pathfind/internal/terrain"
	"github.com/annel0/rts-pathfind/internal/vec"
)

const (
	groundOpen = terrain.Walk | terrain.Fly | terrain.Cons
	groundWall = terrain.None
)

var testSizes = []pathfind.CollSize{physics.Coll1x1, physics.Coll2x2, physics.Coll3x3, physics.Coll4x4}

// newTestGrid строит сетку из строк: '.' — суша, '#' — стена, '~' — вода
func newTestGrid(t *testing.T, rows ...string) *terrain.Grid {
	t.Helper()
	grid, err := terrain.NewGrid(len(rows[0]), len(rows), groundOpen)
	require.NoError(t, err)
	for y, row := range rows {
		for x, ch := range row {
			switch ch {
			case '#':
				grid.Set(x, y, groundWall)
			case '~':
				grid.Set(x, y, terrain.Water|terrain.Fly)
			}
		}
	}
	return grid
}

func openGrid(t *testing.T, w, h int) *terrain.Grid {
	t.Helper()
	grid, err := terrain.NewGrid(w, h, groundOpen)
	require.NoError(t, err)
	return grid
}

func newTestNavigator(t *testing.T, grid *terrain.Grid, opts ...Option) *Navigator {
	t.Helper()
	engine := pathfind.New(physics.DefaultMoveGroups(), testSizes,
		pathfind.NewGetters(grid, physics.NewFootprintCatalog(), nil))
	engine.Initialize(pathfind.InitOptions{Diagnosis: true})

	base := []Option{WithLogger(logging.NewWriterLogger("navigator", io.Discard))}
	return New(engine, append(base, opts...)...)
}

// runUntilIdle крутит тики, пока у юнита есть маршрут
func runUntilIdle(t *testing.T, n *Navigator, index, limit int) []TickReport {
	t.Helper()
	var reports []TickReport
	for i := 0; i < limit; i++ {
		v, ok := n.Agent(index)
		require.True(t, ok)
		if v.Target == nil {
			return reports
		}
		reports = append(reports, n.Tick(context.Background()))
	}
	t.Fatalf("юнит %d не дошёл за %d тиков", index, limit)
	return nil
}

type memorySink struct {
	mu      sync.Mutex
	records []Mutation
}

func (s *memorySink) Append(_ context.Context, m Mutation) error {
	s.mu.Lock()
	s.records = append(s.records, m)
	s.mu.Unlock()
	return nil
}

func (s *memorySink) Records() []Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Mutation(nil), s.records...)
}

func pt(x, y int) vec.Vec2 { return vec.New(x, y) }
