package navigator

import (
	"context"
	"fmt"
	"sort"

	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/vec"
)

// State — сжатое состояние: минимальный набор изменений, воспроизводящий
// текущий реестр, и номер последней записи журнала, вошедшей в него.
type State struct {
	Seq       uint64     `json:"seq"`
	NextIndex int        `json:"next_index"`
	Mutations []Mutation `json:"mutations"`
}

// Snapshot собирает сжатое состояние: правки местности, препятствия,
// порталы, юниты в их текущих позициях. Маршруты в снимок не входят.
func (n *Navigator) Snapshot() State {
	n.mu.RLock()
	defer n.mu.RUnlock()

	state := State{Seq: n.seq, NextIndex: n.nextIndex}

	edits := make([]vec.Vec2, 0, len(n.terrainEdits))
	for p := range n.terrainEdits {
		edits = append(edits, p)
	}
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].Y != edits[j].Y {
			return edits[i].Y < edits[j].Y
		}
		return edits[i].X < edits[j].X
	})
	for _, p := range edits {
		state.Mutations = append(state.Mutations, Mutation{Op: OpTerrainSet, Point: p, Ground: n.terrainEdits[p]})
	}

	for _, index := range n.engine.ObstacleIndexes() {
		cells, _ := n.engine.Obstacle(index)
		state.Mutations = append(state.Mutations, Mutation{Op: OpObstacleSet, Index: index, Cells: CellsFromObstacle(cells)})
	}
	for _, portal := range n.engine.Portals() {
		points := portal.Points
		state.Mutations = append(state.Mutations, Mutation{Op: OpPortalAdd, Index: portal.Index, Portal: &points})
	}
	for _, index := range n.sortedAgents() {
		a := n.agents[index]
		state.Mutations = append(state.Mutations, Mutation{Op: OpAgentSpawn, Index: index, Move: a.move, Coll: a.coll, Point: a.pos})
	}
	return state
}

// Restore применяет снимок к пустому навигатору без записи в журнал
func (n *Navigator) Restore(ctx context.Context, state State) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, m := range state.Mutations {
		if err := n.applyLocked(m); err != nil {
			return fmt.Errorf("restore mutation %d (%s): %w", i, m.Op, err)
		}
	}
	if state.Seq > n.seq {
		n.seq = state.Seq
	}
	n.reserve(state.NextIndex - 1)
	n.updateCounts()
	return nil
}

// Replay применяет записи журнала по порядку без повторной записи.
// Записи с номером не больше текущего пропускаются.
func (n *Navigator) Replay(ctx context.Context, records []Mutation) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	applied := 0
	for _, m := range records {
		if m.Seq != 0 && m.Seq <= n.seq {
			continue
		}
		if err := n.applyLocked(m); err != nil {
			return applied, fmt.Errorf("replay seq %d (%s): %w", m.Seq, m.Op, err)
		}
		if m.Seq > n.seq {
			n.seq = m.Seq
		}
		applied++
	}
	n.updateCounts()
	return applied, nil
}

// Apply применяет одну запись (реплика, получающая поток изменений)
func (n *Navigator) Apply(ctx context.Context, m Mutation) error {
	_, err := n.Replay(ctx, []Mutation{m})
	return err
}

func (n *Navigator) applyLocked(m Mutation) error {
	switch m.Op {
	case OpAgentSpawn:
		return n.spawnLocked(m.Index, m.Move, m.Coll, m.Point)
	case OpAgentDespawn:
		return n.despawnLocked(m.Index)
	case OpAgentRelocate:
		a, ok := n.agents[m.Index]
		if !ok {
			return fmt.Errorf("%w: %d", ErrAgentNotFound, m.Index)
		}
		if a.pos == m.Point {
			return nil
		}
		return n.relocateLocked(a, m.Point)
	case OpObstacleSet:
		return n.addObstacleLocked(m.Index, ObstacleFromCells(m.Cells))
	case OpObstacleReset:
		return n.removeObstacleLocked(m.Index)
	case OpPortalAdd:
		if m.Portal == nil {
			return fmt.Errorf("%w: portal %d without points", ErrUnknownOperation, m.Index)
		}
		return n.addPortalLocked(m.Index, *m.Portal)
	case OpPortalRemove:
		return n.engine.RemovePortal(m.Index)
	case OpTerrainSet:
		return n.setTerrainLocked(m.Point, m.Ground)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, m.Op)
	}
}

// Portals возвращает зарегистрированные порталы
func (n *Navigator) Portals() []pathfind.Portal {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.engine.Portals()
}

// Obstacles возвращает клетки препятствий по индексу
func (n *Navigator) Obstacles() map[int][]ObstacleCell {
	n.mu.RLock()
	defer n.mu.RUnlock()

	result := make(map[int][]ObstacleCell)
	for _, index := range n.engine.ObstacleIndexes() {
		cells, _ := n.engine.Obstacle(index)
		result[index] = CellsFromObstacle(cells)
	}
	return result
}
