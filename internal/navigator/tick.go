package navigator

import (
	"context"

	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/vec"
)

// TickReport — итог одного тика движения
type TickReport struct {
	Tick      uint64 `json:"tick"`
	Steps     int    `json:"steps"`
	Crossings int    `json:"crossings"`
	Blocked   int    `json:"blocked"`
	Arrived   int    `json:"arrived"`
	Replanned int    `json:"replanned"`
}

// Tick продвигает каждого юнита с маршрутом на одну клетку к следующей
// точке. Юниты обрабатываются по возрастанию индекса. На выходе портала юнит
// переносится сразу. Юнит, простоявший replanAfter тиков, ищет обход с
// учётом других юнитов.
func (n *Navigator) Tick(ctx context.Context) TickReport {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.tick++
	report := TickReport{Tick: n.tick}

	for _, index := range n.sortedAgents() {
		a, ok := n.agents[index]
		if !ok || !a.path.Valid() {
			continue
		}
		n.engine.ClearNextPoint(pathfind.FuncJPSPlus, a.index)

		next, ok := a.path.NextPoint()
		if !ok {
			n.clearPath(a)
			report.Arrived++
			continue
		}

		_, crossing := a.path.Crossing()
		step := next
		if !crossing {
			step = a.pos.Add(vec.New(sign(int(next.X)-int(a.pos.X)), sign(int(next.Y)-int(a.pos.Y))))
		}

		if err := n.moveLocked(ctx, a, step); err != nil {
			n.logger.Debug("Юнит %d ждёт на %s: %v", a.index, a.pos, err)
			a.blocked++
			report.Blocked++
			if a.blocked >= n.replanAfter && n.replan(a) {
				report.Replanned++
			}
		} else {
			a.blocked = 0
			if crossing {
				report.Crossings++
			} else {
				report.Steps++
			}
			if step == next {
				a.path = a.path.Next()
			}
		}

		if next, ok := a.path.NextPoint(); ok {
			n.engine.ReportNextPoint(pathfind.FuncJPSPlus, a.index, next)
		} else {
			n.clearPath(a)
			report.Arrived++
		}
	}

	n.metrics.ObserveTick(report.Steps, report.Crossings)
	return report
}

// replan ищет обход с учётом юнитов своей группы. При неудаче юнит
// продолжает ждать на старом маршруте.
func (n *Navigator) replan(a *agent) bool {
	a.blocked = 0
	if !a.hasTarget {
		return false
	}
	out, _ := n.plan(a, a.target, a.coll, true, "replan")
	if out == nil {
		return false
	}
	a.path.Release()
	a.path = NewPathHandle(out)
	return true
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
