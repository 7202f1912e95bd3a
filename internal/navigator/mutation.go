package navigator

import (
	"context"
	"sort"
	"time"

	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/vec"
)

// Op — вид изменения состояния навигатора
type Op string

const (
	OpAgentSpawn    Op = "agent.spawn"
	OpAgentDespawn  Op = "agent.despawn"
	OpAgentRelocate Op = "agent.relocate"
	OpObstacleSet   Op = "obstacle.set"
	OpObstacleReset Op = "obstacle.reset"
	OpPortalAdd     Op = "portal.add"
	OpPortalRemove  Op = "portal.remove"
	OpTerrainSet    Op = "terrain.set"
)

// ObstacleCell — одна клетка препятствия в сериализуемом виде
type ObstacleCell struct {
	Point vec.Vec2        `json:"point"`
	Bits  pathfind.Ground `json:"bits"`
}

// Mutation — одна запись журнала. Повтор записей по порядку Seq
// восстанавливает состояние движка.
type Mutation struct {
	Seq    uint64              `json:"seq"`
	Op     Op                  `json:"op"`
	Index  int                 `json:"index"`
	Move   pathfind.MoveFunc   `json:"move,omitempty"`
	Coll   pathfind.CollSize   `json:"coll,omitempty"`
	Point  vec.Vec2            `json:"point"`
	Cells  []ObstacleCell      `json:"cells,omitempty"`
	Portal *pathfind.PointPair `json:"portal,omitempty"`
	Ground pathfind.Ground     `json:"ground,omitempty"`
	At     time.Time           `json:"at"`
}

// MutationSink получает каждое успешно применённое изменение
type MutationSink interface {
	Append(ctx context.Context, m Mutation) error
}

// CellsFromObstacle переводит карту клеток в список, упорядоченный по (y, x)
func CellsFromObstacle(cells pathfind.ObstacleCells) []ObstacleCell {
	list := make([]ObstacleCell, 0, len(cells))
	for p, bits := range cells {
		list = append(list, ObstacleCell{Point: p, Bits: bits})
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].Point, list[j].Point
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return list
}

// ObstacleFromCells — обратное преобразование
func ObstacleFromCells(list []ObstacleCell) pathfind.ObstacleCells {
	cells := make(pathfind.ObstacleCells, len(list))
	for _, c := range list {
		cells[c.Point] = c.Bits
	}
	return cells
}

// RectCells заполняет прямоугольник одинаковыми битами
func RectCells(r pathfind.Peek, bits pathfind.Ground) pathfind.ObstacleCells {
	cells := make(pathfind.ObstacleCells, r.Area())
	for y := int(r.Min.Y); y <= int(r.Max.Y); y++ {
		for x := int(r.Min.X); x <= int(r.Max.X); x++ {
			cells[vec.New(x, y)] = bits
		}
	}
	return cells
}
