package navigator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/vec"
)

// PathQuery — запрос пути без привязки к юниту навигатора.
// Index и Link исключаются из занятости при Avoid.
type PathQuery struct {
	Index  int               `json:"index"`
	Link   int               `json:"link"`
	Move   pathfind.MoveFunc `json:"move"`
	Coll   pathfind.CollSize `json:"coll"`
	Start  vec.Vec2          `json:"start"`
	End    vec.Vec2          `json:"end"`
	Window pathfind.Peek     `json:"window"`
	Avoid  bool              `json:"avoid"`
}

// PathResult — копия результата поиска, не связанная с пулами
type PathResult struct {
	Found    bool                      `json:"found"`
	Points   []vec.Vec2                `json:"points"`
	Portals  []pathfind.PortalCrossing `json:"portals,omitempty"`
	Expanded int                       `json:"expanded"`
	Func     string                    `json:"func"`
	Cost     int                       `json:"cost"`
}

// pathCost — стоимость маршрута: 10 за прямой шаг, 14 за диагональный, переход портала бесплатен
func pathCost(start vec.Vec2, out *pathfind.Output) int {
	cost := 0
	prev := start
	for i, p := range out.Points {
		if _, crossing := out.IsCrossing(i); !crossing {
			cost += prev.Octile(p)
		}
		prev = p
	}
	return cost
}

func resultOf(start vec.Vec2, out *pathfind.Output) PathResult {
	res := PathResult{
		Found:    out.Found(),
		Expanded: out.Expanded,
		Func:     out.Func.String(),
	}
	if res.Found {
		res.Points = append([]vec.Vec2(nil), out.Points...)
		res.Portals = append([]pathfind.PortalCrossing(nil), out.Portals...)
		res.Cost = pathCost(start, out)
	}
	return res
}

// Query ищет путь по произвольному запросу
func (n *Navigator) Query(ctx context.Context, q PathQuery) (PathResult, error) {
	ctx, span := n.tracer.Start(ctx, "navigator.Query", trace.WithAttributes(
		attribute.Int("move", int(q.Move)),
		attribute.Int("coll", int(q.Coll)),
		attribute.Bool("avoid", q.Avoid),
	))
	defer span.End()

	if n.cache != nil {
		n.mu.RLock()
		key := queryKey(n.seq, q)
		n.mu.RUnlock()
		if res, ok := n.cachedQuery(ctx, key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			annotate(span, res)
			return res, nil
		}
	}

	n.mu.RLock()
	if err := n.checkProfile(q.Move, q.Coll); err != nil {
		n.mu.RUnlock()
		span.SetStatus(codes.Error, err.Error())
		return PathResult{}, err
	}
	in := pathfind.NewInput(q.Index, q.Link, 0, q.Move, q.Coll, q.Window, pathfind.PointPair{Start: q.Start, End: q.End})
	in.Async = true
	res := n.search(&in, q.Avoid, "path")
	seq := n.seq
	n.mu.RUnlock()

	if n.cache != nil {
		n.storeQuery(ctx, queryKey(seq, q), res)
	}
	annotate(span, res)
	return res, nil
}

// FindPath ищет путь юнита из его позиции, не меняя его маршрут
func (n *Navigator) FindPath(ctx context.Context, index int, end vec.Vec2, avoid bool) (PathResult, error) {
	_, span := n.tracer.Start(ctx, "navigator.FindPath", trace.WithAttributes(
		attribute.Int("agent", index),
		attribute.Bool("avoid", avoid),
	))
	defer span.End()

	n.mu.RLock()
	defer n.mu.RUnlock()

	a, ok := n.agents[index]
	if !ok {
		err := fmt.Errorf("%w: %d", ErrAgentNotFound, index)
		span.SetStatus(codes.Error, err.Error())
		return PathResult{}, err
	}
	in := n.agentInput(a, end, a.coll)
	in.Async = true
	res := n.search(&in, avoid, "path")
	annotate(span, res)
	return res, nil
}

// search выполняет запрос и копирует результат; буфер возвращается в пул
func (n *Navigator) search(in *pathfind.Input, avoid bool, kind string) PathResult {
	started := time.Now()
	out := pathfind.NewOutput(n.engine.Pools(), in.Async)
	defer out.Release()

	n.engine.GetLongPath(in, pathfind.LongInput{AvoidMoveables: avoid}, out)
	res := resultOf(in.Points.Start, out)
	n.metrics.ObserveQuery(kind, res.Found, time.Since(started), res.Expanded)
	return res
}

func (n *Navigator) agentInput(a *agent, end vec.Vec2, coll pathfind.CollSize) pathfind.Input {
	return pathfind.NewInput(a.index, pathfind.EmptyIndex, 0, a.move, coll, n.engine.Bounds(),
		pathfind.PointPair{Start: a.pos, End: end})
}

// Order прокладывает маршрут юнита и сохраняет его для движения по тикам.
// Недостижимая цель не ошибка: маршрут юнита сбрасывается.
func (n *Navigator) Order(ctx context.Context, index int, end vec.Vec2, avoid bool) (PathResult, error) {
	_, span := n.tracer.Start(ctx, "navigator.Order", trace.WithAttributes(
		attribute.Int("agent", index),
		attribute.Bool("avoid", avoid),
	))
	defer span.End()

	n.mu.Lock()
	defer n.mu.Unlock()

	a, ok := n.agents[index]
	if !ok {
		err := fmt.Errorf("%w: %d", ErrAgentNotFound, index)
		span.SetStatus(codes.Error, err.Error())
		return PathResult{}, err
	}
	res := n.orderLocked(a, end, a.coll, avoid, "order")
	annotate(span, res)
	return res, nil
}

func (n *Navigator) orderLocked(a *agent, end vec.Vec2, coll pathfind.CollSize, avoid bool, kind string) PathResult {
	n.clearPath(a)

	if !n.engine.CheckArea(a.pos, end, a.move, coll) {
		n.metrics.ObserveQuery(kind, false, 0, 0)
		return PathResult{Func: pathfind.FuncArea.String()}
	}

	out, res := n.plan(a, end, coll, avoid, kind)
	if out == nil {
		return res
	}
	a.path = NewPathHandle(out)
	a.target = end
	a.hasTarget = true
	if next, ok := a.path.NextPoint(); ok {
		n.engine.ReportNextPoint(out.Func, a.index, next)
	}
	return res
}

// plan ищет маршрут юнита под блокировкой записи. Найденный буфер
// переходит вызывающему, иначе возвращается в пул.
func (n *Navigator) plan(a *agent, end vec.Vec2, coll pathfind.CollSize, avoid bool, kind string) (*pathfind.Output, PathResult) {
	started := time.Now()
	in := n.agentInput(a, end, coll)
	out := pathfind.NewOutput(n.engine.Pools(), false)
	n.engine.GetLongPath(&in, pathfind.LongInput{AvoidMoveables: avoid}, out)
	res := resultOf(a.pos, out)
	n.metrics.ObserveQuery(kind, res.Found, time.Since(started), res.Expanded)

	if !res.Found {
		out.Release()
		return nil, res
	}
	return out, res
}

// MemberRoute — маршрут одного юнита группы
type MemberRoute struct {
	Index int               `json:"index"`
	Coll  pathfind.CollSize `json:"coll"`
	PathResult
}

// GroupResult — итог группового приказа
type GroupResult struct {
	Coll    pathfind.CollSize `json:"coll"`
	Members []MemberRoute     `json:"members"`
}

// OrderGroup ведёт группу юнитов одного типа к общей цели. Маршруты строятся
// по наибольшему размеру группы, чтобы группа шла одним коридором; юнит,
// которому этот размер не помещается на старте, идёт по своему размеру.
func (n *Navigator) OrderGroup(ctx context.Context, indexes []int, end vec.Vec2) (GroupResult, error) {
	_, span := n.tracer.Start(ctx, "navigator.OrderGroup", trace.WithAttributes(
		attribute.Int("members", len(indexes)),
	))
	defer span.End()

	n.mu.Lock()
	defer n.mu.Unlock()

	members, err := n.groupMembers(indexes)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return GroupResult{}, err
	}

	sizes := make([]pathfind.CollSize, len(members))
	for i, a := range members {
		sizes[i] = a.coll
	}
	result := GroupResult{Coll: n.engine.LargestCollSize(sizes)}

	found := 0
	for _, a := range members {
		coll := result.Coll
		if !n.engine.CheckArea(a.pos, end, a.move, coll) {
			coll = a.coll
		}
		res := n.orderLocked(a, end, coll, false, "group")
		if res.Found {
			found++
		}
		result.Members = append(result.Members, MemberRoute{Index: a.index, Coll: coll, PathResult: res})
	}
	span.SetAttributes(attribute.Int("found", found))
	return result, nil
}

func (n *Navigator) groupMembers(indexes []int) ([]*agent, error) {
	if len(indexes) == 0 {
		return nil, ErrEmptyGroup
	}
	ids := append([]int(nil), indexes...)
	sort.Ints(ids)

	members := make([]*agent, 0, len(ids))
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		a, ok := n.agents[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrAgentNotFound, id)
		}
		if len(members) > 0 && members[0].move != a.move {
			return nil, fmt.Errorf("%w: %d and %d", ErrMixedGroup, members[0].index, id)
		}
		members = append(members, a)
	}
	return members, nil
}

// CheckArea проверяет достижимость без построения маршрута
func (n *Navigator) CheckArea(ctx context.Context, start, end vec.Vec2, move pathfind.MoveFunc, coll pathfind.CollSize) (bool, error) {
	_, span := n.tracer.Start(ctx, "navigator.CheckArea")
	defer span.End()

	n.mu.RLock()
	defer n.mu.RUnlock()

	if err := n.checkProfile(move, coll); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	started := time.Now()
	ok := n.engine.CheckAreaAsync(start, end, move, coll)
	n.metrics.ObserveQuery("area", ok, time.Since(started), 0)
	span.SetAttributes(attribute.Bool("reachable", ok))
	return ok, nil
}

// CanStand проверяет, может ли юнит стоять в точке (exclude — свой индекс)
func (n *Navigator) CanStand(p vec.Vec2, move pathfind.MoveFunc, coll pathfind.CollSize, exclude int) (bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if err := n.checkProfile(move, coll); err != nil {
		return false, err
	}
	return n.engine.CanStand(p, move, coll, exclude), nil
}

func (n *Navigator) clearPath(a *agent) {
	a.path.Release()
	a.path = PathHandle{}
	a.hasTarget = false
	a.blocked = 0
	n.engine.ClearNextPoint(pathfind.FuncJPSPlus, a.index)
}

func annotate(span trace.Span, res PathResult) {
	span.SetAttributes(
		attribute.Bool("found", res.Found),
		attribute.Int("expanded", res.Expanded),
		attribute.Int("points", len(res.Points)),
	)
}
