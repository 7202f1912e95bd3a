package pathfind

import "github.com/annel0/rts-pathfind/internal/vec"

// Input — неизменяемый запрос пути
type Input struct {
	Index  int       // Юнит, для которого ищется путь
	Link   int       // Второй юнит, относительно которого идёт поиск (EmptyIndex — нет)
	Flag   uint8     // Метка вызывающего, возвращается в Output.Flag
	Async  bool      // Вызов не из владеющего потока: пулы берутся под блокировкой
	Move   MoveFunc
	Coll   CollSize
	Range  Peek      // Окно поиска; нулевое значение — вся сетка
	Points PointPair // Начало и конец
}

// NewInput собирает запрос в порядке аргументов хоста
func NewInput(index, link int, flag uint8, move MoveFunc, coll CollSize, window Peek, points PointPair) Input {
	return Input{Index: index, Link: link, Flag: flag, Move: move, Coll: coll, Range: window, Points: points}
}

// LongInput — дополнительные параметры длинного пути
type LongInput struct {
	// AvoidMoveables учитывает юнитов той же группы как препятствия
	// (кроме Index и Link). Требует онлайн-прыжков вместо таблиц.
	AvoidMoveables bool
}

// PortalCrossing — пересечение портала: Waypoint указывает на точку выхода в Points
type PortalCrossing struct {
	Index    int `json:"index"`
	Waypoint int `json:"waypoint"`
}

// Output — буфер результата, выделенный из пула вызывающего
type Output struct {
	Points   []vec.Vec2
	Portals  []PortalCrossing
	Expanded int
	Func     Func
	Flag     uint8

	pools    ObjectPoolGetter
	needLock bool
}

// NewOutput берёт буферы результата из пулов
func NewOutput(pools ObjectPoolGetter, needLock bool) *Output {
	return &Output{
		Points:   pools.Points().Alloc(needLock),
		Portals:  pools.Crossings().Alloc(needLock),
		pools:    pools,
		needLock: needLock,
	}
}

// Found сообщает, что маршрут найден
func (o *Output) Found() bool {
	return len(o.Points) > 0
}

// Reset очищает результат, сохраняя буферы
func (o *Output) Reset() {
	o.Points = o.Points[:0]
	o.Portals = o.Portals[:0]
	o.Expanded = 0
	o.Func = FuncJPSPlus
	o.Flag = 0
}

// Release возвращает буферы в пулы. После вызова Output использовать нельзя.
func (o *Output) Release() {
	if o.pools == nil {
		return
	}
	o.pools.Points().Release(o.Points, o.needLock)
	o.pools.Crossings().Release(o.Portals, o.needLock)
	o.Points, o.Portals, o.pools = nil, nil, nil
}

// IsCrossing сообщает, что точка с номером i — выход портала
func (o *Output) IsCrossing(i int) (int, bool) {
	for _, pc := range o.Portals {
		if pc.Waypoint == i {
			return pc.Index, true
		}
	}
	return EmptyIndex, false
}

// PortalIndexes возвращает индексы порталов в порядке прохождения
func PortalIndexes(o *Output) []int {
	ids := make([]int, len(o.Portals))
	for i, pc := range o.Portals {
		ids[i] = pc.Index
	}
	return ids
}
