package navigator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/rts-pathfind/internal/logging"
	"github.com/annel0/rts-pathfind/internal/metrics"
	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/vec"
)

const tracerName = "github.com/annel0/rts-pathfind/internal/navigator"

// defaultReplanAfter — сколько тиков юнит ждёт на занятой клетке до перепланирования
const defaultReplanAfter = 3

type agent struct {
	index     int
	move      pathfind.MoveFunc
	coll      pathfind.CollSize
	pos       vec.Vec2
	path      PathHandle
	target    vec.Vec2
	hasTarget bool
	blocked   int
}

// Navigator — последовательный фронт изменений над одним движком.
// Изменения идут под записью, запросы пути и области — под чтением.
type Navigator struct {
	engine       *pathfind.Component          // Движок поиска
	agents       map[int]*agent               // Юниты по индексу
	terrainEdits map[vec.Vec2]pathfind.Ground // Правки местности для снимка
	nextIndex    int                          // Общий счётчик индексов юнитов, препятствий и порталов
	seq          uint64                       // Номер последней записи журнала
	tick         uint64                       // Текущий тик движения
	replanAfter  int                          // Порог ожидания до перепланирования
	sink         MutationSink                 // Журнал изменений
	metrics      *metrics.Collector           // Метрики (может быть nil)
	diagnosis    *DiagnosisRecorder           // Следующие точки маршрутов
	logger       *logging.Logger              // Логгер компонента
	tracer       trace.Tracer                 // Трассировка запросов
	mapping      *vec.GridMapping             // Пересчёт клеток в мировые координаты
	cache        QueryCache                   // Кеш ответов Query (может быть nil)
	cacheTTL     time.Duration                // Время жизни ответа в кеше
	mu           sync.RWMutex                 // Защищает всё состояние
}

// Option настраивает навигатор
type Option func(*Navigator)

// WithJournal подключает приёмник изменений
func WithJournal(sink MutationSink) Option {
	return func(n *Navigator) { n.sink = sink }
}

// WithMetrics подключает метрики Prometheus
func WithMetrics(m *metrics.Collector) Option {
	return func(n *Navigator) { n.metrics = m }
}

// WithDiagnosis подключает регистратор следующих точек
func WithDiagnosis(d *DiagnosisRecorder) Option {
	return func(n *Navigator) { n.diagnosis = d }
}

// WithLogger заменяет логгер компонента
func WithLogger(l *logging.Logger) Option {
	return func(n *Navigator) { n.logger = l }
}

// WithTracer заменяет трассировщик
func WithTracer(t trace.Tracer) Option {
	return func(n *Navigator) { n.tracer = t }
}

// WithMapping включает мировые координаты в описаниях юнитов
func WithMapping(m vec.GridMapping) Option {
	return func(n *Navigator) { n.mapping = &m }
}

// WithReplanAfter задаёт число тиков ожидания до перепланирования
func WithReplanAfter(ticks int) Option {
	return func(n *Navigator) {
		if ticks > 0 {
			n.replanAfter = ticks
		}
	}
}

// New создаёт навигатор над инициализированным движком
func New(engine *pathfind.Component, opts ...Option) *Navigator {
	n := &Navigator{
		engine:       engine,
		agents:       make(map[int]*agent),
		terrainEdits: make(map[vec.Vec2]pathfind.Ground),
		replanAfter:  defaultReplanAfter,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logging.GetNavigatorLogger()
	}
	if n.tracer == nil {
		n.tracer = otel.Tracer(tracerName)
	}
	if n.diagnosis != nil {
		engine.SetDiagnosis(n.diagnosis)
	}
	return n
}

// Engine возвращает движок (только для чтения вне навигатора)
func (n *Navigator) Engine() *pathfind.Component {
	return n.engine
}

// Diagnosis возвращает регистратор следующих точек (может быть nil)
func (n *Navigator) Diagnosis() *DiagnosisRecorder {
	return n.diagnosis
}

// Run двигает юнитов по тикам до отмены контекста
func (n *Navigator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.Tick(ctx)
		}
	}
}

// Spawn ставит нового юнита и возвращает его индекс
func (n *Navigator) Spawn(ctx context.Context, move pathfind.MoveFunc, coll pathfind.CollSize, p vec.Vec2) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	index := n.nextIndex
	if err := n.spawnLocked(index, move, coll, p); err != nil {
		n.metrics.ObserveMutation(string(OpAgentSpawn), err)
		return pathfind.EmptyIndex, err
	}
	n.record(ctx, Mutation{Op: OpAgentSpawn, Index: index, Move: move, Coll: coll, Point: p})
	return index, nil
}

// SpawnAt ставит юнита с заданным индексом
func (n *Navigator) SpawnAt(ctx context.Context, index int, move pathfind.MoveFunc, coll pathfind.CollSize, p vec.Vec2) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.spawnLocked(index, move, coll, p); err != nil {
		n.metrics.ObserveMutation(string(OpAgentSpawn), err)
		return err
	}
	n.record(ctx, Mutation{Op: OpAgentSpawn, Index: index, Move: move, Coll: coll, Point: p})
	return nil
}

func (n *Navigator) spawnLocked(index int, move pathfind.MoveFunc, coll pathfind.CollSize, p vec.Vec2) error {
	if err := n.checkProfile(move, coll); err != nil {
		return err
	}
	if coll == n.engine.NullCollSize() {
		return fmt.Errorf("%w: agents need a footprint, got null size", ErrUnknownCollSize)
	}
	if err := n.checkIndexFree(index); err != nil {
		return err
	}
	if !n.engine.CanStand(p, move, coll, pathfind.EmptyIndex) {
		return fmt.Errorf("%w: spawn %d at %s", ErrCannotStand, index, p)
	}
	if err := n.engine.SetMoveable(index, move, n.engine.Footprint(p, coll)); err != nil {
		return fmt.Errorf("spawn agent %d: %w", index, err)
	}
	n.agents[index] = &agent{index: index, move: move, coll: coll, pos: p}
	n.reserve(index)
	return nil
}

// Despawn снимает юнита и освобождает его маршрут
func (n *Navigator) Despawn(ctx context.Context, index int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.despawnLocked(index); err != nil {
		n.metrics.ObserveMutation(string(OpAgentDespawn), err)
		return err
	}
	n.record(ctx, Mutation{Op: OpAgentDespawn, Index: index})
	return nil
}

func (n *Navigator) despawnLocked(index int) error {
	a, ok := n.agents[index]
	if !ok {
		return fmt.Errorf("%w: %d", ErrAgentNotFound, index)
	}
	if err := n.engine.ResetMoveable(index, a.move, n.engine.Footprint(a.pos, a.coll)); err != nil {
		return fmt.Errorf("despawn agent %d: %w", index, err)
	}
	n.clearPath(a)
	delete(n.agents, index)
	return nil
}

// Relocate переносит юнита. Проверка и перестановка идут под одной
// блокировкой, поэтому другие запросы не видят юнита отсутствующим.
func (n *Navigator) Relocate(ctx context.Context, index int, p vec.Vec2) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	a, ok := n.agents[index]
	if !ok {
		err := fmt.Errorf("%w: %d", ErrAgentNotFound, index)
		n.metrics.ObserveMutation(string(OpAgentRelocate), err)
		return err
	}
	if err := n.moveLocked(ctx, a, p); err != nil {
		n.metrics.ObserveMutation(string(OpAgentRelocate), err)
		return err
	}
	return nil
}

func (n *Navigator) moveLocked(ctx context.Context, a *agent, p vec.Vec2) error {
	if p == a.pos {
		return nil
	}
	if !n.engine.CanStand(p, a.move, a.coll, a.index) {
		return fmt.Errorf("%w: agent %d to %s", ErrCannotStand, a.index, p)
	}
	if err := n.relocateLocked(a, p); err != nil {
		return err
	}
	n.record(ctx, Mutation{Op: OpAgentRelocate, Index: a.index, Point: p})
	return nil
}

func (n *Navigator) relocateLocked(a *agent, p vec.Vec2) error {
	if err := n.engine.ResetMoveable(a.index, a.move, n.engine.Footprint(a.pos, a.coll)); err != nil {
		return fmt.Errorf("relocate agent %d: %w", a.index, err)
	}
	if err := n.engine.SetMoveable(a.index, a.move, n.engine.Footprint(p, a.coll)); err != nil {
		// Возвращаем юнита на место: старые клетки только что освобождены
		if restoreErr := n.engine.SetMoveable(a.index, a.move, n.engine.Footprint(a.pos, a.coll)); restoreErr != nil {
			n.logger.Error("Юнит %d потерян при переносе: %v", a.index, restoreErr)
			delete(n.agents, a.index)
		}
		return fmt.Errorf("relocate agent %d: %w", a.index, err)
	}
	a.pos = p
	return nil
}

// AddObstacle ставит препятствие по клеткам и возвращает его индекс
func (n *Navigator) AddObstacle(ctx context.Context, cells pathfind.ObstacleCells) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	index := n.nextIndex
	if err := n.addObstacleLocked(index, cells); err != nil {
		n.metrics.ObserveMutation(string(OpObstacleSet), err)
		return pathfind.EmptyIndex, err
	}
	n.record(ctx, Mutation{Op: OpObstacleSet, Index: index, Cells: CellsFromObstacle(cells)})
	return index, nil
}

// AddObstacleRect ставит прямоугольное препятствие с одинаковыми битами
func (n *Navigator) AddObstacleRect(ctx context.Context, r pathfind.Peek, bits pathfind.Ground) (int, error) {
	return n.AddObstacle(ctx, RectCells(r, bits))
}

// AddObstacleAt ставит препятствие с заданным индексом
func (n *Navigator) AddObstacleAt(ctx context.Context, index int, cells pathfind.ObstacleCells) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.addObstacleLocked(index, cells); err != nil {
		n.metrics.ObserveMutation(string(OpObstacleSet), err)
		return err
	}
	n.record(ctx, Mutation{Op: OpObstacleSet, Index: index, Cells: CellsFromObstacle(cells)})
	return nil
}

func (n *Navigator) addObstacleLocked(index int, cells pathfind.ObstacleCells) error {
	if len(cells) == 0 {
		return ErrEmptyObstacle
	}
	if err := n.checkIndexFree(index); err != nil {
		return err
	}
	bounds := n.engine.Bounds()
	for p := range cells {
		if !bounds.Contains(p) {
			return fmt.Errorf("%w: obstacle %d at %s", pathfind.ErrOutOfBounds, index, p)
		}
		if !n.engine.CanStandRange(pathfind.NewPeek(int(p.X), int(p.Y), int(p.X), int(p.Y))) {
			return fmt.Errorf("%w: obstacle %d at %s", ErrAreaOccupied, index, p)
		}
	}
	if err := n.engine.SetObstacle(index, cells); err != nil {
		return fmt.Errorf("add obstacle %d: %w", index, err)
	}
	n.reserve(index)
	return nil
}

// RemoveObstacle снимает препятствие
func (n *Navigator) RemoveObstacle(ctx context.Context, index int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.removeObstacleLocked(index); err != nil {
		n.metrics.ObserveMutation(string(OpObstacleReset), err)
		return err
	}
	n.record(ctx, Mutation{Op: OpObstacleReset, Index: index})
	return nil
}

func (n *Navigator) removeObstacleLocked(index int) error {
	cells, ok := n.engine.Obstacle(index)
	if !ok {
		return fmt.Errorf("%w: %d", pathfind.ErrObstacleNotFound, index)
	}
	if err := n.engine.ResetObstacle(index, cells); err != nil {
		return fmt.Errorf("remove obstacle %d: %w", index, err)
	}
	return nil
}

// AddPortal регистрирует направленный портал и возвращает его индекс
func (n *Navigator) AddPortal(ctx context.Context, points pathfind.PointPair) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	index := n.nextIndex
	if err := n.addPortalLocked(index, points); err != nil {
		n.metrics.ObserveMutation(string(OpPortalAdd), err)
		return pathfind.EmptyIndex, err
	}
	n.record(ctx, Mutation{Op: OpPortalAdd, Index: index, Portal: &points})
	return index, nil
}

// AddPortalAt регистрирует портал с заданным индексом
func (n *Navigator) AddPortalAt(ctx context.Context, index int, points pathfind.PointPair) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.addPortalLocked(index, points); err != nil {
		n.metrics.ObserveMutation(string(OpPortalAdd), err)
		return err
	}
	n.record(ctx, Mutation{Op: OpPortalAdd, Index: index, Portal: &points})
	return nil
}

func (n *Navigator) addPortalLocked(index int, points pathfind.PointPair) error {
	if err := n.checkIndexFree(index); err != nil {
		return err
	}
	if err := n.engine.AddPortal(index, points); err != nil {
		return fmt.Errorf("add portal %d: %w", index, err)
	}
	n.reserve(index)
	return nil
}

// RemovePortal удаляет портал
func (n *Navigator) RemovePortal(ctx context.Context, index int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.engine.RemovePortal(index); err != nil {
		err = fmt.Errorf("remove portal %d: %w", index, err)
		n.metrics.ObserveMutation(string(OpPortalRemove), err)
		return err
	}
	n.record(ctx, Mutation{Op: OpPortalRemove, Index: index})
	return nil
}

// SetTerrain меняет базовую маску клетки
func (n *Navigator) SetTerrain(ctx context.Context, p vec.Vec2, ground pathfind.Ground) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.setTerrainLocked(p, ground); err != nil {
		n.metrics.ObserveMutation(string(OpTerrainSet), err)
		return err
	}
	n.record(ctx, Mutation{Op: OpTerrainSet, Point: p, Ground: ground})
	return nil
}

// setTerrainLocked: после правки каждый юнит на клетке должен по-прежнему
// проходить CanStand, иначе правка откатывается.
func (n *Navigator) setTerrainLocked(p vec.Vec2, ground pathfind.Ground) error {
	x, y := int(p.X), int(p.Y)
	prev := n.engine.BaseGround(x, y)
	if err := n.engine.SetTerrain(x, y, ground); err != nil {
		return fmt.Errorf("set terrain: %w", err)
	}
	for _, index := range n.sortedAgents() {
		a := n.agents[index]
		if !n.engine.Footprint(a.pos, a.coll).Contains(p) {
			continue
		}
		if !n.engine.CanStand(a.pos, a.move, a.coll, a.index) {
			if err := n.engine.SetTerrain(x, y, prev); err != nil {
				return fmt.Errorf("restore terrain: %w", err)
			}
			return fmt.Errorf("%w: terrain at %s under agent %d", ErrAreaOccupied, p, a.index)
		}
	}
	n.terrainEdits[p] = ground
	return nil
}

// checkIndexFree проверяет, что индекс не занят ни юнитом, ни препятствием,
// ни порталом: у всех трёх реестров одно пространство индексов.
func (n *Navigator) checkIndexFree(index int) error {
	if _, ok := n.agents[index]; ok {
		return fmt.Errorf("%w: %d (%w)", ErrIndexInUse, index, pathfind.ErrMoveableExists)
	}
	if _, ok := n.engine.Obstacle(index); ok {
		return fmt.Errorf("%w: %d (%w)", ErrIndexInUse, index, pathfind.ErrObstacleExists)
	}
	if _, ok := n.engine.Portal(index); ok {
		return fmt.Errorf("%w: %d (%w)", ErrIndexInUse, index, pathfind.ErrPortalExists)
	}
	return nil
}

// reserve сдвигает счётчик индексов за использованный индекс
func (n *Navigator) reserve(index int) {
	if index >= n.nextIndex {
		n.nextIndex = index + 1
	}
}

func (n *Navigator) checkProfile(move pathfind.MoveFunc, coll pathfind.CollSize) error {
	if !n.engine.HasMoveType(move) {
		return fmt.Errorf("%w: %d", ErrUnknownMoveType, move)
	}
	if !n.engine.HasCollSize(coll) {
		return fmt.Errorf("%w: %d", ErrUnknownCollSize, coll)
	}
	return nil
}

// record нумерует изменение, обновляет метрики и передаёт его в журнал.
// Ошибка журнала не откатывает уже применённое изменение.
func (n *Navigator) record(ctx context.Context, m Mutation) {
	n.seq++
	m.Seq = n.seq
	m.At = time.Now().UTC()

	n.metrics.ObserveMutation(string(m.Op), nil)
	n.updateCounts()
	logging.LogMutation(n.logger, string(m.Op), m.Index, m.Point.String())

	if n.sink == nil {
		return
	}
	if err := n.sink.Append(ctx, m); err != nil {
		n.logger.Warn("Журнал не принял запись %d (%s): %v", m.Seq, m.Op, err)
	}
}

func (n *Navigator) updateCounts() {
	stats := n.engine.Stats()
	n.metrics.SetCounts(len(n.agents), stats.Obstacles, stats.Portals)
}

// AgentView — описание юнита для внешних потребителей
type AgentView struct {
	Index     int               `json:"index"`
	Move      pathfind.MoveFunc `json:"move"`
	Coll      pathfind.CollSize `json:"coll"`
	Position  vec.Vec2          `json:"position"`
	World     *vec.Vec2Fixed    `json:"world,omitempty"`
	Footprint pathfind.Peek     `json:"footprint"`
	Target    *vec.Vec2         `json:"target,omitempty"`
	Waypoints []vec.Vec2        `json:"waypoints,omitempty"`
	Blocked   int               `json:"blocked,omitempty"`
}

// Agent возвращает описание юнита
func (n *Navigator) Agent(index int) (AgentView, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	a, ok := n.agents[index]
	if !ok {
		return AgentView{}, false
	}
	return n.viewOf(a), true
}

// Agents возвращает всех юнитов по возрастанию индекса
func (n *Navigator) Agents() []AgentView {
	n.mu.RLock()
	defer n.mu.RUnlock()

	views := make([]AgentView, 0, len(n.agents))
	for _, index := range n.sortedAgents() {
		views = append(views, n.viewOf(n.agents[index]))
	}
	return views
}

func (n *Navigator) viewOf(a *agent) AgentView {
	v := AgentView{
		Index:     a.index,
		Move:      a.move,
		Coll:      a.coll,
		Position:  a.pos,
		Footprint: n.engine.Footprint(a.pos, a.coll),
		Waypoints: a.path.Remaining(),
		Blocked:   a.blocked,
	}
	if a.hasTarget {
		target := a.target
		v.Target = &target
	}
	if n.mapping != nil {
		world := n.mapping.PointToPosition(a.pos)
		v.World = &world
	}
	return v
}

func (n *Navigator) sortedAgents() []int {
	ids := make([]int, 0, len(n.agents))
	for id := range n.agents {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Status — сводка навигатора
type Status struct {
	Engine pathfind.Stats `json:"engine"`
	Agents int            `json:"agents"`
	Seq    uint64         `json:"seq"`
	Tick   uint64         `json:"tick"`
}

// Status возвращает сводку
func (n *Navigator) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return Status{Engine: n.engine.Stats(), Agents: len(n.agents), Seq: n.seq, Tick: n.tick}
}
