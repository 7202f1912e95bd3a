package pathfind

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/annel0/rts-pathfind/internal/logging"
	"github.com/annel0/rts-pathfind/internal/vec"
)

// maxGridSide ограничение стороны сетки: координаты хранятся в int16
const maxGridSide = math.MaxInt16

// InitOptions управляет прогревом кэшей и диагностикой
type InitOptions struct {
	Clearance  bool // Построить профили проходимости для всех (move, coll)
	Areas      bool // Разметить связные области
	JumpTables bool // Построить таблицы прыжков JPS+
	Diagnosis  bool // Пересылать следующие точки маршрутов в Diagnosis
}

// Stats снимок состояния движка
type Stats struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Moveables int    `json:"moveables"`
	Obstacles int    `json:"obstacles"`
	Portals   int    `json:"portals"`
	Version   uint64 `json:"version"`
	Profiles  int    `json:"profiles"`
	Rebuilds  uint64 `json:"rebuilds"`
}

type moveable struct {
	move      MoveFunc
	group     int8
	footprint Peek
}

type obstacle struct {
	cells []obstacleCell
}

type obstacleCell struct {
	cell int32
	bits Ground
}

// Portal направленный переход нулевой стоимости
type Portal struct {
	Index  int       `json:"index"`
	Points PointPair `json:"points"`
}

// Component — движок поиска пути на одной сетке.
//
// Мутации (реестр, местность) выполняются одним владельцем и не пересекаются
// с запросами. Запросы могут выполняться параллельно друг с другом:
// кэш профилей защищён cacheMu, а сами профили неизменяемы после публикации.
type Component struct {
	terrain   TerrainGetter
	collision CollisionGetter
	pools     ObjectPoolGetter
	logger    *logging.Logger

	diagnosis        Diagnosis
	diagnosisEnabled bool

	width  int
	height int

	groups    [][]MoveFunc
	groupOf   [256]int8
	moveTypes []MoveFunc
	collSizes []CollSize
	collPeeks map[CollSize]Peek
	nullSize  CollSize
	maxSize   CollSize

	occupants [][]int32
	moveables map[int]moveable
	blocked   []Ground
	bitRefs   map[int32]*[8]uint16
	obstacles map[int]obstacle
	portals   map[int]Portal
	portalIDs []int

	version  uint64
	cacheMu  sync.Mutex
	profiles map[profileKey]*profile
	rebuilds atomic.Uint64
}

// New создаёт движок. Группы передвижения задают, кто кого блокирует:
// юниты одной группы не могут перекрываться. Некорректная конфигурация
// (пустые группы, повтор типа, неизвестный размер) — ошибка программиста и
// приводит к панике.
func New(moveGroups [][]MoveFunc, collSizes []CollSize, getters Getters) *Component {
	if getters.Terrain == nil || getters.Collision == nil {
		panic("pathfind: terrain and collision getters are required")
	}
	if getters.Pool == nil {
		getters.Pool = NewObjectPoolGetter()
	}

	w, h := getters.Terrain.Width(), getters.Terrain.Height()
	if w <= 0 || h <= 0 || w > maxGridSide || h > maxGridSide {
		panic(fmt.Errorf("%w: %dx%d", ErrInvalidGround, w, h))
	}
	if len(moveGroups) == 0 || len(moveGroups) > math.MaxInt8 {
		panic(ErrInvalidMoveGroups)
	}
	if len(collSizes) == 0 {
		panic(ErrInvalidCollSizes)
	}

	c := &Component{
		terrain:   getters.Terrain,
		collision: getters.Collision,
		pools:     getters.Pool,
		logger:    logging.GetPathfindLogger(),
		width:     w,
		height:    h,
		collPeeks: make(map[CollSize]Peek, len(collSizes)),
		moveables: make(map[int]moveable),
		blocked:   make([]Ground, w*h),
		bitRefs:   make(map[int32]*[8]uint16),
		obstacles: make(map[int]obstacle),
		portals:   make(map[int]Portal),
		profiles:  make(map[profileKey]*profile),
	}

	for i := range c.groupOf {
		c.groupOf[i] = -1
	}
	for g, group := range moveGroups {
		if len(group) == 0 {
			panic(fmt.Errorf("%w: group %d is empty", ErrInvalidMoveGroups, g))
		}
		for _, move := range group {
			if move == 0 || c.groupOf[move] >= 0 {
				panic(fmt.Errorf("%w: move type %d", ErrInvalidMoveGroups, move))
			}
			c.groupOf[move] = int8(g)
			c.moveTypes = append(c.moveTypes, move)
		}
		c.groups = append(c.groups, append([]MoveFunc(nil), group...))
	}

	c.nullSize = c.collision.GetNull()
	for _, size := range collSizes {
		if size == c.nullSize {
			panic(fmt.Errorf("%w: null size %d in list", ErrInvalidCollSizes, size))
		}
		if _, dup := c.collPeeks[size]; dup {
			panic(fmt.Errorf("%w: duplicate size %d", ErrInvalidCollSizes, size))
		}
		c.collPeeks[size] = c.collision.Get(size)
		c.collSizes = append(c.collSizes, size)
	}
	c.maxSize = c.collision.GetMax(c.collSizes)

	c.occupants = make([][]int32, len(c.groups))
	for g := range c.occupants {
		cells := make([]int32, w*h)
		for i := range cells {
			cells[i] = EmptyIndex
		}
		c.occupants[g] = cells
	}

	c.logger.Info("Движок поиска пути создан: %dx%d, групп %d, размеров %d", w, h, len(c.groups), len(c.collSizes))
	return c
}

// Initialize прогревает кэши и включает диагностику
func (c *Component) Initialize(opts InitOptions) {
	c.diagnosisEnabled = opts.Diagnosis

	if !opts.Clearance && !opts.Areas && !opts.JumpTables {
		return
	}
	sizes := append([]CollSize{c.nullSize}, c.collSizes...)
	for _, move := range c.moveTypes {
		for _, size := range sizes {
			p := c.profileFor(move, size)
			if opts.Areas {
				p.ensureLabels()
			}
			if opts.JumpTables {
				p.ensureJumps()
			}
		}
	}
	c.logger.Info("Кэши прогреты: типов %d, размеров %d, области=%v, таблицы=%v",
		len(c.moveTypes), len(sizes), opts.Areas, opts.JumpTables)
}

// GetSize возвращает размер сетки
func (c *Component) GetSize() vec.Vec2 {
	return vec.New(c.width, c.height)
}

// Bounds возвращает прямоугольник всей сетки
func (c *Component) Bounds() Peek {
	return PeekFromSize(c.GetSize())
}

// MaxCollSize наибольший зарегистрированный размер коллизии
func (c *Component) MaxCollSize() CollSize {
	return c.maxSize
}

// NullCollSize нулевой размер коллизии (одна клетка, без учёта юнитов)
func (c *Component) NullCollSize() CollSize {
	return c.nullSize
}

// LargestCollSize выбирает наибольший размер через CollisionGetter.GetMax
func (c *Component) LargestCollSize(sizes []CollSize) CollSize {
	return c.collision.GetMax(sizes)
}

// HasMoveType сообщает, зарегистрирован ли способ передвижения
func (c *Component) HasMoveType(move MoveFunc) bool {
	return c.groupOf[move] >= 0
}

// HasCollSize сообщает, известен ли размер (включая нулевой)
func (c *Component) HasCollSize(coll CollSize) bool {
	if coll == c.nullSize {
		return true
	}
	_, ok := c.collPeeks[coll]
	return ok
}

// Pools возвращает пулы, переданные при создании
func (c *Component) Pools() ObjectPoolGetter {
	return c.pools
}

// CollSizes зарегистрированные размеры коллизии
func (c *Component) CollSizes() []CollSize {
	return append([]CollSize(nil), c.collSizes...)
}

// MoveTypes зарегистрированные способы передвижения
func (c *Component) MoveTypes() []MoveFunc {
	return append([]MoveFunc(nil), c.moveTypes...)
}

// Footprint возвращает прямоугольник, занимаемый юнитом размера size в точке p
func (c *Component) Footprint(p vec.Vec2, size CollSize) Peek {
	return c.peekOf(size).Offset(int(p.X), int(p.Y))
}

// Ground возвращает эффективную маску клетки (местность минус препятствия)
func (c *Component) Ground(x, y int) Ground {
	if !c.inBounds(x, y) {
		return 0
	}
	return c.ground(x, y)
}

// BaseGround возвращает маску местности без наложенных препятствий
func (c *Component) BaseGround(x, y int) Ground {
	if !c.inBounds(x, y) {
		return 0
	}
	return c.terrain.Get(x, y)
}

// SetTerrain меняет базовую маску клетки и инвалидирует кэши
func (c *Component) SetTerrain(x, y int, ground Ground) error {
	if !c.inBounds(x, y) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	c.terrain.Set(x, y, ground)
	c.version++
	return nil
}

// SetDiagnosis подключает приёмник диагностики
func (c *Component) SetDiagnosis(d Diagnosis) {
	c.diagnosis = d
}

// ReportNextPoint пересылает следующую точку маршрута юнита в диагностику
func (c *Component) ReportNextPoint(fn Func, index int, point vec.Vec2) {
	if c.diagnosisEnabled && c.diagnosis != nil {
		c.diagnosis.SetNextPoint(fn, index, point)
	}
}

// ClearNextPoint снимает точку маршрута юнита в диагностике
func (c *Component) ClearNextPoint(fn Func, index int) {
	if c.diagnosisEnabled && c.diagnosis != nil {
		c.diagnosis.RemoveNextPoint(fn, index)
	}
}

// Stats возвращает снимок счётчиков
func (c *Component) Stats() Stats {
	c.cacheMu.Lock()
	profiles := len(c.profiles)
	c.cacheMu.Unlock()

	return Stats{
		Width:     c.width,
		Height:    c.height,
		Moveables: len(c.moveables),
		Obstacles: len(c.obstacles),
		Portals:   len(c.portals),
		Version:   c.version,
		Profiles:  profiles,
		Rebuilds:  c.rebuilds.Load(),
	}
}

func (c *Component) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

func (c *Component) cellIndex(x, y int) int32 {
	return int32(y*c.width + x)
}

func (c *Component) cellPoint(cell int32) vec.Vec2 {
	return vec.FromIndex(int(cell), c.width)
}

func (c *Component) ground(x, y int) Ground {
	return c.terrain.Get(x, y) &^ c.blocked[y*c.width+x]
}

func (c *Component) groupIndex(move MoveFunc) int8 {
	g := c.groupOf[move]
	if g < 0 {
		panic(fmt.Errorf("%w: %d", ErrUnknownMoveType, move))
	}
	return g
}

func (c *Component) peekOf(size CollSize) Peek {
	if size == c.nullSize {
		return Peek{}
	}
	peek, ok := c.collPeeks[size]
	if !ok {
		panic(fmt.Errorf("%w: %d", ErrUnknownCollSize, size))
	}
	return peek
}

func insertSorted(ids []int, id int) []int {
	i := sort.SearchInts(ids, id)
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

func removeSorted(ids []int, id int) []int {
	i := sort.SearchInts(ids, id)
	if i < len(ids) && ids[i] == id {
		return append(ids[:i], ids[i+1:]...)
	}
	return ids
}
