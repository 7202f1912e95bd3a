package pathfind

import (
	"github.com/annel0/rts-pathfind/internal/pool"
	"github.com/annel0/rts-pathfind/internal/vec"
)

// TerrainGetter — источник масок местности
type TerrainGetter interface {
	Width() int
	Height() int
	Get(x, y int) Ground
	Set(x, y int, ground Ground)
}

// CollisionGetter — справочник размеров коллизии.
// Get и GetAt паникуют на неизвестном размере.
type CollisionGetter interface {
	GetNull() CollSize
	GetMax(sizes []CollSize) CollSize
	Get(size CollSize) Peek
	GetAt(x, y int, size CollSize) Peek
}

// SearchNode — элемент открытого списка
type SearchNode struct {
	Cell int32
	F    int32
	G    int32
	H    int32
}

// SearchLink — состояние клетки в поиске: стоимость, родитель, направление прихода
type SearchLink struct {
	Parent int32
	G      int32
	Portal int32
	Dir    int8
	Closed bool
}

// ObjectPoolGetter выдаёт пулы временных коллекций для запросов
type ObjectPoolGetter interface {
	Cells() pool.Lists[int32]
	Nodes() pool.Lists[SearchNode]
	Points() pool.Lists[vec.Vec2]
	Crossings() pool.Lists[PortalCrossing]
	CellSets() pool.Sets[int32]
	Links() pool.Maps[int32, SearchLink]
}

// Diagnosis получает уведомления о следующей точке маршрута юнита
type Diagnosis interface {
	SetNextPoint(fn Func, index int, point vec.Vec2)
	RemoveNextPoint(fn Func, index int)
}

// Getters — внешние зависимости движка
type Getters struct {
	Terrain   TerrainGetter
	Collision CollisionGetter
	Pool      ObjectPoolGetter
}

// NewGetters собирает зависимости; nil-пул заменяется пулом по умолчанию
func NewGetters(terrain TerrainGetter, collision CollisionGetter, pools ObjectPoolGetter) Getters {
	if pools == nil {
		pools = NewObjectPoolGetter()
	}
	return Getters{Terrain: terrain, Collision: collision, Pool: pools}
}

type objectPoolGetter struct {
	cells     *pool.ListPool[int32]
	nodes     *pool.ListPool[SearchNode]
	points    *pool.ListPool[vec.Vec2]
	crossings *pool.ListPool[PortalCrossing]
	cellSets  *pool.SetPool[int32]
	links     *pool.MapPool[int32, SearchLink]
}

// NewObjectPoolGetter создаёт набор пулов по умолчанию
func NewObjectPoolGetter() ObjectPoolGetter {
	return &objectPoolGetter{
		cells:     pool.NewListPool[int32](256),
		nodes:     pool.NewListPool[SearchNode](256),
		points:    pool.NewListPool[vec.Vec2](64),
		crossings: pool.NewListPool[PortalCrossing](4),
		cellSets:  pool.NewSetPool[int32](),
		links:     pool.NewMapPool[int32, SearchLink](),
	}
}

func (g *objectPoolGetter) Cells() pool.Lists[int32]              { return g.cells }
func (g *objectPoolGetter) Nodes() pool.Lists[SearchNode]         { return g.nodes }
func (g *objectPoolGetter) Points() pool.Lists[vec.Vec2]          { return g.points }
func (g *objectPoolGetter) Crossings() pool.Lists[PortalCrossing] { return g.crossings }
func (g *objectPoolGetter) CellSets() pool.Sets[int32]            { return g.cellSets }
func (g *objectPoolGetter) Links() pool.Maps[int32, SearchLink]   { return g.links }
