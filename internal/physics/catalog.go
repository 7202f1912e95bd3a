package physics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/vec"
)

// Размеры коллизии
const (
	CollNull pathfind.CollSize = iota // 0x0: одна клетка, юниты не учитываются
	Coll1x1
	Coll2x2
	Coll3x3
	Coll4x4
)

// FootprintCatalog — справочник размеров, реализует pathfind.CollisionGetter
type FootprintCatalog struct {
	null      pathfind.CollSize
	colliders map[pathfind.CollSize]*BoxCollider
}

// NewCatalog создаёт пустой справочник
func NewCatalog() *FootprintCatalog {
	return &FootprintCatalog{null: CollNull, colliders: make(map[pathfind.CollSize]*BoxCollider)}
}

// NewFootprintCatalog создаёт справочник с квадратами 1x1..4x4
func NewFootprintCatalog() *FootprintCatalog {
	fc := NewCatalog()
	for i, size := range []pathfind.CollSize{Coll1x1, Coll2x2, Coll3x3, Coll4x4} {
		fc.colliders[size] = NewBoxCollider(i+1, i+1)
	}
	return fc
}

// Register добавляет размер
func (fc *FootprintCatalog) Register(size pathfind.CollSize, collider *BoxCollider) error {
	if size == fc.null {
		return fmt.Errorf("размер %d зарезервирован как нулевой", size)
	}
	if collider.Width <= 0 || collider.Height <= 0 {
		return fmt.Errorf("недопустимый коллайдер %dx%d", collider.Width, collider.Height)
	}
	if _, exists := fc.colliders[size]; exists {
		return fmt.Errorf("размер %d уже зарегистрирован", size)
	}
	fc.colliders[size] = collider
	return nil
}

// Sizes возвращает зарегистрированные размеры по возрастанию
func (fc *FootprintCatalog) Sizes() []pathfind.CollSize {
	sizes := make([]pathfind.CollSize, 0, len(fc.colliders))
	for size := range fc.colliders {
		sizes = append(sizes, size)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	return sizes
}

// GetNull возвращает нулевой размер
func (fc *FootprintCatalog) GetNull() pathfind.CollSize {
	return fc.null
}

// GetMax возвращает размер с наибольшей площадью; при равенстве — больший id
func (fc *FootprintCatalog) GetMax(sizes []pathfind.CollSize) pathfind.CollSize {
	best, bestArea := fc.null, 0
	for _, size := range sizes {
		area := fc.Get(size).Area()
		if size == fc.null {
			area = 0
		}
		if area > bestArea || (area == bestArea && size > best) {
			best, bestArea = size, area
		}
	}
	return best
}

// Get возвращает прямоугольник относительно якоря; неизвестный размер — паника
func (fc *FootprintCatalog) Get(size pathfind.CollSize) pathfind.Peek {
	if size == fc.null {
		return pathfind.Peek{}
	}
	collider, ok := fc.colliders[size]
	if !ok {
		panic(fmt.Errorf("%w: %d", pathfind.ErrUnknownCollSize, size))
	}
	return collider.Offsets()
}

// GetAt возвращает прямоугольник при якоре (x, y)
func (fc *FootprintCatalog) GetAt(x, y int, size pathfind.CollSize) pathfind.Peek {
	return fc.Get(size).Offset(x, y)
}

// Collider возвращает коллайдер размера
func (fc *FootprintCatalog) Collider(size pathfind.CollSize) (*BoxCollider, bool) {
	c, ok := fc.colliders[size]
	return c, ok
}

// FootprintAt возвращает прямоугольник при якоре p
func (fc *FootprintCatalog) FootprintAt(p vec.Vec2, size pathfind.CollSize) pathfind.Peek {
	return fc.GetAt(int(p.X), int(p.Y), size)
}

// CollSizeName возвращает имя размера ("3x3")
func CollSizeName(size pathfind.CollSize) string {
	if size == CollNull {
		return "0x0"
	}
	n := int(size)
	return fmt.Sprintf("%dx%d", n, n)
}

// ParseCollSize разбирает размер вида "3x3" или "3"
func ParseCollSize(s string) (pathfind.CollSize, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	side := s
	if a, b, ok := strings.Cut(s, "x"); ok {
		if a != b {
			return CollNull, fmt.Errorf("поддерживаются только квадратные размеры: %q", s)
		}
		side = a
	}
	n, err := strconv.Atoi(side)
	if err != nil || n < 0 || n > int(Coll4x4) {
		return CollNull, fmt.Errorf("неизвестный размер коллизии %q", s)
	}
	return pathfind.CollSize(n), nil
}
