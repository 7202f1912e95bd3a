package terrain

import (
	"fmt"

	"github.com/annel0/rts-pathfind/internal/pathfind"
)

// Grid — плотная сетка масок, реализует pathfind.TerrainGetter
type Grid struct {
	width  int
	height int
	cells  []pathfind.Ground
}

// NewGrid создаёт сетку, заполненную fill
func NewGrid(width, height int, fill pathfind.Ground) (*Grid, error) {
	if width <= 0 || height <= 0 || width > 32767 || height > 32767 {
		return nil, fmt.Errorf("недопустимый размер сетки %dx%d", width, height)
	}
	g := &Grid{width: width, height: height, cells: make([]pathfind.Ground, width*height)}
	if fill != None {
		for i := range g.cells {
			g.cells[i] = fill
		}
	}
	return g, nil
}

// Width ширина сетки
func (g *Grid) Width() int { return g.width }

// Height высота сетки
func (g *Grid) Height() int { return g.height }

// Get возвращает маску клетки
func (g *Grid) Get(x, y int) pathfind.Ground {
	return g.cells[y*g.width+x]
}

// Set меняет маску клетки
func (g *Grid) Set(x, y int, ground pathfind.Ground) {
	g.cells[y*g.width+x] = ground
}

// Fill заполняет прямоугольник (границы включительно, обрезаются по сетке)
func (g *Grid) Fill(r pathfind.Peek, ground pathfind.Ground) {
	r, ok := r.Intersect(pathfind.NewPeek(0, 0, g.width-1, g.height-1))
	if !ok {
		return
	}
	for y := int(r.Min.Y); y <= int(r.Max.Y); y++ {
		for x := int(r.Min.X); x <= int(r.Max.X); x++ {
			g.Set(x, y, ground)
		}
	}
}

// Clone возвращает независимую копию
func (g *Grid) Clone() *Grid {
	return &Grid{width: g.width, height: g.height, cells: append([]pathfind.Ground(nil), g.cells...)}
}

// Count считает клетки, пересекающиеся с маской
func (g *Grid) Count(mask pathfind.Ground) int {
	n := 0
	for _, c := range g.cells {
		if c&mask != 0 {
			n++
		}
	}
	return n
}
