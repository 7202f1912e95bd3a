package terrain

import (
	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/aquilax/go-perlin"
)

// Пороги высоты для генерации (шум нормирован в 0..1)
const (
	DeepWaterMax    = 0.20 // Ниже - глубокая вода
	ShallowWaterMax = 0.30 // Ниже - мелководье
	BlightStart     = 0.65 // Выше - порча
	CliffStart      = 0.80 // Выше - скалы, только для воздуха
)

// Generator генерирует местность шумом Перлина
type Generator struct {
	Seed       int64   // Сид для генерации шума
	NoiseScale float64 // Масштаб основного шума (высота)
	MineScale  float64 // Масштаб шума месторождений
	MineChance float64 // Доля клеток равнины, пригодных для добычи

	height *perlin.Perlin
	mines  *perlin.Perlin
}

// NewGenerator создаёт генератор с настройками по умолчанию
func NewGenerator(seed int64) *Generator {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &Generator{
		Seed:       seed,
		NoiseScale: 0.06,
		MineScale:  0.15,
		MineChance: 0.25,
		height:     perlin.NewPerlin(alpha, beta, n, seed),
		mines:      perlin.NewPerlin(alpha, beta, n, seed+1),
	}
}

// Classify переводит высоту и шум месторождений в маску клетки
func (g *Generator) Classify(height, mine float64) pathfind.Ground {
	switch {
	case height < DeepWaterMax:
		return Fly | Water
	case height < ShallowWaterMax:
		return Fly | Water | Amp
	case height >= CliffStart:
		return Fly
	case height >= BlightStart:
		return Fly | Walk | Blight
	}
	ground := Fly | Walk | Cons
	if mine < g.MineChance {
		ground |= Peon
	}
	return ground
}

// Generate строит сетку width x height
func (g *Generator) Generate(width, height int) (*Grid, error) {
	grid, err := NewGrid(width, height, None)
	if err != nil {
		return nil, err
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			h := normalize(g.height.Noise2D(float64(x)*g.NoiseScale, float64(y)*g.NoiseScale))
			m := normalize(g.mines.Noise2D(float64(x)*g.MineScale, float64(y)*g.MineScale))
			grid.Set(x, y, g.Classify(h, m))
		}
	}
	return grid, nil
}

// normalize переводит шум из -1..1 в 0..1
func normalize(v float64) float64 {
	v = (v + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
