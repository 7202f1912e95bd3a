package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/annel0/rts-pathfind/internal/terrain"
)

func main() {
	var (
		width  = flag.Int("w", 64, "ширина карты в клетках")
		height = flag.Int("h", 64, "высота карты в клетках")
		seed   = flag.Int64("seed", 1, "зерно шума")
		out    = flag.String("out", "", "файл карты (по умолчанию stdout)")
	)
	flag.Parse()

	grid, err := terrain.NewGenerator(*seed).Generate(*width, *height)
	if err != nil {
		log.Fatalf("генерация: %v", err)
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("создание %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}
	if err := terrain.WriteHexMap(w, grid); err != nil {
		log.Fatalf("запись карты: %v", err)
	}

	total := *width * *height
	fmt.Fprintf(os.Stderr, "карта %dx%d seed=%d: суша %d, вода %d, мелководье %d, рудники %d из %d клеток\n",
		*width, *height, *seed,
		grid.Count(terrain.Walk), grid.Count(terrain.Water), grid.Count(terrain.Amp), grid.Count(terrain.Peon), total)
}
