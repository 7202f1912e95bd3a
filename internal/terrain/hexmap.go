package terrain

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/annel0/rts-pathfind/internal/pathfind"
)

// Формат карты: одна строка на столбец x, по две шестнадцатеричные цифры на
// клетку y. Хранится инвертированный байт маски, пустые строки пропускаются.

const hexCellWidth = 2

// ParseHexMap читает карту из r
func ParseHexMap(r io.Reader) (*Grid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var columns [][]byte
	height := -1
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(line)%hexCellWidth != 0 {
			return nil, fmt.Errorf("строка %d: нечётное число цифр", len(columns)+1)
		}
		cells, err := hex.DecodeString(line)
		if err != nil {
			return nil, fmt.Errorf("строка %d: %w", len(columns)+1, err)
		}
		if height >= 0 && len(cells) != height {
			return nil, fmt.Errorf("строка %d: %d клеток, ожидалось %d", len(columns)+1, len(cells), height)
		}
		height = len(cells)
		columns = append(columns, cells)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения карты: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("пустая карта")
	}

	grid, err := NewGrid(len(columns), height, None)
	if err != nil {
		return nil, err
	}
	for x, column := range columns {
		for y, b := range column {
			grid.Set(x, y, pathfind.Ground(^b))
		}
	}
	return grid, nil
}

// WriteHexMap записывает карту в формате ParseHexMap
func WriteHexMap(w io.Writer, g *Grid) error {
	bw := bufio.NewWriter(w)
	column := make([]byte, g.height)
	encoded := make([]byte, hex.EncodedLen(g.height))
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			column[y] = ^byte(g.Get(x, y))
		}
		hex.Encode(encoded, column)
		if _, err := bw.Write([]byte(strings.ToUpper(string(encoded)))); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
