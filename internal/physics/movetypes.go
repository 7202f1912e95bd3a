package physics

import (
	"fmt"
	"strings"

	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/terrain"
)

// Способы передвижения
const (
	MoveFly   = pathfind.MoveFunc(terrain.Fly)
	MoveMarin = pathfind.MoveFunc(terrain.Amp)
	MoveWater = pathfind.MoveFunc(terrain.Water | terrain.Amp)
	MoveFoot  = pathfind.MoveFunc(terrain.Walk | terrain.Amp)
)

var moveNames = map[string]pathfind.MoveFunc{
	"fly":   MoveFly,
	"marin": MoveMarin,
	"water": MoveWater,
	"foot":  MoveFoot,
}

// DefaultMoveGroups — воздух отдельно, все наземные и водные вместе
func DefaultMoveGroups() [][]pathfind.MoveFunc {
	return [][]pathfind.MoveFunc{
		{MoveFly},
		{MoveMarin, MoveWater, MoveFoot},
	}
}

// ParseMoveType разбирает имя способа передвижения
func ParseMoveType(name string) (pathfind.MoveFunc, error) {
	move, ok := moveNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("неизвестный способ передвижения %q", name)
	}
	return move, nil
}

// MoveTypeName возвращает имя способа передвижения
func MoveTypeName(move pathfind.MoveFunc) string {
	for name, m := range moveNames {
		if m == move {
			return name
		}
	}
	return fmt.Sprintf("move(%d)", move)
}
