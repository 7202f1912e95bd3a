package navigator

import "errors"

var (
	ErrAgentNotFound    = errors.New("navigator: agent not found")
	ErrCannotStand      = errors.New("navigator: position is blocked")
	ErrAreaOccupied     = errors.New("navigator: area is occupied by agents")
	ErrUnknownMoveType  = errors.New("navigator: unknown move type")
	ErrUnknownCollSize  = errors.New("navigator: unknown collision size")
	ErrEmptyGroup       = errors.New("navigator: empty group")
	ErrMixedGroup       = errors.New("navigator: group members use different move types")
	ErrEmptyObstacle    = errors.New("navigator: obstacle without cells")
	ErrUnknownOperation = errors.New("navigator: unknown mutation op")
	ErrIndexInUse       = errors.New("navigator: index is already in use")
)
