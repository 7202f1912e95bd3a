package pathfind

import "errors"

// Ошибки реестра. Возвращаются обёрнутыми, сравнивать через errors.Is.
var (
	ErrInvalidIndex      = errors.New("pathfind: invalid index")
	ErrOutOfBounds       = errors.New("pathfind: footprint out of bounds")
	ErrMoveableExists    = errors.New("pathfind: moveable already registered")
	ErrMoveableNotFound  = errors.New("pathfind: moveable not registered")
	ErrFootprintMismatch = errors.New("pathfind: moveable footprint mismatch")
	ErrCellOccupied      = errors.New("pathfind: cell occupied by another moveable")
	ErrObstacleExists    = errors.New("pathfind: obstacle already registered")
	ErrObstacleNotFound  = errors.New("pathfind: obstacle not registered")
	ErrObstacleMismatch  = errors.New("pathfind: obstacle cells mismatch")
	ErrPortalExists      = errors.New("pathfind: portal already registered")
	ErrPortalNotFound    = errors.New("pathfind: portal not registered")
	ErrInvalidGround     = errors.New("pathfind: invalid terrain size")
	ErrUnknownMoveType   = errors.New("pathfind: unknown move type")
	ErrUnknownCollSize   = errors.New("pathfind: unknown collision size")
	ErrInvalidMoveGroups = errors.New("pathfind: invalid move groups")
	ErrInvalidCollSizes  = errors.New("pathfind: invalid collision sizes")
)
