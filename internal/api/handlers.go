package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/annel0/rts-pathfind/internal/navigator"
	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/physics"
	"github.com/annel0/rts-pathfind/internal/terrain"
	"github.com/annel0/rts-pathfind/internal/vec"
)

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// LoginRequest — вход оператора
type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SpawnRequest — запрос на появление юнита
type SpawnRequest struct {
	Index *int   `json:"index"`
	Move  string `json:"move" binding:"required"`
	Coll  string `json:"coll" binding:"required"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

// PointRequest — одна точка сетки
type PointRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// OrderRequest — приказ юниту идти в точку
type OrderRequest struct {
	X     int  `json:"x"`
	Y     int  `json:"y"`
	Avoid bool `json:"avoid"`
}

// GroupOrderRequest — приказ группе
type GroupOrderRequest struct {
	Indexes []int `json:"indexes" binding:"required"`
	X       int   `json:"x"`
	Y       int   `json:"y"`
}

// CellRequest — клетка препятствия
type CellRequest struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Bits string `json:"bits"`
}

// ObstacleRequest — препятствие прямоугольником или списком клеток
type ObstacleRequest struct {
	Rect  *pathfind.Peek `json:"rect"`
	Bits  string         `json:"bits"`
	Cells []CellRequest  `json:"cells"`
}

// PortalRequest — направленный портал
type PortalRequest struct {
	Start PointRequest `json:"start"`
	End   PointRequest `json:"end"`
}

// TerrainRequest — правка базовой маски клетки
type TerrainRequest struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Ground string `json:"ground" binding:"required"`
}

// PathRequest — запрос пути без юнита
type PathRequest struct {
	Move   string         `json:"move" binding:"required"`
	Coll   string         `json:"coll" binding:"required"`
	Start  PointRequest   `json:"start"`
	End    PointRequest   `json:"end"`
	Window *pathfind.Peek `json:"window"`
	Avoid  bool           `json:"avoid"`
	Index  *int           `json:"index"`
	Link   *int           `json:"link"`
}

var errBadRequest = errors.New("bad request")

func (p PointRequest) vec() vec.Vec2 { return vec.New(p.X, p.Y) }

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, GenericResponse{Success: status < 400, Message: message, Data: data})
}

// fail переводит ошибку навигатора в HTTP-статус
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, navigator.ErrUnknownMoveType),
		errors.Is(err, navigator.ErrUnknownCollSize),
		errors.Is(err, pathfind.ErrUnknownMoveType),
		errors.Is(err, pathfind.ErrUnknownCollSize),
		errors.Is(err, navigator.ErrEmptyGroup),
		errors.Is(err, navigator.ErrMixedGroup),
		errors.Is(err, navigator.ErrEmptyObstacle),
		errors.Is(err, pathfind.ErrOutOfBounds),
		errors.Is(err, pathfind.ErrInvalidIndex),
		errors.Is(err, pathfind.ErrInvalidGround):
		status = http.StatusBadRequest
	case errors.Is(err, navigator.ErrAgentNotFound),
		errors.Is(err, pathfind.ErrMoveableNotFound),
		errors.Is(err, pathfind.ErrObstacleNotFound),
		errors.Is(err, pathfind.ErrPortalNotFound):
		status = http.StatusNotFound
	case errors.Is(err, navigator.ErrCannotStand),
		errors.Is(err, navigator.ErrAreaOccupied),
		errors.Is(err, pathfind.ErrCellOccupied),
		errors.Is(err, navigator.ErrIndexInUse),
		errors.Is(err, pathfind.ErrMoveableExists),
		errors.Is(err, pathfind.ErrObstacleExists),
		errors.Is(err, pathfind.ErrPortalExists):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		c.Error(err) //nolint:errcheck
	}
	respond(c, status, err.Error(), nil)
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return false
	}
	return true
}

func paramIndex(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, fmt.Errorf("%w: id %q", errBadRequest, c.Param("id")))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadRequest, name, raw)
	}
	return v, nil
}

func parseProfile(move, coll string) (pathfind.MoveFunc, pathfind.CollSize, error) {
	m, err := physics.ParseMoveType(move)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", navigator.ErrUnknownMoveType, err)
	}
	s, err := physics.ParseCollSize(coll)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", navigator.ErrUnknownCollSize, err)
	}
	return m, s, nil
}

func parseGround(s string) (pathfind.Ground, error) {
	g, ok := terrain.ParseGround(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", pathfind.ErrInvalidGround, s)
	}
	return g, nil
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"health": rs.metrics.Snapshot(),
		"engine": rs.nav.Status(),
	})
}

// handleLogin выдаёт JWT оператору по паролю
func (rs *RestServer) handleLogin(c *gin.Context) {
	if rs.issuer == nil || rs.operators == nil {
		respond(c, http.StatusNotFound, "Авторизация выключена", nil)
		return
	}
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	op, err := rs.operators.Authenticate(req.Name, req.Password)
	if err != nil {
		rs.logger.Warn("Неудачный вход оператора %q", req.Name)
		respond(c, http.StatusUnauthorized, "Неверное имя или пароль", nil)
		return
	}
	token, err := rs.issuer.Issue(op.Name)
	if err != nil {
		fail(c, err)
		return
	}
	rs.logger.Info("Оператор %s вошёл", op.Name)
	respond(c, http.StatusOK, "ok", gin.H{"token": token, "operator": op})
}

func (rs *RestServer) handleStatus(c *gin.Context) {
	respond(c, http.StatusOK, "ok", rs.nav.Status())
}

func (rs *RestServer) handleListAgents(c *gin.Context) {
	respond(c, http.StatusOK, "ok", rs.nav.Agents())
}

func (rs *RestServer) handleGetAgent(c *gin.Context) {
	id, ok := paramIndex(c)
	if !ok {
		return
	}
	view, found := rs.nav.Agent(id)
	if !found {
		fail(c, fmt.Errorf("%w: %d", navigator.ErrAgentNotFound, id))
		return
	}
	respond(c, http.StatusOK, "ok", view)
}

func (rs *RestServer) handleSpawn(c *gin.Context) {
	var req SpawnRequest
	if !bindJSON(c, &req) {
		return
	}
	move, coll, err := parseProfile(req.Move, req.Coll)
	if err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	index := 0
	if req.Index != nil {
		index = *req.Index
		err = rs.nav.SpawnAt(ctx, index, move, coll, vec.New(req.X, req.Y))
	} else {
		index, err = rs.nav.Spawn(ctx, move, coll, vec.New(req.X, req.Y))
	}
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Юнит создан", gin.H{"index": index})
}

func (rs *RestServer) handleDespawn(c *gin.Context) {
	id, ok := paramIndex(c)
	if !ok {
		return
	}
	if err := rs.nav.Despawn(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Юнит удалён", nil)
}

func (rs *RestServer) handleRelocate(c *gin.Context) {
	id, ok := paramIndex(c)
	if !ok {
		return
	}
	var req PointRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := rs.nav.Relocate(c.Request.Context(), id, req.vec()); err != nil {
		fail(c, err)
		return
	}
	view, _ := rs.nav.Agent(id)
	respond(c, http.StatusOK, "Юнит перемещён", view)
}

func (rs *RestServer) handleOrder(c *gin.Context) {
	id, ok := paramIndex(c)
	if !ok {
		return
	}
	var req OrderRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := rs.nav.Order(c.Request.Context(), id, vec.New(req.X, req.Y), req.Avoid)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", res)
}

func (rs *RestServer) handleOrderGroup(c *gin.Context) {
	var req GroupOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := rs.nav.OrderGroup(c.Request.Context(), req.Indexes, vec.New(req.X, req.Y))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", res)
}

func (rs *RestServer) handleListObstacles(c *gin.Context) {
	respond(c, http.StatusOK, "ok", rs.nav.Obstacles())
}

func (rs *RestServer) handleAddObstacle(c *gin.Context) {
	var req ObstacleRequest
	if !bindJSON(c, &req) {
		return
	}

	cells := make(pathfind.ObstacleCells)
	if req.Rect != nil {
		bits, err := parseGround(req.Bits)
		if err != nil {
			fail(c, err)
			return
		}
		cells = navigator.RectCells(*req.Rect, bits)
	}
	for _, cell := range req.Cells {
		bits, err := parseGround(cell.Bits)
		if err != nil {
			fail(c, err)
			return
		}
		cells[vec.New(cell.X, cell.Y)] |= bits
	}

	index, err := rs.nav.AddObstacle(c.Request.Context(), cells)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Препятствие установлено", gin.H{"index": index})
}

func (rs *RestServer) handleRemoveObstacle(c *gin.Context) {
	id, ok := paramIndex(c)
	if !ok {
		return
	}
	if err := rs.nav.RemoveObstacle(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Препятствие снято", nil)
}

func (rs *RestServer) handleListPortals(c *gin.Context) {
	respond(c, http.StatusOK, "ok", rs.nav.Portals())
}

func (rs *RestServer) handleAddPortal(c *gin.Context) {
	var req PortalRequest
	if !bindJSON(c, &req) {
		return
	}
	index, err := rs.nav.AddPortal(c.Request.Context(), pathfind.PointPair{Start: req.Start.vec(), End: req.End.vec()})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Портал добавлен", gin.H{"index": index})
}

func (rs *RestServer) handleRemovePortal(c *gin.Context) {
	id, ok := paramIndex(c)
	if !ok {
		return
	}
	if err := rs.nav.RemovePortal(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Портал удалён", nil)
}

func (rs *RestServer) handleSetTerrain(c *gin.Context) {
	var req TerrainRequest
	if !bindJSON(c, &req) {
		return
	}
	ground, err := parseGround(req.Ground)
	if err != nil {
		fail(c, err)
		return
	}
	if err := rs.nav.SetTerrain(c.Request.Context(), vec.New(req.X, req.Y), ground); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Местность изменена", gin.H{"ground": terrain.GroundString(ground)})
}

func (rs *RestServer) handleCanStand(c *gin.Context) {
	move, coll, err := parseProfile(c.Query("move"), c.Query("coll"))
	if err != nil {
		fail(c, err)
		return
	}
	x, errX := queryInt(c, "x", 0)
	y, errY := queryInt(c, "y", 0)
	exclude, errE := queryInt(c, "exclude", pathfind.EmptyIndex)
	if err := errors.Join(errX, errY, errE); err != nil {
		fail(c, err)
		return
	}
	ok, err := rs.nav.CanStand(vec.New(x, y), move, coll, exclude)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"can_stand": ok})
}

func (rs *RestServer) handleCheckArea(c *gin.Context) {
	move, coll, err := parseProfile(c.Query("move"), c.Query("coll"))
	if err != nil {
		fail(c, err)
		return
	}
	sx, errSX := queryInt(c, "sx", 0)
	sy, errSY := queryInt(c, "sy", 0)
	ex, errEX := queryInt(c, "ex", 0)
	ey, errEY := queryInt(c, "ey", 0)
	if err := errors.Join(errSX, errSY, errEX, errEY); err != nil {
		fail(c, err)
		return
	}
	ok, err := rs.nav.CheckArea(c.Request.Context(), vec.New(sx, sy), vec.New(ex, ey), move, coll)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"reachable": ok})
}

func (rs *RestServer) handleFindPath(c *gin.Context) {
	var req PathRequest
	if !bindJSON(c, &req) {
		return
	}
	move, coll, err := parseProfile(req.Move, req.Coll)
	if err != nil {
		fail(c, err)
		return
	}
	q := navigator.PathQuery{
		Index: pathfind.EmptyIndex,
		Link:  pathfind.EmptyIndex,
		Move:  move,
		Coll:  coll,
		Start: req.Start.vec(),
		End:   req.End.vec(),
		Avoid: req.Avoid,
	}
	if req.Window != nil {
		q.Window = *req.Window
	}
	if req.Index != nil {
		q.Index = *req.Index
	}
	if req.Link != nil {
		q.Link = *req.Link
	}
	res, err := rs.nav.Query(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", res)
}

func (rs *RestServer) handleTick(c *gin.Context) {
	respond(c, http.StatusOK, "ok", rs.nav.Tick(c.Request.Context()))
}

func (rs *RestServer) handleSnapshot(c *gin.Context) {
	respond(c, http.StatusOK, "ok", rs.nav.Snapshot())
}

func (rs *RestServer) handleNextPoints(c *gin.Context) {
	diag := rs.nav.Diagnosis()
	if diag == nil {
		respond(c, http.StatusOK, "Диагностика выключена", []navigator.NextPoint{})
		return
	}
	respond(c, http.StatusOK, "ok", diag.Snapshot())
}
