package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/annel0/rts-pathfind/internal/physics"
	"github.com/annel0/rts-pathfind/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	groups, err := cfg.ParseMoveGroups()
	require.NoError(t, err)
	assert.Equal(t, physics.DefaultMoveGroups(), groups)

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	assert.Equal(t, physics.NewFootprintCatalog().Sizes(), catalog.Sizes())
	assert.Equal(t, physics.NewFootprintCatalog().Get(physics.Coll4x4), catalog.Get(physics.Coll4x4))
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pathfind.yaml")
	data := []byte(`
map:
  width: 32
  height: 16
grid:
  min_x: "-10.5"
  cell_size: "0.5"
server:
  rest_port: 9090
journal:
  enabled: true
  in_memory: true
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Map.Width)
	assert.Equal(t, int64(1), cfg.Map.Seed, "незаданное поле остаётся по умолчанию")
	assert.Equal(t, 9090, cfg.Server.GetRESTPort())
	assert.True(t, cfg.Journal.InMemory)
	assert.Equal(t, "pathfind.mutations", cfg.Journal.Subject)

	mapping, err := cfg.Grid.Mapping()
	require.NoError(t, err)
	assert.Equal(t, vec.MustParseFixed("-10.5"), mapping.Min.X)
	assert.Equal(t, vec.New(1, 0), mapping.PositionToPoint(vec.Vec2Fixed{X: vec.MustParseFixed("-9.9"), Y: vec.MustParseFixed("0.2")}))
}

func TestLoadWithoutPathUsesDefaults(t *testing.T) {
	t.Setenv("PATHFIND_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestRESTPortFallback(t *testing.T) {
	s := ServerConfig{}
	t.Setenv("PATHFIND_REST_PORT", "7000")
	assert.Equal(t, 7000, s.GetRESTPort())

	t.Setenv("PATHFIND_REST_PORT", "oops")
	assert.Equal(t, 8088, s.GetRESTPort())
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"неизвестный тип":   "move_groups: [[fly], [swim]]",
		"повтор типа":       "move_groups: [[fly], [fly]]",
		"пустая группа":     "move_groups: [[fly], []]",
		"плохой размер":     "footprints: [{id: 0, width: 1, height: 1}]",
		"нулевая клетка":    "grid: {cell_size: \"0\"}",
		"нечисловая клетка": "grid: {cell_size: \"abc\"}",
		"нет карты":         "map: {width: 0}",
		"секрет без людей":  "auth: {jwt_secret: c2VjcmV0}",
		"реплика без nats":  "journal: {follow: true}",
	}
	for name, data := range cases {
		cfg := Default()
		assert.Error(t, Parse([]byte(data), cfg), name)
	}
}

func TestCustomFootprints(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse([]byte("footprints: [{id: 1, width: 1, height: 1}, {id: 5, width: 5, height: 3}]"), cfg))

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	assert.Len(t, catalog.Sizes(), 2)
	assert.Equal(t, 15, catalog.Get(5).Area())
	assert.True(t, cfg.Engine.InitOptions().JumpTables)
}

func TestAuthOperators(t *testing.T) {
	cfg := Default()
	data := []byte(`
auth:
  jwt_secret: c2VjcmV0
  token_ttl: 30m
  operators:
    dispatcher: "$2a$10$abcdefghijklmnopqrstuu"
`)
	require.NoError(t, Parse(data, cfg))
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Contains(t, cfg.Auth.Operators, "dispatcher")
}
