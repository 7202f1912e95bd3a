package journal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/rts-pathfind/internal/logging"
	"github.com/annel0/rts-pathfind/internal/navigator"
	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/physics"
	"github.com/annel0/rts-pathfind/internal/terrain"
	"github.com/annel0/rts-pathfind/internal/vec"
)

func openTestStore(t *testing.T, session string) *Store {
	t.Helper()
	store, err := Open(Options{InMemory: true, Session: session})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestNavigator(t *testing.T, opts ...navigator.Option) *navigator.Navigator {
	t.Helper()
	grid, err := terrain.NewGrid(16, 16, terrain.Walk|terrain.Fly)
	require.NoError(t, err)
	engine := pathfind.New(physics.DefaultMoveGroups(),
		[]pathfind.CollSize{physics.Coll1x1, physics.Coll2x2},
		pathfind.NewGetters(grid, physics.NewFootprintCatalog(), nil))
	engine.Initialize(pathfind.InitOptions{})

	base := []navigator.Option{navigator.WithLogger(logging.NewWriterLogger("navigator", io.Discard))}
	return navigator.New(engine, append(base, opts...)...)
}

func mutate(t *testing.T, nav *navigator.Navigator) {
	t.Helper()
	ctx := context.Background()

	a, err := nav.Spawn(ctx, physics.MoveFoot, physics.Coll2x2, vec.New(3, 3))
	require.NoError(t, err)
	_, err = nav.Spawn(ctx, physics.MoveFly, physics.Coll1x1, vec.New(8, 8))
	require.NoError(t, err)
	_, err = nav.AddObstacleRect(ctx, pathfind.NewPeek(10, 0, 10, 9), terrain.Walk)
	require.NoError(t, err)
	_, err = nav.AddPortal(ctx, pathfind.PointPair{Start: vec.New(9, 2), End: vec.New(12, 2)})
	require.NoError(t, err)
	require.NoError(t, nav.Relocate(ctx, a, vec.New(4, 3)))
	require.NoError(t, nav.SetTerrain(ctx, vec.New(15, 15), terrain.None))
}

func TestStoreAppendLoad(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, "")
	assert.NotEmpty(t, store.Session(), "сессия получает UUID")

	for seq := uint64(1); seq <= 12; seq++ {
		require.NoError(t, store.Append(ctx, navigator.Mutation{Seq: seq, Op: navigator.OpTerrainSet, Point: vec.New(int(seq), 0)}))
	}

	all, err := store.Load(store.Session(), 0)
	require.NoError(t, err)
	require.Len(t, all, 12)
	for i, m := range all {
		assert.Equal(t, uint64(i+1), m.Seq, "порядок по номеру, а не по строке")
	}

	tail, err := store.Load(store.Session(), 9)
	require.NoError(t, err)
	require.Len(t, tail, 3)
	assert.Equal(t, uint64(10), tail[0].Seq)

	other, err := store.Load("missing", 0)
	require.NoError(t, err)
	assert.Empty(t, other)

	removed, err := store.Compact(store.Session(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, removed)
	left, err := store.Load(store.Session(), 0)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, uint64(11), left[0].Seq)
}

func TestStoreSnapshot(t *testing.T) {
	store := openTestStore(t, "snap")

	_, ok, err := store.LoadSnapshot("snap")
	require.NoError(t, err)
	assert.False(t, ok)

	nav := newTestNavigator(t)
	mutate(t, nav)
	state := nav.Snapshot()
	require.NoError(t, store.SaveSnapshot("snap", state))

	loaded, ok, err := store.LoadSnapshot("snap")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state.Seq, loaded.Seq)
	assert.Equal(t, state.NextIndex, loaded.NextIndex)
	require.Len(t, loaded.Mutations, len(state.Mutations))
	for i := range state.Mutations {
		assert.Equal(t, state.Mutations[i].Op, loaded.Mutations[i].Op)
		assert.Equal(t, state.Mutations[i].Cells, loaded.Mutations[i].Cells)
		assert.Equal(t, state.Mutations[i].Portal, loaded.Mutations[i].Portal)
	}

	sessions, err := store.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "snap", sessions[0].ID)
}

func TestRecoverAfterCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, "primary")
	primary := newTestNavigator(t, navigator.WithJournal(store))
	mutate(t, primary)

	state, err := Checkpoint(store, "primary", primary)
	require.NoError(t, err)
	left, err := store.Load("primary", 0)
	require.NoError(t, err)
	assert.Empty(t, left, "записи до снимка удалены")

	id, err := primary.Spawn(ctx, physics.MoveFoot, physics.Coll1x1, vec.New(1, 14))
	require.NoError(t, err)
	_, err = primary.Order(ctx, id, vec.New(5, 14), false)
	require.NoError(t, err)
	primary.Tick(ctx)

	replica := newTestNavigator(t)
	applied, err := Recover(ctx, store, "primary", replica)
	require.NoError(t, err)
	assert.Equal(t, 2, applied, "появление и один шаг после снимка")

	got, ok := replica.Agent(id)
	require.True(t, ok)
	want, _ := primary.Agent(id)
	assert.Equal(t, want.Position, got.Position)
	assert.Equal(t, primary.Status().Seq, replica.Status().Seq)
	assert.Equal(t, primary.Obstacles(), replica.Obstacles())
	assert.Greater(t, primary.Status().Seq, state.Seq)
}

func TestCheckpointerThreshold(t *testing.T) {
	store := openTestStore(t, "cp")
	nav := newTestNavigator(t, navigator.WithJournal(store))
	cp := NewCheckpointer(store, nav, 4)

	done, err := cp.MaybeCheckpoint()
	require.NoError(t, err)
	assert.False(t, done)

	mutate(t, nav)
	done, err = cp.MaybeCheckpoint()
	require.NoError(t, err)
	assert.True(t, done)

	_, ok, err := store.LoadSnapshot("cp")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreClosed(t *testing.T) {
	store, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "повторное закрытие безопасно")

	err = store.Append(context.Background(), navigator.Mutation{Seq: 1})
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = store.Load(store.Session(), 0)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

type fakeConn struct {
	subject string
	msgs    [][]byte
	fail    bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.fail {
		return errors.New("connection closed")
	}
	f.subject = subject
	f.msgs = append(f.msgs, data)
	return nil
}

func TestPublisherFollower(t *testing.T) {
	conn := &fakeConn{}
	pub := NewPublisher(conn, "")
	primary := newTestNavigator(t, navigator.WithJournal(pub))
	mutate(t, primary)

	assert.Equal(t, DefaultSubject, conn.subject)
	assert.Equal(t, int64(len(conn.msgs)), pub.Published())

	var env Envelope
	require.NoError(t, json.Unmarshal(conn.msgs[0], &env))
	assert.Equal(t, pub.NodeID(), env.NodeID)
	assert.Equal(t, navigator.OpAgentSpawn, env.Mutation.Op)

	replica := newTestNavigator(t)
	f := NewFollower(replica)
	for _, data := range conn.msgs {
		f.HandleMessage(&nats.Msg{Subject: DefaultSubject, Data: data})
	}
	f.HandleMessage(&nats.Msg{Data: conn.msgs[0]})
	f.HandleMessage(&nats.Msg{Data: []byte("{broken")})

	assert.Equal(t, primary.Status().Seq, f.LastSeq())
	assert.Equal(t, primary.Agents(), replica.Agents())
	assert.Equal(t, primary.Portals(), replica.Portals())
	received, failed := f.Stats()
	assert.Equal(t, int64(len(conn.msgs)+2), received)
	assert.Equal(t, int64(1), failed, "повтор пропускается молча, мусор считается ошибкой")

	conn.fail = true
	err := pub.Append(context.Background(), navigator.Mutation{Seq: 99})
	assert.Error(t, err)
}

func TestTee(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, "tee")
	conn := &fakeConn{}
	nav := newTestNavigator(t, navigator.WithJournal(Tee{store, NewPublisher(conn, "custom")}))
	mutate(t, nav)

	records, err := store.Load("tee", 0)
	require.NoError(t, err)
	assert.Len(t, records, len(conn.msgs))
	assert.Equal(t, "custom", conn.subject)

	conn.fail = true
	err = Tee{NewPublisher(conn, ""), store}.Append(ctx, navigator.Mutation{Seq: 50, Op: navigator.OpPortalRemove})
	assert.Error(t, err)
	tail, err := store.Load("tee", 49)
	require.NoError(t, err)
	assert.Len(t, tail, 1, "ошибка одного приёмника не мешает остальным")
}
