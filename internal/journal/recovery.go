package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/rts-pathfind/internal/navigator"
)

// Recover восстанавливает навигатор из снимка сессии и хвоста журнала.
// Возвращает число применённых записей хвоста.
func Recover(ctx context.Context, store *Store, session string, nav *navigator.Navigator) (int, error) {
	state, ok, err := store.LoadSnapshot(session)
	if err != nil {
		return 0, err
	}
	if ok {
		if err := nav.Restore(ctx, state); err != nil {
			return 0, fmt.Errorf("restore snapshot of %s: %w", session, err)
		}
	}

	records, err := store.Load(session, state.Seq)
	if err != nil {
		return 0, err
	}
	applied, err := nav.Replay(ctx, records)
	if err != nil {
		return applied, fmt.Errorf("replay %s: %w", session, err)
	}
	store.logger.Info("Сессия %s восстановлена: снимок seq=%d, записей хвоста %d", session, state.Seq, applied)
	return applied, nil
}

// Checkpoint сохраняет снимок навигатора и удаляет покрытые им записи
func Checkpoint(store *Store, session string, nav *navigator.Navigator) (navigator.State, error) {
	state := nav.Snapshot()
	if err := store.SaveSnapshot(session, state); err != nil {
		return state, err
	}
	removed, err := store.Compact(session, state.Seq)
	if err != nil {
		return state, err
	}
	store.logger.Debug("Контрольная точка %s: seq=%d, удалено записей %d", session, state.Seq, removed)
	return state, nil
}

// Checkpointer периодически делает контрольные точки, когда с прошлой
// накопилось не меньше every записей
type Checkpointer struct {
	store   *Store
	nav     *navigator.Navigator
	every   uint64
	lastSeq uint64
}

// NewCheckpointer создаёт планировщик контрольных точек текущей сессии
func NewCheckpointer(store *Store, nav *navigator.Navigator, every uint64) *Checkpointer {
	if every == 0 {
		every = 1000
	}
	return &Checkpointer{store: store, nav: nav, every: every}
}

// MaybeCheckpoint делает контрольную точку, если накопилось достаточно записей
func (c *Checkpointer) MaybeCheckpoint() (bool, error) {
	if c.nav.Status().Seq-c.lastSeq < c.every {
		return false, nil
	}
	state, err := Checkpoint(c.store, c.store.Session(), c.nav)
	if err != nil {
		return false, err
	}
	c.lastSeq = state.Seq
	return true, nil
}

// Run проверяет порог с заданным интервалом до отмены контекста;
// при остановке делает финальную контрольную точку
func (c *Checkpointer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := Checkpoint(c.store, c.store.Session(), c.nav); err != nil {
				c.store.logger.Error("Финальная контрольная точка не сохранена: %v", err)
			}
			return
		case <-ticker.C:
			if _, err := c.MaybeCheckpoint(); err != nil {
				c.store.logger.Warn("Контрольная точка не сохранена: %v", err)
			}
		}
	}
}
