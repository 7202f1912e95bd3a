package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPoolReuse(t *testing.T) {
	p := NewListPool[int](8)

	s := p.Alloc(false)
	require.Len(t, s, 0)
	assert.Equal(t, 8, cap(s))

	s = append(s, 1, 2, 3)
	p.Release(s, false)

	again := p.Alloc(false)
	assert.Len(t, again, 0, "Возвращённый срез должен быть пустым")
	assert.Equal(t, 8, cap(again), "Ёмкость переиспользуется")

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Created)
	assert.Equal(t, uint64(1), stats.Reused)
	assert.Equal(t, uint64(1), stats.Released)
}

func TestListPoolDropsOverflow(t *testing.T) {
	p := NewListPool[byte](1)
	p.maxIdle = 1

	a := p.Alloc(false)
	b := p.Alloc(false)
	p.Release(a, false)
	p.Release(b, false)

	assert.Equal(t, uint64(1), p.Stats().Dropped)
	p.Release(nil, false)
	assert.Equal(t, uint64(2), p.Stats().Released, "nil не считается возвратом")
}

func TestSetAndMapPoolsClear(t *testing.T) {
	sets := NewSetPool[int32]()
	set := sets.Alloc(false)
	set[5] = struct{}{}
	sets.Release(set, false)
	assert.Empty(t, sets.Alloc(false))

	maps := NewMapPool[int32, string]()
	m := maps.Alloc(false)
	m[1] = "one"
	maps.Release(m, false)
	assert.Empty(t, maps.Alloc(false))
}

func TestListPoolConcurrentWithLock(t *testing.T) {
	p := NewListPool[int](4)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s := p.Alloc(true)
				s = append(s, i)
				p.Release(s, true)
			}
		}()
	}
	wg.Wait()

	stats := p.Stats()
	assert.Equal(t, uint64(8*200), stats.Released)
	assert.Equal(t, stats.Created+stats.Reused, stats.Released)
}
