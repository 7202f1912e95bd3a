// Package pool содержит пулы коллекций для горячего пути поиска пути.
//
// Пул не потокобезопасен сам по себе: блокировка берётся только если
// вызывающий передал needLock=true (вызов не из владеющего потока).
// Смешивать вызовы с блокировкой и без неё из разных горутин нельзя.
package pool

import (
	"sync"
	"sync/atomic"
)

// DefaultMaxIdle ограничивает число свободных коллекций в одном пуле
const DefaultMaxIdle = 64

// Lists выдаёт и принимает срезы
type Lists[T any] interface {
	Alloc(needLock bool) []T
	Release(s []T, needLock bool)
}

// Sets выдаёт и принимает множества
type Sets[K comparable] interface {
	Alloc(needLock bool) map[K]struct{}
	Release(m map[K]struct{}, needLock bool)
}

// Maps выдаёт и принимает словари
type Maps[K comparable, V any] interface {
	Alloc(needLock bool) map[K]V
	Release(m map[K]V, needLock bool)
}

// Stats агрегированные счётчики пула
type Stats struct {
	Created  uint64 // Коллекций создано с нуля
	Reused   uint64 // Коллекций выдано повторно
	Released uint64 // Коллекций возвращено
	Dropped  uint64 // Возвращённых коллекций, не поместившихся в пул
}

type counters struct {
	created  atomic.Uint64
	reused   atomic.Uint64
	released atomic.Uint64
	dropped  atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Created:  c.created.Load(),
		Reused:   c.reused.Load(),
		Released: c.released.Load(),
		Dropped:  c.dropped.Load(),
	}
}

// ListPool пул срезов []T
type ListPool[T any] struct {
	mu       sync.Mutex
	free     [][]T
	capacity int
	maxIdle  int
	stats    counters
}

// NewListPool создаёт пул срезов начальной ёмкости capacity
func NewListPool[T any](capacity int) *ListPool[T] {
	return &ListPool[T]{capacity: capacity, maxIdle: DefaultMaxIdle}
}

// Alloc возвращает пустой срез
func (p *ListPool[T]) Alloc(needLock bool) []T {
	if needLock {
		p.mu.Lock()
		defer p.mu.Unlock()
	}

	n := len(p.free)
	if n == 0 {
		p.stats.created.Add(1)
		return make([]T, 0, p.capacity)
	}
	s := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	p.stats.reused.Add(1)
	return s
}

// Release возвращает срез в пул. После вызова срез использовать нельзя.
func (p *ListPool[T]) Release(s []T, needLock bool) {
	if s == nil {
		return
	}
	clear(s)
	s = s[:0]

	if needLock {
		p.mu.Lock()
		defer p.mu.Unlock()
	}

	p.stats.released.Add(1)
	if len(p.free) >= p.maxIdle {
		p.stats.dropped.Add(1)
		return
	}
	p.free = append(p.free, s)
}

// Stats возвращает счётчики пула
func (p *ListPool[T]) Stats() Stats { return p.stats.snapshot() }

// SetPool пул множеств map[K]struct{}
type SetPool[K comparable] struct {
	mu      sync.Mutex
	free    []map[K]struct{}
	maxIdle int
	stats   counters
}

// NewSetPool создаёт пул множеств
func NewSetPool[K comparable]() *SetPool[K] {
	return &SetPool[K]{maxIdle: DefaultMaxIdle}
}

// Alloc возвращает пустое множество
func (p *SetPool[K]) Alloc(needLock bool) map[K]struct{} {
	if needLock {
		p.mu.Lock()
		defer p.mu.Unlock()
	}

	n := len(p.free)
	if n == 0 {
		p.stats.created.Add(1)
		return make(map[K]struct{})
	}
	m := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	p.stats.reused.Add(1)
	return m
}

// Release очищает множество и возвращает его в пул
func (p *SetPool[K]) Release(m map[K]struct{}, needLock bool) {
	if m == nil {
		return
	}
	clear(m)

	if needLock {
		p.mu.Lock()
		defer p.mu.Unlock()
	}

	p.stats.released.Add(1)
	if len(p.free) >= p.maxIdle {
		p.stats.dropped.Add(1)
		return
	}
	p.free = append(p.free, m)
}

// Stats возвращает счётчики пула
func (p *SetPool[K]) Stats() Stats { return p.stats.snapshot() }

// MapPool пул словарей map[K]V
type MapPool[K comparable, V any] struct {
	mu      sync.Mutex
	free    []map[K]V
	maxIdle int
	stats   counters
}

// NewMapPool создаёт пул словарей
func NewMapPool[K comparable, V any]() *MapPool[K, V] {
	return &MapPool[K, V]{maxIdle: DefaultMaxIdle}
}

// Alloc возвращает пустой словарь
func (p *MapPool[K, V]) Alloc(needLock bool) map[K]V {
	if needLock {
		p.mu.Lock()
		defer p.mu.Unlock()
	}

	n := len(p.free)
	if n == 0 {
		p.stats.created.Add(1)
		return make(map[K]V)
	}
	m := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	p.stats.reused.Add(1)
	return m
}

// Release очищает словарь и возвращает его в пул
func (p *MapPool[K, V]) Release(m map[K]V, needLock bool) {
	if m == nil {
		return
	}
	clear(m)

	if needLock {
		p.mu.Lock()
		defer p.mu.Unlock()
	}

	p.stats.released.Add(1)
	if len(p.free) >= p.maxIdle {
		p.stats.dropped.Add(1)
		return
	}
	p.free = append(p.free, m)
}

// Stats возвращает счётчики пула
func (p *MapPool[K, V]) Stats() Stats { return p.stats.snapshot() }
