package navigator

import (
	"sort"
	"sync"

	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/vec"
)

// NextPoint — последняя сообщённая следующая точка юнита
type NextPoint struct {
	Index int      `json:"index"`
	Func  string   `json:"func"`
	Point vec.Vec2 `json:"point"`
}

// DiagnosisRecorder хранит следующие точки юнитов для отладочного вывода
type DiagnosisRecorder struct {
	mu     sync.RWMutex
	points map[int]NextPoint
}

// NewDiagnosisRecorder создаёт пустой регистратор
func NewDiagnosisRecorder() *DiagnosisRecorder {
	return &DiagnosisRecorder{points: make(map[int]NextPoint)}
}

// SetNextPoint реализует pathfind.Diagnosis
func (d *DiagnosisRecorder) SetNextPoint(fn pathfind.Func, index int, point vec.Vec2) {
	d.mu.Lock()
	d.points[index] = NextPoint{Index: index, Func: fn.String(), Point: point}
	d.mu.Unlock()
}

// RemoveNextPoint реализует pathfind.Diagnosis
func (d *DiagnosisRecorder) RemoveNextPoint(_ pathfind.Func, index int) {
	d.mu.Lock()
	delete(d.points, index)
	d.mu.Unlock()
}

// Get возвращает точку юнита
func (d *DiagnosisRecorder) Get(index int) (NextPoint, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.points[index]
	return p, ok
}

// Snapshot возвращает все точки, упорядоченные по индексу юнита
func (d *DiagnosisRecorder) Snapshot() []NextPoint {
	d.mu.RLock()
	list := make([]NextPoint, 0, len(d.points))
	for _, p := range d.points {
		list = append(list, p)
	}
	d.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Index < list[j].Index })
	return list
}
