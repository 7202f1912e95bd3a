// Package metrics содержит Prometheus-метрики движка поиска пути.
//
// Метрики:
// * queries_total{kind,result} — counter
// * query_duration_seconds{kind} — histogram
// * query_expanded_nodes{kind} — histogram
// * mutations_total{op,result} — counter
// * agents / obstacles / portals — gauge
// * ticks_total, agent_steps_total, portal_crossings_total — counter
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector — набор метрик. Методы безопасны для nil-получателя.
type Collector struct {
	queries    *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	expanded   *prometheus.HistogramVec
	mutations  *prometheus.CounterVec
	agents     prometheus.Gauge
	obstacles  prometheus.Gauge
	portals    prometheus.Gauge
	ticks      prometheus.Counter
	steps      prometheus.Counter
	crossings  prometheus.Counter
	collectors []prometheus.Collector
	registerer prometheus.Registerer
}

// New создаёт метрики и регистрирует их в reg (nil — дефолтный регистр)
func New(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Число запросов к движку по виду и результату.",
		}, []string{"kind", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Длительность запросов к движку.",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"kind"}),
		expanded: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_expanded_nodes",
			Help:      "Число раскрытых узлов на запрос пути.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
		}, []string{"kind"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Изменения реестра по операции и результату.",
		}, []string{"op", "result"}),
		agents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents",
			Help:      "Текущее число юнитов.",
		}),
		obstacles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "obstacles",
			Help:      "Текущее число препятствий.",
		}),
		portals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portals",
			Help:      "Текущее число порталов.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Число тиков движения.",
		}),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_steps_total",
			Help:      "Шаги юнитов на клетку.",
		}),
		crossings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "portal_crossings_total",
			Help:      "Переходы юнитов через порталы.",
		}),
		registerer: reg,
	}

	c.collectors = []prometheus.Collector{
		c.queries, c.latency, c.expanded, c.mutations,
		c.agents, c.obstacles, c.portals, c.ticks, c.steps, c.crossings,
	}
	reg.MustRegister(c.collectors...)
	return c
}

// Unregister снимает метрики с регистра
func (c *Collector) Unregister() {
	if c == nil {
		return
	}
	for _, col := range c.collectors {
		c.registerer.Unregister(col)
	}
}

// ObserveQuery учитывает запрос: found — маршрут/достижимость получены
func (c *Collector) ObserveQuery(kind string, found bool, d time.Duration, expanded int) {
	if c == nil {
		return
	}
	result := "miss"
	if found {
		result = "hit"
	}
	c.queries.WithLabelValues(kind, result).Inc()
	c.latency.WithLabelValues(kind).Observe(d.Seconds())
	if expanded > 0 {
		c.expanded.WithLabelValues(kind).Observe(float64(expanded))
	}
}

// ObserveMutation учитывает изменение реестра
func (c *Collector) ObserveMutation(op string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.mutations.WithLabelValues(op, result).Inc()
}

// SetCounts обновляет размеры реестра
func (c *Collector) SetCounts(agents, obstacles, portals int) {
	if c == nil {
		return
	}
	c.agents.Set(float64(agents))
	c.obstacles.Set(float64(obstacles))
	c.portals.Set(float64(portals))
}

// ObserveTick учитывает тик движения
func (c *Collector) ObserveTick(steps, crossings int) {
	if c == nil {
		return
	}
	c.ticks.Inc()
	c.steps.Add(float64(steps))
	c.crossings.Add(float64(crossings))
}
