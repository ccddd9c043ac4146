package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports cache events as Prometheus counters labelled by cache name.
type Metrics struct {
	reg       prometheus.Registerer
	lookups   *prometheus.CounterVec
	evictions *prometheus.CounterVec
}

// NewMetrics registers the cache collectors with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reg: reg,
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routecache",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routecache",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries removed by capacity or expiry.",
		}, []string{"cache", "reason"}),
	}
	for _, c := range []prometheus.Collector{m.lookups, m.evictions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observer returns an [Observer] that counts events for the named cache.
func (m *Metrics) Observer(name string) Observer {
	return &metricsObserver{
		hit:      m.lookups.WithLabelValues(name, "hit"),
		miss:     m.lookups.WithLabelValues(name, "miss"),
		capacity: m.evictions.WithLabelValues(name, EvictCapacity.String()),
		expired:  m.evictions.WithLabelValues(name, EvictExpired.String()),
	}
}

// TrackSize exports the result of size as the current entry count of the
// named cache.
func (m *Metrics) TrackSize(name string, size func() int) error {
	return m.reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "routecache",
		Subsystem:   "cache",
		Name:        "entries",
		Help:        "Stored entries, including expired ones not yet accessed.",
		ConstLabels: prometheus.Labels{"cache": name},
	}, func() float64 { return float64(size()) }))
}

type metricsObserver struct {
	hit, miss         prometheus.Counter
	capacity, expired prometheus.Counter
}

func (o *metricsObserver) Hit()  { o.hit.Inc() }
func (o *metricsObserver) Miss() { o.miss.Inc() }

func (o *metricsObserver) Evicted(reason EvictReason) {
	switch reason {
	case EvictCapacity:
		o.capacity.Inc()
	case EvictExpired:
		o.expired.Inc()
	}
}
