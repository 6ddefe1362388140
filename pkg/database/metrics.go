package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolStat is what the collector reads from a pool on every scrape.
type poolStat struct {
	acquired, idle, total, max int32
	acquireCount, emptyAcquire int64
	acquireSeconds             float64
}

// PoolStatsCollector exports pgxpool statistics.
type PoolStatsCollector struct {
	stat    func() poolStat
	service string

	acquiredConns   *prometheus.Desc
	idleConns       *prometheus.Desc
	totalConns      *prometheus.Desc
	maxConns        *prometheus.Desc
	acquireCount    *prometheus.Desc
	emptyAcquires   *prometheus.Desc
	acquireDuration *prometheus.Desc
}

// NewPoolStatsCollector creates a collector for pool labelled with service.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	return newPoolStatsCollector(func() poolStat {
		s := pool.Stat()
		return poolStat{
			acquired:       s.AcquiredConns(),
			idle:           s.IdleConns(),
			total:          s.TotalConns(),
			max:            s.MaxConns(),
			acquireCount:   s.AcquireCount(),
			emptyAcquire:   s.EmptyAcquireCount(),
			acquireSeconds: s.AcquireDuration().Seconds(),
		}
	}, service)
}

func newPoolStatsCollector(stat func() poolStat, service string) *PoolStatsCollector {
	labels := []string{"service"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("db_pool_"+name, help, labels, nil)
	}
	return &PoolStatsCollector{
		stat:            stat,
		service:         service,
		acquiredConns:   desc("acquired_connections", "Number of currently acquired connections"),
		idleConns:       desc("idle_connections", "Number of currently idle connections"),
		totalConns:      desc("total_connections", "Total number of connections in the pool"),
		maxConns:        desc("max_connections", "Maximum number of connections allowed"),
		acquireCount:    desc("acquire_count_total", "Total number of connection acquires"),
		emptyAcquires:   desc("empty_acquire_count_total", "Acquires that had to wait for a connection"),
		acquireDuration: desc("acquire_duration_seconds_total", "Total time spent acquiring connections"),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredConns
	ch <- c.idleConns
	ch <- c.totalConns
	ch <- c.maxConns
	ch <- c.acquireCount
	ch <- c.emptyAcquires
	ch <- c.acquireDuration
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stat()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, c.service)
	}
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, c.service)
	}

	gauge(c.acquiredConns, float64(s.acquired))
	gauge(c.idleConns, float64(s.idle))
	gauge(c.totalConns, float64(s.total))
	gauge(c.maxConns, float64(s.max))
	counter(c.acquireCount, float64(s.acquireCount))
	counter(c.emptyAcquires, float64(s.emptyAcquire))
	counter(c.acquireDuration, s.acquireSeconds)
}
