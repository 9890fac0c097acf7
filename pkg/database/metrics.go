package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats is the part of *pgxpool.Pool the collector reads.
type PoolStats interface {
	Stat() *pgxpool.Stat
}

// PoolCollector exports pgxpool connection statistics.
type PoolCollector struct {
	pool PoolStats

	acquired *prometheus.Desc
	idle     *prometheus.Desc
	total    *prometheus.Desc
	max      *prometheus.Desc
	waits    *prometheus.Desc
	waitSecs *prometheus.Desc
}

func NewPoolCollector(pool PoolStats, service string) *PoolCollector {
	constLabels := prometheus.Labels{"service": service}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("db_pool_"+name, help, nil, constLabels)
	}
	return &PoolCollector{
		pool:     pool,
		acquired: desc("acquired_connections", "Connections currently checked out."),
		idle:     desc("idle_connections", "Connections currently idle."),
		total:    desc("total_connections", "Connections currently open."),
		max:      desc("max_connections", "Configured connection ceiling."),
		waits:    desc("empty_acquire_total", "Acquires that had to wait for a free connection."),
		waitSecs: desc("acquire_duration_seconds_total", "Cumulative time spent acquiring connections."),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.waits
	ch <- c.waitSecs
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.waitSecs, prometheus.CounterValue, s.AcquireDuration().Seconds())
}

// RegisterPoolMetrics registers a PoolCollector with reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool PoolStats, service string) error {
	return reg.Register(NewPoolCollector(pool, service))
}
