package workerpool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Submitted  int64         `json:"submitted"`
	Completed  int64         `json:"completed"` // includes failed
	Failed     int64         `json:"failed"`
	Dropped    int64         `json:"dropped"`
	Rejected   int64         `json:"rejected"`
	QueueDepth int           `json:"queue_depth"`
	QueueCap   int           `json:"queue_cap"`
	Active     int           `json:"active"`
	Workers    int           `json:"workers"`
	BusyTime   time.Duration `json:"busy_time"`
	Uptime     time.Duration `json:"uptime"`
}

// Stats returns the current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted:  p.submitted.Load(),
		Completed:  p.completed.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
		Rejected:   p.rejected.Load(),
		QueueDepth: len(p.tasks),
		QueueCap:   cap(p.tasks),
		Active:     int(p.active.Load()),
		Workers:    int(p.workers.Load()),
		BusyTime:   time.Duration(p.busyNanos.Load()),
		Uptime:     time.Since(p.started),
	}
}

// AvgLatency is the mean processing time of completed tasks.
func (s Stats) AvgLatency() time.Duration {
	if s.Completed == 0 {
		return 0
	}
	return s.BusyTime / time.Duration(s.Completed)
}

// Throughput is completed tasks per second of pool uptime.
func (s Stats) Throughput() float64 {
	if s.Uptime <= 0 {
		return 0
	}
	return float64(s.Completed) / s.Uptime.Seconds()
}

// Collector exports a pool's Stats to Prometheus.
type Collector struct {
	pool *Pool

	submitted  *prometheus.Desc
	completed  *prometheus.Desc
	failed     *prometheus.Desc
	dropped    *prometheus.Desc
	rejected   *prometheus.Desc
	queueDepth *prometheus.Desc
	active     *prometheus.Desc
	workers    *prometheus.Desc
	busy       *prometheus.Desc
}

// NewCollector returns a collector labelled pool=name.
func NewCollector(p *Pool, name string) *Collector {
	labels := prometheus.Labels{"pool": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc("prospect_workerpool_"+metric, help, nil, labels)
	}
	return &Collector{
		pool:       p,
		submitted:  desc("tasks_submitted_total", "Tasks accepted into the queue."),
		completed:  desc("tasks_completed_total", "Tasks that finished running, including failures."),
		failed:     desc("tasks_failed_total", "Tasks that returned an error or panicked."),
		dropped:    desc("tasks_dropped_total", "Queued tasks discarded by shutdown."),
		rejected:   desc("tasks_rejected_total", "Submissions refused because the queue was full."),
		queueDepth: desc("queue_depth", "Tasks waiting in the queue."),
		active:     desc("active_workers", "Workers currently running a task."),
		workers:    desc("workers", "Configured worker count."),
		busy:       desc("busy_seconds_total", "Cumulative task processing time."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.submitted, c.completed, c.failed, c.dropped, c.rejected,
		c.queueDepth, c.active, c.workers, c.busy,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v)
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter(c.submitted, float64(s.Submitted))
	counter(c.completed, float64(s.Completed))
	counter(c.failed, float64(s.Failed))
	counter(c.dropped, float64(s.Dropped))
	counter(c.rejected, float64(s.Rejected))
	gauge(c.queueDepth, float64(s.QueueDepth))
	gauge(c.active, float64(s.Active))
	gauge(c.workers, float64(s.Workers))
	counter(c.busy, s.BusyTime.Seconds())
}
