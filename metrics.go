package splatsurf

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Path labels.
const (
	pathDevice = "device"
	pathHost   = "host"
	pathCPU    = "cpu"
)

// Metrics groups the Manager's Prometheus collectors.
type Metrics struct {
	Dispatches    *prometheus.CounterVec
	Surfels       *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	ReadbackBytes prometheus.Counter
	Fallbacks     prometheus.Counter
}

// NewMetrics registers collectors on reg. A nil reg yields unregistered
// collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Dispatches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splatsurf_dispatches_total",
				Help: "Kernel dispatches by kernel and execution path",
			},
			[]string{"kernel", "path"},
		),
		Surfels: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splatsurf_surfels_total",
				Help: "Surfels produced by kernel",
			},
			[]string{"kernel"},
		),
		Duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "splatsurf_dispatch_seconds",
				Help:    "Wall time of one compute operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kernel", "path"},
		),
		ReadbackBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "splatsurf_readback_bytes_total",
			Help: "Bytes copied back from the device",
		}),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "splatsurf_cpu_fallbacks_total",
			Help: "Device operations served by the host dispatcher",
		}),
	}
}
