package splatsurf

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gekko3d/splatsurf/surfelrt/rt/gpu"
)

type ManagerBuilder struct {
	cfg      Config
	logger   Logger
	registry prometheus.Registerer
	metrics  *Metrics
	acquire  SessionFactory
}

func NewManagerBuilder() *ManagerBuilder {
	return &ManagerBuilder{cfg: DefaultConfig()}
}

func (b *ManagerBuilder) WithConfig(cfg Config) *ManagerBuilder {
	b.cfg = cfg

	return b
}

func (b *ManagerBuilder) WithLogger(l Logger) *ManagerBuilder {
	b.logger = l

	return b
}

// WithRegisterer registers the Manager's collectors on reg.
func (b *ManagerBuilder) WithRegisterer(reg prometheus.Registerer) *ManagerBuilder {
	b.registry = reg

	return b
}

// WithMetrics shares already registered collectors between managers.
func (b *ManagerBuilder) WithMetrics(m *Metrics) *ManagerBuilder {
	b.metrics = m

	return b
}

func (b *ManagerBuilder) WithSessionFactory(f SessionFactory) *ManagerBuilder {
	b.acquire = f

	return b
}

func (b *ManagerBuilder) Build() (*Manager, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:     b.cfg,
		log:     b.logger,
		metrics: b.metrics,
		acquire: b.acquire,
		clouds:  newRegistry(),
	}
	if m.log == nil {
		m.log = NewDefaultLogger(b.cfg.LogPrefix, b.cfg.Debug)
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(b.registry)
	}
	if m.acquire == nil {
		m.acquire = gpu.Acquire
	}
	return m, nil
}
