package splatsurf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gekko3d/splatsurf/surfelrt/rt/core"
	"github.com/gekko3d/splatsurf/surfelrt/rt/gpu"
	"github.com/gekko3d/splatsurf/surfelrt/rt/splat"
)

// SessionFactory opens a compute session. gpu.Acquire is the default.
type SessionFactory func(gpu.SessionOptions) (*gpu.Session, error)

// Manager owns loaded point clouds and the compute session that transforms
// them. Operations are serialized; at most one computation is in flight.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	log     Logger
	metrics *Metrics
	acquire SessionFactory

	session *gpu.Session
	buffers *gpu.BufferManager
	clouds  *registry
}

// NewManager builds a Manager from cfg with default collaborators. Use
// ManagerBuilder to inject a logger, metrics or a session factory.
func NewManager(cfg Config) (*Manager, error) {
	return NewManagerBuilder().WithConfig(cfg).Build()
}

func (m *Manager) Config() Config { return m.cfg }

// Load reads and decodes a splat file.
func (m *Manager) Load(path string) (Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	return m.LoadBytes(filepath.Base(path), data)
}

// LoadBytes decodes an in-memory splat file.
func (m *Manager) LoadBytes(name string, data []byte) (Handle, error) {
	splats, err := splat.Decode(data)
	if err != nil {
		return "", classify(fmt.Errorf("%s: %w", name, err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.clouds.add(&cloud{name: name, splats: splats})
	m.log.Infof("loaded %s: %d splats", name, len(splats))
	return h, nil
}

// Count returns the number of splats behind h.
func (m *Manager) Count(h Handle) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.clouds.get(h)
	if err != nil {
		return 0, err
	}
	return len(c.splats), nil
}

// SurfelCount returns the number of surfels from the last successful
// computation on h.
func (m *Manager) SurfelCount(h Handle) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.clouds.get(h)
	if err != nil {
		return 0, err
	}
	return len(c.surfels), nil
}

// SurfelLayout reports the record layout of the stored surfels.
func (m *Manager) SurfelLayout(h Handle) (splat.Layout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.clouds.get(h)
	if err != nil {
		return 0, err
	}
	return c.layout, nil
}

// SplatField returns one attribute of splat i: pos, opacity, scale, rot or sh.
func (m *Manager) SplatField(h Handle, i int, field string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.clouds.get(h)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(c.splats) {
		return nil, fmt.Errorf("%w: splat %d of %d", ErrIndex, i, len(c.splats))
	}
	s := c.splats[i]
	switch field {
	case "pos":
		return s.Pos[:], nil
	case "opacity":
		return []float32{s.Opacity}, nil
	case "scale":
		return s.Scale[:], nil
	case "rot":
		return s.Rot[:], nil
	case "sh":
		return s.SH[:], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// SurfelField returns one attribute of surfel i: pos, color, normal, cov0,
// cov1 or cov2.
func (m *Manager) SurfelField(h Handle, i int, field string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.clouds.get(h)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(c.surfels) {
		return nil, fmt.Errorf("%w: surfel %d of %d", ErrIndex, i, len(c.surfels))
	}
	s := c.surfels[i]
	switch field {
	case "pos":
		return s.Pos[:], nil
	case "color":
		return s.Color[:], nil
	case "normal":
		return s.Normal[:], nil
	case "cov0":
		return s.Cov[0][:], nil
	case "cov1":
		return s.Cov[1][:], nil
	case "cov2":
		return s.Cov[2][:], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// ComputeGeometry runs the geometry kernel on the device and stores the
// surfels. On failure the previous surfels are kept.
func (m *Manager) ComputeGeometry(h Handle) (int, error) {
	return m.compute(h, gpu.NewGeometryKernel(m.cfg.variant()), true)
}

// ComputeGeometryCPU runs the reference decoder on the host.
func (m *Manager) ComputeGeometryCPU(h Handle) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.clouds.get(h)
	if err != nil {
		return 0, err
	}
	dec := core.NewDecoder(m.cfg.variant())
	start := time.Now()
	surfels := core.DecodeAll(dec, c.splats)
	m.observe("Geometry/"+dec.Variant().String(), pathCPU, len(surfels), start)
	c.store(surfels, dec.Layout())
	return len(surfels), nil
}

// ComputeSuperResolution runs the upsampling kernel on the device.
func (m *Manager) ComputeSuperResolution(h Handle, factor int) (int, error) {
	return m.upsample(h, factor, true)
}

// ComputeSuperResolutionCPU runs the upsampling kernel's host mirror.
func (m *Manager) ComputeSuperResolutionCPU(h Handle, factor int) (int, error) {
	return m.upsample(h, factor, false)
}

// upsample rejects factors whose output count does not fit the kernel's u32
// indices.
func (m *Manager) upsample(h Handle, factor int, device bool) (int, error) {
	if factor < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidFactor, factor)
	}
	n, err := m.Count(h)
	if err != nil {
		return 0, err
	}
	if uint64(factor) > math.MaxUint32 || uint64(n)*uint64(factor) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d x %d surfels exceeds %d", ErrInvalidFactor, n, factor, uint32(math.MaxUint32))
	}
	return m.compute(h, gpu.UpsampleKernel{Factor: factor}, device)
}

func (m *Manager) compute(h Handle, k gpu.Kernel, device bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.clouds.get(h)
	if err != nil {
		return 0, err
	}
	if len(c.splats) == 0 {
		c.store(nil, k.Layout())
		return 0, nil
	}

	var surfels []splat.Surfel
	if device {
		surfels, err = m.runDevice(k, c.splats)
		if errors.Is(err, gpu.ErrNoAdapter) && m.cfg.FallbackToCPU {
			m.log.Warnf("%s: no adapter, running on host", k.Label())
			m.metrics.Fallbacks.Inc()
			device = false
		} else if err != nil {
			m.log.Errorf("%s on %s failed: %v", k.Label(), c.name, err)
			return 0, classify(err)
		}
	}
	if !device {
		start := time.Now()
		var stats gpu.DispatchStats
		surfels, stats, err = gpu.HostDispatch(context.Background(), k, c.splats)
		if err != nil {
			return 0, err
		}
		m.observe(k.Label(), pathHost, len(surfels), start)
		m.log.Debugf("%s: host dispatch %d workgroups, %d/%d active", k.Label(), stats.Workgroups, stats.Active, stats.Invocations)
	}

	c.store(surfels, k.Layout())
	return len(surfels), nil
}

func (m *Manager) runDevice(k gpu.Kernel, splats []splat.GaussianSplat) ([]splat.Surfel, error) {
	if err := m.ensureSession(); err != nil {
		return nil, err
	}
	if !m.cfg.ReuseSession {
		defer m.closeSession()
	}
	start := time.Now()
	surfels, err := m.buffers.ExecuteAndReadback(k, splats)
	if err != nil {
		return nil, err
	}
	m.metrics.ReadbackBytes.Add(float64(len(surfels) * k.Layout().Stride()))
	m.observe(k.Label(), pathDevice, len(surfels), start)
	return surfels, nil
}

// UploadVertices runs the geometry kernel and keeps the output on the device
// for drawing. The caller releases the returned source.
func (m *Manager) UploadVertices(h Handle) (*gpu.VertexSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.clouds.get(h)
	if err != nil {
		return nil, err
	}
	k := gpu.NewGeometryKernel(m.cfg.variant())
	if len(c.splats) == 0 {
		return &gpu.VertexSource{Layout: k.Layout()}, nil
	}
	if err := m.ensureSession(); err != nil {
		return nil, classify(err)
	}
	start := time.Now()
	vs, err := m.buffers.Execute(k, c.splats)
	if err != nil {
		return nil, classify(err)
	}
	m.observe(k.Label(), pathDevice, vs.Count, start)
	return vs, nil
}

func (m *Manager) ensureSession() error {
	if m.session != nil {
		return nil
	}
	s, err := m.acquire(gpu.SessionOptions{Power: m.cfg.power(), Logger: m.log})
	if err != nil {
		return err
	}
	m.session = s
	m.buffers = gpu.NewBufferManager(s)
	m.buffers.MaxPolls = m.cfg.MaxPolls
	m.buffers.Logger = m.log
	return nil
}

func (m *Manager) closeSession() {
	if m.buffers != nil {
		m.buffers.Release()
		m.buffers = nil
	}
	if m.session != nil {
		m.session.Close()
		m.session = nil
	}
}

func (m *Manager) observe(kernel, path string, surfels int, start time.Time) {
	m.metrics.Dispatches.WithLabelValues(kernel, path).Inc()
	m.metrics.Surfels.WithLabelValues(kernel).Add(float64(surfels))
	m.metrics.Duration.WithLabelValues(kernel, path).Observe(time.Since(start).Seconds())
}

// SavePLY writes the surfels of h as ASCII PLY. Colors are only meaningful
// for the color-normal layout; normal-covariance surfels export as black.
func (m *Manager) SavePLY(h Handle, path string) error {
	return m.save(h, path, splat.WritePLY)
}

// SavePCD writes the surfels of h as ASCII PCD, with the same color caveat
// as SavePLY.
func (m *Manager) SavePCD(h Handle, path string) error {
	return m.save(h, path, splat.WritePCD)
}

// ExportPLY returns the ASCII PLY text for h, with the same color caveat as
// SavePLY.
func (m *Manager) ExportPLY(h Handle) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.clouds.get(h)
	if err != nil {
		return nil, err
	}
	m.warnColorless(c)
	var buf bytes.Buffer
	if err := splat.WritePLY(&buf, c.surfels); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Manager) save(h Handle, path string, write func(w io.Writer, s []splat.Surfel) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.clouds.get(h)
	if err != nil {
		return err
	}
	m.warnColorless(c)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := write(f, c.surfels); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	m.log.Infof("wrote %d surfels to %s", len(c.surfels), path)
	return nil
}

func (m *Manager) warnColorless(c *cloud) {
	if len(c.surfels) > 0 && !c.layout.HasColor() {
		m.log.Warnf("%s: %s surfels carry no color, exporting black", c.name, c.layout)
	}
}

// Release forgets h. Unknown handles report ErrUnknownHandle.
func (m *Manager) Release(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.clouds.remove(h) {
		return ErrUnknownHandle
	}
	return nil
}

// Handles lists the live handles in no particular order.
func (m *Manager) Handles() []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clouds.handles()
}

// Close releases the compute session and every cloud.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeSession()
	m.clouds = newRegistry()
}

func (c *cloud) store(surfels []splat.Surfel, layout splat.Layout) {
	c.surfels = surfels
	c.layout = layout
}
