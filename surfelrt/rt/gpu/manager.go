package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/splatsurf/surfelrt/rt/splat"
)

// DefaultMaxPolls bounds the readback poll loop.
const DefaultMaxPolls = 10000

type computePipeline struct {
	layout   *wgpu.BindGroupLayout
	pipeline *wgpu.ComputePipeline
}

// BufferManager uploads splats, dispatches a kernel and either reads the
// surfels back or hands the output buffer over as a vertex source. Pipelines
// are cached per kernel label; every other buffer lives for one call.
type BufferManager struct {
	Session  *Session
	MaxPolls int
	Logger   Logger

	pipelines map[string]*computePipeline
}

func NewBufferManager(s *Session) *BufferManager {
	return &BufferManager{
		Session:   s,
		MaxPolls:  DefaultMaxPolls,
		Logger:    nopLogger{},
		pipelines: make(map[string]*computePipeline),
	}
}

// VertexSource is a device-resident surfel buffer usable as a vertex buffer.
// The caller owns it and must Release it.
type VertexSource struct {
	Buffer *wgpu.Buffer
	Count  int
	Layout splat.Layout
}

// VertexBufferLayout describes one surfel record: float32x3 attributes at each
// 16-byte slot, shader locations in slot order.
func (v *VertexSource) VertexBufferLayout() wgpu.VertexBufferLayout {
	return VertexLayout(v.Layout)
}

func (v *VertexSource) Release() {
	if v != nil && v.Buffer != nil {
		v.Buffer.Release()
		v.Buffer = nil
	}
}

func VertexLayout(layout splat.Layout) wgpu.VertexBufferLayout {
	attrs := make([]wgpu.VertexAttribute, layout.Attributes())
	for i := range attrs {
		attrs[i] = wgpu.VertexAttribute{
			Format:         wgpu.VertexFormatFloat32x3,
			Offset:         uint64(i * 16),
			ShaderLocation: uint32(i),
		}
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(layout.Stride()),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

// ExecuteAndReadback runs k over splats and returns the decoded surfels.
func (m *BufferManager) ExecuteAndReadback(k Kernel, splats []splat.GaussianSplat) ([]splat.Surfel, error) {
	outCount := k.OutputCount(len(splats))
	if len(splats) == 0 || outCount <= 0 {
		return nil, nil
	}
	size := uint64(outCount * k.Layout().Stride())

	res, err := m.dispatch(k, splats, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc, func(enc *wgpu.CommandEncoder, out *wgpu.Buffer) (*wgpu.Buffer, error) {
		staging, err := m.Session.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: k.Label() + "/Staging",
			Size:  size,
			Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		enc.CopyBufferToBuffer(out, 0, staging, 0, size)
		return staging, nil
	})
	if err != nil {
		return nil, err
	}
	res.output.Release()
	defer res.extra.Release()

	data, err := m.readback(res.extra, size)
	if err != nil {
		return nil, err
	}
	return splat.UnpackSurfels(k.Layout(), data), nil
}

// Execute runs k over splats and keeps the output on the device.
func (m *BufferManager) Execute(k Kernel, splats []splat.GaussianSplat) (*VertexSource, error) {
	outCount := k.OutputCount(len(splats))
	if len(splats) == 0 || outCount <= 0 {
		return &VertexSource{Layout: k.Layout()}, nil
	}
	res, err := m.dispatch(k, splats, wgpu.BufferUsageStorage|wgpu.BufferUsageVertex|wgpu.BufferUsageCopySrc, nil)
	if err != nil {
		return nil, err
	}
	return &VertexSource{Buffer: res.output, Count: outCount, Layout: k.Layout()}, nil
}

type dispatchResult struct {
	output *wgpu.Buffer
	extra  *wgpu.Buffer
}

// dispatch uploads, binds and submits one kernel invocation. after may record
// more commands into the same encoder and return a buffer to keep.
func (m *BufferManager) dispatch(
	k Kernel,
	splats []splat.GaussianSplat,
	outUsage wgpu.BufferUsage,
	after func(*wgpu.CommandEncoder, *wgpu.Buffer) (*wgpu.Buffer, error),
) (res dispatchResult, err error) {
	if m.Session == nil || m.Session.Device == nil {
		return res, fmt.Errorf("%w: no session", ErrBackend)
	}
	device := m.Session.Device

	cp, err := m.pipeline(k)
	if err != nil {
		return res, err
	}

	outCount := k.OutputCount(len(splats))
	var owned []*wgpu.Buffer
	defer func() {
		for _, b := range owned {
			b.Release()
		}
		if err != nil {
			if res.output != nil {
				res.output.Release()
			}
			if res.extra != nil {
				res.extra.Release()
			}
			res = dispatchResult{}
		}
	}()

	input, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    k.Label() + "/Input",
		Contents: splat.PackSplats(splats),
		Usage:    wgpu.BufferUsageStorage,
	})
	if err != nil {
		return res, fmt.Errorf("%w: input buffer: %v", ErrBackend, err)
	}
	owned = append(owned, input)

	res.output, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: k.Label() + "/Output",
		Size:  uint64(outCount * k.Layout().Stride()),
		Usage: outUsage,
	})
	if err != nil {
		return res, fmt.Errorf("%w: output buffer: %v", ErrBackend, err)
	}

	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: input, Size: wgpu.WholeSize},
		{Binding: 1, Buffer: res.output, Size: wgpu.WholeSize},
	}
	if params := k.Params(len(splats)); params != nil {
		pbuf, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    k.Label() + "/Params",
			Contents: params,
			Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return res, fmt.Errorf("%w: params buffer: %v", ErrBackend, err)
		}
		owned = append(owned, pbuf)
		entries = append(entries, wgpu.BindGroupEntry{Binding: 2, Buffer: pbuf, Size: wgpu.WholeSize})
	}

	bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   k.Label() + "/BG",
		Layout:  cp.layout,
		Entries: entries,
	})
	if err != nil {
		return res, fmt.Errorf("%w: bind group: %v", ErrBackend, err)
	}
	defer bg.Release()

	enc, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return res, fmt.Errorf("%w: encoder: %v", ErrBackend, err)
	}
	defer enc.Release()

	x, y := DispatchSize(Workgroups(outCount))
	pass := enc.BeginComputePass(nil)
	pass.SetPipeline(cp.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(x, y, 1)
	pass.End()
	pass.Release()

	if after != nil {
		res.extra, err = after(enc, res.output)
		if err != nil {
			return res, fmt.Errorf("%w: %v", ErrBackend, err)
		}
	}

	cb, err := enc.Finish(nil)
	if err != nil {
		return res, fmt.Errorf("%w: finish: %v", ErrBackend, err)
	}
	m.Session.Queue.Submit(cb)
	cb.Release()

	m.logger().Debugf("%s: dispatched %dx%d workgroups for %d outputs", k.Label(), x, y, outCount)
	return res, nil
}

func (m *BufferManager) logger() Logger {
	if m.Logger == nil {
		return nopLogger{}
	}
	return m.Logger
}

func (m *BufferManager) readback(staging *wgpu.Buffer, size uint64) ([]byte, error) {
	device := m.Session.Device
	maxPolls := m.MaxPolls
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}

	done := false
	var status wgpu.BufferMapAsyncStatus
	err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	if err != nil {
		return nil, fmt.Errorf("%w: map request: %v", ErrReadback, err)
	}
	for i := 0; i < maxPolls && !done; i++ {
		device.Poll(true, nil)
	}
	if !done {
		return nil, fmt.Errorf("%w: map did not complete after %d polls", ErrReadback, maxPolls)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("%w: map status %v", ErrReadback, status)
	}

	mapped := staging.GetMappedRange(0, uint(size))
	data := make([]byte, len(mapped))
	copy(data, mapped)
	staging.Unmap()
	return data, nil
}

func (m *BufferManager) pipeline(k Kernel) (*computePipeline, error) {
	if cp, ok := m.pipelines[k.Label()]; ok {
		return cp, nil
	}
	if m.pipelines == nil {
		m.pipelines = make(map[string]*computePipeline)
	}
	device := m.Session.Device

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          k.Label(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: k.Source()},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: shader %s: %v", ErrBackend, k.Label(), err)
	}
	defer module.Release()

	entries := []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage},
		},
	}
	if k.Params(0) != nil {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    2,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		})
	}
	bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   k.Label() + "/BGL",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: bind group layout: %v", ErrBackend, err)
	}

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            k.Label() + "/Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("%w: pipeline layout: %v", ErrBackend, err)
	}
	defer layout.Release()

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  k.Label(),
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("%w: compute pipeline: %v", ErrBackend, err)
	}

	cp := &computePipeline{layout: bgl, pipeline: pipeline}
	m.pipelines[k.Label()] = cp
	return cp, nil
}

// Release drops cached pipelines. The session is not closed.
func (m *BufferManager) Release() {
	for label, cp := range m.pipelines {
		cp.pipeline.Release()
		cp.layout.Release()
		delete(m.pipelines, label)
	}
}
