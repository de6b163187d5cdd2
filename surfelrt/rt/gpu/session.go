package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Logger is the subset of logging the gpu package needs.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}

type SessionOptions struct {
	Power PowerPreference
	// Surface is optional. When set, the adapter must be able to present to it.
	Surface *wgpu.Surface
	Logger  Logger
}

// Session owns one instance, adapter, device and queue. It is an explicit
// handle; callers pass it to the BufferManager and Close it when done.
type Session struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Info     AdapterInfo

	// Format is the preferred surface format, zero without a surface.
	Format wgpu.TextureFormat
}

// Acquire opens a compute session on the best available adapter.
func Acquire(opts SessionOptions) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, fmt.Errorf("%w: create instance", ErrBackend)
	}

	adapter, info, err := pickAdapter(instance, opts)
	if err != nil {
		instance.Release()
		return nil, err
	}
	log.Infof("selected adapter %s", info)

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "SurfelDevice"})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %v", ErrBackend, err)
	}

	s := &Session{
		Instance: instance,
		Adapter:  adapter,
		Device:   device,
		Queue:    device.GetQueue(),
		Info:     info,
	}
	if opts.Surface != nil {
		if formats := opts.Surface.GetCapabilities(adapter).Formats; len(formats) > 0 {
			s.Format = formats[0]
		}
	}
	return s, nil
}

func pickAdapter(instance *wgpu.Instance, opts SessionOptions) (*wgpu.Adapter, AdapterInfo, error) {
	if opts.Surface != nil {
		return requestCompatible(instance, opts)
	}

	adapters := instance.EnumerateAdapters(nil)
	infos := make([]AdapterInfo, len(adapters))
	for i, a := range adapters {
		infos[i] = convertInfo(a.GetInfo())
	}
	idx, err := SelectAdapter(infos, opts.Power)
	if err != nil {
		for _, a := range adapters {
			a.Release()
		}
		if len(adapters) == 0 {
			// Some platforms do not enumerate; fall back to the default request.
			return requestCompatible(instance, opts)
		}
		return nil, AdapterInfo{}, err
	}
	for i, a := range adapters {
		if i != idx {
			a.Release()
		}
	}
	return adapters[idx], infos[idx], nil
}

func requestCompatible(instance *wgpu.Instance, opts SessionOptions) (*wgpu.Adapter, AdapterInfo, error) {
	power := wgpu.PowerPreferenceHighPerformance
	if opts.Power == PowerLowPower {
		power = wgpu.PowerPreferenceLowPower
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: opts.Surface,
		PowerPreference:   power,
	})
	if err != nil || adapter == nil {
		return nil, AdapterInfo{}, fmt.Errorf("%w: %v", ErrNoAdapter, err)
	}
	info := convertInfo(adapter.GetInfo())
	if !info.Usable() {
		adapter.Release()
		return nil, AdapterInfo{}, fmt.Errorf("%w: %s", ErrNoAdapter, info)
	}
	return adapter, info, nil
}

// EnumerateAdapterInfos lists every adapter the instance reports, unfiltered.
func EnumerateAdapterInfos() []AdapterInfo {
	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil
	}
	defer instance.Release()
	adapters := instance.EnumerateAdapters(nil)
	infos := make([]AdapterInfo, len(adapters))
	for i, a := range adapters {
		infos[i] = convertInfo(a.GetInfo())
		a.Release()
	}
	return infos
}

func convertInfo(in wgpu.AdapterInfo) AdapterInfo {
	out := AdapterInfo{
		Name:   in.Name,
		Vendor: in.VendorName,
		Driver: in.DriverDescription,
	}
	switch in.BackendType {
	case wgpu.BackendTypeVulkan:
		out.Backend = BackendVulkan
	case wgpu.BackendTypeMetal:
		out.Backend = BackendMetal
	case wgpu.BackendTypeD3D12:
		out.Backend = BackendD3D12
	case wgpu.BackendTypeD3D11:
		out.Backend = BackendD3D11
	case wgpu.BackendTypeOpenGL:
		out.Backend = BackendOpenGL
	case wgpu.BackendTypeOpenGLES:
		out.Backend = BackendOpenGLES
	case wgpu.BackendTypeWebGPU:
		out.Backend = BackendBrowser
	case wgpu.BackendTypeNull:
		out.Backend = BackendNull
	}
	switch in.AdapterType {
	case wgpu.AdapterTypeDiscreteGPU:
		out.Type = AdapterDiscrete
	case wgpu.AdapterTypeIntegratedGPU:
		out.Type = AdapterIntegrated
	case wgpu.AdapterTypeCPU:
		out.Type = AdapterCPU
	}
	return out
}

// Close releases the queue, device, adapter and instance. Safe to call twice.
func (s *Session) Close() {
	if s == nil {
		return
	}
	if s.Queue != nil {
		s.Queue.Release()
		s.Queue = nil
	}
	if s.Device != nil {
		s.Device.Release()
		s.Device = nil
	}
	if s.Adapter != nil {
		s.Adapter.Release()
		s.Adapter = nil
	}
	if s.Instance != nil {
		s.Instance.Release()
		s.Instance = nil
	}
}
