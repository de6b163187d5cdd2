package gpu

import (
	"errors"
	"fmt"
)

var (
	ErrNoAdapter = errors.New("gpu: no suitable adapter")
	ErrBackend   = errors.New("gpu: backend failure")
	ErrReadback  = errors.New("gpu: readback failed")
)

// PowerPreference biases the tie-break between adapters of the same backend
// rank.
type PowerPreference int

const (
	PowerHighPerformance PowerPreference = iota
	PowerLowPower
)

func ParsePowerPreference(name string) (PowerPreference, error) {
	switch name {
	case "", "high-performance":
		return PowerHighPerformance, nil
	case "low-power":
		return PowerLowPower, nil
	}
	return 0, fmt.Errorf("unknown power preference %q", name)
}

func (p PowerPreference) String() string {
	if p == PowerLowPower {
		return "low-power"
	}
	return "high-performance"
}

type Backend int

const (
	BackendUnknown Backend = iota
	BackendVulkan
	BackendMetal
	BackendD3D12
	BackendD3D11
	BackendOpenGL
	BackendOpenGLES
	BackendBrowser
	BackendNull
)

var backendNames = map[Backend]string{
	BackendUnknown:  "unknown",
	BackendVulkan:   "vulkan",
	BackendMetal:    "metal",
	BackendD3D12:    "d3d12",
	BackendD3D11:    "d3d11",
	BackendOpenGL:   "opengl",
	BackendOpenGLES: "opengles",
	BackendBrowser:  "webgpu",
	BackendNull:     "null",
}

func (b Backend) String() string {
	if n, ok := backendNames[b]; ok {
		return n
	}
	return "unknown"
}

type AdapterType int

const (
	AdapterUnknown AdapterType = iota
	AdapterDiscrete
	AdapterIntegrated
	AdapterCPU
)

func (t AdapterType) String() string {
	switch t {
	case AdapterDiscrete:
		return "discrete"
	case AdapterIntegrated:
		return "integrated"
	case AdapterCPU:
		return "cpu"
	default:
		return "unknown"
	}
}

// AdapterInfo is the backend-neutral view of an enumerated adapter.
type AdapterInfo struct {
	Name    string
	Vendor  string
	Driver  string
	Backend Backend
	Type    AdapterType
}

func (a AdapterInfo) String() string {
	return fmt.Sprintf("%s (%s, %s, %s)", a.Name, a.Backend, a.Type, a.Vendor)
}

// Usable reports whether the adapter may run compute at all: software
// adapters and browser-delegated or null backends are excluded.
func (a AdapterInfo) Usable() bool {
	if a.Type == AdapterCPU {
		return false
	}
	return a.Backend != BackendBrowser && a.Backend != BackendNull
}

// backendRank orders primary native APIs before secondary ones.
func backendRank(b Backend) int {
	switch b {
	case BackendVulkan, BackendMetal, BackendD3D12:
		return 0
	case BackendOpenGL, BackendOpenGLES, BackendD3D11:
		return 1
	default:
		return 2
	}
}

func typeRank(t AdapterType, pref PowerPreference) int {
	first, second := AdapterDiscrete, AdapterIntegrated
	if pref == PowerLowPower {
		first, second = second, first
	}
	switch t {
	case first:
		return 0
	case second:
		return 1
	default:
		return 2
	}
}

// SelectAdapter returns the index of the preferred usable adapter. Ranking is
// backend tier, then adapter type under pref, then enumeration order.
func SelectAdapter(infos []AdapterInfo, pref PowerPreference) (int, error) {
	best := -1
	for i, info := range infos {
		if !info.Usable() {
			continue
		}
		if best < 0 || better(info, infos[best], pref) {
			best = i
		}
	}
	if best < 0 {
		return -1, ErrNoAdapter
	}
	return best, nil
}

func better(a, b AdapterInfo, pref PowerPreference) bool {
	if ra, rb := backendRank(a.Backend), backendRank(b.Backend); ra != rb {
		return ra < rb
	}
	return typeRank(a.Type, pref) < typeRank(b.Type, pref)
}
