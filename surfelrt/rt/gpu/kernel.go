package gpu

import (
	"encoding/binary"

	"github.com/gekko3d/splatsurf/surfelrt/rt/core"
	"github.com/gekko3d/splatsurf/surfelrt/rt/shaders"
	"github.com/gekko3d/splatsurf/surfelrt/rt/splat"
)

const (
	WorkgroupSize = 64
	// MaxWorkgroupsPerDim is the per-dimension dispatch limit.
	MaxWorkgroupsPerDim = 65535
)

// Kernel is a compute program plus its host mirror. Invoke runs one
// invocation on the host with the same bounds guard as the WGSL and reports
// whether it wrote an output.
type Kernel interface {
	Label() string
	Source() string
	Layout() splat.Layout
	OutputCount(inputs int) int
	// Params returns the uniform block, or nil when the kernel takes none.
	Params(inputs int) []byte
	Invoke(i int, in []splat.GaussianSplat, out []splat.Surfel) bool
}

// Workgroups returns ceil(n / WorkgroupSize).
func Workgroups(n int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((n + WorkgroupSize - 1) / WorkgroupSize)
}

// DispatchSize folds a workgroup count into x/y when it exceeds the
// per-dimension limit. Kernels linearize as gid.x + gid.y * x * WorkgroupSize.
func DispatchSize(workgroups uint32) (x, y uint32) {
	if workgroups <= MaxWorkgroupsPerDim {
		return workgroups, 1
	}
	x = MaxWorkgroupsPerDim
	y = (workgroups + x - 1) / x
	return x, y
}

// GeometryKernel maps one splat to one surfel with the given decoder.
type GeometryKernel struct {
	Decoder core.Decoder
}

func NewGeometryKernel(v core.Variant) GeometryKernel {
	return GeometryKernel{Decoder: core.NewDecoder(v)}
}

func (k GeometryKernel) Label() string { return "Geometry/" + k.Decoder.Variant().String() }

func (k GeometryKernel) Source() string {
	if k.Decoder.Variant() == core.VariantNormalCovariance {
		return shaders.GeometryNormalCovWGSL
	}
	return shaders.GeometryColorNormalWGSL
}

func (k GeometryKernel) Layout() splat.Layout  { return k.Decoder.Layout() }
func (k GeometryKernel) OutputCount(n int) int { return n }
func (k GeometryKernel) Params(int) []byte     { return nil }

func (k GeometryKernel) Invoke(i int, in []splat.GaussianSplat, out []splat.Surfel) bool {
	if i >= len(in) {
		return false
	}
	out[i] = k.Decoder.Decode(in[i])
	return true
}

// UpsampleKernel emits Factor surfels per splat; output o = i*Factor + r.
type UpsampleKernel struct {
	Factor int
}

func (k UpsampleKernel) Label() string         { return "Upsample" }
func (k UpsampleKernel) Source() string        { return shaders.UpsampleWGSL }
func (k UpsampleKernel) Layout() splat.Layout  { return splat.LayoutColorNormal }
func (k UpsampleKernel) OutputCount(n int) int { return n * k.Factor }

// Params packs {factor, count, pad, pad}.
func (k UpsampleKernel) Params(n int) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], uint32(k.Factor))
	binary.LittleEndian.PutUint32(buf[4:], uint32(n))
	return buf
}

func (k UpsampleKernel) Invoke(o int, in []splat.GaussianSplat, out []splat.Surfel) bool {
	if k.Factor < 1 || o >= len(in)*k.Factor || o >= len(out) {
		return false
	}
	out[o] = core.Replica(in[o/k.Factor], o%k.Factor, k.Factor)
	return true
}
