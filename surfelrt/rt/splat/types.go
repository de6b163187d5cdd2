package splat

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// GaussianSplat is one anisotropic Gaussian primitive. Rot is a quaternion in
// (x, y, z, w) order, SH holds the band-0 color coefficients.
type GaussianSplat struct {
	Pos     mgl32.Vec3
	Opacity float32
	Scale   mgl32.Vec3
	Rot     [4]float32
	SH      mgl32.Vec3
}

// Surfel is the host form of an output record. Which attributes are populated
// depends on the Layout that produced it.
type Surfel struct {
	Pos    mgl32.Vec3
	Color  mgl32.Vec3
	Normal mgl32.Vec3
	Cov    [3]mgl32.Vec3
}

// Layout selects the packed GPU record of a Surfel.
type Layout int

const (
	// LayoutColorNormal: pos, color, normal (48 bytes).
	LayoutColorNormal Layout = iota
	// LayoutNormalCovariance: pos, normal, three covariance rows (80 bytes).
	LayoutNormalCovariance
)

const (
	SplatStride     = 64
	RawRecordStride = 64
	vec4Size        = 16
)

// Stride returns the packed record size in bytes.
func (l Layout) Stride() int {
	if l == LayoutNormalCovariance {
		return 5 * vec4Size
	}
	return 3 * vec4Size
}

// Attributes returns the number of vec3 attributes in one record.
// HasColor reports whether the layout carries a color attribute.
func (l Layout) HasColor() bool { return l != LayoutNormalCovariance }

func (l Layout) Attributes() int {
	return l.Stride() / vec4Size
}

func (l Layout) String() string {
	switch l {
	case LayoutColorNormal:
		return "color-normal"
	case LayoutNormalCovariance:
		return "normal-covariance"
	default:
		return "unknown"
	}
}

// RandomSplats generates n splats with unit-ish quaternions, non-zero scales
// and SH coefficients spanning the clamp range. Deterministic for a given rng.
func RandomSplats(rng *rand.Rand, n int) []GaussianSplat {
	out := make([]GaussianSplat, n)
	for i := range out {
		s := &out[i]
		for k := 0; k < 3; k++ {
			s.Pos[k] = rng.Float32()*20 - 10
			s.Scale[k] = (0.01 + rng.Float32()) * sign(rng)
			s.SH[k] = rng.Float32()*6 - 3
		}
		s.Opacity = rng.Float32()
		for {
			for k := 0; k < 4; k++ {
				s.Rot[k] = rng.Float32()*2 - 1
			}
			if s.Rot[0]*s.Rot[0]+s.Rot[1]*s.Rot[1]+s.Rot[2]*s.Rot[2]+s.Rot[3]*s.Rot[3] > 0.01 {
				break
			}
		}
	}
	return out
}

func sign(rng *rand.Rand) float32 {
	if rng.Intn(4) == 0 {
		return -1
	}
	return 1
}
