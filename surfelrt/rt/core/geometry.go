package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// SHC0 is the band-0 spherical harmonic normalization constant 1/(2*sqrt(pi)).
const SHC0 = 0.28209479177387814

// DecodeColor converts band-0 SH coefficients to RGB in [0,1].
func DecodeColor(sh mgl32.Vec3) mgl32.Vec3 {
	var rgb mgl32.Vec3
	for i := range sh {
		rgb[i] = mgl32.Clamp(0.5+SHC0*sh[i], 0, 1)
	}
	return rgb
}

// Quat converts an (x, y, z, w) rotation into a normalized mgl32 quaternion.
// A zero quaternion normalizes to identity.
func Quat(rot [4]float32) mgl32.Quat {
	return mgl32.Quat{W: rot[3], V: mgl32.Vec3{rot[0], rot[1], rot[2]}}.Normalize()
}

// RotationMatrix builds the 3x3 rotation of a (x, y, z, w) quaternion.
func RotationMatrix(rot [4]float32) mgl32.Mat3 {
	return Quat(rot).Mat4().Mat3()
}

// MinScaleAxis returns the local axis (0=x, 1=y, 2=z) with the smallest
// absolute scale. Ties resolve to x, then y, then z.
func MinScaleAxis(scale mgl32.Vec3) int {
	ax, ay, az := abs32(scale[0]), abs32(scale[1]), abs32(scale[2])
	if ax <= ay && ax <= az {
		return 0
	}
	if ay <= az {
		return 1
	}
	return 2
}

// EstimateNormal rotates the splat's shortest local axis into world space.
// A flattened Gaussian's short axis approximates the surface normal.
func EstimateNormal(rot [4]float32, scale mgl32.Vec3) mgl32.Vec3 {
	return RotationMatrix(rot).Col(MinScaleAxis(scale))
}

// BuildCovariance returns R * diag(scale^2) * R^T.
func BuildCovariance(rot [4]float32, scale mgl32.Vec3) mgl32.Mat3 {
	r := RotationMatrix(rot)
	s := mgl32.Diag3(mgl32.Vec3{scale[0] * scale[0], scale[1] * scale[1], scale[2] * scale[2]})
	return r.Mul3(s).Mul3(r.Transpose())
}

// CovarianceRows splits a covariance matrix into its three row vectors.
func CovarianceRows(cov mgl32.Mat3) [3]mgl32.Vec3 {
	return [3]mgl32.Vec3{cov.Row(0), cov.Row(1), cov.Row(2)}
}

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
