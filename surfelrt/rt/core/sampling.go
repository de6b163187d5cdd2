package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/splatsurf/surfelrt/rt/splat"
)

const (
	// GoldenAngle separates consecutive replicas on the Vogel spiral.
	GoldenAngle = math.Pi * (3 - 2.23606797749979)
	// GoldenTurn is GoldenAngle as a fraction of a full turn.
	GoldenTurn = GoldenAngle / (2 * math.Pi)
	// FootprintSigma is the spiral's outer radius in units of |scale|.
	FootprintSigma = 1.0
)

// ReplicaOffset returns the local-frame offset of replica r out of factor.
//
// Replicas lie on a Vogel spiral over the tangent ellipse spanned by the two
// axes other than the normal axis: radius FootprintSigma*sqrt(r/factor),
// angle r*GoldenAngle. Replica 0 is the splat center, so factor 1 reproduces
// the source position.
func ReplicaOffset(scale mgl32.Vec3, r, factor int) mgl32.Vec3 {
	var local mgl32.Vec3
	if factor <= 1 || r <= 0 {
		return local
	}
	n := MinScaleAxis(scale)
	u, v := (n+1)%3, (n+2)%3
	radius := FootprintSigma * math.Sqrt(float64(r)/float64(factor))
	theta := SpiralAngle(r)
	local[u] = abs32(scale[u]) * float32(radius*math.Cos(theta))
	local[v] = abs32(scale[v]) * float32(radius*math.Sin(theta))
	return local
}

// SpiralAngle returns r*GoldenAngle wrapped into [-pi, pi].
func SpiralAngle(r int) float64 {
	t := float64(r) * GoldenTurn
	return 2 * math.Pi * (t - math.Round(t))
}

// Replica derives output r of factor for source splat s. Color and normal are
// inherited from the source; the position follows ReplicaOffset rotated into
// world space.
func Replica(s splat.GaussianSplat, r, factor int) splat.Surfel {
	out := ColorNormal{}.Decode(s)
	offset := ReplicaOffset(s.Scale, r, factor)
	out.Pos = s.Pos.Add(RotationMatrix(s.Rot).Mul3x1(offset))
	return out
}

// Upsample expands splats by factor on the CPU: output o = i*factor + r.
func Upsample(splats []splat.GaussianSplat, factor int) []splat.Surfel {
	if factor < 1 {
		return nil
	}
	out := make([]splat.Surfel, len(splats)*factor)
	for o := range out {
		out[o] = Replica(splats[o/factor], o%factor, factor)
	}
	return out
}
