package core

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/splatsurf/surfelrt/rt/splat"
)

func TestDecodeColor(t *testing.T) {
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, DecodeColor(mgl32.Vec3{0, 0, 0}))

	c := DecodeColor(mgl32.Vec3{100, -100, 1})
	assert.Equal(t, float32(1), c[0])
	assert.Equal(t, float32(0), c[1])
	assert.InDelta(t, 0.5+SHC0, c[2], 1e-6)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		sh := mgl32.Vec3{rng.Float32()*20 - 10, rng.Float32()*20 - 10, rng.Float32()*20 - 10}
		for _, v := range DecodeColor(sh) {
			require.GreaterOrEqual(t, v, float32(0))
			require.LessOrEqual(t, v, float32(1))
		}
	}
}

func TestMinScaleAxis(t *testing.T) {
	tests := []struct {
		scale mgl32.Vec3
		want  int
	}{
		{mgl32.Vec3{0.1, 0.1, 0.01}, 2},
		{mgl32.Vec3{0.01, 0.1, 0.1}, 0},
		{mgl32.Vec3{0.1, 0.01, 0.1}, 1},
		{mgl32.Vec3{1, 1, 1}, 0},
		{mgl32.Vec3{2, 1, 1}, 1},
		{mgl32.Vec3{-0.01, 0.1, 0.1}, 0},
		{mgl32.Vec3{0.5, -0.2, 0.3}, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MinScaleAxis(tt.scale), "scale %v", tt.scale)
	}
}

func TestEstimateNormal_Identity(t *testing.T) {
	n := EstimateNormal([4]float32{0, 0, 0, 1}, mgl32.Vec3{0.1, 0.1, 0.01})
	assert.InDelta(t, 0, n[0], 1e-6)
	assert.InDelta(t, 0, n[1], 1e-6)
	assert.InDelta(t, 1, n[2], 1e-6)
}

func TestEstimateNormal_Rotated(t *testing.T) {
	// 90 degrees about x maps local z to world -y.
	h := float32(math.Sqrt2 / 2)
	n := EstimateNormal([4]float32{h, 0, 0, h}, mgl32.Vec3{1, 1, 0.1})
	assert.InDelta(t, 0, n[0], 1e-5)
	assert.InDelta(t, -1, n[1], 1e-5)
	assert.InDelta(t, 0, n[2], 1e-5)

	// Unnormalized input is normalized first.
	n = EstimateNormal([4]float32{0, 0, 0, 3}, mgl32.Vec3{0.01, 1, 1})
	assert.InDelta(t, 1, n[0], 1e-6)
}

func TestEstimateNormal_UnitLength(t *testing.T) {
	for _, s := range splat.RandomSplats(rand.New(rand.NewSource(42)), 2000) {
		n := EstimateNormal(s.Rot, s.Scale)
		require.InDelta(t, 1.0, n.Len(), 1e-5, "rot %v", s.Rot)
	}
}

func TestBuildCovariance_SymmetricPSD(t *testing.T) {
	for _, s := range splat.RandomSplats(rand.New(rand.NewSource(43)), 2000) {
		rows := CovarianceRows(BuildCovariance(s.Rot, s.Scale))
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				require.InDelta(t, rows[i][j], rows[j][i], 1e-5)
			}
		}
		for _, ev := range symmetricEigenvalues(rows) {
			require.GreaterOrEqual(t, ev, -1e-5, "rows %v", rows)
		}
	}
}

func TestBuildCovariance_AxisAligned(t *testing.T) {
	rows := CovarianceRows(BuildCovariance([4]float32{0, 0, 0, 1}, mgl32.Vec3{1, 2, 3}))
	assert.Equal(t, [3]mgl32.Vec3{{1, 0, 0}, {0, 4, 0}, {0, 0, 9}}, rows)
}

func TestDecoders(t *testing.T) {
	s := splat.GaussianSplat{
		Pos:     mgl32.Vec3{1, 2, 3},
		Opacity: 0.5,
		Scale:   mgl32.Vec3{0.1, 0.1, 0.01},
		Rot:     [4]float32{0, 0, 0, 1},
	}

	a := NewDecoder(VariantColorNormal)
	assert.Equal(t, splat.LayoutColorNormal, a.Layout())
	out := a.Decode(s)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, out.Pos)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, out.Color)
	assert.InDelta(t, 1, out.Normal[2], 1e-6)

	b := NewDecoder(VariantNormalCovariance)
	assert.Equal(t, splat.LayoutNormalCovariance, b.Layout())
	out = b.Decode(s)
	assert.Equal(t, mgl32.Vec3{}, out.Color)
	assert.InDelta(t, 0.0001, out.Cov[2][2], 1e-9)
	assert.InDelta(t, 0.01, out.Cov[0][0], 1e-8)

	assert.Len(t, DecodeAll(a, []splat.GaussianSplat{s, s, s}), 3)
}

func TestParseVariant(t *testing.T) {
	for _, v := range []Variant{VariantColorNormal, VariantNormalCovariance} {
		got, err := ParseVariant(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := ParseVariant("bogus")
	assert.Error(t, err)
}

// symmetricEigenvalues uses the closed-form trigonometric solution for a
// real symmetric 3x3 matrix.
func symmetricEigenvalues(m [3]mgl32.Vec3) [3]float64 {
	a := func(i, j int) float64 { return float64(m[i][j]) }
	p1 := a(0, 1)*a(0, 1) + a(0, 2)*a(0, 2) + a(1, 2)*a(1, 2)
	if p1 == 0 {
		return [3]float64{a(0, 0), a(1, 1), a(2, 2)}
	}
	q := (a(0, 0) + a(1, 1) + a(2, 2)) / 3
	p2 := (a(0, 0)-q)*(a(0, 0)-q) + (a(1, 1)-q)*(a(1, 1)-q) + (a(2, 2)-q)*(a(2, 2)-q) + 2*p1
	p := math.Sqrt(p2 / 6)
	var b [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			b[i][j] = a(i, j) / p
			if i == j {
				b[i][j] -= q / p
			}
		}
	}
	det := b[0][0]*(b[1][1]*b[2][2]-b[1][2]*b[2][1]) -
		b[0][1]*(b[1][0]*b[2][2]-b[1][2]*b[2][0]) +
		b[0][2]*(b[1][0]*b[2][1]-b[1][1]*b[2][0])
	r := math.Max(-1, math.Min(1, det/2))
	phi := math.Acos(r) / 3
	e1 := q + 2*p*math.Cos(phi)
	e3 := q + 2*p*math.Cos(phi+2*math.Pi/3)
	return [3]float64{e1, 3*q - e1 - e3, e3}
}
