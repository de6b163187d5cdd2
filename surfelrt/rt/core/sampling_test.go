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

func TestReplicaZeroIsCenter(t *testing.T) {
	for _, s := range splat.RandomSplats(rand.New(rand.NewSource(7)), 200) {
		for _, factor := range []int{1, 2, 8} {
			got := Replica(s, 0, factor)
			assert.Equal(t, s.Pos, got.Pos)
			assert.Equal(t, ColorNormal{}.Decode(s), got)
		}
	}
}

func TestReplicaOffsetStaysInTangentPlane(t *testing.T) {
	scale := mgl32.Vec3{0.2, 0.3, 0.01}
	for r := 1; r < 16; r++ {
		off := ReplicaOffset(scale, r, 16)
		assert.Equal(t, float32(0), off[2], "replica %d", r)
		// Inside the footprint ellipse.
		e := (off[0]/scale[0])*(off[0]/scale[0]) + (off[1]/scale[1])*(off[1]/scale[1])
		assert.LessOrEqual(t, e, float32(FootprintSigma*FootprintSigma)+1e-5)
	}
}

func TestReplicaOffsetsDistinct(t *testing.T) {
	scale := mgl32.Vec3{0.5, 0.01, 0.5}
	seen := map[mgl32.Vec3]bool{}
	for r := 0; r < 8; r++ {
		off := ReplicaOffset(scale, r, 8)
		assert.Equal(t, float32(0), off[1])
		assert.False(t, seen[off], "replica %d repeats", r)
		seen[off] = true
	}
}

func TestUpsample(t *testing.T) {
	splats := splat.RandomSplats(rand.New(rand.NewSource(9)), 10)

	out := Upsample(splats, 4)
	require.Len(t, out, 40)
	for o, sf := range out {
		src := splats[o/4]
		assert.Equal(t, DecodeColor(src.SH), sf.Color)
		assert.Equal(t, EstimateNormal(src.Rot, src.Scale), sf.Normal)
	}

	same := Upsample(splats, 1)
	require.Len(t, same, 10)
	for i := range same {
		assert.Equal(t, splats[i].Pos, same[i].Pos)
	}

	assert.Nil(t, Upsample(splats, 0))
	assert.Empty(t, Upsample(nil, 3))
}

func TestSpiralAngleWrapped(t *testing.T) {
	for _, r := range []int{0, 1, 2, 3, 7, 100, 4095, 65537, 1 << 20} {
		theta := SpiralAngle(r)
		require.LessOrEqual(t, math.Abs(theta), math.Pi+1e-12, "replica %d", r)
		raw := float64(r) * GoldenAngle
		assert.InDelta(t, math.Cos(raw), math.Cos(theta), 1e-6, "replica %d", r)
		assert.InDelta(t, math.Sin(raw), math.Sin(theta), 1e-6, "replica %d", r)
	}
}
