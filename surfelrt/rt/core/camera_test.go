package core

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrbitClamps(t *testing.T) {
	s := NewOrbitState(800, 600)

	up := Rotate(s, 0, -1e6)
	assert.Equal(t, float32(orbitPitchLimit), up.Pitch)
	down := Rotate(s, 0, 1e6)
	assert.Equal(t, float32(-orbitPitchLimit), down.Pitch)

	near := Zoom(s, 1e6)
	assert.Equal(t, float32(orbitMinDistance), near.Distance)
	far := Zoom(s, -1e9)
	assert.Equal(t, float32(orbitMaxDistance), far.Distance)

	// Update functions do not mutate their input.
	assert.Equal(t, float32(5), s.Distance)
	assert.Equal(t, float32(0), s.Pitch)
}

func TestOrbitResize(t *testing.T) {
	s := NewOrbitState(800, 600)
	assert.Equal(t, s, Resize(s, 0, 100))
	r := Resize(s, 1024, 768)
	assert.Equal(t, float32(1024), r.Width)
	assert.Equal(t, float32(768), r.Height)
}

func TestOrbitEye(t *testing.T) {
	s := NewOrbitState(800, 600)
	eye := s.Eye()
	// Yaw -pi/2 with zero pitch places the eye on -z.
	assert.InDelta(t, 0, eye[0], 1e-5)
	assert.InDelta(t, 0, eye[1], 1e-5)
	assert.InDelta(t, -5, eye[2], 1e-5)
}

func TestOrbitPanKeepsDistance(t *testing.T) {
	s := NewOrbitState(800, 600)
	p := Pan(s, 100, 50)
	assert.NotEqual(t, s.Target, p.Target)
	assert.InDelta(t, s.Distance, p.Eye().Sub(p.Target).Len(), 1e-4)
}

func TestDepthCorrection(t *testing.T) {
	clip := DepthCorrection().Mul4x1(mgl32.Vec4{0, 0, -2, 2})
	assert.Equal(t, float32(0), clip[2])
	clip = DepthCorrection().Mul4x1(mgl32.Vec4{0, 0, 2, 2})
	assert.Equal(t, float32(2), clip[2])
}

func TestUniformBlock(t *testing.T) {
	s := NewOrbitState(800, 600)
	block := UniformBlock(s, DisplayNormal)
	require.Len(t, block, UniformBlockSize)

	assert.Equal(t, DisplayNormal, binary.LittleEndian.Uint32(block[80:]))
	color := UniformBlock(s, DisplayColor)
	assert.Equal(t, DisplayColor, binary.LittleEndian.Uint32(color[80:]))

	vp := s.ViewProjection()
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			got := math.Float32frombits(binary.LittleEndian.Uint32(block[(row*4+col)*4:]))
			assert.Equal(t, vp.At(row, col), got, "row %d col %d", row, col)
		}
	}

	eye := s.Eye()
	for i := 0; i < 3; i++ {
		assert.Equal(t, eye[i], math.Float32frombits(binary.LittleEndian.Uint32(block[64+i*4:])))
	}

	for _, i := range []int{76, 77, 78, 79} {
		assert.Zero(t, block[i])
	}
	for i := 84; i < UniformBlockSize; i++ {
		assert.Zero(t, block[i], "byte %d", i)
	}
}
