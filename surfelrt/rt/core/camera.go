package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformBlockSize is the size of the presentation uniform block.
const UniformBlockSize = 128

// Display modes selected by the uniform block's mode word.
const (
	DisplayColor  uint32 = 0
	DisplayNormal uint32 = 1
)

const (
	orbitRotateSpeed = 0.005
	orbitPanSpeed    = 0.001
	orbitZoomSpeed   = 0.001
	orbitPitchLimit  = 1.5
	orbitMinDistance = 0.1
	orbitMaxDistance = 100.0
	orbitFovY        = 45.0
	orbitNear        = 0.1
	orbitFar         = 1000.0
)

// OrbitState is an orbit camera around Target. Y is up. Update functions are
// pure and return a new state.
type OrbitState struct {
	Target   mgl32.Vec3
	Distance float32
	Yaw      float32
	Pitch    float32
	Width    float32
	Height   float32
}

func NewOrbitState(width, height float32) OrbitState {
	return OrbitState{
		Distance: 5,
		Yaw:      -math.Pi / 2,
		Width:    width,
		Height:   height,
	}
}

// Rotate applies a drag of (dx, dy) pixels.
func Rotate(s OrbitState, dx, dy float32) OrbitState {
	s.Yaw -= dx * orbitRotateSpeed
	s.Pitch = mgl32.Clamp(s.Pitch-dy*orbitRotateSpeed, -orbitPitchLimit, orbitPitchLimit)
	return s
}

// Pan moves the target in the view plane, scaled by distance.
func Pan(s OrbitState, dx, dy float32) OrbitState {
	view := s.View()
	right := mgl32.Vec3{view.At(0, 0), view.At(0, 1), view.At(0, 2)}
	up := mgl32.Vec3{view.At(1, 0), view.At(1, 1), view.At(1, 2)}
	speed := s.Distance * orbitPanSpeed
	s.Target = s.Target.Sub(right.Mul(dx * speed)).Add(up.Mul(dy * speed))
	return s
}

// Zoom applies a wheel delta.
func Zoom(s OrbitState, delta float32) OrbitState {
	s.Distance -= delta * s.Distance * orbitZoomSpeed
	s.Distance = mgl32.Clamp(s.Distance, orbitMinDistance, orbitMaxDistance)
	return s
}

// Resize updates the viewport used for the aspect ratio. Non-positive sizes
// are ignored.
func Resize(s OrbitState, width, height float32) OrbitState {
	if width > 0 && height > 0 {
		s.Width, s.Height = width, height
	}
	return s
}

func (s OrbitState) Eye() mgl32.Vec3 {
	cy, sy := float32(math.Cos(float64(s.Yaw))), float32(math.Sin(float64(s.Yaw)))
	cp, sp := float32(math.Cos(float64(s.Pitch))), float32(math.Sin(float64(s.Pitch)))
	return s.Target.Add(mgl32.Vec3{s.Distance * cy * cp, s.Distance * sp, s.Distance * sy * cp})
}

func (s OrbitState) View() mgl32.Mat4 {
	return mgl32.LookAtV(s.Eye(), s.Target, mgl32.Vec3{0, 1, 0})
}

func (s OrbitState) Projection() mgl32.Mat4 {
	aspect := float32(1)
	if s.Height > 0 {
		aspect = s.Width / s.Height
	}
	return mgl32.Perspective(mgl32.DegToRad(orbitFovY), aspect, orbitNear, orbitFar)
}

// DepthCorrection remaps clip z from [-w, w] to [0, w].
func DepthCorrection() mgl32.Mat4 {
	return mgl32.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0.5, 0,
		0, 0, 0.5, 1,
	}
}

// ViewProjection is DepthCorrection * Projection * View.
func (s OrbitState) ViewProjection() mgl32.Mat4 {
	return DepthCorrection().Mul4(s.Projection()).Mul4(s.View())
}

// UniformBlock encodes the presentation uniform block:
//
//	[0,64)   view-projection, row-major
//	[64,76)  eye position
//	[80,84)  display mode
//
// All other bytes are zero.
func UniformBlock(s OrbitState, mode uint32) [UniformBlockSize]byte {
	var buf [UniformBlockSize]byte
	vp := s.ViewProjection()
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			binary.LittleEndian.PutUint32(buf[(row*4+col)*4:], math.Float32bits(vp.At(row, col)))
		}
	}
	eye := s.Eye()
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(eye[i]))
	}
	binary.LittleEndian.PutUint32(buf[80:], mode)
	return buf
}
