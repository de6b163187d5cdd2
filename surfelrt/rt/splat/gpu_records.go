package splat

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// PackSplats serializes splats into 64-byte GPU records:
//
//	pos.xyz  opacity
//	scale.xyz  pad
//	rot.xyzw
//	sh.xyz  pad
//
// Pad words are always zero.
func PackSplats(splats []GaussianSplat) []byte {
	buf := make([]byte, len(splats)*SplatStride)
	for i, s := range splats {
		offset := i * SplatStride
		writeVec4(buf, offset, s.Pos, s.Opacity)
		writeVec4(buf, offset+16, s.Scale, 0)
		writeVec4(buf, offset+32, mgl32.Vec3{s.Rot[0], s.Rot[1], s.Rot[2]}, s.Rot[3])
		writeVec4(buf, offset+48, s.SH, 0)
	}
	return buf
}

// UnpackSplats is the inverse of PackSplats.
func UnpackSplats(data []byte) []GaussianSplat {
	splats := make([]GaussianSplat, len(data)/SplatStride)
	for i := range splats {
		offset := i * SplatStride
		s := &splats[i]
		s.Pos, s.Opacity = readVec4(data, offset)
		s.Scale, _ = readVec4(data, offset+16)
		r, w := readVec4(data, offset+32)
		s.Rot = [4]float32{r[0], r[1], r[2], w}
		s.SH, _ = readVec4(data, offset+48)
	}
	return splats
}

// PackSurfels serializes surfels into records of the given layout.
func PackSurfels(layout Layout, surfels []Surfel) []byte {
	stride := layout.Stride()
	buf := make([]byte, len(surfels)*stride)
	for i, s := range surfels {
		offset := i * stride
		writeVec4(buf, offset, s.Pos, 0)
		switch layout {
		case LayoutNormalCovariance:
			writeVec4(buf, offset+16, s.Normal, 0)
			for row := 0; row < 3; row++ {
				writeVec4(buf, offset+32+row*vec4Size, s.Cov[row], 0)
			}
		default:
			writeVec4(buf, offset+16, s.Color, 0)
			writeVec4(buf, offset+32, s.Normal, 0)
		}
	}
	return buf
}

// UnpackSurfels decodes floor(len(data)/stride) records of the given layout.
func UnpackSurfels(layout Layout, data []byte) []Surfel {
	stride := layout.Stride()
	surfels := make([]Surfel, len(data)/stride)
	for i := range surfels {
		offset := i * stride
		s := &surfels[i]
		s.Pos, _ = readVec4(data, offset)
		switch layout {
		case LayoutNormalCovariance:
			s.Normal, _ = readVec4(data, offset+16)
			for row := 0; row < 3; row++ {
				s.Cov[row], _ = readVec4(data, offset+32+row*vec4Size)
			}
		default:
			s.Color, _ = readVec4(data, offset+16)
			s.Normal, _ = readVec4(data, offset+32)
		}
	}
	return surfels
}

func writeVec4(buf []byte, offset int, v mgl32.Vec3, w float32) {
	binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(buf[offset+4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(buf[offset+8:], math.Float32bits(v[2]))
	binary.LittleEndian.PutUint32(buf[offset+12:], math.Float32bits(w))
}

func readVec4(buf []byte, offset int) (mgl32.Vec3, float32) {
	f := func(o int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset+o:]))
	}
	return mgl32.Vec3{f(0), f(4), f(8)}, f(12)
}
