package splat

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceSplat() GaussianSplat {
	return GaussianSplat{
		Pos:     mgl32.Vec3{1, 2, 3},
		Opacity: 0.5,
		Scale:   mgl32.Vec3{0.1, 0.1, 0.01},
		Rot:     [4]float32{0, 0, 0, 1},
		SH:      mgl32.Vec3{0, 0, 0},
	}
}

func TestDecodeBody_RecordCount(t *testing.T) {
	for _, length := range []int{0, 1, 63, 64, 65, 127, 128, 64*10 + 17} {
		splats := DecodeBody(make([]byte, length))
		assert.Len(t, splats, length/64, "body length %d", length)
	}
}

func TestDecode_ReferenceRecord(t *testing.T) {
	data := EncodeFile([]GaussianSplat{referenceSplat()})

	splats, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, splats, 1)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, splats[0].Pos)
	assert.Equal(t, float32(0.5), splats[0].Opacity)
	assert.Equal(t, mgl32.Vec3{0.1, 0.1, 0.01}, splats[0].Scale)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, splats[0].Rot)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, splats[0].SH)
}

func TestDecode_RoundTripRandom(t *testing.T) {
	in := RandomSplats(rand.New(rand.NewSource(7)), 100)
	out, err := Decode(EncodeFile(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecode_MissingSentinel(t *testing.T) {
	_, err := Decode([]byte("ply\nformat binary_little_endian 1.0\n"))
	assert.ErrorIs(t, err, ErrFormat)

	// Sentinel present but beyond the search window.
	far := append(make([]byte, HeaderSearchWindow+64), []byte(HeaderSentinel)...)
	_, err = Decode(far)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestFindBody_SkipsLineEndings(t *testing.T) {
	data := []byte("ply\r\nend_header\r\n\n\rXYZ")
	offset, err := FindBody(data)
	require.NoError(t, err)
	assert.Equal(t, "XYZ", string(data[offset:]))

	offset, err = FindBody([]byte("end_header"))
	require.NoError(t, err)
	assert.Equal(t, len(HeaderSentinel), offset)
}

func TestDecode_TrailingPartialRecordDropped(t *testing.T) {
	data := EncodeFile([]GaussianSplat{referenceSplat(), referenceSplat()})
	data = append(data, make([]byte, 63)...)
	splats, err := Decode(data)
	require.NoError(t, err)
	assert.Len(t, splats, 2)
}

func TestPackSplats_PaddingIsZero(t *testing.T) {
	s := referenceSplat()
	buf := PackSplats([]GaussianSplat{s, s})
	require.Len(t, buf, 2*SplatStride)
	for i := 0; i < 2; i++ {
		base := i * SplatStride
		assert.Equal(t, []byte{0, 0, 0, 0}, buf[base+28:base+32], "scale pad")
		assert.Equal(t, []byte{0, 0, 0, 0}, buf[base+60:base+64], "sh pad")
	}
	assert.Equal(t, []GaussianSplat{s, s}, UnpackSplats(buf))
}

func TestSurfelRecords(t *testing.T) {
	s := Surfel{
		Pos:    mgl32.Vec3{1, 2, 3},
		Color:  mgl32.Vec3{0.1, 0.2, 0.3},
		Normal: mgl32.Vec3{0, 0, 1},
		Cov:    [3]mgl32.Vec3{{1, 0, 0}, {0, 2, 0}, {0, 0, 3}},
	}

	t.Run("color-normal", func(t *testing.T) {
		buf := PackSurfels(LayoutColorNormal, []Surfel{s})
		require.Len(t, buf, 48)
		got := UnpackSurfels(LayoutColorNormal, buf)
		require.Len(t, got, 1)
		assert.Equal(t, s.Pos, got[0].Pos)
		assert.Equal(t, s.Color, got[0].Color)
		assert.Equal(t, s.Normal, got[0].Normal)
		assert.Equal(t, [3]mgl32.Vec3{}, got[0].Cov)
	})

	t.Run("normal-covariance", func(t *testing.T) {
		buf := PackSurfels(LayoutNormalCovariance, []Surfel{s})
		require.Len(t, buf, 80)
		got := UnpackSurfels(LayoutNormalCovariance, buf)
		require.Len(t, got, 1)
		assert.Equal(t, s.Pos, got[0].Pos)
		assert.Equal(t, s.Normal, got[0].Normal)
		assert.Equal(t, s.Cov, got[0].Cov)
		assert.Equal(t, mgl32.Vec3{}, got[0].Color)
	})
}

func TestWritePLYAndPCD(t *testing.T) {
	surfels := []Surfel{
		{Pos: mgl32.Vec3{1, 2, 3}, Color: mgl32.Vec3{0.5, 1.5, -1}, Normal: mgl32.Vec3{0, 0, 1}},
		{Pos: mgl32.Vec3{-1, 0, 4}, Color: mgl32.Vec3{0, 1, 0}, Normal: mgl32.Vec3{1, 0, 0}},
	}

	var ply bytes.Buffer
	require.NoError(t, WritePLY(&ply, surfels))
	_, body, found := strings.Cut(ply.String(), HeaderSentinel+"\n")
	require.True(t, found)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1 2 3 128 255 0 0 0 1", lines[0])

	var pcd bytes.Buffer
	require.NoError(t, WritePCD(&pcd, surfels))
	_, body, found = strings.Cut(pcd.String(), "DATA ascii\n")
	require.True(t, found)
	pcdLines := strings.Split(strings.TrimSpace(body), "\n")
	assert.Equal(t, lines, pcdLines)
	assert.Contains(t, pcd.String(), "POINTS 2\n")
}

func TestLayoutStride(t *testing.T) {
	assert.Equal(t, 48, LayoutColorNormal.Stride())
	assert.Equal(t, 80, LayoutNormalCovariance.Stride())
	assert.Equal(t, 3, LayoutColorNormal.Attributes())
	assert.Equal(t, 5, LayoutNormalCovariance.Attributes())
	assert.True(t, LayoutColorNormal.HasColor())
	assert.False(t, LayoutNormalCovariance.HasColor())
}
