package splat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderSentinel terminates the textual point-cloud header.
const HeaderSentinel = "end_header"

// HeaderSearchWindow bounds how far into the input the sentinel may start.
const HeaderSearchWindow = 1 << 20

// ErrFormat reports malformed input framing.
var ErrFormat = errors.New("splat: malformed point cloud")

// Raw record float slots. The two placeholder slots carry an unused normal
// and are dropped on decode.
const (
	rawX = iota
	rawY
	rawZ
	rawPlaceholder0
	rawPlaceholder1
	rawDC0
	rawDC1
	rawDC2
	rawOpacity
	rawScale0
	rawScale1
	rawScale2
	rawRot0
	rawRot1
	rawRot2
	rawRot3
	rawFields
)

// FindBody returns the offset of the first body byte: just past the header
// sentinel and any line-ending bytes that follow it.
func FindBody(data []byte) (int, error) {
	window := data
	if limit := HeaderSearchWindow + len(HeaderSentinel); len(window) > limit {
		window = window[:limit]
	}
	idx := bytes.Index(window, []byte(HeaderSentinel))
	if idx < 0 {
		return 0, fmt.Errorf("%w: %q not found in first %d bytes", ErrFormat, HeaderSentinel, HeaderSearchWindow)
	}
	cursor := idx + len(HeaderSentinel)
	for cursor < len(data) && (data[cursor] == '\r' || data[cursor] == '\n') {
		cursor++
	}
	return cursor, nil
}

// Decode parses a whole file image: header, then packed raw records.
func Decode(data []byte) ([]GaussianSplat, error) {
	offset, err := FindBody(data)
	if err != nil {
		return nil, err
	}
	return DecodeBody(data[offset:]), nil
}

// DecodeBody decodes floor(len(body)/64) raw records. Trailing bytes that do
// not form a full record are ignored.
func DecodeBody(body []byte) []GaussianSplat {
	count := len(body) / RawRecordStride
	splats := make([]GaussianSplat, count)
	for i := range splats {
		rec := body[i*RawRecordStride : (i+1)*RawRecordStride]
		f := func(slot int) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(rec[slot*4:]))
		}
		splats[i] = GaussianSplat{
			Pos:     [3]float32{f(rawX), f(rawY), f(rawZ)},
			Opacity: f(rawOpacity),
			Scale:   [3]float32{f(rawScale0), f(rawScale1), f(rawScale2)},
			Rot:     [4]float32{f(rawRot0), f(rawRot1), f(rawRot2), f(rawRot3)},
			SH:      [3]float32{f(rawDC0), f(rawDC1), f(rawDC2)},
		}
	}
	return splats
}

// EncodeBody is the inverse of DecodeBody. Placeholder slots are written as zero.
func EncodeBody(splats []GaussianSplat) []byte {
	buf := make([]byte, len(splats)*RawRecordStride)
	for i, s := range splats {
		rec := buf[i*RawRecordStride : (i+1)*RawRecordStride]
		put := func(slot int, v float32) {
			binary.LittleEndian.PutUint32(rec[slot*4:], math.Float32bits(v))
		}
		put(rawX, s.Pos[0])
		put(rawY, s.Pos[1])
		put(rawZ, s.Pos[2])
		put(rawDC0, s.SH[0])
		put(rawDC1, s.SH[1])
		put(rawDC2, s.SH[2])
		put(rawOpacity, s.Opacity)
		put(rawScale0, s.Scale[0])
		put(rawScale1, s.Scale[1])
		put(rawScale2, s.Scale[2])
		put(rawRot0, s.Rot[0])
		put(rawRot1, s.Rot[1])
		put(rawRot2, s.Rot[2])
		put(rawRot3, s.Rot[3])
	}
	return buf
}

var rawPropertyNames = [rawFields]string{
	"x", "y", "z", "nx", "ny",
	"f_dc_0", "f_dc_1", "f_dc_2", "opacity",
	"scale_0", "scale_1", "scale_2",
	"rot_0", "rot_1", "rot_2", "rot_3",
}

// EncodeFile writes a binary little-endian PLY image readable by Decode.
func EncodeFile(splats []GaussianSplat) []byte {
	var b bytes.Buffer
	b.WriteString("ply\nformat binary_little_endian 1.0\n")
	fmt.Fprintf(&b, "element vertex %d\n", len(splats))
	for _, name := range rawPropertyNames {
		fmt.Fprintf(&b, "property float %s\n", name)
	}
	b.WriteString(HeaderSentinel + "\n")
	b.Write(EncodeBody(splats))
	return b.Bytes()
}
