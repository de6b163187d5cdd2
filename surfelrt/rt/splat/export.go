package splat

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

// WritePLY writes surfels as an ASCII PLY with x y z r g b nx ny nz per line.
// Surfels from LayoutNormalCovariance have zero color and export as black;
// covariance is not written.
func WritePLY(w io.Writer, surfels []Surfel) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat ascii 1.0\nelement vertex %d\n", len(surfels))
	for _, p := range []string{"float x", "float y", "float z", "uchar red", "uchar green", "uchar blue", "float nx", "float ny", "float nz"} {
		fmt.Fprintf(bw, "property %s\n", p)
	}
	bw.WriteString(HeaderSentinel + "\n")
	writePoints(bw, surfels)
	return bw.Flush()
}

// WritePCD writes surfels as an ASCII PCD v0.7 file with the same fields as WritePLY.
func WritePCD(w io.Writer, surfels []Surfel) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("# .PCD v0.7 - Point Cloud Data file format\nVERSION 0.7\n")
	bw.WriteString("FIELDS x y z r g b normal_x normal_y normal_z\n")
	bw.WriteString("SIZE 4 4 4 1 1 1 4 4 4\nTYPE F F F U U U F F F\nCOUNT 1 1 1 1 1 1 1 1 1\n")
	fmt.Fprintf(bw, "WIDTH %d\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS %d\nDATA ascii\n", len(surfels), len(surfels))
	writePoints(bw, surfels)
	return bw.Flush()
}

func writePoints(w *bufio.Writer, surfels []Surfel) {
	for _, s := range surfels {
		fmt.Fprintf(w, "%g %g %g %d %d %d %g %g %g\n",
			s.Pos[0], s.Pos[1], s.Pos[2],
			quantize(s.Color[0]), quantize(s.Color[1]), quantize(s.Color[2]),
			s.Normal[0], s.Normal[1], s.Normal[2])
	}
}

// quantize maps a [0,1] channel to 0..255, clamping out-of-range input.
func quantize(c float32) uint8 {
	v := math.Round(float64(c) * 255)
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
