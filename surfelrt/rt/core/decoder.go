package core

import (
	"fmt"

	"github.com/gekko3d/splatsurf/surfelrt/rt/splat"
)

// Variant names a geometry decoding strategy.
type Variant int

const (
	// VariantColorNormal emits decoded color and estimated normal.
	VariantColorNormal Variant = iota
	// VariantNormalCovariance emits estimated normal and the 3x3 covariance.
	VariantNormalCovariance
)

func (v Variant) String() string {
	switch v {
	case VariantColorNormal:
		return "color-normal"
	case VariantNormalCovariance:
		return "normal-covariance"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant accepts the names produced by Variant.String.
func ParseVariant(name string) (Variant, error) {
	switch name {
	case "", "color-normal":
		return VariantColorNormal, nil
	case "normal-covariance":
		return VariantNormalCovariance, nil
	}
	return 0, fmt.Errorf("unknown geometry variant %q", name)
}

// Decoder turns one splat into one surfel. Implementations are stateless and
// safe for concurrent use.
type Decoder interface {
	Variant() Variant
	Layout() splat.Layout
	Decode(s splat.GaussianSplat) splat.Surfel
}

// NewDecoder returns the strategy for v.
func NewDecoder(v Variant) Decoder {
	if v == VariantNormalCovariance {
		return NormalCovariance{}
	}
	return ColorNormal{}
}

// ColorNormal is the color + normal strategy.
type ColorNormal struct{}

func (ColorNormal) Variant() Variant     { return VariantColorNormal }
func (ColorNormal) Layout() splat.Layout { return splat.LayoutColorNormal }

func (ColorNormal) Decode(s splat.GaussianSplat) splat.Surfel {
	return splat.Surfel{
		Pos:    s.Pos,
		Color:  DecodeColor(s.SH),
		Normal: EstimateNormal(s.Rot, s.Scale),
	}
}

// NormalCovariance is the normal + covariance strategy.
type NormalCovariance struct{}

func (NormalCovariance) Variant() Variant     { return VariantNormalCovariance }
func (NormalCovariance) Layout() splat.Layout { return splat.LayoutNormalCovariance }

func (NormalCovariance) Decode(s splat.GaussianSplat) splat.Surfel {
	return splat.Surfel{
		Pos:    s.Pos,
		Normal: EstimateNormal(s.Rot, s.Scale),
		Cov:    CovarianceRows(BuildCovariance(s.Rot, s.Scale)),
	}
}

// DecodeAll applies d to every splat.
func DecodeAll(d Decoder, splats []splat.GaussianSplat) []splat.Surfel {
	out := make([]splat.Surfel, len(splats))
	for i, s := range splats {
		out[i] = d.Decode(s)
	}
	return out
}
