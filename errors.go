package splatsurf

import (
	"errors"
	"fmt"

	"github.com/gekko3d/splatsurf/surfelrt/rt/gpu"
	"github.com/gekko3d/splatsurf/surfelrt/rt/splat"
)

var (
	ErrFormat        = errors.New("splatsurf: format error")
	ErrIO            = errors.New("splatsurf: io error")
	ErrIndex         = errors.New("splatsurf: index out of range")
	ErrNoAdapter     = errors.New("splatsurf: no compute adapter")
	ErrBackend       = errors.New("splatsurf: backend error")
	ErrReadback      = errors.New("splatsurf: readback error")
	ErrUnknownHandle = errors.New("splatsurf: unknown handle")
	ErrInvalidFactor = errors.New("splatsurf: invalid upsampling factor")
	ErrUnknownField  = errors.New("splatsurf: unknown field")
)

// classify wraps a lower-level error with the matching public sentinel. Both
// stay visible to errors.Is.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, splat.ErrFormat):
		return fmt.Errorf("%w: %w", ErrFormat, err)
	case errors.Is(err, gpu.ErrNoAdapter):
		return fmt.Errorf("%w: %w", ErrNoAdapter, err)
	case errors.Is(err, gpu.ErrReadback):
		return fmt.Errorf("%w: %w", ErrReadback, err)
	case errors.Is(err, gpu.ErrBackend):
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return err
}
