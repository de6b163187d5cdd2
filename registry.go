package splatsurf

import (
	"github.com/google/uuid"

	"github.com/gekko3d/splatsurf/surfelrt/rt/splat"
)

// Handle identifies a loaded point cloud.
type Handle string

// cloud is one loaded splat set and its most recent surfels.
type cloud struct {
	name    string
	splats  []splat.GaussianSplat
	surfels []splat.Surfel
	layout  splat.Layout
}

type registry struct {
	clouds map[Handle]*cloud
}

func newRegistry() *registry {
	return &registry{clouds: make(map[Handle]*cloud)}
}

func (r *registry) add(c *cloud) Handle {
	h := Handle(uuid.NewString())
	r.clouds[h] = c
	return h
}

func (r *registry) get(h Handle) (*cloud, error) {
	c, ok := r.clouds[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return c, nil
}

func (r *registry) remove(h Handle) bool {
	if _, ok := r.clouds[h]; !ok {
		return false
	}
	delete(r.clouds, h)
	return true
}

func (r *registry) handles() []Handle {
	out := make([]Handle, 0, len(r.clouds))
	for h := range r.clouds {
		out = append(out, h)
	}
	return out
}
