package gpu

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gekko3d/splatsurf/surfelrt/rt/splat"
)

// DispatchStats describes one host dispatch.
type DispatchStats struct {
	Workgroups  uint32
	Invocations int
	Active      int
}

// HostDispatch runs k's host mirror over in with the same workgroup grid the
// device would use. Workgroups are spread over GOMAXPROCS goroutines; every
// invocation passes through the kernel's bounds guard.
func HostDispatch(ctx context.Context, k Kernel, in []splat.GaussianSplat) ([]splat.Surfel, DispatchStats, error) {
	n := k.OutputCount(len(in))
	stats := DispatchStats{Workgroups: Workgroups(n)}
	if n <= 0 {
		return nil, stats, nil
	}
	out := make([]splat.Surfel, n)

	var active atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for wg := uint32(0); wg < stats.Workgroups; wg++ {
		base := int(wg) * WorkgroupSize
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			wrote := 0
			for lid := 0; lid < WorkgroupSize; lid++ {
				if k.Invoke(base+lid, in, out) {
					wrote++
				}
			}
			active.Add(int64(wrote))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	stats.Invocations = int(stats.Workgroups) * WorkgroupSize
	stats.Active = int(active.Load())
	return out, stats, nil
}
