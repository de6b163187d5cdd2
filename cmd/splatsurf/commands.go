package main

import (
	"encoding/hex"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"

	"github.com/gekko3d/splatsurf"
	"github.com/gekko3d/splatsurf/surfelrt/rt/core"
	"github.com/gekko3d/splatsurf/surfelrt/rt/gpu"
	"github.com/gekko3d/splatsurf/surfelrt/rt/splat"
)

type session struct {
	manager  *splatsurf.Manager
	logger   *splatsurf.ZapLogger
	registry *prometheus.Registry
	print    bool
}

// openManager builds a Manager from the global flags. override may adjust
// the loaded config before it is validated.
func openManager(ctx *cli.Context, override func(*splatsurf.Config)) (*session, error) {
	cfg := splatsurf.DefaultConfig()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		if cfg, err = splatsurf.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if ctx.GlobalBool("v") {
		cfg.Debug = true
	}
	if override != nil {
		override(&cfg)
	}

	logger, err := splatsurf.NewZapLogger(cfg.LogPrefix, cfg.Debug)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	m, err := splatsurf.NewManagerBuilder().
		WithConfig(cfg).
		WithLogger(logger).
		WithRegisterer(reg).
		Build()
	if err != nil {
		return nil, err
	}
	return &session{manager: m, logger: logger, registry: reg, print: ctx.GlobalBool("metrics")}, nil
}

func (s *session) close() {
	s.manager.Close()
	if s.print {
		printMetrics(s.registry)
	}
	_ = s.logger.Sync()
}

func printMetrics(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			value := m.GetCounter().GetValue()
			if h := m.GetHistogram(); h != nil {
				value = float64(h.GetSampleCount())
			}
			fmt.Printf("%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
}

func argPath(ctx *cli.Context) (string, error) {
	path := ctx.Args().First()
	if path == "" {
		return "", fmt.Errorf("%s: missing %s", ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	return path, nil
}

// Info prints the splat count and the first records of a cloud.
func Info(ctx *cli.Context) error {
	path, err := argPath(ctx)
	if err != nil {
		return err
	}
	s, err := openManager(ctx, nil)
	if err != nil {
		return err
	}
	defer s.close()

	h, err := s.manager.Load(path)
	if err != nil {
		return err
	}
	count, _ := s.manager.Count(h)
	fmt.Printf("%s: %d splats\n", filepath.Base(path), count)
	for i := 0; i < count && i < ctx.Int("n"); i++ {
		fmt.Printf("[%d]", i)
		for _, field := range []string{"pos", "opacity", "scale", "rot", "sh"} {
			v, _ := s.manager.SplatField(h, i, field)
			fmt.Printf(" %s=%v", field, v)
		}
		fmt.Println()
	}
	return nil
}

// Geometry derives one surfel per splat.
func Geometry(ctx *cli.Context) error {
	return runCompute(ctx, func(m *splatsurf.Manager, h splatsurf.Handle) (int, error) {
		if ctx.Bool("cpu") {
			return m.ComputeGeometryCPU(h)
		}
		return m.ComputeGeometry(h)
	})
}

// Upsample emits factor surfels per splat.
func Upsample(ctx *cli.Context) error {
	factor := ctx.Int("factor")
	return runCompute(ctx, func(m *splatsurf.Manager, h splatsurf.Handle) (int, error) {
		if ctx.Bool("cpu") {
			return m.ComputeSuperResolutionCPU(h, factor)
		}
		return m.ComputeSuperResolution(h, factor)
	})
}

func runCompute(ctx *cli.Context, run func(*splatsurf.Manager, splatsurf.Handle) (int, error)) error {
	path, err := argPath(ctx)
	if err != nil {
		return err
	}
	s, err := openManager(ctx, func(cfg *splatsurf.Config) {
		if v := ctx.String("variant"); v != "" {
			cfg.Variant = v
		}
	})
	if err != nil {
		return err
	}
	defer s.close()

	h, err := s.manager.Load(path)
	if err != nil {
		return err
	}
	n, err := run(s.manager, h)
	if err != nil {
		return err
	}
	layout, _ := s.manager.SurfelLayout(h)
	fmt.Printf("%s: %d surfels (%s)\n", filepath.Base(path), n, layout)

	out := ctx.String("out")
	switch {
	case out == "":
		return nil
	case strings.EqualFold(filepath.Ext(out), ".pcd"):
		return s.manager.SavePCD(h, out)
	default:
		return s.manager.SavePLY(h, out)
	}
}

// ListAdapters prints every adapter and marks the one Acquire would pick.
func ListAdapters(ctx *cli.Context) error {
	cfg := splatsurf.DefaultConfig()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		if cfg, err = splatsurf.LoadConfig(path); err != nil {
			return err
		}
	}
	pref, err := gpu.ParsePowerPreference(cfg.PowerPreference)
	if err != nil {
		return err
	}

	infos := gpu.EnumerateAdapterInfos()
	selected, _ := gpu.SelectAdapter(infos, pref)
	fmt.Printf("%d adapter(s), preference %s:\n", len(infos), pref)
	for i, info := range infos {
		mark := " "
		if i == selected {
			mark = "*"
		} else if !info.Usable() {
			mark = "-"
		}
		fmt.Printf(" %s [%02d] %s\n", mark, i, info)
	}
	return nil
}

// Fixture writes a random splat cloud.
func Fixture(ctx *cli.Context) error {
	rng := rand.New(rand.NewSource(ctx.Int64("seed")))
	splats := splat.RandomSplats(rng, ctx.Int("count"))
	out := ctx.String("out")
	if err := os.WriteFile(out, splat.EncodeFile(splats), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %d splats to %s\n", len(splats), out)
	return nil
}

// Uniform prints the 128-byte presentation block as hex.
func Uniform(ctx *cli.Context) error {
	mode := core.DisplayColor
	switch ctx.String("mode") {
	case "color":
	case "normal":
		mode = core.DisplayNormal
	default:
		return fmt.Errorf("unknown display mode %q", ctx.String("mode"))
	}
	state := core.NewOrbitState(float32(ctx.Int("width")), float32(ctx.Int("height")))
	state = core.Rotate(state, float32(ctx.Float64("yaw")), float32(ctx.Float64("pitch")))
	state = core.Zoom(state, float32(ctx.Float64("zoom")))
	block := core.UniformBlock(state, mode)
	fmt.Print(hex.Dump(block[:]))
	return nil
}
