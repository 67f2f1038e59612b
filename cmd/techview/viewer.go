package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/loader"
	"github.com/Carmen-Shannon/oxy-tech/engine/profiler"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/framebuffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/layout"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/technique"
	"github.com/Carmen-Shannon/oxy-tech/engine/window"
)

type config struct {
	description string
	technique   string
	vsync       bool
	msaa        bool
	debug       bool
}

// viewer owns the device and everything drawn on it.
type viewer struct {
	cfg  config
	fsys fs.FS
	name string

	device   backend.WGPUDevice
	surface  framebuffer.FrameBuffer
	renderer renderer.Renderer
	profiler *profiler.Profiler
	// drawn is the registered name of the technique drawn each frame.
	drawn string

	triangle layout.RenderingLayout
	buffers  []buffer.GraphicsBuffer
	material material.Material

	start time.Time
}

func newViewer(cfg config, win window.Window, fsys fs.FS, name string) (*viewer, error) {
	presentMode := backend.PresentModeVSync
	if !cfg.vsync {
		presentMode = backend.PresentModeUncapped
	}
	samples := backend.MSAAOff
	if cfg.msaa {
		samples = backend.MSAA4x
	}

	device, err := backend.NewWGPUDevice(
		backend.WithSurfaceDescriptor(win.SurfaceDescriptor()),
		backend.WithPresentMode(presentMode),
		backend.WithSampleCount(samples),
	)
	if err != nil {
		return nil, err
	}
	v := &viewer{
		cfg:      cfg,
		fsys:     fsys,
		name:     name,
		device:   device,
		profiler: profiler.NewProfiler(),
		material: material.NewMaterial(
			material.WithName("triangle"),
			material.WithValue("tint", common.Vec4Value(mgl32.Vec4{1, 1, 1, 1})),
			material.WithValue("time", common.FloatValue(0)),
		),
		start: time.Now(),
	}
	if err := device.ConfigureSurface(win.Width(), win.Height()); err != nil {
		v.release()
		return nil, err
	}
	v.surface = framebuffer.Wrap(framebuffer.Layout{
		Name:   "surface",
		Colors: []framebuffer.Channel{{Name: "color", Format: device.SurfaceFormat()}},
		Depth:  gpu.FormatDepth24Plus,
	}, device.SurfaceFramebuffer())

	if err := v.buildTriangle(); err != nil {
		v.release()
		return nil, err
	}
	if err := v.load(); err != nil {
		v.release()
		return nil, err
	}
	return v, nil
}

// buildTriangle uploads one interleaved position/color triangle.
func (v *viewer) buildTriangle() error {
	vertices := []float32{
		0.0, 0.6, 0.0, 1.0, 0.2, 0.2, 1.0,
		-0.52, -0.3, 0.0, 0.2, 1.0, 0.2, 1.0,
		0.52, -0.3, 0.0, 0.2, 0.2, 1.0, 1.0,
	}
	indices := []uint32{0, 1, 2}
	const stride = 7 * 4

	vbuf, err := buffer.NewGraphicsBuffer(v.device, len(vertices)*4,
		buffer.WithLabel("triangle vertices"),
		buffer.WithData(common.SliceToBytes(vertices)),
	)
	if err != nil {
		return err
	}
	v.buffers = append(v.buffers, vbuf)
	ibuf, err := buffer.NewGraphicsBuffer(v.device, len(indices)*4,
		buffer.WithLabel("triangle indices"),
		buffer.WithData(common.SliceToBytes(indices)),
	)
	if err != nil {
		return err
	}
	v.buffers = append(v.buffers, ibuf)

	vb, err := buffer.NewVertexBuffer(buffer.DataLayoutDescription{
		Channels: []buffer.Channel{
			{Name: "position", Type: common.FloatV3, Offset: 0, Stride: stride},
			{Name: "color", Type: common.FloatV4, Offset: 12, Stride: stride},
		},
		ElementCount: 3,
	}, vbuf)
	if err != nil {
		return err
	}
	ib, err := buffer.NewIndexBuffer(gpu.TopologyTriangles, common.Uint, len(indices), ibuf)
	if err != nil {
		return err
	}
	v.triangle, err = layout.NewRenderingLayout(v.device, []buffer.VertexBuffer{vb}, ib, layout.WithLabel("triangle"))
	return err
}

// load reads the description and registers the drawn technique with a fresh renderer.
func (v *viewer) load() error {
	lib, err := loader.LoadTechniques(v.fsys, v.name)
	if err != nil {
		return err
	}
	root, ok := lib.Get(v.cfg.technique)
	if !ok {
		return fmt.Errorf("%s declares no technique %q (declared: %v)", v.name, v.cfg.technique, lib.Order)
	}
	root = onSurface(root, v.surface.Layout())

	r, err := renderer.NewRenderer(v.device,
		renderer.WithDebug(v.cfg.debug),
		renderer.WithCompileWorkers(2),
		renderer.WithProfiler(v.profiler),
	)
	if err != nil {
		return err
	}
	if err := r.RegisterTechniques(root); err != nil {
		r.Release()
		return err
	}
	if v.renderer != nil {
		v.renderer.Release()
	}
	v.renderer = r
	v.drawn = root.Name()
	common.Logger().Info("technique description loaded", slog.String("path", v.name), slog.String("technique", v.drawn))
	return nil
}

// onSurface returns root itself when its include graph declares a framebuffer layout, otherwise a node
// that includes root and requires the surface layout.
func onSurface(root *technique.BuildingInformation, surface framebuffer.Layout) *technique.BuildingInformation {
	if declaresLayout(root, map[*technique.BuildingInformation]bool{}) {
		return root
	}
	return technique.NewBuildingInformation(root.Name()+"@surface",
		technique.WithIncludes(root),
		technique.WithFramebufferLayout(surface),
	)
}

func declaresLayout(bi *technique.BuildingInformation, seen map[*technique.BuildingInformation]bool) bool {
	if seen[bi] {
		return false
	}
	seen[bi] = true
	if _, ok := bi.FramebufferLayout(); ok {
		return true
	}
	for _, inc := range bi.Includes() {
		if declaresLayout(inc, seen) {
			return true
		}
	}
	return false
}

func (v *viewer) frame() {
	v.surface.Clear(v.device, [4]float32{0.05, 0.05, 0.08, 1}, 1)

	if t := v.renderer.Technique(v.drawn); t != nil {
		if t.FrameBuffer() == nil {
			if err := t.ConnectFrameBuffer(v.surface); err != nil {
				common.Logger().Error("connect surface", slog.Any("error", err))
			}
		}
		if t.FrameBuffer() != nil {
			v.material.SetParameter("time", common.FloatValue(float32(time.Since(v.start).Seconds())))
			if err := v.renderer.Draw(v.triangle, v.material, t); err != nil {
				common.Logger().Error("draw", slog.Any("error", err))
			}
		}
	}

	if err := v.renderer.EndFrame(); err != nil {
		common.Logger().Error("end frame", slog.Any("error", err))
	}
	if err := v.device.Present(); err != nil {
		common.Logger().Error("present", slog.Any("error", err))
	}
}

func (v *viewer) resize(width, height int) {
	if width == 0 || height == 0 {
		return
	}
	if err := v.device.ConfigureSurface(width, height); err != nil {
		common.Logger().Error("configure surface", slog.Any("error", err))
	}
}

func (v *viewer) key(code uint32) {
	switch code {
	case common.KeyR:
		if err := v.load(); err != nil {
			common.Logger().Error("reload technique description", slog.Any("error", err))
		}
	case common.KeyV:
		v.cfg.vsync = !v.cfg.vsync
		mode := backend.PresentModeVSync
		if !v.cfg.vsync {
			mode = backend.PresentModeUncapped
		}
		v.device.SetPresentMode(mode)
		v.resize(v.surface.Width(), v.surface.Height())
		common.Logger().Info("present mode changed", slog.Bool("vsync", v.cfg.vsync))
	case common.KeySpace:
		stats := v.profiler.Last()
		common.Logger().Info("frame stats", slog.Float64("fps", stats.FPS), slog.Int("draws", stats.Draws), slog.Int("builds", stats.Builds))
	}
}

func (v *viewer) release() {
	if v.renderer != nil {
		v.renderer.Release()
		v.renderer = nil
	}
	if v.triangle != nil {
		v.triangle.Release()
		v.triangle = nil
	}
	for _, b := range v.buffers {
		b.Release()
	}
	v.buffers = nil
	if v.device != nil {
		v.device.Release()
		v.device = nil
	}
}
