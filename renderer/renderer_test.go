package renderer

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/scene"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/pkg/errors"
)

func sphereScene(t *testing.T) *scene.Scene {
	b, err := scene.LoadDemo("sphere")
	if err != nil {
		t.Fatal(err)
	}
	opts := scene.DefaultOptions()
	opts.Background = types.Color{0, 0, 1}
	sc, err := b.Build(opts)
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

func smallFrame(workers int) Options {
	opts := DefaultOptions()
	opts.FrameW = 16
	opts.FrameH = 16
	opts.NumWorkers = workers
	return opts
}

func TestNewDefaultValidation(t *testing.T) {
	type spec struct {
		noScene  bool
		noCamera bool
		mutate   func(*Options)
		expErr   error
	}
	specs := []spec{
		{noScene: true, expErr: ErrSceneNotDefined},
		{noCamera: true, expErr: ErrCameraNotDefined},
		{mutate: func(o *Options) { o.FrameW = 0 }, expErr: ErrInvalidOptions},
		{mutate: func(o *Options) { o.Window = image.Rect(8, 8, 20, 12) }, expErr: ErrInvalidOptions},
		{mutate: func(o *Options) { o.Sampling, o.RaysPerPixel = tracer.Grid, 0 }, expErr: ErrInvalidOptions},
	}

	for index, s := range specs {
		var sc *scene.Scene
		if !s.noScene {
			sc = sphereScene(t)
			if s.noCamera {
				sc.Camera = nil
			}
		}
		opts := smallFrame(1)
		if s.mutate != nil {
			s.mutate(&opts)
		}

		r, err := NewDefault(sc, tracer.NewNaiveScheduler(), opts)
		if errors.Cause(err) != s.expErr {
			if r != nil {
				r.Close()
			}
			t.Fatalf("[spec %d] expected error %v; got %v", index, s.expErr, err)
		}
	}
}

func TestRenderSphere(t *testing.T) {
	r, err := NewDefault(sphereScene(t), tracer.NewNaiveScheduler(), smallFrame(3))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if err = r.Render(); err != nil {
		t.Fatal(err)
	}

	frame := r.Frame()
	if got := frame.NRGBAAt(0, 0); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Fatalf("expected background in the corner; got %v", got)
	}
	if got := frame.NRGBAAt(8, 8); got.R < 200 || got.B > 100 {
		t.Fatalf("expected the lit sphere at the centre; got %v", got)
	}

	stats := r.Stats()
	if len(stats.Tracers) != 3 {
		t.Fatalf("expected stats for 3 tracers; got %d", len(stats.Tracers))
	}
	var rows uint32
	var percent float32
	for index, st := range stats.Tracers {
		if st.IsPrimary != (index == 0) {
			t.Fatalf("expected only tracer 0 to be primary; tracer %d primary: %t", index, st.IsPrimary)
		}
		rows += st.BlockH
		percent += st.FramePercent
	}
	if rows != 16 {
		t.Fatalf("expected 16 rows to be assigned; got %d", rows)
	}
	if math.Abs(float64(percent)-100) > 1e-3 {
		t.Fatalf("expected blocks to cover the whole frame; got %f%%", percent)
	}
	if n := stats.Rays.Rays[tracer.Primary]; n != 256 {
		t.Fatalf("expected 256 primary rays; got %d", n)
	}
}

func TestWorkerCountMatchesOutput(t *testing.T) {
	type spec struct {
		workers   int
		scheduler tracer.BlockScheduler
	}
	specs := []spec{
		{2, tracer.NewNaiveScheduler()},
		{5, tracer.NewPerfectScheduler()},
		{64, tracer.NewNaiveScheduler()},
	}

	sc := sphereScene(t)
	ref, err := NewDefault(sc, tracer.NewNaiveScheduler(), smallFrame(1))
	if err != nil {
		t.Fatal(err)
	}
	defer ref.Close()
	if err = ref.Render(); err != nil {
		t.Fatal(err)
	}

	for index, s := range specs {
		r, err := NewDefault(sc, s.scheduler, smallFrame(s.workers))
		if err != nil {
			t.Fatalf("[spec %d] %v", index, err)
		}
		// A second frame exercises the scheduler feedback.
		for pass := 0; pass < 2; pass++ {
			if err = r.Render(); err != nil {
				r.Close()
				t.Fatalf("[spec %d] pass %d: %v", index, pass, err)
			}
			if !bytes.Equal(r.Frame().Pix, ref.Frame().Pix) {
				r.Close()
				t.Fatalf("[spec %d] pass %d: expected the same frame as a single worker", index, pass)
			}
		}
		if got, exp := len(r.Stats().Tracers), min(s.workers, 16); got != exp {
			t.Fatalf("[spec %d] expected %d tracers; got %d", index, exp, got)
		}
		r.Close()
	}
}

func TestRenderWindow(t *testing.T) {
	sc := sphereScene(t)
	full, err := NewDefault(sc, tracer.NewNaiveScheduler(), smallFrame(2))
	if err != nil {
		t.Fatal(err)
	}
	defer full.Close()
	if err = full.Render(); err != nil {
		t.Fatal(err)
	}

	opts := smallFrame(2)
	opts.Window = image.Rect(6, 2, 14, 5)
	frag, err := NewDefault(sc, tracer.NewNaiveScheduler(), opts)
	if err != nil {
		t.Fatal(err)
	}
	defer frag.Close()
	if err = frag.Render(); err != nil {
		t.Fatal(err)
	}

	if size := frag.Frame().Bounds().Size(); size != opts.Window.Size() {
		t.Fatalf("expected a %v frame; got %v", opts.Window.Size(), size)
	}
	for y := 0; y < opts.Window.Dy(); y++ {
		for x := 0; x < opts.Window.Dx(); x++ {
			exp := full.Frame().NRGBAAt(x+opts.Window.Min.X, y+opts.Window.Min.Y)
			if got := frag.Frame().NRGBAAt(x, y); got != exp {
				t.Fatalf("expected window pixel (%d, %d) to be %v; got %v", x, y, exp, got)
			}
		}
	}
	if got := len(frag.Stats().Tracers); got != 2 {
		t.Fatalf("expected 2 tracers; got %d", got)
	}
}

func TestStaleInterruptIsDropped(t *testing.T) {
	r, err := NewDefault(sphereScene(t), tracer.NewNaiveScheduler(), smallFrame(2))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	r.Interrupt()
	r.Interrupt()
	if err = r.Render(); err != nil {
		t.Fatalf("expected an interrupt raised between frames to be ignored; got %v", err)
	}
}

func TestRenderAfterClose(t *testing.T) {
	r, err := NewDefault(sphereScene(t), tracer.NewNaiveScheduler(), smallFrame(1))
	if err != nil {
		t.Fatal(err)
	}
	r.Close()
	if err = r.Render(); err != ErrNoTracers {
		t.Fatalf("expected ErrNoTracers; got %v", err)
	}
}
