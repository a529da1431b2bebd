package renderer

import (
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/log"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/scene"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer/cpu"
	"github.com/pkg/errors"
	pscpu "github.com/shirou/gopsutil/v3/cpu"
)

var logger = log.New("renderer")

// A renderer that splits the frame rows between a pool of cpu tracers and
// waits for all of them to finish.
type defaultRenderer struct {
	sync.Mutex

	scene     *scene.Scene
	scheduler tracer.BlockScheduler
	options   Options
	window    image.Rectangle

	tracers          []tracer.Tracer
	blockAssignments []uint32

	frame      *image.NRGBA
	frameCount int64
	stats      FrameStats

	interruptChan chan struct{}
}

// Create a new renderer for sc using the specified block scheduler. The
// scene camera is set up for the frame size.
func NewDefault(sc *scene.Scene, scheduler tracer.BlockScheduler, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return nil, errors.Wrapf(ErrInvalidOptions, "frame size %dx%d", opts.FrameW, opts.FrameH)
	}
	window := opts.window()
	if !window.In(image.Rect(0, 0, int(opts.FrameW), int(opts.FrameH))) {
		return nil, errors.Wrapf(ErrInvalidOptions, "window %v outside of %dx%d frame", window, opts.FrameW, opts.FrameH)
	}
	if opts.Sampling != tracer.Raw && opts.RaysPerPixel == 0 {
		return nil, errors.Wrapf(ErrInvalidOptions, "%s sampling needs at least one ray per pixel", opts.Sampling)
	}

	sc.Camera.Setup(int(opts.FrameW), int(opts.FrameH))

	r := &defaultRenderer{
		scene:         sc,
		scheduler:     scheduler,
		options:       opts,
		window:        window,
		frame:         image.NewNRGBA(image.Rect(0, 0, window.Dx(), window.Dy())),
		interruptChan: make(chan struct{}, 1),
	}

	// Each tracer needs at least one row.
	numWorkers := min(workerCount(opts.NumWorkers), window.Dy())
	cfg := cpu.Config{
		FrameW:       int(opts.FrameW),
		FrameH:       int(opts.FrameH),
		Window:       window,
		Sampling:     opts.Sampling,
		RaysPerPixel: int(opts.RaysPerPixel),
		AAThreshold:  opts.AAThreshold,
		MaxLevel:     opts.MaxLevel,
		Alpha:        opts.Alpha,
	}
	for i := 0; i < numWorkers; i++ {
		tr, err := cpu.NewTracer(fmt.Sprintf("cpu-%d", i), sc, r.frame, cfg)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.tracers = append(r.tracers, tr)
	}
	if len(r.tracers) == 0 {
		return nil, ErrNoTracers
	}

	logger.Infof("rendering %v of a %dx%d frame with %d workers (%s sampling)", window, opts.FrameW, opts.FrameH, len(r.tracers), opts.Sampling)
	return r, nil
}

// workerCount returns n if positive, or the number of logical cpus.
func workerCount(n int) int {
	if n > 0 {
		return n
	}
	count, err := pscpu.Counts(true)
	if err != nil || count <= 0 {
		logger.Warningf("could not count logical cpus; falling back to the go runtime: %v", err)
		return runtime.NumCPU()
	}
	return count
}

// Render frame.
func (r *defaultRenderer) Render() error {
	r.Lock()
	defer r.Unlock()

	return r.renderFrame()
}

// Interrupt aborts a Render call in progress with ErrInterrupted. Blocks
// already handed to tracers still run to completion.
func (r *defaultRenderer) Interrupt() {
	select {
	case r.interruptChan <- struct{}{}:
	default:
	}
}

// The rendered frame.
func (r *defaultRenderer) Frame() *image.NRGBA {
	return r.frame
}

// Get last frame stats.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}

// Shutdown renderer and any attached tracer.
func (r *defaultRenderer) Close() {
	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Render a frame. This method is meant to be called while holding r.Lock().
func (r *defaultRenderer) renderFrame() error {
	if len(r.tracers) == 0 {
		return ErrNoTracers
	}

	// Drop a stale interrupt.
	select {
	case <-r.interruptChan:
	default:
	}

	start := time.Now()
	fragH := uint32(r.window.Dy())
	r.blockAssignments = r.scheduler.Schedule(r.tracers, fragH)

	// Buffered so that tracers never block on a renderer that gave up.
	doneChan := make(chan uint32, len(r.tracers))
	errChan := make(chan error, len(r.tracers))

	var blockY uint32
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		if blockH == 0 {
			continue
		}
		tr.Enqueue(tracer.BlockRequest{
			BlockY:   blockY,
			BlockH:   blockH,
			Seed:     r.options.Seed + r.frameCount*int64(r.options.FrameH) + int64(blockY),
			DoneChan: doneChan,
			ErrChan:  errChan,
		})
		blockY += blockH
	}
	r.frameCount++

	for pending := blockY; pending > 0; {
		select {
		case rows := <-doneChan:
			pending -= rows
			logger.Debugf("%d of %d rows done", blockY-pending, fragH)
		case err := <-errChan:
			return err
		case <-r.interruptChan:
			return ErrInterrupted
		}
	}

	r.stats = r.collectStats(time.Since(start))
	logger.Noticef("rendered %dx%d pixels in %s", r.window.Dx(), r.window.Dy(), r.stats.RenderTime)
	return nil
}

func (r *defaultRenderer) collectStats(renderTime time.Duration) FrameStats {
	stats := FrameStats{
		Tracers:    make([]TracerStat, len(r.tracers)),
		RenderTime: renderTime,
	}
	fragH := float32(r.window.Dy())
	for idx, tr := range r.tracers {
		trStats := tr.Stats()
		stats.Tracers[idx] = TracerStat{
			Id:           tr.Id(),
			IsPrimary:    idx == 0,
			BlockH:       r.blockAssignments[idx],
			FramePercent: 100 * float32(r.blockAssignments[idx]) / fragH,
			RenderTime:   trStats.BlockTime,
			Rays:         trStats.Rays,
		}
		stats.Rays.Add(trStats.Rays)
	}
	return stats
}
