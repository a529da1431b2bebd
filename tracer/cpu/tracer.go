// Package cpu implements a tracer that shades blocks of image rows on a
// dedicated goroutine.
package cpu

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/hfield"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/log"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/scene"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/shade"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/pkg/errors"
)

var (
	ErrClosed        = errors.New("cpu tracer: tracer is closed")
	ErrInvalidWindow = errors.New("cpu tracer: fragment window outside of the frame")
)

// Config describes the frame a tracer contributes to.
type Config struct {
	// Full frame dims. Screen coordinates are derived from these so that a
	// fragment renders exactly as the same pixels of the whole frame.
	FrameW int
	FrameH int

	// The rendered part of the frame, in pixel coordinates with the origin
	// at the top left corner. Block rows are relative to Window.Min.Y.
	Window image.Rectangle

	Sampling     tracer.SampleMode
	RaysPerPixel int
	AAThreshold  float64
	MaxLevel     int

	// Write the coverage of each pixel into the alpha channel. When unset
	// every pixel is opaque.
	Alpha bool
}

type cpuTracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The tracer id.
	id string

	cfg   Config
	frame *image.NRGBA

	// Worker local tracing state.
	ctx    *tracer.Context
	shader *shade.Shader

	// Screen units per pixel.
	scale float64

	// Cached square sample masks keyed by ray count.
	masks map[int]*squareMask

	// A channel for receiving block requests from the renderer.
	blockReqChan chan tracer.BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered block.
	stats *tracer.Stats
}

// Create a new tracer for scene sc. Rendered pixels are written to frame
// whose bounds must match the size of cfg.Window. The scene camera must
// already be set up for the frame size.
func NewTracer(id string, sc *scene.Scene, frame *image.NRGBA, cfg Config) (tracer.Tracer, error) {
	if cfg.Window.Empty() || !cfg.Window.In(image.Rect(0, 0, cfg.FrameW, cfg.FrameH)) {
		return nil, errors.Wrapf(ErrInvalidWindow, "window %v, frame %dx%d", cfg.Window, cfg.FrameW, cfg.FrameH)
	}
	if frame.Bounds().Size() != cfg.Window.Size() {
		return nil, errors.Errorf("cpu tracer: frame size %v does not match window %v", frame.Bounds().Size(), cfg.Window)
	}
	cfg.RaysPerPixel = max(cfg.RaysPerPixel, 1)

	ctx := tracer.NewContext(len(sc.Objects), 0)
	tr := &cpuTracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		cfg:          cfg,
		frame:        frame,
		ctx:          ctx,
		shader:       shade.New(sc, ctx, cfg.MaxLevel),
		scale:        2 / float64(max(min(cfg.FrameW, cfg.FrameH), 1)),
		masks:        make(map[int]*squareMask),
		blockReqChan: make(chan tracer.BlockRequest, 1),
		closeChan:    make(chan struct{}),
		stats:        &tracer.Stats{},
	}
	tr.startWorker()
	return tr, nil
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// All cpu tracers run at the same speed.
func (tr *cpuTracer) SpeedEstimate() float32 {
	return 1
}

// Shutdown the worker. Close blocks until the block in progress, if any,
// has been rendered.
func (tr *cpuTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	if tr.closeChan == nil {
		return
	}
	tr.closeChan <- struct{}{}

	// wait for worker to ack close and shutdown channel
	<-tr.closeChan
	close(tr.closeChan)
	tr.closeChan = nil
	tr.wg.Wait()
}

// Enqueue block request.
func (tr *cpuTracer) Enqueue(blockReq tracer.BlockRequest) {
	tr.Lock()
	defer tr.Unlock()

	if tr.closeChan == nil {
		blockReq.ErrChan <- ErrClosed
		return
	}

	select {
	case tr.blockReqChan <- blockReq:
	default:
		// drop the request if worker is not listening
		tr.logger.Error("request processor did not receive block request")
		blockReq.ErrChan <- errors.Errorf("cpu tracer: %s is busy; dropped block at row %d", tr.id, blockReq.BlockY)
	}
}

// Retrieve last block statistics.
func (tr *cpuTracer) Stats() *tracer.Stats {
	return tr.stats
}

// Spawn a go-routine to process block render requests.
func (tr *cpuTracer) startWorker() {
	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		var blockReq tracer.BlockRequest
		var startTime time.Time
		var err error
		close(readyChan)
		for {
			select {
			case blockReq = <-tr.blockReqChan:
				startTime = time.Now()
				before := tr.ctx.Stats

				// Render block and reply with our completion status
				err = tr.renderBlock(&blockReq)
				if err != nil {
					blockReq.ErrChan <- err
					continue
				}

				// Update stats
				tr.stats.BlockH = blockReq.BlockH
				tr.stats.BlockTime = time.Since(startTime)
				tr.stats.Rays = tr.ctx.Stats.Since(before)

				blockReq.DoneChan <- blockReq.BlockH
			case <-tr.closeChan:
				// Ack close
				tr.closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Render block. A height field running out of cache nodes aborts the
// block with a *hfield.PoolExhaustedError.
func (tr *cpuTracer) renderBlock(blockReq *tracer.BlockRequest) (err error) {
	y0 := tr.cfg.Window.Min.Y + int(blockReq.BlockY)
	y1 := y0 + int(blockReq.BlockH)
	if blockReq.BlockH == 0 || y1 > tr.cfg.Window.Max.Y {
		return errors.Errorf("cpu tracer: block rows [%d, %d) outside of window %v", y0, y1, tr.cfg.Window)
	}

	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(*hfield.PoolExhaustedError)
			if !ok {
				panic(r)
			}
			tr.logger.Criticalf("aborting block at row %d: %s", y0, pe)
			err = pe
		}
	}()

	// Whatever a previous aborted block left in the arena is garbage.
	tr.ctx.Arena.Reset()
	tr.shader.Reset()
	tr.ctx.Rand.Seed(blockReq.Seed)

	switch tr.cfg.Sampling {
	case tracer.Adaptive:
		tr.renderAdaptive(y0, y1)
	case tracer.Grid:
		for y := y0; y < y1; y++ {
			for x := tr.cfg.Window.Min.X; x < tr.cfg.Window.Max.X; x++ {
				tr.setPixel(x, y, tr.gridSample(x, y))
			}
		}
	default:
		for y := y0; y < y1; y++ {
			for x := tr.cfg.Window.Min.X; x < tr.cfg.Window.Max.X; x++ {
				tr.setPixel(x, y, tr.sampleOnce(x, y))
			}
		}
	}
	return nil
}
