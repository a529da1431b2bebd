package renderer

import (
	"image"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
)

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// The part of the frame to render, in pixels from the top left corner.
	// An empty window renders the whole frame.
	Window image.Rectangle

	// Antialiasing. RaysPerPixel is the number of rays averaged for each
	// supersampled pixel; AAThreshold is the contrast, summed over the
	// colour and alpha channels, above which adaptive sampling refines a
	// pair of neighbouring pixels.
	Sampling     tracer.SampleMode
	RaysPerPixel uint32
	AAThreshold  float64

	// Maximum depth of reflection and refraction trees.
	MaxLevel int

	// Store pixel coverage in the alpha channel.
	Alpha bool

	// Number of workers; zero uses one per logical cpu.
	NumWorkers int

	// Seed for the jitter generators.
	Seed int64
}

// DefaultOptions returns the options for an unantialiased 512x512 frame.
func DefaultOptions() Options {
	return Options{
		FrameW:       512,
		FrameH:       512,
		Sampling:     tracer.Raw,
		RaysPerPixel: 4,
		AAThreshold:  0.03,
		MaxLevel:     6,
	}
}

// window returns the rendered part of the frame.
func (opts *Options) window() image.Rectangle {
	if opts.Window.Empty() {
		return image.Rect(0, 0, int(opts.FrameW), int(opts.FrameH))
	}
	return opts.Window
}
