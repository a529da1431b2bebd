package renderer

import "image"

type Renderer interface {
	// Render frame.
	Render() error

	// Abort a Render call in progress.
	Interrupt()

	// The rendered frame. Its bounds match the size of the render window.
	Frame() *image.NRGBA

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}
