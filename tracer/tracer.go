package tracer

import "time"

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Block start row and height, relative to the fragment being rendered.
	BlockY uint32
	BlockH uint32

	// A random seed value for the tracer's jitter generator.
	Seed int64

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering this block
	BlockTime time.Duration

	// Rays traced while rendering the block.
	Rays RayStats
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Shutdown and cleanup tracer.
	Close()

	// Get the tracers computation speed estimate compared to a
	// baseline worker.
	SpeedEstimate() float32

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Retrieve last block statistics.
	Stats() *Stats
}
