package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split frame into blocks of variable height and assign to the pool
	// of tracers using feedback collected from previous frames.
	//
	// This function returns the block height assignment for each tracer
	// in the input list.
	Schedule(tracers []Tracer, frameH uint32) []uint32
}

// The naive scheduler splits rows proportionally to each tracer's speed
// estimate and ignores past performance.
type naiveScheduler struct{}

// Create a new naive scheduler instance.
func NewNaiveScheduler() BlockScheduler {
	return naiveScheduler{}
}

func (naiveScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	return speedAssignment(make([]uint32, len(tracers)), tracers, frameH)
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance
func NewPerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// Split frame into blocks of variable height and assign to the pool
// of tracers using feedback collected from previous frames.
//
// This function returns the block height assignment for each tracer in the
// input list. When previous frame information is available the scheduler
// uses the following formula for estimating the workload for tracer w and frame i+1:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
func (sch *perfectScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	// If this is the first time we try to schedule or the number of tracers
	// has changed we need to reset the block assignments
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = speedAssignment(make([]uint32, len(tracers)), tracers, frameH)
		return sch.blockAssignment
	}

	// Use last frame statistics; a tracer without timing information
	// falls back to the speed estimates.
	var total float64
	var stats *Stats
	for _, tr := range tracers {
		stats = tr.Stats()
		if stats.BlockTime <= 0 || stats.BlockH == 0 {
			return speedAssignment(sch.blockAssignment, tracers, frameH)
		}
		total += float64(stats.BlockH) / float64(stats.BlockTime)
	}

	scaler := float64(frameH) / total
	var scheduledRows uint32
	for idx, tr := range tracers {
		stats = tr.Stats()
		sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(float64(stats.BlockH)/float64(stats.BlockTime)*scaler)))
		scheduledRows += sch.blockAssignment[idx]
	}

	return fixupRows(sch.blockAssignment, scheduledRows, frameH)
}

func speedAssignment(out []uint32, tracers []Tracer, frameH uint32) []uint32 {
	var total float64
	for _, tr := range tracers {
		total += float64(tr.SpeedEstimate())
	}
	scaler := float64(frameH) / total

	var scheduledRows uint32
	for idx, tr := range tracers {
		out[idx] = uint32(math.Max(1.0, math.Floor(float64(tr.SpeedEstimate())*scaler)))
		scheduledRows += out[idx]
	}

	return fixupRows(out, scheduledRows, frameH)
}

// In case rows don't add up to the frame height append the missing ones to
// the first tracer. Overshoots caused by the one row minimum are taken back
// from the largest blocks.
func fixupRows(rows []uint32, scheduledRows, frameH uint32) []uint32 {
	if scheduledRows <= frameH {
		rows[0] += frameH - scheduledRows
		return rows
	}

	for excess := scheduledRows - frameH; excess > 0; excess-- {
		largest := 0
		for idx := range rows {
			if rows[idx] > rows[largest] {
				largest = idx
			}
		}
		if rows[largest] <= 1 {
			break
		}
		rows[largest]--
	}
	return rows
}
