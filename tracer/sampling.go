package tracer

import (
	"strings"

	"github.com/pkg/errors"
)

// SampleMode selects how pixels are antialiased.
type SampleMode uint8

const (
	// One ray through the centre of every pixel.
	Raw SampleMode = iota

	// A jittered grid of rays for every pixel.
	Grid

	// One ray per pixel plus extra rays where neighbouring pixels differ
	// by more than a contrast threshold.
	Adaptive
)

var ErrUnknownSampleMode = errors.New("tracer: unknown sampling mode")

var sampleModeNames = [...]string{
	Raw:      "raw",
	Grid:     "grid",
	Adaptive: "adaptive",
}

func (m SampleMode) String() string {
	if int(m) < len(sampleModeNames) {
		return sampleModeNames[m]
	}
	return "unknown"
}

// ParseSampleMode maps a mode name to a SampleMode.
func ParseSampleMode(name string) (SampleMode, error) {
	for m, n := range sampleModeNames {
		if strings.EqualFold(name, n) {
			return SampleMode(m), nil
		}
	}
	return Raw, errors.Wrapf(ErrUnknownSampleMode, "%q", name)
}
