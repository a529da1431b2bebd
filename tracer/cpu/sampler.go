package cpu

import (
	"image/color"
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// A squareMask covers the unit square with a k x k grid of cell centres.
// Every point may be jittered by up to magnitude along each axis, which
// keeps it inside its cell.
type squareMask struct {
	points    [][2]float64
	magnitude float64
}

func newSquareMask(n int) *squareMask {
	n = max(n, 1)
	k := int(math.Ceil(math.Sqrt(float64(n))))
	m := &squareMask{
		points:    make([][2]float64, 0, k*k),
		magnitude: 0.5 / float64(k),
	}
	for j := 0; j < k; j++ {
		for i := 0; i < k; i++ {
			m.points = append(m.points, [2]float64{
				(float64(i) + 0.5) / float64(k),
				(float64(j) + 0.5) / float64(k),
			})
		}
	}
	return m
}

func (tr *cpuTracer) mask(n int) *squareMask {
	m, ok := tr.masks[n]
	if !ok {
		m = newSquareMask(n)
		tr.masks[n] = m
	}
	return m
}

// screen maps a point of the frame, in pixels from the top left corner, to
// screen coordinates where the shorter frame side spans [-1, 1] and y grows
// upwards.
func (tr *cpuTracer) screen(px, py float64) (float64, float64) {
	return (px - float64(tr.cfg.FrameW)/2) * tr.scale,
		(float64(tr.cfg.FrameH)/2 - py) * tr.scale
}

// sampleOnce shades the ray through the centre of pixel (x, y).
func (tr *cpuTracer) sampleOnce(x, y int) types.Pixel {
	return tr.shader.Pixel(tr.screen(float64(x)+0.5, float64(y)+0.5))
}

// jittered shades the ray through point i of mask m placed over pixel
// (x, y).
func (tr *cpuTracer) jittered(m *squareMask, i, x, y int) types.Pixel {
	u := m.points[i][0] + m.magnitude*(1-2*tr.ctx.Rand.Float64())
	v := m.points[i][1] + m.magnitude*(1-2*tr.ctx.Rand.Float64())
	return tr.shader.Pixel(tr.screen(float64(x)+u, float64(y)+v))
}

// gridSample averages RaysPerPixel jittered rays spread over pixel (x, y).
func (tr *cpuTracer) gridSample(x, y int) types.Pixel {
	n := tr.cfg.RaysPerPixel
	m := tr.mask(n)
	var sum types.Pixel
	for i := 0; i < n; i++ {
		sum = sum.Add(tr.jittered(m, i, x, y))
	}
	return sum.Scale(1 / float64(n))
}

// supersample refines first, the centre sample of pixel (x, y), with
// RaysPerPixel-1 jittered rays and returns the average of all of them.
func (tr *cpuTracer) supersample(x, y int, first types.Pixel) types.Pixel {
	n := tr.cfg.RaysPerPixel
	m := tr.mask(n)
	sum := first
	for i := 0; i < n-1; i++ {
		sum = sum.Add(tr.jittered(m, i, x, y))
	}
	return sum.Scale(1 / float64(n))
}

// A scan line of samples. Index 0 holds the pixel left of the window and
// the last index the pixel right of it.
type line struct {
	px   []types.Pixel
	done []bool
}

func newLine(n int) *line {
	return &line{px: make([]types.Pixel, n), done: make([]bool, n)}
}

// renderAdaptive shades rows [y0, y1) with one ray per pixel and
// supersamples every pair of neighbouring pixels whose contrast exceeds the
// threshold. The rows just outside the block and the columns just outside
// the window are sampled too so that edge pixels are compared on all
// sides; they are never supersampled or written.
func (tr *cpuTracer) renderAdaptive(y0, y1 int) {
	minX, w := tr.cfg.Window.Min.X, tr.cfg.Window.Dx()
	prev, cur := newLine(w+2), newLine(w+2)

	for i := range prev.px {
		prev.px[i] = tr.sampleOnce(minX+i-1, y0-1)
		prev.done[i] = true
	}

	for y := y0; y <= y1; y++ {
		inside := y < y1
		for i := range cur.px {
			cur.px[i] = tr.sampleOnce(minX+i-1, y)
			cur.done[i] = !inside || i == 0 || i == w+1
			if i > 0 {
				tr.refine(prev, cur, i, minX+i-1, y)
			}
		}

		// The previous row can no longer change.
		if y > y0 {
			for i := 1; i <= w; i++ {
				tr.setPixel(minX+i-1, y-1, prev.px[i])
			}
		}
		prev, cur = cur, prev
	}
}

// refine compares pixel i of cur, at frame position (x, y), against its
// upper and left neighbours and supersamples both sides of every pair that
// differs too much.
func (tr *cpuTracer) refine(prev, cur *line, i, x, y int) {
	if cur.px[i].Contrast(prev.px[i]) > tr.cfg.AAThreshold {
		if !prev.done[i] {
			prev.px[i] = tr.supersample(x, y-1, prev.px[i])
			prev.done[i] = true
		}
		if !cur.done[i] {
			cur.px[i] = tr.supersample(x, y, cur.px[i])
			cur.done[i] = true
		}
	}

	if cur.px[i].Contrast(cur.px[i-1]) > tr.cfg.AAThreshold {
		if !cur.done[i-1] {
			cur.px[i-1] = tr.supersample(x-1, y, cur.px[i-1])
			cur.done[i-1] = true
		}
		if !cur.done[i] {
			cur.px[i] = tr.supersample(x, y, cur.px[i])
			cur.done[i] = true
		}
	}
}

// setPixel stores the sample for frame pixel (x, y).
func (tr *cpuTracer) setPixel(x, y int, p types.Pixel) {
	p = p.Clamp()
	a := p.Alpha()
	if !tr.cfg.Alpha {
		a = 1
	}
	org := tr.frame.Rect.Min
	tr.frame.SetNRGBA(org.X+x-tr.cfg.Window.Min.X, org.Y+y-tr.cfg.Window.Min.Y, color.NRGBA{
		R: to8(p[0]),
		G: to8(p[1]),
		B: to8(p[2]),
		A: to8(a),
	})
}

func to8(v float64) uint8 {
	return uint8(v*255 + 0.5)
}
