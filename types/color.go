package types

// An RGB colour with components nominally in [0, 1].
type Color [3]float64

// A shaded sample: RGB plus alpha.
type Pixel [4]float64

// Create a grey colour.
func Grey(v float64) Color {
	return Color{v, v, v}
}

// Add a colour.
func (c Color) Add(c2 Color) Color {
	return Color{c[0] + c2[0], c[1] + c2[1], c[2] + c2[2]}
}

// Component-wise product.
func (c Color) Mul(c2 Color) Color {
	return Color{c[0] * c2[0], c[1] * c2[1], c[2] * c2[2]}
}

// Multiply by a scalar.
func (c Color) Scale(s float64) Color {
	return Color{c[0] * s, c[1] * s, c[2] * s}
}

// Returns true if all components are zero.
func (c Color) IsBlack() bool {
	return c[0] == 0 && c[1] == 0 && c[2] == 0
}

// Clamp every component to [0, 1].
func (c Color) Clamp() Color {
	for i := range c {
		c[i] = clamp01(c[i])
	}
	return c
}

// Attach an alpha value.
func (c Color) Pixel(alpha float64) Pixel {
	return Pixel{c[0], c[1], c[2], alpha}
}

// Colour part of the pixel.
func (p Pixel) Color() Color {
	return Color{p[0], p[1], p[2]}
}

// Alpha part of the pixel.
func (p Pixel) Alpha() float64 {
	return p[3]
}

// Add a pixel.
func (p Pixel) Add(p2 Pixel) Pixel {
	return Pixel{p[0] + p2[0], p[1] + p2[1], p[2] + p2[2], p[3] + p2[3]}
}

// Multiply by a scalar.
func (p Pixel) Scale(s float64) Pixel {
	return Pixel{p[0] * s, p[1] * s, p[2] * s, p[3] * s}
}

// Clamp every component to [0, 1].
func (p Pixel) Clamp() Pixel {
	for i := range p {
		p[i] = clamp01(p[i])
	}
	return p
}

// Sum of absolute component differences, used as the contrast measure for
// adaptive antialiasing.
func (p Pixel) Contrast(p2 Pixel) float64 {
	var sum float64
	for i := range p {
		d := p[i] - p2[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
