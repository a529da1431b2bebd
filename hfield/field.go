// Package hfield implements height field surfaces: a read-only grid of
// heights shared by all workers plus a per worker cache that lazily builds
// the quad-tree and the triangles of the cells rays actually visit.
package hfield

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/log"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/pkg/errors"
)

var logger = log.New("hfield")

var (
	ErrBadSize = errors.New("hfield: a height field needs at least 2x2 samples")
	ErrBadData = errors.New("hfield: sample count does not match the field size")
)

// A Field is a grid of XSize x YSize heights. Sample (i, j) sits at
// x = i/(n-1), y = j/(n-1) where n is the larger of the two sizes, so the
// field always fits in the unit square.
type Field struct {
	XSize, YSize int
	Z            []float64

	// Optional per sample colours.
	Colours []types.Color

	// Per sample normals; only set for phong shaded fields.
	Normals []types.Vec3

	size       float64
	minz, maxz float64
}

// New creates a field from xsize*ysize heights stored row by row. colours
// may be nil; otherwise it needs one entry per sample. Phong shaded fields
// interpolate normals averaged from the surrounding triangles.
func New(xsize, ysize int, z []float64, colours []types.Color, phong bool) (*Field, error) {
	if xsize < 2 || ysize < 2 {
		return nil, ErrBadSize
	}
	if len(z) != xsize*ysize || (colours != nil && len(colours) != len(z)) {
		return nil, ErrBadData
	}

	f := &Field{
		XSize:   xsize,
		YSize:   ysize,
		Z:       z,
		Colours: colours,
		size:    float64(max(xsize, ysize) - 1),
	}
	f.minz, f.maxz = f.zrange(0, xsize-1, 0, ysize-1)

	if phong {
		f.calcNormals()
	}
	return f, nil
}

// Bounds returns the object space box of the whole field.
func (f *Field) Bounds() types.BBox {
	return types.BBox{
		Min: types.XYZ(0, 0, f.minz),
		Max: types.XYZ(float64(f.XSize-1)/f.size, float64(f.YSize-1)/f.size, f.maxz),
	}
}

// Vertex returns the position of sample ind.
func (f *Field) Vertex(ind int) types.Vec3 {
	return types.XYZ(
		float64(ind%f.XSize)/f.size,
		float64(ind/f.XSize)/f.size,
		f.Z[ind],
	)
}

// zrange returns the height range over the inclusive sample rectangle.
func (f *Field) zrange(sx, ex, sy, ey int) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for j := sy; j <= ey; j++ {
		row := f.Z[j*f.XSize:]
		for i := sx; i <= ex; i++ {
			lo = math.Min(lo, row[i])
			hi = math.Max(hi, row[i])
		}
	}
	return lo, hi
}

func (f *Field) calcNormals() {
	f.Normals = make([]types.Vec3, len(f.Z))
	xs := f.XSize
	for j := 0; j < f.YSize-1; j++ {
		for i := 0; i < xs-1; i++ {
			ind := j*xs + i
			v0, v1 := f.Vertex(ind), f.Vertex(ind+1)
			v2, v3 := f.Vertex(ind+xs+1), f.Vertex(ind+xs)

			n1 := v1.Sub(v0).Cross(v2.Sub(v0))
			for _, k := range [3]int{ind, ind + 1, ind + xs + 1} {
				f.Normals[k] = f.Normals[k].Add(n1)
			}
			n2 := v2.Sub(v0).Cross(v3.Sub(v0))
			for _, k := range [3]int{ind, ind + xs + 1, ind + xs} {
				f.Normals[k] = f.Normals[k].Add(n2)
			}
		}
	}
	for i := range f.Normals {
		f.Normals[i] = f.Normals[i].Normalize()
	}
}

// corners returns the two samples on the outer edge of triangle k of the
// cell whose lowest sample is ind. The third vertex is the cell centre.
func (f *Field) corners(ind, k int) (int, int) {
	xs := f.XSize
	switch k {
	case 0:
		return ind, ind + 1
	case 1:
		return ind + 1, ind + xs + 1
	case 2:
		return ind + xs + 1, ind + xs
	}
	return ind + xs, ind
}

// centre returns the mean of the four cell corners.
func (f *Field) centre(ind int) types.Vec3 {
	xs := f.XSize
	return f.Vertex(ind).
		Add(f.Vertex(ind + 1)).
		Add(f.Vertex(ind + xs + 1)).
		Add(f.Vertex(ind + xs)).
		Mul(0.25)
}

// Normal returns the surface normal of triangle k in cell ind at the
// barycentric weights w1 (second vertex) and w2 (cell centre).
func (f *Field) Normal(ind, k int, w1, w2 float64) types.Vec3 {
	c0, c1 := f.corners(ind, k)
	if f.Normals == nil {
		p0, p1 := f.Vertex(c0), f.Vertex(c1)
		return p1.Sub(p0).Cross(f.centre(ind).Sub(p0))
	}

	xs := f.XSize
	cn := f.Normals[ind].
		Add(f.Normals[ind+1]).
		Add(f.Normals[ind+xs+1]).
		Add(f.Normals[ind+xs]).
		Normalize()
	return f.Normals[c0].Mul(1 - w1 - w2).
		Add(f.Normals[c1].Mul(w1)).
		Add(cn.Mul(w2))
}

// Colour interpolates the sample colours the same way Normal does.
func (f *Field) Colour(ind, k int, w1, w2 float64) (types.Color, bool) {
	if f.Colours == nil {
		return types.Color{}, false
	}

	xs := f.XSize
	c0, c1 := f.corners(ind, k)
	mid := f.Colours[ind].
		Add(f.Colours[ind+1]).
		Add(f.Colours[ind+xs+1]).
		Add(f.Colours[ind+xs]).
		Scale(0.25)
	return f.Colours[c0].Scale(1 - w1 - w2).
		Add(f.Colours[c1].Scale(w1)).
		Add(mid.Scale(w2)), true
}

// ReadHeights parses a "HEIGHTFIELD xsize ysize" header followed by
// xsize*ysize little endian float32 heights.
func ReadHeights(r io.Reader) (xsize, ysize int, z []float64, err error) {
	br := bufio.NewReader(r)
	xsize, ysize, err = readHeader(br, "HEIGHTFIELD")
	if err != nil {
		return 0, 0, nil, err
	}

	raw := make([]float32, xsize*ysize)
	if err = binary.Read(br, binary.LittleEndian, raw); err != nil {
		return 0, 0, nil, errors.Wrap(err, "hfield: reading heights")
	}
	z = make([]float64, len(raw))
	for i, v := range raw {
		z[i] = float64(v)
	}
	logger.Debugf("read %dx%d height field", xsize, ysize)
	return xsize, ysize, z, nil
}

// ReadColours parses a "COLORFIELD xsize ysize" header followed by one
// little endian float32 rgb triple per sample.
func ReadColours(r io.Reader) (xsize, ysize int, cols []types.Color, err error) {
	br := bufio.NewReader(r)
	xsize, ysize, err = readHeader(br, "COLORFIELD")
	if err != nil {
		return 0, 0, nil, err
	}

	raw := make([]float32, xsize*ysize*3)
	if err = binary.Read(br, binary.LittleEndian, raw); err != nil {
		return 0, 0, nil, errors.Wrap(err, "hfield: reading colours")
	}
	cols = make([]types.Color, xsize*ysize)
	for i := range cols {
		cols[i] = types.Color{float64(raw[i*3]), float64(raw[i*3+1]), float64(raw[i*3+2])}
	}
	return xsize, ysize, cols, nil
}

func readHeader(br *bufio.Reader, magic string) (int, int, error) {
	var tag string
	var xsize, ysize int
	if _, err := fmt.Fscanf(br, "%s %d %d", &tag, &xsize, &ysize); err != nil {
		return 0, 0, errors.Wrapf(err, "hfield: reading %s header", magic)
	}
	if tag != magic {
		return 0, 0, fmt.Errorf("hfield: expected %s header; got %q", magic, tag)
	}
	if xsize < 2 || ysize < 2 {
		return 0, 0, ErrBadSize
	}

	// A single separator follows the header.
	if _, err := br.ReadByte(); err != nil {
		return 0, 0, errors.Wrapf(err, "hfield: reading %s header", magic)
	}
	return xsize, ysize, nil
}
