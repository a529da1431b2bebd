package texture

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/asset"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/pkg/errors"
)

var ErrEmptyImage = errors.New("texture: tile image has no pixels")

// A Tile wraps an image around a primitive using the primitive's own
// surface parameterisation. Primitives without one keep their colour.
type Tile struct {
	Field Field

	// Weight of the image colour against the current colour.
	Blend float64

	width, height  int
	scaleW, scaleH float64
	pix            []types.Color
}

// NewTile creates a tile that maps the whole image once over the unit
// parameter square.
func NewTile(img image.Image) (*Tile, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrEmptyImage
	}

	t := &Tile{
		Field:  Colour,
		Blend:  1,
		width:  b.Dx(),
		height: b.Dy(),
		scaleW: float64(b.Dx()),
		scaleH: float64(b.Dy()),
		pix:    make([]types.Color, b.Dx()*b.Dy()),
	}
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			t.pix[y*t.width+x] = types.Color{float64(r) / 0xffff, float64(g) / 0xffff, float64(bl) / 0xffff}
		}
	}
	return t, nil
}

// DecodeTile reads a tile from a png, jpeg, gif, bmp, tiff or webp image.
func DecodeTile(r io.Reader) (*Tile, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "texture: could not decode tile")
	}
	logger.Debugf("decoded %s tile %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())
	return NewTile(img)
}

// LoadTile reads a tile from a local file or URL.
func LoadTile(path string, relTo *asset.Resource) (*Tile, error) {
	res, err := asset.Open(path, relTo)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	t, err := DecodeTile(res)
	if err != nil {
		return nil, errors.Wrapf(err, "texture: %s", res.Path())
	}
	return t, nil
}

// Size returns the image dimensions.
func (t *Tile) Size() (int, int) {
	return t.width, t.height
}

// SetRepeat makes the image repeat w times across u and h times across v.
func (t *Tile) SetRepeat(w, h float64) {
	if w != 0 {
		t.scaleW = float64(t.width) * w
	}
	if h != 0 {
		t.scaleH = float64(t.height) * h
	}
}

// Lookup returns the image colour at surface coordinates (u, v). The image
// repeats outside the unit square.
func (t *Tile) Lookup(u, v float64) types.Color {
	x := wrap(int(math.Floor(u*t.scaleW)), t.width)
	y := wrap(int(math.Floor(v*t.scaleH)), t.height)
	return t.pix[y*t.width+x]
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func (t *Tile) Apply(s *geometry.Sample) {
	col := s.Surface.Colour
	if c, ok := s.Obj.Prim.SurfaceColor(s.Local, s.Hit, t); ok {
		col = mix(col, c, t.Blend)
	}
	modulate(s, t.Field, col, luminance(col))
}
