package scene

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/pkg/errors"
)

var ErrEmptyStack = errors.New("scene: pop without a matching push")

// A frame holds the attributes in force at one nesting level. Transforms
// added to a frame apply after the ones already there and before the
// parent frame's.
type frame struct {
	local    types.Mat4
	parent   types.Mat4
	surface  *geometry.Surface
	textures []geometry.Texture
}

// Context is the attribute stack used while a scene is assembled. It is
// owned by the code building the scene and never shared.
type Context struct {
	frames []frame
}

// NewContext returns a context with an identity transform and the default
// surface.
func NewContext() *Context {
	surf := geometry.DefaultSurface()
	return &Context{
		frames: []frame{{
			local:   types.Ident4(),
			parent:  types.Ident4(),
			surface: &surf,
		}},
	}
}

func (c *Context) top() *frame {
	return &c.frames[len(c.frames)-1]
}

// Push opens a nested frame that inherits the current surface, textures and
// transform.
func (c *Context) Push() *Context {
	t := c.top()
	c.frames = append(c.frames, frame{
		local:    types.Ident4(),
		parent:   t.local.Mul4(t.parent),
		surface:  t.surface,
		textures: t.textures[:len(t.textures):len(t.textures)],
	})
	return c
}

// Pop discards the innermost frame.
func (c *Context) Pop() error {
	if len(c.frames) == 1 {
		return ErrEmptyStack
	}
	c.frames = c.frames[:len(c.frames)-1]
	return nil
}

// Depth returns the number of open frames.
func (c *Context) Depth() int {
	return len(c.frames)
}

// Transform appends m to the current frame.
func (c *Context) Transform(m types.Mat4) *Context {
	t := c.top()
	t.local = t.local.Mul4(m)
	return c
}

func (c *Context) Translate(v types.Vec3) *Context {
	return c.Transform(types.Translate4(v))
}

func (c *Context) Scale(v types.Vec3) *Context {
	return c.Transform(types.Scale4(v))
}

// Rotate rotates by angle degrees around axis.
func (c *Context) Rotate(axis types.Vec3, angle float64) *Context {
	return c.Transform(types.QuatFromAxisAngle(axis, angle*math.Pi/180).Mat4())
}

// ToWorld returns the object to world transform of the current frame.
func (c *Context) ToWorld() types.Mat4 {
	t := c.top()
	return t.local.Mul4(t.parent)
}

// WithSurface replaces the current surface. The context keeps its own copy.
func (c *Context) WithSurface(s geometry.Surface) *Context {
	c.top().surface = &s
	return c
}

// Surface returns the current surface.
func (c *Context) Surface() *geometry.Surface {
	return c.top().surface
}

// WithTexture adds tx to the textures of the current frame.
func (c *Context) WithTexture(tx geometry.Texture) *Context {
	t := c.top()
	t.textures = append(t.textures, tx)
	return c
}

// Textures returns the textures in force.
func (c *Context) Textures() []geometry.Texture {
	return c.top().textures
}
