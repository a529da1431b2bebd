package scene

import (
	"fmt"
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// The camera type controls the view. The eye looks at Look with Up giving
// the vertical direction of the image.
type Camera struct {
	Eye  types.Vec3
	Look types.Vec3
	Up   types.Vec3

	// Field of view across the longer image side, in degrees.
	FOV float64

	right, up, forward types.Vec3
	focal              float64
}

func NewCamera(eye, look, up types.Vec3) *Camera {
	c := &Camera{
		Eye:  eye,
		Look: look,
		Up:   up,
		FOV:  90,
	}
	c.Setup(1, 1)
	return c
}

func (c *Camera) String() string {
	return fmt.Sprintf("eye (%.3f, %.3f, %.3f) look (%.3f, %.3f, %.3f) fov %.1f",
		c.Eye[0], c.Eye[1], c.Eye[2], c.Look[0], c.Look[1], c.Look[2], c.FOV)
}

// Setup derives the view frame and the focal length for an image of the
// given size. The shorter side spans [-1, 1] in screen coordinates.
func (c *Camera) Setup(width, height int) {
	c.forward = c.Look.Sub(c.Eye).Normalize()
	c.right = c.forward.Cross(c.Up).Normalize()
	c.up = c.right.Cross(c.forward)

	aspect := float64(max(width, height)) / float64(max(min(width, height), 1))
	fov := c.FOV
	if fov <= 0 || fov >= 180 {
		fov = 90
	}
	c.focal = aspect / math.Tan(fov*math.Pi/360)
}

// Ray returns the primary ray through screen point (x, y). Screen
// coordinates grow to the right and upwards and the shorter image side
// spans [-1, 1].
func (c *Camera) Ray(x, y float64) tracer.Ray {
	dir := c.right.Mul(x).Add(c.up.Mul(y)).Add(c.forward.Mul(c.focal))
	return tracer.NewRay(c.Eye, dir.Normalize(), tracer.Primary)
}
