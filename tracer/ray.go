package tracer

import "github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"

// RayKind identifies why a ray was spawned.
type RayKind uint8

const (
	Primary RayKind = iota
	Shadow
	Reflection
	Transparency
	numRayKinds
)

func (k RayKind) String() string {
	switch k {
	case Primary:
		return "primary"
	case Shadow:
		return "shadow"
	case Reflection:
		return "reflection"
	case Transparency:
		return "transparency"
	}
	return "unknown"
}

// NoObject marks a ray that did not leave a surface.
const NoObject int32 = -1

// A Ray is a half line in world space. Dir is expected to be normalized for
// every ray the shader spawns; object space copies share t with the world
// space ray because their direction is never renormalized.
type Ray struct {
	Org types.Vec3
	Dir types.Vec3

	Kind RayKind

	// Generation number used by per object mailboxes.
	Gen uint64

	// Shadow rays ignore hits beyond MaxT.
	MaxT float64

	// The surface the ray left and the hit type on it.
	OrgObj  int32
	OrgType int
}

// Create a ray of the given kind that does not originate from a surface.
func NewRay(org, dir types.Vec3, kind RayKind) Ray {
	return Ray{
		Org:    org,
		Dir:    dir,
		Kind:   kind,
		MaxT:   types.Huge,
		OrgObj: NoObject,
	}
}

// At returns the point at distance t along the ray.
func (r *Ray) At(t float64) types.Vec3 {
	return r.Org.AddScaled(r.Dir, t)
}
