package tracer

import "math/rand"

// Per worker ray counters.
type RayStats struct {
	Rays        [numRayKinds]uint64
	Tests       uint64
	MailboxHits uint64
}

// Add accumulates other into s.
func (s *RayStats) Add(other RayStats) {
	for i := range s.Rays {
		s.Rays[i] += other.Rays[i]
	}
	s.Tests += other.Tests
	s.MailboxHits += other.MailboxHits
}

// Since returns the counts accumulated after the snapshot prev was taken.
func (s RayStats) Since(prev RayStats) RayStats {
	for i := range s.Rays {
		s.Rays[i] -= prev.Rays[i]
	}
	s.Tests -= prev.Tests
	s.MailboxHits -= prev.MailboxHits
	return s
}

// Total returns the number of rays of all kinds.
func (s *RayStats) Total() uint64 {
	var total uint64
	for _, n := range s.Rays {
		total += n
	}
	return total
}

// DefaultTolerance applies until the scene bounds are known.
const DefaultTolerance = 1e-4

type mailbox struct {
	gen uint64
	hit Hit
}

// A Context holds all mutable tracing state owned by a single worker. The
// scene and its indices are shared read-only between workers; everything
// that changes while a ray is traced lives here.
type Context struct {
	Arena *Arena
	Rand  *rand.Rand
	Stats RayStats

	// Crossings at or below this distance are ignored.
	Tolerance float64

	gen    uint64
	mail   []mailbox
	locals map[int32]interface{}
}

// Create a context for a scene with numObjects object ids.
func NewContext(numObjects int, seed int64) *Context {
	return &Context{
		Arena:     NewArena(256),
		Rand:      rand.New(rand.NewSource(seed)),
		Tolerance: DefaultTolerance,
		mail:      make([]mailbox, numObjects),
		locals:    make(map[int32]interface{}),
	}
}

// NextGen returns a generation number that no earlier ray traced through
// this context has used. Generation 0 is never returned.
func (c *Context) NextGen() uint64 {
	c.gen++
	return c.gen
}

// Spawn assigns a fresh generation to r and counts it.
func (c *Context) Spawn(r *Ray) {
	r.Gen = c.NextGen()
	c.Stats.Rays[r.Kind]++
}

// Mailbox returns the nearest hit recorded for obj during generation gen.
// A cached hit with T == 0 records a miss.
func (c *Context) Mailbox(obj int32, gen uint64) (Hit, bool) {
	if int(obj) >= len(c.mail) || c.mail[obj].gen != gen {
		return Hit{}, false
	}
	c.Stats.MailboxHits++
	return c.mail[obj].hit, true
}

// Remember records the nearest hit of obj for generation gen.
func (c *Context) Remember(obj int32, gen uint64, hit Hit) {
	if int(obj) >= len(c.mail) {
		grown := make([]mailbox, int(obj)+1)
		copy(grown, c.mail)
		c.mail = grown
	}
	hit.next = Nil
	c.mail[obj] = mailbox{gen: gen, hit: hit}
}

// Forget drops whatever obj's mailbox holds.
func (c *Context) Forget(obj int32) {
	if int(obj) < len(c.mail) {
		c.mail[obj] = mailbox{}
	}
}

// Local returns per worker scratch storage for obj, creating it with init
// on first use.
func (c *Context) Local(obj int32, init func() interface{}) interface{} {
	if v, ok := c.locals[obj]; ok {
		return v
	}
	v := init()
	c.locals[obj] = v
	return v
}
