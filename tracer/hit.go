package tracer

// HitID addresses a hit node inside an Arena.
type HitID int32

// Nil terminates hit lists.
const Nil HitID = -1

// A Hit is a single crossing of a surface.
type Hit struct {
	T float64

	// The leaf object that was crossed.
	Obj int32

	// Primitive specific sub feature (box face, cone cap, triangle index...).
	Type int

	// Set for crossings of a subtracted CSG operand; the surface normal
	// must be reversed when shading them.
	Flipped bool

	// Surface parameters recorded by primitives whose normal or colour
	// depends on where the hit landed (patch u/v, barycentric weights).
	U, V float64

	next HitID
}

// An Arena owns the hit nodes of a single worker. Hit lists are singly
// linked through node indices and are ordered nearest first.
type Arena struct {
	hits []Hit
	free HitID
	live int
}

// Create a new arena with room for capacity nodes before it grows.
func NewArena(capacity int) *Arena {
	return &Arena{
		hits: make([]Hit, 0, capacity),
		free: Nil,
	}
}

// Alloc returns a fresh single node list.
func (a *Arena) Alloc(t float64, obj int32, typ int) HitID {
	var id HitID
	if a.free != Nil {
		id = a.free
		a.free = a.hits[id].next
	} else {
		a.hits = append(a.hits, Hit{})
		id = HitID(len(a.hits) - 1)
	}

	a.hits[id] = Hit{T: t, Obj: obj, Type: typ, next: Nil}
	a.live++
	return id
}

// Get returns the node with the given id. The pointer is only valid until
// the next call to Alloc.
func (a *Arena) Get(id HitID) *Hit {
	return &a.hits[id]
}

// Next returns the node following id.
func (a *Arena) Next(id HitID) HitID {
	return a.hits[id].next
}

// SetNext links next after id.
func (a *Arena) SetNext(id, next HitID) {
	a.hits[id].next = next
}

// Insert links the single node id into the sorted list and returns the new
// list head. Nodes with equal t keep their insertion order.
func (a *Arena) Insert(list, id HitID) HitID {
	t := a.hits[id].T
	if list == Nil || t < a.hits[list].T {
		a.hits[id].next = list
		return id
	}

	prev := list
	for next := a.hits[prev].next; next != Nil && a.hits[next].T <= t; next = a.hits[next].next {
		prev = next
	}
	a.hits[id].next = a.hits[prev].next
	a.hits[prev].next = id
	return list
}

// Append concatenates tail to list.
func (a *Arena) Append(list, tail HitID) HitID {
	if list == Nil {
		return tail
	}
	a.hits[a.Last(list)].next = tail
	return list
}

// Last returns the final node of a list.
func (a *Arena) Last(list HitID) HitID {
	if list == Nil {
		return Nil
	}
	for a.hits[list].next != Nil {
		list = a.hits[list].next
	}
	return list
}

// Free returns every node of list to the arena.
func (a *Arena) Free(list HitID) {
	for list != Nil {
		next := a.hits[list].next
		a.hits[list].next = a.free
		a.free = list
		a.live--
		list = next
	}
}

// Truncate frees every node after id and leaves id as a single node list.
func (a *Arena) Truncate(id HitID) {
	if id == Nil {
		return
	}
	a.Free(a.hits[id].next)
	a.hits[id].next = Nil
}

// Len returns the number of nodes in list.
func (a *Arena) Len(list HitID) int {
	n := 0
	for ; list != Nil; list = a.hits[list].next {
		n++
	}
	return n
}

// Each invokes fn for every node in list. fn must not allocate.
func (a *Arena) Each(list HitID, fn func(id HitID, h *Hit)) {
	for list != Nil {
		next := a.hits[list].next
		fn(list, &a.hits[list])
		list = next
	}
}

// Live returns the number of allocated nodes that have not been freed.
func (a *Arena) Live() int {
	return a.live
}

// Reset discards every node. Lists allocated before the call must not be
// used afterwards.
func (a *Arena) Reset() {
	a.hits = a.hits[:0]
	a.free = Nil
	a.live = 0
}
