package replication

import (
	"slices"

	"github.com/oomph-ac/doors/door"
	"github.com/oomph-ac/doors/oerror"
	"github.com/zeebo/xxh3"
)

// DoorID returns the network ID of the door with the name passed. Both ends derive it from the name, so
// it never has to be negotiated.
func DoorID(name string) uint64 {
	return xxh3.HashString(name)
}

// Registry holds the doors known to one end of a replication session, keyed by their network ID.
type Registry struct {
	doors map[uint64]*door.Door
	ids   []uint64
}

func NewRegistry() *Registry {
	return &Registry{doors: make(map[uint64]*door.Door)}
}

// Add registers d and returns its network ID. Two doors whose names hash to the same ID cannot be
// registered together.
func (r *Registry) Add(d *door.Door) (uint64, error) {
	id := DoorID(d.Name())
	if other, ok := r.doors[id]; ok {
		return 0, oerror.New("door %q collides with %q (id %d)", d.Name(), other.Name(), id)
	}
	r.doors[id] = d
	r.ids = append(r.ids, id)
	return id, nil
}

// Remove unregisters the door with the ID passed.
func (r *Registry) Remove(id uint64) {
	if _, ok := r.doors[id]; !ok {
		return
	}
	delete(r.doors, id)
	r.ids = slices.DeleteFunc(r.ids, func(other uint64) bool { return other == id })
}

func (r *Registry) Get(id uint64) (*door.Door, bool) {
	d, ok := r.doors[id]
	return d, ok
}

func (r *Registry) Len() int {
	return len(r.ids)
}

// Each calls f for every door in the order they were added.
func (r *Registry) Each(f func(id uint64, d *door.Door)) {
	for _, id := range r.ids {
		f(id, r.doors[id])
	}
}
