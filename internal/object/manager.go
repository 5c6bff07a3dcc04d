package object

import (
	"errors"
	"fmt"
	"math"

	"marbles/internal/physics"
)

var (
	ErrUnregistered  = errors.New("object: kind not registered")
	ErrDuplicateKind = errors.New("object: kind already registered")
	ErrNotFound      = errors.New("object: no object for body")
	ErrLocked        = errors.New("object: list locked while the world is stepping")
	ErrAlreadyAdded  = errors.New("object: body already managed")
)

// SettleThreshold bounds every linear velocity component of a settled object.
const SettleThreshold = 0.1

// Constructor builds a new object in w.
type Constructor func(w *physics.World) (*Object, error)

// Manager owns every object and maps body handles back to them for the collision hook.
// The list and the map always change together.
type Manager struct {
	world   *physics.World
	ctors   map[string]Constructor
	objects []*Object
	byBody  map[physics.BodyHandle]*Object
	nextID  int
}

// NewManager returns an empty manager for objects in w.
func NewManager(w *physics.World) *Manager {
	return &Manager{
		world:  w,
		ctors:  make(map[string]Constructor),
		byBody: make(map[physics.BodyHandle]*Object),
	}
}

// RegisterDefaults registers "marble" and "tolley" with the given ring radius.
func RegisterDefaults(m *Manager, ring float64) error {
	for _, k := range []Kind{Marble, Tolley} {
		err := m.Register(k.String(), func(w *physics.World) (*Object, error) {
			return New(w, k, WithRingRadius(ring))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// World returns the physics world the objects live in.
func (m *Manager) World() *physics.World { return m.world }

// Register binds a type tag to a constructor.
func (m *Manager) Register(tag string, c Constructor) error {
	if _, ok := m.ctors[tag]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKind, tag)
	}
	m.ctors[tag] = c
	return nil
}

// CreateObject builds an object from a registered tag and adds it.
func (m *Manager) CreateObject(tag string) (*Object, error) {
	c, ok := m.ctors[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnregistered, tag)
	}
	if m.world.Stepping() {
		return nil, ErrLocked
	}
	o, err := c(m.world)
	if err != nil {
		return nil, fmt.Errorf("object: create %q: %w", tag, err)
	}
	if err := m.AddObject(o); err != nil {
		o.Destroy()
		return nil, err
	}
	return o, nil
}

// AddObject appends o, registers its body and assigns its ID.
func (m *Manager) AddObject(o *Object) error {
	if m.world.Stepping() {
		return ErrLocked
	}
	if _, ok := m.byBody[o.body]; ok {
		return fmt.Errorf("%w: %v", ErrAlreadyAdded, o)
	}
	m.nextID++
	o.id = m.nextID
	m.objects = append(m.objects, o)
	m.byBody[o.body] = o
	return nil
}

// RemoveObject destroys o and drops it from the list and the map.
func (m *Manager) RemoveObject(o *Object) error {
	if m.world.Stepping() {
		return ErrLocked
	}
	if m.byBody[o.body] != o {
		return fmt.Errorf("%w: %v", ErrNotFound, o)
	}
	delete(m.byBody, o.body)
	for i, x := range m.objects {
		if x == o {
			m.objects = append(m.objects[:i], m.objects[i+1:]...)
			break
		}
	}
	o.Destroy()
	return nil
}

// Lookup returns the object owning body b.
func (m *Manager) Lookup(b physics.BodyHandle) (*Object, bool) {
	o, ok := m.byBody[b]
	return o, ok
}

// Object is Lookup reporting a miss as ErrNotFound.
func (m *Manager) Object(b physics.BodyHandle) (*Object, error) {
	if o, ok := m.byBody[b]; ok {
		return o, nil
	}
	return nil, ErrNotFound
}

// Objects returns the live objects in insertion order.
func (m *Manager) Objects() []*Object {
	out := make([]*Object, len(m.objects))
	copy(out, m.objects)
	return out
}

// Len is the number of managed objects.
func (m *Manager) Len() int { return len(m.objects) }

// UpdateObjects runs Update on every object.
func (m *Manager) UpdateObjects() {
	for _, o := range m.objects {
		o.Update()
	}
}

// DrawObjects draws every object with p.
func (m *Manager) DrawObjects(p Painter) {
	for _, o := range m.objects {
		o.Draw(p)
	}
}

// DynamicsDone reports whether every dynamic object has come to rest: each linear
// velocity component strictly within SettleThreshold. A NaN component is never at rest.
// Angular velocity is not checked.
func (m *Manager) DynamicsDone() bool {
	for _, o := range m.objects {
		if !o.dynamic || o.Destroyed() {
			continue
		}
		v := o.LinearVel()
		for i := 0; i < 3; i++ {
			if !(math.Abs(v[i]) < SettleThreshold) {
				return false
			}
		}
	}
	return true
}

// DestroyObjects releases every object's physics resources and empties the manager.
func (m *Manager) DestroyObjects() {
	for _, o := range m.objects {
		o.Destroy()
	}
	m.objects = nil
	m.byBody = make(map[physics.BodyHandle]*Object)
}
