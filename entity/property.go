package entity

import "github.com/rotisserie/eris"

// Property binds a name to a getter and a setter contributed by a component
// Either function may be nil
type Property struct {
	Name string
	Get  func() any
	Set  func(v any) error

	// Override replaces an existing getter instead of keeping the first one
	Override bool
}

// property is the resolved per-entity entry: one getter, every setter in registration order
type property struct {
	getter  func() any
	setters []func(any) error
}

// Register merges p into the property table
// The first getter wins unless a later registration sets Override
func (e *Entity) Register(p Property) {
	entry, ok := e.props[p.Name]
	if !ok {
		entry = &property{}
		e.props[p.Name] = entry
	}
	if p.Get != nil && (entry.getter == nil || p.Override) {
		entry.getter = p.Get
	}
	if p.Set != nil {
		entry.setters = append(entry.setters, p.Set)
	}
}

// Get reads a property through its getter
func (e *Entity) Get(name string) (any, error) {
	entry, ok := e.props[name]
	if !ok || entry.getter == nil {
		return nil, eris.Wrapf(ErrUnknownProperty, "%q on %s", name, e)
	}
	return entry.getter(), nil
}

// Set writes a property through every setter in order, stopping at the first error
func (e *Entity) Set(name string, v any) error {
	entry, ok := e.props[name]
	if !ok {
		return eris.Wrapf(ErrUnknownProperty, "%q on %s", name, e)
	}
	if len(entry.setters) == 0 {
		return eris.Wrapf(ErrReadOnlyProperty, "%q on %s", name, e)
	}
	for _, set := range entry.setters {
		if err := set(v); err != nil {
			return eris.Wrapf(err, "set %q on %s", name, e)
		}
	}
	return nil
}

// HasProperty reports whether name has a getter or a setter
func (e *Entity) HasProperty(name string) bool {
	_, ok := e.props[name]
	return ok
}

// GetAs reads a property and asserts its type
func GetAs[T any](e *Entity, name string) (T, error) {
	var zero T
	v, err := e.Get(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, eris.Errorf("property %q on %s: want %T, got %T", name, e, zero, v)
	}
	return t, nil
}

// Setter adapts a typed setter for Property.Set
func Setter[T any](fn func(T)) func(any) error {
	return func(v any) error {
		t, ok := v.(T)
		if !ok {
			var zero T
			return eris.Errorf("want %T, got %T", zero, v)
		}
		fn(t)
		return nil
	}
}

// Getter adapts a typed getter for Property.Get
func Getter[T any](fn func() T) func() any {
	return func() any { return fn() }
}
