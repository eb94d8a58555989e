package entity

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/yaa/vmath"
)

// posComponent stores a position and exposes it as a property
type posComponent struct {
	pos      vmath.Vec2
	override bool
}

func (p *posComponent) Properties() []Property {
	return []Property{{
		Name:     "position",
		Get:      Getter(func() vmath.Vec2 { return p.pos }),
		Set:      Setter(func(v vmath.Vec2) { p.pos = v }),
		Override: p.override,
	}}
}

// TestPropertyFirstGetterWins verifies getter precedence and setter fan-out
func TestPropertyFirstGetterWins(t *testing.T) {
	e := New("ship", Hooks{})
	sprite := &posComponent{pos: vmath.V(1, 1)}
	body := &posComponent{pos: vmath.V(2, 2)}
	e.Attach(sprite).Attach(body)

	got, err := GetAs[vmath.Vec2](e, "position")
	require.NoError(t, err)
	assert.Equal(t, vmath.V(1, 1), got, "first registered getter wins")

	require.NoError(t, e.Set("position", vmath.V(5, 6)))
	assert.Equal(t, vmath.V(5, 6), sprite.pos)
	assert.Equal(t, vmath.V(5, 6), body.pos, "every setter is called")
}

// TestPropertyOverride verifies a later override replaces the getter
func TestPropertyOverride(t *testing.T) {
	e := New("ship", Hooks{})
	e.Attach(&posComponent{pos: vmath.V(1, 1)})
	e.Attach(&posComponent{pos: vmath.V(9, 9), override: true})

	got, err := GetAs[vmath.Vec2](e, "position")
	require.NoError(t, err)
	assert.Equal(t, vmath.V(9, 9), got)
}

// TestPropertyErrors verifies unknown, read-only and mistyped access
func TestPropertyErrors(t *testing.T) {
	e := New("rock", Hooks{})
	e.Register(Property{Name: "mass", Get: func() any { return 2.0 }})

	_, err := e.Get("nope")
	assert.True(t, eris.Is(err, ErrUnknownProperty))

	err = e.Set("mass", 3.0)
	assert.True(t, eris.Is(err, ErrReadOnlyProperty))

	e.Register(Property{Name: "position", Set: Setter(func(vmath.Vec2) {})})
	assert.Error(t, e.Set("position", "north"))
	_, err = e.Get("position")
	assert.True(t, eris.Is(err, ErrUnknownProperty), "setter-only property has no getter")
}

// TestCallDispatch verifies named methods shadow hooks and unknown names fail
func TestCallDispatch(t *testing.T) {
	var updated float64
	var pressed string
	e := New("ship", Hooks{
		Update:     func(dt float64) error { updated = dt; return nil },
		OnKeyPress: func(key string) error { pressed = key; return nil },
	})

	assert.True(t, e.HasMethod(HookUpdate))
	assert.False(t, e.HasMethod(HookOnRemoved))

	require.NoError(t, e.Call(HookUpdate, 0.5))
	assert.Equal(t, 0.5, updated)
	require.NoError(t, e.Call(HookOnKeyPress, "Space"))
	assert.Equal(t, "Space", pressed)
	assert.Error(t, e.Call(HookUpdate, "slow"))

	var turned bool
	e.Define("turn_left", func(args ...any) error {
		turned = args[0].(bool)
		return nil
	})
	require.NoError(t, e.Call("turn_left", true))
	assert.True(t, turned)

	err := e.Call("explode")
	assert.True(t, eris.Is(err, ErrUnknownHook))
}

// TestCollideDefaultsToAccept verifies a nil predicate accepts contacts
func TestCollideDefaultsToAccept(t *testing.T) {
	a := New("a", Hooks{})
	b := New("b", Hooks{OnCollision: func(*Entity, Contact) bool { return false }})

	c := Contact{Normal: vmath.V(1, 0)}
	assert.True(t, a.Collide(b, c))
	assert.False(t, b.Collide(a, c.Flip()))
	assert.Equal(t, vmath.V(-1, 0), c.Flip().Normal)
}

// TestFindComponent verifies typed component lookup
func TestFindComponent(t *testing.T) {
	e := New("a", Hooks{})
	_, ok := Find[*posComponent](e)
	assert.False(t, ok)

	pc := &posComponent{}
	e.Attach(pc)
	got, ok := Find[*posComponent](e)
	require.True(t, ok)
	assert.Same(t, pc, got)
}

// TestStateRemoved verifies pending and swept both count as removed
func TestStateRemoved(t *testing.T) {
	e := New("a", Hooks{})
	assert.Equal(t, StateNew, e.State())
	assert.False(t, e.Removed())

	e.SetState(StatePending)
	assert.True(t, e.Removed())
	assert.Equal(t, "pending", e.State().String())
}
