package input

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/physics"
	"github.com/lixenwraith/yaa/vmath"
)

// ship records key deliveries
type ship struct {
	e        *entity.Entity
	pressed  []string
	released []string
	thrust   []bool
	fire     bool
}

func newShip() *ship {
	s := &ship{}
	s.e = entity.New("ship", entity.Hooks{
		OnKeyPress:   func(key string) error { s.pressed = append(s.pressed, key); return nil },
		OnKeyRelease: func(key string) error { s.released = append(s.released, key); return nil },
	})
	s.e.Define("thrust", func(args ...any) error {
		s.thrust = append(s.thrust, args[0].(bool))
		return nil
	})
	s.e.Register(entity.Property{
		Name: "firing",
		Get:  entity.Getter(func() bool { return s.fire }),
		Set:  entity.Setter(func(v bool) { s.fire = v }),
	})
	return s
}

// TestDefaultHooks verifies an empty method routes to on_key_press and on_key_release with the key name
func TestDefaultHooks(t *testing.T) {
	in := NewService(0, zerolog.Nop())
	s := newShip()
	in.Bind("a", s.e, "")

	handled, err := in.Press("a")
	require.NoError(t, err)
	assert.True(t, handled)
	_, err = in.Release("a")
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, s.pressed)
	assert.Equal(t, []string{"a"}, s.released)
}

// TestMethodBinding verifies a bound method is called with the key state
func TestMethodBinding(t *testing.T) {
	in := NewService(0, zerolog.Nop())
	s := newShip()
	in.Bind("Up", s.e, "thrust")

	_, err := in.Press("Up")
	require.NoError(t, err)
	_, err = in.Release("Up")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, s.thrust)
}

// TestPropertyBinding verifies a binding that names no method stores the state as a property
func TestPropertyBinding(t *testing.T) {
	in := NewService(0, zerolog.Nop())
	s := newShip()
	in.Bind("Space", s.e, "firing")

	_, err := in.Press("Space")
	require.NoError(t, err)
	assert.True(t, s.fire)
	_, err = in.Release("Space")
	require.NoError(t, err)
	assert.False(t, s.fire)

	in.Bind("x", s.e, "missing")
	_, err = in.Press("x")
	assert.True(t, eris.Is(err, entity.ErrUnknownProperty))
}

// TestUnboundKey verifies unbound keys are reported as unhandled
func TestUnboundKey(t *testing.T) {
	in := NewService(0, zerolog.Nop())
	handled, err := in.Press("q")
	require.NoError(t, err)
	assert.False(t, handled)
	_, unhandled := in.Counters()
	assert.Equal(t, uint64(1), unhandled)
}

// TestRepeatAndSynthesizedRelease verifies repeats keep the key held and silence releases it
func TestRepeatAndSynthesizedRelease(t *testing.T) {
	in := NewService(0.5, zerolog.Nop())
	s := newShip()
	in.Bind("Up", s.e, "thrust")

	_, err := in.Press("Up")
	require.NoError(t, err)
	require.NoError(t, in.Tick(0.3))
	_, err = in.Press("Up") // Auto-repeat
	require.NoError(t, err)
	require.NoError(t, in.Tick(0.3))
	assert.True(t, in.Held("Up"), "repeat restarted the hold timer")
	assert.Equal(t, []bool{true}, s.thrust)

	require.NoError(t, in.Tick(0.3))
	assert.False(t, in.Held("Up"))
	assert.Equal(t, []bool{true, false}, s.thrust)
}

// TestHandleEventNames verifies tcell events map to binding names
func TestHandleEventNames(t *testing.T) {
	assert.Equal(t, "a", KeyName(tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone)))
	assert.Equal(t, "Space", KeyName(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)))
	assert.Equal(t, "Up", KeyName(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone)))

	in := NewService(0, zerolog.Nop())
	s := newShip()
	in.Bind("Left", s.e, "")

	handled, err := in.HandleEvent(tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"Left"}, s.pressed)

	handled, err = in.HandleEvent(tcell.NewEventResize(10, 10))
	require.NoError(t, err)
	assert.False(t, handled)
}

// TestServiceTarget verifies services can be bound, the physics debug toggle flips on press only
func TestServiceTarget(t *testing.T) {
	in := NewService(0, zerolog.Nop())
	p := physics.NewIntegrator(vmath.Bounds{MaxX: 10, MaxY: 10}, 5, zerolog.Nop())
	in.Bind("d", p, physics.MethodToggleDebugDraw)

	_, err := in.Press("d")
	require.NoError(t, err)
	_, err = in.Release("d")
	require.NoError(t, err)
	assert.True(t, p.DebugDraw())
}

// TestRemovedEntityUnbound verifies bindings to a removed entity are dropped
func TestRemovedEntityUnbound(t *testing.T) {
	in := NewService(0, zerolog.Nop())
	s := newShip()
	in.Bind("a", s.e, "")
	in.Bind("b", s.e, "thrust")

	require.NoError(t, in.onObjectRemoved(s.e))
	_, ok := in.Binding("a")
	assert.False(t, ok)
	_, ok = in.Binding("b")
	assert.False(t, ok)
}
