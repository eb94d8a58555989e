package render

import (
	"bytes"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/yaa/config"
	"github.com/lixenwraith/yaa/engine"
	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/physics"
	"github.com/lixenwraith/yaa/vmath"
)

// newScreen returns an initialized 100x50 simulation screen
func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(100, 50)
	t.Cleanup(s.Fini)
	return s
}

func newRuntime(t *testing.T) (*engine.Context, *Terminal, tcell.SimulationScreen) {
	t.Helper()
	cfg := config.Default()
	cfg.World = config.WorldConfig{MaxX: 200, MaxY: 100, CellSize: 10, Iterations: 1}
	ctx, err := engine.NewContext(cfg, zerolog.Nop())
	require.NoError(t, err)

	screen := newScreen(t)
	term := NewTerminal(screen, cfg.Bounds(), zerolog.Nop())
	require.NoError(t, ctx.Register(term))
	return ctx, term, screen
}

func glyphAt(s tcell.Screen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

// TestViewportMapping verifies world to cell conversion at the edges
func TestViewportMapping(t *testing.T) {
	v := Viewport{Bounds: vmath.Bounds{MaxX: 200, MaxY: 100}, Cols: 100, Rows: 50}

	x, y, ok := v.ToCell(vmath.V(0, 0))
	assert.True(t, ok)
	assert.Equal(t, [2]int{0, 0}, [2]int{x, y})

	x, y, ok = v.ToCell(vmath.V(199.9, 99.9))
	assert.True(t, ok)
	assert.Equal(t, [2]int{99, 49}, [2]int{x, y})

	_, _, ok = v.ToCell(vmath.V(200, 50))
	assert.False(t, ok, "upper bound is outside")

	assert.Equal(t, vmath.V(3, 5), v.ToWorld(1, 2))
}

// TestSpriteAnimation verifies a non-looping sequence ends exactly once and a looping one never ends
func TestSpriteAnimation(t *testing.T) {
	once, err := NewSprite(nil, SpriteParams{Frames: []rune("abc"), FrameTime: 0.1})
	require.NoError(t, err)

	assert.False(t, once.Advance(0.15))
	assert.Equal(t, 'b', once.Glyph())
	assert.False(t, once.Advance(0.1))
	assert.Equal(t, 'c', once.Glyph())
	assert.True(t, once.Advance(0.1), "ends when the last frame has been shown for its duration")
	assert.Equal(t, 'c', once.Glyph())
	assert.False(t, once.Advance(1))
	assert.True(t, once.Done())

	once.Restart()
	assert.Equal(t, 'a', once.Glyph())

	loop, err := NewSprite(nil, SpriteParams{Frames: []rune("xy"), FrameTime: 0.1, Loop: true})
	require.NoError(t, err)
	for range 10 {
		assert.False(t, loop.Advance(0.1))
	}

	_, err = NewSprite(nil, SpriteParams{})
	assert.True(t, eris.Is(err, ErrNoFrames))
}

// TestCombinedProperties verifies setting position on a physical sprite moves body and proxy
func TestCombinedProperties(t *testing.T) {
	e := entity.New("ship", entity.Hooks{})
	p := physics.DefaultParams()
	p.Radius = 1
	body, err := physics.NewBody(e, p)
	require.NoError(t, err)
	sprite, err := NewSprite(e, SpriteParams{Frames: []rune("A"), Scale: 2})
	require.NoError(t, err)

	require.NoError(t, e.Set("position", vmath.V(7, 8)))
	assert.Equal(t, vmath.V(7, 8), body.Position())
	assert.Equal(t, vmath.V(7, 8), sprite.Position())

	scale, err := entity.GetAs[float64](e, "scale")
	require.NoError(t, err)
	assert.Equal(t, 2.0, scale)

	require.NoError(t, e.Set("visible", false))
	assert.False(t, sprite.Visible())
}

// TestTerminalDrawsSprites verifies tracked sprites are drawn at their mapped cell and removed sprites are not
func TestTerminalDrawsSprites(t *testing.T) {
	ctx, term, screen := newRuntime(t)
	clock := engine.NewClock(ctx.Dispatcher, term, 60, 0, zerolog.Nop())

	e := entity.New("star", entity.Hooks{})
	_, err := NewSprite(e, SpriteParams{Frames: []rune("*"), Position: vmath.V(21, 41)})
	require.NoError(t, err)
	_, err = ctx.Objects.Add(e)
	require.NoError(t, err)
	assert.Equal(t, 1, term.Len())

	term.SetStatus("score 10")
	require.NoError(t, clock.Draw())
	assert.Equal(t, '*', glyphAt(screen, 10, 20))
	assert.Equal(t, 's', glyphAt(screen, 0, 49))

	require.NoError(t, ctx.Objects.Remove(e))
	assert.Zero(t, term.Len())
	require.NoError(t, clock.Draw())
	assert.Equal(t, ' ', glyphAt(screen, 10, 20))
}

// TestTransformSyncedFromBody verifies the physics step mirrors the body transform into the sprite
func TestTransformSyncedFromBody(t *testing.T) {
	ctx, _, _ := newRuntime(t)

	e := entity.New("rock", entity.Hooks{})
	p := physics.DefaultParams()
	p.Radius = 2
	p.Position = vmath.V(10, 10)
	p.Velocity = vmath.V(10, 0)
	body, err := physics.NewBody(e, p)
	require.NoError(t, err)
	sprite, err := NewSprite(e, SpriteParams{Frames: []rune("o")})
	require.NoError(t, err)

	_, err = ctx.Objects.Add(e)
	require.NoError(t, err)
	require.NoError(t, ctx.Physics.Step(0.5))

	assert.Equal(t, body.Position(), sprite.Position())
	assert.InDelta(t, 15.0, sprite.Position().X, 1e-9)
}

// TestAnimationEndHook verifies the hook runs once and may remove its own entity
func TestAnimationEndHook(t *testing.T) {
	ctx, term, _ := newRuntime(t)

	calls := 0
	var e *entity.Entity
	e = entity.New("explosion", entity.Hooks{OnAnimationEnd: func() error {
		calls++
		return ctx.Objects.Remove(e)
	}})
	_, err := NewSprite(e, SpriteParams{Frames: []rune("oO*"), FrameTime: 0.1})
	require.NoError(t, err)
	_, err = ctx.Objects.Add(e)
	require.NoError(t, err)

	for range 5 {
		require.NoError(t, term.Animate(0.1))
	}
	assert.Equal(t, 1, calls)
	assert.True(t, e.Removed())
	assert.Zero(t, term.Len())
}

// TestCellDrawer verifies line endpoints and text land on the expected cells
func TestCellDrawer(t *testing.T) {
	screen := newScreen(t)
	vp := &Viewport{Bounds: vmath.Bounds{MaxX: 100, MaxY: 50}, Cols: 100, Rows: 50}
	d := NewCellDrawer(screen, vp, tcell.StyleDefault)

	d.Line(vmath.V(1.5, 1.5), vmath.V(10.5, 4.5))
	assert.Equal(t, '·', glyphAt(screen, 1, 1))
	assert.Equal(t, '·', glyphAt(screen, 10, 4))

	d.Text(vmath.V(20, 30), "hi")
	assert.Equal(t, 'h', glyphAt(screen, 20, 30))
	assert.Equal(t, 'i', glyphAt(screen, 21, 30))

	d.Circle(vmath.V(50, 25), 5)
	assert.Equal(t, '·', glyphAt(screen, 55, 25))
}

// TestSnapshotter verifies a PNG is produced on the first tick and refreshed per interval
func TestSnapshotter(t *testing.T) {
	ctx, _, _ := newRuntime(t)
	snap := NewSnapshotter(ctx.Physics, 64, 32, 1.0, zerolog.Nop())
	require.NoError(t, ctx.Register(snap))
	assert.Nil(t, snap.Latest())

	e := entity.New("box", entity.Hooks{})
	p := physics.DefaultParams()
	p.Points = []vmath.Vec2{vmath.V(-2, -2), vmath.V(2, -2), vmath.V(2, 2), vmath.V(-2, 2)}
	p.Position = vmath.V(50, 50)
	_, err := physics.NewBody(e, p)
	require.NoError(t, err)
	_, err = ctx.Objects.Add(e)
	require.NoError(t, err)

	require.NoError(t, snap.tick(0.016))
	first := snap.Latest()
	require.NotNil(t, first)
	assert.True(t, bytes.HasPrefix(first, []byte("\x89PNG")))

	require.NoError(t, snap.tick(0.5))
	assert.Equal(t, first, snap.Latest(), "not due yet")
}
