package main

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/yaa/audio"
	"github.com/lixenwraith/yaa/engine"
	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/input"
	"github.com/lixenwraith/yaa/physics"
	"github.com/lixenwraith/yaa/render"
	"github.com/lixenwraith/yaa/vmath"
)

const (
	kindShip     = "ship"
	kindAsteroid = "asteroid"
	kindBullet   = "bullet"
	kindDebris   = "debris"
	kindDirector = "director"

	methodThrust    = "thrust"
	methodTurnLeft  = "turn_left"
	methodTurnRight = "turn_right"
	methodFire      = "fire"
	methodRespawn   = "respawn"
)

// Ship and its bullets share a group and never touch
const groupShip uint32 = 1

const (
	startLives     = 3
	respawnDelay   = 2.0
	bulletLifetime = 1.2
	bulletSpeed    = 60.0
	thrustForce    = 30.0
	turnRate       = 3.5
	rockRadius     = 4.0
	minRockRadius  = 1.5
	safeRadius     = 20.0
)

var (
	styleShip   = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleRock   = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleBullet = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleDebris = tcell.StyleDefault.Foreground(tcell.ColorOrangeRed)
)

// game is the demo played on top of the runtime: a ship, asteroids that split, and a director entity
// All state is touched from the frame goroutine only
type game struct {
	rt    *engine.Context
	term  *render.Terminal
	in    *input.Service
	audio *audio.Service
	rng   *rand.Rand

	director *entity.Entity
	ship     *entity.Entity

	points int64
	lives  int
	wave   int
	over   bool

	log zerolog.Logger
}

func newGame(rt *engine.Context, term *render.Terminal, in *input.Service, snd *audio.Service, seed uint64, log zerolog.Logger) *game {
	return &game{
		rt:    rt,
		term:  term,
		in:    in,
		audio: snd,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		lives: startLives,
		log:   log.With().Str("service", "game").Logger(),
	}
}

// Points returns the current score
func (g *game) Points() int64 { return g.points }

// start adds the director and the first ship, asteroids arrive on the director's first update
func (g *game) start() error {
	g.audio.MapKind(kindShip, audio.KindCues{Added: audio.CueSpawn, Removed: audio.CueHit})
	g.audio.MapKind(kindAsteroid, audio.KindCues{Removed: audio.CueRemove})
	g.audio.MapKind(kindBullet, audio.KindCues{Added: audio.CueFire})

	g.in.Bind("d", g.rt.Physics, physics.MethodToggleDebugDraw)
	g.in.Bind("o", g.rt.Objects, engine.MethodToggleDebugDraw)

	g.director = entity.New(kindDirector, entity.Hooks{Update: g.direct})
	g.director.Define(methodRespawn, func(...any) error { return g.spawnShip() })
	if _, err := g.rt.Objects.Add(g.director); err != nil {
		return err
	}
	return g.spawnShip()
}

// direct starts a new wave once the field is clear and refreshes the status lines
func (g *game) direct(float64) error {
	if g.count(kindAsteroid) == 0 {
		g.wave++
		for range 2 + g.wave {
			if err := g.spawnRock(g.spawnPoint(), rockRadius, g.randomVelocity(8)); err != nil {
				return err
			}
		}
		g.log.Info().Int("wave", g.wave).Msg("wave started")
	}

	status := fmt.Sprintf("wave %d  score %d  lives %d", g.wave, g.points, g.lives)
	if g.over {
		status += "  GAME OVER"
	}
	g.term.SetStatus(status, "arrows steer  space fire  d/o debug  p pause  q quit")
	return nil
}

func (g *game) count(kind string) int {
	n := 0
	for _, e := range g.rt.Objects.Objects() {
		if e.Kind() == kind && !e.Removed() {
			n++
		}
	}
	return n
}

// spawnPoint picks a random position away from the ship
func (g *game) spawnPoint() vmath.Vec2 {
	b := g.rt.Physics.Bounds()
	var p vmath.Vec2
	for range 16 {
		p = vmath.V(b.MinX+g.rng.Float64()*b.Width(), b.MinY+g.rng.Float64()*b.Height())
		body, ok := g.shipBody()
		if !ok || p.Dist(body.Position()) > safeRadius {
			break
		}
	}
	return p
}

func (g *game) randomVelocity(speed float64) vmath.Vec2 {
	return vmath.ForAngle(g.rng.Float64() * 2 * math.Pi).Scale(speed * (0.5 + g.rng.Float64()))
}

func (g *game) shipBody() (*physics.Body, bool) {
	if g.ship == nil {
		return nil, false
	}
	return physics.BodyOf(g.ship)
}

func (g *game) spawnShip() error {
	if g.over {
		return nil
	}
	b := g.rt.Physics.Bounds()
	ship := entity.New(kindShip, entity.Hooks{})

	p := physics.DefaultParams()
	p.Points = []vmath.Vec2{vmath.V(2, 0), vmath.V(-1.5, 1.2), vmath.V(-1.5, -1.2)}
	p.Mass = 2
	p.MaxSpeed = 40
	p.Filter = physics.Filter{Group: groupShip, Layers: physics.AllLayers}
	p.Position = vmath.V(b.MinX+b.Width()/2, b.MinY+b.Height()/2)
	p.Angle = -math.Pi / 2
	body, err := physics.NewBody(ship, p)
	if err != nil {
		return err
	}
	if _, err := render.NewSprite(ship, render.SpriteParams{Frames: []rune{'A'}, Style: styleShip}); err != nil {
		return err
	}

	var thrusting, left, right bool
	ship.Define(methodThrust, func(args ...any) error { thrusting = pressed(args); return nil })
	ship.Define(methodTurnLeft, func(args ...any) error { left = pressed(args); return nil })
	ship.Define(methodTurnRight, func(args ...any) error { right = pressed(args); return nil })
	ship.Define(methodFire, func(args ...any) error {
		if !pressed(args) {
			return nil
		}
		return g.fire(body)
	})

	h := ship.Hooks()
	h.Update = func(float64) error {
		w := 0.0
		if left {
			w -= turnRate
		}
		if right {
			w += turnRate
		}
		body.SetAngularVelocity(w)
		if thrusting {
			body.ApplyForce(body.Rotation().Scale(thrustForce))
		}
		return nil
	}
	h.OnCollision = func(other *entity.Entity, _ entity.Contact) bool {
		if other.Kind() == kindAsteroid {
			g.destroyShip(ship, body)
		}
		return true
	}
	h.DebugDraw = func(c entity.Canvas) {
		c.Text(body.Position().Add(vmath.V(0, 2)), fmt.Sprintf("%.0f", body.Velocity().Len()))
	}

	if _, err := g.rt.Objects.Add(ship); err != nil {
		return err
	}
	g.ship = ship
	g.in.Bind("Up", ship, methodThrust)
	g.in.Bind("Left", ship, methodTurnLeft)
	g.in.Bind("Right", ship, methodTurnRight)
	g.in.Bind("Space", ship, methodFire)
	return nil
}

// destroyShip removes the ship mid-step and schedules the respawn on the director
func (g *game) destroyShip(ship *entity.Entity, body *physics.Body) {
	if ship.Removed() {
		return
	}
	if err := g.rt.Objects.Remove(ship); err != nil {
		g.log.Error().Err(err).Msg("remove ship")
		return
	}
	g.ship = nil
	g.explode(body.Position())

	g.lives--
	if g.lives <= 0 {
		g.over = true
		g.log.Info().Int64("points", g.points).Msg("game over")
		return
	}
	if _, err := g.rt.Scheduler.Send(g.director, methodRespawn, respawnDelay); err != nil {
		g.log.Error().Err(err).Msg("schedule respawn")
	}
}

func (g *game) fire(ship *physics.Body) error {
	rot := ship.Rotation()
	bullet := entity.New(kindBullet, entity.Hooks{})

	p := physics.DefaultParams()
	p.Radius = 0.4
	p.Mass = 0.1
	p.MaxSpeed = 0
	p.Sensor = true
	p.Filter = physics.Filter{Group: groupShip, Layers: physics.AllLayers}
	p.Position = ship.Position().Add(rot.Scale(2.5))
	p.Velocity = ship.Velocity().Add(rot.Scale(bulletSpeed))
	if _, err := physics.NewBody(bullet, p); err != nil {
		return err
	}
	if _, err := render.NewSprite(bullet, render.SpriteParams{Frames: []rune{'•'}, Style: styleBullet}); err != nil {
		return err
	}

	if _, err := g.rt.Objects.Add(bullet); err != nil {
		return err
	}
	// Expiry goes through the lifecycle manager, a bullet already gone is a no-op
	_, err := g.rt.Scheduler.Send(g.rt.Objects, engine.MethodRemove, bulletLifetime, bullet)
	return err
}

func (g *game) spawnRock(at vmath.Vec2, radius float64, vel vmath.Vec2) error {
	rock := entity.New(kindAsteroid, entity.Hooks{})

	p := physics.DefaultParams()
	p.Radius = radius
	p.Mass = radius * radius
	p.MaxSpeed = 30
	p.Elasticity = 0.9
	p.Friction = 0.2
	p.Position = at
	p.Velocity = vel
	body, err := physics.NewBody(rock, p)
	if err != nil {
		return err
	}
	glyph := 'O'
	if radius < rockRadius {
		glyph = 'o'
	}
	if _, err := render.NewSprite(rock, render.SpriteParams{Frames: []rune{glyph}, Style: styleRock}); err != nil {
		return err
	}

	rock.Hooks().OnCollision = func(other *entity.Entity, _ entity.Contact) bool {
		if other.Kind() != kindBullet {
			return true
		}
		g.shatter(rock, body, other)
		return false
	}

	_, err = g.rt.Objects.Add(rock)
	return err
}

// shatter scores a hit and splits the rock in two while it is large enough
func (g *game) shatter(rock *entity.Entity, body *physics.Body, bullet *entity.Entity) {
	r := body.Shape().Radius
	g.points += int64(math.Round(40 / r))

	for _, e := range []*entity.Entity{bullet, rock} {
		if err := g.rt.Objects.Remove(e); err != nil {
			g.log.Error().Err(err).Stringer("entity", e).Msg("remove after hit")
		}
	}
	g.explode(body.Position())

	half := r / 2
	if half < minRockRadius {
		return
	}
	dir := g.randomVelocity(1).Normalize()
	for _, side := range []float64{1, -1} {
		off := dir.Scale(side * half * 1.1)
		vel := body.Velocity().Add(off.Normalize().Scale(6))
		if err := g.spawnRock(body.Position().Add(off), half, vel); err != nil {
			g.log.Error().Err(err).Msg("spawn fragment")
		}
	}
}

// explode shows a short non-physical animation that removes itself when it ends
func (g *game) explode(at vmath.Vec2) {
	debris := entity.New(kindDebris, entity.Hooks{})
	if _, err := render.NewSprite(debris, render.SpriteParams{
		Frames:    []rune("*+."),
		FrameTime: 0.08,
		Style:     styleDebris,
		Position:  at,
	}); err != nil {
		g.log.Error().Err(err).Msg("debris sprite")
		return
	}
	debris.Hooks().OnAnimationEnd = func() error { return g.rt.Objects.Remove(debris) }
	if _, err := g.rt.Objects.Add(debris); err != nil {
		g.log.Error().Err(err).Msg("add debris")
	}
}

// pressed reads the press flag input bindings pass, a bare call counts as a press
func pressed(args []any) bool {
	if len(args) == 0 {
		return true
	}
	b, ok := args[0].(bool)
	return !ok || b
}
