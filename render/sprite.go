package render

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rotisserie/eris"

	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/vmath"
)

var ErrNoFrames = eris.New("sprite has no frames")

// SpriteParams describes a drawable proxy at construction
type SpriteParams struct {
	Frames    []rune  // One glyph per animation frame
	FrameTime float64 // Seconds per frame, 0 freezes on the first frame
	Loop      bool
	Style     tcell.Style

	Position vmath.Vec2
	Angle    float64
	Scale    float64
}

// Sprite is the drawable proxy of an entity
// Its transform is mirrored from the body when the entity is also physical
type Sprite struct {
	entity *entity.Entity

	frames    []rune
	frameTime float64
	loop      bool
	style     tcell.Style

	pos     vmath.Vec2
	angle   float64
	scale   float64
	visible bool

	frame   int
	elapsed float64
	done    bool
}

// NewSprite builds a sprite from p and attaches it to e
func NewSprite(e *entity.Entity, p SpriteParams) (*Sprite, error) {
	if len(p.Frames) == 0 {
		return nil, eris.Wrapf(ErrNoFrames, "%v", e)
	}
	scale := p.Scale
	if scale == 0 {
		scale = 1
	}
	s := &Sprite{
		entity:    e,
		frames:    append([]rune(nil), p.Frames...),
		frameTime: p.FrameTime,
		loop:      p.Loop,
		style:     p.Style,
		pos:       p.Position,
		angle:     p.Angle,
		scale:     scale,
		visible:   true,
	}
	if e != nil {
		e.Attach(s)
	}
	return s, nil
}

func (s *Sprite) Entity() *entity.Entity { return s.entity }
func (s *Sprite) Position() vmath.Vec2   { return s.pos }
func (s *Sprite) Angle() float64         { return s.angle }
func (s *Sprite) Scale() float64         { return s.scale }
func (s *Sprite) Visible() bool          { return s.visible }
func (s *Sprite) Style() tcell.Style     { return s.style }
func (s *Sprite) Frame() int             { return s.frame }
func (s *Sprite) Done() bool             { return s.done }

func (s *Sprite) SetPosition(p vmath.Vec2) { s.pos = p }
func (s *Sprite) SetAngle(a float64)       { s.angle = a }
func (s *Sprite) SetScale(f float64)       { s.scale = f }
func (s *Sprite) SetVisible(v bool)        { s.visible = v }
func (s *Sprite) SetStyle(st tcell.Style)  { s.style = st }

// SetTransform implements entity.Transformer
func (s *Sprite) SetTransform(pos vmath.Vec2, angle float64) {
	s.pos = pos
	s.angle = angle
}

// Glyph returns the rune of the current frame
func (s *Sprite) Glyph() rune { return s.frames[s.frame] }

// Restart rewinds the animation
func (s *Sprite) Restart() {
	s.frame, s.elapsed, s.done = 0, 0, false
}

// Advance moves the animation by dt seconds
// Returns true exactly once, when the last frame of a non-looping sequence has been shown for its duration
func (s *Sprite) Advance(dt float64) bool {
	if s.done || s.frameTime <= 0 || len(s.frames) < 2 {
		return false
	}
	s.elapsed += dt
	for s.elapsed >= s.frameTime {
		s.elapsed -= s.frameTime
		s.frame++
		if s.frame < len(s.frames) {
			continue
		}
		if s.loop {
			s.frame = 0
			continue
		}
		s.frame = len(s.frames) - 1
		s.done = true
		return true
	}
	return false
}

// Properties implements entity.Component
func (s *Sprite) Properties() []entity.Property {
	return []entity.Property{
		{Name: "position", Get: entity.Getter(s.Position), Set: entity.Setter(s.SetPosition)},
		{Name: "angle", Get: entity.Getter(s.Angle), Set: entity.Setter(s.SetAngle)},
		{Name: "scale", Get: entity.Getter(s.Scale), Set: entity.Setter(s.SetScale)},
		{Name: "visible", Get: entity.Getter(s.Visible), Set: entity.Setter(s.SetVisible)},
	}
}

// SpriteOf returns the sprite attached to e
func SpriteOf(e *entity.Entity) (*Sprite, bool) {
	return entity.Find[*Sprite](e)
}
