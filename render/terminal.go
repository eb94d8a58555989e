package render

import (
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/service"
	"github.com/lixenwraith/yaa/vmath"
)

// Priority of the Terminal; sprites draw before debug overlays of objects and physics
const Priority = 3

// Terminal is the render service: it owns the screen and the drawable proxies
type Terminal struct {
	service.Base

	screen   tcell.Screen
	viewport Viewport
	bg       tcell.Style

	sprites []*Sprite // Entity insertion order is draw order
	canvas  *CellDrawer
	status  []string // Bottom lines, last entry on the last row

	log zerolog.Logger
}

// NewTerminal renders the world bounds scaled onto the whole screen
func NewTerminal(screen tcell.Screen, bounds vmath.Bounds, log zerolog.Logger) *Terminal {
	t := &Terminal{
		screen:   screen,
		viewport: Viewport{Bounds: bounds},
		bg:       tcell.StyleDefault,
		log:      log.With().Str("service", "render").Logger(),
	}
	t.resize()
	t.canvas = NewCellDrawer(screen, &t.viewport, tcell.StyleDefault.Foreground(tcell.ColorDarkCyan))
	return t
}

func (t *Terminal) Priority() int { return Priority }

func (t *Terminal) Handlers() service.Handlers {
	return service.Handlers{
		service.EventTick:          service.OnTick(t.Animate),
		service.EventDraw:          service.Bind0(t.Draw),
		service.EventObjectAdded:   service.Bind1(t.onObjectAdded),
		service.EventObjectRemoved: service.Bind1(t.onObjectRemoved),
	}
}

// Canvas returns the debug drawer sharing this terminal's viewport
func (t *Terminal) Canvas() *CellDrawer { return t.canvas }

// Viewport returns the current world to cell mapping
func (t *Terminal) Viewport() Viewport { return t.viewport }

// Len returns the number of tracked sprites
func (t *Terminal) Len() int { return len(t.sprites) }

// SetStatus replaces the status lines drawn at the bottom of the screen
func (t *Terminal) SetStatus(lines ...string) {
	t.status = append(t.status[:0], lines...)
}

// Clear implements engine.Display
func (t *Terminal) Clear() {
	t.resize()
	t.screen.Fill(' ', t.bg)
}

// Show implements engine.Display
func (t *Terminal) Show() {
	t.screen.Show()
}

func (t *Terminal) resize() {
	cols, rows := t.screen.Size()
	if cols != t.viewport.Cols || rows != t.viewport.Rows {
		t.viewport.Cols, t.viewport.Rows = cols, rows
		t.log.Debug().Int("cols", cols).Int("rows", rows).Msg("viewport resized")
	}
}

// Animate advances every sprite, then runs on_animation_end of finished non-looping sprites
func (t *Terminal) Animate(dt float64) error {
	var ended []*entity.Entity
	for _, s := range t.sprites {
		if s.Advance(dt) && s.entity != nil {
			ended = append(ended, s.entity)
		}
	}

	// Hooks may remove entities, run them once the sprite list is no longer iterated
	for _, e := range ended {
		if e.Removed() {
			continue
		}
		if err := e.OnAnimationEnd(); err != nil {
			return eris.Wrapf(err, "on_animation_end of %s", e)
		}
	}
	return nil
}

// Draw puts every visible sprite glyph and the status lines on screen
func (t *Terminal) Draw() error {
	for _, s := range t.sprites {
		if !s.visible {
			continue
		}
		if x, y, ok := t.viewport.ToCell(s.pos); ok {
			t.screen.SetContent(x, y, s.Glyph(), nil, s.style)
		}
	}

	for i, line := range t.status {
		y := t.viewport.Rows - len(t.status) + i
		if y < 0 {
			continue
		}
		x := 0
		for _, r := range line {
			if x >= t.viewport.Cols {
				break
			}
			t.screen.SetContent(x, y, r, nil, t.bg.Bold(true))
			x++
		}
	}
	return nil
}

func (t *Terminal) onObjectAdded(e *entity.Entity) error {
	s, ok := SpriteOf(e)
	if !ok {
		return nil
	}
	t.sprites = append(t.sprites, s)
	return nil
}

func (t *Terminal) onObjectRemoved(e *entity.Entity) error {
	t.sprites = slices.DeleteFunc(t.sprites, func(s *Sprite) bool { return s.entity == e })
	return nil
}
