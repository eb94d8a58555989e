package input

import (
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/service"
)

// Priority of the input service, releases are synthesized before anything else ticks
const Priority = 1

// DefaultHoldTimeout covers the initial auto-repeat delay of common terminals
const DefaultHoldTimeout = 0.6

var ErrNotSettable = eris.New("binding target has neither the method nor a settable property")

// Target receives key events, entities and services both qualify
type Target interface {
	HasMethod(name string) bool
	Call(name string, args ...any) error
}

// PropertySetter is the fallback for bindings naming a property instead of a method
type PropertySetter interface {
	Set(name string, v any) error
}

// Binding routes one key to a target
// Empty Method sends the key name to the target's on_key_press and on_key_release hooks
type Binding struct {
	Target Target
	Method string
}

// Service turns terminal key events into press and release deliveries
// Terminals report presses and repeats only, a key counts as released once no repeat arrived within the hold timeout
type Service struct {
	service.Base

	bindings    map[string]Binding
	held        map[string]float64 // Key name to seconds since last press or repeat
	holdTimeout float64

	presses   uint64
	unhandled uint64

	log zerolog.Logger
}

// NewService creates an input service, holdTimeout <= 0 uses DefaultHoldTimeout
func NewService(holdTimeout float64, log zerolog.Logger) *Service {
	if holdTimeout <= 0 {
		holdTimeout = DefaultHoldTimeout
	}
	return &Service{
		bindings:    make(map[string]Binding),
		held:        make(map[string]float64),
		holdTimeout: holdTimeout,
		log:         log.With().Str("service", "input").Logger(),
	}
}

func (s *Service) Priority() int { return Priority }

func (s *Service) Handlers() service.Handlers {
	return service.Handlers{
		service.EventTick:          service.OnTick(s.Tick),
		service.EventObjectRemoved: service.Bind1(s.onObjectRemoved),
	}
}

// Bind routes key to target, replacing any previous binding of key
func (s *Service) Bind(key string, target Target, method string) {
	s.bindings[key] = Binding{Target: target, Method: method}
	s.log.Debug().Str("key", key).Str("method", method).Msg("bound")
}

// Unbind drops the binding of key
func (s *Service) Unbind(key string) {
	delete(s.bindings, key)
	delete(s.held, key)
}

// Binding returns the binding of key
func (s *Service) Binding(key string) (Binding, bool) {
	b, ok := s.bindings[key]
	return b, ok
}

// Held reports whether key is currently considered down
func (s *Service) Held(key string) bool {
	_, ok := s.held[key]
	return ok
}

// Counters returns delivered presses and presses of unbound keys
func (s *Service) Counters() (presses, unhandled uint64) { return s.presses, s.unhandled }

// HandleEvent feeds a terminal event, non-key events are ignored
func (s *Service) HandleEvent(ev tcell.Event) (bool, error) {
	kev, ok := ev.(*tcell.EventKey)
	if !ok {
		return false, nil
	}
	return s.Press(KeyName(kev))
}

// Press delivers a key-down, repeats of a held key only extend the hold
// Returns whether a binding handled the key
func (s *Service) Press(key string) (bool, error) {
	b, ok := s.bindings[key]
	if !ok {
		s.unhandled++
		return false, nil
	}
	if _, down := s.held[key]; down {
		s.held[key] = 0
		return true, nil
	}
	s.held[key] = 0
	s.presses++
	return true, s.deliver(b, key, true)
}

// Release delivers a key-up
func (s *Service) Release(key string) (bool, error) {
	b, ok := s.bindings[key]
	if !ok {
		return false, nil
	}
	delete(s.held, key)
	return true, s.deliver(b, key, false)
}

// Tick releases keys whose repeats stopped
func (s *Service) Tick(dt float64) error {
	var expired []string
	for key, t := range s.held {
		t += dt
		s.held[key] = t
		if t >= s.holdTimeout {
			expired = append(expired, key)
		}
	}
	slices.Sort(expired)
	for _, key := range expired {
		if _, err := s.Release(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) deliver(b Binding, key string, pressed bool) error {
	if b.Method == "" {
		hook := entity.HookOnKeyRelease
		if pressed {
			hook = entity.HookOnKeyPress
		}
		if !b.Target.HasMethod(hook) {
			return nil
		}
		return eris.Wrapf(b.Target.Call(hook, key), "%s for %s", hook, key)
	}

	if b.Target.HasMethod(b.Method) {
		return eris.Wrapf(b.Target.Call(b.Method, pressed), "%s for %s", b.Method, key)
	}
	if ps, ok := b.Target.(PropertySetter); ok {
		return eris.Wrapf(ps.Set(b.Method, pressed), "set %s for %s", b.Method, key)
	}
	return eris.Wrapf(ErrNotSettable, "%s for %s", b.Method, key)
}

// onObjectRemoved drops bindings to removed entities so keys stop reaching them
func (s *Service) onObjectRemoved(e *entity.Entity) error {
	for key, b := range s.bindings {
		if t, ok := b.Target.(*entity.Entity); ok && t == e {
			s.Unbind(key)
		}
	}
	return nil
}

// KeyName returns the binding name of a key event
// Runes map to themselves ("a", "A"), space is "Space", other keys use tcell names ("Up", "Enter", "Ctrl+C")
func KeyName(ev *tcell.EventKey) string {
	if ev.Key() == tcell.KeyRune {
		if ev.Rune() == ' ' {
			return "Space"
		}
		return string(ev.Rune())
	}
	return ev.Name()
}
