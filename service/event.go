package service

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// Event names a broadcast
// The dispatcher has no knowledge of event semantics; any name works
type Event string

// Events driven by the engine itself
const (
	EventInit          Event = "on_init"           // payload: *Dispatcher
	EventTick          Event = "on_tick"           // payload: dt float64 (seconds)
	EventUpdate        Event = "on_update"         // payload: dt float64, after every EventTick handler ran
	EventDraw          Event = "on_draw"           // no payload
	EventObjectAdded   Event = "on_object_added"   // payload: *entity.Entity
	EventObjectRemoved Event = "on_object_removed" // payload: *entity.Entity
)

// Handler receives a broadcast payload
type Handler func(args ...any) error

// Handlers maps event names to a service's handler
type Handlers map[Event]Handler

// Bind0 adapts a function that takes no payload, extra arguments are ignored
func Bind0(fn func() error) Handler {
	return func(...any) error {
		return fn()
	}
}

// Bind1 adapts a function taking one typed argument
// A missing or mistyped argument yields ErrBadPayload
func Bind1[T any](fn func(T) error) Handler {
	return func(args ...any) error {
		if len(args) < 1 {
			return eris.Wrapf(ErrBadPayload, "want %s, got no arguments", reflect.TypeFor[T]())
		}
		v, ok := args[0].(T)
		if !ok {
			return eris.Wrapf(ErrBadPayload, "want %s, got %T", reflect.TypeFor[T](), args[0])
		}
		return fn(v)
	}
}

// Bind2 adapts a function taking two typed arguments
func Bind2[A, B any](fn func(A, B) error) Handler {
	return func(args ...any) error {
		if len(args) < 2 {
			return eris.Wrapf(ErrBadPayload, "want (%s, %s), got %d arguments",
				reflect.TypeFor[A](), reflect.TypeFor[B](), len(args))
		}
		a, ok := args[0].(A)
		if !ok {
			return eris.Wrapf(ErrBadPayload, "argument 0: want %s, got %T", reflect.TypeFor[A](), args[0])
		}
		b, ok := args[1].(B)
		if !ok {
			return eris.Wrapf(ErrBadPayload, "argument 1: want %s, got %T", reflect.TypeFor[B](), args[1])
		}
		return fn(a, b)
	}
}

// OnTick adapts a tick handler
func OnTick(fn func(dt float64) error) Handler { return Bind1(fn) }

// OnInit adapts an init handler
func OnInit(fn func(d *Dispatcher) error) Handler { return Bind1(fn) }
