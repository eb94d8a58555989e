package service

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder appends its tag to a shared log on every subscribed event
type recorder struct {
	tag      string
	priority int
	events   []Event
	log      *[]string
	fail     error
}

func (r *recorder) Priority() int { return r.priority }

func (r *recorder) Handlers() Handlers {
	h := make(Handlers, len(r.events))
	for _, ev := range r.events {
		h[ev] = func(...any) error {
			*r.log = append(*r.log, r.tag)
			return r.fail
		}
	}
	return h
}

// Distinct types so each recorder can be registered once
type (
	recA struct{ recorder }
	recB struct{ recorder }
	recC struct{ recorder }
)

type attached struct {
	Base
}

func (a *attached) Priority() int      { return 0 }
func (a *attached) Handlers() Handlers { return nil }

func newRec(tag string, prio int, log *[]string, evs ...Event) recorder {
	return recorder{tag: tag, priority: prio, events: evs, log: log}
}

// TestBroadcastOrdersByPriority verifies ascending priority with registration order as tiebreak
func TestBroadcastOrdersByPriority(t *testing.T) {
	var log []string
	d := NewDispatcher(zerolog.Nop())

	require.NoError(t, d.Register(&recA{newRec("a", 10, &log, EventTick)}))
	require.NoError(t, d.Register(&recB{newRec("b", 1, &log, EventTick)}))
	require.NoError(t, d.Register(&recC{newRec("c", 10, &log, EventTick, EventDraw)}))

	require.NoError(t, d.Broadcast(EventTick, 0.016))
	assert.Equal(t, []string{"b", "a", "c"}, log)

	log = nil
	require.NoError(t, d.Broadcast(EventDraw))
	assert.Equal(t, []string{"c"}, log, "only subscribers receive the event")
}

// TestBroadcastWithoutSubscribers verifies unknown events are a no-op
func TestBroadcastWithoutSubscribers(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	assert.NoError(t, d.Broadcast("on_nothing", 1, 2, 3))
	assert.Empty(t, d.Subscribers("on_nothing"))
}

// TestRegisterInvalidatesCache verifies a service registered after a broadcast is seen by the next one
func TestRegisterInvalidatesCache(t *testing.T) {
	var log []string
	d := NewDispatcher(zerolog.Nop())

	require.NoError(t, d.Register(&recA{newRec("a", 5, &log, EventTick)}))
	require.NoError(t, d.Broadcast(EventTick, 0.0))
	assert.Equal(t, []string{"*service.recA"}, d.Subscribers(EventTick))

	require.NoError(t, d.Register(&recB{newRec("b", 0, &log, EventTick)}))
	log = nil
	require.NoError(t, d.Broadcast(EventTick, 0.0))
	assert.Equal(t, []string{"b", "a"}, log)
}

// TestRegisterDuplicateType verifies one instance per concrete type
func TestRegisterDuplicateType(t *testing.T) {
	var log []string
	d := NewDispatcher(zerolog.Nop())

	require.NoError(t, d.Register(&recA{newRec("a", 0, &log)}))
	err := d.Register(&recA{newRec("a2", 0, &log)})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDuplicateService))
	assert.Len(t, d.Services(), 1)
}

// TestGetByType verifies typed lookup and the missing-service error
func TestGetByType(t *testing.T) {
	var log []string
	d := NewDispatcher(zerolog.Nop())
	a := &recA{newRec("a", 0, &log)}
	require.NoError(t, d.Register(a))

	got, err := Get[*recA](d)
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = Get[*recB](d)
	assert.True(t, eris.Is(err, ErrServiceNotFound))

	assert.Panics(t, func() { MustGet[*recB](d) })
	assert.NotPanics(t, func() { MustGet[*recA](d) })
}

// TestAttachCalledOnRegister verifies the Base back-reference is set
func TestAttachCalledOnRegister(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	svc := &attached{}
	assert.Nil(t, svc.Dispatcher())

	require.NoError(t, d.Register(svc))
	assert.Same(t, d, svc.Dispatcher())
}

// TestBroadcastErrorAborts verifies the first failing handler stops the broadcast
func TestBroadcastErrorAborts(t *testing.T) {
	var log []string
	boom := eris.New("boom")
	d := NewDispatcher(zerolog.Nop())

	failing := &recA{newRec("a", 0, &log, EventUpdate)}
	failing.fail = boom
	require.NoError(t, d.Register(failing))
	require.NoError(t, d.Register(&recB{newRec("b", 1, &log, EventUpdate)}))

	err := d.Broadcast(EventUpdate, 0.1)
	require.Error(t, err)
	assert.True(t, eris.Is(err, boom))
	assert.Contains(t, err.Error(), "on_update")
	assert.Equal(t, []string{"a"}, log)
}

// TestBindPayload verifies typed adapters reject wrong payloads
func TestBindPayload(t *testing.T) {
	var got float64
	h := OnTick(func(dt float64) error {
		got = dt
		return nil
	})

	require.NoError(t, h(0.25))
	assert.Equal(t, 0.25, got)

	assert.True(t, eris.Is(h(), ErrBadPayload))
	assert.True(t, eris.Is(h("fast"), ErrBadPayload))

	var pair string
	h2 := Bind2(func(s string, n int) error {
		pair = s
		return nil
	})
	require.NoError(t, h2("x", 1))
	assert.Equal(t, "x", pair)
	assert.True(t, eris.Is(h2("x", "y"), ErrBadPayload))
	assert.NoError(t, Bind0(func() error { return nil })(1, 2))
}
