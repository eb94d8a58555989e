package message

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/service"
)

// Priority of the Scheduler, first on every tick so due messages land before lifecycle and physics
const Priority = 0

var ErrMethodNotFound = eris.New("receiver has no such method")

// Receiver is anything a deferred message can be delivered to
type Receiver interface {
	HasMethod(name string) bool
	Call(name string, args ...any) error
}

// Scheduler delivers messages once the logical clock has passed their timestamp
// The clock advances only by the dt of each tick
type Scheduler struct {
	service.Base

	queue     queue
	clock     float64
	seq       uint64
	delivered uint64
	dropped   uint64

	log zerolog.Logger
}

// NewScheduler creates an empty scheduler at clock 0
func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		log: log.With().Str("service", "message").Logger(),
	}
}

func (s *Scheduler) Priority() int { return Priority }

func (s *Scheduler) Handlers() service.Handlers {
	return service.Handlers{
		service.EventTick:          service.OnTick(s.Tick),
		service.EventObjectRemoved: service.Bind1(s.onObjectRemoved),
	}
}

// Clock returns the current logical time in seconds
func (s *Scheduler) Clock() float64 { return s.clock }

// Len returns the number of queued messages
func (s *Scheduler) Len() int { return s.queue.Len() }

// Delivered returns the number of messages delivered so far
func (s *Scheduler) Delivered() uint64 { return s.delivered }

// Dropped returns the number of messages discarded because every receiver was removed
func (s *Scheduler) Dropped() uint64 { return s.dropped }

// Send schedules method on one receiver after delay seconds
func (s *Scheduler) Send(to Receiver, method string, delay float64, args ...any) (*Message, error) {
	return s.SendAll([]Receiver{to}, method, delay, args...)
}

// SendAll schedules method on every receiver after delay seconds
// Method existence is checked at delivery, not here
func (s *Scheduler) SendAll(to []Receiver, method string, delay float64, args ...any) (*Message, error) {
	if len(to) == 0 {
		return nil, eris.Errorf("message %q has no receivers", method)
	}
	if delay < 0 || math.IsNaN(delay) || math.IsInf(delay, 0) {
		return nil, eris.Errorf("message %q: invalid delay %v", method, delay)
	}

	s.seq++
	m := &Message{
		Receivers: slices.Clone(to),
		Method:    method,
		Timestamp: s.clock + delay,
		Args:      args,
		seq:       s.seq,
	}
	s.queue.push(m)
	return m, nil
}

// Cancel removes a queued message, reporting whether it was still pending
func (s *Scheduler) Cancel(m *Message) bool {
	if m == nil || m.index < 0 || m.index >= s.queue.Len() || s.queue.items[m.index] != m {
		return false
	}
	s.queue.remove(m)
	return true
}

// Tick advances the clock and delivers every message whose timestamp is strictly before it
// Delivery stops at the first message not yet due; a delivery error aborts the tick
// after the failing message has been popped
func (s *Scheduler) Tick(dt float64) error {
	s.clock += dt

	for {
		m := s.queue.peek()
		if m == nil || !(m.Timestamp < s.clock) {
			return nil
		}
		s.queue.pop()

		// A receiver may be removed by an earlier receiver of the same message
		called := 0
		for _, r := range m.Receivers {
			if removed(r) {
				continue
			}
			if !r.HasMethod(m.Method) {
				return eris.Wrapf(ErrMethodNotFound, "%q on %v", m.Method, r)
			}
			if err := r.Call(m.Method, m.Args...); err != nil {
				return eris.Wrapf(err, "deliver %q to %v", m.Method, r)
			}
			called++
		}
		if called == 0 {
			s.dropped++
			s.log.Warn().Str("method", m.Method).Msg("message dropped, every receiver removed")
			continue
		}
		s.delivered++
		s.log.Debug().Str("method", m.Method).Float64("at", m.Timestamp).Int("receivers", called).Msg("message delivered")
	}
}

func removed(r Receiver) bool {
	e, ok := r.(*entity.Entity)
	return ok && e.Removed()
}

// onObjectRemoved strips a removed entity from every queued message
// Messages left without receivers are dropped
func (s *Scheduler) onObjectRemoved(e *entity.Entity) error {
	var empty []*Message
	for _, m := range s.queue.items {
		m.Receivers = slices.DeleteFunc(m.Receivers, func(r Receiver) bool {
			re, ok := r.(*entity.Entity)
			return ok && re == e
		})
		if len(m.Receivers) == 0 {
			empty = append(empty, m)
		}
	}

	for _, m := range empty {
		s.queue.remove(m)
		s.dropped++
		s.log.Warn().Str("method", m.Method).Stringer("entity", e).Msg("message dropped, receiver removed")
	}
	return nil
}
