// Package metrics exports runtime counters to prometheus and serves the debug HTTP API
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/yaa/engine"
	"github.com/lixenwraith/yaa/service"
)

// Priority runs the collector after physics so contact counts include the current step
const Priority = 20

// Status is the frame state published to the HTTP side after every tick
type Status struct {
	Frame      uint64  `json:"frame"`
	Clock      float64 `json:"clock"`
	Live       int     `json:"live"`
	Physical   int     `json:"physical"`
	Pending    int     `json:"pending_messages"`
	Added      uint64  `json:"added"`
	Removed    uint64  `json:"removed"`
	Delivered  uint64  `json:"delivered"`
	Dropped    uint64  `json:"dropped"`
	Contacts   uint64  `json:"contacts"`
	Suppressed uint64  `json:"suppressed"`
}

// Service samples the core services every tick
// Counters are fed with deltas against the previous sample
type Service struct {
	rt       *engine.Context
	registry *prometheus.Registry

	tickDuration prometheus.Histogram
	live         prometheus.Gauge
	physical     prometheus.Gauge
	pending      prometheus.Gauge
	delivered    prometheus.Counter
	dropped      prometheus.Counter
	contacts     prometheus.Counter
	suppressed   prometheus.Counter

	last   Status
	frame  uint64
	status atomic.Pointer[Status]
	log    zerolog.Logger
}

// NewService registers collectors on a private registry
func NewService(rt *engine.Context, log zerolog.Logger) *Service {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	s := &Service{
		rt:       rt,
		registry: reg,
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "yaa_tick_duration_seconds",
			Help:    "Time spent in one tick broadcast",
			Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05},
		}),
		live: factory.NewGauge(prometheus.GaugeOpts{
			Name: "yaa_live_entities",
			Help: "Entities currently live",
		}),
		physical: factory.NewGauge(prometheus.GaugeOpts{
			Name: "yaa_physical_entities",
			Help: "Entities with a body in the physics world",
		}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "yaa_pending_messages",
			Help: "Deferred messages waiting for delivery",
		}),
		delivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "yaa_messages_delivered_total",
			Help: "Deferred messages delivered",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "yaa_messages_dropped_total",
			Help: "Deferred messages dropped because the receiver was removed",
		}),
		contacts: factory.NewCounter(prometheus.CounterOpts{
			Name: "yaa_contacts_total",
			Help: "Shape contacts detected",
		}),
		suppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "yaa_contacts_suppressed_total",
			Help: "Contacts rejected by a collision hook",
		}),
		log: log.With().Str("service", "metrics").Logger(),
	}
	s.status.Store(&Status{})
	return s
}

func (s *Service) Priority() int { return Priority }

func (s *Service) Handlers() service.Handlers {
	return service.Handlers{
		service.EventTick: service.OnTick(s.sample),
	}
}

// Registry exposes the collectors for the HTTP handler
func (s *Service) Registry() *prometheus.Registry { return s.registry }

// ObserveTick records one tick duration, installed as the clock observer
func (s *Service) ObserveTick(elapsed time.Duration) {
	s.tickDuration.Observe(elapsed.Seconds())
}

// Status returns the last published sample, safe from any goroutine
func (s *Service) Status() Status { return *s.status.Load() }

func (s *Service) sample(float64) error {
	s.frame++
	cur := Status{
		Frame:     s.frame,
		Clock:     s.rt.Scheduler.Clock(),
		Live:      s.rt.Objects.Len(),
		Physical:  s.rt.Physics.Len(),
		Pending:   s.rt.Scheduler.Len(),
		Delivered: s.rt.Scheduler.Delivered(),
		Dropped:   s.rt.Scheduler.Dropped(),
	}
	cur.Added, cur.Removed = s.rt.Objects.Totals()
	pc := s.rt.Physics.Counters()
	cur.Contacts, cur.Suppressed = pc.Contacts, pc.Suppressed

	s.live.Set(float64(cur.Live))
	s.physical.Set(float64(cur.Physical))
	s.pending.Set(float64(cur.Pending))
	s.delivered.Add(float64(cur.Delivered - s.last.Delivered))
	s.dropped.Add(float64(cur.Dropped - s.last.Dropped))
	s.contacts.Add(float64(cur.Contacts - s.last.Contacts))
	s.suppressed.Add(float64(cur.Suppressed - s.last.Suppressed))

	s.last = cur
	s.status.Store(&cur)
	return nil
}
