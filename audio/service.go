package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/service"
)

// Priority of the audio service, after physics so removals of the frame are already known
const Priority = 15

// MethodPlay is the receiver method playing a cue, argument is the cue name
const MethodPlay = "play"

const sampleRate = beep.SampleRate(48000)

// maxIdleCues bounds the mixer while no speaker consumes it
const maxIdleCues = 64

var ErrUnknownCue = eris.New("unknown sound cue")

// Cue names a sound effect
type Cue string

const (
	CueNone   Cue = ""
	CueSpawn  Cue = "spawn"
	CueRemove Cue = "remove"
	CueHit    Cue = "hit"
	CueFire   Cue = "fire"
	CueThrust Cue = "thrust"
)

// KindCues are the cues played when an entity of a kind is added or removed
type KindCues struct {
	Added, Removed Cue
}

// Service plays sound cues through one mixer
// Without an output device the mixer still collects cues, nothing is heard
type Service struct {
	service.Base

	mu          sync.Mutex
	mixer       *beep.Mixer
	volume      *effects.Volume
	initialized bool // Speaker running

	kinds  map[string]KindCues
	played map[Cue]uint64
	seed   int64

	log zerolog.Logger
}

// NewService creates an audio service with master volume in [0,1]
func NewService(volume float64, log zerolog.Logger) *Service {
	s := &Service{
		mixer:  &beep.Mixer{},
		kinds:  make(map[string]KindCues),
		played: make(map[Cue]uint64),
		seed:   time.Now().UnixNano(),
		log:    log.With().Str("service", "audio").Logger(),
	}
	s.volume = &effects.Volume{Streamer: s.mixer, Base: 2}
	s.SetVolume(volume)
	return s
}

func (s *Service) Priority() int { return Priority }

func (s *Service) Handlers() service.Handlers {
	return service.Handlers{
		service.EventObjectAdded:   service.Bind1(s.onObjectAdded),
		service.EventObjectRemoved: service.Bind1(s.onObjectRemoved),
	}
}

// Initialize opens the output device
// Failure leaves the service usable and silent, callers decide whether to log it
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return eris.Wrap(err, "speaker init")
	}
	speaker.Play(s.volume)
	s.initialized = true
	s.log.Info().Int("sample_rate", int(sampleRate)).Msg("speaker initialized")
	return nil
}

// Cleanup stops every playing cue
func (s *Service) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lock()
	s.mixer.Clear()
	s.unlock()
	if s.initialized {
		speaker.Clear()
	}
	s.initialized = false
}

// SetVolume sets master volume in [0,1], 0 mutes
func (s *Service) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lock()
	defer s.unlock()
	if v <= 0 {
		s.volume.Silent = true
		return
	}
	s.volume.Silent = false
	s.volume.Volume = math.Log2(math.Min(v, 1))
}

// Muted reports whether master volume is zero
func (s *Service) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume.Silent
}

// MapKind plays cues when entities of kind are added or removed
func (s *Service) MapKind(kind string, cues KindCues) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds[kind] = cues
}

// Play mixes cue into the output
func (s *Service) Play(cue Cue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seed++
	st, err := streamerFor(cue, sampleRate, s.seed)
	if err != nil {
		return err
	}
	s.lock()
	if !s.initialized && s.mixer.Len() >= maxIdleCues {
		// Without a device nothing drains the mixer
		s.mixer.Clear()
	}
	s.mixer.Add(st)
	s.unlock()
	s.played[cue]++
	return nil
}

// Active returns the number of cues still playing
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lock()
	defer s.unlock()
	return s.mixer.Len()
}

// Played returns how many times cue was played
func (s *Service) Played(cue Cue) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.played[cue]
}

// Output is the master streamer, exposed for rendering without a device
func (s *Service) Output() beep.Streamer { return s.volume }

// HasMethod lets entities and deferred messages trigger cues
func (s *Service) HasMethod(name string) bool { return name == MethodPlay }

// Call implements the play method, the argument is a Cue or its name
func (s *Service) Call(name string, args ...any) error {
	if name != MethodPlay {
		return eris.Wrapf(entity.ErrUnknownHook, "%s on audio", name)
	}
	if len(args) == 0 {
		return eris.New("play needs a cue")
	}
	switch c := args[0].(type) {
	case Cue:
		return s.Play(c)
	case string:
		return s.Play(Cue(c))
	default:
		return eris.Errorf("play: want cue, got %T", args[0])
	}
}

func (s *Service) onObjectAdded(e *entity.Entity) error {
	return s.playFor(e, true)
}

func (s *Service) onObjectRemoved(e *entity.Entity) error {
	return s.playFor(e, false)
}

func (s *Service) playFor(e *entity.Entity, added bool) error {
	s.mu.Lock()
	cues, ok := s.kinds[e.Kind()]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	cue := cues.Removed
	if added {
		cue = cues.Added
	}
	if cue == CueNone {
		return nil
	}
	return s.Play(cue)
}

// lock guards the mixer against the speaker goroutine once it runs
func (s *Service) lock() {
	if s.initialized {
		speaker.Lock()
	}
}

func (s *Service) unlock() {
	if s.initialized {
		speaker.Unlock()
	}
}
