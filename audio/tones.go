package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/rotisserie/eris"
)

// buzzGenerator generates a low-pitch buzz with harmonics
type buzzGenerator struct {
	sr   beep.SampleRate
	freq float64
	pos  int
}

func newBuzzGenerator(sr beep.SampleRate, freq float64) *buzzGenerator {
	return &buzzGenerator{sr: sr, freq: freq}
}

func (g *buzzGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		sample := 0.3 * math.Sin(2*math.Pi*g.freq*t)
		sample += 0.15 * math.Sin(2*math.Pi*g.freq*2*t)
		sample += 0.075 * math.Sin(2*math.Pi*g.freq*3*t)

		// 20ms fade in
		envelope := math.Min(t/0.02, 1.0)
		sample *= envelope * 0.2

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *buzzGenerator) Err() error { return nil }

// crackleGenerator generates decaying noise over a low rumble
type crackleGenerator struct {
	sr   beep.SampleRate
	pos  int
	seed int64
}

func newCrackleGenerator(sr beep.SampleRate, seed int64) *crackleGenerator {
	return &crackleGenerator{sr: sr, seed: seed}
}

func (g *crackleGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)
		envelope := math.Exp(-t * 8)

		// LCG noise
		g.seed = (g.seed*1103515245 + 12345) & 0x7fffffff
		noise := float64(g.seed)/float64(0x7fffffff)*2 - 1
		rumble := 0.3 * math.Sin(2*math.Pi*80*t)

		sample := envelope * (0.25*noise + rumble)
		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *crackleGenerator) Err() error { return nil }

// sweepGenerator glides from one frequency to another over its duration
type sweepGenerator struct {
	sr         beep.SampleRate
	from, to   float64
	total, pos int
	phase      float64
}

func newSweepGenerator(sr beep.SampleRate, from, to float64, d time.Duration) *sweepGenerator {
	return &sweepGenerator{sr: sr, from: from, to: to, total: max(1, sr.N(d))}
}

func (g *sweepGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		progress := math.Min(float64(g.pos)/float64(g.total), 1)
		freq := g.from + (g.to-g.from)*progress
		g.phase += freq / float64(g.sr)
		g.phase -= math.Floor(g.phase)

		sample := 0.15 * (1 - progress) * math.Sin(2*math.Pi*g.phase)
		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *sweepGenerator) Err() error { return nil }

// streamerFor builds a finite streamer for cue
func streamerFor(cue Cue, sr beep.SampleRate, seed int64) (beep.Streamer, error) {
	switch cue {
	case CueSpawn:
		return beep.Take(sr.N(80*time.Millisecond), newSweepGenerator(sr, 440, 880, 80*time.Millisecond)), nil
	case CueRemove:
		return beep.Take(sr.N(300*time.Millisecond), newCrackleGenerator(sr, seed)), nil
	case CueHit:
		return beep.Take(sr.N(150*time.Millisecond), newBuzzGenerator(sr, 120)), nil
	case CueFire:
		tone, err := generators.SineTone(sr, 880)
		if err != nil {
			return nil, eris.Wrap(err, "sine tone")
		}
		return beep.Take(sr.N(50*time.Millisecond), tone), nil
	case CueThrust:
		return beep.Take(sr.N(120*time.Millisecond), newSweepGenerator(sr, 80, 200, 120*time.Millisecond)), nil
	}
	return nil, eris.Wrapf(ErrUnknownCue, "%q", string(cue))
}
