package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/yaa/audio"
	"github.com/lixenwraith/yaa/config"
	"github.com/lixenwraith/yaa/engine"
	"github.com/lixenwraith/yaa/input"
	"github.com/lixenwraith/yaa/metrics"
	"github.com/lixenwraith/yaa/render"
	"github.com/lixenwraith/yaa/score"
	"github.com/lixenwraith/yaa/service"
)

var (
	configFlag = flag.String("config", "", "YAML configuration file, environment variables override it")
	debugFlag  = flag.Bool("debug", false, "Write logs to the log directory")
	nameFlag   = flag.String("name", "", "Name recorded with a high score, defaults to $USER")
	seedFlag   = flag.Uint64("seed", 0, "Random seed, 0 uses the clock")
)

const (
	snapshotWidth    = 640
	snapshotHeight   = 192
	snapshotInterval = 1.0
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "yaa: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configFlag)
	if err != nil {
		return err
	}

	logFile, log, err := setupLogging(*debugFlag, cfg.Log.Dir, cfg.Log.Level)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	scores, closeScores, err := score.Open(cfg.Score)
	if err != nil {
		return err
	}
	defer closeScores()

	screen, err := tcell.NewScreen()
	if err != nil {
		return eris.Wrap(err, "create screen")
	}
	if err := screen.Init(); err != nil {
		return eris.Wrap(err, "init screen")
	}
	crashScreen = screen
	defer screen.Fini()

	// Panic on the main goroutine, keep the terminal usable
	defer func() {
		if r := recover(); r != nil {
			handleCrash(r)
		}
	}()

	rt, err := engine.NewContext(cfg, log)
	if err != nil {
		return err
	}

	term := render.NewTerminal(screen, cfg.Bounds(), log)
	in := input.NewService(input.DefaultHoldTimeout, log)
	snd := audio.NewService(cfg.Audio.Volume, log)
	if err := registerAll(rt, term, in, snd); err != nil {
		return err
	}
	rt.SetCanvas(term.Canvas())

	if cfg.Audio.Enabled {
		if err := snd.Initialize(); err != nil {
			log.Warn().Err(err).Msg("audio unavailable, continuing without sound")
		} else {
			defer snd.Cleanup()
		}
	}

	clock := engine.NewClock(rt.Dispatcher, term, cfg.Loop.TickRate, cfg.Loop.FrameRate, log)

	var router *metrics.RouterConfig
	if cfg.Metrics.Listen != "" {
		collector := metrics.NewService(rt, log)
		snapshots := render.NewSnapshotter(rt.Physics, snapshotWidth, snapshotHeight, snapshotInterval, log)
		if err := registerAll(rt, collector, snapshots); err != nil {
			return err
		}
		clock.SetObserver(collector.ObserveTick)
		router = &metrics.RouterConfig{
			Metrics:     collector,
			Scores:      scores,
			Snapshots:   snapshots,
			RateLimiter: metrics.NewIPRateLimiter(cfg.Metrics.RateLimit, cfg.Metrics.Burst),
			Log:         log,
		}
	}

	seed := *seedFlag
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	g := newGame(rt, term, in, snd, seed, log)
	if err := g.start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(guard(func() error { return clock.Run(ctx) }))
	grp.Go(guard(func() error { return pollInput(ctx, screen, clock, in, quit) }))
	if router != nil {
		grp.Go(guard(func() error {
			return metrics.Serve(ctx, cfg.Metrics.Listen, metrics.NewRouter(*router), log)
		}))
	}

	runErr := grp.Wait()
	if runErr != nil {
		log.Error().Err(runErr).Msg("frame loop failed")
	}
	log.Info().Uint64("frames", clock.Frames()).Int64("points", g.Points()).Msg("stopped")

	// Loop goroutines are gone, game state is safe to read here
	if err := saveScore(scores, cfg.Score.Size, g.Points(), playerName(), log); err != nil {
		return err
	}
	return runErr
}

func registerAll(rt *engine.Context, svcs ...service.Service) error {
	for _, s := range svcs {
		if err := rt.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// pollInput forwards terminal events to the frame goroutine until ctx ends or the player quits
func pollInput(ctx context.Context, screen tcell.Screen, clock *engine.Clock, in *input.Service, quit context.CancelFunc) error {
	events := make(chan tcell.Event, 64)
	stop := make(chan struct{})
	defer close(stop)
	go screen.ChannelEvents(events, stop)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				quit()
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
					quit()
					return nil
				case ev.Key() == tcell.KeyRune && ev.Rune() == 'p':
					if clock.IsPaused() {
						clock.Resume()
					} else {
						clock.Pause()
					}
					continue
				}
				clock.Post(func() error {
					_, err := in.HandleEvent(ev)
					return err
				})
			}
		}
	}
}

func playerName() string {
	if *nameFlag != "" {
		return *nameFlag
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "player"
}

// saveScore records points when they make the list
func saveScore(store score.Store, size int, points int64, name string, log zerolog.Logger) error {
	if points <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	top, err := store.Top(ctx, -1)
	if err != nil {
		return err
	}
	if !score.Qualifies(top, points, size) {
		return nil
	}
	if err := store.Add(ctx, points, name); err != nil {
		return err
	}
	log.Info().Int64("points", points).Str("name", name).Msg("high score saved")
	return nil
}
