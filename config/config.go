package config

import (
	"os"
	"strconv"

	jlconfig "github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/yaa/vmath"
)

// Score backends
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config is the runtime configuration
// Precedence: defaults, then YAML file, then YAA_* environment variables
type Config struct {
	World   WorldConfig   `yaml:"world"`
	Loop    LoopConfig    `yaml:"loop"`
	Debug   DebugConfig   `yaml:"debug"`
	Score   ScoreConfig   `yaml:"score"`
	Metrics MetricsConfig `yaml:"metrics"`
	Audio   AudioConfig   `yaml:"audio"`
	Log     LogConfig     `yaml:"log"`
}

// WorldConfig sizes the toroidal world and its broad phase
type WorldConfig struct {
	MinX       float64 `yaml:"min_x"`
	MinY       float64 `yaml:"min_y"`
	MaxX       float64 `yaml:"max_x"`
	MaxY       float64 `yaml:"max_y"`
	CellSize   float64 `yaml:"cell_size"`
	Iterations int     `yaml:"iterations"` // Impulse passes per step
}

type LoopConfig struct {
	TickRate  int `yaml:"tick_rate"`  // Simulation frames per second
	FrameRate int `yaml:"frame_rate"` // Draw cap, 0 draws every tick
}

type DebugConfig struct {
	Objects bool `yaml:"objects"`
	Physics bool `yaml:"physics"`
}

type ScoreConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisKey  string `yaml:"redis_key"`
	Size      int    `yaml:"size"` // Entries kept
}

type MetricsConfig struct {
	Listen    string  `yaml:"listen"` // Empty disables the HTTP API
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

type AudioConfig struct {
	Enabled bool    `yaml:"enabled"`
	Volume  float64 `yaml:"volume"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default returns a configuration usable without a file or environment
func Default() *Config {
	return &Config{
		World: WorldConfig{
			MaxX:       160,
			MaxY:       48,
			CellSize:   8,
			Iterations: 4,
		},
		Loop: LoopConfig{
			TickRate:  60,
			FrameRate: 30,
		},
		Score: ScoreConfig{
			Backend:  BackendFile,
			Path:     "highscores.json",
			RedisKey: "yaa:highscores",
			Size:     10,
		},
		Metrics: MetricsConfig{
			RateLimit: 10,
			Burst:     20,
		},
		Audio: AudioConfig{
			Enabled: true,
			Volume:  0.5,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
		},
	}
}

// Bounds returns the world wrap-around bounds
func (c *Config) Bounds() vmath.Bounds {
	return vmath.Bounds{MinX: c.World.MinX, MinY: c.World.MinY, MaxX: c.World.MaxX, MaxY: c.World.MaxY}
}

// Load builds the configuration from defaults, an optional YAML file and the environment
// An empty path skips the file, a missing file at a given path is an error
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, eris.Wrapf(err, "parse config %s", path)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envOverlay is the flat set of environment overrides
// Zero values leave the loaded value untouched, booleans are strings so false can be set
type envOverlay struct {
	MinX         float64 `config:"YAA_WORLD_MIN_X"`
	MinY         float64 `config:"YAA_WORLD_MIN_Y"`
	MaxX         float64 `config:"YAA_WORLD_MAX_X"`
	MaxY         float64 `config:"YAA_WORLD_MAX_Y"`
	TickRate     int     `config:"YAA_TICK_RATE"`
	FrameRate    int     `config:"YAA_FRAME_RATE"`
	DebugObjects string  `config:"YAA_DEBUG_OBJECTS"`
	DebugPhysics string  `config:"YAA_DEBUG_PHYSICS"`
	ScoreBackend string  `config:"YAA_SCORE_BACKEND"`
	ScorePath    string  `config:"YAA_SCORE_PATH"`
	RedisAddr    string  `config:"YAA_REDIS_ADDR"`
	RedisKey     string  `config:"YAA_REDIS_KEY"`
	MetricsAddr  string  `config:"YAA_METRICS_LISTEN"`
	AudioEnabled string  `config:"YAA_AUDIO_ENABLED"`
	Volume       float64 `config:"YAA_VOLUME"`
	LogLevel     string  `config:"YAA_LOG_LEVEL"`
}

func (c *Config) applyEnv() error {
	var env envOverlay
	if err := jlconfig.FromEnv().To(&env); err != nil {
		return eris.Wrap(err, "read environment")
	}

	setFloat(&c.World.MinX, env.MinX)
	setFloat(&c.World.MinY, env.MinY)
	setFloat(&c.World.MaxX, env.MaxX)
	setFloat(&c.World.MaxY, env.MaxY)
	setInt(&c.Loop.TickRate, env.TickRate)
	setInt(&c.Loop.FrameRate, env.FrameRate)
	setString(&c.Score.Backend, env.ScoreBackend)
	setString(&c.Score.Path, env.ScorePath)
	setString(&c.Score.RedisAddr, env.RedisAddr)
	setString(&c.Score.RedisKey, env.RedisKey)
	setString(&c.Metrics.Listen, env.MetricsAddr)
	setFloat(&c.Audio.Volume, env.Volume)
	setString(&c.Log.Level, env.LogLevel)

	for _, b := range []struct {
		dst *bool
		raw string
		key string
	}{
		{&c.Debug.Objects, env.DebugObjects, "YAA_DEBUG_OBJECTS"},
		{&c.Debug.Physics, env.DebugPhysics, "YAA_DEBUG_PHYSICS"},
		{&c.Audio.Enabled, env.AudioEnabled, "YAA_AUDIO_ENABLED"},
	} {
		if b.raw == "" {
			continue
		}
		v, err := strconv.ParseBool(b.raw)
		if err != nil {
			return eris.Wrapf(err, "%s", b.key)
		}
		*b.dst = v
	}
	return nil
}

// Validate rejects configurations the runtime cannot start with
func (c *Config) Validate() error {
	if !c.Bounds().Valid() {
		return eris.Errorf("world bounds must have positive span, got %+v", c.World)
	}
	if c.World.CellSize <= 0 {
		return eris.Errorf("cell size must be positive, got %v", c.World.CellSize)
	}
	if c.Loop.TickRate <= 0 {
		return eris.Errorf("tick rate must be positive, got %d", c.Loop.TickRate)
	}
	if c.Loop.FrameRate < 0 {
		return eris.Errorf("frame rate must not be negative, got %d", c.Loop.FrameRate)
	}
	switch c.Score.Backend {
	case BackendFile:
		if c.Score.Path == "" {
			return eris.New("file score backend needs a path")
		}
	case BackendRedis:
		if c.Score.RedisAddr == "" {
			return eris.New("redis score backend needs an address")
		}
	default:
		return eris.Errorf("unknown score backend %q", c.Score.Backend)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return eris.Errorf("volume must be in [0,1], got %v", c.Audio.Volume)
	}
	return nil
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
