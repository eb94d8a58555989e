package engine

import (
	"github.com/rs/zerolog"

	"github.com/lixenwraith/yaa/config"
	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/message"
	"github.com/lixenwraith/yaa/physics"
	"github.com/lixenwraith/yaa/service"
)

// Context is the explicit service locator handed to whatever needs the runtime
// One per process, or one per test
type Context struct {
	// ===== Immutable After Init =====

	Config *config.Config
	Log    zerolog.Logger

	Dispatcher *service.Dispatcher

	// Core services, registered by NewContext
	Scheduler *message.Scheduler
	Objects   *ObjectService
	Physics   *physics.Integrator
}

// NewContext builds the dispatcher and registers the core services
// Collaborators (render, input, audio, metrics) are registered by the caller
func NewContext(cfg *config.Config, log zerolog.Logger) (*Context, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	ctx := &Context{
		Config:     cfg,
		Log:        log,
		Dispatcher: service.NewDispatcher(log),
		Scheduler:  message.NewScheduler(log),
		Objects:    NewObjectService(log),
		Physics:    physics.NewIntegrator(cfg.Bounds(), cfg.World.CellSize, log),
	}

	ctx.Physics.World().SetIterations(cfg.World.Iterations)
	ctx.Physics.ToggleDebugDraw(cfg.Debug.Physics)
	ctx.Objects.SetDebugDraw(cfg.Debug.Objects)

	for _, svc := range []service.Service{ctx.Scheduler, ctx.Objects, ctx.Physics} {
		if err := ctx.Dispatcher.Register(svc); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

// Register adds a collaborator service
func (c *Context) Register(svc service.Service) error {
	return c.Dispatcher.Register(svc)
}

// SetCanvas points both debug drawers at c
func (c *Context) SetCanvas(canvas entity.Canvas) {
	c.Objects.SetCanvas(canvas)
	c.Physics.SetCanvas(canvas)
}
