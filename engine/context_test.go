package engine

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/yaa/config"
	"github.com/lixenwraith/yaa/message"
	"github.com/lixenwraith/yaa/physics"
	"github.com/lixenwraith/yaa/service"
)

// TestNewContextRegistersCore verifies the core services are registered in priority order
func TestNewContextRegistersCore(t *testing.T) {
	ctx, err := NewContext(nil, zerolog.Nop())
	require.NoError(t, err)

	sched, err := service.Get[*message.Scheduler](ctx.Dispatcher)
	require.NoError(t, err)
	assert.Same(t, ctx.Scheduler, sched)
	assert.Same(t, ctx.Objects, service.MustGet[*ObjectService](ctx.Dispatcher))
	assert.Same(t, ctx.Physics, service.MustGet[*physics.Integrator](ctx.Dispatcher))

	assert.Equal(t, []string{
		"*message.Scheduler",
		"*engine.ObjectService",
		"*physics.Integrator",
	}, ctx.Dispatcher.Subscribers(service.EventTick))
}

// TestNewContextAppliesConfig verifies debug toggles are taken from configuration
func TestNewContextAppliesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Debug.Objects = true
	cfg.Debug.Physics = true

	ctx, err := NewContext(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, ctx.Objects.DebugDraw())
	assert.True(t, ctx.Physics.DebugDraw())
	assert.Equal(t, cfg.Bounds(), ctx.Physics.Bounds())
}

// TestContextRegisterDuplicate verifies collaborators go through the same uniqueness check
func TestContextRegisterDuplicate(t *testing.T) {
	ctx, err := NewContext(nil, zerolog.Nop())
	require.NoError(t, err)

	err = ctx.Register(NewObjectService(zerolog.Nop()))
	assert.True(t, eris.Is(err, service.ErrDuplicateService))
}
