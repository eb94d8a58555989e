package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/yaa/config"
	"github.com/lixenwraith/yaa/engine"
	"github.com/lixenwraith/yaa/entity"
	"github.com/lixenwraith/yaa/physics"
	"github.com/lixenwraith/yaa/score"
	"github.com/lixenwraith/yaa/vmath"
)

func newRuntime(t *testing.T) (*engine.Context, *Service, *engine.Clock) {
	t.Helper()
	cfg := config.Default()
	cfg.World = config.WorldConfig{MaxX: 100, MaxY: 100, CellSize: 10, Iterations: 1}
	rt, err := engine.NewContext(cfg, zerolog.Nop())
	require.NoError(t, err)

	svc := NewService(rt, zerolog.Nop())
	require.NoError(t, rt.Register(svc))

	clock := engine.NewClock(rt.Dispatcher, nil, 60, 0, zerolog.Nop())
	clock.SetObserver(svc.ObserveTick)
	return rt, svc, clock
}

func addBall(t *testing.T, rt *engine.Context, at vmath.Vec2) *entity.Entity {
	t.Helper()
	e := entity.New("ball", entity.Hooks{})
	p := physics.DefaultParams()
	p.Radius = 2
	p.Position = at
	_, err := physics.NewBody(e, p)
	require.NoError(t, err)
	_, err = rt.Objects.Add(e)
	require.NoError(t, err)
	return e
}

// TestServiceSamples verifies gauges and counters follow the core services after a tick
func TestServiceSamples(t *testing.T) {
	rt, svc, clock := newRuntime(t)

	addBall(t, rt, vmath.V(10, 10))
	addBall(t, rt, vmath.V(11, 10))
	_, err := rt.Objects.Add(entity.New("marker", entity.Hooks{}))
	require.NoError(t, err)
	_, err = rt.Scheduler.Send(rt.Physics, physics.MethodToggleDebugDraw, 0)
	require.NoError(t, err)
	_, err = rt.Scheduler.Send(rt.Physics, physics.MethodToggleDebugDraw, 10)
	require.NoError(t, err)

	require.NoError(t, clock.Tick(1.0/60))

	assert.Equal(t, 3.0, testutil.ToFloat64(svc.live))
	assert.Equal(t, 2.0, testutil.ToFloat64(svc.physical))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.pending))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.delivered))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.contacts))
	assert.Equal(t, 1, testutil.CollectAndCount(svc.tickDuration))

	st := svc.Status()
	assert.EqualValues(t, 1, st.Frame)
	assert.Equal(t, 3, st.Live)
	assert.EqualValues(t, 3, st.Added)
	assert.True(t, rt.Physics.DebugDraw(), "due message was delivered")
}

// TestCountersUseDeltas verifies cumulative counters are not double counted across ticks
func TestCountersUseDeltas(t *testing.T) {
	rt, svc, clock := newRuntime(t)

	_, err := rt.Scheduler.Send(rt.Physics, physics.MethodToggleDebugDraw, 0)
	require.NoError(t, err)
	for range 3 {
		require.NoError(t, clock.Tick(1.0/60))
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.delivered))
	assert.EqualValues(t, 3, svc.Status().Frame)
}

type fakeSnapshots struct{ png []byte }

func (f fakeSnapshots) Latest() []byte { return f.png }

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// TestRouterEndpoints verifies every debug route against live services
func TestRouterEndpoints(t *testing.T) {
	rt, svc, clock := newRuntime(t)
	addBall(t, rt, vmath.V(50, 50))
	require.NoError(t, clock.Tick(1.0/60))

	store := score.NewFileStore(filepath.Join(t.TempDir(), "high.json"), 5)
	require.NoError(t, store.Add(context.Background(), 120, "ann"))
	require.NoError(t, store.Add(context.Background(), 300, "bo"))

	srv := httptest.NewServer(NewRouter(RouterConfig{
		Metrics:   svc,
		Scores:    store,
		Snapshots: fakeSnapshots{png: []byte("\x89PNG")},
		Log:       zerolog.Nop(),
	}))
	defer srv.Close()

	resp, body := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)

	resp, body = get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(body, "yaa_live_entities 1"), body)

	resp, body = get(t, srv, "/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var st Status
	require.NoError(t, json.Unmarshal([]byte(body), &st))
	assert.Equal(t, 1, st.Physical)

	resp, body = get(t, srv, "/scores?n=1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []score.Entry
	require.NoError(t, json.Unmarshal([]byte(body), &entries))
	assert.Equal(t, []score.Entry{{Score: 300, Name: "bo"}}, entries)

	resp, _ = get(t, srv, "/scores?n=x")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = get(t, srv, "/snapshot.png")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "\x89PNG", body)
}

// TestRouterOptionalRoutes verifies missing collaborators answer 404
func TestRouterOptionalRoutes(t *testing.T) {
	srv := httptest.NewServer(NewRouter(RouterConfig{Snapshots: fakeSnapshots{}, Log: zerolog.Nop()}))
	defer srv.Close()

	for _, path := range []string{"/scores", "/snapshot.png", "/metrics", "/status"} {
		resp, _ := get(t, srv, path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

// TestRateLimit verifies requests beyond the burst are rejected per client
func TestRateLimit(t *testing.T) {
	rl := NewIPRateLimiter(0.001, 2)
	srv := httptest.NewServer(NewRouter(RouterConfig{RateLimiter: rl, Log: zerolog.Nop()}))
	defer srv.Close()

	for range 2 {
		resp, _ := get(t, srv, "/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := get(t, srv, "/health")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))

	assert.True(t, rl.Allow("10.0.0.9"), "other clients keep their own bucket")
	allowed, rejected := rl.Stats()
	assert.EqualValues(t, 3, allowed)
	assert.EqualValues(t, 1, rejected)
}
