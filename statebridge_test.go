package statebridge_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/statebridge"
	"github.com/aretw0/statebridge/pkg/bridge"
	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Counter struct {
	N int
}

func newCounter(t *testing.T, opts ...statebridge.Option) *statebridge.Engine[Counter] {
	t.Helper()
	eng, err := statebridge.New(bridge.Definition[Counter]{
		Name: "counter",
		Handlers: map[string]bridge.Handler[Counter]{
			"inc": bridge.Mutate(func(c *Counter, _ any) { c.N++ }),
		},
	}, opts...)
	require.NoError(t, err)
	return eng
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, strings.TrimSpace(statebridge.Version))
}

func TestEngine_Lifecycle(t *testing.T) {
	var phases []domain.Phase
	eng := newCounter(t, statebridge.WithSceneID("scene-1"), statebridge.WithLifecycleHooks(domain.LifecycleHooks{
		OnPhaseChange: func(_ context.Context, e *domain.PhaseEvent) { phases = append(phases, e.To) },
	}))
	ctx := context.Background()

	assert.Equal(t, "scene-1", eng.Scene().ID())
	require.NoError(t, eng.Start(ctx))
	assert.ErrorIs(t, eng.Start(ctx), statebridge.ErrStarted)

	state, err := eng.Dispatch(ctx, "inc", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, state.N)

	require.NoError(t, eng.Stop(ctx))
	assert.Equal(t, []domain.Phase{domain.PhaseInitialized, domain.PhaseActive, domain.PhaseDestroyed}, phases)

	_, err = eng.Dispatch(ctx, "inc", nil)
	assert.ErrorIs(t, err, domain.ErrElementClosed)
}

func TestEngine_DispatchErrorReturnsState(t *testing.T) {
	eng := newCounter(t)
	ctx := context.Background()
	require.NoError(t, eng.Start(ctx))
	defer eng.Stop(ctx)

	_, err := eng.Dispatch(ctx, "inc", nil)
	require.NoError(t, err)

	state, err := eng.Dispatch(ctx, "dec", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
	assert.Equal(t, 1, state.N)
}

func TestEngine_StopWithoutStart(t *testing.T) {
	eng := newCounter(t)
	require.NoError(t, eng.Stop(context.Background()))
	assert.True(t, eng.Element().Closed())
}

func TestEngine_Subscribe(t *testing.T) {
	eng := newCounter(t)
	ctx := context.Background()
	require.NoError(t, eng.Start(ctx))
	defer eng.Stop(ctx)

	var (
		mu   sync.Mutex
		seen []int
	)
	unsubscribe, err := eng.Subscribe(ctx, func(c Counter) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c.N)
	})
	require.NoError(t, err)

	_, err = eng.Dispatch(ctx, "inc", nil)
	require.NoError(t, err)
	unsubscribe()
	_, err = eng.Dispatch(ctx, "inc", nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1}, seen)
}

func TestEngine_UnsubscribeFromCallback(t *testing.T) {
	eng := newCounter(t)
	ctx := context.Background()
	require.NoError(t, eng.Start(ctx))
	defer eng.Stop(ctx)

	var (
		calls       atomic.Int32
		unsubscribe func()
	)
	unsubscribe, err := eng.Subscribe(ctx, func(Counter) {
		calls.Add(1)
		unsubscribe()
	})
	require.NoError(t, err)

	dispatchCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_, err = eng.Dispatch(dispatchCtx, "inc", nil)
	require.NoError(t, err)
	_, err = eng.Dispatch(dispatchCtx, "inc", nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Eventually(t, func() bool {
		n := -1
		err := eng.Element().Do(ctx, func(context.Context) { n = eng.System().Subscribers() })
		return err == nil && n == 0
	}, time.Second, 5*time.Millisecond)
	unsubscribe()
}

func TestEngine_SubscribeBeforeStart(t *testing.T) {
	eng := newCounter(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The loop is not running yet, so the request cannot be served.
	_, err := eng.Subscribe(ctx, func(Counter) {})
	assert.Error(t, err)
}

func TestEngine_EventsDriveDispatch(t *testing.T) {
	eng := newCounter(t)
	ctx := context.Background()
	require.NoError(t, eng.Start(ctx))
	defer eng.Stop(ctx)

	require.NoError(t, eng.Element().Post(ctx, "inc", nil))
	require.NoError(t, eng.Element().Post(ctx, "inc", nil))

	assert.Eventually(t, func() bool {
		state, err := eng.State(ctx)
		return err == nil && state.N == 2
	}, time.Second, 5*time.Millisecond)
}
