package relay_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/statebridge/pkg/bridge"
	"github.com/aretw0/statebridge/pkg/relay"
	"github.com/aretw0/statebridge/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Count int
	Label string
}

func counterReducer(s counter, a relay.Action) counter {
	switch a.Type {
	case "inc":
		s.Count++
	case "label":
		s.Label, _ = a.Payload.(string)
	}
	return s
}

type post struct {
	name   string
	detail any
}

type recordingScheduler struct {
	mu    sync.Mutex
	posts []post
	err   error
}

func (r *recordingScheduler) Post(_ context.Context, name string, detail any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.posts = append(r.posts, post{name, detail})
	return nil
}

func (r *recordingScheduler) Do(ctx context.Context, fn func(ctx context.Context)) error {
	fn(ctx)
	return nil
}

func (r *recordingScheduler) snapshot() []post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]post(nil), r.posts...)
}

func TestWithUpdateHook_SeesPrevAndNext(t *testing.T) {
	var seen []string
	reducer := relay.WithUpdateHook(counterReducer, func(prev, next counter, a relay.Action) {
		seen = append(seen, a.Type)
		assert.Equal(t, prev.Count+1, next.Count)
	})

	store := relay.NewStore(counter{}, reducer)
	store.Dispatch(relay.Action{Type: "inc"})
	got := store.Dispatch(relay.Action{Type: "inc"})

	assert.Equal(t, 2, got.Count)
	assert.Equal(t, 2, store.State().Count)
	assert.Equal(t, []string{"inc", "inc"}, seen)
}

func TestWithUpdateHook_NilHook(t *testing.T) {
	reducer := relay.WithUpdateHook[counter](counterReducer, nil)
	assert.Equal(t, 1, reducer(counter{}, relay.Action{Type: "inc"}).Count)
}

func TestForward_PostsOnlyWhenSelectionChanges(t *testing.T) {
	sched := &recordingScheduler{}
	hook := relay.Forward(context.Background(), sched, "setCount", func(s counter) any { return s.Count }, nil)
	store := relay.NewStore(counter{}, relay.WithUpdateHook(counterReducer, hook))

	store.Dispatch(relay.Action{Type: "inc"})
	store.Dispatch(relay.Action{Type: "label", Payload: "ignored"})
	store.Dispatch(relay.Action{Type: "inc"})

	assert.Equal(t, []post{{"setCount", 1}, {"setCount", 2}}, sched.snapshot())
}

func TestPoller_SyncRelaysChanges(t *testing.T) {
	sched := &recordingScheduler{}
	store := relay.NewStore(counter{}, counterReducer)
	poller := relay.NewPoller[counter](store, sched, "sync", nil)
	ctx := context.Background()

	posted, err := poller.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, posted, "first sync always relays")

	posted, err = poller.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, posted)

	store.Dispatch(relay.Action{Type: "inc"})
	posted, err = poller.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, posted)

	assert.Equal(t, []post{{"sync", counter{}}, {"sync", counter{Count: 1}}}, sched.snapshot())
}

func TestPoller_SyncErrorKeepsLastSelection(t *testing.T) {
	boom := errors.New("queue full")
	sched := &recordingScheduler{err: boom}
	store := relay.NewStore(counter{}, counterReducer)
	poller := relay.NewPoller[counter](store, sched, "sync", nil)

	_, err := poller.Sync(context.Background())
	assert.ErrorIs(t, err, boom)

	sched.mu.Lock()
	sched.err = nil
	sched.mu.Unlock()

	posted, err := poller.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, posted)
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	sched := &recordingScheduler{}
	store := relay.NewStore(counter{}, counterReducer)
	poller := relay.NewPoller(store, sched, "sync",
		func(s counter) any { return s.Count },
		relay.WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	store.Dispatch(relay.Action{Type: "inc"})
	assert.Eventually(t, func() bool {
		posts := sched.snapshot()
		return len(posts) > 0 && posts[len(posts)-1].detail == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

type mirror struct {
	Count int
}

func TestForward_IntoBridgeSystem(t *testing.T) {
	el := scene.NewElement()
	sys, err := bridge.New(bridge.Definition[mirror]{
		Name: "mirror",
		Handlers: map[string]bridge.Handler[mirror]{
			"setCount": bridge.Typed(func(s *mirror, n int) error {
				s.Count = n
				return nil
			}),
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sys.Init(ctx, el))
	go func() { _ = el.Run(ctx) }()

	hook := relay.Forward(ctx, el, "setCount", func(s counter) any { return s.Count }, nil)
	store := relay.NewStore(counter{}, relay.WithUpdateHook(counterReducer, hook))
	store.Dispatch(relay.Action{Type: "inc"})
	store.Dispatch(relay.Action{Type: "inc"})

	assert.Eventually(t, func() bool {
		var count int
		_ = el.Do(ctx, func(context.Context) { count = sys.State().Count })
		return count == 2
	}, time.Second, 5*time.Millisecond)
}
