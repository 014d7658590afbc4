package ports

import (
	"context"
	"testing"

	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunEventTargetContract runs a suite of tests to verify that an EventTarget implementation
// adheres to the defined interface contract. newTarget must return a fresh target per call.
func RunEventTargetContract(t *testing.T, newTarget func(t *testing.T) EventTarget) {
	ctx := context.Background()

	t.Run("Emit reaches listeners in order", func(t *testing.T) {
		target := newTarget(t)
		var got []string
		target.AddEventListener("ping", func(_ context.Context, evt domain.Event) {
			got = append(got, "first:"+evt.Detail.(string))
		})
		target.AddEventListener("ping", func(_ context.Context, evt domain.Event) {
			got = append(got, "second:"+evt.Detail.(string))
		})
		target.AddEventListener("other", func(_ context.Context, _ domain.Event) {
			got = append(got, "other")
		})

		target.Emit(ctx, "ping", "a")
		assert.Equal(t, []string{"first:a", "second:a"}, got)
	})

	t.Run("Event carries its name", func(t *testing.T) {
		target := newTarget(t)
		var name string
		target.AddEventListener("named", func(_ context.Context, evt domain.Event) {
			name = evt.Name
		})
		target.Emit(ctx, "named", nil)
		assert.Equal(t, "named", name)
	})

	t.Run("Remove stops delivery", func(t *testing.T) {
		target := newTarget(t)
		calls := 0
		remove := target.AddEventListener("ping", func(context.Context, domain.Event) { calls++ })

		target.Emit(ctx, "ping", nil)
		remove()
		remove() // idempotent
		target.Emit(ctx, "ping", nil)

		assert.Equal(t, 1, calls)
	})

	t.Run("Listener added during emit waits for next emit", func(t *testing.T) {
		target := newTarget(t)
		late := 0
		added := false
		target.AddEventListener("ping", func(context.Context, domain.Event) {
			if !added {
				added = true
				target.AddEventListener("ping", func(context.Context, domain.Event) { late++ })
			}
		})

		target.Emit(ctx, "ping", nil)
		require.Equal(t, 0, late, "listener registered mid-emit must not see the current event")

		target.Emit(ctx, "ping", nil)
		assert.Equal(t, 1, late)
	})

	t.Run("Emit without listeners is a no-op", func(t *testing.T) {
		target := newTarget(t)
		assert.NotPanics(t, func() { target.Emit(ctx, "nobody", 42) })
	})
}
