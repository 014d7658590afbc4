package bridge

import (
	"fmt"

	"github.com/aretw0/statebridge/pkg/domain"
	goclone "github.com/huandu/go-clone"
	"github.com/mitchellh/mapstructure"
)

// Handler applies an action to the live state in place.
// A non-nil error aborts the dispatch before subscribers are notified.
type Handler[T any] func(state *T, payload any) error

// Mutate adapts a handler that cannot fail.
func Mutate[T any](fn func(state *T, payload any)) Handler[T] {
	return func(state *T, payload any) error {
		fn(state, payload)
		return nil
	}
}

// Typed adapts a handler expecting a concrete payload type.
// Payloads that already are a P are passed through; anything else (for example the
// map produced by decoding JSON) is decoded with mapstructure using json tags.
func Typed[T, P any](fn func(state *T, payload P) error) Handler[T] {
	return func(state *T, payload any) error {
		p, err := DecodePayload[P](payload)
		if err != nil {
			return err
		}
		return fn(state, p)
	}
}

// DecodePayload converts an action payload into P.
func DecodePayload[P any](payload any) (P, error) {
	var out P
	if payload == nil {
		return out, nil
	}
	if p, ok := payload.(P); ok {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, fmt.Errorf("payload decoder: %w", err)
	}
	if err := dec.Decode(payload); err != nil {
		return out, fmt.Errorf("invalid payload: %w", err)
	}
	return out, nil
}

// InitialState is either a static value or a factory producing one.
// The zero InitialState is "unset".
type InitialState[T any] struct {
	value   T
	factory func() T
	set     bool
}

// Value uses v as the initial state. It is deep-copied on Init.
func Value[T any](v T) InitialState[T] {
	return InitialState[T]{value: v, set: true}
}

// Factory defers the initial state to fn, invoked once on Init.
func Factory[T any](fn func() T) InitialState[T] {
	return InitialState[T]{factory: fn, set: fn != nil}
}

// IsSet reports whether a value or factory was supplied.
func (i InitialState[T]) IsSet() bool { return i.set }

// IsFactory reports whether the initial state is produced lazily.
func (i InitialState[T]) IsFactory() bool { return i.factory != nil }

// Resolve returns a private deep copy of the initial state.
func (i InitialState[T]) Resolve() T {
	v := i.value
	if i.factory != nil {
		v = i.factory()
	}
	return clone(v)
}

func (i InitialState[T]) merge(next InitialState[T]) InitialState[T] {
	switch {
	case !next.set:
		return i
	case next.factory != nil, !i.set, i.factory != nil:
		return next
	}
	if base, ok := any(i.value).(map[string]any); ok {
		if patch, ok := any(next.value).(map[string]any); ok {
			merged := deepMerge(clone(base), patch)
			if v, ok := any(merged).(T); ok {
				return Value(v)
			}
		}
	}
	return next
}

// Definition is a partial description of the shared state.
// Several definitions merge into one before the owning system initializes.
type Definition[T any] struct {
	Name     string
	Initial  InitialState[T]
	Handlers map[string]Handler[T]
}

// Validate checks every handler entry.
func (d Definition[T]) Validate() error {
	for name, h := range d.Handlers {
		if name == "" {
			return domain.ErrInvalidAction
		}
		if name == domain.EventStateUpdate || name == domain.EventLoaded {
			return fmt.Errorf("%w: %q is reserved", domain.ErrInvalidAction, name)
		}
		if h == nil {
			return fmt.Errorf("%w: %s", domain.ErrNilHandler, name)
		}
	}
	return nil
}

// Merge returns d augmented by other. Handlers merge per name with other winning,
// a non-empty name overrides, and the initial state follows InitialState merge rules:
// two values deep-merge only when T is map[string]any. For any other T, including
// structs, the later value replaces the earlier one as a whole.
func (d Definition[T]) Merge(other Definition[T]) Definition[T] {
	out := Definition[T]{
		Name:     d.Name,
		Initial:  d.Initial.merge(other.Initial),
		Handlers: make(map[string]Handler[T], len(d.Handlers)+len(other.Handlers)),
	}
	if other.Name != "" {
		out.Name = other.Name
	}
	for k, v := range d.Handlers {
		out.Handlers[k] = v
	}
	for k, v := range other.Handlers {
		out.Handlers[k] = v
	}
	return out
}

// clone deep-copies v, unexported fields included.
func clone[T any](v T) T {
	copied, ok := goclone.Clone(v).(T)
	if !ok {
		return v
	}
	return copied
}

// deepMerge merges patch into base. Nested maps merge recursively; every other
// value in patch replaces the one in base.
func deepMerge(base, patch map[string]any) map[string]any {
	if base == nil {
		base = make(map[string]any, len(patch))
	}
	for k, pv := range patch {
		if pm, ok := pv.(map[string]any); ok {
			if bm, ok := base[k].(map[string]any); ok {
				base[k] = deepMerge(bm, pm)
				continue
			}
			base[k] = clone(pm)
			continue
		}
		base[k] = clone(pv)
	}
	return base
}
