package bridge

import (
	"fmt"
	"reflect"

	"github.com/aretw0/statebridge/pkg/domain"
)

// SubscriberList is an ordered list of subscriber handles compared by identity.
// Duplicates are kept; Distinct collapses them.
type SubscriberList[T any] struct {
	subs []domain.Subscriber[T]
}

// Add appends sub. The handle must be non-nil and comparable.
func (l *SubscriberList[T]) Add(sub domain.Subscriber[T]) error {
	if sub == nil {
		return fmt.Errorf("%w: nil", domain.ErrIncomparableSubscriber)
	}
	if !hashable(sub) {
		return fmt.Errorf("%w: %s", domain.ErrIncomparableSubscriber, reflect.TypeOf(sub))
	}
	l.subs = append(l.subs, sub)
	return nil
}

// Remove drops every occurrence of sub. It reports how many entries were removed.
func (l *SubscriberList[T]) Remove(sub domain.Subscriber[T]) int {
	if sub == nil || !hashable(sub) {
		return 0
	}
	kept := l.subs[:0:0]
	for _, s := range l.subs {
		if s != sub {
			kept = append(kept, s)
		}
	}
	removed := len(l.subs) - len(kept)
	l.subs = kept
	return removed
}

// Distinct returns each handle once, in order of first occurrence.
// The returned slice is a snapshot; later list changes do not affect it.
func (l *SubscriberList[T]) Distinct() []domain.Subscriber[T] {
	seen := make(map[domain.Subscriber[T]]struct{}, len(l.subs))
	out := make([]domain.Subscriber[T], 0, len(l.subs))
	for _, s := range l.subs {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// hashable reports whether sub can be used as a map key. A comparable type is not
// enough: an interface field holding a slice or map still panics on ==.
func hashable[T any](sub domain.Subscriber[T]) (ok bool) {
	if !reflect.TypeOf(sub).Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	keys := map[domain.Subscriber[T]]struct{}{}
	keys[sub] = struct{}{}
	return true
}

// Len returns the number of entries, duplicates included.
func (l *SubscriberList[T]) Len() int { return len(l.subs) }

// Reset empties the list.
func (l *SubscriberList[T]) Reset() { l.subs = nil }

// FuncSubscriber gives a plain function an identity so it can subscribe.
type FuncSubscriber[T any] struct {
	fn func(state *T)
}

// OnUpdate wraps fn into a subscriber handle. Keep the returned pointer to unsubscribe.
func OnUpdate[T any](fn func(state *T)) *FuncSubscriber[T] {
	return &FuncSubscriber[T]{fn: fn}
}

// OnStateUpdate implements domain.Subscriber.
func (f *FuncSubscriber[T]) OnStateUpdate(state *T) {
	if f.fn != nil {
		f.fn(state)
	}
}
