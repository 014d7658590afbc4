package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/muesli/termenv"
)

// EventPrinter writes one colored line per "stateupdate" event.
type EventPrinter struct {
	mu        sync.Mutex
	w         io.Writer
	profile   termenv.Profile
	showState bool
	now       func() time.Time
}

// NewEventPrinter creates a printer for w. With showState, the state returned
// by state is appended to every line.
func NewEventPrinter(w io.Writer, showState bool) *EventPrinter {
	return &EventPrinter{
		w:         w,
		profile:   Profile(w),
		showState: showState,
		now:       time.Now,
	}
}

// Listener returns a domain.Listener printing updates. state is called on the
// emitting goroutine and may be nil.
func (p *EventPrinter) Listener(state func() any) domain.Listener {
	return func(_ context.Context, evt domain.Event) {
		update, ok := evt.Detail.(domain.StateUpdate)
		if !ok {
			return
		}
		var current any
		if p.showState && state != nil {
			current = state()
		}
		p.Print(update, current)
	}
}

// Print writes a single update line.
func (p *EventPrinter) Print(update domain.StateUpdate, state any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ts := p.profile.String(p.now().Format("15:04:05.000")).Faint()
	action := p.profile.String(update.Action).Bold().Foreground(p.profile.Color("#a78bfa"))
	line := fmt.Sprintf("%s %s", ts, action)
	if update.Payload != nil {
		line += " " + p.profile.String(compact(update.Payload)).Foreground(p.profile.Color("#38bdf8")).String()
	}
	if state != nil {
		line += " " + p.profile.String("=> "+compact(state)).Foreground(p.profile.Color("#4ade80")).String()
	}
	fmt.Fprintln(p.w, line)
}

// Error writes a failure line.
func (p *EventPrinter) Error(action string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := p.profile.String(fmt.Sprintf("%s failed: %v", action, err)).Foreground(p.profile.Color("#f87171"))
	fmt.Fprintln(p.w, msg)
}

func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
