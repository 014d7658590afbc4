package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aretw0/statebridge/internal/presentation/tui"
	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/aretw0/statebridge/pkg/reducers"
	"gopkg.in/yaml.v3"
)

// ErrExpectation is returned when a replayed step leaves an unexpected state.
var ErrExpectation = errors.New("unexpected state")

// Step is one scripted dispatch.
type Step struct {
	Action  string         `yaml:"action"`
	Payload any            `yaml:"payload,omitempty"`
	Wait    time.Duration  `yaml:"wait,omitempty"`
	Expect  map[string]any `yaml:"expect,omitempty"`
}

// Script is a sequence of steps replayed against a runtime.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// LoadScript reads a replay script from path ("-" reads stdin).
func LoadScript(path string) (Script, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return Script{}, fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		r = f
	}
	return DecodeScript(r)
}

// DecodeScript decodes a YAML replay script.
func DecodeScript(r io.Reader) (Script, error) {
	var script Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil && !errors.Is(err, io.EOF) {
		return script, fmt.Errorf("decode script: %w", err)
	}
	for i, step := range script.Steps {
		if step.Action == "" {
			return script, fmt.Errorf("step %d: %w", i+1, domain.ErrInvalidAction)
		}
	}
	return script, nil
}

// ReplayOptions tunes Replay.
type ReplayOptions struct {
	// Printer, when set, prints every state update.
	Printer *tui.EventPrinter
	// KeepGoing continues after a failed step instead of stopping.
	KeepGoing bool
}

// ReplayReport summarizes a replay.
type ReplayReport struct {
	Dispatched []string
	Failed     int
	Final      reducers.State
}

// Replay dispatches every step of script in order. The runtime must be started.
func Replay(ctx context.Context, rt *Runtime, script Script, opts ReplayOptions) (ReplayReport, error) {
	var report ReplayReport

	if opts.Printer != nil {
		remove := rt.Element().AddEventListener(domain.EventStateUpdate,
			opts.Printer.Listener(func() any { return rt.System().Current() }))
		defer remove()
	}

	var errs []error
	for i, step := range script.Steps {
		if step.Wait > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(step.Wait):
			}
		}

		state, err := rt.Dispatch(ctx, step.Action, step.Payload)
		if err == nil {
			report.Dispatched = append(report.Dispatched, step.Action)
			err = checkExpect(state, step.Expect)
		}
		if err != nil {
			report.Failed++
			err = fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
			if opts.Printer != nil {
				opts.Printer.Error(step.Action, err)
			}
			rt.Logger.Warn("replay step failed", "step", i+1, "action", step.Action, "err", err)
			errs = append(errs, err)
			if !opts.KeepGoing {
				break
			}
		}
	}

	final, err := rt.State(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	report.Final = final
	return report, errors.Join(errs...)
}

// checkExpect compares dotted paths of state with the expected values by their
// printed form, so 1 and 1.0 written in YAML both match an integer score.
func checkExpect(state reducers.State, expect map[string]any) error {
	var errs []error
	for path, want := range expect {
		got, ok := lookup(state, path)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s is missing", ErrExpectation, path))
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			errs = append(errs, fmt.Errorf("%w: %s is %v, want %v", ErrExpectation, path, got, want))
		}
	}
	return errors.Join(errs...)
}

func lookup(state map[string]any, path string) (any, bool) {
	var node any = state
	for _, key := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		if node, ok = m[key]; !ok {
			return nil, false
		}
	}
	return node, true
}
