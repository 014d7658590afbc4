package reducers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/statebridge/pkg/bridge"
	"github.com/mitchellh/mapstructure"
	"github.com/mohae/deepcopy"
	"github.com/spf13/cast"
)

// State is the dynamic state shape driven by declarative actions.
type State = map[string]any

// Op names a declarative state operation.
type Op string

const (
	OpSet    Op = "set"    // Replace the value at Path
	OpAdd    Op = "add"    // Add a number to the value at Path
	OpToggle Op = "toggle" // Flip the boolean at Path
	OpMerge  Op = "merge"  // Shallow-merge a map into the map at Path
	OpAppend Op = "append" // Append to the list at Path
	OpDelete Op = "delete" // Remove the key at Path
)

// ErrUnknownOp is returned when an ActionSpec names an unsupported operation.
var ErrUnknownOp = errors.New("unknown operation")

// ActionSpec declares how an action changes the state.
// Value is used when the dispatched payload is nil.
type ActionSpec struct {
	Op    Op     `json:"op" yaml:"op" mapstructure:"op"`
	Path  string `json:"path" yaml:"path" mapstructure:"path"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
}

// DecodeSpec decodes a loosely typed action declaration (from YAML or JSON).
func DecodeSpec(raw any) (ActionSpec, error) {
	var spec ActionSpec
	if err := mapstructure.Decode(raw, &spec); err != nil {
		return spec, fmt.Errorf("invalid action spec: %w", err)
	}
	return spec, spec.Validate()
}

// Validate checks that the operation is known and a path is present where needed.
func (s ActionSpec) Validate() error {
	switch s.Op {
	case OpSet, OpAdd, OpToggle, OpMerge, OpAppend, OpDelete:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, s.Op)
	}
	if s.Path == "" && s.Op != OpMerge {
		return fmt.Errorf("operation %s requires a path", s.Op)
	}
	return nil
}

// Handler builds the state handler for the declared operation.
func (s ActionSpec) Handler() (bridge.Handler[State], error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	keys := splitPath(s.Path)
	return func(state *State, payload any) error {
		if *state == nil {
			*state = State{}
		}
		value := payload
		if value == nil {
			// the live state must not share maps or slices with Value
			value = deepcopy.Copy(s.Value)
		}
		return apply(*state, s.Op, keys, value)
	}, nil
}

// Build turns a set of action declarations into a bridge definition.
func Build(name string, initial State, specs map[string]ActionSpec) (bridge.Definition[State], error) {
	def := bridge.Definition[State]{
		Name:     name,
		Handlers: make(map[string]bridge.Handler[State], len(specs)),
	}
	if initial != nil {
		def.Initial = bridge.Value(initial)
	}
	for action, spec := range specs {
		h, err := spec.Handler()
		if err != nil {
			return def, fmt.Errorf("action %s: %w", action, err)
		}
		def.Handlers[action] = h
	}
	return def, nil
}

func apply(root State, op Op, keys []string, value any) error {
	if op == OpMerge && len(keys) == 0 {
		patch, err := cast.ToStringMapE(value)
		if err != nil {
			return fmt.Errorf("merge: %w", err)
		}
		for k, v := range patch {
			root[k] = v
		}
		return nil
	}

	parent, err := walk(root, keys[:len(keys)-1])
	if err != nil {
		return err
	}
	leaf := keys[len(keys)-1]
	current, exists := parent[leaf]

	switch op {
	case OpSet:
		parent[leaf] = value
	case OpDelete:
		delete(parent, leaf)
	case OpAdd:
		sum, err := add(current, value)
		if err != nil {
			return fmt.Errorf("add %s: %w", strings.Join(keys, "."), err)
		}
		parent[leaf] = sum
	case OpToggle:
		b := false
		if exists {
			if b, err = cast.ToBoolE(current); err != nil {
				return fmt.Errorf("toggle %s: %w", strings.Join(keys, "."), err)
			}
		}
		parent[leaf] = !b
	case OpMerge:
		patch, err := cast.ToStringMapE(value)
		if err != nil {
			return fmt.Errorf("merge %s: %w", strings.Join(keys, "."), err)
		}
		target := map[string]any{}
		if exists {
			if target, err = cast.ToStringMapE(current); err != nil {
				return fmt.Errorf("merge %s: %w", strings.Join(keys, "."), err)
			}
		}
		for k, v := range patch {
			target[k] = v
		}
		parent[leaf] = target
	case OpAppend:
		var list []any
		if exists && current != nil {
			if list, err = cast.ToSliceE(current); err != nil {
				return fmt.Errorf("append %s: %w", strings.Join(keys, "."), err)
			}
		}
		parent[leaf] = append(list, value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, op)
	}
	return nil
}

// walk returns the map at keys, creating intermediate maps as needed.
func walk(root State, keys []string) (map[string]any, error) {
	node := root
	for i, k := range keys {
		next, ok := node[k]
		if !ok || next == nil {
			child := map[string]any{}
			node[k] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %s is a %T, not an object", strings.Join(keys[:i+1], "."), next)
		}
		node = child
	}
	return node, nil
}

// add keeps integers integral and falls back to float64 as soon as one side is fractional.
func add(current, delta any) (any, error) {
	if current == nil {
		current = 0
	}
	if isIntegral(current) && isIntegral(delta) {
		a, err := cast.ToInt64E(current)
		if err != nil {
			return nil, err
		}
		b, err := cast.ToInt64E(delta)
		if err != nil {
			return nil, err
		}
		return int(a + b), nil
	}
	a, err := cast.ToFloat64E(current)
	if err != nil {
		return nil, err
	}
	b, err := cast.ToFloat64E(delta)
	if err != nil {
		return nil, err
	}
	return a + b, nil
}

func isIntegral(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return float32(int64(n)) == n
	case float64:
		return float64(int64(n)) == n
	case string:
		_, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return err == nil
	default:
		return false
	}
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
