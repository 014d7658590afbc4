package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/statebridge/internal/logging"
	"github.com/aretw0/statebridge/pkg/bridge"
	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/aretw0/statebridge/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces channels and keys.
const DefaultPrefix = "statebridge:"

const outboxSize = 64

// ErrNotOpen is returned by Serve when the subscription could not be opened.
var ErrNotOpen = errors.New("redis relay is not open")

// Command is an inbound action request.
type Command struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

// Update is the outbound mirror of a "stateupdate" event.
type Update struct {
	System  string `json:"system"`
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
	State   any    `json:"state"`
}

type outbound struct {
	action string
	data   []byte
}

// Relay bridges a scene host and Redis pub/sub.
//
// Commands published on "<prefix>actions" are posted to the host as action
// events. Updates forwarded with Forward are published on "<prefix>updates" and
// the latest state is kept under the "<prefix>state" key.
type Relay struct {
	client *backend.Client
	host   ports.Host
	prefix string
	logger *slog.Logger

	mu     sync.Mutex
	sub    *backend.PubSub
	outbox chan outbound
}

// Option configures a Relay.
type Option func(*Relay)

// WithPrefix sets the channel and key prefix.
func WithPrefix(prefix string) Option {
	return func(r *Relay) {
		r.prefix = prefix
	}
}

// WithLogger sets the relay logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a relay with its own client.
func New(address, password string, db int, host ports.Host, opts ...Option) *Relay {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, host, opts...)
}

// NewFromClient creates a relay from an existing client.
func NewFromClient(client *backend.Client, host ports.Host, opts ...Option) *Relay {
	r := &Relay{
		client: client,
		host:   host,
		prefix: DefaultPrefix,
		logger: logging.NewNop(),
		outbox: make(chan outbound, outboxSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ActionsChannel is the channel commands are read from.
func (r *Relay) ActionsChannel() string { return r.prefix + "actions" }

// UpdatesChannel is the channel updates are published on.
func (r *Relay) UpdatesChannel() string { return r.prefix + "updates" }

func (r *Relay) stateKey() string { return r.prefix + "state" }

// Open subscribes to the actions channel and waits for the confirmation.
// Serve calls it when needed; calling it first guarantees no command published
// afterwards is missed.
func (r *Relay) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return nil
	}
	sub := r.client.Subscribe(ctx, r.ActionsChannel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", r.ActionsChannel(), err)
	}
	r.sub = sub
	return nil
}

// Forward mirrors every "stateupdate" of the host to Redis.
// It must be called on the host loop or before the loop starts.
// Updates are queued and published by Serve.
func (r *Relay) Forward(ctrl bridge.Controller) (remove func()) {
	return r.host.AddEventListener(domain.EventStateUpdate, func(_ context.Context, evt domain.Event) {
		update, ok := evt.Detail.(domain.StateUpdate)
		if !ok {
			return
		}
		data, err := json.Marshal(Update{
			System:  ctrl.Name(),
			Action:  update.Action,
			Payload: update.Payload,
			State:   ctrl.Current(),
		})
		if err != nil {
			r.logger.Warn("encode update failed", "action", update.Action, "err", err)
			return
		}
		select {
		case r.outbox <- outbound{action: update.Action, data: data}:
		default:
			r.logger.Warn("redis outbox full, dropping update", "action", update.Action)
		}
	})
}

// Serve consumes commands and publishes queued updates until ctx is cancelled.
func (r *Relay) Serve(ctx context.Context) error {
	if err := r.Open(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	sub := r.sub
	r.mu.Unlock()
	if sub == nil {
		return ErrNotOpen
	}

	messages := sub.Channel()
	r.logger.Info("redis relay started", "channel", r.ActionsChannel())
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, msg.Payload)
		case out := <-r.outbox:
			r.publish(ctx, out)
		}
	}
}

func (r *Relay) handle(ctx context.Context, raw string) {
	var cmd Command
	if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
		r.logger.Warn("invalid command", "err", err)
		return
	}
	if cmd.Action == "" {
		r.logger.Warn("invalid command", "err", domain.ErrInvalidAction)
		return
	}
	if err := r.host.Post(ctx, cmd.Action, cmd.Payload); err != nil {
		r.logger.Warn("post command failed", "action", cmd.Action, "err", err)
	}
}

func (r *Relay) publish(ctx context.Context, out outbound) {
	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.stateKey(), out.data, 0)
	pipe.Publish(ctx, r.UpdatesChannel(), out.data)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("publish update failed", "action", out.action, "err", err)
	}
}

// Latest returns the last update stored by the relay.
func (r *Relay) Latest(ctx context.Context) (*Update, error) {
	val, err := r.client.Get(ctx, r.stateKey()).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	var u Update
	if err := json.Unmarshal([]byte(val), &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal update: %w", err)
	}
	return &u, nil
}

// Close closes the subscription and the client.
func (r *Relay) Close() error {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()

	var errs []error
	if sub != nil {
		errs = append(errs, sub.Close())
	}
	errs = append(errs, r.client.Close())
	return errors.Join(errs...)
}
