package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "feed:"

// Envelope is what listeners receive: the channel name and its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func encode(channel string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", channel, err)
	}
	return json.Marshal(Envelope{Event: channel, Data: data})
}

// Broadcaster delivers an encoded envelope to local listeners.
type Broadcaster interface {
	Broadcast(channel string, data []byte)
}

// LocalBus fans events out to listeners connected to this process only.
type LocalBus struct {
	hub Broadcaster
}

func NewLocalBus(hub Broadcaster) *LocalBus {
	return &LocalBus{hub: hub}
}

func (b *LocalBus) Emit(_ context.Context, channel string, payload any) error {
	data, err := encode(channel, payload)
	if err != nil {
		return err
	}
	b.hub.Broadcast(channel, data)
	log.Printf("[Emit] channel=%s bytes=%d", channel, len(data))
	return nil
}

// RedisBus publishes events to Redis so every instance's Relay can hand
// them to its own listeners.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Emit(ctx context.Context, channel string, payload any) error {
	data, err := encode(channel, payload)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, redisPrefix+channel, data).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	log.Printf("[Emit] published to '%s%s'", redisPrefix, channel)
	return nil
}

// Relay forwards envelopes published on Redis to the local hub.
type Relay struct {
	sub *redis.PubSub
}

// Subscribe starts listening on every feed channel. The subscription is
// confirmed before it returns.
func Subscribe(ctx context.Context, client *redis.Client) (*Relay, error) {
	sub := client.PSubscribe(ctx, redisPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to %s*: %w", redisPrefix, err)
	}
	return &Relay{sub: sub}, nil
}

// Run blocks until ctx is done or the subscription is closed.
func (r *Relay) Run(ctx context.Context, hub Broadcaster) {
	defer r.sub.Close()
	ch := r.sub.Channel()

	log.Println("[Relay] Listening for feed events...")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("[Relay] Failed to parse event on %s: %v", msg.Channel, err)
				continue
			}
			channel := strings.TrimPrefix(msg.Channel, redisPrefix)
			if env.Event != channel {
				log.Printf("[Relay] envelope event %q does not match channel %q", env.Event, channel)
				continue
			}
			hub.Broadcast(channel, []byte(msg.Payload))
		}
	}
}

func (r *Relay) Close() error {
	return r.sub.Close()
}
