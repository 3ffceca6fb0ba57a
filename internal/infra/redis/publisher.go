package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/sessionguard/internal/infra/resilience/session"
)

// SessionPublisher announces session-ended events on a Redis channel so other
// processes sharing the session can drop their state.
type SessionPublisher struct {
	c *Client
}

// Publisher returns the session-ended publisher view of the client.
func (c *Client) Publisher() *SessionPublisher {
	return &SessionPublisher{c: c}
}

// Notify publishes ev as JSON.
func (p *SessionPublisher) Notify(ctx context.Context, ev session.Event) error {
	payload, err := json.Marshal(struct {
		Session string `json:"session"`
		session.Event
	}{Session: p.c.session, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.c.rdb.Publish(ctx, p.c.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Subscribe delivers events published for this client's session until ctx ends.
func (p *SessionPublisher) Subscribe(ctx context.Context) (<-chan session.Event, error) {
	sub := p.c.rdb.Subscribe(ctx, p.c.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe failed: %w", err)
	}

	out := make(chan session.Event, 8)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var payload struct {
					Session string `json:"session"`
					session.Event
				}
				if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil || payload.Session != p.c.session {
					continue
				}
				select {
				case out <- payload.Event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
