package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

const topicActivity = "grove.activity"

// Change is a status-change notification for one worktree.
type Change struct {
	WorktreeID string          `json:"worktreeId"`
	Name       string          `json:"name"`
	Old        worktree.Status `json:"old"`
	New        worktree.Status `json:"new"`
}

// Activity is one human-readable activity record.
type Activity struct {
	WorktreeID string    `json:"worktreeId"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Message    string    `json:"message,omitempty"`
	Time       time.Time `json:"time"`
}

// Extraction asks handlers to durably capture a worktree's task history
// before its branch is merged.
type Extraction struct {
	WorktreeID string
	Name       string
	ProjectID  string
	DataPath   string
}

// ChangeHandler observes status changes.
type ChangeHandler func(ctx context.Context, ch Change) error

// ExtractionHandler captures task history; returning nil acknowledges.
type ExtractionHandler func(ctx context.Context, ex Extraction) error

// Bus is the process-local event bus.
type Bus struct {
	mu                 sync.RWMutex
	changeHandlers     []ChangeHandler
	extractionHandlers []ExtractionHandler

	pubsub *gochannel.GoChannel
	relay  message.Publisher
	stream string

	closed bool
}

// NewBus creates a Bus with a buffered in-process activity topic.
// Publishes block until subscribed sinks ack, so a one-shot command's
// activity is recorded before the process exits.
func NewBus() *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            64,
		BlockPublishUntilSubscriberAck: true,
	}, watermill.NewSlogLogger(logging.Logger))

	return &Bus{pubsub: pubsub}
}

// OnChange registers a change-notification handler.
func (b *Bus) OnChange(h ChangeHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changeHandlers = append(b.changeHandlers, h)
}

// NotifyChange delivers ch to all change handlers inline. Handler errors
// are logged and swallowed.
func (b *Bus) NotifyChange(ctx context.Context, ch Change) {
	b.mu.RLock()
	handlers := append([]ChangeHandler(nil), b.changeHandlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, ch); err != nil {
			logging.Warn("change handler failed", "worktree", ch.Name, "error", err)
		}
	}
}

// OnExtraction registers a task-history extraction handler.
func (b *Bus) OnExtraction(h ExtractionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.extractionHandlers = append(b.extractionHandlers, h)
}

// PublishExtraction runs all extraction handlers and fails unless at least
// one acknowledges. Zero registered handlers is a failure: nothing would
// have captured the history.
func (b *Bus) PublishExtraction(ctx context.Context, ex Extraction) error {
	b.mu.RLock()
	handlers := append([]ExtractionHandler(nil), b.extractionHandlers...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no task extraction handlers registered")
	}

	acked := 0
	var lastErr error
	for _, h := range handlers {
		if err := h(ctx, ex); err != nil {
			logging.Warn("extraction handler failed", "worktree", ex.Name, "error", err)
			lastErr = err
			continue
		}
		acked++
	}

	if acked == 0 {
		return fmt.Errorf("task extraction unacknowledged: %w", lastErr)
	}
	return nil
}

// OnActivity subscribes h to the activity topic. h runs on the
// subscription's goroutine; publishers block until it acks.
func (b *Bus) OnActivity(h func(Activity)) error {
	msgs, err := b.pubsub.Subscribe(context.Background(), topicActivity)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			var act Activity
			if err := json.Unmarshal(msg.Payload, &act); err != nil {
				logging.Warn("malformed activity payload", "error", err)
				msg.Ack()
				continue
			}
			h(act)
			msg.Ack()
		}
	}()

	return nil
}

// Activity publishes an activity record and waits for subscribed sinks
// to ack it. Best-effort: failures are logged, never returned.
func (b *Bus) Activity(act Activity) {
	if act.Time.IsZero() {
		act.Time = time.Now().UTC()
	}

	payload, err := json.Marshal(act)
	if err != nil {
		logging.Warn("marshal activity", "error", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(topicActivity, msg); err != nil {
		logging.Warn("publish activity", "worktree", act.Name, "error", err)
	}

	b.mu.RLock()
	relay, stream := b.relay, b.stream
	b.mu.RUnlock()

	if relay != nil {
		relayMsg := message.NewMessage(watermill.NewUUID(), payload)
		if err := relay.Publish(stream, relayMsg); err != nil {
			logging.Warn("relay activity", "worktree", act.Name, "error", err)
		}
	}
}

// SetRelay attaches an external publisher (e.g. Redis Streams) that
// receives a copy of every activity record.
func (b *Bus) SetRelay(pub message.Publisher, stream string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.relay = pub
	b.stream = stream
}

// Close shuts down the activity topic and the relay.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	if b.relay != nil {
		if err := b.relay.Close(); err != nil {
			logging.Warn("close activity relay", "error", err)
		}
	}
	return b.pubsub.Close()
}
