package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

func TestNotifyChangeDeliversToAllHandlers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var got []Change
	bus.OnChange(func(ctx context.Context, ch Change) error {
		got = append(got, ch)
		return nil
	})
	bus.OnChange(func(ctx context.Context, ch Change) error {
		return errors.New("handler failure is swallowed")
	})

	bus.NotifyChange(context.Background(), Change{
		Name: "feature-x",
		Old:  worktree.StatusCreating,
		New:  worktree.StatusRunning,
	})

	if len(got) != 1 {
		t.Fatalf("handler received %d changes, want 1", len(got))
	}
	if got[0].New != worktree.StatusRunning {
		t.Errorf("change = %+v", got[0])
	}
}

func TestPublishExtractionRequiresHandlers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	err := bus.PublishExtraction(context.Background(), Extraction{Name: "feature-x"})
	if err == nil {
		t.Fatal("publish with zero handlers succeeded")
	}
}

func TestPublishExtractionRequiresAck(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	bus.OnExtraction(func(ctx context.Context, ex Extraction) error {
		return errors.New("storage down")
	})
	if err := bus.PublishExtraction(context.Background(), Extraction{Name: "feature-x"}); err == nil {
		t.Fatal("publish with zero acknowledgements succeeded")
	}

	bus.OnExtraction(func(ctx context.Context, ex Extraction) error {
		return nil
	})
	if err := bus.PublishExtraction(context.Background(), Extraction{Name: "feature-x"}); err != nil {
		t.Fatalf("publish with one ack failed: %v", err)
	}
}

func TestActivityDelivery(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	received := make(chan Activity, 1)
	if err := bus.OnActivity(func(act Activity) {
		received <- act
	}); err != nil {
		t.Fatalf("OnActivity: %v", err)
	}

	bus.Activity(Activity{Name: "feature-x", Type: "create", Message: "worktree created"})

	select {
	case act := <-received:
		if act.Name != "feature-x" || act.Type != "create" {
			t.Errorf("activity = %+v", act)
		}
		if act.Time.IsZero() {
			t.Error("zero time not defaulted")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("activity never delivered")
	}
}

func TestRedisRelayReceivesActivity(t *testing.T) {
	mr := miniredis.RunT(t)

	relay, err := NewRedisRelay(fmt.Sprintf("redis://%s", mr.Addr()))
	if err != nil {
		t.Fatalf("NewRedisRelay: %v", err)
	}

	bus := NewBus()
	defer bus.Close()
	bus.SetRelay(relay, "grove:activity")

	bus.Activity(Activity{Name: "feature-x", Type: "merge", Message: "worktree merged"})

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err := client.XLen(context.Background(), "grove:activity").Result()
		if err == nil && n > 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("stream empty after publish (len=%d, err=%v)", n, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestActivityWaitsForSinkAck(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var got []Activity
	if err := bus.OnActivity(func(act Activity) {
		got = append(got, act)
	}); err != nil {
		t.Fatalf("OnActivity: %v", err)
	}

	bus.Activity(Activity{Name: "feature-x", Type: "stop"})

	// Publish blocks until the sink acks, so the record is visible as
	// soon as Activity returns; a one-shot command can exit immediately
	// without losing its own audit entry.
	if len(got) != 1 {
		t.Fatalf("sink saw %d activities after publish returned, want 1", len(got))
	}
}
