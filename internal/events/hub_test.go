package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mattjoyce/lvsctl/internal/client"
	"github.com/mattjoyce/lvsctl/internal/protocol"
)

func TestPublishSubscribe(t *testing.T) {
	h := NewHub(10)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish("CURRENT_STATE", map[string]int{"n": 1})

	select {
	case ev := <-ch:
		if ev.ID != 1 || ev.Type != "CURRENT_STATE" {
			t.Fatalf("event = %+v", ev)
		}
		if string(ev.Data) != `{"n":1}` {
			t.Fatalf("data = %s", ev.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestPublishNilData(t *testing.T) {
	h := NewHub(10)
	ev := h.Publish(TypeShutdown, nil)
	if string(ev.Data) != "{}" {
		t.Fatalf("data = %s, want {}", ev.Data)
	}
}

func TestSnapshotSinceRingOverwrite(t *testing.T) {
	h := NewHub(3)
	for range 5 {
		h.Publish("ERROR", nil)
	}

	all := h.SnapshotSince(0)
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].ID != 3 || all[2].ID != 5 {
		t.Fatalf("ids = %d..%d, want 3..5", all[0].ID, all[2].ID)
	}

	since := h.SnapshotSince(4)
	if len(since) != 1 || since[0].ID != 5 {
		t.Fatalf("SnapshotSince(4) = %+v", since)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(10)
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range subscriberBacklog + 50 {
			h.Publish("PREVIEW_STATUS", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	if h.Dropped() != 50 {
		t.Fatalf("Dropped() = %d, want 50", h.Dropped())
	}
}

func TestCancelAndClose(t *testing.T) {
	h := NewHub(10)
	ch1, cancel1 := h.Subscribe()
	ch2, _ := h.Subscribe()

	cancel1()
	cancel1()
	if _, ok := <-ch1; ok {
		t.Fatal("ch1 should be closed after cancel")
	}

	h.Close()
	h.Close()
	if _, ok := <-ch2; ok {
		t.Fatal("ch2 should be closed after Close")
	}

	ch3, cancel3 := h.Subscribe()
	defer cancel3()
	if _, ok := <-ch3; ok {
		t.Fatal("subscribe after Close should return a closed channel")
	}

	h.Publish("ERROR", nil)
	if n := len(h.SnapshotSince(0)); n != 0 {
		t.Fatalf("publish after Close buffered %d events", n)
	}
}

func TestNotify(t *testing.T) {
	h := NewHub(10)

	h.Notify(client.Notification{
		Kind:    protocol.KindCurrentState,
		Message: protocol.CurrentState{LastReceivedTimestampMs: 7, Presets: []protocol.PresetQueueEntry{{PresetName: "a", TimestampMs: 1}}},
	})

	evs := h.SnapshotSince(0)
	if len(evs) != 1 {
		t.Fatalf("len = %d", len(evs))
	}
	if evs[0].Type != "CURRENT_STATE" {
		t.Fatalf("type = %s", evs[0].Type)
	}

	var got protocol.CurrentState
	if err := json.Unmarshal(evs[0].Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.LastReceivedTimestampMs != 7 || len(got.Presets) != 1 || got.Presets[0].PresetName != "a" {
		t.Fatalf("payload = %+v", got)
	}
}
