package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/pithecene-io/agharvest/adapter"
)

func testEvent() *adapter.RunCompletedEvent {
	return &adapter.RunCompletedEvent{
		ContractVersion: "0.4.0",
		EventType:       adapter.EventTypeRunCompleted,
		RunID:           "run-001",
		Command:         "quickstats",
		Source:          "nass",
		Day:             "2026-02-07",
		Outcome:         "success",
		Timestamp:       "2026-02-07T12:00:00Z",
		DurationMs:      900,
	}
}

// asyncReceive must run before Publish: miniredis delivers synchronously.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{}
	}
}

func TestPublish(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		want    string
	}{
		{"default channel", "", DefaultChannel},
		{"custom channel", "harvest:done", "harvest:done"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			a, err := New(Config{URL: "redis://" + mr.Addr(), Channel: tt.channel})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			defer func() { _ = a.Close() }()

			sub := mr.NewSubscriber()
			sub.Subscribe(tt.want)
			ch := asyncReceive(sub)

			if err := a.Publish(t.Context(), testEvent()); err != nil {
				t.Fatalf("publish: %v", err)
			}
			msg := waitMessage(t, ch)
			if msg.Channel != tt.want {
				t.Errorf("channel = %s, want %s", msg.Channel, tt.want)
			}
			var got adapter.RunCompletedEvent
			if err := json.Unmarshal([]byte(msg.Message), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.RunID != "run-001" || got.Source != "nass" {
				t.Errorf("event = %+v", got)
			}
		})
	}
}

func TestPublish_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(Config{URL: "redis://" + mr.Addr(), Retries: 1, Backoff: time.Millisecond, Timeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()
	mr.Close()

	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error with server down")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty url", Config{}},
		{"bad url", Config{URL: "http://nope"}},
		{"negative retries", Config{URL: "redis://localhost:6379", Retries: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
