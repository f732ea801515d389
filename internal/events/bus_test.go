package events

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmit_DeliversOnlyToLabel(t *testing.T) {
	bus := NewBus(quietLogger())
	projector, err := bus.Subscribe("projector", 4)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	main, err := bus.Subscribe("main", 4)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	n, err := bus.Emit("projector", "update-slide", `{"i":3}`)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}

	ev := <-projector.Events()
	if ev.Name != "update-slide" {
		t.Fatalf("name = %q", ev.Name)
	}
	var payload string
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload != `{"i":3}` {
		t.Fatalf("payload = %q, want unchanged string", payload)
	}

	select {
	case ev := <-main.Events():
		t.Fatalf("main received %+v", ev)
	default:
	}
}

func TestEmit_NoSubscribers(t *testing.T) {
	bus := NewBus(quietLogger())
	n, err := bus.Emit("projector", "update-slide", "x")
	if err != nil || n != 0 {
		t.Fatalf("Emit = (%d, %v), want (0, nil)", n, err)
	}
}

func TestEmit_DropsWhenBufferFull(t *testing.T) {
	bus := NewBus(quietLogger())
	sub, _ := bus.Subscribe("projector", 1)

	if n, _ := bus.Emit("projector", "a", 1); n != 1 {
		t.Fatalf("first emit delivered %d", n)
	}
	if n, _ := bus.Emit("projector", "b", 2); n != 0 {
		t.Fatalf("second emit delivered %d, want drop", n)
	}
	if ev := <-sub.Events(); ev.Name != "a" {
		t.Fatalf("got %q, want a", ev.Name)
	}
}

func TestEnvelopeJSON(t *testing.T) {
	ev := Event{Name: "update-slide", Payload: json.RawMessage(`"hello"`)}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(data), `{"event":"update-slide","payload":"hello"}`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestSubscriptionClose(t *testing.T) {
	bus := NewBus(quietLogger())
	sub, _ := bus.Subscribe("projector", 1)
	sub.Close()
	sub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Fatalf("expected closed channel")
	}
	if bus.Subscribers("projector") != 0 {
		t.Fatalf("expected no subscribers")
	}
}

func TestBusClose(t *testing.T) {
	bus := NewBus(quietLogger())
	sub, _ := bus.Subscribe("main", 1)
	bus.Close()
	sub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Fatalf("expected closed channel")
	}
	if _, err := bus.Emit("main", "x", nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("Emit after Close = %v, want ErrClosed", err)
	}
	if _, err := bus.Subscribe("main", 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("Subscribe after Close = %v, want ErrClosed", err)
	}
}
