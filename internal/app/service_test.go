package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/events"
	"github.com/1broseidon/presenter/internal/fetch"
	"github.com/1broseidon/presenter/internal/platform"
	"github.com/1broseidon/presenter/internal/platform/platformtest"
	"github.com/1broseidon/presenter/internal/projector"
)

type fakeBroadcaster struct {
	states  []json.RawMessage
	clients int
}

func (f *fakeBroadcaster) BroadcastState(state json.RawMessage) int {
	f.states = append(f.states, state)
	return f.clients
}

func (f *fakeBroadcaster) ClientCount() int { return f.clients }

type fixture struct {
	svc     *Service
	backend *platformtest.FakeBackend
	bus     *events.Bus
}

func newFixture(t *testing.T, bounds ...platform.Rect) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()

	backend := platformtest.NewFakeBackend(bounds...)
	bus := events.NewBus(logger)
	t.Cleanup(bus.Close)

	ctrl := projector.NewController(backend, bus, projector.OptionsFromConfig(cfg.Projector), logger)
	profile, err := fetch.ProfileFromConfig(cfg.Fetch, "")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	svc := NewService(backend, ctrl, fetch.New(profile), logger)
	return &fixture{svc: svc, backend: backend, bus: bus}
}

func TestAvailableMonitors(t *testing.T) {
	f := newFixture(t,
		platform.Rect{Width: 1920, Height: 1080},
		platform.Rect{X: 1920, Width: 1280, Height: 720},
		platform.Rect{X: 3200, Width: 3840, Height: 2160},
	)
	got, err := f.svc.AvailableMonitors()
	if err != nil {
		t.Fatalf("monitors: %v", err)
	}
	want := []string{"Monitor 1 - 1920x1080", "Monitor 2 - 1280x720", "Monitor 3 - 3840x2160"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAvailableMonitors_Error(t *testing.T) {
	f := newFixture(t)
	f.backend.MonitorsErr = errors.New("display unavailable")
	if _, err := f.svc.AvailableMonitors(); err == nil || !strings.Contains(err.Error(), "display unavailable") {
		t.Fatalf("expected backend error text, got %v", err)
	}
}

func TestTwoMonitorScenario(t *testing.T) {
	f := newFixture(t,
		platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
		platform.Rect{X: 1920, Y: 0, Width: 1920, Height: 1080},
	)
	ctx := context.Background()

	sub, err := f.bus.Subscribe(config.ProjectorLabel, 4)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	res, err := f.svc.Invoke(ctx, CmdGetAvailableMonitors, nil)
	if err != nil {
		t.Fatalf("monitors: %v", err)
	}
	if labels := res.([]string); len(labels) != 2 || labels[1] != "Monitor 2 - 1920x1080" {
		t.Fatalf("labels = %v", labels)
	}

	if _, err := f.svc.Invoke(ctx, CmdOpenProjector, json.RawMessage(`{"monitorIndex":1}`)); err != nil {
		t.Fatalf("open: %v", err)
	}
	calls := f.backend.Last().GeometryCalls()
	if len(calls) != 2 ||
		calls[0] != (platformtest.Call{Op: "position", X: 1920, Y: 0}) ||
		calls[1] != (platformtest.Call{Op: "size", Width: 1920, Height: 1080}) {
		t.Fatalf("geometry calls = %+v", calls)
	}

	if _, err := f.svc.Invoke(ctx, CmdUpdateProjector, json.RawMessage(`{"slideData":"{\"i\":3}"}`)); err != nil {
		t.Fatalf("update: %v", err)
	}
	select {
	case ev := <-sub.Events():
		var payload string
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if ev.Name != projector.UpdateSlideEvent || payload != `{"i":3}` {
			t.Fatalf("event = %s %q", ev.Name, payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("projector view did not receive update")
	}

	if _, err := f.svc.Invoke(ctx, CmdCloseProjector, nil); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := f.svc.Invoke(ctx, CmdCloseProjector, nil); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := f.svc.Invoke(ctx, CmdUpdateProjector, json.RawMessage(`{"slideData":"x"}`)); err != nil {
		t.Fatalf("update after close: %v", err)
	}
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event after close: %+v", ev)
	default:
	}
}

func TestInvoke_ArgumentErrors(t *testing.T) {
	f := newFixture(t, platform.Rect{Width: 800, Height: 600})
	ctx := context.Background()

	tests := []struct {
		name    string
		command string
		args    string
		want    error
	}{
		{"unknown", "launch_rockets", "", ErrUnknownCommand},
		{"update missing slideData", CmdUpdateProjector, `{}`, ErrInvalidArgs},
		{"update wrong type", CmdUpdateProjector, `{"slideData":5}`, ErrInvalidArgs},
		{"fetch missing url", CmdFetchCanvaContent, `{}`, ErrInvalidArgs},
		{"open bad json", CmdOpenProjector, `{"monitorIndex":`, ErrInvalidArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Invoke(ctx, tt.command, json.RawMessage(tt.args))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInvoke_OpenNullIndex(t *testing.T) {
	f := newFixture(t, platform.Rect{Width: 800, Height: 600})
	if _, err := f.svc.Invoke(context.Background(), CmdOpenProjector, json.RawMessage(`{"monitorIndex":null}`)); err != nil {
		t.Fatalf("open: %v", err)
	}
	if calls := f.backend.Last().GeometryCalls(); len(calls) != 0 {
		t.Fatalf("expected default placement, got %+v", calls)
	}
}

func TestInvoke_Fetch(t *testing.T) {
	var referer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	}))
	defer srv.Close()

	f := newFixture(t)
	args, _ := json.Marshal(map[string]string{"url": srv.URL})
	res, err := f.svc.Invoke(context.Background(), CmdFetchCanvaContent, args)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.(string) != "missing" {
		t.Fatalf("body = %v", res)
	}
	if referer != "https://www.canva.com/" {
		t.Fatalf("Referer = %q", referer)
	}
}

func TestBroadcastStateAndStatus(t *testing.T) {
	f := newFixture(t, platform.Rect{Width: 800, Height: 600})
	ctx := context.Background()

	// No remote server attached: broadcast is a no-op.
	if _, err := f.svc.Invoke(ctx, CmdBroadcastState, json.RawMessage(`{"state":{"live":1}}`)); err != nil {
		t.Fatalf("broadcast without remote: %v", err)
	}

	b := &fakeBroadcaster{clients: 2}
	f.svc.SetStateBroadcaster(b)
	if _, err := f.svc.Invoke(ctx, CmdBroadcastState, json.RawMessage(`{"state":{"live":2}}`)); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(b.states) != 1 || string(b.states[0]) != `{"live":2}` {
		t.Fatalf("states = %q", b.states)
	}

	res, err := f.svc.Invoke(ctx, CmdGetStatus, nil)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	st := res.(Status)
	if !st.DaemonRunning || st.ProjectorOpen || st.Monitors != 1 || st.RemoteClients != 2 || !st.RemoteEnabled {
		t.Fatalf("status = %+v", st)
	}
	if st.FetchProfile != config.DefaultFetchProfileName {
		t.Fatalf("fetch profile = %q", st.FetchProfile)
	}
}

func TestApplyConfig(t *testing.T) {
	f := newFixture(t)
	cfg := config.DefaultConfig()
	cfg.Fetch.Profiles["plain"] = config.ProfileConfig{UserAgent: "curl/8"}
	cfg.Fetch.DefaultProfile = "plain"

	if err := f.svc.ApplyConfig(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := f.svc.Status().FetchProfile; got != "plain" {
		t.Fatalf("fetch profile = %q, want plain", got)
	}

	cfg.Fetch.DefaultProfile = "missing"
	if err := f.svc.ApplyConfig(cfg); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
}
