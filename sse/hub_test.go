package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/statekit/logger"
)

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(Config{ClientBuffer: 4, KeepAlive: time.Hour}, logger.Nop())
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClient_Wants(t *testing.T) {
	watching := NewClient("a", []string{"sheetId"}, 1, logger.Nop())
	all := NewClient("b", nil, 1, logger.Nop())

	tests := []struct {
		name   string
		client *Client
		ev     Event
		want   bool
	}{
		{"watched field", watching, Event{Type: EventTypeChange, Fields: []string{"itemId", "sheetId"}}, true},
		{"other field", watching, Event{Type: EventTypeChange, Fields: []string{"itemId"}}, false},
		{"cleared", watching, Event{Type: EventTypeCleared}, true},
		{"watch all", all, Event{Type: EventTypeChange, Fields: []string{"itemId"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.Wants(tt.ev); got != tt.want {
				t.Errorf("Wants = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_SendBufferFull(t *testing.T) {
	client := NewClient("c", nil, 2, logger.Nop())
	if !client.Send(Event{}) || !client.Send(Event{}) {
		t.Fatal("expected sends within buffer to succeed")
	}
	if client.Send(Event{}) {
		t.Error("expected send to fail when buffer is full")
	}
}

func TestHub_RegisterBroadcastUnregister(t *testing.T) {
	hub := newRunningHub(t)

	sheet := NewClient("sheet", []string{"sheetId"}, 4, logger.Nop())
	item := NewClient("item", []string{"itemId"}, 4, logger.Nop())
	hub.Register(sheet)
	hub.Register(item)
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.Broadcast(Event{Type: EventTypeChange, Fields: []string{"sheetId"}, Data: []byte(`{}`)})
	hub.Broadcast(Event{Type: EventTypeCleared, Data: []byte(`{}`)})

	first := <-sheet.Events()
	if first.Type != EventTypeChange {
		t.Errorf("sheet client got %s first", first.Type)
	}
	if ev := <-sheet.Events(); ev.Type != EventTypeCleared {
		t.Errorf("sheet client got %s second", ev.Type)
	}
	if ev := <-item.Events(); ev.Type != EventTypeCleared {
		t.Errorf("item client should only see the clear event, got %s", ev.Type)
	}

	hub.Unregister(sheet)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	if _, open := <-sheet.Events(); open {
		t.Error("unregistered client channel should be closed")
	}
}

func TestHub_ConcurrentBroadcast(t *testing.T) {
	hub := newRunningHub(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(Event{Type: EventTypeChange})
		}()
	}
	wg.Wait()
}

func TestHub_StopClosesClientsAndRejects(t *testing.T) {
	hub := NewHub(Config{}, logger.Nop())
	go hub.Run()

	client := NewClient("c", nil, 1, logger.Nop())
	hub.Register(client)
	hub.Stop()
	hub.Stop()

	waitFor(t, func() bool { return hub.ClientCount() == 0 })
	if hub.Register(NewClient("late", nil, 1, logger.Nop())) {
		t.Error("Register after Stop should fail")
	}
	if hub.Broadcast(Event{Type: EventTypeChange}) {
		t.Error("Broadcast after Stop should fail")
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.ClientBuffer != 64 || cfg.KeepAlive != 30*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	comp := NewComponent(NewHub(Config{}, logger.Nop()), "/v1/events")
	ctx := context.Background()

	if comp.Name() != "sse" {
		t.Errorf("expected name 'sse', got %q", comp.Name())
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	comp.Hub().Register(NewClient("c", nil, 1, logger.Nop()))
	waitFor(t, func() bool { return strings.Contains(comp.Health(ctx).Message, "1 clients") })

	if d := comp.Describe(); d.Type != "sse" || !strings.Contains(d.Details, "/v1/events") {
		t.Errorf("Describe = %+v", d)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestServe_StreamsEvents(t *testing.T) {
	hub := newRunningHub(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := NewClient("c1", []string{"sheetId"}, 4, logger.Nop())
		Serve(hub, w, r, client, []byte(`{"client_id":"c1"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var typ, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				typ = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && typ != "":
				return typ, data
			}
		}
	}

	if typ, data := readEvent(); typ != EventTypeConnected || data != `{"client_id":"c1"}` {
		t.Fatalf("first event = %s %s", typ, data)
	}

	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	hub.Broadcast(Event{Type: EventTypeChange, Fields: []string{"itemId"}, Data: []byte(`{"skip":true}`)})
	hub.Broadcast(Event{Type: EventTypeChange, Fields: []string{"sheetId"}, Data: []byte(`{"sheetId":"s"}`)})

	if typ, data := readEvent(); typ != EventTypeChange || data != `{"sheetId":"s"}` {
		t.Errorf("second event = %s %s", typ, data)
	}
}
