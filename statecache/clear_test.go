package statecache

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/kbukum/statekit/errors"
)

func TestClear_PreservesOnboarding(t *testing.T) {
	store := newScriptedStore()
	c, _ := newTestCache(t, store)

	err := c.SetAndWait(context.Background(), Values{
		FieldHasCompletedOnboarding: true,
		FieldSheetID:                "sheet-1",
		FieldPlaidConnected:         true,
		FieldItemID:                 "item-1",
	}, true)
	if err != nil {
		t.Fatal(err)
	}

	events := map[string]Values{}
	olds := map[string]Values{}
	for _, name := range []string{"sheet", "item"} {
		watch := FieldSheetID
		if name == "item" {
			watch = FieldItemID
		}
		c.Subscribe([]string{watch}, func(changed, old Values) {
			events[name] = changed
			olds[name] = old
		})
	}

	if err := c.Clear(context.Background(), true); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if v, _ := c.Get(FieldHasCompletedOnboarding); v != true {
		t.Errorf("onboarding flag = %v, want true", v)
	}
	if v, _ := c.Get(FieldPlaidConnected); v != false {
		t.Errorf("plaidConnected = %v, want default", v)
	}
	for _, f := range []string{FieldSheetID, FieldItemID} {
		if _, ok := c.Get(f); ok {
			t.Errorf("%s should be reset", f)
		}
	}

	for _, name := range []string{"sheet", "item"} {
		if !reflect.DeepEqual(events[name], Values{ClearedKey: true}) {
			t.Errorf("subscriber %s got %v", name, events[name])
		}
		if olds[name][FieldSheetID] != "sheet-1" {
			t.Errorf("subscriber %s old state = %v", name, olds[name])
		}
	}

	if v, ok := store.stored(FieldHasCompletedOnboarding); !ok || v != "true" {
		t.Errorf("preserved field not rewritten: %q", v)
	}
	if _, ok := store.stored(FieldSheetID); ok {
		t.Error("store should be erased")
	}
}

func TestClear_WithoutPreserve(t *testing.T) {
	store := newScriptedStore()
	c, _ := newTestCache(t, store)
	c.SetAndWait(context.Background(), Values{FieldHasCompletedOnboarding: true}, true)

	if err := c.Clear(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if v, _ := c.Get(FieldHasCompletedOnboarding); v != false {
		t.Errorf("onboarding flag = %v, want default", v)
	}
	if _, ok := store.stored(FieldHasCompletedOnboarding); ok {
		t.Error("nothing should be rewritten without preserve")
	}
}

func TestClear_FlushesPendingFirst(t *testing.T) {
	store := newScriptedStore()
	c, clk := newTestCache(t, store)

	res := c.Set(Values{FieldSheetID: "pending"}, false)
	if err := c.Clear(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	want := []string{"get", "set", "clear", "set"}
	if got := store.opLog(); !reflect.DeepEqual(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
	if got := store.write(0); got[FieldSheetID] != `"pending"` {
		t.Errorf("pending write not flushed before clear: %v", got)
	}
	if clk.Armed() != 0 {
		t.Error("Clear should cancel the debounce timer")
	}
	if len(c.Pending()) != 0 {
		t.Error("Clear should empty the pending buffer")
	}
	if err := waitResult(t, res); err != nil {
		t.Errorf("pending result = %v", err)
	}
}

func TestClear_StoreFailure(t *testing.T) {
	store := newScriptedStore()
	c, _ := newTestCache(t, store)
	c.Set(Values{FieldSheetName: "Budget"}, false)

	notified := false
	c.Subscribe([]string{FieldItemID}, func(changed, _ Values) {
		notified = changed[ClearedKey] == true
	})

	store.clearErr = errStore
	err := c.Clear(context.Background(), true)
	if !errors.HasCode(err, errors.ErrCodePersistenceFailed) {
		t.Fatalf("expected PERSISTENCE_FAILED, got %v", err)
	}
	if _, ok := c.Get(FieldSheetName); ok {
		t.Error("memory must be reset even when the erase fails")
	}
	if !notified {
		t.Error("clear event must be delivered even when the erase fails")
	}
}

func TestClear_WaitsForInFlightWrite(t *testing.T) {
	store := newScriptedStore()
	c, _ := newTestCache(t, store)
	gate := make(chan struct{})
	store.setGate = gate
	store.setStarted = make(chan struct{}, 1)

	res := c.Set(Values{FieldItemID: "abc"}, true)
	<-store.setStarted

	done := make(chan error, 1)
	go func() { done <- c.Clear(context.Background(), false) }()
	select {
	case err := <-done:
		t.Fatalf("Clear returned while a write was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := waitResult(t, res); err != nil {
		t.Errorf("in-flight result = %v", err)
	}
	want := []string{"get", "set", "clear"}
	if got := store.opLog(); !reflect.DeepEqual(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
	if v, ok := store.stored(FieldItemID); ok {
		t.Errorf("cleared field written back to the store: %s", v)
	}
	if _, ok := c.Get(FieldItemID); ok {
		t.Error("itemId should be reset")
	}
}

func TestClear_FailedInFlightWriteNotRequeued(t *testing.T) {
	store := newScriptedStore()
	c, _ := newTestCache(t, store)
	gate := make(chan struct{})
	store.setGate = gate
	store.setStarted = make(chan struct{}, 1)
	store.setFailures = 1

	res := c.Set(Values{FieldItemID: "abc"}, true)
	<-store.setStarted

	done := make(chan error, 1)
	go func() { done <- c.Clear(context.Background(), false) }()
	time.Sleep(20 * time.Millisecond)
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := waitResult(t, res); !errors.HasCode(err, errors.ErrCodePersistenceFailed) {
		t.Errorf("in-flight result = %v, want PERSISTENCE_FAILED", err)
	}
	if p := c.Pending(); len(p) != 0 {
		t.Fatalf("pending after clear = %v", p)
	}

	store.setStarted = nil
	if err := c.SetAndWait(context.Background(), Values{FieldSheetName: "Budget"}, true); err != nil {
		t.Fatal(err)
	}
	last := store.write(store.writeCount() - 1)
	if _, ok := last[FieldItemID]; ok {
		t.Errorf("pre-clear entry written after clear: %v", last)
	}
	if _, ok := store.stored(FieldItemID); ok {
		t.Error("itemId must not reach the store")
	}
}

func TestClear_TimedOutWaitDropsStaleRetry(t *testing.T) {
	store := newScriptedStore()
	c, _ := newTestCache(t, store)
	gate := make(chan struct{})
	store.setGate = gate
	store.setStarted = make(chan struct{}, 1)
	store.setFailures = 1

	res := c.Set(Values{FieldItemID: "abc"}, true)
	<-store.setStarted

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Clear(ctx, false)
	if !errors.HasCode(err, errors.ErrCodePersistenceFailed) {
		t.Fatalf("expected PERSISTENCE_FAILED, got %v", err)
	}
	if _, ok := c.Get(FieldItemID); ok {
		t.Error("memory must be reset when the wait times out")
	}

	close(gate)
	waitResult(t, res)
	if p := c.Pending(); len(p) != 0 {
		t.Errorf("failed pre-clear write re-queued: %v", p)
	}
}
