package app

import (
	"context"
	"testing"
	"time"

	"github.com/avoronov/huddle/internal/domain"
)

func TestSink_SubmitReachesStore(t *testing.T) {
	store := newFakeStore()
	sink := NewSink(store, 16, 2, time.Second)
	sink.Start(context.Background())
	defer sink.Stop()

	ok := sink.Submit(domain.ChatMessage{Room: "general", Sender: "u1", Text: "hi", SentAt: fixedNow})
	if !ok {
		t.Fatal("Submit returned false with space in the queue")
	}
	store.waitForSave(t)

	saved := store.messages()
	if len(saved) != 1 || saved[0].Text != "hi" {
		t.Errorf("saved = %+v, want one message with text hi", saved)
	}
}

func TestSink_NilStoreDropsSilently(t *testing.T) {
	sink := NewSink(nil, 16, 2, 0)
	sink.Start(context.Background())
	defer sink.Stop()

	if sink.Submit(domain.ChatMessage{Room: "general"}) {
		t.Error("Submit returned true without a store")
	}
}

func TestSink_OverflowDropsWithoutBlocking(t *testing.T) {
	store := newFakeStore()
	// Not started: nothing drains the queue, so the bound is exact.
	sink := NewSink(store, 1, 1, 0)

	if !sink.Submit(domain.ChatMessage{Text: "first"}) {
		t.Fatal("first Submit should fit the queue")
	}

	done := make(chan bool, 1)
	go func() {
		done <- sink.Submit(domain.ChatMessage{Text: "second"})
	}()
	select {
	case ok := <-done:
		if ok {
			t.Error("second Submit reported success on a full queue")
		}
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
}

func TestSink_StoreErrorIsContained(t *testing.T) {
	store := newFakeStore()
	store.err = context.DeadlineExceeded
	sink := NewSink(store, 16, 1, 0)
	sink.Start(context.Background())
	defer sink.Stop()

	if !sink.Submit(domain.ChatMessage{Room: "general", Text: "hi"}) {
		t.Fatal("Submit returned false")
	}
	store.waitForSave(t)

	// A failing store must not take workers down; the next message is
	// still processed.
	if !sink.Submit(domain.ChatMessage{Room: "general", Text: "again"}) {
		t.Fatal("second Submit returned false")
	}
	store.waitForSave(t)
}
