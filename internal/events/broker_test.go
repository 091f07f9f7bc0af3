package events

import (
	"sync"
	"testing"
	"time"
)

func TestNewBroker(t *testing.T) {
	b := NewBroker[string]()
	if b == nil {
		t.Fatal("NewBroker() = nil")
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestBroker_Subscribe(t *testing.T) {
	b := NewBroker[string]()
	ch := b.Subscribe()

	go b.Publish("updated")

	select {
	case ev := <-ch:
		if ev != "updated" {
			t.Errorf("received %q, want %q", ev, "updated")
		}
	case <-time.After(time.Second):
		t.Error("Subscribe() channel did not receive event")
	}
}

func TestBroker_MultipleSubscribers(t *testing.T) {
	b := NewBroker[int]()
	ch1, ch2, ch3 := b.Subscribe(), b.Subscribe(), b.Subscribe()

	go b.Publish(1)

	received := 0
	timeout := time.After(time.Second)
	for received < 3 {
		select {
		case <-ch1:
			received++
		case <-ch2:
			received++
		case <-ch3:
			received++
		case <-timeout:
			t.Fatalf("only received %d/3 events", received)
		}
	}
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker[int]()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	b.Unsubscribe(ch) // second call is a no-op

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker[int]()
	_ = b.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < SubscriberBuffer*2; i++ {
			b.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Publish() blocked on slow subscriber")
	}
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker[int]()
	ch := b.Subscribe()

	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("subscriber channel open after Close")
	}

	late := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("Subscribe() after Close returned an open channel")
	}

	b.Publish(1) // must not panic
}

func TestBroker_ConcurrentAccess(t *testing.T) {
	b := NewBroker[int]()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Publish(j)
			}
		}()
		go func() {
			defer wg.Done()
			ch := b.Subscribe()
			time.Sleep(5 * time.Millisecond)
			b.Unsubscribe(ch)
		}()
	}
	wg.Wait()
}
