package notify

import (
	"testing"

	"laddersim/internal/domain"
)

func TestHubPublish(t *testing.T) {
	h := NewHub()
	id1, ch1 := h.Subscribe(1)
	_, ch2 := h.Subscribe(1)
	if h.Len() != 2 {
		t.Fatalf("Len = %d, want 2", h.Len())
	}

	h.Publish(Event{Type: TypeAdvance, Date: "2024-01-03", Events: []domain.Event{{Kind: domain.EventFilled}}})
	for i, ch := range []<-chan Event{ch1, ch2} {
		e := <-ch
		if e.Type != TypeAdvance || len(e.Events) != 1 {
			t.Errorf("subscriber %d got %+v", i, e)
		}
	}

	h.Unsubscribe(id1)
	if _, ok := <-ch1; ok {
		t.Error("expected channel closed after Unsubscribe")
	}
	h.Unsubscribe(id1) // no-op
	if h.Len() != 1 {
		t.Errorf("Len = %d, want 1", h.Len())
	}
}

func TestHubDropsForSlowConsumer(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe(1)
	h.Publish(Event{Type: TypeOrder})
	h.Publish(Event{Type: TypeReset}) // buffer full: dropped

	if e := <-ch; e.Type != TypeOrder {
		t.Errorf("got %q, want first event", e.Type)
	}
	select {
	case e := <-ch:
		t.Errorf("unexpected event %+v", e)
	default:
	}
}
