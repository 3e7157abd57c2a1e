package collector

import "testing"

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()

	id1, ch1 := b.Subscribe()
	id2, ch2 := b.Subscribe()
	defer b.Unsubscribe(id1)
	defer b.Unsubscribe(id2)

	b.Publish(`{"type":"keystroke"}`)

	for i, ch := range []<-chan string{ch1, ch2} {
		select {
		case got := <-ch:
			if got != `{"type":"keystroke"}` {
				t.Fatalf("subscriber %d got %q", i, got)
			}
		default:
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	id, ch := b.Subscribe()

	b.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after Unsubscribe")
	}
	if b.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d; want 0", b.ClientCount())
	}
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker()
	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	for i := 0; i < subscriberBufSize+10; i++ {
		b.Publish("evt")
	}

	// Publish never blocks; the buffered window is all that is kept.
	if len(ch) != subscriberBufSize {
		t.Fatalf("expected %d buffered events, got %d", subscriberBufSize, len(ch))
	}
}
