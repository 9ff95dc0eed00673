package notify

import (
	"reflect"
	"testing"
)

func TestBus_DeliversInOrderAndSkipsSender(t *testing.T) {
	b := NewBus()
	var got []string
	b.Subscribe("motion", func(n Notification) { got = append(got, "motion:"+string(n.Property)) })
	b.Subscribe("ws", func(n Notification) { got = append(got, "ws:"+string(n.Property)) })
	b.Subscribe("mqtt", func(n Notification) { got = append(got, "mqtt:"+string(n.Property)) })

	b.Publish("motion", Homed, true)

	if want := []string{"ws:homed", "mqtt:homed"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSubscription_Close(t *testing.T) {
	b := NewBus()
	n := 0
	s := b.Subscribe("ws", func(Notification) { n++ })
	b.Publish("motion", Moving, true)
	s.Close()
	s.Close()
	b.Publish("motion", Moving, false)

	if n != 1 {
		t.Fatalf("delivered %d times, want 1", n)
	}
	if b.Len() != 0 {
		t.Fatalf("subscription not removed")
	}
}

func TestBus_CloseDuringPublish(t *testing.T) {
	b := NewBus()
	var second *Subscription
	calls := 0
	b.Subscribe("a", func(Notification) { second.Close() })
	second = b.Subscribe("b", func(Notification) { calls++ })

	b.Publish("x", State, "StandBy")
	b.Publish("x", State, "Moving")
	if calls > 1 {
		t.Fatalf("closed subscription kept receiving: %d", calls)
	}
}
