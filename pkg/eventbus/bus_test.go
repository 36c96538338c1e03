package eventbus

import (
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"
)

func newTestBus() *Bus {
	b := New(slog.Disabled, 16, 2)
	b.Start()
	return b
}

func TestPublishDeliversToRoomTopic(t *testing.T) {
	b := newTestBus()
	defer b.Stop()

	sub := b.SubscribeRoom("ABC123", "conn-1")
	b.Publish(Event{Type: CardPlayed, RoomCode: "ABC123"})

	select {
	case e := <-sub.Events():
		require.Equal(t, CardPlayed, e.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishDeliversOnlyToMatchingRoom(t *testing.T) {
	b := newTestBus()
	defer b.Stop()

	subA := b.SubscribeRoom("AAA111", "conn-a")
	subB := b.SubscribeRoom("BBB222", "conn-b")
	b.Publish(Event{Type: CardPlayed, RoomCode: "AAA111"})

	select {
	case <-subA.Events():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for room A event")
	}

	select {
	case <-subB.Events():
		t.Fatal("room B should not have received the event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishDeliversToPersonalQueue(t *testing.T) {
	b := newTestBus()
	defer b.Stop()

	sub := &Subscriber{id: "p1", events: make(chan Event, 4)}
	b.SubscribePlayer("p1", sub)
	b.Publish(Event{Type: HandSnapshot, RoomCode: "ABC123", TargetPlayerID: "p1"})

	select {
	case e := <-sub.Events():
		require.Equal(t, HandSnapshot, e.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for personal event")
	}
}

func TestUnsubscribeRoomStopsDelivery(t *testing.T) {
	b := newTestBus()
	defer b.Stop()

	sub := b.SubscribeRoom("ABC123", "conn-1")
	b.UnsubscribeRoom("ABC123", sub)
	b.Publish(Event{Type: CardPlayed, RoomCode: "ABC123"})

	select {
	case <-sub.Events():
		t.Fatal("unsubscribed subscriber should not receive events")
	case <-time.After(100 * time.Millisecond):
	}
}
