package eventbus

import (
	"sync"

	"github.com/decred/slog"
)

// subscriberQueueSize bounds each subscriber's outbound buffer; a full
// buffer means a slow transport writer, and the event is dropped rather
// than blocking the room worker that published it.
const subscriberQueueSize = 64

// Subscriber is a single transport's inbound view of the bus: a room topic
// subscription plus, once authenticated, a personal queue.
type Subscriber struct {
	id     string
	events chan Event
}

// ID returns the subscriber's id (a connection or player id).
func (s *Subscriber) ID() string { return s.id }

// Events returns the channel a transport's write pump should drain.
func (s *Subscriber) Events() <-chan Event { return s.events }

// Bus is an event fan-out; pkg/server runs one per room. Topics and
// personal queues are just string keys into the same subscriber table.
type Bus struct {
	log slog.Logger

	queue    chan Event
	workers  int
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu          sync.Mutex
	started     bool
	roomTopics  map[string]map[*Subscriber]struct{}
	playerQueue map[string]map[*Subscriber]struct{}
}

// New creates a Bus with the given queue depth and worker count.
func New(log slog.Logger, queueSize, workers int) *Bus {
	return &Bus{
		log:         log,
		queue:       make(chan Event, queueSize),
		workers:     workers,
		stopChan:    make(chan struct{}),
		roomTopics:  map[string]map[*Subscriber]struct{}{},
		playerQueue: map[string]map[*Subscriber]struct{}{},
	}
}

// Start launches the worker pool.
func (b *Bus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.runWorker(i)
	}
}

// Stop drains the worker pool and blocks until all workers exit.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.mu.Unlock()

	close(b.stopChan)
	b.wg.Wait()
}

// SubscribeRoom attaches a new subscriber to a room's shared topic
// (one topic per room, shared by game and lobby events).
func (b *Bus) SubscribeRoom(roomCode, subscriberID string) *Subscriber {
	sub := &Subscriber{id: subscriberID, events: make(chan Event, subscriberQueueSize)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.roomTopics[roomCode] == nil {
		b.roomTopics[roomCode] = map[*Subscriber]struct{}{}
	}
	b.roomTopics[roomCode][sub] = struct{}{}
	return sub
}

// UnsubscribeRoom detaches sub from a room topic, e.g. on disconnect.
func (b *Bus) UnsubscribeRoom(roomCode string, sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.roomTopics[roomCode], sub)
	if len(b.roomTopics[roomCode]) == 0 {
		delete(b.roomTopics, roomCode)
	}
}

// SubscribePlayer attaches sub to a player's personal queue (used for
// hand updates and personal notifications such as being kicked).
func (b *Bus) SubscribePlayer(playerID string, sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.playerQueue[playerID] == nil {
		b.playerQueue[playerID] = map[*Subscriber]struct{}{}
	}
	b.playerQueue[playerID][sub] = struct{}{}
}

// UnsubscribePlayer detaches sub from a player's personal queue.
func (b *Bus) UnsubscribePlayer(playerID string, sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.playerQueue[playerID], sub)
	if len(b.playerQueue[playerID]) == 0 {
		delete(b.playerQueue, playerID)
	}
}

// Publish enqueues events for fan-out. Non-blocking: if the ingress queue
// is full, the event is dropped and logged, following the same
// PublishEvent behavior.
func (b *Bus) Publish(events ...Event) {
	for _, e := range events {
		select {
		case b.queue <- e:
		default:
			if b.log != nil {
				b.log.Errorf("eventbus: queue full, dropping event %s for room %s", e.Type, e.RoomCode)
			}
		}
	}
}

func (b *Bus) runWorker(id int) {
	defer b.wg.Done()
	for {
		select {
		case <-b.stopChan:
			return
		case e := <-b.queue:
			b.deliver(e)
		}
	}
}

func (b *Bus) deliver(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e.TargetPlayerID != "" {
		for sub := range b.playerQueue[e.TargetPlayerID] {
			b.enqueue(sub, e)
		}
		return
	}

	for sub := range b.roomTopics[e.RoomCode] {
		b.enqueue(sub, e)
	}
}

func (b *Bus) enqueue(sub *Subscriber, e Event) {
	select {
	case sub.events <- e:
	default:
		if b.log != nil {
			b.log.Warnf("eventbus: subscriber %s queue full, dropping event %s", sub.id, e.Type)
		}
	}
}
