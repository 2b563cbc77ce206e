// Package eventbus fans emitted escrow events out to subscribers without
// ever letting a slow subscriber stall the settlement call that produced
// the event -- the same non-blocking handoff htlcswitch uses to move
// packets between a link and the switch.
package eventbus

import (
	"sync"

	"github.com/fusionswap/escrowd/escrow"
	"github.com/lightningnetwork/lnd/queue"
)

// Bus implements escrow.Sink over an unbounded concurrent queue: Publish
// never blocks on a subscriber, it only enqueues. A background goroutine
// drains the queue and fans each event out to every current subscriber.
type Bus struct {
	queue *queue.ConcurrentQueue

	mu   sync.RWMutex
	subs map[int]chan escrow.Event
	next int

	quit chan struct{}
	wg   sync.WaitGroup
}

// queueBufferSize is the capacity of the queue's output channel. Events
// beyond it spill into the queue's unbounded overflow list, so it limits
// neither how many undelivered events the bus holds nor when Publish
// returns. 256 gives a burst of settlements room to queue up behind one
// slow Start/Stop cycle without needing a configuration knob nobody has
// ever needed to tune.
const queueBufferSize = 256

// New returns a Bus. Start must be called before any event published to it
// will reach a subscriber.
func New() *Bus {
	return &Bus{
		queue: queue.NewConcurrentQueue(queueBufferSize),
		subs:  make(map[int]chan escrow.Event),
		quit:  make(chan struct{}),
	}
}

// Start begins draining the internal queue and fanning events out.
func (b *Bus) Start() {
	log.Infof("starting event bus")
	b.queue.Start()

	b.wg.Add(1)
	go b.fanOut()
}

// Stop drains no further events and releases every subscriber channel.
func (b *Bus) Stop() {
	log.Infof("stopping event bus")
	close(b.quit)
	b.queue.Stop()
	b.wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

// Publish implements escrow.Sink.
func (b *Bus) Publish(ev escrow.Event) {
	b.queue.ChanIn() <- ev
}

// Subscribe returns a channel that receives every event published after
// this call, and an unsubscribe func to release it. The channel holds 64
// events; while a subscriber's channel is full, events for it are dropped
// rather than waited on, so a subscriber that falls behind misses events
// but never delays another subscriber or the publisher.
func (b *Bus) Subscribe() (<-chan escrow.Event, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan escrow.Event, 64)
	b.subs[id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			close(existing)
			delete(b.subs, id)
		}
	}

	return ch, unsubscribe
}

func (b *Bus) fanOut() {
	defer b.wg.Done()

	for {
		select {
		case item, ok := <-b.queue.ChanOut():
			if !ok {
				return
			}
			ev := item.(escrow.Event)

			b.mu.RLock()
			for _, ch := range b.subs {
				select {
				case ch <- ev:
				default:
					// A subscriber that can't keep up misses the
					// event rather than stalling the bus.
				}
			}
			b.mu.RUnlock()

		case <-b.quit:
			return
		}
	}
}
