// Package notify carries the change feed for the scheduling tables. Events
// name the table that changed and nothing else; consumers re-fetch instead
// of applying deltas.
package notify

import "sync"

type Table string

const (
	TableLessonSlots        Table = "lesson_slots"
	TableAbsenceRequests    Table = "absence_requests"
	TableAdditionalRequests Table = "additional_lesson_requests"
)

// subscriptionBuffer bounds how many undelivered events a slow subscriber
// can hold. A full buffer already signals "something changed", so further
// events may coalesce without breaking at-least-once delivery.
const subscriptionBuffer = 16

type Broker struct {
	mu   sync.Mutex
	subs map[int]chan Table
	next int
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Table)}
}

type Subscription struct {
	C      <-chan Table
	id     int
	broker *Broker
}

func (b *Broker) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Table, subscriptionBuffer)
	id := b.next
	b.next++
	b.subs[id] = ch

	return &Subscription{C: ch, id: id, broker: b}
}

// Publish fans the event out to every subscriber without blocking. When a
// subscriber's buffer is full the event coalesces with the ones already
// pending.
func (b *Broker) Publish(table Table) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- table:
		default:
		}
	}
}

// Unsubscribe is idempotent; calling it more than once is safe.
func (s *Subscription) Unsubscribe() {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()

	if ch, ok := s.broker.subs[s.id]; ok {
		delete(s.broker.subs, s.id)
		close(ch)
	}
}
