package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// StatusEvent is one unit status transition, as seen by live observers
// (the watch TUI, tests). The report store keeps the durable copy.
type StatusEvent struct {
	Seq      int64     `json:"seq"`
	At       time.Time `json:"at"`
	BatchID  string    `json:"batch_id"`
	UnitID   string    `json:"unit_id"`
	Kind     string    `json:"kind"`
	Target   string    `json:"target"`
	Status   string    `json:"status"`
	Attempts int       `json:"attempts,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

// Hub is an in-memory pub/sub with a small ring buffer for late clients.
type Hub struct {
	nextSeq atomic.Int64

	mu    sync.Mutex
	ring  []StatusEvent
	start int
	size  int

	subs      map[int]chan StatusEvent
	nextSubID int
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 100
	}
	return &Hub{
		ring: make([]StatusEvent, capacity),
		subs: make(map[int]chan StatusEvent),
	}
}

// Publish stamps ev with a sequence number and timestamp and fans it out.
func (h *Hub) Publish(ev StatusEvent) {
	ev.Seq = h.nextSeq.Add(1)
	ev.At = time.Now().UTC()

	h.mu.Lock()
	h.pushLocked(ev)
	for _, ch := range h.subs {
		// Don't let slow clients block producers.
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *Hub) Subscribe() (<-chan StatusEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSubID
	h.nextSubID++
	ch := make(chan StatusEvent, 128)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// SnapshotSince returns buffered events with Seq > lastSeq, oldest-first.
// If lastSeq is 0, the full ring buffer snapshot is returned.
func (h *Hub) SnapshotSince(lastSeq int64) []StatusEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]StatusEvent, 0, h.size)
	for i := 0; i < h.size; i++ {
		ev := h.ring[(h.start+i)%len(h.ring)]
		if lastSeq == 0 || ev.Seq > lastSeq {
			out = append(out, ev)
		}
	}
	return out
}

func (h *Hub) pushLocked(ev StatusEvent) {
	capacity := len(h.ring)
	if capacity == 0 {
		return
	}

	if h.size < capacity {
		idx := (h.start + h.size) % capacity
		h.ring[idx] = ev
		h.size++
		return
	}

	// Overwrite oldest.
	h.ring[h.start] = ev
	h.start = (h.start + 1) % capacity
}
