package pipeline

import "sync"

// sequencer releases utterance events in sequence order. Events of the
// lowest unfinished utterance pass straight through; events of later
// utterances are held until every earlier utterance has finished.
//
// Under PolicyStrict only the head utterance ever runs, so nothing is
// buffered. Under PolicyReorder this is the reorder buffer.
type sequencer struct {
	mu      sync.Mutex
	next    uint64
	pending map[uint64]*held
	emit    func(Event)
	closed  bool
}

type held struct {
	events []Event
	done   bool
}

func newSequencer(first uint64, emit func(Event)) *sequencer {
	return &sequencer{
		next:    first,
		pending: make(map[uint64]*held),
		emit:    emit,
	}
}

// push queues or emits ev for utterance seq.
func (q *sequencer) push(seq uint64, ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || seq < q.next {
		return
	}
	if seq == q.next {
		q.emit(ev)
		return
	}
	h := q.hold(seq)
	h.events = append(h.events, ev)
}

// direct emits an event that belongs to no utterance.
func (q *sequencer) direct(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.emit(ev)
	}
}

// finish marks seq terminal and releases whatever it was holding back.
func (q *sequencer) finish(seq uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || seq < q.next {
		return
	}
	if seq > q.next {
		q.hold(seq).done = true
		return
	}

	delete(q.pending, q.next)
	q.next++
	for {
		h, ok := q.pending[q.next]
		if !ok {
			return
		}
		for _, ev := range h.events {
			q.emit(ev)
		}
		h.events = nil
		if !h.done {
			return
		}
		delete(q.pending, q.next)
		q.next++
	}
}

// close drops everything held and suppresses all later emission.
func (q *sequencer) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.pending = nil
}

// buffered reports how many utterances have events or completion held back.
func (q *sequencer) buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *sequencer) hold(seq uint64) *held {
	h, ok := q.pending[seq]
	if !ok {
		h = &held{}
		q.pending[seq] = h
	}
	return h
}
