package engine

// Subscription receives every snapshot committed after Subscribe returned.
//
// C has room for one snapshot. A subscriber that falls behind skips the
// intermediate snapshots and sees the newest one next; it never blocks the
// writer.
type Subscription struct {
	C <-chan *Snapshot

	id uint64
	e  *Engine
}

// Subscribe registers a new observer.
func (e *Engine) Subscribe() *Subscription {
	ch := make(chan *Snapshot, 1)

	e.subMu.Lock()
	e.nextSub++
	id := e.nextSub
	e.subs[id] = ch
	e.subMu.Unlock()

	return &Subscription{C: ch, id: id, e: e}
}

// Close unregisters the subscription and closes C. Safe to call more than
// once.
func (s *Subscription) Close() {
	s.e.subMu.Lock()
	defer s.e.subMu.Unlock()
	if ch, ok := s.e.subs[s.id]; ok {
		delete(s.e.subs, s.id)
		close(ch)
	}
}

// broadcast hands snap to every subscriber. Called with the writer lock
// held, so snapshots reach each channel in commit order.
func (e *Engine) broadcast(snap *Snapshot) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()

	for _, ch := range e.subs {
		// Drop a stale snapshot the subscriber has not picked up yet.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Subscribers returns the number of registered observers.
func (e *Engine) Subscribers() int {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	return len(e.subs)
}
