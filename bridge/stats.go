package bridge

import "sync"

// LiveStats is an immutable snapshot of editor state supplied by stats
// events. Snapshots are replaced wholesale, never mutated.
type LiveStats struct {
	Line            int `json:"line"`
	Column          int `json:"col"`
	LineCount       int `json:"lineCount"`
	CharCount       int `json:"charCount"`
	SelectionLength int `json:"selectionLength"`
}

// StatsObserver is called with the new snapshot after each replacement.
type StatsObserver func(stats LiveStats)

// StatsSubscription represents an active observer registration.
type StatsSubscription struct {
	id       uint64
	notifier *StatsNotifier
}

// Unsubscribe removes this subscription. Safe to call more than once.
func (s *StatsSubscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// StatsNotifier is an observable slot holding the current LiveStats
// snapshot plus a registration list of change observers.
type StatsNotifier struct {
	mu        sync.RWMutex
	value     LiveStats
	observers map[uint64]StatsObserver
	nextID    uint64
	closed    bool
}

func newStatsNotifier() *StatsNotifier {
	return &StatsNotifier{observers: make(map[uint64]StatsObserver)}
}

// Value returns the current snapshot.
func (n *StatsNotifier) Value() LiveStats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.value
}

// Subscribe registers an observer for snapshot replacements.
func (n *StatsNotifier) Subscribe(observer StatsObserver) *StatsSubscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return &StatsSubscription{}
	}

	id := n.nextID
	n.nextID++
	n.observers[id] = observer

	return &StatsSubscription{id: id, notifier: n}
}

func (n *StatsNotifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.observers, id)
}

// set replaces the snapshot and notifies observers synchronously.
func (n *StatsNotifier) set(stats LiveStats) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.value = stats
	observers := make([]StatsObserver, 0, len(n.observers))
	for _, o := range n.observers {
		observers = append(observers, o)
	}
	n.mu.Unlock()

	for _, o := range observers {
		o(stats)
	}
}

// close releases the notifier. Safe to call more than once; subsequent
// Subscribe and set calls become no-ops.
func (n *StatsNotifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	n.observers = nil
}
