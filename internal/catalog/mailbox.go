package catalog

import "sync"

// mailbox hands live callbacks over to the feed goroutine without ever blocking
// the caller. Snapshots are full catalogs, so an unread one is replaced by the
// next. The first error is kept and anything delivered after it is dropped.
type mailbox struct {
	mu      sync.Mutex
	records []Record
	pending bool
	err     error
	closed  bool
	signal  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) put(records []Record) {
	m.mu.Lock()
	if m.closed || m.err != nil {
		m.mu.Unlock()
		return
	}
	m.records = records
	m.pending = true
	m.mu.Unlock()
	m.notify()
}

func (m *mailbox) fail(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	if m.closed || m.err != nil {
		m.mu.Unlock()
		return
	}
	m.err = err
	m.mu.Unlock()
	m.notify()
}

// take returns the pending snapshot, if any, and the terminal error, if any.
func (m *mailbox) take() ([]Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records, ok := m.records, m.pending
	m.records, m.pending = nil, false
	return records, ok, m.err
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *mailbox) notify() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}
