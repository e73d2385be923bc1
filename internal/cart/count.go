package cart

import "sync"

// countFeed fans item-count changes out to subscribers. A new subscriber first
// receives the latest value, then every later value in publish order. Publishing
// never blocks: each subscriber has its own queue drained by a pump goroutine.
type countFeed struct {
	mu     sync.Mutex
	latest int
	subs   map[*countSub]struct{}
}

type countSub struct {
	mu     sync.Mutex
	queue  []int
	signal chan struct{}
	done   chan struct{}
	out    chan int
	once   sync.Once
}

func newCountFeed(initial int) *countFeed {
	return &countFeed{
		latest: initial,
		subs:   make(map[*countSub]struct{}),
	}
}

func (f *countFeed) publish(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = n
	for s := range f.subs {
		s.push(n)
	}
}

func (f *countFeed) subscribe() (<-chan int, func()) {
	s := &countSub{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan int),
	}

	f.mu.Lock()
	s.push(f.latest)
	f.subs[s] = struct{}{}
	f.mu.Unlock()

	go s.pump()

	unsubscribe := func() {
		f.mu.Lock()
		delete(f.subs, s)
		f.mu.Unlock()
		s.once.Do(func() { close(s.done) })
	}
	return s.out, unsubscribe
}

func (f *countFeed) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (s *countSub) push(n int) {
	s.mu.Lock()
	s.queue = append(s.queue, n)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *countSub) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			n := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.out <- n:
			case <-s.done:
				return
			}
		}
	}
}
