package gateway

import "sync"

// Notifier fans identity changes out to subscribers. The zero value is
// ready to use.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(*Identity)
}

func (n *Notifier) Subscribe(fn func(*Identity)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = map[int]func(*Identity){}
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
		})
	}
}

// Notify calls every subscriber with identity. Subscribers run outside the
// lock and may unsubscribe themselves.
func (n *Notifier) Notify(identity *Identity) {
	n.mu.Lock()
	fns := make([]func(*Identity), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(identity)
	}
}
