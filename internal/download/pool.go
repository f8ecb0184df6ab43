package download

import "sync"

// Pool is a shared, depleting queue of candidate URLs. Every URL is handed to
// at most one caller, exactly once, in insertion order.
type Pool struct {
	mu   sync.Mutex
	urls []string
}

// NewPool copies urls into a new Pool.
func NewPool(urls []string) *Pool {
	return &Pool{urls: append([]string(nil), urls...)}
}

// Pop removes and returns the front URL. ok is false once the pool is empty.
func (p *Pool) Pop() (url string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.urls) == 0 {
		return "", false
	}
	url = p.urls[0]
	p.urls[0] = ""
	p.urls = p.urls[1:]
	return url, true
}

// Len reports how many URLs remain.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.urls)
}
