package protocol

import "sync"

// pendingTable maps request ids to one-shot completion slots.
//
// Every slot is a channel with capacity one, so resolve never blocks and a
// slot is fulfilled at most once: resolve removes it before delivering.
type pendingTable struct {
	mu      sync.Mutex
	entries map[uint64]chan *Response
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		entries: make(map[uint64]chan *Response, 16),
	}
}

// register creates the slot for id and returns the side the caller waits on.
func (p *pendingTable) register(id uint64) <-chan *Response {
	slot := make(chan *Response, 1)

	p.mu.Lock()
	p.entries[id] = slot
	p.mu.Unlock()

	return slot
}

// resolve removes and fulfills the slot for id.
// It reports false when nobody is waiting for id.
func (p *pendingTable) resolve(id uint64, resp *Response) bool {
	p.mu.Lock()

	slot, ok := p.entries[id]
	if ok {
		delete(p.entries, id)
	}

	p.mu.Unlock()

	if !ok {
		return false
	}

	slot <- resp

	return true
}

// remove drops the slot for id without fulfilling it.
func (p *pendingTable) remove(id uint64) {
	p.mu.Lock()
	delete(p.entries, id)
	p.mu.Unlock()
}

func (p *pendingTable) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.entries)
}
