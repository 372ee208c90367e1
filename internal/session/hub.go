package session

import "sync"

const subscriberBuffer = 8

// hub fans records out to observers of one session. Slow observers lose the
// oldest pending record, never the newest.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan Record
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]chan Record)}
}

func (h *hub) subscribe(id string) (<-chan Record, func()) {
	ch := make(chan Record, subscriberBuffer)
	h.mu.Lock()
	h.next++
	key := h.next
	if h.subs[id] == nil {
		h.subs[id] = make(map[int]chan Record)
	}
	h.subs[id][key] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[id]; ok {
				delete(set, key)
				if len(set) == 0 {
					delete(h.subs, id)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (h *hub) publish(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[rec.Meta.ID] {
		select {
		case ch <- rec:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- rec:
		default:
		}
	}
}

func (h *hub) count(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}
