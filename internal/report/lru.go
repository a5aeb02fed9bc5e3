package report

import (
	"container/list"
	"sync"
)

// LRUStore keeps the most recently used sessions in memory and delegates
// to a backing Store on miss.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order *list.List // of *Session, most recent at front
	items map[string]*list.Element
}

// NewLRUStore creates an LRU cache holding at most cap sessions in front
// of back. Capacity is at least 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, cap),
	}
}

// Save caches s and writes it through to the backing store.
func (c *LRUStore) Save(s *Session) error {
	c.put(s)
	return c.back.Save(s)
}

// Load returns the cached session or loads and caches it from the backing
// store.
func (c *LRUStore) Load(id string) (*Session, error) {
	c.mu.Lock()
	if el, ok := c.items[id]; ok {
		c.order.MoveToFront(el)
		s := el.Value.(*Session)
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	s, err := c.back.Load(id)
	if err != nil {
		return nil, err
	}
	c.put(s)
	return s, nil
}

// Len returns the number of cached sessions.
func (c *LRUStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUStore) put(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[s.ID]; ok {
		el.Value = s
		c.order.MoveToFront(el)
		return
	}
	c.items[s.ID] = c.order.PushFront(s)
	if c.order.Len() > c.cap {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.items, last.Value.(*Session).ID)
	}
}
