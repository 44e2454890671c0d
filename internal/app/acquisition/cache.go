package acquisition

import (
	"sync"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"
)

// Cache is the write-behind buffer between the poll loop and the flusher.
// The loop appends, the flusher swaps the whole buffer out; the mutex makes
// the swap atomic with respect to appends, so a reading lands in exactly one
// snapshot.
type Cache struct {
	mu  sync.Mutex
	buf []domain.Reading
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Append(r domain.Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = append(c.buf, r)
}

// TakeAll hands ownership of the current contents to the caller and leaves
// the cache empty.
func (c *Cache) TakeAll() []domain.Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.buf
	c.buf = nil
	return out
}

// Requeue puts a failed snapshot back at the front of the buffer so order is
// preserved for the next flush attempt.
func (c *Cache) Requeue(records []domain.Reading) {
	if len(records) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = append(records, c.buf...)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}
