package task

import (
	"sync"

	"github.com/atinyakov/TaskKeeper/internal/models"
)

// cache is the non-authoritative lookup of last-known tasks keyed by
// ID. Unbounded, no expiry: staleness is tolerated because views
// re-fetch on change signals instead of reading the cache.
type cache struct {
	mu    sync.Mutex
	tasks map[int64]models.Task
}

func newCache() *cache {
	return &cache{tasks: make(map[int64]models.Task)}
}

func (c *cache) put(t models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[t.ID] = t
}

func (c *cache) get(id int64) (models.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tasks[id]
	return t, ok
}

func (c *cache) delete(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tasks, id)
}

func (c *cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = make(map[int64]models.Task)
}
