package session

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

// Cleaner removes the session's scratch resources at most once, regardless
// of which exit path triggers it (normal return, step failure, signal).
// Removal failures are logged, never returned: cleanup must not mask the
// error that triggered it.
type Cleaner struct {
	once  sync.Once
	paths []string
}

func NewCleaner(paths ...string) *Cleaner {
	return &Cleaner{paths: paths}
}

// Run removes every registered path that still exists. Safe to call from
// multiple goroutines; only the first call does work.
func (c *Cleaner) Run() {
	c.once.Do(func() {
		log := zap.S().Named("cleanup")
		for _, path := range c.paths {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				continue
			}
			log.Infow("removing", "path", path)
			if err := os.RemoveAll(path); err != nil {
				log.Errorw("failed to remove", "path", path, "error", err)
			}
		}
	})
}
