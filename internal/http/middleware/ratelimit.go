package middleware

import (
	"sync"
	"time"
)

// In-memory fixed-window counter, the fallback when Redis is not
// configured. Good enough for a single instance; multi-instance
// deployments should run Redis.
type memoryWindow struct {
	start time.Time
	count int
}

type memoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
}

func newMemoryLimiter() *memoryLimiter {
	return &memoryLimiter{windows: make(map[string]*memoryWindow)}
}

// allow counts one hit against key and reports whether it stays within
// maxHits per window.
func (l *memoryLimiter) allow(key string, maxHits int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) > window {
		l.windows[key] = &memoryWindow{start: now, count: 1}
		return true
	}

	w.count++
	return w.count <= maxHits
}
