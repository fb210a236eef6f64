// Package cache keeps recently computed analysis results in memory.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sync"
	"time"

	"smartbudget/internal/ledger"
	"smartbudget/internal/log"
)

// TableKey returns a content hash of t. Tables with the same header and
// rows share a key; cell boundaries are length prefixed so "a,bc" and
// "ab,c" differ.
func TableKey(t ledger.Table) string {
	h := sha256.New()
	writeRow(h, t.Header)
	for _, row := range t.Rows {
		writeRow(h, row)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeRow(h hash.Hash, row []string) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(row)))
	h.Write(n[:])
	for _, cell := range row {
		binary.LittleEndian.PutUint64(n[:], uint64(len(cell)))
		h.Write(n[:])
		h.Write([]byte(cell))
	}
}

// Cleaner is a cache that can drop its expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans every registered cache.
type Manager struct {
	mu     sync.Mutex
	caches []Cleaner
	logger *log.Logger

	stop    chan struct{}
	done    chan struct{}
	started bool
	once    sync.Once
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds a cache to the cleanup cycle.
func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// Start begins periodic cleanup. It is a no-op when already started.
func (m *Manager) Start(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.loop(interval)
}

// CleanAll cleans every registered cache once and returns the entries removed.
func (m *Manager) CleanAll() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

func (m *Manager) loop(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "removed", n)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop ends the cleanup loop and waits for it to exit.
func (m *Manager) Stop() {
	m.once.Do(func() {
		close(m.stop)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.done
		}
	})
}
