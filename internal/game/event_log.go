package game

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize    = 1024
	MaxEventsPerSec    = 10000
	MaxEventsPerRoom   = 500
	BatchFlushSize     = 64
	BatchFlushInterval = 100 * time.Millisecond
	RoomLimiterCleanup = 5 * time.Minute
)

// EventLog provides bounded, rate-limited append-only logging of
// simulation events as newline-delimited JSON. One log is shared by all
// rooms; it never blocks a tick, and a flooded buffer drops the oldest
// entries instead of growing.
type EventLog struct {
	buffer    [EventBufferSize]Event
	writeHead uint64 // atomic, producer position
	readHead  uint64 // atomic, consumer position

	globalLimiter *rate.Limiter
	roomLimiters  sync.Map // map[string]*roomLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	file   *os.File
	fileMu sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic

	// producers from multiple rooms share the buffer
	emitMu sync.Mutex
}

type roomLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewEventLog creates an event log that is not yet running. Emit is a
// no-op until Start is called.
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens the output file and begins the async writer. An empty path
// keeps the log in memory only (useful for tests).
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}
	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()
	return nil
}

// Stop flushes pending events and shuts the writer down. Safe to call
// more than once.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
		}
		el.fileMu.Unlock()
	})
}

// Emit appends an event, subject to global and per-room rate limits.
// Returns false when the event was rate limited or the log is stopped.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}
	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}
	if event.RoomID != "" {
		if !el.getRoomLimiter(event.RoomID).Allow() {
			atomic.AddUint64(&el.droppedCount, 1)
			return false
		}
	}

	el.emitMu.Lock()
	head := el.writeHead
	el.writeHead++
	tail := atomic.LoadUint64(&el.readHead)
	if head-tail >= EventBufferSize {
		// Rolling window: overwrite the oldest entry.
		atomic.AddUint64(&el.readHead, 1)
		atomic.AddUint64(&el.droppedCount, 1)
	}
	event.Sequence = head
	el.buffer[head%EventBufferSize] = event
	el.emitMu.Unlock()

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitSimple builds and emits an event in one call.
func (el *EventLog) EmitSimple(eventType EventType, tick uint64, roomID string, payload any) bool {
	return el.Emit(NewEvent(eventType, tick, roomID, payload))
}

func (el *EventLog) getRoomLimiter(roomID string) *rate.Limiter {
	if entry, ok := el.roomLimiters.Load(roomID); ok {
		e := entry.(*roomLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}
	entry := &roomLimiterEntry{
		limiter:  rate.NewLimiter(MaxEventsPerRoom, MaxEventsPerRoom/10),
		lastUsed: time.Now(),
	}
	actual, _ := el.roomLimiters.LoadOrStore(roomID, entry)
	return actual.(*roomLimiterEntry).limiter
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)
	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(RoomLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-RoomLimiterCleanup)
			el.roomLimiters.Range(func(key, value any) bool {
				if value.(*roomLimiterEntry).lastUsed.Before(cutoff) {
					el.roomLimiters.Delete(key)
				}
				return true
			})
		}
	}
}

func (el *EventLog) collectBatch(batch []Event) []Event {
	el.emitMu.Lock()
	head := el.writeHead
	el.emitMu.Unlock()
	tail := atomic.LoadUint64(&el.readHead)

	for i := tail; i < head && len(batch) < BatchFlushSize; i++ {
		batch = append(batch, el.buffer[i%EventBufferSize])
	}
	if len(batch) > 0 {
		atomic.AddUint64(&el.readHead, uint64(len(batch)))
	}
	return batch
}

func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		return
	}
	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		el.file.Write(data)
		el.file.Write([]byte("\n"))
	}
}

// Stats returns counters for monitoring.
func (el *EventLog) Stats() map[string]any {
	el.emitMu.Lock()
	head := el.writeHead
	el.emitMu.Unlock()
	tail := atomic.LoadUint64(&el.readHead)
	return map[string]any{
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"pending": head - tail,
		"running": el.running.Load(),
	}
}
