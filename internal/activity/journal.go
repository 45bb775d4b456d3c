package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parking-lot-queue/internal/parking"
)

const TimestampLayout = "2006-01-02 15:04:05"

type Entry struct {
	At      time.Time         `json:"at"`
	Kind    parking.EventKind `json:"kind"`
	Plate   string            `json:"plate"`
	Message string            `json:"message"`
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.At.Format(TimestampLayout), e.Message)
}

// Journal keeps the most recent entries in memory, oldest first.
type Journal struct {
	mu      sync.RWMutex
	size    int
	entries []Entry
	now     func() time.Time
}

func NewJournal(size int) *Journal {
	if size <= 0 {
		size = 1
	}
	return &Journal{
		size:    size,
		entries: make([]Entry, 0, size),
		now:     time.Now,
	}
}

// Record stamps the entry with the journal's clock, not the event time, so
// entries read like a log written as things happen.
func (j *Journal) Record(_ context.Context, event parking.Event) {
	j.Add(event.Kind, event.Plate, event.Message())
}

func (j *Journal) Add(kind parking.EventKind, plate, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := Entry{At: j.now(), Kind: kind, Plate: plate, Message: message}
	if len(j.entries) == j.size {
		copy(j.entries, j.entries[1:])
		j.entries[len(j.entries)-1] = entry
		return
	}
	j.entries = append(j.entries, entry)
}

func (j *Journal) Entries() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	entries := make([]Entry, len(j.entries))
	copy(entries, j.entries)
	return entries
}

func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return len(j.entries)
}
