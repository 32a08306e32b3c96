package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is a single captured diagnostic line.
type Entry struct {
	Sequence uint64            `json:"seq"`
	Time     time.Time         `json:"ts"`
	Level    string            `json:"level"`
	Message  string            `json:"msg"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// Journal keeps the most recent log entries in memory. It is never written to
// disk; callers decide whether to show it.
type Journal struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	nextSeq  uint64
}

// NewJournal constructs a bounded in-memory journal.
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = 256
	}
	return &Journal{capacity: capacity}
}

// Append records an entry, evicting the oldest when full.
func (j *Journal) Append(entry Entry) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.nextSeq++
	entry.Sequence = j.nextSeq
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}
	if len(j.entries) == j.capacity {
		copy(j.entries, j.entries[1:])
		j.entries = j.entries[:j.capacity-1]
	}
	j.entries = append(j.entries, entry)
}

// Entries returns a copy of the buffered entries, oldest first.
func (j *Journal) Entries() []Entry {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Handler returns a slog handler that appends every record at or above level.
func (j *Journal) Handler(level slog.Level) slog.Handler {
	return &journalHandler{journal: j, level: level}
}

type journalHandler struct {
	journal *Journal
	level   slog.Level
	attrs   []slog.Attr
	groups  []string
}

func (h *journalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.journal != nil && level >= h.level
}

func (h *journalHandler) Handle(_ context.Context, record slog.Record) error {
	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	entry := Entry{
		Time:    record.Time.UTC(),
		Level:   levelLabel(record.Level),
		Message: strings.TrimSpace(record.Message),
	}
	if len(kvs) > 0 {
		entry.Fields = make(map[string]string, len(kvs))
		for _, kv := range kvs {
			if kv.key != "" {
				entry.Fields[kv.key] = attrString(kv.value)
			}
		}
	}
	h.journal.Append(entry)
	return nil
}

func (h *journalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *journalHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}
