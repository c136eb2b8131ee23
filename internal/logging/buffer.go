package logging

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Entry represents a single log entry
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Buffer is a thread-safe ring buffer of log entries. It implements
// io.Writer so it can be teed into the logger output.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	cap     int
}

// NewBuffer creates a new log buffer with the given capacity
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{
		entries: make([]Entry, 0, capacity),
		cap:     capacity,
	}
}

// Add adds a log entry to the buffer
func (b *Buffer) Add(level, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := Entry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}

	if len(b.entries) >= b.cap {
		// Shift everything left by 1, drop oldest
		copy(b.entries, b.entries[1:])
		b.entries[len(b.entries)-1] = entry
	} else {
		b.entries = append(b.entries, entry)
	}
}

// Entries returns all entries, optionally filtered by level
func (b *Buffer) Entries(levels []string) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(levels) == 0 {
		result := make([]Entry, len(b.entries))
		copy(result, b.entries)
		return result
	}

	levelSet := make(map[string]bool)
	for _, l := range levels {
		levelSet[strings.ToLower(l)] = true
	}

	result := make([]Entry, 0)
	for _, e := range b.entries {
		if levelSet[strings.ToLower(e.Level)] {
			result = append(result, e)
		}
	}
	return result
}

// Clear removes all entries
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = b.entries[:0]
}

// Write parses one hclog line (text or JSON) per call.
func (b *Buffer) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		level, msg := parseLine(line)
		b.Add(level, msg)
	}
	return len(p), nil
}

var textLevels = []struct{ tag, level string }{
	{"[TRACE]", "trace"},
	{"[DEBUG]", "debug"},
	{"[INFO]", "info"},
	{"[WARN]", "warn"},
	{"[ERROR]", "error"},
}

func parseLine(line string) (level, msg string) {
	if strings.HasPrefix(line, "{") {
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(line), &rec); err == nil {
			level, _ = rec["@level"].(string)
			msg, _ = rec["@message"].(string)
			if mod, ok := rec["@module"].(string); ok && mod != "" {
				msg = mod + ": " + msg
			}
			if level == "" {
				level = "info"
			}
			return level, msg
		}
	}

	for _, l := range textLevels {
		if i := strings.Index(line, l.tag); i >= 0 {
			return l.level, strings.TrimSpace(line[i+len(l.tag):])
		}
	}
	return "info", line
}
