package logsvc

import (
	"fmt"
	"sync"

	"github.com/trezcool/ratiba/core"
)

// MemoryLogger keeps log lines in memory. For tests.
type MemoryLogger struct {
	mu    sync.Mutex
	Lines []string
}

var _ core.Logger = (*MemoryLogger)(nil)

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Lines = append(l.Lines, fmt.Sprintf("%s: %s", level, msg))
}

// Count returns how many lines were logged at level.
func (l *MemoryLogger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	prefix := level + ": "
	for _, line := range l.Lines {
		if len(line) >= len(prefix) && line[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (l *MemoryLogger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *MemoryLogger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *MemoryLogger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *MemoryLogger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *MemoryLogger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }
