package orchestrator

import (
	"sync"

	"github.com/taskmill/taskmill/internal/scheduler"
)

// pkgLogger is the package-level debug logger for orchestration
// plumbing that has no per-run handle.
var pkgLogger *scheduler.DebugLogger
var pkgLoggerMu sync.RWMutex

// SetDebugLogger installs the package-level logger. Pass nil to disable.
func SetDebugLogger(l *scheduler.DebugLogger) {
	pkgLoggerMu.Lock()
	defer pkgLoggerMu.Unlock()
	pkgLogger = l
}

// debugLog writes a message using the package-level logger.
func debugLog(format string, args ...interface{}) {
	pkgLoggerMu.RLock()
	l := pkgLogger
	pkgLoggerMu.RUnlock()

	if l != nil {
		l.Log(format, args...)
	}
}
