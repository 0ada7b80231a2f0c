package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug is a build flag that can be overridden at build time:
// go build -ldflags "-X github.com/standardbeagle/chaoslens/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// QuietMode suppresses all debug output, e.g. while serving a request on stdio.
var QuietMode = false

var (
	debugOutput io.Writer
	debugFile   *os.File
	debugMutex  sync.Mutex
)

// SetQuietMode toggles QuietMode.
func SetQuietMode(enabled bool) {
	QuietMode = enabled
}

// SetDebugOutput sets a custom writer for debug output. Pass nil to disable.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile initializes debug logging to a timestamped file under
// the OS temp directory and returns its path.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "chaoslens-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile != nil {
		err := debugFile.Close()
		debugFile = nil
		debugOutput = nil
		return err
	}
	return nil
}

// IsDebugEnabled reports whether debug output should be produced.
func IsDebugEnabled() bool {
	if QuietMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	if v := os.Getenv("DEBUG"); v == "1" || v == "true" {
		return true
	}
	return false
}

func getDebugWriter() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Printf prints debug information only when enabled and an output is configured.
func Printf(format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG] "+format, args...)
}

// Log provides structured debug logging with component names.
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format, append([]interface{}{component}, args...)...)
}

// LogManifold logs encoder (C1) activity.
func LogManifold(format string, args ...interface{}) { Log("MANIFOLD", format, args...) }

// LogChaos logs analyzer (C2) activity.
func LogChaos(format string, args ...interface{}) { Log("CHAOS", format, args...) }

// LogStore logs structural-index (C3) activity.
func LogStore(format string, args ...interface{}) { Log("STORE", format, args...) }

// LogIngestion logs ingestion coordinator (C4) activity.
func LogIngestion(format string, args ...interface{}) { Log("INGEST", format, args...) }

// LogWatch logs filesystem watcher activity.
func LogWatch(format string, args ...interface{}) { Log("WATCH", format, args...) }

// LogQuery logs query surface (C7) activity.
func LogQuery(format string, args ...interface{}) { Log("QUERY", format, args...) }

// CatastrophicError records an unrecoverable condition to the debug log.
// In quiet mode this is suppressed so as not to corrupt a protocol stream.
func CatastrophicError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !QuietMode {
		if w := getDebugWriter(); w != nil {
			fmt.Fprintf(w, "[CATASTROPHIC] %s", msg)
		}
	}
}
