package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	debugLogger *log.Logger
	logFile     *os.File
	mu          sync.Mutex
	isSetup     bool

	console  io.Writer = os.Stdout
	renderer           = lipgloss.NewRenderer(os.Stdout)
)

// Level tags printed in front of every console message
const (
	tagInfo  = "[INFO]:  "
	tagWarn  = "[WARN]:  "
	tagError = "[ERROR]: "
	tagFatal = "[FATAL]: "
)

// SetupLogger initializes the debug logger with the specified log file
func SetupLogger(logFilePath string) error {
	mu.Lock()
	defer mu.Unlock()

	// Check if logger is already set up
	if isSetup {
		return nil
	}

	var err error
	logFile, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	debugLogger = log.New(logFile, "", log.LstdFlags)
	debugLogger.Printf("--- raycheck debug log started at %s ---\n", time.Now().Format(time.RFC3339))

	isSetup = true
	return nil
}

// CloseLogger closes the log file
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		debugLogger.Printf("--- raycheck debug log closed at %s ---\n", time.Now().Format(time.RFC3339))
		logFile.Close()
		logFile = nil
		debugLogger = nil
		isSetup = false
	}
}

// SetOutput redirects console messages. Colour support is detected from w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	console = w
	renderer = lipgloss.NewRenderer(w)
}

func styled(tag string, color lipgloss.Color) string {
	return renderer.NewStyle().Bold(true).Foreground(color).Render(tag)
}

func emit(tag string, color lipgloss.Color, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(console, styled(tag, color)+msg)
	if debugLogger != nil {
		debugLogger.Print(tag + msg)
	}
}

// Info prints an informational message
func Info(format string, args ...interface{}) {
	emit(tagInfo, lipgloss.Color("12"), format, args...)
}

// Warn prints a warning. Regression reports use this level.
func Warn(format string, args ...interface{}) {
	emit(tagWarn, lipgloss.Color("11"), format, args...)
}

// Error prints a recoverable error; the run continues.
func Error(format string, args ...interface{}) {
	emit(tagError, lipgloss.Color("9"), format, args...)
}

// Fatal prints an unrecoverable error. Exiting is left to the caller so that
// deferred cleanup in main still runs.
func Fatal(format string, args ...interface{}) {
	emit(tagFatal, lipgloss.Color("9"), format, args...)
}

// DebugLog logs a message if debug mode is enabled
func DebugLog(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if debugLogger != nil {
		debugLogger.Printf(format, args...)
	}
}

// LogTestProcessed logs when a test case has been compared
func LogTestProcessed(name string, success bool, errMsg string) {
	mu.Lock()
	defer mu.Unlock()

	if debugLogger != nil {
		if success {
			debugLogger.Printf("PROCESSED: %s", name)
		} else {
			debugLogger.Printf("FAILED: %s - Error: %s", name, errMsg)
		}
	}
}
