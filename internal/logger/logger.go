package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

var levelColors = [...]color.Attribute{color.FgCyan, color.FgGreen, color.FgYellow, color.FgRed, color.FgRed}

func (lv LogLevel) String() string {
	if lv < DEBUG || lv > FATAL {
		return "INFO"
	}
	return levelNames[lv]
}

// ParseLevel reads a LOG_LEVEL value such as "debug" or "WARN".
func ParseLevel(s string) (LogLevel, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return LogLevel(i), nil
		}
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Service   string `json:"service,omitempty"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// Options controls where log lines go. An empty Dir disables the JSON file.
// Lines below Level are dropped; the zero value keeps everything.
type Options struct {
	Service string
	Dir     string
	Level   LogLevel
	Out     io.Writer
	NoColor bool
}

type Logger struct {
	mu           sync.Mutex
	out          io.Writer
	logFile      *os.File
	service      string
	minLevel     LogLevel
	colorEnabled bool
}

func NewLogger(opts Options) (*Logger, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	service := opts.Service
	if service == "" {
		service = "venues"
	}
	l := &Logger{out: out, service: service, minLevel: opts.Level, colorEnabled: !opts.NoColor}

	if opts.Dir == "" {
		return l, nil
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	name := filepath.Join(opts.Dir, fmt.Sprintf("%s-%s.log", service, time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l.logFile = f

	l.Info("LOGGER", fmt.Sprintf("Log file: %s", name))
	return l, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{out: io.Discard}
}

func (l *Logger) log(level LogLevel, category, message string) {
	if level < l.minLevel && level != FATAL {
		return
	}
	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Service:   l.service,
		Level:     level.String(),
		Category:  strings.ToUpper(category),
		Message:   message,
		File:      file,
		Line:      line,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprint(l.out, l.terminalLine(level, entry))

	if l.logFile != nil {
		jsonBytes, _ := json.Marshal(entry)
		l.logFile.Write(append(jsonBytes, '\n'))
	}
}

func (l *Logger) terminalLine(level LogLevel, entry LogEntry) string {
	clock := entry.Timestamp[11:19]
	where := ""
	if entry.File != "" && entry.Line > 0 {
		where = fmt.Sprintf(" (%s:%d)", entry.File, entry.Line)
	}

	if !l.colorEnabled {
		return fmt.Sprintf("%s %-5s [%-10s] %s%s\n", clock, entry.Level, entry.Category, entry.Message, where)
	}

	attr := levelColors[INFO]
	if level >= DEBUG && level <= FATAL {
		attr = levelColors[level]
	}
	return fmt.Sprintf("%s %s %s %s%s\n",
		color.New(color.FgBlue).Sprint(clock),
		color.New(attr).Sprintf("%-5s", entry.Level),
		color.New(attr, color.Bold).Sprintf("[%-10s]", entry.Category),
		entry.Message,
		color.New(color.FgMagenta).Sprint(where))
}

func (l *Logger) Debug(category, message string) { l.log(DEBUG, category, message) }
func (l *Logger) Info(category, message string)  { l.log(INFO, category, message) }
func (l *Logger) Warn(category, message string)  { l.log(WARN, category, message) }
func (l *Logger) Error(category, message string) { l.log(ERROR, category, message) }

func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	os.Exit(1)
}

// Specialized helpers keep category names consistent across packages. They
// call log directly so the recorded caller is theirs, not this file.

func (l *Logger) LogReservation(action, id, message string) {
	l.log(INFO, "RESERVE", fmt.Sprintf("[%s] %s - %s", action, id, message))
}

func (l *Logger) LogPayment(action, id, message string) {
	l.log(INFO, "PAYMENT", fmt.Sprintf("[%s] %s - %s", action, id, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.log(INFO, "API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogKafka(action, topic, message string) {
	l.log(INFO, "KAFKA", fmt.Sprintf("[%s] %s - %s", action, topic, message))
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.log(INFO, "DATABASE", fmt.Sprintf("[%s] %s - %s", operation, table, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.log(WARN, "SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() {
	if l.logFile != nil {
		l.Info("LOGGER", "Closing log file")
		l.logFile.Close()
	}
}
