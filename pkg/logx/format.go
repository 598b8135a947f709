package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// JSONFormatter writes one JSON object per line
type JSONFormatter struct {
	config *Config
}

func (f *JSONFormatter) Format(entry *LogEntry) ([]byte, error) {
	data := make(map[string]any, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		data[k] = v
	}
	data["level"] = entry.Level.String()
	data["message"] = entry.Message
	if f.config.EnableTimestamp {
		data["timestamp"] = entry.Timestamp.Format(time.RFC3339Nano)
	}
	if entry.Caller != "" {
		data["caller"] = entry.Caller
	}

	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// ConsoleFormatter writes human readable lines, optionally coloured
type ConsoleFormatter struct {
	config *Config
}

func (f *ConsoleFormatter) Format(entry *LogEntry) ([]byte, error) {
	var b strings.Builder

	if f.config.EnableTimestamp {
		b.WriteString(f.paint(colorGray, entry.Timestamp.Format(f.config.TimeFormat)))
		b.WriteByte(' ')
	}
	b.WriteString(f.paint(levelColor(entry.Level), fmt.Sprintf("%-5s", entry.Level)))
	b.WriteByte(' ')
	if entry.Caller != "" {
		b.WriteString(f.paint(colorGray, "["+entry.Caller+"] "))
	}
	b.WriteString(entry.Message)

	// Sorted so the same entry always renders identically.
	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(f.paint(colorCyan, k))
		b.WriteByte('=')
		fmt.Fprintf(&b, "%v", entry.Fields[k])
	}
	b.WriteByte('\n')

	return []byte(b.String()), nil
}

func (f *ConsoleFormatter) paint(color, s string) string {
	if !f.config.EnableColors {
		return s
	}
	return color + s + colorReset
}

func levelColor(l Level) string {
	switch l {
	case LevelDebug, LevelTrace:
		return colorBlue
	case LevelWarn:
		return colorYellow
	case LevelError, LevelFatal:
		return colorRed
	default:
		return colorCyan
	}
}
