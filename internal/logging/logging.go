package logging

import (
	"io"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"
)

const header = `{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}","file":"${short_file}","line":"${line}"}`

var (
	mu      sync.Mutex
	level   = log.INFO
	output  io.Writer
	loggers []*log.Logger
)

// New returns a named logger that follows the process-wide level.
func New(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	l := log.New(prefix)
	l.SetHeader(header)
	l.SetLevel(level)
	if output != nil {
		l.SetOutput(output)
	}
	loggers = append(loggers, l)
	return l
}

// ParseLevel maps a config value to a gommon level. Unknown values mean INFO.
func ParseLevel(s string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

// SetLevel changes the level of every logger created by New.
func SetLevel(lvl log.Lvl) {
	mu.Lock()
	defer mu.Unlock()
	level = lvl
	for _, l := range loggers {
		l.SetLevel(lvl)
	}
}

func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	for _, l := range loggers {
		l.SetOutput(w)
	}
}
