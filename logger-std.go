//go:build !tinygo

package radiolink

import (
	charm "github.com/charmbracelet/log"
)

func init() {
	globalLogger = &stdLogger{l: charm.Default()}
}

// stdLogger is the hosted default logger. It backs the engine's plain
// string-based Logger interface onto a leveled, structured logger so the
// several severities in the error taxonomy (silent drop vs. give-up) are
// distinguishable in the output.
type stdLogger struct {
	l *charm.Logger
}

func (s *stdLogger) Debug(msg string) { s.l.Debug(msg) }
func (s *stdLogger) Info(msg string)  { s.l.Info(msg) }
func (s *stdLogger) Warn(msg string)  { s.l.Warn(msg) }
func (s *stdLogger) Error(msg string) { s.l.Error(msg) }
