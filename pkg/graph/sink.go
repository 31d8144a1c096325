package graph

import (
	"github.com/charmbracelet/log"
)

// Sink receives every recoverable anomaly the builder runs into: missing
// neighbours, rejected absorptions, failed insertions. The signature matches
// (*log.Logger).Log so a logger method value can be used directly:
//
//	b := graph.NewBuilder(store, graph.Options{})
//	b.SetSink(logger.Log)
//
// The payload is a message followed by alternating keys and values.
type Sink func(level log.Level, msg any, keyvals ...any)

// LogSink returns a Sink that writes to l. A nil logger yields [Discard].
func LogSink(l *log.Logger) Sink {
	if l == nil {
		return Discard
	}
	return l.Log
}

// Discard is a Sink that drops every report.
func Discard(log.Level, any, ...any) {}

// Diagnostic is one report captured by a [Recorder].
type Diagnostic struct {
	Level   log.Level
	Message string
	KeyVals []any
}

// Recorder collects reports in memory. It is used by tests and by callers
// that want to inspect a pass after the fact.
type Recorder struct {
	Entries []Diagnostic
}

// Sink returns a Sink appending to the recorder.
func (r *Recorder) Sink() Sink {
	return func(level log.Level, msg any, keyvals ...any) {
		text, _ := msg.(string)
		r.Entries = append(r.Entries, Diagnostic{Level: level, Message: text, KeyVals: keyvals})
	}
}

// Count returns how many entries were recorded at the given level.
func (r *Recorder) Count(level log.Level) int {
	n := 0
	for _, d := range r.Entries {
		if d.Level == level {
			n++
		}
	}
	return n
}
