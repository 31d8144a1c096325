package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("placed") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("placed") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("placed") }, true},
		{"warn at error level", log.ErrorLevel, func(l *log.Logger) { l.Warn("placed") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestProgress_Done(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("build finished", "input", "phrases.json")

	out := buf.String()
	for _, want := range []string{"build finished", "input=phrases.json", "elapsed="} {
		if !strings.Contains(out, want) {
			t.Errorf("progress output %q missing %q", out, want)
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)

	ctx := withLogger(context.Background(), custom)
	if got := loggerFromContext(ctx); got != custom {
		t.Error("loggerFromContext should return the attached logger")
	}

	fallback := loggerFromContext(context.Background())
	if fallback == nil {
		t.Fatal("loggerFromContext should never return nil")
	}
	fallback.Error("discarded")
	if buf.Len() != 0 {
		t.Error("fallback logger must not write to an unrelated logger")
	}
}

func TestSetup_PrefixesLoggerWithCommand(t *testing.T) {
	isolate(t)
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	root := c.RootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"config", "path"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config path: %v", err)
	}

	cmd, _, _ := root.Find([]string{"config", "path"})
	loggerFromContext(cmd.Context()).Info("hello")
	if !strings.Contains(buf.String(), "path") {
		t.Errorf("command logger should carry the command name as prefix: %q", buf.String())
	}
}
