package logging

import "testing"

func TestNopLoggerDiscards(t *testing.T) {
	logger := Nop()
	logger.Debug("debug %d", 1)
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}

	logger := NewComponentLogger("test")
	if got := OrNop(logger); got != logger {
		t.Fatal("OrNop did not pass through non-nil logger")
	}
}

func TestComponentLoggerSafeWithoutFile(t *testing.T) {
	l := &fileLogger{component: "test"}
	l.mu = getFileLogger().mu
	l.Debug("should not panic without a log file")
}

func TestLogLevelString(t *testing.T) {
	cases := map[LogLevel]string{
		DEBUG:        "DEBUG",
		INFO:         "INFO",
		WARN:         "WARN",
		ERROR:        "ERROR",
		LogLevel(42): "UNKNOWN",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Fatalf("level %d: got %q, want %q", level, got, want)
		}
	}
}
