package logging

import "testing"

func TestNewValidLevelsAndFormats(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		for _, format := range []string{"json", "console"} {
			logger, err := New(level, format)
			if err != nil {
				t.Fatalf("level=%s format=%s: unexpected error: %v", level, format, err)
			}
			if logger == nil {
				t.Fatalf("level=%s format=%s: got nil logger", level, format)
			}
		}
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New("not-a-level", "json"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}
