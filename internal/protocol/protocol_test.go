package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/pico-collectors/datacollect/internal/testutil/testlog"
)

func TestCorruptedWrapsSentinel(t *testing.T) {
	testlog.Start(t)
	err := Corrupted("bad checksum in record %d", 7)
	if !errors.Is(err, ErrCorruptedData) {
		t.Fatalf("expected ErrCorruptedData, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad checksum in record 7") {
		t.Fatalf("description lost: %v", err)
	}
}

func TestBaseDefaults(t *testing.T) {
	testlog.Start(t)
	var b Base
	if string(b.Delimiter()) != "\r\n" {
		t.Fatalf("unexpected default delimiter: %q", b.Delimiter())
	}
	if err := b.OnConnected(nil); err != nil {
		t.Fatalf("default connected hook: %v", err)
	}
}
