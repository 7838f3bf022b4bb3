package utils

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logrus.Level
		wantErr bool
	}{
		{"debug", logrus.DebugLevel, false},
		{"INFO", logrus.InfoLevel, false},
		{"warn", logrus.WarnLevel, false},
		{"warning", logrus.WarnLevel, false},
		{"error", logrus.ErrorLevel, false},
		{"fatal", logrus.FatalLevel, false},
		{"trace", 0, true},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestArchiveLockExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diary.mem")
	first, err := NewArchiveLock(path)
	if err != nil {
		t.Fatal(err)
	}
	if first.Path() != path+".lock" {
		t.Errorf("lock path = %s", first.Path())
	}
	if err := first.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	second, err := NewArchiveLock(path)
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := second.TryLock(); err != nil || ok {
		t.Fatalf("second TryLock = %v, %v; want false while held", ok, err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if ok, err := second.TryLock(); err != nil || !ok {
		t.Fatalf("second TryLock after unlock = %v, %v; want true", ok, err)
	}
	_ = second.Unlock()
}
