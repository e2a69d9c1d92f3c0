package rxconf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReceiverDefaults(t *testing.T) {
	r, err := LoadReceiver("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.UDPPort != 30000 || r.Prefix != 192 || r.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", r)
	}
}

func TestLoadReceiverFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receiver.yaml")
	if err := os.WriteFile(path, []byte("udp_port: 31000\nprefix: 10\n"), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	r, err := LoadReceiver(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.UDPPort != 31000 || r.Prefix != 10 {
		t.Fatalf("expected overrides applied, got %+v", r)
	}
	if r.LogLevel != "info" {
		t.Fatalf("expected default log_level to still apply, got %q", r.LogLevel)
	}
}

func TestLoadReceiverRejectsInvalidPrefix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receiver.yaml")
	if err := os.WriteFile(path, []byte("prefix: 999\n"), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if _, err := LoadReceiver(path); err == nil {
		t.Fatal("expected validation error for out-of-range prefix")
	}
}

func TestLoadDelugeDefaults(t *testing.T) {
	d, err := LoadDeluge("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.TargetPort != 30000 || d.ToFirst != 9 || d.TriggerPort != 9999 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
}
