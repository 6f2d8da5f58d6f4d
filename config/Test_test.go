package config

import (
	"os"
	"path/filepath"
	"testing"
)

func truncateToEmpty(path string) error {
	return os.Truncate(path, 0)
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenPort != 9001 {
		t.Fatalf("expected default listen port 9001, got %d", cfg.ListenPort)
	}
}

func TestLoadEmptyFileFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := Save(&Config{}, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Save writes a real (zero-valued) document; truncate it to simulate a genuinely empty file.
	if err := truncateToEmpty(path); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenPort != 9001 {
		t.Fatalf("expected default listen port 9001, got %d", cfg.ListenPort)
	}
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	want := &Config{
		ListenPort:             9100,
		DestPort:               9200,
		MustEncrypt:            true,
		AllowDangerousFilepath: false,
		LedgerPath:             "custom-ledger.db",
		StatusAddr:             "127.0.0.1:8080",
	}
	if err := Save(want, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *got != *want {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, want)
	}
}
