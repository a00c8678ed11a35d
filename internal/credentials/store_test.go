package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStore_RoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	creds := map[string]string{"api_key": "AIzaTest123", "note": "primary"}
	if err := s.Save("google_places", creds); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load("google_places")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got["api_key"] != "AIzaTest123" || got["note"] != "primary" {
		t.Errorf("unexpected credentials: %v", got)
	}
}

func TestStore_PassphraseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "correct horse battery staple")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := s.Save("openweathermap", map[string]string{"api_key": "owm-123"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A fresh store with the same passphrase can decrypt.
	s2, err := NewStore(dir, "correct horse battery staple")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	got, err := s2.Load("openweathermap")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got["api_key"] != "owm-123" {
		t.Errorf("unexpected credentials: %v", got)
	}

	// The wrong passphrase cannot.
	s3, err := NewStore(dir, "wrong passphrase")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if _, err := s3.Load("openweathermap"); err != ErrDecryptFailed {
		t.Errorf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestStore_LoadMissingReturnsNil(t *testing.T) {
	s, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	got, err := s.Load("google_places")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing credentials, got %v", got)
	}
}

func TestStore_CiphertextIsOpaque(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := s.Save("google_places", map[string]string{"api_key": "super-secret-key"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "google_places.enc"))
	if err != nil {
		t.Fatalf("reading encrypted file: %v", err)
	}
	if strings.Contains(string(raw), "super-secret-key") {
		t.Error("plaintext leaked into the encrypted file")
	}
}

func TestStore_DeleteAndHas(t *testing.T) {
	s, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if s.Has("google_places") {
		t.Error("Has should be false before Save")
	}
	if err := s.Save("google_places", map[string]string{"api_key": "k"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !s.Has("google_places") {
		t.Error("Has should be true after Save")
	}

	if err := s.Delete("google_places"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.Has("google_places") {
		t.Error("Has should be false after Delete")
	}

	// Deleting again is a no-op.
	if err := s.Delete("google_places"); err != nil {
		t.Fatalf("repeated Delete should not error: %v", err)
	}
}

func TestStore_List(t *testing.T) {
	s, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	s.Save("google_places", map[string]string{"k": "1"})
	s.Save("openweathermap", map[string]string{"k": "2"})

	providers, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("expected 2 providers, got %v", providers)
	}
}

func TestStore_RejectsPathTraversal(t *testing.T) {
	s, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := s.Save("../evil", map[string]string{"k": "v"}); err == nil {
		t.Error("expected error for traversal in provider name")
	}
	if _, err := s.Load("a/b"); err == nil {
		t.Error("expected error for slash in provider name")
	}
}

func TestStore_TamperedCiphertextFails(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := s.Save("google_places", map[string]string{"api_key": "k"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	path := filepath.Join(dir, "google_places.enc")
	raw, _ := os.ReadFile(path)
	raw[len(raw)-1] ^= 0xFF
	os.WriteFile(path, raw, 0o600)

	if _, err := s.Load("google_places"); err != ErrDecryptFailed {
		t.Errorf("expected ErrDecryptFailed, got %v", err)
	}
}
