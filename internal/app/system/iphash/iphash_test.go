package iphash_test

import (
	"testing"

	"github.com/dalemusser/hackreg/internal/app/system/iphash"
)

func TestHash(t *testing.T) {
	h, err := iphash.New([]byte("test-key"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a := h.Hash("203.0.113.1")
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a != h.Hash("203.0.113.1") {
		t.Error("hash must be deterministic")
	}
	if a == h.Hash("203.0.113.2") {
		t.Error("different IPs must hash differently")
	}
	if h.Hash("") != "" {
		t.Error("empty IP should hash to empty string")
	}

	other, _ := iphash.New([]byte("other-key"))
	if a == other.Hash("203.0.113.1") {
		t.Error("different keys must produce different hashes")
	}
}

func TestNew_RejectsBadKeys(t *testing.T) {
	if _, err := iphash.New(nil); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := iphash.New(make([]byte, 65)); err == nil {
		t.Error("expected error for oversized key")
	}
}
