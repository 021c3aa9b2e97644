package main

import (
	"strings"
	"testing"
)

func TestNewRoomCode(t *testing.T) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	for i := 0; i < 100; i++ {
		code := newRoomCode()

		if len(code) != codeLength {
			t.Fatalf("wrong length expected: %d got: %d", codeLength, len(code))
		}

		for _, r := range code {
			if !strings.ContainsRune(letters, r) {
				t.Fatalf("unexpected character %q in code %q", r, code)
			}
		}
	}
}

func TestRegistryLifecycle(t *testing.T) {
	reg := newRegistry()

	room := reg.create(ToneSpicy, ModeRandom)
	if room.code == "" {
		t.Fatal("created room has no code")
	}
	if room.tone != ToneSpicy || room.mode != ModeRandom {
		t.Fatalf("room settings not applied: %s/%s", room.tone, room.mode)
	}
	if reg.count() != 1 {
		t.Fatalf("expected 1 room, got %d", reg.count())
	}

	got, ok := reg.get(room.code)
	if !ok || got != room {
		t.Fatal("lookup did not return the registered room")
	}

	reg.delete(room.code)
	if _, ok := reg.get(room.code); ok {
		t.Fatal("room still resolvable after delete")
	}
	if reg.count() != 0 {
		t.Fatalf("expected 0 rooms, got %d", reg.count())
	}

	// Deleting again must be a no-op.
	reg.delete(room.code)
}

func TestRegistryUniqueCodes(t *testing.T) {
	reg := newRegistry()
	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		room := reg.create(ToneChill, ModeChat)
		if seen[room.code] {
			t.Fatalf("duplicate live code %q", room.code)
		}
		seen[room.code] = true
	}
}
