package main

import (
	"crypto/rand"
	"time"
)

const codeLength = 6

// newRoomCode generates a crypto-random 6-character uppercase alphanumeric
// room code. Bytes above the rejection threshold are discarded so the
// distribution over the alphabet stays uniform.
func newRoomCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const max = byte(255 - (256 % len(letters)))

	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength*2)

	for len(out) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, letters[int(b)%len(letters)])
				if len(out) == codeLength {
					break
				}
			}
		}
	}

	return string(out)
}

// Registry owns the lifetime of every live room, keyed by code. It carries
// no lock of its own: the dispatcher goroutine is its only caller, so all
// access is already serialized.
type Registry struct {
	rooms map[string]*Room
}

func newRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// create generates a fresh code, retrying on the (unlikely) collision with
// a live room rather than overwriting it.
func (reg *Registry) create(tone Tone, mode GameMode) *Room {
	var code string
	for {
		code = newRoomCode()
		if _, exists := reg.rooms[code]; !exists {
			break
		}
	}

	room := newRoom(code, tone, mode)
	reg.rooms[code] = room

	return room
}

func (reg *Registry) get(code string) (*Room, bool) {
	room, ok := reg.rooms[code]
	return room, ok
}

// delete removes a room immediately and finally; a later event referencing
// the same code sees ErrRoomNotFound.
func (reg *Registry) delete(code string) {
	delete(reg.rooms, code)
}

func (reg *Registry) count() int {
	return len(reg.rooms)
}

// idle returns the codes of rooms with no activity since the cutoff.
func (reg *Registry) idle(cutoff time.Time) []string {
	var codes []string
	for code, room := range reg.rooms {
		if room.lastActive.Before(cutoff) {
			codes = append(codes, code)
		}
	}
	return codes
}
