// Truth or Dare session room.
//
// A room is the unit of state shared by exactly two players, keyed by a
// short shareable code. The first player to connect creates the room and
// becomes player 1; the second to join becomes player 2. Once both players
// have confirmed the rules screen the game starts, and players alternate
// picking "Truth" or "Dare" until one of them ends the game or disconnects.
//
// Nothing in this file performs I/O. Every method is a pure state
// transition invoked from the dispatcher goroutine, so no locking is
// needed: all events for all rooms are applied one at a time.

package main

import (
	"time"
)

type Tone string

const (
	ToneChill   Tone = "CHILL"
	ToneSpicy   Tone = "SPICY"
	ToneExtreme Tone = "EXTREME"
)

// normalizeTone falls back to CHILL for anything unrecognized, matching
// how a blank tone defaults on room creation.
func normalizeTone(s string) Tone {
	switch Tone(s) {
	case ToneSpicy:
		return ToneSpicy
	case ToneExtreme:
		return ToneExtreme
	default:
		return ToneChill
	}
}

type GameMode string

const (
	ModeRandom GameMode = "RANDOM"
	ModeChat   GameMode = "CHAT"
)

func normalizeMode(s string) GameMode {
	if GameMode(s) == ModeChat {
		return ModeChat
	}
	return ModeRandom
}

type Choice string

const (
	ChoiceTruth Choice = "Truth"
	ChoiceDare  Choice = "Dare"
)

func parseChoice(s string) (Choice, bool) {
	switch Choice(s) {
	case ChoiceTruth:
		return ChoiceTruth, true
	case ChoiceDare:
		return ChoiceDare, true
	}
	return "", false
}

type RoomState int

const (
	RoomWaiting RoomState = iota // waiting for player 2
	RoomReady                    // both joined, rules screen up
	RoomActive                   // game in progress
	RoomEnded                    // recap sent, room about to be deleted
)

func (s RoomState) String() string {
	switch s {
	case RoomWaiting:
		return "waiting"
	case RoomReady:
		return "ready"
	case RoomActive:
		return "active"
	case RoomEnded:
		return "ended"
	}
	return "unknown"
}

// Participant binds a display name and player number to a transport
// connection. The number is assigned by join order and never reassigned.
type Participant struct {
	client *Client
	Name   string
	Number int
}

type ChatEntry struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

// Stats counters are monotonically non-decreasing and only ever mutated
// by SelectChoice, so rounds == truthCount + dareCount always holds.
type Stats struct {
	Rounds      int `json:"rounds"`
	TruthCount  int `json:"truthCount"`
	DareCount   int `json:"dareCount"`
	StartedByP1 int `json:"startedByP1"`
	StartedByP2 int `json:"startedByP2"`
}

type Room struct {
	code        string
	tone        Tone
	mode        GameMode
	state       RoomState
	players     []*Participant
	currentTurn int
	ready       map[int]bool
	used        map[string]bool
	stats       Stats
	messages    []ChatEntry
	vibes       map[int]float64

	createdAt  time.Time
	lastActive time.Time

	// Incremented whenever the turn clock restarts, so a stale
	// server-side timer can recognize it has been superseded.
	timerGen int
}

func newRoom(code string, tone Tone, mode GameMode) *Room {
	now := time.Now()
	return &Room{
		code:        code,
		tone:        tone,
		mode:        mode,
		state:       RoomWaiting,
		players:     make([]*Participant, 0, 2),
		currentTurn: 1,
		ready:       make(map[int]bool),
		used:        make(map[string]bool),
		vibes:       make(map[int]float64),
		createdAt:   now,
		lastActive:  now,
	}
}

func (r *Room) touch() {
	r.lastActive = time.Now()
}

// join adds a participant and assigns the next player number. The creator
// is always player 1; the first successful joiner is player 2 and flips
// the room to the ready (rules) state.
func (r *Room) join(c *Client, name string) (*Participant, error) {
	if len(r.players) >= 2 {
		return nil, ErrRoomFull
	}

	p := &Participant{
		client: c,
		Name:   name,
		Number: len(r.players) + 1,
	}
	r.players = append(r.players, p)

	if len(r.players) == 2 {
		r.state = RoomReady
	}

	r.touch()

	return p, nil
}

// participantByClient resolves the sender's membership; the client-supplied
// playerNumber in payloads is never trusted.
func (r *Room) participantByClient(id string) (*Participant, bool) {
	for _, p := range r.players {
		if p.client != nil && p.client.id == id {
			return p, true
		}
	}
	return nil, false
}

func (r *Room) other(number int) *Participant {
	for _, p := range r.players {
		if p.Number != number {
			return p
		}
	}
	return nil
}

// markReady records a readiness signal. Redundant signals from the same
// player only re-set the flag; the transition to active fires exactly once,
// when both players are ready.
func (r *Room) markReady(number int) bool {
	r.touch()

	if r.state != RoomReady {
		return false
	}

	r.ready[number] = true

	if r.ready[1] && r.ready[2] {
		r.state = RoomActive
		return true
	}

	return false
}

// selectChoice applies a Truth/Dare pick by the player whose turn it is,
// accruing the round counters. Picks from the other player are rejected
// without touching stats.
func (r *Room) selectChoice(number int, choice Choice) error {
	r.touch()

	if r.state != RoomActive {
		return ErrNotActive
	}
	if number != r.currentTurn {
		return ErrOutOfTurn
	}

	r.stats.Rounds++
	switch choice {
	case ChoiceTruth:
		r.stats.TruthCount++
	case ChoiceDare:
		r.stats.DareCount++
	}
	if number == 1 {
		r.stats.StartedByP1++
	} else {
		r.stats.StartedByP2++
	}

	r.timerGen++

	return nil
}

// advanceTurn flips the turn between 1 and 2. Either player may request it.
func (r *Room) advanceTurn() int {
	r.touch()

	if r.currentTurn == 1 {
		r.currentTurn = 2
	} else {
		r.currentTurn = 1
	}

	r.timerGen++

	return r.currentTurn
}

func (r *Room) appendMessage(text, sender string) ChatEntry {
	r.touch()

	entry := ChatEntry{
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	r.messages = append(r.messages, entry)

	return entry
}

// setVibe stores a transient 0-1 mood value per player, clamped to range.
// Vibes never touch the round stats.
func (r *Room) setVibe(number int, vibe float64) float64 {
	r.touch()

	if vibe < 0 {
		vibe = 0
	}
	if vibe > 1 {
		vibe = 1
	}
	r.vibes[number] = vibe

	return vibe
}

func (r *Room) markUsed(prompt string) {
	r.used[prompt] = true
}

func (r *Room) playerInfo() []PlayerInfo {
	out := make([]PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		info := PlayerInfo{
			Name:         p.Name,
			PlayerNumber: p.Number,
		}
		if p.client != nil {
			info.ID = p.client.id
		}
		out = append(out, info)
	}
	return out
}
