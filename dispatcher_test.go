package main

import (
	"slices"
	"testing"
	"time"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	prompts, err := loadPrompts()
	if err != nil {
		t.Fatal(err)
	}

	cfg := &Config{sessionTimeout: time.Hour}

	return newDispatcher(cfg, newRegistry(), prompts)
}

// nextMessage pops the next queued outbound message for a client. Handlers
// run synchronously in these tests, so anything broadcast is already in
// the send buffer.
func nextMessage(t *testing.T, c *Client) any {
	t.Helper()

	select {
	case msg := <-c.send:
		return msg
	default:
		t.Fatal("no message queued")
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()

	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message queued: %+v", msg)
	default:
	}
}

func createRoom(t *testing.T, d *Dispatcher, c *Client, name, tone, mode string) string {
	t.Helper()

	d.dispatch(event{client: c, msg: CreateRoomMessage{PlayerName: name, Tone: tone, GameMode: mode}})

	created, ok := nextMessage(t, c).(RoomCreatedMessage)
	if !ok {
		t.Fatal("expected room_created")
	}
	if created.PlayerNumber != 1 {
		t.Fatalf("creator expected number 1, got %d", created.PlayerNumber)
	}

	return created.RoomCode
}

func joinRoom(t *testing.T, d *Dispatcher, c *Client, code, name string) {
	t.Helper()

	d.dispatch(event{client: c, msg: JoinRoomMessage{RoomCode: code, PlayerName: name}})

	joined, ok := nextMessage(t, c).(RoomJoinedMessage)
	if !ok {
		t.Fatal("expected room_joined")
	}
	if joined.PlayerNumber != 2 {
		t.Fatalf("joiner expected number 2, got %d", joined.PlayerNumber)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	d := newTestDispatcher(t)
	c := testClient("c1")

	d.dispatch(event{client: c, msg: CreateRoomMessage{}})
	errMsg, ok := nextMessage(t, c).(ErrorMessage)
	if !ok || errMsg.Message != ErrEmptyInput.Error() {
		t.Fatalf("expected empty-input error, got %+v", errMsg)
	}
	if d.registry.count() != 0 {
		t.Fatal("failed create registered a room")
	}

	createRoom(t, d, c, "ana", "", "")

	// One room per connection.
	d.dispatch(event{client: c, msg: CreateRoomMessage{PlayerName: "ana"}})
	errMsg, ok = nextMessage(t, c).(ErrorMessage)
	if !ok || errMsg.Message != ErrAlreadyInRoom.Error() {
		t.Fatalf("expected already-in-room error, got %+v", errMsg)
	}
	if d.registry.count() != 1 {
		t.Fatalf("expected 1 room, got %d", d.registry.count())
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	d := newTestDispatcher(t)
	c := testClient("c1")

	d.dispatch(event{client: c, msg: JoinRoomMessage{RoomCode: "NOPE99", PlayerName: "bo"}})

	errMsg, ok := nextMessage(t, c).(ErrorMessage)
	if !ok || errMsg.Message != ErrRoomNotFound.Error() {
		t.Fatalf("expected room-not-found error, got %+v", errMsg)
	}
}

func TestJoinFullRoom(t *testing.T) {
	d := newTestDispatcher(t)
	c1 := testClient("c1")
	c2 := testClient("c2")
	c3 := testClient("c3")

	code := createRoom(t, d, c1, "ana", "", "")
	joinRoom(t, d, c2, code, "bo")

	d.dispatch(event{client: c3, msg: JoinRoomMessage{RoomCode: code, PlayerName: "cleo"}})

	errMsg, ok := nextMessage(t, c3).(ErrorMessage)
	if !ok || errMsg.Message != ErrRoomFull.Error() {
		t.Fatalf("expected room-full error, got %+v", errMsg)
	}

	room, _ := d.registry.get(code)
	if len(room.players) != 2 {
		t.Fatalf("failed join mutated the room: %d players", len(room.players))
	}
}

// Full happy path from create through the first dare, per the reference
// protocol: game_ready on join, start_game once both confirm, then a
// choice pick that accrues stats and draws a spicy prompt.
func TestGameFlow(t *testing.T) {
	d := newTestDispatcher(t)
	c1 := testClient("c1")
	c2 := testClient("c2")

	code := createRoom(t, d, c1, "ana", "SPICY", "RANDOM")
	joinRoom(t, d, c2, code, "bo")

	for _, c := range []*Client{c1, c2} {
		ready, ok := nextMessage(t, c).(GameReadyMessage)
		if !ok {
			t.Fatal("expected game_ready")
		}
		if len(ready.Players) != 2 || ready.CurrentTurn != 1 || ready.Tone != ToneSpicy {
			t.Fatalf("wrong game_ready: %+v", ready)
		}
	}

	d.dispatch(event{client: c1, msg: PlayerReadyMessage{RoomCode: code}})
	assertNoMessage(t, c1)
	assertNoMessage(t, c2)

	d.dispatch(event{client: c2, msg: PlayerReadyMessage{RoomCode: code}})

	for _, c := range []*Client{c1, c2} {
		start, ok := nextMessage(t, c).(StartGameMessage)
		if !ok {
			t.Fatal("expected start_game")
		}
		if start.CurrentTurn != 1 || start.Tone != ToneSpicy {
			t.Fatalf("wrong start_game: %+v", start)
		}
	}

	d.dispatch(event{client: c1, msg: SelectChoiceMessage{RoomCode: code, Choice: "Dare"}})

	room, _ := d.registry.get(code)
	want := Stats{Rounds: 1, TruthCount: 0, DareCount: 1, StartedByP1: 1, StartedByP2: 0}
	if room.stats != want {
		t.Fatalf("wrong stats expected: %+v got: %+v", want, room.stats)
	}

	for _, c := range []*Client{c1, c2} {
		selected, ok := nextMessage(t, c).(ChoiceSelectedMessage)
		if !ok {
			t.Fatal("expected choice_selected")
		}
		if selected.Choice != ChoiceDare || selected.PlayerName != "ana" {
			t.Fatalf("wrong choice_selected: %+v", selected)
		}

		question, ok := nextMessage(t, c).(QuestionMessage)
		if !ok {
			t.Fatal("expected random_question")
		}
		if !slices.Contains(d.prompts.pools[ToneSpicy].Dares, question.Question) {
			t.Fatalf("prompt %q not from the spicy dare pool", question.Question)
		}
		if !room.used[question.Question] {
			t.Fatal("served prompt not recorded as used")
		}
	}
}

func TestSelectChoiceOutOfTurnRejected(t *testing.T) {
	d := newTestDispatcher(t)
	c1 := testClient("c1")
	c2 := testClient("c2")

	code := startedGame(t, d, c1, c2)

	// A spoofed playerNumber must not help: identity comes from the
	// connection, and it is player 1's turn.
	d.dispatch(event{client: c2, msg: SelectChoiceMessage{RoomCode: code, Choice: "Dare", PlayerNumber: 1}})

	errMsg, ok := nextMessage(t, c2).(ErrorMessage)
	if !ok || errMsg.Message != ErrOutOfTurn.Error() {
		t.Fatalf("expected out-of-turn error, got %+v", errMsg)
	}
	assertNoMessage(t, c1)

	room, _ := d.registry.get(code)
	if room.stats != (Stats{}) {
		t.Fatalf("rejected pick mutated stats: %+v", room.stats)
	}
}

func TestNextTurnBroadcast(t *testing.T) {
	d := newTestDispatcher(t)
	c1 := testClient("c1")
	c2 := testClient("c2")

	code := startedGame(t, d, c1, c2)

	// Either player may pass the turn, including the one not holding it.
	d.dispatch(event{client: c2, msg: NextTurnMessage{RoomCode: code}})

	for _, c := range []*Client{c1, c2} {
		changed, ok := nextMessage(t, c).(TurnChangedMessage)
		if !ok || changed.CurrentTurn != 2 {
			t.Fatalf("expected turn_changed to 2, got %+v", changed)
		}
	}

	d.dispatch(event{client: c1, msg: NextTurnMessage{RoomCode: code}})

	for _, c := range []*Client{c1, c2} {
		changed, ok := nextMessage(t, c).(TurnChangedMessage)
		if !ok || changed.CurrentTurn != 1 {
			t.Fatalf("expected turn_changed back to 1, got %+v", changed)
		}
	}
}

func TestChatBroadcast(t *testing.T) {
	d := newTestDispatcher(t)
	c1 := testClient("c1")
	c2 := testClient("c2")

	code := createRoomPair(t, d, c1, c2)

	d.dispatch(event{client: c1, msg: ChatMessage{RoomCode: code, Message: "truth or dare?"}})

	for _, c := range []*Client{c1, c2} {
		received, ok := nextMessage(t, c).(ReceiveMessage)
		if !ok {
			t.Fatal("expected receive_message")
		}
		if received.Text != "truth or dare?" || received.Sender != "ana" {
			t.Fatalf("wrong chat entry: %+v", received)
		}
		if _, err := time.Parse(time.RFC3339, received.Timestamp); err != nil {
			t.Errorf("bad timestamp %q: %v", received.Timestamp, err)
		}
	}

	room, _ := d.registry.get(code)
	if len(room.messages) != 1 {
		t.Fatalf("message log holds %d entries", len(room.messages))
	}
}

func TestTypingExcludesSender(t *testing.T) {
	d := newTestDispatcher(t)
	c1 := testClient("c1")
	c2 := testClient("c2")

	code := createRoomPair(t, d, c1, c2)

	d.dispatch(event{client: c1, msg: TypingMessage{RoomCode: code}})

	notice, ok := nextMessage(t, c2).(TypingNoticeMessage)
	if !ok || notice.PlayerName != "ana" {
		t.Fatalf("expected typing notice from ana, got %+v", notice)
	}
	assertNoMessage(t, c1)
}

func TestVibeUpdateClampedAndBroadcast(t *testing.T) {
	d := newTestDispatcher(t)
	c1 := testClient("c1")
	c2 := testClient("c2")

	code := createRoomPair(t, d, c1, c2)

	// Spoofed playerNumber; the bound one (2) must win.
	d.dispatch(event{client: c2, msg: VibeUpdateMessage{RoomCode: code, PlayerNumber: 1, Vibe: 2.5}})

	for _, c := range []*Client{c1, c2} {
		changed, ok := nextMessage(t, c).(VibeChangedMessage)
		if !ok {
			t.Fatal("expected vibe_changed")
		}
		if changed.PlayerNumber != 2 || changed.Vibe != 1 {
			t.Fatalf("wrong vibe_changed: %+v", changed)
		}
	}
}

func TestEndGameSendsRecapAndDeletesRoom(t *testing.T) {
	d := newTestDispatcher(t)
	c1 := testClient("c1")
	c2 := testClient("c2")

	code := startedGame(t, d, c1, c2)

	d.dispatch(event{client: c1, msg: SelectChoiceMessage{RoomCode: code, Choice: "Dare"}})
	drainClient(c1)
	drainClient(c2)

	d.dispatch(event{client: c2, msg: EndGameMessage{RoomCode: code}})

	for _, c := range []*Client{c1, c2} {
		over, ok := nextMessage(t, c).(GameOverMessage)
		if !ok {
			t.Fatal("expected game_over")
		}
		if over.Recap.Rounds != 1 || over.Recap.Verdict != VerdictP1Brutal {
			t.Fatalf("wrong recap: %+v", over.Recap)
		}
		if over.Brutal != "Most brutal: Player 1" {
			t.Fatalf("wrong brutal line: %q", over.Brutal)
		}
	}

	if _, ok := d.registry.get(code); ok {
		t.Fatal("room survived end_game")
	}

	// Both connections are free again.
	createRoom(t, d, c1, "ana", "", "")
}

func TestDisconnectDeletesRoom(t *testing.T) {
	d := newTestDispatcher(t)
	c1 := testClient("c1")
	c2 := testClient("c2")

	code := createRoomPair(t, d, c1, c2)

	d.dispatch(event{client: c2, msg: clientGone{}})

	left, ok := nextMessage(t, c1).(PlayerLeftMessage)
	if !ok || left.PlayerName != "bo" {
		t.Fatalf("expected player_left for bo, got %+v", left)
	}

	if _, ok := d.registry.get(code); ok {
		t.Fatal("room survived disconnect")
	}

	// No recap on disconnect, and nothing else queued for the survivor.
	assertNoMessage(t, c1)

	// Actions against the dead code fail cleanly.
	d.dispatch(event{client: c1, msg: NextTurnMessage{RoomCode: code}})
	errMsg, ok := nextMessage(t, c1).(ErrorMessage)
	if !ok || errMsg.Message != ErrRoomNotFound.Error() {
		t.Fatalf("expected room-not-found error, got %+v", errMsg)
	}

	// A second disconnect for the same connection is a no-op.
	d.dispatch(event{client: c2, msg: clientGone{}})
}

func TestDisconnectSoloRoomPolicy(t *testing.T) {
	t.Run("default deletes", func(t *testing.T) {
		d := newTestDispatcher(t)
		c1 := testClient("c1")

		code := createRoom(t, d, c1, "ana", "", "")
		d.dispatch(event{client: c1, msg: clientGone{}})

		if _, ok := d.registry.get(code); ok {
			t.Fatal("solo room survived disconnect without keep-solo-rooms")
		}
	})

	t.Run("keep-solo-rooms retains", func(t *testing.T) {
		d := newTestDispatcher(t)
		d.cfg.keepSoloRooms = true
		c1 := testClient("c1")

		code := createRoom(t, d, c1, "ana", "", "")
		d.dispatch(event{client: c1, msg: clientGone{}})

		room, ok := d.registry.get(code)
		if !ok {
			t.Fatal("solo room deleted despite keep-solo-rooms")
		}
		if len(room.players) != 1 || room.players[0].client != nil {
			t.Fatalf("unexpected room membership: %+v", room.players)
		}
	})
}

func TestTurnExpiry(t *testing.T) {
	d := newTestDispatcher(t)
	d.cfg.turnTimer = time.Minute
	c1 := testClient("c1")
	c2 := testClient("c2")

	code := startedGame(t, d, c1, c2)
	room, _ := d.registry.get(code)

	d.dispatch(event{msg: turnExpired{code: code, gen: room.timerGen}})

	for _, c := range []*Client{c1, c2} {
		changed, ok := nextMessage(t, c).(TurnChangedMessage)
		if !ok || changed.CurrentTurn != 2 {
			t.Fatalf("expected timer-driven turn_changed to 2, got %+v", changed)
		}
	}

	// A stale generation, e.g. after a pick restarted the clock, is ignored.
	d.dispatch(event{msg: turnExpired{code: code, gen: room.timerGen - 1}})
	assertNoMessage(t, c1)
	assertNoMessage(t, c2)

	// So is a timer for a room that no longer exists.
	d.registry.delete(code)
	d.dispatch(event{msg: turnExpired{code: code, gen: room.timerGen}})
}

func TestReapIdleRooms(t *testing.T) {
	d := newTestDispatcher(t)
	c1 := testClient("c1")
	c2 := testClient("c2")

	code := createRoomPair(t, d, c1, c2)

	fresh := createRoom(t, d, testClient("c3"), "cleo", "", "")

	room, _ := d.registry.get(code)
	room.lastActive = time.Now().Add(-2 * d.cfg.sessionTimeout)

	d.dispatch(event{msg: reapTick{}})

	if _, ok := d.registry.get(code); ok {
		t.Fatal("idle room survived the reaper")
	}
	if _, ok := d.registry.get(fresh); !ok {
		t.Fatal("reaper collected an active room")
	}

	for _, c := range []*Client{c1, c2} {
		errMsg, ok := nextMessage(t, c).(ErrorMessage)
		if !ok || errMsg.Message != "Session timed out" {
			t.Fatalf("expected timeout notice, got %+v", errMsg)
		}
	}
}

// createRoomPair stands up a two-player room and drains the join
// handshake so tests start from a quiet queue.
func createRoomPair(t *testing.T, d *Dispatcher, c1, c2 *Client) string {
	t.Helper()

	code := createRoom(t, d, c1, "ana", "", "CHAT")
	joinRoom(t, d, c2, code, "bo")
	drainClient(c1)
	drainClient(c2)

	return code
}

// startedGame additionally walks both players through the readiness
// handshake.
func startedGame(t *testing.T, d *Dispatcher, c1, c2 *Client) string {
	t.Helper()

	code := createRoom(t, d, c1, "ana", "SPICY", "RANDOM")
	joinRoom(t, d, c2, code, "bo")
	d.dispatch(event{client: c1, msg: PlayerReadyMessage{RoomCode: code}})
	d.dispatch(event{client: c2, msg: PlayerReadyMessage{RoomCode: code}})
	drainClient(c1)
	drainClient(c2)

	return code
}

func drainClient(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}
