// Event dispatcher for the truth-or-dare duel game.
//
// All inbound events for all rooms funnel into one channel consumed by a
// single goroutine, so every handler runs to completion before the next
// event is dequeued. That one goroutine is the sole owner of the registry
// and of every room, which makes intra-room races impossible without any
// locking. The idle reaper and the optional server-side turn timer obey
// the same rule: they inject events into the queue instead of touching
// state themselves.

package main

import (
	"time"
)

type event struct {
	client *Client
	msg    any
}

// clientGone marks the end of a connection, clean or not.
type clientGone struct{}

// turnExpired fires when a server-enforced turn countdown runs out. The
// generation lets a timer recognize it was superseded by a pick or a
// manual turn advance.
type turnExpired struct {
	code string
	gen  int
}

// reapTick asks the dispatcher to sweep idle rooms.
type reapTick struct{}

type Dispatcher struct {
	cfg      *Config
	registry *Registry
	prompts  *PromptSet
	events   chan event
}

func newDispatcher(cfg *Config, registry *Registry, prompts *PromptSet) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		registry: registry,
		prompts:  prompts,
		events:   make(chan event, 256),
	}
}

func (d *Dispatcher) run() {
	for ev := range d.events {
		d.dispatch(ev)
	}
}

// startReaper periodically queues a sweep of rooms idle longer than the
// configured session timeout.
func (d *Dispatcher) startReaper() {
	if d.cfg.sessionTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(d.cfg.sessionTimeout / 2)
	go func() {
		for range ticker.C {
			d.events <- event{msg: reapTick{}}
		}
	}()
}

func (d *Dispatcher) dispatch(ev event) {
	switch msg := ev.msg.(type) {
	case CreateRoomMessage:
		d.handleCreateRoom(ev.client, msg)
	case JoinRoomMessage:
		d.handleJoinRoom(ev.client, msg)
	case ChatMessage:
		d.handleChat(ev.client, msg)
	case SelectChoiceMessage:
		d.handleSelectChoice(ev.client, msg)
	case NextTurnMessage:
		d.handleNextTurn(ev.client, msg)
	case TypingMessage:
		d.handleTyping(ev.client, msg)
	case VibeUpdateMessage:
		d.handleVibeUpdate(ev.client, msg)
	case RandomQuestionMessage:
		d.handleRandomQuestion(ev.client, msg)
	case PlayerReadyMessage:
		d.handlePlayerReady(ev.client, msg)
	case EndGameMessage:
		d.handleEndGame(ev.client, msg)
	case clientGone:
		d.handleDisconnect(ev.client)
	case turnExpired:
		d.handleTurnExpired(msg)
	case reapTick:
		d.reapIdleRooms()
	}
}

func (d *Dispatcher) handleCreateRoom(c *Client, msg CreateRoomMessage) {
	if msg.PlayerName == "" {
		d.sendError(c, ErrEmptyInput)
		return
	}
	if c.room != "" {
		d.sendError(c, ErrAlreadyInRoom)
		return
	}

	room := d.registry.create(normalizeTone(msg.Tone), normalizeMode(msg.GameMode))
	p, err := room.join(c, msg.PlayerName)
	if err != nil {
		d.sendError(c, err)
		return
	}

	c.room = room.code

	d.sendTo(c, RoomCreatedMessage{
		Type:         "room_created",
		RoomCode:     room.code,
		PlayerNumber: p.Number,
		PlayerName:   p.Name,
	})

	logf(d.cfg, "ROOMS: %q created room %s (tone %s, mode %s)", p.Name, room.code, room.tone, room.mode)
}

func (d *Dispatcher) handleJoinRoom(c *Client, msg JoinRoomMessage) {
	if msg.PlayerName == "" || msg.RoomCode == "" {
		d.sendError(c, ErrEmptyInput)
		return
	}
	if c.room != "" {
		d.sendError(c, ErrAlreadyInRoom)
		return
	}

	room, ok := d.registry.get(msg.RoomCode)
	if !ok {
		d.sendError(c, ErrRoomNotFound)
		return
	}

	p, err := room.join(c, msg.PlayerName)
	if err != nil {
		d.sendError(c, err)
		return
	}

	c.room = room.code

	d.sendTo(c, RoomJoinedMessage{
		Type:         "room_joined",
		RoomCode:     room.code,
		PlayerNumber: p.Number,
		PlayerName:   p.Name,
	})

	// Both players are in; put up the rules screen on each side.
	d.broadcast(room, GameReadyMessage{
		Type:        "game_ready",
		Players:     room.playerInfo(),
		CurrentTurn: room.currentTurn,
		Tone:        room.tone,
	})

	logf(d.cfg, "ROOMS: %q joined room %s", p.Name, room.code)
}

func (d *Dispatcher) handleChat(c *Client, msg ChatMessage) {
	room, p, err := d.memberRoom(c, msg.RoomCode)
	if err != nil {
		d.sendError(c, err)
		return
	}
	if msg.Message == "" {
		return
	}

	entry := room.appendMessage(msg.Message, p.Name)

	d.broadcast(room, ReceiveMessage{
		Type:      "receive_message",
		ChatEntry: entry,
	})
}

func (d *Dispatcher) handleSelectChoice(c *Client, msg SelectChoiceMessage) {
	room, p, err := d.memberRoom(c, msg.RoomCode)
	if err != nil {
		d.sendError(c, err)
		return
	}

	choice, ok := parseChoice(msg.Choice)
	if !ok {
		return
	}

	if err := room.selectChoice(p.Number, choice); err != nil {
		d.sendError(c, err)
		return
	}

	d.broadcast(room, ChoiceSelectedMessage{
		Type:       "choice_selected",
		Choice:     choice,
		PlayerName: p.Name,
	})

	logf(d.cfg, "GAME: %s round %d, %q picked %s", room.code, room.stats.Rounds, p.Name, choice)

	if room.mode == ModeRandom {
		d.servePrompt(room, choice)
	}

	d.scheduleTurnTimer(room)
}

func (d *Dispatcher) handleNextTurn(c *Client, msg NextTurnMessage) {
	room, _, err := d.memberRoom(c, msg.RoomCode)
	if err != nil {
		d.sendError(c, err)
		return
	}
	if room.state != RoomActive {
		d.sendError(c, ErrNotActive)
		return
	}

	turn := room.advanceTurn()

	d.broadcast(room, TurnChangedMessage{
		Type:        "turn_changed",
		CurrentTurn: turn,
	})

	d.scheduleTurnTimer(room)
}

func (d *Dispatcher) handleTyping(c *Client, msg TypingMessage) {
	room, p, err := d.memberRoom(c, msg.RoomCode)
	if err != nil {
		return
	}

	// Ephemeral presentation signal: everyone but the sender.
	d.broadcastExcept(room, c, TypingNoticeMessage{
		Type:       "typing",
		PlayerName: p.Name,
	})
}

func (d *Dispatcher) handleVibeUpdate(c *Client, msg VibeUpdateMessage) {
	room, p, err := d.memberRoom(c, msg.RoomCode)
	if err != nil {
		return
	}

	vibe := room.setVibe(p.Number, msg.Vibe)

	d.broadcast(room, VibeChangedMessage{
		Type:         "vibe_changed",
		PlayerNumber: p.Number,
		Vibe:         vibe,
	})
}

func (d *Dispatcher) handleRandomQuestion(c *Client, msg RandomQuestionMessage) {
	room, _, err := d.memberRoom(c, msg.RoomCode)
	if err != nil {
		d.sendError(c, err)
		return
	}
	if room.mode != ModeRandom {
		return
	}

	choice, ok := parseChoice(msg.Choice)
	if !ok {
		return
	}

	d.servePrompt(room, choice)
}

// servePrompt draws an unused prompt for the room's tone and broadcasts
// it. An exhausted pool produces no event.
func (d *Dispatcher) servePrompt(room *Room, choice Choice) {
	prompt, ok := d.prompts.pick(room.tone, choice, room.used)
	if !ok {
		logf(d.cfg, "GAME: %s exhausted the %s/%s pool", room.code, room.tone, choice)
		return
	}

	room.markUsed(prompt)

	d.broadcast(room, QuestionMessage{
		Type:     "random_question",
		Question: prompt,
		Choice:   choice,
	})
}

func (d *Dispatcher) handlePlayerReady(c *Client, msg PlayerReadyMessage) {
	room, p, err := d.memberRoom(c, msg.RoomCode)
	if err != nil {
		d.sendError(c, err)
		return
	}

	if !room.markReady(p.Number) {
		return
	}

	d.broadcast(room, StartGameMessage{
		Type:        "start_game",
		CurrentTurn: room.currentTurn,
		Tone:        room.tone,
	})

	logf(d.cfg, "GAME: %s started", room.code)

	d.scheduleTurnTimer(room)
}

func (d *Dispatcher) handleEndGame(c *Client, msg EndGameMessage) {
	room, _, err := d.memberRoom(c, msg.RoomCode)
	if err != nil {
		d.sendError(c, err)
		return
	}

	recap := makeRecap(room.stats)
	room.state = RoomEnded

	d.broadcast(room, GameOverMessage{
		Type:   "game_over",
		Recap:  recap,
		Brutal: brutalLine(recap.Verdict),
	})

	d.removeRoom(room)

	logf(d.cfg, "GAME: %s over after %d rounds (%s)", room.code, recap.Rounds, recap.Verdict)
}

// handleDisconnect is idempotent: a second disconnect for the same
// connection, or one arriving after its room is already gone, is a no-op.
func (d *Dispatcher) handleDisconnect(c *Client) {
	d.closeClient(c)

	if c.room == "" {
		return
	}

	room, ok := d.registry.get(c.room)
	c.room = ""
	if !ok {
		return
	}

	p, ok := room.participantByClient(c.id)
	if !ok {
		return
	}

	if room.state == RoomWaiting && d.cfg.keepSoloRooms {
		// Policy: a solo room survives its creator leaving, until the
		// idle reaper collects it.
		p.client = nil
		logf(d.cfg, "ROOMS: %s kept after %q left while waiting", room.code, p.Name)
		return
	}

	if other := room.other(p.Number); other != nil {
		d.sendTo(other.client, PlayerLeftMessage{
			Type:       "player_left",
			PlayerName: p.Name,
		})
	}

	d.removeRoom(room)

	logf(d.cfg, "ROOMS: %s removed after %q disconnected", room.code, p.Name)
}

func (d *Dispatcher) handleTurnExpired(msg turnExpired) {
	room, ok := d.registry.get(msg.code)
	if !ok || room.state != RoomActive || room.timerGen != msg.gen {
		return
	}

	turn := room.advanceTurn()

	d.broadcast(room, TurnChangedMessage{
		Type:        "turn_changed",
		CurrentTurn: turn,
	})

	logf(d.cfg, "GAME: %s turn timer expired, now player %d", room.code, turn)

	d.scheduleTurnTimer(room)
}

func (d *Dispatcher) reapIdleRooms() {
	cutoff := time.Now().Add(-d.cfg.sessionTimeout)

	for _, code := range d.registry.idle(cutoff) {
		room, ok := d.registry.get(code)
		if !ok {
			continue
		}

		d.broadcast(room, ErrorMessage{
			Type:    "error",
			Message: "Session timed out",
		})

		d.removeRoom(room)

		logf(d.cfg, "ROOMS: Reaped idle room %s after %s", code, time.Since(room.createdAt).Round(time.Second))
	}
}

// removeRoom deletes the room from the registry and unbinds its
// participants so their connections can host or join a fresh room.
func (d *Dispatcher) removeRoom(room *Room) {
	for _, p := range room.players {
		if p.client != nil {
			p.client.room = ""
		}
	}
	d.registry.delete(room.code)
}

// scheduleTurnTimer arms the optional server-authoritative countdown for
// the current turn. Disabled by default; clients run their own 30s clock.
func (d *Dispatcher) scheduleTurnTimer(room *Room) {
	if d.cfg.turnTimer <= 0 || room.state != RoomActive {
		return
	}

	expiry := turnExpired{code: room.code, gen: room.timerGen}
	time.AfterFunc(d.cfg.turnTimer, func() {
		d.events <- event{msg: expiry}
	})
}

// memberRoom resolves a room by code and verifies the sender is one of its
// two participants. Events are never applied through stale references:
// every event re-resolves its room here.
func (d *Dispatcher) memberRoom(c *Client, code string) (*Room, *Participant, error) {
	room, ok := d.registry.get(code)
	if !ok {
		return nil, nil, ErrRoomNotFound
	}

	p, ok := room.participantByClient(c.id)
	if !ok {
		return nil, nil, ErrRoomNotFound
	}

	return room, p, nil
}

func (d *Dispatcher) sendTo(c *Client, msg any) {
	if c == nil || c.closed {
		return
	}

	select {
	case c.send <- msg:
	default:
		// Slow consumer; drop the connection rather than stall the loop.
		d.closeClient(c)
	}
}

func (d *Dispatcher) broadcast(room *Room, msg any) {
	for _, p := range room.players {
		d.sendTo(p.client, msg)
	}
}

func (d *Dispatcher) broadcastExcept(room *Room, except *Client, msg any) {
	for _, p := range room.players {
		if p.client == except {
			continue
		}
		d.sendTo(p.client, msg)
	}
}

func (d *Dispatcher) sendError(c *Client, err error) {
	d.sendTo(c, ErrorMessage{
		Type:    "error",
		Message: err.Error(),
	})
}

func (d *Dispatcher) closeClient(c *Client) {
	if c == nil || c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
