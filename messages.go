package main

import (
	"encoding/json"
	"errors"
)

// Messages coming from clients. Each event kind gets its own struct so
// malformed or mistyped payloads are rejected at the boundary instead of
// leaking into the state machine.

type CreateRoomMessage struct {
	PlayerName string `json:"playerName"`
	Tone       string `json:"tone"`
	GameMode   string `json:"gameMode"`
}

type JoinRoomMessage struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type ChatMessage struct {
	RoomCode   string `json:"roomCode"`
	Message    string `json:"message"`
	SenderName string `json:"senderName"`
}

type SelectChoiceMessage struct {
	RoomCode   string `json:"roomCode"`
	Choice     string `json:"choice"`
	PlayerName string `json:"playerName"`
	// Advisory only; the server derives the real number from the
	// connection bound at join time.
	PlayerNumber int `json:"playerNumber"`
}

type NextTurnMessage struct {
	RoomCode string `json:"roomCode"`
}

type TypingMessage struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type VibeUpdateMessage struct {
	RoomCode     string  `json:"roomCode"`
	PlayerNumber int     `json:"playerNumber"`
	Vibe         float64 `json:"vibe"`
}

type RandomQuestionMessage struct {
	RoomCode string `json:"roomCode"`
	Choice   string `json:"choice"`
}

type PlayerReadyMessage struct {
	RoomCode     string `json:"roomCode"`
	PlayerNumber int    `json:"playerNumber"`
}

type EndGameMessage struct {
	RoomCode string `json:"roomCode"`
}

var errUnknownType = errors.New("unknown message type")

func unmarshalAs[T any](data []byte) (T, error) {
	var parsed T
	err := json.Unmarshal(data, &parsed)
	return parsed, err
}

// decodeClientMessage parses the tagged envelope and returns one of the
// typed inbound message structs, or errUnknownType for anything outside
// the closed set.
func decodeClientMessage(data []byte) (any, error) {
	envelope, err := unmarshalAs[struct {
		Type string `json:"type"`
	}](data)
	if err != nil {
		return nil, err
	}

	switch envelope.Type {
	case "create_room":
		return unmarshalAs[CreateRoomMessage](data)
	case "join_room":
		return unmarshalAs[JoinRoomMessage](data)
	case "send_message":
		return unmarshalAs[ChatMessage](data)
	case "select_choice":
		return unmarshalAs[SelectChoiceMessage](data)
	case "next_turn":
		return unmarshalAs[NextTurnMessage](data)
	case "typing":
		return unmarshalAs[TypingMessage](data)
	case "vibe_update":
		return unmarshalAs[VibeUpdateMessage](data)
	case "get_random_question":
		return unmarshalAs[RandomQuestionMessage](data)
	case "player_ready":
		return unmarshalAs[PlayerReadyMessage](data)
	case "end_game":
		return unmarshalAs[EndGameMessage](data)
	default:
		return nil, errUnknownType
	}
}

// Messages sent to clients.

type PlayerInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PlayerNumber int    `json:"playerNumber"`
}

type RoomCreatedMessage struct {
	Type         string `json:"type"` // "room_created"
	RoomCode     string `json:"roomCode"`
	PlayerNumber int    `json:"playerNumber"`
	PlayerName   string `json:"playerName"`
}

type RoomJoinedMessage struct {
	Type         string `json:"type"` // "room_joined"
	RoomCode     string `json:"roomCode"`
	PlayerNumber int    `json:"playerNumber"`
	PlayerName   string `json:"playerName"`
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type GameReadyMessage struct {
	Type        string       `json:"type"` // "game_ready"
	Players     []PlayerInfo `json:"players"`
	CurrentTurn int          `json:"currentTurn"`
	Tone        Tone         `json:"tone"`
}

type StartGameMessage struct {
	Type        string `json:"type"` // "start_game"
	CurrentTurn int    `json:"currentTurn"`
	Tone        Tone   `json:"tone"`
}

type ReceiveMessage struct {
	Type string `json:"type"` // "receive_message"
	ChatEntry
}

type ChoiceSelectedMessage struct {
	Type       string `json:"type"` // "choice_selected"
	Choice     Choice `json:"choice"`
	PlayerName string `json:"playerName"`
}

type QuestionMessage struct {
	Type     string `json:"type"` // "random_question"
	Question string `json:"question"`
	Choice   Choice `json:"choice"`
}

type TurnChangedMessage struct {
	Type        string `json:"type"` // "turn_changed"
	CurrentTurn int    `json:"currentTurn"`
}

type TypingNoticeMessage struct {
	Type       string `json:"type"` // "typing"
	PlayerName string `json:"playerName"`
}

type VibeChangedMessage struct {
	Type         string  `json:"type"` // "vibe_changed"
	PlayerNumber int     `json:"playerNumber"`
	Vibe         float64 `json:"vibe"`
}

type PlayerLeftMessage struct {
	Type       string `json:"type"` // "player_left"
	PlayerName string `json:"playerName"`
}

type GameOverMessage struct {
	Type   string `json:"type"` // "game_over"
	Recap  Recap  `json:"recap"`
	Brutal string `json:"brutal"`
}
