// Package wire defines the websocket message envelopes. Every frame in both
// directions is a tagged envelope: a type string plus the fields that type
// uses. Field names stay camelCase for client compatibility, and an engine
// seat is rendered as the literal "AI" on the wire only; internally seats are
// typed participants.
package wire

import "github.com/chessmaster/arena/internal/game"

// Inbound message types.
const (
	TypeCreateGame   = "create-game"
	TypeCreateGameAI = "create-game-ai"
	TypeMove         = "move"
	TypeDrawRequest  = "draw-request"
	TypeDrawResponse = "draw-response"
	TypeReact        = "react"
)

// Outbound message types.
const (
	TypeCreateGameResponse = "create-game-response"
	TypeGameStart          = "game-start"
	TypeGameUpdate         = "game-update"
	TypeInvalidMove        = "invalid-move"
	TypePlayerResigned     = "player-resigned"
	TypeDrawOffer          = "draw-offer"
	TypeDrawRejected       = "draw-rejected"
)

// Inbound is the client frame. Type selects which fields are meaningful.
type Inbound struct {
	Type string `json:"type"`

	// create-game / create-game-ai
	Token            string  `json:"token,omitempty"`
	Difficulty       *int    `json:"difficulty,omitempty"`
	TimeLimitMinutes float64 `json:"timeLimit,omitempty"`
	Side             string  `json:"side,omitempty"`
	AILevel          string  `json:"aiDifficulty,omitempty"`

	// move
	Move string `json:"move,omitempty"`

	// draw-response
	Accepted *bool `json:"accepted,omitempty"`

	// react
	Reaction string `json:"reaction,omitempty"`
}

// Outbound is the server frame.
type Outbound struct {
	Type string `json:"type"`

	Game    *SessionSnapshot `json:"game,omitempty"`
	Message string           `json:"message,omitempty"`

	// player-resigned
	ResignedPlayer string `json:"resignedPlayer,omitempty"`
	Winner         string `json:"winner,omitempty"`

	// draw-offer / draw-rejected
	RequesterID string `json:"requesterId,omitempty"`
	ResponderID string `json:"responderId,omitempty"`

	// react pass-through
	Reaction string `json:"reaction,omitempty"`
	SenderID string `json:"senderId,omitempty"`
}

// EngineSeatLabel is how an engine participant appears on the wire.
const EngineSeatLabel = "AI"

// SessionSnapshot is the full game state as clients see it.
type SessionSnapshot struct {
	GameID           string   `json:"gameId"`
	WhiteUser        string   `json:"whiteUser"`
	BlackUser        string   `json:"blackUser"`
	BoardState       string   `json:"boardState"`
	Moves            []string `json:"moves"`
	Status           string   `json:"status"`
	Result           string   `json:"result,omitempty"`
	Winner           string   `json:"winner,omitempty"`
	Difficulty       *int     `json:"difficulty,omitempty"`
	TimeLimitMinutes float64  `json:"timeLimit"`
	IsAI             bool     `json:"isAI"`
	AILevel          string   `json:"aiDifficulty,omitempty"`
}

func seatLabel(p game.Participant) string {
	if p.Engine {
		return EngineSeatLabel
	}
	return p.UserID
}

// Snapshot converts an internal session to its wire form.
func Snapshot(s *game.Session) *SessionSnapshot {
	if s == nil {
		return nil
	}
	snap := &SessionSnapshot{
		GameID:           s.GameID,
		WhiteUser:        seatLabel(s.White),
		BlackUser:        seatLabel(s.Black),
		BoardState:       s.BoardState,
		Moves:            s.Moves,
		Status:           string(s.Status),
		Result:           string(s.Result),
		Difficulty:       s.Difficulty,
		TimeLimitMinutes: s.TimeLimitMinutes,
		IsAI:             s.IsAI,
		AILevel:          s.AILevel,
	}
	if snap.Moves == nil {
		snap.Moves = []string{}
	}
	if s.Winner != nil {
		snap.Winner = seatLabel(*s.Winner)
	}
	return snap
}

func GameStart(s *game.Session) Outbound {
	return Outbound{Type: TypeGameStart, Game: Snapshot(s)}
}

func GameUpdate(s *game.Session) Outbound {
	return Outbound{Type: TypeGameUpdate, Game: Snapshot(s)}
}

func Queued(message string) Outbound {
	return Outbound{Type: TypeCreateGameResponse, Message: message}
}

func InvalidMove(reason string) Outbound {
	return Outbound{Type: TypeInvalidMove, Message: reason}
}

func PlayerResigned(resignedID, winner string) Outbound {
	return Outbound{Type: TypePlayerResigned, ResignedPlayer: resignedID, Winner: winner}
}

func DrawOffer(requesterID string) Outbound {
	return Outbound{Type: TypeDrawOffer, RequesterID: requesterID}
}

func DrawRejected(responderID string) Outbound {
	return Outbound{Type: TypeDrawRejected, ResponderID: responderID}
}

func React(senderID, reaction string) Outbound {
	return Outbound{Type: TypeReact, SenderID: senderID, Reaction: reaction}
}
