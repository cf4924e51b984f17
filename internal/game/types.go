package game

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a session. Transitions are monotonic:
// InProgress -> Completed, never back.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Result records why a session completed.
type Result string

const (
	ResultCheckmate     Result = "CHECKMATE"
	ResultStalemate     Result = "STALEMATE"
	ResultDraw          Result = "DRAW"
	ResultResignation   Result = "RESIGNATION"
	ResultTimeout       Result = "TIMEOUT"
	ResultDisconnection Result = "OPPONENT_DISCONNECTION"
)

// Color identifies a seat.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// ColorChoice is a matchmaking side preference.
type ColorChoice string

const (
	ChoiceWhite  ColorChoice = "white"
	ChoiceBlack  ColorChoice = "black"
	ChoiceRandom ColorChoice = "random"
)

func ParseColorChoice(s string) ColorChoice {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return ChoiceWhite
	case "black", "b":
		return ChoiceBlack
	default:
		return ChoiceRandom
	}
}

// Participant is a seat holder: a human user or the built-in engine.
type Participant struct {
	UserID string `json:"user_id,omitempty"`
	Engine bool   `json:"engine,omitempty"`
}

func HumanSeat(userID string) Participant { return Participant{UserID: strings.TrimSpace(userID)} }

func EngineSeat() Participant { return Participant{Engine: true} }

// Is reports whether the participant is the given human user.
func (p Participant) Is(userID string) bool {
	return !p.Engine && p.UserID != "" && p.UserID == userID
}

// Session is the authoritative state of one match, stored as JSON in the
// ephemeral store and owned exclusively by the lifecycle controller.
type Session struct {
	GameID           string       `json:"game_id"`
	White            Participant  `json:"white"`
	Black            Participant  `json:"black"`
	BoardState       string       `json:"board_state"`
	Moves            []string     `json:"moves"`
	Status           Status       `json:"status"`
	Result           Result       `json:"result,omitempty"`
	Winner           *Participant `json:"winner,omitempty"`
	Difficulty       *int         `json:"difficulty,omitempty"`
	TimeLimitMinutes float64      `json:"time_limit_minutes"`
	IsAI             bool         `json:"is_ai,omitempty"`
	AILevel          string       `json:"ai_level,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// SideToMove derives the turn from the FEN side-to-move field.
func (s *Session) SideToMove() Color {
	fields := strings.Fields(s.BoardState)
	if len(fields) > 1 && fields[1] == "b" {
		return Black
	}
	return White
}

func (s *Session) Seat(color Color) Participant {
	if color == Black {
		return s.Black
	}
	return s.White
}

// SeatOf returns the color held by a human user.
func (s *Session) SeatOf(userID string) (Color, bool) {
	if s.White.Is(userID) {
		return White, true
	}
	if s.Black.Is(userID) {
		return Black, true
	}
	return "", false
}

// Opponent returns the other seat relative to a human user.
func (s *Session) Opponent(userID string) Participant {
	if s.White.Is(userID) {
		return s.Black
	}
	return s.White
}

func (s *Session) Timed() bool { return s.TimeLimitMinutes > 0 }

// ClockDuration converts the time limit to a timer duration.
func (s *Session) ClockDuration() time.Duration {
	return time.Duration(s.TimeLimitMinutes * float64(time.Minute))
}
