// Package rules adapts the chess library behind the narrow oracle surface the
// lifecycle controller needs: load a position, apply a move token, query the
// terminal predicates. Rule internals (legality, check detection) stay in the
// library.
package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var ErrIllegalMove = errors.New("illegal move")

// Board is a mutable position loaded from a FEN string.
type Board struct {
	game *nchess.Game
}

// Load builds a board from a FEN position. An empty string or "startpos"
// yields the standard start position.
func Load(fen string) (*Board, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return &Board{game: nchess.NewGame()}, nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("load position: %w", err)
	}
	return &Board{game: nchess.NewGame(opt)}, nil
}

// StartFEN returns the standard starting position.
func StartFEN() string {
	return nchess.NewGame().FEN()
}

// ApplyMove applies a move token (UCI preferred, SAN fallback) and returns its
// SAN notation. Returns ErrIllegalMove when the token does not decode to a
// legal move in the current position.
func (b *Board) ApplyMove(token string) (string, error) {
	raw := strings.TrimSpace(token)
	if raw == "" {
		return "", ErrIllegalMove
	}
	pos := b.game.Position()

	uci := strings.ToLower(raw)
	if mv, derr := (nchess.UCINotation{}).Decode(pos, uci); derr == nil {
		if err := b.game.Move(mv, nil); err != nil {
			return "", ErrIllegalMove
		}
		return nchess.AlgebraicNotation{}.Encode(pos, mv), nil
	}

	if err := b.game.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil); err != nil {
		return "", ErrIllegalMove
	}
	moves := b.game.Moves()
	if len(moves) == 0 {
		return "", ErrIllegalMove
	}
	last := moves[len(moves)-1]
	return nchess.AlgebraicNotation{}.Encode(pos, last), nil
}

func (b *Board) IsCheckmate() bool {
	return b.game.Method() == nchess.Checkmate
}

func (b *Board) IsStalemate() bool {
	return b.game.Method() == nchess.Stalemate
}

// IsOtherDraw reports automatic draw conditions beyond stalemate
// (insufficient material, repetition, move-count rules).
func (b *Board) IsOtherDraw() bool {
	return b.game.Outcome() == nchess.Draw && b.game.Method() != nchess.Stalemate
}

func (b *Board) FEN() string { return b.game.FEN() }

// Turn returns "w" or "b" for the side to move next.
func (b *Board) Turn() string {
	if b.game.Position().Turn() == nchess.White {
		return "w"
	}
	return "b"
}

// MoveHistory returns the SAN sequence from the loaded position.
func (b *Board) MoveHistory() []string {
	moves := b.game.Moves()
	if len(moves) == 0 {
		return nil
	}
	positions := b.game.Positions()
	out := make([]string, 0, len(moves))
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		out = append(out, nchess.AlgebraicNotation{}.Encode(positions[i], mv))
	}
	return out
}
