package rules

import (
	"strings"
	"testing"
)

func TestApplyMove_UCI_SAN_Illegal(t *testing.T) {
	b, err := Load(StartFEN())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	san, err := b.ApplyMove("e2e4")
	if err != nil {
		t.Fatalf("ApplyMove UCI: %v", err)
	}
	if san != "e4" {
		t.Fatalf("expected SAN e4, got %q", san)
	}
	if b.Turn() != "b" {
		t.Fatalf("expected black to move, got %q", b.Turn())
	}

	san2, err := b.ApplyMove("Nc6")
	if err != nil {
		t.Fatalf("ApplyMove SAN: %v", err)
	}
	if san2 != "Nc6" {
		t.Fatalf("expected SAN Nc6, got %q", san2)
	}

	if _, err := b.ApplyMove("zz9"); err == nil {
		t.Fatalf("expected error for garbage move")
	}
	if _, err := b.ApplyMove("e2e4"); err == nil {
		t.Fatalf("expected error for illegal move")
	}
}

func TestCheckmateDetection(t *testing.T) {
	b, err := Load(StartFEN())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, mv := range []string{"f3", "e5", "g4", "Qh4#"} {
		if _, err := b.ApplyMove(mv); err != nil {
			t.Fatalf("ApplyMove %s: %v", mv, err)
		}
	}
	if !b.IsCheckmate() {
		t.Fatalf("expected checkmate after fool's mate")
	}
	if b.IsStalemate() {
		t.Fatalf("checkmate misreported as stalemate")
	}
	hist := b.MoveHistory()
	if len(hist) != 4 || hist[3] != "Qh4#" {
		t.Fatalf("unexpected history: %v", hist)
	}
}

func TestStalemateDetection(t *testing.T) {
	// Black king on a8, white queen to c7 next stalemates.
	b, err := Load("k7/8/2K5/8/8/8/8/2Q5 w - - 0 1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := b.ApplyMove("c1c7"); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if !b.IsStalemate() {
		t.Fatalf("expected stalemate, fen=%s", b.FEN())
	}
	if b.IsCheckmate() {
		t.Fatalf("stalemate misreported as checkmate")
	}
}

func TestLoadFromMidgameFEN(t *testing.T) {
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	b, err := Load(fen)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Turn() != "b" {
		t.Fatalf("expected black to move, got %q", b.Turn())
	}
	if _, err := b.ApplyMove("e7e5"); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if !strings.HasPrefix(b.FEN(), "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w") {
		t.Fatalf("unexpected FEN after move: %s", b.FEN())
	}
}
