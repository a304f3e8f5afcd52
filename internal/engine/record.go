package engine

import (
	"fmt"
	"regexp"
	"strings"

	"chessduel/internal/board"
)

// MoveRecord is one history entry: the printable notation plus the facts
// Undo needs to reverse the move.
type MoveRecord struct {
	Notation   string       `json:"notation"`
	Mover      board.Color  `json:"mover"`
	Origin     board.Square `json:"origin"`
	Target     board.Square `json:"target"`
	Kind       MoveKind     `json:"kind"`
	Moved      board.Piece  `json:"moved"`
	Placed     board.Piece  `json:"placed"`
	Captured   board.Piece  `json:"captured"`
	CapturedAt board.Square `json:"capturedAt"`
	RookOrigin board.Square `json:"rookOrigin"`
	RookTarget board.Square `json:"rookTarget"`
	Check      bool         `json:"check"`
}

// ResetsClock reports whether the move resets the half-move clock.
func (r MoveRecord) ResetsClock() bool {
	return r.Moved == board.Pawn || r.Captured.IsReal()
}

const (
	castleShort    = "0-0"
	castleLong     = "0-0-0"
	checkMarker    = "+"
	enPassantMark  = " e.p."
	captureMarker  = "x"
	quietSeparator = "-"
)

var notationPattern = regexp.MustCompile(`^([NBRQK]?)([a-h][1-8])(-|x([NBRQK]?))([a-h][1-8])(?:=([NBRQ]))?$`)

// DecodeNotation rebuilds a move record from its history text. mover is the
// color that played the move.
func DecodeNotation(text string, mover board.Color) (MoveRecord, error) {
	rec := MoveRecord{
		Notation:   text,
		Mover:      mover,
		Captured:   board.Empty,
		CapturedAt: board.NoSquare,
		RookOrigin: board.NoSquare,
		RookTarget: board.NoSquare,
	}
	if !mover.IsPlayer() {
		return rec, fmt.Errorf("%w: %q has no mover", ErrNotation, text)
	}

	body := text
	if strings.HasSuffix(body, checkMarker) {
		rec.Check = true
		body = strings.TrimSuffix(body, checkMarker)
	}

	lane := castleLanes[mover.Index()]
	switch body {
	case castleShort, castleLong:
		l := lane[Kingside]
		if body == castleLong {
			l = lane[Queenside]
		}
		rec.Origin, rec.Target, rec.Kind = l.kingHome, l.land, l.kind
		rec.Moved, rec.Placed = board.King, board.King
		rec.RookOrigin, rec.RookTarget = l.rookHome, l.rookTo
		return rec, nil
	}

	if strings.HasSuffix(body, enPassantMark) {
		parts := strings.Split(strings.TrimSuffix(body, enPassantMark), captureMarker)
		if len(parts) != 2 {
			return rec, fmt.Errorf("%w: %q", ErrNotation, text)
		}
		origin, err1 := board.ParseSquare(parts[0])
		target, err2 := board.ParseSquare(parts[1])
		if err1 != nil || err2 != nil {
			return rec, fmt.Errorf("%w: %q", ErrNotation, text)
		}
		rec.Origin, rec.Target, rec.Kind = origin, target, EnPassant
		rec.Moved, rec.Placed = board.Pawn, board.Pawn
		rec.Captured, rec.CapturedAt = board.Pawn, target.Offset(-mover.Forward())
		return rec, nil
	}

	m := notationPattern.FindStringSubmatch(body)
	if m == nil {
		return rec, fmt.Errorf("%w: %q", ErrNotation, text)
	}

	rec.Moved = board.Pawn
	if m[1] != "" {
		rec.Moved, _ = board.PieceFromLetter(rune(m[1][0]))
	}
	rec.Origin, _ = board.ParseSquare(m[2])
	rec.Target, _ = board.ParseSquare(m[5])
	rec.Placed = rec.Moved

	capture := strings.HasPrefix(m[3], captureMarker)
	if capture {
		rec.Captured, rec.CapturedAt = board.Pawn, rec.Target
		if m[4] != "" {
			rec.Captured, _ = board.PieceFromLetter(rune(m[4][0]))
		}
	}

	switch {
	case m[6] != "":
		if rec.Moved != board.Pawn {
			return rec, fmt.Errorf("%w: %q promotes a non-pawn", ErrNotation, text)
		}
		rec.Placed, _ = board.PieceFromLetter(rune(m[6][0]))
		rec.Kind = Promote
		if capture {
			rec.Kind = PromoteCapture
		}
	case capture:
		rec.Kind = Capture
	case rec.Moved == board.Pawn && abs(rec.Target.Rank()-rec.Origin.Rank()) == 2:
		rec.Kind = DoubleForward
	default:
		rec.Kind = Quiet
	}
	return rec, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
