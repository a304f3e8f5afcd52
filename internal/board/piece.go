package board

import "fmt"

// Piece is the content of a grid cell. The zero value is Sentinel, so an
// untouched grid is all border.
type Piece int8

const (
	Sentinel Piece = iota
	Empty
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// RealPieces lists the six piece kinds in value order.
var RealPieces = [6]Piece{Pawn, Knight, Bishop, Rook, Queen, King}

func (p Piece) String() string {
	switch p {
	case Sentinel:
		return "sentinel"
	case Empty:
		return "empty"
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "unknown"
	}
}

// Letter is the upper-case figure letter; pawns have none.
func (p Piece) Letter() string {
	switch p {
	case Knight:
		return "N"
	case Bishop:
		return "B"
	case Rook:
		return "R"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return ""
	}
}

// IsReal reports whether p is one of the six chess pieces.
func (p Piece) IsReal() bool { return p >= Pawn && p <= King }

// IsSlider reports whether p attacks along rays.
func (p Piece) IsSlider() bool { return p == Bishop || p == Rook || p == Queen }

// Slides reports whether a slider of kind p moves along direction d.
func (p Piece) Slides(d Direction) bool {
	switch p {
	case Rook:
		return d.IsOrthogonal()
	case Bishop:
		return d.IsDiagonal()
	case Queen:
		return d.IsOrthogonal() || d.IsDiagonal()
	}
	return false
}

// IsPromotionChoice reports whether a pawn may promote to p.
func (p Piece) IsPromotionChoice() bool {
	return p == Knight || p == Bishop || p == Rook || p == Queen
}

// PieceFromLetter parses a figure letter in either case.
func PieceFromLetter(r rune) (Piece, error) {
	switch r {
	case 'P', 'p':
		return Pawn, nil
	case 'N', 'n':
		return Knight, nil
	case 'B', 'b':
		return Bishop, nil
	case 'R', 'r':
		return Rook, nil
	case 'Q', 'q':
		return Queen, nil
	case 'K', 'k':
		return King, nil
	}
	return Empty, fmt.Errorf("invalid piece letter %q", r)
}

// ParsePiece accepts a piece name ("queen") or a single letter ("q").
func ParsePiece(s string) (Piece, error) {
	for _, p := range RealPieces {
		if p.String() == s {
			return p, nil
		}
	}
	if len(s) == 1 {
		return PieceFromLetter(rune(s[0]))
	}
	return Empty, fmt.Errorf("invalid piece %q", s)
}

func (p Piece) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Piece) UnmarshalText(text []byte) error {
	switch string(text) {
	case "sentinel":
		*p = Sentinel
		return nil
	case "empty", "":
		*p = Empty
		return nil
	}
	v, err := ParsePiece(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Color is the owner of a grid cell.
type Color int8

const (
	ColorSentinel Color = iota
	NoColor
	White
	Black
)

// Colors lists the two playing colors.
var Colors = [2]Color{White, Black}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	case NoColor:
		return "none"
	default:
		return "sentinel"
	}
}

// Letter is "w" or "b" as used in FEN and position keys.
func (c Color) Letter() string {
	if c == Black {
		return "b"
	}
	return "w"
}

// Opponent returns the other playing color.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Index maps White to 0 and Black to 1 for per-color arrays.
func (c Color) Index() int {
	if c == Black {
		return 1
	}
	return 0
}

// Forward is the grid offset of a single pawn step.
func (c Color) Forward() Direction {
	if c == White {
		return -GridWidth
	}
	return GridWidth
}

// IsPlayer reports whether c is White or Black.
func (c Color) IsPlayer() bool { return c == White || c == Black }

// ParseColor accepts "w", "b", "white" or "black".
func ParseColor(s string) (Color, error) {
	switch s {
	case "w", "white":
		return White, nil
	case "b", "black":
		return Black, nil
	}
	return NoColor, fmt.Errorf("invalid color %q", s)
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none", "":
		*c = NoColor
		return nil
	case "sentinel":
		*c = ColorSentinel
		return nil
	}
	v, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
