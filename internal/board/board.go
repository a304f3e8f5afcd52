package board

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

// Board holds the two parallel grid arrays.
type Board struct {
	Pieces [GridSize]Piece
	Colors [GridSize]Color
}

// NewBoard returns a board with every playable square empty and the border
// filled with sentinels.
func NewBoard() Board {
	var b Board
	for _, sq := range Squares {
		b.Pieces[sq] = Empty
		b.Colors[sq] = NoColor
	}
	return b
}

// At returns the piece and color on sq.
func (b *Board) At(sq Square) (Piece, Color) {
	return b.Pieces[sq], b.Colors[sq]
}

func (b *Board) Put(sq Square, c Color, p Piece) {
	b.Pieces[sq] = p
	b.Colors[sq] = c
}

func (b *Board) Clear(sq Square) {
	b.Pieces[sq] = Empty
	b.Colors[sq] = NoColor
}

// IsEmpty reports whether sq is a playable square without a piece.
func (b *Board) IsEmpty(sq Square) bool { return b.Pieces[sq] == Empty }

// CanPassAt reports whether sq is a possible en-passant square with turn to
// move: it lies on the third rank from the opponent's side, is empty, the
// square the pawn came from is empty, and an opponent pawn stands in front of it.
func (b *Board) CanPassAt(turn Color, sq Square) bool {
	if !sq.Valid() || !turn.IsPlayer() {
		return false
	}
	rank := 5
	if turn == Black {
		rank = 2
	}
	if sq.Rank() != rank || !b.IsEmpty(sq) || !b.IsEmpty(sq.Offset(turn.Forward())) {
		return false
	}
	p, c := b.At(sq.Offset(-turn.Forward()))
	return p == Pawn && c == turn.Opponent()
}

// Index builds the reverse piece index from the grid.
func (b *Board) Index() PieceIndex {
	var x PieceIndex
	for _, sq := range Squares {
		if p, c := b.At(sq); p.IsReal() {
			x.Add(c, p, sq)
		}
	}
	return x
}

// Placement renders the FEN piece-placement field.
func (b *Board) Placement() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p, c := b.At(SquareAt(file, rank))
			if p == Empty {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(fenLetter(p, c))
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

func fenLetter(p Piece, c Color) byte {
	l := p.Letter()
	if p == Pawn {
		l = "P"
	}
	if c == Black {
		return strings.ToLower(l)[0]
	}
	return l[0]
}

// ParsePlacement reads a FEN piece-placement field.
func ParsePlacement(placement string) (Board, error) {
	b := NewBoard()
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return b, fmt.Errorf("invalid FEN: expected 8 ranks")
	}

	for r := 0; r < 8; r++ {
		file := 0
		for _, ch := range ranks[r] {
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			if file >= 8 {
				return b, fmt.Errorf("invalid FEN: too many pieces in rank %d", 8-r)
			}
			p, err := PieceFromLetter(ch)
			if err != nil {
				return b, fmt.Errorf("invalid FEN: %w", err)
			}
			c := White
			if ch >= 'a' && ch <= 'z' {
				c = Black
			}
			b.Put(SquareAt(file, 7-r), c, p)
			file++
		}
		if file != 8 {
			return b, fmt.Errorf("invalid FEN: rank %d has %d files", 8-r, file)
		}
	}
	return b, nil
}

// Setup is a parsed FEN record.
type Setup struct {
	Board     Board
	Turn      Color
	Castling  string
	EnPassant Square
	HalfMove  int
	FullMove  int
}

// ParseFEN parses a full six-field FEN record. The move counters may be omitted.
func ParseFEN(fen string) (*Setup, error) {
	parts := strings.Fields(fen)
	if len(parts) != 6 && len(parts) != 4 {
		return nil, fmt.Errorf("invalid FEN: expected 6 parts, got %d", len(parts))
	}

	b, err := ParsePlacement(parts[0])
	if err != nil {
		return nil, err
	}
	s := &Setup{Board: b, FullMove: 1}

	switch parts[1] {
	case "w":
		s.Turn = White
	case "b":
		s.Turn = Black
	default:
		return nil, fmt.Errorf("invalid FEN: turn must be 'w' or 'b'")
	}

	s.Castling = parts[2]
	for _, ch := range s.Castling {
		if !strings.ContainsRune("KQkq-", ch) {
			return nil, fmt.Errorf("invalid FEN: castling field %q", s.Castling)
		}
	}

	if err := s.EnPassant.UnmarshalText([]byte(parts[3])); err != nil {
		return nil, fmt.Errorf("invalid FEN: en passant: %w", err)
	}
	if s.EnPassant != NoSquare && !b.CanPassAt(s.Turn, s.EnPassant) {
		return nil, fmt.Errorf("invalid FEN: no pawn can be taken en passant on %s", s.EnPassant)
	}

	if len(parts) == 6 {
		if s.HalfMove, err = strconv.Atoi(parts[4]); err != nil || s.HalfMove < 0 {
			return nil, fmt.Errorf("invalid FEN: halfmove counter")
		}
		if s.FullMove, err = strconv.Atoi(parts[5]); err != nil || s.FullMove < 1 {
			return nil, fmt.Errorf("invalid FEN: fullmove counter")
		}
	}

	idx := b.Index()
	for _, c := range Colors {
		if n := idx.Of(c, King).Len(); n != 1 {
			return nil, fmt.Errorf("invalid FEN: %s has %d kings", c, n)
		}
	}

	return s, nil
}

// ToASCII creates an ASCII representation of the board
func (b *Board) ToASCII() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for rank := 7; rank >= 0; rank-- {
		sb.WriteString(fmt.Sprintf("%d ", rank+1))
		for file := 0; file < 8; file++ {
			p, c := b.At(SquareAt(file, rank))
			if p == Empty {
				sb.WriteString(". ")
			} else {
				sb.WriteString(fmt.Sprintf("%c ", fenLetter(p, c)))
			}
		}
		sb.WriteString(fmt.Sprintf(" %d\n", rank+1))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}
