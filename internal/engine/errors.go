package engine

import "errors"

// Errors returned by the rules engine. ErrCastlingTarget, ErrRepetitionMissing
// and ErrNotation indicate a corrupted position or a caller bug and must not
// be retried.
var (
	ErrCastlingTarget    = errors.New("castling target is not a castling square")
	ErrRepetitionMissing = errors.New("position missing from repetition table")
	ErrNotation          = errors.New("malformed move notation")
	ErrNoPiece           = errors.New("no piece on origin square")
	ErrPromotionPiece    = errors.New("invalid promotion piece")
	ErrIllegalMove       = errors.New("illegal move")
	ErrInvalidSnapshot   = errors.New("invalid position snapshot")
)
