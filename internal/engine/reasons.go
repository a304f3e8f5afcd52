package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reasons is a set of game-over, pause or draw-allowed reasons.
type Reasons uint16

const (
	Checkmate Reasons = 1 << iota
	Stalemate
	FiftyMove
	SeventyFiveMove
	ThreeFold
	FiveFold
	Agreement
	Promotion
)

// ClaimableDraws are the draws a player may claim or decline.
const ClaimableDraws = FiftyMove | ThreeFold

var reasonNames = []struct {
	r    Reasons
	name string
}{
	{Checkmate, "checkmate"},
	{Stalemate, "stalemate"},
	{FiftyMove, "50move"},
	{SeventyFiveMove, "75move"},
	{ThreeFold, "3fold"},
	{FiveFold, "5fold"},
	{Agreement, "agreement"},
	{Promotion, "promotion"},
}

func (r Reasons) Has(x Reasons) bool        { return r&x != 0 }
func (r Reasons) With(x Reasons) Reasons    { return r | x }
func (r Reasons) Without(x Reasons) Reasons { return r &^ x }
func (r Reasons) Empty() bool               { return r == 0 }

// List returns the reason names in a fixed order.
func (r Reasons) List() []string {
	out := []string{}
	for _, rn := range reasonNames {
		if r.Has(rn.r) {
			out = append(out, rn.name)
		}
	}
	return out
}

func (r Reasons) String() string {
	if r.Empty() {
		return "-"
	}
	return strings.Join(r.List(), ",")
}

// ParseReason converts a single reason name.
func ParseReason(name string) (Reasons, error) {
	for _, rn := range reasonNames {
		if rn.name == name {
			return rn.r, nil
		}
	}
	return 0, fmt.Errorf("unknown reason %q", name)
}

func (r Reasons) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.List())
}

func (r *Reasons) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var out Reasons
	for _, n := range names {
		x, err := ParseReason(n)
		if err != nil {
			return err
		}
		out |= x
	}
	*r = out
	return nil
}
