package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Domino is a single tile. High >= Low always holds; the pair is unordered
// on the wire, so construction normalizes it.
type Domino struct {
	High int `json:"high"`
	Low  int `json:"low"`
}

// countValues maps normalized (high, low) pairs to their point worth.
// The five count dominoes total 35 points; with 7 tricks at 1 point each
// a hand is worth 42.
var countValues = map[Domino]int{
	{High: 5, Low: 0}: 5,
	{High: 4, Low: 1}: 5,
	{High: 3, Low: 2}: 5,
	{High: 6, Low: 4}: 10,
	{High: 5, Low: 5}: 10,
}

// NewDomino builds a normalized domino from two pip values in either order.
func NewDomino(a, b int) Domino {
	if a < b {
		a, b = b, a
	}
	return Domino{High: a, Low: b}
}

// ParseDominoID decodes the wire identifier "<high>-<low>".
func ParseDominoID(id string) (Domino, error) {
	parts := strings.SplitN(id, "-", 2)
	if len(parts) != 2 {
		return Domino{}, fmt.Errorf("bad domino id %q", id)
	}
	high, err := strconv.Atoi(parts[0])
	if err != nil {
		return Domino{}, fmt.Errorf("bad domino id %q", id)
	}
	low, err := strconv.Atoi(parts[1])
	if err != nil {
		return Domino{}, fmt.Errorf("bad domino id %q", id)
	}
	if high < 0 || high > 6 || low < 0 || low > 6 {
		return Domino{}, fmt.Errorf("domino id %q out of range", id)
	}
	return NewDomino(high, low), nil
}

// ID returns the wire identifier, e.g. "6-4".
func (d Domino) ID() string {
	return fmt.Sprintf("%d-%d", d.High, d.Low)
}

// IsDouble reports whether both ends show the same pip count.
func (d Domino) IsDouble() bool { return d.High == d.Low }

// PipTotal is the sum of both ends.
func (d Domino) PipTotal() int { return d.High + d.Low }

// CountValue returns the point worth of a count domino, or 0.
// Symmetric under swap of high/low because construction normalizes.
func (d Domino) CountValue() int {
	return countValues[NewDomino(d.High, d.Low)]
}

// BelongsToSuit reports whether either end matches the suit.
func (d Domino) BelongsToSuit(suit int) bool {
	return d.High == suit || d.Low == suit
}

// Suits returns the suit(s) this domino is a member of.
func (d Domino) Suits() []int {
	if d.IsDouble() {
		return []int{d.High}
	}
	return []int{d.High, d.Low}
}

func (d Domino) String() string {
	return fmt.Sprintf("[%d|%d]", d.High, d.Low)
}

// SuitNames indexes display names by pip value.
var SuitNames = [7]string{"Blanks", "Ones", "Twos", "Threes", "Fours", "Fives", "Sixes"}
