// Package splits handles value-for-value payment split configuration: the
// set of recipients that share incoming zaps for an artist's catalog.
package splits

import (
	"fmt"
	"math"
)

// sumTolerance absorbs float drift when checking that percentages total 100.
const sumTolerance = 0.01

// Recipient is one share of an artist's payment split.
type Recipient struct {
	Name    string  `json:"name" db:"name"`
	Address string  `json:"address" db:"address"`
	Percent float64 `json:"percent" db:"percent"`
}

// Validate checks that a recipient set is payable: every recipient has an
// address and a positive share, and the shares total 100 percent.
func Validate(recipients []Recipient) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}
	sum := 0.0
	for i, r := range recipients {
		if r.Address == "" {
			return fmt.Errorf("recipient %d: missing address", i)
		}
		if r.Percent <= 0 {
			return fmt.Errorf("recipient %d (%s): percent must be positive, got %.2f", i, r.Address, r.Percent)
		}
		sum += r.Percent
	}
	if math.Abs(sum-100) > sumTolerance {
		return fmt.Errorf("percentages sum to %.2f, want 100", sum)
	}
	return nil
}

// Normalize scales a recipient set so shares sum to exactly 100, dropping
// entries with no address or a non-positive share. Returns a new slice;
// the input is not modified. An input with no usable recipients yields nil.
func Normalize(recipients []Recipient) []Recipient {
	var kept []Recipient
	sum := 0.0
	for _, r := range recipients {
		if r.Address == "" || r.Percent <= 0 {
			continue
		}
		kept = append(kept, r)
		sum += r.Percent
	}
	if len(kept) == 0 || sum == 0 {
		return nil
	}
	for i := range kept {
		kept[i].Percent = kept[i].Percent / sum * 100
	}
	return kept
}
