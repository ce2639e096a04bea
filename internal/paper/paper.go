// Package paper assembles randomized exam papers from a question bank.
package paper

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/Tarunkasliwal/qpg/internal/model"
)

// Policy selects how paper n picks from a unit's shuffled tier list.
type Policy string

const (
	// PolicyRotate shuffles once and gives paper n the question at (n-1) mod len.
	PolicyRotate Policy = "rotate"
	// PolicyReshuffle shuffles again for every paper and takes the first question.
	PolicyReshuffle Policy = "reshuffle"
)

// IsValidPolicy checks if a policy name is valid.
func IsValidPolicy(p string) bool {
	return Policy(p) == PolicyRotate || Policy(p) == PolicyReshuffle
}

// ErrEmptyBank is returned when there are no units to draw from.
var ErrEmptyBank = errors.New("no questions available; generate questions first")

// InsufficientError names every unit with too few questions in some tier.
type InsufficientError struct {
	Required int
	Units    []string
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("not enough questions for units [%s] (need %d per tier)",
		strings.Join(e.Units, ", "), e.Required)
}

// Options controls paper assembly.
type Options struct {
	Count      int
	MinPerTier int
	Policy     Policy
}

// Check verifies that every unit has at least minPerTier questions in each
// tier.
func Check(bank model.Bank, minPerTier int) error {
	if len(bank) == 0 {
		return ErrEmptyBank
	}
	if minPerTier < 1 {
		minPerTier = 1
	}
	var short []string
	for _, uq := range bank {
		for _, t := range model.Tiers {
			if uq.Count(t) < minPerTier {
				short = append(short, uq.Unit.Label)
				break
			}
		}
	}
	if len(short) > 0 {
		return &InsufficientError{Required: minPerTier, Units: short}
	}
	return nil
}

// Assemble builds opts.Count papers. Each paper holds, for every unit in bank
// order, one question per tier. The bank is not modified. A nil rng uses the
// global source.
func Assemble(bank model.Bank, opts Options, rng *rand.Rand) ([]model.Paper, error) {
	if opts.Count < 1 {
		return nil, fmt.Errorf("paper count must be positive, got %d", opts.Count)
	}
	if err := Check(bank, opts.MinPerTier); err != nil {
		return nil, err
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}

	pools := make([]model.TierBuckets, len(bank))
	for i, uq := range bank {
		pools[i] = make(model.TierBuckets, len(model.Tiers))
		for _, t := range model.Tiers {
			qs := slices.Clone(uq.Buckets[t])
			shuffle(len(qs), func(a, b int) { qs[a], qs[b] = qs[b], qs[a] })
			pools[i][t] = qs
		}
	}

	papers := make([]model.Paper, 0, opts.Count)
	for n := 1; n <= opts.Count; n++ {
		p := model.Paper{Number: n, Selections: make([]model.Selection, 0, len(bank))}
		for i, uq := range bank {
			sel := model.Selection{Unit: uq.Unit, Questions: make(map[model.Tier]model.Question, len(model.Tiers))}
			for _, t := range model.Tiers {
				qs := pools[i][t]
				switch opts.Policy {
				case PolicyReshuffle:
					if n > 1 {
						shuffle(len(qs), func(a, b int) { qs[a], qs[b] = qs[b], qs[a] })
					}
					sel.Questions[t] = qs[0]
				default:
					sel.Questions[t] = qs[(n-1)%len(qs)]
				}
			}
			p.Selections = append(p.Selections, sel)
		}
		papers = append(papers, p)
	}
	return papers, nil
}
