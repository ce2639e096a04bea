package parser

import (
	"fmt"
	"strings"

	"github.com/Tarunkasliwal/qpg/internal/model"
)

// Shortfall records a unit whose tier counts differ from the requirement.
type Shortfall struct {
	Unit   model.Unit
	Counts map[model.Tier]int
}

// ValidationError lists every unit that failed the per-tier count check.
type ValidationError struct {
	Required  int
	Shortfall []Shortfall
}

// Labels returns the failing unit labels in syllabus order.
func (e *ValidationError) Labels() []string {
	labels := make([]string, 0, len(e.Shortfall))
	for _, s := range e.Shortfall {
		labels = append(labels, s.Unit.Label)
	}
	return labels
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("units [%s] do not have the required number of questions (%d per tier)",
		strings.Join(e.Labels(), ", "), e.Required)
}

// Validate checks that every unit in bank holds exactly perTier questions in
// each tier. It returns a *ValidationError naming exactly the failing units.
func Validate(bank model.Bank, perTier int) error {
	var short []Shortfall
	for _, uq := range bank {
		counts := make(map[model.Tier]int, len(model.Tiers))
		ok := true
		for _, t := range model.Tiers {
			counts[t] = uq.Count(t)
			if counts[t] != perTier {
				ok = false
			}
		}
		if !ok {
			short = append(short, Shortfall{Unit: uq.Unit, Counts: counts})
		}
	}
	if len(short) > 0 {
		return &ValidationError{Required: perTier, Shortfall: short}
	}
	return nil
}
