package syllabus

import (
	"regexp"
	"strings"

	"github.com/Tarunkasliwal/qpg/internal/model"
)

var unitHeaderRe = regexp.MustCompile(`(?i)^Unit\s+\d+`)

// ExtractUnits finds unit header lines in syllabus text. The text before the
// first colon is the label and the whole line is the title. The first
// occurrence of a label wins.
func ExtractUnits(text string) *model.UnitSet {
	units := model.NewUnitSet()
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if !unitHeaderRe.MatchString(line) {
			continue
		}
		label, _, _ := strings.Cut(line, ":")
		units.Add(model.Unit{Label: strings.TrimSpace(label), Title: line})
	}
	return units
}
