// Package parser recovers unit → tier → question buckets from free-text LLM
// output. Malformed lines are skipped one at a time; the aggregate count check
// in Validate decides whether the batch as a whole is usable.
package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/Tarunkasliwal/qpg/internal/model"
)

var (
	headerRe            = regexp.MustCompile(`(?i)^(unit\s+(\d+))\s*:(.*)$`)
	emphasizedOrdinalRe = regexp.MustCompile(`^(\d+[.)])(?:\*\*|__)\s*`)
	questionRe          = regexp.MustCompile(`(?i)^(\d+)[.)]\s*(.+?)\s*(?:\[CO:\s*(\d+)\]\s*\[BT:\s*(\d+)\])?\s*\((\d+)\s*marks?\)\.?$`)
)

// Options controls how strictly question lines are checked.
type Options struct {
	// CheckTags requires a [CO:n] [BT:m] pair on every question, with n equal
	// to the active unit's number and m within [MinBT, MaxBT].
	CheckTags bool
	MinBT     int
	MaxBT     int
}

// DefaultOptions returns the tag-checking configuration used by the strict
// prompt variant.
func DefaultOptions() Options {
	return Options{CheckTags: true, MinBT: 1, MaxBT: 6}
}

// DropReason says why a line did not make it into a bucket.
type DropReason string

const (
	DropNoUnit      DropReason = "no_active_unit"
	DropNoMatch     DropReason = "format_mismatch"
	DropMarks       DropReason = "invalid_marks"
	DropMissingTags DropReason = "missing_tags"
	DropCOMismatch  DropReason = "co_mismatch"
	DropBTRange     DropReason = "bt_out_of_range"
)

// Report summarizes one parse.
type Report struct {
	Accepted     int
	Dropped      map[DropReason]int
	UnknownUnits []string
}

// DroppedTotal returns the number of dropped lines across all reasons.
func (r Report) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

type state int

const (
	stateNoUnit state = iota
	stateInUnit
)

func (s state) String() string {
	switch s {
	case stateNoUnit:
		return "no_unit"
	case stateInUnit:
		return "in_unit"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// machine is the per-parse state: which unit is active and which CO tag its
// questions must carry.
type machine struct {
	state      state
	pos        int
	unit       model.Unit
	expectedCO int
	count      int
}

func (m *machine) enter(pos int, u model.Unit) {
	m.state = stateInUnit
	m.pos = pos
	m.unit = u
	m.expectedCO = u.Number()
	m.count = 0
}

// Parser parses generated question text.
type Parser struct {
	log  *slog.Logger
	opts Options
}

// New creates a parser. A nil logger falls back to slog.Default().
func New(log *slog.Logger, opts Options) *Parser {
	if log == nil {
		log = slog.Default()
	}
	if opts.CheckTags && opts.MaxBT == 0 {
		opts.MinBT, opts.MaxBT = 1, 6
	}
	return &Parser{log: log, opts: opts}
}

// Parse walks text line by line and returns a bank holding every expected
// unit, in syllabus order, with both tiers present. It never fails; rejected
// lines are logged and counted in the report.
func (p *Parser) Parse(text string, units *model.UnitSet) (model.Bank, Report) {
	bank := make(model.Bank, 0, units.Len())
	byKey := make(map[string]int, units.Len())
	for i, u := range units.Units() {
		bank = append(bank, model.UnitQuestions{Unit: u, Buckets: model.NewTierBuckets()})
		byKey[canonicalLabel(u.Label)] = i
	}

	report := Report{Dropped: make(map[DropReason]int)}
	drop := func(reason DropReason, line string, attrs ...any) {
		report.Dropped[reason]++
		p.log.Warn("dropping generated line", append([]any{"reason", reason, "line", line}, attrs...)...)
	}

	m := machine{state: stateNoUnit}
	for _, raw := range strings.Split(text, "\n") {
		line := normalizeLine(raw)
		if line == "" {
			continue
		}

		if hm := headerRe.FindStringSubmatch(line); hm != nil {
			idx, ok := byKey[canonicalLabel(hm[1])]
			if !ok {
				p.log.Warn("unknown unit in generated text", "unit", hm[1])
				report.UnknownUnits = append(report.UnknownUnits, hm[1])
				continue
			}
			m.enter(idx, bank[idx].Unit)
			p.log.Debug("detected unit", "unit", m.unit.Label, "expected_co", m.expectedCO)
			continue
		}

		if m.state == stateNoUnit {
			drop(DropNoUnit, line)
			continue
		}

		qm := questionRe.FindStringSubmatch(line)
		if qm == nil {
			drop(DropNoMatch, line, "unit", m.unit.Label)
			continue
		}
		qtext, coStr, btStr, marksStr := strings.TrimSpace(qm[2]), qm[3], qm[4], qm[5]

		tier, err := model.ParseTier(marksStr)
		if err != nil {
			drop(DropMarks, line, "unit", m.unit.Label, "marks", marksStr)
			continue
		}

		hasTags := coStr != "" && btStr != ""
		if p.opts.CheckTags {
			if !hasTags {
				drop(DropMissingTags, line, "unit", m.unit.Label)
				continue
			}
			co, _ := strconv.Atoi(coStr)
			bt, _ := strconv.Atoi(btStr)
			if co != m.expectedCO {
				drop(DropCOMismatch, line, "unit", m.unit.Label, "co", co, "expected_co", m.expectedCO)
				continue
			}
			if bt < p.opts.MinBT || bt > p.opts.MaxBT {
				drop(DropBTRange, line, "unit", m.unit.Label, "bt", bt)
				continue
			}
		}
		if hasTags {
			co, _ := strconv.Atoi(coStr)
			bt, _ := strconv.Atoi(btStr)
			qtext = fmt.Sprintf("%s [CO:%d] [BT:%d]", qtext, co, bt)
		}

		buckets := bank[m.pos].Buckets
		buckets[tier] = append(buckets[tier], model.Question{
			Unit:      m.unit.Label,
			UnitTitle: m.unit.Title,
			Text:      qtext,
			Marks:     tier,
		})
		m.count++
		report.Accepted++
		p.log.Debug("parsed question", "unit", m.unit.Label, "ordinal", qm[1], "marks", int(tier), "unit_count", m.count)
	}

	return bank, report
}

// canonicalLabel folds case and inner whitespace so "UNIT  3" matches "Unit 3".
func canonicalLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// normalizeLine strips the markdown decoration models like to add around
// headers and list items. Emphasis markers are only removed at the edges of
// the line and right after a question ordinal, so text such as __init__ or
// 2**10 survives.
func normalizeLine(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimLeft(s, "#"))
	for _, bullet := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(s, bullet) {
			s = strings.TrimSpace(strings.TrimPrefix(s, bullet))
			break
		}
	}
	for _, mark := range []string{"**", "__"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, mark))
		s = strings.TrimSpace(strings.TrimSuffix(s, mark))
	}
	return emphasizedOrdinalRe.ReplaceAllString(s, "$1 ")
}
