package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Tier is the mark value a question carries. Only Tier4 and Tier6 are valid.
type Tier int

const (
	// Tier4 is a four-mark question.
	Tier4 Tier = 4
	// Tier6 is a six-mark question.
	Tier6 Tier = 6
)

// Tiers lists the permitted tiers in paper order.
var Tiers = []Tier{Tier4, Tier6}

// ParseTier converts a captured mark value into a Tier.
func ParseTier(s string) (Tier, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse marks %q: %w", s, err)
	}
	t := Tier(n)
	if !t.Valid() {
		return 0, fmt.Errorf("unexpected marks value %d", n)
	}
	return t, nil
}

// Valid reports whether t is one of the permitted tiers.
func (t Tier) Valid() bool {
	return t == Tier4 || t == Tier6
}

// String returns the tier as used in JSON keys ("4", "6").
func (t Tier) String() string {
	return strconv.Itoa(int(t))
}

var unitNumberRe = regexp.MustCompile(`\d+`)

// Unit is a syllabus section identified by its "Unit N" label.
type Unit struct {
	Label string `json:"label"`
	Title string `json:"title"`
}

// Number returns the integer in the unit label, or 0 if there is none.
func (u Unit) Number() int {
	m := unitNumberRe.FindString(u.Label)
	if m == "" {
		return 0
	}
	n, _ := strconv.Atoi(m)
	return n
}

// UnitSet is an insertion-ordered set of units keyed by label.
type UnitSet struct {
	units []Unit
	index map[string]int
}

// NewUnitSet builds a set from units; the first occurrence of a label wins.
func NewUnitSet(units ...Unit) *UnitSet {
	s := &UnitSet{index: make(map[string]int)}
	for _, u := range units {
		s.Add(u)
	}
	return s
}

// Add inserts u unless its label is already present. It reports whether u was added.
func (s *UnitSet) Add(u Unit) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[u.Label]; ok {
		return false
	}
	s.index[u.Label] = len(s.units)
	s.units = append(s.units, u)
	return true
}

// Units returns the units in insertion order.
func (s *UnitSet) Units() []Unit {
	if s == nil {
		return nil
	}
	out := make([]Unit, len(s.units))
	copy(out, s.units)
	return out
}

// Labels returns the unit labels in insertion order.
func (s *UnitSet) Labels() []string {
	if s == nil {
		return nil
	}
	labels := make([]string, 0, len(s.units))
	for _, u := range s.units {
		labels = append(labels, u.Label)
	}
	return labels
}

// Len returns the number of units.
func (s *UnitSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.units)
}

// Question is a single generated exam question.
type Question struct {
	ID        int64  `json:"id,omitempty"`
	Unit      string `json:"unit"`
	UnitTitle string `json:"unit_title"`
	Text      string `json:"text"`
	Marks     Tier   `json:"marks"`
}

var (
	coTagRe = regexp.MustCompile(`\[CO:(\d+)\]`)
	btTagRe = regexp.MustCompile(`\[BT:(\d+)\]`)
	tagsRe  = regexp.MustCompile(`\s*\[CO:\d+\]\s*\[BT:\d+\]`)
)

// Tags holds the classification markers embedded in question text.
type Tags struct {
	CO int // course outcome, 0 when absent
	BT int // Bloom's taxonomy level, 0 when absent
}

// Tags extracts the [CO:x] and [BT:y] markers and returns the text without them.
func (q Question) Tags() (string, Tags) {
	var tags Tags
	if m := coTagRe.FindStringSubmatch(q.Text); m != nil {
		tags.CO, _ = strconv.Atoi(m[1])
	}
	if m := btTagRe.FindStringSubmatch(q.Text); m != nil {
		tags.BT, _ = strconv.Atoi(m[1])
	}
	clean := strings.TrimSpace(tagsRe.ReplaceAllString(q.Text, ""))
	return clean, tags
}

// TierBuckets holds a unit's questions by tier. Both tiers are always present.
type TierBuckets map[Tier][]Question

// NewTierBuckets returns buckets with an empty list for every tier.
func NewTierBuckets() TierBuckets {
	b := make(TierBuckets, len(Tiers))
	for _, t := range Tiers {
		b[t] = []Question{}
	}
	return b
}

// UnitQuestions pairs a unit with its tiered questions.
type UnitQuestions struct {
	Unit    Unit        `json:"unit"`
	Buckets TierBuckets `json:"questions"`
}

// Count returns the number of questions in tier t.
func (uq UnitQuestions) Count(t Tier) int {
	return len(uq.Buckets[t])
}

// Bank is the unit → tier → questions pool, in syllabus order.
type Bank []UnitQuestions

// Labels returns the unit labels in bank order.
func (b Bank) Labels() []string {
	labels := make([]string, 0, len(b))
	for _, uq := range b {
		labels = append(labels, uq.Unit.Label)
	}
	return labels
}

// Questions flattens the bank in unit, tier, encounter order.
func (b Bank) Questions() []Question {
	var out []Question
	for _, uq := range b {
		for _, t := range Tiers {
			out = append(out, uq.Buckets[t]...)
		}
	}
	return out
}

// Selection is the pair of questions a paper takes from one unit.
type Selection struct {
	Unit      Unit              `json:"unit"`
	Questions map[Tier]Question `json:"questions"`
}

// Paper is an assembled exam paper. It only exists as a rendered file.
type Paper struct {
	Number     int         `json:"number"`
	Selections []Selection `json:"selections"`
}

// PaperHeader holds the titles printed at the top of every paper.
type PaperHeader struct {
	Title      string
	Course     string
	Instructor string
	Date       string
}

// GenerationInfo describes the most recent successful generation.
type GenerationInfo struct {
	SyllabusFile  string    `json:"syllabus_file"`
	SyllabusHash  string    `json:"syllabus_sha256"`
	Model         string    `json:"model"`
	PromptVariant string    `json:"prompt_variant"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	UploadDir        string
	OutputDir        string
	MaxUploadBytes   int64
	Model            string
	PromptVariant    string // strict or standard
	QuestionsPerTier int
	NumPapers        int
	PaperPolicy      string // rotate or reshuffle
	PaperLayout      string // table or list
	PaperFormat      string // pdf or html
	Header           PaperHeader
	Lang             string
}
