package model

// BankExport is the top-level JSON structure for question bank export.
type BankExport struct {
	Generation *GenerationInfo `json:"generation,omitempty"`
	NumUnits   int             `json:"num_units"`
	NumTotal   int             `json:"num_questions"`
	Units      []UnitExport    `json:"units"`
}

// UnitExport holds one unit's questions for export.
type UnitExport struct {
	Label     string           `json:"label"`
	Title     string           `json:"title"`
	Questions []QuestionExport `json:"questions"`
}

// QuestionExport holds per-question data for export, with tags split out.
type QuestionExport struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	CO    int    `json:"co,omitempty"`
	BT    int    `json:"bt,omitempty"`
	Marks int    `json:"marks"`
}

// NewBankExport flattens a bank into its export form.
func NewBankExport(b Bank, gen *GenerationInfo) BankExport {
	exp := BankExport{Generation: gen, NumUnits: len(b)}
	for _, uq := range b {
		ue := UnitExport{Label: uq.Unit.Label, Title: uq.Unit.Title}
		for _, t := range Tiers {
			for _, q := range uq.Buckets[t] {
				text, tags := q.Tags()
				ue.Questions = append(ue.Questions, QuestionExport{
					ID:    q.ID,
					Text:  text,
					CO:    tags.CO,
					BT:    tags.BT,
					Marks: int(q.Marks),
				})
			}
		}
		exp.NumTotal += len(ue.Questions)
		exp.Units = append(exp.Units, ue)
	}
	return exp
}
