package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Tarunkasliwal/qpg/internal/model"
)

func bankWithCounts(counts map[string][2]int, order []string) model.Bank {
	var bank model.Bank
	for _, label := range order {
		uq := model.UnitQuestions{Unit: model.Unit{Label: label, Title: label + ": t"}, Buckets: model.NewTierBuckets()}
		c := counts[label]
		for i := 0; i < c[0]; i++ {
			uq.Buckets[model.Tier4] = append(uq.Buckets[model.Tier4], model.Question{Unit: label, Text: "q", Marks: model.Tier4})
		}
		for i := 0; i < c[1]; i++ {
			uq.Buckets[model.Tier6] = append(uq.Buckets[model.Tier6], model.Question{Unit: label, Text: "q", Marks: model.Tier6})
		}
		bank = append(bank, uq)
	}
	return bank
}

func TestValidate(t *testing.T) {
	order := []string{"Unit 1", "Unit 2", "Unit 3", "Unit 4"}
	tests := []struct {
		name   string
		counts map[string][2]int
		want   []string
	}{
		{"all exact", map[string][2]int{"Unit 1": {3, 3}, "Unit 2": {3, 3}, "Unit 3": {3, 3}, "Unit 4": {3, 3}}, nil},
		{"one short", map[string][2]int{"Unit 1": {3, 3}, "Unit 2": {2, 3}, "Unit 3": {3, 3}, "Unit 4": {3, 3}}, []string{"Unit 2"}},
		{"too many counts as failure", map[string][2]int{"Unit 1": {4, 2}, "Unit 2": {3, 3}, "Unit 3": {3, 3}, "Unit 4": {3, 4}}, []string{"Unit 1", "Unit 4"}},
		{"empty units", map[string][2]int{"Unit 1": {3, 3}}, []string{"Unit 2", "Unit 3", "Unit 4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(bankWithCounts(tt.counts, order), 3)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !reflect.DeepEqual(verr.Labels(), tt.want) {
				t.Errorf("labels = %q, want %q", verr.Labels(), tt.want)
			}
			for _, label := range tt.want {
				if !strings.Contains(err.Error(), label) {
					t.Errorf("error %q does not mention %s", err.Error(), label)
				}
			}
		})
	}
}
