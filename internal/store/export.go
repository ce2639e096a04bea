package store

import (
	"context"
	"fmt"

	"github.com/Tarunkasliwal/qpg/internal/model"
)

// ExportBank builds the export form of the stored bank, including the last
// generation record when there is one.
func (s *Store) ExportBank(ctx context.Context) (model.BankExport, error) {
	bank, err := s.Bank(ctx)
	if err != nil {
		return model.BankExport{}, fmt.Errorf("load bank: %w", err)
	}
	info, err := s.GenerationInfo(ctx)
	if err != nil {
		return model.BankExport{}, fmt.Errorf("load generation info: %w", err)
	}
	return model.NewBankExport(bank, info), nil
}
