package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Tarunkasliwal/qpg/internal/model"
)

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetGenerationInfo stores all GenerationInfo fields as metadata rows.
func (s *Store) SetGenerationInfo(ctx context.Context, info model.GenerationInfo) error {
	pairs := []struct{ k, v string }{
		{"syllabus_file", info.SyllabusFile},
		{"syllabus_sha256", info.SyllabusHash},
		{"model", info.Model},
		{"prompt_variant", info.PromptVariant},
		{"generated_at", info.GeneratedAt.UTC().Format(time.RFC3339)},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(ctx, p.k, p.v); err != nil {
			return fmt.Errorf("set %s: %w", p.k, err)
		}
	}
	return nil
}

// GenerationInfo reads the last generation record. It returns nil when no
// generation has been stored yet.
func (s *Store) GenerationInfo(ctx context.Context) (*model.GenerationInfo, error) {
	var info model.GenerationInfo
	fields := []struct {
		k   string
		dst *string
	}{
		{"syllabus_file", &info.SyllabusFile},
		{"syllabus_sha256", &info.SyllabusHash},
		{"model", &info.Model},
		{"prompt_variant", &info.PromptVariant},
	}
	for _, f := range fields {
		v, err := s.GetMetadata(ctx, f.k)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	at, err := s.GetMetadata(ctx, "generated_at")
	if err != nil {
		return nil, err
	}
	if at == "" {
		return nil, nil
	}
	if info.GeneratedAt, err = time.Parse(time.RFC3339, at); err != nil {
		return nil, fmt.Errorf("parse generated_at: %w", err)
	}
	return &info, nil
}
