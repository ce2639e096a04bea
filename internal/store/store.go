// Package store persists the question bank in a single SQLite file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Tarunkasliwal/qpg/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func New(dbPath string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		unit TEXT NOT NULL,
		unit_title TEXT NOT NULL DEFAULT '',
		question TEXT NOT NULL,
		marks INTEGER NOT NULL CHECK (marks IN (4, 6))
	);

	CREATE INDEX IF NOT EXISTS idx_questions_unit ON questions(unit);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReplaceQuestions deletes every stored question and inserts the bank in one
// transaction. On error nothing changes.
func (s *Store) ReplaceQuestions(ctx context.Context, bank model.Bank) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions`); err != nil {
		return 0, fmt.Errorf("clear questions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO questions (unit, unit_title, question, marks) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, uq := range bank {
		for _, t := range model.Tiers {
			for _, q := range uq.Buckets[t] {
				if _, err := stmt.ExecContext(ctx, uq.Unit.Label, uq.Unit.Title, q.Text, int(q.Marks)); err != nil {
					return 0, fmt.Errorf("insert question for %s: %w", uq.Unit.Label, err)
				}
				n++
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.log.Info("question bank replaced", "units", len(bank), "questions", n)
	return n, nil
}

// ListQuestions returns all questions ordered by id.
func (s *Store) ListQuestions(ctx context.Context) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, unit, unit_title, question, marks FROM questions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var marks int
		if err := rows.Scan(&q.ID, &q.Unit, &q.UnitTitle, &q.Text, &marks); err != nil {
			return nil, err
		}
		q.Marks = model.Tier(marks)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Bank groups the stored questions by unit, in order of first appearance.
func (s *Store) Bank(ctx context.Context) (model.Bank, error) {
	questions, err := s.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	var bank model.Bank
	index := make(map[string]int)
	for _, q := range questions {
		i, ok := index[q.Unit]
		if !ok {
			i = len(bank)
			index[q.Unit] = i
			bank = append(bank, model.UnitQuestions{
				Unit:    model.Unit{Label: q.Unit, Title: q.UnitTitle},
				Buckets: model.NewTierBuckets(),
			})
		}
		if !q.Marks.Valid() {
			s.log.Warn("skipping stored question with unexpected marks", "id", q.ID, "marks", int(q.Marks))
			continue
		}
		bank[i].Buckets[q.Marks] = append(bank[i].Buckets[q.Marks], q)
	}
	return bank, nil
}

// QuestionCount returns the number of stored questions.
func (s *Store) QuestionCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n)
	return n, err
}
