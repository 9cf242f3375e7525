package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/lexipop/internal"
)

var ErrCardNotFound = errors.New("card not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		sentence TEXT NOT NULL,
		word TEXT NOT NULL,
		definition TEXT NOT NULL,
		video_id TEXT NOT NULL DEFAULT '',
		start REAL NOT NULL DEFAULT 0,
		usage_count INTEGER DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(word, definition)
	);

	CREATE INDEX IF NOT EXISTS idx_cards_word ON cards(word);
	CREATE INDEX IF NOT EXISTS idx_cards_video ON cards(video_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveCards stores cards in one transaction. A card whose word and
// definition are already in the deck bumps the existing card's usage count
// and takes over its sentence and video position. Missing IDs are filled in.
func (s *Store) SaveCards(ctx context.Context, cards []internal.Card) (int, error) {
	if len(cards) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards (id, sentence, word, definition, video_id, start, usage_count, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(word, definition) DO UPDATE SET
			usage_count = usage_count + 1,
			sentence = excluded.sentence,
			video_id = excluded.video_id,
			start = excluded.start,
			last_used = excluded.last_used`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i := range cards {
		c := &cards[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		word := normalizeText(c.Word)
		definition := normalizeText(c.Definition)
		if word == "" || definition == "" {
			return 0, fmt.Errorf("card %d: word and definition are required", i)
		}

		if _, err := stmt.ExecContext(ctx,
			c.ID, strings.TrimSpace(c.Sentence), word, definition, c.VideoID, c.Start, now, now); err != nil {
			return 0, fmt.Errorf("failed to save card %q: %w", word, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return len(cards), nil
}

// ListCards returns the deck, newest first. A non-empty word restricts the
// result to cards for that word.
func (s *Store) ListCards(ctx context.Context, word string) ([]internal.Card, error) {
	query := `SELECT id, sentence, word, definition, video_id, start, usage_count, created_at, last_used FROM cards`
	var args []interface{}
	if word != "" {
		query += ` WHERE word = ?`
		args = append(args, normalizeText(word))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []internal.Card
	for rows.Next() {
		var c internal.Card
		if err := rows.Scan(&c.ID, &c.Sentence, &c.Word, &c.Definition, &c.VideoID, &c.Start, &c.UsageCount, &c.CreatedAt, &c.LastUsed); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// DeckStats summarises the deck.
type DeckStats struct {
	TotalCards    int
	DistinctWords int
	Videos        int
	TotalUsage    int
}

func (s *Store) Stats(ctx context.Context) (*DeckStats, error) {
	stats := &DeckStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT word),
			COUNT(DISTINCT NULLIF(video_id, '')),
			COALESCE(SUM(usage_count), 0)
		FROM cards`).Scan(
		&stats.TotalCards,
		&stats.DistinctWords,
		&stats.Videos,
		&stats.TotalUsage,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteCard permanently removes a card by ID.
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	return nil
}

// ClearCards removes all cards.
func (s *Store) ClearCards(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cards`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExportCSV writes the deck as Anki-importable CSV: front (word), back
// (definition), the example sentence with the word in bold, and tags.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	cards, err := s.ListCards(ctx, "")
	if err != nil {
		return 0, err
	}

	writer := csv.NewWriter(w)
	for _, c := range cards {
		tags := "lexipop"
		if c.VideoID != "" {
			tags += " video:" + c.VideoID
		}
		record := []string{c.Word, c.Definition, highlight(c.Sentence, c.Word), tags}
		if err := writer.Write(record); err != nil {
			return 0, err
		}
	}
	writer.Flush()
	return len(cards), writer.Error()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// highlight wraps every token of sentence equal to word in <b></b>.
func highlight(sentence, word string) string {
	tokens := strings.Fields(sentence)
	for i, t := range tokens {
		if t == word {
			tokens[i] = "<b>" + t + "</b>"
		}
	}
	return strings.Join(tokens, " ")
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// so the same definition typed twice maps to one card.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
