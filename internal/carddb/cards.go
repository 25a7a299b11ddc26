package carddb

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a card name or ID is not in the directory.
var ErrNotFound = errors.New("carddb: card not found")

// Add inserts or replaces one card. Names are matched case-insensitively on
// lookup (NOCASE collation on the name column).
func (db *DB) Add(ctx context.Context, id uint64, name string) error {
	query := `
		INSERT INTO cards (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	if _, err := db.conn.ExecContext(ctx, query, int64(id), name); err != nil {
		return fmt.Errorf("failed to insert card %d: %w", id, err)
	}
	return nil
}

// IDByName returns the ID for a card name, case-insensitively.
func (db *DB) IDByName(ctx context.Context, name string) (uint64, error) {
	var id int64
	err := db.conn.QueryRowContext(ctx, `SELECT id FROM cards WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up card %q: %w", name, err)
	}
	return uint64(id), nil
}

// NameByID returns the name for a card ID.
func (db *DB) NameByID(ctx context.Context, id uint64) (string, error) {
	var name string
	err := db.conn.QueryRowContext(ctx, `SELECT name FROM cards WHERE id = ?`, int64(id)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up card %d: %w", id, err)
	}
	return name, nil
}

// Count returns the number of cards in the directory.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

// ImportCSV loads cards from a CSV file with an "id" (or "mtga_id") column
// and a "name" column, inside one transaction. Rows with a missing name or a
// non-positive ID are skipped. It returns the number of cards imported.
func (db *DB) ImportCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open cards file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read cards header: %w", err)
	}

	idCol, nameCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "id", "mtga_id":
			if idCol < 0 {
				idCol = i
			}
		case "name":
			nameCol = i
		}
	}
	if idCol < 0 || nameCol < 0 {
		return 0, fmt.Errorf("cards file %s: missing id or name column", path)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare import statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	count := 0
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Printf("[CardDB] Warning: skipping malformed row %d: %v", line, err)
			continue
		}
		if idCol >= len(row) || nameCol >= len(row) {
			continue
		}

		id, err := strconv.ParseUint(strings.TrimSpace(row[idCol]), 10, 64)
		if err != nil || id == 0 {
			continue
		}
		name := strings.TrimSpace(row[nameCol])
		if name == "" {
			continue
		}

		if _, err := stmt.ExecContext(ctx, int64(id), name); err != nil {
			return 0, fmt.Errorf("import card %d at row %d: %w", id, line, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import transaction: %w", err)
	}

	return count, nil
}
