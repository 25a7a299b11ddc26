// Package gamedata reads 17Lands-style game-data CSV files and exposes each
// game as a win indicator plus the set of cards present (kept opening hand
// unioned with cards drawn).
package gamedata

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// NameResolver maps card names to IDs. It lets the reader handle datasets
// whose card presence is spread over per-card indicator columns named after
// the cards.
type NameResolver interface {
	IDByName(ctx context.Context, name string) (uint64, error)
}

// Row is one game: the outcome and the IDs of the cards present. Present may
// contain duplicates (a card both kept and drawn); the aggregator dedupes.
type Row struct {
	Won     bool
	Present []uint64
}

// cardColumn ties a dataset column index to the card it indicates.
type cardColumn struct {
	index int
	card  uint64
}

// Reader streams game rows from a CSV file, transparently decompressing
// files with a .gz suffix.
type Reader struct {
	file   *os.File
	csv    *csv.Reader
	line   int
	warned int

	// Explicit list-column layout.
	wonCol         int
	openingHandCol int
	drawnCol       int

	// Per-card indicator layout, used when the list columns are absent.
	perCard     bool
	openingHand []cardColumn
	drawn       []cardColumn
}

// Open opens a game-data file and parses its header. resolver is only
// consulted for per-card indicator layouts and may be nil for datasets with
// explicit opening_hand/drawn list columns.
func Open(ctx context.Context, path string, resolver NameResolver) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open game data: %w", err)
	}

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open gzip game data: %w", err)
		}
		src = gz
	}

	cr := csv.NewReader(src)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	r := &Reader{file: f, csv: cr}
	if err := r.parseHeader(ctx, resolver); err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

func (r *Reader) parseHeader(ctx context.Context, resolver NameResolver) error {
	header, err := r.csv.Read()
	if err != nil {
		return fmt.Errorf("read game data header: %w", err)
	}
	r.line = 1

	r.wonCol, r.openingHandCol, r.drawnCol = -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(col) {
		case "won", "user_win", "won_game":
			if r.wonCol < 0 {
				r.wonCol = i
			}
		case "opening_hand", "opening_hand_card_ids":
			r.openingHandCol = i
		case "drawn", "drawn_card_ids":
			r.drawnCol = i
		}
	}
	if r.wonCol < 0 {
		return fmt.Errorf("game data header: no won column")
	}

	if r.openingHandCol >= 0 || r.drawnCol >= 0 {
		return nil
	}

	// Fall back to per-card indicator columns: opening_hand_<name> and
	// drawn_<name>, resolved to IDs through the card directory.
	if resolver == nil {
		return fmt.Errorf("game data header: no card columns and no card directory to resolve names")
	}
	for i, col := range header {
		var prefixLen int
		var dst *[]cardColumn
		switch {
		case strings.HasPrefix(col, "opening_hand_"):
			prefixLen, dst = len("opening_hand_"), &r.openingHand
		case strings.HasPrefix(col, "drawn_"):
			prefixLen, dst = len("drawn_"), &r.drawn
		default:
			continue
		}

		id, err := resolver.IDByName(ctx, col[prefixLen:])
		if err != nil || id == 0 {
			continue // unknown card, skip the column
		}
		*dst = append(*dst, cardColumn{index: i, card: id})
	}

	if len(r.openingHand) == 0 && len(r.drawn) == 0 {
		return fmt.Errorf("game data header: no recognizable card columns")
	}
	r.perCard = true
	return nil
}

// Next returns the next game row. It returns io.EOF when the file is
// exhausted. Rows that cannot be parsed are skipped with a warning rather
// than aborting the batch.
func (r *Reader) Next() (Row, error) {
	for {
		record, err := r.csv.Read()
		if err == io.EOF {
			return Row{}, io.EOF
		}
		r.line++
		if err != nil {
			r.warn("skipping row %d: %v", r.line, err)
			continue
		}
		if r.wonCol >= len(record) {
			r.warn("skipping row %d: too few fields", r.line)
			continue
		}

		row := Row{Won: truthy(record[r.wonCol])}
		if r.perCard {
			r.collectIndicators(record, r.openingHand, &row.Present)
			r.collectIndicators(record, r.drawn, &row.Present)
		} else {
			if r.openingHandCol >= 0 && r.openingHandCol < len(record) {
				row.Present = appendIDList(row.Present, record[r.openingHandCol])
			}
			if r.drawnCol >= 0 && r.drawnCol < len(record) {
				row.Present = appendIDList(row.Present, record[r.drawnCol])
			}
		}

		return row, nil
	}
}

func (r *Reader) collectIndicators(record []string, cols []cardColumn, present *[]uint64) {
	for _, cc := range cols {
		if cc.index < len(record) && truthy(record[cc.index]) {
			*present = append(*present, cc.card)
		}
	}
}

// warn rate-limits malformed-row logging so one corrupt file cannot flood
// the log.
func (r *Reader) warn(format string, args ...any) {
	const maxWarnings = 20
	if r.warned >= maxWarnings {
		return
	}
	r.warned++
	log.Printf("[GameData] Warning: "+format, args...)
	if r.warned == maxWarnings {
		log.Printf("[GameData] Warning: further malformed rows will not be reported")
	}
}

// truthy interprets a dataset boolean cell: a positive integer, "true" or
// "yes" in any casing.
func truthy(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n > 0
	}
	switch v[0] {
	case 't', 'T', 'y', 'Y':
		return true
	}
	return false
}

// appendIDList parses a bracketed ID list such as "[123, 456]" (quotes and
// brackets optional) and appends the IDs to dst.
func appendIDList(dst []uint64, field string) []uint64 {
	field = strings.Trim(strings.TrimSpace(field), "[]\"'")
	if field == "" {
		return dst
	}
	for part := range strings.SplitSeq(field, ",") {
		part = strings.Trim(strings.TrimSpace(part), "\"'")
		if part == "" {
			continue
		}
		if id, err := strconv.ParseUint(part, 10, 64); err == nil && id > 0 {
			dst = append(dst, id)
		}
	}
	return dst
}
