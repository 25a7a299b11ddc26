package labels

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// header is the fixed column layout of the label table.
var header = []string{
	"card_a", "card_b",
	"n11", "w11", "p11",
	"n10", "w10", "p10",
	"n01", "w01", "p01",
	"n00", "w00", "p00",
	"syn_delta",
}

// FormatError reports malformed persisted label data.
type FormatError struct {
	Line   int
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("labels: line %d: %s", e.Line, e.Detail)
}

// WriteCSV writes all records from the iterator's underlying aggregator state
// to path and returns how many labels it wrote. The file is written to a
// temporary sibling and renamed into place so a failed run never leaves a
// partial label table behind.
func WriteCSV(a *Aggregator, path string) (int, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp label file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-ops once the rename has succeeded.
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("write label header: %w", err)
	}

	count := 0
	for rec := range a.All() {
		if err := w.Write(recordFields(rec)); err != nil {
			return 0, fmt.Errorf("write label row: %w", err)
		}
		count++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush label file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp label file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("rename label file into place: %w", err)
	}

	return count, nil
}

func recordFields(rec Record) []string {
	return []string{
		strconv.FormatUint(rec.CardA, 10),
		strconv.FormatUint(rec.CardB, 10),
		strconv.FormatUint(rec.N11, 10),
		strconv.FormatUint(rec.W11, 10),
		strconv.FormatFloat(rec.P11, 'f', 6, 64),
		strconv.FormatUint(rec.N10, 10),
		strconv.FormatUint(rec.W10, 10),
		strconv.FormatFloat(rec.P10, 'f', 6, 64),
		strconv.FormatUint(rec.N01, 10),
		strconv.FormatUint(rec.W01, 10),
		strconv.FormatFloat(rec.P01, 'f', 6, 64),
		strconv.FormatUint(rec.N00, 10),
		strconv.FormatUint(rec.W00, 10),
		strconv.FormatFloat(rec.P00, 'f', 6, 64),
		strconv.FormatFloat(rec.SynDelta, 'f', 6, 64),
	}
}

// ReadCSV loads a persisted label table. The header row is required and
// validated; any malformed row aborts the load with a *FormatError, since a
// training run on a partially read table would be silently wrong.
func ReadCSV(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	head, err := r.Read()
	if err != nil {
		return nil, &FormatError{Line: 1, Detail: "missing header row"}
	}
	for i, name := range header {
		if head[i] != name {
			return nil, &FormatError{Line: 1, Detail: fmt.Sprintf("expected column %q, found %q", name, head[i])}
		}
	}

	var records []Record
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &FormatError{Line: line, Detail: err.Error()}
		}

		rec, err := parseRow(row)
		if err != nil {
			return nil, &FormatError{Line: line, Detail: err.Error()}
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseRow(row []string) (Record, error) {
	var rec Record
	var err error

	uints := []struct {
		dst *uint64
		idx int
	}{
		{&rec.CardA, 0}, {&rec.CardB, 1},
		{&rec.N11, 2}, {&rec.W11, 3},
		{&rec.N10, 5}, {&rec.W10, 6},
		{&rec.N01, 8}, {&rec.W01, 9},
		{&rec.N00, 11}, {&rec.W00, 12},
	}
	for _, u := range uints {
		if *u.dst, err = strconv.ParseUint(row[u.idx], 10, 64); err != nil {
			return Record{}, fmt.Errorf("column %s: %w", header[u.idx], err)
		}
	}

	floats := []struct {
		dst *float64
		idx int
	}{
		{&rec.P11, 4}, {&rec.P10, 7}, {&rec.P01, 10}, {&rec.P00, 13}, {&rec.SynDelta, 14},
	}
	for _, f := range floats {
		if *f.dst, err = strconv.ParseFloat(row[f.idx], 64); err != nil {
			return Record{}, fmt.Errorf("column %s: %w", header[f.idx], err)
		}
	}

	return rec, nil
}
