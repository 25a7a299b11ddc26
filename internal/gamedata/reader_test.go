package gamedata

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// mapResolver is a NameResolver backed by a plain map, standing in for the
// card directory.
type mapResolver map[string]uint64

func (m mapResolver) IDByName(_ context.Context, name string) (uint64, error) {
	if id, ok := m[name]; ok {
		return id, nil
	}
	return 0, errors.New("not found")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readAll(t *testing.T, r *Reader) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rows = append(rows, row)
	}
	return rows
}

func TestListColumnLayout(t *testing.T) {
	content := "won,opening_hand,drawn\n" +
		"true,\"[101,102]\",\"[103]\"\n" +
		"0,[101],[]\n" +
		"1,[],\"[102, 104]\"\n"
	path := writeFile(t, "games.csv", content)

	r, err := Open(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	rows := readAll(t, r)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	tests := []struct {
		won     bool
		present []uint64
	}{
		{won: true, present: []uint64{101, 102, 103}},
		{won: false, present: []uint64{101}},
		{won: true, present: []uint64{102, 104}},
	}
	for i, want := range tests {
		if rows[i].Won != want.won {
			t.Errorf("row %d: won = %v, want %v", i, rows[i].Won, want.won)
		}
		if len(rows[i].Present) != len(want.present) {
			t.Fatalf("row %d: present = %v, want %v", i, rows[i].Present, want.present)
		}
		for j, id := range want.present {
			if rows[i].Present[j] != id {
				t.Errorf("row %d: present = %v, want %v", i, rows[i].Present, want.present)
			}
		}
	}
}

func TestPerCardColumnLayout(t *testing.T) {
	resolver := mapResolver{
		"Shock":   11,
		"Opt":     22,
		"Duress":  33,
		"Unknown": 0, // resolves to zero, treated as unknown
	}

	content := "user_win,opening_hand_Shock,drawn_Shock,opening_hand_Opt,drawn_Duress,drawn_Missing\n" +
		"1,1,0,0,1,1\n" +
		"0,0,1,1,0,0\n"
	path := writeFile(t, "games.csv", content)

	r, err := Open(context.Background(), path, resolver)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	rows := readAll(t, r)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	// Row 1: Shock kept, Duress drawn; the Missing column is skipped.
	want := map[uint64]bool{11: true, 33: true}
	if len(rows[0].Present) != 2 {
		t.Fatalf("row 0: present = %v, want Shock and Duress", rows[0].Present)
	}
	for _, id := range rows[0].Present {
		if !want[id] {
			t.Errorf("row 0: unexpected card %d", id)
		}
	}

	// Row 2: Shock drawn, Opt kept.
	want = map[uint64]bool{11: true, 22: true}
	if len(rows[1].Present) != 2 {
		t.Fatalf("row 1: present = %v, want Shock and Opt", rows[1].Present)
	}
	for _, id := range rows[1].Present {
		if !want[id] {
			t.Errorf("row 1: unexpected card %d", id)
		}
	}
}

func TestGzipInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.csv.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte("won,opening_hand,drawn\n1,[5],[6]\n")); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := Open(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	rows := readAll(t, r)
	if len(rows) != 1 || !rows[0].Won || len(rows[0].Present) != 2 {
		t.Fatalf("rows = %+v, want one won row with two cards", rows)
	}
}

func TestMissingWonColumn(t *testing.T) {
	path := writeFile(t, "games.csv", "foo,bar\n1,2\n")
	_, err := Open(context.Background(), path, nil)
	if err == nil {
		t.Fatal("Open accepted a header without a won column")
	}
}

func TestMalformedRowsSkipped(t *testing.T) {
	// won is the last column so a truncated row cannot supply it.
	content := "opening_hand,drawn,won\n" +
		"[1],[2],1\n" +
		"[3]\n" +
		"[5],[6],0\n"
	path := writeFile(t, "games.csv", content)

	r, err := Open(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	rows := readAll(t, r)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (malformed row skipped)", len(rows))
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true}, {"2", true}, {"0", false}, {"-1", false},
		{"true", true}, {"True", true}, {"yes", true},
		{"false", false}, {"", false}, {" 1 ", true},
	}
	for _, tt := range tests {
		if got := truthy(tt.in); got != tt.want {
			t.Errorf("truthy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
