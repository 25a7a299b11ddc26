package model

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Binary model layout, little-endian:
//
//	uint32 magic "SYN1"
//	uint32 format version
//	uint32 embedding dimension
//	uint32 card count
//	per card: uint64 id, float32 bias, dim × float32 embedding
//	float32 global bias
const (
	Magic   uint32 = 0x53594E31
	Version uint32 = 1
)

// FormatError reports a malformed or incompatible model artifact.
type FormatError struct {
	Detail string
}

func (e *FormatError) Error() string {
	return "model: " + e.Detail
}

// Save writes the model to path. It writes to a temporary sibling file and
// renames it into place, so a failed save never clobbers an existing model
// or leaves a truncated artifact.
func Save(m *Model, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	w := bufio.NewWriter(tmp)
	if err := writeModel(w, m); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp model file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename model file into place: %w", err)
	}
	return nil
}

func writeModel(w io.Writer, m *Model) error {
	hdr := []uint32{Magic, Version, uint32(m.Dim), uint32(len(m.cards))}
	for _, v := range hdr {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write model header: %w", err)
		}
	}

	for _, c := range m.cards {
		if err := binary.Write(w, binary.LittleEndian, c.ID); err != nil {
			return fmt.Errorf("write card %d: %w", c.ID, err)
		}
		if err := binary.Write(w, binary.LittleEndian, c.Bias); err != nil {
			return fmt.Errorf("write card %d: %w", c.ID, err)
		}
		if err := binary.Write(w, binary.LittleEndian, c.Embedding[:m.Dim]); err != nil {
			return fmt.Errorf("write card %d: %w", c.ID, err)
		}
	}

	if err := binary.Write(w, binary.LittleEndian, m.GlobalBias); err != nil {
		return fmt.Errorf("write global bias: %w", err)
	}
	return nil
}

// Load reads a model artifact saved by Save. dim is the embedding dimension
// the caller runs with: a stored dimension larger than dim is rejected, a
// smaller one is tolerated by zero-filling the remaining coordinates.
func Load(path string, dim int) (*Model, error) {
	if dim <= 0 {
		dim = DefaultDim
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return readModel(bufio.NewReader(f), dim)
}

func readModel(r io.Reader, dim int) (*Model, error) {
	var magic, version, storedDim, numCards uint32
	for _, dst := range []*uint32{&magic, &version, &storedDim, &numCards} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, &FormatError{Detail: "truncated header"}
		}
	}

	if magic != Magic {
		return nil, &FormatError{Detail: fmt.Sprintf("bad magic %#x", magic)}
	}
	if version != Version {
		return nil, &FormatError{Detail: fmt.Sprintf("unsupported format version %d", version)}
	}
	if int(storedDim) > dim {
		return nil, &FormatError{Detail: fmt.Sprintf("stored dimension %d exceeds runtime dimension %d", storedDim, dim)}
	}
	if numCards > math.MaxInt32 {
		return nil, &FormatError{Detail: fmt.Sprintf("implausible card count %d", numCards)}
	}

	m := New(dim)
	for i := uint32(0); i < numCards; i++ {
		c := &Card{Embedding: make([]float32, dim)}
		if err := binary.Read(r, binary.LittleEndian, &c.ID); err != nil {
			return nil, &FormatError{Detail: fmt.Sprintf("truncated card record %d", i)}
		}
		if err := binary.Read(r, binary.LittleEndian, &c.Bias); err != nil {
			return nil, &FormatError{Detail: fmt.Sprintf("truncated card record %d", i)}
		}
		if err := binary.Read(r, binary.LittleEndian, c.Embedding[:storedDim]); err != nil {
			return nil, &FormatError{Detail: fmt.Sprintf("truncated card record %d", i)}
		}
		if err := m.add(c); err != nil {
			return nil, &FormatError{Detail: err.Error()}
		}
	}

	if err := binary.Read(r, binary.LittleEndian, &m.GlobalBias); err != nil {
		return nil, &FormatError{Detail: "missing global bias"}
	}

	return m, nil
}
